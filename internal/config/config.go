// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	ouroboros "github.com/blinklabs-io/gouroboros"
	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/blinklabs-io/projector/database/plugin"
	"github.com/blinklabs-io/projector/database/sops"
	"github.com/blinklabs-io/projector/projection"
)

type ctxKey string

const configContextKey ctxKey = "projector.config"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const (
	DefaultBlobPlugin      = "badger"
	DefaultMetadataPlugin  = "sqlite"
	DefaultShutdownTimeout = "30s"

	SourceTypeNode   = "node"
	SourceTypeReplay = "replay"
)

// tempConfig picks the plugin option sections out of the config file
type tempConfig struct {
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type Config struct {
	Name               string         `yaml:"name"`
	LogLevel           string         `yaml:"logLevel"           split_words:"true"`
	BindAddr           string         `yaml:"bindAddr"           split_words:"true"`
	ShutdownTimeout    string         `yaml:"shutdownTimeout"    split_words:"true"`
	Projections        []string       `yaml:"projections"`
	Database           DatabaseConfig `yaml:"database"`
	Source             SourceConfig   `yaml:"source"`
	Retry              RetryConfig    `yaml:"retry"`
	DevOptions         DevOptions     `yaml:"devOptions"         split_words:"true"`
	BlocksBufferLength int            `yaml:"blocksBufferLength" split_words:"true"`
	UndoDepth          int            `yaml:"undoDepth"          split_words:"true"`
	MetricsPort        uint           `yaml:"metricsPort"        split_words:"true"`
	Tracing            bool           `yaml:"tracing"`
	TracingStdout      bool           `yaml:"tracingStdout"      split_words:"true"`
}

type DatabaseConfig struct {
	DataDir        string `yaml:"dataDir"        split_words:"true"`
	BlobPlugin     string `yaml:"blobPlugin"     split_words:"true"`
	MetadataPlugin string `yaml:"metadataPlugin" split_words:"true"`
}

// SourceConfig selects the event source. Type is "node" or "replay". The
// node address is a unix socket path or host:port.
type SourceConfig struct {
	Type         string           `yaml:"type"`
	Address      string           `yaml:"address"`
	Network      string           `yaml:"network"`
	File         string           `yaml:"file"`
	Intersect    []IntersectPoint `yaml:"intersect"    ignored:"true"`
	NetworkMagic uint32           `yaml:"networkMagic"                split_words:"true"`
}

type IntersectPoint struct {
	Hash string `yaml:"hash"`
	Slot uint64 `yaml:"slot"`
}

type RetryConfig struct {
	MaxAttempts     int           `yaml:"maxAttempts"     split_words:"true"`
	InitialInterval time.Duration `yaml:"initialInterval" split_words:"true"`
	MaxInterval     time.Duration `yaml:"maxInterval"     split_words:"true"`
}

type DevOptions struct {
	DropSchema bool `yaml:"dropSchema" split_words:"true"`
}

// NodeAddress splits the source address into a dialer network and address
func (s SourceConfig) NodeAddress() (string, string) {
	if _, _, err := net.SplitHostPort(s.Address); err == nil {
		return "tcp", s.Address
	}
	return "unix", s.Address
}

// IntersectPoints decodes the configured intersect points
func (s SourceConfig) IntersectPoints() ([]ocommon.Point, error) {
	ret := make([]ocommon.Point, 0, len(s.Intersect))
	for _, point := range s.Intersect {
		hash, err := hex.DecodeString(point.Hash)
		if err != nil {
			return nil, fmt.Errorf(
				"invalid intersect hash at slot %d: %w",
				point.Slot,
				err,
			)
		}
		ret = append(ret, ocommon.NewPoint(point.Slot, hash))
	}
	return ret, nil
}

// SlogLevel returns the configured log level
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log level: %q", c.LogLevel)
	}
	return level, nil
}

func (c *Config) GetShutdownTimeout() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return time.ParseDuration(DefaultShutdownTimeout)
	}
	ret, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	return ret, nil
}

func (c *Config) validate() error {
	if c.BlocksBufferLength < 1 {
		return fmt.Errorf(
			"invalid blocksBufferLength: %d (must be at least 1)",
			c.BlocksBufferLength,
		)
	}
	if c.UndoDepth < 1 {
		return fmt.Errorf(
			"invalid undoDepth: %d (must be at least 1)",
			c.UndoDepth,
		)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf(
			"invalid retry.maxAttempts: %d (must be at least 1)",
			c.Retry.MaxAttempts,
		)
	}
	if len(c.Projections) == 0 {
		return errors.New("no projections configured")
	}
	for _, name := range c.Projections {
		if _, ok := projection.GetProjection(name); !ok {
			return fmt.Errorf("%w: %s", projection.ErrUnknownProjection, name)
		}
	}
	switch c.Source.Type {
	case SourceTypeNode:
		if c.Source.NetworkMagic == 0 && c.Source.Network != "" {
			if _, ok := ouroboros.NetworkByName(c.Source.Network); !ok {
				return fmt.Errorf("unknown network: %s", c.Source.Network)
			}
		}
	case SourceTypeReplay:
		if c.Source.File == "" {
			return errors.New("source.file is required for the replay source")
		}
	default:
		return fmt.Errorf(
			"invalid source.type: %q (must be 'node' or 'replay')",
			c.Source.Type,
		)
	}
	if _, err := c.Source.IntersectPoints(); err != nil {
		return err
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if _, err := c.GetShutdownTimeout(); err != nil {
		return err
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Name:            projection.DefaultName,
		LogLevel:        "info",
		BindAddr:        "0.0.0.0",
		ShutdownTimeout: DefaultShutdownTimeout,
		Projections:     []string{projection.StakeKeysProjectionName},
		Database: DatabaseConfig{
			DataDir:        ".projector",
			BlobPlugin:     DefaultBlobPlugin,
			MetadataPlugin: DefaultMetadataPlugin,
		},
		Source: SourceConfig{
			Type:    SourceTypeNode,
			Address: "/ipc/node.socket",
			Network: "mainnet",
		},
		Retry: RetryConfig{
			MaxAttempts:     projection.DefaultRetryMaxAttempts,
			InitialInterval: projection.DefaultRetryInitialInterval,
			MaxInterval:     projection.DefaultRetryMaxInterval,
		},
		BlocksBufferLength: projection.DefaultBlocksBufferLength,
		UndoDepth:          projection.DefaultUndoDepth,
		MetricsPort:        12798,
	}
}

var globalConfig = defaultConfig()

// readConfigFile reads a config file, decrypting it when it carries sops
// metadata
func readConfigFile(configFile string) ([]byte, error) {
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	format, encrypted := sops.Format(buf)
	if !encrypted {
		return buf, nil
	}
	ret, err := sops.DecryptFormat(buf, format)
	if err != nil {
		return nil, fmt.Errorf("error decrypting config file: %w", err)
	}
	return ret, nil
}

func LoadConfig(configFile string) (*Config, error) {
	cfg := defaultConfig()
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.projector/projector.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".projector", "projector.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/projector/projector.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/projector/projector.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := readConfigFile(configFile)
		if err != nil {
			return nil, err
		}
		// Overlay config values onto existing defaults
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}

		// Process plugin configurations
		var tempCfg tempConfig
		if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		pluginConfig := make(map[string]map[string]map[string]any)
		if tempCfg.Blob != nil {
			pluginConfig["blob"] = tempCfg.Blob
		}
		if tempCfg.Metadata != nil {
			pluginConfig["metadata"] = tempCfg.Metadata
		}
		if len(pluginConfig) > 0 {
			err = plugin.ProcessConfig(pluginConfig)
			if err != nil {
				return nil, fmt.Errorf(
					"error processing plugin config: %w",
					err,
				)
			}
		}
	}
	// Process environment variables
	err := envconfig.Process("projector", cfg)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}

	// Process plugin environment variables
	err = plugin.ProcessEnvVars()
	if err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	globalConfig = cfg
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}
