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
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/blinklabs-io/projector/database/plugin/metadata/sqlite"
)

// isolate keeps the lookup of user and system config files away from the
// real home directory
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "projector.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0o600))
	return tmpFile
}

func TestLoad_WithoutConfigFile_UsesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.Same(t, cfg, GetConfig())
}

func TestLoad_CompareFullStruct(t *testing.T) {
	isolate(t)
	yamlContent := `
name: "mainnet-keys"
logLevel: "debug"
bindAddr: "127.0.0.1"
shutdownTimeout: "10s"
projections:
  - StakeKeys
  - UTXO
database:
  dataDir: "/var/lib/projector"
  blobPlugin: "badger"
  metadataPlugin: "postgres"
source:
  type: "node"
  address: "relay.example.com:3001"
  networkMagic: 764824073
  intersect:
    - slot: 4492800
      hash: "f8084c61b6a238acec985b59310b6ecec49c0ab8352249afd7268da5cff2a457"
retry:
  maxAttempts: 3
  initialInterval: "250ms"
  maxInterval: "2s"
devOptions:
  dropSchema: true
blocksBufferLength: 50
undoDepth: 100
metricsPort: 9100
tracing: true
tracingStdout: true
`
	cfg, err := LoadConfig(writeConfig(t, yamlContent))
	require.NoError(t, err)

	expected := &Config{
		Name:            "mainnet-keys",
		LogLevel:        "debug",
		BindAddr:        "127.0.0.1",
		ShutdownTimeout: "10s",
		Projections:     []string{"StakeKeys", "UTXO"},
		Database: DatabaseConfig{
			DataDir:        "/var/lib/projector",
			BlobPlugin:     "badger",
			MetadataPlugin: "postgres",
		},
		Source: SourceConfig{
			Type:         SourceTypeNode,
			Address:      "relay.example.com:3001",
			Network:      "mainnet",
			NetworkMagic: 764824073,
			Intersect: []IntersectPoint{
				{
					Slot: 4492800,
					Hash: "f8084c61b6a238acec985b59310b6ecec49c0ab8352249afd7268da5cff2a457",
				},
			},
		},
		Retry: RetryConfig{
			MaxAttempts:     3,
			InitialInterval: 250 * time.Millisecond,
			MaxInterval:     2 * time.Second,
		},
		DevOptions:         DevOptions{DropSchema: true},
		BlocksBufferLength: 50,
		UndoDepth:          100,
		MetricsPort:        9100,
		Tracing:            true,
		TracingStdout:      true,
	}
	assert.Equal(t, expected, cfg)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	isolate(t)
	t.Setenv("PROJECTOR_BLOCKS_BUFFER_LENGTH", "3")
	t.Setenv("PROJECTOR_SOURCE_TYPE", "replay")
	t.Setenv("PROJECTOR_SOURCE_FILE", "/data/blocks.replay")
	t.Setenv("PROJECTOR_PROJECTIONS", "StakeKeys,Assets")
	t.Setenv("PROJECTOR_RETRY_MAX_INTERVAL", "1s")
	t.Setenv("PROJECTOR_DEV_OPTIONS_DROP_SCHEMA", "true")
	cfg, err := LoadConfig(writeConfig(t, "blocksBufferLength: 20\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.BlocksBufferLength)
	assert.Equal(t, SourceTypeReplay, cfg.Source.Type)
	assert.Equal(t, "/data/blocks.replay", cfg.Source.File)
	assert.Equal(t, []string{"StakeKeys", "Assets"}, cfg.Projections)
	assert.Equal(t, time.Second, cfg.Retry.MaxInterval)
	assert.True(t, cfg.DevOptions.DropSchema)
}

func TestLoad_Validation(t *testing.T) {
	testDefs := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "buffer length",
			yaml:    "blocksBufferLength: 0\n",
			wantErr: "invalid blocksBufferLength",
		},
		{
			name:    "undo depth",
			yaml:    "undoDepth: -1\n",
			wantErr: "invalid undoDepth",
		},
		{
			name:    "retry attempts",
			yaml:    "retry:\n  maxAttempts: 0\n",
			wantErr: "invalid retry.maxAttempts",
		},
		{
			name:    "unknown projection",
			yaml:    "projections: [Votes]\n",
			wantErr: "unknown projection",
		},
		{
			name:    "no projections",
			yaml:    "projections: []\n",
			wantErr: "no projections configured",
		},
		{
			name:    "unknown source type",
			yaml:    "source:\n  type: kafka\n",
			wantErr: "invalid source.type",
		},
		{
			name:    "replay without file",
			yaml:    "source:\n  type: replay\n",
			wantErr: "source.file is required",
		},
		{
			name:    "unknown network",
			yaml:    "source:\n  network: nonexistent\n",
			wantErr: "unknown network",
		},
		{
			name:    "bad intersect hash",
			yaml:    "source:\n  intersect:\n    - slot: 5\n      hash: zz\n",
			wantErr: "invalid intersect hash",
		},
		{
			name:    "bad log level",
			yaml:    "logLevel: loud\n",
			wantErr: "invalid log level",
		},
		{
			name:    "bad shutdown timeout",
			yaml:    "shutdownTimeout: soon\n",
			wantErr: "invalid shutdown timeout",
		},
		{
			name:    "bad plugin option type",
			yaml:    "metadata:\n  sqlite:\n    data-dir: 5\n",
			wantErr: "error processing plugin config",
		},
		{
			name:    "malformed yaml",
			yaml:    "name: [unterminated\n",
			wantErr: "error parsing config file",
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			isolate(t)
			_, err := LoadConfig(writeConfig(t, testDef.yaml))
			require.ErrorContains(t, err, testDef.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	isolate(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "error reading config file")
}

func TestLoad_UserConfigFile(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	require.NoError(t, os.MkdirAll(filepath.Join(homeDir, ".projector"), 0o700))
	require.NoError(t, os.WriteFile(
		filepath.Join(homeDir, ".projector", "projector.yaml"),
		[]byte("name: from-home\n"),
		0o600,
	))
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "from-home", cfg.Name)
}

func TestSourceNodeAddress(t *testing.T) {
	network, address := SourceConfig{Address: "/ipc/node.socket"}.NodeAddress()
	assert.Equal(t, "unix", network)
	assert.Equal(t, "/ipc/node.socket", address)
	network, address = SourceConfig{Address: "localhost:3001"}.NodeAddress()
	assert.Equal(t, "tcp", network)
	assert.Equal(t, "localhost:3001", address)
}

func TestSourceIntersectPoints(t *testing.T) {
	src := SourceConfig{
		Intersect: []IntersectPoint{
			{Slot: 10, Hash: "abcd"},
			{Slot: 20, Hash: "0102"},
		},
	}
	points, err := src.IntersectPoints()
	require.NoError(t, err)
	assert.Equal(
		t,
		[]ocommon.Point{
			ocommon.NewPoint(10, []byte{0xab, 0xcd}),
			ocommon.NewPoint(20, []byte{0x01, 0x02}),
		},
		points,
	)
}

func TestSlogLevel(t *testing.T) {
	cfg := &Config{}
	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
	cfg.LogLevel = "warn"
	level, err = cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := defaultConfig()
	assert.Same(t, cfg, FromContext(WithContext(context.Background(), cfg)))
}
