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

package plugin

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/pflag"
)

type PluginType int

const (
	PluginTypeMetadata PluginType = 1
	PluginTypeBlob     PluginType = 2
)

func PluginTypeName(pluginType PluginType) string {
	switch pluginType {
	case PluginTypeMetadata:
		return "metadata"
	case PluginTypeBlob:
		return "blob"
	default:
		return ""
	}
}

type PluginEntry struct {
	NewFromOptionsFunc func() Plugin
	Name               string
	Description        string
	Options            []PluginOption
	Type               PluginType
}

var (
	pluginEntries      []PluginEntry
	pluginEntriesMutex sync.RWMutex
)

// Register adds a plugin to the registry. It's called from the init()
// function of each plugin package.
func Register(pluginEntry PluginEntry) {
	pluginEntriesMutex.Lock()
	defer pluginEntriesMutex.Unlock()
	pluginEntries = append(pluginEntries, pluginEntry)
}

// GetPlugins returns the registered plugins of the given type
func GetPlugins(pluginType PluginType) []PluginEntry {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	ret := []PluginEntry{}
	for _, plugin := range pluginEntries {
		if plugin.Type == pluginType {
			ret = append(ret, plugin)
		}
	}
	return ret
}

// GetPlugin creates a new plugin instance from its current option values.
// It returns nil if no matching plugin is registered.
func GetPlugin(pluginType PluginType, name string) Plugin {
	pluginEntriesMutex.RLock()
	var newFunc func() Plugin
	for _, plugin := range pluginEntries {
		if plugin.Type == pluginType && plugin.Name == name {
			newFunc = plugin.NewFromOptionsFunc
			break
		}
	}
	pluginEntriesMutex.RUnlock()
	if newFunc == nil {
		return nil
	}
	return newFunc()
}

// PopulateCmdlineOptions adds a flag for every registered plugin option.
// Flags are named <type>-<plugin>-<option>.
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for _, plugin := range pluginEntries {
		for _, option := range plugin.Options {
			if err := option.AddToFlagSet(
				fs,
				PluginTypeName(plugin.Type),
				plugin.Name,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessConfig applies option values from a config file section shaped as
// type -> plugin -> option -> value
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for _, plugin := range pluginEntries {
		typeConfig, ok := pluginConfig[PluginTypeName(plugin.Type)]
		if !ok {
			continue
		}
		optionValues, ok := typeConfig[plugin.Name]
		if !ok {
			continue
		}
		for _, option := range plugin.Options {
			value, ok := optionValues[option.Name]
			if !ok {
				continue
			}
			if err := option.ProcessConfig(value); err != nil {
				return fmt.Errorf(
					"%s plugin %s: %w",
					PluginTypeName(plugin.Type),
					plugin.Name,
					err,
				)
			}
		}
	}
	return nil
}

// ProcessEnvVars applies option values from the environment. Variables are
// named PROJECTOR_<TYPE>_<PLUGIN>_<OPTION> with dashes mapped to underscores.
func ProcessEnvVars() error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for _, plugin := range pluginEntries {
		for _, option := range plugin.Options {
			envName := envVarName(
				PluginTypeName(plugin.Type),
				plugin.Name,
				option.Name,
			)
			value, ok := os.LookupEnv(envName)
			if !ok {
				continue
			}
			if err := option.ProcessEnvVar(value); err != nil {
				return fmt.Errorf("%s: %w", envName, err)
			}
		}
	}
	return nil
}

func envVarName(parts ...string) string {
	name := "PROJECTOR_" + strings.Join(parts, "_")
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func parseEnvValue(optionType PluginOptionType, value string) (any, error) {
	switch optionType {
	case PluginOptionTypeString:
		return value, nil
	case PluginOptionTypeBool:
		return strconv.ParseBool(value)
	case PluginOptionTypeInt:
		return strconv.Atoi(value)
	case PluginOptionTypeUint:
		return strconv.ParseUint(value, 10, 64)
	default:
		return nil, fmt.Errorf("unknown plugin option type %d", optionType)
	}
}
