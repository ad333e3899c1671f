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

package plugin_test

import (
	"errors"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/projector/database/plugin"
)

// Mock plugin implementation for testing
type mockPlugin struct{}

func (m *mockPlugin) Start() error { return nil }
func (m *mockPlugin) Stop() error  { return nil }

func TestRegister(t *testing.T) {
	pluginName := "test-plugin-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeBlob,
		Name:               pluginName,
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
	})

	p := plugin.GetPlugin(plugin.PluginTypeBlob, pluginName)
	require.NotNil(t, p)
	assert.IsType(t, &mockPlugin{}, p)

	found := false
	for _, pl := range plugin.GetPlugins(plugin.PluginTypeBlob) {
		if pl.Name == pluginName {
			found = true
		}
	}
	assert.True(t, found, "plugin not in GetPlugins list")

	// Registered under the blob type only
	assert.Nil(t, plugin.GetPlugin(plugin.PluginTypeMetadata, pluginName))
	assert.Nil(t, plugin.GetPlugin(plugin.PluginTypeBlob, "non-existent-"+t.Name()))
}

func TestPluginTypeName(t *testing.T) {
	assert.Equal(t, "metadata", plugin.PluginTypeName(plugin.PluginTypeMetadata))
	assert.Equal(t, "blob", plugin.PluginTypeName(plugin.PluginTypeBlob))
	assert.Empty(t, plugin.PluginTypeName(plugin.PluginType(99)))
}

func TestPluginOptions(t *testing.T) {
	pluginName := "opts-" + t.Name()
	var (
		host    string
		port    uint64
		verbose bool
		workers int
	)
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeMetadata,
		Name:               pluginName,
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
		Options: []plugin.PluginOption{
			{Name: "host", Type: plugin.PluginOptionTypeString, DefaultValue: "localhost", Dest: &host},
			{Name: "port", Type: plugin.PluginOptionTypeUint, DefaultValue: uint64(5432), Dest: &port},
			{Name: "verbose", Type: plugin.PluginOptionTypeBool, Dest: &verbose},
			{Name: "workers", Type: plugin.PluginOptionTypeInt, DefaultValue: 2, Dest: &workers},
		},
	})

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, plugin.PopulateCmdlineOptions(fs))
	assert.Equal(t, "localhost", host)
	assert.Equal(t, uint64(5432), port)
	require.NoError(t, fs.Parse([]string{
		"--metadata-" + pluginName + "-host=db.example",
		"--metadata-" + pluginName + "-verbose",
	}))
	assert.Equal(t, "db.example", host)
	assert.True(t, verbose)

	require.NoError(t, plugin.ProcessConfig(map[string]map[string]map[string]any{
		"metadata": {
			pluginName: {"port": 6543, "workers": 8},
		},
	}))
	assert.Equal(t, uint64(6543), port)
	assert.Equal(t, 8, workers)

	err := plugin.ProcessConfig(map[string]map[string]map[string]any{
		"metadata": {
			pluginName: {"port": "not a number"},
		},
	})
	require.Error(t, err)

	t.Setenv("PROJECTOR_METADATA_"+envName(pluginName)+"_PORT", "7000")
	require.NoError(t, plugin.ProcessEnvVars())
	assert.Equal(t, uint64(7000), port)

	t.Setenv("PROJECTOR_METADATA_"+envName(pluginName)+"_VERBOSE", "maybe")
	require.Error(t, plugin.ProcessEnvVars())
}

func envName(name string) string {
	ret := []byte(name)
	for i, c := range ret {
		switch {
		case c == '-':
			ret[i] = '_'
		case c >= 'a' && c <= 'z':
			ret[i] = c - 'a' + 'A'
		}
	}
	return string(ret)
}

func TestErrorPlugin(t *testing.T) {
	testErr := errors.New("broken")
	p := plugin.NewErrorPlugin(testErr)
	require.ErrorIs(t, p.Start(), testErr)
	require.NoError(t, p.Stop())
}
