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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/projector/database/plugin"
	_ "github.com/blinklabs-io/projector/database/plugin/blob/badger"
	_ "github.com/blinklabs-io/projector/database/plugin/metadata/sqlite"
)

// This test mutates global plugin option state and must not run in parallel
func TestSetPluginOption(t *testing.T) {
	// Empty data-dir selects in-memory storage
	require.NoError(
		t,
		plugin.SetPluginOption(plugin.PluginTypeMetadata, "sqlite", "data-dir", ""),
	)
	// Wrong value type
	require.Error(
		t,
		plugin.SetPluginOption(plugin.PluginTypeMetadata, "sqlite", "data-dir", 123),
	)
	// Unknown options are ignored
	require.NoError(
		t,
		plugin.SetPluginOption(plugin.PluginTypeMetadata, "sqlite", "does-not-exist", "x"),
	)
	require.NoError(
		t,
		plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "data-dir", t.TempDir()),
	)
	require.NoError(
		t,
		plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "cache-size", uint64(100000000)),
	)
	require.NoError(
		t,
		plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "cache-size", 1000),
	)
	require.Error(
		t,
		plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "cache-size", -1),
	)
	require.NoError(
		t,
		plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "gc-interval", 60),
	)
	require.Error(
		t,
		plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "gc-interval", true),
	)
	require.Error(
		t,
		plugin.SetPluginOption(plugin.PluginTypeMetadata, "nonexistent", "data-dir", t.TempDir()),
	)
	// Restore in-memory default for other tests in this package
	require.NoError(
		t,
		plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "data-dir", ""),
	)
}

func TestStartPluginNotFound(t *testing.T) {
	_, err := plugin.StartPlugin(plugin.PluginTypeBlob, "nonexistent-"+t.Name())
	require.ErrorContains(t, err, "not found")
}
