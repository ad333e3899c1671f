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

package badger

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/projector/database/plugin"
)

// Undo records are small and few, bounded by the undo depth
const (
	DefaultCacheSize  = 32 << 20 // 32MB
	DefaultGcInterval = 5 * time.Minute
)

var (
	cmdlineOptions struct {
		dataDir      string
		cacheSize    uint64
		gcInterval   uint64
		promRegistry prometheus.Registerer
	}
	cmdlineOptionsMutex sync.RWMutex
)

func initCmdlineOptions() {
	cmdlineOptionsMutex.Lock()
	defer cmdlineOptionsMutex.Unlock()
	cmdlineOptions.dataDir = ".projector"
	cmdlineOptions.cacheSize = DefaultCacheSize
	cmdlineOptions.gcInterval = uint64(DefaultGcInterval.Seconds())
}

func init() {
	initCmdlineOptions()
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "badger",
			Description:        "BadgerDB local store for undo records",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "data-dir",
					Type:         plugin.PluginOptionTypeString,
					Description:  "Directory for undo records, empty for in-memory",
					DefaultValue: ".projector",
					Dest:         &(cmdlineOptions.dataDir),
				},
				{
					Name:         "cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Cache budget in bytes for undo record lookups during rollbacks",
					DefaultValue: uint64(DefaultCacheSize),
					Dest:         &(cmdlineOptions.cacheSize),
				},
				{
					Name:         "gc-interval",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Seconds between GC runs reclaiming pruned undo records, 0 to disable",
					DefaultValue: uint64(DefaultGcInterval.Seconds()),
					Dest:         &(cmdlineOptions.gcInterval),
				},
			},
		},
	)
}

// SetPromRegistry sets the registry that stores created from the plugin
// registry report their metrics to
func SetPromRegistry(reg prometheus.Registerer) {
	cmdlineOptionsMutex.Lock()
	defer cmdlineOptionsMutex.Unlock()
	cmdlineOptions.promRegistry = reg
}

func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	opts := []BlobStoreBadgerOptionFunc{
		WithDataDir(cmdlineOptions.dataDir),
		WithCacheSize(cmdlineOptions.cacheSize),
		WithGcInterval(
			time.Duration(cmdlineOptions.gcInterval) * time.Second, // #nosec G115
		),
	}
	if cmdlineOptions.promRegistry != nil {
		opts = append(opts, WithPromRegistry(cmdlineOptions.promRegistry))
	}
	cmdlineOptionsMutex.RUnlock()
	p, err := New(opts...)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return p
}
