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

package sqlite

import (
	"sync"
	"time"

	"github.com/blinklabs-io/projector/database/plugin"
)

var (
	cmdlineOptions struct {
		dataDir     string
		busyTimeout uint64
		vacuum      bool
	}
	cmdlineOptionsMutex sync.RWMutex
)

func initCmdlineOptions() {
	cmdlineOptionsMutex.Lock()
	defer cmdlineOptionsMutex.Unlock()
	cmdlineOptions.dataDir = ".projector"
	cmdlineOptions.busyTimeout = uint64(defaultBusyTimeout.Milliseconds())
	cmdlineOptions.vacuum = true
}

func init() {
	initCmdlineOptions()
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "sqlite",
			Description:        "SQLite file holding projections and undo bookkeeping",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "data-dir",
					Type:         plugin.PluginOptionTypeString,
					Description:  "Directory of " + dbFileName + ", empty for a shared in-memory database",
					DefaultValue: ".projector",
					Dest:         &(cmdlineOptions.dataDir),
				},
				{
					Name:         "busy-timeout",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Milliseconds a flush waits on a locked database before failing with a retryable error",
					DefaultValue: uint64(defaultBusyTimeout.Milliseconds()),
					Dest:         &(cmdlineOptions.busyTimeout),
				},
				{
					Name:         "vacuum",
					Type:         plugin.PluginOptionTypeBool,
					Description:  "Vacuum daily to reclaim pages freed by undo pruning",
					DefaultValue: true,
					Dest:         &(cmdlineOptions.vacuum),
				},
			},
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	opts := []SqliteOptionFunc{
		WithDataDir(cmdlineOptions.dataDir),
		WithBusyTimeout(
			time.Duration(cmdlineOptions.busyTimeout) * time.Millisecond, // #nosec G115
		),
		WithVacuum(cmdlineOptions.vacuum),
	}
	cmdlineOptionsMutex.RUnlock()
	p, err := NewWithOptions(opts...)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return p
}
