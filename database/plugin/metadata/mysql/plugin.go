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

package mysql

import (
	"sync"

	"github.com/blinklabs-io/projector/database/plugin"
)

const (
	defaultDatabase = "projector"
	defaultMaxConns = 4
)

var (
	cmdlineOptions struct {
		dsn      string
		maxConns uint64
	}
	cmdlineOptionsMutex sync.RWMutex
)

func initCmdlineOptions() {
	cmdlineOptionsMutex.Lock()
	defer cmdlineOptionsMutex.Unlock()
	cmdlineOptions.dsn = ""
	cmdlineOptions.maxConns = defaultMaxConns
}

func init() {
	initCmdlineOptions()
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "mysql",
			Description:        "MySQL database for projections and undo bookkeeping",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "dsn",
					Type:         plugin.PluginOptionTypeString,
					Description:  "DSN such as user:pass@tcp(host:3306)/projector (required)",
					DefaultValue: "",
					Dest:         &(cmdlineOptions.dsn),
				},
				{
					Name:         "max-conns",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Connection pool size; flushes use a single write transaction",
					DefaultValue: uint64(defaultMaxConns),
					Dest:         &(cmdlineOptions.maxConns),
				},
			},
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	opts := []MysqlOptionFunc{
		WithDSN(cmdlineOptions.dsn),
		WithMaxConns(int(cmdlineOptions.maxConns)), // #nosec G115
	}
	cmdlineOptionsMutex.RUnlock()
	p, err := NewWithOptions(opts...)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return p
}
