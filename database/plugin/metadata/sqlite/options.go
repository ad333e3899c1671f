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
	"log/slog"
	"time"
)

type SqliteOptionFunc func(*MetadataStoreSqlite)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) SqliteOptionFunc {
	return func(m *MetadataStoreSqlite) {
		m.logger = logger
	}
}

// WithDataDir specifies the data directory to use for storage
func WithDataDir(dataDir string) SqliteOptionFunc {
	return func(m *MetadataStoreSqlite) {
		m.dataDir = dataDir
	}
}

// WithMemoryName names the shared in-memory database used when no data
// directory is set. Stores opened with the same name see the same data.
func WithMemoryName(name string) SqliteOptionFunc {
	return func(m *MetadataStoreSqlite) {
		m.memoryName = name
	}
}

// WithBusyTimeout sets how long a writer waits on a locked database. The
// busy error that follows is retried by the flush loop.
func WithBusyTimeout(timeout time.Duration) SqliteOptionFunc {
	return func(m *MetadataStoreSqlite) {
		m.busyTimeout = timeout
	}
}

// WithVacuum toggles the daily vacuum
func WithVacuum(enabled bool) SqliteOptionFunc {
	return func(m *MetadataStoreSqlite) {
		m.noVacuum = !enabled
	}
}
