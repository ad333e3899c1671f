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

package postgres

import (
	"log/slog"
)

type PostgresOptionFunc func(*MetadataStorePostgres)

func WithLogger(logger *slog.Logger) PostgresOptionFunc {
	return func(m *MetadataStorePostgres) {
		m.logger = logger
	}
}

// WithDSN sets the connection string, either libpq key=value pairs or a
// postgres:// URL
func WithDSN(dsn string) PostgresOptionFunc {
	return func(m *MetadataStorePostgres) {
		m.dsn = dsn
	}
}

// WithSchema sets the schema that holds the projection tables, checkpoints
// and undo bookkeeping
func WithSchema(schema string) PostgresOptionFunc {
	return func(m *MetadataStorePostgres) {
		m.schema = schema
	}
}

// WithMaxConns caps the connection pool
func WithMaxConns(maxConns int) PostgresOptionFunc {
	return func(m *MetadataStorePostgres) {
		m.maxConns = maxConns
	}
}
