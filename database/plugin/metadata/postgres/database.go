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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/blinklabs-io/projector/database/plugin/metadata/gormstore"
)

// Postgres error codes that report a transaction lost a race and can be
// retried as a whole
const (
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"
)

// ErrMissingDSN is returned by Start when no connection string is set
var ErrMissingDSN = errors.New("postgres: dsn is required")

// MetadataStorePostgres stores projections, checkpoints and undo
// bookkeeping in Postgres.
type MetadataStorePostgres struct {
	gormstore.Store
	logger *slog.Logger

	dsn      string
	schema   string
	maxConns int
}

// NewWithOptions creates a new database with options
func NewWithOptions(opts ...PostgresOptionFunc) (*MetadataStorePostgres, error) {
	db := &MetadataStorePostgres{}
	for _, opt := range opts {
		opt(db)
	}
	db.dsn = strings.TrimSpace(db.dsn)
	if db.schema == "" {
		db.schema = defaultSchema
	}
	if db.maxConns <= 0 {
		db.maxConns = defaultMaxConns
	}
	if db.logger == nil {
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return db, nil
}

// buildDSN returns the connection string with search_path pointing at the
// configured schema. An explicit search_path in the DSN wins.
func (d *MetadataStorePostgres) buildDSN() (string, error) {
	if d.dsn == "" {
		return "", ErrMissingDSN
	}
	if strings.HasPrefix(d.dsn, "postgres://") ||
		strings.HasPrefix(d.dsn, "postgresql://") {
		u, err := url.Parse(d.dsn)
		if err != nil {
			return "", fmt.Errorf("postgres: parse dsn: %w", err)
		}
		q := u.Query()
		if q.Get("search_path") == "" {
			q.Set("search_path", d.schema)
		}
		u.RawQuery = q.Encode()
		return u.String(), nil
	}
	if strings.Contains(d.dsn, "search_path=") {
		return d.dsn, nil
	}
	return d.dsn + " search_path=" + d.schema, nil
}

// Start implements the plugin.Plugin interface
func (d *MetadataStorePostgres) Start() error {
	dsn, err := d.buildDSN()
	if err != nil {
		return err
	}
	metadataDb, err := gorm.Open(
		postgres.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
			PrepareStmt:            true,
		},
	)
	if err != nil {
		return err
	}
	// The schema must exist before the tables are migrated into it
	if err := metadataDb.Exec(
		"CREATE SCHEMA IF NOT EXISTS " + pq(d.schema),
	).Error; err != nil {
		return fmt.Errorf("postgres: create schema: %w", err)
	}
	d.logger.Info(
		"connected to postgres metadata store",
		"component", "database",
		"schema", d.schema,
		"max_conns", d.maxConns,
	)
	sqlDB, err := metadataDb.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(d.maxConns)
	sqlDB.SetMaxIdleConns(d.maxConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return d.Init(metadataDb, d.logger)
}

// pq quotes a Postgres identifier
func pq(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// SupportsRowLocking reports true: checkpoint reads use SELECT ... FOR UPDATE
func (d *MetadataStorePostgres) SupportsRowLocking() bool {
	return true
}

// IsTransient reports serialization failures, deadlocks and errors pgx
// knows happened before anything was sent to the server
func (d *MetadataStorePostgres) IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeSerializationFailure, pgCodeDeadlockDetected:
			return true
		}
		return false
	}
	return pgconn.SafeToRetry(err)
}
