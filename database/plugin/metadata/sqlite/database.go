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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/blinklabs-io/projector/database/plugin/metadata/gormstore"
)

const (
	defaultMemoryName  = "projector"
	defaultBusyTimeout = 5 * time.Second
	dbFileName         = "metadata.sqlite"
)

// MetadataStoreSqlite is a SQLite-based implementation of the metadata store
type MetadataStoreSqlite struct {
	gormstore.Store
	logger      *slog.Logger
	timerVacuum *time.Timer
	dataDir     string
	memoryName  string
	busyTimeout time.Duration
	noVacuum    bool
	timerMutex  sync.Mutex
	vacuumWG    sync.WaitGroup
	closed      bool
}

// New creates a SQLite metadata store. Uses in-memory database if dataDir is empty.
func New(
	dataDir string,
	logger *slog.Logger,
) (*MetadataStoreSqlite, error) {
	return NewWithOptions(
		WithDataDir(dataDir),
		WithLogger(logger),
	)
}

// NewWithOptions creates a new database with options
func NewWithOptions(opts ...SqliteOptionFunc) (*MetadataStoreSqlite, error) {
	db := &MetadataStoreSqlite{}
	for _, opt := range opts {
		opt(db)
	}
	if db.memoryName == "" {
		db.memoryName = defaultMemoryName
	}
	if db.busyTimeout <= 0 {
		db.busyTimeout = defaultBusyTimeout
	}
	if db.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return db, nil
}

// Start implements the plugin.Plugin interface
func (d *MetadataStoreSqlite) Start() error {
	var dsn string
	if d.dataDir == "" {
		// Use in-memory database when no data directory is specified, useful for testing
		// cache=shared allows multiple connections to share the same in-memory database
		dsn = fmt.Sprintf(
			"file:%s?mode=memory&cache=shared",
			d.memoryName,
		)
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(d.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to read data dir: %w", err)
			}
			// Create data directory
			if err := os.MkdirAll(d.dataDir, fs.ModePerm); err != nil {
				return fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		dsn = d.fileDSN()
	}
	metadataDb, err := gorm.Open(
		sqlite.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		return err
	}
	if d.dataDir == "" {
		// A single connection keeps the in-memory database alive and
		// serializes writers
		sqlDB, err := metadataDb.DB()
		if err != nil {
			return err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := d.Init(metadataDb, d.logger); err != nil {
		return err
	}
	d.logger.Info(
		"opened sqlite metadata store",
		"component", "database",
		"path", d.dataDir,
	)
	// Schedule daily database vacuum to free unused space
	d.scheduleDailyVacuum()
	return nil
}

// fileDSN opens the on-disk database in WAL mode with the configured busy
// timeout
func (d *MetadataStoreSqlite) fileDSN() string {
	return fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=cache_size(-50000)",
		filepath.Join(d.dataDir, dbFileName),
		d.busyTimeout.Milliseconds(),
	)
}

// Stop implements the plugin.Plugin interface
func (d *MetadataStoreSqlite) Stop() error {
	return d.Close()
}

// Close shuts down the database connection and stops background processes
func (d *MetadataStoreSqlite) Close() error {
	d.timerMutex.Lock()
	d.closed = true
	if d.timerVacuum != nil {
		d.timerVacuum.Stop()
		d.timerVacuum = nil
	}
	d.timerMutex.Unlock()
	// Wait for any in-flight vacuum operations to complete
	d.vacuumWG.Wait()
	return d.Store.Close()
}

// SupportsRowLocking reports false: SQLite has no SELECT ... FOR UPDATE and
// serializes writers at the database level instead
func (d *MetadataStoreSqlite) SupportsRowLocking() bool {
	return false
}

// IsTransient reports whether err is a busy or locked database error that
// succeeds on retry
func (d *MetadataStoreSqlite) IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

func (d *MetadataStoreSqlite) runVacuum() error {
	d.timerMutex.Lock()
	if d.dataDir == "" || d.closed {
		d.timerMutex.Unlock()
		return nil
	}
	// Track this vacuum operation while we know the store is open
	d.vacuumWG.Add(1)
	d.timerMutex.Unlock()
	defer d.vacuumWG.Done()

	if result := d.DB().Exec("VACUUM"); result.Error != nil {
		return result.Error
	}
	return nil
}

// scheduleDailyVacuum schedules a daily vacuum operation
func (d *MetadataStoreSqlite) scheduleDailyVacuum() {
	d.timerMutex.Lock()
	defer d.timerMutex.Unlock()
	if d.closed || d.dataDir == "" || d.noVacuum {
		return
	}
	if d.timerVacuum != nil {
		d.timerVacuum.Stop()
	}
	daily := time.Duration(24) * time.Hour
	f := func() {
		d.logger.Debug(
			"running vacuum on sqlite metadata database",
		)
		// schedule next run
		defer d.scheduleDailyVacuum()
		if err := d.runVacuum(); err != nil {
			d.logger.Error(
				"failed to free unused space in metadata store",
				"component", "database",
				"error", err,
			)
		}
	}
	d.timerVacuum = time.AfterFunc(daily, f)
}
