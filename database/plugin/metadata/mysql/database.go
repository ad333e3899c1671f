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
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/blinklabs-io/projector/database/plugin/metadata/gormstore"
)

// MySQL error numbers
const (
	mysqlErrUnknownDatabase  = 1049
	mysqlErrLockWaitTimeout  = 1205
	mysqlErrDeadlockDetected = 1213
)

// ErrMissingDSN is returned by Start when no DSN is set
var ErrMissingDSN = errors.New("mysql: dsn is required")

// MetadataStoreMysql stores projections, checkpoints and undo bookkeeping
// in MySQL.
type MetadataStoreMysql struct {
	gormstore.Store
	logger *slog.Logger

	dsn      string
	maxConns int
}

// NewWithOptions creates a new database with options
func NewWithOptions(opts ...MysqlOptionFunc) (*MetadataStoreMysql, error) {
	db := &MetadataStoreMysql{}
	for _, opt := range opts {
		opt(db)
	}
	db.dsn = strings.TrimSpace(db.dsn)
	if db.maxConns <= 0 {
		db.maxConns = defaultMaxConns
	}
	if db.logger == nil {
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return db, nil
}

// config parses the DSN. Times are always parsed and a DSN without a
// database uses the default one.
func (d *MetadataStoreMysql) config() (*mysql.Config, error) {
	if d.dsn == "" {
		return nil, ErrMissingDSN
	}
	cfg, err := mysql.ParseDSN(d.dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: parse dsn: %w", err)
	}
	cfg.ParseTime = true
	if cfg.DBName == "" {
		cfg.DBName = defaultDatabase
	}
	return cfg, nil
}

func openGorm(dsn string) (*gorm.DB, error) {
	return gorm.Open(
		gormmysql.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
			PrepareStmt:            true,
		},
	)
}

// Start implements the plugin.Plugin interface
func (d *MetadataStoreMysql) Start() error {
	cfg, err := d.config()
	if err != nil {
		return err
	}
	metadataDb, err := openGorm(cfg.FormatDSN())
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if !errors.As(err, &mysqlErr) ||
			mysqlErr.Number != mysqlErrUnknownDatabase {
			return err
		}
		if err := d.createDatabase(cfg); err != nil {
			return err
		}
		metadataDb, err = openGorm(cfg.FormatDSN())
		if err != nil {
			return err
		}
	}
	d.logger.Info(
		"connected to mysql metadata store",
		"component", "database",
		"addr", cfg.Addr,
		"database", cfg.DBName,
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

// createDatabase connects without a database selected and creates the one
// named in cfg
func (d *MetadataStoreMysql) createDatabase(cfg *mysql.Config) error {
	admin := cfg.Clone()
	admin.DBName = ""
	adminDb, err := openGorm(admin.FormatDSN())
	if err != nil {
		return err
	}
	sqlAdminDb, err := adminDb.DB()
	if err != nil {
		return err
	}
	defer sqlAdminDb.Close()
	if result := adminDb.Exec(
		"CREATE DATABASE IF NOT EXISTS " + quoteIdentifier(cfg.DBName),
	); result.Error != nil {
		return result.Error
	}
	d.logger.Info(
		"created mysql database",
		"component", "database",
		"database", cfg.DBName,
	)
	return nil
}

func quoteIdentifier(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// SupportsRowLocking reports true: checkpoint reads use SELECT ... FOR UPDATE
func (d *MetadataStoreMysql) SupportsRowLocking() bool {
	return true
}

// IsTransient reports deadlocks, lock wait timeouts and dropped connections
func (d *MetadataStoreMysql) IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlErrDeadlockDetected, mysqlErrLockWaitTimeout:
			return true
		}
		return false
	}
	return errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, driver.ErrBadConn)
}
