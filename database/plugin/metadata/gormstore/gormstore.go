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

// Package gormstore holds the gorm plumbing shared by the relational
// metadata plugins. Each plugin embeds Store and supplies its own dialect
// connection and error classification.
package gormstore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/blinklabs-io/projector/database/models"
	"github.com/blinklabs-io/projector/database/types"
)

const (
	commitTimestampRowId = 1
)

// CommitTimestamp represents the table used to track the current commit timestamp
type CommitTimestamp struct {
	ID        uint `gorm:"primarykey"`
	Timestamp int64
}

func (CommitTimestamp) TableName() string {
	return "commit_timestamp"
}

// Store implements the dialect-independent parts of a metadata store
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Init takes ownership of an open gorm handle, installs the tracing plugin
// and creates the table schemas
func (s *Store) Init(db *gorm.DB, logger *slog.Logger) error {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s.logger = logger
	s.db = db
	// Configure tracing for GORM
	if err := s.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return err
	}
	return s.migrate()
}

func (s *Store) migrate() error {
	for _, model := range allModels() {
		s.logger.Debug(fmt.Sprintf("creating table: %#v", model))
		if err := s.db.AutoMigrate(model); err != nil {
			return err
		}
	}
	return nil
}

func allModels() []any {
	return append([]any{&CommitTimestamp{}}, models.MigrateModels...)
}

// AutoMigrate wraps the gorm AutoMigrate
func (s *Store) AutoMigrate(dst ...any) error {
	return s.DB().AutoMigrate(dst...)
}

// DropSchema drops every projector table and creates them again empty
func (s *Store) DropSchema() error {
	if s.db == nil {
		return types.ErrNoStoreAvailable
	}
	tables := allModels()
	for _, model := range tables {
		s.logger.Debug(fmt.Sprintf("dropping table: %#v", model))
	}
	if err := s.db.Migrator().DropTable(tables...); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	return s.migrate()
}

// Close gets the database handle from our MetadataStore and closes it
func (s *Store) Close() error {
	// Guard against nil DB handle (e.g., if Start() failed or was never called)
	if s.db == nil {
		return nil
	}
	// get DB handle from gorm.DB
	db, err := s.DB().DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// Stop implements the plugin.Plugin interface
func (s *Store) Stop() error {
	return s.Close()
}

// DB returns the database handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction creates a gorm transaction
func (s *Store) Transaction() types.Txn {
	if s.db == nil {
		return types.NewFailedMetadataTxn(types.ErrNoStoreAvailable)
	}
	db := s.DB().Begin()
	if db.Error != nil {
		s.logger.Error(
			"failed to begin transaction",
			"error", db.Error,
		)
		return types.NewFailedMetadataTxn(db.Error)
	}
	return types.NewMetadataTxn(db)
}

func (s *Store) GetCommitTimestamp() (int64, error) {
	var tmpCommitTimestamp CommitTimestamp
	result := s.DB().First(&tmpCommitTimestamp)
	if result.Error != nil {
		// It's not an error if there's no records found
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return tmpCommitTimestamp.Timestamp, nil
}

func (s *Store) SetCommitTimestamp(timestamp int64, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	tmpCommitTimestamp := CommitTimestamp{
		ID:        commitTimestampRowId,
		Timestamp: timestamp,
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"timestamp"}),
	}).Create(&tmpCommitTimestamp)
	return result.Error
}

// resolveDB returns the transaction handle, or the base handle when no
// transaction is given
func (s *Store) resolveDB(txn types.Txn) (*gorm.DB, error) {
	if txn == nil {
		return s.DB(), nil
	}
	return types.MetadataTxnDB(txn)
}
