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

package database

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/projector/database/plugin"
	"github.com/blinklabs-io/projector/database/plugin/blob"
	"github.com/blinklabs-io/projector/database/plugin/blob/badger"
	"github.com/blinklabs-io/projector/database/plugin/blob/gcs"
	"github.com/blinklabs-io/projector/database/plugin/metadata"
)

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
)

// Config selects the storage plugins. Plugin specific options are set
// through the plugin registry before calling New.
type Config struct {
	Logger         *slog.Logger
	PromRegistry   prometheus.Registerer
	DataDir        string
	BlobPlugin     string
	MetadataPlugin string
}

// Database combines a relational metadata store holding the projected
// entities with a blob store holding undo records
type Database struct {
	logger      *slog.Logger
	blob        blob.BlobStore
	metadata    metadata.MetadataStore
	undoEncoder *zstd.Encoder
	undoDecoder *zstd.Decoder
	dataDir     string
}

func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

func (d *Database) DataDir() string {
	return d.dataDir
}

func (d *Database) Logger() *slog.Logger {
	return d.logger
}

func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// DropSchema removes every projected entity and undo record
func (d *Database) DropSchema() error {
	d.logger.Warn(
		"dropping database schema",
		"component", "database",
	)
	if err := d.metadata.DropSchema(); err != nil {
		return fmt.Errorf("drop metadata schema: %w", err)
	}
	if err := d.blob.DropAll(); err != nil {
		return fmt.Errorf("drop blob data: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	var err error
	// Close metadata
	metadataErr := d.Metadata().Close()
	err = errors.Join(err, metadataErr)
	// Close blob
	blobErr := d.Blob().Close()
	err = errors.Join(err, blobErr)
	// Release compression resources
	if d.undoEncoder != nil {
		err = errors.Join(err, d.undoEncoder.Close())
	}
	if d.undoDecoder != nil {
		d.undoDecoder.Close()
	}
	return err
}

func (d *Database) init() error {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	encoder, err := zstd.NewWriter(
		nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	d.undoEncoder = encoder
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	d.undoDecoder = decoder
	// Check commit timestamp
	if err := d.checkCommitTimestamp(); err != nil {
		return err
	}
	return nil
}

// New starts the configured storage plugins and checks that both stores
// reflect the same last commit
func New(config *Config) (*Database, error) {
	if config == nil {
		config = &Config{}
	}
	blobPlugin := config.BlobPlugin
	if blobPlugin == "" {
		blobPlugin = DefaultBlobPlugin
	}
	metadataPlugin := config.MetadataPlugin
	if metadataPlugin == "" {
		metadataPlugin = DefaultMetadataPlugin
	}
	if config.DataDir != "" {
		if err := plugin.SetPluginOption(
			plugin.PluginTypeMetadata,
			metadataPlugin,
			"data-dir",
			config.DataDir,
		); err != nil {
			return nil, err
		}
		if err := plugin.SetPluginOption(
			plugin.PluginTypeBlob,
			blobPlugin,
			"data-dir",
			config.DataDir,
		); err != nil {
			return nil, err
		}
	}
	if config.PromRegistry != nil {
		switch blobPlugin {
		case "badger":
			badger.SetPromRegistry(config.PromRegistry)
		case "gcs":
			gcs.SetPromRegistry(config.PromRegistry)
		}
	}
	metadataDb, err := metadata.New(metadataPlugin)
	if err != nil {
		return nil, err
	}
	blobDb, err := blob.New(blobPlugin)
	if err != nil {
		_ = metadataDb.Close()
		return nil, err
	}
	db := &Database{
		logger:   config.Logger,
		blob:     blobDb,
		metadata: metadataDb,
		dataDir:  config.DataDir,
	}
	if err := db.init(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	return db, nil
}

// NewFromStores wraps already started stores
func NewFromStores(
	logger *slog.Logger,
	metadataStore metadata.MetadataStore,
	blobStore blob.BlobStore,
) (*Database, error) {
	if metadataStore == nil || blobStore == nil {
		return nil, errors.New("metadata and blob stores are required")
	}
	db := &Database{
		logger:   logger,
		blob:     blobStore,
		metadata: metadataStore,
	}
	if err := db.init(); err != nil {
		return db, err
	}
	return db, nil
}
