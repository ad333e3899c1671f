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
	"bytes"
	"errors"
	"fmt"

	"github.com/blinklabs-io/projector/database/models"
	"github.com/blinklabs-io/projector/database/types"
)

type CommitTimestampError struct {
	MetadataTimestamp int64
	BlobTimestamp     int64
}

func (e CommitTimestampError) Error() string {
	return fmt.Sprintf(
		"commit timestamp mismatch: %d (metadata) != %d (blob)",
		e.MetadataTimestamp,
		e.BlobTimestamp,
	)
}

func (d *Database) checkCommitTimestamp() error {
	// Get value from metadata
	metadataTimestamp, metadataErr := d.Metadata().GetCommitTimestamp()
	if metadataErr != nil {
		return fmt.Errorf(
			"failed to get metadata timestamp from plugin: %w",
			metadataErr,
		)
	}
	// Get value from blob
	blobTimestamp, blobErr := d.Blob().GetCommitTimestamp()
	if blobErr != nil {
		if !errors.Is(blobErr, types.ErrBlobKeyNotFound) {
			return fmt.Errorf(
				"failed to get blob timestamp from plugin: %w",
				blobErr,
			)
		}
		blobTimestamp = 0
	}
	// Compare values
	switch {
	case blobTimestamp == metadataTimestamp:
		return nil
	case blobTimestamp > metadataTimestamp:
		// The blob store committed but the metadata store did not. The only
		// blob writes that can outlive their metadata are undo records.
		d.logger.Warn(
			"blob store is ahead of metadata store, removing orphaned undo records",
			"component", "database",
			"metadata_timestamp", metadataTimestamp,
			"blob_timestamp", blobTimestamp,
		)
		return d.removeOrphanedUndoRecords()
	default:
		return CommitTimestampError{
			MetadataTimestamp: metadataTimestamp,
			BlobTimestamp:     blobTimestamp,
		}
	}
}

func (d *Database) updateCommitTimestamp(txn *Txn, timestamp int64) error {
	// Update metadata
	if err := d.Metadata().SetCommitTimestamp(timestamp, txn.Metadata()); err != nil {
		return err
	}
	// Update blob
	if err := d.Blob().SetCommitTimestamp(timestamp, txn.Blob()); err != nil {
		return err
	}
	return nil
}

// removeOrphanedUndoRecords deletes undo records without a matching
// projected block row. Committing the cleanup writes a fresh commit
// timestamp to both stores.
func (d *Database) removeOrphanedUndoRecords() error {
	txn := d.Transaction(true)
	return txn.Do(func(txn *Txn) error {
		keys, err := d.Blob().Keys(
			txn.Blob(),
			[]byte(types.UndoBlobKeyPrefix),
		)
		if err != nil {
			return err
		}
		for _, key := range keys {
			name, hash, ok := parseUndoBlobKey(key)
			if !ok {
				continue
			}
			_, err := d.Metadata().GetProjectedBlock(
				name,
				hash,
				txn.Metadata(),
			)
			if err == nil {
				continue
			}
			if !errors.Is(err, models.ErrProjectedBlockNotFound) {
				return err
			}
			d.logger.Debug(
				"removing orphaned undo record",
				"component", "database",
				"checkpoint", name,
				"hash", fmt.Sprintf("%x", hash),
			)
			if err := d.Blob().Delete(txn.Blob(), key); err != nil {
				return err
			}
		}
		return nil
	})
}

// parseUndoBlobKey splits an undo record key into run name and block hash
func parseUndoBlobKey(key []byte) (string, []byte, bool) {
	rest, ok := bytes.CutPrefix(key, []byte(types.UndoBlobKeyPrefix))
	if !ok {
		return "", nil, false
	}
	name, hash, ok := bytes.Cut(
		rest,
		[]byte(types.ProjectionBlobKeySeparator),
	)
	if !ok || len(hash) == 0 {
		return "", nil, false
	}
	return string(name), hash, true
}
