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
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blinklabs-io/projector/chainsync"
	"github.com/blinklabs-io/projector/database/models"
	"github.com/blinklabs-io/projector/database/types"
)

// AddUndoRecord records a block projected by the named run along with the
// compressed block needed to invert its effects later
func (d *Database) AddUndoRecord(
	name string,
	block *chainsync.Block,
	txn *Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	if txn.Blob() == nil {
		return types.ErrNoStoreAvailable
	}
	data, err := chainsync.EncodeBlock(block)
	if err != nil {
		return fmt.Errorf("encode undo record: %w", err)
	}
	tmpBlock := models.ProjectedBlock{
		Name:   name,
		Hash:   block.Hash,
		Slot:   block.Slot,
		Number: block.Number,
	}
	if err := d.metadata.AddProjectedBlock(&tmpBlock, txn.Metadata()); err != nil {
		return err
	}
	return d.blob.Set(
		txn.Blob(),
		types.UndoBlobKey(name, block.Hash),
		d.undoEncoder.EncodeAll(data, nil),
	)
}

// GetUndoRecord returns the block stored for a projected block
func (d *Database) GetUndoRecord(
	name string,
	hash []byte,
	txn *Txn,
) (*chainsync.Block, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	if txn.Blob() == nil {
		return nil, types.ErrNoStoreAvailable
	}
	compressed, err := d.blob.Get(txn.Blob(), types.UndoBlobKey(name, hash))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, fmt.Errorf("%w: %x", ErrUndoNotFound, hash)
		}
		return nil, err
	}
	data, err := d.undoDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress undo record: %w", err)
	}
	block, err := chainsync.DecodeBlock(data)
	if err != nil {
		return nil, fmt.Errorf("decode undo record: %w", err)
	}
	return block, nil
}

// GetProjectedBlock returns the row recorded for a projected block
func (d *Database) GetProjectedBlock(
	name string,
	hash []byte,
	txn *Txn,
) (models.ProjectedBlock, error) {
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, false)
		defer txn.Release()
	}
	return d.metadata.GetProjectedBlock(name, hash, txn.Metadata())
}

// GetProjectedBlocks returns every block of the named run, newest first
func (d *Database) GetProjectedBlocks(
	name string,
	txn *Txn,
) ([]models.ProjectedBlock, error) {
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, false)
		defer txn.Release()
	}
	return d.metadata.GetProjectedBlocks(name, txn.Metadata())
}

// GetProjectedBlocksAfter returns the blocks of the named run above slot,
// newest first
func (d *Database) GetProjectedBlocksAfter(
	name string,
	slot uint64,
	txn *Txn,
) ([]models.ProjectedBlock, error) {
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, false)
		defer txn.Release()
	}
	return d.metadata.GetProjectedBlocksAfter(name, slot, txn.Metadata())
}

// DeleteUndoRecord removes a projected block row and its undo record
func (d *Database) DeleteUndoRecord(
	name string,
	hash []byte,
	txn *Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	if txn.Blob() == nil {
		return types.ErrNoStoreAvailable
	}
	if err := d.metadata.DeleteProjectedBlock(name, hash, txn.Metadata()); err != nil {
		return err
	}
	return d.blob.Delete(txn.Blob(), types.UndoBlobKey(name, hash))
}

// PruneUndoRecords removes the undo records of the named run beyond the
// newest depth blocks and returns how many were removed
func (d *Database) PruneUndoRecords(
	name string,
	depth int,
	txn *Txn,
) (int, error) {
	if txn == nil {
		return 0, types.ErrNilTxn
	}
	if depth < 1 {
		return 0, fmt.Errorf("invalid undo depth: %d", depth)
	}
	blocks, err := d.metadata.GetProjectedBlocksBeyondDepth(
		name,
		depth,
		txn.Metadata(),
	)
	if err != nil {
		return 0, err
	}
	if len(blocks) == 0 {
		return 0, nil
	}
	horizon, _, err := d.GetUndoHorizon(name, txn)
	if err != nil {
		return 0, err
	}
	for _, block := range blocks {
		if err := d.DeleteUndoRecord(name, block.Hash, txn); err != nil {
			return 0, err
		}
		horizon = max(horizon, block.Slot)
	}
	if err := d.blob.Set(
		txn.Blob(),
		types.UndoHorizonBlobKey(name),
		binary.BigEndian.AppendUint64(nil, horizon),
	); err != nil {
		return 0, err
	}
	return len(blocks), nil
}

// GetUndoHorizon returns the newest slot of the named run whose undo record
// was pruned. Rollbacks to or before it cannot be undone. The second return
// value is false when nothing was pruned yet.
func (d *Database) GetUndoHorizon(
	name string,
	txn *Txn,
) (uint64, bool, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	if txn.Blob() == nil {
		return 0, false, types.ErrNoStoreAvailable
	}
	val, err := d.blob.Get(txn.Blob(), types.UndoHorizonBlobKey(name))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if len(val) != 8 {
		return 0, false, fmt.Errorf("invalid undo horizon value: %x", val)
	}
	return binary.BigEndian.Uint64(val), true, nil
}
