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
	"time"

	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"

	"github.com/blinklabs-io/projector/database/models"
	"github.com/blinklabs-io/projector/database/types"
)

// GetCheckpoint returns the committed checkpoint of the named run
func (d *Database) GetCheckpoint(
	name string,
	txn *Txn,
) (models.Checkpoint, error) {
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, false)
		defer txn.Release()
	}
	return d.metadata.GetCheckpoint(name, false, txn.Metadata())
}

// LockCheckpoint reads the checkpoint of the named run, holding a row lock
// until the transaction ends on stores that support one. Stores without row
// locks serialize writers instead.
func (d *Database) LockCheckpoint(
	name string,
	txn *Txn,
) (models.Checkpoint, error) {
	if txn == nil {
		return models.Checkpoint{}, types.ErrNilTxn
	}
	return d.metadata.GetCheckpoint(
		name,
		d.metadata.SupportsRowLocking(),
		txn.Metadata(),
	)
}

// SetCheckpoint moves the checkpoint of the named run to point
func (d *Database) SetCheckpoint(
	name string,
	point ocommon.Point,
	blockNumber uint64,
	txn *Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	hash := point.Hash
	if hash == nil {
		hash = []byte{}
	}
	tmpCheckpoint := models.Checkpoint{
		Name:        name,
		Slot:        point.Slot,
		Hash:        hash,
		BlockNumber: blockNumber,
		UpdatedAt:   time.Now(),
	}
	return d.metadata.SetCheckpoint(&tmpCheckpoint, txn.Metadata())
}

// GetCheckpoints returns the checkpoint of every run
func (d *Database) GetCheckpoints(txn *Txn) ([]models.Checkpoint, error) {
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, false)
		defer txn.Release()
	}
	return d.metadata.GetCheckpoints(txn.Metadata())
}
