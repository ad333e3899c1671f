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
	"github.com/blinklabs-io/projector/chainsync"
	"github.com/blinklabs-io/projector/database/models"
	"github.com/blinklabs-io/projector/database/types"
)

func credentialBytes(creds []chainsync.Credential) [][]byte {
	ret := make([][]byte, 0, len(creds))
	for _, cred := range creds {
		ret = append(ret, cred.Bytes())
	}
	return ret
}

// AddStakeKeys adds credentials to the active stake-key set
func (d *Database) AddStakeKeys(
	stakeKeys []chainsync.Credential,
	slot uint64,
	txn *Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	return d.metadata.AddStakeKeys(
		credentialBytes(stakeKeys),
		slot,
		txn.Metadata(),
	)
}

// DeleteStakeKeys removes credentials from the active stake-key set
func (d *Database) DeleteStakeKeys(
	stakeKeys []chainsync.Credential,
	txn *Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	return d.metadata.DeleteStakeKeys(
		credentialBytes(stakeKeys),
		txn.Metadata(),
	)
}

func (d *Database) GetStakeKeys(txn *Txn) ([]models.StakeKey, error) {
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, false)
		defer txn.Release()
	}
	return d.metadata.GetStakeKeys(txn.Metadata())
}

func (d *Database) CountStakeKeys(txn *Txn) (int64, error) {
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, false)
		defer txn.Release()
	}
	return d.metadata.CountStakeKeys(txn.Metadata())
}
