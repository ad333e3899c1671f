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
	"math/big"

	"github.com/blinklabs-io/projector/chainsync"
	"github.com/blinklabs-io/projector/database/models"
	"github.com/blinklabs-io/projector/database/types"
)

// ApplyMint adds signed supply changes to the asset inventory. When undo is
// set, assets first minted at or after slot whose supply returns to zero
// are removed.
func (d *Database) ApplyMint(
	entries []chainsync.MintEntry,
	slot uint64,
	undo bool,
	txn *Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	for _, entry := range entries {
		asset, err := d.metadata.GetAsset(
			entry.PolicyId,
			entry.Name,
			txn.Metadata(),
		)
		if err != nil {
			if !errors.Is(err, models.ErrAssetNotFound) {
				return err
			}
			asset = models.NewAsset(entry.PolicyId, entry.Name, slot)
		}
		supply := new(big.Int)
		if asset.Supply.Int != nil {
			supply.Set(asset.Supply.Int)
		}
		supply.Add(supply, big.NewInt(entry.Amount))
		if undo && supply.Sign() == 0 && asset.FirstMintSlot >= slot {
			if asset.ID == 0 {
				continue
			}
			if err := d.metadata.DeleteAsset(
				entry.PolicyId,
				entry.Name,
				txn.Metadata(),
			); err != nil {
				return err
			}
			continue
		}
		asset.Supply = types.Int{Int: supply}
		if err := d.metadata.SetAsset(&asset, txn.Metadata()); err != nil {
			return err
		}
	}
	return nil
}

func (d *Database) GetAsset(
	policyId []byte,
	name []byte,
	txn *Txn,
) (models.Asset, error) {
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, false)
		defer txn.Release()
	}
	return d.metadata.GetAsset(policyId, name, txn.Metadata())
}

func (d *Database) GetAssetsByPolicy(
	policyId []byte,
	txn *Txn,
) ([]models.Asset, error) {
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, false)
		defer txn.Release()
	}
	return d.metadata.GetAssetsByPolicy(policyId, txn.Metadata())
}

func (d *Database) CountAssets(txn *Txn) (int64, error) {
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, false)
		defer txn.Release()
	}
	return d.metadata.CountAssets(txn.Metadata())
}
