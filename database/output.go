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

	"github.com/blinklabs-io/projector/chainsync"
	"github.com/blinklabs-io/projector/database/models"
	"github.com/blinklabs-io/projector/database/types"
)

// AddOutputs stores the outputs produced at a slot
func (d *Database) AddOutputs(
	outputs []chainsync.Output,
	slot uint64,
	txn *Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	if len(outputs) == 0 {
		return nil
	}
	tmpOutputs := make([]models.Output, 0, len(outputs))
	var tmpAssets []models.OutputAsset
	for _, output := range outputs {
		tmpOutputs = append(
			tmpOutputs,
			models.Output{
				TxId:       output.Ref.TxHash,
				OutputIdx:  output.Ref.Index,
				Address:    output.Address,
				PaymentKey: output.PaymentKey,
				StakingKey: output.StakeKey,
				Amount:     types.Uint64(output.Lovelace),
				AddedSlot:  slot,
			},
		)
		for _, asset := range output.Assets {
			tmpAssets = append(
				tmpAssets,
				models.OutputAsset{
					TxId:      output.Ref.TxHash,
					OutputIdx: output.Ref.Index,
					PolicyId:  asset.PolicyId,
					Name:      asset.Name,
					Amount:    types.Uint64(asset.Amount),
				},
			)
		}
	}
	return d.metadata.AddOutputs(tmpOutputs, tmpAssets, txn.Metadata())
}

// SpendOutputs marks outputs as spent. spentBy holds the spending
// transaction hash for each ref.
func (d *Database) SpendOutputs(
	refs []chainsync.OutputRef,
	spentBy [][]byte,
	slot uint64,
	txn *Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	if len(spentBy) != len(refs) {
		return errors.New("spending transaction count does not match inputs")
	}
	for idx, ref := range refs {
		if err := d.metadata.SpendOutput(
			ref.TxHash,
			ref.Index,
			spentBy[idx],
			slot,
			txn.Metadata(),
		); err != nil {
			return err
		}
	}
	return nil
}

// UnspendOutputs clears the spent marker set by SpendOutputs
func (d *Database) UnspendOutputs(
	refs []chainsync.OutputRef,
	txn *Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	for _, ref := range refs {
		if err := d.metadata.UnspendOutput(
			ref.TxHash,
			ref.Index,
			txn.Metadata(),
		); err != nil {
			return err
		}
	}
	return nil
}

// DeleteOutputs removes outputs and their assets
func (d *Database) DeleteOutputs(
	refs []chainsync.OutputRef,
	txn *Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	for _, ref := range refs {
		if err := d.metadata.DeleteOutput(
			ref.TxHash,
			ref.Index,
			txn.Metadata(),
		); err != nil {
			return err
		}
	}
	return nil
}

func (d *Database) GetOutput(
	ref chainsync.OutputRef,
	txn *Txn,
) (models.Output, error) {
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, false)
		defer txn.Release()
	}
	return d.metadata.GetOutput(ref.TxHash, ref.Index, txn.Metadata())
}

func (d *Database) GetOutputAssets(
	ref chainsync.OutputRef,
	txn *Txn,
) ([]models.OutputAsset, error) {
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, false)
		defer txn.Release()
	}
	return d.metadata.GetOutputAssets(ref.TxHash, ref.Index, txn.Metadata())
}

func (d *Database) CountOutputs(unspentOnly bool, txn *Txn) (int64, error) {
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, false)
		defer txn.Release()
	}
	return d.metadata.CountOutputs(unspentOnly, txn.Metadata())
}
