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

package gormstore

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blinklabs-io/projector/database/models"
	"github.com/blinklabs-io/projector/database/types"
)

const outputBatchSize = 500

// AddOutputs inserts outputs and their assets. Rows that already exist for
// the same natural key are left untouched.
func (s *Store) AddOutputs(
	outputs []models.Output,
	assets []models.OutputAsset,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	if len(outputs) > 0 {
		result := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tx_id"},
				{Name: "output_idx"},
			},
			DoNothing: true,
		}).CreateInBatches(&outputs, outputBatchSize)
		if result.Error != nil {
			return result.Error
		}
	}
	if len(assets) > 0 {
		result := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tx_id"},
				{Name: "output_idx"},
				{Name: "policy_id"},
				{Name: "name"},
			},
			DoNothing: true,
		}).CreateInBatches(&assets, outputBatchSize)
		if result.Error != nil {
			return result.Error
		}
	}
	return nil
}

// SpendOutput marks an output as spent. Outputs unknown to the store were
// produced before projection started and are ignored.
func (s *Store) SpendOutput(
	txId []byte,
	outputIdx uint32,
	spentAtTxId []byte,
	slot uint64,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.Output{}).
		Where("tx_id = ? AND output_idx = ?", txId, outputIdx).
		Updates(map[string]any{
			"spent_slot":     slot,
			"spent_at_tx_id": spentAtTxId,
		})
	return result.Error
}

// UnspendOutput clears the spent marker of an output
func (s *Store) UnspendOutput(
	txId []byte,
	outputIdx uint32,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.Output{}).
		Where("tx_id = ? AND output_idx = ?", txId, outputIdx).
		Updates(map[string]any{
			"spent_slot":     0,
			"spent_at_tx_id": nil,
		})
	return result.Error
}

// DeleteOutput removes an output and the assets it holds
func (s *Store) DeleteOutput(
	txId []byte,
	outputIdx uint32,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Where("tx_id = ? AND output_idx = ?", txId, outputIdx).
		Delete(&models.OutputAsset{})
	if result.Error != nil {
		return result.Error
	}
	result = db.Where("tx_id = ? AND output_idx = ?", txId, outputIdx).
		Delete(&models.Output{})
	return result.Error
}

func (s *Store) GetOutput(
	txId []byte,
	outputIdx uint32,
	txn types.Txn,
) (models.Output, error) {
	ret := models.Output{}
	db, err := s.resolveDB(txn)
	if err != nil {
		return ret, err
	}
	result := db.Where("tx_id = ? AND output_idx = ?", txId, outputIdx).
		First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ret, models.ErrOutputNotFound
		}
		return ret, result.Error
	}
	return ret, nil
}

// GetOutputAssets returns the assets held by an output
func (s *Store) GetOutputAssets(
	txId []byte,
	outputIdx uint32,
	txn types.Txn,
) ([]models.OutputAsset, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.OutputAsset
	result := db.Where("tx_id = ? AND output_idx = ?", txId, outputIdx).
		Order("id").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// CountOutputs returns the number of outputs, optionally only unspent ones
func (s *Store) CountOutputs(unspentOnly bool, txn types.Txn) (int64, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	query := db.Model(&models.Output{})
	if unspentOnly {
		query = query.Where("spent_slot = 0")
	}
	var ret int64
	if result := query.Count(&ret); result.Error != nil {
		return 0, result.Error
	}
	return ret, nil
}
