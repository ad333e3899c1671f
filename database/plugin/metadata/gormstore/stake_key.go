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
	"gorm.io/gorm/clause"

	"github.com/blinklabs-io/projector/database/models"
	"github.com/blinklabs-io/projector/database/types"
)

// AddStakeKeys adds keys to the active set. Keys that are already active are
// left untouched.
func (s *Store) AddStakeKeys(
	stakeKeys [][]byte,
	slot uint64,
	txn types.Txn,
) error {
	if len(stakeKeys) == 0 {
		return nil
	}
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	tmpKeys := make([]models.StakeKey, 0, len(stakeKeys))
	for _, stakeKey := range stakeKeys {
		tmpKeys = append(
			tmpKeys,
			models.StakeKey{
				StakingKey: stakeKey,
				AddedSlot:  slot,
			},
		)
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "staking_key"}},
		DoNothing: true,
	}).Create(&tmpKeys)
	return result.Error
}

// DeleteStakeKeys removes keys from the active set
func (s *Store) DeleteStakeKeys(stakeKeys [][]byte, txn types.Txn) error {
	if len(stakeKeys) == 0 {
		return nil
	}
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Where("staking_key IN ?", stakeKeys).
		Delete(&models.StakeKey{})
	return result.Error
}

// GetStakeKeys returns the active set in insertion order
func (s *Store) GetStakeKeys(txn types.Txn) ([]models.StakeKey, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.StakeKey
	if result := db.Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (s *Store) CountStakeKeys(txn types.Txn) (int64, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	var ret int64
	if result := db.Model(&models.StakeKey{}).Count(&ret); result.Error != nil {
		return 0, result.Error
	}
	return ret, nil
}
