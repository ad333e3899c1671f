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

	"github.com/blinklabs-io/projector/database/models"
	"github.com/blinklabs-io/projector/database/types"
)

func (s *Store) GetAsset(
	policyId []byte,
	name []byte,
	txn types.Txn,
) (models.Asset, error) {
	ret := models.Asset{}
	db, err := s.resolveDB(txn)
	if err != nil {
		return ret, err
	}
	result := db.Where("policy_id = ? AND name = ?", policyId, name).
		First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ret, models.ErrAssetNotFound
		}
		return ret, result.Error
	}
	return ret, nil
}

// SetAsset creates the asset row or updates the existing one
func (s *Store) SetAsset(asset *models.Asset, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Save(asset).Error
}

func (s *Store) DeleteAsset(policyId []byte, name []byte, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Where("policy_id = ? AND name = ?", policyId, name).
		Delete(&models.Asset{})
	return result.Error
}

// GetAssetsByPolicy returns every asset under a policy ordered by name
func (s *Store) GetAssetsByPolicy(
	policyId []byte,
	txn types.Txn,
) ([]models.Asset, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Asset
	result := db.Where("policy_id = ?", policyId).Order("name").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (s *Store) CountAssets(txn types.Txn) (int64, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	var ret int64
	if result := db.Model(&models.Asset{}).Count(&ret); result.Error != nil {
		return 0, result.Error
	}
	return ret, nil
}
