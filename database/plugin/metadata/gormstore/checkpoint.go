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

// GetCheckpoint returns the checkpoint of the named run. When forUpdate is
// set the row is locked until the transaction ends.
func (s *Store) GetCheckpoint(
	name string,
	forUpdate bool,
	txn types.Txn,
) (models.Checkpoint, error) {
	ret := models.Checkpoint{}
	db, err := s.resolveDB(txn)
	if err != nil {
		return ret, err
	}
	if forUpdate {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	result := db.Where("name = ?", name).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ret, models.ErrCheckpointNotFound
		}
		return ret, result.Error
	}
	return ret, nil
}

// SetCheckpoint creates or moves the checkpoint of a run
func (s *Store) SetCheckpoint(
	checkpoint *models.Checkpoint,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns(
			[]string{"slot", "hash", "block_number", "updated_at"},
		),
	}).Create(checkpoint)
	return result.Error
}

// GetCheckpoints returns the checkpoints of every run ordered by name
func (s *Store) GetCheckpoints(txn types.Txn) ([]models.Checkpoint, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Checkpoint
	if result := db.Order("name").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (s *Store) AddProjectedBlock(
	block *models.ProjectedBlock,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}, {Name: "hash"}},
		DoNothing: true,
	}).Create(block)
	return result.Error
}

func (s *Store) GetProjectedBlock(
	name string,
	hash []byte,
	txn types.Txn,
) (models.ProjectedBlock, error) {
	ret := models.ProjectedBlock{}
	db, err := s.resolveDB(txn)
	if err != nil {
		return ret, err
	}
	result := db.Where("name = ? AND hash = ?", name, hash).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ret, models.ErrProjectedBlockNotFound
		}
		return ret, result.Error
	}
	return ret, nil
}

// GetProjectedBlocks returns every block of a run, newest first
func (s *Store) GetProjectedBlocks(
	name string,
	txn types.Txn,
) ([]models.ProjectedBlock, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.ProjectedBlock
	result := db.Where("name = ?", name).
		Order("slot DESC").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetProjectedBlocksAfter returns the blocks of a run above the given slot,
// newest first
func (s *Store) GetProjectedBlocksAfter(
	name string,
	slot uint64,
	txn types.Txn,
) ([]models.ProjectedBlock, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.ProjectedBlock
	result := db.Where("name = ? AND slot > ?", name, slot).
		Order("slot DESC").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetProjectedBlocksBeyondDepth returns the blocks of a run that are older
// than the newest depth blocks
func (s *Store) GetProjectedBlocksBeyondDepth(
	name string,
	depth int,
	txn types.Txn,
) ([]models.ProjectedBlock, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	// Newest block beyond the retained depth
	var cutoff []models.ProjectedBlock
	result := db.Where("name = ?", name).
		Order("slot DESC").
		Offset(depth).
		Limit(1).
		Find(&cutoff)
	if result.Error != nil {
		return nil, result.Error
	}
	if len(cutoff) == 0 {
		return nil, nil
	}
	var ret []models.ProjectedBlock
	result = db.Where("name = ? AND slot <= ?", name, cutoff[0].Slot).
		Order("slot DESC").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (s *Store) DeleteProjectedBlock(
	name string,
	hash []byte,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Where("name = ? AND hash = ?", name, hash).
		Delete(&models.ProjectedBlock{})
	return result.Error
}
