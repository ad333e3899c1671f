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

package models

import (
	"errors"
	"time"

	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"
)

var (
	ErrCheckpointNotFound     = errors.New("checkpoint not found")
	ErrProjectedBlockNotFound = errors.New("projected block not found")
)

// Checkpoint is the last chain point committed by a projection run
type Checkpoint struct {
	UpdatedAt   time.Time
	Name        string `gorm:"uniqueIndex;size:64"`
	Hash        []byte `gorm:"size:32"`
	ID          uint   `gorm:"primarykey"`
	Slot        uint64
	BlockNumber uint64
}

func (Checkpoint) TableName() string {
	return "checkpoint"
}

func (c *Checkpoint) Point() ocommon.Point {
	if c.Slot == 0 && len(c.Hash) == 0 {
		return ocommon.NewPointOrigin()
	}
	return ocommon.NewPoint(c.Slot, c.Hash)
}

// ProjectedBlock records a block whose effects are committed and whose undo
// record is still retained
type ProjectedBlock struct {
	Name   string `gorm:"uniqueIndex:projected_block_name_hash;index:projected_block_name_slot;size:64"`
	Hash   []byte `gorm:"uniqueIndex:projected_block_name_hash;size:32"`
	ID     uint   `gorm:"primarykey"`
	Slot   uint64 `gorm:"index:projected_block_name_slot"`
	Number uint64
}

func (ProjectedBlock) TableName() string {
	return "projected_block"
}

func (b *ProjectedBlock) Point() ocommon.Point {
	return ocommon.NewPoint(b.Slot, b.Hash)
}
