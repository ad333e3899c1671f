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

	"github.com/blinklabs-io/projector/database/types"
)

var ErrOutputNotFound = errors.New("output not found")

// Output is a transaction output. SpentSlot is zero while the output is
// unspent.
type Output struct {
	Address     string       `gorm:"size:128"`
	TxId        []byte       `gorm:"uniqueIndex:output_tx_id_output_idx;size:32"`
	PaymentKey  []byte       `gorm:"index;size:28"`
	StakingKey  []byte       `gorm:"index;size:28"`
	SpentAtTxId []byte       `gorm:"size:32"`
	Amount      types.Uint64 `gorm:"size:20"`
	ID          uint         `gorm:"primarykey"`
	AddedSlot   uint64       `gorm:"index"`
	SpentSlot   uint64       `gorm:"index"`
	OutputIdx   uint32       `gorm:"uniqueIndex:output_tx_id_output_idx"`
}

func (Output) TableName() string {
	return "output"
}

// OutputAsset is a native asset amount held by an output. Rows are keyed by
// the output's natural identity so they can be written idempotently.
type OutputAsset struct {
	TxId      []byte       `gorm:"uniqueIndex:output_asset_natural;size:32"`
	PolicyId  []byte       `gorm:"uniqueIndex:output_asset_natural;size:28"`
	Name      []byte       `gorm:"uniqueIndex:output_asset_natural;size:64"`
	Amount    types.Uint64 `gorm:"size:20"`
	ID        uint         `gorm:"primarykey"`
	OutputIdx uint32       `gorm:"uniqueIndex:output_asset_natural"`
}

func (OutputAsset) TableName() string {
	return "output_asset"
}
