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
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// StakeKey is a member of the active stake-key set. AddedSlot is the slot
// of the block that made the key active: its registration going forward, or
// the undone block whose deregistration a rollback reverted.
type StakeKey struct {
	StakingKey []byte `gorm:"uniqueIndex;size:28"`
	ID         uint   `gorm:"primarykey"`
	AddedSlot  uint64 `gorm:"index"`
}

func (StakeKey) TableName() string {
	return "stake_key"
}

// String returns the bech32-encoded representation of the StakingKey with
// the "stake" human-readable part
func (k *StakeKey) String() (string, error) {
	if len(k.StakingKey) == 0 {
		return "", errors.New("staking key is empty")
	}
	// Convert data to base32 and encode as bech32
	convData, err := bech32.ConvertBits(k.StakingKey, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("failed to convert bits: %w", err)
	}
	encoded, err := bech32.Encode("stake", convData)
	if err != nil {
		return "", fmt.Errorf("failed to encode bech32: %w", err)
	}
	return encoded, nil
}
