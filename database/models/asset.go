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
	"encoding/hex"
	"errors"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"

	"github.com/blinklabs-io/projector/database/types"
)

var ErrAssetNotFound = errors.New("asset not found")

// Asset tracks the circulating supply of a native asset
type Asset struct {
	Name          []byte    `gorm:"uniqueIndex:asset_policy_id_name;size:64"`
	PolicyId      []byte    `gorm:"uniqueIndex:asset_policy_id_name;size:28"`
	Fingerprint   string    `gorm:"index;size:64"`
	Supply        types.Int `gorm:"size:80"`
	ID            uint      `gorm:"primaryKey"`
	FirstMintSlot uint64    `gorm:"index"`
}

func (Asset) TableName() string {
	return "asset"
}

// NewAsset returns an asset row with zero supply and its CIP-14 fingerprint
func NewAsset(policyId []byte, name []byte, slot uint64) Asset {
	return Asset{
		PolicyId: policyId,
		Name:     name,
		Fingerprint: lcommon.NewAssetFingerprint(
			policyId,
			name,
		).String(),
		Supply:        types.NewInt(0),
		FirstMintSlot: slot,
	}
}

func (a *Asset) NameHex() string {
	return hex.EncodeToString(a.Name)
}
