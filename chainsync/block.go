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

package chainsync

import (
	"encoding/hex"
	"strconv"

	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"
)

// Block is the projection-relevant content of a block
type Block struct {
	Hash         []byte
	Transactions []Transaction
	Slot         uint64
	Number       uint64
	Era          uint
}

func (b *Block) Point() ocommon.Point {
	return ocommon.NewPoint(b.Slot, b.Hash)
}

type Transaction struct {
	Hash         []byte
	Inputs       []OutputRef
	Outputs      []Output
	Mint         []MintEntry
	Certificates []Certificate
	Index        uint32
	Valid        bool
}

// OutputRef identifies a transaction output by its natural key
type OutputRef struct {
	TxHash []byte
	Index  uint32
}

func (r OutputRef) String() string {
	return hex.EncodeToString(r.TxHash) + "#" + strconv.FormatUint(uint64(r.Index), 10)
}

type Output struct {
	Address    string
	PaymentKey []byte
	StakeKey   []byte
	Assets     []AssetAmount
	Ref        OutputRef
	Lovelace   uint64
}

type AssetAmount struct {
	PolicyId []byte
	Name     []byte
	Amount   uint64
}

// MintEntry is a signed mint (positive) or burn (negative) of one asset
type MintEntry struct {
	PolicyId []byte
	Name     []byte
	Amount   int64
}
