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

package operator

import (
	"github.com/blinklabs-io/projector/chainsync"
)

// MintDelta is the net supply change per asset for one event. Negative
// amounts are burns.
type MintDelta struct {
	Entries []chainsync.MintEntry
}

// Inverse negates every supply change
func (d MintDelta) Inverse() MintDelta {
	ret := MintDelta{
		Entries: make([]chainsync.MintEntry, 0, len(d.Entries)),
	}
	for _, entry := range d.Entries {
		entry.Amount = -entry.Amount
		ret.Entries = append(ret.Entries, entry)
	}
	return ret
}

// WithMint sums mints and burns per asset across the block. Assets whose
// net change is zero are omitted.
func WithMint() Operator {
	return Operator{
		Name:     "WithMint",
		Provides: FactMint,
		Apply:    withMint,
	}
}

func withMint(evt Event) (Event, error) {
	type assetKey struct {
		policy string
		name   string
	}
	var order []assetKey
	totals := make(map[assetKey]*chainsync.MintEntry)
	if evt.Block != nil {
		for _, tx := range evt.Block.Transactions {
			for _, entry := range tx.Mint {
				key := assetKey{
					policy: string(entry.PolicyId),
					name:   string(entry.Name),
				}
				if total, ok := totals[key]; ok {
					total.Amount += entry.Amount
					continue
				}
				tmpEntry := entry
				totals[key] = &tmpEntry
				order = append(order, key)
			}
		}
	}
	delta := MintDelta{}
	for _, key := range order {
		if entry := totals[key]; entry.Amount != 0 {
			delta.Entries = append(delta.Entries, *entry)
		}
	}
	if evt.Type == chainsync.EventTypeRollBackward {
		delta = delta.Inverse()
	}
	evt.Mint = &delta
	return evt.withFact(FactMint), nil
}
