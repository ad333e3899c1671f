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

// UtxoDelta lists the outputs a block produced and the outputs it spent.
// When Undo is set the delta retracts the block: produced outputs are
// removed and spent outputs become unspent again.
type UtxoDelta struct {
	Produced []chainsync.Output
	Consumed []chainsync.OutputRef
	// Hash of the transaction spending each Consumed entry
	SpentBy [][]byte
	Undo    bool
}

func (d UtxoDelta) Empty() bool {
	return len(d.Produced) == 0 && len(d.Consumed) == 0
}

// WithUtxo collects produced and consumed outputs for the block
func WithUtxo() Operator {
	return Operator{
		Name:     "WithUtxo",
		Provides: FactUtxo,
		Apply:    withUtxo,
	}
}

func withUtxo(evt Event) (Event, error) {
	delta := UtxoDelta{
		Undo: evt.Type == chainsync.EventTypeRollBackward,
	}
	if evt.Block != nil {
		for _, tx := range evt.Block.Transactions {
			for _, input := range tx.Inputs {
				delta.Consumed = append(delta.Consumed, input)
				delta.SpentBy = append(delta.SpentBy, tx.Hash)
			}
			delta.Produced = append(delta.Produced, tx.Outputs...)
		}
	}
	evt.Utxo = &delta
	return evt.withFact(FactUtxo), nil
}
