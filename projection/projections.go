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

package projection

import (
	"fmt"
	"slices"

	"github.com/blinklabs-io/projector/chainsync"
	"github.com/blinklabs-io/projector/database"
	"github.com/blinklabs-io/projector/operator"
)

const (
	StakeKeysProjectionName = "StakeKeys"
	UtxoProjectionName      = "UTXO"
	AssetsProjectionName    = "Assets"
)

// ApplyFunc writes the facts of one enriched event to the store. Roll
// backward events carry inverted facts, so the same function serves both
// directions.
type ApplyFunc func(db *database.Database, evt operator.Event, txn *database.Txn) error

// Projection is a named set of operators together with the store writes
// for the facts they produce
type Projection struct {
	Apply       ApplyFunc
	Name        string
	Description string
	Operators   []func() operator.Operator
}

var projections = []Projection{
	{
		Name:        StakeKeysProjectionName,
		Description: "active stake-key set",
		Operators: []func() operator.Operator{
			operator.WithCertificates,
			operator.WithStakeKeys,
		},
		Apply: applyStakeKeys,
	},
	{
		Name:        UtxoProjectionName,
		Description: "unspent transaction outputs",
		Operators: []func() operator.Operator{
			operator.WithUtxo,
		},
		Apply: applyUtxo,
	},
	{
		Name:        AssetsProjectionName,
		Description: "native asset supply",
		Operators: []func() operator.Operator{
			operator.WithMint,
		},
		Apply: applyMint,
	},
}

// GetProjection returns the projection registered under name
func GetProjection(name string) (Projection, bool) {
	for _, p := range projections {
		if p.Name == name {
			return p, true
		}
	}
	return Projection{}, false
}

// Projections returns every available projection
func Projections() []Projection {
	return slices.Clone(projections)
}

// NewPipeline builds one pipeline serving every named projection. Operators
// shared by several projections are included once, in the order they are
// first listed.
func NewPipeline(names ...string) (*operator.Pipeline, []Projection, error) {
	var selected []Projection
	var ops []operator.Operator
	seen := make(map[string]bool)
	for _, name := range names {
		p, ok := GetProjection(name)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownProjection, name)
		}
		if slices.ContainsFunc(selected, func(s Projection) bool {
			return s.Name == p.Name
		}) {
			continue
		}
		selected = append(selected, p)
		for _, opFunc := range p.Operators {
			op := opFunc()
			if seen[op.Name] {
				continue
			}
			seen[op.Name] = true
			ops = append(ops, op)
		}
	}
	pipeline, err := operator.NewPipeline(ops...)
	if err != nil {
		return nil, nil, err
	}
	return pipeline, selected, nil
}

func eventSlot(evt operator.Event) uint64 {
	if evt.Block != nil {
		return evt.Block.Slot
	}
	return evt.Point.Slot
}

// applyStakeKeys writes a stake-key delta. Keys re-inserted by a rollback
// carry the undone block's slot since the deregistered row is gone.
func applyStakeKeys(
	db *database.Database,
	evt operator.Event,
	txn *database.Txn,
) error {
	if evt.StakeKeys == nil || evt.StakeKeys.Empty() {
		return nil
	}
	if err := db.DeleteStakeKeys(evt.StakeKeys.Del, txn); err != nil {
		return fmt.Errorf("delete stake keys: %w", err)
	}
	if err := db.AddStakeKeys(evt.StakeKeys.Insert, eventSlot(evt), txn); err != nil {
		return fmt.Errorf("add stake keys: %w", err)
	}
	return nil
}

func applyUtxo(
	db *database.Database,
	evt operator.Event,
	txn *database.Txn,
) error {
	delta := evt.Utxo
	if delta == nil || delta.Empty() {
		return nil
	}
	if delta.Undo {
		// Outputs produced and spent within the block are deleted either way
		if err := db.UnspendOutputs(delta.Consumed, txn); err != nil {
			return fmt.Errorf("unspend outputs: %w", err)
		}
		refs := make([]chainsync.OutputRef, 0, len(delta.Produced))
		for _, output := range delta.Produced {
			refs = append(refs, output.Ref)
		}
		if err := db.DeleteOutputs(refs, txn); err != nil {
			return fmt.Errorf("delete outputs: %w", err)
		}
		return nil
	}
	slot := eventSlot(evt)
	if err := db.AddOutputs(delta.Produced, slot, txn); err != nil {
		return fmt.Errorf("add outputs: %w", err)
	}
	if err := db.SpendOutputs(delta.Consumed, delta.SpentBy, slot, txn); err != nil {
		return fmt.Errorf("spend outputs: %w", err)
	}
	return nil
}

func applyMint(
	db *database.Database,
	evt operator.Event,
	txn *database.Txn,
) error {
	if evt.Mint == nil || len(evt.Mint.Entries) == 0 {
		return nil
	}
	undo := evt.Type == chainsync.EventTypeRollBackward
	if err := db.ApplyMint(evt.Mint.Entries, eventSlot(evt), undo, txn); err != nil {
		return fmt.Errorf("apply mint: %w", err)
	}
	return nil
}
