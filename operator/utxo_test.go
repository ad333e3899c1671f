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

package operator_test

import (
	"testing"

	ochainsync "github.com/blinklabs-io/gouroboros/protocol/chainsync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/projector/chainsync"
	"github.com/blinklabs-io/projector/operator"
)

func TestWithUtxo(t *testing.T) {
	p, err := operator.NewPipeline(operator.WithUtxo())
	require.NoError(t, err)
	b := block(9, nil, nil)
	b.Transactions[0].Inputs = []chainsync.OutputRef{
		{TxHash: []byte{0x01}, Index: 0},
	}
	b.Transactions[0].Outputs = []chainsync.Output{
		{Ref: chainsync.OutputRef{TxHash: b.Transactions[0].Hash, Index: 0}, Lovelace: 5},
	}
	// Second transaction spends the first one's output
	b.Transactions[1].Inputs = []chainsync.OutputRef{
		{TxHash: b.Transactions[0].Hash, Index: 0},
	}
	fwd, err := p.Apply(chainsync.NewRollForwardEvent(b, ochainsync.Tip{}))
	require.NoError(t, err)
	require.NotNil(t, fwd.Utxo)
	assert.False(t, fwd.Utxo.Undo)
	assert.Len(t, fwd.Utxo.Produced, 1)
	require.Len(t, fwd.Utxo.Consumed, 2)
	assert.Equal(t, b.Transactions[1].Hash, fwd.Utxo.SpentBy[1])

	undo, err := p.Apply(chainsync.Event{
		Type:  chainsync.EventTypeRollBackward,
		Point: b.Point(),
		Block: b,
	})
	require.NoError(t, err)
	assert.True(t, undo.Utxo.Undo)
	assert.Equal(t, fwd.Utxo.Consumed, undo.Utxo.Consumed)

	bare, err := p.Apply(chainsync.NewRollBackwardEvent(b.Point(), ochainsync.Tip{}))
	require.NoError(t, err)
	assert.True(t, bare.Utxo.Empty())
}

func TestWithMint(t *testing.T) {
	p, err := operator.NewPipeline(operator.WithMint())
	require.NoError(t, err)
	b := block(4, nil, nil)
	b.Transactions[0].Mint = []chainsync.MintEntry{
		{PolicyId: []byte("p1"), Name: []byte("a"), Amount: 10},
		{PolicyId: []byte("p1"), Name: []byte("b"), Amount: 3},
	}
	b.Transactions[1].Mint = []chainsync.MintEntry{
		{PolicyId: []byte("p1"), Name: []byte("a"), Amount: -4},
		{PolicyId: []byte("p1"), Name: []byte("b"), Amount: -3},
	}
	fwd, err := p.Apply(chainsync.NewRollForwardEvent(b, ochainsync.Tip{}))
	require.NoError(t, err)
	require.Len(t, fwd.Mint.Entries, 1)
	assert.Equal(t, []byte("a"), fwd.Mint.Entries[0].Name)
	assert.Equal(t, int64(6), fwd.Mint.Entries[0].Amount)
	// The source block is untouched by aggregation
	assert.Equal(t, int64(10), b.Transactions[0].Mint[0].Amount)

	undo, err := p.Apply(chainsync.Event{
		Type:  chainsync.EventTypeRollBackward,
		Point: b.Point(),
		Block: b,
	})
	require.NoError(t, err)
	require.Len(t, undo.Mint.Entries, 1)
	assert.Equal(t, int64(-6), undo.Mint.Entries[0].Amount)
}
