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

package projection_test

import (
	"context"
	"testing"

	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/projector/chainsync"
	"github.com/blinklabs-io/projector/database"
	"github.com/blinklabs-io/projector/database/models"
	"github.com/blinklabs-io/projector/projection"
)

var (
	testPolicy = []byte("policy")
	testAsset  = []byte("token")
)

// utxoBlocks returns two blocks: the first mints into a new output, the
// second spends it and burns part of the supply
func utxoBlocks() (*chainsync.Block, *chainsync.Block) {
	b1 := block(1)
	b1.Transactions[0].Outputs = []chainsync.Output{
		{
			Ref:      chainsync.OutputRef{TxHash: b1.Transactions[0].Hash, Index: 0},
			Address:  "addr_test1",
			Lovelace: 5_000_000,
			Assets: []chainsync.AssetAmount{
				{PolicyId: testPolicy, Name: testAsset, Amount: 10},
			},
		},
	}
	b1.Transactions[0].Mint = []chainsync.MintEntry{
		{PolicyId: testPolicy, Name: testAsset, Amount: 10},
	}
	b2 := block(2)
	b2.Transactions[0].Inputs = []chainsync.OutputRef{
		b1.Transactions[0].Outputs[0].Ref,
	}
	b2.Transactions[0].Outputs = []chainsync.Output{
		{
			Ref:      chainsync.OutputRef{TxHash: b2.Transactions[0].Hash, Index: 0},
			Address:  "addr_test2",
			Lovelace: 4_800_000,
			Assets: []chainsync.AssetAmount{
				{PolicyId: testPolicy, Name: testAsset, Amount: 6},
			},
		},
	}
	b2.Transactions[0].Mint = []chainsync.MintEntry{
		{PolicyId: testPolicy, Name: testAsset, Amount: -4},
	}
	return b1, b2
}

func supply(t *testing.T, db *database.Database) int64 {
	t.Helper()
	asset, err := db.GetAsset(testPolicy, testAsset, nil)
	require.NoError(t, err)
	return asset.Supply.Int64()
}

func TestUtxoAndAssetsRollback(t *testing.T) {
	db := newTestDatabase(t)
	b1, b2 := utxoBlocks()
	p, _ := newTestProjector(
		t,
		db,
		projection.WithBlocksBufferLength(1),
		projection.WithProjections(
			projection.UtxoProjectionName,
			projection.AssetsProjectionName,
		),
	)
	evtCh, errCh := runAsync(p)
	evtCh <- forward(b1)
	evtCh <- forward(b2)
	// Taking the next event means block 2 is committed
	evtCh <- forward(block(3))

	spent, err := db.GetOutput(b1.Transactions[0].Outputs[0].Ref, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), spent.SpentSlot)
	assert.Equal(t, b2.Transactions[0].Hash, spent.SpentAtTxId)
	unspent, err := db.CountOutputs(true, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unspent)
	assert.Equal(t, int64(6), supply(t, db))

	// Blocks 2 and 3 are undone once the next event is taken
	evtCh <- backward(b1.Point())
	evtCh <- forward(block(4))
	spent, err = db.GetOutput(b1.Transactions[0].Outputs[0].Ref, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), spent.SpentSlot)
	_, err = db.GetOutput(b2.Transactions[0].Outputs[0].Ref, nil)
	require.ErrorIs(t, err, models.ErrOutputNotFound)
	assets, err := db.GetOutputAssets(b1.Transactions[0].Outputs[0].Ref, nil)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, int64(10), supply(t, db))

	evtCh <- backward(ocommon.NewPointOrigin())
	close(evtCh)
	require.NoError(t, waitRun(t, errCh))
	total, err := db.CountOutputs(false, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	_, err = db.GetAsset(testPolicy, testAsset, nil)
	require.ErrorIs(t, err, models.ErrAssetNotFound)
	assert.True(t, chainsync.SamePoint(ocommon.NewPointOrigin(), storedCheckpoint(t, db, projection.DefaultName)))
}

// Spending an output produced earlier in the same block
func TestUtxoSpentWithinBlock(t *testing.T) {
	db := newTestDatabase(t)
	b := block(7)
	produced := chainsync.OutputRef{TxHash: b.Transactions[0].Hash, Index: 0}
	b.Transactions[0].Outputs = []chainsync.Output{
		{Ref: produced, Lovelace: 1},
	}
	b.Transactions = append(b.Transactions, chainsync.Transaction{
		Hash:   []byte{0xcd, 7},
		Index:  1,
		Valid:  true,
		Inputs: []chainsync.OutputRef{produced},
	})
	p, _ := newTestProjector(
		t,
		db,
		projection.WithBlocksBufferLength(1),
		projection.WithProjections(projection.UtxoProjectionName),
	)
	require.NoError(t, p.Run(
		context.Background(),
		chainsync.NewSliceSource(
			forward(b),
			forward(block(8)),
			backward(b.Point()),
		),
	))
	output, err := db.GetOutput(produced, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), output.SpentSlot)

	p, _ = newTestProjector(
		t,
		db,
		projection.WithBlocksBufferLength(1),
		projection.WithProjections(projection.UtxoProjectionName),
	)
	evtCh, errCh := runAsync(p)
	evtCh <- backward(ocommon.NewPointOrigin())
	close(evtCh)
	require.NoError(t, waitRun(t, errCh))
	_, err = db.GetOutput(produced, nil)
	require.ErrorIs(t, err, models.ErrOutputNotFound)
}
