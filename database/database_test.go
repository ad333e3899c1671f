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

package database_test

import (
	"errors"
	"strings"
	"testing"

	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/projector/chainsync"
	"github.com/blinklabs-io/projector/database"
	"github.com/blinklabs-io/projector/database/models"
	"github.com/blinklabs-io/projector/database/plugin/blob/badger"
	"github.com/blinklabs-io/projector/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/projector/database/types"
)

type testStores struct {
	metadata *sqlite.MetadataStoreSqlite
	blob     *badger.BlobStoreBadger
}

func newTestStores(t *testing.T) testStores {
	t.Helper()
	metadataStore, err := sqlite.NewWithOptions(
		sqlite.WithMemoryName(strings.ReplaceAll(t.Name(), "/", "_")),
	)
	require.NoError(t, err)
	require.NoError(t, metadataStore.Start())
	blobStore, err := badger.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = metadataStore.Close()
		_ = blobStore.Close()
	})
	return testStores{metadata: metadataStore, blob: blobStore}
}

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	stores := newTestStores(t)
	db, err := database.NewFromStores(nil, stores.metadata, stores.blob)
	require.NoError(t, err)
	return db
}

func testCred(seed byte) chainsync.Credential {
	var c chainsync.Credential
	for i := range c {
		c[i] = seed
	}
	return c
}

func testBlock(slot uint64) *chainsync.Block {
	return &chainsync.Block{
		Slot:   slot,
		Hash:   []byte{0xbb, byte(slot)},
		Number: slot,
		Transactions: []chainsync.Transaction{
			{
				Hash:  []byte{0xcc, byte(slot)},
				Valid: true,
				Certificates: []chainsync.Certificate{
					&chainsync.StakeRegistration{StakeCredential: testCred(byte(slot))},
				},
			},
		},
	}
}

func TestTxnRollbackDiscardsWrites(t *testing.T) {
	db := newTestDatabase(t)
	errTest := errors.New("test")
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.AddStakeKeys([]chainsync.Credential{testCred(1)}, 1, txn); err != nil {
			return err
		}
		return errTest
	})
	require.ErrorIs(t, err, errTest)
	count, err := db.CountStakeKeys(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.AddStakeKeys([]chainsync.Credential{testCred(1)}, 1, txn)
	}))
	count, err = db.CountStakeKeys(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestWritesRequireTxn(t *testing.T) {
	db := newTestDatabase(t)
	require.ErrorIs(t, db.AddStakeKeys(nil, 0, nil), types.ErrNilTxn)
	require.ErrorIs(t, db.DeleteOutputs(nil, nil), types.ErrNilTxn)
	require.ErrorIs(t, db.ApplyMint(nil, 0, false, nil), types.ErrNilTxn)
	require.ErrorIs(
		t,
		db.SetCheckpoint("test", ocommon.NewPointOrigin(), 0, nil),
		types.ErrNilTxn,
	)
}

func TestStakeKeysIdempotent(t *testing.T) {
	db := newTestDatabase(t)
	keys := []chainsync.Credential{testCred(1), testCred(2)}
	for range 2 {
		require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
			return db.AddStakeKeys(keys, 5, txn)
		}))
	}
	stakeKeys, err := db.GetStakeKeys(nil)
	require.NoError(t, err)
	require.Len(t, stakeKeys, 2)
	assert.Equal(t, keys[0].Bytes(), stakeKeys[0].StakingKey)
	assert.Equal(t, uint64(5), stakeKeys[0].AddedSlot)

	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.DeleteStakeKeys(keys[:1], txn)
	}))
	stakeKeys, err = db.GetStakeKeys(nil)
	require.NoError(t, err)
	require.Len(t, stakeKeys, 1)
	assert.Equal(t, keys[1].Bytes(), stakeKeys[0].StakingKey)
}

func TestOutputs(t *testing.T) {
	db := newTestDatabase(t)
	ref := chainsync.OutputRef{TxHash: []byte{0x01, 0x02}, Index: 1}
	outputs := []chainsync.Output{
		{
			Ref:      ref,
			Address:  "addr_test1",
			StakeKey: testCred(3).Bytes(),
			Lovelace: 2_000_000,
			Assets: []chainsync.AssetAmount{
				{PolicyId: []byte{0xaa}, Name: []byte("tok"), Amount: 7},
			},
		},
	}
	for range 2 {
		require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
			return db.AddOutputs(outputs, 10, txn)
		}))
	}
	count, err := db.CountOutputs(false, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assets, err := db.GetOutputAssets(ref, nil)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, types.Uint64(7), assets[0].Amount)

	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.SpendOutputs(
			[]chainsync.OutputRef{ref},
			[][]byte{{0x09}},
			12,
			txn,
		)
	}))
	output, err := db.GetOutput(ref, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), output.SpentSlot)
	assert.Equal(t, []byte{0x09}, output.SpentAtTxId)
	assert.Equal(t, types.Uint64(2_000_000), output.Amount)
	count, err = db.CountOutputs(true, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.UnspendOutputs([]chainsync.OutputRef{ref}, txn)
	}))
	output, err = db.GetOutput(ref, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), output.SpentSlot)
	assert.Empty(t, output.SpentAtTxId)

	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.DeleteOutputs([]chainsync.OutputRef{ref}, txn)
	}))
	_, err = db.GetOutput(ref, nil)
	require.ErrorIs(t, err, models.ErrOutputNotFound)
	assets, err = db.GetOutputAssets(ref, nil)
	require.NoError(t, err)
	assert.Empty(t, assets)

	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.SpendOutputs([]chainsync.OutputRef{ref}, nil, 1, txn)
	})
	require.Error(t, err)
}

func TestApplyMint(t *testing.T) {
	db := newTestDatabase(t)
	policy := []byte{0x7e, 0xae}
	mint := func(amount int64, slot uint64, undo bool) {
		t.Helper()
		require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
			return db.ApplyMint(
				[]chainsync.MintEntry{
					{PolicyId: policy, Name: []byte("a"), Amount: amount},
				},
				slot,
				undo,
				txn,
			)
		}))
	}
	mint(5, 10, false)
	asset, err := db.GetAsset(policy, []byte("a"), nil)
	require.NoError(t, err)
	assert.Equal(t, "5", asset.Supply.String())
	assert.Equal(t, uint64(10), asset.FirstMintSlot)
	assert.True(t, strings.HasPrefix(asset.Fingerprint, "asset1"))

	// A full burn keeps the row
	mint(-5, 20, false)
	asset, err = db.GetAsset(policy, []byte("a"), nil)
	require.NoError(t, err)
	assert.Equal(t, "0", asset.Supply.String())

	// Undo the burn, then the first mint
	mint(5, 20, true)
	asset, err = db.GetAsset(policy, []byte("a"), nil)
	require.NoError(t, err)
	assert.Equal(t, "5", asset.Supply.String())
	mint(-5, 10, true)
	_, err = db.GetAsset(policy, []byte("a"), nil)
	require.ErrorIs(t, err, models.ErrAssetNotFound)
	count, err := db.CountAssets(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestCheckpoint(t *testing.T) {
	db := newTestDatabase(t)
	_, err := db.GetCheckpoint("run", nil)
	require.ErrorIs(t, err, models.ErrCheckpointNotFound)

	point := ocommon.NewPoint(42, []byte{0x01, 0x02})
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		if _, err := db.LockCheckpoint("run", txn); !errors.Is(err, models.ErrCheckpointNotFound) {
			return err
		}
		return db.SetCheckpoint("run", point, 7, txn)
	}))
	checkpoint, err := db.GetCheckpoint("run", nil)
	require.NoError(t, err)
	assert.Equal(t, point, checkpoint.Point())
	assert.Equal(t, uint64(7), checkpoint.BlockNumber)

	// Moving back to origin
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.SetCheckpoint("run", ocommon.NewPointOrigin(), 0, txn)
	}))
	checkpoints, err := db.GetCheckpoints(nil)
	require.NoError(t, err)
	require.Len(t, checkpoints, 1)
	assert.Equal(t, ocommon.NewPointOrigin(), checkpoints[0].Point())
}

func TestUndoRecords(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		for slot := uint64(1); slot <= 5; slot++ {
			if err := db.AddUndoRecord("run", testBlock(slot), txn); err != nil {
				return err
			}
		}
		// Records of another run are kept apart
		return db.AddUndoRecord("other", testBlock(9), txn)
	}))
	block, err := db.GetUndoRecord("run", testBlock(3).Hash, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), block.Slot)
	require.Len(t, block.Transactions, 1)
	require.Len(t, block.Transactions[0].Certificates, 1)
	assert.Equal(
		t,
		testCred(3),
		block.Transactions[0].Certificates[0].(*chainsync.StakeRegistration).StakeCredential,
	)

	blocks, err := db.GetProjectedBlocksAfter("run", 2, nil)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, uint64(5), blocks[0].Slot)
	assert.Equal(t, uint64(3), blocks[2].Slot)
	blocks, err = db.GetProjectedBlocks("run", nil)
	require.NoError(t, err)
	require.Len(t, blocks, 5)
	assert.Equal(t, uint64(1), blocks[4].Slot)

	var pruned int
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		var err error
		pruned, err = db.PruneUndoRecords("run", 2, txn)
		return err
	}))
	assert.Equal(t, 3, pruned)
	_, err = db.GetUndoRecord("run", testBlock(3).Hash, nil)
	require.ErrorIs(t, err, database.ErrUndoNotFound)
	_, err = db.GetProjectedBlock("run", testBlock(3).Hash, nil)
	require.ErrorIs(t, err, models.ErrProjectedBlockNotFound)
	_, err = db.GetUndoRecord("run", testBlock(4).Hash, nil)
	require.NoError(t, err)
	_, err = db.GetUndoRecord("other", testBlock(9).Hash, nil)
	require.NoError(t, err)

	// Nothing beyond depth
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		var err error
		pruned, err = db.PruneUndoRecords("run", 2, txn)
		return err
	}))
	assert.Equal(t, 0, pruned)

	horizon, ok, err := db.GetUndoHorizon("run", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), horizon)
	_, ok, err = db.GetUndoHorizon("other", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommitTimestampBlobAhead(t *testing.T) {
	stores := newTestStores(t)
	db, err := database.NewFromStores(nil, stores.metadata, stores.blob)
	require.NoError(t, err)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.AddUndoRecord("run", testBlock(1), txn)
	}))
	// Simulate a commit that reached only the blob store
	orphanKey := types.UndoBlobKey("run", []byte{0xde, 0xad})
	blobTxn := stores.blob.NewTransaction(true)
	require.NoError(t, stores.blob.Set(blobTxn, orphanKey, []byte{0x00}))
	ts, err := stores.blob.GetCommitTimestamp()
	require.NoError(t, err)
	require.NoError(t, stores.blob.SetCommitTimestamp(ts+1000, blobTxn))
	require.NoError(t, blobTxn.Commit())

	_, err = database.NewFromStores(nil, stores.metadata, stores.blob)
	require.NoError(t, err)
	blobTxn = stores.blob.NewTransaction(false)
	defer blobTxn.Rollback() //nolint:errcheck
	_, err = stores.blob.Get(blobTxn, orphanKey)
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	_, err = stores.blob.Get(blobTxn, types.UndoBlobKey("run", testBlock(1).Hash))
	require.NoError(t, err)
	metadataTs, err := stores.metadata.GetCommitTimestamp()
	require.NoError(t, err)
	blobTs, err := stores.blob.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, metadataTs, blobTs)
}

func TestCommitTimestampMetadataAhead(t *testing.T) {
	stores := newTestStores(t)
	require.NoError(t, stores.metadata.SetCommitTimestamp(999, nil))
	_, err := database.NewFromStores(nil, stores.metadata, stores.blob)
	var tsErr database.CommitTimestampError
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, int64(999), tsErr.MetadataTimestamp)
	assert.Equal(t, int64(0), tsErr.BlobTimestamp)
}

func TestDropSchema(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.AddStakeKeys([]chainsync.Credential{testCred(1)}, 1, txn); err != nil {
			return err
		}
		return db.AddUndoRecord("run", testBlock(1), txn)
	}))
	require.NoError(t, db.DropSchema())
	count, err := db.CountStakeKeys(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
	_, err = db.GetUndoRecord("run", testBlock(1).Hash, nil)
	require.ErrorIs(t, err, database.ErrUndoNotFound)
}

func TestIsTransient(t *testing.T) {
	db := newTestDatabase(t)
	assert.False(t, db.IsTransient(nil))
	assert.False(t, db.IsTransient(errors.New("boom")))
	assert.True(t, db.IsTransient(database.ErrCheckpointConflict))
	assert.True(t, db.IsTransient(errors.New("database is locked")))
	assert.True(t, db.IsTransient(
		errors.Join(errors.New("flush"), database.ErrCheckpointConflict),
	))
}
