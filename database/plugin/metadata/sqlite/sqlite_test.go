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

package sqlite_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/projector/database/models"
	"github.com/blinklabs-io/projector/database/plugin/metadata/sqlite"
)

func newTestStore(t *testing.T) *sqlite.MetadataStoreSqlite {
	t.Helper()
	store, err := sqlite.NewWithOptions(
		sqlite.WithMemoryName(t.Name()),
	)
	require.NoError(t, err)
	require.NoError(t, store.Start())
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestCommitTimestamp(t *testing.T) {
	store := newTestStore(t)
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)

	txn := store.Transaction()
	require.NoError(t, store.SetCommitTimestamp(1234, txn))
	require.NoError(t, txn.Commit())
	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1234), ts)

	// Rolled back writes are not visible
	txn = store.Transaction()
	require.NoError(t, store.SetCommitTimestamp(5678, txn))
	require.NoError(t, txn.Rollback())
	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1234), ts)
}

func TestDropSchema(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.DB().Create(&models.StakeKey{
		StakingKey: []byte{0x01},
		AddedSlot:  1,
	}).Error)
	var count int64
	require.NoError(t, store.DB().Model(&models.StakeKey{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, store.DropSchema())
	require.NoError(t, store.DB().Model(&models.StakeKey{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestFileBacked(t *testing.T) {
	dir := t.TempDir()
	store, err := sqlite.New(dir, nil)
	require.NoError(t, err)
	require.NoError(t, store.Start())
	txn := store.Transaction()
	require.NoError(t, store.SetCommitTimestamp(99, txn))
	require.NoError(t, txn.Commit())
	require.NoError(t, store.Close())

	store, err = sqlite.New(dir, nil)
	require.NoError(t, err)
	require.NoError(t, store.Start())
	defer store.Close()
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(99), ts)
}

func TestIsTransient(t *testing.T) {
	store := newTestStore(t)
	assert.False(t, store.SupportsRowLocking())
	assert.True(t, store.IsTransient(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.True(t, store.IsTransient(errors.New("database table is locked")))
	assert.False(t, store.IsTransient(errors.New("no such table: output")))
	assert.False(t, store.IsTransient(nil))
}
