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

package types_test

import (
	"database/sql"
	"database/sql/driver"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/projector/database/types"
)

func TestTypesScanValue(t *testing.T) {
	testDefs := []struct {
		origValue     any
		expectedValue any
	}{
		{
			origValue: func(v types.Uint64) *types.Uint64 { return &v }(
				types.Uint64(18446744073709551615),
			),
			expectedValue: "18446744073709551615",
		},
		{
			origValue: func(v types.Int) *types.Int { return &v }(
				types.Int{
					Int: new(big.Int).Lsh(big.NewInt(-1), 70),
				},
			),
			expectedValue: "-1180591620717411303424",
		},
	}
	for _, testDef := range testDefs {
		tmpValuer, ok := testDef.origValue.(driver.Valuer)
		require.True(t, ok, "test original value does not implement driver.Valuer")
		valueOut, err := tmpValuer.Value()
		require.NoError(t, err)
		assert.Equal(t, testDef.expectedValue, valueOut)
		tmpScanner, ok := testDef.origValue.(sql.Scanner)
		require.True(t, ok, "test original value does not implement sql.Scanner")
		require.NoError(t, tmpScanner.Scan(valueOut))
		// Drivers may hand back text columns as bytes
		valueStr, ok := valueOut.(string)
		require.True(t, ok)
		require.NoError(t, tmpScanner.Scan([]byte(valueStr)))
		valueAgain, err := tmpValuer.Value()
		require.NoError(t, err)
		assert.Equal(t, testDef.expectedValue, valueAgain)
	}
}

func TestTypesScanInvalid(t *testing.T) {
	var u types.Uint64
	require.Error(t, u.Scan(int64(5)))
	require.Error(t, u.Scan("-1"))
	var i types.Int
	require.Error(t, i.Scan("12abc"))
	// Zero value stores as zero
	v, err := types.Int{}.Value()
	require.NoError(t, err)
	assert.Equal(t, "0", v)
}

func TestUndoBlobKey(t *testing.T) {
	key := types.UndoBlobKey("main", []byte{0xab, 0xcd})
	assert.Equal(t, append([]byte("ubmain/"), 0xab, 0xcd), key)
	assert.Equal(t, []byte("ubmain/"), types.UndoBlobKeyRunPrefix("main"))
	// A run name that prefixes another does not share its key space
	assert.NotEqual(
		t,
		types.UndoBlobKeyRunPrefix("main"),
		types.UndoBlobKeyRunPrefix("main2")[:len("ubmain/")],
	)
}

func TestMetadataTxnDB(t *testing.T) {
	_, err := types.MetadataTxnDB(nil)
	require.ErrorIs(t, err, types.ErrNilTxn)

	failed := types.NewFailedMetadataTxn(assert.AnError)
	_, err = types.MetadataTxnDB(failed)
	require.ErrorIs(t, err, assert.AnError)
	require.ErrorIs(t, failed.Commit(), assert.AnError)

	empty := types.NewMetadataTxn(nil)
	require.NoError(t, empty.Commit())
	require.NoError(t, empty.Rollback())
}
