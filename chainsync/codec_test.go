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

package chainsync_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/projector/chainsync"
)

func testCredential(seed byte) chainsync.Credential {
	var c chainsync.Credential
	for i := range c {
		c[i] = seed
	}
	return c
}

func TestBlockCodecPreservesCertificates(t *testing.T) {
	block := &chainsync.Block{
		Hash:   []byte("block-hash-0000000000000000000001"),
		Slot:   1234,
		Number: 56,
		Era:    6,
		Transactions: []chainsync.Transaction{
			{
				Hash:  []byte("tx-hash-000000000000000000000001"),
				Index: 0,
				Valid: true,
				Inputs: []chainsync.OutputRef{
					{TxHash: []byte("prev-tx"), Index: 3},
				},
				Outputs: []chainsync.Output{
					{
						Ref: chainsync.OutputRef{
							TxHash: []byte("tx-hash-000000000000000000000001"),
							Index:  0,
						},
						Address:  "addr_test1",
						Lovelace: 2_000_000,
						Assets: []chainsync.AssetAmount{
							{PolicyId: []byte("policy"), Name: []byte("token"), Amount: 7},
						},
					},
				},
				Mint: []chainsync.MintEntry{
					{PolicyId: []byte("policy"), Name: []byte("token"), Amount: -3},
				},
				Certificates: []chainsync.Certificate{
					&chainsync.StakeRegistration{StakeCredential: testCredential(1)},
					&chainsync.StakeDelegation{
						StakeCredential: testCredential(1),
						PoolKeyHash:     testCredential(9),
					},
					&chainsync.Deregistration{
						StakeCredential: testCredential(2),
						Refund:          2_000_000,
					},
					&chainsync.UpdateDrep{
						DrepCredential: testCredential(3),
						Anchor: &chainsync.Anchor{
							Url:      "https://example.com/drep.json",
							DataHash: []byte("anchor-hash"),
						},
					},
				},
			},
		},
	}
	data, err := chainsync.EncodeBlock(block)
	require.NoError(t, err)
	decoded, err := chainsync.DecodeBlock(data)
	require.NoError(t, err)
	assert.Equal(t, block.Slot, decoded.Slot)
	assert.Equal(t, block.Hash, decoded.Hash)
	assert.Equal(t, block.Number, decoded.Number)
	require.Len(t, decoded.Transactions, 1)
	tx := decoded.Transactions[0]
	assert.Equal(t, block.Transactions[0].Inputs, tx.Inputs)
	assert.Equal(t, int64(-3), tx.Mint[0].Amount)
	require.Len(t, tx.Certificates, 4)
	for idx, cert := range tx.Certificates {
		assert.Equal(
			t,
			block.Transactions[0].Certificates[idx].Type(),
			cert.Type(),
		)
		assert.Equal(
			t,
			block.Transactions[0].Certificates[idx].Subject(),
			cert.Subject(),
		)
	}
	dereg, ok := tx.Certificates[2].(*chainsync.Deregistration)
	require.True(t, ok)
	assert.Equal(t, uint64(2_000_000), dereg.Refund)
	update, ok := tx.Certificates[3].(*chainsync.UpdateDrep)
	require.True(t, ok)
	require.NotNil(t, update.Anchor)
	assert.Equal(t, "https://example.com/drep.json", update.Anchor.Url)
}

func TestDecodeBlockInvalid(t *testing.T) {
	_, err := chainsync.DecodeBlock([]byte{0xff, 0x00})
	require.Error(t, err)
}
