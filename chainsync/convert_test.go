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

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	mockledger "github.com/blinklabs-io/ouroboros-mock/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/projector/chainsync"
)

func testLedgerCredential(seed byte) lcommon.Credential {
	hash := make([]byte, 28)
	for i := range hash {
		hash[i] = seed
	}
	return lcommon.Credential{
		Credential: lcommon.CredentialHash(hash),
	}
}

func TestNewCertificateFromLedgerStakeKeys(t *testing.T) {
	reg, err := chainsync.NewCertificateFromLedger(
		&lcommon.StakeRegistrationCertificate{
			CertType:        uint(lcommon.CertificateTypeStakeRegistration),
			StakeCredential: testLedgerCredential(0x01),
		},
	)
	require.NoError(t, err)
	assert.Equal(t, chainsync.CertificateTypeStakeRegistration, reg.Type())
	assert.Equal(t, testCredential(0x01), reg.Subject())

	dereg, err := chainsync.NewCertificateFromLedger(
		&lcommon.StakeDeregistrationCertificate{
			CertType:        uint(lcommon.CertificateTypeStakeDeregistration),
			StakeCredential: testLedgerCredential(0x02),
		},
	)
	require.NoError(t, err)
	assert.Equal(t, chainsync.CertificateTypeStakeDeregistration, dereg.Type())
	assert.Equal(t, testCredential(0x02), dereg.Subject())

	conwayDereg, err := chainsync.NewCertificateFromLedger(
		&lcommon.DeregistrationCertificate{
			StakeCredential: testLedgerCredential(0x03),
			Amount:          -1,
		},
	)
	require.NoError(t, err)
	tmpDereg, ok := conwayDereg.(*chainsync.Deregistration)
	require.True(t, ok)
	assert.Equal(t, uint64(0), tmpDereg.Refund)
}

func TestNewCertificateFromLedgerUnknown(t *testing.T) {
	_, err := chainsync.NewCertificateFromLedger(&lcommon.LeiosEbCertificate{})
	require.ErrorIs(t, err, chainsync.ErrUnknownCertificate)
	_, err = chainsync.NewCertificateFromLedger(nil)
	require.ErrorIs(t, err, chainsync.ErrUnknownCertificate)
}

func TestNewTransactionFromLedger(t *testing.T) {
	tx := mockledger.NewTransactionBuilder()
	tx.WithId([]byte("convert_test_hash_0123456789012345678901"))
	tmpTx, err := chainsync.NewTransactionFromLedger(tx, 3)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash().Bytes(), tmpTx.Hash)
	assert.Equal(t, uint32(3), tmpTx.Index)
	assert.Empty(t, tmpTx.Certificates)
}

// Conway delegation certificates carry the pool as raw bytes
func TestNewCertificateFromLedgerPoolBytes(t *testing.T) {
	pool := testCredential(0x0a)
	regDeleg, err := chainsync.NewCertificateFromLedger(
		&lcommon.StakeRegistrationDelegationCertificate{
			StakeCredential: testLedgerCredential(0x04),
			PoolKeyHash:     pool.Bytes(),
			Amount:          2000000,
		},
	)
	require.NoError(t, err)
	tmpRegDeleg, ok := regDeleg.(*chainsync.StakeRegistrationDelegation)
	require.True(t, ok)
	assert.Equal(t, testCredential(0x04), tmpRegDeleg.StakeCredential)
	assert.Equal(t, pool, tmpRegDeleg.PoolKeyHash)

	voteDeleg, err := chainsync.NewCertificateFromLedger(
		&lcommon.StakeVoteDelegationCertificate{
			StakeCredential: testLedgerCredential(0x05),
			PoolKeyHash:     pool.Bytes(),
			Drep:            lcommon.Drep{Type: lcommon.DrepTypeAbstain},
		},
	)
	require.NoError(t, err)
	tmpVoteDeleg, ok := voteDeleg.(*chainsync.StakeVoteDelegation)
	require.True(t, ok)
	assert.Equal(t, pool, tmpVoteDeleg.PoolKeyHash)
}
