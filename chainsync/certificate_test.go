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
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/projector/chainsync"
)

// Every variant must be handled by each switch over the closed set
func TestCertificateTypesExhaustive(t *testing.T) {
	types := chainsync.AllCertificateTypes()
	require.Len(t, types, 19)
	for _, certType := range types {
		t.Run(certType.String(), func(t *testing.T) {
			assert.True(t, certType.Valid())
			assert.False(
				t,
				strings.HasPrefix(certType.String(), "CertificateType("),
				"missing String() case",
			)
			cert, err := chainsync.NewCertificate(certType)
			require.NoError(t, err)
			assert.Equal(t, certType, cert.Type())
			_, err = certType.StakeEffect()
			require.NoError(t, err)
		})
	}
}

func TestCertificateTypeUnknown(t *testing.T) {
	unknown := chainsync.CertificateType(len(chainsync.AllCertificateTypes()))
	assert.False(t, unknown.Valid())
	_, err := chainsync.NewCertificate(unknown)
	require.ErrorIs(t, err, chainsync.ErrUnknownCertificate)
	_, err = unknown.StakeEffect()
	var certErr chainsync.UnknownCertificateError
	require.True(t, errors.As(err, &certErr))
	assert.Equal(t, uint(unknown), certErr.Tag())
}

func TestCertificateStakeEffect(t *testing.T) {
	testDefs := []struct {
		certType chainsync.CertificateType
		expected chainsync.StakeEffect
	}{
		{chainsync.CertificateTypeStakeRegistration, chainsync.StakeEffectRegister},
		{chainsync.CertificateTypeRegistration, chainsync.StakeEffectRegister},
		{chainsync.CertificateTypeStakeRegistrationDelegation, chainsync.StakeEffectRegister},
		{chainsync.CertificateTypeVoteRegistrationDelegation, chainsync.StakeEffectRegister},
		{chainsync.CertificateTypeStakeVoteRegistrationDelegation, chainsync.StakeEffectRegister},
		{chainsync.CertificateTypeStakeDeregistration, chainsync.StakeEffectDeregister},
		{chainsync.CertificateTypeDeregistration, chainsync.StakeEffectDeregister},
		{chainsync.CertificateTypeStakeDelegation, chainsync.StakeEffectNone},
		{chainsync.CertificateTypeVoteDelegation, chainsync.StakeEffectNone},
		{chainsync.CertificateTypeRegistrationDrep, chainsync.StakeEffectNone},
	}
	for _, testDef := range testDefs {
		effect, err := testDef.certType.StakeEffect()
		require.NoError(t, err)
		assert.Equal(
			t,
			testDef.expected,
			effect,
			"unexpected effect for %s",
			testDef.certType,
		)
	}
}

func TestCertificateSubject(t *testing.T) {
	stakeCred := chainsync.NewCredential([]byte("stake-credential-28-bytes-xx"))
	poolId := chainsync.NewCredential([]byte("pool-key-hash-28-bytes-xxxxx"))
	deleg := &chainsync.StakeDelegation{
		StakeCredential: stakeCred,
		PoolKeyHash:     poolId,
	}
	assert.Equal(t, stakeCred, deleg.Subject())
	retire := &chainsync.PoolRetirement{PoolKeyHash: poolId, Epoch: 5}
	assert.Equal(t, poolId, retire.Subject())
	mir := &chainsync.MoveInstantaneousRewards{}
	assert.True(t, mir.Subject().IsZero())
}
