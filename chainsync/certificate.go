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

package chainsync

import (
	"encoding/hex"
	"fmt"
)

// CertificateType values follow the ledger CDDL certificate tags
type CertificateType uint

const (
	CertificateTypeStakeRegistration CertificateType = iota
	CertificateTypeStakeDeregistration
	CertificateTypeStakeDelegation
	CertificateTypePoolRegistration
	CertificateTypePoolRetirement
	CertificateTypeGenesisKeyDelegation
	CertificateTypeMoveInstantaneousRewards
	CertificateTypeRegistration
	CertificateTypeDeregistration
	CertificateTypeVoteDelegation
	CertificateTypeStakeVoteDelegation
	CertificateTypeStakeRegistrationDelegation
	CertificateTypeVoteRegistrationDelegation
	CertificateTypeStakeVoteRegistrationDelegation
	CertificateTypeAuthCommitteeHot
	CertificateTypeResignCommitteeCold
	CertificateTypeRegistrationDrep
	CertificateTypeDeregistrationDrep
	CertificateTypeUpdateDrep

	// Must stay last
	certificateTypeCount
)

// AllCertificateTypes returns every known certificate variant in tag order
func AllCertificateTypes() []CertificateType {
	ret := make([]CertificateType, 0, certificateTypeCount)
	for t := range certificateTypeCount {
		ret = append(ret, t)
	}
	return ret
}

func (t CertificateType) Valid() bool {
	return t < certificateTypeCount
}

func (t CertificateType) String() string {
	switch t {
	case CertificateTypeStakeRegistration:
		return "StakeRegistration"
	case CertificateTypeStakeDeregistration:
		return "StakeDeregistration"
	case CertificateTypeStakeDelegation:
		return "StakeDelegation"
	case CertificateTypePoolRegistration:
		return "PoolRegistration"
	case CertificateTypePoolRetirement:
		return "PoolRetirement"
	case CertificateTypeGenesisKeyDelegation:
		return "GenesisKeyDelegation"
	case CertificateTypeMoveInstantaneousRewards:
		return "MoveInstantaneousRewards"
	case CertificateTypeRegistration:
		return "Registration"
	case CertificateTypeDeregistration:
		return "Deregistration"
	case CertificateTypeVoteDelegation:
		return "VoteDelegation"
	case CertificateTypeStakeVoteDelegation:
		return "StakeVoteDelegation"
	case CertificateTypeStakeRegistrationDelegation:
		return "StakeRegistrationDelegation"
	case CertificateTypeVoteRegistrationDelegation:
		return "VoteRegistrationDelegation"
	case CertificateTypeStakeVoteRegistrationDelegation:
		return "StakeVoteRegistrationDelegation"
	case CertificateTypeAuthCommitteeHot:
		return "AuthCommitteeHot"
	case CertificateTypeResignCommitteeCold:
		return "ResignCommitteeCold"
	case CertificateTypeRegistrationDrep:
		return "RegistrationDrep"
	case CertificateTypeDeregistrationDrep:
		return "DeregistrationDrep"
	case CertificateTypeUpdateDrep:
		return "UpdateDrep"
	}
	return fmt.Sprintf("CertificateType(%d)", uint(t))
}

// StakeEffect describes how a certificate changes stake-key registration
type StakeEffect uint8

const (
	StakeEffectNone StakeEffect = iota
	StakeEffectRegister
	StakeEffectDeregister
)

// StakeEffect classifies the certificate type. Every variant must be listed
// here; an unlisted type is reported as unknown.
func (t CertificateType) StakeEffect() (StakeEffect, error) {
	switch t {
	case CertificateTypeStakeRegistration,
		CertificateTypeRegistration,
		CertificateTypeStakeRegistrationDelegation,
		CertificateTypeVoteRegistrationDelegation,
		CertificateTypeStakeVoteRegistrationDelegation:
		return StakeEffectRegister, nil
	case CertificateTypeStakeDeregistration,
		CertificateTypeDeregistration:
		return StakeEffectDeregister, nil
	case CertificateTypeStakeDelegation,
		CertificateTypePoolRegistration,
		CertificateTypePoolRetirement,
		CertificateTypeGenesisKeyDelegation,
		CertificateTypeMoveInstantaneousRewards,
		CertificateTypeVoteDelegation,
		CertificateTypeStakeVoteDelegation,
		CertificateTypeAuthCommitteeHot,
		CertificateTypeResignCommitteeCold,
		CertificateTypeRegistrationDrep,
		CertificateTypeDeregistrationDrep,
		CertificateTypeUpdateDrep:
		return StakeEffectNone, nil
	}
	return StakeEffectNone, NewUnknownCertificateError(uint(t))
}

// Credential is a 28-byte key or script hash
type Credential [28]byte

func NewCredential(b []byte) Credential {
	var c Credential
	copy(c[:], b)
	return c
}

func (c Credential) Bytes() []byte {
	return c[:]
}

func (c Credential) String() string {
	return hex.EncodeToString(c[:])
}

func (c Credential) IsZero() bool {
	return c == Credential{}
}

type Drep struct {
	Credential []byte
	Type       uint
}

type Anchor struct {
	Url      string
	DataHash []byte
}

type Reward struct {
	Credential Credential
	Amount     uint64
}

// Certificate is the closed set of ledger certificate variants. Only types
// in this package implement it.
type Certificate interface {
	Type() CertificateType
	// Subject is the credential the certificate primarily acts on
	Subject() Credential
	isCertificate()
}

type certificateBase struct{}

func (certificateBase) isCertificate() {}

type StakeRegistration struct {
	certificateBase
	StakeCredential Credential
}

func (*StakeRegistration) Type() CertificateType {
	return CertificateTypeStakeRegistration
}

func (c *StakeRegistration) Subject() Credential { return c.StakeCredential }

type StakeDeregistration struct {
	certificateBase
	StakeCredential Credential
}

func (*StakeDeregistration) Type() CertificateType {
	return CertificateTypeStakeDeregistration
}

func (c *StakeDeregistration) Subject() Credential { return c.StakeCredential }

type StakeDelegation struct {
	certificateBase
	StakeCredential Credential
	PoolKeyHash     Credential
}

func (*StakeDelegation) Type() CertificateType {
	return CertificateTypeStakeDelegation
}

func (c *StakeDelegation) Subject() Credential { return c.StakeCredential }

type PoolRegistration struct {
	certificateBase
	VrfKeyHash  []byte
	PoolKeyHash Credential
	Pledge      uint64
	Cost        uint64
}

func (*PoolRegistration) Type() CertificateType {
	return CertificateTypePoolRegistration
}

func (c *PoolRegistration) Subject() Credential { return c.PoolKeyHash }

type PoolRetirement struct {
	certificateBase
	PoolKeyHash Credential
	Epoch       uint64
}

func (*PoolRetirement) Type() CertificateType {
	return CertificateTypePoolRetirement
}

func (c *PoolRetirement) Subject() Credential { return c.PoolKeyHash }

type GenesisKeyDelegation struct {
	certificateBase
	GenesisHash         []byte
	GenesisDelegateHash []byte
	VrfKeyHash          []byte
}

func (*GenesisKeyDelegation) Type() CertificateType {
	return CertificateTypeGenesisKeyDelegation
}

func (c *GenesisKeyDelegation) Subject() Credential {
	return NewCredential(c.GenesisHash)
}

// MoveInstantaneousRewards moves funds between pots or to reward accounts.
// It has no single subject, so Subject returns the zero credential.
type MoveInstantaneousRewards struct {
	certificateBase
	Rewards  []Reward
	Source   uint
	OtherPot uint64
}

func (*MoveInstantaneousRewards) Type() CertificateType {
	return CertificateTypeMoveInstantaneousRewards
}

func (*MoveInstantaneousRewards) Subject() Credential { return Credential{} }

type Registration struct {
	certificateBase
	StakeCredential Credential
}

func (*Registration) Type() CertificateType {
	return CertificateTypeRegistration
}

func (c *Registration) Subject() Credential { return c.StakeCredential }

type Deregistration struct {
	certificateBase
	StakeCredential Credential
	Refund          uint64
}

func (*Deregistration) Type() CertificateType {
	return CertificateTypeDeregistration
}

func (c *Deregistration) Subject() Credential { return c.StakeCredential }

type VoteDelegation struct {
	certificateBase
	Drep            Drep
	StakeCredential Credential
}

func (*VoteDelegation) Type() CertificateType {
	return CertificateTypeVoteDelegation
}

func (c *VoteDelegation) Subject() Credential { return c.StakeCredential }

type StakeVoteDelegation struct {
	certificateBase
	Drep            Drep
	StakeCredential Credential
	PoolKeyHash     Credential
}

func (*StakeVoteDelegation) Type() CertificateType {
	return CertificateTypeStakeVoteDelegation
}

func (c *StakeVoteDelegation) Subject() Credential { return c.StakeCredential }

type StakeRegistrationDelegation struct {
	certificateBase
	StakeCredential Credential
	PoolKeyHash     Credential
}

func (*StakeRegistrationDelegation) Type() CertificateType {
	return CertificateTypeStakeRegistrationDelegation
}

func (c *StakeRegistrationDelegation) Subject() Credential {
	return c.StakeCredential
}

type VoteRegistrationDelegation struct {
	certificateBase
	Drep            Drep
	StakeCredential Credential
}

func (*VoteRegistrationDelegation) Type() CertificateType {
	return CertificateTypeVoteRegistrationDelegation
}

func (c *VoteRegistrationDelegation) Subject() Credential {
	return c.StakeCredential
}

type StakeVoteRegistrationDelegation struct {
	certificateBase
	Drep            Drep
	StakeCredential Credential
	PoolKeyHash     Credential
}

func (*StakeVoteRegistrationDelegation) Type() CertificateType {
	return CertificateTypeStakeVoteRegistrationDelegation
}

func (c *StakeVoteRegistrationDelegation) Subject() Credential {
	return c.StakeCredential
}

type AuthCommitteeHot struct {
	certificateBase
	ColdCredential Credential
	HotCredential  Credential
}

func (*AuthCommitteeHot) Type() CertificateType {
	return CertificateTypeAuthCommitteeHot
}

func (c *AuthCommitteeHot) Subject() Credential { return c.ColdCredential }

type ResignCommitteeCold struct {
	certificateBase
	Anchor         *Anchor
	ColdCredential Credential
}

func (*ResignCommitteeCold) Type() CertificateType {
	return CertificateTypeResignCommitteeCold
}

func (c *ResignCommitteeCold) Subject() Credential { return c.ColdCredential }

type RegistrationDrep struct {
	certificateBase
	Anchor         *Anchor
	DrepCredential Credential
}

func (*RegistrationDrep) Type() CertificateType {
	return CertificateTypeRegistrationDrep
}

func (c *RegistrationDrep) Subject() Credential { return c.DrepCredential }

type DeregistrationDrep struct {
	certificateBase
	DrepCredential Credential
	Refund         uint64
}

func (*DeregistrationDrep) Type() CertificateType {
	return CertificateTypeDeregistrationDrep
}

func (c *DeregistrationDrep) Subject() Credential { return c.DrepCredential }

type UpdateDrep struct {
	certificateBase
	Anchor         *Anchor
	DrepCredential Credential
}

func (*UpdateDrep) Type() CertificateType {
	return CertificateTypeUpdateDrep
}

func (c *UpdateDrep) Subject() Credential { return c.DrepCredential }

// NewCertificate returns an empty certificate of the given variant
func NewCertificate(t CertificateType) (Certificate, error) {
	switch t {
	case CertificateTypeStakeRegistration:
		return &StakeRegistration{}, nil
	case CertificateTypeStakeDeregistration:
		return &StakeDeregistration{}, nil
	case CertificateTypeStakeDelegation:
		return &StakeDelegation{}, nil
	case CertificateTypePoolRegistration:
		return &PoolRegistration{}, nil
	case CertificateTypePoolRetirement:
		return &PoolRetirement{}, nil
	case CertificateTypeGenesisKeyDelegation:
		return &GenesisKeyDelegation{}, nil
	case CertificateTypeMoveInstantaneousRewards:
		return &MoveInstantaneousRewards{}, nil
	case CertificateTypeRegistration:
		return &Registration{}, nil
	case CertificateTypeDeregistration:
		return &Deregistration{}, nil
	case CertificateTypeVoteDelegation:
		return &VoteDelegation{}, nil
	case CertificateTypeStakeVoteDelegation:
		return &StakeVoteDelegation{}, nil
	case CertificateTypeStakeRegistrationDelegation:
		return &StakeRegistrationDelegation{}, nil
	case CertificateTypeVoteRegistrationDelegation:
		return &VoteRegistrationDelegation{}, nil
	case CertificateTypeStakeVoteRegistrationDelegation:
		return &StakeVoteRegistrationDelegation{}, nil
	case CertificateTypeAuthCommitteeHot:
		return &AuthCommitteeHot{}, nil
	case CertificateTypeResignCommitteeCold:
		return &ResignCommitteeCold{}, nil
	case CertificateTypeRegistrationDrep:
		return &RegistrationDrep{}, nil
	case CertificateTypeDeregistrationDrep:
		return &DeregistrationDrep{}, nil
	case CertificateTypeUpdateDrep:
		return &UpdateDrep{}, nil
	}
	return nil, NewUnknownCertificateError(uint(t))
}
