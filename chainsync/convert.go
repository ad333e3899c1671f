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
	"bytes"
	"fmt"
	"math"
	"math/big"
	"slices"

	"github.com/blinklabs-io/gouroboros/ledger"
	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
)

// NewBlockFromLedger extracts the projection-relevant content of a decoded
// ledger block
func NewBlockFromLedger(block ledger.Block) (*Block, error) {
	ret := &Block{
		Hash:   block.Hash().Bytes(),
		Slot:   block.SlotNumber(),
		Number: block.BlockNumber(),
		Era:    uint(block.Era().Id),
	}
	for idx, tx := range block.Transactions() {
		tmpTx, err := NewTransactionFromLedger(tx, uint32(idx)) //nolint:gosec
		if err != nil {
			return nil, fmt.Errorf(
				"transaction %d in block %x: %w",
				idx,
				ret.Hash,
				err,
			)
		}
		ret.Transactions = append(ret.Transactions, tmpTx)
	}
	return ret, nil
}

// NewBlockFromCbor decodes raw block CBOR of the given block type
func NewBlockFromCbor(blockType uint, data []byte) (*Block, error) {
	block, err := ledger.NewBlockFromCbor(blockType, data)
	if err != nil {
		return nil, fmt.Errorf("decode block: %w", err)
	}
	return NewBlockFromLedger(block)
}

// NewTransactionFromLedger converts a ledger transaction. Consumed and
// Produced already account for phase-2 validity, so an invalid transaction
// yields its collateral inputs and collateral return.
func NewTransactionFromLedger(
	tx lcommon.Transaction,
	index uint32,
) (Transaction, error) {
	ret := Transaction{
		Hash:  tx.Hash().Bytes(),
		Index: index,
		Valid: tx.IsValid(),
	}
	for _, input := range tx.Consumed() {
		ret.Inputs = append(ret.Inputs, OutputRef{
			TxHash: input.Id().Bytes(),
			Index:  input.Index(),
		})
	}
	for _, utxo := range tx.Produced() {
		ret.Outputs = append(ret.Outputs, newOutputFromLedger(utxo))
	}
	// Certificates and mints have no effect when phase-2 validation failed
	if !ret.Valid {
		return ret, nil
	}
	for _, cert := range tx.Certificates() {
		tmpCert, err := NewCertificateFromLedger(cert)
		if err != nil {
			return ret, err
		}
		ret.Certificates = append(ret.Certificates, tmpCert)
	}
	if mint := tx.AssetMint(); mint != nil {
		for _, policyId := range mint.Policies() {
			for _, name := range mint.Assets(policyId) {
				amount, err := signedAmount(mint.Asset(policyId, name))
				if err != nil {
					return ret, fmt.Errorf(
						"mint %x.%x: %w",
						policyId.Bytes(),
						name,
						err,
					)
				}
				ret.Mint = append(ret.Mint, MintEntry{
					PolicyId: policyId.Bytes(),
					Name:     name,
					Amount:   amount,
				})
			}
		}
	}
	return ret, nil
}

func newOutputFromLedger(utxo lcommon.Utxo) Output {
	addr := utxo.Output.Address()
	ret := Output{
		Ref: OutputRef{
			TxHash: utxo.Id.Id().Bytes(),
			Index:  utxo.Id.Index(),
		},
		Address:    addr.String(),
		PaymentKey: addr.PaymentKeyHash().Bytes(),
		StakeKey:   addr.StakeKeyHash().Bytes(),
		Lovelace:   utxo.Output.Amount(),
	}
	if multiAssetOutput, ok := utxo.Output.(interface {
		MultiAsset() *lcommon.MultiAsset[lcommon.MultiAssetTypeOutput]
	}); ok {
		if multiAsset := multiAssetOutput.MultiAsset(); multiAsset != nil {
			for _, policyId := range multiAsset.Policies() {
				for _, name := range multiAsset.Assets(policyId) {
					amount, err := signedAmount(multiAsset.Asset(policyId, name))
					if err != nil || amount < 0 {
						continue
					}
					ret.Assets = append(ret.Assets, AssetAmount{
						PolicyId: policyId.Bytes(),
						Name:     name,
						Amount:   uint64(amount),
					})
				}
			}
		}
	}
	return ret
}

// signedAmount normalizes the asset quantity representations used by the
// ledger library
func signedAmount(v any) (int64, error) {
	switch a := v.(type) {
	case int64:
		return a, nil
	case uint64:
		if a > math.MaxInt64 {
			return 0, fmt.Errorf("asset amount %d overflows int64", a)
		}
		return int64(a), nil
	case *big.Int:
		if a == nil {
			return 0, nil
		}
		if !a.IsInt64() {
			return 0, fmt.Errorf("asset amount %s overflows int64", a)
		}
		return a.Int64(), nil
	}
	return 0, fmt.Errorf("unsupported asset amount type %T", v)
}

func nonNegative(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

// NewCertificateFromLedger converts a ledger certificate into the closed
// variant set. Certificate kinds outside that set are structural errors.
func NewCertificateFromLedger(cert lcommon.Certificate) (Certificate, error) {
	switch c := cert.(type) {
	case *lcommon.StakeRegistrationCertificate:
		return &StakeRegistration{
			StakeCredential: NewCredential(c.StakeCredential.Hash().Bytes()),
		}, nil
	case *lcommon.StakeDeregistrationCertificate:
		return &StakeDeregistration{
			StakeCredential: NewCredential(c.StakeCredential.Hash().Bytes()),
		}, nil
	case *lcommon.StakeDelegationCertificate:
		return &StakeDelegation{
			StakeCredential: NewCredential(c.StakeCredential.Hash().Bytes()),
			PoolKeyHash:     NewCredential(c.PoolKeyHash.Bytes()),
		}, nil
	case *lcommon.PoolRegistrationCertificate:
		return &PoolRegistration{
			PoolKeyHash: NewCredential(c.Operator.Bytes()),
			VrfKeyHash:  c.VrfKeyHash.Bytes(),
			Pledge:      c.Pledge,
			Cost:        c.Cost,
		}, nil
	case *lcommon.PoolRetirementCertificate:
		return &PoolRetirement{
			PoolKeyHash: NewCredential(c.PoolKeyHash.Bytes()),
			Epoch:       c.Epoch,
		}, nil
	case *lcommon.GenesisKeyDelegationCertificate:
		return &GenesisKeyDelegation{
			GenesisHash:         c.GenesisHash,
			GenesisDelegateHash: c.GenesisDelegateHash,
			VrfKeyHash:          c.VrfKeyHash.Bytes(),
		}, nil
	case *lcommon.MoveInstantaneousRewardsCertificate:
		ret := &MoveInstantaneousRewards{
			Source:   uint(c.Reward.Source),
			OtherPot: c.Reward.OtherPot,
		}
		for cred, amount := range c.Reward.Rewards {
			ret.Rewards = append(ret.Rewards, Reward{
				Credential: NewCredential(cred.Hash().Bytes()),
				Amount:     amount,
			})
		}
		// Map iteration order is random
		slices.SortFunc(ret.Rewards, func(a, b Reward) int {
			return bytes.Compare(a.Credential[:], b.Credential[:])
		})
		return ret, nil
	case *lcommon.RegistrationCertificate:
		return &Registration{
			StakeCredential: NewCredential(c.StakeCredential.Hash().Bytes()),
		}, nil
	case *lcommon.DeregistrationCertificate:
		return &Deregistration{
			StakeCredential: NewCredential(c.StakeCredential.Hash().Bytes()),
			Refund:          nonNegative(c.Amount),
		}, nil
	case *lcommon.VoteDelegationCertificate:
		return &VoteDelegation{
			StakeCredential: NewCredential(c.StakeCredential.Hash().Bytes()),
			Drep:            Drep{Type: uint(c.Drep.Type), Credential: c.Drep.Credential}, //nolint:gosec
		}, nil
	case *lcommon.StakeVoteDelegationCertificate:
		return &StakeVoteDelegation{
			StakeCredential: NewCredential(c.StakeCredential.Hash().Bytes()),
			PoolKeyHash:     NewCredential(c.PoolKeyHash[:]),
			Drep:            Drep{Type: uint(c.Drep.Type), Credential: c.Drep.Credential}, //nolint:gosec
		}, nil
	case *lcommon.StakeRegistrationDelegationCertificate:
		return &StakeRegistrationDelegation{
			StakeCredential: NewCredential(c.StakeCredential.Hash().Bytes()),
			PoolKeyHash:     NewCredential(c.PoolKeyHash[:]),
		}, nil
	case *lcommon.VoteRegistrationDelegationCertificate:
		return &VoteRegistrationDelegation{
			StakeCredential: NewCredential(c.StakeCredential.Hash().Bytes()),
			Drep:            Drep{Type: uint(c.Drep.Type), Credential: c.Drep.Credential}, //nolint:gosec
		}, nil
	case *lcommon.StakeVoteRegistrationDelegationCertificate:
		return &StakeVoteRegistrationDelegation{
			StakeCredential: NewCredential(c.StakeCredential.Hash().Bytes()),
			PoolKeyHash:     NewCredential(c.PoolKeyHash.Bytes()),
			Drep:            Drep{Type: uint(c.Drep.Type), Credential: c.Drep.Credential}, //nolint:gosec
		}, nil
	case *lcommon.AuthCommitteeHotCertificate:
		return &AuthCommitteeHot{
			ColdCredential: NewCredential(c.ColdCredential.Hash().Bytes()),
			HotCredential:  NewCredential(c.HotCredential.Hash().Bytes()),
		}, nil
	case *lcommon.ResignCommitteeColdCertificate:
		ret := &ResignCommitteeCold{
			ColdCredential: NewCredential(c.ColdCredential.Hash().Bytes()),
		}
		if c.Anchor != nil {
			ret.Anchor = &Anchor{Url: c.Anchor.Url, DataHash: c.Anchor.DataHash[:]}
		}
		return ret, nil
	case *lcommon.RegistrationDrepCertificate:
		ret := &RegistrationDrep{
			DrepCredential: NewCredential(c.DrepCredential.Hash().Bytes()),
		}
		if c.Anchor != nil {
			ret.Anchor = &Anchor{Url: c.Anchor.Url, DataHash: c.Anchor.DataHash[:]}
		}
		return ret, nil
	case *lcommon.DeregistrationDrepCertificate:
		return &DeregistrationDrep{
			DrepCredential: NewCredential(c.DrepCredential.Hash().Bytes()),
		}, nil
	case *lcommon.UpdateDrepCertificate:
		ret := &UpdateDrep{
			DrepCredential: NewCredential(c.DrepCredential.Hash().Bytes()),
		}
		if c.Anchor != nil {
			ret.Anchor = &Anchor{Url: c.Anchor.Url, DataHash: c.Anchor.DataHash[:]}
		}
		return ret, nil
	}
	if cert == nil {
		return nil, NewUnknownCertificateError(math.MaxUint)
	}
	return nil, NewUnknownCertificateError(uint(cert.Type()))
}
