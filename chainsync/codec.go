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
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
)

// Wire shapes for storing a Block. Certificates are stored as their tag
// plus the CBOR of the concrete variant.
type blockRecord struct {
	Hash         []byte
	Transactions []transactionRecord
	Slot         uint64
	Number       uint64
	Era          uint
}

type transactionRecord struct {
	Hash         []byte
	Inputs       []OutputRef
	Outputs      []Output
	Mint         []MintEntry
	Certificates []certificateRecord
	Index        uint32
	Valid        bool
}

type certificateRecord struct {
	Data []byte
	Type uint
}

// EncodeBlock serializes a block to CBOR
func EncodeBlock(b *Block) ([]byte, error) {
	rec := blockRecord{
		Hash:         b.Hash,
		Slot:         b.Slot,
		Number:       b.Number,
		Era:          b.Era,
		Transactions: make([]transactionRecord, 0, len(b.Transactions)),
	}
	for _, tx := range b.Transactions {
		txRec := transactionRecord{
			Hash:    tx.Hash,
			Index:   tx.Index,
			Valid:   tx.Valid,
			Inputs:  tx.Inputs,
			Outputs: tx.Outputs,
			Mint:    tx.Mint,
		}
		for _, cert := range tx.Certificates {
			if !cert.Type().Valid() {
				return nil, NewUnknownCertificateError(uint(cert.Type()))
			}
			data, err := cbor.Encode(cert)
			if err != nil {
				return nil, fmt.Errorf(
					"encode %s certificate: %w",
					cert.Type(),
					err,
				)
			}
			txRec.Certificates = append(
				txRec.Certificates,
				certificateRecord{Type: uint(cert.Type()), Data: data},
			)
		}
		rec.Transactions = append(rec.Transactions, txRec)
	}
	return cbor.Encode(&rec)
}

// DecodeBlock is the inverse of EncodeBlock
func DecodeBlock(data []byte) (*Block, error) {
	var rec blockRecord
	if _, err := cbor.Decode(data, &rec); err != nil {
		return nil, fmt.Errorf("decode block: %w", err)
	}
	ret := &Block{
		Hash:         rec.Hash,
		Slot:         rec.Slot,
		Number:       rec.Number,
		Era:          rec.Era,
		Transactions: make([]Transaction, 0, len(rec.Transactions)),
	}
	for _, txRec := range rec.Transactions {
		tx := Transaction{
			Hash:    txRec.Hash,
			Index:   txRec.Index,
			Valid:   txRec.Valid,
			Inputs:  txRec.Inputs,
			Outputs: txRec.Outputs,
			Mint:    txRec.Mint,
		}
		for _, certRec := range txRec.Certificates {
			cert, err := NewCertificate(CertificateType(certRec.Type))
			if err != nil {
				return nil, err
			}
			if _, err := cbor.Decode(certRec.Data, cert); err != nil {
				return nil, fmt.Errorf(
					"decode %s certificate: %w",
					cert.Type(),
					err,
				)
			}
			tx.Certificates = append(tx.Certificates, cert)
		}
		ret.Transactions = append(ret.Transactions, tx)
	}
	return ret, nil
}
