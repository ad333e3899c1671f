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

package gcs

import (
	"encoding/json"
	"math/big"

	"github.com/blinklabs-io/projector/database/sops"
	"github.com/blinklabs-io/projector/database/types"
)

// GetCommitTimestamp returns the stored commit timestamp. Timestamps are
// stored encrypted with sops; a plaintext value left by an older writer is
// still accepted.
func (d *BlobStoreGCS) GetCommitTimestamp() (int64, error) {
	ciphertext, err := d.readObject([]byte(types.CommitTimestampBlobKey))
	if err != nil {
		return 0, err
	}
	plaintext, err := sops.Decrypt(ciphertext)
	if err != nil {
		if !json.Valid(ciphertext) && len(ciphertext) <= 8 {
			d.logger.Warn(
				"commit timestamp stored plaintext",
				"component", "database",
				"bucket", d.bucketName,
				"error", err,
			)
			return new(big.Int).SetBytes(ciphertext).Int64(), nil
		}
		d.logger.Error(
			"failed to decrypt commit timestamp",
			"component", "database",
			"error", err,
		)
		return 0, err
	}
	return new(big.Int).SetBytes(plaintext).Int64(), nil
}

func (d *BlobStoreGCS) SetCommitTimestamp(
	timestamp int64,
	txn types.Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	raw := new(big.Int).SetInt64(timestamp).Bytes()
	ciphertext, err := sops.Encrypt(raw)
	if err != nil {
		d.logger.Error(
			"failed to encrypt commit timestamp",
			"component", "database",
			"error", err,
		)
		return err
	}
	return d.Set(txn, []byte(types.CommitTimestampBlobKey), ciphertext)
}
