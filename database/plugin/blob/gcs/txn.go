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
	"errors"

	"github.com/blinklabs-io/projector/database/types"
)

var (
	errTxnFinished = errors.New("transaction already finished")
	errTxnReadOnly = errors.New("write in read-only transaction")
)

// gcsTxn buffers writes until Commit. A nil staged value marks a delete.
// Objects are written in staging order with the commit timestamp last, so
// an interrupted commit never advances the stored timestamp.
type gcsTxn struct {
	store    *BlobStoreGCS
	writes   map[string][]byte
	order    []string
	update   bool
	finished bool
}

func newGcsTxn(store *BlobStoreGCS, update bool) *gcsTxn {
	return &gcsTxn{
		store:  store,
		writes: make(map[string][]byte),
		update: update,
	}
}

func (d *BlobStoreGCS) validateTxn(txn types.Txn) (*gcsTxn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	gTxn, ok := txn.(*gcsTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if gTxn.store != d {
		return nil, errors.New("transaction from different store")
	}
	if gTxn.finished {
		return nil, errTxnFinished
	}
	return gTxn, nil
}

func (t *gcsTxn) staged(key []byte) ([]byte, bool) {
	val, ok := t.writes[string(key)]
	return val, ok
}

func (t *gcsTxn) stage(key, val []byte) error {
	if !t.update {
		return errTxnReadOnly
	}
	if _, ok := t.writes[string(key)]; !ok {
		t.order = append(t.order, string(key))
	}
	t.writes[string(key)] = val
	return nil
}

func (t *gcsTxn) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	var timestamp []byte
	hasTimestamp := false
	for _, key := range t.order {
		val := t.writes[key]
		if key == types.CommitTimestampBlobKey {
			timestamp = val
			hasTimestamp = true
			continue
		}
		if err := t.apply([]byte(key), val); err != nil {
			return err
		}
	}
	if hasTimestamp {
		return t.apply([]byte(types.CommitTimestampBlobKey), timestamp)
	}
	return nil
}

func (t *gcsTxn) apply(key, val []byte) error {
	if val == nil {
		return t.store.deleteObject(key)
	}
	return t.store.writeObject(key, val)
}

func (t *gcsTxn) Rollback() error {
	t.finished = true
	t.writes = nil
	t.order = nil
	return nil
}
