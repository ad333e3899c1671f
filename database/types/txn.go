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

package types

import (
	"errors"

	"gorm.io/gorm"
)

// MetadataTxn wraps a gorm transaction and implements Txn. Metadata plugins
// hand these out so the database layer can reach the underlying *gorm.DB.
type MetadataTxn struct {
	db       *gorm.DB
	beginErr error
	finished bool
}

func NewMetadataTxn(db *gorm.DB) *MetadataTxn {
	return &MetadataTxn{db: db}
}

// NewFailedMetadataTxn returns a transaction whose every operation reports
// the error that prevented it from starting
func NewFailedMetadataTxn(err error) *MetadataTxn {
	return &MetadataTxn{beginErr: err}
}

// DB returns the transaction handle, or nil if the transaction failed to
// start or has finished
func (t *MetadataTxn) DB() *gorm.DB {
	if t.beginErr != nil || t.finished {
		return nil
	}
	return t.db
}

// Err returns the error from beginning the transaction
func (t *MetadataTxn) Err() error {
	return t.beginErr
}

func (t *MetadataTxn) Commit() error {
	if t.beginErr != nil {
		return t.beginErr
	}
	if t.finished {
		return nil
	}
	if t.db == nil {
		t.finished = true
		return nil
	}
	if result := t.db.Commit(); result.Error != nil {
		return result.Error
	}
	t.finished = true
	return nil
}

func (t *MetadataTxn) Rollback() error {
	if t.beginErr != nil {
		return t.beginErr
	}
	if t.finished {
		return nil
	}
	if t.db != nil {
		if result := t.db.Rollback(); result.Error != nil {
			return result.Error
		}
	}
	t.finished = true
	return nil
}

// MetadataTxnDB returns the gorm handle behind a metadata transaction
func MetadataTxnDB(txn Txn) (*gorm.DB, error) {
	if txn == nil {
		return nil, ErrNilTxn
	}
	mTxn, ok := txn.(*MetadataTxn)
	if !ok {
		return nil, ErrTxnWrongType
	}
	if err := mTxn.Err(); err != nil {
		return nil, err
	}
	db := mTxn.DB()
	if db == nil {
		return nil, errTxnFinished
	}
	return db, nil
}

var errTxnFinished = errors.New("transaction already finished")
