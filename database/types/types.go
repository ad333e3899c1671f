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
	"database/sql/driver"
	"errors"
	"fmt"
	"math/big"
	"strconv"
)

//nolint:recvcheck
type Uint64 uint64

func (u Uint64) Value() (driver.Value, error) {
	return strconv.FormatUint(uint64(u), 10), nil
}

func (u *Uint64) Scan(val any) error {
	v, err := scanString(val)
	if err != nil {
		return err
	}
	tmpUint, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return err
	}
	*u = Uint64(tmpUint)
	return nil
}

// Int is an arbitrary precision integer stored as its decimal string. Asset
// supply sums can exceed the range of a signed 64-bit column.
//
//nolint:recvcheck
type Int struct {
	*big.Int
}

func NewInt(v int64) Int {
	return Int{Int: big.NewInt(v)}
}

func (i Int) Value() (driver.Value, error) {
	if i.Int == nil {
		return "0", nil
	}
	return i.String(), nil
}

func (i *Int) Scan(val any) error {
	if i.Int == nil {
		i.Int = new(big.Int)
	}
	v, err := scanString(val)
	if err != nil {
		return err
	}
	if _, ok := i.SetString(v, 10); !ok {
		return fmt.Errorf("failed to set big.Int value from string: %s", v)
	}
	return nil
}

// scanString accepts the string forms returned by the supported SQL drivers
func scanString(val any) (string, error) {
	switch v := val.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
}

// ErrBlobKeyNotFound is returned by blob operations when a key is missing
var ErrBlobKeyNotFound = errors.New("blob key not found")

// ErrTxnWrongType is returned when a transaction has the wrong type
var ErrTxnWrongType = errors.New("invalid transaction type")

// ErrNilTxn is returned when a nil transaction is provided where a valid transaction is required
var ErrNilTxn = errors.New("nil transaction")

// ErrNoStoreAvailable is returned when no blob or metadata store is available
var ErrNoStoreAvailable = errors.New("no store available")

// Txn is a simple transaction handle for commit/rollback only.
// Database layer (Txn) coordinates metadata and blob operations separately.
type Txn interface {
	Commit() error
	Rollback() error
}
