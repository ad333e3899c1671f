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

package database

import (
	"database/sql/driver"
	"errors"

	"github.com/dgraph-io/badger/v4"
)

var (
	// ErrCheckpointConflict is returned when the stored checkpoint of a run
	// moved ahead of what the writer expected
	ErrCheckpointConflict = errors.New("checkpoint conflict")
	// ErrUndoNotFound is returned when a projected block has no undo record
	ErrUndoNotFound = errors.New("undo record not found")
)

// IsTransient reports whether an error is a conflict or connection failure
// after which the whole transaction can be retried
func (d *Database) IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCheckpointConflict) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, badger.ErrConflict) {
		return true
	}
	return d.metadata.IsTransient(err)
}
