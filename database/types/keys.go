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
	"slices"
)

const (
	UndoBlobKeyPrefix          = "ub"
	UndoHorizonBlobKeyPrefix   = "uh"
	CommitTimestampBlobKey     = "metadata_commit_timestamp"
	ProjectionBlobKeySeparator = "/"
)

// UndoBlobKey returns the blob key of the undo record for a block projected
// by the named run
func UndoBlobKey(name string, hash []byte) []byte {
	return slices.Concat(UndoBlobKeyRunPrefix(name), hash)
}

// UndoBlobKeyRunPrefix returns the key prefix shared by every undo record of
// the named run
func UndoBlobKeyRunPrefix(name string) []byte {
	return slices.Concat(
		[]byte(UndoBlobKeyPrefix),
		[]byte(name),
		[]byte(ProjectionBlobKeySeparator),
	)
}

// UndoHorizonBlobKey returns the blob key holding the newest slot whose undo
// record was pruned for the named run
func UndoHorizonBlobKey(name string) []byte {
	return slices.Concat([]byte(UndoHorizonBlobKeyPrefix), []byte(name))
}
