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

package event

// Event types published by projection runs
const (
	ProjectionCheckpointEventType = EventType("projection.checkpoint")
	ProjectionRollbackEventType   = EventType("projection.rollback")
	ProjectionFailedEventType     = EventType("projection.failed")
)

// ProjectionCheckpointEvent is published after a flush commits
type ProjectionCheckpointEvent struct {
	Name        string
	Hash        []byte
	Slot        uint64
	BlockNumber uint64
	// Blocks is the number of blocks applied by the flush
	Blocks int
}

// RollbackScope tells whether a rollback only discarded buffered events or
// also undid committed ones
type RollbackScope string

const (
	RollbackScopeBuffer RollbackScope = "buffer"
	RollbackScopeStore  RollbackScope = "store"
)

// ProjectionRollbackEvent is published after a rollback is applied
type ProjectionRollbackEvent struct {
	Name  string
	Scope RollbackScope
	Hash  []byte
	Slot  uint64
	// Blocks is the number of blocks discarded or undone
	Blocks int
}

// ProjectionFailedEvent is published when a run stops on a terminal error
type ProjectionFailedEvent struct {
	Name  string
	Kind  string
	Error string
	Hash  []byte
	Slot  uint64
}
