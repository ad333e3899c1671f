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

package projection

import (
	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"

	"github.com/blinklabs-io/projector/chainsync"
	"github.com/blinklabs-io/projector/operator"
)

// Buffer holds enriched roll forward events that are not committed yet
type Buffer struct {
	events   []operator.Event
	capacity int
}

func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		events:   make([]operator.Event, 0, capacity),
		capacity: capacity,
	}
}

func (b *Buffer) Append(evt operator.Event) {
	b.events = append(b.events, evt)
}

func (b *Buffer) Len() int {
	return len(b.events)
}

func (b *Buffer) Full() bool {
	return len(b.events) >= b.capacity
}

// Events returns the buffered events in chain order. The slice is only
// valid until the buffer is next modified.
func (b *Buffer) Events() []operator.Event {
	return b.events
}

func (b *Buffer) First() (operator.Event, bool) {
	if len(b.events) == 0 {
		return operator.Event{}, false
	}
	return b.events[0], true
}

func (b *Buffer) Last() (operator.Event, bool) {
	if len(b.events) == 0 {
		return operator.Event{}, false
	}
	return b.events[len(b.events)-1], true
}

// Contains reports whether an event at point is buffered
func (b *Buffer) Contains(point ocommon.Point) bool {
	return b.index(point) >= 0
}

// After returns the buffered events after slot
func (b *Buffer) After(slot uint64) []operator.Event {
	for idx, evt := range b.events {
		if evt.Point.Slot > slot {
			return b.events[idx:]
		}
	}
	return nil
}

// TruncateAfter drops every event after point. It returns the number of
// dropped events, and false when point is not buffered.
func (b *Buffer) TruncateAfter(point ocommon.Point) (int, bool) {
	idx := b.index(point)
	if idx < 0 {
		return 0, false
	}
	dropped := len(b.events) - idx - 1
	clear(b.events[idx+1:])
	b.events = b.events[:idx+1]
	return dropped, true
}

// Clear drops every buffered event and returns how many were dropped
func (b *Buffer) Clear() int {
	dropped := len(b.events)
	clear(b.events)
	b.events = b.events[:0]
	return dropped
}

func (b *Buffer) index(point ocommon.Point) int {
	for idx, evt := range b.events {
		if chainsync.SamePoint(evt.Point, point) {
			return idx
		}
	}
	return -1
}
