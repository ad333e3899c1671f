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
	"context"
	"io"
	"sync"

	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"
)

// Source supplies chain-sync events in chain order. Start positions the
// source at the most recent of the given intersect points (origin when
// empty). Next blocks until an event is available and returns io.EOF once
// the source is exhausted.
type Source interface {
	Start(ctx context.Context, intersect []ocommon.Point) error
	Next(ctx context.Context) (Event, error)
	Close() error
}

// SliceSource replays a fixed list of events
type SliceSource struct {
	events []Event
	pos    int
	mu     sync.Mutex
}

func NewSliceSource(events ...Event) *SliceSource {
	return &SliceSource{events: events}
}

// Start skips events up to and including the most recent intersect point
// found in the list
func (s *SliceSource) Start(_ context.Context, intersect []ocommon.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = 0
	for _, point := range intersect {
		for idx, evt := range s.events {
			if evt.Type == EventTypeRollForward && SamePoint(evt.Point, point) {
				s.pos = idx + 1
				return nil
			}
		}
	}
	return nil
}

func (s *SliceSource) Next(ctx context.Context) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.events) {
		return Event{}, io.EOF
	}
	evt := s.events[s.pos]
	s.pos++
	return evt, nil
}

func (s *SliceSource) Close() error {
	return nil
}

// ChanSource adapts a push-based producer. The producer closes the channel
// to signal the end of the stream.
type ChanSource struct {
	eventChan <-chan Event
}

func NewChanSource(eventChan <-chan Event) *ChanSource {
	return &ChanSource{eventChan: eventChan}
}

// Start is a no-op: the producer decides where its stream begins
func (s *ChanSource) Start(context.Context, []ocommon.Point) error {
	return nil
}

func (s *ChanSource) Next(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case evt, ok := <-s.eventChan:
		if !ok {
			return Event{}, io.EOF
		}
		return evt, nil
	}
}

func (s *ChanSource) Close() error {
	return nil
}
