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
	"bytes"
	"encoding/hex"
	"fmt"

	ochainsync "github.com/blinklabs-io/gouroboros/protocol/chainsync"
	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"
)

type EventType uint8

const (
	EventTypeRollForward EventType = iota + 1
	EventTypeRollBackward
)

func (t EventType) String() string {
	switch t {
	case EventTypeRollForward:
		return "RollForward"
	case EventTypeRollBackward:
		return "RollBackward"
	default:
		return fmt.Sprintf("EventType(%d)", uint8(t))
	}
}

// Event is a single chain-sync event. RollForward events carry the block at
// Point, RollBackward events carry only the rollback target.
type Event struct {
	Block *Block
	Tip   ochainsync.Tip
	Point ocommon.Point
	Type  EventType
}

// NewRollForwardEvent returns a RollForward event positioned at the block
func NewRollForwardEvent(block *Block, tip ochainsync.Tip) Event {
	return Event{
		Type:  EventTypeRollForward,
		Point: block.Point(),
		Tip:   tip,
		Block: block,
	}
}

// NewRollBackwardEvent returns a RollBackward event targeting point
func NewRollBackwardEvent(
	point ocommon.Point,
	tip ochainsync.Tip,
) Event {
	return Event{
		Type:  EventTypeRollBackward,
		Point: point,
		Tip:   tip,
	}
}

// Validate checks the structural shape of an event as received from a source
func (e Event) Validate() error {
	switch e.Type {
	case EventTypeRollForward:
		if e.Block == nil {
			return NewMalformedEventError(e.Point, "roll forward without block")
		}
		if !SamePoint(e.Block.Point(), e.Point) {
			return NewMalformedEventError(
				e.Point,
				"block position "+PointString(e.Block.Point())+" does not match event",
			)
		}
		for _, tx := range e.Block.Transactions {
			for _, cert := range tx.Certificates {
				if cert == nil {
					return NewMalformedEventError(e.Point, "nil certificate")
				}
				if !cert.Type().Valid() {
					return NewUnknownCertificateError(uint(cert.Type()))
				}
			}
		}
	case EventTypeRollBackward:
		if e.Block != nil {
			return NewMalformedEventError(e.Point, "roll backward with block")
		}
	default:
		return NewMalformedEventError(
			e.Point,
			"unknown event type "+e.Type.String(),
		)
	}
	return nil
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%s)", e.Type, PointString(e.Point))
}

// SamePoint reports whether two points identify the same chain position
func SamePoint(a, b ocommon.Point) bool {
	return a.Slot == b.Slot && bytes.Equal(a.Hash, b.Hash)
}

// PointString renders a point as slot.hash for logging
func PointString(p ocommon.Point) string {
	if p.Slot == 0 && len(p.Hash) == 0 {
		return "origin"
	}
	return fmt.Sprintf("%d.%s", p.Slot, hex.EncodeToString(p.Hash))
}
