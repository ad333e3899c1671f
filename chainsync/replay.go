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
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/blinklabs-io/gouroboros/cbor"
	ochainsync "github.com/blinklabs-io/gouroboros/protocol/chainsync"
	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"
)

// Maximum accepted size of one replay record
const maxReplayRecordSize = 64 << 20

// replayRecord is one block in a replay file
type replayRecord struct {
	cbor.StructAsArray
	BlockCbor []byte
	BlockType uint
}

// ReplaySource emits RollForward events for blocks stored in a replay file.
// The file is a sequence of records, each a big-endian uint32 length followed
// by a CBOR array of [block CBOR, block type].
type ReplaySource struct {
	file   *os.File
	reader *bufio.Reader
	skipTo *ocommon.Point
	path   string
}

func NewReplaySource(path string) *ReplaySource {
	return &ReplaySource{path: path}
}

func (s *ReplaySource) Start(
	_ context.Context,
	intersect []ocommon.Point,
) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open replay file: %w", err)
	}
	s.file = f
	s.reader = bufio.NewReader(f)
	if len(intersect) > 0 && intersect[0].Slot > 0 {
		s.skipTo = &intersect[0]
	}
	return nil
}

func (s *ReplaySource) Next(ctx context.Context) (Event, error) {
	if s.reader == nil {
		return Event{}, errors.New("replay source not started")
	}
	for {
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		block, err := s.readBlock()
		if err != nil {
			return Event{}, err
		}
		if s.skipTo != nil {
			if block.Slot <= s.skipTo.Slot {
				continue
			}
			s.skipTo = nil
		}
		tip := ochainsync.Tip{
			Point:       block.Point(),
			BlockNumber: block.Number,
		}
		return NewRollForwardEvent(block, tip), nil
	}
}

func (s *ReplaySource) readBlock() (*Block, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(s.reader, lenBuf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("truncated replay record: %w", err)
		}
		// Clean io.EOF ends the stream
		return nil, err
	}
	size := binary.BigEndian.Uint32(lenBuf[:])
	if size > maxReplayRecordSize {
		return nil, fmt.Errorf("replay record too large: %d bytes", size)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(s.reader, data); err != nil {
		return nil, fmt.Errorf("truncated replay record: %w", err)
	}
	var rec replayRecord
	if _, err := cbor.Decode(data, &rec); err != nil {
		return nil, fmt.Errorf("decode replay record: %w", err)
	}
	return NewBlockFromCbor(rec.BlockType, rec.BlockCbor)
}

func (s *ReplaySource) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

// WriteReplayRecord appends one block to a replay stream
func WriteReplayRecord(w io.Writer, blockType uint, blockCbor []byte) error {
	data, err := cbor.Encode(&replayRecord{
		BlockType: blockType,
		BlockCbor: blockCbor,
	})
	if err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data))) //nolint:gosec
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
