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

package projection_test

import (
	"testing"

	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/projector/operator"
	"github.com/blinklabs-io/projector/projection"
)

func bufferedEvent(slot uint64) operator.Event {
	return operator.NewEvent(forward(block(slot)))
}

func TestBuffer(t *testing.T) {
	b := projection.NewBuffer(3)
	_, ok := b.Last()
	assert.False(t, ok)
	for _, slot := range []uint64{10, 20, 30} {
		assert.False(t, b.Full())
		b.Append(bufferedEvent(slot))
	}
	assert.True(t, b.Full())
	assert.Equal(t, 3, b.Len())
	first, ok := b.First()
	require.True(t, ok)
	assert.Equal(t, uint64(10), first.Point.Slot)
	assert.True(t, b.Contains(block(20).Point()))
	assert.False(t, b.Contains(ocommon.NewPoint(20, []byte{0x01})))

	after := b.After(15)
	require.Len(t, after, 2)
	assert.Equal(t, uint64(20), after[0].Point.Slot)
	assert.Empty(t, b.After(30))

	dropped, ok := b.TruncateAfter(ocommon.NewPoint(20, []byte{0x01}))
	assert.False(t, ok)
	assert.Equal(t, 0, dropped)
	dropped, ok = b.TruncateAfter(block(10).Point())
	assert.True(t, ok)
	assert.Equal(t, 2, dropped)
	last, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, uint64(10), last.Point.Slot)

	// Truncating at the last event drops nothing
	dropped, ok = b.TruncateAfter(block(10).Point())
	assert.True(t, ok)
	assert.Equal(t, 0, dropped)

	assert.Equal(t, 1, b.Clear())
	assert.Equal(t, 0, b.Len())
}
