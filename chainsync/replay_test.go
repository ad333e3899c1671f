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

package chainsync_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/projector/chainsync"
)

func TestReplaySourceEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.replay")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	src := chainsync.NewReplaySource(path)
	require.NoError(t, src.Start(context.Background(), nil))
	defer src.Close()
	_, err := src.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
}

func TestReplaySourceTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, chainsync.WriteReplayRecord(&buf, 7, []byte{0x80}))
	data := buf.Bytes()
	path := filepath.Join(t.TempDir(), "truncated.replay")
	require.NoError(t, os.WriteFile(path, data[:len(data)-1], 0o600))
	src := chainsync.NewReplaySource(path)
	require.NoError(t, src.Start(context.Background(), nil))
	defer src.Close()
	_, err := src.Next(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, io.EOF)
}

func TestReplaySourceInvalidBlock(t *testing.T) {
	var buf bytes.Buffer
	// Valid record framing around a block body that cannot be decoded
	require.NoError(t, chainsync.WriteReplayRecord(&buf, 7, []byte{0x80}))
	path := filepath.Join(t.TempDir(), "invalid.replay")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	src := chainsync.NewReplaySource(path)
	require.NoError(t, src.Start(context.Background(), nil))
	defer src.Close()
	_, err := src.Next(context.Background())
	require.Error(t, err)
}

func TestReplaySourceNotStarted(t *testing.T) {
	src := chainsync.NewReplaySource("unused")
	_, err := src.Next(context.Background())
	require.Error(t, err)
}
