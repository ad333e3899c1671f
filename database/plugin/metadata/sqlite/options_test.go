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

package sqlite

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	m := &MetadataStoreSqlite{}
	for _, opt := range []SqliteOptionFunc{
		WithDataDir("/tmp/test"),
		WithLogger(logger),
		WithMemoryName("mem"),
		WithBusyTimeout(250 * time.Millisecond),
		WithVacuum(false),
	} {
		opt(m)
	}
	assert.Equal(t, "/tmp/test", m.dataDir)
	assert.Same(t, logger, m.logger)
	assert.Equal(t, "mem", m.memoryName)
	assert.True(t, m.noVacuum)
	assert.Equal(
		t,
		"file:/tmp/test/metadata.sqlite?_pragma=journal_mode(WAL)&_pragma=busy_timeout(250)&_pragma=cache_size(-50000)",
		m.fileDSN(),
	)
}

func TestNewWithOptionsDefaults(t *testing.T) {
	m, err := NewWithOptions()
	assert.NoError(t, err)
	assert.Equal(t, defaultMemoryName, m.memoryName)
	assert.Equal(t, defaultBusyTimeout, m.busyTimeout)
	assert.False(t, m.noVacuum)
	assert.NotNil(t, m.logger)
}
