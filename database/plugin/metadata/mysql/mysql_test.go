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

package mysql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	m, err := NewWithOptions(
		WithDSN(" projector:secret@tcp(db.local:3307)/chain "),
		WithMaxConns(2),
	)
	require.NoError(t, err)
	assert.Equal(t, 2, m.maxConns)
	cfg, err := m.config()
	require.NoError(t, err)
	assert.Equal(t, "db.local:3307", cfg.Addr)
	assert.Equal(t, "projector", cfg.User)
	assert.Equal(t, "chain", cfg.DBName)
	assert.True(t, cfg.ParseTime)

	// The database defaults when the DSN names none
	m, err = NewWithOptions(WithDSN("u:p@tcp(h:3306)/"))
	require.NoError(t, err)
	cfg, err = m.config()
	require.NoError(t, err)
	assert.Equal(t, defaultDatabase, cfg.DBName)
}

func TestMissingDSN(t *testing.T) {
	m, err := NewWithOptions()
	require.NoError(t, err)
	assert.Equal(t, defaultMaxConns, m.maxConns)
	require.ErrorIs(t, m.Start(), ErrMissingDSN)

	m, err = NewWithOptions(WithDSN("not a dsn"))
	require.NoError(t, err)
	_, err = m.config()
	require.Error(t, err)
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "`projector`", quoteIdentifier("projector"))
	assert.Equal(t, "`a``b`", quoteIdentifier("a`b"))
}

func TestIsTransient(t *testing.T) {
	m, err := NewWithOptions()
	require.NoError(t, err)
	assert.True(t, m.SupportsRowLocking())
	assert.True(t, m.IsTransient(&mysql.MySQLError{Number: 1213}))
	assert.True(t, m.IsTransient(fmt.Errorf("flush: %w", &mysql.MySQLError{Number: 1205})))
	assert.False(t, m.IsTransient(&mysql.MySQLError{Number: 1062}))
	assert.True(t, m.IsTransient(mysql.ErrInvalidConn))
	assert.False(t, m.IsTransient(errors.New("boom")))
}
