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
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	ochainsync "github.com/blinklabs-io/gouroboros/protocol/chainsync"
	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/projector/chainsync"
	"github.com/blinklabs-io/projector/database"
	"github.com/blinklabs-io/projector/database/plugin/blob/badger"
	"github.com/blinklabs-io/projector/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/projector/internal/test/testutil"
	"github.com/blinklabs-io/projector/projection"
)

var testDatabaseCount atomic.Uint32

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	metadataStore, err := sqlite.NewWithOptions(
		sqlite.WithMemoryName(fmt.Sprintf(
			"%s_%d",
			strings.ReplaceAll(t.Name(), "/", "_"),
			testDatabaseCount.Add(1),
		)),
	)
	require.NoError(t, err)
	require.NoError(t, metadataStore.Start())
	blobStore, err := badger.New()
	require.NoError(t, err)
	db, err := database.NewFromStores(nil, metadataStore, blobStore)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// newTestProjector returns a projector with fast retries and its own
// metrics registry
func newTestProjector(
	t *testing.T,
	db *database.Database,
	opts ...projection.ConfigOptionFunc,
) (*projection.Projector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	cfg := projection.NewConfig(
		append(
			[]projection.ConfigOptionFunc{
				projection.WithDatabase(db),
				projection.WithPrometheusRegistry(reg),
				projection.WithRetry(projection.RetryConfig{
					MaxAttempts:     5,
					InitialInterval: time.Millisecond,
					MaxInterval:     5 * time.Millisecond,
				}),
			},
			opts...,
		)...,
	)
	p, err := projection.New(cfg)
	require.NoError(t, err)
	return p, reg
}

func cred(seed byte) chainsync.Credential {
	var c chainsync.Credential
	for i := range c {
		c[i] = seed
	}
	return c
}

func reg(seed byte) chainsync.Certificate {
	return &chainsync.StakeRegistration{StakeCredential: cred(seed)}
}

func dereg(seed byte) chainsync.Certificate {
	return &chainsync.StakeDeregistration{StakeCredential: cred(seed)}
}

// block returns a block at slot holding one transaction with the given
// certificates
func block(slot uint64, certs ...chainsync.Certificate) *chainsync.Block {
	return &chainsync.Block{
		Slot:   slot,
		Hash:   []byte{0xbb, byte(slot)},
		Number: slot,
		Transactions: []chainsync.Transaction{
			{
				Hash:         []byte{0xcc, byte(slot)},
				Valid:        true,
				Certificates: certs,
			},
		},
	}
}

func forward(b *chainsync.Block) chainsync.Event {
	return chainsync.NewRollForwardEvent(
		b,
		ochainsync.Tip{Point: b.Point(), BlockNumber: b.Number},
	)
}

func backward(point ocommon.Point) chainsync.Event {
	return chainsync.NewRollBackwardEvent(point, ochainsync.Tip{})
}

func activeKeys(t *testing.T, db *database.Database) []chainsync.Credential {
	t.Helper()
	keys, err := db.GetStakeKeys(nil)
	require.NoError(t, err)
	ret := make([]chainsync.Credential, 0, len(keys))
	for _, key := range keys {
		ret = append(ret, chainsync.NewCredential(key.StakingKey))
	}
	return ret
}

func storedCheckpoint(t *testing.T, db *database.Database, name string) ocommon.Point {
	t.Helper()
	row, err := db.GetCheckpoint(name, nil)
	require.NoError(t, err)
	return row.Point()
}

// metricValue reads a counter or gauge. When labelValue is set only series
// carrying that label value match.
func metricValue(
	t *testing.T,
	reg *prometheus.Registry,
	name string,
	labelValue string,
) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if labelValue != "" {
				found := false
				for _, label := range metric.GetLabel() {
					if label.GetValue() == labelValue {
						found = true
					}
				}
				if !found {
					continue
				}
			}
			if counter := metric.GetCounter(); counter != nil {
				return counter.GetValue()
			}
			return metric.GetGauge().GetValue()
		}
	}
	return 0
}

// runAsync runs the projector over a channel source and returns the channel
// feeding it along with the run result
func runAsync(
	p *projection.Projector,
) (chan<- chainsync.Event, <-chan error) {
	evtCh := make(chan chainsync.Event)
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Run(context.Background(), chainsync.NewChanSource(evtCh))
	}()
	return evtCh, errCh
}

func waitRun(t *testing.T, errCh <-chan error) error {
	t.Helper()
	return testutil.RequireReceive(t, errCh, 10*time.Second, "projection run did not finish")
}
