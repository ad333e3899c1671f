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

package projector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/blinklabs-io/projector/chainsync"
	"github.com/blinklabs-io/projector/database"
	"github.com/blinklabs-io/projector/event"
	"github.com/blinklabs-io/projector/projection"
)

// Node wires the store, the event bus, the event source and a projection
// run together
type Node struct {
	db             *database.Database
	eventBus       *event.EventBus
	projector      *projection.Projector
	tracerProvider trace.TracerProvider
	shutdownFuncs  []func(context.Context) error
	config         Config
	mu             sync.Mutex
	shutdownOnce   sync.Once
}

func New(cfg Config) (*Node, error) {
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
	}
	if err := n.configPopulateNetworkMagic(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

// EventBus returns the bus carrying projection notifications
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// Projector returns the projection run, or nil before Run has set it up
func (n *Node) Projector() *projection.Projector {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.projector
}

// Run opens the store and projects events from the configured source until
// the source is exhausted, the context is cancelled or the run fails
func (n *Node) Run(ctx context.Context) error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	dbConfig := &database.Config{
		DataDir:        n.config.dataDir,
		Logger:         n.config.logger,
		PromRegistry:   n.config.promRegistry,
		BlobPlugin:     n.config.blobPlugin,
		MetadataPlugin: n.config.metadataPlugin,
	}
	db, err := database.New(dbConfig)
	if db == nil {
		if err == nil {
			err = errors.New("empty database returned")
		}
		n.config.logger.Error(
			"failed to create database",
			"error", err,
		)
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.mu.Lock()
	n.db = db
	n.mu.Unlock()
	if err != nil {
		var dbErr database.CommitTimestampError
		if !errors.As(err, &dbErr) {
			return fmt.Errorf("failed to open database: %w", err)
		}
		// Dropping the schema discards both stores, which also resolves the mismatch
		if !n.config.dropSchema {
			return fmt.Errorf(
				"database needs recovery, re-run with dropSchema enabled: %w",
				err,
			)
		}
		n.config.logger.Warn(
			"database initialization error, dropping schema",
			"error", err,
		)
	}
	source, err := n.newSource()
	if err != nil {
		return err
	}
	opts := append(
		n.config.projectionOptions(),
		projection.WithDatabase(db),
		projection.WithEventBus(n.eventBus),
		projection.WithTracerProvider(n.tracerProvider),
	)
	p, err := projection.New(projection.NewConfig(opts...))
	if err != nil {
		return fmt.Errorf("failed to create projection: %w", err)
	}
	n.mu.Lock()
	n.projector = p
	n.mu.Unlock()
	return p.Run(ctx, source)
}

func (n *Node) newSource() (chainsync.Source, error) {
	if n.config.source != nil {
		return n.config.source, nil
	}
	switch n.config.sourceType {
	case SourceTypeReplay:
		return chainsync.NewReplaySource(n.config.replayFile), nil
	case SourceTypeNode:
		source, err := chainsync.NewNodeSource(
			chainsync.WithNodeAddress(
				n.config.nodeNetwork,
				n.config.nodeAddress,
			),
			chainsync.WithNetworkMagic(n.config.networkMagic),
			chainsync.WithLogger(n.config.logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create node source: %w", err)
		}
		return source, nil
	default:
		return nil, fmt.Errorf("unknown source type: %q", n.config.sourceType)
	}
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := DefaultShutdownTimeout
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop delivering notifications
	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	// Phase 2: Close database
	n.mu.Lock()
	db := n.db
	n.db = nil
	n.mu.Unlock()
	if db != nil {
		if closeErr := db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 3: Cleanup resources
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	n.config.logger.Debug("graceful shutdown complete")
	return err
}
