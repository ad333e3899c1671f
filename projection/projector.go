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

// Package projection materializes chain state into the store. A Projector
// buffers enriched roll forward events, commits them in batches together
// with its checkpoint, and undoes committed blocks on rollback.
package projection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"
	"go.opentelemetry.io/otel/trace"

	"github.com/blinklabs-io/projector/chainsync"
	"github.com/blinklabs-io/projector/database"
	"github.com/blinklabs-io/projector/database/models"
	"github.com/blinklabs-io/projector/event"
	"github.com/blinklabs-io/projector/operator"
)

const tracerName = "github.com/blinklabs-io/projector/projection"

type State int

const (
	StateForward State = iota
	StateRecovering
)

func (s State) String() string {
	switch s {
	case StateForward:
		return "Forward"
	case StateRecovering:
		return "Recovering"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Projector owns the buffer and checkpoint of one projection run
type Projector struct {
	config                Config
	pipeline              *operator.Pipeline
	projections           []Projection
	buffer                *Buffer
	metrics               *projectorMetrics
	tracer                trace.Tracer
	flushHook             func(*database.Txn) error
	checkpoint            ocommon.Point
	checkpointBlockNumber uint64
	hasCheckpoint         bool
	// seen is set once the run handled its first event
	seen    bool
	state   State
	running bool
	mu      sync.Mutex
}

func New(cfg Config) (*Projector, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	pipeline, selected, err := NewPipeline(cfg.projections...)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	p := &Projector{
		config:      cfg,
		pipeline:    pipeline,
		projections: selected,
		buffer:      NewBuffer(cfg.blocksBufferLength),
		tracer:      cfg.tracerProvider.Tracer(tracerName),
	}
	p.initMetrics()
	return p, nil
}

func (p *Projector) Name() string {
	return p.config.name
}

// Pipeline returns the composed operator pipeline
func (p *Projector) Pipeline() *operator.Pipeline {
	return p.pipeline
}

// Checkpoint returns the last committed point
func (p *Projector) Checkpoint() ocommon.Point {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkpoint
}

func (p *Projector) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Projector) setState(state State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
}

func (p *Projector) setCheckpoint(point ocommon.Point, blockNumber uint64) {
	p.mu.Lock()
	p.checkpoint = point
	p.checkpointBlockNumber = blockNumber
	p.hasCheckpoint = true
	p.mu.Unlock()
	p.metrics.checkpointSlot.Set(float64(point.Slot))
}

// loadCheckpoint reads the committed checkpoint of the run from the store
func (p *Projector) loadCheckpoint() error {
	row, err := p.config.db.GetCheckpoint(p.config.name, nil)
	if err != nil {
		if !errors.Is(err, models.ErrCheckpointNotFound) {
			return fmt.Errorf("load checkpoint: %w", err)
		}
		p.mu.Lock()
		p.checkpoint = ocommon.Point{}
		p.checkpointBlockNumber = 0
		p.hasCheckpoint = false
		p.mu.Unlock()
		return nil
	}
	p.setCheckpoint(row.Point(), row.BlockNumber)
	return nil
}

// intersectPoints returns where the source should start: the checkpoint when
// there is one, otherwise the configured points
func (p *Projector) intersectPoints() []ocommon.Point {
	if p.hasCheckpoint {
		ret := []ocommon.Point{p.checkpoint}
		return append(ret, p.config.intersectPoints...)
	}
	return p.config.intersectPoints
}

// Run consumes the source until it is exhausted, the context is cancelled,
// or a terminal error occurs. Buffered events are flushed before returning.
// Any error returned is a *RunError.
func (p *Projector) Run(ctx context.Context, source chainsync.Source) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("projection already running")
	}
	p.running = true
	p.seen = false
	p.state = StateForward
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()
	p.buffer.Clear()
	p.metrics.bufferLength.Set(0)
	if p.config.dropSchema {
		if err := p.config.db.DropSchema(); err != nil {
			return p.fail(fmt.Errorf("drop schema: %w", err))
		}
	}
	if err := p.loadCheckpoint(); err != nil {
		return p.fail(err)
	}
	p.config.logger.Info(
		"starting projection",
		"component", "projection",
		"name", p.config.name,
		"checkpoint", chainsync.PointString(p.checkpoint),
		"operators", p.pipeline.Names(),
	)
	if err := source.Start(ctx, p.intersectPoints()); err != nil {
		return p.fail(fmt.Errorf("start source: %w", err))
	}
	defer func() {
		if err := source.Close(); err != nil {
			p.config.logger.Warn(
				"failed to close source",
				"component", "projection",
				"error", err,
			)
		}
	}()
	for {
		evt, err := source.Next(ctx)
		if err != nil {
			return p.finish(ctx, err)
		}
		if err := p.handleEvent(ctx, evt); err != nil {
			return p.fail(err)
		}
	}
}

// finish flushes what is left in the buffer once the source stops. An
// exhausted source or a cancelled context ends the run cleanly.
func (p *Projector) finish(ctx context.Context, sourceErr error) error {
	// The final flush is not interrupted by cancellation
	if err := p.flush(context.WithoutCancel(ctx)); err != nil {
		return p.fail(errors.Join(err, ignoreStop(ctx, sourceErr)))
	}
	if err := ignoreStop(ctx, sourceErr); err != nil {
		return p.fail(fmt.Errorf("source: %w", err))
	}
	p.config.logger.Info(
		"projection stopped",
		"component", "projection",
		"name", p.config.name,
		"checkpoint", chainsync.PointString(p.Checkpoint()),
	)
	return nil
}

func ignoreStop(ctx context.Context, err error) error {
	if errors.Is(err, io.EOF) ||
		errors.Is(err, chainsync.ErrSourceClosed) ||
		ctx.Err() != nil {
		return nil
	}
	return err
}

// fail wraps a terminal error and publishes it
func (p *Projector) fail(err error) error {
	kind := classify(err)
	checkpoint := p.Checkpoint()
	p.config.logger.Error(
		"projection failed",
		"component", "projection",
		"name", p.config.name,
		"kind", kind.String(),
		"checkpoint", chainsync.PointString(checkpoint),
		"error", err,
	)
	p.publish(
		event.ProjectionFailedEventType,
		event.ProjectionFailedEvent{
			Name:  p.config.name,
			Kind:  kind.String(),
			Error: err.Error(),
			Hash:  checkpoint.Hash,
			Slot:  checkpoint.Slot,
		},
	)
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr
	}
	return NewRunError(kind, checkpoint, err)
}

func (p *Projector) publish(eventType event.EventType, data any) {
	if p.config.eventBus == nil {
		return
	}
	if !p.config.eventBus.PublishAsync(eventType, event.NewEvent(eventType, data)) {
		p.config.logger.Debug(
			"dropped notification",
			"component", "projection",
			"type", string(eventType),
		)
	}
}

func (p *Projector) handleEvent(ctx context.Context, evt chainsync.Event) error {
	p.metrics.events.WithLabelValues(evt.Type.String()).Inc()
	if err := evt.Validate(); err != nil {
		return err
	}
	defer func() {
		p.seen = true
	}()
	switch evt.Type {
	case chainsync.EventTypeRollForward:
		return p.rollForward(ctx, evt)
	case chainsync.EventTypeRollBackward:
		return p.rollBackward(ctx, evt.Point)
	}
	return nil
}

func (p *Projector) rollForward(ctx context.Context, evt chainsync.Event) error {
	// Committed by an earlier run
	if p.hasCheckpoint && !isOrigin(p.checkpoint) &&
		evt.Point.Slot <= p.checkpoint.Slot {
		p.config.logger.Debug(
			"skipping committed event",
			"component", "projection",
			"slot", evt.Point.Slot,
			"checkpoint", chainsync.PointString(p.checkpoint),
		)
		return nil
	}
	if last, ok := p.buffer.Last(); ok && evt.Point.Slot <= last.Point.Slot {
		return fmt.Errorf(
			"%w: %s after %s",
			ErrOutOfOrder,
			chainsync.PointString(evt.Point),
			chainsync.PointString(last.Point),
		)
	}
	enriched, err := p.pipeline.Apply(evt)
	if err != nil {
		return err
	}
	p.buffer.Append(enriched)
	p.metrics.bufferLength.Set(float64(p.buffer.Len()))
	if p.buffer.Full() {
		return p.flush(ctx)
	}
	return nil
}

func isOrigin(point ocommon.Point) bool {
	return point.Slot == 0 && len(point.Hash) == 0
}
