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

package projection

import (
	"context"
	"errors"
	"fmt"
	"time"

	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/blinklabs-io/projector/chainsync"
	"github.com/blinklabs-io/projector/database"
	"github.com/blinklabs-io/projector/database/models"
	"github.com/blinklabs-io/projector/event"
	"github.com/blinklabs-io/projector/operator"
)

// flush commits the buffered events and the new checkpoint in one
// transaction, retrying the whole transaction on transient errors
func (p *Projector) flush(ctx context.Context) error {
	if p.buffer.Len() == 0 {
		return nil
	}
	ctx, span := p.tracer.Start(
		ctx,
		"projection.flush",
		trace.WithAttributes(
			attribute.String("projection.name", p.config.name),
			attribute.Int("projection.events", p.buffer.Len()),
		),
	)
	defer span.End()
	start := time.Now()
	var committed []operator.Event
	err := p.withRetry(ctx, "flush", func() error {
		committed = nil
		txn := p.config.db.Transaction(true)
		return txn.Do(func(txn *database.Txn) error {
			var err error
			committed, err = p.writeBatch(txn)
			return err
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "flush failed")
		return err
	}
	p.metrics.flushDuration.Observe(time.Since(start).Seconds())
	p.metrics.flushes.Inc()
	if len(committed) > 0 {
		last := committed[len(committed)-1]
		p.setCheckpoint(last.Point, last.Block.Number)
		span.SetAttributes(attribute.Int64("projection.slot", int64(last.Point.Slot))) //nolint:gosec
		p.config.logger.Debug(
			"flushed events",
			"component", "projection",
			"name", p.config.name,
			"events", len(committed),
			"checkpoint", chainsync.PointString(last.Point),
		)
		p.publish(
			event.ProjectionCheckpointEventType,
			event.ProjectionCheckpointEvent{
				Name:        p.config.name,
				Hash:        last.Point.Hash,
				Slot:        last.Point.Slot,
				BlockNumber: last.Block.Number,
				Blocks:      len(committed),
			},
		)
	}
	p.buffer.Clear()
	p.metrics.bufferLength.Set(0)
	return nil
}

// writeBatch applies the buffered events that are newer than the checkpoint
// and returns them
func (p *Projector) writeBatch(txn *database.Txn) ([]operator.Event, error) {
	if err := p.checkStoredCheckpoint(txn); err != nil {
		return nil, err
	}
	pending := p.buffer.Events()
	if p.hasCheckpoint && !isOrigin(p.checkpoint) {
		pending = p.buffer.After(p.checkpoint.Slot)
	}
	if len(pending) == 0 {
		return nil, nil
	}
	for _, evt := range pending {
		if err := p.applyEvent(evt, txn); err != nil {
			return nil, err
		}
		if err := p.config.db.AddUndoRecord(
			p.config.name,
			evt.Block,
			txn,
		); err != nil {
			return nil, fmt.Errorf("add undo record: %w", err)
		}
	}
	last := pending[len(pending)-1]
	if err := p.config.db.SetCheckpoint(
		p.config.name,
		last.Point,
		last.Block.Number,
		txn,
	); err != nil {
		return nil, fmt.Errorf("set checkpoint: %w", err)
	}
	pruned, err := p.config.db.PruneUndoRecords(
		p.config.name,
		p.config.undoDepth,
		txn,
	)
	if err != nil {
		return nil, fmt.Errorf("prune undo records: %w", err)
	}
	if pruned > 0 {
		p.config.logger.Debug(
			"pruned undo records",
			"component", "projection",
			"name", p.config.name,
			"count", pruned,
		)
	}
	if p.flushHook != nil {
		if err := p.flushHook(txn); err != nil {
			return nil, err
		}
	}
	return pending, nil
}

func (p *Projector) applyEvent(evt operator.Event, txn *database.Txn) error {
	for _, projection := range p.projections {
		if err := projection.Apply(p.config.db, evt, txn); err != nil {
			return fmt.Errorf(
				"projection %s at %s: %w",
				projection.Name,
				chainsync.PointString(evt.Point),
				err,
			)
		}
	}
	return nil
}

// checkStoredCheckpoint locks the checkpoint row and compares it with the
// checkpoint this run expects. A store that moved ahead without passing the
// buffered events is a conflict, anything else is a divergence.
func (p *Projector) checkStoredCheckpoint(txn *database.Txn) error {
	stored := ocommon.Point{}
	row, err := p.config.db.LockCheckpoint(p.config.name, txn)
	if err != nil {
		if !errors.Is(err, models.ErrCheckpointNotFound) {
			return fmt.Errorf("lock checkpoint: %w", err)
		}
	} else {
		stored = row.Point()
	}
	if chainsync.SamePoint(stored, p.checkpoint) {
		return nil
	}
	if stored.Slot > p.checkpoint.Slot {
		first, ok := p.buffer.First()
		if !ok || stored.Slot < first.Point.Slot ||
			p.buffer.Contains(stored) {
			return fmt.Errorf(
				"%w: stored %s, expected %s",
				database.ErrCheckpointConflict,
				chainsync.PointString(stored),
				chainsync.PointString(p.checkpoint),
			)
		}
	}
	return fmt.Errorf(
		"%w: stored checkpoint %s, expected %s",
		ErrDivergence,
		chainsync.PointString(stored),
		chainsync.PointString(p.checkpoint),
	)
}

// withRetry runs fn until it succeeds, fails with a non-transient error, or
// the retry budget is used up. A checkpoint conflict refreshes the expected
// checkpoint before the next attempt. Cancelling ctx does not interrupt the
// retries; the run stops once the write has settled.
func (p *Projector) withRetry(
	ctx context.Context,
	op string,
	fn func() error,
) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.config.retry.InitialInterval
	if p.config.retry.MaxInterval > 0 {
		bo.MaxInterval = p.config.retry.MaxInterval
	}
	bo.MaxElapsedTime = 0
	attempt := 0
	err := backoff.RetryNotify(
		func() error {
			attempt++
			err := fn()
			if err == nil {
				return nil
			}
			if !p.config.db.IsTransient(err) {
				return backoff.Permanent(err)
			}
			if errors.Is(err, database.ErrCheckpointConflict) {
				if loadErr := p.loadCheckpoint(); loadErr != nil {
					return backoff.Permanent(errors.Join(err, loadErr))
				}
			}
			return err
		},
		backoff.WithContext(
			backoff.WithMaxRetries(
				bo,
				uint64(p.config.retry.MaxAttempts-1), //nolint:gosec
			),
			context.WithoutCancel(ctx),
		),
		func(err error, delay time.Duration) {
			p.metrics.flushRetries.Inc()
			p.config.logger.Warn(
				"retrying after transient error",
				"component", "projection",
				"name", p.config.name,
				"op", op,
				"attempt", attempt,
				"delay", delay.String(),
				"error", err,
			)
		},
	)
	if err != nil && p.config.db.IsTransient(err) {
		return fmt.Errorf(
			"%w: %s failed after %d attempts: %w",
			ErrRetryExhausted,
			op,
			attempt,
			err,
		)
	}
	return err
}
