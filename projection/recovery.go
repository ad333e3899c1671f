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

	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/blinklabs-io/projector/chainsync"
	"github.com/blinklabs-io/projector/database"
	"github.com/blinklabs-io/projector/database/models"
	"github.com/blinklabs-io/projector/event"
)

// rollBackward moves the run back to point. Buffered events after the point
// are dropped, and committed blocks after it are undone in one transaction.
func (p *Projector) rollBackward(ctx context.Context, point ocommon.Point) error {
	p.setState(StateRecovering)
	defer p.setState(StateForward)
	if dropped, ok := p.buffer.TruncateAfter(point); ok {
		p.metrics.bufferLength.Set(float64(p.buffer.Len()))
		p.rolledBack(event.RollbackScopeBuffer, point, dropped)
		return nil
	}
	if chainsync.SamePoint(point, p.checkpoint) {
		dropped := p.buffer.Clear()
		p.metrics.bufferLength.Set(0)
		p.rolledBack(event.RollbackScopeBuffer, point, dropped)
		return nil
	}
	// A fresh run is told where the source intersected
	if !p.seen && !p.hasCheckpoint && p.buffer.Len() == 0 {
		p.config.logger.Debug(
			"source intersected",
			"component", "projection",
			"point", chainsync.PointString(point),
		)
		return nil
	}
	if !isOrigin(point) && point.Slot >= p.checkpoint.Slot {
		return fmt.Errorf(
			"%w: rollback to unknown point %s",
			ErrDivergence,
			chainsync.PointString(point),
		)
	}
	p.buffer.Clear()
	p.metrics.bufferLength.Set(0)
	undone, err := p.undo(ctx, point)
	if err != nil {
		return err
	}
	p.rolledBack(event.RollbackScopeStore, point, undone)
	return nil
}

func (p *Projector) rolledBack(
	scope event.RollbackScope,
	point ocommon.Point,
	blocks int,
) {
	p.metrics.rollbacks.WithLabelValues(string(scope)).Inc()
	p.config.logger.Info(
		"rolled back",
		"component", "projection",
		"name", p.config.name,
		"scope", string(scope),
		"point", chainsync.PointString(point),
		"blocks", blocks,
	)
	p.publish(
		event.ProjectionRollbackEventType,
		event.ProjectionRollbackEvent{
			Name:   p.config.name,
			Scope:  scope,
			Hash:   point.Hash,
			Slot:   point.Slot,
			Blocks: blocks,
		},
	)
}

// undo reverts the committed blocks after target and moves the checkpoint
// to it. It returns the number of blocks undone.
func (p *Projector) undo(ctx context.Context, target ocommon.Point) (int, error) {
	ctx, span := p.tracer.Start(
		ctx,
		"projection.rollback",
		trace.WithAttributes(
			attribute.String("projection.name", p.config.name),
			attribute.String("projection.target", chainsync.PointString(target)),
		),
	)
	defer span.End()
	var undone int
	var targetNumber uint64
	err := p.withRetry(ctx, "rollback", func() error {
		undone = 0
		txn := p.config.db.Transaction(true)
		return txn.Do(func(txn *database.Txn) error {
			var err error
			undone, targetNumber, err = p.undoBlocks(txn, target)
			return err
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rollback failed")
		return 0, err
	}
	span.SetAttributes(attribute.Int("projection.blocks", undone))
	p.setCheckpoint(target, targetNumber)
	return undone, nil
}

func (p *Projector) undoBlocks(
	txn *database.Txn,
	target ocommon.Point,
) (int, uint64, error) {
	if err := p.checkStoredCheckpoint(txn); err != nil {
		return 0, 0, err
	}
	var targetNumber uint64
	if isOrigin(target) {
		_, pruned, err := p.config.db.GetUndoHorizon(p.config.name, txn)
		if err != nil {
			return 0, 0, err
		}
		if pruned {
			return 0, 0, fmt.Errorf(
				"%w: rollback to origin beyond undo depth",
				ErrDivergence,
			)
		}
	} else {
		row, err := p.config.db.GetProjectedBlock(
			p.config.name,
			target.Hash,
			txn,
		)
		if err != nil {
			if errors.Is(err, models.ErrProjectedBlockNotFound) {
				return 0, 0, fmt.Errorf(
					"%w: rollback target %s is not a recorded block",
					ErrDivergence,
					chainsync.PointString(target),
				)
			}
			return 0, 0, err
		}
		if row.Slot != target.Slot {
			return 0, 0, fmt.Errorf(
				"%w: rollback target %s recorded at slot %d",
				ErrDivergence,
				chainsync.PointString(target),
				row.Slot,
			)
		}
		targetNumber = row.Number
	}
	var (
		blocks []models.ProjectedBlock
		err    error
	)
	if isOrigin(target) {
		// Everything goes, including a block at slot 0
		blocks, err = p.config.db.GetProjectedBlocks(p.config.name, txn)
	} else {
		blocks, err = p.config.db.GetProjectedBlocksAfter(
			p.config.name,
			target.Slot,
			txn,
		)
	}
	if err != nil {
		return 0, 0, err
	}
	// Newest first
	for _, row := range blocks {
		block, err := p.config.db.GetUndoRecord(p.config.name, row.Hash, txn)
		if err != nil {
			return 0, 0, err
		}
		evt, err := p.pipeline.Apply(chainsync.Event{
			Type:  chainsync.EventTypeRollBackward,
			Point: block.Point(),
			Block: block,
		})
		if err != nil {
			return 0, 0, err
		}
		if err := p.applyEvent(evt, txn); err != nil {
			return 0, 0, err
		}
		if err := p.config.db.DeleteUndoRecord(
			p.config.name,
			row.Hash,
			txn,
		); err != nil {
			return 0, 0, err
		}
	}
	if err := p.config.db.SetCheckpoint(
		p.config.name,
		target,
		targetNumber,
		txn,
	); err != nil {
		return 0, 0, fmt.Errorf("set checkpoint: %w", err)
	}
	return len(blocks), targetNumber, nil
}
