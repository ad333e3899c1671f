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

package node

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/blinklabs-io/projector"
	"github.com/blinklabs-io/projector/event"
	"github.com/blinklabs-io/projector/internal/config"
	"github.com/blinklabs-io/projector/internal/server"
	"github.com/blinklabs-io/projector/projection"
)

// NewConfig translates the loaded config into projector options
func NewConfig(
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (projector.Config, error) {
	shutdownTimeout, err := cfg.GetShutdownTimeout()
	if err != nil {
		return projector.Config{}, err
	}
	intersectPoints, err := cfg.Source.IntersectPoints()
	if err != nil {
		return projector.Config{}, err
	}
	nodeNetwork, nodeAddress := cfg.Source.NodeAddress()
	return projector.NewConfig(
		projector.WithLogger(logger),
		projector.WithPrometheusRegistry(promRegistry),
		projector.WithDatabasePath(cfg.Database.DataDir),
		projector.WithBlobPlugin(cfg.Database.BlobPlugin),
		projector.WithMetadataPlugin(cfg.Database.MetadataPlugin),
		projector.WithSourceType(cfg.Source.Type),
		projector.WithNodeAddress(nodeNetwork, nodeAddress),
		projector.WithNetwork(cfg.Source.Network),
		projector.WithNetworkMagic(cfg.Source.NetworkMagic),
		projector.WithReplayFile(cfg.Source.File),
		projector.WithIntersectPoints(intersectPoints),
		projector.WithName(cfg.Name),
		projector.WithProjections(cfg.Projections...),
		projector.WithBlocksBufferLength(cfg.BlocksBufferLength),
		projector.WithUndoDepth(cfg.UndoDepth),
		projector.WithRetry(projection.RetryConfig{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
		}),
		projector.WithDropSchema(cfg.DevOptions.DropSchema),
		projector.WithTracing(cfg.Tracing),
		projector.WithTracingStdout(cfg.TracingStdout),
		projector.WithShutdownTimeout(shutdownTimeout),
	), nil
}

// Run projects chain events until the source ends, a signal arrives or the
// run fails, serving metrics and health checks alongside
func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	shutdownTimeout, err := cfg.GetShutdownTimeout()
	if err != nil {
		return err
	}
	// Enable metrics with default prometheus registry
	nodeCfg, err := NewConfig(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	n, err := projector.New(nodeCfg)
	if err != nil {
		return err
	}
	srv := server.New(server.Config{
		Logger:   logger,
		Gatherer: prometheus.DefaultGatherer,
		Host:     cfg.BindAddr,
		Port:     cfg.MetricsPort,
	})
	n.EventBus().SubscribeFunc(
		event.ProjectionFailedEventType,
		func(event.Event) {
			srv.SetServing(false)
		},
	)

	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	g, gctx := errgroup.WithContext(signalCtx)
	g.Go(srv.Start)
	g.Go(func() error {
		runErr := n.Run(gctx)
		// The server has nothing left to report once the run is over
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
		return runErr
	})
	runErr := g.Wait()
	if signalCtx.Err() != nil {
		logger.Info("signal received, initiating graceful shutdown")
	}
	if err := n.Stop(); err != nil {
		logger.Error("shutdown errors occurred", "error", err)
		if runErr == nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	logger.Info("shutdown complete")
	return nil
}
