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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/blinklabs-io/projector/database"
	"github.com/blinklabs-io/projector/event"
)

const (
	DefaultName               = "default"
	DefaultBlocksBufferLength = 10
	// Cardano security parameter
	DefaultUndoDepth = 2160

	DefaultRetryMaxAttempts     = 5
	DefaultRetryInitialInterval = 100 * time.Millisecond
	DefaultRetryMaxInterval     = 5 * time.Second
)

// RetryConfig bounds the exponential backoff applied to transient store
// errors. MaxAttempts counts the first attempt.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

type Config struct {
	promRegistry       prometheus.Registerer
	logger             *slog.Logger
	db                 *database.Database
	eventBus           *event.EventBus
	tracerProvider     trace.TracerProvider
	name               string
	projections        []string
	intersectPoints    []ocommon.Point
	retry              RetryConfig
	blocksBufferLength int
	undoDepth          int
	dropSchema         bool
}

// ConfigOptionFunc is a type that represents functions that modify the projection config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new projection config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:             slog.New(slog.NewJSONHandler(io.Discard, nil)),
		name:               DefaultName,
		projections:        []string{StakeKeysProjectionName},
		blocksBufferLength: DefaultBlocksBufferLength,
		undoDepth:          DefaultUndoDepth,
		retry: RetryConfig{
			MaxAttempts:     DefaultRetryMaxAttempts,
			InitialInterval: DefaultRetryInitialInterval,
			MaxInterval:     DefaultRetryMaxInterval,
		},
		tracerProvider: noop.NewTracerProvider(),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c Config) validate() error {
	if c.db == nil {
		return errors.New("no database provided")
	}
	if c.name == "" || strings.Contains(c.name, "/") {
		return fmt.Errorf("invalid projection name: %q", c.name)
	}
	if len(c.projections) == 0 {
		return errors.New("no projections selected")
	}
	for _, name := range c.projections {
		if _, ok := GetProjection(name); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownProjection, name)
		}
	}
	if c.blocksBufferLength < 1 {
		return fmt.Errorf(
			"invalid blocks buffer length: %d",
			c.blocksBufferLength,
		)
	}
	if c.undoDepth < 1 {
		return fmt.Errorf("invalid undo depth: %d", c.undoDepth)
	}
	if c.retry.MaxAttempts < 1 {
		return fmt.Errorf(
			"invalid retry max attempts: %d",
			c.retry.MaxAttempts,
		)
	}
	return nil
}

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithDatabase specifies the store the projection writes to
func WithDatabase(db *database.Database) ConfigOptionFunc {
	return func(c *Config) {
		c.db = db
	}
}

// WithEventBus specifies the bus that receives checkpoint and rollback
// notifications
func WithEventBus(eventBus *event.EventBus) ConfigOptionFunc {
	return func(c *Config) {
		c.eventBus = eventBus
	}
}

func WithTracerProvider(tp trace.TracerProvider) ConfigOptionFunc {
	return func(c *Config) {
		if tp != nil {
			c.tracerProvider = tp
		}
	}
}

// WithName specifies the run name. The checkpoint and undo log are keyed by
// it, so a restarted run must use the same name to resume.
func WithName(name string) ConfigOptionFunc {
	return func(c *Config) {
		c.name = name
	}
}

// WithProjections selects the named projections to maintain
func WithProjections(names ...string) ConfigOptionFunc {
	return func(c *Config) {
		c.projections = names
	}
}

// WithBlocksBufferLength specifies how many roll forward events are
// buffered before a flush
func WithBlocksBufferLength(length int) ConfigOptionFunc {
	return func(c *Config) {
		c.blocksBufferLength = length
	}
}

// WithUndoDepth specifies how many committed blocks keep an undo record
func WithUndoDepth(depth int) ConfigOptionFunc {
	return func(c *Config) {
		c.undoDepth = depth
	}
}

func WithRetry(retry RetryConfig) ConfigOptionFunc {
	return func(c *Config) {
		c.retry = retry
	}
}

// WithIntersectPoints specifies the points to start from when the run has
// no checkpoint yet
func WithIntersectPoints(points []ocommon.Point) ConfigOptionFunc {
	return func(c *Config) {
		c.intersectPoints = points
	}
}

// WithDropSchema drops all projected data before the run starts. This is
// meant for development and tests only.
func WithDropSchema(dropSchema bool) ConfigOptionFunc {
	return func(c *Config) {
		c.dropSchema = dropSchema
	}
}
