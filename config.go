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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	ouroboros "github.com/blinklabs-io/gouroboros"
	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/projector/chainsync"
	"github.com/blinklabs-io/projector/projection"
)

const (
	SourceTypeNode   = "node"
	SourceTypeReplay = "replay"

	DefaultShutdownTimeout = 30 * time.Second
)

type Config struct {
	promRegistry       prometheus.Registerer
	logger             *slog.Logger
	source             chainsync.Source
	dataDir            string
	blobPlugin         string
	metadataPlugin     string
	sourceType         string
	nodeNetwork        string
	nodeAddress        string
	network            string
	replayFile         string
	name               string
	projections        []string
	intersectPoints    []ocommon.Point
	retry              projection.RetryConfig
	blocksBufferLength int
	undoDepth          int
	networkMagic       uint32
	dropSchema         bool
	tracing            bool
	tracingStdout      bool
	shutdownTimeout    time.Duration
}

// configPopulateNetworkMagic uses the named network (if specified) to determine the network magic value (if not specified)
func (n *Node) configPopulateNetworkMagic() error {
	if n.config.networkMagic == 0 && n.config.network != "" {
		tmpCfg := n.config
		tmpNetwork, ok := ouroboros.NetworkByName(n.config.network)
		if !ok {
			return fmt.Errorf("unknown network name: %s", n.config.network)
		}
		tmpCfg.networkMagic = tmpNetwork.NetworkMagic
		n.config = tmpCfg
	}
	return nil
}

func (n *Node) configValidate() error {
	// A source provided directly needs no source settings
	if n.config.source != nil {
		return nil
	}
	switch n.config.sourceType {
	case SourceTypeNode:
		if n.config.nodeAddress == "" {
			return errors.New("no node address defined")
		}
		if n.config.networkMagic == 0 {
			return fmt.Errorf(
				"invalid network magic value: %d",
				n.config.networkMagic,
			)
		}
	case SourceTypeReplay:
		if n.config.replayFile == "" {
			return errors.New("no replay file defined")
		}
	default:
		return fmt.Errorf("unknown source type: %q", n.config.sourceType)
	}
	for _, name := range n.config.projections {
		if _, ok := projection.GetProjection(name); !ok {
			return fmt.Errorf("%w: %s", projection.ErrUnknownProjection, name)
		}
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the Node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new projector config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
		sourceType:      SourceTypeNode,
		nodeNetwork:     "unix",
		name:            projection.DefaultName,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithIntersectPoints specifies intersect point(s) used when the run has no checkpoint
func WithIntersectPoints(points []ocommon.Point) ConfigOptionFunc {
	return func(c *Config) {
		c.intersectPoints = points
	}
}

// WithLogger specifies the logger to use. This is not set by default and will result in no logging if not provided
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithSourceType selects how chain events are read: "node" follows a node over
// node-to-client chain sync, "replay" reads a replay file
func WithSourceType(sourceType string) ConfigOptionFunc {
	return func(c *Config) {
		c.sourceType = sourceType
	}
}

// WithSource specifies an already constructed event source. It takes
// precedence over the source type and its settings
func WithSource(source chainsync.Source) ConfigOptionFunc {
	return func(c *Config) {
		c.source = source
	}
}

// WithNodeAddress specifies the network ("unix" or "tcp") and address of the node to follow
func WithNodeAddress(network string, address string) ConfigOptionFunc {
	return func(c *Config) {
		c.nodeNetwork = network
		c.nodeAddress = address
	}
}

// WithNetwork specifies the named network to operate on. This will automatically set the appropriate network magic value
func WithNetwork(network string) ConfigOptionFunc {
	return func(c *Config) {
		c.network = network
	}
}

// WithNetworkMagic specifies the network magic value to use. This will override any named network specified
func WithNetworkMagic(networkMagic uint32) ConfigOptionFunc {
	return func(c *Config) {
		c.networkMagic = networkMagic
	}
}

// WithReplayFile specifies the replay file read by the replay source
func WithReplayFile(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.replayFile = path
	}
}

// WithName specifies the projection run name. Runs with different names keep separate checkpoints
func WithName(name string) ConfigOptionFunc {
	return func(c *Config) {
		c.name = name
	}
}

// WithProjections specifies the named projections to maintain
func WithProjections(names ...string) ConfigOptionFunc {
	return func(c *Config) {
		c.projections = names
	}
}

// WithBlocksBufferLength specifies how many events are buffered before a flush
func WithBlocksBufferLength(length int) ConfigOptionFunc {
	return func(c *Config) {
		c.blocksBufferLength = length
	}
}

// WithUndoDepth specifies how many committed blocks stay undoable
func WithUndoDepth(depth int) ConfigOptionFunc {
	return func(c *Config) {
		c.undoDepth = depth
	}
}

// WithRetry specifies the backoff applied to transient store errors
func WithRetry(retry projection.RetryConfig) ConfigOptionFunc {
	return func(c *Config) {
		c.retry = retry
	}
}

// WithDropSchema drops all projected data before the run starts
func WithDropSchema(dropSchema bool) ConfigOptionFunc {
	return func(c *Config) {
		c.dropSchema = dropSchema
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) OTLP collector at localhost:4318 (or an address specified by the OTEL_EXPORTER_OTLP_ENDPOINT env var)
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}

// projectionOptions translates the node config into projection options.
// Zero values keep the projection defaults.
func (c *Config) projectionOptions() []projection.ConfigOptionFunc {
	ret := []projection.ConfigOptionFunc{
		projection.WithLogger(c.logger),
		projection.WithPrometheusRegistry(c.promRegistry),
		projection.WithName(c.name),
		projection.WithDropSchema(c.dropSchema),
	}
	if len(c.projections) > 0 {
		ret = append(ret, projection.WithProjections(c.projections...))
	}
	if len(c.intersectPoints) > 0 {
		ret = append(ret, projection.WithIntersectPoints(c.intersectPoints))
	}
	if c.blocksBufferLength != 0 {
		ret = append(ret, projection.WithBlocksBufferLength(c.blocksBufferLength))
	}
	if c.undoDepth != 0 {
		ret = append(ret, projection.WithUndoDepth(c.undoDepth))
	}
	if c.retry != (projection.RetryConfig{}) {
		ret = append(ret, projection.WithRetry(c.retry))
	}
	return ret
}
