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

package chainsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	ouroboros "github.com/blinklabs-io/gouroboros"
	"github.com/blinklabs-io/gouroboros/ledger"
	ochainsync "github.com/blinklabs-io/gouroboros/protocol/chainsync"
	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"
)

const defaultDialTimeout = 30 * time.Second

// NodeSource follows a node over the node-to-client chain-sync protocol.
// Protocol callbacks block until the consumer takes the event, so the node
// is not asked for more while the consumer is busy.
type NodeSource struct {
	logger       *slog.Logger
	conn         *ouroboros.Connection
	eventChan    chan Event
	errChan      chan error
	doneChan     chan struct{}
	network      string
	address      string
	networkMagic uint32
	dialTimeout  time.Duration
	dialFunc     DialFunc
	closeOnce    sync.Once
}

// DialFunc opens the connection to the node
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

type NodeSourceOptionFunc func(*NodeSource)

// WithNodeAddress sets the network ("unix" or "tcp") and address of the node
func WithNodeAddress(network string, address string) NodeSourceOptionFunc {
	return func(s *NodeSource) {
		s.network = network
		s.address = address
	}
}

func WithNetworkMagic(networkMagic uint32) NodeSourceOptionFunc {
	return func(s *NodeSource) {
		s.networkMagic = networkMagic
	}
}

func WithDialTimeout(timeout time.Duration) NodeSourceOptionFunc {
	return func(s *NodeSource) {
		s.dialTimeout = timeout
	}
}

// WithDialFunc replaces the default dialer, which honors the dial timeout
func WithDialFunc(dialFunc DialFunc) NodeSourceOptionFunc {
	return func(s *NodeSource) {
		s.dialFunc = dialFunc
	}
}

func WithLogger(logger *slog.Logger) NodeSourceOptionFunc {
	return func(s *NodeSource) {
		s.logger = logger
	}
}

func NewNodeSource(opts ...NodeSourceOptionFunc) (*NodeSource, error) {
	s := &NodeSource{
		network:     "unix",
		dialTimeout: defaultDialTimeout,
		eventChan:   make(chan Event),
		errChan:     make(chan error, 1),
		doneChan:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.address == "" {
		return nil, errors.New("node address is required")
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if s.dialFunc == nil {
		dialer := net.Dialer{Timeout: s.dialTimeout}
		s.dialFunc = dialer.DialContext
	}
	return s, nil
}

// Start connects to the node and begins syncing from the intersect points
func (s *NodeSource) Start(
	ctx context.Context,
	intersect []ocommon.Point,
) error {
	netConn, err := s.dialFunc(ctx, s.network, s.address)
	if err != nil {
		return fmt.Errorf("connecting to node %s: %w", s.address, err)
	}
	conn, err := ouroboros.NewConnection(
		ouroboros.WithConnection(netConn),
		ouroboros.WithNetworkMagic(s.networkMagic),
		ouroboros.WithNodeToNode(false),
		ouroboros.WithKeepAlive(true),
		ouroboros.WithChainSyncConfig(
			ochainsync.NewConfig(
				ochainsync.WithRollForwardFunc(s.handleRollForward),
				ochainsync.WithRollBackwardFunc(s.handleRollBackward),
			),
		),
	)
	if err != nil {
		netConn.Close()
		return fmt.Errorf("creating ouroboros connection: %w", err)
	}
	s.conn = conn
	go func() {
		select {
		case err, ok := <-conn.ErrorChan():
			if ok && err != nil {
				s.fail(fmt.Errorf("node connection: %w", err))
			}
		case <-s.doneChan:
		}
	}()
	if len(intersect) == 0 {
		intersect = []ocommon.Point{ocommon.NewPointOrigin()}
	}
	if err := conn.ChainSync().Client.Sync(intersect); err != nil {
		_ = s.Close()
		return fmt.Errorf("chain-sync start: %w", err)
	}
	s.logger.Info(
		"chain-sync started",
		"component", "chainsync",
		"address", s.address,
		"intersect", PointString(intersect[0]),
	)
	return nil
}

func (s *NodeSource) Next(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case evt := <-s.eventChan:
		return evt, nil
	case err := <-s.errChan:
		return Event{}, err
	case <-s.doneChan:
		return Event{}, io.EOF
	}
}

func (s *NodeSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.doneChan)
		if s.conn != nil {
			err = s.conn.Close()
		}
	})
	return err
}

func (s *NodeSource) fail(err error) {
	select {
	case s.errChan <- err:
	default:
	}
}

func (s *NodeSource) deliver(evt Event) error {
	select {
	case s.eventChan <- evt:
		return nil
	case <-s.doneChan:
		return ErrSourceClosed
	}
}

func (s *NodeSource) handleRollForward(
	_ ochainsync.CallbackContext,
	blockType uint,
	blockData any,
	tip ochainsync.Tip,
) error {
	ledgerBlock, ok := blockData.(ledger.Block)
	if !ok {
		err := fmt.Errorf(
			"%w: unexpected block data type %T (block type %d)",
			ErrMalformedEvent,
			blockData,
			blockType,
		)
		s.fail(err)
		return err
	}
	block, err := NewBlockFromLedger(ledgerBlock)
	if err != nil {
		s.fail(err)
		return err
	}
	return s.deliver(NewRollForwardEvent(block, tip))
}

func (s *NodeSource) handleRollBackward(
	_ ochainsync.CallbackContext,
	point ocommon.Point,
	tip ochainsync.Tip,
) error {
	return s.deliver(NewRollBackwardEvent(point, tip))
}
