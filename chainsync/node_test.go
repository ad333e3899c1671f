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

package chainsync_test

import (
	"context"
	"io"
	"net"
	"testing"

	"github.com/blinklabs-io/gouroboros/protocol"
	ochainsync "github.com/blinklabs-io/gouroboros/protocol/chainsync"
	ocommon "github.com/blinklabs-io/gouroboros/protocol/common"
	ouroboros_mock "github.com/blinklabs-io/ouroboros-mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/projector/chainsync"
)

func TestNewNodeSourceRequiresAddress(t *testing.T) {
	_, err := chainsync.NewNodeSource()
	require.Error(t, err)
}

func TestNodeSourceDialFailure(t *testing.T) {
	src, err := chainsync.NewNodeSource(
		chainsync.WithNodeAddress("unix", "/nonexistent/node.socket"),
		chainsync.WithNetworkMagic(ouroboros_mock.MockNetworkMagic),
	)
	require.NoError(t, err)
	require.ErrorContains(t, src.Start(context.Background(), nil), "connecting to node")
}

func TestNodeSourceIntersectNotFoundCloses(t *testing.T) {
	mockConn := ouroboros_mock.NewConnection(
		ouroboros_mock.ProtocolRoleClient,
		[]ouroboros_mock.ConversationEntry{
			ouroboros_mock.ConversationEntryHandshakeRequestGeneric,
			ouroboros_mock.ConversationEntryHandshakeNtCResponse,
			ouroboros_mock.ConversationEntryInput{
				ProtocolId:  ochainsync.ProtocolIdNtC,
				MessageType: ochainsync.MessageTypeFindIntersect,
			},
			ouroboros_mock.ConversationEntryOutput{
				ProtocolId: ochainsync.ProtocolIdNtC,
				IsResponse: true,
				Messages: []protocol.Message{
					ochainsync.NewMsgIntersectNotFound(
						ochainsync.Tip{
							BlockNumber: 10,
							Point:       ocommon.NewPointOrigin(),
						},
					),
				},
			},
		},
	)
	defer mockConn.Close()
	var dialed string
	src, err := chainsync.NewNodeSource(
		chainsync.WithNodeAddress("tcp", "node.local:3001"),
		chainsync.WithNetworkMagic(ouroboros_mock.MockNetworkMagic),
		chainsync.WithDialFunc(
			func(_ context.Context, network, address string) (net.Conn, error) {
				dialed = network + "://" + address
				return mockConn, nil
			},
		),
	)
	require.NoError(t, err)
	err = src.Start(
		context.Background(),
		[]ocommon.Point{ocommon.NewPoint(5, []byte{0xaa})},
	)
	require.ErrorIs(t, err, ochainsync.ErrIntersectNotFound)
	assert.Equal(t, "tcp://node.local:3001", dialed)

	// A failed start leaves the source closed
	_, err = src.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, src.Close())
}
