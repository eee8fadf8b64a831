// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package p2p

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/libp2p/go-libp2p"
	lcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-msgio"
	"github.com/luxfi/log"

	"github.com/jax-protocol/jax-fs/blob"
	"github.com/jax-protocol/jax-fs/crypto"
)

// ProtocolID identifies the bucket sync protocol on the wire
const ProtocolID = protocol.ID("/jax/1")

// Frames larger than this are rejected by the reader
const maxFrameSize = 64 << 20

var (
	ErrTimeout     = errors.New("request timed out")
	ErrUnknownPeer = errors.New("peer identity is not dialable")
)

const (
	errCodeBadFrame uint32 = 1
	errCodeInternal uint32 = 2
)

// PingHandler computes ping replies and absorbs their side effects. The
// reply is written to the wire before PingObserved runs, so side effects
// never block response latency.
type PingHandler interface {
	HandlePing(from crypto.PublicKey, ping Ping) PingReply
	PingObserved(from crypto.PublicKey, ping Ping, reply PingReply)
}

// Node is the libp2p end of a peer: it serves pings and blobs to remote
// peers and dials them on behalf of the sync engine.
type Node struct {
	host    host.Host
	store   blob.Store
	handler PingHandler
	log     log.Logger
	timeout time.Duration
}

// NewNode builds a libp2p host bound to the identity key. The transport
// authenticates the remote peer, so ping replies cannot be spoofed.
func NewNode(
	identity *crypto.Identity,
	store blob.Store,
	listenAddrs []string,
	timeout time.Duration,
	logger log.Logger,
) (*Node, error) {
	key, err := lcrypto.UnmarshalEd25519PrivateKey(identity.PrivateKey())
	if err != nil {
		return nil, fmt.Errorf("identity key: %w", err)
	}
	h, err := libp2p.New(
		libp2p.Identity(key),
		libp2p.ListenAddrStrings(listenAddrs...),
	)
	if err != nil {
		return nil, fmt.Errorf("libp2p host: %w", err)
	}
	return &Node{
		host:    h,
		store:   store,
		log:     logger,
		timeout: timeout,
	}, nil
}

// Start registers the stream handler. The PingHandler must be set first;
// it is injected late because the sync engine and the node reference each
// other.
func (n *Node) Start(handler PingHandler) {
	n.handler = handler
	n.host.SetStreamHandler(ProtocolID, n.handleStream)
	n.log.Info("p2p node listening", "peer", n.host.ID(), "addrs", n.host.Addrs())
}

func (n *Node) Close() error {
	return n.host.Close()
}

// Host exposes the underlying libp2p host
func (n *Node) Host() host.Host {
	return n.host
}

// AddrStrings returns this node's dialable addresses, p2p suffix
// included
func (n *Node) AddrStrings() []string {
	id := n.host.ID()
	addrs := n.host.Addrs()
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, addr.String()+"/p2p/"+id.String())
	}
	return out
}

// Connect dials a peer by multiaddr string and remembers its addresses
func (n *Node) Connect(ctx context.Context, addr string) error {
	info, err := peer.AddrInfoFromString(addr)
	if err != nil {
		return err
	}
	return n.host.Connect(ctx, *info)
}

// libp2pID maps an identity public key onto the transport peer id
func libp2pID(pub crypto.PublicKey) (peer.ID, error) {
	key, err := lcrypto.UnmarshalEd25519PublicKey(pub[:])
	if err != nil {
		return "", ErrUnknownPeer
	}
	id, err := peer.IDFromPublicKey(key)
	if err != nil {
		return "", ErrUnknownPeer
	}
	return id, nil
}

// remoteKey recovers the identity public key of the stream's remote peer
func remoteKey(s network.Stream) (crypto.PublicKey, error) {
	key, err := s.Conn().RemotePeer().ExtractPublicKey()
	if err != nil {
		return crypto.PublicKey{}, err
	}
	raw, err := key.Raw()
	if err != nil || len(raw) != crypto.KeyLen {
		return crypto.PublicKey{}, ErrUnknownPeer
	}
	var pub crypto.PublicKey
	copy(pub[:], raw)
	return pub, nil
}

// handleStream answers one request per frame until the peer closes
func (n *Node) handleStream(s network.Stream) {
	defer s.Close()

	from, err := remoteKey(s)
	if err != nil {
		n.log.Warn("rejecting stream with unverifiable peer key", "err", err)
		s.Reset()
		return
	}

	reader := msgio.NewReaderSize(s, maxFrameSize)
	writer := msgio.NewWriter(s)
	for {
		_ = s.SetDeadline(time.Now().Add(n.timeout))
		raw, err := reader.ReadMsg()
		if err != nil {
			return
		}
		if err := n.serve(from, raw, writer); err != nil {
			n.log.Debug("stream serve failed", "peer", s.Conn().RemotePeer(), "err", err)
			return
		}
		reader.ReleaseMsg(raw)
	}
}

func (n *Node) serve(from crypto.PublicKey, raw []byte, writer msgio.Writer) error {
	op, err := MessageOp(raw)
	if err != nil {
		return writer.WriteMsg(MarshalError(errCodeBadFrame, "bad frame"))
	}
	switch op {
	case OpPing:
		ping, err := UnmarshalPing(raw)
		if err != nil {
			return writer.WriteMsg(MarshalError(errCodeBadFrame, "bad ping"))
		}
		reply := n.handler.HandlePing(from, ping)
		if err := writer.WriteMsg(MarshalPingReply(reply)); err != nil {
			return err
		}
		// side effects run strictly after the reply is on the wire
		n.handler.PingObserved(from, ping, reply)
		return nil

	case OpGetBlob:
		link, err := UnmarshalGetBlob(raw)
		if err != nil {
			return writer.WriteMsg(MarshalError(errCodeBadFrame, "bad blob request"))
		}
		data, err := n.store.Get(link)
		switch {
		case errors.Is(err, blob.ErrBlobMissing):
			return writer.WriteMsg(MarshalBlobAbsent())
		case err != nil:
			return writer.WriteMsg(MarshalError(errCodeInternal, "blob store"))
		default:
			return writer.WriteMsg(MarshalBlobBytes(data))
		}

	default:
		return writer.WriteMsg(MarshalError(errCodeBadFrame, "unexpected "+op.String()))
	}
}
