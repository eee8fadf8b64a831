// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package p2p

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/libp2p/go-msgio"
	"github.com/luxfi/ids"
	"lukechampine.com/blake3"

	"github.com/jax-protocol/jax-fs/blob"
	"github.com/jax-protocol/jax-fs/crypto"
)

// Client dials remote peers for the sync engine. It implements
// blob.Fetcher against the node's local store.
type Client struct {
	node *Node
}

func (n *Node) Client() *Client {
	return &Client{node: n}
}

// request performs one request/reply exchange on a fresh stream
func (c *Client) request(ctx context.Context, to crypto.PublicKey, frame []byte) ([]byte, error) {
	id, err := libp2pID(to)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.node.timeout)
	defer cancel()

	s, err := c.node.host.NewStream(ctx, id, ProtocolID)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", mapErr(err))
	}
	defer s.Close()
	_ = s.SetDeadline(time.Now().Add(c.node.timeout))

	if err := msgio.NewWriter(s).WriteMsg(frame); err != nil {
		return nil, mapErr(err)
	}
	raw, err := msgio.NewReaderSize(s, maxFrameSize).ReadMsg()
	if err != nil {
		return nil, mapErr(err)
	}
	if op, err := MessageOp(raw); err == nil && op == OpError {
		remote, err := UnmarshalError(raw)
		if err != nil {
			return nil, ErrInvalidMessage
		}
		return nil, remote
	}
	return raw, nil
}

func mapErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return ErrTimeout
	}
	return err
}

// Ping sends a ping and returns the responder's reply
func (c *Client) Ping(ctx context.Context, to crypto.PublicKey, ping Ping) (PingReply, error) {
	raw, err := c.request(ctx, to, MarshalPing(ping))
	if err != nil {
		return PingReply{}, err
	}
	return UnmarshalPingReply(raw)
}

// getBlob requests one blob, verifying the bytes hash to the link
func (c *Client) getBlob(ctx context.Context, to crypto.PublicKey, link blob.Link) ([]byte, error) {
	raw, err := c.request(ctx, to, MarshalGetBlob(link))
	if err != nil {
		return nil, err
	}
	op, err := MessageOp(raw)
	if err != nil {
		return nil, err
	}
	switch op {
	case OpBlobAbsent:
		return nil, blob.ErrBlobMissing
	case OpBlobBytes:
		data, err := UnmarshalBlobBytes(raw)
		if err != nil {
			return nil, err
		}
		if ids.ID(blake3.Sum256(data)) != link.Hash {
			return nil, blob.ErrVerifyFailed
		}
		return data, nil
	default:
		return nil, ErrInvalidMessage
	}
}

// FetchFrom pulls the blob behind link from a peer into the local store.
// A sequence link pulls its members as well. Already-present blobs are
// not refetched, which makes interrupted fetches resumable.
func (c *Client) FetchFrom(ctx context.Context, to crypto.PublicKey, link blob.Link) error {
	if ok, err := c.node.store.Has(link); err != nil {
		return err
	} else if !ok {
		data, err := c.getBlob(ctx, to, link)
		if err != nil {
			return err
		}
		if _, err := c.node.store.Put(data); err != nil {
			return err
		}
	}
	if link.Codec != blob.Seq {
		return nil
	}

	members, err := c.node.store.GetSequence(link)
	if err != nil {
		return err
	}
	for _, hash := range members {
		member := blob.RawLink(hash)
		ok, err := c.node.store.Has(member)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		data, err := c.getBlob(ctx, to, member)
		if err != nil {
			return err
		}
		if _, err := c.node.store.Put(data); err != nil {
			return err
		}
	}
	return nil
}
