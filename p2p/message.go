// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

// Package p2p frames the peer protocol over authenticated libp2p streams.
// Every message is one length-delimited frame: a 1-byte op tag followed
// by a canonical payload. A stream carries a single in-flight request;
// the reply is matched by stream position.
package p2p

import (
	"errors"

	"github.com/google/uuid"

	"github.com/jax-protocol/jax-fs/blob"
	"github.com/jax-protocol/jax-fs/utils/wrappers"
)

// Op tags a protocol message
type Op byte

const (
	OpPing Op = iota
	OpPingReply
	OpGetBlob
	OpBlobBytes
	OpBlobAbsent
	OpError
)

func (op Op) String() string {
	switch op {
	case OpPing:
		return "ping"
	case OpPingReply:
		return "ping_reply"
	case OpGetBlob:
		return "get_blob"
	case OpBlobBytes:
		return "blob_bytes"
	case OpBlobAbsent:
		return "blob_absent"
	case OpError:
		return "error"
	default:
		return "unknown"
	}
}

var ErrInvalidMessage = errors.New("invalid protocol message")

// PingStatus is the responder's relation to the initiator's head
type PingStatus byte

const (
	// StatusNotFound means the responder does not know the bucket
	StatusNotFound PingStatus = iota
	// StatusInSync means both sides are at the same height with the same
	// head link
	StatusInSync
	// StatusAhead means the responder is ahead of the initiator
	StatusAhead
	// StatusBehind means the responder is behind the initiator
	StatusBehind
)

// Ping announces the initiator's head for one bucket
type Ping struct {
	Bucket uuid.UUID
	Link   blob.Link
	Height uint64
}

// PingReply carries the responder's status and, whenever the responder
// knows the bucket, its own head
type PingReply struct {
	Status PingStatus
	Link   blob.Link
	Height uint64
}

// RemoteError is an OpError reply surfaced to the caller
type RemoteError struct {
	Code uint32
	Msg  string
}

func (e *RemoteError) Error() string {
	return "remote error " + e.Msg
}

func packUUID(p *wrappers.Packer, id uuid.UUID) {
	p.PackFixedBytes(id[:])
}

func unpackUUID(p *wrappers.Packer) uuid.UUID {
	var id uuid.UUID
	copy(id[:], p.UnpackFixedBytes(16))
	return id
}

func packLink(p *wrappers.Packer, l blob.Link) {
	p.PackByte(byte(l.Codec))
	p.PackFixedBytes(l.Hash[:])
}

func unpackLink(p *wrappers.Packer) blob.Link {
	var l blob.Link
	l.Codec = blob.Codec(p.UnpackByte())
	copy(l.Hash[:], p.UnpackFixedBytes(32))
	return l
}

// MarshalPing frames a Ping
func MarshalPing(ping Ping) []byte {
	p := &wrappers.Packer{MaxSize: 128}
	p.PackByte(byte(OpPing))
	packUUID(p, ping.Bucket)
	packLink(p, ping.Link)
	p.PackLong(ping.Height)
	return p.Bytes
}

// MarshalPingReply frames a PingReply
func MarshalPingReply(reply PingReply) []byte {
	p := &wrappers.Packer{MaxSize: 128}
	p.PackByte(byte(OpPingReply))
	p.PackByte(byte(reply.Status))
	packLink(p, reply.Link)
	p.PackLong(reply.Height)
	return p.Bytes
}

// MarshalGetBlob frames a blob request
func MarshalGetBlob(link blob.Link) []byte {
	p := &wrappers.Packer{MaxSize: 64}
	p.PackByte(byte(OpGetBlob))
	packLink(p, link)
	return p.Bytes
}

// MarshalBlobBytes frames a blob reply
func MarshalBlobBytes(data []byte) []byte {
	p := &wrappers.Packer{MaxSize: len(data) + 16}
	p.PackByte(byte(OpBlobBytes))
	p.PackBytes(data)
	return p.Bytes
}

// MarshalBlobAbsent frames a negative blob reply
func MarshalBlobAbsent() []byte {
	return []byte{byte(OpBlobAbsent)}
}

// MarshalError frames an error reply
func MarshalError(code uint32, msg string) []byte {
	p := &wrappers.Packer{MaxSize: 1024}
	p.PackByte(byte(OpError))
	p.PackInt(code)
	p.PackStr(msg)
	return p.Bytes
}

// MessageOp peeks the op tag of a frame
func MessageOp(raw []byte) (Op, error) {
	if len(raw) == 0 {
		return 0, ErrInvalidMessage
	}
	op := Op(raw[0])
	if op > OpError {
		return 0, ErrInvalidMessage
	}
	return op, nil
}

// UnmarshalPing parses an OpPing frame
func UnmarshalPing(raw []byte) (Ping, error) {
	p := &wrappers.Packer{Bytes: raw}
	if Op(p.UnpackByte()) != OpPing {
		return Ping{}, ErrInvalidMessage
	}
	ping := Ping{
		Bucket: unpackUUID(p),
		Link:   unpackLink(p),
		Height: p.UnpackLong(),
	}
	p.Finish()
	if p.Errored() {
		return Ping{}, ErrInvalidMessage
	}
	return ping, nil
}

// UnmarshalPingReply parses an OpPingReply frame
func UnmarshalPingReply(raw []byte) (PingReply, error) {
	p := &wrappers.Packer{Bytes: raw}
	if Op(p.UnpackByte()) != OpPingReply {
		return PingReply{}, ErrInvalidMessage
	}
	reply := PingReply{
		Status: PingStatus(p.UnpackByte()),
		Link:   unpackLink(p),
		Height: p.UnpackLong(),
	}
	p.Finish()
	if p.Errored() || reply.Status > StatusBehind {
		return PingReply{}, ErrInvalidMessage
	}
	return reply, nil
}

// UnmarshalGetBlob parses an OpGetBlob frame
func UnmarshalGetBlob(raw []byte) (blob.Link, error) {
	p := &wrappers.Packer{Bytes: raw}
	if Op(p.UnpackByte()) != OpGetBlob {
		return blob.Link{}, ErrInvalidMessage
	}
	link := unpackLink(p)
	p.Finish()
	if p.Errored() {
		return blob.Link{}, ErrInvalidMessage
	}
	return link, nil
}

// UnmarshalBlobBytes parses an OpBlobBytes frame
func UnmarshalBlobBytes(raw []byte) ([]byte, error) {
	p := &wrappers.Packer{Bytes: raw}
	if Op(p.UnpackByte()) != OpBlobBytes {
		return nil, ErrInvalidMessage
	}
	data := p.UnpackBytes()
	p.Finish()
	if p.Errored() {
		return nil, ErrInvalidMessage
	}
	return data, nil
}

// UnmarshalError parses an OpError frame
func UnmarshalError(raw []byte) (*RemoteError, error) {
	p := &wrappers.Packer{Bytes: raw}
	if Op(p.UnpackByte()) != OpError {
		return nil, ErrInvalidMessage
	}
	remote := &RemoteError{Code: p.UnpackInt(), Msg: p.UnpackStr()}
	p.Finish()
	if p.Errored() {
		return nil, ErrInvalidMessage
	}
	return remote, nil
}
