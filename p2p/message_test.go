// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package p2p

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jax-protocol/jax-fs/blob"
)

func TestPingRoundTrip(t *testing.T) {
	require := require.New(t)

	ping := Ping{
		Bucket: uuid.New(),
		Link:   blob.NewLink(blob.Raw, []byte("head")),
		Height: 42,
	}
	raw := MarshalPing(ping)

	op, err := MessageOp(raw)
	require.NoError(err)
	require.Equal(OpPing, op)

	got, err := UnmarshalPing(raw)
	require.NoError(err)
	require.Equal(ping, got)
}

func TestPingReplyRoundTrip(t *testing.T) {
	require := require.New(t)

	for _, reply := range []PingReply{
		{Status: StatusNotFound},
		{Status: StatusInSync, Link: blob.NewLink(blob.Raw, []byte("x")), Height: 3},
		{Status: StatusAhead, Link: blob.NewLink(blob.Raw, []byte("y")), Height: 9},
		{Status: StatusBehind, Link: blob.NewLink(blob.Raw, []byte("z")), Height: 1},
	} {
		raw := MarshalPingReply(reply)
		got, err := UnmarshalPingReply(raw)
		require.NoError(err)
		require.Equal(reply, got)
	}
}

func TestBlobMessagesRoundTrip(t *testing.T) {
	require := require.New(t)

	link := blob.NewLink(blob.Seq, []byte("pins"))
	gotLink, err := UnmarshalGetBlob(MarshalGetBlob(link))
	require.NoError(err)
	require.Equal(link, gotLink)

	data := []byte("some blob bytes")
	gotData, err := UnmarshalBlobBytes(MarshalBlobBytes(data))
	require.NoError(err)
	require.Equal(data, gotData)

	op, err := MessageOp(MarshalBlobAbsent())
	require.NoError(err)
	require.Equal(OpBlobAbsent, op)
}

func TestErrorRoundTrip(t *testing.T) {
	require := require.New(t)

	remote, err := UnmarshalError(MarshalError(2, "blob store"))
	require.NoError(err)
	require.Equal(uint32(2), remote.Code)
	require.Equal("blob store", remote.Msg)
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	require := require.New(t)

	_, err := MessageOp(nil)
	require.ErrorIs(err, ErrInvalidMessage)
	_, err = MessageOp([]byte{0xFF})
	require.ErrorIs(err, ErrInvalidMessage)

	// wrong op for the parser
	_, err = UnmarshalPing(MarshalBlobAbsent())
	require.ErrorIs(err, ErrInvalidMessage)

	// truncated and padded frames
	raw := MarshalPing(Ping{Bucket: uuid.New()})
	_, err = UnmarshalPing(raw[:len(raw)-1])
	require.ErrorIs(err, ErrInvalidMessage)
	_, err = UnmarshalPing(append(append([]byte(nil), raw...), 0))
	require.ErrorIs(err, ErrInvalidMessage)
}
