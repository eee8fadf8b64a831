// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package wrappers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackerRoundTrip(t *testing.T) {
	require := require.New(t)

	p := &Packer{MaxSize: 1024}
	p.PackByte(0x7F)
	p.PackInt(0xDEADBEEF)
	p.PackLong(1 << 60)
	p.PackBool(true)
	p.PackBool(false)
	p.PackFixedBytes([]byte{1, 2, 3})
	p.PackBytes([]byte("length prefixed"))
	p.PackStr("a string")
	require.NoError(p.Err())

	u := &Packer{Bytes: p.Bytes}
	require.Equal(byte(0x7F), u.UnpackByte())
	require.Equal(uint32(0xDEADBEEF), u.UnpackInt())
	require.Equal(uint64(1<<60), u.UnpackLong())
	require.True(u.UnpackBool())
	require.False(u.UnpackBool())
	require.Equal([]byte{1, 2, 3}, u.UnpackFixedBytes(3))
	require.Equal([]byte("length prefixed"), u.UnpackBytes())
	require.Equal("a string", u.UnpackStr())
	u.Finish()
	require.NoError(u.Err())
}

func TestPackerCanonicalBool(t *testing.T) {
	require := require.New(t)

	// only 0x00 and 0x01 decode as bools
	u := &Packer{Bytes: []byte{0x02}}
	u.UnpackBool()
	require.Error(u.Err())
}

func TestPackerMaxSize(t *testing.T) {
	require := require.New(t)

	p := &Packer{MaxSize: 4}
	p.PackInt(1)
	require.NoError(p.Err())
	p.PackByte(1)
	require.ErrorIs(p.Err(), ErrInsufficientLength)
}

func TestPackerShortRead(t *testing.T) {
	require := require.New(t)

	u := &Packer{Bytes: []byte{0, 0}}
	u.UnpackInt()
	require.ErrorIs(u.Err(), ErrInsufficientLength)
}

func TestPackerTrailingBytes(t *testing.T) {
	require := require.New(t)

	p := &Packer{MaxSize: 16}
	p.PackInt(7)
	u := &Packer{Bytes: append(p.Bytes, 0xFF)}
	require.Equal(uint32(7), u.UnpackInt())
	u.Finish()
	require.Error(u.Err())
}
