// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package blob

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/luxfi/ids"
	"lukechampine.com/blake3"

	"github.com/jax-protocol/jax-fs/utils/formatting"
)

// HashLen is the byte length of a content hash
const HashLen = 32

// Codec tags how the bytes behind a link are to be interpreted
type Codec uint8

const (
	// Raw is an opaque byte blob
	Raw Codec = iota
	// Seq is an ordered sequence of 32-byte hashes
	Seq
)

var codecNames = map[Codec]string{
	Raw: "raw",
	Seq: "seq",
}

func (c Codec) String() string {
	if name, ok := codecNames[c]; ok {
		return name
	}
	return fmt.Sprintf("codec-%d", uint8(c))
}

var ErrInvalidLink = errors.New("invalid link")

// Link is a content address: a codec tag plus the BLAKE3 hash of the
// stored (possibly encrypted) bytes.
type Link struct {
	Codec Codec
	Hash  ids.ID
}

// NewLink computes the link for stored bytes
func NewLink(codec Codec, data []byte) Link {
	return Link{Codec: codec, Hash: ids.ID(blake3.Sum256(data))}
}

// RawLink addresses an opaque blob by hash
func RawLink(hash ids.ID) Link {
	return Link{Codec: Raw, Hash: hash}
}

// IsZero reports whether the link is the zero value
func (l Link) IsZero() bool {
	return l == Link{}
}

// Compare orders links by raw hash bytes, then codec. Head selection
// relies on this ordering being identical on every peer.
func (l Link) Compare(o Link) int {
	if c := bytes.Compare(l.Hash[:], o.Hash[:]); c != 0 {
		return c
	}
	return int(l.Codec) - int(o.Codec)
}

// String renders the link as "<codec>:<hex hash>". ParseLink inverts it
// exactly.
func (l Link) String() string {
	enc, _ := formatting.Encode(formatting.HexNC, l.Hash[:])
	return l.Codec.String() + ":" + enc
}

// ParseLink parses the String form of a link
func ParseLink(s string) (Link, error) {
	name, enc, ok := strings.Cut(s, ":")
	if !ok {
		return Link{}, ErrInvalidLink
	}
	var codec Codec
	switch name {
	case "raw":
		codec = Raw
	case "seq":
		codec = Seq
	default:
		return Link{}, ErrInvalidLink
	}
	raw, err := formatting.Decode(formatting.HexNC, enc)
	if err != nil || len(raw) != HashLen {
		return Link{}, ErrInvalidLink
	}
	return Link{Codec: codec, Hash: ids.ID(raw)}, nil
}
