// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

// Package blob is the content-addressed storage layer. Every stored value
// is addressed by the BLAKE3 hash of its bytes; stores never interpret
// content beyond the sequence codec.
package blob

import (
	"context"
	"errors"
	"io"

	"github.com/luxfi/ids"

	"github.com/jax-protocol/jax-fs/crypto"
)

var (
	ErrBlobMissing  = errors.New("blob missing")
	ErrVerifyFailed = errors.New("blob bytes do not hash to requested link")
	ErrNotSequence  = errors.New("link does not address a hash sequence")
)

// Store is a local content-addressed blob store. Put is idempotent and
// atomic per link; implementations synchronize internally so all methods
// are safe for concurrent use.
type Store interface {
	// Put stores data and returns its raw link
	Put(data []byte) (Link, error)

	// PutStream stores everything read from r and returns its raw link
	PutStream(r io.Reader) (Link, error)

	// Get returns the bytes behind link, or ErrBlobMissing
	Get(link Link) ([]byte, error)

	// GetRange returns up to length bytes starting at offset. Reads past
	// the end are truncated; an offset beyond the end returns no bytes.
	GetRange(link Link, offset, length uint64) ([]byte, error)

	// Has reports whether link is present locally
	Has(link Link) (bool, error)

	// PutSequence stores an ordered sequence of hashes as one blob whose
	// payload is the concatenated hashes
	PutSequence(hashes []ids.ID) (Link, error)

	// GetSequence parses the blob behind a Seq link back into hashes
	GetSequence(link Link) ([]ids.ID, error)
}

// Fetcher pulls blobs from remote peers into a local store. When link
// addresses a sequence, members are fetched as well. Received bytes must
// hash to the requested link; a mismatch fails with ErrVerifyFailed.
type Fetcher interface {
	FetchFrom(ctx context.Context, peer crypto.PublicKey, link Link) error
}

// sequence payload helpers shared by store implementations

func encodeSequence(hashes []ids.ID) []byte {
	payload := make([]byte, 0, len(hashes)*HashLen)
	for _, h := range hashes {
		payload = append(payload, h[:]...)
	}
	return payload
}

func decodeSequence(link Link, payload []byte) ([]ids.ID, error) {
	if link.Codec != Seq || len(payload)%HashLen != 0 {
		return nil, ErrNotSequence
	}
	hashes := make([]ids.ID, 0, len(payload)/HashLen)
	for off := 0; off < len(payload); off += HashLen {
		hashes = append(hashes, ids.ID(payload[off:off+HashLen]))
	}
	return hashes, nil
}
