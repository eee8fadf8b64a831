// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bucketlog records every known version of every bucket as a
// height-indexed, fork-tolerant log. The log is the source of truth for
// which versions exist; blob content may trail behind it during sync.
package bucketlog

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jax-protocol/jax-fs/blob"
)

var (
	ErrUnknownBucket  = errors.New("bucket not in log")
	ErrInvalidHeight  = errors.New("height does not follow from previous link")
	ErrOrphanParent   = errors.New("previous link not present at height-1")
	ErrDuplicateEntry = errors.New("link already present at this height")
	ErrNoPublished    = errors.New("no published version")
)

// Entry is one recorded bucket version
type Entry struct {
	Bucket    uuid.UUID
	Height    uint64
	Link      blob.Link
	Previous  *blob.Link
	Name      string
	Published bool
	CreatedAt time.Time
}

// Log stores bucket version entries. Append is serialized per bucket so
// its validation is atomic; reads may run concurrently.
type Log interface {
	// Append records a version. previous == nil requires height 0;
	// otherwise previous must already be present at height-1. The same
	// link at the same height is rejected with ErrDuplicateEntry; a
	// different link at an occupied height is a fork and is accepted.
	Append(entry Entry) error

	// Heads returns all links recorded at the given height
	Heads(bucket uuid.UUID, height uint64) ([]blob.Link, error)

	// Height returns the maximum height present
	Height(bucket uuid.UUID) (uint64, error)

	// Head returns the canonical head at the maximum height
	Head(bucket uuid.UUID) (blob.Link, uint64, error)

	// HeadAt returns the canonical head at a given height
	HeadAt(bucket uuid.UUID, height uint64) (blob.Link, error)

	// Has returns every height at which link appears (empty if unknown)
	Has(bucket uuid.UUID, link blob.Link) ([]uint64, error)

	// LatestPublished returns the highest published version
	LatestPublished(bucket uuid.UUID) (blob.Link, uint64, error)

	// Buckets enumerates every bucket with at least one entry
	Buckets() ([]uuid.UUID, error)
}

// validate applies the append rules shared by implementations against the
// state read inside the implementation's critical section.
func validate(entry Entry, prevHeights []uint64, atHeight []blob.Link) error {
	if entry.Previous == nil {
		if entry.Height != 0 {
			return ErrInvalidHeight
		}
	} else {
		if entry.Height == 0 {
			return ErrInvalidHeight
		}
		found := false
		for _, h := range prevHeights {
			if h == entry.Height-1 {
				found = true
				break
			}
		}
		if !found {
			return ErrOrphanParent
		}
	}
	for _, link := range atHeight {
		if link == entry.Link {
			return ErrDuplicateEntry
		}
	}
	return nil
}

// maxLink returns the byte-lex maximum link: the deterministic head among
// forks at one height.
func maxLink(links []blob.Link) blob.Link {
	best := links[0]
	for _, link := range links[1:] {
		if link.Compare(best) > 0 {
			best = link
		}
	}
	return best
}
