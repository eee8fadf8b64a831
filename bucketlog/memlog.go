// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package bucketlog

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jax-protocol/jax-fs/blob"
)

// MemLog is an in-memory Log for tests and ephemeral peers
type MemLog struct {
	mu      sync.RWMutex
	buckets map[uuid.UUID]map[uint64][]Entry
}

func NewMemLog() *MemLog {
	return &MemLog{buckets: make(map[uuid.UUID]map[uint64][]Entry)}
}

func (l *MemLog) Append(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	heights := l.buckets[entry.Bucket]

	var prevHeights []uint64
	if entry.Previous != nil {
		prevHeights = l.hasLocked(entry.Bucket, *entry.Previous)
	}
	var atHeight []blob.Link
	for _, e := range heights[entry.Height] {
		atHeight = append(atHeight, e.Link)
	}
	if err := validate(entry, prevHeights, atHeight); err != nil {
		return err
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if heights == nil {
		heights = make(map[uint64][]Entry)
		l.buckets[entry.Bucket] = heights
	}
	heights[entry.Height] = append(heights[entry.Height], entry)
	return nil
}

func (l *MemLog) hasLocked(bucket uuid.UUID, link blob.Link) []uint64 {
	var out []uint64
	for height, entries := range l.buckets[bucket] {
		for _, e := range entries {
			if e.Link == link {
				out = append(out, height)
			}
		}
	}
	return out
}

func (l *MemLog) Heads(bucket uuid.UUID, height uint64) ([]blob.Link, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := l.buckets[bucket][height]
	links := make([]blob.Link, 0, len(entries))
	for _, e := range entries {
		links = append(links, e.Link)
	}
	return links, nil
}

func (l *MemLog) Height(bucket uuid.UUID) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.heightLocked(bucket)
}

func (l *MemLog) heightLocked(bucket uuid.UUID) (uint64, error) {
	heights, ok := l.buckets[bucket]
	if !ok || len(heights) == 0 {
		return 0, ErrUnknownBucket
	}
	var best uint64
	for h := range heights {
		if h > best {
			best = h
		}
	}
	return best, nil
}

func (l *MemLog) Head(bucket uuid.UUID) (blob.Link, uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	height, err := l.heightLocked(bucket)
	if err != nil {
		return blob.Link{}, 0, err
	}
	link, err := l.headAtLocked(bucket, height)
	return link, height, err
}

func (l *MemLog) HeadAt(bucket uuid.UUID, height uint64) (blob.Link, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.headAtLocked(bucket, height)
}

func (l *MemLog) headAtLocked(bucket uuid.UUID, height uint64) (blob.Link, error) {
	entries := l.buckets[bucket][height]
	if len(entries) == 0 {
		return blob.Link{}, ErrUnknownBucket
	}
	links := make([]blob.Link, 0, len(entries))
	for _, e := range entries {
		links = append(links, e.Link)
	}
	return maxLink(links), nil
}

func (l *MemLog) Has(bucket uuid.UUID, link blob.Link) ([]uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hasLocked(bucket, link), nil
}

func (l *MemLog) LatestPublished(bucket uuid.UUID) (blob.Link, uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	found := false
	var bestHeight uint64
	var bestLinks []blob.Link
	for height, entries := range l.buckets[bucket] {
		for _, e := range entries {
			if !e.Published {
				continue
			}
			switch {
			case !found, height > bestHeight:
				found = true
				bestHeight = height
				bestLinks = []blob.Link{e.Link}
			case height == bestHeight:
				bestLinks = append(bestLinks, e.Link)
			}
		}
	}
	if !found {
		return blob.Link{}, 0, ErrNoPublished
	}
	return maxLink(bestLinks), bestHeight, nil
}

func (l *MemLog) Buckets() ([]uuid.UUID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]uuid.UUID, 0, len(l.buckets))
	for bucket := range l.buckets {
		out = append(out, bucket)
	}
	return out, nil
}
