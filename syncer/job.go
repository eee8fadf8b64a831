// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package syncer

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jax-protocol/jax-fs/blob"
	"github.com/jax-protocol/jax-fs/crypto"
)

// ErrQueueFull is returned to producers when the bounded job queue is at
// capacity; the periodic scheduler retries on its next tick.
var ErrQueueFull = errors.New("sync job queue full")

// job is one queued unit of sync work, drained serially by the worker
type job interface {
	fmt.Stringer
}

// pingJob announces our head for a bucket to one peer
type pingJob struct {
	bucket uuid.UUID
	peer   crypto.PublicKey
}

func (j pingJob) String() string {
	return fmt.Sprintf("ping{bucket=%s}", j.bucket)
}

// syncJob pulls a peer's manifest chain for a bucket
type syncJob struct {
	bucket uuid.UUID
	peer   crypto.PublicKey
	// target is the peer's head at the time of the ping exchange
	target blob.Link
	height uint64
}

func (j syncJob) String() string {
	return fmt.Sprintf("sync{bucket=%s target=%s height=%d}", j.bucket, j.target, j.height)
}

// pinsJob fetches every hash pinned by a manifest
type pinsJob struct {
	bucket uuid.UUID
	peer   crypto.PublicKey
	target blob.Link
}

func (j pinsJob) String() string {
	return fmt.Sprintf("pins{bucket=%s target=%s}", j.bucket, j.target)
}
