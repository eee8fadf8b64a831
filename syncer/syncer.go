// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

// Package syncer pulls remote bucket versions into the local log and
// blob store. A single worker drains a bounded job queue; a periodic
// scheduler and inbound ping side effects feed it.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jax-protocol/jax-fs/blob"
	"github.com/jax-protocol/jax-fs/bucket"
	"github.com/jax-protocol/jax-fs/bucketlog"
	"github.com/jax-protocol/jax-fs/crypto"
	"github.com/jax-protocol/jax-fs/p2p"
)

// ErrNotAuthorizedUpdate rejects inbound chains whose final manifest does
// not grant us a share: unrelated peers cannot force-push buckets onto us.
var ErrNotAuthorizedUpdate = errors.New("incoming chain does not include this peer")

// Dialer sends pings to remote peers
type Dialer interface {
	Ping(ctx context.Context, to crypto.PublicKey, ping p2p.Ping) (p2p.PingReply, error)
}

// BucketUpdated is emitted after every log mutation so consumers can
// invalidate caches or reload views.
type BucketUpdated struct {
	Bucket uuid.UUID
	Head   blob.Link
	Height uint64
}

// Config tunes the sync engine
type Config struct {
	QueueCapacity  int
	PingInterval   time.Duration
	RequestTimeout time.Duration
}

// Syncer owns the job queue, the worker, and the ping scheduler
type Syncer struct {
	cfg     Config
	self    crypto.PublicKey
	store   blob.Store
	fetcher blob.Fetcher
	dialer  Dialer
	vlog    bucketlog.Log
	logger  log.Logger
	metrics *metrics

	jobs chan job

	subsMu sync.Mutex
	subs   []chan BucketUpdated

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      sync.WaitGroup
}

func New(
	cfg Config,
	self crypto.PublicKey,
	store blob.Store,
	fetcher blob.Fetcher,
	dialer Dialer,
	vlog bucketlog.Log,
	logger log.Logger,
	registerer prometheus.Registerer,
) (*Syncer, error) {
	m, err := newMetrics(registerer)
	if err != nil {
		return nil, err
	}
	return &Syncer{
		cfg:     cfg,
		self:    self,
		store:   store,
		fetcher: fetcher,
		dialer:  dialer,
		vlog:    vlog,
		logger:  logger,
		metrics: m,
		jobs:    make(chan job, cfg.QueueCapacity),
	}, nil
}

// Start launches the worker and the periodic ping scheduler
func (s *Syncer) Start() {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.done.Add(2)
		go s.worker(ctx)
		go s.scheduler(ctx)
	})
}

// Stop cancels the worker cooperatively: the in-flight job finishes its
// log writes, in-flight fetches abort.
func (s *Syncer) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.done.Wait()
	})
}

// Subscribe returns a channel of log mutations. Slow consumers drop
// events rather than stalling the worker.
func (s *Syncer) Subscribe() <-chan BucketUpdated {
	ch := make(chan BucketUpdated, 16)
	s.subsMu.Lock()
	s.subs = append(s.subs, ch)
	s.subsMu.Unlock()
	return ch
}

func (s *Syncer) publish(event BucketUpdated) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// enqueue adds a job without blocking; a full queue rejects the job
func (s *Syncer) enqueue(j job) error {
	select {
	case s.jobs <- j:
		return nil
	default:
		s.metrics.jobsDropped.Inc()
		return ErrQueueFull
	}
}

// NotifySaved is called after a local save has been appended to the log.
// It emits the update event and immediately pings every peer in the new
// manifest's share list.
func (s *Syncer) NotifySaved(manifest *bucket.Manifest, head blob.Link, height uint64) {
	s.publish(BucketUpdated{Bucket: manifest.ID, Head: head, Height: height})
	for pub := range manifest.Shares {
		if pub == s.self {
			continue
		}
		if err := s.enqueue(pingJob{bucket: manifest.ID, peer: pub}); err != nil {
			s.logger.Warn("dropping save ping", "bucket", manifest.ID, "err", err)
		}
	}
}

// scheduler pings every bucket x peer pair each interval
func (s *Syncer) scheduler(ctx context.Context) {
	defer s.done.Done()

	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scheduleOnce()
		}
	}
}

func (s *Syncer) scheduleOnce() {
	buckets, err := s.vlog.Buckets()
	if err != nil {
		s.logger.Error("bucket enumeration failed", "err", err)
		return
	}
	for _, bucketID := range buckets {
		for _, pub := range s.sharePeers(bucketID) {
			if err := s.enqueue(pingJob{bucket: bucketID, peer: pub}); err != nil {
				// queue full; the next tick retries
				return
			}
		}
	}
}

// sharePeers reads the current head manifest's share list, excluding us
func (s *Syncer) sharePeers(bucketID uuid.UUID) []crypto.PublicKey {
	head, _, err := s.vlog.Head(bucketID)
	if err != nil {
		return nil
	}
	raw, err := s.store.Get(head)
	if err != nil {
		// the log can be ahead of the blob store mid-sync
		return nil
	}
	manifest, err := bucket.ParseManifest(raw)
	if err != nil {
		return nil
	}
	peers := make([]crypto.PublicKey, 0, len(manifest.Shares))
	for pub := range manifest.Shares {
		if pub != s.self {
			peers = append(peers, pub)
		}
	}
	return peers
}

// worker drains the queue serially
func (s *Syncer) worker(ctx context.Context) {
	defer s.done.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.jobs:
			s.metrics.jobsExecuted.Inc()
			start := time.Now()
			var err error
			switch j := j.(type) {
			case pingJob:
				err = s.runPing(ctx, j)
				s.metrics.pingDuration.Observe(float64(time.Since(start).Milliseconds()))
			case syncJob:
				err = s.runSync(ctx, j)
				s.metrics.syncDuration.Observe(float64(time.Since(start).Milliseconds()))
			case pinsJob:
				err = s.runPins(ctx, j)
			}
			if err != nil {
				// transient errors drop the job; the next scheduled ping
				// retries
				s.metrics.jobsFailed.Inc()
				s.logger.Warn("sync job failed", "job", j.String(), "err", err)
			}
		}
	}
}

// HandlePing computes our side of a ping exchange. Part of the
// p2p.PingHandler contract; called by the transport before the reply is
// written.
func (s *Syncer) HandlePing(_ crypto.PublicKey, ping p2p.Ping) p2p.PingReply {
	head, height, err := s.vlog.Head(ping.Bucket)
	if err != nil {
		return p2p.PingReply{Status: p2p.StatusNotFound}
	}
	reply := p2p.PingReply{Link: head, Height: height}
	switch {
	case height == ping.Height && head == ping.Link:
		reply.Status = p2p.StatusInSync
	case height >= ping.Height:
		// an equal-height fork counts as ahead on both sides, so both
		// branches propagate
		reply.Status = p2p.StatusAhead
	default:
		reply.Status = p2p.StatusBehind
	}
	return reply
}

// PingObserved runs after the reply went out. If the exchange showed us
// behind the initiator, pull from it.
func (s *Syncer) PingObserved(from crypto.PublicKey, ping p2p.Ping, reply p2p.PingReply) {
	behind := reply.Status == p2p.StatusBehind ||
		reply.Status == p2p.StatusNotFound ||
		// equal-height fork: pull the initiator's branch alongside ours
		(reply.Status == p2p.StatusAhead && reply.Height == ping.Height)
	if !behind {
		return
	}
	err := s.enqueue(syncJob{
		bucket: ping.Bucket,
		peer:   from,
		target: ping.Link,
		height: ping.Height,
	})
	if err != nil {
		s.logger.Warn("dropping inbound sync", "bucket", ping.Bucket, "err", err)
	}
}

// runPing announces our head to one peer and schedules a pull if the
// peer turns out to be ahead.
func (s *Syncer) runPing(ctx context.Context, j pingJob) error {
	head, height, err := s.vlog.Head(j.bucket)
	if err != nil {
		// nothing to announce yet
		return nil
	}
	reply, err := s.dialer.Ping(ctx, j.peer, p2p.Ping{
		Bucket: j.bucket,
		Link:   head,
		Height: height,
	})
	if err != nil {
		return err
	}
	if reply.Status != p2p.StatusAhead {
		return nil
	}
	return s.enqueue(syncJob{
		bucket: j.bucket,
		peer:   j.peer,
		target: reply.Link,
		height: reply.Height,
	})
}

// chainEntry pairs a fetched manifest with the link it was fetched by
type chainEntry struct {
	link     blob.Link
	manifest *bucket.Manifest
}

// fetchManifest pulls and parses the manifest behind link, fetching from
// the peer when it is not yet local.
func (s *Syncer) fetchManifest(ctx context.Context, peer crypto.PublicKey, link blob.Link) (*bucket.Manifest, error) {
	ok, err := s.store.Has(link)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := s.fetcher.FetchFrom(ctx, peer, link); err != nil {
			return nil, err
		}
	}
	raw, err := s.store.Get(link)
	if err != nil {
		return nil, err
	}
	return bucket.ParseManifest(raw)
}

// runSync pulls the chain from our newest common ancestor with the peer
// up to the peer's head, then appends it in height order.
func (s *Syncer) runSync(ctx context.Context, j syncJob) error {
	// replaying a sync we already have is a no-op
	if known, err := s.vlog.Has(j.bucket, j.target); err != nil {
		return err
	} else if len(known) > 0 {
		return nil
	}

	// walk previous links backward until the log recognizes an ancestor
	// or the chain bottoms out at genesis
	var (
		reversed   []chainEntry
		baseHeight uint64
		cur        = j.target
	)
	for {
		manifest, err := s.fetchManifest(ctx, j.peer, cur)
		if err != nil {
			return fmt.Errorf("manifest %s: %w", cur, err)
		}
		reversed = append(reversed, chainEntry{link: cur, manifest: manifest})
		if manifest.Previous == nil {
			baseHeight = 0
			break
		}
		heights, err := s.vlog.Has(j.bucket, *manifest.Previous)
		if err != nil {
			return err
		}
		if len(heights) > 0 {
			ancestor := heights[0]
			for _, h := range heights[1:] {
				if h > ancestor {
					ancestor = h
				}
			}
			baseHeight = ancestor + 1
			break
		}
		cur = *manifest.Previous
	}

	// provenance: the head of the incoming chain must grant us a share
	if _, ok := reversed[0].manifest.Share(s.self); !ok {
		return ErrNotAuthorizedUpdate
	}

	// apply in forward order; height validation inside Append guards
	// against malformed chains
	for i := len(reversed) - 1; i >= 0; i-- {
		entry := reversed[i]
		height := baseHeight + uint64(len(reversed)-1-i)

		siblings, err := s.vlog.Heads(j.bucket, height)
		if err != nil {
			return err
		}

		err = s.vlog.Append(bucketlog.Entry{
			Bucket:    j.bucket,
			Height:    height,
			Link:      entry.link,
			Previous:  entry.manifest.Previous,
			Name:      entry.manifest.Name,
			Published: entry.manifest.IsPublished(),
		})
		if errors.Is(err, bucketlog.ErrDuplicateEntry) {
			continue
		}
		if err != nil {
			return err
		}
		if len(siblings) > 0 {
			s.metrics.forks.Inc()
		}
	}

	head, height, err := s.vlog.Head(j.bucket)
	if err != nil {
		return err
	}
	s.publish(BucketUpdated{Bucket: j.bucket, Head: head, Height: height})
	s.logger.Info("synced bucket", "bucket", j.bucket, "head", head, "height", height)

	// pinned content follows the log
	return s.enqueue(pinsJob{bucket: j.bucket, peer: j.peer, target: j.target})
}

// runPins fetches every hash pinned by the target manifest. Failures
// leave the bucket incomplete until a later ping reschedules the pull.
func (s *Syncer) runPins(ctx context.Context, j pinsJob) error {
	manifest, err := s.fetchManifest(ctx, j.peer, j.target)
	if err != nil {
		return err
	}
	// the pin blob is a sequence, so its members come along too
	return s.fetcher.FetchFrom(ctx, j.peer, manifest.Pins)
}
