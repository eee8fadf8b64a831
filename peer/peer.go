// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

// Package peer is the composition root: it wires identity, blob store,
// bucket log, transport, and sync engine into one running node.
package peer

import (
	"context"
	"fmt"
	"os"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jax-protocol/jax-fs/blob"
	"github.com/jax-protocol/jax-fs/bucketlog"
	"github.com/jax-protocol/jax-fs/config"
	"github.com/jax-protocol/jax-fs/crypto"
	"github.com/jax-protocol/jax-fs/mount"
	"github.com/jax-protocol/jax-fs/p2p"
	"github.com/jax-protocol/jax-fs/syncer"

	"github.com/google/uuid"
)

// Peer is one running node: an identity plus its stores, transport, and
// sync engine.
type Peer struct {
	cfg      config.Config
	identity *crypto.Identity
	store    blob.Store
	vlog     bucketlog.Log
	node     *p2p.Node
	sync     *syncer.Syncer
	logger   log.Logger

	closers []func() error
}

// New builds a peer from configuration, creating the identity, blob
// store, and bucket log at the configured paths on first run.
func New(cfg config.Config, logger log.Logger, registerer prometheus.Registerer) (*Peer, error) {
	if err := cfg.Valid(); err != nil {
		return nil, err
	}

	identity, err := loadOrCreateIdentity(cfg.IdentityPath)
	if err != nil {
		return nil, err
	}
	store, err := blob.NewFSStore(cfg.BlobStorePath)
	if err != nil {
		return nil, fmt.Errorf("blob store: %w", err)
	}
	vlog, err := bucketlog.NewSQLLog(cfg.LogPath, logger)
	if err != nil {
		return nil, fmt.Errorf("bucket log: %w", err)
	}

	node, err := p2p.NewNode(identity, store, cfg.ListenAddrs, cfg.RequestTimeout, logger)
	if err != nil {
		vlog.Close()
		return nil, err
	}
	client := node.Client()

	sync, err := syncer.New(
		syncer.Config{
			QueueCapacity:  cfg.JobQueueCapacity,
			PingInterval:   cfg.PingInterval,
			RequestTimeout: cfg.RequestTimeout,
		},
		identity.Public(),
		store,
		client,
		client,
		vlog,
		logger,
		registerer,
	)
	if err != nil {
		vlog.Close()
		node.Close()
		return nil, err
	}

	return &Peer{
		cfg:      cfg,
		identity: identity,
		store:    store,
		vlog:     vlog,
		node:     node,
		sync:     sync,
		logger:   logger,
		closers:  []func() error{node.Close, vlog.Close},
	}, nil
}

func loadOrCreateIdentity(path string) (*crypto.Identity, error) {
	identity, err := crypto.LoadIdentity(path)
	if err == nil {
		return identity, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	identity, err = crypto.GenerateIdentity()
	if err != nil {
		return nil, err
	}
	return identity, identity.Save(path)
}

// Start brings up the transport, dials bootstrap peers, and launches the
// sync engine.
func (p *Peer) Start(ctx context.Context) error {
	p.node.Start(p.sync)
	for _, addr := range p.cfg.Bootstrap {
		if err := p.node.Connect(ctx, addr); err != nil {
			p.logger.Warn("bootstrap dial failed", "addr", addr, "err", err)
		}
	}
	p.sync.Start()
	return nil
}

// Stop shuts the peer down cooperatively
func (p *Peer) Stop() error {
	p.sync.Stop()
	var firstErr error
	for _, close := range p.closers {
		if err := close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Identity returns this peer's public key
func (p *Peer) Identity() crypto.PublicKey {
	return p.identity.Public()
}

// Addrs returns dialable addresses for this peer
func (p *Peer) Addrs() []string {
	return p.node.AddrStrings()
}

// Connect dials another peer by address
func (p *Peer) Connect(ctx context.Context, addr string) error {
	return p.node.Connect(ctx, addr)
}

// Subscribe returns the stream of log mutations
func (p *Peer) Subscribe() <-chan syncer.BucketUpdated {
	return p.sync.Subscribe()
}

// Buckets enumerates the locally known buckets
func (p *Peer) Buckets() ([]uuid.UUID, error) {
	return p.vlog.Buckets()
}

// Log exposes the version log for read-side consumers
func (p *Peer) Log() bucketlog.Log {
	return p.vlog
}

// CreateBucket stages a new bucket owned by this peer. Save writes its
// genesis version.
func (p *Peer) CreateBucket(name string) (*mount.Mount, error) {
	return mount.Create(p.store, p.identity, name)
}

// OpenBucket mounts the canonical head of a bucket
func (p *Peer) OpenBucket(bucketID uuid.UUID) (*mount.Mount, error) {
	head, _, err := p.vlog.Head(bucketID)
	if err != nil {
		return nil, err
	}
	return mount.Open(p.store, p.identity, head)
}

// OpenVersion mounts an explicit manifest link, published head or not
func (p *Peer) OpenVersion(link blob.Link) (*mount.Mount, error) {
	return mount.Open(p.store, p.identity, link)
}

// Save persists a mutated mount, appends the new version to the log, and
// announces it to every peer in the share list.
func (p *Peer) Save(m *mount.Mount) (blob.Link, uint64, error) {
	link, previous, err := m.Save()
	if err != nil {
		return blob.Link{}, 0, err
	}

	height := uint64(0)
	if previous != nil {
		heights, err := p.vlog.Has(m.Manifest().ID, *previous)
		if err != nil {
			return blob.Link{}, 0, err
		}
		if len(heights) == 0 {
			return blob.Link{}, 0, bucketlog.ErrOrphanParent
		}
		height = heights[0]
		for _, h := range heights[1:] {
			if h > height {
				height = h
			}
		}
		height++
	}

	err = p.vlog.Append(bucketlog.Entry{
		Bucket:    m.Manifest().ID,
		Height:    height,
		Link:      link,
		Previous:  previous,
		Name:      m.Manifest().Name,
		Published: m.Manifest().IsPublished(),
	})
	if err != nil {
		return blob.Link{}, 0, err
	}

	p.logger.Info("saved bucket version",
		"bucket", m.Manifest().ID, "link", link, "height", height)
	p.sync.NotifySaved(m.Manifest(), link, height)
	return link, height, nil
}
