// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

// Package mount exposes one bucket version as a virtual filesystem. A
// mount exclusively owns its staging copy of the decrypted tree; at most
// one writer may use a mount instance at a time.
package mount

import (
	"errors"

	"github.com/jax-protocol/jax-fs/blob"
	"github.com/jax-protocol/jax-fs/bucket"
	"github.com/jax-protocol/jax-fs/crypto"
)

var (
	ErrNotFound      = errors.New("path not found")
	ErrAlreadyExists = errors.New("path already exists")
	ErrIsADirectory  = errors.New("path is a directory")
	ErrNotADirectory = errors.New("path is not a directory")
)

// entry is one name within a directory: the wire form plus, for
// directories, the lazily loaded child.
type entry struct {
	link  bucket.NodeLink
	child *dir
}

// dir is a decrypted directory. Children load on first traversal; dirty
// directories re-encrypt on save.
type dir struct {
	entries map[string]*entry
	dirty   bool
}

func newDir() *dir {
	return &dir{entries: make(map[string]*entry), dirty: true}
}

// Mount is an exclusive working set over one bucket version
type Mount struct {
	store    blob.Store
	identity *crypto.Identity

	manifest     *bucket.Manifest
	manifestLink blob.Link
	genesis      bool

	secret crypto.Secret
	role   bucket.Role
	root   *dir
}

// Create stages a brand new bucket owned by identity. The first Save
// produces the genesis manifest.
func Create(store blob.Store, identity *crypto.Identity, name string) (*Mount, error) {
	secret, err := crypto.NewSecret()
	if err != nil {
		return nil, err
	}
	manifest, err := bucket.NewManifest(name, identity.Public(), secret)
	if err != nil {
		return nil, err
	}
	return &Mount{
		store:    store,
		identity: identity,
		manifest: manifest,
		genesis:  true,
		secret:   secret,
		role:     bucket.Owner,
		root:     newDir(),
	}, nil
}

// Open loads the bucket version behind manifestLink. The identity must
// hold a share; mirrors additionally need the bucket to be published.
func Open(store blob.Store, identity *crypto.Identity, manifestLink blob.Link) (*Mount, error) {
	raw, err := store.Get(manifestLink)
	if err != nil {
		return nil, err
	}
	manifest, err := bucket.ParseManifest(raw)
	if err != nil {
		return nil, err
	}
	secret, role, err := manifest.RecoverSecret(identity)
	if err != nil {
		return nil, err
	}

	m := &Mount{
		store:        store,
		identity:     identity,
		manifest:     manifest,
		manifestLink: manifestLink,
		secret:       secret,
		role:         role,
	}
	m.root, err = m.loadDir(manifest.Entry, secret)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// loadDir decrypts one directory node into its staging form
func (m *Mount) loadDir(link blob.Link, secret crypto.Secret) (*dir, error) {
	node, err := bucket.OpenNode(m.store, secret, link)
	if err != nil {
		return nil, err
	}
	d := &dir{entries: make(map[string]*entry, len(node.Links))}
	for name, nl := range node.Links {
		d.entries[name] = &entry{link: nl}
	}
	return d, nil
}

// Manifest returns the manifest this mount is staged on
func (m *Mount) Manifest() *bucket.Manifest {
	return m.manifest
}

// Role returns the identity's role in this bucket
func (m *Mount) Role() bucket.Role {
	return m.role
}

// child returns the loaded directory behind e, loading it on first use
func (m *Mount) child(e *entry) (*dir, error) {
	if !e.link.Dir && e.child == nil {
		return nil, ErrNotADirectory
	}
	if e.child == nil {
		d, err := m.loadDir(e.link.Link, e.link.Secret)
		if err != nil {
			return nil, err
		}
		e.child = d
	}
	return e.child, nil
}

// resolve walks parts from the root. With create set, missing components
// are created as directories; a data entry in the middle of the walk is
// ErrNotADirectory either way.
func (m *Mount) resolve(parts []string, create bool) (*dir, error) {
	d := m.root
	for _, name := range parts {
		e, ok := d.entries[name]
		if !ok {
			if !create {
				return nil, ErrNotFound
			}
			secret, err := crypto.NewSecret()
			if err != nil {
				return nil, err
			}
			e = &entry{
				link:  bucket.NodeLink{Dir: true, Secret: secret},
				child: newDir(),
			}
			d.entries[name] = e
			d.dirty = true
		}
		child, err := m.child(e)
		if err != nil {
			return nil, err
		}
		d = child
	}
	return d, nil
}

// markDirty flags every directory along parts, which must already
// resolve
func (m *Mount) markDirty(parts []string) {
	d := m.root
	d.dirty = true
	for _, name := range parts {
		e, ok := d.entries[name]
		if !ok || e.child == nil {
			return
		}
		d = e.child
		d.dirty = true
	}
}

// Save walks the staged tree bottom-up, re-encrypting dirty directories,
// writes the pin set, and stores a new manifest chained onto the version
// this mount was opened at. Only owners may save.
func (m *Mount) Save() (blob.Link, *blob.Link, error) {
	if m.role != bucket.Owner {
		return blob.Link{}, nil, bucket.ErrNotAuthorized
	}

	entryLink, err := m.saveDir(m.root, m.secret, m.manifest.Entry)
	if err != nil {
		return blob.Link{}, nil, err
	}

	pins := bucket.NewPins()
	pins.Add(entryLink.Hash)
	if err := m.collectPins(m.root, pins); err != nil {
		return blob.Link{}, nil, err
	}
	pinsLink, err := pins.Save(m.store)
	if err != nil {
		return blob.Link{}, nil, err
	}

	next := &bucket.Manifest{
		ID:              m.manifest.ID,
		Name:            m.manifest.Name,
		Shares:          m.manifest.Shares,
		Entry:           entryLink,
		Pins:            pinsLink,
		PublishedSecret: m.manifest.PublishedSecret,
		Version:         bucket.CurrentVersion,
	}
	var previous *blob.Link
	if !m.genesis {
		prev := m.manifestLink
		previous = &prev
		next.Previous = &prev
	}

	newLink, err := m.store.Put(next.Bytes())
	if err != nil {
		return blob.Link{}, nil, err
	}

	m.manifest = next
	m.manifestLink = newLink
	m.genesis = false
	return newLink, previous, nil
}

// saveDir persists d under secret if dirty, returning its link. Clean
// directories keep their stored link untouched: re-encryption would give
// an unchanged subtree a new hash.
func (m *Mount) saveDir(d *dir, secret crypto.Secret, existing blob.Link) (blob.Link, error) {
	if !d.dirty {
		return existing, nil
	}
	node := bucket.NewNode()
	for name, e := range d.entries {
		if e.link.Dir && e.child != nil && e.child.dirty {
			childLink, err := m.saveDir(e.child, e.link.Secret, e.link.Link)
			if err != nil {
				return blob.Link{}, err
			}
			e.link.Link = childLink
		}
		node.Links[name] = e.link
	}
	link, err := bucket.SealNode(m.store, secret, node)
	if err != nil {
		return blob.Link{}, err
	}
	d.dirty = false
	return link, nil
}

// collectPins gathers every node and data hash transitively reachable
// from d, loading unvisited subtrees as it goes.
func (m *Mount) collectPins(d *dir, pins *bucket.Pins) error {
	for _, e := range d.entries {
		pins.Add(e.link.Link.Hash)
		if !e.link.Dir {
			continue
		}
		child, err := m.child(e)
		if err != nil {
			return err
		}
		if err := m.collectPins(child, pins); err != nil {
			return err
		}
	}
	return nil
}

// Owner share management. Every operation stages a change that the next
// Save writes into the new manifest.

func (m *Mount) requireOwner() error {
	if m.role != bucket.Owner {
		return bucket.ErrNotAuthorized
	}
	return nil
}

// AddOwner grants pub a wrapped copy of the bucket secret
func (m *Mount) AddOwner(pub crypto.PublicKey) error {
	if err := m.requireOwner(); err != nil {
		return err
	}
	return m.manifest.AddOwner(pub, m.secret)
}

// AddMirror grants pub a metadata-only share
func (m *Mount) AddMirror(pub crypto.PublicKey) error {
	if err := m.requireOwner(); err != nil {
		return err
	}
	return m.manifest.AddMirror(pub)
}

// RemoveShare drops any share for pub
func (m *Mount) RemoveShare(pub crypto.PublicKey) error {
	if err := m.requireOwner(); err != nil {
		return err
	}
	m.manifest.RemoveShare(pub)
	return nil
}

// Publish exposes the bucket secret in the next saved manifest. Peers
// that ever see the published manifest can retain the secret forever.
func (m *Mount) Publish() error {
	if err := m.requireOwner(); err != nil {
		return err
	}
	m.manifest.Publish(m.secret)
	return nil
}

// Unpublish hides the secret from future versions only
func (m *Mount) Unpublish() error {
	if err := m.requireOwner(); err != nil {
		return err
	}
	m.manifest.Unpublish()
	return nil
}
