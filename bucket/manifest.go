// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package bucket

import (
	"bytes"
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/jax-protocol/jax-fs/blob"
	"github.com/jax-protocol/jax-fs/crypto"
	"github.com/jax-protocol/jax-fs/utils/wrappers"
)

var (
	ErrInvalidManifest   = errors.New("invalid manifest encoding")
	ErrNotAuthorized     = errors.New("identity has no share for this bucket")
	ErrMirrorCannotMount = errors.New("mirror share cannot decrypt an unpublished bucket")
	ErrShareExists       = errors.New("principal already has a share")
)

// Role of a principal within a bucket
type Role uint8

const (
	// Owner holds a wrapped copy of the bucket secret and may write
	Owner Role = iota
	// Mirror replicates content but can only decrypt once published
	Mirror
)

func (r Role) String() string {
	switch r {
	case Owner:
		return "owner"
	case Mirror:
		return "mirror"
	default:
		return "unknown"
	}
}

// Principal identifies one peer and its role
type Principal struct {
	Role      Role
	PublicKey crypto.PublicKey
}

// Share grants the bucket secret to a principal. Owners always carry a
// wrapped secret; mirrors carry none until publication makes the secret
// public.
type Share struct {
	Principal Principal
	Wrapped   []byte
}

// Version is the software version that wrote a manifest
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
}

// CurrentVersion is stamped on every manifest written by this build
var CurrentVersion = Version{Major: 0, Minor: 3, Patch: 0}

// Manifest is the root record of one bucket version. Manifests are
// canonically encoded and stored unencrypted: share lists, links, and the
// published flag must be readable without the bucket secret.
type Manifest struct {
	ID              uuid.UUID
	Name            string
	Shares          map[crypto.PublicKey]Share
	Entry           blob.Link
	Pins            blob.Link
	Previous        *blob.Link
	PublishedSecret *crypto.Secret
	Version         Version
}

// NewManifest starts a genesis manifest for a fresh bucket, granting the
// creator an owner share.
func NewManifest(name string, creator crypto.PublicKey, secret crypto.Secret) (*Manifest, error) {
	m := &Manifest{
		ID:      uuid.New(),
		Name:    name,
		Shares:  make(map[crypto.PublicKey]Share),
		Version: CurrentVersion,
	}
	if err := m.AddOwner(creator, secret); err != nil {
		return nil, err
	}
	return m, nil
}

// IsPublished reports whether the manifest carries a plaintext secret
func (m *Manifest) IsPublished() bool {
	return m.PublishedSecret != nil
}

// Share returns the share for a public key
func (m *Manifest) Share(pub crypto.PublicKey) (Share, bool) {
	s, ok := m.Shares[pub]
	return s, ok
}

// AddOwner wraps the bucket secret to pub and inserts an owner share
func (m *Manifest) AddOwner(pub crypto.PublicKey, secret crypto.Secret) error {
	if _, ok := m.Shares[pub]; ok {
		return ErrShareExists
	}
	wrapped, err := crypto.ShareFor(pub, secret)
	if err != nil {
		return err
	}
	m.Shares[pub] = Share{
		Principal: Principal{Role: Owner, PublicKey: pub},
		Wrapped:   wrapped,
	}
	return nil
}

// AddMirror inserts a mirror share with no wrapped secret
func (m *Manifest) AddMirror(pub crypto.PublicKey) error {
	if _, ok := m.Shares[pub]; ok {
		return ErrShareExists
	}
	m.Shares[pub] = Share{
		Principal: Principal{Role: Mirror, PublicKey: pub},
	}
	return nil
}

// RemoveShare deletes any share for pub
func (m *Manifest) RemoveShare(pub crypto.PublicKey) {
	delete(m.Shares, pub)
}

// Publish exposes the bucket secret in the manifest. Any peer that ever
// observes the published manifest can retain the secret; Unpublish cannot
// take it back.
func (m *Manifest) Publish(secret crypto.Secret) {
	s := secret
	m.PublishedSecret = &s
}

// Unpublish removes the plaintext secret from future versions
func (m *Manifest) Unpublish() {
	m.PublishedSecret = nil
}

// RecoverSecret yields the bucket secret for the given identity: owners
// unwrap their share, mirrors require publication.
func (m *Manifest) RecoverSecret(id *crypto.Identity) (crypto.Secret, Role, error) {
	share, ok := m.Shares[id.Public()]
	if !ok {
		return crypto.Secret{}, 0, ErrNotAuthorized
	}
	if share.Wrapped != nil {
		secret, err := crypto.Recover(id, share.Wrapped)
		return secret, share.Principal.Role, err
	}
	if m.PublishedSecret != nil {
		return *m.PublishedSecret, share.Principal.Role, nil
	}
	return crypto.Secret{}, 0, ErrMirrorCannotMount
}

// sortedShareKeys returns share keys ordered by raw public key bytes
func (m *Manifest) sortedShareKeys() []crypto.PublicKey {
	keys := make([]crypto.PublicKey, 0, len(m.Shares))
	for pub := range m.Shares {
		keys = append(keys, pub)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})
	return keys
}

// Bytes serializes the manifest canonically
func (m *Manifest) Bytes() []byte {
	p := &wrappers.Packer{MaxSize: 64 * 1024 * 1024}
	p.PackFixedBytes(m.ID[:])
	p.PackStr(m.Name)

	p.PackInt(uint32(len(m.Shares)))
	for _, pub := range m.sortedShareKeys() {
		share := m.Shares[pub]
		p.PackFixedBytes(pub[:])
		p.PackByte(byte(share.Principal.Role))
		if share.Wrapped != nil {
			p.PackBool(true)
			p.PackFixedBytes(share.Wrapped)
		} else {
			p.PackBool(false)
		}
	}

	packLink(p, m.Entry)
	packLink(p, m.Pins)

	if m.Previous != nil {
		p.PackBool(true)
		packLink(p, *m.Previous)
	} else {
		p.PackBool(false)
	}

	if m.PublishedSecret != nil {
		p.PackBool(true)
		p.PackFixedBytes(m.PublishedSecret[:])
	} else {
		p.PackBool(false)
	}

	p.PackInt(m.Version.Major)
	p.PackInt(m.Version.Minor)
	p.PackInt(m.Version.Patch)
	return p.Bytes
}

// Link addresses the manifest's canonical bytes
func (m *Manifest) Link() blob.Link {
	return blob.NewLink(blob.Raw, m.Bytes())
}

// ParseManifest decodes a canonical manifest encoding. Unknown role tags,
// malformed shares, and trailing bytes are all rejected.
func ParseManifest(raw []byte) (*Manifest, error) {
	p := &wrappers.Packer{Bytes: raw}
	m := &Manifest{}

	idBytes := p.UnpackFixedBytes(16)
	if p.Errored() {
		return nil, ErrInvalidManifest
	}
	copy(m.ID[:], idBytes)
	m.Name = p.UnpackStr()

	count := p.UnpackInt()
	if count > maxNodeEntries {
		return nil, ErrInvalidManifest
	}
	m.Shares = make(map[crypto.PublicKey]Share, count)
	var prev crypto.PublicKey
	for i := uint32(0); i < count && !p.Errored(); i++ {
		var pub crypto.PublicKey
		copy(pub[:], p.UnpackFixedBytes(crypto.KeyLen))
		if i > 0 && bytes.Compare(pub[:], prev[:]) <= 0 {
			return nil, ErrInvalidManifest
		}
		prev = pub

		role := Role(p.UnpackByte())
		if role != Owner && role != Mirror {
			return nil, ErrInvalidManifest
		}
		share := Share{Principal: Principal{Role: role, PublicKey: pub}}
		if p.UnpackBool() {
			share.Wrapped = p.UnpackFixedBytes(crypto.ShareLen)
		}
		if role == Owner && share.Wrapped == nil {
			return nil, ErrInvalidManifest
		}
		m.Shares[pub] = share
	}

	m.Entry = unpackLink(p)
	m.Pins = unpackLink(p)

	if p.UnpackBool() {
		link := unpackLink(p)
		m.Previous = &link
	}
	if p.UnpackBool() {
		var secret crypto.Secret
		copy(secret[:], p.UnpackFixedBytes(crypto.KeyLen))
		m.PublishedSecret = &secret
	}

	m.Version.Major = p.UnpackInt()
	m.Version.Minor = p.UnpackInt()
	m.Version.Patch = p.UnpackInt()

	p.Finish()
	if p.Errored() {
		return nil, ErrInvalidManifest
	}
	return m, nil
}
