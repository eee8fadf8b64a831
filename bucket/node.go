// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bucket holds the encrypted content-addressed data model: nodes,
// manifests, pin sets, and the sharing records that gate decryption.
package bucket

import (
	"errors"
	"sort"
	"strings"

	"github.com/jax-protocol/jax-fs/blob"
	"github.com/jax-protocol/jax-fs/crypto"
	"github.com/jax-protocol/jax-fs/utils/wrappers"
)

var (
	ErrInvalidNode = errors.New("invalid node encoding")
	ErrInvalidName = errors.New("invalid entry name")
)

const (
	maxNameLen     = 4096
	maxNodeEntries = 1 << 20
)

// entry kind tags on the wire
const (
	kindData byte = iota
	kindDir
)

// Metadata carries non-structural file attributes
type Metadata struct {
	MimeType string
	Custom   map[string]string
}

// NodeLink is one directory entry: a link to an encrypted child blob plus
// the secret that decrypts it. Dir entries reference child nodes, Data
// entries reference file content.
type NodeLink struct {
	Dir      bool
	Link     blob.Link
	Secret   crypto.Secret
	Metadata Metadata
}

// Node is a directory: a mapping from component names to entries. The
// encoding sorts names by raw UTF-8 bytes so equal nodes serialize to
// equal bytes.
type Node struct {
	Links map[string]NodeLink
}

func NewNode() *Node {
	return &Node{Links: make(map[string]NodeLink)}
}

// ValidName rejects names that cannot be path components
func ValidName(name string) error {
	if name == "" || name == "." || name == ".." ||
		len(name) > maxNameLen || strings.ContainsRune(name, '/') {
		return ErrInvalidName
	}
	return nil
}

// sortedNames returns entry names in canonical order
func (n *Node) sortedNames() []string {
	names := make([]string, 0, len(n.Links))
	for name := range n.Links {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func packLink(p *wrappers.Packer, l blob.Link) {
	p.PackByte(byte(l.Codec))
	p.PackFixedBytes(l.Hash[:])
}

func unpackLink(p *wrappers.Packer) blob.Link {
	codec := blob.Codec(p.UnpackByte())
	hash := p.UnpackFixedBytes(32)
	if p.Errored() || codec > blob.Seq {
		p.Add(errBadCodec)
		return blob.Link{}
	}
	var link blob.Link
	link.Codec = codec
	copy(link.Hash[:], hash)
	return link
}

var errBadCodec = errors.New("unknown link codec")

// Bytes serializes the node canonically
func (n *Node) Bytes() []byte {
	p := &wrappers.Packer{MaxSize: 256 * 1024 * 1024}
	p.PackInt(uint32(len(n.Links)))
	for _, name := range n.sortedNames() {
		entry := n.Links[name]
		p.PackStr(name)
		if entry.Dir {
			p.PackByte(kindDir)
		} else {
			p.PackByte(kindData)
		}
		packLink(p, entry.Link)
		p.PackFixedBytes(entry.Secret[:])
		if !entry.Dir {
			packMetadata(p, entry.Metadata)
		}
	}
	return p.Bytes
}

func packMetadata(p *wrappers.Packer, m Metadata) {
	p.PackStr(m.MimeType)
	keys := make([]string, 0, len(m.Custom))
	for k := range m.Custom {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	p.PackInt(uint32(len(keys)))
	for _, k := range keys {
		p.PackStr(k)
		p.PackStr(m.Custom[k])
	}
}

func unpackMetadata(p *wrappers.Packer) Metadata {
	m := Metadata{MimeType: p.UnpackStr()}
	count := p.UnpackInt()
	if count > maxNodeEntries {
		p.Add(ErrInvalidNode)
		return m
	}
	prev := ""
	for i := uint32(0); i < count && !p.Errored(); i++ {
		k := p.UnpackStr()
		v := p.UnpackStr()
		if i > 0 && k <= prev {
			p.Add(ErrInvalidNode)
			return m
		}
		prev = k
		if m.Custom == nil {
			m.Custom = make(map[string]string)
		}
		m.Custom[k] = v
	}
	return m
}

// ParseNode decodes a canonical node encoding, rejecting anything that
// does not round-trip to identical bytes.
func ParseNode(raw []byte) (*Node, error) {
	p := &wrappers.Packer{Bytes: raw}
	count := p.UnpackInt()
	if count > maxNodeEntries {
		return nil, ErrInvalidNode
	}
	node := &Node{Links: make(map[string]NodeLink, count)}
	prev := ""
	for i := uint32(0); i < count && !p.Errored(); i++ {
		name := p.UnpackStr()
		if ValidName(name) != nil || (i > 0 && name <= prev) {
			return nil, ErrInvalidNode
		}
		prev = name

		kind := p.UnpackByte()
		entry := NodeLink{Link: unpackLink(p)}
		copy(entry.Secret[:], p.UnpackFixedBytes(crypto.KeyLen))
		switch kind {
		case kindDir:
			entry.Dir = true
		case kindData:
			entry.Metadata = unpackMetadata(p)
		default:
			return nil, ErrInvalidNode
		}
		node.Links[name] = entry
	}
	p.Finish()
	if p.Errored() {
		return nil, ErrInvalidNode
	}
	return node, nil
}

// SealNode encrypts the canonical encoding under secret and stores it.
// The returned link is what the parent records.
func SealNode(store blob.Store, secret crypto.Secret, node *Node) (blob.Link, error) {
	ciphertext, err := crypto.Encrypt(secret, node.Bytes())
	if err != nil {
		return blob.Link{}, err
	}
	return store.Put(ciphertext)
}

// OpenNode fetches, decrypts, and parses the node behind link
func OpenNode(store blob.Store, secret crypto.Secret, link blob.Link) (*Node, error) {
	ciphertext, err := store.Get(link)
	if err != nil {
		return nil, err
	}
	plaintext, err := crypto.Decrypt(secret, ciphertext)
	if err != nil {
		return nil, err
	}
	return ParseNode(plaintext)
}
