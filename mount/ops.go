// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package mount

import (
	"bytes"
	"io"
	"mime"
	"path/filepath"
	"sort"

	"github.com/jax-protocol/jax-fs/bucket"
	"github.com/jax-protocol/jax-fs/crypto"
)

// DirEntry is one row of an Ls listing
type DirEntry struct {
	Name string
	Link bucket.NodeLink
}

// Ls lists a directory in name order
func (m *Mount) Ls(path string) ([]DirEntry, error) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	d, err := m.resolve(parts, false)
	if err != nil {
		return nil, err
	}
	out := make([]DirEntry, 0, len(d.entries))
	for name, e := range d.entries {
		out = append(out, DirEntry{Name: name, Link: e.link})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// lookup resolves the parent directory and the final entry of path
func (m *Mount) lookup(parts []string) (*dir, *entry, error) {
	if len(parts) == 0 {
		return nil, nil, ErrInvalidPath
	}
	parent, err := m.resolve(parts[:len(parts)-1], false)
	if err != nil {
		return nil, nil, err
	}
	e, ok := parent.entries[parts[len(parts)-1]]
	if !ok {
		return parent, nil, ErrNotFound
	}
	return parent, e, nil
}

// Cat returns the decrypted content of a file
func (m *Mount) Cat(path string) ([]byte, error) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, ErrIsADirectory
	}
	_, e, err := m.lookup(parts)
	if err != nil {
		return nil, err
	}
	if e.link.Dir {
		return nil, ErrIsADirectory
	}
	ciphertext, err := m.store.Get(e.link.Link)
	if err != nil {
		return nil, err
	}
	return crypto.Decrypt(e.link.Secret, ciphertext)
}

// Reader streams a file's decrypted content
func (m *Mount) Reader(path string) (io.Reader, error) {
	content, err := m.Cat(path)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(content), nil
}

// Mkdir creates a new empty directory, creating intermediate directories
// as needed
func (m *Mount) Mkdir(path string) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return ErrAlreadyExists
	}
	parent, err := m.resolve(parts[:len(parts)-1], true)
	if err != nil {
		return err
	}
	name := parts[len(parts)-1]
	if e, ok := parent.entries[name]; ok {
		if e.link.Dir {
			return ErrAlreadyExists
		}
		return ErrNotADirectory
	}
	secret, err := crypto.NewSecret()
	if err != nil {
		return err
	}
	parent.entries[name] = &entry{
		link:  bucket.NodeLink{Dir: true, Secret: secret},
		child: newDir(),
	}
	m.markDirty(parts[:len(parts)-1])
	return nil
}

// Add creates a new file from r with a fresh per-file secret, creating
// intermediate directories as needed. The final component must not exist.
func (m *Mount) Add(path string, r io.Reader) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return ErrInvalidPath
	}
	parent, err := m.resolve(parts[:len(parts)-1], true)
	if err != nil {
		return err
	}
	name := parts[len(parts)-1]
	if _, ok := parent.entries[name]; ok {
		return ErrAlreadyExists
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	secret, err := crypto.NewSecret()
	if err != nil {
		return err
	}
	ciphertext, err := crypto.Encrypt(secret, content)
	if err != nil {
		return err
	}
	link, err := m.store.Put(ciphertext)
	if err != nil {
		return err
	}

	parent.entries[name] = &entry{link: bucket.NodeLink{
		Link:   link,
		Secret: secret,
		Metadata: bucket.Metadata{
			MimeType: mime.TypeByExtension(filepath.Ext(name)),
		},
	}}
	m.markDirty(parts[:len(parts)-1])
	return nil
}

// Rm removes an entry. Removing a directory drops its whole subtree.
func (m *Mount) Rm(path string) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return ErrInvalidPath
	}
	parent, _, err := m.lookup(parts)
	if err != nil {
		return err
	}
	delete(parent.entries, parts[len(parts)-1])
	m.markDirty(parts[:len(parts)-1])
	return nil
}

// Mv moves an entry to an absent destination, creating intermediate
// directories on the destination side. The moved subtree keeps its links
// and secrets.
func (m *Mount) Mv(from, to string) error {
	fromParts, err := splitPath(from)
	if err != nil {
		return err
	}
	toParts, err := splitPath(to)
	if err != nil {
		return err
	}
	if len(fromParts) == 0 || len(toParts) == 0 {
		return ErrInvalidPath
	}
	if isPrefix(fromParts, toParts) {
		if len(fromParts) == len(toParts) {
			// mv onto itself is a no-op
			return nil
		}
		// cannot move a directory beneath itself
		return ErrInvalidPath
	}

	fromParent, e, err := m.lookup(fromParts)
	if err != nil {
		return err
	}
	toParent, err := m.resolve(toParts[:len(toParts)-1], true)
	if err != nil {
		return err
	}
	toName := toParts[len(toParts)-1]
	if _, ok := toParent.entries[toName]; ok {
		return ErrAlreadyExists
	}

	delete(fromParent.entries, fromParts[len(fromParts)-1])
	toParent.entries[toName] = e
	m.markDirty(fromParts[:len(fromParts)-1])
	m.markDirty(toParts[:len(toParts)-1])
	return nil
}
