// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package bucket

import (
	"bytes"
	"sort"

	"github.com/luxfi/ids"

	"github.com/jax-protocol/jax-fs/blob"
	"github.com/jax-protocol/jax-fs/utils/set"
)

// Pins is the set of hashes a peer commits to retain for one manifest
// version: every node blob and every file blob of its tree. The pin-set
// blob is not a member of its own set, since a blob cannot contain its own
// hash; it is reached through the manifest's Pins link.
type Pins struct {
	Hashes set.Set[ids.ID]
}

func NewPins() *Pins {
	return &Pins{Hashes: set.NewSet[ids.ID](16)}
}

// Add pins hashes
func (p *Pins) Add(hashes ...ids.ID) {
	p.Hashes.Add(hashes...)
}

// Contains reports whether hash is pinned
func (p *Pins) Contains(hash ids.ID) bool {
	return p.Hashes.Contains(hash)
}

func (p *Pins) Len() int {
	return p.Hashes.Len()
}

// Sorted returns the pinned hashes ascending by byte value. This is the
// single canonical order the pin-set blob stores.
func (p *Pins) Sorted() []ids.ID {
	hashes := p.Hashes.List()
	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})
	return hashes
}

// Save stores the pin set as a hash sequence and returns its link
func (p *Pins) Save(store blob.Store) (blob.Link, error) {
	return store.PutSequence(p.Sorted())
}

// LoadPins reads a pin set back from its sequence link
func LoadPins(store blob.Store, link blob.Link) (*Pins, error) {
	hashes, err := store.GetSequence(link)
	if err != nil {
		return nil, err
	}
	pins := NewPins()
	pins.Add(hashes...)
	return pins, nil
}
