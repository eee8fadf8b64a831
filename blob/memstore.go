// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package blob

import (
	"io"
	"sync"

	"github.com/luxfi/ids"
)

// MemStore is an in-memory Store for tests and staging
type MemStore struct {
	mu    sync.RWMutex
	blobs map[ids.ID][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[ids.ID][]byte)}
}

func (s *MemStore) put(codec Codec, data []byte) (Link, error) {
	link := NewLink(codec, data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[link.Hash]; !ok {
		s.blobs[link.Hash] = append([]byte(nil), data...)
	}
	return link, nil
}

func (s *MemStore) Put(data []byte) (Link, error) {
	return s.put(Raw, data)
}

func (s *MemStore) PutStream(r io.Reader) (Link, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Link{}, err
	}
	return s.put(Raw, data)
}

func (s *MemStore) Get(link Link) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[link.Hash]
	if !ok {
		return nil, ErrBlobMissing
	}
	return append([]byte(nil), data...), nil
}

func (s *MemStore) GetRange(link Link, offset, length uint64) ([]byte, error) {
	data, err := s.Get(link)
	if err != nil {
		return nil, err
	}
	size := uint64(len(data))
	if offset >= size {
		return nil, nil
	}
	end := offset + length
	if end > size {
		end = size
	}
	return data[offset:end], nil
}

func (s *MemStore) Has(link Link) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[link.Hash]
	return ok, nil
}

func (s *MemStore) PutSequence(hashes []ids.ID) (Link, error) {
	return s.put(Seq, encodeSequence(hashes))
}

func (s *MemStore) GetSequence(link Link) ([]ids.ID, error) {
	payload, err := s.Get(link)
	if err != nil {
		return nil, err
	}
	return decodeSequence(link, payload)
}
