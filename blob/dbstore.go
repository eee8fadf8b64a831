// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package blob

import (
	"errors"
	"io"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
)

// DBStore keeps blobs in a key-value database, keyed by hash. Useful when
// the deployment already carries a kv store and for mixed blob/metadata
// backends.
type DBStore struct {
	db database.Database
}

func NewDBStore(db database.Database) *DBStore {
	return &DBStore{db: db}
}

func (s *DBStore) put(codec Codec, data []byte) (Link, error) {
	link := NewLink(codec, data)
	ok, err := s.db.Has(link.Hash[:])
	if err != nil || ok {
		return link, err
	}
	return link, s.db.Put(link.Hash[:], data)
}

func (s *DBStore) Put(data []byte) (Link, error) {
	return s.put(Raw, data)
}

func (s *DBStore) PutStream(r io.Reader) (Link, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Link{}, err
	}
	return s.put(Raw, data)
}

func (s *DBStore) Get(link Link) ([]byte, error) {
	data, err := s.db.Get(link.Hash[:])
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrBlobMissing
	}
	return data, err
}

func (s *DBStore) GetRange(link Link, offset, length uint64) ([]byte, error) {
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

func (s *DBStore) Has(link Link) (bool, error) {
	return s.db.Has(link.Hash[:])
}

func (s *DBStore) PutSequence(hashes []ids.ID) (Link, error) {
	return s.put(Seq, encodeSequence(hashes))
}

func (s *DBStore) GetSequence(link Link) ([]ids.ID, error) {
	payload, err := s.Get(link)
	if err != nil {
		return nil, err
	}
	return decodeSequence(link, payload)
}
