// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package blob

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/luxfi/ids"
	"lukechampine.com/blake3"
)

// FSStore stores each blob as a file named by its hash, sharded by the
// first hash byte. Writes land in a temp file first and are renamed into
// place, so a blob is either fully present or absent.
type FSStore struct {
	root string
}

func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(filepath.Join(root, "tmp"), 0o755); err != nil {
		return nil, err
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) path(hash ids.ID) string {
	name := hex.EncodeToString(hash[:])
	return filepath.Join(s.root, name[:2], name)
}

func (s *FSStore) commit(tmp string, hash ids.ID) error {
	final := s.path(hash)
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		// lost the race to an identical blob
		if _, statErr := os.Stat(final); statErr == nil {
			_ = os.Remove(tmp)
			return nil
		}
		return err
	}
	return nil
}

func (s *FSStore) put(codec Codec, data []byte) (Link, error) {
	link := NewLink(codec, data)
	if ok, err := s.Has(link); err != nil || ok {
		return link, err
	}
	tmp, err := os.CreateTemp(filepath.Join(s.root, "tmp"), "put-*")
	if err != nil {
		return Link{}, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return Link{}, err
	}
	if err := tmp.Close(); err != nil {
		return Link{}, err
	}
	return link, s.commit(tmp.Name(), link.Hash)
}

func (s *FSStore) Put(data []byte) (Link, error) {
	return s.put(Raw, data)
}

// PutStream hashes while spooling to the temp file, so large blobs never
// sit in memory whole.
func (s *FSStore) PutStream(r io.Reader) (Link, error) {
	tmp, err := os.CreateTemp(filepath.Join(s.root, "tmp"), "put-*")
	if err != nil {
		return Link{}, err
	}
	defer os.Remove(tmp.Name())

	hasher := blake3.New(HashLen, nil)
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), r); err != nil {
		tmp.Close()
		return Link{}, err
	}
	if err := tmp.Close(); err != nil {
		return Link{}, err
	}

	link := Link{Codec: Raw, Hash: ids.ID(hasher.Sum(nil))}
	if ok, err := s.Has(link); err != nil || ok {
		return link, err
	}
	return link, s.commit(tmp.Name(), link.Hash)
}

func (s *FSStore) Get(link Link) ([]byte, error) {
	data, err := os.ReadFile(s.path(link.Hash))
	if os.IsNotExist(err) {
		return nil, ErrBlobMissing
	}
	return data, err
}

func (s *FSStore) GetRange(link Link, offset, length uint64) ([]byte, error) {
	f, err := os.Open(s.path(link.Hash))
	if os.IsNotExist(err) {
		return nil, ErrBlobMissing
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := uint64(info.Size())
	if offset >= size {
		return nil, nil
	}
	if end := offset + length; end > size {
		length = size - offset
	}
	out := make([]byte, length)
	if _, err := f.ReadAt(out, int64(offset)); err != nil {
		return nil, fmt.Errorf("read %s: %w", link, err)
	}
	return out, nil
}

func (s *FSStore) Has(link Link) (bool, error) {
	_, err := os.Stat(s.path(link.Hash))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (s *FSStore) PutSequence(hashes []ids.ID) (Link, error) {
	return s.put(Seq, encodeSequence(hashes))
}

func (s *FSStore) GetSequence(link Link) ([]ids.ID, error) {
	payload, err := s.Get(link)
	if err != nil {
		return nil, err
	}
	return decodeSequence(link, payload)
}
