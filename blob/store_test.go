// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package blob

import (
	"bytes"
	"strings"
	"testing"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
	"lukechampine.com/blake3"
)

func stores(t *testing.T) map[string]Store {
	fs, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	return map[string]Store{
		"mem": NewMemStore(),
		"fs":  fs,
		"db":  NewDBStore(memdb.New()),
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			data := []byte("some stored bytes")
			link, err := store.Put(data)
			require.NoError(err)
			require.Equal(Raw, link.Codec)
			require.Equal(ids.ID(blake3.Sum256(data)), link.Hash)

			got, err := store.Get(link)
			require.NoError(err)
			require.Equal(data, got)

			// identical bytes return the identical link
			again, err := store.Put(data)
			require.NoError(err)
			require.Equal(link, again)

			ok, err := store.Has(link)
			require.NoError(err)
			require.True(ok)
		})
	}
}

func TestGetMissing(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			link := NewLink(Raw, []byte("never stored"))
			_, err := store.Get(link)
			require.ErrorIs(err, ErrBlobMissing)

			ok, err := store.Has(link)
			require.NoError(err)
			require.False(ok)
		})
	}
}

func TestPutStream(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			data := bytes.Repeat([]byte("stream me "), 10_000)
			link, err := store.PutStream(strings.NewReader(string(data)))
			require.NoError(err)

			direct := NewLink(Raw, data)
			require.Equal(direct, link)

			got, err := store.Get(link)
			require.NoError(err)
			require.Equal(data, got)
		})
	}
}

func TestGetRange(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			link, err := store.Put([]byte("0123456789"))
			require.NoError(err)

			got, err := store.GetRange(link, 2, 3)
			require.NoError(err)
			require.Equal([]byte("234"), got)

			// read past the end truncates
			got, err = store.GetRange(link, 8, 10)
			require.NoError(err)
			require.Equal([]byte("89"), got)

			got, err = store.GetRange(link, 20, 1)
			require.NoError(err)
			require.Empty(got)
		})
	}
}

func TestSequenceRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			var hashes []ids.ID
			for _, blobData := range []string{"a", "b", "c"} {
				link, err := store.Put([]byte(blobData))
				require.NoError(err)
				hashes = append(hashes, link.Hash)
			}

			seqLink, err := store.PutSequence(hashes)
			require.NoError(err)
			require.Equal(Seq, seqLink.Codec)

			got, err := store.GetSequence(seqLink)
			require.NoError(err)
			require.Equal(hashes, got)

			// a raw link is not a sequence
			raw, err := store.Put([]byte("not a sequence"))
			require.NoError(err)
			_, err = store.GetSequence(raw)
			require.ErrorIs(err, ErrNotSequence)
		})
	}
}

func TestLinkStringRoundTrip(t *testing.T) {
	require := require.New(t)

	for _, link := range []Link{
		NewLink(Raw, []byte("raw blob")),
		NewLink(Seq, []byte("seq blob")),
	} {
		parsed, err := ParseLink(link.String())
		require.NoError(err)
		require.Equal(link, parsed)
	}

	for _, bad := range []string{
		"",
		"raw",
		"raw:",
		"raw:zz",
		"raw:abcd",
		"wat:" + strings.Repeat("ab", 32),
	} {
		_, err := ParseLink(bad)
		require.ErrorIs(err, ErrInvalidLink)
	}
}

func TestLinkCompare(t *testing.T) {
	require := require.New(t)

	a := Link{Codec: Raw, Hash: ids.ID{0x01}}
	b := Link{Codec: Raw, Hash: ids.ID{0x02}}
	require.Negative(a.Compare(b))
	require.Positive(b.Compare(a))
	require.Zero(a.Compare(a))
}
