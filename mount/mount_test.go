// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package mount

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jax-protocol/jax-fs/blob"
	"github.com/jax-protocol/jax-fs/bucket"
	"github.com/jax-protocol/jax-fs/crypto"
)

func newIdentity(t *testing.T) *crypto.Identity {
	id, err := crypto.GenerateIdentity()
	require.NoError(t, err)
	return id
}

func newMount(t *testing.T) (*Mount, blob.Store, *crypto.Identity) {
	store := blob.NewMemStore()
	owner := newIdentity(t)
	m, err := Create(store, owner, "test")
	require.NoError(t, err)
	return m, store, owner
}

func addFile(t *testing.T, m *Mount, path, content string) {
	require.NoError(t, m.Add(path, strings.NewReader(content)))
}

func TestAddCatLs(t *testing.T) {
	require := require.New(t)
	m, _, _ := newMount(t)

	addFile(t, m, "/a.txt", "hello")
	addFile(t, m, "/docs/b.txt", "world")

	content, err := m.Cat("/a.txt")
	require.NoError(err)
	require.Equal([]byte("hello"), content)

	content, err = m.Cat("/docs/b.txt")
	require.NoError(err)
	require.Equal([]byte("world"), content)

	entries, err := m.Ls("/")
	require.NoError(err)
	require.Len(entries, 2)
	require.Equal("a.txt", entries[0].Name)
	require.False(entries[0].Link.Dir)
	require.Equal("text/plain; charset=utf-8", entries[0].Link.Metadata.MimeType)
	require.Equal("docs", entries[1].Name)
	require.True(entries[1].Link.Dir)

	_, err = m.Cat("/missing")
	require.ErrorIs(err, ErrNotFound)
	_, err = m.Cat("/docs")
	require.ErrorIs(err, ErrIsADirectory)
	_, err = m.Ls("/a.txt")
	require.ErrorIs(err, ErrNotADirectory)
	_, err = m.Ls("/missing")
	require.ErrorIs(err, ErrNotFound)
}

func TestPathValidation(t *testing.T) {
	require := require.New(t)
	m, _, _ := newMount(t)

	for _, bad := range []string{"", "a", "/foo//bar", "/./foo", "/../foo", "/foo/."} {
		require.ErrorIs(m.Add(bad, strings.NewReader("x")), ErrInvalidPath, bad)
	}
	// a file cannot be created at the root itself
	require.ErrorIs(m.Add("/", strings.NewReader("x")), ErrInvalidPath)
	require.ErrorIs(m.Rm("/"), ErrInvalidPath)
	require.ErrorIs(m.Mkdir("/"), ErrAlreadyExists)
}

func TestAddConflicts(t *testing.T) {
	require := require.New(t)
	m, _, _ := newMount(t)

	addFile(t, m, "/a", "1")
	require.ErrorIs(m.Add("/a", strings.NewReader("2")), ErrAlreadyExists)

	// a file blocks traversal
	require.ErrorIs(m.Add("/a/b", strings.NewReader("x")), ErrNotADirectory)
}

func TestMkdir(t *testing.T) {
	require := require.New(t)
	m, _, _ := newMount(t)

	require.NoError(m.Mkdir("/x/y/z"))
	entries, err := m.Ls("/x/y/z")
	require.NoError(err)
	require.Empty(entries)

	require.ErrorIs(m.Mkdir("/x/y/z"), ErrAlreadyExists)

	addFile(t, m, "/f", "file")
	require.ErrorIs(m.Mkdir("/f"), ErrNotADirectory)
}

func TestRm(t *testing.T) {
	require := require.New(t)
	m, _, _ := newMount(t)

	addFile(t, m, "/d/one", "1")
	addFile(t, m, "/d/two", "2")

	require.NoError(m.Rm("/d/one"))
	_, err := m.Cat("/d/one")
	require.ErrorIs(err, ErrNotFound)

	// recursive removal
	require.NoError(m.Rm("/d"))
	_, err = m.Ls("/d")
	require.ErrorIs(err, ErrNotFound)

	require.ErrorIs(m.Rm("/d"), ErrNotFound)
}

func TestMv(t *testing.T) {
	require := require.New(t)
	m, _, _ := newMount(t)

	addFile(t, m, "/src/file", "payload")

	require.NoError(m.Mv("/src/file", "/dst/deep/file"))
	content, err := m.Cat("/dst/deep/file")
	require.NoError(err)
	require.Equal([]byte("payload"), content)
	_, err = m.Cat("/src/file")
	require.ErrorIs(err, ErrNotFound)

	// no-op self move
	require.NoError(m.Mv("/dst/deep/file", "/dst/deep/file"))

	// destination occupied
	addFile(t, m, "/other", "o")
	require.ErrorIs(m.Mv("/other", "/dst/deep/file"), ErrAlreadyExists)

	// a directory cannot move beneath itself
	require.ErrorIs(m.Mv("/dst", "/dst/deep/x"), ErrInvalidPath)

	require.ErrorIs(m.Mv("/ghost", "/dst/ghost"), ErrNotFound)
}

func TestSaveReloadRoundTrip(t *testing.T) {
	require := require.New(t)
	m, store, owner := newMount(t)

	addFile(t, m, "/a.txt", "hello")
	addFile(t, m, "/sub/dir/b.txt", "nested")

	link, previous, err := m.Save()
	require.NoError(err)
	require.Nil(previous)

	reloaded, err := Open(store, owner, link)
	require.NoError(err)

	content, err := reloaded.Cat("/a.txt")
	require.NoError(err)
	require.Equal([]byte("hello"), content)
	content, err = reloaded.Cat("/sub/dir/b.txt")
	require.NoError(err)
	require.Equal([]byte("nested"), content)

	entries, err := reloaded.Ls("/")
	require.NoError(err)
	require.Len(entries, 2)
}

func TestSaveChainsPrevious(t *testing.T) {
	require := require.New(t)
	m, store, owner := newMount(t)

	addFile(t, m, "/v0", "0")
	genesis, previous, err := m.Save()
	require.NoError(err)
	require.Nil(previous)

	addFile(t, m, "/v1", "1")
	next, previous, err := m.Save()
	require.NoError(err)
	require.NotNil(previous)
	require.Equal(genesis, *previous)
	require.NotEqual(genesis, next)

	reloaded, err := Open(store, owner, next)
	require.NoError(err)
	require.NotNil(reloaded.Manifest().Previous)
	require.Equal(genesis, *reloaded.Manifest().Previous)
}

func TestSaveLeavesCleanSubtreesAlone(t *testing.T) {
	require := require.New(t)
	m, store, owner := newMount(t)

	addFile(t, m, "/stable/file", "fixed")
	addFile(t, m, "/volatile/file", "v0")
	first, _, err := m.Save()
	require.NoError(err)

	opened, err := Open(store, owner, first)
	require.NoError(err)
	entriesBefore, err := opened.Ls("/")
	require.NoError(err)

	require.NoError(opened.Rm("/volatile/file"))
	addFile(t, opened, "/volatile/file", "v1")
	_, _, err = opened.Save()
	require.NoError(err)

	entriesAfter, err := opened.Ls("/")
	require.NoError(err)

	var stableBefore, stableAfter bucket.NodeLink
	for _, e := range entriesBefore {
		if e.Name == "stable" {
			stableBefore = e.Link
		}
	}
	for _, e := range entriesAfter {
		if e.Name == "stable" {
			stableAfter = e.Link
		}
	}
	// the untouched subtree keeps both its link and its secret
	require.Equal(stableBefore, stableAfter)
}

func TestSavePinsCoverTree(t *testing.T) {
	require := require.New(t)
	m, store, _ := newMount(t)

	addFile(t, m, "/a", "a")
	addFile(t, m, "/d/b", "b")
	link, _, err := m.Save()
	require.NoError(err)

	raw, err := store.Get(link)
	require.NoError(err)
	manifest, err := bucket.ParseManifest(raw)
	require.NoError(err)

	pins, err := bucket.LoadPins(store, manifest.Pins)
	require.NoError(err)

	// the root node is pinned
	require.True(pins.Contains(manifest.Entry.Hash))
	// every pinned hash is present in the store
	for _, hash := range pins.Sorted() {
		ok, err := store.Has(blob.RawLink(hash))
		require.NoError(err)
		require.True(ok)
	}
	// root node, child node, two data blobs
	require.Equal(4, pins.Len())
}

func TestMirrorAndAuthorization(t *testing.T) {
	require := require.New(t)
	m, store, _ := newMount(t)

	mirror := newIdentity(t)
	stranger := newIdentity(t)
	require.NoError(m.AddMirror(mirror.Public()))
	addFile(t, m, "/a", "secret stuff")
	link, _, err := m.Save()
	require.NoError(err)

	// mirror cannot mount an unpublished bucket
	_, err = Open(store, mirror, link)
	require.ErrorIs(err, bucket.ErrMirrorCannotMount)

	// a stranger has no share at all
	_, err = Open(store, stranger, link)
	require.ErrorIs(err, bucket.ErrNotAuthorized)

	// after publication the mirror reads fine
	require.NoError(m.Publish())
	published, _, err := m.Save()
	require.NoError(err)

	mm, err := Open(store, mirror, published)
	require.NoError(err)
	content, err := mm.Cat("/a")
	require.NoError(err)
	require.Equal([]byte("secret stuff"), content)

	// but mirrors cannot save
	_, _, err = mm.Save()
	require.ErrorIs(err, bucket.ErrNotAuthorized)
	require.ErrorIs(mm.Publish(), bucket.ErrNotAuthorized)
}

func TestSecondOwnerCanMountAndSave(t *testing.T) {
	require := require.New(t)
	m, store, _ := newMount(t)

	second := newIdentity(t)
	require.NoError(m.AddOwner(second.Public()))
	addFile(t, m, "/shared", "data")
	link, _, err := m.Save()
	require.NoError(err)

	sm, err := Open(store, second, link)
	require.NoError(err)
	require.Equal(bucket.Owner, sm.Role())

	addFile(t, sm, "/more", "more")
	next, previous, err := sm.Save()
	require.NoError(err)
	require.Equal(link, *previous)
	require.NotEqual(link, next)
}
