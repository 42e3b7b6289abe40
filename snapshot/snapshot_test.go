// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package snapshot

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type window struct {
	Label   string                   `codec:"label"`
	Records []map[string]interface{} `codec:"records"`
}

var sample = window{
	Label: "2026-03",
	Records: []map[string]interface{}{
		{"id": int64(4), "code": "horse", "updated_at": "2026-03-10T12:00:00.000000Z"},
		{"id": int64(5), "code": "dog", "done": true},
	},
}

func testStore(t *testing.T, store Store) {
	var out window
	found, err := store.Get("braveheart/Asset/2026-03", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Put("braveheart/Asset/2026-03", sample))
	found, err = store.Get("braveheart/Asset/2026-03", &out)
	require.NoError(t, err)
	if assert.True(t, found) {
		assert.Equal(t, sample, out)
	}

	// replace
	require.NoError(t, store.Put("braveheart/Asset/2026-03", window{Label: "x"}))
	out = window{}
	found, err = store.Get("braveheart/Asset/2026-03", &out)
	if assert.NoError(t, err) && assert.True(t, found) {
		assert.Equal(t, "x", out.Label)
		assert.Empty(t, out.Records)
	}
}

// TestDecodeUntyped checks that untyped CBOR comes back as string
// maps and signed integers, the shapes tracker records use.
func TestDecodeUntyped(t *testing.T) {
	b, err := Encode(map[string]interface{}{"id": 4, "code": "horse"})
	require.NoError(t, err)

	var out interface{}
	require.NoError(t, Decode(b, &out))
	assert.Equal(t, map[string]interface{}{"id": int64(4), "code": "horse"}, out)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	testStore(t, m)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, ErrBadKey, m.Put("", sample))
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	testStore(t, NewFiles(dir))
	_, err := ioutil.ReadFile(filepath.Join(dir, "braveheart", "Asset", "2026-03.cbor"))
	assert.NoError(t, err)
}

func TestFilesCorrupt(t *testing.T) {
	dir := t.TempDir()
	files := NewFiles(dir)
	p, err := files.Path("broken")
	require.NoError(t, err)
	require.NoError(t, ioutil.WriteFile(p, []byte{0xff, 0x00, 0x12}, 0644))

	var out window
	found, err := files.Get("broken", &out)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestFilesBadKey(t *testing.T) {
	files := NewFiles(t.TempDir())
	for _, key := range []string{"", "/abs", "a/../b", "a//b", "a/./b"} {
		_, err := files.Path(key)
		assert.Equal(t, ErrBadKey, err, key)
		assert.Equal(t, ErrBadKey, files.Put(key, sample), key)
	}
}
