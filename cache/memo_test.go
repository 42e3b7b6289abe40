// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMethod = method{level: "test", name: "numbers"}

// counter returns a compute function that counts its calls.
func counter(calls *int, value []int) func() ([]int, error) {
	return func() ([]int, error) {
		*calls++
		return value, nil
	}
}

func TestMemo(t *testing.T) {
	var (
		m     memo[[]int]
		calls int
	)
	value, err := m.get(testMethod, UseCache, counter(&calls, []int{1}))
	assert.NoError(t, err)
	assert.Equal(t, []int{1}, value)

	value, err = m.get(testMethod, UseCache, counter(&calls, []int{2}))
	assert.NoError(t, err)
	assert.Equal(t, []int{1}, value)
	assert.Equal(t, 1, calls)

	value, err = m.get(testMethod, ForceReread, counter(&calls, []int{3}))
	assert.NoError(t, err)
	assert.Equal(t, []int{3}, value)
	assert.Equal(t, 2, calls)

	// A failed computation keeps the old value
	_, err = m.get(testMethod, ForceReread, func() ([]int, error) {
		return nil, errors.New("no")
	})
	assert.Error(t, err)
	cached, ok := m.cached()
	assert.True(t, ok)
	assert.Equal(t, []int{3}, cached)

	m.clear()
	_, ok = m.cached()
	assert.False(t, ok)
}

func testRoot(maxAge time.Duration) (*Root, *clock.Mock) {
	mock := clock.NewMock()
	mock.Set(time.Now())
	return &Root{clock: mock, maxAge: maxAge}, mock
}

func TestFileMemo(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	root, _ := testRoot(0)
	p := dir + "/.pini/cache/numbers.cbor"

	var calls int
	m := newFileMemo[[]int](root, dir, p)
	value, err := m.get(testMethod, UseCache, counter(&calls, []int{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, value)
	_, err = os.Stat(p)
	assert.NoError(t, err)

	// A second memo on the same file does not compute
	other := newFileMemo[[]int](root, dir, p)
	value, err = other.get(testMethod, UseCache, counter(&calls, []int{3}))
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2}, value)
	assert.Equal(t, 1, calls)

	// ...unless forced, which rewrites the file
	value, err = other.get(testMethod, ForceReread, counter(&calls, []int{3}))
	assert.NoError(t, err)
	assert.Equal(t, []int{3}, value)
	third := newFileMemo[[]int](root, dir, p)
	value, ok := third.read(testMethod)
	assert.True(t, ok)
	assert.Equal(t, []int{3}, value)
}

func TestFileMemoYAML(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	root, _ := testRoot(0)
	p := dir + "/.pini/numbers.yml"

	m := newFileMemo[[]int](root, dir, p)
	m.write(testMethod, []int{4, 5})
	b, err := os.ReadFile(p)
	if assert.NoError(t, err) {
		assert.Equal(t, "- 4\n- 5\n", string(b))
	}
}

func TestFileMemoMissingAnchor(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	root, _ := testRoot(0)
	anchor := dir + "/gone"
	p := anchor + "/.pini/numbers.yml"

	var calls int
	m := newFileMemo[[]int](root, anchor, p)
	_, err := m.get(testMethod, UseCache, counter(&calls, []int{1}))
	assert.NoError(t, err)
	_, err = os.Stat(anchor)
	assert.True(t, os.IsNotExist(err))
}

func TestFileMemoPathTooLong(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	root, _ := testRoot(0)
	p := dir + "/" + strings.Repeat("x", MaxPathLen) + ".cbor"

	var calls int
	m := newFileMemo[[]int](root, dir, p)
	assert.Equal(t, "", m.path)
	value, err := m.get(testMethod, UseCache, counter(&calls, []int{1}))
	assert.NoError(t, err)
	assert.Equal(t, []int{1}, value)

	// Still cached in memory
	value, err = m.get(testMethod, UseCache, counter(&calls, []int{2}))
	assert.NoError(t, err)
	assert.Equal(t, []int{1}, value)
	assert.Equal(t, 1, calls)
}

func TestFileMemoMaxAge(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	root, mock := testRoot(time.Hour)
	p := dir + "/numbers.cbor"

	var calls int
	m := newFileMemo[[]int](root, dir, p)
	_, err := m.get(testMethod, UseCache, counter(&calls, []int{1}))
	require.NoError(t, err)

	other := newFileMemo[[]int](root, dir, p)
	mock.Add(30 * time.Minute)
	_, ok := other.read(testMethod)
	assert.True(t, ok)

	mock.Add(time.Hour)
	_, ok = other.read(testMethod)
	assert.False(t, ok)
}

func TestFileMemoCorrupt(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	root, _ := testRoot(0)
	p := dir + "/numbers.cbor"
	require.NoError(t, os.WriteFile(p, []byte{0x82, 0x01}, 0644))

	var calls int
	m := newFileMemo[[]int](root, dir, p)
	value, err := m.get(testMethod, UseCache, counter(&calls, []int{7}))
	assert.NoError(t, err)
	assert.Equal(t, []int{7}, value)
	assert.Equal(t, 1, calls)
}

func TestRefreshPolicyString(t *testing.T) {
	assert.Equal(t, "cache", UseCache.String())
	assert.Equal(t, "force", ForceReread.String())
}
