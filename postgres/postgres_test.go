// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package postgres_test

import (
	"os"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-pini/postgres"
	"github.com/diffeo/go-pini/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStore creates a store from the libpq environment variables.
// Tests are skipped unless PGHOST is set.
func newStore(t *testing.T) (*postgres.Store, *clock.Mock) {
	if os.Getenv("PGHOST") == "" {
		t.Skip("PGHOST not set")
	}
	clk := clock.NewMock()
	clk.Add(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC).Sub(clk.Now()))
	store, err := postgres.NewWithClock("", clk)
	require.NoError(t, err)
	_, err = store.DB().Exec("DELETE FROM snapshot")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, clk
}

type window struct {
	Label   string                   `codec:"label"`
	Records []map[string]interface{} `codec:"records"`
}

func TestGetPut(t *testing.T) {
	store, _ := newStore(t)
	var _ snapshot.Store = store

	var out window
	found, err := store.Get("braveheart/Shot/2025", &out)
	require.NoError(t, err)
	assert.False(t, found)

	in := window{
		Label:   "2025",
		Records: []map[string]interface{}{{"id": int64(7), "code": "sh010"}},
	}
	require.NoError(t, store.Put("braveheart/Shot/2025", in))
	found, err = store.Get("braveheart/Shot/2025", &out)
	require.NoError(t, err)
	if assert.True(t, found) {
		assert.Equal(t, in, out)
	}

	require.NoError(t, store.Put("braveheart/Shot/2025", window{Label: "again"}))
	out = window{}
	found, err = store.Get("braveheart/Shot/2025", &out)
	if assert.NoError(t, err) && assert.True(t, found) {
		assert.Equal(t, "again", out.Label)
	}

	assert.Equal(t, snapshot.ErrBadKey, store.Put("", in))
}

func TestPrune(t *testing.T) {
	store, clk := newStore(t)
	require.NoError(t, store.Put("old", window{Label: "old"}))
	clk.Add(48 * time.Hour)
	require.NoError(t, store.Put("new", window{Label: "new"}))

	count, err := store.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var out window
	found, err := store.Get("old", &out)
	require.NoError(t, err)
	assert.False(t, found)
	found, err = store.Get("new", &out)
	require.NoError(t, err)
	assert.True(t, found)
}
