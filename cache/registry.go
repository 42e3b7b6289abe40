// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

// This file provides the index of live cache wrappers.  It started
// life as an LRU cache, but evicting a wrapper would hand out a second
// object for the same path, so nothing is ever evicted: a reset
// replaces the whole registry instead.

import (
	"sync"
)

// keyed describes things with registry keys, like every cache
// wrapper.
type keyed interface {
	key() string
}

// registry maps keys to wrappers.  The registry can be safely
// accessed from multiple goroutines, though the wrappers it holds
// cannot.
type registry struct {
	lock  sync.RWMutex
	index map[string]keyed
}

func newRegistry() *registry {
	return &registry{
		index: make(map[string]keyed),
	}
}

// Get retrieves an item from the registry.  If it is not present,
// calls the fetch function, and if that succeeds, saves the item and
// returns it.  This should return an error only if the item is not
// present and the fetch function returns an error.
//
// fetch runs without the lock held, so it may itself call Get.  If
// two callers fetch the same key, the first item saved wins and both
// get it.
func (r *registry) Get(key string, fetch func(string) (keyed, error)) (keyed, error) {
	// Check under the reader lock first; most lookups hit
	r.lock.RLock()
	item, present := r.index[key]
	r.lock.RUnlock()
	if present {
		return item, nil
	}

	item, err := fetch(key)
	if err != nil {
		return item, err
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	// Did somebody else add it in between?
	if existing, present := r.index[key]; present {
		return existing, nil
	}
	r.index[key] = item
	return item, nil
}

// Peek looks for an item in the registry and returns it if present,
// or returns nil if absent.
func (r *registry) Peek(key string) keyed {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.index[key]
}

// Len returns the number of items in the registry.
func (r *registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.index)
}
