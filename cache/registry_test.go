// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type aPath struct {
	p string
}

func (a *aPath) key() string {
	return a.p
}

func makePath(p string) (keyed, error) {
	return &aPath{p: p}, nil
}

func doNotMake(p string) (keyed, error) {
	return nil, assert.AnError
}

type RegistryAssertions struct {
	*assert.Assertions
	Registry *registry
}

func NewRegistryAssertions(t assert.TestingT) *RegistryAssertions {
	return &RegistryAssertions{
		assert.New(t),
		newRegistry(),
	}
}

// GetPath fetches an item from the registry, adding it if it is not
// present, and returns it.
func (a *RegistryAssertions) GetPath(p string) keyed {
	item, err := a.Registry.Get(p, makePath)
	if a.NoError(err) && a.IsType(&aPath{}, item) {
		a.Equal(p, item.key())
	}
	return item
}

// GetError tries to fetch an absent item, and the fetch fails.
func (a *RegistryAssertions) GetError(p string) {
	_, err := a.Registry.Get(p, doNotMake)
	a.Error(err)
}

// Has asserts that an item is in the registry.
func (a *RegistryAssertions) Has(p string) {
	item := a.Registry.Peek(p)
	if a.NotNil(item) {
		a.Equal(p, item.key())
	}
}

// DoesNotHave asserts that no item is in the registry.
func (a *RegistryAssertions) DoesNotHave(p string) {
	a.Nil(a.Registry.Peek(p))
}

// TestRegistrySimple tests minimal object presence.
func TestRegistrySimple(t *testing.T) {
	a := NewRegistryAssertions(t)
	a.GetPath("/jobs/braveheart")

	a.Has("/jobs/braveheart")
	a.DoesNotHave("/jobs/hamlet")
	a.Equal(1, a.Registry.Len())
}

// TestRegistryIdentity tests that Get returns the same item every
// time, and never evicts.
func TestRegistryIdentity(t *testing.T) {
	a := NewRegistryAssertions(t)

	first := a.GetPath("/jobs/braveheart")
	for i := 0; i < 100; i++ {
		a.GetPath("/jobs/other" + string(rune('a'+i%26)) + string(rune('a'+i/26)))
	}
	a.True(first == a.GetPath("/jobs/braveheart"))
	a.Equal(101, a.Registry.Len())
}

func TestRegistryInsertError(t *testing.T) {
	a := NewRegistryAssertions(t)

	a.GetPath("/jobs/braveheart")
	a.GetError("/jobs/hamlet")
	a.DoesNotHave("/jobs/hamlet")

	// The failing fetch is not called for present items
	item, err := a.Registry.Get("/jobs/braveheart", doNotMake)
	if a.NoError(err) {
		a.Equal("/jobs/braveheart", item.key())
	}
}

// TestRegistryNestedGet tests that a fetch function can itself get
// from the registry, as an output wrapper fetching its work dir does.
func TestRegistryNestedGet(t *testing.T) {
	a := NewRegistryAssertions(t)

	var inner keyed
	outer, err := a.Registry.Get("/jobs/braveheart/out.abc", func(p string) (keyed, error) {
		var err error
		inner, err = a.Registry.Get("/jobs/braveheart", makePath)
		if err != nil {
			return nil, err
		}
		return makePath(p)
	})
	if a.NoError(err) {
		a.Equal("/jobs/braveheart/out.abc", outer.key())
	}
	a.Has("/jobs/braveheart")
	a.True(inner == a.GetPath("/jobs/braveheart"))
	a.Equal(2, a.Registry.Len())
}

// TestRegistryConcurrentGet tests that racing Gets agree on one item.
func TestRegistryConcurrentGet(t *testing.T) {
	a := NewRegistryAssertions(t)
	var (
		wg    sync.WaitGroup
		items = make([]keyed, 16)
	)
	for i := range items {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			items[i], _ = a.Registry.Get("/jobs/braveheart", makePath)
		}(i)
	}
	wg.Wait()
	for _, item := range items {
		a.True(item == items[0])
	}
}
