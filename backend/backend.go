// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package backend provides a standard way to construct a pipe.Store
// based on command-line flags.
package backend

import (
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-pini/disk"
	"github.com/diffeo/go-pini/pipe"
	"github.com/diffeo/go-pini/postgres"
	"github.com/diffeo/go-pini/snapshot"
	"github.com/diffeo/go-pini/tracker"
	"github.com/pkg/errors"
)

// Backend describes user-visible parameters to select the pipeline
// master.  This implements the flag.Value interface, and so a typical
// use is
//
//	func main() {
//		backend := backend.Backend{Implementation: "disk"}
//		flag.Var(&backend, "master", "disk or tracker:URL")
//		flag.Parse()
//		store, err := backend.Store(layout, backend.Options{})
//	}
//
// It is also a cli.Generic, and can be used with cli.GenericFlag.
type Backend struct {
	// Implementation holds the name of the implementation, "disk"
	// or "tracker".
	Implementation string

	// Address holds some backend-specific address, such as the
	// tracker's base URL.
	Address string
}

// Options holds the parts of a store that do not come from the flag.
type Options struct {
	Clock     clock.Clock
	Snapshots snapshot.Store
	PathMap   pipe.PathMap
}

// Store creates a new pipe.Store.  This generally should be only
// called once: a tracker store holds its window snapshots and its
// HTTP client.
func (b *Backend) Store(layout pipe.Layout, opts Options) (pipe.Store, error) {
	switch b.Implementation {
	case disk.Master:
		return disk.New(layout), nil
	case tracker.Master:
		client, err := tracker.NewClient(b.Address)
		if err != nil {
			return nil, err
		}
		return tracker.New(layout, client, tracker.Options{
			Clock:     opts.Clock,
			Snapshots: opts.Snapshots,
			PathMap:   opts.PathMap,
		}), nil
	default:
		return nil, errors.Errorf("unknown pipeline master %q", b.Implementation)
	}
}

// String renders a backend description as a string.
func (b *Backend) String() string {
	if b.Address == "" {
		return b.Implementation
	}
	return b.Implementation + ":" + b.Address
}

// Set parses a string into an existing backend description.  The
// string should be of the form "implementation:address", where
// address can be any string.  Set checks to see if the provided
// implementation is any of the known implementations, and returns an
// appropriate error if not.
//
// This is part of the flag.Value interface.  Set does not validate
// the address or try to connect to it.
func (b *Backend) Set(param string) error {
	impl, addr := split(param)
	switch impl {
	case disk.Master, tracker.Master:
	case "":
		return errors.New("must specify a pipeline master")
	default:
		return errors.Errorf("unknown pipeline master %q", impl)
	}
	b.Implementation = impl
	b.Address = addr
	return nil
}

// Snapshots describes where a tracker store keeps its window
// snapshots: "memory", "files:DIR" or "postgres:URL".  Like Backend,
// it is a flag.Value.
type Snapshots struct {
	Implementation string
	Address        string
}

// Store opens the snapshot store.  The caller should close it if it
// is an io.Closer.
func (s *Snapshots) Store(clk clock.Clock) (snapshot.Store, error) {
	switch s.Implementation {
	case "", "memory":
		return snapshot.NewMemory(), nil
	case "files":
		if s.Address == "" {
			return nil, errors.New("files snapshots need a directory")
		}
		return snapshot.NewFiles(s.Address), nil
	case "postgres":
		if clk == nil {
			clk = clock.New()
		}
		store, err := postgres.NewWithClock(s.Address, clk)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, errors.Errorf("unknown snapshot store %q", s.Implementation)
	}
}

func (s *Snapshots) String() string {
	if s.Address == "" {
		return s.Implementation
	}
	return s.Implementation + ":" + s.Address
}

// Set parses "implementation:address".
func (s *Snapshots) Set(param string) error {
	impl, addr := split(param)
	switch impl {
	case "memory", "files", "postgres":
	default:
		return errors.Errorf("unknown snapshot store %q", impl)
	}
	s.Implementation = impl
	s.Address = addr
	return nil
}

func split(param string) (string, string) {
	parts := strings.SplitN(param, ":", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
