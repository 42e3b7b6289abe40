// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package pipetest provides generic functional tests for the
// pipe.Store interface.  A typical store test module needs to wrap
// Suite to create its store:
//
//	package mystore
//
//	import (
//		"testing"
//		"github.com/diffeo/go-pini/pipe"
//		"github.com/diffeo/go-pini/pipe/pipetest"
//		"github.com/stretchr/testify/suite"
//	)
//
//	// Suite is the per-store generic test suite.
//	type Suite struct{
//		pipetest.Suite
//	}
//
//	// SetupSuite does global setup for the test suite.
//	func (s *Suite) SetupSuite() {
//		s.Suite.SetupSuite()
//		s.NewStore = func(layout pipe.Layout) (pipe.Store, error) {
//			return New(layout), nil
//		}
//	}
//
//	// TestStore runs the Store generic tests.
//	func TestStore(t *testing.T) {
//		suite.Run(t, &Suite{})
//	}
package pipetest

import (
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-pini/pipe"
	"github.com/stretchr/testify/suite"
)

// Epoch is the time the suite's mock clock starts at.
var Epoch = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

// Suite is the generic Store test suite.
type Suite struct {
	suite.Suite

	// Clock contains the alternate time source to be used in
	// tests.  It is pre-initialized to a mock clock set to Epoch.
	Clock *clock.Mock

	// NewStore creates the store under test over an empty jobs
	// root.  It is set by importing packages.
	NewStore func(layout pipe.Layout) (pipe.Store, error)

	// Layout is a fresh jobs root for each test.
	Layout pipe.Layout

	// Store is the store under test, created by NewStore before
	// each test.
	Store pipe.Store
}

// SetupSuite does one-time initialization for the test suite.
func (s *Suite) SetupSuite() {
	s.Clock = clock.NewMock()
	s.Clock.Set(Epoch)
}

// SetupTest creates a new jobs root and store for each test.
func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStore, "NewStore not set")
	s.Layout = pipe.Layout{JobsRoot: filepath.ToSlash(s.T().TempDir())}
	store, err := s.NewStore(s.Layout)
	s.Require().NoError(err)
	s.Store = store
}
