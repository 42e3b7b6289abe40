// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipetest

import (
	"os"

	"github.com/diffeo/go-pini/pipe"
)

// TestWorkDirs checks work dir listing and task order.
func (s *Suite) TestWorkDirs() {
	f := s.Braveheart()
	wds, err := s.Store.ReadWorkDirs(f.Horse)
	if s.NoError(err) && s.Len(wds, 2) {
		s.Equal("model", wds[0].Task)
		s.Equal("rig", wds[1].Task)
		s.Equal(f.Model.Path, wds[0].Path)
	}

	wds, err = s.Store.ReadWorkDirs(f.Shots[0])
	if s.NoError(err) && s.Len(wds, 1) {
		s.Equal("anim", wds[0].Task)
	}

	wds, err = s.Store.ReadWorkDirs(f.Dog)
	if s.NoError(err) {
		s.Empty(wds)
	}
}

// TestWorks checks that work files are listed in version order.
func (s *Suite) TestWorks() {
	f := s.Braveheart()
	works, err := s.Store.ReadWorks(f.Model)
	if s.NoError(err) && s.Len(works, 2) {
		s.Equal(f.Works[0].Path, works[0].Path)
		s.Equal(f.Works[1].Path, works[1].Path)
		s.Equal(2, works[1].VerN)
		s.Equal("maya", works[1].DCC)
	}

	works, err = s.Store.ReadWorks(f.Rig)
	if s.NoError(err) {
		s.Empty(works)
	}
}

// TestWorkDirOutputs checks that registered publishes are listed
// with their work dir, and not as entity outputs.
func (s *Suite) TestWorkDirOutputs() {
	f := s.Braveheart()
	outs, err := s.Store.ReadWorkDirOutputs(f.Model)
	if s.NoError(err) && s.Len(outs, 2) {
		for i, out := range outs {
			s.Equal(f.Publishes[i].Path, out.Path)
			s.Equal("publish", out.Type)
			s.Equal(i+1, out.VerN)
			if s.NotNil(out.WorkDir) {
				s.Equal(f.Model.Path, out.WorkDir.Path)
			}
		}
		s.Equal(outs[0].Stream(), outs[1].Stream())
	}

	outs, err = s.Store.ReadOutputs(f.Horse)
	if s.NoError(err) {
		s.Empty(outs)
	}
}

// TestRegisterOutputTwice checks that registering again does not
// duplicate an output.
func (s *Suite) TestRegisterOutputTwice() {
	f := s.Braveheart()
	s.NoError(s.Store.RegisterOutput(f.Publishes[1]))
	outs, err := s.Store.ReadWorkDirOutputs(f.Model)
	if s.NoError(err) {
		s.Len(outs, 2)
	}
}

// TestDeleteOutput checks that a deleted output is no longer listed
// and its file is gone.
func (s *Suite) TestDeleteOutput() {
	f := s.Braveheart()
	pub := f.Publishes[1]
	s.Require().NoError(pipe.WriteMetadata(pub.Path, pipe.Metadata{"owner": "wallace"}))
	s.NoError(s.Store.DeleteOutput(pub))
	for _, p := range []string{pub.Path, pub.MetadataPath()} {
		_, err := os.Stat(p)
		s.True(os.IsNotExist(err), "%v still exists", p)
	}

	outs, err := s.Store.ReadWorkDirOutputs(f.Model)
	if s.NoError(err) && s.Len(outs, 1) {
		s.Equal(f.Publishes[0].Path, outs[0].Path)
	}
}
