// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipetest

import (
	"github.com/diffeo/go-pini/pipe"
)

func labels(entities []*pipe.Entity) []string {
	result := make([]string, len(entities))
	for i, ety := range entities {
		result[i] = ety.Label()
	}
	return result
}

// TestJobs checks that a created job is listed and reopens with the
// same path and config.
func (s *Suite) TestJobs() {
	jobs, err := s.Store.ReadJobs()
	if s.NoError(err) {
		s.Empty(jobs)
	}

	f := s.Braveheart()
	s.Equal(s.Layout.Root()+"/braveheart", f.Job.Path)

	jobs, err = s.Store.ReadJobs()
	if s.NoError(err) && s.Len(jobs, 1) {
		s.Equal("braveheart", jobs[0].Name)
		s.Equal(f.Job.Path, jobs[0].Path)
		s.Equal(f.Job.Config, jobs[0].Config)
	}

	again, err := s.Store.CreateJob("braveheart")
	if s.NoError(err) {
		s.Equal(f.Job.Path, again.Path)
	}
	jobs, err = s.Store.ReadJobs()
	if s.NoError(err) {
		s.Len(jobs, 1)
	}
}

// TestAssetTypes checks that asset types are listed, and that a
// created type is listed at once.
func (s *Suite) TestAssetTypes() {
	f := s.Braveheart()
	types, err := s.Store.ReadAssetTypes(f.Job)
	if s.NoError(err) {
		s.Equal([]string{"char", "prop"}, types)
	}

	s.NoError(s.Store.CreateAssetType(f.Job, "creature"))
	types, err = s.Store.ReadAssetTypes(f.Job)
	if s.NoError(err) {
		s.Equal([]string{"char", "creature", "prop"}, types)
	}
}

// TestAssets checks asset listing and its order.
func (s *Suite) TestAssets() {
	f := s.Braveheart()
	assets, err := s.Store.ReadAssets(f.Job)
	if s.NoError(err) {
		s.Equal([]string{"char.dog", "char.horse", "prop.axe"}, labels(assets))
		for _, ety := range assets {
			s.Equal(pipe.KindAsset, ety.Kind())
		}
	}
}

// TestCreateEntityTwice checks that creating an entity again is not
// an error and does not duplicate it.
func (s *Suite) TestCreateEntityTwice() {
	f := s.Braveheart()
	s.NoError(s.Store.CreateEntity(f.Horse))
	assets, err := s.Store.ReadAssets(f.Job)
	if s.NoError(err) {
		s.Len(assets, 3)
	}
}

// TestSequences checks sequence listing.
func (s *Suite) TestSequences() {
	f := s.Braveheart()
	seqs, err := s.Store.ReadSequences(f.Job)
	if s.NoError(err) && s.Len(seqs, 2) {
		s.Equal("seq010", seqs[0].Name)
		s.Equal("seq020", seqs[1].Name)
		s.Equal(f.Job.Path+"/episodes/seq010", seqs[0].Path)
	}
}

// TestShots checks shot listing for a job and for one sequence.
func (s *Suite) TestShots() {
	f := s.Braveheart()
	shots, err := s.Store.ReadShots(f.Job, nil)
	if s.NoError(err) {
		s.Equal([]string{"seq010_sh0010", "seq010_sh0020", "seq020_sh0010"}, labels(shots))
	}

	seq, err := f.Job.ToSequence("seq010")
	s.Require().NoError(err)
	shots, err = s.Store.ReadShots(f.Job, seq)
	if s.NoError(err) {
		s.Equal([]string{"seq010_sh0010", "seq010_sh0020"}, labels(shots))
	}
}
