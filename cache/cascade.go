// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// event is a change to the pipeline made through the cache.
type event string

const (
	jobCreated       event = "job_created"
	assetTypeCreated event = "asset_type_created"
	assetCreated     event = "asset_created"
	shotCreated      event = "shot_created"
	workDirCreated   event = "work_dir_created"
	workSaved        event = "work_saved"
	outputRegistered event = "output_registered"
	outputDeleted    event = "output_deleted"
)

// subject is what an event happened to, and its parents.  Fields
// below the level of the event are nil.
type subject struct {
	root    *Root
	job     *Job
	entity  *Entity
	workDir *WorkDir
	seqDir  *OutputSeqDir
	work    *Work
	output  *Output
}

// target is one listing an event makes stale.
type target struct {
	name   string
	reread func(subject) error
}

// outputTargets are reread when an output appears or disappears.
var outputTargets = []target{
	{"output_seq_dir.outputs", func(s subject) error {
		if s.seqDir == nil {
			return nil
		}
		_, err := s.seqDir.FindOutputs(ForceReread)
		return err
	}},
	{"parent.outputs", func(s subject) error {
		var err error
		if s.workDir != nil {
			_, err = s.workDir.FindOutputs(ForceReread)
		} else {
			_, err = s.entity.FindOutputs(ForceReread)
		}
		return err
	}},
	{"entity.publishes", func(s subject) error {
		if s.output.BasicType() != "publish" {
			return nil
		}
		_, err := s.entity.FindPublishes(ForceReread)
		return err
	}},
}

// cascades lists, per event, the listings to reread, in order.
var cascades = map[event][]target{
	jobCreated: {
		{"root.jobs", func(s subject) error {
			_, err := s.root.FindJobs(ForceReread)
			return err
		}},
	},
	assetTypeCreated: {
		{"job.asset_types", func(s subject) error {
			_, err := s.job.FindAssetTypes(ForceReread)
			return err
		}},
	},
	assetCreated: {
		{"job.asset_types", func(s subject) error {
			_, err := s.job.FindAssetTypes(ForceReread)
			return err
		}},
		{"job.assets", func(s subject) error {
			_, err := s.job.readTypeAssets(s.entity.AssetType, ForceReread)
			return err
		}},
	},
	shotCreated: {
		{"job.sequences", func(s subject) error {
			if _, err := s.job.ObtSequence(s.entity.Sequence); err == nil {
				return nil
			}
			_, err := s.job.FindSequences(ForceReread)
			return err
		}},
		{"sequence.shots", func(s subject) error {
			if !s.job.UsesSequenceDirs() {
				_, err := s.job.readShots(ForceReread)
				return err
			}
			seq, err := s.job.ObtSequence(s.entity.Sequence)
			if err != nil {
				return err
			}
			_, err = seq.FindShots(ForceReread)
			return err
		}},
	},
	workDirCreated: {
		{"entity.work_dirs", func(s subject) error {
			_, err := s.entity.FindWorkDirs(ForceReread)
			return err
		}},
	},
	workSaved: {
		{"work_dir.works", func(s subject) error {
			_, err := s.workDir.FindWorks(ForceReread)
			return err
		}},
		{"work.outputs", func(s subject) error {
			_, err := s.work.FindOutputs(ForceReread)
			return err
		}},
	},
	outputRegistered: outputTargets,
	outputDeleted:    outputTargets,
}

// cascade rereads every listing ev makes stale.  It stops at the
// first failure.
func (r *Root) cascade(ev event, s subject) error {
	for _, t := range cascades[ev] {
		logrus.WithFields(logrus.Fields{
			"event":  string(ev),
			"target": t.name,
		}).Debug("rereading after change")
		cascadeRuns.WithLabelValues(string(ev), t.name).Inc()
		if err := t.reread(s); err != nil {
			return errors.Wrapf(err, "rereading %v after %v", t.name, ev)
		}
	}
	return nil
}

