// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package disk provides a pipe.Store that finds pipeline objects by
// globbing the job templates against the filesystem.  Every path a
// glob turns up is parsed back into an object; paths that look right
// but do not validate are skipped.
package disk

import (
	"io/ioutil"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/diffeo/go-pini/pipe"
	"github.com/diffeo/go-pini/template"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Master is the name of this store.
const Master = "disk"

// Store is the filesystem pipe.Store.
type Store struct {
	layout pipe.Layout
}

// New creates a disk store over a jobs root.
func New(layout pipe.Layout) *Store {
	return &Store{layout: layout}
}

// Master returns "disk".
func (s *Store) Master() string {
	return Master
}

// Layout returns where jobs live.
func (s *Store) Layout() pipe.Layout {
	return s.layout
}

// ReadJobs returns every job directory in the jobs root.
func (s *Store) ReadJobs() ([]*pipe.Job, error) {
	root := s.layout.Root()
	if root == "" {
		return nil, pipe.ErrNoJobsRoot
	}
	infos, err := ioutil.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var jobs []*pipe.Job
	for _, info := range infos {
		if !info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			continue
		}
		job, err := s.layout.OpenJob(root + "/" + info.Name())
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"job": info.Name(),
				"err": err,
			}).Warn("skipping job with bad config")
			continue
		}
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Less(jobs[j]) })
	return jobs, nil
}

// CreateJob sets up a job directory.
func (s *Store) CreateJob(name string) (*pipe.Job, error) {
	return s.layout.SetupJob(name)
}

// ReadAssetTypes returns the asset type directories of a job.  If the
// job does not group assets by type, the types of its assets are
// returned instead.
func (s *Store) ReadAssetTypes(job *pipe.Job) ([]string, error) {
	tmpl, err := job.AssetTypeTemplate()
	if err != nil {
		assets, err := s.ReadAssets(job)
		if err != nil {
			return nil, err
		}
		return AssetTypes(assets), nil
	}
	paths, err := tmpl.Glob()
	if err != nil {
		return nil, err
	}
	var types []string
	for _, p := range paths {
		data, err := tmpl.Parse(p)
		if err != nil {
			continue
		}
		types = append(types, data["asset_type"])
	}
	sort.Strings(types)
	return types, nil
}

// AssetTypes returns the distinct, sorted asset types of some assets.
func AssetTypes(assets []*pipe.Entity) []string {
	seen := make(map[string]bool)
	var types []string
	for _, ety := range assets {
		if !seen[ety.AssetType] {
			seen[ety.AssetType] = true
			types = append(types, ety.AssetType)
		}
	}
	sort.Strings(types)
	return types
}

// ReadAssets globs the asset templates of a job.
func (s *Store) ReadAssets(job *pipe.Job) ([]*pipe.Entity, error) {
	return s.readEntities(job, job.EntityTemplates(pipe.AssetProfile), pipe.AssetProfile)
}

// ReadSequences returns the sequences of a job.  If the job keeps
// shots in sequence directories these are globbed; otherwise the
// sequences are those named by its shots.
func (s *Store) ReadSequences(job *pipe.Job) ([]*pipe.Sequence, error) {
	tmpl, err := job.SequenceTemplate()
	if err != nil {
		shots, err := s.ReadShots(job, nil)
		if err != nil {
			return nil, err
		}
		return Sequences(job, shots), nil
	}
	paths, err := tmpl.Glob()
	if err != nil {
		return nil, err
	}
	var seqs []*pipe.Sequence
	for _, p := range paths {
		seq, err := pipe.NewSequence(job, p)
		if err != nil || seq.Path != p {
			skip(p, err)
			continue
		}
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i].Less(seqs[j]) })
	return seqs, nil
}

// Sequences returns the distinct sequences of some shots, in order.
func Sequences(job *pipe.Job, shots []*pipe.Entity) []*pipe.Sequence {
	seen := make(map[string]bool)
	var seqs []*pipe.Sequence
	for _, shot := range shots {
		if shot.Sequence == "" || seen[shot.Sequence] {
			continue
		}
		seen[shot.Sequence] = true
		seq, err := job.ToSequence(shot.Sequence)
		if err != nil {
			continue
		}
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i].Less(seqs[j]) })
	return seqs
}

// ReadShots globs the shot templates of a job, restricted to one
// sequence if seq is not nil.
func (s *Store) ReadShots(job *pipe.Job, seq *pipe.Sequence) ([]*pipe.Entity, error) {
	templates := job.EntityTemplates(pipe.ShotProfile)
	if seq != nil {
		for i, t := range templates {
			templates[i] = t.ApplyData(map[string]string{"sequence": seq.Name})
		}
	}
	return s.readEntities(job, templates, pipe.ShotProfile)
}

func (s *Store) readEntities(job *pipe.Job, templates []*template.Template, profile string) ([]*pipe.Entity, error) {
	paths, err := globAll(templates)
	if err != nil {
		return nil, err
	}
	var result []*pipe.Entity
	for _, p := range paths {
		ety, err := pipe.NewEntity(job, p)
		if err != nil || ety.Path != p || ety.Profile != profile {
			skip(p, err)
			continue
		}
		result = append(result, ety)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Less(result[j]) })
	return result, nil
}

// ReadWorkDirs globs the work dir templates of an entity.
func (s *Store) ReadWorkDirs(ety *pipe.Entity) ([]*pipe.WorkDir, error) {
	paths, err := globAll(ety.FindTemplates(template.Query{Type: "work_dir"}))
	if err != nil {
		return nil, err
	}
	var result []*pipe.WorkDir
	for _, p := range paths {
		wd, err := pipe.NewWorkDir(ety, p)
		if err != nil || wd.Path != p {
			skip(p, err)
			continue
		}
		result = append(result, wd)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Less(result[j]) })
	return result, nil
}

// ReadWorks globs the work file templates of every dcc in a work
// dir.
func (s *Store) ReadWorks(wd *pipe.WorkDir) ([]*pipe.Work, error) {
	var templates []*template.Template
	for _, dcc := range template.DCCs {
		templates = append(templates, wd.WorkTemplates(dcc)...)
	}
	paths, err := globAll(templates)
	if err != nil {
		return nil, err
	}
	var result []*pipe.Work
	for _, p := range paths {
		work, err := pipe.NewWork(wd, p)
		if err != nil {
			skip(p, err)
			continue
		}
		result = append(result, work)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Less(result[j]) })
	return result, nil
}

// ReadOutputs globs the entity-level output templates of an entity
// that are not read through sequence directories.
func (s *Store) ReadOutputs(ety *pipe.Entity) ([]*pipe.Output, error) {
	return s.readOutputs(ety, nil, direct(ety.OutputTemplates(pipe.OutputTypes())))
}

// ReadWorkDirOutputs globs the output templates of a work dir that
// are not read through sequence directories.
func (s *Store) ReadWorkDirOutputs(wd *pipe.WorkDir) ([]*pipe.Output, error) {
	return s.readOutputs(wd.Entity, wd, direct(wd.OutputTemplates(pipe.OutputTypes())))
}

func (s *Store) readOutputs(ety *pipe.Entity, wd *pipe.WorkDir, templates []*template.Template) ([]*pipe.Output, error) {
	paths, err := globAll(templates)
	if err != nil {
		return nil, err
	}
	var result []*pipe.Output
	for _, p := range paths {
		out, err := pipe.NewOutput(ety, wd, p)
		if err != nil {
			skip(p, err)
			continue
		}
		if (wd == nil) != (out.WorkDir == nil) {
			continue
		}
		result = append(result, out)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Less(result[j]) })
	return result, nil
}

// direct drops the templates whose outputs live in sequence
// directories.
func direct(templates []*template.Template) []*template.Template {
	var result []*template.Template
	for _, t := range templates {
		if !pipe.InSeqDir(t) {
			result = append(result, t)
		}
	}
	return result
}

// ReadOutputSeqDirs globs the sequence directory templates of an
// entity and its work dirs.
func (s *Store) ReadOutputSeqDirs(ety *pipe.Entity) ([]*pipe.OutputSeqDir, error) {
	seqDirs, err := ety.SeqDirTemplates()
	if err != nil {
		return nil, err
	}
	templates := make([]*template.Template, len(seqDirs))
	for i, t := range seqDirs {
		templates[i] = t.Template
	}
	paths, err := globAll(templates)
	if err != nil {
		return nil, err
	}
	var result []*pipe.OutputSeqDir
	for _, p := range paths {
		dir, err := pipe.NewOutputSeqDir(ety, p)
		if err != nil {
			skip(p, err)
			continue
		}
		result = append(result, dir)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Less(result[j]) })
	return result, nil
}

// ReadSeqDirOutputs globs the sequences and videos in a sequence
// directory.
func (s *Store) ReadSeqDirOutputs(dir *pipe.OutputSeqDir) ([]*pipe.Output, error) {
	templates, err := dir.OutputTemplates()
	if err != nil {
		return nil, err
	}
	paths, err := globAll(templates)
	if err != nil {
		return nil, err
	}
	var result []*pipe.Output
	for _, p := range paths {
		out, err := dir.NewOutput(p)
		if err != nil || !strings.HasPrefix(p, dir.Path+"/") {
			skip(p, err)
			continue
		}
		result = append(result, out)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Less(result[j]) })
	return result, nil
}

// CreateAssetType creates an asset type directory.  A job that does
// not group assets by type has nothing to create.
func (s *Store) CreateAssetType(job *pipe.Job, name string) error {
	tmpl, err := job.AssetTypeTemplate()
	if err != nil {
		return nil
	}
	p, err := tmpl.Format(map[string]string{"asset_type": name})
	if err != nil {
		return err
	}
	return os.MkdirAll(p, 0755)
}

// CreateEntity creates an entity directory.
func (s *Store) CreateEntity(ety *pipe.Entity) error {
	return os.MkdirAll(ety.Path, 0755)
}

// CreateWorkDir creates a work dir.
func (s *Store) CreateWorkDir(wd *pipe.WorkDir) error {
	return os.MkdirAll(wd.Path, 0755)
}

// RegisterOutput checks that an output exists.  Outputs on disk are
// found by globbing, so there is nothing to record.
func (s *Store) RegisterOutput(o *pipe.Output) error {
	if o.Kind == pipe.OutputSeq {
		frames, err := o.ReadFrames()
		if err != nil {
			return err
		}
		if len(frames) == 0 {
			return errors.Errorf("%v has no frames", o.Path)
		}
		return nil
	}
	_, err := os.Stat(o.Path)
	return err
}

// DeleteOutput removes an output file, or every frame of a sequence,
// and its metadata.
func (s *Store) DeleteOutput(o *pipe.Output) error {
	files := []string{o.Path}
	if o.Kind == pipe.OutputSeq {
		frames, err := o.ReadFrames()
		if err != nil {
			return err
		}
		files = files[:0]
		for _, frame := range frames {
			files = append(files, o.FramePath(frame))
		}
	}
	files = append(files, o.MetadataPath())
	logrus.WithFields(logrus.Fields{
		"output": o.Path,
		"files":  len(files),
	}).Info("deleting output")
	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "deleting %v", o)
		}
	}
	return nil
}

// globAll globs several templates and returns the distinct matches.
func globAll(templates []*template.Template) ([]string, error) {
	seen := make(map[string]bool)
	var result []string
	for _, t := range templates {
		paths, err := t.Glob()
		if err != nil {
			return nil, errors.Wrapf(err, "globbing %v", t.Name)
		}
		for _, p := range paths {
			if !seen[p] {
				seen[p] = true
				result = append(result, p)
			}
		}
	}
	return result, nil
}

func skip(p string, err error) {
	if err == nil || pipe.IsNotValid(err) || template.IsNoMatch(err) {
		return
	}
	logrus.WithFields(logrus.Fields{
		"path": path.Clean(p),
		"err":  err,
	}).Debug("skipping path")
}
