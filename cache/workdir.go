// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"path"
	"strings"

	"github.com/diffeo/go-pini/pipe"
	"github.com/sirupsen/logrus"
)

// WorkDir is a cached pipe.WorkDir.
type WorkDir struct {
	*pipe.WorkDir
	entity *Entity

	works    memo[[]*Work]
	outputs  memo[[]*Output]
	hasWorks fileMemo[bool]
}

var (
	workDirWorks    = method{level: "work_dir", name: "works"}
	workDirOutputs  = method{level: "work_dir", name: "outputs"}
	workDirHasWorks = method{level: "work_dir", name: "has_works"}
)

func newWorkDir(upstream *pipe.WorkDir, ety *Entity) *WorkDir {
	wd := &WorkDir{WorkDir: upstream, entity: ety}
	wd.hasWorks = newFileMemo[bool](ety.job.root, upstream.Path,
		path.Join(wd.CacheDir(), workDirHasWorks.name+".yml"))
	return wd
}

func (wd *WorkDir) key() string {
	return workDirKey(wd.Path)
}

// Entity returns the entity the work dir belongs to.
func (wd *WorkDir) Entity() *Entity {
	return wd.entity
}

// Job returns the job the work dir belongs to.
func (wd *WorkDir) Job() *Job {
	return wd.entity.job
}

func (wd *WorkDir) root() *Root {
	return wd.entity.job.root
}

// CacheDir is the directory holding this work dir's cache files.
func (wd *WorkDir) CacheDir() string {
	return path.Join(wd.Path, pipe.MetadataDir, "cache")
}

// Exists says whether the work dir is listed in its entity.  The
// answer comes from the entity's cached listing unless policy is
// ForceReread.
func (wd *WorkDir) Exists(policy RefreshPolicy) bool {
	wds, err := wd.entity.FindWorkDirs(policy)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"work_dir": wd.Path,
			"err":      err,
		}).Warn("could not list work dirs")
		return false
	}
	for _, other := range wds {
		if other == wd {
			return true
		}
	}
	return false
}

// Create creates the work dir, and its entity if that is missing.
// Creating an existing work dir is not an error.
func (wd *WorkDir) Create() error {
	if !wd.entity.Exists(UseCache) {
		if err := wd.entity.Create(); err != nil {
			return err
		}
	}
	if err := wd.root().store.CreateWorkDir(wd.WorkDir); err != nil {
		return err
	}
	logrus.WithField("work_dir", wd.String()).Debug("created work dir")
	return wd.root().cascade(workDirCreated, subject{
		root:    wd.root(),
		job:     wd.entity.job,
		entity:  wd.entity,
		workDir: wd,
	})
}

// FindWorks returns the work files in the work dir.  Reading them
// also updates the HasWorks cache file.
func (wd *WorkDir) FindWorks(policy RefreshPolicy) ([]*Work, error) {
	return wd.works.get(workDirWorks, policy, func() ([]*Work, error) {
		works, err := wd.root().store.ReadWorks(wd.WorkDir)
		if err != nil {
			return nil, err
		}
		result := make([]*Work, len(works))
		for i, work := range works {
			result[i] = wd.wrapWork(work)
			result[i].exists.set(true)
		}
		has := len(result) > 0
		if cached, ok := wd.hasWorks.cached(); !ok || cached != has {
			wd.hasWorks.set(has)
			wd.hasWorks.write(workDirHasWorks, has)
		}
		return result, nil
	})
}

// HasWorks says whether the work dir has any work files.  The answer
// is kept in a cache file, so it is cheap even for a new process.
func (wd *WorkDir) HasWorks(policy RefreshPolicy) (bool, error) {
	return wd.hasWorks.get(workDirHasWorks, policy, func() (bool, error) {
		works, err := wd.FindWorks(policy)
		return len(works) > 0, err
	})
}

// ObtWork returns the cached work file with the same path as match.
// The work file must exist.
func (wd *WorkDir) ObtWork(match *pipe.Work) (*Work, error) {
	works, err := wd.FindWorks(UseCache)
	if err != nil {
		return nil, err
	}
	return single(pipe.KindWork, match.Path, works, func(work *Work) bool {
		return work.Path == match.Path
	})
}

// ToWork returns a work file in this work dir, which need not exist.
func (wd *WorkDir) ToWork(tag string, verN int, dcc, extn string) (*Work, error) {
	work, err := wd.WorkDir.ToWork(tag, verN, dcc, extn)
	if err != nil {
		return nil, err
	}
	return wd.wrapWork(work), nil
}

// FindLatestWork returns the highest version of the work files with
// a tag, or nil if there are none.
func (wd *WorkDir) FindLatestWork(tag string) (*Work, error) {
	works, err := wd.FindWorks(UseCache)
	if err != nil {
		return nil, err
	}
	if tag == "" {
		tag = wd.Job().Config.DefaultTag()
	}
	var latest *Work
	for _, work := range works {
		if work.Tag == tag && (latest == nil || work.VerN > latest.VerN) {
			latest = work
		}
	}
	return latest, nil
}

// FindOutputs returns the outputs stored in the work dir, including
// those in the work dir's sequence directories.
func (wd *WorkDir) FindOutputs(policy RefreshPolicy) ([]*Output, error) {
	return wd.outputs.get(workDirOutputs, policy, func() ([]*Output, error) {
		outs, err := wd.root().store.ReadWorkDirOutputs(wd.WorkDir)
		if err != nil {
			return nil, err
		}
		result := wd.entity.wrapOutputs(outs)
		dirs, err := wd.entity.FindOutputSeqDirs(policy)
		if err != nil {
			return nil, err
		}
		for _, dir := range dirs {
			if dir.OutputSeqDir.WorkDir == nil || dir.OutputSeqDir.WorkDir.Path != wd.Path {
				continue
			}
			seqs, err := dir.FindOutputs(UseCache)
			if err != nil {
				return nil, err
			}
			result = append(result, seqs...)
		}
		return result, nil
	})
}

// ToOutput returns an output stored in the work dir, which need not
// exist.
func (wd *WorkDir) ToOutput(typ string, data map[string]string) (*Output, error) {
	out, err := wd.WorkDir.ToOutput(typ, data)
	if err != nil {
		return nil, err
	}
	return wd.entity.wrapOutput(out), nil
}

func (wd *WorkDir) wrapWork(work *pipe.Work) *Work {
	item, _ := wd.root().registry.Get(workKey(work.Path), func(string) (keyed, error) {
		return newWork(work, wd), nil
	})
	return item.(*Work)
}

// workCacheBase is the prefix of a work file's cache files: the file
// name without its extension.
func workCacheBase(work *pipe.Work) string {
	return strings.TrimSuffix(work.Filename(), "."+work.Extn)
}
