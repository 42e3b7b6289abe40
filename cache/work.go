// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"io/ioutil"
	"os"
	"os/user"
	"path"
	"path/filepath"
	"runtime"

	"github.com/diffeo/go-pini/pipe"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Work is a cached pipe.Work.
type Work struct {
	*pipe.Work
	workDir *WorkDir

	exists   memo[bool]
	metadata memo[pipe.Metadata]
	outputs  fileMemo[[]string]
}

var (
	workExists   = method{level: "work", name: "exists"}
	workMetadata = method{level: "work", name: "metadata"}
	workOutputs  = method{level: "work", name: "outputs"}
)

func newWork(upstream *pipe.Work, wd *WorkDir) *Work {
	work := &Work{Work: upstream, workDir: wd}
	name := workCacheBase(upstream) + "_" + runtime.GOOS + "_" + workOutputs.name + ".cbor"
	work.outputs = newFileMemo[[]string](wd.root(), wd.Path, path.Join(wd.CacheDir(), name))
	return work
}

func (w *Work) key() string {
	return workKey(w.Path)
}

// WorkDir returns the work dir containing the work file.
func (w *Work) WorkDir() *WorkDir {
	return w.workDir
}

// Entity returns the entity the work file belongs to.
func (w *Work) Entity() *Entity {
	return w.workDir.entity
}

// Job returns the job the work file belongs to.
func (w *Work) Job() *Job {
	return w.workDir.entity.job
}

func (w *Work) root() *Root {
	return w.workDir.root()
}

// Exists says whether the work file is on disk.  The answer is
// remembered until the file is saved or policy is ForceReread.
func (w *Work) Exists(policy RefreshPolicy) bool {
	exists, _ := w.exists.get(workExists, policy, func() (bool, error) {
		_, err := os.Stat(filepath.FromSlash(w.Path))
		return err == nil, nil
	})
	return exists
}

// Metadata returns the work file's sidecar metadata.
func (w *Work) Metadata(policy RefreshPolicy) (pipe.Metadata, error) {
	return w.metadata.get(workMetadata, policy, func() (pipe.Metadata, error) {
		return pipe.ReadMetadata(w.Path)
	})
}

// SetMetadata replaces the work file's sidecar metadata.
func (w *Work) SetMetadata(meta pipe.Metadata) error {
	if err := pipe.WriteMetadata(w.Path, meta); err != nil {
		return err
	}
	_, err := w.Metadata(ForceReread)
	return err
}

// Owner returns who saved the work file, from its metadata.
func (w *Work) Owner() string {
	meta, err := w.Metadata(UseCache)
	if err != nil {
		return ""
	}
	return meta.String("owner")
}

// FindVersions returns every version of this work file that exists,
// oldest first.
func (w *Work) FindVersions(policy RefreshPolicy) ([]*Work, error) {
	works, err := w.workDir.FindWorks(policy)
	if err != nil {
		return nil, err
	}
	var result []*Work
	for _, work := range works {
		if work.SameStream(w.Work) {
			result = append(result, work)
		}
	}
	return result, nil
}

// FindNext returns the version after the latest existing version of
// this work file.  It does not exist until it is saved.
func (w *Work) FindNext() (*Work, error) {
	versions, err := w.FindVersions(UseCache)
	if err != nil {
		return nil, err
	}
	next := 1
	for _, v := range versions {
		if v.VerN >= next {
			next = v.VerN + 1
		}
	}
	if w.VerN >= next {
		next = w.VerN + 1
	}
	work, err := w.ToVersion(next)
	if err != nil {
		return nil, err
	}
	return w.workDir.wrapWork(work), nil
}

// Save records that the work file has been saved, creating it empty
// if nothing has written it yet.  meta is merged into the sidecar
// metadata along with the owner, mtime and size.  A missing entity
// or work dir is created first.
//
// Save returns the canonical cached work file, which is w unless
// the cache has been reset since w was built.
func (w *Work) Save(meta pipe.Metadata) (*Work, error) {
	var (
		wd         = w.workDir
		ety        = wd.entity
		job        = ety.job
		etyExisted = ety.Exists(UseCache)
		wdExisted  = wd.Exists(UseCache)
	)
	if !wdExisted {
		if err := wd.Create(); err != nil {
			return nil, err
		}
	}
	if err := w.write(meta); err != nil {
		return nil, err
	}
	w.exists.set(true)
	if _, err := w.Metadata(ForceReread); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"work": w.Path,
		"ver":  w.VerN,
	}).Info("saved work file")

	if !etyExisted {
		canonical, err := job.ObtEntity(ety.Entity)
		if err != nil {
			return nil, errors.Wrapf(err, "finding new entity %v", ety)
		}
		ety = canonical
	}
	if !wdExisted {
		canonical, err := ety.ObtWorkDir(wd.WorkDir)
		if err != nil {
			return nil, errors.Wrapf(err, "finding new work dir %v", wd)
		}
		wd = canonical
	}
	err := w.root().cascade(workSaved, subject{
		root:    w.root(),
		job:     job,
		entity:  ety,
		workDir: wd,
		work:    w,
	})
	if err != nil {
		return nil, err
	}
	return wd.ObtWork(w.Work)
}

// write touches the work file and updates its metadata.
func (w *Work) write(meta pipe.Metadata) error {
	filename := filepath.FromSlash(w.Path)
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		if err = ioutil.WriteFile(filename, nil, 0644); err == nil {
			info, err = os.Stat(filename)
		}
	}
	if err != nil {
		return errors.Wrapf(err, "saving %v", w)
	}
	old, err := pipe.ReadMetadata(w.Path)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"work": w.Path,
			"err":  err,
		}).Warn("replacing unreadable work metadata")
		old = pipe.Metadata{}
	}
	saved := pipe.Metadata{
		"owner": currentUser(),
		"mtime": w.root().clock.Now().Unix(),
		"size":  info.Size(),
	}
	return pipe.WriteMetadata(w.Path, old.Merge(saved).Merge(meta))
}

// FindOutputs returns the outputs generated from this work file:
// those of its work dir and entity with the same task, tag and
// version.  The list of paths is kept in a cache file.
func (w *Work) FindOutputs(policy RefreshPolicy) ([]*Output, error) {
	paths, err := w.outputs.get(workOutputs, policy, func() ([]string, error) {
		wdOuts, err := w.workDir.FindOutputs(policy)
		if err != nil {
			return nil, err
		}
		etyOuts, err := w.workDir.entity.FindOutputs(policy)
		if err != nil {
			return nil, err
		}
		var result []string
		for _, out := range append(append([]*Output(nil), wdOuts...), etyOuts...) {
			if w.generated(out) {
				result = append(result, out.Path)
			}
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return w.workDir.entity.outputsAt(w.root().mapPaths(paths)), nil
}

// generated says whether an output came from this work file.
func (w *Work) generated(out *Output) bool {
	if out.Ver == "" || out.VerN != w.VerN {
		return false
	}
	if out.Task != "" && out.Task != w.workDir.Task {
		return false
	}
	return out.TagOrDefault() == tagOrDefault(w.Tag)
}

func tagOrDefault(tag string) string {
	if tag == "" {
		return pipe.DefaultTag
	}
	return tag
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}
