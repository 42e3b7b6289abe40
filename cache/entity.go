// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"path"
	"strings"

	"github.com/diffeo/go-pini/pipe"
	"github.com/sirupsen/logrus"
)

// Sequence is a cached pipe.Sequence.
type Sequence struct {
	*pipe.Sequence
	job *Job

	shots memo[[]*Entity]
}

var sequenceShots = method{level: "sequence", name: "shots"}

func (seq *Sequence) key() string {
	return sequenceKey(seq.job.Path + "/" + seq.Name)
}

// Job returns the job containing the sequence.
func (seq *Sequence) Job() *Job {
	return seq.job
}

// FindShots returns the shots in the sequence.
func (seq *Sequence) FindShots(policy RefreshPolicy) ([]*Entity, error) {
	job := seq.job
	if !job.UsesSequenceDirs() {
		shots, err := job.readShots(policy)
		if err != nil {
			return nil, err
		}
		var result []*Entity
		for _, shot := range shots {
			if shot.Sequence == seq.Name {
				result = append(result, shot)
			}
		}
		return result, nil
	}
	return seq.shots.get(sequenceShots, policy, func() ([]*Entity, error) {
		shots, err := job.root.store.ReadShots(job.Job, seq.Sequence)
		if err != nil {
			return nil, err
		}
		return job.wrapEntities(shots), nil
	})
}

// Entity is a cached asset or shot.
type Entity struct {
	*pipe.Entity
	job *Job

	workDirs  memo[[]*WorkDir]
	seqDirs   memo[[]*OutputSeqDir]
	outputs   memo[[]*Output]
	publishes fileMemo[[]string]
}

var (
	entityWorkDirs  = method{level: "entity", name: "work_dirs"}
	entitySeqDirs   = method{level: "entity", name: "output_seq_dirs"}
	entityOutputs   = method{level: "entity", name: "outputs"}
	entityPublishes = method{level: "entity", name: "publishes"}
)

func newEntity(upstream *pipe.Entity, job *Job) *Entity {
	ety := &Entity{Entity: upstream, job: job}
	ety.publishes = newFileMemo[[]string](job.root, upstream.Path,
		path.Join(ety.CacheDir(), entityPublishes.name+".cbor"))
	return ety
}

func (ety *Entity) key() string {
	return entityKey(ety.Path)
}

// Job returns the job containing the entity.
func (ety *Entity) Job() *Job {
	return ety.job
}

// CacheDir is the directory holding this entity's cache files.
func (ety *Entity) CacheDir() string {
	return path.Join(ety.Path, pipe.MetadataDir, "cache")
}

// ToSequence returns the sequence of a shot.
func (ety *Entity) ToSequence() (*Sequence, error) {
	if ety.Profile != pipe.ShotProfile {
		return nil, pipe.ErrNotFound{Kind: pipe.KindSequence, Match: ety.Label()}
	}
	if ety.job.UsesSequenceDirs() {
		return ety.job.ObtSequence(ety.Sequence)
	}
	return ety.job.ToSequence(ety.Sequence)
}

// Exists says whether the entity is listed in its job.  The answer
// comes from the job's cached listing unless policy is ForceReread.
func (ety *Entity) Exists(policy RefreshPolicy) bool {
	siblings, err := ety.job.siblings(ety.Entity, policy)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"entity": ety.Label(),
			"err":    err,
		}).Warn("could not list entities")
		return false
	}
	for _, sibling := range siblings {
		if sibling == ety {
			return true
		}
	}
	return false
}

// Create creates the entity and adds it to the job's listings.
// Creating an existing entity is not an error.
func (ety *Entity) Create() error {
	if err := ety.job.root.store.CreateEntity(ety.Entity); err != nil {
		return err
	}
	logrus.WithField("entity", ety.String()).Debug("created entity")
	ev := assetCreated
	if ety.Profile == pipe.ShotProfile {
		ev = shotCreated
	}
	return ety.job.root.cascade(ev, subject{root: ety.job.root, job: ety.job, entity: ety})
}

// FindWorkDirs returns the entity's work dirs.
func (ety *Entity) FindWorkDirs(policy RefreshPolicy) ([]*WorkDir, error) {
	return ety.workDirs.get(entityWorkDirs, policy, func() ([]*WorkDir, error) {
		wds, err := ety.job.root.store.ReadWorkDirs(ety.Entity)
		if err != nil {
			return nil, err
		}
		result := make([]*WorkDir, len(wds))
		for i, wd := range wds {
			result[i] = ety.wrapWorkDir(wd)
		}
		return result, nil
	})
}

// FindWorkDir finds a work dir by task, or by "step/task".
func (ety *Entity) FindWorkDir(task string) (*WorkDir, error) {
	wds, err := ety.FindWorkDirs(UseCache)
	if err != nil {
		return nil, err
	}
	if strings.Contains(task, "/") {
		return single(pipe.KindWorkDir, task, wds, func(wd *WorkDir) bool {
			return wd.TaskLabel() == task
		})
	}
	return single(pipe.KindWorkDir, task, wds, func(wd *WorkDir) bool {
		return wd.Task == task
	})
}

// ObtWorkDir returns the cached work dir with the same path as
// match.  The work dir must exist.
func (ety *Entity) ObtWorkDir(match *pipe.WorkDir) (*WorkDir, error) {
	wds, err := ety.FindWorkDirs(UseCache)
	if err != nil {
		return nil, err
	}
	return single(pipe.KindWorkDir, match.Path, wds, func(wd *WorkDir) bool {
		return wd.Path == match.Path
	})
}

// ToWorkDir returns the work dir for a task, which need not exist.
func (ety *Entity) ToWorkDir(task, step string) (*WorkDir, error) {
	wd, err := ety.Entity.ToWorkDir(task, step)
	if err != nil {
		return nil, err
	}
	return ety.wrapWorkDir(wd), nil
}

// FindOutputSeqDirs returns the directories holding the entity's
// sequence and video outputs, at entity and work dir level.
func (ety *Entity) FindOutputSeqDirs(policy RefreshPolicy) ([]*OutputSeqDir, error) {
	return ety.seqDirs.get(entitySeqDirs, policy, func() ([]*OutputSeqDir, error) {
		dirs, err := ety.job.root.store.ReadOutputSeqDirs(ety.Entity)
		if err != nil {
			return nil, err
		}
		result := make([]*OutputSeqDir, len(dirs))
		for i, dir := range dirs {
			result[i] = ety.wrapSeqDir(dir)
		}
		return result, nil
	})
}

// ObtOutputSeqDir returns the output sequence directory at a path.
func (ety *Entity) ObtOutputSeqDir(p string, policy RefreshPolicy) (*OutputSeqDir, error) {
	dirs, err := ety.FindOutputSeqDirs(policy)
	if err != nil {
		return nil, err
	}
	p = path.Clean(p)
	return single(pipe.KindOutputSeqDir, p, dirs, func(dir *OutputSeqDir) bool {
		return dir.Path == p
	})
}

// FindOutputs returns the entity-level outputs, such as renders,
// including those in entity-level sequence directories.  Work dir
// outputs are not included.  ForceReread rereads the listing of
// sequence directories but not their contents.
func (ety *Entity) FindOutputs(policy RefreshPolicy) ([]*Output, error) {
	return ety.outputs.get(entityOutputs, policy, func() ([]*Output, error) {
		outs, err := ety.job.root.store.ReadOutputs(ety.Entity)
		if err != nil {
			return nil, err
		}
		result := ety.wrapOutputs(outs)
		dirs, err := ety.FindOutputSeqDirs(policy)
		if err != nil {
			return nil, err
		}
		for _, dir := range dirs {
			if dir.OutputSeqDir.WorkDir != nil {
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

// FindPublishes returns the publishes of the entity and its work
// dirs.  The list of paths is kept in a cache file.
func (ety *Entity) FindPublishes(policy RefreshPolicy) ([]*Output, error) {
	paths, err := ety.publishes.get(entityPublishes, policy, func() ([]string, error) {
		var result []string
		add := func(outs []*Output) {
			for _, out := range outs {
				if out.BasicType() == "publish" {
					result = append(result, out.Path)
				}
			}
		}
		outs, err := ety.FindOutputs(policy)
		if err != nil {
			return nil, err
		}
		add(outs)
		wds, err := ety.FindWorkDirs(policy)
		if err != nil {
			return nil, err
		}
		for _, wd := range wds {
			outs, err := wd.FindOutputs(policy)
			if err != nil {
				return nil, err
			}
			add(outs)
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return ety.outputsAt(ety.job.root.mapPaths(paths)), nil
}

// ObtOutput returns the cached output with the same path as match,
// from the entity's outputs or those of its work dir.
func (ety *Entity) ObtOutput(match *pipe.Output) (*Output, error) {
	var (
		outs []*Output
		err  error
	)
	if match.WorkDir != nil {
		var wd *WorkDir
		if wd, err = ety.ObtWorkDir(match.WorkDir); err == nil {
			outs, err = wd.FindOutputs(UseCache)
		}
	} else {
		outs, err = ety.FindOutputs(UseCache)
	}
	if err != nil {
		return nil, err
	}
	return single(pipe.KindOutput, match.Path, outs, func(out *Output) bool {
		return out.Path == match.Path
	})
}

// ToOutput returns an entity-level output, which need not exist.
func (ety *Entity) ToOutput(typ string, data map[string]string) (*Output, error) {
	out, err := ety.Entity.ToOutput(typ, data)
	if err != nil {
		return nil, err
	}
	return ety.wrapOutput(out), nil
}

func (ety *Entity) wrapWorkDir(wd *pipe.WorkDir) *WorkDir {
	item, _ := ety.job.root.registry.Get(workDirKey(wd.Path), func(string) (keyed, error) {
		return newWorkDir(wd, ety), nil
	})
	return item.(*WorkDir)
}

func (ety *Entity) wrapSeqDir(dir *pipe.OutputSeqDir) *OutputSeqDir {
	item, _ := ety.job.root.registry.Get(seqDirKey(dir.Path), func(string) (keyed, error) {
		return newOutputSeqDir(dir, ety), nil
	})
	return item.(*OutputSeqDir)
}

func (ety *Entity) wrapOutput(out *pipe.Output) *Output {
	item, _ := ety.job.root.registry.Get(outputKey(out.Path), func(string) (keyed, error) {
		var wd *WorkDir
		if out.WorkDir != nil {
			wd = ety.wrapWorkDir(out.WorkDir)
		}
		return newOutput(out, ety, wd), nil
	})
	return item.(*Output)
}

func (ety *Entity) wrapOutputs(outs []*pipe.Output) []*Output {
	result := make([]*Output, len(outs))
	for i, out := range outs {
		result[i] = ety.wrapOutput(out)
	}
	return result
}

// outputsAt wraps outputs loaded from a cache file by path.  Paths
// that no longer parse are dropped.
func (ety *Entity) outputsAt(paths []string) []*Output {
	var result []*Output
	for _, p := range paths {
		if item := ety.job.root.registry.Peek(outputKey(p)); item != nil {
			result = append(result, item.(*Output))
			continue
		}
		out, err := pipe.NewOutput(ety.Entity, nil, p)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"path": p,
				"err":  err,
			}).Debug("dropping cached output path")
			continue
		}
		result = append(result, ety.wrapOutput(out))
	}
	return result
}
