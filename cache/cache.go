// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package cache provides a read-through cache over a pipe.Store.
// Each pipeline object is wrapped in an object that remembers what
// its methods returned: the job remembers its assets, the asset its
// work dirs, the work dir its work files, and so on down.  Repeated
// traversal of the tree then reads neither the disk nor the tracker.
//
// # Object identity
//
// Within one Root, there is exactly one wrapper per path.  Every
// method that finds or builds an object, whether from a listing, an
// Obt* call or a To* call, returns that one wrapper, so pointer
// comparison is object comparison:
//
//	horse, _ := job.FindAsset("char.horse")
//	again, _ := job.ObtEntity(horse.Entity)
//	// horse == again
//
// Rereading a listing keeps the wrappers of the objects that are
// still listed.  Root.Reset discards every wrapper; wrappers obtained
// before a reset keep working, but are no longer the ones the root
// hands out.
//
// # Invalidation
//
// Methods that list or compute things take a RefreshPolicy.
// ForceReread recomputes that one result.  Operations that change the
// pipeline, such as Entity.Create or Work.Save, reread every listing
// the change makes stale; the table of which listings those are is
// in cascade.go.  Changes made by other processes are not noticed
// until something rereads the affected listing.
//
// Some results are also kept in files next to the objects they
// describe, under ".pini/cache", so that a new process does not
// start cold.  A cache file that cannot be read is recomputed; a
// cache file that cannot be written is skipped with a warning.
//
// # Caveats
//
// Wrappers are not safe for concurrent use.  The root's index of
// wrappers may be shared between goroutines, but callers that
// traverse the tree from several goroutines must serialize their
// calls.
package cache

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-pini/pipe"
	"github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

// Options configures a Root.  The zero value is usable.
type Options struct {
	// Clock is the time source for the root's creation time and
	// cache file ages.  Defaults to the wall clock.
	Clock clock.Clock

	// Environment says what the user is working on.  If nil,
	// there is no current job.
	Environment Environment

	// MaxAge, if positive, is the age after which cache files are
	// ignored.
	MaxAge time.Duration

	// PathMap is applied to paths loaded from cache files.
	PathMap pipe.PathMap
}

// Root is the top of the cache: it lists jobs and holds every
// wrapper built through it.
type Root struct {
	store   pipe.Store
	clock   clock.Clock
	env     Environment
	maxAge  time.Duration
	pathMap pipe.PathMap

	ctime      time.Time
	generation uuid.UUID
	registry   *registry
	jobs       memo[[]*Job]
}

// New creates a cache over a store.
func New(store pipe.Store, opts Options) *Root {
	r := &Root{
		store:   store,
		clock:   opts.Clock,
		env:     opts.Environment,
		maxAge:  opts.MaxAge,
		pathMap: opts.PathMap,
	}
	if r.clock == nil {
		r.clock = clock.New()
	}
	r.init()
	return r
}

func (r *Root) init() {
	r.ctime = r.clock.Now()
	r.generation = uuid.NewV4()
	r.registry = newRegistry()
	r.jobs.clear()
}

// Store returns the store this cache reads.
func (r *Root) Store() pipe.Store {
	return r.store
}

// Layout says where jobs live.
func (r *Root) Layout() pipe.Layout {
	return r.store.Layout()
}

// Ctime returns when the cache was created or last reset.
func (r *Root) Ctime() time.Time {
	return r.ctime
}

// Age returns how long ago the cache was created or last reset.
func (r *Root) Age() time.Duration {
	return r.clock.Now().Sub(r.ctime)
}

// Generation identifies the current set of wrappers.  It changes on
// every reset.
func (r *Root) Generation() string {
	return r.generation.String()
}

// Len returns the number of wrappers built since the last reset.
func (r *Root) Len() int {
	return r.registry.Len()
}

// Reset discards every cached result and wrapper.  Cache files are
// kept.
func (r *Root) Reset() {
	logrus.WithFields(logrus.Fields{
		"generation": r.Generation(),
		"age":        r.Age(),
		"objects":    r.registry.Len(),
	}).Info("resetting pipeline cache")
	resets.Inc()
	r.init()
}

var rootJobs = method{level: "root", name: "jobs"}

// FindJobs returns every job.
func (r *Root) FindJobs(policy RefreshPolicy) ([]*Job, error) {
	return r.jobs.get(rootJobs, policy, func() ([]*Job, error) {
		jobs, err := r.store.ReadJobs()
		if err != nil {
			return nil, err
		}
		result := make([]*Job, len(jobs))
		for i, job := range jobs {
			result[i] = r.wrapJob(job)
		}
		return result, nil
	})
}

// FindJob returns the job with a name.
func (r *Root) FindJob(name string) (*Job, error) {
	jobs, err := r.FindJobs(UseCache)
	if err != nil {
		return nil, err
	}
	for _, job := range jobs {
		if job.Name == name {
			return job, nil
		}
	}
	return nil, pipe.ErrNotFound{Kind: pipe.KindJob, Match: name}
}

// ObtJob returns the cached job with the same path as match.
func (r *Root) ObtJob(match *pipe.Job) (*Job, error) {
	jobs, err := r.FindJobs(UseCache)
	if err != nil {
		return nil, err
	}
	for _, job := range jobs {
		if job.Path == match.Path {
			return job, nil
		}
	}
	return nil, pipe.ErrNotFound{Kind: pipe.KindJob, Match: match.Path}
}

// CreateJob creates a job from the built-in config and returns it.
// Creating an existing job returns it unchanged.
func (r *Root) CreateJob(name string) (*Job, error) {
	job, err := r.store.CreateJob(name)
	if err != nil {
		return nil, err
	}
	logrus.WithField("job", name).Debug("created job")
	if err = r.cascade(jobCreated, subject{root: r}); err != nil {
		return nil, err
	}
	return r.ObtJob(job)
}

// wrapJob returns the wrapper of a job.
func (r *Root) wrapJob(job *pipe.Job) *Job {
	// This cannot fail: the fetch function never fails
	item, _ := r.registry.Get(jobKey(job.Path), func(string) (keyed, error) {
		return newJob(job, r), nil
	})
	return item.(*Job)
}

// mapPaths applies the path map to paths loaded from a cache file.
func (r *Root) mapPaths(paths []string) []string {
	if len(r.pathMap) == 0 {
		return paths
	}
	result := make([]string, len(paths))
	for i, p := range paths {
		result[i] = r.pathMap.Apply(p)
	}
	return result
}

// Registry keys, one namespace per kind.
func jobKey(p string) string { return "job:" + p }
func sequenceKey(p string) string { return "sequence:" + p }
func entityKey(p string) string { return "entity:" + p }
func workDirKey(p string) string { return "work_dir:" + p }
func workKey(p string) string { return "work:" + p }
func outputKey(p string) string { return "output:" + p }
func seqDirKey(p string) string { return "output_seq_dir:" + p }
