// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"fmt"
	"os"

	"github.com/diffeo/go-pini/pipe"
)

// Environment says what the user is working on.
type Environment interface {
	// CurPath returns the path of the current scene, or an empty
	// string if there is none.
	CurPath() string
}

// StaticEnvironment is an Environment with a fixed current path.
type StaticEnvironment string

// CurPath returns the path itself.
func (e StaticEnvironment) CurPath() string {
	return string(e)
}

// EnvVar is an Environment that reads the current path from an
// environment variable, such as "PINI_CUR_PATH", on every call.
type EnvVar string

// CurPath returns the value of the environment variable.
func (e EnvVar) CurPath() string {
	return os.Getenv(string(e))
}

// ErrNoCurrent is returned by the Cur* methods when the current path
// is not inside an object of the requested kind.
type ErrNoCurrent struct {
	Kind pipe.Kind
}

func (err ErrNoCurrent) Error() string {
	return fmt.Sprintf("no current %v", err.Kind)
}

// current probes the current path.
func (r *Root) current(kind pipe.Kind) (*Job, pipe.Variant, error) {
	if r.env == nil {
		return nil, pipe.Variant{}, ErrNoCurrent{Kind: kind}
	}
	p := r.env.CurPath()
	if p == "" {
		return nil, pipe.Variant{}, ErrNoCurrent{Kind: kind}
	}
	jobPath, err := r.Layout().JobPath(p)
	if err != nil {
		return nil, pipe.Variant{}, ErrNoCurrent{Kind: kind}
	}
	jobs, err := r.FindJobs(UseCache)
	if err != nil {
		return nil, pipe.Variant{}, err
	}
	for _, job := range jobs {
		if job.Path == jobPath {
			return job, pipe.TryParse(job.Job, p), nil
		}
	}
	return nil, pipe.Variant{}, ErrNoCurrent{Kind: kind}
}

// CurJob returns the job containing the current path.
func (r *Root) CurJob() (*Job, error) {
	job, _, err := r.current(pipe.KindJob)
	return job, err
}

// CurEntity returns the asset or shot containing the current path.
func (r *Root) CurEntity() (*Entity, error) {
	ety, _, err := r.curEntity(pipe.KindEntity)
	return ety, err
}

// CurWorkDir returns the work dir containing the current path.
func (r *Root) CurWorkDir() (*WorkDir, error) {
	ety, v, err := r.curEntity(pipe.KindWorkDir)
	if err != nil {
		return nil, err
	}
	if v.WorkDir == nil {
		return nil, ErrNoCurrent{Kind: pipe.KindWorkDir}
	}
	return ety.ObtWorkDir(v.WorkDir)
}

// CurWork returns the current work file.  A work file that has not
// been saved yet is still current.
func (r *Root) CurWork() (*Work, error) {
	wd, err := r.CurWorkDir()
	if err != nil {
		if _, ok := err.(ErrNoCurrent); ok {
			err = ErrNoCurrent{Kind: pipe.KindWork}
		}
		return nil, err
	}
	_, v, err := r.current(pipe.KindWork)
	if err != nil {
		return nil, err
	}
	if v.Work == nil {
		return nil, ErrNoCurrent{Kind: pipe.KindWork}
	}
	work, err := wd.ObtWork(v.Work)
	if _, missing := err.(pipe.ErrNotFound); missing {
		return wd.wrapWork(v.Work), nil
	}
	return work, err
}

// CurOutput returns the output at the current path.
func (r *Root) CurOutput() (*Output, error) {
	ety, v, err := r.curEntity(pipe.KindOutput)
	if err != nil {
		return nil, err
	}
	if v.Output == nil {
		return nil, ErrNoCurrent{Kind: pipe.KindOutput}
	}
	return ety.ObtOutput(v.Output)
}

// curEntity finds the current entity for a Cur* method of a lower
// level.
func (r *Root) curEntity(kind pipe.Kind) (*Entity, pipe.Variant, error) {
	job, v, err := r.current(kind)
	if err != nil {
		return nil, v, err
	}
	if v.Entity == nil {
		return nil, v, ErrNoCurrent{Kind: kind}
	}
	ety, err := job.ObtEntity(v.Entity)
	return ety, v, err
}
