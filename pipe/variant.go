// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipe

// Variant is the result of probing a path: the kind of the most
// specific object found and that object.  Fields for other kinds are
// nil, except that parents are filled in where known.
type Variant struct {
	Kind Kind

	Job          *Job
	Sequence     *Sequence
	Entity       *Entity
	WorkDir      *WorkDir
	Work         *Work
	Output       *Output
	OutputSeqDir *OutputSeqDir
}

// TryParse probes a path inside a job.  It never fails: a path that
// is not inside the job yields KindNone, and a path inside an object
// that is not itself an object yields the containing object.
func TryParse(job *Job, p string) Variant {
	p = cleanPath(p)
	if job == nil {
		return Variant{}
	}
	if p != job.Path && !hasDirPrefix(p, job.Path) {
		return Variant{}
	}
	v := Variant{Kind: KindJob, Job: job}
	if p == job.Path {
		return v
	}

	ety, err := NewEntity(job, p)
	if err != nil {
		if seq, err := NewSequence(job, p); err == nil {
			v.Kind = KindSequence
			v.Sequence = seq
		}
		return v
	}
	v.Entity = ety
	v.Kind = ety.Kind()
	if ety.Profile == ShotProfile {
		if seq, err := NewSequence(job, p); err == nil {
			v.Sequence = seq
		}
	}
	if ety.Path == p {
		return v
	}

	if wd, err := NewWorkDir(ety, p); err == nil {
		v.WorkDir = wd
		v.Kind = KindWorkDir
		if wd.Path == p {
			return v
		}
		if work, err := NewWork(wd, p); err == nil {
			v.Work = work
			v.Kind = KindWork
			return v
		}
	}
	if out, err := NewOutput(ety, v.WorkDir, p); err == nil {
		v.Output = out
		v.Kind = KindOutput
		return v
	}
	if dir, err := NewOutputSeqDir(ety, p); err == nil {
		v.OutputSeqDir = dir
		v.Kind = KindOutputSeqDir
	}
	return v
}

func hasDirPrefix(p, dir string) bool {
	return len(p) > len(dir) && p[:len(dir)] == dir && p[len(dir)] == '/'
}
