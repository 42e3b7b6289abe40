// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipe

import (
	"strings"

	"github.com/diffeo/go-pini/template"
)

// OutputSeqDir is a version directory holding output sequences and
// movies, such as one version of a render.  Frames are reread per
// directory, so this is the unit the cache invalidates them by.
type OutputSeqDir struct {
	Entity *Entity
	// WorkDir is nil for entity-level directories.
	WorkDir *WorkDir

	Path string
	Task string
	Ver  string

	Template SeqDirTemplate
	Data     map[string]string
}

// NewOutputSeqDir builds an output sequence directory from its path.
func NewOutputSeqDir(ety *Entity, p string) (*OutputSeqDir, error) {
	p = cleanPath(p)
	templates, err := ety.SeqDirTemplates()
	if err != nil {
		return nil, err
	}
	var (
		matched []SeqDirTemplate
		results []map[string]string
	)
	for _, t := range templates {
		data, err := t.Parse(p)
		if err != nil {
			continue
		}
		matched = append(matched, t)
		results = append(results, data)
	}
	switch len(matched) {
	case 0:
		return nil, ErrNotValid{Kind: KindOutputSeqDir, Path: p}
	case 1:
	default:
		names := make([]string, len(matched))
		for i, t := range matched {
			names[i] = t.Raw.Source
		}
		return nil, ErrAmbiguous{Kind: KindOutputSeqDir, Match: p, Candidates: names}
	}
	d := &OutputSeqDir{
		Entity:   ety,
		Path:     p,
		Task:     results[0]["task"],
		Ver:      results[0]["ver"],
		Template: matched[0],
		Data:     results[0],
	}
	if strings.HasPrefix(matched[0].Raw.Source, "{work_dir}") {
		if d.WorkDir, err = NewWorkDir(ety, p); err != nil {
			return nil, ErrNotValid{Kind: KindOutputSeqDir, Path: p, Err: err}
		}
		if d.Task == "" {
			d.Task = d.WorkDir.Task
		}
	}
	return d, nil
}

func (d *OutputSeqDir) String() string {
	return "OutputSeqDir(" + d.Path + ")"
}

// Less orders directories by path.
func (d *OutputSeqDir) Less(o *OutputSeqDir) bool {
	return d.Path < o.Path
}

// OutputTemplates returns the sequence and video templates whose
// version directory is this one, with the directory's tokens applied.
func (d *OutputSeqDir) OutputTemplates() ([]*template.Template, error) {
	var (
		ety    = d.Entity
		types  = append(append([]string(nil), SeqOutputTypes...), VideoOutputTypes...)
		result []*template.Template
	)
	for _, typ := range types {
		for _, raw := range ety.Job.Templates.Find(template.Query{Type: typ, Profile: ety.Profile}) {
			if !raw.HasKey("ver") {
				continue
			}
			dir, err := raw.CropToToken("ver")
			if err != nil || dir.Pattern != d.Template.Raw.Pattern {
				continue
			}
			if raw.DCC != d.Template.Raw.DCC {
				continue
			}
			rooted, err := ety.rooted(raw)
			if err != nil {
				return nil, err
			}
			result = append(result, rooted.ApplyData(ety.data()).ApplyData(d.Data))
		}
	}
	return result, nil
}

// NewOutput builds an output in this directory from its path.
func (d *OutputSeqDir) NewOutput(p string) (*Output, error) {
	return NewOutput(d.Entity, d.WorkDir, p)
}
