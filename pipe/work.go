// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipe

import (
	"path"
	"strconv"

	"github.com/diffeo/go-pini/template"
)

// Work is one version of a scene file in a work dir.
type Work struct {
	WorkDir *WorkDir
	Path    string
	Tag     string
	Ver     string
	VerN    int
	Extn    string
	DCC     string
	User    string

	Template *template.Template
	Data     map[string]string
}

// NewWork builds a work file from its path.  The file need not exist.
func NewWork(wd *WorkDir, p string) (*Work, error) {
	p = cleanPath(p)
	extn := Extn(p)
	dcc := ExtnToDCC[extn]
	if dcc == "" {
		return nil, ErrNotValid{Kind: KindWork, Path: p}
	}
	set := template.NewSet(wd.WorkTemplates(dcc)...)
	tmpl, data, err := set.Match(template.Query{DCC: dcc}, p)
	if err != nil {
		if _, ambiguous := err.(template.ErrAmbiguous); ambiguous {
			return nil, err
		}
		return nil, ErrNotValid{Kind: KindWork, Path: p, Err: err}
	}
	w := &Work{
		WorkDir:  wd,
		Path:     p,
		Tag:      data["tag"],
		Ver:      data["ver"],
		Extn:     extn,
		DCC:      dcc,
		User:     data["user"],
		Template: tmpl,
		Data:     data,
	}
	if w.VerN, err = strconv.Atoi(w.Ver); err != nil {
		return nil, ErrNotValid{Kind: KindWork, Path: p, Err: err}
	}
	return w, nil
}

// ParseWork builds a work file from a path, deriving its work dir and
// entity.
func ParseWork(job *Job, p string) (*Work, error) {
	wd, err := ParseWorkDir(job, p)
	if err != nil {
		return nil, ErrNotValid{Kind: KindWork, Path: p, Err: err}
	}
	return NewWork(wd, p)
}

// Entity returns the entity this work file belongs to.
func (w *Work) Entity() *Entity {
	return w.WorkDir.Entity
}

// Job returns the job this work file belongs to.
func (w *Work) Job() *Job {
	return w.WorkDir.Entity.Job
}

// Filename is the base name of the file.
func (w *Work) Filename() string {
	return path.Base(w.Path)
}

// Dir is the directory containing the file, which is the work dir
// unless the work template has user subdirectories.
func (w *Work) Dir() string {
	return path.Dir(w.Path)
}

func (w *Work) String() string {
	return "Work(" + w.Path + ")"
}

// Less orders work files by work dir path and then file name, so that
// a user token embedded in the path does not reorder versions.
func (w *Work) Less(o *Work) bool {
	if w.WorkDir.Path != o.WorkDir.Path {
		return w.WorkDir.Path < o.WorkDir.Path
	}
	return w.Filename() < o.Filename()
}

// SameStream says whether two work files are versions of the same
// thing: the same work dir, tag and dcc.
func (w *Work) SameStream(o *Work) bool {
	return w.WorkDir.Path == o.WorkDir.Path && w.Tag == o.Tag && w.DCC == o.DCC
}

// ToVersion builds another version of this work file.
func (w *Work) ToVersion(verN int) (*Work, error) {
	data := copyData(w.Data)
	data["ver"] = strconv.Itoa(verN)
	p, err := w.Template.Format(data)
	if err != nil {
		return nil, err
	}
	return NewWork(w.WorkDir, p)
}

// MetadataPath returns the sidecar metadata file of this work file.
func (w *Work) MetadataPath() string {
	return MetadataPath(w.Path)
}

// ToOutput builds an output of a type generated from this work file,
// with the work file's tag and version.
func (w *Work) ToOutput(typ string, data map[string]string) (*Output, error) {
	full := map[string]string{
		"tag":  w.Tag,
		"ver":  w.Ver,
		"user": w.User,
	}
	for k, v := range data {
		full[k] = v
	}
	return w.WorkDir.ToOutput(typ, full)
}
