// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipe

import (
	"strconv"
	"strings"

	"github.com/diffeo/go-pini/template"
)

// WorkDir is the directory holding one task's work files for an
// entity.
type WorkDir struct {
	Entity *Entity
	Path   string
	Task   string
	Step   string
	DCC    string
	User   string

	Template *template.Template
	Data     map[string]string
}

// NewWorkDir builds a work dir from a path at or inside it.
func NewWorkDir(ety *Entity, p string) (*WorkDir, error) {
	p = cleanPath(p)
	set := template.NewSet(ety.FindTemplates(template.Query{Type: "work_dir"})...)
	tmpl, dir, data, err := set.MatchDir(template.Query{}, p)
	if err != nil {
		if _, ambiguous := err.(template.ErrAmbiguous); ambiguous {
			return nil, err
		}
		return nil, ErrNotValid{Kind: KindWorkDir, Path: p, Err: err}
	}
	wd := &WorkDir{
		Entity:   ety,
		Path:     dir,
		Task:     data["task"],
		Step:     data["step"],
		DCC:      data["dcc"],
		User:     data["user"],
		Template: tmpl,
		Data:     data,
	}
	if wd.DCC == "" {
		wd.DCC = tmpl.DCC
	}
	return wd, nil
}

// ParseWorkDir builds a work dir from a path, deriving its entity.
func ParseWorkDir(job *Job, p string) (*WorkDir, error) {
	ety, err := NewEntity(job, p)
	if err != nil {
		return nil, ErrNotValid{Kind: KindWorkDir, Path: p, Err: err}
	}
	return NewWorkDir(ety, p)
}

// Job returns the job this work dir belongs to.
func (w *WorkDir) Job() *Job {
	return w.Entity.Job
}

func (w *WorkDir) String() string {
	return "WorkDir(" + w.Entity.Label() + "/" + w.TaskLabel() + ")"
}

// TaskLabel is the task, prefixed by the step if there is one.
func (w *WorkDir) TaskLabel() string {
	if w.Step != "" {
		return w.Step + "/" + w.Task
	}
	return w.Task
}

// Less orders work dirs by step and task priority, then path.
func (w *WorkDir) Less(o *WorkDir) bool {
	if w.Step != o.Step {
		return LessTask(w.Step, o.Step)
	}
	if w.Task != o.Task {
		return LessTask(w.Task, o.Task)
	}
	return w.Path < o.Path
}

// data returns the tokens this work dir fixes in lower-level
// templates.
func (w *WorkDir) data() map[string]string {
	data := w.Entity.data()
	data["work_dir"] = w.Path
	data["task"] = w.Task
	for _, key := range []string{"step", "dcc", "user"} {
		if value := w.Data[key]; value != "" {
			data[key] = value
		}
	}
	return data
}

// WorkTemplates returns the work file templates for a dcc, with this
// work dir's tokens applied.
func (w *WorkDir) WorkTemplates(dcc string) []*template.Template {
	return applyAll(w.Entity.Job.Templates.Find(template.Query{
		Type:    "work",
		Profile: w.Entity.Profile,
		DCC:     dcc,
	}), w.data())
}

// ToWork builds a work file in this work dir.  An empty tag uses the
// job's default tag; an empty extn uses the job's default for the
// dcc.  The file need not exist.
func (w *WorkDir) ToWork(tag string, verN int, dcc, extn string) (*Work, error) {
	job := w.Job()
	if tag == "" {
		tag = job.Config.DefaultTag()
	}
	if dcc == "" {
		dcc = ExtnToDCC[extn]
	}
	if dcc == "" {
		dcc = w.DCC
	}
	if extn == "" {
		extn = job.Config.DefaultExtn(dcc)
	}
	tmpl, err := w.Entity.Job.Templates.FindOne(template.Query{
		Type:    "work",
		Profile: w.Entity.Profile,
		DCC:     dcc,
		WantKey: map[string]bool{"tag": tag != "", "user": w.User != ""},
	})
	if err != nil {
		return nil, err
	}
	data := w.data()
	data["tag"] = tag
	data["ver"] = strconv.Itoa(verN)
	data["extn"] = extn
	data["dcc"] = dcc
	p, err := tmpl.ApplyData(w.data()).Format(data)
	if err != nil {
		return nil, err
	}
	return NewWork(w, p)
}

// OutputTemplates returns the templates of outputs of the given types
// stored in this work dir, with the work dir's tokens applied.
func (w *WorkDir) OutputTemplates(types []string) []*template.Template {
	var result []*template.Template
	for _, typ := range types {
		for _, t := range w.Entity.Job.Templates.Find(template.Query{Type: typ, Profile: w.Entity.Profile}) {
			if strings.HasPrefix(t.Source, "{work_dir}") {
				result = append(result, t.ApplyData(w.data()))
			}
		}
	}
	return result
}

// ToOutput builds an output of a type stored in this work dir.
func (w *WorkDir) ToOutput(typ string, data map[string]string) (*Output, error) {
	set := template.NewSet(w.OutputTemplates([]string{typ})...)
	tmpl, err := set.FindOne(template.Query{
		Type:    typ,
		DCC:     ExtnToDCC[data["extn"]],
		WantKey: wantKeys(data, "tag", "output_type", "output_name"),
	})
	if err != nil {
		return nil, err
	}
	p, err := tmpl.Format(data)
	if err != nil {
		return nil, err
	}
	return NewOutput(w.Entity, w, p)
}
