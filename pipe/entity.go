// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipe

import (
	"path"
	"strings"

	"github.com/diffeo/go-pini/template"
)

// Sequence is a group of shots.  If the job keeps shots in sequence
// directories Path is that directory, otherwise it is empty.
type Sequence struct {
	Job  *Job
	Name string
	Path string
}

// NewSequence builds a sequence from a path at or inside its
// directory.
func NewSequence(job *Job, p string) (*Sequence, error) {
	tmpl, err := job.SequenceTemplate()
	if err != nil {
		return nil, ErrNotValid{Kind: KindSequence, Path: p, Err: err}
	}
	dir, data, err := tmpl.ParseDir(cleanPath(p))
	if err != nil {
		return nil, ErrNotValid{Kind: KindSequence, Path: p, Err: err}
	}
	return &Sequence{Job: job, Name: data["sequence"], Path: dir}, nil
}

func (s *Sequence) String() string {
	return "Sequence(" + s.Name + ")"
}

// Less orders sequences naturally by name.
func (s *Sequence) Less(o *Sequence) bool {
	return natLess(s.Name, o.Name)
}

// Entity is an asset or a shot.
type Entity struct {
	Job     *Job
	Path    string
	Profile string

	// Name is the asset or shot name.
	Name string

	AssetType string
	Asset     string
	Sequence  string
	Shot      string

	Template *template.Template
	Data     map[string]string
}

// NewEntity builds an entity from a path at or inside its directory.
func NewEntity(job *Job, p string) (*Entity, error) {
	p = cleanPath(p)
	var lastErr error
	for _, profile := range []string{AssetProfile, ShotProfile} {
		set := template.NewSet(job.EntityTemplates(profile)...)
		tmpl, dir, data, err := set.MatchDir(template.Query{Type: "entity_path"}, p)
		if err == nil {
			return newEntity(job, profile, tmpl, dir, data), nil
		}
		if _, ambiguous := err.(template.ErrAmbiguous); ambiguous {
			return nil, err
		}
		lastErr = err
	}
	return nil, ErrNotValid{Kind: KindEntity, Path: p, Err: lastErr}
}

func newEntity(job *Job, profile string, tmpl *template.Template, dir string, data map[string]string) *Entity {
	e := &Entity{
		Job:      job,
		Path:     dir,
		Profile:  profile,
		Template: tmpl,
		Data:     data,
	}
	if profile == AssetProfile {
		e.AssetType = data["asset_type"]
		e.Asset = data["asset"]
		e.Name = e.Asset
	} else {
		e.Sequence = data["sequence"]
		e.Shot = data["shot"]
		e.Name = e.Shot
	}
	return e
}

// Kind returns KindAsset or KindShot.
func (e *Entity) Kind() Kind {
	if e.Profile == AssetProfile {
		return KindAsset
	}
	return KindShot
}

// EntityType returns the asset type of an asset or the sequence of a
// shot.
func (e *Entity) EntityType() string {
	if e.Profile == AssetProfile {
		return e.AssetType
	}
	return e.Sequence
}

// Label is the name used to look an entity up within its job:
// "char.horse" for assets and the shot name for shots.
func (e *Entity) Label() string {
	if e.Profile == AssetProfile {
		return e.AssetType + "." + e.Asset
	}
	return e.Shot
}

func (e *Entity) String() string {
	return e.Kind().String() + "(" + e.Job.Name + "/" + e.EntityType() + "/" + e.Name + ")"
}

// Less orders entities by profile, type and name.
func (e *Entity) Less(o *Entity) bool {
	if e.Profile != o.Profile {
		return e.Profile < o.Profile
	}
	if e.EntityType() != o.EntityType() {
		return natLess(e.EntityType(), o.EntityType())
	}
	return natLess(e.Name, o.Name)
}

// data returns the tokens this entity fixes in lower-level templates.
func (e *Entity) data() map[string]string {
	data := e.Job.data()
	data["entity_path"] = e.Path
	data["entity"] = e.Name
	if e.Profile == AssetProfile {
		data["asset_type"] = e.AssetType
		data["asset"] = e.Asset
	} else {
		data["shot"] = e.Shot
		if e.Sequence != "" {
			data["sequence"] = e.Sequence
		}
	}
	return data
}

// FindTemplates returns the job templates for this entity's profile,
// with the entity's tokens applied.
func (e *Entity) FindTemplates(q template.Query) []*template.Template {
	q.Profile = e.Profile
	return applyAll(e.Job.Templates.Find(q), e.data())
}

// FindTemplate returns the best template for this entity's profile,
// with the entity's tokens applied.
func (e *Entity) FindTemplate(q template.Query) (*template.Template, error) {
	q.Profile = e.Profile
	tmpl, err := e.Job.Templates.FindOne(q)
	if err != nil {
		return nil, err
	}
	return tmpl.ApplyData(e.data()), nil
}

// rooted rewrites a template that starts at {work_dir} to start at
// the entity, by substituting the work_dir pattern.
func (e *Entity) rooted(t *template.Template) (*template.Template, error) {
	if !strings.HasPrefix(t.Source, "{work_dir}") {
		return t, nil
	}
	wdTmpl, err := e.Job.Templates.FindOne(template.Query{Type: "work_dir", Profile: e.Profile})
	if err != nil {
		return nil, err
	}
	pattern := wdTmpl.Source + strings.TrimPrefix(t.Source, "{work_dir}")
	return template.NewWithPathType(t.Name, pattern, t.PathType, t.Policies())
}

// OutputTemplates returns the templates of entity-level outputs of
// the given types.  Work dir outputs are excluded.
func (e *Entity) OutputTemplates(types []string) []*template.Template {
	var result []*template.Template
	for _, typ := range types {
		for _, t := range e.Job.Templates.Find(template.Query{Type: typ, Profile: e.Profile}) {
			if strings.HasPrefix(t.Source, "{entity_path}") {
				result = append(result, t.ApplyData(e.data()))
			}
		}
	}
	return result
}

// SeqDirTemplate pairs a sequence directory template, rooted at the
// entity with its tokens applied, with the unapplied template it came
// from.
type SeqDirTemplate struct {
	*template.Template
	Raw *template.Template
}

// SeqDirTemplates returns the templates of directories holding this
// entity's output sequences and videos, at entity and work dir level.
func (e *Entity) SeqDirTemplates() ([]SeqDirTemplate, error) {
	var result []SeqDirTemplate
	for _, raw := range e.Job.Templates.Find(template.Query{Type: "seq_dir", Profile: e.Profile}) {
		t, err := e.rooted(raw)
		if err != nil {
			return nil, err
		}
		result = append(result, SeqDirTemplate{Template: t.ApplyData(e.data()), Raw: raw})
	}
	return result, nil
}

// ToWorkDir builds the work dir for a task.  step may be empty.
func (e *Entity) ToWorkDir(task, step string) (*WorkDir, error) {
	tmpl, err := e.FindTemplate(template.Query{
		Type:    "work_dir",
		WantKey: map[string]bool{"step": step != ""},
	})
	if err != nil {
		return nil, err
	}
	p, err := tmpl.Format(map[string]string{"task": task, "step": step})
	if err != nil {
		return nil, err
	}
	return NewWorkDir(e, p)
}

// ToWork builds a work file in the work dir for a task.
func (e *Entity) ToWork(task, tag string, verN int, dcc, extn string) (*Work, error) {
	wd, err := e.ToWorkDir(task, "")
	if err != nil {
		return nil, err
	}
	return wd.ToWork(tag, verN, dcc, extn)
}

// ToOutput builds an entity-level output of a type from token values.
func (e *Entity) ToOutput(typ string, data map[string]string) (*Output, error) {
	tmpl, err := e.FindTemplate(template.Query{Type: typ, WantKey: wantKeys(data, "tag", "output_type")})
	if err != nil {
		return nil, err
	}
	p, err := tmpl.Format(data)
	if err != nil {
		return nil, err
	}
	return NewOutput(e, nil, p)
}

// Dir returns the directory containing the entity.
func (e *Entity) Dir() string {
	return path.Dir(e.Path)
}

// wantKeys builds a WantKey preference for optional tokens: prefer
// templates containing each key that has a value, and lacking each
// that has none.
func wantKeys(data map[string]string, keys ...string) map[string]bool {
	result := make(map[string]bool, len(keys))
	for _, key := range keys {
		result[key] = data[key] != ""
	}
	return result
}
