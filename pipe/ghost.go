// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipe

import (
	"sort"
)

// OutputGhost is a detached, flat copy of an output.  Listing every
// publish in a job is slow when each output is resolved from its
// path, so these are built once and stored per job.
type OutputGhost struct {
	Path        string `codec:"path" yaml:"path"`
	Job         string `codec:"job" yaml:"job"`
	Profile     string `codec:"profile" yaml:"profile"`
	EntityType  string `codec:"entity_type" yaml:"entity_type"`
	Entity      string `codec:"entity" yaml:"entity"`
	Type        string `codec:"type" yaml:"type"`
	Task        string `codec:"task,omitempty" yaml:"task,omitempty"`
	Step        string `codec:"step,omitempty" yaml:"step,omitempty"`
	Tag         string `codec:"tag,omitempty" yaml:"tag,omitempty"`
	VerN        int    `codec:"ver_n" yaml:"ver_n"`
	Extn        string `codec:"extn" yaml:"extn"`
	ContentType string `codec:"content_type,omitempty" yaml:"content_type,omitempty"`
	Latest      bool   `codec:"latest" yaml:"latest"`
	Owner       string `codec:"owner,omitempty" yaml:"owner,omitempty"`
	Mtime       int64  `codec:"mtime,omitempty" yaml:"mtime,omitempty"`
}

// NewOutputGhost captures an output and its metadata.  The output's
// Latest flag should already be set.
func NewOutputGhost(o *Output, meta Metadata) OutputGhost {
	g := OutputGhost{
		Path:        o.Path,
		Job:         o.Entity.Job.Name,
		Profile:     o.Entity.Profile,
		EntityType:  o.Entity.EntityType(),
		Entity:      o.Entity.Name,
		Type:        o.Type,
		Task:        o.Task,
		Step:        o.Step,
		Tag:         o.Tag,
		VerN:        o.VerN,
		Extn:        o.Extn,
		ContentType: ContentType(o, meta),
		Latest:      o.Latest == LatestYes,
		Owner:       meta.String("owner"),
	}
	if mtime, ok := meta["mtime"]; ok {
		switch value := mtime.(type) {
		case int:
			g.Mtime = int64(value)
		case int64:
			g.Mtime = value
		case float64:
			g.Mtime = int64(value)
		}
	}
	return g
}

// Label returns "type.name" for assets and the shot name for shots.
func (g OutputGhost) Label() string {
	if g.Profile == AssetProfile {
		return g.EntityType + "." + g.Entity
	}
	return g.Entity
}

// SortGhosts orders ghosts by entity, then path, naturally.
func SortGhosts(ghosts []OutputGhost) {
	less := func(a, b OutputGhost) bool {
		if a.Profile != b.Profile {
			return a.Profile < b.Profile
		}
		if a.Label() != b.Label() {
			return natLess(a.Label(), b.Label())
		}
		return a.Path < b.Path
	}
	sort.SliceStable(ghosts, func(i, j int) bool {
		return less(ghosts[i], ghosts[j])
	})
}
