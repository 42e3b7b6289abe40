// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipe

// RepFilter narrows the representations FindReps returns.  Empty
// fields match anything.
type RepFilter struct {
	Task        string
	ContentType string
	Extn        string
}

// ContentTypeFunc returns the content type of an output, typically by
// reading its metadata.
type ContentTypeFunc func(*Output) string

// FindReps finds the other representations of an output among its
// entity's outputs: outputs a reference to o could be swapped for,
// such as a lookdev archive standing in for a model publish.
func FindReps(o *Output, outputs []*Output, contentType ContentTypeFunc, filter RepFilter) []*Output {
	var (
		reps []*Output
		seen = map[string]bool{o.Path: true}
		task = MapTask(o.Task)
	)
	add := func(rep *Output) {
		if rep != nil && !seen[rep.Path] {
			seen[rep.Path] = true
			reps = append(reps, rep)
		}
	}
	latest := func(keep func(*Output) bool) *Output {
		var matched []*Output
		for _, c := range outputs {
			if keep(c) {
				matched = append(matched, c)
			}
		}
		return LatestOf(matched)
	}

	// Model and rig publishes stand in for each other
	switch o.Extn {
	case "ma", "mb", "gz", "ass.gz", "abc", "fbx":
		if o.Entity.Profile != AssetProfile {
			break
		}
		for _, other := range []string{"model", "rig"} {
			if other == task || other == o.Task {
				continue
			}
			add(latest(func(c *Output) bool {
				return c.Type == "publish" && c.Ver != "" && c.Extn == "ma" &&
					c.Tag == o.Tag && MapTask(c.Task) == other
			}))
		}
	}

	// The same model version in another format
	if task == "model" {
		for _, c := range outputs {
			switch c.Extn {
			case "abc", "fbx", "ma":
			default:
				continue
			}
			if MapTask(c.Task) == "model" && c.VerN == o.VerN && c.Tag == o.Tag {
				add(c)
			}
		}
	}

	if task == "model" || task == "rig" {
		add(latest(func(c *Output) bool {
			return c.Type == "ass_gz" && c.Tag == o.Tag
		}))
	}

	if task == "model" {
		add(latest(func(c *Output) bool {
			return c.Type == "publish" && c.Extn == "ma" && c.Tag == o.Tag &&
				contentType(c) == "VrmeshMa"
		}))
	}

	if contentType(o) == "VrmeshMa" {
		for _, c := range outputs {
			if c.Type == "publish" && c.Extn == "ma" && c.Tag == o.Tag &&
				c.VerN == o.VerN && contentType(c) == "ShadersMa" {
				add(c)
				break
			}
		}
	}

	var result []*Output
	for _, rep := range reps {
		if filter.Extn != "" && rep.Extn != filter.Extn {
			continue
		}
		if filter.Task != "" && filter.Task != rep.Task && filter.Task != MapTask(rep.Task) {
			continue
		}
		if filter.ContentType != "" && contentType(rep) != filter.ContentType {
			continue
		}
		result = append(result, rep)
	}
	return result
}
