// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package template

import (
	"fmt"
	"sort"
	"strings"
)

// Query selects templates from a Set.
type Query struct {
	// Type must equal the template type.
	Type string

	// Profile matches templates with the same profile or none.
	Profile string

	// DCC selects dcc-specific templates if any exist, and
	// generic templates otherwise.
	DCC string

	// HasKey requires each named token to be present (true) or
	// absent (false).
	HasKey map[string]bool

	// WantKey prefers templates that satisfy it, but falls back
	// to all candidates if none do.
	WantKey map[string]bool
}

func (q Query) String() string {
	parts := []string{q.Type}
	if q.Profile != "" {
		parts = append(parts, "profile="+q.Profile)
	}
	if q.DCC != "" {
		parts = append(parts, "dcc="+q.DCC)
	}
	if len(q.HasKey) > 0 {
		parts = append(parts, fmt.Sprintf("has=%v", q.HasKey))
	}
	return strings.Join(parts, " ")
}

// Set is a job's collection of templates.
type Set struct {
	templates []*Template
}

// NewSet creates a template set, ordered by precedence.
func NewSet(templates ...*Template) *Set {
	s := &Set{}
	s.Add(templates...)
	return s
}

// Add inserts more templates into the set.
func (s *Set) Add(templates ...*Template) {
	s.templates = append(s.templates, templates...)
	sort.SliceStable(s.templates, func(i, j int) bool {
		return s.templates[i].Less(s.templates[j])
	})
}

// All returns every template in precedence order.
func (s *Set) All() []*Template {
	return append([]*Template(nil), s.templates...)
}

// Types returns the distinct template types in the set, sorted.
func (s *Set) Types() []string {
	seen := make(map[string]bool)
	var types []string
	for _, t := range s.templates {
		if !seen[t.Type] {
			seen[t.Type] = true
			types = append(types, t.Type)
		}
	}
	sort.Strings(types)
	return types
}

// Find returns the templates matching a query, in precedence order.
func (s *Set) Find(q Query) []*Template {
	var found []*Template
	for _, t := range s.templates {
		if q.Type != "" && t.Type != q.Type {
			continue
		}
		if q.Profile != "" && t.Profile != "" && t.Profile != q.Profile {
			continue
		}
		if !hasKeys(t, q.HasKey) {
			continue
		}
		found = append(found, t)
	}
	found = filterDCC(found, q.DCC)
	if len(q.WantKey) > 0 {
		var wanted []*Template
		for _, t := range found {
			if hasKeys(t, q.WantKey) {
				wanted = append(wanted, t)
			}
		}
		if len(wanted) > 0 {
			found = wanted
		}
	}
	return found
}

// FindOne returns the single best template for a query.  Profile
// specific templates beat generic ones and lower alt indexes beat
// higher ones; if more than one template is left, returns
// ErrAmbiguous.
func (s *Set) FindOne(q Query) (*Template, error) {
	found := narrow(s.Find(q))
	switch len(found) {
	case 0:
		return nil, ErrNoTemplate{Query: q}
	case 1:
		return found[0], nil
	}
	return nil, ErrAmbiguous{Query: q, Templates: names(found)}
}

// Match parses a path against every template matching q.  Exactly
// one template must parse it after precedence is applied.  If none
// do, the error satisfies IsNoMatch().
func (s *Set) Match(q Query, path string) (*Template, map[string]string, error) {
	var (
		matched []*Template
		results = make(map[*Template]map[string]string)
		lastErr error = ErrNoMatch{Template: q.String(), Path: path}
	)
	for _, t := range s.Find(q) {
		data, err := t.Parse(path)
		if err != nil {
			lastErr = err
			continue
		}
		matched = append(matched, t)
		results[t] = data
	}
	matched = narrow(matched)
	switch len(matched) {
	case 0:
		return nil, nil, lastErr
	case 1:
		return matched[0], results[matched[0]], nil
	}
	return nil, nil, ErrAmbiguous{Query: q, Path: path, Templates: names(matched)}
}

// MatchDir is Match for directory templates, accepting any path at
// or below the directory.  It also returns the directory itself.
func (s *Set) MatchDir(q Query, path string) (*Template, string, map[string]string, error) {
	var (
		matched []*Template
		dirs    = make(map[*Template]string)
		results = make(map[*Template]map[string]string)
		lastErr error = ErrNoMatch{Template: q.String(), Path: path}
	)
	for _, t := range s.Find(q) {
		dir, data, err := t.ParseDir(path)
		if err != nil {
			lastErr = err
			continue
		}
		matched = append(matched, t)
		dirs[t] = dir
		results[t] = data
	}
	matched = narrow(matched)
	switch len(matched) {
	case 0:
		return nil, "", nil, lastErr
	case 1:
		return matched[0], dirs[matched[0]], results[matched[0]], nil
	}
	// Deeper templates are more precise about where the path is
	deepest := matched[:1]
	for _, t := range matched[1:] {
		switch d, best := len(dirs[t]), len(dirs[deepest[0]]); {
		case d > best:
			deepest = []*Template{t}
		case d == best:
			deepest = append(deepest, t)
		}
	}
	if len(deepest) == 1 {
		return deepest[0], dirs[deepest[0]], results[deepest[0]], nil
	}
	return nil, "", nil, ErrAmbiguous{Query: q, Path: path, Templates: names(deepest)}
}

// narrow keeps the most specific, lowest-alt templates.
func narrow(templates []*Template) []*Template {
	best := -1
	for _, t := range templates {
		if t.specificity() > best {
			best = t.specificity()
		}
	}
	var specific []*Template
	lowAlt := -1
	for _, t := range templates {
		if t.specificity() != best {
			continue
		}
		specific = append(specific, t)
		if lowAlt < 0 || t.Alt < lowAlt {
			lowAlt = t.Alt
		}
	}
	var result []*Template
	for _, t := range specific {
		if t.Alt == lowAlt {
			result = append(result, t)
		}
	}
	return result
}

func filterDCC(templates []*Template, dcc string) []*Template {
	var specific, generic []*Template
	for _, t := range templates {
		switch {
		case t.DCC == "":
			generic = append(generic, t)
		case dcc != "" && t.DCC == dcc:
			specific = append(specific, t)
		}
	}
	if len(specific) > 0 {
		return specific
	}
	return generic
}

func hasKeys(t *Template, keys map[string]bool) bool {
	for key, want := range keys {
		if t.HasKey(key) != want {
			return false
		}
	}
	return true
}

func names(templates []*Template) []string {
	result := make([]string, len(templates))
	for i, t := range templates {
		result[i] = t.Name
	}
	return result
}
