// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package template

import (
	"sort"
	"strings"
)

// Format substitutes token values into the pattern.  The most complex
// variation whose tokens all have non-empty values is used.  If no
// variation can be filled, returns ErrMissingTokens naming the tokens
// the simplest variation still needs.
func (t *Template) Format(data map[string]string) (string, error) {
	for _, v := range t.variations {
		if path, ok := t.formatVariation(v, data); ok {
			return path, nil
		}
	}
	var missing []string
	if n := len(t.variations); n > 0 {
		for _, name := range t.variations[n-1].tokens() {
			if data[name] == "" {
				missing = append(missing, name)
			}
		}
	}
	sort.Strings(missing)
	return "", ErrMissingTokens{Template: t.Name, Keys: missing}
}

func (t *Template) formatVariation(v *variation, data map[string]string) (string, bool) {
	var b strings.Builder
	for _, p := range v.pieces {
		if !p.isToken() {
			b.WriteString(p.literal)
			continue
		}
		value := data[p.token]
		if value == "" {
			return "", false
		}
		b.WriteString(t.policies.pad(p.token, value))
	}
	return b.String(), true
}

// Parse extracts token values from a path.  Variations are tried most
// complex first, and the first one that matches with valid token
// values wins.  The result includes any embedded values.
func (t *Template) Parse(path string) (map[string]string, error) {
	var invalid error
	for _, v := range t.variations {
		data, err := t.parseVariation(v, path)
		if err == nil {
			return data, nil
		}
		if _, isInvalid := err.(ErrInvalidToken); isInvalid && invalid == nil {
			invalid = err
		}
	}
	if invalid != nil {
		return nil, invalid
	}
	return nil, ErrNoMatch{Template: t.Name, Path: path}
}

func (t *Template) parseVariation(v *variation, path string) (map[string]string, error) {
	match := v.regexp.FindStringSubmatch(path)
	if match == nil {
		return nil, ErrNoMatch{Template: t.Name, Path: path}
	}
	data := make(map[string]string, len(v.groups)+len(t.Embedded))
	for i, group := range v.regexp.SubexpNames() {
		token, isToken := v.groups[group]
		if !isToken {
			continue
		}
		if prior, seen := data[token]; seen && prior != match[i] {
			return nil, ErrNoMatch{Template: t.Name, Path: path}
		}
		data[token] = match[i]
	}
	for token, value := range data {
		if err := t.policies.Validate(token, value); err != nil {
			return nil, err
		}
	}
	// A value that the formatter would write differently (an
	// unpadded version, say) is not a real match
	if formatted, ok := t.formatVariation(v, data); !ok || formatted != path {
		return nil, ErrNoMatch{Template: t.Name, Path: path}
	}
	for token, value := range t.Embedded {
		data[token] = value
	}
	return data, nil
}

// ParseDir matches a directory template against a path at or below
// the directory.  The path is cropped to the depth of each variation
// in turn; the cropped directory and its data are returned.
func (t *Template) ParseDir(path string) (string, map[string]string, error) {
	var (
		err    error = ErrNoMatch{Template: t.Name, Path: path}
		depths = make(map[int]bool)
	)
	for _, v := range t.variations {
		depth := strings.Count(v.pattern(), "/")
		if depths[depth] {
			continue
		}
		depths[depth] = true
		dir, ok := cropPath(path, depth)
		if !ok {
			continue
		}
		data, parseErr := t.Parse(dir)
		if parseErr == nil {
			return dir, data, nil
		}
		if _, invalid := parseErr.(ErrInvalidToken); invalid {
			err = parseErr
		}
	}
	return "", nil, err
}

// cropPath keeps the first depth+1 slash-separated parts of path.
func cropPath(path string, depth int) (string, bool) {
	parts := strings.SplitN(path, "/", depth+2)
	if len(parts) < depth+1 {
		return "", false
	}
	return strings.Join(parts[:depth+1], "/"), true
}
