// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package template

import (
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/facette/natsort"
)

// Glob finds concrete paths on disk that parse as this template.
// Every unresolved token becomes a wildcard; embed parent paths with
// ApplyData() first.  Matches whose tokens fail validation, or whose
// filesystem type does not fit the template, are skipped.  For
// sequence templates, frame files are collapsed back to one path
// containing FramePlaceholder.  The result is in natural order.
func (t *Template) Glob() ([]string, error) {
	seen := make(map[string]bool)
	var result []string
	for _, v := range t.variations {
		pattern, frames := globPattern(v.pieces)
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			path := match
			if frames {
				path = collapseFrame(match)
			}
			if seen[path] {
				continue
			}
			seen[path] = true
			data, err := t.Parse(path)
			if err != nil || hidden(data, t.Embedded) {
				continue
			}
			if !t.fitsPathType(match) {
				continue
			}
			result = append(result, path)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i] != result[j] && natsort.Compare(result[i], result[j])
	})
	return result, nil
}

// hidden says whether any globbed token value names a dot file.
func hidden(data, embedded map[string]string) bool {
	for token, value := range data {
		if _, fixed := embedded[token]; !fixed && strings.HasPrefix(value, ".") {
			return true
		}
	}
	return false
}

func (t *Template) fitsPathType(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if t.PathType == Dir {
		return info.IsDir()
	}
	return !info.IsDir()
}

// globPattern builds a doublestar pattern for a variation.  The
// second return says whether the pattern has a frame wildcard.
func globPattern(pieces []piece) (string, bool) {
	var b strings.Builder
	frames := false
	for _, p := range pieces {
		if p.isToken() {
			b.WriteString("*")
			continue
		}
		literal := p.literal
		if strings.Contains(literal, FramePlaceholder) {
			frames = true
			parts := strings.Split(literal, FramePlaceholder)
			for i, part := range parts {
				if i > 0 {
					b.WriteString("[0-9][0-9][0-9][0-9]")
				}
				b.WriteString(escapeGlob(part))
			}
			continue
		}
		b.WriteString(escapeGlob(literal))
	}
	return b.String(), frames
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// collapseFrame replaces the last four-digit frame number in a file
// name with FramePlaceholder.
func collapseFrame(path string) string {
	frame, start := FrameNumber(path)
	if frame < 0 {
		return path
	}
	return path[:start] + FramePlaceholder + path[start+4:]
}

// FrameNumber finds the frame number in a sequence frame path of the
// form "name.0001.ext".  It returns the frame and its byte offset, or
// -1 if there is none.
func FrameNumber(path string) (int, int) {
	base := strings.LastIndexByte(path, '/') + 1
	name := path[base:]
	for i := len(name) - 5; i >= 1; i-- {
		if name[i-1] != '.' || name[i+4] != '.' {
			continue
		}
		digits := name[i : i+4]
		if !isDigits(digits) {
			continue
		}
		n := 0
		for _, c := range digits {
			n = n*10 + int(c-'0')
		}
		return n, base + i
	}
	return -1, -1
}
