// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipe

import (
	"fmt"
	"strings"
)

// PathMapping rewrites one path prefix to another.
type PathMapping struct {
	Src  string
	Dest string
}

// PathMap rewrites paths recorded on one machine, or by a tracker,
// into paths valid on this one.  The first mapping whose source
// prefix matches, ignoring case, is applied.
type PathMap []PathMapping

// ParsePathMap parses "src>>>dest;src2>>>dest2".  An empty string is
// an empty map.
func ParsePathMap(s string) (PathMap, error) {
	var result PathMap
	for _, item := range strings.Split(s, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ">>>")
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("bad path mapping %q", item)
		}
		result = append(result, PathMapping{
			Src:  cleanPath(parts[0]),
			Dest: cleanPath(parts[1]),
		})
	}
	return result, nil
}

func (m PathMap) String() string {
	parts := make([]string, len(m))
	for i, mapping := range m {
		parts[i] = mapping.Src + ">>>" + mapping.Dest
	}
	return strings.Join(parts, ";")
}

// Apply maps a path.  Paths no mapping covers are only cleaned.
func (m PathMap) Apply(p string) string {
	p = cleanPath(p)
	lower := strings.ToLower(p)
	for _, mapping := range m {
		src := strings.ToLower(mapping.Src)
		if lower == src || strings.HasPrefix(lower, src+"/") {
			return mapping.Dest + p[len(mapping.Src):]
		}
	}
	return p
}
