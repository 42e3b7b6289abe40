// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package template converts between abstract path patterns and
// concrete paths.
//
// A pattern looks like
//
//	{entity_path}/work/{task}/{entity}_{task}[_{tag}]_v{ver}.{extn}
//
// where each {token} is replaced by a value, and each run in square
// brackets is optional.  A token may carry its own regular expression
// as {tag:[^_]+}.  Tokens whose names end in "_path", and "work_dir",
// stand for whole parent paths and are normally embedded with
// ApplyData() before use.
//
// Template names encode metadata:
//
//	[dcc_][asset_|shot_]type[_altN]
//
// so "maya_shot_work_alt1" is the second alternative "work" template
// for shots, used only by Maya.  When several templates could apply,
// the more specific one (dcc, then profile) wins, then the lower alt
// index, then the longer pattern.
//
// Parsing never fails fatally.  A path that does not match, or that
// matches with token values the job does not allow, yields ErrNoMatch
// or ErrInvalidToken; IsNoMatch() recognizes both.
package template

import (
	"strconv"
	"strings"
)

// DCCs lists the content creation applications that may qualify a
// template name.
var DCCs = []string{
	"blender", "c4d", "hou", "maya", "nuke", "substance", "terragen",
}

// Profiles lists the two entity kinds that may qualify a template name.
var Profiles = []string{"asset", "shot"}

// PathType says what kind of filesystem object a template describes.
type PathType rune

const (
	// File is a single file.
	File PathType = 'f'
	// Dir is a directory.
	Dir PathType = 'd'
	// Seq is a numbered file sequence.
	Seq PathType = 's'
)

// FramePlaceholder stands for the frame number in sequence templates.
const FramePlaceholder = "%04d"

// Template is an immutable path pattern with metadata.  Create it
// with New(); derived templates come from ApplyData() and
// CropToToken().
type Template struct {
	// Name is the full template name, e.g. "maya_shot_work_alt1".
	Name string

	// Type is the name stripped of dcc, profile and alt, e.g. "work".
	Type string

	// Profile is "asset", "shot" or empty.
	Profile string

	// DCC is the application this template is restricted to, if any.
	DCC string

	// Alt is the alternative index from an _altN suffix.
	Alt int

	// PathType says what the pattern describes on disk.
	PathType PathType

	// Pattern is the pattern string.  After ApplyData() it shows
	// the embedded values.
	Pattern string

	// Embedded holds values applied with ApplyData().
	Embedded map[string]string

	// Source is the original pattern before any data was applied.
	Source string

	policies   Policies
	pieces     []piece
	variations []*variation
}

// New creates a template from its config name and pattern.  The path
// type is inferred from the name.
func New(name, pattern string, policies Policies) (*Template, error) {
	pathType, err := pathTypeFor(name, pattern)
	if err != nil {
		return nil, err
	}
	return NewWithPathType(name, pattern, pathType, policies)
}

// NewWithPathType creates a template with an explicit path type.  This
// is used for derived templates whose names do not imply one.
func NewWithPathType(name, pattern string, pathType PathType, policies Policies) (*Template, error) {
	pieces, nOpt, err := parsePattern(pattern)
	if err != nil {
		return nil, err
	}
	t := &Template{
		Name:     name,
		PathType: pathType,
		Source:   pattern,
		policies: policies,
	}
	t.DCC, t.Profile, t.Type, t.Alt = parseName(name)
	if err = t.build(pieces, nOpt); err != nil {
		return nil, err
	}
	return t, nil
}

// build sets up the pieces, pattern string and compiled variations.
func (t *Template) build(pieces []piece, nOpt int) error {
	t.pieces = pieces
	t.Pattern = renderPattern(pieces)
	t.Embedded = make(map[string]string)
	for _, p := range pieces {
		if p.from != "" {
			t.Embedded[p.from] = p.literal
		}
	}
	t.variations = nil
	for _, vp := range expandVariations(pieces, nOpt) {
		v, err := compile(vp, t.policies)
		if err != nil {
			return err
		}
		t.variations = append(t.variations, v)
	}
	return nil
}

// clone returns a shallow copy, to be rebuilt with new pieces.
func (t *Template) clone() *Template {
	c := *t
	return &c
}

func (t *Template) String() string {
	return t.Name + "(" + t.Pattern + ")"
}

// Policies returns the token validation policies this template uses.
func (t *Template) Policies() Policies {
	return t.policies
}

// Keys returns the distinct token names in the pattern, in order of
// first appearance, including optional ones.
func (t *Template) Keys() []string {
	var names []string
	seen := make(map[string]bool)
	for _, p := range t.pieces {
		if p.isToken() && !seen[p.token] {
			seen[p.token] = true
			names = append(names, p.token)
		}
	}
	return names
}

// HasKey says whether the pattern contains a token.
func (t *Template) HasKey(key string) bool {
	for _, p := range t.pieces {
		if p.token == key {
			return true
		}
	}
	return false
}

// Variations returns the concrete patterns this template expands to,
// most complex first.
func (t *Template) Variations() []string {
	result := make([]string, len(t.variations))
	for i, v := range t.variations {
		result[i] = v.pattern()
	}
	return result
}

// ApplyData returns a new template with some token values fixed in
// place.  Values for tokens the pattern does not contain are ignored.
func (t *Template) ApplyData(data map[string]string) *Template {
	pieces := make([]piece, 0, len(t.pieces))
	for _, p := range t.pieces {
		if value, present := data[p.token]; p.isToken() && present {
			p = piece{literal: value, opt: p.opt, from: p.token}
		}
		pieces = append(pieces, p)
	}
	c := t.clone()
	if err := c.build(pieces, countOpts(pieces)); err != nil {
		// The pieces only lost tokens, so every regexp is simpler
		// than one that already compiled
		panic(err)
	}
	return c
}

// CropToToken returns a directory template ending with the path
// component that contains token.
func (t *Template) CropToToken(token string) (*Template, error) {
	var kept []piece
	found := false
	for _, p := range t.pieces {
		if found && !p.isToken() {
			if slash := strings.IndexByte(p.literal, '/'); slash >= 0 {
				if slash > 0 {
					p.literal = p.literal[:slash]
					p.from = ""
					kept = append(kept, p)
				}
				break
			}
		}
		kept = append(kept, p)
		if p.token == token {
			found = true
		}
	}
	if !found {
		return nil, ErrNoToken{Template: t.Name, Token: token}
	}
	c := t.clone()
	c.PathType = Dir
	if err := c.build(kept, countOpts(kept)); err != nil {
		return nil, err
	}
	return c, nil
}

// countOpts returns one more than the highest optional run index.
func countOpts(pieces []piece) int {
	n := 0
	for _, p := range pieces {
		if p.opt >= n {
			n = p.opt + 1
		}
	}
	return n
}

// SplitHardened splits the pattern into its leading literal directory
// and the remainder.
func (t *Template) SplitHardened() (string, string) {
	var lead string
	for _, p := range t.pieces {
		if p.isToken() || p.opt >= 0 {
			break
		}
		lead += p.literal
	}
	slash := strings.LastIndexByte(lead, '/')
	if slash < 0 {
		return "", t.Pattern
	}
	return lead[:slash], strings.TrimPrefix(t.Pattern, lead[:slash+1])
}

// Less orders templates by precedence: dcc-qualified first, then
// profile-qualified, then longer patterns, then type, name and alt.
func (t *Template) Less(o *Template) bool {
	if (t.DCC != "") != (o.DCC != "") {
		return t.DCC != ""
	}
	if (t.Profile != "") != (o.Profile != "") {
		return t.Profile != ""
	}
	if len(t.Pattern) != len(o.Pattern) {
		return len(t.Pattern) > len(o.Pattern)
	}
	if t.Type != o.Type {
		return t.Type < o.Type
	}
	if t.Name != o.Name {
		return t.Name < o.Name
	}
	return t.Alt < o.Alt
}

// specificity ranks how qualified a template is.
func (t *Template) specificity() int {
	n := 0
	if t.DCC != "" {
		n += 2
	}
	if t.Profile != "" {
		n++
	}
	return n
}

// parseName splits a template name into its parts.
func parseName(name string) (dcc, profile, typ string, alt int) {
	base, alt := extractAlt(name)
	parts := strings.Split(base, "_")
	if len(parts) > 1 && contains(DCCs, parts[0]) {
		dcc = parts[0]
		parts = parts[1:]
	}
	if len(parts) > 1 && contains(Profiles, parts[0]) {
		profile = parts[0]
		parts = parts[1:]
	}
	typ = strings.Join(parts, "_")
	return
}

// extractAlt strips an _altN suffix, returning the base and N.
func extractAlt(name string) (string, int) {
	underscore := strings.LastIndexByte(name, '_')
	if underscore < 0 {
		return name, 0
	}
	suffix := name[underscore+1:]
	if !strings.HasPrefix(suffix, "alt") {
		return name, 0
	}
	n, err := strconv.Atoi(suffix[3:])
	if err != nil || n < 0 {
		return name, 0
	}
	return name[:underscore], n
}

var pathTypeSuffixes = []struct {
	suffix   string
	pathType PathType
}{
	{"ass_gz", File},
	{"blast", Seq},
	{"cache_seq", Seq},
	{"cache", File},
	{"empty_file", File},
	{"entity_path", Dir},
	{"mov", File},
	{"plate", Seq},
	{"publish_seq", Seq},
	{"publish", File},
	{"render", Seq},
	{"shot_path", Dir},
	{"work_dir", Dir},
	{"work", File},
}

func pathTypeFor(name, pattern string) (PathType, error) {
	base, _ := extractAlt(name)
	for _, s := range pathTypeSuffixes {
		if strings.HasSuffix(base, s.suffix) {
			return s.pathType, nil
		}
	}
	if strings.HasSuffix(pattern, ".{extn}") {
		return File, nil
	}
	return 0, ErrBadPattern{Pattern: pattern, Reason: "cannot tell path type of " + name}
}
