// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package template

// This file turns a pattern string into pieces.  A pattern is literal
// text with {token} or {token:regex} placeholders; any run of text in
// [square brackets] is optional.  Optional runs do not nest.  Square
// brackets inside a token's regex belong to the regex.

import (
	"math/bits"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// piece is either literal text or a token.
type piece struct {
	literal string
	token   string
	expr    string
	// opt is the index of the enclosing optional run, or -1.
	opt int
	// from names the token a literal was substituted for.
	from string
}

func (p piece) isToken() bool {
	return p.token != ""
}

func (p piece) String() string {
	if !p.isToken() {
		return p.literal
	}
	if p.expr != "" {
		return "{" + p.token + ":" + p.expr + "}"
	}
	return "{" + p.token + "}"
}

// parsePattern splits a pattern into pieces, returning the pieces and
// the number of optional runs.
func parsePattern(pattern string) ([]piece, int, error) {
	var (
		pieces  []piece
		literal strings.Builder
		nOpt    int
		opt     = -1
	)
	flush := func() {
		if literal.Len() > 0 {
			pieces = append(pieces, piece{literal: literal.String(), opt: opt})
			literal.Reset()
		}
	}
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '{':
			end := matchingBrace(pattern, i)
			if end < 0 {
				return nil, 0, ErrBadPattern{Pattern: pattern, Reason: "unclosed {"}
			}
			flush()
			body := pattern[i+1 : end]
			name, expr := body, ""
			if colon := strings.IndexByte(body, ':'); colon >= 0 {
				name, expr = body[:colon], body[colon+1:]
			}
			if name == "" {
				return nil, 0, ErrBadPattern{Pattern: pattern, Reason: "empty token"}
			}
			pieces = append(pieces, piece{token: name, expr: expr, opt: opt})
			i = end
		case '[':
			if opt >= 0 {
				return nil, 0, ErrBadPattern{Pattern: pattern, Reason: "nested ["}
			}
			flush()
			opt = nOpt
			nOpt++
		case ']':
			if opt < 0 {
				return nil, 0, ErrBadPattern{Pattern: pattern, Reason: "unmatched ]"}
			}
			flush()
			opt = -1
		default:
			literal.WriteByte(c)
		}
	}
	if opt >= 0 {
		return nil, 0, ErrBadPattern{Pattern: pattern, Reason: "unclosed ["}
	}
	flush()
	return pieces, nOpt, nil
}

// matchingBrace returns the index of the } matching the { at start,
// or -1.
func matchingBrace(s string, start int) int {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// renderPattern turns pieces back into a pattern string.
func renderPattern(pieces []piece) string {
	var b strings.Builder
	opt := -1
	for _, p := range pieces {
		if p.opt != opt {
			if opt >= 0 {
				b.WriteByte(']')
			}
			if p.opt >= 0 {
				b.WriteByte('[')
			}
			opt = p.opt
		}
		b.WriteString(p.String())
	}
	if opt >= 0 {
		b.WriteByte(']')
	}
	return b.String()
}

// variation is one concrete expansion of a pattern, with every
// optional run either included or dropped.
type variation struct {
	pieces []piece
	regexp *regexp.Regexp
	// groups maps regexp group names to token names.
	groups map[string]string
}

func (v *variation) pattern() string {
	return renderPattern(v.pieces)
}

// tokens returns the distinct token names in this variation, in order.
func (v *variation) tokens() []string {
	var names []string
	seen := make(map[string]bool)
	for _, p := range v.pieces {
		if p.isToken() && !seen[p.token] {
			seen[p.token] = true
			names = append(names, p.token)
		}
	}
	return names
}

// expandVariations produces every combination of optional runs.  The
// most complex variations (most runs included) come first; among
// equally complex ones, earlier runs are preferred.
func expandVariations(pieces []piece, nOpt int) [][]piece {
	masks := make([]uint, 0, 1<<uint(nOpt))
	for mask := uint(0); mask < 1<<uint(nOpt); mask++ {
		masks = append(masks, mask)
	}
	sort.SliceStable(masks, func(i, j int) bool {
		ci, cj := bits.OnesCount(masks[i]), bits.OnesCount(masks[j])
		if ci != cj {
			return ci > cj
		}
		return bits.Reverse(masks[i]) > bits.Reverse(masks[j])
	})
	result := make([][]piece, 0, len(masks))
	for _, mask := range masks {
		var vp []piece
		for _, p := range pieces {
			if p.opt >= 0 && mask&(1<<uint(p.opt)) == 0 {
				continue
			}
			p.opt = -1
			vp = append(vp, p)
		}
		result = append(result, vp)
	}
	return result
}

// ExpandVariations returns every concrete pattern a bracketed pattern
// describes, most complex first.
func ExpandVariations(pattern string) ([]string, error) {
	pieces, nOpt, err := parsePattern(pattern)
	if err != nil {
		return nil, err
	}
	var result []string
	for _, vp := range expandVariations(pieces, nOpt) {
		result = append(result, renderPattern(vp))
	}
	return result, nil
}

// defaultExpr is the regexp used for tokens with no other rule.
const defaultExpr = `[\w. \-]+`

// tokenExpr picks the regexp for one token.
func tokenExpr(p piece, policies Policies) string {
	switch {
	case p.expr != "":
		return p.expr
	case isPathToken(p.token):
		return `.+`
	case policies[p.token].NoUnderscore:
		return `[^_/]+`
	}
	return defaultExpr
}

// isPathToken says whether a token stands for an entire parent path.
func isPathToken(name string) bool {
	return strings.HasSuffix(name, "_path") || name == "work_dir"
}

// compile builds the anchored regexp for a variation.
func compile(pieces []piece, policies Policies) (*variation, error) {
	var b strings.Builder
	groups := make(map[string]string)
	b.WriteByte('^')
	for i, p := range pieces {
		if !p.isToken() {
			b.WriteString(regexp.QuoteMeta(p.literal))
			continue
		}
		group := "t" + strconv.Itoa(i)
		groups[group] = p.token
		b.WriteString("(?P<" + group + ">" + tokenExpr(p, policies) + ")")
	}
	b.WriteByte('$')
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, ErrBadPattern{Pattern: renderPattern(pieces), Reason: err.Error()}
	}
	return &variation{pieces: pieces, regexp: re, groups: groups}, nil
}
