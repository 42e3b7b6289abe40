// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package template

import "strings"

// PassesFilter applies a filter expression to some text.  The filter
// is a whitespace-separated list of terms, compared case-insensitively
// as substrings.  A term starting with "-" rejects any text containing
// it; a term starting with "+" must be present; if there are any plain
// terms, at least one of them must be present.  An empty filter
// passes everything.
func PassesFilter(text, filter string) bool {
	text = strings.ToLower(text)
	var plain []string
	for _, term := range strings.Fields(strings.ToLower(filter)) {
		switch {
		case strings.HasPrefix(term, "-"):
			if len(term) > 1 && strings.Contains(text, term[1:]) {
				return false
			}
		case strings.HasPrefix(term, "+"):
			if !strings.Contains(text, term[1:]) {
				return false
			}
		default:
			plain = append(plain, term)
		}
	}
	if len(plain) == 0 {
		return true
	}
	for _, term := range plain {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
