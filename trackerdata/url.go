// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package trackerdata

import (
	"encoding/base64"
	"strings"
)

// unreserved reports whether c may appear unescaped in a URL path
// segment (RFC 3986 section 2.3, plus ':').
func unreserved(c rune) bool {
	switch {
	case c == '-', c == '.', c == '_', c == ':',
		c >= 'a' && c <= 'z',
		c >= 'A' && c <= 'Z',
		c >= '0' && c <= '9':
		return true
	}
	return false
}

// MaybeEncodeName returns name unchanged if it can be inserted into a
// URL as-is.  Otherwise, including for the empty name and names that
// begin with -, it returns - followed by the URL-safe unpadded base64
// encoding of name.
func MaybeEncodeName(name string) string {
	if name != "" && name[0] != '-' &&
		strings.IndexFunc(name, func(c rune) bool { return !unreserved(c) }) < 0 {
		return name
	}
	return "-" + base64.RawURLEncoding.EncodeToString([]byte(name))
}

// MaybeDecodeName is the dual of MaybeEncodeName.  It returns an error
// if name begins with - and the remainder is not base64.
func MaybeDecodeName(name string) (string, error) {
	if !strings.HasPrefix(name, "-") {
		return name, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(name[1:])
	if err != nil {
		return "", err
	}
	return string(b), nil
}
