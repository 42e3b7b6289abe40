// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package template

import (
	"fmt"
	"strings"
)

// ErrNoMatch is returned from Parse() when a path does not match any
// variation of a template.
type ErrNoMatch struct {
	Template string
	Path     string
}

func (err ErrNoMatch) Error() string {
	return fmt.Sprintf("Path %v does not match template %v", err.Path, err.Template)
}

// ErrInvalidToken is returned from Parse() when a path matches the
// shape of a template, but one of the extracted token values fails
// the job's validation policy.  Callers should treat it exactly like
// ErrNoMatch.
type ErrInvalidToken struct {
	Token  string
	Value  string
	Reason string
}

func (err ErrInvalidToken) Error() string {
	return fmt.Sprintf("Invalid %v %q (%v)", err.Token, err.Value, err.Reason)
}

// ErrMissingTokens is returned from Format() if a required token has
// no value.
type ErrMissingTokens struct {
	Template string
	Keys     []string
}

func (err ErrMissingTokens) Error() string {
	return fmt.Sprintf("Missing keys %v for template %v",
		strings.Join(err.Keys, ", "), err.Template)
}

// ErrNoToken is returned from CropToToken() if the template does not
// contain the requested token.
type ErrNoToken struct {
	Template string
	Token    string
}

func (err ErrNoToken) Error() string {
	return fmt.Sprintf("Template %v has no token %v", err.Template, err.Token)
}

// ErrNoTemplate is returned from Set.FindOne() and Set.Match() when
// nothing satisfies the query.
type ErrNoTemplate struct {
	Query Query
}

func (err ErrNoTemplate) Error() string {
	return fmt.Sprintf("No %v template found", err.Query)
}

// ErrAmbiguous is returned when more than one template remains after
// every precedence rule has been applied.
type ErrAmbiguous struct {
	Query     Query
	Path      string
	Templates []string
}

func (err ErrAmbiguous) Error() string {
	if err.Path != "" {
		return fmt.Sprintf("Path %v matches %d %v templates: %v",
			err.Path, len(err.Templates), err.Query,
			strings.Join(err.Templates, ", "))
	}
	return fmt.Sprintf("Found %d %v templates: %v", len(err.Templates),
		err.Query, strings.Join(err.Templates, ", "))
}

// ErrBadPattern is returned from New() if a pattern cannot be
// understood.
type ErrBadPattern struct {
	Pattern string
	Reason  string
}

func (err ErrBadPattern) Error() string {
	return fmt.Sprintf("Bad template pattern %q: %v", err.Pattern, err.Reason)
}

// IsNoMatch returns true if err means "this path is not of this
// template", as opposed to a real failure.
func IsNoMatch(err error) bool {
	switch err.(type) {
	case ErrNoMatch, ErrInvalidToken:
		return true
	}
	return false
}
