// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package template

import (
	"strings"
	"unicode"
)

// TokenPolicy describes the values a single token may take.  The
// field tags match the keys of the "tokens" section of a job's
// config file.
type TokenPolicy struct {
	// Allowed, if non-empty, is the complete set of legal values.
	Allowed []string `mapstructure:"allowed" yaml:"allowed,omitempty"`

	// Whitelist values always pass, bypassing every other check.
	Whitelist []string `mapstructure:"whitelist" yaml:"whitelist,omitempty"`

	// Len lists legal value lengths.  It is only enforced if
	// StrictLen is set, but it is always used to zero-pad numeric
	// values when formatting.
	Len       []int `mapstructure:"len" yaml:"len,omitempty"`
	StrictLen bool  `mapstructure:"strict_len" yaml:"strict_len,omitempty"`

	IsDigit      bool `mapstructure:"isdigit" yaml:"isdigit,omitempty"`
	NoSpace      bool `mapstructure:"nospace" yaml:"nospace,omitempty"`
	NoUnderscore bool `mapstructure:"nounderscore" yaml:"nounderscore,omitempty"`

	// Filter is a PassesFilter() expression.
	Filter string `mapstructure:"filter" yaml:"filter,omitempty"`

	// Default is the value assumed when the token is absent.
	Default string `mapstructure:"default" yaml:"default,omitempty"`
}

// Policies maps token names to their validation policy.  A token
// without an entry accepts anything its pattern matches.
type Policies map[string]TokenPolicy

// Validate checks a single token value.  It returns nil or an
// ErrInvalidToken.
func (p Policies) Validate(token, value string) error {
	policy, present := p[token]
	if !present {
		return nil
	}
	return policy.validate(token, value)
}

func (policy TokenPolicy) validate(token, value string) error {
	invalid := func(reason string) error {
		return ErrInvalidToken{Token: token, Value: value, Reason: reason}
	}
	for _, v := range policy.Whitelist {
		if v == value {
			return nil
		}
	}
	if len(policy.Allowed) > 0 && !contains(policy.Allowed, value) {
		return invalid("not in allowed list")
	}
	if len(policy.Len) > 0 && policy.StrictLen {
		ok := false
		for _, n := range policy.Len {
			if len(value) == n {
				ok = true
				break
			}
		}
		if !ok {
			return invalid("bad length")
		}
	}
	if policy.IsDigit && !isDigits(value) {
		return invalid("not a number")
	}
	if policy.NoSpace && strings.ContainsAny(value, " \t") {
		return invalid("contains space")
	}
	if policy.NoUnderscore && strings.Contains(value, "_") {
		return invalid("contains underscore")
	}
	if policy.Filter != "" && !PassesFilter(value, policy.Filter) {
		return invalid("fails filter " + policy.Filter)
	}
	return nil
}

// pad zero-pads a numeric value to the policy's length, if it has
// exactly one fixed length.
func (p Policies) pad(token, value string) string {
	policy, present := p[token]
	if !present || len(policy.Len) != 1 || !isDigits(value) {
		return value
	}
	for len(value) < policy.Len[0] {
		value = "0" + value
	}
	return value
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
