// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipe

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotValid is returned when a path does not describe an object of
// the requested kind.  This is the normal result of probing a path
// and is never worth logging as an error.
type ErrNotValid struct {
	Kind Kind
	Path string
	// Err is the underlying template failure, if any.
	Err error
}

func (err ErrNotValid) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("not a valid %v: %v (%v)", err.Kind, err.Path, err.Err)
	}
	return fmt.Sprintf("not a valid %v: %v", err.Kind, err.Path)
}

// ErrAmbiguous is returned when a name or path matches more than one
// object and picking one would be a guess.
type ErrAmbiguous struct {
	Kind       Kind
	Match      string
	Candidates []string
}

func (err ErrAmbiguous) Error() string {
	return fmt.Sprintf("%q matches %d %vs: %v", err.Match, len(err.Candidates),
		err.Kind, strings.Join(err.Candidates, ", "))
}

// ErrNotFound is returned when a lookup by name finds nothing.
type ErrNotFound struct {
	Kind  Kind
	Match string
}

func (err ErrNotFound) Error() string {
	return fmt.Sprintf("no %v matching %q", err.Kind, err.Match)
}

// ErrOutsideRoot is returned when a path is not inside the jobs root.
type ErrOutsideRoot struct {
	Root string
	Path string
}

func (err ErrOutsideRoot) Error() string {
	return fmt.Sprintf("path %v is not inside jobs root %v", err.Path, err.Root)
}

// ErrNoVersions is returned when an operation needs an existing
// version and there is none.
var ErrNoVersions = errors.New("no versions found")

// ErrNoJobsRoot is returned by a Layout with an empty jobs root.
var ErrNoJobsRoot = errors.New("no jobs root configured")

// IsNotValid says whether an error is a probing failure rather than a
// real problem.
func IsNotValid(err error) bool {
	_, ok := err.(ErrNotValid)
	return ok
}
