// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"io/ioutil"
	"os"
	"path"

	"github.com/diffeo/go-pini/pipe"
	"github.com/diffeo/go-pini/snapshot"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// RefreshPolicy says whether a cached method may answer from its
// cache.
type RefreshPolicy int

const (
	// UseCache answers from memory, or from the method's cache
	// file, if there is an answer there.
	UseCache RefreshPolicy = iota

	// ForceReread ignores any cached answer, recomputes it and
	// replaces the cached copies.
	ForceReread
)

func (p RefreshPolicy) String() string {
	if p == ForceReread {
		return "force"
	}
	return "cache"
}

// MaxPathLen is the longest cache file path that will be written.
// Methods of objects whose cache file would be longer are cached in
// memory only.
const MaxPathLen = 250

// method names a cached method for logs and metrics.
type method struct {
	level string
	name  string
}

func (m method) fields() logrus.Fields {
	return logrus.Fields{
		"level":  m.level,
		"method": m.name,
	}
}

// memo holds the result of one method of one object.  It is not
// safe for concurrent use.
type memo[T any] struct {
	valid bool
	value T
}

// get returns the cached result, calling compute if there is none or
// policy is ForceReread.  A failed computation leaves the memo as it
// was.
func (m *memo[T]) get(id method, policy RefreshPolicy, compute func() (T, error)) (T, error) {
	if m.valid && policy == UseCache {
		observeLookup(id.level, id.name, sourceMemory)
		return m.value, nil
	}
	value, err := compute()
	if err != nil {
		return value, err
	}
	observeLookup(id.level, id.name, sourceCompute)
	m.set(value)
	return value, nil
}

func (m *memo[T]) cached() (T, bool) {
	return m.value, m.valid
}

func (m *memo[T]) set(value T) {
	m.value = value
	m.valid = true
}

func (m *memo[T]) clear() {
	var zero T
	m.value = zero
	m.valid = false
}

// fileMemo is a memo that is also kept in a file, so that it
// outlives the process.  Files ending in ".yml" are YAML; anything
// else is CBOR.
type fileMemo[T any] struct {
	memo[T]
	root *Root

	// path is the cache file, or empty if it would be too long.
	path string

	// anchor is the directory of the cached object.  Nothing is
	// written for objects that do not exist on disk.
	anchor string
}

func newFileMemo[T any](root *Root, anchor, p string) fileMemo[T] {
	if len(p) > MaxPathLen {
		logrus.WithFields(logrus.Fields{
			"path": p,
			"len":  len(p),
		}).Debug("cache file path too long, caching in memory")
		p = ""
	}
	return fileMemo[T]{root: root, path: p, anchor: anchor}
}

// get returns the result from memory, then from the cache file, and
// computes it if neither has it or policy is ForceReread.  A
// computed result is written back to the file.
func (m *fileMemo[T]) get(id method, policy RefreshPolicy, compute func() (T, error)) (T, error) {
	if value, ok := m.cached(); ok && policy == UseCache {
		observeLookup(id.level, id.name, sourceMemory)
		return value, nil
	}
	if policy == UseCache {
		if value, ok := m.read(id); ok {
			observeLookup(id.level, id.name, sourceFile)
			m.set(value)
			return value, nil
		}
	}
	value, err := compute()
	if err != nil {
		return value, err
	}
	observeLookup(id.level, id.name, sourceCompute)
	m.set(value)
	m.write(id, value)
	return value, nil
}

// read loads the cache file.  A missing, expired or unreadable file
// is a miss.
func (m *fileMemo[T]) read(id method) (value T, ok bool) {
	if m.path == "" {
		return
	}
	info, err := os.Stat(m.path)
	if err != nil {
		return
	}
	if maxAge := m.root.maxAge; maxAge > 0 && m.root.clock.Now().Sub(info.ModTime()) > maxAge {
		logrus.WithFields(id.fields()).WithField("path", m.path).Debug("cache file expired")
		return
	}
	b, err := ioutil.ReadFile(m.path)
	if err == nil {
		err = decodeFile(m.path, b, &value)
	}
	if err != nil {
		logrus.WithFields(id.fields()).WithFields(logrus.Fields{
			"path": m.path,
			"err":  err,
		}).Warn("ignoring unreadable cache file")
		var zero T
		return zero, false
	}
	return value, true
}

// write saves the cache file.  Failing to is only worth a warning.
func (m *fileMemo[T]) write(id method, value T) {
	if m.path == "" {
		return
	}
	if _, err := os.Stat(m.anchor); err != nil {
		logrus.WithFields(id.fields()).WithField("dir", m.anchor).Debug("not writing cache file for missing object")
		return
	}
	b, err := encodeFile(m.path, value)
	if err == nil {
		err = os.MkdirAll(path.Dir(m.path), 0755)
	}
	if err == nil {
		err = pipe.WriteLocked(m.path, b)
	}
	if err != nil {
		logrus.WithFields(id.fields()).WithFields(logrus.Fields{
			"path": m.path,
			"err":  err,
		}).Warn("could not write cache file")
	}
}

func isYAML(p string) bool {
	return path.Ext(p) == ".yml"
}

func encodeFile(p string, value interface{}) ([]byte, error) {
	if isYAML(p) {
		return yaml.Marshal(value)
	}
	return snapshot.Encode(value)
}

func decodeFile(p string, b []byte, out interface{}) error {
	var err error
	if isYAML(p) {
		err = yaml.Unmarshal(b, out)
	} else {
		err = snapshot.Decode(b, out)
	}
	return errors.Wrapf(err, "decoding %v", path.Base(p))
}
