// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package snapshot

import (
	"io/ioutil"
	"os"
	"path"
	"strings"

	"github.com/diffeo/go-pini/pipe"
	"github.com/sirupsen/logrus"
)

// Ext is the file extension of file snapshots.
const Ext = ".cbor"

// Files is a Store that keeps each snapshot in its own file under a
// directory.  Keys may contain slashes, which become subdirectories.
// Files are replaced atomically under an advisory lock.
type Files struct {
	Dir string
}

// NewFiles creates a file store rooted at dir.
func NewFiles(dir string) *Files {
	return &Files{Dir: dir}
}

// Path returns the file holding the snapshot at key.
func (f *Files) Path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrBadKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return "", ErrBadKey
		}
	}
	return path.Join(f.Dir, key) + Ext, nil
}

// Get implements Store.
func (f *Files) Get(key string, out interface{}) (bool, error) {
	p, err := f.Path(key)
	if err != nil {
		return false, err
	}
	b, err := ioutil.ReadFile(p)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err == nil {
		err = Decode(b, out)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"path": p,
			"err":  err,
		}).Warn("ignoring unreadable snapshot")
		return false, nil
	}
	return true, nil
}

// Put implements Store.
func (f *Files) Put(key string, in interface{}) error {
	p, err := f.Path(key)
	if err != nil {
		return err
	}
	b, err := Encode(in)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(path.Dir(p), 0755); err != nil {
		return err
	}
	return pipe.WriteLocked(p, b)
}
