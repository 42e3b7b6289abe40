// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipe

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// MetadataDir is the directory, next to a file, holding its sidecar
// metadata.
const MetadataDir = ".pini"

// Metadata is the free-form sidecar data stored with a work file or
// output: owner, mtime, size, notes, frame range, source work file,
// publish handler, content type and anything else a tool records.
type Metadata map[string]interface{}

// MetadataPath returns the sidecar metadata file for a path.
func MetadataPath(p string) string {
	dir, base := path.Split(cleanPath(p))
	return path.Join(dir, MetadataDir, base+".yml")
}

// String returns a metadata value as a string, or "" if it is absent.
func (m Metadata) String(key string) string {
	value, ok := m[key]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

// Has says whether a key is present.
func (m Metadata) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Merge returns a copy of m with every key of other set over it.
func (m Metadata) Merge(other Metadata) Metadata {
	result := make(Metadata, len(m)+len(other))
	for k, v := range m {
		result[k] = v
	}
	for k, v := range other {
		result[k] = v
	}
	return result
}

// ReadMetadata reads the sidecar metadata of a path.  A missing file
// is empty metadata.
func ReadMetadata(p string) (Metadata, error) {
	data, err := ioutil.ReadFile(MetadataPath(p))
	if os.IsNotExist(err) {
		return Metadata{}, nil
	}
	if err != nil {
		return nil, err
	}
	var raw interface{}
	if err = yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "metadata of %v", p)
	}
	if raw == nil {
		return Metadata{}, nil
	}
	clean, ok := stringKeyed(raw).(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("metadata of %v is not a mapping", p)
	}
	return Metadata(clean), nil
}

// WriteMetadata replaces the sidecar metadata of a path.  The file is
// written atomically under an advisory lock.
func WriteMetadata(p string, m Metadata) error {
	metaPath := MetadataPath(p)
	if err := os.MkdirAll(path.Dir(metaPath), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(map[string]interface{}(m))
	if err != nil {
		return err
	}
	return WriteLocked(metaPath, data)
}

// WriteLocked atomically replaces a file while holding an advisory
// lock on a ".lock" file next to it.
func WriteLocked(filename string, data []byte) error {
	lock := flock.New(filename + ".lock")
	if err := lock.Lock(); err != nil {
		return errors.Wrapf(err, "locking %v", filename)
	}
	defer lock.Unlock()
	return renameio.WriteFile(filename, data, 0644)
}
