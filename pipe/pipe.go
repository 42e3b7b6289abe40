// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package pipe defines the plain pipeline objects: jobs, sequences,
// entities (assets and shots), work directories, work files and
// outputs.  Each object is built from a path by matching it against
// the job's templates; a path that matches nothing yields ErrNotValid.
//
// Objects in this package hold no caches and do not enumerate
// anything themselves.  Enumeration is done by a Store, and the cache
// package wraps both into a memoizing object graph.
package pipe

import (
	"path"
	"strings"
)

// Entity profiles.
const (
	AssetProfile = "asset"
	ShotProfile  = "shot"
)

// DefaultTag is the tag assumed for sorting when a work or output has
// none.
const DefaultTag = "main"

// Kind identifies the type of a pipeline object.
type Kind int

const (
	// KindNone is the zero Kind, used when a path matches nothing.
	KindNone Kind = iota
	KindJob
	KindSequence
	KindAsset
	KindShot
	KindWorkDir
	KindWork
	KindOutput
	KindOutputSeqDir
	// KindEntity is used in errors that could be either profile.
	KindEntity
)

var kindNames = map[Kind]string{
	KindNone:         "none",
	KindJob:          "job",
	KindSequence:     "sequence",
	KindAsset:        "asset",
	KindShot:         "shot",
	KindWorkDir:      "work dir",
	KindWork:         "work",
	KindOutput:       "output",
	KindOutputSeqDir: "output seq dir",
	KindEntity:       "entity",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ExtnToDCC maps work file extensions to the application that saves
// them.
var ExtnToDCC = map[string]string{
	"blend": "blender",
	"c4d":   "c4d",
	"hip":   "hou",
	"hiplc": "hou",
	"hipnc": "hou",
	"nk":    "nuke",
	"nknc":  "nuke",
	"ma":    "maya",
	"mb":    "maya",
	"spp":   "substance",
	"tgd":   "terragen",
}

// Extn returns the extension of a path without the dot.
func Extn(p string) string {
	return strings.TrimPrefix(path.Ext(p), ".")
}

// cleanPath normalizes a path to forward slashes with no trailing
// slash.
func cleanPath(p string) string {
	p = strings.Replace(p, "\\", "/", -1)
	if p == "" {
		return p
	}
	return path.Clean(p)
}

// copyData returns a shallow copy of a token map.
func copyData(data map[string]string) map[string]string {
	result := make(map[string]string, len(data))
	for k, v := range data {
		result[k] = v
	}
	return result
}
