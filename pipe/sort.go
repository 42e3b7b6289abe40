// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipe

import (
	"strings"

	"github.com/facette/natsort"
)

// taskOrder is the pipeline order of tasks.  Unknown tasks sort after
// all of these.
var taskOrder = []string{
	"", "default",
	"cam", "mod", "model", "modelling", "scan", "photo",
	"rig", "rigging", "texture", "texturing",
	"lookdev", "shade", "mat", "surf",
	"previz", "layout", "trk", "track", "tracking",
	"anm", "anim", "animation", "cfx", "techanim", "crowd", "fx",
	"light", "lighting", "mattepainting", "paint", "roto", "comp",
	"nuke", "gfx", "test", "dev",
}

var taskPriority = func() map[string]int {
	result := make(map[string]int, len(taskOrder))
	for i, task := range taskOrder {
		result[task] = i
	}
	return result
}()

// TaskPriority returns the sort rank of a task, or -1 if the task is
// unknown.
func TaskPriority(task string) int {
	if rank, ok := taskPriority[strings.ToLower(task)]; ok {
		return rank
	}
	return -1
}

// LessTask orders tasks by pipeline order, then naturally.  A task
// label "step/task" sorts by step and then task.
func LessTask(a, b string) bool {
	if strings.Contains(a, "/") || strings.Contains(b, "/") {
		aStep, aTask := splitTaskLabel(a)
		bStep, bTask := splitTaskLabel(b)
		if aStep != bStep {
			return LessTask(aStep, bStep)
		}
		return LessTask(aTask, bTask)
	}
	ra, rb := TaskPriority(a), TaskPriority(b)
	switch {
	case ra >= 0 && rb >= 0 && ra != rb:
		return ra < rb
	case ra >= 0 && rb < 0:
		return true
	case ra < 0 && rb >= 0:
		return false
	}
	return natLess(a, b)
}

// natLess orders strings naturally.  Equal strings are not less than
// each other, which natsort.Compare alone does not promise.
func natLess(a, b string) bool {
	return a != b && natsort.Compare(a, b)
}

func splitTaskLabel(label string) (string, string) {
	if slash := strings.IndexByte(label, '/'); slash >= 0 {
		return label[:slash], label[slash+1:]
	}
	return "", label
}

// MapTask maps a task to its standard name, so that "ani", "anm" and
// "animation" are all "anim".  Unknown tasks map to themselves.
func MapTask(task string) string {
	switch strings.ToLower(task) {
	case "animation", "ani", "anm":
		return "anim"
	case "mod":
		return "model"
	case "surf", "mat":
		return "lookdev"
	case "lgt":
		return "lighting"
	case "trk":
		return "tracking"
	}
	return task
}

// LessTag orders tags with the default tag first, then naturally.
func LessTag(a, b string) bool {
	aDefault := a == "" || a == DefaultTag
	bDefault := b == "" || b == DefaultTag
	if aDefault != bDefault {
		return aDefault
	}
	return natLess(a, b)
}

// statusOrder ranks tracker review statuses, least approved first.
var statusOrder = []string{"cmpt", "apr", "lapr"}

// LessStatus orders review statuses.  Unknown statuses sort first.
func LessStatus(a, b string) bool {
	return indexOf(statusOrder, a) < indexOf(statusOrder, b)
}

func indexOf(values []string, value string) int {
	for i, v := range values {
		if v == value {
			return i
		}
	}
	return -1
}
