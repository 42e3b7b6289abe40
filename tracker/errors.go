// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package tracker

import (
	"fmt"
)

// ErrInconsistent is returned when a rebuilt read still does not end
// at the tracker's last update time, even after ignoring every cached
// window.
type ErrInconsistent struct {
	EntityType string
	Job        string
}

func (err ErrInconsistent) Error() string {
	return fmt.Sprintf("inconsistent tracker read of %v in job %q", err.EntityType, err.Job)
}

// ErrNoProject is returned when a job has no tracker project.
type ErrNoProject struct {
	Job string
}

func (err ErrNoProject) Error() string {
	return fmt.Sprintf("no tracker project for job %q", err.Job)
}
