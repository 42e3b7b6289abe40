// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package tracker

import (
	"github.com/diffeo/go-pini/trackerdata"
	"github.com/mitchellh/mapstructure"
)

// StatusOmitted marks a published file that has been deleted.
const StatusOmitted = "omt"

// Project is a tracker project, which is a job.
type Project struct {
	ID   int64  `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

// Asset is a tracker asset record.
type Asset struct {
	ID        int64  `mapstructure:"id"`
	ProjectID int64  `mapstructure:"project_id"`
	Code      string `mapstructure:"code"`
	AssetType string `mapstructure:"asset_type"`
}

// Sequence is a tracker sequence record.
type Sequence struct {
	ID        int64  `mapstructure:"id"`
	ProjectID int64  `mapstructure:"project_id"`
	Code      string `mapstructure:"code"`
}

// Shot is a tracker shot record.
type Shot struct {
	ID        int64  `mapstructure:"id"`
	ProjectID int64  `mapstructure:"project_id"`
	Sequence  string `mapstructure:"sequence"`
	Code      string `mapstructure:"code"`
}

// Task is a tracker task on an asset or shot.  Content is the task
// name and Step the pipeline step it belongs to.
type Task struct {
	ID         int64  `mapstructure:"id"`
	ProjectID  int64  `mapstructure:"project_id"`
	EntityType string `mapstructure:"entity_type"`
	EntityID   int64  `mapstructure:"entity_id"`
	Content    string `mapstructure:"content"`
	Step       string `mapstructure:"step"`
}

// PublishedFile is a tracker record of an output.
type PublishedFile struct {
	ID         int64  `mapstructure:"id"`
	ProjectID  int64  `mapstructure:"project_id"`
	EntityType string `mapstructure:"entity_type"`
	EntityID   int64  `mapstructure:"entity_id"`
	Path       string `mapstructure:"path"`
	Status     string `mapstructure:"status"`
	UpdatedAt  string `mapstructure:"updated_at"`
}

// Decode converts a record into one of the typed records in this
// package.  out must be a pointer.  Fields not in the typed record
// are ignored, and numbers and strings are converted as needed.
func Decode(rec trackerdata.Record, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(map[string]interface{}(rec))
}
