// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package tracker provides a pipe.Store that lists jobs, entities,
// work dirs and outputs from a production tracker instead of the
// filesystem.  Job configs and work files still live on disk, and
// everything created through the store is created on disk as well as
// recorded in the tracker.
//
// Records are read a time window at a time; see BuildWindows.
// Windows that can no longer change are kept in a snapshot.Store, as
// is each whole result keyed by the tracker's last update, so an
// unchanged tracker costs one small query per read.
//
// Every record is converted to a path through the job's templates
// and parsed back; records that do not make a valid path are dropped.
package tracker

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-pini/disk"
	"github.com/diffeo/go-pini/pipe"
	"github.com/diffeo/go-pini/snapshot"
	"github.com/diffeo/go-pini/trackerdata"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Master is the name of this store.
const Master = "tracker"

// Options configures a tracker store.
type Options struct {
	// Clock is the time source for windows.  If nil, the real
	// clock is used.
	Clock clock.Clock

	// Snapshots holds window snapshots.  If nil, they are kept in
	// memory.
	Snapshots snapshot.Store

	// PathMap remaps paths read from the tracker.
	PathMap pipe.PathMap
}

// Store is the tracker pipe.Store.  Methods it does not override are
// served from disk.
type Store struct {
	*disk.Store
	client  *Client
	reader  *reader
	pathMap pipe.PathMap

	sem      sync.Mutex
	projects map[string]int64
}

// New creates a tracker store.
func New(layout pipe.Layout, client *Client, options Options) *Store {
	clk := options.Clock
	if clk == nil {
		clk = clock.New()
	}
	snapshots := options.Snapshots
	if snapshots == nil {
		snapshots = snapshot.NewMemory()
	}
	return &Store{
		Store:  disk.New(layout),
		client: client,
		reader: &reader{
			client:    client,
			snapshots: snapshots,
			clock:     clk,
		},
		pathMap:  options.PathMap,
		projects: make(map[string]int64),
	}
}

// Master returns "tracker".
func (s *Store) Master() string {
	return Master
}

// Client returns the tracker client.
func (s *Store) Client() *Client {
	return s.client
}

// ReadJobs returns the jobs of every tracker project that has a job
// directory and config on disk.
func (s *Store) ReadJobs() ([]*pipe.Job, error) {
	root := s.Layout().Root()
	if root == "" {
		return nil, pipe.ErrNoJobsRoot
	}
	records, err := s.reader.read(trackerdata.Project, "", nil)
	if err != nil {
		return nil, err
	}
	var jobs []*pipe.Job
	for _, rec := range records {
		var project Project
		if err := Decode(rec, &project); err != nil || project.Name == "" {
			dropped(trackerdata.Project, rec, err)
			continue
		}
		jobPath := root + "/" + project.Name
		if !jobOnDisk(jobPath, s.Layout().ConfigFile(jobPath)) {
			logrus.WithField("job", project.Name).Debug("skipping tracker project not on disk")
			continue
		}
		job, err := s.Layout().OpenJob(jobPath)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"job": project.Name,
				"err": err,
			}).Warn("skipping tracker project without a job config")
			continue
		}
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Less(jobs[j]) })
	return jobs, nil
}

// jobOnDisk returns true if jobPath is a directory and its config file
// exists.
func jobOnDisk(jobPath, configFile string) bool {
	info, err := os.Stat(jobPath)
	if err != nil || !info.IsDir() {
		return false
	}
	_, err = os.Stat(configFile)
	return err == nil
}

// CreateJob sets up a job on disk and creates its project.
func (s *Store) CreateJob(name string) (*pipe.Job, error) {
	job, err := s.Store.CreateJob(name)
	if err != nil {
		return nil, err
	}
	if _, err = s.projectID(job.Name, true); err != nil {
		return nil, err
	}
	return job, nil
}

// projectID returns the id of a job's project, creating the project
// if create is true.
func (s *Store) projectID(name string, create bool) (int64, error) {
	s.sem.Lock()
	id, known := s.projects[name]
	s.sem.Unlock()
	if known {
		return id, nil
	}

	records, err := s.client.Search(trackerdata.Project, trackerdata.SearchRequest{
		Filters: []trackerdata.Filter{trackerdata.Is("name", name)},
		Order:   oldestFirst,
		Limit:   1,
	})
	if err != nil {
		return 0, err
	}
	switch {
	case len(records) > 0:
		id = records[0].ID()
	case create:
		rec, err := s.client.Create(trackerdata.Project, trackerdata.Record{"name": name})
		if err != nil {
			return 0, errors.Wrapf(err, "creating project %v", name)
		}
		id = rec.ID()
	default:
		return 0, ErrNoProject{Job: name}
	}

	s.sem.Lock()
	s.projects[name] = id
	s.sem.Unlock()
	return id, nil
}

// readJob reads the records of one type in a job's project.  A job
// with no project has no records.
func (s *Store) readJob(job *pipe.Job, entityType string) ([]trackerdata.Record, error) {
	id, err := s.projectID(job.Name, false)
	if _, missing := err.(ErrNoProject); missing {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.reader.read(entityType, job.Name, []trackerdata.Filter{
		trackerdata.Is(trackerdata.FieldProjectID, id),
	})
}

// ReadAssetTypes returns the asset types of the job's assets and any
// asset type directories on disk.
func (s *Store) ReadAssetTypes(job *pipe.Job) ([]string, error) {
	assets, err := s.ReadAssets(job)
	if err != nil {
		return nil, err
	}
	onDisk, err := s.Store.ReadAssetTypes(job)
	if err != nil {
		return nil, err
	}
	types := disk.AssetTypes(assets)
	for _, t := range onDisk {
		if !contains(types, t) {
			types = append(types, t)
		}
	}
	sort.Strings(types)
	return types, nil
}

// ReadAssets returns the assets of a job.
func (s *Store) ReadAssets(job *pipe.Job) ([]*pipe.Entity, error) {
	records, err := s.readJob(job, trackerdata.Asset)
	if err != nil {
		return nil, err
	}
	var result []*pipe.Entity
	for _, rec := range records {
		var asset Asset
		if err := Decode(rec, &asset); err != nil {
			dropped(trackerdata.Asset, rec, err)
			continue
		}
		ety, err := job.ToAsset(asset.AssetType, asset.Code)
		if err != nil {
			dropped(trackerdata.Asset, rec, err)
			continue
		}
		result = append(result, ety)
	}
	return sortEntities(result), nil
}

// ReadSequences returns the sequences of a job.
func (s *Store) ReadSequences(job *pipe.Job) ([]*pipe.Sequence, error) {
	records, err := s.readJob(job, trackerdata.Sequence)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var result []*pipe.Sequence
	for _, rec := range records {
		var seq Sequence
		if err := Decode(rec, &seq); err != nil || seen[seq.Code] {
			dropped(trackerdata.Sequence, rec, err)
			continue
		}
		found, err := job.ToSequence(seq.Code)
		if err != nil {
			dropped(trackerdata.Sequence, rec, err)
			continue
		}
		seen[seq.Code] = true
		result = append(result, found)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Less(result[j]) })
	return result, nil
}

// ReadShots returns the shots of a job, or of one sequence.
func (s *Store) ReadShots(job *pipe.Job, seq *pipe.Sequence) ([]*pipe.Entity, error) {
	records, err := s.readJob(job, trackerdata.Shot)
	if err != nil {
		return nil, err
	}
	var result []*pipe.Entity
	for _, rec := range records {
		var shot Shot
		if err := Decode(rec, &shot); err != nil {
			dropped(trackerdata.Shot, rec, err)
			continue
		}
		if seq != nil && shot.Sequence != seq.Name {
			continue
		}
		ety, err := job.ToShot(shot.Sequence, shot.Code)
		if err != nil {
			dropped(trackerdata.Shot, rec, err)
			continue
		}
		result = append(result, ety)
	}
	return sortEntities(result), nil
}

func sortEntities(entities []*pipe.Entity) []*pipe.Entity {
	seen := make(map[string]bool)
	result := entities[:0]
	for _, ety := range entities {
		if !seen[ety.Path] {
			seen[ety.Path] = true
			result = append(result, ety)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Less(result[j]) })
	return result
}

// entityType returns the tracker entity type of an asset or shot.
func entityType(ety *pipe.Entity) string {
	if ety.Kind() == pipe.KindAsset {
		return trackerdata.Asset
	}
	return trackerdata.Shot
}

// entityID finds the record id of an entity.  It returns 0 if the
// entity has no record.
func (s *Store) entityID(ety *pipe.Entity) (int64, error) {
	typ := entityType(ety)
	records, err := s.readJob(ety.Job, typ)
	if err != nil {
		return 0, err
	}
	for _, rec := range records {
		if rec.String("code") != ety.Name {
			continue
		}
		if typ == trackerdata.Asset && rec.String("asset_type") == ety.AssetType {
			return rec.ID(), nil
		}
		if typ == trackerdata.Shot && rec.String("sequence") == ety.Sequence {
			return rec.ID(), nil
		}
	}
	return 0, nil
}

// entityRecords reads the records of one type that belong to an
// entity.
func (s *Store) entityRecords(ety *pipe.Entity, recordType string) ([]trackerdata.Record, error) {
	id, err := s.entityID(ety)
	if err != nil || id == 0 {
		return nil, err
	}
	records, err := s.readJob(ety.Job, recordType)
	if err != nil {
		return nil, err
	}
	typ := entityType(ety)
	var result []trackerdata.Record
	for _, rec := range records {
		if rec.String("entity_type") != typ {
			continue
		}
		if recID, _ := trackerdata.Int(rec["entity_id"]); recID == id {
			result = append(result, rec)
		}
	}
	return result, nil
}

// ReadWorkDirs returns the work dirs of an entity's tasks.  Tasks
// with no step are skipped.
func (s *Store) ReadWorkDirs(ety *pipe.Entity) ([]*pipe.WorkDir, error) {
	records, err := s.entityRecords(ety, trackerdata.Task)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var result []*pipe.WorkDir
	for _, rec := range records {
		var task Task
		if err := Decode(rec, &task); err != nil {
			dropped(trackerdata.Task, rec, err)
			continue
		}
		if task.Step == "" {
			dropped(trackerdata.Task, rec, nil)
			continue
		}
		wd, err := ety.ToWorkDir(task.Content, task.Step)
		if err != nil {
			dropped(trackerdata.Task, rec, err)
			continue
		}
		if !seen[wd.Path] {
			seen[wd.Path] = true
			result = append(result, wd)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Less(result[j]) })
	return result, nil
}

// publishedFiles returns the live published files of an entity, with
// their paths mapped.
func (s *Store) publishedFiles(ety *pipe.Entity) ([]PublishedFile, error) {
	records, err := s.entityRecords(ety, trackerdata.PublishedFile)
	if err != nil {
		return nil, err
	}
	var result []PublishedFile
	for _, rec := range records {
		var file PublishedFile
		if err := Decode(rec, &file); err != nil || file.Path == "" {
			dropped(trackerdata.PublishedFile, rec, err)
			continue
		}
		if file.Status == StatusOmitted {
			continue
		}
		file.Path = s.pathMap.Apply(file.Path)
		result = append(result, file)
	}
	return result, nil
}

// ReadOutputs returns the published files of an entity that are not
// in a work dir.  Sequences and videos are included.
func (s *Store) ReadOutputs(ety *pipe.Entity) ([]*pipe.Output, error) {
	files, err := s.publishedFiles(ety)
	if err != nil {
		return nil, err
	}
	var result []*pipe.Output
	for _, file := range files {
		out, err := pipe.NewOutput(ety, nil, file.Path)
		if err != nil {
			dropped(trackerdata.PublishedFile, trackerdata.Record{"path": file.Path}, err)
			continue
		}
		if out.WorkDir != nil {
			continue
		}
		out.Status = file.Status
		result = append(result, out)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Less(result[j]) })
	return result, nil
}

// ReadWorkDirOutputs returns the published files in a work dir.
func (s *Store) ReadWorkDirOutputs(wd *pipe.WorkDir) ([]*pipe.Output, error) {
	files, err := s.publishedFiles(wd.Entity)
	if err != nil {
		return nil, err
	}
	var result []*pipe.Output
	for _, file := range files {
		if !strings.HasPrefix(file.Path, wd.Path+"/") {
			continue
		}
		out, err := pipe.NewOutput(wd.Entity, wd, file.Path)
		if err != nil || out.WorkDir == nil {
			dropped(trackerdata.PublishedFile, trackerdata.Record{"path": file.Path}, err)
			continue
		}
		out.Status = file.Status
		result = append(result, out)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Less(result[j]) })
	return result, nil
}

// ReadOutputSeqDirs returns nil.  The tracker lists sequences and
// videos with the other outputs.
func (s *Store) ReadOutputSeqDirs(ety *pipe.Entity) ([]*pipe.OutputSeqDir, error) {
	return nil, nil
}

// ReadSeqDirOutputs returns nil; see ReadOutputSeqDirs.
func (s *Store) ReadSeqDirOutputs(dir *pipe.OutputSeqDir) ([]*pipe.Output, error) {
	return nil, nil
}

// CreateEntity creates an entity directory and its record.  A shot's
// sequence record is created too.
func (s *Store) CreateEntity(ety *pipe.Entity) error {
	if err := s.Store.CreateEntity(ety); err != nil {
		return err
	}
	_, err := s.ensureEntity(ety)
	return err
}

// ensureEntity returns the record id of an entity, creating the
// record if there is none.
func (s *Store) ensureEntity(ety *pipe.Entity) (int64, error) {
	projectID, err := s.projectID(ety.Job.Name, true)
	if err != nil {
		return 0, err
	}
	id, err := s.entityID(ety)
	if err != nil || id != 0 {
		return id, err
	}

	rec := trackerdata.Record{
		trackerdata.FieldProjectID: projectID,
		"code":                     ety.Name,
	}
	if ety.Kind() == pipe.KindAsset {
		rec["asset_type"] = ety.AssetType
	} else {
		rec["sequence"] = ety.Sequence
		if err = s.ensureSequence(ety.Job, projectID, ety.Sequence); err != nil {
			return 0, err
		}
	}
	logrus.WithFields(logrus.Fields{
		"entity": ety.String(),
	}).Info("creating tracker entity")
	created, err := s.client.Create(entityType(ety), rec)
	if err != nil {
		return 0, errors.Wrapf(err, "creating %v", ety)
	}
	return created.ID(), nil
}

func (s *Store) ensureSequence(job *pipe.Job, projectID int64, name string) error {
	if name == "" {
		return nil
	}
	records, err := s.readJob(job, trackerdata.Sequence)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if rec.String("code") == name {
			return nil
		}
	}
	_, err = s.client.Create(trackerdata.Sequence, trackerdata.Record{
		trackerdata.FieldProjectID: projectID,
		"code":                     name,
	})
	return errors.Wrapf(err, "creating sequence %v", name)
}

// CreateWorkDir creates a work dir and its task.  A work dir without
// a step gets the standard name of its task as its step.
func (s *Store) CreateWorkDir(wd *pipe.WorkDir) error {
	if err := s.Store.CreateWorkDir(wd); err != nil {
		return err
	}
	ety := wd.Entity
	entityID, err := s.ensureEntity(ety)
	if err != nil {
		return err
	}
	projectID, err := s.projectID(ety.Job.Name, true)
	if err != nil {
		return err
	}
	tasks, err := s.entityRecords(ety, trackerdata.Task)
	if err != nil {
		return err
	}
	for _, rec := range tasks {
		if rec.String("content") == wd.Task {
			return nil
		}
	}
	step := wd.Step
	if step == "" {
		step = pipe.MapTask(wd.Task)
	}
	_, err = s.client.Create(trackerdata.Task, trackerdata.Record{
		trackerdata.FieldProjectID: projectID,
		"entity_type":              entityType(ety),
		"entity_id":                entityID,
		"content":                  wd.Task,
		"step":                     step,
	})
	return errors.Wrapf(err, "creating task for %v", wd)
}

// RegisterOutput checks that an output exists on disk and records it
// as a published file.
func (s *Store) RegisterOutput(o *pipe.Output) error {
	if err := s.Store.RegisterOutput(o); err != nil {
		return err
	}
	files, err := s.publishedFiles(o.Entity)
	if err != nil {
		return err
	}
	for _, file := range files {
		if file.Path == o.Path {
			return nil
		}
	}
	return s.publish(o, o.Status)
}

// DeleteOutput removes an output from disk and marks its published
// file omitted.
func (s *Store) DeleteOutput(o *pipe.Output) error {
	if err := s.Store.DeleteOutput(o); err != nil {
		return err
	}
	return s.publish(o, StatusOmitted)
}

func (s *Store) publish(o *pipe.Output, status string) error {
	entityID, err := s.ensureEntity(o.Entity)
	if err != nil {
		return err
	}
	projectID, err := s.projectID(o.Entity.Job.Name, true)
	if err != nil {
		return err
	}
	rec := trackerdata.Record{
		trackerdata.FieldProjectID: projectID,
		"entity_type":              entityType(o.Entity),
		"entity_id":                entityID,
		"path":                     o.Path,
	}
	if status != "" {
		rec["status"] = status
	}
	_, err = s.client.Create(trackerdata.PublishedFile, rec)
	return errors.Wrapf(err, "publishing %v", o)
}

func dropped(entityType string, rec trackerdata.Record, err error) {
	logrus.WithFields(logrus.Fields{
		"entity_type": entityType,
		"id":          rec.ID(),
		"path":        rec.String("path"),
		"err":         err,
	}).Debug("dropping tracker record")
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
