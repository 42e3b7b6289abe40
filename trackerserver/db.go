// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package trackerserver

import (
	"io"
	"io/ioutil"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-pini/trackerdata"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// DB is an in-process, in-memory tracker database.  There is no
// persistence.  The entire database is behind a single lock.
//
// This is mostly intended as a reference implementation that tests
// can run a tracker client against.  It is tuned for correctness,
// not performance.
type DB struct {
	clock   clock.Clock
	sem     sync.Mutex
	records map[string][]trackerdata.Record
	nextID  int64
}

// NewDB creates an empty database that stamps records with times
// from clk.
func NewDB(clk clock.Clock) *DB {
	db := &DB{
		clock:   clk,
		records: make(map[string][]trackerdata.Record),
		nextID:  1,
	}
	for _, entityType := range trackerdata.EntityTypes {
		db.records[entityType] = nil
	}
	return db
}

func (db *DB) do(entityType string, f func() error) error {
	db.sem.Lock()
	defer db.sem.Unlock()
	if _, known := db.records[entityType]; !known {
		return trackerdata.ErrNotFound{Err: trackerdata.ErrUnknownEntityType{Type: entityType}}
	}
	return f()
}

// Create stores a copy of rec as a new record of entityType, with a
// fresh id and update time, and returns the stored copy.  Records
// other than projects must carry the id of an existing project.
func (db *DB) Create(entityType string, rec trackerdata.Record) (result trackerdata.Record, err error) {
	err = db.do(entityType, func() error {
		stored := make(trackerdata.Record, len(rec)+2)
		for k, v := range rec {
			stored[k] = v
		}
		stored[trackerdata.FieldUpdatedAt] = trackerdata.FormatTime(db.clock.Now())
		var err error
		result, err = db.insert(entityType, stored)
		return err
	})
	return
}

// insert adds rec, which must already be a private copy, assigning
// it an id.  Caller holds the lock.
func (db *DB) insert(entityType string, rec trackerdata.Record) (trackerdata.Record, error) {
	if entityType != trackerdata.Project && !db.hasProject(rec[trackerdata.FieldProjectID]) {
		return nil, trackerdata.ErrBadRequest{Err: trackerdata.ErrNoProject}
	}
	rec[trackerdata.FieldID] = db.nextID
	db.nextID++
	db.records[entityType] = append(db.records[entityType], rec)
	return copyRecord(rec, nil), nil
}

func (db *DB) hasProject(id interface{}) bool {
	for _, project := range db.records[trackerdata.Project] {
		if trackerdata.Equal(project[trackerdata.FieldID], id) {
			return true
		}
	}
	return false
}

// Search returns copies of the records of entityType matching req.
func (db *DB) Search(entityType string, req trackerdata.SearchRequest) (result []trackerdata.Record, err error) {
	err = db.do(entityType, func() error {
		matched := []trackerdata.Record{}
		for _, rec := range db.records[entityType] {
			ok, err := matchAll(req.Filters, rec)
			if err != nil {
				return err
			}
			if ok {
				matched = append(matched, rec)
			}
		}
		sortRecords(matched, req.Order)
		if req.Limit > 0 && len(matched) > req.Limit {
			matched = matched[:req.Limit]
		}
		result = make([]trackerdata.Record, len(matched))
		for i, rec := range matched {
			result[i] = copyRecord(rec, req.Fields)
		}
		return nil
	})
	return
}

// Summarize returns the number of records of each entity type.
func (db *DB) Summarize() map[string]int {
	db.sem.Lock()
	defer db.sem.Unlock()
	result := make(map[string]int, len(db.records))
	for entityType, records := range db.records {
		result[entityType] = len(records)
	}
	return result
}

// Fixture is the YAML form of a set of records to preload: entity
// types to lists of records.  Projects are loaded first.  Records
// keep any id and updated_at they carry; ids they do not carry are
// assigned, and a missing updated_at is the current time.
type Fixture map[string][]map[string]interface{}

// LoadFixture reads a YAML fixture and adds its records.
func (db *DB) LoadFixture(r io.Reader) error {
	bytes, err := ioutil.ReadAll(r)
	if err != nil {
		return err
	}
	var fixture Fixture
	if err = yaml.Unmarshal(bytes, &fixture); err != nil {
		return trackerdata.ErrBadRequest{Err: err}
	}

	types := make([]string, 0, len(fixture))
	for entityType := range fixture {
		types = append(types, entityType)
	}
	sort.Slice(types, func(i, j int) bool {
		if (types[i] == trackerdata.Project) != (types[j] == trackerdata.Project) {
			return types[i] == trackerdata.Project
		}
		return types[i] < types[j]
	})

	for _, entityType := range types {
		for _, data := range fixture[entityType] {
			err = db.do(entityType, func() error {
				return db.load(entityType, data)
			})
			if err != nil {
				return err
			}
		}
		logrus.WithFields(logrus.Fields{
			"entity_type": entityType,
			"count":       len(fixture[entityType]),
		}).Debug("loaded fixture records")
	}
	return nil
}

func (db *DB) load(entityType string, data map[string]interface{}) error {
	rec := make(trackerdata.Record, len(data)+2)
	for k, v := range data {
		rec[k] = v
	}
	switch stamp := rec[trackerdata.FieldUpdatedAt].(type) {
	case nil:
		rec[trackerdata.FieldUpdatedAt] = trackerdata.FormatTime(db.clock.Now())
	case time.Time:
		rec[trackerdata.FieldUpdatedAt] = trackerdata.FormatTime(stamp)
	case string:
		t, err := trackerdata.ParseTime(stamp)
		if err != nil {
			return trackerdata.ErrBadRequest{Err: err}
		}
		rec[trackerdata.FieldUpdatedAt] = trackerdata.FormatTime(t)
	}
	id, hasID := trackerdata.Int(rec[trackerdata.FieldID])
	if !hasID {
		_, err := db.insert(entityType, rec)
		return err
	}
	if entityType != trackerdata.Project && !db.hasProject(rec[trackerdata.FieldProjectID]) {
		return trackerdata.ErrBadRequest{Err: trackerdata.ErrNoProject}
	}
	rec[trackerdata.FieldID] = id
	if id >= db.nextID {
		db.nextID = id + 1
	}
	db.records[entityType] = append(db.records[entityType], rec)
	return nil
}

// copyRecord copies rec, keeping only fields if any are named.  The
// id is always kept.
func copyRecord(rec trackerdata.Record, fields []string) trackerdata.Record {
	if len(fields) == 0 {
		result := make(trackerdata.Record, len(rec))
		for k, v := range rec {
			result[k] = v
		}
		return result
	}
	result := trackerdata.Record{trackerdata.FieldID: rec[trackerdata.FieldID]}
	for _, field := range fields {
		if v, present := rec[field]; present {
			result[field] = v
		}
	}
	return result
}
