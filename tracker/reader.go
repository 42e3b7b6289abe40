// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package tracker

// This file reads every record of an entity type in a project, one
// time window at a time, keeping snapshots of what does not change.

import (
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-pini/snapshot"
	"github.com/diffeo/go-pini/trackerdata"
	"github.com/sirupsen/logrus"
)

// globalScope is the snapshot key prefix of reads not limited to one
// project.
const globalScope = "_"

type reader struct {
	client    *Client
	snapshots snapshot.Store
	clock     clock.Clock
}

type recordSnapshot struct {
	Records []trackerdata.Record `codec:"records"`
}

var (
	newestFirst = []trackerdata.Order{
		{Field: trackerdata.FieldUpdatedAt, Direction: trackerdata.Desc},
		{Field: trackerdata.FieldID, Direction: trackerdata.Desc},
	}
	oldestFirst = []trackerdata.Order{
		{Field: trackerdata.FieldUpdatedAt, Direction: trackerdata.Asc},
		{Field: trackerdata.FieldID, Direction: trackerdata.Asc},
	}
)

// read returns every record of entityType matching filters, with
// later versions of a record replacing earlier ones.  scope names the
// job the filters select, or is empty for every job.
//
// If a window fails, the records read so far are returned without an
// error.
func (r *reader) read(entityType, scope string, filters []trackerdata.Filter) ([]trackerdata.Record, error) {
	if scope == "" {
		scope = globalScope
	}
	last, err := r.client.Search(entityType, trackerdata.SearchRequest{
		Filters: filters,
		Fields:  []string{trackerdata.FieldUpdatedAt},
		Order:   newestFirst,
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(last) == 0 {
		observeRead(entityType, sourceEmpty)
		return nil, nil
	}
	lastUpdated := last[0].String(trackerdata.FieldUpdatedAt)
	topKey := path.Join(scope, entityType, "top-"+keyTime(lastUpdated)+"-"+strconv.FormatInt(last[0].ID(), 10))

	var top recordSnapshot
	if r.getSnapshot(topKey, &top) {
		observeRead(entityType, sourceTop)
		return top.Records, nil
	}

	fields := logrus.Fields{
		"entity_type": entityType,
		"job":         scope,
		"last":        lastUpdated,
	}
	logrus.WithFields(fields).Info("rebuilding tracker read")
	records, complete, err := r.rebuild(entityType, scope, filters, lastUpdated, false)
	if err != nil || !complete {
		return records, err
	}
	if newest(records) != lastUpdated {
		logrus.WithFields(fields).Warn("tracker read inconsistent, rebuilding without window snapshots")
		records, complete, err = r.rebuild(entityType, scope, filters, lastUpdated, true)
		if err != nil || !complete {
			return records, err
		}
		if newest(records) != lastUpdated {
			return nil, ErrInconsistent{EntityType: entityType, Job: scope}
		}
	}

	if err := r.snapshots.Put(topKey, recordSnapshot{Records: records}); err != nil {
		logrus.WithFields(fields).WithError(err).Warn("could not save tracker snapshot")
	}
	return records, nil
}

// rebuild reads every window from the first record to now.  It
// returns false if a window failed.  If force is true, window
// snapshots are ignored and rewritten.
func (r *reader) rebuild(entityType, scope string, filters []trackerdata.Filter, lastUpdated string, force bool) ([]trackerdata.Record, bool, error) {
	first, err := r.client.Search(entityType, trackerdata.SearchRequest{
		Filters: filters,
		Fields:  []string{trackerdata.FieldUpdatedAt},
		Order:   oldestFirst,
		Limit:   1,
	})
	if err != nil {
		return nil, false, err
	}
	if len(first) == 0 {
		return nil, true, nil
	}
	firstTime, err := trackerdata.ParseTime(first[0].String(trackerdata.FieldUpdatedAt))
	if err != nil {
		return nil, false, err
	}

	now := r.clock.Now()
	if lastTime, err := trackerdata.ParseTime(lastUpdated); err == nil && lastTime.After(now) {
		now = lastTime
	}

	var all []trackerdata.Record
	for _, w := range BuildWindows(firstTime, now) {
		records, err := r.readWindow(entityType, scope, filters, w, now, force)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"entity_type": entityType,
				"job":         scope,
				"window":      w.Label,
				"err":         err,
			}).Warn("tracker window read failed, returning partial result")
			return dedupe(entityType, all), false, nil
		}
		all = append(all, records...)
	}
	return dedupe(entityType, all), true, nil
}

// readWindow returns the records updated within one window.  A
// complete window is read from its snapshot if there is one, and
// saved otherwise.
func (r *reader) readWindow(entityType, scope string, filters []trackerdata.Filter, w Window, now time.Time, force bool) ([]trackerdata.Record, error) {
	key := path.Join(scope, entityType, w.Label)
	complete := w.Complete(now)
	if complete && !force {
		var snap recordSnapshot
		if r.getSnapshot(key, &snap) {
			observeRead(entityType, sourceSnapshot)
			return snap.Records, nil
		}
	}

	windowFilters := make([]trackerdata.Filter, len(filters), len(filters)+1)
	copy(windowFilters, filters)
	windowFilters = append(windowFilters, trackerdata.Between(trackerdata.FieldUpdatedAt,
		trackerdata.FormatTime(w.Start), trackerdata.FormatTime(w.End)))
	records, err := r.client.Search(entityType, trackerdata.SearchRequest{
		Filters: windowFilters,
		Order:   oldestFirst,
	})
	if err != nil {
		return nil, err
	}
	observeRead(entityType, sourceTracker)

	if complete {
		if err := r.snapshots.Put(key, recordSnapshot{Records: records}); err != nil {
			logrus.WithFields(logrus.Fields{
				"key": key,
				"err": err,
			}).Warn("could not save tracker window snapshot")
		}
	}
	return records, nil
}

func (r *reader) getSnapshot(key string, out interface{}) bool {
	found, err := r.snapshots.Get(key, out)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"key": key,
			"err": err,
		}).Warn("could not read tracker snapshot")
		return false
	}
	return found
}

// dedupe keeps the last version of each record, in the position of
// its first.  Published files are keyed by path, so a later record
// for the same path replaces an earlier one; everything else is
// keyed by id.
func dedupe(entityType string, records []trackerdata.Record) []trackerdata.Record {
	index := make(map[string]int)
	var result []trackerdata.Record
	for _, rec := range records {
		var key string
		if entityType == trackerdata.PublishedFile {
			key = rec.String("path")
		} else {
			key = strconv.FormatInt(rec.ID(), 10)
		}
		if i, seen := index[key]; seen {
			result[i] = rec
			continue
		}
		index[key] = len(result)
		result = append(result, rec)
	}
	return result
}

// newest returns the latest update time of some records.
func newest(records []trackerdata.Record) string {
	var max string
	for _, rec := range records {
		if t := rec.String(trackerdata.FieldUpdatedAt); t > max {
			max = t
		}
	}
	return max
}

// keyTime makes a timestamp safe for use in a snapshot key.
func keyTime(t string) string {
	return strings.Map(func(c rune) rune {
		switch c {
		case ':', '.', '-', '+':
			return -1
		}
		return c
	}, t)
}
