// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package trackerserver

import (
	"sort"

	"github.com/diffeo/go-pini/trackerdata"
)

func matchAll(filters []trackerdata.Filter, rec trackerdata.Record) (bool, error) {
	for _, f := range filters {
		ok, err := match(f, rec)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func match(f trackerdata.Filter, rec trackerdata.Record) (bool, error) {
	value := rec[f.Field]
	switch f.Op {
	case trackerdata.OpIs:
		return trackerdata.Equal(value, f.Value), nil
	case trackerdata.OpIsNot:
		return !trackerdata.Equal(value, f.Value), nil
	case trackerdata.OpIn:
		list, ok := f.Value.([]interface{})
		if !ok {
			return false, trackerdata.ErrBadRequest{Err: trackerdata.ErrBadFilter{Op: f.Op}}
		}
		for _, item := range list {
			if trackerdata.Equal(value, item) {
				return true, nil
			}
		}
		return false, nil
	case trackerdata.OpBetween:
		bounds, ok := f.Value.([]interface{})
		if !ok || len(bounds) != 2 {
			return false, trackerdata.ErrBadRequest{Err: trackerdata.ErrBadFilter{Op: f.Op}}
		}
		lo, ok := trackerdata.Compare(value, bounds[0])
		if !ok || lo < 0 {
			return false, nil
		}
		hi, ok := trackerdata.Compare(value, bounds[1])
		return ok && hi <= 0, nil
	}
	return false, trackerdata.ErrBadRequest{Err: trackerdata.ErrBadFilter{Op: f.Op}}
}

// sortRecords orders records by each key in turn.  Values that do not
// compare, including missing fields, sort last in either direction.
// Ties keep insertion order.
func sortRecords(records []trackerdata.Record, order []trackerdata.Order) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, o := range order {
			a, b := records[i][o.Field], records[j][o.Field]
			cmp, ok := trackerdata.Compare(a, b)
			if !ok {
				_, aOK := trackerdata.Compare(a, a)
				_, bOK := trackerdata.Compare(b, b)
				if aOK != bOK {
					return aOK
				}
				continue
			}
			if cmp == 0 {
				continue
			}
			if o.Direction == trackerdata.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}
