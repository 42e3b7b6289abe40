// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package tracker

import (
	"strconv"
	"time"
)

// Window is a range of record update times read in one query.  Both
// ends are inclusive.
type Window struct {
	// Label names the window in snapshot keys: "2025",
	// "2026-02" or "2026-03-08".
	Label string
	Start time.Time
	End   time.Time
}

// Complete returns true if no record updated after now can fall in
// the window.
func (w Window) Complete(now time.Time) bool {
	return !w.End.After(now)
}

func (w Window) String() string {
	return w.Label
}

// BuildWindows splits the time from first to now into windows: one
// per completed year, then one per completed month of the current
// year, then weeks from the start of the current month until now is
// covered.  Times are taken in UTC.
func BuildWindows(first, now time.Time) []Window {
	first = first.UTC()
	now = now.UTC()

	var windows []Window
	for year := first.Year(); year < now.Year(); year++ {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		windows = append(windows, Window{
			Label: strconv.Itoa(year),
			Start: start,
			End:   start.AddDate(1, 0, 0),
		})
	}

	month := time.January
	if first.Year() == now.Year() {
		month = first.Month()
	}
	for ; month < now.Month(); month++ {
		start := time.Date(now.Year(), month, 1, 0, 0, 0, 0, time.UTC)
		windows = append(windows, Window{
			Label: start.Format("2006-01"),
			Start: start,
			End:   start.AddDate(0, 1, 0),
		})
	}

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for {
		end := start.AddDate(0, 0, 7)
		windows = append(windows, Window{
			Label: start.Format("2006-01-02"),
			Start: start,
			End:   end,
		})
		if !end.Before(now) {
			break
		}
		start = end
	}
	return windows
}
