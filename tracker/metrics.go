// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
)

var windowReads = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "pini",
		Subsystem: "tracker",
		Name:      "window_reads_total",
		Help:      "Tracker record reads by entity type and where they came from",
	},
	[]string{
		"entity_type",
		"source",
	},
)

// Values of the "source" label.
const (
	sourceTracker  = "tracker"
	sourceSnapshot = "snapshot"
	sourceTop      = "top_snapshot"
	sourceEmpty    = "empty"
)

func init() {
	prometheus.MustRegister(windowReads)
}

func observeRead(entityType, source string) {
	windowReads.With(prometheus.Labels{
		"entity_type": entityType,
		"source":      source,
	}).Inc()
}
