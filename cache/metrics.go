// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	lookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pini",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cached method calls by level, method and where the answer came from",
		},
		[]string{
			"level",
			"method",
			"source",
		},
	)

	cascadeRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pini",
			Subsystem: "cache",
			Name:      "cascades_total",
			Help:      "Collections reread after a creation or deletion",
		},
		[]string{
			"event",
			"target",
		},
	)

	resets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pini",
			Subsystem: "cache",
			Name:      "resets_total",
			Help:      "Full cache resets",
		},
	)
)

// Values of the "source" label.
const (
	sourceMemory  = "memory"
	sourceFile    = "file"
	sourceCompute = "compute"
)

func init() {
	prometheus.MustRegister(lookups)
	prometheus.MustRegister(cascadeRuns)
	prometheus.MustRegister(resets)
}

func observeLookup(level, method, source string) {
	lookups.With(prometheus.Labels{
		"level":  level,
		"method": method,
		"source": source,
	}).Inc()
}
