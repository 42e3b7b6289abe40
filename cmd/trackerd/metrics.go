// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"time"

	"github.com/diffeo/go-pini/trackerserver"
	"github.com/prometheus/client_golang/prometheus"
)

var trackerRecords = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "pini",
		Subsystem: "tracker",
		Name:      "records",
		Help:      "Records held by the tracker, by entity type",
	},
	[]string{
		"entity_type",
	},
)

func init() {
	prometheus.MustRegister(trackerRecords)
}

func observe(db *trackerserver.DB, interval time.Duration) {
	for {
		observeOnce(db)
		time.Sleep(interval)
	}
}

func observeOnce(db *trackerserver.DB) {
	for entityType, count := range db.Summarize() {
		trackerRecords.With(prometheus.Labels{
			"entity_type": entityType,
		}).Set(float64(count))
	}
}
