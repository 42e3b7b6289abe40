// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"net/http"
	"time"

	"github.com/diffeo/go-pini/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var cacheObjects = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "pini",
		Subsystem: "cache",
		Name:      "objects",
		Help:      "Wrappers held by the cache",
	},
)

func init() {
	prometheus.MustRegister(cacheObjects)
}

var serveMetricsCommand = cli.Command{
	Name:  "serve-metrics",
	Usage: "walk the pipeline periodically and serve cache metrics",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "listen", Value: ":9480", Usage: "[ip]:port for HTTP"},
		cli.DurationFlag{Name: "interval", Value: 5 * time.Minute, Usage: "time between walks"},
	},
	Action: func(c *cli.Context) error {
		root, err := open(c)
		if err != nil {
			return err
		}
		go observe(root, c.Duration("interval"))
		http.Handle("/metrics", promhttp.Handler())
		logrus.WithField("listen", c.String("listen")).Info("serving metrics")
		return http.ListenAndServe(c.String("listen"), nil)
	},
}

// observe walks every job down to work files, forever.  Each walk
// after the first is answered from the cache until the cache is
// reset, every tenth walk.
func observe(root *cache.Root, interval time.Duration) {
	for n := 0; ; n++ {
		if n > 0 && n%10 == 0 {
			root.Reset()
		}
		if err := walk(root); err != nil {
			logrus.WithField("err", err).Warn("pipeline walk failed")
		}
		cacheObjects.Set(float64(root.Len()))
		time.Sleep(interval)
	}
}

func walk(root *cache.Root) error {
	jobs, err := root.FindJobs(cache.UseCache)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		entities, err := job.FindEntities(cache.UseCache)
		if err != nil {
			return err
		}
		for _, ety := range entities {
			wds, err := ety.FindWorkDirs(cache.UseCache)
			if err != nil {
				return err
			}
			for _, wd := range wds {
				if _, err := wd.FindWorks(cache.UseCache); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
