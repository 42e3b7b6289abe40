// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Trackerd serves an in-memory production tracker over HTTP.  It
// speaks the protocol the pini tracker store expects, and is meant
// for local work and integration tests rather than production.
//
//	trackerd --listen :8080 --fixture braveheart.yml
package main

import (
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-pini/trackerserver"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "trackerd"
	app.Usage = "serve a fake production tracker"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "listen",
			Value: ":8080",
			Usage: "[ip]:port for HTTP",
		},
		cli.StringFlag{
			Name:  "fixture",
			Usage: "YAML file of records to load at startup",
		},
		cli.DurationFlag{
			Name:  "summary-interval",
			Value: 30 * time.Second,
			Usage: "time between record count updates",
		},
		cli.BoolFlag{
			Name:  "log-requests",
			Usage: "log all requests",
		},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		logrus.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("trackerd failed")
	}
}

func run(c *cli.Context) error {
	db := trackerserver.NewDB(clock.New())
	if fixture := c.String("fixture"); fixture != "" {
		f, err := os.Open(fixture)
		if err != nil {
			return err
		}
		err = db.LoadFixture(f)
		f.Close()
		if err != nil {
			return err
		}
		logrus.WithField("fixture", fixture).Info("loaded fixture")
	}

	go observe(db, c.Duration("summary-interval"))
	h := &HTTP{db: db, laddr: c.String("listen"), logRequests: c.Bool("log-requests")}
	return h.Serve()
}
