// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Pini browses and edits a VFX production: jobs, assets and shots,
// their work dirs, work files and outputs.  It reads either the
// filesystem or a production tracker, through the same cache the
// DCC integrations use.
//
//	pini --jobs-root /jobs assets braveheart
//	pini --master tracker:http://tracker:8080/ works braveheart char.horse model
//	pini save --next /jobs/braveheart/assets/char/horse/model/horse_model_v001.ma
package main

import (
	"os"

	"github.com/diffeo/go-pini/backend"
	"github.com/diffeo/go-pini/cache"
	"github.com/diffeo/go-pini/config"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "pini"
	app.Usage = "browse and edit a VFX pipeline"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config",
			Usage:  "settings YAML file",
			EnvVar: "PINI_SETTINGS",
		},
		cli.StringFlag{
			Name:  "jobs-root",
			Usage: "directory containing every job",
		},
		cli.GenericFlag{
			Name:  "master",
			Usage: "pipeline master, disk or tracker:URL",
			Value: &backend.Backend{},
		},
		cli.GenericFlag{
			Name:  "snapshots",
			Usage: "tracker snapshot store, memory, files:DIR or postgres:URL",
			Value: &backend.Snapshots{},
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "logging level",
		},
		cli.BoolFlag{
			Name:  "force",
			Usage: "reread everything instead of using cache files",
		},
	}
	app.Commands = []cli.Command{
		jobsCommand,
		assetsCommand,
		shotsCommand,
		workDirsCommand,
		worksCommand,
		outputsCommand,
		publishesCommand,
		repsCommand,
		parseCommand,
		currentCommand,
		createJobCommand,
		createAssetTypeCommand,
		createEntityCommand,
		createWorkDirCommand,
		saveCommand,
		deleteCommand,
		serveMetricsCommand,
	}
	if err := app.Run(os.Args); err != nil {
		logrus.WithField("err", err).Fatal("pini failed")
	}
}

// settings loads the settings file and environment, then applies the
// global flags over them.
func settings(c *cli.Context) (config.Settings, error) {
	s, err := config.Load(c.GlobalString("config"), os.Getenv)
	if err != nil {
		return s, err
	}
	if c.GlobalIsSet("jobs-root") {
		s.JobsRoot = c.GlobalString("jobs-root")
	}
	if c.GlobalIsSet("master") {
		b := c.GlobalGeneric("master").(*backend.Backend)
		s.Master = b.Implementation
		s.TrackerURL = b.Address
	}
	if c.GlobalIsSet("snapshots") {
		s.Snapshots = c.GlobalGeneric("snapshots").(*backend.Snapshots).String()
	}
	if c.GlobalIsSet("log-level") {
		s.LogLevel = c.GlobalString("log-level")
	}
	if err = s.Validate(); err != nil {
		return s, err
	}
	s.ConfigureLogging()
	return s, nil
}

// open creates the cache for a command.
func open(c *cli.Context) (*cache.Root, error) {
	s, err := settings(c)
	if err != nil {
		return nil, err
	}
	return s.Open(nil)
}

// openAt creates the cache for a command working on a path, which
// becomes the current path.
func openAt(c *cli.Context, p string) (*cache.Root, error) {
	s, err := settings(c)
	if err != nil {
		return nil, err
	}
	s.CurPath = p
	return s.Open(nil)
}

// policy is the refresh policy the --force flag asks for.
func policy(c *cli.Context) cache.RefreshPolicy {
	if c.GlobalBool("force") {
		return cache.ForceReread
	}
	return cache.UseCache
}

// needArgs checks the number of positional arguments.
func needArgs(c *cli.Context, min, max int) error {
	if n := c.NArg(); n < min || n > max {
		return cli.NewExitError("usage: pini "+c.Command.Name+" "+c.Command.ArgsUsage, 2)
	}
	return nil
}
