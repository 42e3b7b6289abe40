// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"fmt"
	"strings"

	"github.com/diffeo/go-pini/cache"
	"github.com/diffeo/go-pini/pipe"
	"github.com/urfave/cli"
)

var createJobCommand = cli.Command{
	Name:      "create-job",
	Usage:     "create a job from the built-in config",
	ArgsUsage: "NAME",
	Action: func(c *cli.Context) error {
		if err := needArgs(c, 1, 1); err != nil {
			return err
		}
		root, err := open(c)
		if err != nil {
			return err
		}
		job, err := root.CreateJob(c.Args().First())
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, job.Path)
		return nil
	},
}

var createAssetTypeCommand = cli.Command{
	Name:      "create-asset-type",
	Usage:     "create an asset type in a job",
	ArgsUsage: "JOB TYPE",
	Action: func(c *cli.Context) error {
		if err := needArgs(c, 2, 2); err != nil {
			return err
		}
		job, err := findJob(c)
		if err != nil {
			return err
		}
		return job.CreateAssetType(c.Args().Get(1))
	},
}

var createEntityCommand = cli.Command{
	Name:      "create-entity",
	Usage:     "create an asset, TYPE.NAME, or a shot, SEQUENCE/SHOT",
	ArgsUsage: "JOB LABEL",
	Action: func(c *cli.Context) error {
		if err := needArgs(c, 2, 2); err != nil {
			return err
		}
		job, err := findJob(c)
		if err != nil {
			return err
		}
		ety, err := toEntity(job, c.Args().Get(1))
		if err != nil {
			return err
		}
		if err = ety.Create(); err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, ety.Path)
		return nil
	},
}

var createWorkDirCommand = cli.Command{
	Name:      "create-work-dir",
	Usage:     "create a work dir, and its entity if needed",
	ArgsUsage: "JOB LABEL TASK",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "step", Usage: "tracker step of the task"},
	},
	Action: func(c *cli.Context) error {
		if err := needArgs(c, 3, 3); err != nil {
			return err
		}
		job, err := findJob(c)
		if err != nil {
			return err
		}
		ety, err := toEntity(job, c.Args().Get(1))
		if err != nil {
			return err
		}
		wd, err := ety.ToWorkDir(c.Args().Get(2), c.String("step"))
		if err != nil {
			return err
		}
		if err = wd.Create(); err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, wd.Path)
		return nil
	},
}

var saveCommand = cli.Command{
	Name:      "save",
	Usage:     "record that a work file was saved",
	ArgsUsage: "PATH",
	Flags: []cli.Flag{
		cli.BoolFlag{Name: "next", Usage: "save the version after the latest instead"},
		cli.StringFlag{Name: "notes", Usage: "notes to record with the save"},
	},
	Action: func(c *cli.Context) error {
		if err := needArgs(c, 1, 1); err != nil {
			return err
		}
		root, err := openAt(c, c.Args().First())
		if err != nil {
			return err
		}
		work, err := root.CurWork()
		if err != nil {
			return err
		}
		if c.Bool("next") {
			if work, err = work.FindNext(); err != nil {
				return err
			}
		}
		meta := pipe.Metadata{}
		if notes := c.String("notes"); notes != "" {
			meta["notes"] = notes
		}
		if work, err = work.Save(meta); err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, work.Path)
		return nil
	},
}

var deleteCommand = cli.Command{
	Name:      "delete",
	Usage:     "delete an output",
	ArgsUsage: "PATH",
	Action: func(c *cli.Context) error {
		if err := needArgs(c, 1, 1); err != nil {
			return err
		}
		root, err := openAt(c, c.Args().First())
		if err != nil {
			return err
		}
		out, err := root.CurOutput()
		if err != nil {
			return err
		}
		return out.Delete()
	},
}

// toEntity builds an asset from "type.name" or a shot from
// "sequence/shot".  It need not exist.
func toEntity(job *cache.Job, label string) (*cache.Entity, error) {
	if i := strings.Index(label, "/"); i >= 0 {
		return job.ToShot(label[:i], label[i+1:])
	}
	if i := strings.Index(label, "."); i >= 0 {
		return job.ToAsset(label[:i], label[i+1:])
	}
	return nil, cli.NewExitError(fmt.Sprintf("%q is neither TYPE.NAME nor SEQUENCE/SHOT", label), 2)
}
