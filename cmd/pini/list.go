// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"fmt"
	"strconv"

	"github.com/diffeo/go-pini/cache"
	"github.com/diffeo/go-pini/pipe"
	"github.com/urfave/cli"
)

var jobsCommand = cli.Command{
	Name:  "jobs",
	Usage: "list jobs",
	Action: func(c *cli.Context) error {
		root, err := open(c)
		if err != nil {
			return err
		}
		jobs, err := root.FindJobs(policy(c))
		if err != nil {
			return err
		}
		rows := make([][]string, len(jobs))
		for i, job := range jobs {
			rows[i] = []string{job.Name, job.Config.Name, job.Path}
		}
		printTable(c, []string{"Job", "Config", "Path"}, rows)
		return nil
	},
}

var assetsCommand = cli.Command{
	Name:      "assets",
	Usage:     "list the assets of a job",
	ArgsUsage: "JOB [TYPE]",
	Action: func(c *cli.Context) error {
		if err := needArgs(c, 1, 2); err != nil {
			return err
		}
		job, err := findJob(c)
		if err != nil {
			return err
		}
		assets, err := job.FindAssets(c.Args().Get(1), policy(c))
		if err != nil {
			return err
		}
		printEntities(c, assets)
		return nil
	},
}

var shotsCommand = cli.Command{
	Name:      "shots",
	Usage:     "list the shots of a job",
	ArgsUsage: "JOB [SEQUENCE]",
	Action: func(c *cli.Context) error {
		if err := needArgs(c, 1, 2); err != nil {
			return err
		}
		job, err := findJob(c)
		if err != nil {
			return err
		}
		var shots []*cache.Entity
		if name := c.Args().Get(1); name != "" {
			var seq *cache.Sequence
			if seq, err = job.ObtSequence(name); err == nil {
				shots, err = seq.FindShots(policy(c))
			}
		} else {
			shots, err = job.FindShots(policy(c))
		}
		if err != nil {
			return err
		}
		printEntities(c, shots)
		return nil
	},
}

var workDirsCommand = cli.Command{
	Name:      "work-dirs",
	Usage:     "list the work dirs of an asset or shot",
	ArgsUsage: "JOB ENTITY",
	Action: func(c *cli.Context) error {
		if err := needArgs(c, 2, 2); err != nil {
			return err
		}
		ety, err := findEntity(c)
		if err != nil {
			return err
		}
		wds, err := ety.FindWorkDirs(policy(c))
		if err != nil {
			return err
		}
		rows := make([][]string, len(wds))
		for i, wd := range wds {
			has, err := wd.HasWorks(cache.UseCache)
			if err != nil {
				return err
			}
			rows[i] = []string{wd.TaskLabel(), yesNo(has), wd.Path}
		}
		printTable(c, []string{"Task", "Works", "Path"}, rows)
		return nil
	},
}

var worksCommand = cli.Command{
	Name:      "works",
	Usage:     "list the work files in a work dir",
	ArgsUsage: "JOB ENTITY TASK",
	Action: func(c *cli.Context) error {
		if err := needArgs(c, 3, 3); err != nil {
			return err
		}
		wd, err := findWorkDir(c)
		if err != nil {
			return err
		}
		works, err := wd.FindWorks(policy(c))
		if err != nil {
			return err
		}
		rows := make([][]string, len(works))
		for i, work := range works {
			meta, err := work.Metadata(cache.UseCache)
			if err != nil {
				return err
			}
			rows[i] = []string{
				work.Filename(),
				strconv.Itoa(work.VerN),
				work.Tag,
				meta.String("owner"),
				size(meta["size"]),
				age(meta["mtime"]),
				meta.String("notes"),
			}
		}
		printTable(c, []string{"File", "Ver", "Tag", "Owner", "Size", "Saved", "Notes"}, rows, 2, 5)
		return nil
	},
}

var outputsCommand = cli.Command{
	Name:      "outputs",
	Usage:     "list the outputs of an asset or shot, or of one of its work dirs",
	ArgsUsage: "JOB ENTITY [TASK]",
	Action: func(c *cli.Context) error {
		if err := needArgs(c, 2, 3); err != nil {
			return err
		}
		var outs []*cache.Output
		if c.NArg() == 3 {
			wd, err := findWorkDir(c)
			if err != nil {
				return err
			}
			if outs, err = wd.FindOutputs(policy(c)); err != nil {
				return err
			}
		} else {
			ety, err := findEntity(c)
			if err != nil {
				return err
			}
			if outs, err = ety.FindOutputs(policy(c)); err != nil {
				return err
			}
		}
		rows := make([][]string, len(outs))
		for i, out := range outs {
			frames, err := out.Frames(cache.UseCache)
			if err != nil {
				return err
			}
			count := ""
			if out.Kind == pipe.OutputSeq {
				count = strconv.Itoa(len(frames))
			}
			rows[i] = []string{
				out.Type,
				out.Task,
				out.Ver,
				yesNo(out.IsLatest()),
				out.ContentType(),
				count,
				out.Path,
			}
		}
		printTable(c, []string{"Type", "Task", "Ver", "Latest", "Content", "Frames", "Path"}, rows, 3, 6)
		return nil
	},
}

var publishesCommand = cli.Command{
	Name:      "publishes",
	Usage:     "list every asset publish in a job",
	ArgsUsage: "JOB",
	Action: func(c *cli.Context) error {
		if err := needArgs(c, 1, 1); err != nil {
			return err
		}
		job, err := findJob(c)
		if err != nil {
			return err
		}
		ghosts, err := job.FindPublishes(policy(c))
		if err != nil {
			return err
		}
		rows := make([][]string, len(ghosts))
		for i, g := range ghosts {
			rows[i] = []string{
				g.Label(),
				g.Task,
				g.Tag,
				strconv.Itoa(g.VerN),
				yesNo(g.Latest),
				g.ContentType,
				g.Owner,
				g.Path,
			}
		}
		printTable(c, []string{"Asset", "Task", "Tag", "Ver", "Latest", "Content", "Owner", "Path"}, rows, 4)
		return nil
	},
}

var repsCommand = cli.Command{
	Name:      "reps",
	Usage:     "list the other representations of an output",
	ArgsUsage: "PATH",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "task", Usage: "only outputs of this task"},
		cli.StringFlag{Name: "content-type", Usage: "only outputs of this content type"},
		cli.StringFlag{Name: "extn", Usage: "only outputs with this extension"},
	},
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
		reps, err := out.FindReps(pipe.RepFilter{
			Task:        c.String("task"),
			ContentType: c.String("content-type"),
			Extn:        c.String("extn"),
		})
		if err != nil {
			return err
		}
		rows := make([][]string, len(reps))
		for i, rep := range reps {
			rows[i] = []string{rep.ContentType(), rep.Task, rep.Ver, rep.Path}
		}
		printTable(c, []string{"Content", "Task", "Ver", "Path"}, rows, 3)
		return nil
	},
}

var parseCommand = cli.Command{
	Name:      "parse",
	Usage:     "say what pipeline object a path is",
	ArgsUsage: "PATH",
	Action: func(c *cli.Context) error {
		if err := needArgs(c, 1, 1); err != nil {
			return err
		}
		p := c.Args().First()
		root, err := open(c)
		if err != nil {
			return err
		}
		jobPath, err := root.Layout().JobPath(p)
		if err != nil {
			return err
		}
		job, err := root.ObtJob(&pipe.Job{Path: jobPath})
		if err != nil {
			return err
		}
		v := pipe.TryParse(job.Job, p)
		rows := [][]string{{"kind", v.Kind.String()}, {"job", job.Name}}
		if v.Entity != nil {
			rows = append(rows, []string{"entity", v.Entity.Label()})
		}
		if v.WorkDir != nil {
			rows = append(rows, []string{"task", v.WorkDir.TaskLabel()})
		}
		if v.Work != nil {
			rows = append(rows, []string{"work", v.Work.String()})
		}
		if v.Output != nil {
			rows = append(rows, []string{"output", v.Output.String()}, []string{"type", v.Output.Type})
		}
		printTable(c, []string{"Field", "Value"}, rows)
		return nil
	},
}

var currentCommand = cli.Command{
	Name:  "current",
	Usage: "show what the current scene is part of",
	Action: func(c *cli.Context) error {
		root, err := open(c)
		if err != nil {
			return err
		}
		var rows [][]string
		add := func(kind string, value fmt.Stringer, err error) {
			if err == nil {
				rows = append(rows, []string{kind, value.String()})
			}
		}
		job, err := root.CurJob()
		if err != nil {
			return err
		}
		add("job", job, nil)
		ety, err := root.CurEntity()
		add("entity", ety, err)
		wd, err := root.CurWorkDir()
		add("work dir", wd, err)
		work, err := root.CurWork()
		add("work", work, err)
		printTable(c, []string{"Kind", "Object"}, rows)
		return nil
	},
}

func findJob(c *cli.Context) (*cache.Job, error) {
	root, err := open(c)
	if err != nil {
		return nil, err
	}
	return root.FindJob(c.Args().First())
}

func findEntity(c *cli.Context) (*cache.Entity, error) {
	job, err := findJob(c)
	if err != nil {
		return nil, err
	}
	return job.FindEntity(c.Args().Get(1))
}

func findWorkDir(c *cli.Context) (*cache.WorkDir, error) {
	ety, err := findEntity(c)
	if err != nil {
		return nil, err
	}
	return ety.FindWorkDir(c.Args().Get(2))
}

func printEntities(c *cli.Context, entities []*cache.Entity) {
	rows := make([][]string, len(entities))
	for i, ety := range entities {
		rows[i] = []string{ety.Label(), ety.Kind().String(), ety.Path}
	}
	printTable(c, []string{"Entity", "Kind", "Path"}, rows)
}
