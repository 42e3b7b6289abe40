// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipetest

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/diffeo/go-pini/pipe"
)

// Fixture is the production most tests run against: the job
// "braveheart" with assets char.horse, char.dog and prop.axe; shots
// seq010_sh0010, seq010_sh0020 and seq020_sh0010; model and rig work
// dirs on the horse with two model work files and two publishes; and
// an anim work dir on the first shot.
type Fixture struct {
	Job *pipe.Job

	Horse *pipe.Entity
	Dog   *pipe.Entity
	Axe   *pipe.Entity
	Shots []*pipe.Entity

	Model *pipe.WorkDir
	Rig   *pipe.WorkDir
	Anim  *pipe.WorkDir

	Works     []*pipe.Work
	Publishes []*pipe.Output
}

// Braveheart creates the fixture through the store under test, or
// fails the test immediately.  The mock clock advances a minute
// between creations so stores see distinct update times.
func (s *Suite) Braveheart() *Fixture {
	var (
		require = s.Require()
		f       = &Fixture{}
		err     error
	)
	tick := func() { s.Clock.Add(time.Minute) }

	f.Job, err = s.Store.CreateJob("braveheart")
	require.NoError(err)

	asset := func(assetType, name string) *pipe.Entity {
		tick()
		ety, err := f.Job.ToAsset(assetType, name)
		require.NoError(err)
		require.NoError(s.Store.CreateEntity(ety))
		return ety
	}
	f.Horse = asset("char", "horse")
	f.Dog = asset("char", "dog")
	f.Axe = asset("prop", "axe")

	for _, name := range [][2]string{
		{"seq010", "seq010_sh0010"},
		{"seq010", "seq010_sh0020"},
		{"seq020", "seq020_sh0010"},
	} {
		tick()
		shot, err := f.Job.ToShot(name[0], name[1])
		require.NoError(err)
		require.NoError(s.Store.CreateEntity(shot))
		f.Shots = append(f.Shots, shot)
	}

	workDir := func(ety *pipe.Entity, task string) *pipe.WorkDir {
		tick()
		wd, err := ety.ToWorkDir(task, "")
		require.NoError(err)
		require.NoError(s.Store.CreateWorkDir(wd))
		return wd
	}
	f.Model = workDir(f.Horse, "model")
	f.Rig = workDir(f.Horse, "rig")
	f.Anim = workDir(f.Shots[0], "anim")

	for verN := 1; verN <= 2; verN++ {
		tick()
		work, err := f.Model.ToWork("", verN, "maya", "")
		require.NoError(err)
		require.NoError(Touch(work.Path))
		f.Works = append(f.Works, work)

		pub, err := f.Model.ToOutput("publish", map[string]string{
			"ver":  strconv.Itoa(verN),
			"extn": "ma",
		})
		require.NoError(err)
		require.NoError(Touch(pub.Path))
		require.NoError(s.Store.RegisterOutput(pub))
		f.Publishes = append(f.Publishes, pub)
	}
	return f
}

// Touch creates an empty file and any missing parent directories.
// An existing file is left alone.
func Touch(p string) error {
	p = filepath.FromSlash(p)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	if _, err := os.Stat(p); err == nil {
		return nil
	}
	return ioutil.WriteFile(p, nil, 0644)
}
