// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testJobPath = "/jobs/braveheart"
	horsePath   = testJobPath + "/assets/char/horse"
	shotPath    = testJobPath + "/episodes/seq010/seq010_sh0010"
)

func testJob(t *testing.T) *Job {
	job, err := NewJob(testJobPath, DefaultConfig())
	require.NoError(t, err)
	return job
}

func testAsset(t *testing.T) *Entity {
	ety, err := testJob(t).ToAsset("char", "horse")
	require.NoError(t, err)
	return ety
}

func testShot(t *testing.T) *Entity {
	ety, err := testJob(t).ToShot("seq010", "seq010_sh0010")
	require.NoError(t, err)
	return ety
}

func TestJob(t *testing.T) {
	job := testJob(t)
	assert.Equal(t, "braveheart", job.Name)
	assert.Equal(t, "Job(braveheart)", job.String())
	assert.True(t, job.UsesSequenceDirs())
	assert.True(t, job.UsesAssetTypeDirs())

	tmpl, err := job.AssetTypeTemplate()
	require.NoError(t, err)
	assert.Equal(t, testJobPath+"/assets/{asset_type}", tmpl.Pattern)
}

func TestLayout(t *testing.T) {
	layout := Layout{JobsRoot: "/jobs/"}
	jobPath, err := layout.JobPath("/jobs/braveheart/assets/char")
	require.NoError(t, err)
	assert.Equal(t, testJobPath, jobPath)
	assert.Equal(t, testJobPath+"/.pini/config.yml", layout.ConfigFile(jobPath))

	_, err = layout.JobPath("/elsewhere/braveheart")
	assert.IsType(t, ErrOutsideRoot{}, err)

	_, err = Layout{}.JobPath("/jobs/braveheart")
	assert.Equal(t, ErrNoJobsRoot, err)

	shared := Layout{JobsRoot: "/jobs", ConfigPath: "/etc/pini.yml"}
	assert.Equal(t, "/etc/pini.yml", shared.ConfigFile(testJobPath))
}

func TestSetupJob(t *testing.T) {
	layout := Layout{JobsRoot: t.TempDir()}
	job, err := layout.SetupJob("hero")
	require.NoError(t, err)
	assert.Equal(t, "hero", job.Name)
	assert.FileExists(t, layout.ConfigFile(job.Path))

	again, err := layout.OpenJob(job.Path + "/assets")
	require.NoError(t, err)
	assert.Equal(t, job.Path, again.Path)
	assert.Equal(t, job.Config, again.Config)
}

func TestAsset(t *testing.T) {
	ety := testAsset(t)
	assert.Equal(t, horsePath, ety.Path)
	assert.Equal(t, KindAsset, ety.Kind())
	assert.Equal(t, "char", ety.AssetType)
	assert.Equal(t, "horse", ety.Name)
	assert.Equal(t, "char.horse", ety.Label())
	assert.Equal(t, "asset(braveheart/char/horse)", ety.String())
	assert.Equal(t, testJobPath+"/assets/char", ety.Dir())
}

func TestEntityFromInsidePath(t *testing.T) {
	job := testJob(t)
	ety, err := NewEntity(job, horsePath+"/model/horse_model_v001.ma")
	require.NoError(t, err)
	assert.Equal(t, horsePath, ety.Path)
	assert.Equal(t, "horse", ety.Asset)

	_, err = NewEntity(job, testJobPath+"/elsewhere/thing")
	assert.True(t, IsNotValid(err))
}

func TestShot(t *testing.T) {
	ety := testShot(t)
	assert.Equal(t, shotPath, ety.Path)
	assert.Equal(t, KindShot, ety.Kind())
	assert.Equal(t, "seq010", ety.Sequence)
	assert.Equal(t, "seq010_sh0010", ety.Label())
	assert.Equal(t, "seq010", ety.EntityType())
}

func TestSequence(t *testing.T) {
	job := testJob(t)
	seq, err := job.ToSequence("seq010")
	require.NoError(t, err)
	assert.Equal(t, testJobPath+"/episodes/seq010", seq.Path)

	seq, err = NewSequence(job, shotPath+"/anim")
	require.NoError(t, err)
	assert.Equal(t, "seq010", seq.Name)

	assert.True(t, (&Sequence{Name: "seq2"}).Less(&Sequence{Name: "seq10"}))
}

func TestSequenceFilter(t *testing.T) {
	config, err := ParseJobConfig([]byte("tokens:\n  sequence:\n    filter: -tmp\n"))
	require.NoError(t, err)
	job, err := NewJob(testJobPath, config)
	require.NoError(t, err)

	_, err = job.ToSequence("tmp_stuff")
	assert.True(t, IsNotValid(err))

	_, err = NewEntity(job, testJobPath+"/episodes/tmp_stuff/tmp_sh010")
	assert.True(t, IsNotValid(err))
}

func TestEntityLess(t *testing.T) {
	job := testJob(t)
	a, err := job.ToAsset("char", "horse2")
	require.NoError(t, err)
	b, err := job.ToAsset("char", "horse10")
	require.NoError(t, err)
	c, err := job.ToAsset("prop", "axe")
	require.NoError(t, err)
	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.True(t, c.Less(testShot(t)))
}
