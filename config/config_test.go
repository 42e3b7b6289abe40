// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/diffeo/go-pini/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) string {
	return ""
}

func env(values map[string]string) func(string) string {
	return func(name string) string {
		return values[name]
	}
}

func TestDefaults(t *testing.T) {
	settings, err := Load("", noEnv)
	if assert.NoError(t, err) {
		assert.Equal(t, Default(), settings)
	}
	assert.Equal(t, cache.EnvVar(CurPathVar), settings.Environment())
}

func TestLoadFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "pini.yml")
	require.NoError(t, ioutil.WriteFile(filename, []byte(`
jobs_root: /jobs
master: tracker
tracker_url: http://tracker:8080/
path_map: "P:/jobs>>>/jobs"
cache_max_age: 3600
`), 0644))

	settings, err := Load(filename, noEnv)
	require.NoError(t, err)
	assert.Equal(t, "/jobs", settings.JobsRoot)
	assert.Equal(t, time.Hour, settings.CacheMaxAge)
	b := settings.Backend()
	assert.Equal(t, "tracker:http://tracker:8080/", b.String())
	assert.Equal(t, "/jobs", settings.Layout().JobsRoot)

	// The environment wins over the file
	settings, err = Load(filename, env(map[string]string{
		"PINI_PIPE_MASTER":   "disk",
		"PINI_CACHE_MAX_AGE": "90m",
		"PINI_CUR_PATH":      "ignored",
	}))
	require.NoError(t, err)
	assert.Equal(t, "disk", settings.Master)
	assert.Equal(t, 90*time.Minute, settings.CacheMaxAge)
	b = settings.Backend()
	assert.Equal(t, "disk", b.String())
}

func TestInvalid(t *testing.T) {
	for _, values := range []map[string]interface{}{
		{"master": "memory"},
		{"snapshots": "redis:localhost"},
		{"log_level": "chatty"},
		{"cache_max_age": "soon"},
		{"path_map": "no arrows"},
		{"unknown_key": 1},
	} {
		_, err := Decode(values)
		assert.Error(t, err, "%v", values)
	}
}

func TestCurPath(t *testing.T) {
	settings, err := Decode(map[string]interface{}{"cur_path": "/jobs/braveheart"})
	if assert.NoError(t, err) {
		assert.Equal(t, "/jobs/braveheart", settings.Environment().CurPath())
	}
}

func TestOpen(t *testing.T) {
	settings, err := Decode(map[string]interface{}{"jobs_root": t.TempDir()})
	require.NoError(t, err)
	root, err := settings.Open(nil)
	if assert.NoError(t, err) {
		assert.Equal(t, "disk", root.Store().Master())
		jobs, err := root.FindJobs(cache.UseCache)
		assert.NoError(t, err)
		assert.Empty(t, jobs)
	}
}
