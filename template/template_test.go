// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package template_test

import (
	"testing"

	"github.com/diffeo/go-pini/template"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPolicies = template.Policies{
	"tag": {NoUnderscore: true},
	"ver": {Len: []int{3}, StrictLen: true},
	"dcc": {Allowed: template.DCCs},
}

func mustNew(t *testing.T, name, pattern string) *template.Template {
	tmpl, err := template.New(name, pattern, testPolicies)
	require.NoError(t, err, "creating template %v", name)
	return tmpl
}

func TestNameParsing(t *testing.T) {
	tests := []struct {
		name    string
		dcc     string
		profile string
		typ     string
		alt     int
	}{
		{"work", "", "", "work", 0},
		{"shot_entity_path", "", "shot", "entity_path", 0},
		{"maya_asset_work_alt2", "maya", "asset", "work", 2},
		{"nuke_render", "nuke", "", "render", 0},
		{"cache_alt", "", "", "cache_alt", 0},
		{"work_altx", "", "", "work_altx", 0},
	}
	for _, test := range tests {
		tmpl := mustNew(t, test.name, "{job_path}/{blah}.{extn}")
		assert.Equal(t, test.dcc, tmpl.DCC, test.name)
		assert.Equal(t, test.profile, tmpl.Profile, test.name)
		assert.Equal(t, test.typ, tmpl.Type, test.name)
		assert.Equal(t, test.alt, tmpl.Alt, test.name)
	}
}

func TestPathTypes(t *testing.T) {
	assert.Equal(t, template.Dir, mustNew(t, "shot_entity_path", "{a}").PathType)
	assert.Equal(t, template.Seq, mustNew(t, "render", "{a}").PathType)
	assert.Equal(t, template.Seq, mustNew(t, "cache_seq", "{a}").PathType)
	assert.Equal(t, template.File, mustNew(t, "cache", "{a}").PathType)
	assert.Equal(t, template.File, mustNew(t, "thing", "{a}.{extn}").PathType)

	_, err := template.New("thing", "{a}", testPolicies)
	assert.IsType(t, template.ErrBadPattern{}, err)
}

func TestExpandVariations(t *testing.T) {
	variations, err := template.ExpandVariations("{a}[_{b}][_{c}]")
	if assert.NoError(t, err) {
		assert.Equal(t, []string{
			"{a}_{b}_{c}",
			"{a}_{b}",
			"{a}_{c}",
			"{a}",
		}, variations)
	}

	variations, err = template.ExpandVariations("{a}[_{b}]")
	if assert.NoError(t, err) {
		assert.Equal(t, []string{"{a}_{b}", "{a}"}, variations)
	}

	_, err = template.ExpandVariations("{a}[_{b}")
	assert.Error(t, err)
	_, err = template.ExpandVariations("{a}[[_{b}]]")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	tmpl := mustNew(t, "work", "/jobs/{job}/{task}/{task}[_{tag}]_v{ver}.{extn}")

	path, err := tmpl.Format(map[string]string{
		"job": "braveheart", "task": "anim", "tag": "main", "ver": "7", "extn": "ma",
	})
	if assert.NoError(t, err) {
		assert.Equal(t, "/jobs/braveheart/anim/anim_main_v007.ma", path)
	}

	path, err = tmpl.Format(map[string]string{
		"job": "braveheart", "task": "anim", "ver": "012", "extn": "ma",
	})
	if assert.NoError(t, err) {
		assert.Equal(t, "/jobs/braveheart/anim/anim_v012.ma", path)
	}

	_, err = tmpl.Format(map[string]string{"job": "braveheart", "task": "anim"})
	if assert.IsType(t, template.ErrMissingTokens{}, err) {
		assert.Equal(t, []string{"extn", "ver"}, err.(template.ErrMissingTokens).Keys)
	}
}

func TestParse(t *testing.T) {
	tmpl := mustNew(t, "work", "/jobs/{job}/{task}/{task}[_{tag}]_v{ver}.{extn}")

	data, err := tmpl.Parse("/jobs/braveheart/anim/anim_main_v007.ma")
	if assert.NoError(t, err) {
		assert.Equal(t, "", cmp.Diff(map[string]string{
			"job": "braveheart", "task": "anim", "tag": "main", "ver": "007", "extn": "ma",
		}, data))
	}

	data, err = tmpl.Parse("/jobs/braveheart/anim/anim_v007.ma")
	if assert.NoError(t, err) {
		assert.NotContains(t, data, "tag")
	}

	// task appears twice and must agree
	_, err = tmpl.Parse("/jobs/braveheart/anim/rig_v007.ma")
	assert.True(t, template.IsNoMatch(err), "%v", err)

	// bad version length fails validation, which is still a non-match
	_, err = tmpl.Parse("/jobs/braveheart/anim/anim_v07.ma")
	assert.True(t, template.IsNoMatch(err), "%v", err)

	_, err = tmpl.Parse("/elsewhere/anim_v007.ma")
	assert.IsType(t, template.ErrNoMatch{}, err)
}

func TestRoundTrip(t *testing.T) {
	tmpl := mustNew(t, "publish", "/jobs/{job}/pub/{task}[_{output_type}]/{tag}_v{ver}.{extn}")
	for _, data := range []map[string]string{
		{"job": "a", "task": "model", "output_type": "geo", "tag": "main", "ver": "001", "extn": "ma"},
		{"job": "a", "task": "model", "tag": "main", "ver": "002", "extn": "abc"},
		{"job": "b", "task": "rig", "tag": "hero", "ver": "010", "extn": "mb"},
	} {
		path, err := tmpl.Format(data)
		require.NoError(t, err)
		parsed, err := tmpl.Parse(path)
		require.NoError(t, err, path)
		for key, value := range data {
			assert.Equal(t, value, parsed[key], "%v in %v", key, path)
		}
	}
}

func TestCustomTokenExpr(t *testing.T) {
	tmpl := mustNew(t, "publish", "{task}/{tag:[^_]+}_v{ver}/{output_name}.{extn}")
	applied := tmpl.ApplyData(map[string]string{"tag": "blah"})
	assert.Equal(t, "{task}/blah_v{ver}/{output_name}.{extn}", applied.Pattern)
	assert.Equal(t, map[string]string{"tag": "blah"}, applied.Embedded)
}

func TestApplyData(t *testing.T) {
	tmpl := mustNew(t, "test_entity_path", "{blah}/{blue}/{blee}")
	tmpl = tmpl.ApplyData(map[string]string{"blue": "BLUE"})
	assert.Contains(t, tmpl.Embedded, "blue")
	tmpl = tmpl.ApplyData(map[string]string{"blee": "BLEE"})
	assert.Contains(t, tmpl.Embedded, "blue")
	assert.Contains(t, tmpl.Embedded, "blee")

	data, err := tmpl.Parse("BLAH/BLUE/BLEE")
	if assert.NoError(t, err) {
		assert.Equal(t, "BLUE", data["blue"])
		assert.Equal(t, "BLAH", data["blah"])
	}
	_, err = tmpl.Parse("BLAH/GREEN/BLEE")
	assert.True(t, template.IsNoMatch(err))

	assert.Equal(t, "{blah}/{blue}/{blee}", tmpl.Source)
}

func TestCropToToken(t *testing.T) {
	tmpl := mustNew(t, "shot_entity_path", "{job_path}/episodes/{sequence}/{shot}")
	cropped, err := tmpl.CropToToken("sequence")
	if assert.NoError(t, err) {
		assert.Equal(t, "{job_path}/episodes/{sequence}", cropped.Pattern)
		assert.Equal(t, template.Dir, cropped.PathType)
	}

	tmpl = mustNew(t, "work", "{job_path}/{asset_type}_x{asset}/work/{task}_v{ver}.{extn}")
	cropped, err = tmpl.CropToToken("asset_type")
	if assert.NoError(t, err) {
		assert.Equal(t, "{job_path}/{asset_type}_x{asset}", cropped.Pattern)
	}

	_, err = tmpl.CropToToken("sequence")
	assert.IsType(t, template.ErrNoToken{}, err)
}

func TestSplitHardened(t *testing.T) {
	tmpl := mustNew(t, "asset_entity_path", "{job_path}/assets/{asset_type}/{asset}")
	tmpl = tmpl.ApplyData(map[string]string{"job_path": "/jobs/braveheart"})
	root, rest := tmpl.SplitHardened()
	assert.Equal(t, "/jobs/braveheart/assets", root)
	assert.Equal(t, "{asset_type}/{asset}", rest)
}

func TestFrameNumber(t *testing.T) {
	frame, offset := template.FrameNumber("/a/b/render.0012.exr")
	assert.Equal(t, 12, frame)
	assert.Equal(t, len("/a/b/render."), offset)

	frame, _ = template.FrameNumber("/a/b/render.exr")
	assert.Equal(t, -1, frame)
}

func TestParseDir(t *testing.T) {
	tmpl := mustNew(t, "shot_entity_path", "/jobs/{job}/episodes/{sequence}/{shot}")

	dir, data, err := tmpl.ParseDir("/jobs/hero/episodes/s010/s010_0020/anim/work.ma")
	require.NoError(t, err)
	assert.Equal(t, "/jobs/hero/episodes/s010/s010_0020", dir)
	assert.Equal(t, "s010_0020", data["shot"])

	dir, _, err = tmpl.ParseDir("/jobs/hero/episodes/s010/s010_0020")
	require.NoError(t, err)
	assert.Equal(t, "/jobs/hero/episodes/s010/s010_0020", dir)

	_, _, err = tmpl.ParseDir("/jobs/hero/episodes/s010")
	assert.True(t, template.IsNoMatch(err))
}

func TestParseDirOptional(t *testing.T) {
	tmpl := mustNew(t, "work_dir", "/root/{entity}[/{step}]/{task}")

	dir, data, err := tmpl.ParseDir("/root/horse/surf/lookdev/scene.ma")
	require.NoError(t, err)
	assert.Equal(t, "/root/horse/surf/lookdev", dir)
	assert.Equal(t, "surf", data["step"])
	assert.Equal(t, "lookdev", data["task"])
}
