// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipe

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish(t *testing.T) {
	job := testJob(t)
	p := horsePath + "/model/_publish/v003/horse_model_main_v003.ma"
	out, err := ParseOutput(job, p)
	require.NoError(t, err)
	assert.Equal(t, "publish", out.Type)
	assert.Equal(t, OutputFile, out.Kind)
	assert.Equal(t, "main", out.Tag)
	assert.Equal(t, 3, out.VerN)
	assert.Equal(t, "model", out.Task)
	assert.Equal(t, "ma", out.Extn)
	assert.Equal(t, "", out.OutputType)
	require.NotNil(t, out.WorkDir)
	assert.Equal(t, horsePath+"/model", out.WorkDir.Path)

	first, err := out.ToVersion(1)
	require.NoError(t, err)
	assert.Equal(t, horsePath+"/model/_publish/v001/horse_model_main_v001.ma", first.Path)
	assert.Equal(t, out.Stream(), first.Stream())
}

func TestPublishOutputType(t *testing.T) {
	ety := testAsset(t)
	wd, err := ety.ToWorkDir("rig", "")
	require.NoError(t, err)
	out, err := wd.ToOutput("publish", map[string]string{
		"tag":         "main",
		"output_type": "anim",
		"ver":         "4",
		"extn":        "ma",
	})
	require.NoError(t, err)
	assert.Equal(t, horsePath+"/rig/_publish/v004/horse_rig_main_anim_v004.ma", out.Path)
	assert.Equal(t, "anim", out.OutputType)
}

func TestRender(t *testing.T) {
	job := testJob(t)
	p := shotPath + "/_render/lighting/v002/beauty/beauty.%04d.exr"
	out, err := ParseOutput(job, p)
	require.NoError(t, err)
	assert.Equal(t, "render", out.Type)
	assert.Equal(t, OutputSeq, out.Kind)
	assert.Nil(t, out.WorkDir)
	assert.Equal(t, "lighting", out.Task)
	assert.Equal(t, "beauty", out.OutputName)
	assert.Equal(t, "Render", ContentType(out, nil))
	assert.Equal(t, shotPath+"/_render/lighting/v002/beauty/beauty.0101.exr", out.FramePath(101))
}

func TestBlastMov(t *testing.T) {
	job := testJob(t)
	p := shotPath + "/anim/_blast/v002/seq010_sh0010_anim_v002.mov"
	out, err := ParseOutput(job, p)
	require.NoError(t, err)
	assert.Equal(t, "blast_mov", out.Type)
	assert.Equal(t, "blast", out.BasicType())
	assert.Equal(t, OutputVideo, out.Kind)
	assert.Equal(t, "anim", out.Task)
	assert.Equal(t, ContentVideo, ContentType(out, nil))
}

func TestAssArchive(t *testing.T) {
	job := testJob(t)
	p := horsePath + "/lookdev/_cache/v001/horse_lookdev_standin_v001.ass.gz"
	out, err := ParseOutput(job, p)
	require.NoError(t, err)
	assert.Equal(t, "ass_gz", out.Type)
	assert.Equal(t, "ass.gz", out.Extn)
	assert.Equal(t, "standin", out.OutputName)
	assert.Equal(t, "AssArchive", ContentType(out, nil))
}

func TestOutputNotValid(t *testing.T) {
	job := testJob(t)
	for _, p := range []string{
		horsePath + "/model/_publish/v003/other_model_v003.ma",
		horsePath + "/model/_publish/v03/horse_model_v03.ma",
		horsePath + "/model/horse_model_v001.ma",
	} {
		_, err := ParseOutput(job, p)
		assert.True(t, IsNotValid(err), p)
	}
}

func TestReadFrames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"beauty.0003.exr", "beauty.0001.exr", "beauty.0002.exr", "other.0004.exr"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	out := &Output{Path: filepath.ToSlash(dir) + "/beauty.%04d.exr", Kind: OutputSeq}
	frames, err := out.ReadFrames()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, frames)
}

func versioned(verN int) *Output {
	o := &Output{Path: fmt.Sprintf("/x/v%03d/a.ma", verN), VerN: verN}
	if verN > 0 {
		o.Ver = fmt.Sprintf("%03d", verN)
	} else {
		o.Path = "/x/a.ma"
	}
	return o
}

func TestLatestOf(t *testing.T) {
	v1, v2, v3, v0 := versioned(1), versioned(2), versioned(3), versioned(0)
	assert.Equal(t, v3, LatestOf([]*Output{v1, v3, v0, v2}))
	assert.Equal(t, v3, LatestOf([]*Output{v0, v1, v2, v3}))
	assert.Equal(t, v0, LatestOf([]*Output{v0}))
	assert.Nil(t, LatestOf(nil))

	versions := []*Output{v0, v3, v1, v2}
	SortVersions(versions)
	assert.Equal(t, []*Output{v1, v2, v3, v0}, versions)
}

func TestIsLatest(t *testing.T) {
	v1, v2 := versioned(1), versioned(2)
	v1.Latest = LatestYes
	assert.True(t, v1.IsLatest([]*Output{v1, v2}), "explicit flag wins")
	v1.Latest = LatestNo
	assert.False(t, v1.IsLatest(nil))
}

func TestMarkLatest(t *testing.T) {
	job := testJob(t)
	var outs []*Output
	for _, p := range []string{
		horsePath + "/model/_publish/v001/horse_model_v001.ma",
		horsePath + "/model/_publish/v002/horse_model_v002.ma",
		horsePath + "/model/_publish/v001/horse_model_main_v001.ma",
	} {
		out, err := ParseOutput(job, p)
		require.NoError(t, err)
		outs = append(outs, out)
	}
	MarkLatest(outs)
	assert.Equal(t, LatestNo, outs[0].Latest)
	assert.Equal(t, LatestYes, outs[1].Latest)
	assert.Equal(t, LatestYes, outs[2].Latest, "separate stream")
	assert.True(t, outs[1].IsLatest(outs))
}

func TestOutputSeqDir(t *testing.T) {
	ety := testShot(t)
	dir, err := NewOutputSeqDir(ety, shotPath+"/_render/lighting/v002")
	require.NoError(t, err)
	assert.Nil(t, dir.WorkDir)
	assert.Equal(t, "lighting", dir.Task)
	assert.Equal(t, "002", dir.Ver)

	templates, err := dir.OutputTemplates()
	require.NoError(t, err)
	var types []string
	for _, tmpl := range templates {
		types = append(types, tmpl.Type)
	}
	assert.ElementsMatch(t, []string{"render", "render_mov"}, types)

	blasts, err := NewOutputSeqDir(ety, shotPath+"/anim/_blast/v001")
	require.NoError(t, err)
	require.NotNil(t, blasts.WorkDir)
	assert.Equal(t, "anim", blasts.Task)
	templates, err = blasts.OutputTemplates()
	require.NoError(t, err)
	assert.Len(t, templates, 2)

	_, err = NewOutputSeqDir(ety, shotPath+"/anim")
	assert.True(t, IsNotValid(err))
}
