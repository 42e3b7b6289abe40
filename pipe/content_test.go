// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipe

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentType(t *testing.T) {
	tests := []struct {
		out  Output
		meta Metadata
		want string
	}{
		{Output{Extn: "ma"}, Metadata{"content_type": "Custom"}, "Custom"},
		{Output{Extn: "abc"}, Metadata{"handler": "CMayaCamPublish"}, "CameraAbc"},
		{Output{Extn: "fbx"}, Metadata{"handler": "CMayaPipeCache"}, "PipeFbx"},
		{Output{Extn: "abc"}, nil, "Abc"},
		{Output{Extn: "ma"}, Metadata{"vrmesh": "/a.vrmesh"}, "VrmeshMa"},
		{Output{Extn: "ma"}, Metadata{"shd_yml": "/a.yml"}, "ShadersMa"},
		{Output{Extn: "ma"}, Metadata{"handler": "CMayaModelPublish"}, "ModelMa"},
		{Output{Extn: "ma", Task: "rig"}, Metadata{"handler": "CMayaBasicPublish"}, "RigMa"},
		{Output{Extn: "ma", Task: "anim"}, Metadata{"handler": "CMayaBasicPublish"}, "BasicMa"},
		{Output{Extn: "mb"}, Metadata{"handler": "CMayaCurvesCache"}, "CurvesMb"},
		{Output{Extn: "mb"}, nil, "BasicMb"},
		{Output{Extn: "rs"}, nil, "RedshiftProxy"},
		{Output{Extn: "obj", Kind: OutputSeq, Type: "cache_seq"}, nil, "ObjSeq"},
		{Output{Extn: "vdb", Kind: OutputSeq, Type: "cache_seq"}, nil, "VdbSeq"},
		{Output{Extn: "jpg", Kind: OutputSeq, Type: "blast"}, nil, ContentBlast},
		{Output{Extn: "exr", Kind: OutputSeq, Type: "plate"}, nil, ContentPlate},
		{Output{Extn: "png", Kind: OutputSeq, Type: "publish_seq"}, nil, "Texture"},
		{Output{Extn: "mp4", Kind: OutputVideo}, nil, ContentVideo},
		{Output{Extn: "exr"}, nil, "Image"},
		{Output{Extn: "ass.gz"}, nil, "AssArchive"},
		{Output{Extn: "usd"}, nil, "Usd"},
	}
	for _, test := range tests {
		out := test.out
		assert.Equal(t, test.want, ContentType(&out, test.meta), fmt.Sprintf("%+v %v", test.out, test.meta))
	}
	assert.True(t, IsMedia(ContentRender))
	assert.False(t, IsMedia("ModelMa"))
}

func TestFindReps(t *testing.T) {
	ety := testAsset(t)
	out := func(typ, task, extn string, verN int) *Output {
		return &Output{
			Entity: ety,
			Path:   fmt.Sprintf("%s/%s/%s_v%03d.%s", ety.Path, task, typ, verN, extn),
			Type:   typ,
			Task:   task,
			Extn:   extn,
			Ver:    fmt.Sprintf("%03d", verN),
			VerN:   verN,
		}
	}
	model := out("publish", "model", "ma", 2)
	rig1 := out("publish", "rig", "ma", 1)
	rig3 := out("publish", "rig", "ma", 3)
	abc := out("publish", "model", "abc", 2)
	oldAbc := out("publish", "model", "abc", 1)
	ass1 := out("ass_gz", "lookdev", "ass.gz", 1)
	ass2 := out("ass_gz", "lookdev", "ass.gz", 2)
	all := []*Output{model, rig1, rig3, abc, oldAbc, ass1, ass2}
	noContent := func(*Output) string { return "" }

	reps := FindReps(model, all, noContent, RepFilter{})
	assert.Equal(t, []*Output{rig3, abc, ass2}, reps)

	reps = FindReps(model, all, noContent, RepFilter{Extn: "abc"})
	assert.Equal(t, []*Output{abc}, reps)

	reps = FindReps(rig3, all, noContent, RepFilter{})
	assert.Equal(t, []*Output{model, ass2}, reps)
}
