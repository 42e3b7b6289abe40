// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipe

import "strings"

// Media content types.  Outputs of these types can be viewed.
const (
	ContentRender = "Render"
	ContentBlast  = "Blast"
	ContentPlate  = "Plate"
	ContentVideo  = "Video"
)

// IsMedia says whether a content type is viewable media.
func IsMedia(contentType string) bool {
	switch contentType {
	case ContentRender, ContentBlast, ContentPlate, ContentVideo:
		return true
	}
	return false
}

// ContentType describes what an output holds, such as "ModelMa" or
// "Render".  Metadata recorded at publish time refines the answer,
// and a "content_type" entry overrides it.
func ContentType(o *Output, meta Metadata) string {
	if ct := meta.String("content_type"); ct != "" {
		return ct
	}
	handler := meta.String("handler")
	switch {
	case o.Kind == OutputSeq:
		return seqContentType(o)
	case o.Kind == OutputVideo:
		return ContentVideo
	}
	switch o.Extn {
	case "abc", "fbx":
		switch handler {
		case "CMayaCamPublish", "CMayaCamCache":
			return "Camera" + capitalize(o.Extn)
		case "CMayaPipeCache", "CMayaCache":
			return "Pipe" + capitalize(o.Extn)
		}
		return capitalize(o.Extn)
	case "ma":
		switch {
		case meta.Has("vrmesh"):
			return "VrmeshMa"
		case meta.Has("shd_yml"):
			return "ShadersMa"
		case handler == "CMayaModelPublish":
			return "ModelMa"
		case handler == "CMayaBasicPublish" && MapTask(o.Task) == "rig":
			return "RigMa"
		}
		return "BasicMa"
	case "mb":
		if handler == "CMayaCurvesCache" {
			return "CurvesMb"
		}
		return "BasicMb"
	case "rs":
		return "RedshiftProxy"
	case "jpg", "exr":
		return "Image"
	case "ass.gz":
		return "AssArchive"
	}
	return capitalize(o.Extn)
}

func seqContentType(o *Output) string {
	switch {
	case o.Extn == "obj":
		return "ObjSeq"
	case o.Extn == "vdb":
		return "VdbSeq"
	}
	switch o.BasicType() {
	case "blast":
		return ContentBlast
	case "render":
		return ContentRender
	case "plate":
		return ContentPlate
	}
	return "Texture"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
