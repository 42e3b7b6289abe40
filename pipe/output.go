// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipe

import (
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/diffeo/go-pini/template"
)

// Output template types, by the kind of output they describe.
var (
	FileOutputTypes  = []string{"publish", "cache", "ass_gz"}
	VideoOutputTypes = []string{"blast_mov", "mov", "render_mov", "plate_mov"}
	SeqOutputTypes   = []string{"render", "plate", "blast", "cache_seq", "publish_seq"}
)

// OutputTypes returns every output template type.
func OutputTypes() []string {
	var types []string
	types = append(types, FileOutputTypes...)
	types = append(types, VideoOutputTypes...)
	return append(types, SeqOutputTypes...)
}

func isSeqType(typ string) bool {
	return contains(SeqOutputTypes, typ)
}

func isVideoType(typ string) bool {
	return contains(VideoOutputTypes, typ)
}

// InSeqDir says whether outputs of a template are found through an
// OutputSeqDir rather than listed directly.  These are the versioned
// sequence and video templates.
func InSeqDir(t *template.Template) bool {
	return (isSeqType(t.Type) || isVideoType(t.Type)) && t.HasKey("ver")
}

// BasicType strips the _mov and _seq qualifiers from an output type,
// so that "render_mov" and "render" are both "render".  A bare "mov"
// is a render.
func BasicType(typ string) string {
	if typ == "mov" {
		return "render"
	}
	typ = strings.TrimSuffix(typ, "_mov")
	return strings.TrimSuffix(typ, "_seq")
}

// OutputKind says what an output is on disk.
type OutputKind int

const (
	// OutputFile is a single file.
	OutputFile OutputKind = iota
	// OutputSeq is a numbered file sequence.
	OutputSeq
	// OutputVideo is a single movie file.
	OutputVideo
)

func (k OutputKind) String() string {
	switch k {
	case OutputSeq:
		return "seq"
	case OutputVideo:
		return "video"
	}
	return "file"
}

// Latest is the tri-state "is this the latest version" flag.  Once it
// is set it is trusted without looking at sibling versions.
type Latest int

const (
	LatestUnknown Latest = iota
	LatestYes
	LatestNo
)

// Output is a file, sequence or movie generated from an entity or
// work dir.
type Output struct {
	Entity *Entity
	// WorkDir is nil for entity-level outputs such as renders.
	WorkDir *WorkDir

	Path string
	Type string
	Kind OutputKind

	Task       string
	Step       string
	Tag        string
	Ver        string
	VerN       int
	OutputName string
	OutputType string
	Extn       string
	DCC        string
	User       string

	// Status is the review status of an output known to a
	// tracker, or empty.
	Status string

	Latest Latest

	Template *template.Template
	Data     map[string]string
}

// NewOutput builds an output from its path.  wd may be nil, in which
// case the work dir is derived from the path if it is inside one.
func NewOutput(ety *Entity, wd *WorkDir, p string) (*Output, error) {
	p = cleanPath(p)
	if wd == nil {
		if found, err := NewWorkDir(ety, p); err == nil && strings.HasPrefix(p, found.Path+"/") {
			wd = found
		}
	}
	candidates := ety.OutputTemplates(OutputTypes())
	if wd != nil {
		candidates = append(candidates, wd.OutputTemplates(OutputTypes())...)
	}
	if strings.HasSuffix(p, ".ass.gz") {
		candidates = onlyType(candidates, "ass_gz")
	}
	set := template.NewSet(candidates...)
	extn := Extn(p)
	tmpl, data, err := set.Match(template.Query{DCC: ExtnToDCC[extn]}, p)
	if err != nil {
		if _, ambiguous := err.(template.ErrAmbiguous); ambiguous {
			return nil, err
		}
		return nil, ErrNotValid{Kind: KindOutput, Path: p, Err: err}
	}
	if !strings.HasPrefix(tmpl.Source, "{work_dir}") {
		wd = nil
	}
	o := &Output{
		Entity:     ety,
		WorkDir:    wd,
		Path:       p,
		Type:       tmpl.Type,
		Task:       data["task"],
		Step:       data["step"],
		Tag:        data["tag"],
		Ver:        data["ver"],
		OutputName: data["output_name"],
		OutputType: data["output_type"],
		Extn:       extn,
		User:       data["user"],
		Template:   tmpl,
		Data:       data,
	}
	if wd != nil {
		if o.Task == "" {
			o.Task = wd.Task
		}
		if o.Step == "" {
			o.Step = wd.Step
		}
	}
	if o.Ver != "" {
		if o.VerN, err = strconv.Atoi(o.Ver); err != nil {
			return nil, ErrNotValid{Kind: KindOutput, Path: p, Err: err}
		}
	}
	switch {
	case strings.Contains(p, "%"):
		o.Kind = OutputSeq
	case extn == "mov" || extn == "mp4":
		o.Kind = OutputVideo
	}
	if tmpl.DCC != "" {
		o.DCC = tmpl.DCC
	} else if wd != nil {
		o.DCC = wd.DCC
	}
	if strings.HasSuffix(p, ".ass.gz") {
		o.Extn = "ass.gz"
	}
	return o, nil
}

// ParseOutput builds an output from a path, deriving its entity.
func ParseOutput(job *Job, p string) (*Output, error) {
	ety, err := NewEntity(job, p)
	if err != nil {
		return nil, ErrNotValid{Kind: KindOutput, Path: p, Err: err}
	}
	return NewOutput(ety, nil, p)
}

func onlyType(templates []*template.Template, typ string) []*template.Template {
	var result []*template.Template
	for _, t := range templates {
		if t.Type == typ {
			result = append(result, t)
		}
	}
	return result
}

// Job returns the job this output belongs to.
func (o *Output) Job() *Job {
	return o.Entity.Job
}

func (o *Output) String() string {
	return "Output(" + o.Path + ")"
}

// Dir is the directory containing the output.
func (o *Output) Dir() string {
	return path.Dir(o.Path)
}

// Filename is the base name of the output.
func (o *Output) Filename() string {
	return path.Base(o.Path)
}

// BasicType returns the output type without _mov or _seq.
func (o *Output) BasicType() string {
	return BasicType(o.Type)
}

// TagOrDefault returns the tag, or DefaultTag if there is none.
func (o *Output) TagOrDefault() string {
	if o.Tag == "" {
		return DefaultTag
	}
	return o.Tag
}

// Stream identifies every version of this output: it is the path
// with the version zeroed.  Versionless outputs are their own stream.
func (o *Output) Stream() string {
	if o.Ver == "" {
		return o.Path
	}
	data := copyData(o.Data)
	data["ver"] = "0"
	stream, err := o.Template.Format(data)
	if err != nil {
		return o.Path
	}
	return stream
}

// Less orders outputs by directory, then tag, then file name.
func (o *Output) Less(other *Output) bool {
	if a, b := o.Dir(), other.Dir(); a != b {
		return a < b
	}
	if o.Tag != other.Tag {
		return o.Tag < other.Tag
	}
	return o.Filename() < other.Filename()
}

// ToVersion builds another version of this output.
func (o *Output) ToVersion(verN int) (*Output, error) {
	if o.Ver == "" {
		return nil, ErrNoVersions
	}
	data := copyData(o.Data)
	data["ver"] = strconv.Itoa(verN)
	p, err := o.Template.Format(data)
	if err != nil {
		return nil, err
	}
	return NewOutput(o.Entity, o.WorkDir, p)
}

// MetadataPath returns the sidecar metadata file of this output.
func (o *Output) MetadataPath() string {
	return MetadataPath(o.Path)
}

// FramePath returns the path of one frame of a sequence.
func (o *Output) FramePath(frame int) string {
	if o.Kind != OutputSeq {
		return o.Path
	}
	return strings.Replace(o.Path, template.FramePlaceholder, zeroPad(frame, 4), 1)
}

// ReadFrames lists the frames of a sequence that exist on disk, in
// order.  Other outputs have no frames.
func (o *Output) ReadFrames() ([]int, error) {
	if o.Kind != OutputSeq {
		return nil, nil
	}
	parts := strings.SplitN(o.Path, template.FramePlaceholder, 2)
	if len(parts) != 2 {
		return nil, nil
	}
	pattern := escapeGlob(parts[0]) + "[0-9][0-9][0-9][0-9]" + escapeGlob(parts[1])
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, err
	}
	frames := make([]int, 0, len(matches))
	for _, match := range matches {
		if frame, _ := template.FrameNumber(match); frame >= 0 {
			frames = append(frames, frame)
		}
	}
	sort.Ints(frames)
	return frames, nil
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func zeroPad(n, width int) string {
	s := strconv.Itoa(n)
	for len(s) < width {
		s = "0" + s
	}
	return s
}

// lessVersion orders versions ascending with versionless last.
func lessVersion(a, b *Output) bool {
	if (a.Ver == "") != (b.Ver == "") {
		return b.Ver == ""
	}
	if a.VerN != b.VerN {
		return a.VerN < b.VerN
	}
	return a.Path < b.Path
}

// SortVersions sorts outputs by version, versionless last.
func SortVersions(outputs []*Output) {
	sort.SliceStable(outputs, func(i, j int) bool {
		return lessVersion(outputs[i], outputs[j])
	})
}

// LatestOf returns the latest output in a list of versions of one
// stream: the highest numbered version, or a versionless one only if
// nothing is numbered.  It returns nil for an empty list.
func LatestOf(outputs []*Output) *Output {
	var latest *Output
	for _, o := range outputs {
		switch {
		case latest == nil:
			latest = o
		case latest.Ver == "" && o.Ver != "":
			latest = o
		case o.Ver != "" && o.VerN > latest.VerN:
			latest = o
		}
	}
	return latest
}

// MarkLatest sets the Latest flag of every output from its siblings
// in the same stream.
func MarkLatest(outputs []*Output) {
	streams := make(map[string][]*Output)
	for _, o := range outputs {
		stream := o.Stream()
		streams[stream] = append(streams[stream], o)
	}
	for _, versions := range streams {
		latest := LatestOf(versions)
		for _, o := range versions {
			if o == latest {
				o.Latest = LatestYes
			} else {
				o.Latest = LatestNo
			}
		}
	}
}

// IsLatest says whether this output is the latest of its stream among
// versions.  An explicitly set Latest flag is returned as-is.
func (o *Output) IsLatest(versions []*Output) bool {
	switch o.Latest {
	case LatestYes:
		return true
	case LatestNo:
		return false
	}
	stream := o.Stream()
	var same []*Output
	for _, v := range versions {
		if v.Stream() == stream {
			same = append(same, v)
		}
	}
	latest := LatestOf(append(same, o))
	return latest == o || (latest != nil && latest.Path == o.Path)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
