// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/diffeo/go-pini/pipe"
	"github.com/diffeo/go-pini/template"
	"github.com/sirupsen/logrus"
)

// Output is a cached pipe.Output.
type Output struct {
	*pipe.Output
	entity  *Entity
	workDir *WorkDir
	seqDir  *OutputSeqDir

	exists   memo[bool]
	metadata memo[pipe.Metadata]
	frames   fileMemo[[]int]
}

var (
	outputExists   = method{level: "output", name: "exists"}
	outputMetadata = method{level: "output", name: "metadata"}
	outputFrames   = method{level: "output", name: "frames"}
)

func newOutput(upstream *pipe.Output, ety *Entity, wd *WorkDir) *Output {
	out := &Output{Output: upstream, entity: ety, workDir: wd}
	base := strings.TrimSuffix(upstream.Filename(), "."+upstream.Extn)
	base = strings.TrimRight(strings.Replace(base, template.FramePlaceholder, "", 1), "._")
	name := base + "_" + strings.Replace(upstream.Extn, ".", "_", -1) + "_" + outputFrames.name + ".yml"
	out.frames = newFileMemo[[]int](ety.job.root, upstream.Dir(),
		path.Join(upstream.Dir(), pipe.MetadataDir, name))
	return out
}

func (out *Output) key() string {
	return outputKey(out.Path)
}

// Entity returns the entity the output belongs to.
func (out *Output) Entity() *Entity {
	return out.entity
}

// WorkDir returns the work dir the output is stored in, or nil for
// entity-level outputs.
func (out *Output) WorkDir() *WorkDir {
	return out.workDir
}

// OutputSeqDir returns the sequence directory holding the output, if
// it was found through one.
func (out *Output) OutputSeqDir() *OutputSeqDir {
	return out.seqDir
}

func (out *Output) root() *Root {
	return out.entity.job.root
}

// Exists says whether the output is on disk: the file, or at least
// one frame of a sequence.  The answer is remembered until the
// output is deleted or policy is ForceReread.
func (out *Output) Exists(policy RefreshPolicy) bool {
	exists, _ := out.exists.get(outputExists, policy, func() (bool, error) {
		if out.Kind == pipe.OutputSeq {
			frames, err := out.Frames(policy)
			return err == nil && len(frames) > 0, nil
		}
		_, err := os.Stat(filepath.FromSlash(out.Path))
		return err == nil, nil
	})
	return exists
}

// Metadata returns the output's sidecar metadata.
func (out *Output) Metadata(policy RefreshPolicy) (pipe.Metadata, error) {
	return out.metadata.get(outputMetadata, policy, func() (pipe.Metadata, error) {
		return pipe.ReadMetadata(out.Path)
	})
}

// SetMetadata replaces the output's sidecar metadata.
func (out *Output) SetMetadata(meta pipe.Metadata) error {
	if err := pipe.WriteMetadata(out.Path, meta); err != nil {
		return err
	}
	_, err := out.Metadata(ForceReread)
	return err
}

// ContentType describes what the output holds, from its type and
// metadata.
func (out *Output) ContentType() string {
	meta, err := out.Metadata(UseCache)
	if err != nil {
		meta = pipe.Metadata{}
	}
	return pipe.ContentType(out.Output, meta)
}

// Frames lists the frames of a sequence.  Other outputs have none.
// The list is kept in a cache file beside the sequence.
func (out *Output) Frames(policy RefreshPolicy) ([]int, error) {
	if out.Kind != pipe.OutputSeq {
		return nil, nil
	}
	return out.frames.get(outputFrames, policy, func() ([]int, error) {
		return out.ReadFrames()
	})
}

// FindVersions returns the outputs of the same stream, including
// this one if it exists.
func (out *Output) FindVersions(policy RefreshPolicy) ([]*Output, error) {
	outs, err := out.siblings(policy)
	if err != nil {
		return nil, err
	}
	stream := out.Stream()
	var result []*Output
	for _, other := range outs {
		if other.Stream() == stream {
			result = append(result, other)
		}
	}
	return result, nil
}

// IsLatest says whether the output is the latest of its stream.
func (out *Output) IsLatest() bool {
	versions, err := out.FindVersions(UseCache)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"output": out.Path,
			"err":    err,
		}).Warn("could not list output versions")
		return out.Latest == pipe.LatestYes
	}
	plain := make([]*pipe.Output, len(versions))
	for i, v := range versions {
		plain[i] = v.Output
	}
	return out.Output.IsLatest(plain)
}

// FindReps finds the other representations of the output among its
// entity's outputs and publishes.
func (out *Output) FindReps(filter pipe.RepFilter) ([]*Output, error) {
	candidates, err := out.candidates()
	if err != nil {
		return nil, err
	}
	plain := make([]*pipe.Output, len(candidates))
	byPath := make(map[string]*Output, len(candidates))
	for i, c := range candidates {
		plain[i] = c.Output
		byPath[c.Path] = c
	}
	contentType := func(o *pipe.Output) string {
		return byPath[o.Path].ContentType()
	}
	reps := pipe.FindReps(out.Output, plain, contentType, filter)
	result := make([]*Output, len(reps))
	for i, rep := range reps {
		result[i] = byPath[rep.Path]
	}
	return result, nil
}

// candidates returns every output of the entity and its work dirs,
// without duplicates.
func (out *Output) candidates() ([]*Output, error) {
	var (
		result []*Output
		seen   = make(map[*Output]bool)
	)
	add := func(outs []*Output) {
		for _, o := range outs {
			if !seen[o] {
				seen[o] = true
				result = append(result, o)
			}
		}
	}
	outs, err := out.entity.FindOutputs(UseCache)
	if err != nil {
		return nil, err
	}
	add(outs)
	wds, err := out.entity.FindWorkDirs(UseCache)
	if err != nil {
		return nil, err
	}
	for _, wd := range wds {
		outs, err := wd.FindOutputs(UseCache)
		if err != nil {
			return nil, err
		}
		add(outs)
	}
	return result, nil
}

// siblings returns the listing the output would appear in.
func (out *Output) siblings(policy RefreshPolicy) ([]*Output, error) {
	if out.seqDir != nil {
		return out.seqDir.FindOutputs(policy)
	}
	if out.workDir != nil {
		return out.workDir.FindOutputs(policy)
	}
	return out.entity.FindOutputs(policy)
}

// Register records a newly written output with the store and adds
// it to the listings it belongs in.
func (out *Output) Register() error {
	if err := out.root().store.RegisterOutput(out.Output); err != nil {
		return err
	}
	out.exists.set(true)
	if out.Kind == pipe.OutputSeq {
		if _, err := out.Frames(ForceReread); err != nil {
			return err
		}
	}
	logrus.WithField("output", out.Path).Info("registered output")
	return out.root().cascade(outputRegistered, out.subject())
}

// Delete removes the output from disk and from the listings it was
// in.  The wrapper stays usable and reports that it does not exist.
func (out *Output) Delete() error {
	if err := out.root().store.DeleteOutput(out.Output); err != nil {
		return err
	}
	out.exists.set(false)
	out.metadata.clear()
	out.frames.clear()
	return out.root().cascade(outputDeleted, out.subject())
}

func (out *Output) subject() subject {
	if out.seqDir == nil && out.Kind != pipe.OutputFile {
		// A sequence built with To* has not been seen in its
		// directory listing yet.
		if dirs, err := out.entity.FindOutputSeqDirs(UseCache); err == nil {
			for _, dir := range dirs {
				if dir.Path == out.Dir() {
					out.seqDir = dir
				}
			}
		}
	}
	return subject{
		root:    out.root(),
		job:     out.entity.job,
		entity:  out.entity,
		workDir: out.workDir,
		seqDir:  out.seqDir,
		output:  out,
	}
}

// OutputSeqDir is a cached pipe.OutputSeqDir.
type OutputSeqDir struct {
	*pipe.OutputSeqDir
	entity *Entity

	outputs fileMemo[[]string]
}

var seqDirOutputs = method{level: "output_seq_dir", name: "outputs"}

func newOutputSeqDir(upstream *pipe.OutputSeqDir, ety *Entity) *OutputSeqDir {
	dir := &OutputSeqDir{OutputSeqDir: upstream, entity: ety}
	name := seqDirOutputs.name + "_" + runtime.GOOS + ".cbor"
	dir.outputs = newFileMemo[[]string](ety.job.root, upstream.Path,
		path.Join(upstream.Path, pipe.MetadataDir, name))
	return dir
}

func (dir *OutputSeqDir) key() string {
	return seqDirKey(dir.Path)
}

// Entity returns the entity the directory belongs to.
func (dir *OutputSeqDir) Entity() *Entity {
	return dir.entity
}

// FindOutputs returns the sequences and videos in the directory.
// The list of paths is kept in a cache file inside it.
func (dir *OutputSeqDir) FindOutputs(policy RefreshPolicy) ([]*Output, error) {
	root := dir.entity.job.root
	paths, err := dir.outputs.get(seqDirOutputs, policy, func() ([]string, error) {
		outs, err := root.store.ReadSeqDirOutputs(dir.OutputSeqDir)
		if err != nil {
			return nil, err
		}
		result := make([]string, len(outs))
		for i, out := range outs {
			result[i] = out.Path
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	var result []*Output
	for _, p := range root.mapPaths(paths) {
		out, err := dir.output(p)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"dir":  dir.Path,
				"path": p,
				"err":  err,
			}).Debug("dropping cached output path")
			continue
		}
		result = append(result, out)
	}
	return result, nil
}

func (dir *OutputSeqDir) output(p string) (*Output, error) {
	var out *Output
	if item := dir.entity.job.root.registry.Peek(outputKey(p)); item != nil {
		out = item.(*Output)
	} else {
		plain, err := dir.NewOutput(p)
		if err != nil {
			return nil, err
		}
		out = dir.entity.wrapOutput(plain)
	}
	out.seqDir = dir
	return out, nil
}
