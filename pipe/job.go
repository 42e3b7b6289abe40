// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipe

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/diffeo/go-pini/template"
	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultConfigPath is where a job keeps its config, relative to the
// job directory.
const DefaultConfigPath = ".pini/config.yml"

// Layout says where jobs live.
type Layout struct {
	// JobsRoot is the directory containing every job.
	JobsRoot string

	// ConfigPath is the job config file.  A relative path is
	// relative to each job directory; an absolute path is shared
	// by every job.  Empty means DefaultConfigPath.
	ConfigPath string
}

// Root returns the cleaned jobs root.
func (l Layout) Root() string {
	return cleanPath(l.JobsRoot)
}

// ConfigFile returns the config file of the job at jobPath.
func (l Layout) ConfigFile(jobPath string) string {
	configPath := l.ConfigPath
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	if path.IsAbs(configPath) || filepath.IsAbs(configPath) {
		return cleanPath(configPath)
	}
	return path.Join(cleanPath(jobPath), configPath)
}

// JobPath returns the directory of the job containing p.
func (l Layout) JobPath(p string) (string, error) {
	root := l.Root()
	if root == "" {
		return "", ErrNoJobsRoot
	}
	p = cleanPath(p)
	if !strings.HasPrefix(p, root+"/") {
		return "", ErrOutsideRoot{Root: root, Path: p}
	}
	name := strings.SplitN(p[len(root)+1:], "/", 2)[0]
	return root + "/" + name, nil
}

// OpenJob reads the config of the job containing p and returns the
// job.
func (l Layout) OpenJob(p string) (*Job, error) {
	jobPath, err := l.JobPath(p)
	if err != nil {
		return nil, err
	}
	config, err := ReadJobConfig(l.ConfigFile(jobPath))
	if err != nil {
		return nil, err
	}
	return NewJob(jobPath, config)
}

// SetupJob creates a new job directory containing the built-in
// config.  An existing job keeps its config.
func (l Layout) SetupJob(name string) (*Job, error) {
	root := l.Root()
	if root == "" {
		return nil, ErrNoJobsRoot
	}
	jobPath := root + "/" + name
	configFile := l.ConfigFile(jobPath)
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(path.Dir(configFile), 0755); err != nil {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{
			"job":    name,
			"config": configFile,
		}).Info("setting up job")
		if err = renameio.WriteFile(configFile, []byte(DefaultConfigYAML), 0644); err != nil {
			return nil, errors.Wrapf(err, "writing %v", configFile)
		}
	}
	return l.OpenJob(jobPath)
}

// Job is the root of a production.
type Job struct {
	Name      string
	Path      string
	Config    JobConfig
	Templates *template.Set
}

// NewJob creates a job from its directory and config.
func NewJob(jobPath string, config JobConfig) (*Job, error) {
	jobPath = cleanPath(jobPath)
	templates, err := config.BuildTemplates()
	if err != nil {
		return nil, errors.Wrapf(err, "job %v", jobPath)
	}
	return &Job{
		Name:      path.Base(jobPath),
		Path:      jobPath,
		Config:    config,
		Templates: templates,
	}, nil
}

func (j *Job) String() string {
	return "Job(" + j.Name + ")"
}

// Less orders jobs by name, naturally.
func (j *Job) Less(o *Job) bool {
	return natLess(j.Name, o.Name)
}

// Policies returns the job's token validation policies.
func (j *Job) Policies() template.Policies {
	return j.Config.Tokens
}

// data returns the tokens every template in the job may use.
func (j *Job) data() map[string]string {
	return map[string]string{
		"job":      j.Name,
		"job_path": j.Path,
	}
}

// FindTemplates returns the job templates matching a query, with the
// job's own tokens applied.
func (j *Job) FindTemplates(q template.Query) []*template.Template {
	return applyAll(j.Templates.Find(q), j.data())
}

// FindTemplate returns the single best template for a query, with
// the job's own tokens applied.
func (j *Job) FindTemplate(q template.Query) (*template.Template, error) {
	tmpl, err := j.Templates.FindOne(q)
	if err != nil {
		return nil, err
	}
	return tmpl.ApplyData(j.data()), nil
}

// EntityTemplates returns the entity_path templates for one profile.
func (j *Job) EntityTemplates(profile string) []*template.Template {
	var result []*template.Template
	for _, t := range j.FindTemplates(template.Query{Type: "entity_path", Profile: profile}) {
		if t.Profile == profile {
			result = append(result, t)
		}
	}
	return result
}

// SequenceTemplate returns the template of sequence directories, or
// ErrNoTemplate if shots are not grouped into sequence directories.
func (j *Job) SequenceTemplate() (*template.Template, error) {
	return j.FindTemplate(template.Query{Type: "sequence_path", Profile: ShotProfile})
}

// UsesSequenceDirs says whether shots live in per-sequence
// directories.
func (j *Job) UsesSequenceDirs() bool {
	_, err := j.SequenceTemplate()
	return err == nil
}

// AssetTypeTemplate returns the template of asset type directories,
// or an error if assets are not grouped into them.
func (j *Job) AssetTypeTemplate() (*template.Template, error) {
	tmpl, err := j.FindTemplate(template.Query{Type: "entity_path", Profile: AssetProfile})
	if err != nil {
		return nil, err
	}
	dir, err := tmpl.CropToToken("asset_type")
	if err != nil {
		return nil, err
	}
	if dir.Pattern == tmpl.Pattern {
		return nil, template.ErrNoTemplate{Query: template.Query{Type: "asset_type_path"}}
	}
	return dir, nil
}

// UsesAssetTypeDirs says whether assets live in per-type
// directories.
func (j *Job) UsesAssetTypeDirs() bool {
	_, err := j.AssetTypeTemplate()
	return err == nil
}

// ToAsset builds the asset with a given type and name.  The asset
// need not exist.
func (j *Job) ToAsset(assetType, asset string) (*Entity, error) {
	return j.toEntity(AssetProfile, map[string]string{
		"asset_type": assetType,
		"asset":      asset,
	})
}

// ToShot builds the shot with a given sequence and name.  The shot
// need not exist.
func (j *Job) ToShot(sequence, shot string) (*Entity, error) {
	return j.toEntity(ShotProfile, map[string]string{
		"sequence": sequence,
		"shot":     shot,
	})
}

func (j *Job) toEntity(profile string, data map[string]string) (*Entity, error) {
	tmpl, err := j.FindTemplate(template.Query{Type: "entity_path", Profile: profile})
	if err != nil {
		return nil, err
	}
	p, err := tmpl.Format(data)
	if err != nil {
		return nil, err
	}
	return NewEntity(j, p)
}

// ToSequence builds the sequence with a given name.
func (j *Job) ToSequence(name string) (*Sequence, error) {
	if err := j.Policies().Validate("sequence", name); err != nil {
		return nil, ErrNotValid{Kind: KindSequence, Path: name, Err: err}
	}
	tmpl, err := j.SequenceTemplate()
	if err != nil {
		return &Sequence{Job: j, Name: name}, nil
	}
	p, err := tmpl.Format(map[string]string{"sequence": name})
	if err != nil {
		return nil, err
	}
	return NewSequence(j, p)
}

// applyAll applies data to each template.
func applyAll(templates []*template.Template, data map[string]string) []*template.Template {
	result := make([]*template.Template, len(templates))
	for i, t := range templates {
		result[i] = t.ApplyData(data)
	}
	return result
}
