// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipe

import (
	"fmt"
	"io/ioutil"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/diffeo/go-pini/template"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// JobConfig is the contents of a job's config file merged over the
// built-in defaults.
type JobConfig struct {
	// Name is the name of the config the job was set up from.
	Name string `mapstructure:"name" yaml:"name,omitempty"`

	// Defaults holds per-job default values, such as
	// "maya_extn: mb".
	Defaults map[string]string `mapstructure:"defaults" yaml:"defaults,omitempty"`

	// Tokens holds the validation policy for each token.
	Tokens template.Policies `mapstructure:"tokens" yaml:"tokens,omitempty"`

	// Templates maps template names to patterns.  A list of
	// patterns defines alternatives: the second pattern gets
	// _alt1, and so on.
	Templates map[string][]string `mapstructure:"templates" yaml:"templates,omitempty"`
}

// DefaultConfigName is the name of the built-in config.
const DefaultConfigName = "pini"

// DefaultConfigYAML is the built-in job config.  A job's own config
// file is merged over it key by key.
const DefaultConfigYAML = `name: pini
defaults:
  blender_extn: blend
  c4d_extn: c4d
  hou_extn: hipnc
  maya_extn: ma
  nuke_extn: nk
  substance_extn: spp
  terragen_extn: tgd
tokens:
  asset_type:
    filter: ""
  sequence:
    filter: ""
    whitelist: []
  dcc:
    allowed: [blender, c4d, hou, maya, nuke, substance, terragen]
  task:
    nounderscore: true
  tag:
    nounderscore: true
  ver:
    len: 3
    strict_len: true
    isdigit: true
templates:
  asset_entity_path: "{job_path}/assets/{asset_type}/{asset}"
  shot_entity_path: "{job_path}/episodes/{sequence}/{shot}"
  work_dir: "{entity_path}/{task}"
  work: "{work_dir}/{entity}_{task}[_{tag}]_v{ver}.{extn}"
  publish: "{work_dir}/_publish/v{ver}/{entity}_{task}[_{tag}][_{output_type}]_v{ver}.{extn}"
  cache: "{work_dir}/_cache/v{ver}/{entity}_{task}_{output_name}_v{ver}.{extn}"
  cache_seq: "{work_dir}/_cache/v{ver}/{output_name}/{output_name}.%04d.{extn}"
  blast: "{work_dir}/_blast/v{ver}/{entity}_{task}[_{tag}]_v{ver}.%04d.{extn}"
  blast_mov: "{work_dir}/_blast/v{ver}/{entity}_{task}[_{tag}]_v{ver}.{extn}"
  render: "{entity_path}/_render/{task}/v{ver}/{output_name}/{output_name}.%04d.{extn}"
  render_mov: "{entity_path}/_render/{task}/v{ver}/{output_name}.{extn}"
  plate: "{entity_path}/_plate/{output_name}/v{ver}/{output_name}.%04d.{extn}"
`

// DefaultConfig returns the built-in job config.
func DefaultConfig() JobConfig {
	config, err := ParseJobConfig(nil)
	if err != nil {
		// DefaultConfigYAML is a constant
		panic(err)
	}
	return config
}

// ParseJobConfig merges YAML job config data over the built-in
// defaults and decodes the result.
func ParseJobConfig(data []byte) (JobConfig, error) {
	var config JobConfig
	base, err := loadYAMLMap([]byte(DefaultConfigYAML))
	if err != nil {
		return config, err
	}
	over, err := loadYAMLMap(data)
	if err != nil {
		return config, errors.Wrap(err, "reading job config")
	}
	merged := mergeMaps(base, over)
	decoderConfig := mapstructure.DecoderConfig{
		DecodeHook:       decodeLenHook,
		WeaklyTypedInput: true,
		Result:           &config,
	}
	decoder, err := mapstructure.NewDecoder(&decoderConfig)
	if err == nil {
		err = decoder.Decode(merged)
	}
	if err != nil {
		return config, errors.Wrap(err, "decoding job config")
	}
	return config, nil
}

// ReadJobConfig reads a job config file.  A missing file yields the
// default config.
func ReadJobConfig(filename string) (JobConfig, error) {
	data, err := ioutil.ReadFile(filename)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return JobConfig{}, err
	}
	config, err := ParseJobConfig(data)
	return config, errors.Wrapf(err, "%v", filename)
}

// VerLen returns the zero-padded width of version numbers.
func (c JobConfig) VerLen() int {
	if lens := c.Tokens["ver"].Len; len(lens) > 0 {
		return lens[0]
	}
	return 3
}

// DefaultExtn returns the default work file extension for a dcc.
func (c JobConfig) DefaultExtn(dcc string) string {
	return c.Defaults[dcc+"_extn"]
}

// DefaultTag returns the tag used when none is given, which may be
// empty.
func (c JobConfig) DefaultTag() string {
	return c.Tokens["tag"].Default
}

// BuildTemplates creates the template set described by this config,
// including the templates derived from it.
func (c JobConfig) BuildTemplates() (*template.Set, error) {
	names := make([]string, 0, len(c.Templates))
	for name := range c.Templates {
		names = append(names, name)
	}
	sort.Strings(names)

	set := template.NewSet()
	for _, name := range names {
		for i, pattern := range c.Templates[name] {
			tmplName := name
			if i > 0 {
				tmplName = name + "_alt" + strconv.Itoa(i)
			}
			tmpl, err := template.New(tmplName, pattern, c.Tokens)
			if err != nil {
				return nil, errors.Wrapf(err, "template %v", tmplName)
			}
			set.Add(tmpl)
		}
	}
	derived, err := deriveTemplates(set, c.Tokens)
	if err != nil {
		return nil, err
	}
	set.Add(derived...)
	return set, nil
}

// deriveTemplates builds the templates that are implied by others:
// output sequence directories, sequence directories and arnold
// archives.
func deriveTemplates(set *template.Set, policies template.Policies) ([]*template.Template, error) {
	var derived []*template.Template
	add := func(like *template.Template, typ, pattern string, pathType template.PathType) error {
		tmpl, err := template.NewWithPathType(derivedName(like, typ), pattern, pathType, policies)
		if err != nil {
			return errors.Wrapf(err, "deriving %v from %v", typ, like.Name)
		}
		derived = append(derived, tmpl)
		return nil
	}
	for _, t := range set.All() {
		switch {
		case isSeqType(t.Type) || isVideoType(t.Type):
			if !t.HasKey("ver") {
				continue
			}
			dir, err := t.CropToToken("ver")
			if err != nil {
				return nil, err
			}
			if err = add(t, "seq_dir", dir.Pattern, template.Dir); err != nil {
				return nil, err
			}
		case t.Type == "entity_path" && t.Profile == ShotProfile:
			dir, err := t.CropToToken("sequence")
			if err != nil || dir.Pattern == t.Pattern {
				// No separate sequence directories
				continue
			}
			if err = add(t, "sequence_path", dir.Pattern, template.Dir); err != nil {
				return nil, err
			}
		case t.Type == "cache" && strings.HasSuffix(t.Source, ".{extn}"):
			pattern := strings.TrimSuffix(t.Source, ".{extn}") + ".ass.gz"
			if err := add(t, "ass_gz", pattern, template.File); err != nil {
				return nil, err
			}
		}
	}
	return dedupe(derived), nil
}

// dedupe drops derived templates with the same name and pattern as an
// earlier one.  Several output types share a sequence directory.
func dedupe(templates []*template.Template) []*template.Template {
	seen := make(map[string]bool)
	var result []*template.Template
	for _, t := range templates {
		key := t.Name + "\x00" + t.Pattern
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, t)
	}
	return result
}

// derivedName builds a template name with the same dcc, profile and
// alt index as like, but a different type.
func derivedName(like *template.Template, typ string) string {
	name := typ
	if like.Profile != "" {
		name = like.Profile + "_" + name
	}
	if like.DCC != "" {
		name = like.DCC + "_" + name
	}
	if like.Alt > 0 {
		name += "_alt" + strconv.Itoa(like.Alt)
	}
	return name
}

func loadYAMLMap(data []byte) (map[string]interface{}, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return map[string]interface{}{}, nil
	}
	clean, ok := stringKeyed(raw).(map[string]interface{})
	if !ok {
		return nil, errors.New("config is not a mapping")
	}
	return clean, nil
}

// stringKeyed recursively converts the map[interface{}]interface{}
// values yaml.v2 produces into string-keyed maps.
func stringKeyed(obj interface{}) interface{} {
	switch value := obj.(type) {
	case map[interface{}]interface{}:
		result := make(map[string]interface{}, len(value))
		for k, v := range value {
			result[fmt.Sprint(k)] = stringKeyed(v)
		}
		return result
	case map[string]interface{}:
		result := make(map[string]interface{}, len(value))
		for k, v := range value {
			result[k] = stringKeyed(v)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(value))
		for i, v := range value {
			result[i] = stringKeyed(v)
		}
		return result
	}
	return obj
}

// mergeMaps returns base with over applied on top.  Nested maps are
// merged; anything else in over replaces the value in base.
func mergeMaps(base, over map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(base))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range over {
		overMap, overIsMap := v.(map[string]interface{})
		baseMap, baseIsMap := result[k].(map[string]interface{})
		if overIsMap && baseIsMap {
			result[k] = mergeMaps(baseMap, overMap)
			continue
		}
		if v == nil && baseIsMap {
			// "tokens: {sequence: }" keeps the defaults
			continue
		}
		result[k] = v
	}
	return result
}

// decodeLenHook accepts a single int where a list of lengths is
// expected, as in "ver: {len: 3}".
func decodeLenHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() == reflect.Slice && to.Elem().Kind() == reflect.Int && from.Kind() == reflect.Int {
		return []int{data.(int)}, nil
	}
	return data, nil
}
