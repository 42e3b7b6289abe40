// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipe

import (
	"path/filepath"
	"testing"

	"github.com/diffeo/go-pini/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, DefaultConfigName, config.Name)
	assert.Equal(t, 3, config.VerLen())
	assert.Equal(t, "ma", config.DefaultExtn("maya"))
	assert.Equal(t, "hipnc", config.DefaultExtn("hou"))
	assert.Equal(t, "", config.DefaultTag())
	assert.True(t, config.Tokens["task"].NoUnderscore)
	assert.Equal(t, []string{"{entity_path}/{task}"}, config.Templates["work_dir"])
}

func TestParseJobConfigOverride(t *testing.T) {
	config, err := ParseJobConfig([]byte(`
tokens:
  ver:
    len: 4
  tag:
    default: main
templates:
  work:
    - "{work_dir}/{entity}_{task}_v{ver}.{extn}"
    - "{work_dir}/{entity}_v{ver}.{extn}"
`))
	require.NoError(t, err)
	assert.Equal(t, 4, config.VerLen())
	assert.True(t, config.Tokens["ver"].StrictLen, "merged over defaults")
	assert.Equal(t, "main", config.DefaultTag())
	assert.Len(t, config.Templates["work"], 2)
	assert.Len(t, config.Templates["publish"], 1)

	set, err := config.BuildTemplates()
	require.NoError(t, err)
	works := set.Find(template.Query{Type: "work"})
	require.Len(t, works, 2)
	assert.Equal(t, 0, works[0].Alt)
	assert.Equal(t, 1, works[1].Alt)
}

func TestParseJobConfigBad(t *testing.T) {
	_, err := ParseJobConfig([]byte("- just\n- a list\n"))
	assert.Error(t, err)
}

func TestReadJobConfigMissing(t *testing.T) {
	config, err := ReadJobConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Templates, config.Templates)
}

func TestDerivedTemplates(t *testing.T) {
	set, err := DefaultConfig().BuildTemplates()
	require.NoError(t, err)

	seqs := set.Find(template.Query{Type: "sequence_path", Profile: ShotProfile})
	require.Len(t, seqs, 1)
	assert.Equal(t, "{job_path}/episodes/{sequence}", seqs[0].Pattern)
	assert.Equal(t, template.Dir, seqs[0].PathType)

	archives := set.Find(template.Query{Type: "ass_gz"})
	require.Len(t, archives, 1)
	assert.Equal(t, "{work_dir}/_cache/v{ver}/{entity}_{task}_{output_name}_v{ver}.ass.gz",
		archives[0].Pattern)

	var dirs []string
	for _, tmpl := range set.Find(template.Query{Type: "seq_dir"}) {
		dirs = append(dirs, tmpl.Pattern)
	}
	assert.ElementsMatch(t, []string{
		"{work_dir}/_cache/v{ver}",
		"{work_dir}/_blast/v{ver}",
		"{entity_path}/_render/{task}/v{ver}",
		"{entity_path}/_plate/{output_name}/v{ver}",
	}, dirs)
}

func TestMergeMaps(t *testing.T) {
	base := map[string]interface{}{
		"a": map[string]interface{}{"x": 1, "y": 2},
		"b": "keep",
	}
	over := map[string]interface{}{
		"a": map[string]interface{}{"y": 3},
		"c": nil,
	}
	merged := mergeMaps(base, over)
	assert.Equal(t, map[string]interface{}{"x": 1, "y": 3}, merged["a"])
	assert.Equal(t, "keep", merged["b"])
	assert.Nil(t, merged["c"])

	merged = mergeMaps(base, map[string]interface{}{"a": nil})
	assert.Equal(t, base["a"], merged["a"])
}
