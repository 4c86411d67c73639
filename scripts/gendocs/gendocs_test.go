package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownWriter_Table(t *testing.T) {
	w := NewMarkdownWriter()
	w.Table([]string{"Option", "Description"}, [][]string{{InlineCode("--output"), "auto|text"}})

	assert.Equal(t, "| Option | Description |\n| --- | --- |\n| `--output` | auto\\|text |\n\n", string(w.Bytes()))
}

func TestGenerateCLIDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateCLIDocs(dir))

	index, err := os.ReadFile(filepath.Join(dir, "index.md"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "[`load`](/cli/load)")
	assert.Contains(t, string(index), "LEAPSTAR_LOAD_FACT_POLICY")

	load, err := os.ReadFile(filepath.Join(dir, "load.md"))
	require.NoError(t, err)
	assert.Contains(t, string(load), "`--fact-policy`")
	assert.Contains(t, string(load), "leapstar load --year 2021")
	assert.Contains(t, string(load), "Also available as `run`.")
	assert.Contains(t, string(load), "- Only one of `--year` or `--window` may be given.")
	assert.Contains(t, string(load), "- One of `--year` or `--window` is required.")
	assert.Contains(t, string(load), "| `error` | The load rolls back")
	assert.Contains(t, string(load), "| `fact` | Appending sales rows")

	runs, err := os.ReadFile(filepath.Join(dir, "runs.md"))
	require.NoError(t, err)
	assert.NotContains(t, string(runs), "## Fact Policies")
}

func TestEnvRows(t *testing.T) {
	rows := envRows([]ConfigField{
		{Name: "state_path", Type: "string", Description: "state", Category: "general"},
		{Name: "fact_policy", Type: "string", Description: "policy", Category: "load"},
		{Name: "columns", Type: "map[string]string", Description: "columns", Category: "staging"},
		{Name: "options", Type: "map[string]string", Description: "options", Category: "target"},
	})

	assert.Equal(t, [][]string{
		{"`LEAPSTAR_STATE_PATH`", "`state_path`", "state"},
		{"`LEAPSTAR_LOAD_FACT_POLICY`", "`load.fact_policy`", "policy"},
		{"`LEAPSTAR_STAGING_COLUMNS_<FIELD>`", "`staging.columns.<field>`", "columns"},
	}, rows)
}

func TestGenerateConfigDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateConfigDocs(dir))

	doc, err := os.ReadFile(filepath.Join(dir, "configuration.md"))
	require.NoError(t, err)
	assert.Contains(t, string(doc), "## Load Settings")
	assert.Contains(t, string(doc), "| `fact_policy` | string | `skip` |")
}

func TestCleanExample(t *testing.T) {
	tests := []struct {
		name    string
		example string
		want    string
	}{
		{"shared indent", "  # Load\n  leapstar load --year 2021\n", "# Load\nleapstar load --year 2021"},
		{"blank lines kept", "\n  leapstar runs\n\n  leapstar runs --json\n", "leapstar runs\n\nleapstar runs --json"},
		{"deeper lines keep extra indent", "  leapstar load \\\n    --year 2021", "leapstar load \\\n  --year 2021"},
		{"no indent", "leapstar schema", "leapstar schema"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanExample(tt.example))
		})
	}
}
