package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLoadCommand(t *testing.T) {
	cmd := NewLoadCommand()

	assert.Equal(t, "load", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	flags := []string{"year", "window", "timeout", "fact-policy", "json"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, []string{"run"}, cmd.Aliases)
}

func TestNewRunsCommand(t *testing.T) {
	cmd := NewRunsCommand()

	assert.Equal(t, "runs", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("limit"))
	assert.NotNil(t, cmd.Flags().Lookup("json"))
}

func TestNewSchemaCommand(t *testing.T) {
	cmd := NewSchemaCommand()

	assert.Equal(t, "schema", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
}

func TestNewInitCommand_Metadata(t *testing.T) {
	cmd := NewInitCommand()

	assert.Equal(t, "init [directory]", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("force"))
	assert.NotNil(t, cmd.Flags().Lookup("type"))
}

func TestWindowFromOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    LoadOptions
		want    string
		wantErr bool
	}{
		{name: "year", opts: LoadOptions{Year: 2021}, want: "2021"},
		{name: "month window", opts: LoadOptions{Window: "2021-05"}, want: "2021-05-01..2021-05-31"},
		{name: "range window", opts: LoadOptions{Window: "2021-01-01..2021-03-31"}, want: "2021-01-01..2021-03-31"},
		{name: "bad year", opts: LoadOptions{Year: -1}, wantErr: true},
		{name: "bad window", opts: LoadOptions{Window: "last week"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := windowFromOptions(&tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, w.String())
		})
	}
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "0123abcd", shortID("0123abcd-ffff-4000-8000-000000000000"))
	assert.Equal(t, "abc", shortID("abc"))
}
