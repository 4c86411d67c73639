// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapstar/internal/cli/output"
	"github.com/leapstack-labs/leapstar/internal/testutil"
	"github.com/leapstack-labs/leapstar/pkg/adapters/sqlite"
	"github.com/leapstack-labs/leapstar/pkg/core"
)

// projectConfig points a test project at a SQLite warehouse file next to it.
const projectConfig = `environment: test
target:
  type: sqlite
  database: warehouse.db
load:
  timeout: 1m
`

// SetupTestProject creates a temporary project with a SQLite warehouse whose
// staging table holds sales. It returns the project directory.
func SetupTestProject(t *testing.T, sales ...testutil.Sale) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "leapstar.yaml"), []byte(projectConfig), 0600); err != nil {
		t.Fatalf("failed to write leapstar.yaml: %v", err)
	}

	adp := sqlite.New(nil)
	cfg := core.AdapterConfig{Type: "sqlite", Path: filepath.Join(dir, "warehouse.db")}
	if err := adp.Connect(context.Background(), cfg); err != nil {
		t.Fatalf("failed to open warehouse: %v", err)
	}
	defer func() { _ = adp.Close() }()

	testutil.CreateStagingTable(t, adp.DB(), sqlite.Dialect, core.DefaultStagingTable)
	testutil.InsertSales(t, adp.DB(), sqlite.Dialect, core.DefaultStagingTable, sales...)

	return dir
}

// Chdir changes into dir for the rest of the test.
func Chdir(t *testing.T, dir string) {
	t.Helper()
	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a new test renderer in text mode without a TTY.
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, false)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown checks that headers have content and code fences are balanced.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if n := strings.Count(md, "```"); n%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", n)
	}
	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
