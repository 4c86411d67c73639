package cli

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/leapstack-labs/leapstar/internal/cli/config"
	clitest "github.com/leapstack-labs/leapstar/internal/cli/testutil"
	"github.com/leapstack-labs/leapstar/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cmd := NewRootCmd()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCmd_Version(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "leapstar v"+Version)
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	for _, name := range []string{"load", "runs", "schema", "init", "version", "completion"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRootCmd_LoadFactPolicyFlag(t *testing.T) {
	sale := testutil.NewSale("Alice", "a@x.com", "Widget", "SO1", "1", "2021-05-01", "2", "1.00", "9.99")
	dir := clitest.SetupTestProject(t, sale)
	clitest.Chdir(t, dir)

	_, _, err := run(t, "load", "--year", "2021", "--json")
	require.NoError(t, err)

	// The flag selects the error policy, so reloading the same order line fails.
	out, _, err := run(t, "load", "--year", "2021", "--json", "--fact-policy", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is already loaded")

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "failed", res["status"])

	// Append keeps history and writes the row again.
	out, _, err = run(t, "load", "--year", "2021", "-o", "json", "--fact-policy", "append")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.InDelta(t, 1, res["facts_appended"], 0)
}

func TestRootCmd_InvalidConfigFlag(t *testing.T) {
	dir := clitest.SetupTestProject(t)
	clitest.Chdir(t, dir)

	_, _, err := run(t, "runs", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log_level")
}

func TestRootCmd_Completion(t *testing.T) {
	out, _, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "leapstar")
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.Config
		level slog.Level
	}{
		{"default warn", config.Config{LogLevel: "warn"}, slog.LevelWarn},
		{"info", config.Config{LogLevel: "info"}, slog.LevelInfo},
		{"verbose forces debug", config.Config{LogLevel: "error", Verbose: true}, slog.LevelDebug},
		{"unparseable falls back to warn", config.Config{LogLevel: ""}, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, &tt.cfg)
			assert.True(t, logger.Enabled(t.Context(), tt.level))
			if tt.level > slog.LevelDebug {
				assert.False(t, logger.Enabled(t.Context(), tt.level-4))
			}
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &config.Config{LogLevel: "info", LogFormat: "json"})
	logger.Info("load started", "window", "2021")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "load started", rec["msg"])
	assert.Equal(t, "2021", rec["window"])
}
