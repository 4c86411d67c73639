package config

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	intconfig "github.com/leapstack-labs/leapstar/internal/config"
	"github.com/leapstack-labs/leapstar/pkg/core"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// envPrefix prefixes every environment variable read by the loader.
const envPrefix = "LEAPSTAR_"

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// flagKeys maps CLI flag names to config keys where the two differ.
var flagKeys = map[string]string{
	"state":       "state_path",
	"database":    "target.database",
	"env":         "environment",
	"timeout":     "load.timeout",
	"fact-policy": "load.fact_policy",
	"log-level":   "log_level",
	"log-format":  "log_format",
	"verbose":     "verbose",
	"output":      "output",
}

// sectionPrefixes are the nested sections addressable from env vars.
var sectionPrefixes = []string{"target_", "staging_", "tables_", "load_"}

// envKey maps LEAPSTAR_LOAD_FACT_POLICY to load.fact_policy and
// LEAPSTAR_STAGING_COLUMNS_ORDER_DATE to staging.columns.order_date.
// Top-level keys such as LEAPSTAR_STATE_PATH keep their underscores.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if rest, ok := strings.CutPrefix(key, "staging_columns_"); ok {
		return "staging.columns." + rest
	}
	for _, p := range sectionPrefixes {
		if rest, ok := strings.CutPrefix(key, p); ok {
			return strings.TrimSuffix(p, "_") + "." + rest
		}
	}
	return key
}

// findProjectRoot picks the directory relative paths resolve against.
// Priority: explicit config file directory > nearest ancestor with a
// leapstar config > current working directory.
func findProjectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
	}

	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := intconfig.FindProjectRoot(cwd, maxUpwardSearchLevels); root != "" {
		return root
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, in-memory or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	return LoadConfigWithTarget(cfgFile, "", flags)
}

// LoadConfigWithTarget loads configuration with an optional target override.
// targetOverride names the entry of environments whose settings are merged
// over the base configuration; empty uses the configured environment.
func LoadConfigWithTarget(cfgFile string, targetOverride string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	projectRoot := findProjectRoot(cfgFile)

	// Paths given as flags are relative to the working directory, not the
	// project root.
	var flagStatePath, flagDatabase string
	if flags != nil {
		if f := flags.Lookup("state"); f != nil && f.Changed && f.Value.String() != "" {
			flagStatePath, _ = filepath.Abs(f.Value.String())
		}
		if f := flags.Lookup("database"); f != nil && f.Changed && f.Value.String() != "" {
			if v := f.Value.String(); v == ":memory:" {
				flagDatabase = v
			} else {
				flagDatabase, _ = filepath.Abs(v)
			}
		}
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"state_path":  DefaultStateFile,
		"environment": DefaultEnv,
		"verbose":     false,
		"output":      DefaultOutput,
		"log_level":   DefaultLogLevel,
		"log_format":  DefaultLogFormat,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	if cfgFile == "" {
		cfgFile = intconfig.FindConfigFile(projectRoot)
	}
	configFileUsed = cfgFile
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (LEAPSTAR_ prefix)
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority)
	fromFlags := make(map[string]bool)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				// Not a config flag (config, target, command-local flags).
				return "", nil
			}
			fromFlags[key] = true
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ProjectRoot = projectRoot
	if flagStatePath != "" {
		cfg.StatePath = flagStatePath
	} else {
		cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)
	}

	envForTarget := cfg.Environment
	if targetOverride != "" {
		envForTarget = targetOverride
		cfg.Environment = targetOverride
	}
	if envCfg, ok := cfg.Environments[envForTarget]; ok {
		applyEnvConfig(&cfg, envCfg, fromFlags)
	}

	if cfg.Target == nil {
		cfg.Target = &core.TargetConfig{Type: "duckdb"}
	}
	if flagDatabase != "" {
		cfg.Target.Database = flagDatabase
	}

	cfg.Target.Type = strings.ToLower(cfg.Target.Type)
	intconfig.ApplyTargetDefaults(cfg.Target)
	intconfig.ApplyTablesDefaults(&cfg.Tables)
	intconfig.ApplyLoadDefaults(&cfg.Load)
	expandTargetEnvVars(cfg.Target)

	if flagDatabase == "" && cfg.Target.Type != "postgres" && cfg.Target.Type != "mysql" {
		cfg.Target.Database = resolvePathRelativeTo(cfg.Target.Database, projectRoot)
	}

	if err := intconfig.ValidateTarget(cfg.Target); err != nil {
		return nil, fmt.Errorf("invalid target configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	currentConfig = &cfg

	return &cfg, nil
}

// applyEnvConfig merges an environment entry over the base configuration.
// Keys set by flags keep the flag value.
func applyEnvConfig(cfg *Config, envCfg EnvConfig, fromFlags map[string]bool) {
	if envCfg.Target != nil {
		cfg.Target = MergeTargetConfig(cfg.Target, envCfg.Target)
	}
	if s := envCfg.Staging; s != nil {
		if s.Table != "" {
			cfg.Staging.Table = s.Table
		}
		if len(s.Columns) > 0 {
			merged := make(map[string]string, len(cfg.Staging.Columns)+len(s.Columns))
			maps.Copy(merged, cfg.Staging.Columns)
			maps.Copy(merged, s.Columns)
			cfg.Staging.Columns = merged
		}
	}
	if l := envCfg.Load; l != nil {
		if l.Timeout != 0 && !fromFlags["load.timeout"] {
			cfg.Load.Timeout = l.Timeout
		}
		if l.FactPolicy != "" && !fromFlags["load.fact_policy"] {
			cfg.Load.FactPolicy = l.FactPolicy
		}
		if l.MaxOrderNumberLength != 0 {
			cfg.Load.MaxOrderNumberLength = l.MaxOrderNumberLength
		}
		if l.LockName != "" {
			cfg.Load.LockName = l.LockName
		}
	}
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig or LoadConfigWithTarget is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})
}

// expandTargetEnvVars expands environment variables in sensitive target fields.
func expandTargetEnvVars(t *core.TargetConfig) {
	if t == nil {
		return
	}
	t.Password = expandEnvVars(t.Password)
	t.User = expandEnvVars(t.User)
	t.Host = expandEnvVars(t.Host)
	t.Database = expandEnvVars(t.Database)
}

// MergeTargetConfig merges two target configs, with override taking precedence.
func MergeTargetConfig(base, override *core.TargetConfig) *core.TargetConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := &core.TargetConfig{
		Type:     base.Type,
		Database: base.Database,
		Host:     base.Host,
		Port:     base.Port,
		User:     base.User,
		Password: base.Password,
		Schema:   base.Schema,
		Options:  make(map[string]string),
		Params:   make(map[string]any),
	}
	maps.Copy(merged.Options, base.Options)
	maps.Copy(merged.Params, base.Params)

	if override.Type != "" {
		merged.Type = override.Type
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.User != "" {
		merged.User = override.User
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	if override.Schema != "" {
		merged.Schema = override.Schema
	}
	maps.Copy(merged.Options, override.Options)
	maps.Copy(merged.Params, override.Params)

	return merged
}
