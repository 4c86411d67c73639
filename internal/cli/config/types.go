// Package config provides configuration management for the leapstar CLI.
//
// The shared types (TargetConfig, StagingConfig, TablesConfig, LoadConfig)
// live in pkg/core and are re-exported here via type aliases.
package config

import (
	sharedcfg "github.com/leapstack-labs/leapstar/internal/config"
	"github.com/leapstack-labs/leapstar/pkg/core"
)

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = core.TargetConfig

// StagingConfig is an alias for the shared staging configuration.
type StagingConfig = core.StagingConfig

// TablesConfig is an alias for the shared star schema table names.
type TablesConfig = core.TablesConfig

// LoadConfig is an alias for the shared load tuning.
type LoadConfig = core.LoadConfig

// Config holds all CLI configuration options.
type Config struct {
	StatePath    string               `koanf:"state_path"`
	Environment  string               `koanf:"environment"`
	Verbose      bool                 `koanf:"verbose"`
	LogLevel     string               `koanf:"log_level"`
	LogFormat    string               `koanf:"log_format"`
	OutputFormat string               `koanf:"output"`
	Target       *TargetConfig        `koanf:"target"`
	Staging      StagingConfig        `koanf:"staging"`
	Tables       TablesConfig         `koanf:"tables"`
	Load         LoadConfig           `koanf:"load"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory relative paths resolve against.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	Target  *TargetConfig  `koanf:"target"`
	Staging *StagingConfig `koanf:"staging"`
	Load    *LoadConfig    `koanf:"load"`
}

// Default configuration values, shared with internal/config.
const (
	DefaultStateFile = sharedcfg.DefaultStateFile
	DefaultEnv       = sharedcfg.DefaultEnv
	DefaultOutput    = sharedcfg.DefaultOutput
	DefaultLogLevel  = sharedcfg.DefaultLogLevel
	DefaultLogFormat = sharedcfg.DefaultLogFormat
)
