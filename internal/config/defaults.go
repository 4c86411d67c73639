package config

import "github.com/leapstack-labs/leapstar/pkg/core"

// Default configuration values.
const (
	DefaultStateFile = ".leapstar/state.db"
	DefaultEnv       = "dev"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
)

// Default ports for network targets.
const (
	DefaultPostgresPort = 5432
	DefaultMySQLPort    = 3306
)

// ApplyTargetDefaults applies default values to a TargetConfig based on the target type.
func ApplyTargetDefaults(t *core.TargetConfig) {
	if t == nil {
		return
	}

	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}

	switch t.Type {
	case "postgres":
		if t.Port == 0 {
			t.Port = DefaultPostgresPort
		}
	case "mysql":
		if t.Port == 0 {
			t.Port = DefaultMySQLPort
		}
	}
}

// DefaultSchemaForType returns the default schema for a database type.
// MySQL has no schemas beyond the database itself, so it gets none.
func DefaultSchemaForType(dbType string) string {
	switch dbType {
	case "postgres":
		return "public"
	case "mysql":
		return ""
	}
	return "main"
}

// ApplyLoadDefaults fills unset load settings.
func ApplyLoadDefaults(l *core.LoadConfig) {
	if l.Timeout == 0 {
		l.Timeout = core.DefaultLoadTimeout
	}
	if l.FactPolicy == "" {
		l.FactPolicy = string(core.FactPolicySkip)
	}
	if l.MaxOrderNumberLength == 0 {
		l.MaxOrderNumberLength = core.DefaultMaxOrderNumberLength
	}
	if l.LockName == "" {
		l.LockName = core.DefaultLockName
	}
}

// ApplyTablesDefaults fills unset table names.
func ApplyTablesDefaults(t *core.TablesConfig) {
	if t.Customer == "" {
		t.Customer = core.DefaultCustomerTable
	}
	if t.Product == "" {
		t.Product = core.DefaultProductTable
	}
	if t.Fact == "" {
		t.Fact = core.DefaultFactTable
	}
}
