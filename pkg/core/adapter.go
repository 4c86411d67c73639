package core

import (
	"context"
	"database/sql"
)

// Adapter defines the interface that all warehouse adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Close closes the database connection.
	Close() error

	// DB returns the underlying connection pool.
	DB() *sql.DB

	// Dialect returns the SQL dialect spoken by the adapter.
	Dialect() *Dialect

	// AcquireLoadLock takes the single-writer lock inside tx. The returned
	// release function must run on tx before it commits or rolls back.
	AcquireLoadLock(ctx context.Context, tx *sql.Tx, name string) (release func(context.Context) error, err error)
}

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// AdapterConfigFromTarget converts a target config into an adapter config.
func AdapterConfigFromTarget(t *TargetConfig) AdapterConfig {
	cfg := AdapterConfig{
		Type:     t.Type,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
		Params:   t.Params,
	}
	if t.Type == "duckdb" || t.Type == "sqlite" {
		cfg.Path = t.Database
	}
	return cfg
}
