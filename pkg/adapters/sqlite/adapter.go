// Package sqlite provides a SQLite warehouse adapter for leapstar, backed by
// the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/leapstack-labs/leapstar/pkg/adapter"
	"github.com/leapstack-labs/leapstar/pkg/core"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// Dialect is the SQLite SQL dialect. Dates are stored as ISO-8601 text.
var Dialect = &core.Dialect{
	Name:          "sqlite",
	Placeholder:   core.PlaceholderQuestion,
	KeyType:       "TEXT",
	TextType:      "TEXT",
	IntegerType:   "INTEGER",
	FloatType:     "REAL",
	DateType:      "TEXT",
	TimestampType: "TEXT",
	DateAsText:    true,
	QuoteChar:     '"',
}

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger, SQLDialect: Dialect},
	}
}

// Connect opens the SQLite database at cfg.Path.
// Use ":memory:" or an empty path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	a.Logger.Debug("connecting to sqlite", slog.String("path", cfg.Path))

	db, err := a.OpenAndPing(ctx, "sqlite", BuildDSN(cfg.Path))
	if err != nil {
		return err
	}

	// A single connection keeps :memory: databases alive across queries and
	// matches SQLite's single-writer model.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	a.Pool = db
	a.Cfg = cfg
	return nil
}

// BuildDSN returns a modernc DSN for path with the pragmas leapstar relies on.
func BuildDSN(path string) string {
	if path == "" || path == ":memory:" {
		return ":memory:"
	}
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + q.Encode()
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
