// Package postgres provides a PostgreSQL warehouse adapter for leapstar.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sort"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/leapstack-labs/leapstar/pkg/adapter"
	"github.com/leapstack-labs/leapstar/pkg/core"
)

// Dialect is the PostgreSQL SQL dialect.
var Dialect = &core.Dialect{
	Name:          "postgres",
	Placeholder:   core.PlaceholderDollar,
	KeyType:       "TEXT",
	TextType:      "TEXT",
	IntegerType:   "BIGINT",
	FloatType:     "DOUBLE PRECISION",
	DateType:      "DATE",
	TimestampType: "TIMESTAMPTZ",
	QuoteChar:     '"',
}

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger, SQLDialect: Dialect},
	}
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildPostgresDSN(cfg)

	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := a.OpenAndPing(ctx, "pgx", dsn)
	if err != nil {
		return err
	}

	a.Pool = db
	a.Cfg = cfg
	return nil
}

// AcquireLoadLock takes a transaction-scoped advisory lock. PostgreSQL
// releases it on commit or rollback, so release is a no-op.
func (a *Adapter) AcquireLoadLock(ctx context.Context, tx *sql.Tx, name string) (func(context.Context) error, error) {
	key := lockKey(name)
	a.Logger.Debug("acquiring advisory lock", slog.String("lock", name), slog.Int64("key", key))

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", key); err != nil {
		return nil, fmt.Errorf("failed to acquire advisory lock %s: %w", name, err)
	}
	return func(context.Context) error { return nil }, nil
}

// lockKey maps a lock name onto the bigint key space of advisory locks.
func lockKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64()) //nolint:gosec // wrap-around is fine for a lock key
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	parts := []string{
		"host=" + quoteDSNValue(host),
		fmt.Sprintf("port=%d", port),
		"dbname=" + quoteDSNValue(cfg.Database),
		"sslmode=" + quoteDSNValue(sslmode),
	}
	if cfg.Username != "" {
		parts = append(parts, "user="+quoteDSNValue(cfg.Username))
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+quoteDSNValue(cfg.Password))
	}
	if cfg.Schema != "" {
		parts = append(parts, "search_path="+quoteDSNValue(cfg.Schema))
	}

	extra := make([]string, 0, len(cfg.Options))
	for k := range cfg.Options {
		if k != "sslmode" {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		parts = append(parts, k+"="+quoteDSNValue(cfg.Options[k]))
	}

	return strings.Join(parts, " ")
}

// quoteDSNValue quotes a keyword/value DSN value when it needs it.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
