package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapstar/pkg/core"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, DB, Dialect, Exec and lock implementations.
type BaseSQLAdapter struct {
	Pool       *sql.DB
	Cfg        core.AdapterConfig
	Logger     *slog.Logger
	SQLDialect *core.Dialect
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.Pool != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		err := b.Pool.Close()
		b.Pool = nil
		return err
	}
	return nil
}

// DB returns the underlying connection pool, nil before Connect.
func (b *BaseSQLAdapter) DB() *sql.DB {
	return b.Pool
}

// Dialect returns the SQL dialect of the adapter.
func (b *BaseSQLAdapter) Dialect() *core.Dialect {
	return b.SQLDialect
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if b.Pool == nil {
		return fmt.Errorf("database connection not established")
	}
	if _, err := b.Pool.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.Pool != nil
}

// AcquireLoadLock is a no-op for engines whose own write locking already
// serialises writers (DuckDB, SQLite).
func (b *BaseSQLAdapter) AcquireLoadLock(_ context.Context, _ *sql.Tx, name string) (func(context.Context) error, error) {
	if b.Logger != nil {
		b.Logger.Debug("relying on engine write lock", slog.String("lock", name))
	}
	return func(context.Context) error { return nil }, nil
}

// OpenAndPing opens a database/sql pool for driver and verifies it.
func (b *BaseSQLAdapter) OpenAndPing(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}
	return db, nil
}
