// Package mysql provides a MySQL warehouse adapter for leapstar.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	driver "github.com/go-sql-driver/mysql"
	"github.com/leapstack-labs/leapstar/pkg/adapter"
	"github.com/leapstack-labs/leapstar/pkg/core"
)

// Dialect is the MySQL SQL dialect. Unique keys need bounded VARCHARs.
// Text columns use a binary collation so natural and business keys compare
// byte for byte, as they do in the loader.
var Dialect = &core.Dialect{
	Name:          "mysql",
	Placeholder:   core.PlaceholderQuestion,
	KeyType:       "VARCHAR(64)",
	TextType:      "VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin",
	IntegerType:   "BIGINT",
	FloatType:     "DOUBLE",
	DateType:      "DATE",
	TimestampType: "DATETIME(6)",
	InlineIndexes: true,
	QuoteChar:     '`',
}

// lockWaitSeconds bounds how long GET_LOCK waits for a concurrent load.
const lockWaitSeconds = 30

// Adapter implements the adapter.Adapter interface for MySQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new MySQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger, SQLDialect: Dialect},
	}
}

// Connect establishes a connection to MySQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	a.Logger.Debug("connecting to mysql", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := a.OpenAndPing(ctx, "mysql", BuildDSN(cfg))
	if err != nil {
		return err
	}

	a.Pool = db
	a.Cfg = cfg
	return nil
}

// AcquireLoadLock takes a named session lock with GET_LOCK. Session locks
// outlive transactions, so the caller must run release before finishing tx.
func (a *Adapter) AcquireLoadLock(ctx context.Context, tx *sql.Tx, name string) (func(context.Context) error, error) {
	a.Logger.Debug("acquiring named lock", slog.String("lock", name))

	var got sql.NullInt64
	if err := tx.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", name, lockWaitSeconds).Scan(&got); err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	if !got.Valid || got.Int64 != 1 {
		return nil, fmt.Errorf("failed to acquire lock %s within %ds: %w", name, lockWaitSeconds, core.ErrLoadInProgress)
	}

	release := func(ctx context.Context) error {
		if _, err := tx.ExecContext(ctx, "DO RELEASE_LOCK(?)", name); err != nil {
			return fmt.Errorf("failed to release lock %s: %w", name, err)
		}
		return nil
	}
	return release, nil
}

// BuildDSN constructs a go-sql-driver DSN from the adapter config.
func BuildDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	dc := driver.NewConfig()
	dc.User = cfg.Username
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	dc.DBName = cfg.Database
	dc.ParseTime = true
	if len(cfg.Options) > 0 {
		dc.Params = make(map[string]string, len(cfg.Options))
		for k, v := range cfg.Options {
			dc.Params[k] = v
		}
	}
	return dc.FormatDSN()
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
