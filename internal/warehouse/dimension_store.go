package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/leapstar/pkg/core"
)

// DimensionStore reads and appends rows of one dimension table.
type DimensionStore struct {
	dialect *core.Dialect
	spec    core.DimensionSpec
}

// NewDimensionStore creates a store for the dimension described by spec.
func NewDimensionStore(d *core.Dialect, spec core.DimensionSpec) *DimensionStore {
	return &DimensionStore{dialect: d, spec: spec}
}

// Spec returns the dimension spec.
func (s *DimensionStore) Spec() core.DimensionSpec {
	return s.spec
}

// Keys returns every natural key in the table mapped to its surrogate.
func (s *DimensionStore) Keys(ctx context.Context, q core.Querier) (map[string]string, error) {
	cols := make([]string, 0, len(s.spec.NaturalKey)+1)
	cols = append(cols, s.dialect.QuoteIdent(s.spec.KeyColumn))
	for _, attr := range s.spec.NaturalKey {
		cols = append(cols, s.dialect.QuoteIdent(attr.Column))
	}

	//nolint:gosec // identifiers are quoted and come from configuration
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), s.dialect.QuoteIdent(s.spec.Table))

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s keys: %w", s.spec.Name, err)
	}
	defer func() { _ = rows.Close() }()

	keys := make(map[string]string)
	for rows.Next() {
		var surrogate string
		parts := make([]string, len(s.spec.NaturalKey))
		dest := make([]any, 0, len(parts)+1)
		dest = append(dest, &surrogate)
		for i := range parts {
			dest = append(dest, &parts[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s key: %w", s.spec.Name, err)
		}
		keys[core.NaturalKey(parts).String()] = surrogate
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s keys: %w", s.spec.Name, err)
	}
	return keys, nil
}

// Insert appends new dimension rows.
func (s *DimensionStore) Insert(ctx context.Context, q core.Querier, rows []core.DimensionRow, runID string, loadedAt time.Time) error {
	if len(rows) == 0 {
		return nil
	}

	cols := make([]string, 0, len(s.spec.NaturalKey)+3)
	cols = append(cols, s.dialect.QuoteIdent(s.spec.KeyColumn))
	for _, attr := range s.spec.NaturalKey {
		cols = append(cols, s.dialect.QuoteIdent(attr.Column))
	}
	cols = append(cols, "load_run_id", "loaded_at")

	//nolint:gosec // identifiers are quoted and come from configuration
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.dialect.QuoteIdent(s.spec.Table), strings.Join(cols, ", "), s.dialect.Placeholders(1, len(cols)))

	stmt, err := q.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare %s insert: %w", s.spec.Name, err)
	}
	defer func() { _ = stmt.Close() }()

	loaded := s.dialect.TimestampValue(loadedAt)
	for _, row := range rows {
		if err := insertRow(ctx, stmt, row, runID, loaded); err != nil {
			return fmt.Errorf("failed to insert %s %s: %w", s.spec.Name, row.NaturalKey.Display(), err)
		}
	}
	return nil
}

func insertRow(ctx context.Context, stmt *sql.Stmt, row core.DimensionRow, runID string, loaded any) error {
	args := make([]any, 0, len(row.NaturalKey)+3)
	args = append(args, row.SurrogateKey)
	for _, v := range row.NaturalKey {
		args = append(args, v)
	}
	args = append(args, runID, loaded)
	_, err := stmt.ExecContext(ctx, args...)
	return err
}

// Count returns the number of rows in the dimension table.
func (s *DimensionStore) Count(ctx context.Context, q core.Querier) (int, error) {
	return countRows(ctx, q, s.dialect, s.spec.Table)
}

func countRows(ctx context.Context, q core.Querier, d *core.Dialect, table string) (int, error) {
	var n int
	//nolint:gosec // identifier is quoted
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+d.QuoteIdent(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}
