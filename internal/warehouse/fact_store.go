package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/leapstar/pkg/core"
)

// businessKeyBatch bounds the number of bind parameters per lookup query.
const businessKeyBatch = 500

// FactStore reads and appends rows of the sales fact table.
type FactStore struct {
	dialect    *core.Dialect
	table      string
	dimensions []core.DimensionSpec
}

// NewFactStore creates a store for the fact table of schema s.
func NewFactStore(d *core.Dialect, s Schema) *FactStore {
	return &FactStore{dialect: d, table: s.FactTable, dimensions: s.Dimensions}
}

// Table returns the fact table name.
func (s *FactStore) Table() string {
	return s.table
}

// ExistingBusinessKeys returns which of the given order numbers' lines are
// already present in the fact table.
func (s *FactStore) ExistingBusinessKeys(ctx context.Context, q core.Querier, orderNumbers []string) (map[core.BusinessKey]struct{}, error) {
	existing := make(map[core.BusinessKey]struct{})

	for start := 0; start < len(orderNumbers); start += businessKeyBatch {
		end := min(start+businessKeyBatch, len(orderNumbers))
		batch := orderNumbers[start:end]

		//nolint:gosec // identifier is quoted, values are bound
		query := fmt.Sprintf(
			"SELECT sales_order_number, sales_order_line_number FROM %s WHERE sales_order_number IN (%s)",
			s.dialect.QuoteIdent(s.table), s.dialect.Placeholders(1, len(batch)),
		)
		args := make([]any, len(batch))
		for i, v := range batch {
			args[i] = v
		}

		if err := s.scanBusinessKeys(ctx, q, query, args, existing); err != nil {
			return nil, err
		}
	}
	return existing, nil
}

func (s *FactStore) scanBusinessKeys(ctx context.Context, q core.Querier, query string, args []any, into map[core.BusinessKey]struct{}) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to read existing business keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var k core.BusinessKey
		if err := rows.Scan(&k.SalesOrderNumber, &k.SalesOrderLineNumber); err != nil {
			return fmt.Errorf("failed to scan business key: %w", err)
		}
		into[k] = struct{}{}
	}
	return rows.Err()
}

// Append inserts fact rows.
func (s *FactStore) Append(ctx context.Context, q core.Querier, facts []core.FactRow, runID string, loadedAt time.Time) error {
	if len(facts) == 0 {
		return nil
	}

	cols := make([]string, 0, len(s.dimensions)+8)
	for _, dim := range s.dimensions {
		cols = append(cols, s.dialect.QuoteIdent(dim.FactColumn))
	}
	cols = append(cols,
		"sales_order_number", "sales_order_line_number", "order_date",
		"quantity", "tax_amount", "unit_price", "load_run_id", "loaded_at",
	)

	//nolint:gosec // identifiers are quoted and come from configuration
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.dialect.QuoteIdent(s.table), strings.Join(cols, ", "), s.dialect.Placeholders(1, len(cols)))

	stmt, err := q.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare fact insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	loaded := s.dialect.TimestampValue(loadedAt)
	for _, f := range facts {
		args := make([]any, 0, len(cols))
		for _, dim := range s.dimensions {
			args = append(args, f.SurrogateFor(dim.Name))
		}
		args = append(args,
			f.SalesOrderNumber, f.SalesOrderLineNumber, s.dialect.DateValue(f.OrderDate),
			f.Quantity, f.TaxAmount, f.UnitPrice, runID, loaded,
		)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to append fact %s: %w", f.BusinessKey(), err)
		}
	}
	return nil
}

// Count returns the number of rows in the fact table.
func (s *FactStore) Count(ctx context.Context, q core.Querier) (int, error) {
	return countRows(ctx, q, s.dialect, s.table)
}
