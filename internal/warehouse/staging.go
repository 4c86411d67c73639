package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapstar/pkg/core"
)

// StagingReader reads raw rows from the staging table. Every column is
// scanned into a nullable string, whatever its declared type.
type StagingReader struct {
	dialect *core.Dialect
	table   string
	columns map[string]string
}

// NewStagingReader creates a reader for cfg. Missing column mappings fall
// back to core.DefaultStagingColumns.
func NewStagingReader(d *core.Dialect, cfg core.StagingConfig) *StagingReader {
	cols := core.DefaultStagingColumns()
	for field, col := range cfg.Columns {
		if col != "" {
			cols[canonicalField(field)] = col
		}
	}
	return &StagingReader{
		dialect: d,
		table:   orDefault(cfg.Table, core.DefaultStagingTable),
		columns: cols,
	}
}

// canonicalField matches field names case-insensitively, with or without
// underscores, so order_date and OrderDate both name FieldOrderDate.
func canonicalField(name string) string {
	flat := strings.ReplaceAll(strings.ToLower(name), "_", "")
	for _, f := range core.StagingFields {
		if strings.ToLower(f) == flat {
			return f
		}
	}
	return name
}

// Query returns the SELECT statement used to read staging.
func (r *StagingReader) Query() string {
	cols := make([]string, len(core.StagingFields))
	for i, f := range core.StagingFields {
		cols[i] = r.dialect.QuoteIdent(r.columns[f])
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), r.dialect.QuoteIdent(r.table))
}

// ReadStaging reads every staging row. Row ordinals start at 1.
func (r *StagingReader) ReadStaging(ctx context.Context, q core.Querier) ([]core.StagingRow, error) {
	rows, err := q.QueryContext(ctx, r.Query())
	if err != nil {
		return nil, fmt.Errorf("failed to read staging table %s: %w", r.table, err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.StagingRow
	for rows.Next() {
		row := core.StagingRow{Row: len(out) + 1}
		if err := rows.Scan(
			&row.CustomerName,
			&row.EmailAddress,
			&row.Item,
			&row.SalesOrderNumber,
			&row.SalesOrderLineNumber,
			&row.OrderDate,
			&row.Quantity,
			&row.TaxAmount,
			&row.UnitPrice,
		); err != nil {
			return nil, fmt.Errorf("failed to scan staging row %d: %w", len(out)+1, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating staging rows: %w", err)
	}
	return out, nil
}

var _ core.StagingSource = (*StagingReader)(nil)
