// Package warehouse reads the staging table and writes the star schema:
// dimension tables and the sales fact table.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapstar/pkg/core"
)

// Schema describes the star schema tables.
type Schema struct {
	Dimensions []core.DimensionSpec
	FactTable  string
}

// DefaultSchema returns the customer/product/sales star schema using the
// given table names (empty names fall back to the defaults).
func DefaultSchema(tables core.TablesConfig) Schema {
	customer := orDefault(tables.Customer, core.DefaultCustomerTable)
	product := orDefault(tables.Product, core.DefaultProductTable)
	fact := orDefault(tables.Fact, core.DefaultFactTable)
	return Schema{
		Dimensions: []core.DimensionSpec{
			core.CustomerDimension(customer),
			core.ProductDimension(product),
		},
		FactTable: fact,
	}
}

// TableNames lists the dimension tables followed by the fact table.
func (s Schema) TableNames() []string {
	names := make([]string, 0, len(s.Dimensions)+1)
	for _, dim := range s.Dimensions {
		names = append(names, dim.Table)
	}
	return append(names, s.FactTable)
}

// DDL returns the CREATE statements for the schema in dialect d.
// Dimension tables come first so the fact table can reference them.
func (s Schema) DDL(d *core.Dialect) []string {
	stmts := make([]string, 0, len(s.Dimensions)+2)
	for _, dim := range s.Dimensions {
		stmts = append(stmts, dimensionDDL(d, dim))
	}
	stmts = append(stmts, s.factDDL(d))
	if !d.InlineIndexes {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s (sales_order_number, sales_order_line_number)",
			d.QuoteIdent(indexName(s.FactTable)), d.QuoteIdent(s.FactTable),
		))
	}
	return stmts
}

func dimensionDDL(d *core.Dialect, dim core.DimensionSpec) string {
	cols := []string{
		fmt.Sprintf("%s %s PRIMARY KEY", d.QuoteIdent(dim.KeyColumn), d.KeyType),
	}
	unique := make([]string, 0, len(dim.NaturalKey))
	for _, attr := range dim.NaturalKey {
		cols = append(cols, fmt.Sprintf("%s %s NOT NULL", d.QuoteIdent(attr.Column), d.TextType))
		unique = append(unique, d.QuoteIdent(attr.Column))
	}
	cols = append(cols,
		fmt.Sprintf("load_run_id %s NOT NULL", d.KeyType),
		fmt.Sprintf("loaded_at %s NOT NULL", d.TimestampType),
		fmt.Sprintf("UNIQUE (%s)", strings.Join(unique, ", ")),
	)
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", d.QuoteIdent(dim.Table), strings.Join(cols, ",\n\t"))
}

func (s Schema) factDDL(d *core.Dialect) string {
	cols := make([]string, 0, len(s.Dimensions)+10)
	refs := make([]string, 0, len(s.Dimensions))
	for _, dim := range s.Dimensions {
		cols = append(cols, fmt.Sprintf("%s %s NOT NULL", d.QuoteIdent(dim.FactColumn), d.KeyType))
		refs = append(refs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			d.QuoteIdent(dim.FactColumn), d.QuoteIdent(dim.Table), d.QuoteIdent(dim.KeyColumn)))
	}
	cols = append(cols,
		fmt.Sprintf("sales_order_number %s NOT NULL", d.TextType),
		fmt.Sprintf("sales_order_line_number %s NOT NULL", d.IntegerType),
		fmt.Sprintf("order_date %s NOT NULL", d.DateType),
		fmt.Sprintf("quantity %s NOT NULL", d.IntegerType),
		fmt.Sprintf("tax_amount %s NOT NULL", d.FloatType),
		fmt.Sprintf("unit_price %s NOT NULL", d.FloatType),
		fmt.Sprintf("load_run_id %s NOT NULL", d.KeyType),
		fmt.Sprintf("loaded_at %s NOT NULL", d.TimestampType),
	)
	cols = append(cols, refs...)
	if d.InlineIndexes {
		cols = append(cols, fmt.Sprintf("INDEX %s (sales_order_number, sales_order_line_number)", d.QuoteIdent(indexName(s.FactTable))))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", d.QuoteIdent(s.FactTable), strings.Join(cols, ",\n\t"))
}

// EnsureSchema creates any missing star schema table. It runs outside the
// load transaction because some engines commit implicitly on DDL.
func EnsureSchema(ctx context.Context, db *sql.DB, d *core.Dialect, s Schema) error {
	for _, stmt := range s.DDL(d) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create star schema: %w", err)
		}
	}
	return nil
}

func indexName(table string) string {
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		table = table[i+1:]
	}
	return "idx_" + table + "_business_key"
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
