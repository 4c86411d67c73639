package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/leapstack-labs/leapstar/pkg/core"
)

// Sale is a staging row written by tests. Nil pointers become NULL.
type Sale struct {
	CustomerName *string
	EmailAddress *string
	Item         *string
	OrderNumber  *string
	LineNumber   *string
	OrderDate    *string
	Quantity     *string
	TaxAmount    *string
	UnitPrice    *string
}

// S returns a pointer to s, for building Sale literals.
func S(s string) *string {
	return &s
}

// NewSale builds a fully populated Sale from plain strings.
func NewSale(customer, email, item, order, line, date, qty, tax, price string) Sale {
	return Sale{
		CustomerName: S(customer),
		EmailAddress: S(email),
		Item:         S(item),
		OrderNumber:  S(order),
		LineNumber:   S(line),
		OrderDate:    S(date),
		Quantity:     S(qty),
		TaxAmount:    S(tax),
		UnitPrice:    S(price),
	}
}

// CreateStagingTable creates a text-typed staging table with the default
// column names.
func CreateStagingTable(t testing.TB, db *sql.DB, d *core.Dialect, table string) {
	t.Helper()
	cols := core.DefaultStagingColumns()
	ddl := "CREATE TABLE " + d.QuoteIdent(table) + " ("
	for i, f := range core.StagingFields {
		if i > 0 {
			ddl += ", "
		}
		ddl += d.QuoteIdent(cols[f]) + " " + d.TextType
	}
	ddl += ")"
	if _, err := db.ExecContext(context.Background(), ddl); err != nil {
		t.Fatalf("failed to create staging table: %v", err)
	}
}

// InsertSales appends rows to the staging table.
func InsertSales(t testing.TB, db *sql.DB, d *core.Dialect, table string, sales ...Sale) {
	t.Helper()
	cols := core.DefaultStagingColumns()
	names := ""
	for i, f := range core.StagingFields {
		if i > 0 {
			names += ", "
		}
		names += d.QuoteIdent(cols[f])
	}
	query := "INSERT INTO " + d.QuoteIdent(table) + " (" + names + ") VALUES (" + d.Placeholders(1, len(core.StagingFields)) + ")"

	for _, s := range sales {
		_, err := db.ExecContext(context.Background(), query,
			nullable(s.CustomerName), nullable(s.EmailAddress), nullable(s.Item),
			nullable(s.OrderNumber), nullable(s.LineNumber), nullable(s.OrderDate),
			nullable(s.Quantity), nullable(s.TaxAmount), nullable(s.UnitPrice),
		)
		if err != nil {
			t.Fatalf("failed to insert staging row: %v", err)
		}
	}
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
