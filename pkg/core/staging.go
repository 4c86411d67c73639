package core

import (
	"context"
	"database/sql"
	"strings"
)

// StagingRow is one raw, loosely-validated row read from the staging table.
// Every field is read as a nullable string; casting happens in the loader.
type StagingRow struct {
	// Row is the 1-based ordinal of the row in the staging read.
	Row int

	CustomerName         sql.NullString
	EmailAddress         sql.NullString
	Item                 sql.NullString
	SalesOrderNumber     sql.NullString
	SalesOrderLineNumber sql.NullString
	OrderDate            sql.NullString
	Quantity             sql.NullString
	TaxAmount            sql.NullString
	UnitPrice            sql.NullString
}

// Field returns a staging field by its logical name.
func (r StagingRow) Field(name string) sql.NullString {
	switch name {
	case FieldCustomerName:
		return r.CustomerName
	case FieldEmailAddress:
		return r.EmailAddress
	case FieldItem:
		return r.Item
	case FieldSalesOrderNumber:
		return r.SalesOrderNumber
	case FieldSalesOrderLineNumber:
		return r.SalesOrderLineNumber
	case FieldOrderDate:
		return r.OrderDate
	case FieldQuantity:
		return r.Quantity
	case FieldTaxAmount:
		return r.TaxAmount
	case FieldUnitPrice:
		return r.UnitPrice
	}
	return sql.NullString{}
}

// Logical staging field names.
const (
	FieldCustomerName         = "CustomerName"
	FieldEmailAddress         = "EmailAddress"
	FieldItem                 = "Item"
	FieldSalesOrderNumber     = "SalesOrderNumber"
	FieldSalesOrderLineNumber = "SalesOrderLineNumber"
	FieldOrderDate            = "OrderDate"
	FieldQuantity             = "Quantity"
	FieldTaxAmount            = "TaxAmount"
	FieldUnitPrice            = "UnitPrice"
)

// StagingFields lists the logical staging fields in read order.
var StagingFields = []string{
	FieldCustomerName,
	FieldEmailAddress,
	FieldItem,
	FieldSalesOrderNumber,
	FieldSalesOrderLineNumber,
	FieldOrderDate,
	FieldQuantity,
	FieldTaxAmount,
	FieldUnitPrice,
}

// TrimmedField returns the trimmed value of a field and whether it is present.
// NULL and blank values are both reported as absent.
func (r StagingRow) TrimmedField(name string) (string, bool) {
	v := r.Field(name)
	if !v.Valid {
		return "", false
	}
	s := strings.TrimSpace(v.String)
	return s, s != ""
}

// Querier is the subset of *sql.DB and *sql.Tx the loader reads through.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// StagingSource reads raw staging rows.
type StagingSource interface {
	ReadStaging(ctx context.Context, q Querier) ([]StagingRow, error)
}
