package core

import "time"

// TargetConfig holds warehouse target configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // duckdb, postgres, sqlite, mysql

	// File-based databases (DuckDB, SQLite)
	Database string `koanf:"database"` // file path or database name

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Common
	Schema string `koanf:"schema"`

	// Additional driver-specific options (sslmode, charset, ...)
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific configuration (e.g., DuckDB extensions, settings)
	Params map[string]any `koanf:"params"`
}

// StagingConfig describes where staging rows are read from.
type StagingConfig struct {
	Table string `koanf:"table"`
	// Columns maps logical staging fields (CustomerName, ...) to column names.
	Columns map[string]string `koanf:"columns"`
}

// TablesConfig names the star schema tables.
type TablesConfig struct {
	Customer string `koanf:"customer"`
	Product  string `koanf:"product"`
	Fact     string `koanf:"fact"`
}

// LoadConfig tunes a load invocation.
type LoadConfig struct {
	Timeout              time.Duration `koanf:"timeout"`
	FactPolicy           string        `koanf:"fact_policy"`
	MaxOrderNumberLength int           `koanf:"max_order_number_length"`
	LockName             string        `koanf:"lock_name"`
}

// Default star schema and staging names.
const (
	DefaultStagingTable         = "staging_sales"
	DefaultCustomerTable        = "dim_customer"
	DefaultProductTable         = "dim_product"
	DefaultFactTable            = "fact_sales"
	DefaultMaxOrderNumberLength = 25
	DefaultLockName             = "leapstar_load"
	DefaultLoadTimeout          = 10 * time.Minute
)

// DefaultStagingColumns maps logical staging fields to their default column names.
func DefaultStagingColumns() map[string]string {
	return map[string]string{
		FieldCustomerName:         "customer_name",
		FieldEmailAddress:         "email_address",
		FieldItem:                 "item",
		FieldSalesOrderNumber:     "sales_order_number",
		FieldSalesOrderLineNumber: "sales_order_line_number",
		FieldOrderDate:            "order_date",
		FieldQuantity:             "quantity",
		FieldTaxAmount:            "tax_amount",
		FieldUnitPrice:            "unit_price",
	}
}
