package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	intconfig "github.com/leapstack-labs/leapstar/internal/config"
	"github.com/leapstack-labs/leapstar/pkg/core"
)

// generateConfigDocs generates the leapstar.yaml reference.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := generateConfigurationDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate configuration.md: %w", err)
	}
	log.Printf("  Generated configuration.md")

	return nil
}

// ConfigField represents a configuration field definition.
type ConfigField struct {
	Name        string
	Type        string
	Default     string
	Description string
	Category    string // "general", "target", "staging", "tables", "load"
}

// getConfigSchema returns the configuration keys, with defaults taken from
// the same constants the loader uses.
func getConfigSchema() []ConfigField {
	return []ConfigField{
		{Name: "state_path", Type: "string", Default: intconfig.DefaultStateFile, Description: "SQLite database recording load runs", Category: "general"},
		{Name: "environment", Type: "string", Default: intconfig.DefaultEnv, Description: "Environment whose overrides apply", Category: "general"},
		{Name: "output", Type: "string", Default: intconfig.DefaultOutput, Description: "Output format: auto, text, markdown, json", Category: "general"},
		{Name: "log_level", Type: "string", Default: intconfig.DefaultLogLevel, Description: "Log level: debug, info, warn, error", Category: "general"},
		{Name: "log_format", Type: "string", Default: intconfig.DefaultLogFormat, Description: "Log format: text, json", Category: "general"},

		{Name: "type", Type: "string", Default: "duckdb", Description: "Warehouse type: duckdb, sqlite, postgres, mysql", Category: "target"},
		{Name: "database", Type: "string", Description: "File path (duckdb, sqlite) or database name", Category: "target"},
		{Name: "host", Type: "string", Description: "Server host (postgres, mysql)", Category: "target"},
		{Name: "port", Type: "int", Default: strconv.Itoa(intconfig.DefaultPostgresPort) + " / " + strconv.Itoa(intconfig.DefaultMySQLPort), Description: "Server port (postgres / mysql)", Category: "target"},
		{Name: "user", Type: "string", Description: "Database username", Category: "target"},
		{Name: "password", Type: "string", Description: "Database password, usually `${VAR}`", Category: "target"},
		{Name: "schema", Type: "string", Default: "main / public", Description: "Schema holding staging and the star schema", Category: "target"},
		{Name: "options", Type: "map[string]string", Description: "Driver connection options", Category: "target"},
		{Name: "params", Type: "map[string]any", Description: "Adapter settings (duckdb extensions, settings)", Category: "target"},

		{Name: "table", Type: "string", Default: core.DefaultStagingTable, Description: "Staging table read by loads", Category: "staging"},
		{Name: "columns", Type: "map[string]string", Description: "Staging column per field, e.g. `order_date: ordered_on`", Category: "staging"},

		{Name: "customer", Type: "string", Default: core.DefaultCustomerTable, Description: "Customer dimension table", Category: "tables"},
		{Name: "product", Type: "string", Default: core.DefaultProductTable, Description: "Product dimension table", Category: "tables"},
		{Name: "fact", Type: "string", Default: core.DefaultFactTable, Description: "Sales fact table", Category: "tables"},

		{Name: "timeout", Type: "duration", Default: core.DefaultLoadTimeout.String(), Description: "Abort and roll back a load after this long", Category: "load"},
		{Name: "fact_policy", Type: "string", Default: string(core.FactPolicySkip), Description: "Already loaded order lines: skip, append or error", Category: "load"},
		{Name: "max_order_number_length", Type: "int", Default: strconv.Itoa(core.DefaultMaxOrderNumberLength), Description: "Longest accepted sales order number", Category: "load"},
		{Name: "lock_name", Type: "string", Default: core.DefaultLockName, Description: "Advisory lock taken by each load", Category: "load"},
	}
}

// configSections orders the reference by section.
var configSections = []struct {
	category string
	title    string
	intro    string
}{
	{"general", "General Settings", "Top-level keys:"},
	{"target", "Target", "The warehouse holding the staging table and the star schema, under `target`:"},
	{"staging", "Staging", "Where staged rows are read from, under `staging`:"},
	{"tables", "Star Schema Tables", "Table names, under `tables`:"},
	{"load", "Load Settings", "Per-load behaviour, under `load`:"},
}

// generateConfigurationDoc generates the configuration reference page.
func generateConfigurationDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Configuration", "leapstar configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("leapstar is configured via `leapstar.yaml` in your project root. Relative paths resolve against the directory holding it.")

	fields := getConfigSchema()
	for _, section := range configSections {
		w.Header(2, section.title)
		w.Paragraph(section.intro)

		var rows [][]string
		for _, f := range fields {
			if f.Category != section.category {
				continue
			}
			defVal := "-"
			if f.Default != "" {
				defVal = InlineCode(f.Default)
			}
			rows = append(rows, []string{InlineCode(f.Name), f.Type, defVal, f.Description})
		}
		w.Table([]string{"Field", "Type", "Default", "Description"}, rows)
	}

	w.Header(2, "Environments")
	w.Paragraph("Entries under `environments` override `target`, `staging` and `load` for one environment. Select one with `environment:` or `--target`.")

	w.Header(2, "Full Configuration Example")
	w.CodeBlock("yaml", `# leapstar.yaml
environment: dev

target:
  type: duckdb
  database: ./data/warehouse.duckdb

staging:
  table: staging_sales
  columns:
    order_date: order_date

tables:
  customer: dim_customer
  product: dim_product
  fact: fact_sales

load:
  timeout: 10m
  fact_policy: skip

environments:
  prod:
    target:
      type: postgres
      host: prod-db.example.com
      user: leapstar
      password: ${PROD_DB_PASSWORD}
      database: analytics
    load:
      fact_policy: error`)

	filename := filepath.Join(outDir, "configuration.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}
