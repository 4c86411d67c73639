package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapstar/internal/cli/output"
	intconfig "github.com/leapstack-labs/leapstar/internal/config"
	"github.com/leapstack-labs/leapstar/pkg/core"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// starterConfig is the leapstar.yaml written by init.
type starterConfig struct {
	Environment string                      `yaml:"environment"`
	Target      starterTarget               `yaml:"target"`
	Staging     starterStaging              `yaml:"staging"`
	Tables      starterTables               `yaml:"tables"`
	Load        starterLoad                 `yaml:"load"`
	Envs        map[string]starterEnvTarget `yaml:"environments,omitempty"`
}

type starterTarget struct {
	Type     string `yaml:"type"`
	Database string `yaml:"database"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	Schema   string `yaml:"schema,omitempty"`
}

type starterStaging struct {
	Table   string            `yaml:"table"`
	Columns map[string]string `yaml:"columns"`
}

type starterTables struct {
	Customer string `yaml:"customer"`
	Product  string `yaml:"product"`
	Fact     string `yaml:"fact"`
}

type starterLoad struct {
	Timeout              string `yaml:"timeout"`
	FactPolicy           string `yaml:"fact_policy"`
	MaxOrderNumberLength int    `yaml:"max_order_number_length"`
}

type starterEnvTarget struct {
	Target starterTarget `yaml:"target"`
}

// newStarterConfig returns the default configuration for a target type.
func newStarterConfig(targetType string) starterConfig {
	target := starterTarget{Type: targetType, Schema: intconfig.DefaultSchemaForType(targetType)}
	switch targetType {
	case "postgres":
		target.Host = "localhost"
		target.Port = intconfig.DefaultPostgresPort
		target.Database = "warehouse"
		target.User = "${PGUSER}"
		target.Password = "${PGPASSWORD}"
	case "mysql":
		target.Host = "localhost"
		target.Port = intconfig.DefaultMySQLPort
		target.Database = "warehouse"
		target.User = "${MYSQL_USER}"
		target.Password = "${MYSQL_PASSWORD}"
	case "sqlite":
		target.Database = "warehouse.db"
	default:
		target.Database = "warehouse.duckdb"
	}

	prod := target
	if targetType == "duckdb" || targetType == "sqlite" {
		ext := filepath.Ext(target.Database)
		prod.Database = strings.TrimSuffix(target.Database, ext) + "_prod" + ext
	} else {
		prod.Host = "${WAREHOUSE_HOST}"
	}

	return starterConfig{
		Environment: intconfig.DefaultEnv,
		Target:      target,
		Staging: starterStaging{
			Table:   core.DefaultStagingTable,
			Columns: snakeColumns(),
		},
		Tables: starterTables{
			Customer: core.DefaultCustomerTable,
			Product:  core.DefaultProductTable,
			Fact:     core.DefaultFactTable,
		},
		Load: starterLoad{
			Timeout:              core.DefaultLoadTimeout.String(),
			FactPolicy:           string(core.FactPolicySkip),
			MaxOrderNumberLength: core.DefaultMaxOrderNumberLength,
		},
		Envs: map[string]starterEnvTarget{
			"prod": {Target: prod},
		},
	}
}

// snakeColumns keys the default staging columns by their snake_case field
// name, the spelling used in config files and env vars.
func snakeColumns() map[string]string {
	cols := make(map[string]string)
	for _, col := range core.DefaultStagingColumns() {
		cols[col] = col
	}
	return cols
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var targetType string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new leapstar project",
		Long: `Initialize a new leapstar project by writing a leapstar.yaml configuration.

The configuration names the warehouse target, the staging table and its
columns, the star schema tables and the load settings.`,
		Example: `  # Initialize in current directory with a DuckDB warehouse
  leapstar init

  # Initialize a Postgres project in a new directory
  leapstar init my-warehouse --type postgres

  # Force overwrite existing config
  leapstar init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			r := NewCommandContextWithoutEngine(cmd).Renderer
			return runInit(r, dir, targetType, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().StringVar(&targetType, "type", "duckdb", "Warehouse type (duckdb|postgres|mysql|sqlite)")

	return cmd
}

func runInit(r *output.Renderer, dir, targetType string, force bool) error {
	targetType = strings.ToLower(targetType)
	starter := newStarterConfig(targetType)
	target := core.TargetConfig{
		Type:     targetType,
		Database: starter.Target.Database,
		Port:     starter.Target.Port,
	}
	if err := intconfig.ValidateTarget(&target); err != nil {
		return err
	}

	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, intconfig.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", intconfig.ConfigFileName)
	}

	data, err := yaml.Marshal(starter)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	r.StatusLine(intconfig.ConfigFileName, "success", "")
	r.Println("")
	r.Success("leapstar project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Point staging.table at your staging table")
	r.Println("  2. Run 'leapstar schema' to create the star schema")
	r.Println("  3. Run 'leapstar load --year 2021' to load a window")
	r.Println("  4. Run 'leapstar runs' to review load history")

	return nil
}
