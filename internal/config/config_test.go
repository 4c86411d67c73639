package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/leapstar/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Register adapters so ValidateTarget can see them.
	_ "github.com/leapstack-labs/leapstar/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapstar/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/leapstar/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapstar/pkg/adapters/sqlite"
)

func TestApplyTargetDefaults(t *testing.T) {
	tests := []struct {
		name       string
		target     core.TargetConfig
		wantSchema string
		wantPort   int
	}{
		{name: "duckdb", target: core.TargetConfig{Type: "duckdb"}, wantSchema: "main"},
		{name: "sqlite", target: core.TargetConfig{Type: "sqlite"}, wantSchema: "main"},
		{name: "postgres", target: core.TargetConfig{Type: "postgres"}, wantSchema: "public", wantPort: 5432},
		{name: "mysql", target: core.TargetConfig{Type: "mysql"}, wantSchema: "", wantPort: 3306},
		{name: "explicit values kept", target: core.TargetConfig{Type: "postgres", Schema: "dw", Port: 6543}, wantSchema: "dw", wantPort: 6543},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := tt.target
			ApplyTargetDefaults(&target)
			assert.Equal(t, tt.wantSchema, target.Schema)
			assert.Equal(t, tt.wantPort, target.Port)
		})
	}

	ApplyTargetDefaults(nil)
}

func TestApplyLoadDefaults(t *testing.T) {
	var l core.LoadConfig
	ApplyLoadDefaults(&l)
	assert.Equal(t, 10*time.Minute, l.Timeout)
	assert.Equal(t, "skip", l.FactPolicy)
	assert.Equal(t, 25, l.MaxOrderNumberLength)
	assert.Equal(t, "leapstar_load", l.LockName)

	l = core.LoadConfig{Timeout: time.Minute, FactPolicy: "append"}
	ApplyLoadDefaults(&l)
	assert.Equal(t, time.Minute, l.Timeout)
	assert.Equal(t, "append", l.FactPolicy)
}

func TestApplyTablesDefaults(t *testing.T) {
	tables := core.TablesConfig{Fact: "sales"}
	ApplyTablesDefaults(&tables)
	assert.Equal(t, core.TablesConfig{Customer: "dim_customer", Product: "dim_product", Fact: "sales"}, tables)
}

func TestValidateTarget(t *testing.T) {
	tests := []struct {
		name      string
		target    *core.TargetConfig
		errSubstr string
	}{
		{name: "nil", target: nil, errSubstr: "target is required"},
		{name: "empty type", target: &core.TargetConfig{}, errSubstr: "target type is required"},
		{name: "duckdb", target: &core.TargetConfig{Type: "duckdb"}},
		{name: "uppercase", target: &core.TargetConfig{Type: "DuckDB"}},
		{name: "sqlite", target: &core.TargetConfig{Type: "sqlite", Database: "dw.db"}},
		{name: "postgres", target: &core.TargetConfig{Type: "postgres", Database: "dw"}},
		{name: "postgres without database", target: &core.TargetConfig{Type: "postgres"}, errSubstr: "target.database is required"},
		{name: "mysql bad port", target: &core.TargetConfig{Type: "mysql", Database: "dw", Port: 70000}, errSubstr: "out of range"},
		{name: "unknown", target: &core.TargetConfig{Type: "snowflake"}, errSubstr: "unknown adapter type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTarget(tt.target)
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	assert.Empty(t, FindProjectRoot(nested, 10))

	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileNameAlt), []byte("target:\n  type: duckdb\n"), 0o600))
	assert.Equal(t, root, FindProjectRoot(nested, 10))
	assert.Empty(t, FindProjectRoot(nested, 2))
	assert.Equal(t, filepath.Join(root, ConfigFileNameAlt), FindConfigFile(root))
}
