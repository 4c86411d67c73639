package loader

// Register every warehouse adapter with the adapter registry.
import (
	_ "github.com/leapstack-labs/leapstar/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapstar/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/leapstar/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapstar/pkg/adapters/sqlite"
)
