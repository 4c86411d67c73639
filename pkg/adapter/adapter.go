// Package adapter provides the warehouse adapter contract for leapstar.
//
// Concrete adapter implementations live in pkg/adapters/ subdirectories and
// register themselves with the registry in this package from init().
//
// Note: Core types (Adapter, Config, Dialect) are defined in pkg/core.
// This package re-exports them via type aliases for convenience.
package adapter

import (
	"github.com/leapstack-labs/leapstar/pkg/core"
)

type (
	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter

	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Dialect is an alias for core.Dialect.
	Dialect = core.Dialect
)
