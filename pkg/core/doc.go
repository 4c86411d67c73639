// Package core defines the shared language of leapstar.
//
// This package contains:
//   - Domain entities (StagingRow, DimensionRow, FactRow, Window, LoadResult)
//   - Typed load errors (ValidationError, ReferentialIntegrityError, TransactionAbortError)
//   - Service interfaces (Adapter, Store, StagingSource)
//   - Configuration types (TargetConfig, StagingConfig, LoadConfig)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
