// Package state records the load history of leapstar in a SQLite database.
// Every load invocation gets a run row before it starts and is completed
// with its counts or error afterwards.
package state

import (
	"github.com/leapstack-labs/leapstar/pkg/core"
)

// Type aliases so callers can stay within this package's vocabulary.
type (
	// Store is an alias for core.Store.
	Store = core.Store

	// RunStatus is an alias for core.RunStatus.
	RunStatus = core.RunStatus

	// LoadRun is an alias for core.LoadRun.
	LoadRun = core.LoadRun
)

// Re-export status constants from core.
const (
	RunStatusRunning   = core.RunStatusRunning
	RunStatusCompleted = core.RunStatusCompleted
	RunStatusFailed    = core.RunStatusFailed
)
