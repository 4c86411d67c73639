package core

import "time"

// Store persists the load history.
type Store interface {
	CreateLoadRun(env string, window Window) (*LoadRun, error)
	CompleteLoadRun(id string, status RunStatus, result *LoadResult, errMsg string) error
	GetLoadRun(id string) (*LoadRun, error)
	GetLatestLoadRun(env string) (*LoadRun, error)
	ListLoadRuns(limit int) ([]*LoadRun, error)
	Close() error
}

// RunStatus represents the status of a load run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// LoadRun is the persisted record of one load invocation.
type LoadRun struct {
	ID          string
	Environment string
	WindowStart time.Time
	WindowEnd   time.Time
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time

	StagingRows         int
	WindowRows          int
	DimensionsCreated   map[string]int
	FactsAppended       int
	FactsSkipped        int
	DuplicatesCollapsed int
	UndatedRows         int

	Error string
}

// Window returns the window the run was scoped to.
func (r *LoadRun) Window() Window {
	return Window{Start: r.WindowStart, End: r.WindowEnd}
}

// Duration returns how long the run took, or zero while it is running.
func (r *LoadRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
