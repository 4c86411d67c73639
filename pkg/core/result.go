package core

import "time"

// LoadResult summarises one committed load invocation.
type LoadResult struct {
	RunID  string
	Window Window

	// DimensionsCreated maps dimension name to rows created.
	DimensionsCreated map[string]int

	// StagingRows is the number of staging rows read.
	StagingRows int
	// WindowRows is the number of staging rows inside the window.
	WindowRows int
	// FactsAppended is the number of fact rows written.
	FactsAppended int
	// DuplicatesCollapsed counts exact duplicate rows merged within the batch.
	DuplicatesCollapsed int
	// FactsSkipped counts rows whose business key was already loaded.
	FactsSkipped int
	// UndatedRows lists the staging rows without a readable order date.
	// They belong to no window and are left out of every load.
	UndatedRows []int

	Duration time.Duration
}

// TotalDimensionsCreated sums rows created over all dimensions.
func (r *LoadResult) TotalDimensionsCreated() int {
	total := 0
	for _, n := range r.DimensionsCreated {
		total += n
	}
	return total
}
