package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLoadInProgress is returned when a load is requested while another load
// is running against the same engine.
var ErrLoadInProgress = errors.New("another load is already in progress")

// Load phases, used to label errors and run records.
const (
	PhaseConnect   = "connect"
	PhaseSchema    = "schema"
	PhaseLock      = "lock"
	PhaseStaging   = "staging"
	PhaseDimension = "dimension"
	PhaseFact      = "fact"
	PhaseCommit    = "commit"
)

// ValidationError reports a staging value that cannot be admitted.
type ValidationError struct {
	Phase  string
	Row    int
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Row > 0 {
		fmt.Fprintf(&b, "row %d: ", e.Row)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, "%s ", e.Field)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, "%q ", e.Value)
	}
	b.WriteString(e.Reason)
	return b.String()
}

// ValidationErrors collects every validation failure of a phase so the caller
// sees all failing rows at once.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return "validation failed"
	case 1:
		return "validation failed: " + e[0].Error()
	}

	const maxListed = 10
	var b strings.Builder
	fmt.Fprintf(&b, "validation failed for %d value(s):", len(e))
	for i, v := range e {
		if i == maxListed {
			fmt.Fprintf(&b, "\n  ... and %d more", len(e)-maxListed)
			break
		}
		b.WriteString("\n  ")
		b.WriteString(v.Error())
	}
	return b.String()
}

// Unwrap exposes the individual errors to errors.As.
func (e ValidationErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, v := range e {
		errs[i] = v
	}
	return errs
}

// ReferentialIntegrityError reports a fact whose natural key has no
// dimension row. It indicates a resolver or ordering defect.
type ReferentialIntegrityError struct {
	Dimension string
	Key       NaturalKey
	Row       int
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("row %d: no %s dimension row for natural key %s", e.Row, e.Dimension, e.Key.Display())
}

// TransactionAbortError reports that the load transaction was rolled back.
// Nothing written by the invocation is visible afterwards.
type TransactionAbortError struct {
	RunID string
	Phase string
	Err   error
}

func (e *TransactionAbortError) Error() string {
	return fmt.Sprintf("load %s aborted during %s phase, all changes rolled back: %v", e.RunID, e.Phase, e.Err)
}

func (e *TransactionAbortError) Unwrap() error {
	return e.Err
}
