package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapstar/pkg/core"
)

const loadRunColumns = `id, environment, window_start, window_end, status, started_at, completed_at, error,
	staging_rows, window_rows, dimensions_created, facts_appended, facts_skipped, duplicates_collapsed, undated_rows`

// CreateLoadRun records the start of a load.
func (s *SQLiteStore) CreateLoadRun(env string, window core.Window) (*core.LoadRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &core.LoadRun{
		ID:                generateID(),
		Environment:       env,
		WindowStart:       window.Start,
		WindowEnd:         window.End,
		Status:            core.RunStatusRunning,
		StartedAt:         time.Now().UTC(),
		DimensionsCreated: map[string]int{},
	}

	s.logger.Debug("creating load run", slog.String("id", run.ID), slog.String("environment", env), slog.String("window", window.String()))

	_, err := s.db.ExecContext(ctx(),
		`INSERT INTO load_runs (id, environment, window_start, window_end, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, env, window.Start.Format(core.DateLayout), window.End.Format(core.DateLayout), string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create load run: %w", err)
	}
	return run, nil
}

// CompleteLoadRun marks a run as finished. result may be nil for failed runs.
func (s *SQLiteStore) CompleteLoadRun(id string, status core.RunStatus, result *core.LoadResult, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var errorPtr *string
	if errMsg != "" {
		errorPtr = &errMsg
	}

	if result == nil {
		result = &core.LoadResult{}
	}
	dims := result.DimensionsCreated
	if dims == nil {
		dims = map[string]int{}
	}
	dimsJSON, err := json.Marshal(dims)
	if err != nil {
		return fmt.Errorf("failed to encode dimension counts: %w", err)
	}

	res, err := s.db.ExecContext(ctx(),
		`UPDATE load_runs SET status = ?, completed_at = ?, error = ?,
			staging_rows = ?, window_rows = ?, dimensions_created = ?,
			facts_appended = ?, facts_skipped = ?, duplicates_collapsed = ?, undated_rows = ?
		 WHERE id = ?`,
		string(status), formatTime(time.Now()), errorPtr,
		result.StagingRows, result.WindowRows, string(dimsJSON),
		result.FactsAppended, result.FactsSkipped, result.DuplicatesCollapsed, len(result.UndatedRows),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete load run: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("load run not found: %s", id)
	}
	return nil
}

// GetLoadRun retrieves a run by ID.
func (s *SQLiteStore) GetLoadRun(id string) (*core.LoadRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run, err := scanLoadRun(s.db.QueryRowContext(ctx(), `SELECT `+loadRunColumns+` FROM load_runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get load run: %w", err)
	}
	return run, nil
}

// GetLatestLoadRun retrieves the most recent run for an environment.
func (s *SQLiteStore) GetLatestLoadRun(env string) (*core.LoadRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run, err := scanLoadRun(s.db.QueryRowContext(ctx(),
		`SELECT `+loadRunColumns+` FROM load_runs WHERE environment = ? ORDER BY started_at DESC LIMIT 1`, env))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // No runs found, return nil without error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest load run: %w", err)
	}
	return run, nil
}

// ListLoadRuns retrieves the most recent runs up to the given limit.
func (s *SQLiteStore) ListLoadRuns(limit int) ([]*core.LoadRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx(), `SELECT `+loadRunColumns+` FROM load_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list load runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*core.LoadRun
	for rows.Next() {
		run, err := scanLoadRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan load run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating load runs: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoadRun(row rowScanner) (*core.LoadRun, error) {
	var (
		run                    core.LoadRun
		status                 string
		windowStart, windowEnd string
		startedAt              string
		completedAt, errMsg    sql.NullString
		dimsJSON               string
	)

	if err := row.Scan(
		&run.ID, &run.Environment, &windowStart, &windowEnd, &status, &startedAt, &completedAt, &errMsg,
		&run.StagingRows, &run.WindowRows, &dimsJSON, &run.FactsAppended, &run.FactsSkipped, &run.DuplicatesCollapsed,
		&run.UndatedRows,
	); err != nil {
		return nil, err
	}

	run.Status = core.RunStatus(status)
	var err error
	if run.WindowStart, err = time.Parse(core.DateLayout, windowStart); err != nil {
		return nil, fmt.Errorf("invalid window_start %q: %w", windowStart, err)
	}
	if run.WindowEnd, err = time.Parse(core.DateLayout, windowEnd); err != nil {
		return nil, fmt.Errorf("invalid window_end %q: %w", windowEnd, err)
	}
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("invalid started_at %q: %w", startedAt, err)
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("invalid completed_at %q: %w", completedAt.String, err)
		}
		run.CompletedAt = &t
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	if err := json.Unmarshal([]byte(dimsJSON), &run.DimensionsCreated); err != nil {
		return nil, fmt.Errorf("invalid dimensions_created: %w", err)
	}
	return &run, nil
}

var _ core.Store = (*SQLiteStore)(nil)
