// Package loader implements the incremental star-schema load: dimension
// resolution followed by the fact load, as one transaction per invocation.
package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/leapstar/internal/state"
	"github.com/leapstack-labs/leapstar/internal/warehouse"
	"github.com/leapstack-labs/leapstar/pkg/adapter"
	"github.com/leapstack-labs/leapstar/pkg/core"
)

// Engine runs load invocations against one warehouse.
type Engine struct {
	// Warehouse adapter (lazy initialized)
	db          core.Adapter
	dbConfig    core.AdapterConfig
	dbConnected bool
	dbMu        sync.Mutex

	// loadMu admits a single load at a time.
	loadMu sync.Mutex

	logger *slog.Logger

	store       core.Store
	environment string
	schema      warehouse.Schema
	staging     core.StagingConfig
	load        core.LoadConfig
	policy      core.FactPolicy
}

// Config holds engine configuration.
type Config struct {
	// AdapterConfig describes the warehouse connection.
	AdapterConfig core.AdapterConfig
	// Adapter is an already connected adapter. When set, AdapterConfig is
	// ignored and the engine takes ownership of it.
	Adapter core.Adapter
	// StatePath is the path to the SQLite state database.
	StatePath string
	// Environment labels load runs (dev, prod, ...).
	Environment string
	// Staging locates the staging table.
	Staging core.StagingConfig
	// Tables names the star schema tables.
	Tables core.TablesConfig
	// Load tunes every invocation.
	Load core.LoadConfig
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine with a lazy warehouse connection.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	policy, err := core.ParseFactPolicy(cfg.Load.FactPolicy)
	if err != nil {
		return nil, err
	}

	load := cfg.Load
	if load.MaxOrderNumberLength == 0 {
		load.MaxOrderNumberLength = core.DefaultMaxOrderNumberLength
	}
	if load.LockName == "" {
		load.LockName = core.DefaultLockName
	}

	env := cfg.Environment
	if env == "" {
		env = "dev"
	}

	dbConfig := cfg.AdapterConfig
	if dbConfig.Type == "" {
		dbConfig.Type = "duckdb"
	}

	logger.Debug("initializing engine", "environment", env, "adapter_type", dbConfig.Type, "fact_policy", string(policy))

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}

	return &Engine{
		db:          cfg.Adapter,
		dbConfig:    dbConfig,
		dbConnected: cfg.Adapter != nil,
		logger:      logger,
		store:       store,
		environment: env,
		schema:      warehouse.DefaultSchema(cfg.Tables),
		staging:     cfg.Staging,
		load:        load,
		policy:      policy,
	}, nil
}

// ensureDBConnected lazily connects to the warehouse.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to warehouse", "adapter_type", e.dbConfig.Type)

	db, err := adapter.NewAdapter(e.dbConfig, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create warehouse adapter: %w", err)
	}
	if err := db.Connect(ctx, e.dbConfig); err != nil {
		return fmt.Errorf("failed to connect to warehouse: %w", err)
	}

	e.db = db
	e.dbConnected = true

	e.logger.Debug("warehouse connected", "dialect", db.Dialect().Name)
	return nil
}

// Adapter returns the warehouse adapter, connecting it if needed.
func (e *Engine) Adapter(ctx context.Context) (core.Adapter, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}
	return e.db, nil
}

// Schema returns the star schema the engine loads into.
func (e *Engine) Schema() warehouse.Schema {
	return e.schema
}

// FactPolicy returns the business-key policy applied to facts.
func (e *Engine) FactPolicy() core.FactPolicy {
	return e.policy
}

// EnsureSchema creates any missing star schema table.
func (e *Engine) EnsureSchema(ctx context.Context) error {
	if err := e.ensureDBConnected(ctx); err != nil {
		return err
	}
	return warehouse.EnsureSchema(ctx, e.db.DB(), e.db.Dialect(), e.schema)
}

// LoadFromStaging loads the staging rows whose order date falls inside
// window. Dimension rows and fact rows are written in one transaction; on
// any failure nothing written by the invocation remains and the error is a
// *core.TransactionAbortError.
func (e *Engine) LoadFromStaging(ctx context.Context, window core.Window) (*core.LoadResult, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if !e.loadMu.TryLock() {
		return nil, core.ErrLoadInProgress
	}
	defer e.loadMu.Unlock()

	start := time.Now()
	run, err := e.store.CreateLoadRun(e.environment, window)
	if err != nil {
		return nil, fmt.Errorf("failed to record load run: %w", err)
	}

	logger := e.logger.With(slog.String("run_id", run.ID), slog.String("window", window.String()))
	logger.Info("load started", slog.String("environment", e.environment))

	if e.load.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.load.Timeout)
		defer cancel()
	}

	result, phase, err := e.runLoad(ctx, logger, run.ID, window)
	if err != nil {
		// Drivers report a cancelled statement in their own words.
		if cerr := ctx.Err(); cerr != nil && !errors.Is(err, cerr) {
			err = fmt.Errorf("%w: %w", cerr, err)
		}
		abort := &core.TransactionAbortError{RunID: run.ID, Phase: phase, Err: err}
		if cerr := e.store.CompleteLoadRun(run.ID, core.RunStatusFailed, nil, err.Error()); cerr != nil {
			logger.Warn("failed to record load failure", slog.Any("error", cerr))
		}
		logger.Error("load aborted", slog.String("phase", phase), slog.Any("error", err))
		return nil, abort
	}

	result.Duration = time.Since(start)
	if cerr := e.store.CompleteLoadRun(run.ID, core.RunStatusCompleted, result, ""); cerr != nil {
		logger.Warn("failed to record load completion", slog.Any("error", cerr))
	}

	logger.Info("load completed",
		slog.Int("window_rows", result.WindowRows),
		slog.Int("dimensions_created", result.TotalDimensionsCreated()),
		slog.Int("facts_appended", result.FactsAppended),
		slog.Int("facts_skipped", result.FactsSkipped),
		slog.Int("undated_rows", len(result.UndatedRows)),
		slog.Duration("duration", result.Duration))

	return result, nil
}

// runLoad connects, prepares the schema and runs the load transaction. It
// reports the phase a failure happened in.
func (e *Engine) runLoad(ctx context.Context, logger *slog.Logger, runID string, window core.Window) (*core.LoadResult, string, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, core.PhaseConnect, err
	}
	if err := warehouse.EnsureSchema(ctx, e.db.DB(), e.db.Dialect(), e.schema); err != nil {
		return nil, core.PhaseSchema, err
	}

	tx, err := e.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, core.PhaseConnect, fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			logger.Warn("rollback failed", slog.Any("error", rerr))
		}
	}()

	release, err := e.db.AcquireLoadLock(ctx, tx, e.load.LockName)
	if err != nil {
		return nil, core.PhaseLock, err
	}

	result, phase, err := e.loadTx(ctx, logger, tx, runID, window)

	// The lock must be released even when ctx has expired.
	if rerr := release(context.WithoutCancel(ctx)); rerr != nil && err == nil {
		result, phase, err = nil, core.PhaseLock, rerr
	}
	if err != nil {
		return nil, phase, err
	}

	if err := tx.Commit(); err != nil {
		return nil, core.PhaseCommit, fmt.Errorf("failed to commit load: %w", err)
	}
	committed = true
	return result, "", nil
}

// loadTx reads staging and runs every resolver, then the fact loader.
func (e *Engine) loadTx(ctx context.Context, logger *slog.Logger, tx *sql.Tx, runID string, window core.Window) (*core.LoadResult, string, error) {
	d := e.db.Dialect()

	rows, err := warehouse.NewStagingReader(d, e.staging).ReadStaging(ctx, tx)
	if err != nil {
		return nil, core.PhaseStaging, err
	}
	inWindow, undated := filterWindow(rows, window)
	logger.Debug("read staging", slog.Int("rows", len(rows)), slog.Int("in_window", len(inWindow)))
	if len(undated) > 0 {
		logger.Warn("staging rows without a readable order date left out",
			slog.Int("count", len(undated)),
			slog.Int("first_row", undated[0].Row),
			slog.String("reason", undated[0].Error()))
	}

	result := &core.LoadResult{
		RunID:             runID,
		Window:            window,
		DimensionsCreated: make(map[string]int, len(e.schema.Dimensions)),
		StagingRows:       len(rows),
		WindowRows:        len(inWindow),
	}
	for _, u := range undated {
		result.UndatedRows = append(result.UndatedRows, u.Row)
	}
	loadedAt := time.Now().UTC()

	resolvers := make([]*DimensionResolver, len(e.schema.Dimensions))
	for i, spec := range e.schema.Dimensions {
		resolvers[i] = NewDimensionResolver(warehouse.NewDimensionStore(d, spec), logger)
	}
	for _, r := range resolvers {
		created, err := r.Resolve(ctx, tx, inWindow, runID, loadedAt)
		if err != nil {
			return nil, core.PhaseDimension, err
		}
		result.DimensionsCreated[r.Name()] = created
	}

	facts := NewFactLoader(warehouse.NewFactStore(d, e.schema), resolvers, e.policy, e.load.MaxOrderNumberLength, logger)
	stats, err := facts.Load(ctx, tx, inWindow, runID, loadedAt)
	if err != nil {
		return nil, core.PhaseFact, err
	}
	result.FactsAppended = stats.Appended
	result.DuplicatesCollapsed = stats.Collapsed
	result.FactsSkipped = stats.Skipped

	return result, "", nil
}

// filterWindow keeps the rows whose order date falls inside window. A row
// without a readable order date belongs to no window; it is returned as a
// validation error and left out.
func filterWindow(rows []core.StagingRow, window core.Window) ([]core.StagingRow, core.ValidationErrors) {
	var undated core.ValidationErrors
	out := make([]core.StagingRow, 0, len(rows))
	for _, row := range rows {
		s, ok := row.TrimmedField(core.FieldOrderDate)
		if !ok {
			undated = append(undated, &core.ValidationError{Phase: core.PhaseStaging, Row: row.Row, Field: core.FieldOrderDate, Reason: "is required"})
			continue
		}
		d, err := parseDate(s)
		if err != nil {
			undated = append(undated, &core.ValidationError{Phase: core.PhaseStaging, Row: row.Row, Field: core.FieldOrderDate, Value: s, Reason: err.Error()})
			continue
		}
		if window.Contains(d) {
			out = append(out, row)
		}
	}
	return out, undated
}

// Runs returns the most recent load runs.
func (e *Engine) Runs(limit int) ([]*core.LoadRun, error) {
	return e.store.ListLoadRuns(limit)
}

// LatestRun returns the most recent load run of the engine's environment,
// or nil when there is none.
func (e *Engine) LatestRun() (*core.LoadRun, error) {
	return e.store.GetLatestLoadRun(e.environment)
}

// Close releases all resources.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
