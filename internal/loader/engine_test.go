package loader

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/leapstack-labs/leapstar/internal/testutil"
	"github.com/leapstack-labs/leapstar/pkg/adapters/sqlite"
	"github.com/leapstack-labs/leapstar/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var year2021 = core.YearWindow(2021)

func alice() testutil.Sale {
	return testutil.NewSale("Alice", "a@x.com", "Widget", "SO1", "1", "2021-05-01", "2", "1.00", "9.99")
}

// setupEngine returns an engine over an in-memory SQLite warehouse holding
// an empty staging table, plus a handle on that warehouse.
func setupEngine(t *testing.T, load core.LoadConfig) (*Engine, *sql.DB) {
	t.Helper()
	ctx := context.Background()
	logger := testutil.NewTestLogger(t)

	adp := sqlite.New(logger)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Type: "sqlite", Path: ":memory:"}))
	testutil.CreateStagingTable(t, adp.DB(), sqlite.Dialect, core.DefaultStagingTable)

	eng, err := New(Config{
		Adapter:     adp,
		StatePath:   ":memory:",
		Environment: "test",
		Load:        load,
		Logger:      logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	return eng, adp.DB()
}

func stage(t *testing.T, db *sql.DB, sales ...testutil.Sale) {
	t.Helper()
	testutil.InsertSales(t, db, sqlite.Dialect, core.DefaultStagingTable, sales...)
}

func count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func surrogates(t *testing.T, db *sql.DB, table, keyCol, nameCol string) map[string]string {
	t.Helper()
	rows, err := db.Query("SELECT " + nameCol + ", " + keyCol + " FROM " + table)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	out := map[string]string{}
	for rows.Next() {
		var name, key string
		require.NoError(t, rows.Scan(&name, &key))
		out[name] = key
	}
	require.NoError(t, rows.Err())
	return out
}

func TestNew_InvalidFactPolicy(t *testing.T) {
	_, err := New(Config{StatePath: ":memory:", Load: core.LoadConfig{FactPolicy: "upsert"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown fact policy")
}

func TestNew_Defaults(t *testing.T) {
	eng, err := New(Config{StatePath: ":memory:"})
	require.NoError(t, err)
	defer func() { _ = eng.Close() }()

	assert.Equal(t, "dev", eng.environment)
	assert.Equal(t, "duckdb", eng.dbConfig.Type)
	assert.Equal(t, core.FactPolicySkip, eng.FactPolicy())
	assert.Equal(t, core.DefaultMaxOrderNumberLength, eng.load.MaxOrderNumberLength)
	assert.Equal(t, core.DefaultLockName, eng.load.LockName)
	assert.Equal(t, core.DefaultFactTable, eng.Schema().FactTable)
	assert.False(t, eng.dbConnected)
}

func TestLoadFromStaging_ExactDuplicatesCollapse(t *testing.T) {
	eng, db := setupEngine(t, core.LoadConfig{})
	stage(t, db, alice(), alice())

	res, err := eng.LoadFromStaging(context.Background(), year2021)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"customer": 1, "product": 1}, res.DimensionsCreated)
	assert.Equal(t, 1, res.FactsAppended)
	assert.Equal(t, 1, res.DuplicatesCollapsed)
	assert.Equal(t, 2, res.StagingRows)
	assert.Equal(t, 2, res.WindowRows)
	assert.NotEmpty(t, res.RunID)

	assert.Equal(t, 1, count(t, db, "dim_customer"))
	assert.Equal(t, 1, count(t, db, "dim_product"))
	assert.Equal(t, 1, count(t, db, "fact_sales"))
}

func TestLoadFromStaging_Reload(t *testing.T) {
	tests := []struct {
		name        string
		policy      string
		wantFacts   int
		wantSkipped int
		wantErr     bool
	}{
		{name: "skip", policy: "skip", wantFacts: 1, wantSkipped: 1},
		{name: "default is skip", policy: "", wantFacts: 1, wantSkipped: 1},
		{name: "append keeps history", policy: "append", wantFacts: 2},
		{name: "error rejects reload", policy: "error", wantFacts: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			eng, db := setupEngine(t, core.LoadConfig{FactPolicy: tt.policy})
			stage(t, db, alice(), alice())

			_, err := eng.LoadFromStaging(ctx, year2021)
			require.NoError(t, err)

			res, err := eng.LoadFromStaging(ctx, year2021)
			if tt.wantErr {
				require.Error(t, err)
				var verrs core.ValidationErrors
				require.True(t, errors.As(err, &verrs))
				assert.Contains(t, verrs[0].Reason, "already loaded")
			} else {
				require.NoError(t, err)
				assert.Zero(t, res.TotalDimensionsCreated())
				assert.Equal(t, tt.wantSkipped, res.FactsSkipped)
			}

			assert.Equal(t, 1, count(t, db, "dim_customer"))
			assert.Equal(t, 1, count(t, db, "dim_product"))
			assert.Equal(t, tt.wantFacts, count(t, db, "fact_sales"))
		})
	}
}

func TestLoadFromStaging_SurrogateStability(t *testing.T) {
	ctx := context.Background()
	eng, db := setupEngine(t, core.LoadConfig{})
	stage(t, db, alice())

	_, err := eng.LoadFromStaging(ctx, year2021)
	require.NoError(t, err)
	before := surrogates(t, db, "dim_customer", "customer_key", "email_address")

	stage(t, db,
		testutil.NewSale("Bob", "bob@x.com", "Gadget", "SO2", "1", "2021-06-01", "1", "0.50", "4.50"),
		testutil.NewSale("Alice", "a@x.com", "Gadget", "SO3", "1", "2021-07-01", "3", "0.50", "4.50"),
	)
	res, err := eng.LoadFromStaging(ctx, year2021)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"customer": 1, "product": 1}, res.DimensionsCreated)
	assert.Equal(t, 2, res.FactsAppended)
	assert.Equal(t, 1, res.FactsSkipped)

	after := surrogates(t, db, "dim_customer", "customer_key", "email_address")
	assert.Len(t, after, 2)
	assert.Equal(t, before["a@x.com"], after["a@x.com"])
}

func TestLoadFromStaging_WindowScoping(t *testing.T) {
	eng, db := setupEngine(t, core.LoadConfig{})
	stage(t, db,
		testutil.NewSale("Old", "old@x.com", "Relic", "SO0", "1", "2020-12-31", "1", "0", "1"),
		alice(),
		testutil.NewSale("New", "new@x.com", "Future", "SO9", "1", "2022-01-01", "1", "0", "1"),
	)

	res, err := eng.LoadFromStaging(context.Background(), year2021)
	require.NoError(t, err)
	assert.Equal(t, 3, res.StagingRows)
	assert.Equal(t, 1, res.WindowRows)
	assert.Equal(t, 1, res.FactsAppended)

	var order string
	require.NoError(t, db.QueryRow("SELECT sales_order_number FROM fact_sales").Scan(&order))
	assert.Equal(t, "SO1", order)
	assert.Equal(t, 1, count(t, db, "dim_customer"))
	assert.Equal(t, 1, count(t, db, "dim_product"))

	w, err := core.ParseWindow("2020-12-31..2021-01-01")
	require.NoError(t, err)
	res, err = eng.LoadFromStaging(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, 1, res.WindowRows)
	assert.Equal(t, 1, res.FactsAppended)
}

func TestLoadFromStaging_FullNaturalKey(t *testing.T) {
	eng, db := setupEngine(t, core.LoadConfig{})
	stage(t, db,
		alice(),
		testutil.NewSale("Alice", "alice@y.com", "Widget", "SO2", "1", "2021-05-02", "1", "0.50", "9.99"),
	)

	res, err := eng.LoadFromStaging(context.Background(), year2021)
	require.NoError(t, err)
	assert.Equal(t, 2, res.DimensionsCreated["customer"])
	assert.Equal(t, 1, res.DimensionsCreated["product"])
	assert.Equal(t, 2, count(t, db, "dim_customer"))
}

func TestLoadFromStaging_ReferentialIntegrity(t *testing.T) {
	eng, db := setupEngine(t, core.LoadConfig{})
	stage(t, db,
		alice(),
		testutil.NewSale("Bob", "bob@x.com", "Gadget", "SO2", "1", "2021-06-01", "1", "0.50", "4.50"),
		testutil.NewSale("Bob", "bob@x.com", "Widget", "SO2", "2", "2021-06-01", "4", "2.00", "9.99"),
	)

	_, err := eng.LoadFromStaging(context.Background(), year2021)
	require.NoError(t, err)

	var joined int
	require.NoError(t, db.QueryRow(`
		SELECT COUNT(*) FROM fact_sales f
		JOIN dim_customer c ON c.customer_key = f.customer_key
		JOIN dim_product p ON p.product_key = f.product_key`).Scan(&joined))
	assert.Equal(t, 3, joined)
	assert.Equal(t, 3, count(t, db, "fact_sales"))
}

func TestLoadFromStaging_CastFailureRollsBack(t *testing.T) {
	eng, db := setupEngine(t, core.LoadConfig{})
	bad := testutil.NewSale("Bob", "bob@x.com", "Gadget", "SO2", "1", "2021-06-01", "two", "0.50", "4.50")
	stage(t, db, alice(), bad)

	res, err := eng.LoadFromStaging(context.Background(), year2021)
	require.Error(t, err)
	assert.Nil(t, res)

	var abort *core.TransactionAbortError
	require.True(t, errors.As(err, &abort))
	assert.Equal(t, core.PhaseFact, abort.Phase)

	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 2, verr.Row)
	assert.Equal(t, core.FieldQuantity, verr.Field)
	assert.Equal(t, "two", verr.Value)

	// Dimension rows written earlier in the same invocation are gone.
	assert.Zero(t, count(t, db, "dim_customer"))
	assert.Zero(t, count(t, db, "dim_product"))
	assert.Zero(t, count(t, db, "fact_sales"))

	run, err := eng.LatestRun()
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, core.RunStatusFailed, run.Status)
	assert.Equal(t, abort.RunID, run.ID)
	assert.Contains(t, run.Error, "Quantity")
}

func TestLoadFromStaging_NullNaturalKeyAborts(t *testing.T) {
	eng, db := setupEngine(t, core.LoadConfig{})
	noEmail := alice()
	noEmail.EmailAddress = nil
	noEmail.OrderNumber = testutil.S("SO2")
	stage(t, db, alice(), noEmail)

	_, err := eng.LoadFromStaging(context.Background(), year2021)
	require.Error(t, err)

	var abort *core.TransactionAbortError
	require.True(t, errors.As(err, &abort))
	assert.Equal(t, core.PhaseDimension, abort.Phase)

	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, core.FieldEmailAddress, verr.Field)

	assert.Zero(t, count(t, db, "dim_customer"))
	assert.Zero(t, count(t, db, "fact_sales"))
}

func TestLoadFromStaging_ConflictingOrderLine(t *testing.T) {
	eng, db := setupEngine(t, core.LoadConfig{})
	changed := alice()
	changed.Quantity = testutil.S("5")
	stage(t, db, alice(), changed)

	_, err := eng.LoadFromStaging(context.Background(), year2021)
	require.Error(t, err)

	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 2, verr.Row)
	assert.Contains(t, verr.Reason, "row 1")
	assert.Zero(t, count(t, db, "fact_sales"))
}

func TestLoadFromStaging_UndatedRowsLeftOut(t *testing.T) {
	eng, db := setupEngine(t, core.LoadConfig{})
	missing := testutil.NewSale("Bob", "b@x.com", "Gadget", "SO2", "1", "", "1", "0.50", "4.50")
	missing.OrderDate = nil
	garbled := testutil.NewSale("Carol", "c@x.com", "Gadget", "SO3", "1", "sometime in 2019", "1", "0.50", "4.50")
	stage(t, db, missing, alice(), garbled)

	res, err := eng.LoadFromStaging(context.Background(), year2021)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3}, res.UndatedRows)
	assert.Equal(t, 3, res.StagingRows)
	assert.Equal(t, 1, res.WindowRows)
	assert.Equal(t, 1, res.FactsAppended)
	assert.Equal(t, 1, count(t, db, "dim_customer"))

	run, err := eng.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.UndatedRows)
}

func TestFilterWindow(t *testing.T) {
	rows := []core.StagingRow{
		stagingRow(1, map[string]string{core.FieldOrderDate: "2021-05-01"}),
		stagingRow(2, map[string]string{core.FieldOrderDate: "2022-01-01"}),
		stagingRow(3, map[string]string{}),
		stagingRow(4, map[string]string{core.FieldOrderDate: "  "}),
		stagingRow(5, map[string]string{core.FieldOrderDate: "05/01/2021"}),
		stagingRow(6, map[string]string{core.FieldOrderDate: "2021-12-31 23:59:59"}),
	}

	in, undated := filterWindow(rows, year2021)

	require.Len(t, in, 2)
	assert.Equal(t, 1, in[0].Row)
	assert.Equal(t, 6, in[1].Row)

	require.Len(t, undated, 3)
	assert.Equal(t, 3, undated[0].Row)
	assert.Equal(t, "is required", undated[0].Reason)
	assert.Equal(t, 4, undated[1].Row)
	assert.Equal(t, 5, undated[2].Row)
	assert.Equal(t, "05/01/2021", undated[2].Value)
	assert.Equal(t, core.FieldOrderDate, undated[2].Field)
}

func TestLoadFromStaging_Timeout(t *testing.T) {
	eng, db := setupEngine(t, core.LoadConfig{})
	stage(t, db, alice())

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := eng.LoadFromStaging(ctx, year2021)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	var abort *core.TransactionAbortError
	require.True(t, errors.As(err, &abort))

	run, err := eng.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusFailed, run.Status)
}

func TestLoadFromStaging_ConcurrentRejected(t *testing.T) {
	eng, _ := setupEngine(t, core.LoadConfig{})

	eng.loadMu.Lock()
	_, err := eng.LoadFromStaging(context.Background(), year2021)
	eng.loadMu.Unlock()

	require.ErrorIs(t, err, core.ErrLoadInProgress)

	runs, err := eng.Runs(10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestLoadFromStaging_InvalidWindow(t *testing.T) {
	eng, _ := setupEngine(t, core.LoadConfig{})

	_, err := eng.LoadFromStaging(context.Background(), core.Window{})
	require.Error(t, err)
}

func TestEngine_RunHistory(t *testing.T) {
	ctx := context.Background()
	eng, db := setupEngine(t, core.LoadConfig{})
	stage(t, db, alice())

	first, err := eng.LoadFromStaging(ctx, year2021)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := eng.LoadFromStaging(ctx, year2021)
	require.NoError(t, err)

	runs, err := eng.Runs(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.RunID, runs[0].ID)
	assert.Equal(t, first.RunID, runs[1].ID)
	assert.Equal(t, core.RunStatusCompleted, runs[1].Status)
	assert.Equal(t, 1, runs[1].FactsAppended)
	assert.Equal(t, 1, runs[0].FactsSkipped)
	assert.Equal(t, year2021, runs[0].Window())

	latest, err := eng.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, second.RunID, latest.ID)
}

func TestEngine_EnsureSchema(t *testing.T) {
	eng, db := setupEngine(t, core.LoadConfig{})

	require.NoError(t, eng.EnsureSchema(context.Background()))
	assert.Zero(t, count(t, db, "fact_sales"))

	adp, err := eng.Adapter(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", adp.Dialect().Name)
}

func TestEngine_LazyConnect(t *testing.T) {
	path := t.TempDir() + "/warehouse.db"

	eng, err := New(Config{
		AdapterConfig: core.AdapterConfig{Type: "sqlite", Path: path},
		StatePath:     ":memory:",
		Logger:        testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	defer func() { _ = eng.Close() }()

	adp, err := eng.Adapter(context.Background())
	require.NoError(t, err)
	testutil.CreateStagingTable(t, adp.DB(), adp.Dialect(), core.DefaultStagingTable)
	testutil.InsertSales(t, adp.DB(), adp.Dialect(), core.DefaultStagingTable, alice())

	res, err := eng.LoadFromStaging(context.Background(), year2021)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FactsAppended)
}

func TestEngine_UnknownAdapter(t *testing.T) {
	eng, err := New(Config{
		AdapterConfig: core.AdapterConfig{Type: "oracle"},
		StatePath:     ":memory:",
	})
	require.NoError(t, err)
	defer func() { _ = eng.Close() }()

	_, err = eng.LoadFromStaging(context.Background(), year2021)
	require.Error(t, err)

	var abort *core.TransactionAbortError
	require.True(t, errors.As(err, &abort))
	assert.Equal(t, core.PhaseConnect, abort.Phase)
}
