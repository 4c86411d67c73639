package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/leapstar/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  adapter.Config
		want string
	}{
		{
			name: "defaults",
			cfg:  adapter.Config{Database: "warehouse"},
			want: "host=localhost port=5432 dbname=warehouse sslmode=disable",
		},
		{
			name: "credentials and schema",
			cfg: adapter.Config{
				Host:     "db.internal",
				Port:     6543,
				Database: "sales",
				Username: "loader",
				Password: "p w'd",
				Schema:   "star",
				Options:  map[string]string{"sslmode": "require", "application_name": "leapstar"},
			},
			want: `host=db.internal port=6543 dbname=sales sslmode=require user=loader password='p w\'d' search_path=star application_name=leapstar`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildPostgresDSN(tt.cfg))
		})
	}
}

func TestLockKey_Stable(t *testing.T) {
	assert.Equal(t, lockKey("leapstar_load"), lockKey("leapstar_load"))
	assert.NotEqual(t, lockKey("leapstar_load"), lockKey("other_load"))
}

func TestAdapter_AcquireLoadLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1\)`).
		WithArgs(lockKey("leapstar_load")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ctx := context.Background()
	adp := New(nil)
	adp.Pool = db

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	release, err := adp.AcquireLoadLock(ctx, tx, "leapstar_load")
	require.NoError(t, err)
	require.NoError(t, release(ctx))
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Dialect(t *testing.T) {
	d := New(nil).Dialect()
	assert.Equal(t, "postgres", d.Name)
	assert.Equal(t, "$3, $4", d.Placeholders(3, 2))
}
