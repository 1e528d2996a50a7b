package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"resume_rewards/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// testDSN returns DATABASE_URL, or starts a throwaway container when
// LEDGER_TESTCONTAINERS=1. Without either the test is skipped.
func testDSN(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	if os.Getenv("LEDGER_TESTCONTAINERS") != "1" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestLedgerRepositoryContract(t *testing.T) {
	dsn := testDSN(t)
	require.NoError(t, db.Migrate(dsn))

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	latest, err := db.LatestVersion()
	require.NoError(t, err)
	version, dirty, err := NewLedgerRepository(pool, 3).SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, latest, version)
	assert.False(t, dirty)

	storeContract(t, func(t *testing.T) LedgerStore {
		// Each subtest starts from empty tables.
		_, err := pool.Exec(context.Background(),
			`TRUNCATE activities, transactions, referrals, template_unlocks, account_badges, accounts`)
		require.NoError(t, err)
		return NewLedgerRepository(pool, 3)
	})
}
