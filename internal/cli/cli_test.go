package cli

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"

	"resume_rewards/internal/catalog"
	"resume_rewards/internal/config"
	"resume_rewards/internal/domain"
	"resume_rewards/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useMemoryLedger(t *testing.T) *repository.MemoryLedger {
	t.Helper()
	store := repository.NewMemoryLedger()
	prev := openEnv
	openEnv = func(ctx context.Context, cfg *config.Config) (*env, error) {
		return newEnv(store, catalog.Default(), cfg, nil), nil
	}
	t.Cleanup(func() { openEnv = prev })
	return store
}

func run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

var accountLine = regexp.MustCompile(`account ([0-9a-f-]{36})`)

func createAccount(t *testing.T, name string) string {
	t.Helper()
	out, errOut, code := run(t, "account", "create", "--name", name)
	require.Equal(t, 0, code, errOut)
	m := accountLine.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	return m[1]
}

func TestAccountCreateAndShow(t *testing.T) {
	useMemoryLedger(t)

	out, _, code := run(t, "account", "create", "--name", "Ann")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "balance 25 (Bronze)")
	assert.Contains(t, out, "referral code ANN")

	id := accountLine.FindStringSubmatch(out)[1]
	out, _, code = run(t, "account", "show", id)
	require.Equal(t, 0, code)
	assert.Contains(t, out, `"balance": 25`)

	_, errOut, code := run(t, "account", "show", "not-a-uuid")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid id")

	_, _, code = run(t, "account", "create")
	assert.Equal(t, 1, code, "name is required")
}

func TestAdjustRefundReconcile(t *testing.T) {
	store := useMemoryLedger(t)
	id := createAccount(t, "Bo")

	out, errOut, code := run(t, "adjust", id, "--amount", "500", "--purchase", "--reason", "bundle")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "+500, balance 525 (Gold)")

	_, errOut, code = run(t, "adjust", id, "--amount=-1000")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "insufficient points")

	acc, err := store.GetAccount(context.Background(), mustParse(t, id))
	require.NoError(t, err)
	txs, err := store.ListTransactions(context.Background(), acc.ID, 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, txs)
	// newest is the purchase, which is not refundable
	assert.Equal(t, domain.TxPurchase, txs[0].Type)
	_, errOut, code = run(t, "refund", txs[0].ID.String())
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not refundable")

	out, errOut, code = run(t, "reconcile", id)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "balance 525, journal sum 525 over 2 transactions")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "ok"))
}

func TestBadgeAndTemplateGrant(t *testing.T) {
	useMemoryLedger(t)
	id := createAccount(t, "Cy")

	out, _, code := run(t, "badge", "award", id, "--name", "Beta Tester")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "awarded")
	out, _, code = run(t, "badge", "award", id, "--name", "Beta Tester")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "already held")

	out, _, code = run(t, "template", "grant", id, "elegant")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "granted")
	_, errOut, code := run(t, "template", "grant", id, "elegant")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "already unlocked")
}

func TestCatalogList(t *testing.T) {
	out, _, code := run(t, "catalog", "list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "modern")
	assert.Contains(t, out, "PREMIUM")
	assert.Contains(t, out, "(unknown)")
}

func TestMigrateDownNeedsConfirmation(t *testing.T) {
	_, errOut, code := run(t, "migrate", "down")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "--yes")
}

func mustParse(t *testing.T, s string) uuid.UUID {
	t.Helper()
	u, err := parseID(s)
	require.NoError(t, err)
	return u
}
