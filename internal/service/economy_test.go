package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"resume_rewards/internal/catalog"
	"resume_rewards/internal/domain"
	"resume_rewards/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.LedgerEvent
}

func (n *recordingNotifier) Publish(_ uuid.UUID, ev domain.LedgerEvent) {
	n.mu.Lock()
	n.events = append(n.events, ev)
	n.mu.Unlock()
}

type fixture struct {
	store    *repository.MemoryLedger
	economy  *EconomyService
	clock    *fixedClock
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    repository.NewMemoryLedger(),
		clock:    &fixedClock{t: time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)},
		notifier: &recordingNotifier{},
	}
	f.economy = NewEconomyService(f.store, catalog.Default(),
		WithClock(f.clock.Now),
		WithNotifier(f.notifier),
		WithAISuggestionCost(5),
	)
	return f
}

func (f *fixture) account(t *testing.T, name string) uuid.UUID {
	t.Helper()
	a := domain.NewAccount(name, "", f.clock.Now())
	require.NoError(t, f.store.CreateAccount(context.Background(), a))
	return a.ID
}

func (f *fixture) fund(t *testing.T, id uuid.UUID, points int64) {
	t.Helper()
	_, err := f.economy.Adjust(context.Background(), id, points, "test funding", false)
	require.NoError(t, err)
}

func TestEconomyScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.account(t, "Ann")

	res, err := f.economy.Credit(ctx, id, domain.EarnSignup, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(25), res.TotalPoints)
	assert.Equal(t, domain.LevelBronze, res.NewLevel)
	assert.False(t, res.LeveledUp)

	res, err = f.economy.Credit(ctx, id, domain.EarnProfileComplete, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(75), res.TotalPoints)
	assert.False(t, res.LeveledUp)

	res, err = f.economy.Credit(ctx, id, domain.EarnResumeCreated, map[string]any{"first": true})
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.TotalPoints)
	assert.Equal(t, domain.LevelSilver, res.NewLevel)
	assert.True(t, res.LeveledUp)
	require.Len(t, res.NewBadges, 1)
	assert.Equal(t, "First Resume", res.NewBadges[0].Name)

	deb, err := f.economy.Debit(ctx, id, domain.SpendCVDownload, 50, map[string]any{"template_id": "classic"})
	require.NoError(t, err)
	assert.Equal(t, int64(100), deb.BalanceBefore)
	assert.Equal(t, int64(50), deb.BalanceAfter)
	assert.Equal(t, domain.LevelBronze, deb.NewLevel)
	assert.True(t, deb.LeveledUp, "a debit can demote")
	require.Len(t, deb.NewBadges, 1)
	assert.Equal(t, "First Download", deb.NewBadges[0].Name)

	_, err = f.economy.UnlockTemplate(ctx, id, "modern")
	var ip *domain.InsufficientPointsError
	require.ErrorAs(t, err, &ip)
	assert.Equal(t, int64(50), ip.Balance)
	assert.Equal(t, int64(100), ip.Required)
	assert.Equal(t, int64(50), ip.Shortfall())

	st, err := f.economy.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(50), st.Balance)
	assert.Equal(t, 50, st.Progress)
	assert.Empty(t, st.UnlockedTemplates)
	assert.Equal(t, 1, st.Stats.ResumesDownloaded)
	assert.Equal(t, int64(100), st.Stats.TotalPointsEarned)
	assert.Equal(t, int64(50), st.Stats.TotalPointsSpent)

	rec, err := f.economy.Reconcile(ctx, id)
	require.NoError(t, err)
	assert.True(t, rec.Balanced)
	assert.Equal(t, 4, rec.TransactionCount)
}

func TestOneTimeCreditsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.account(t, "Bo")

	_, err := f.economy.Credit(ctx, id, domain.EarnProfileComplete, nil)
	require.NoError(t, err)
	_, err = f.economy.Credit(ctx, id, domain.EarnProfileComplete, nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)

	_, err = f.economy.Credit(ctx, id, domain.EarnResumeCreated, map[string]any{"first": "true"})
	require.NoError(t, err)
	_, err = f.economy.Credit(ctx, id, domain.EarnResumeCreated, map[string]any{"first": true})
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)

	// later resumes still earn
	_, err = f.economy.Credit(ctx, id, domain.EarnResumeCreated, nil)
	require.NoError(t, err)

	_, err = f.economy.SocialFollow(ctx, id, "GitHub")
	require.NoError(t, err)
	_, err = f.economy.SocialFollow(ctx, id, "github")
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)
	_, err = f.economy.SocialFollow(ctx, id, "myspace")
	assert.ErrorIs(t, err, domain.ErrUnknownPlatform)

	st, err := f.economy.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(50+25+25+10), st.Balance)
	assert.Equal(t, 2, st.Stats.ResumesCreated)
	assert.True(t, st.SocialFollows[domain.PlatformGitHub])
	assert.False(t, st.SocialFollows[domain.PlatformTwitter])
}

func TestSocialConnectorBadge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.account(t, "Cy")

	var last *CreditResult
	for _, p := range domain.SocialPlatforms {
		res, err := f.economy.Credit(ctx, id, domain.EarnSocialFollow, map[string]any{"platform": string(p)})
		require.NoError(t, err)
		last = res
	}
	require.Len(t, last.NewBadges, 1)
	assert.Equal(t, "Social Connector", last.NewBadges[0].Name)
	assert.Equal(t, int64(10*len(domain.SocialPlatforms)), last.TotalPoints)
}

func TestUnknownActivityRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.account(t, "Di")

	_, err := f.economy.Credit(ctx, id, domain.EarnKind("lottery"), nil)
	assert.ErrorIs(t, err, domain.ErrUnknownActivity)
	_, err = f.economy.Debit(ctx, id, domain.SpendKind("coffee"), 5, nil)
	assert.ErrorIs(t, err, domain.ErrUnknownActivity)
	_, err = f.economy.Debit(ctx, id, domain.SpendAISuggestion, 0, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = f.economy.Credit(ctx, uuid.New(), domain.EarnSignup, nil)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestConcurrentDebitsSpendOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.account(t, "Ed")
	f.fund(t, id, 50)

	var (
		wg      sync.WaitGroup
		results = make([]error, 2)
	)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.economy.Debit(ctx, id, domain.SpendCVDownload, 50, map[string]any{"template_id": "classic"})
		}(i)
	}
	wg.Wait()

	var ok, poor int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientPoints):
			poor++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, poor)

	st, err := f.economy.Status(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, st.Balance)
}

func TestDownloadOfLockedTemplateChargesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.account(t, "Flo")
	f.fund(t, id, 500)

	_, err := f.economy.Debit(ctx, id, domain.SpendCVDownload, 50, map[string]any{"template_id": "modern"})
	assert.ErrorIs(t, err, domain.ErrTemplateLocked)

	st, err := f.economy.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(500), st.Balance)

	_, err = f.economy.UnlockTemplate(ctx, id, "modern")
	require.NoError(t, err)
	deb, err := f.economy.Debit(ctx, id, domain.SpendCVDownload, 50, map[string]any{"template_id": "modern"})
	require.NoError(t, err)
	assert.Equal(t, int64(350), deb.BalanceAfter)
	assert.Equal(t, "modern", deb.Transaction.Metadata["template_id"])
}

func TestDebitCannotUndercutPrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.account(t, "Gus")
	f.fund(t, id, 500)
	require.NoError(t, f.economy.GrantTemplate(ctx, id, "executive"))

	price := f.economy.Catalog().DownloadCost("executive")
	require.Greater(t, price, int64(1))

	_, err := f.economy.Debit(ctx, id, domain.SpendCVDownload, 1, map[string]any{"template_id": "executive"})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = f.economy.Debit(ctx, id, domain.SpendAISuggestion, 4, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	st, err := f.economy.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(500), st.Balance)

	deb, err := f.economy.Debit(ctx, id, domain.SpendCVDownload, price, map[string]any{"template_id": "executive"})
	require.NoError(t, err)
	assert.Equal(t, 500-price, deb.BalanceAfter)
}

func TestUnlockTemplate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.account(t, "Gus")

	_, err := f.economy.UnlockTemplate(ctx, id, "no-such-template")
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
	_, err = f.economy.UnlockTemplate(ctx, id, "classic")
	assert.ErrorIs(t, err, domain.ErrAlreadyFree)

	// failure leaves no trace
	_, err = f.economy.UnlockTemplate(ctx, id, "modern")
	assert.ErrorIs(t, err, domain.ErrInsufficientPoints)
	txs, err := f.economy.Transactions(ctx, id, 1, 50)
	require.NoError(t, err)
	assert.Empty(t, txs)
	st, err := f.economy.Status(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, st.UnlockedTemplates)

	f.fund(t, id, 120)
	res, err := f.economy.UnlockTemplate(ctx, id, "modern")
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.Cost)
	assert.Equal(t, int64(20), res.RemainingBalance)
	assert.Equal(t, domain.TxSpendTemplateUnlock, res.Transaction.Type)

	st, err = f.economy.Status(ctx, id)
	require.NoError(t, err)
	require.Len(t, st.UnlockedTemplates, 1)
	assert.Equal(t, "modern", st.UnlockedTemplates[0].TemplateID)
	assert.Equal(t, int64(100), st.UnlockedTemplates[0].Cost)

	f.fund(t, id, 200)
	_, err = f.economy.UnlockTemplate(ctx, id, "modern")
	assert.ErrorIs(t, err, domain.ErrAlreadyUnlocked)

	// debit with template-unlock goes through the same path
	deb, err := f.economy.Debit(ctx, id, domain.SpendTemplateUnlock, 0, map[string]any{"template_id": "creative"})
	require.NoError(t, err)
	assert.Equal(t, int64(150), deb.AmountDeducted)
}

func TestLevelDependsOnlyOnBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	direct := f.account(t, "Hal")
	f.fund(t, direct, 150)

	roundabout := f.account(t, "Ivy")
	f.fund(t, roundabout, 200)
	_, err := f.economy.Debit(ctx, roundabout, domain.SpendAISuggestion, 50, nil)
	require.NoError(t, err)

	a, err := f.economy.Status(ctx, direct)
	require.NoError(t, err)
	b, err := f.economy.Status(ctx, roundabout)
	require.NoError(t, err)
	assert.Equal(t, domain.LevelSilver, a.Level)
	assert.Equal(t, a.Level, b.Level)
	assert.Equal(t, a.Progress, b.Progress)
}

func TestDownloadCostQuote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.account(t, "Jo")
	f.fund(t, id, 120)

	q, err := f.economy.DownloadCost(ctx, id, "modern")
	require.NoError(t, err)
	assert.True(t, q.RequiresUnlock)
	assert.False(t, q.IsUnlocked)
	assert.Equal(t, int64(150), q.TotalCost)
	assert.False(t, q.CanAfford)

	q, err = f.economy.DownloadCost(ctx, id, "unknown-template")
	require.NoError(t, err)
	assert.Equal(t, catalog.TierFree, q.Tier)
	assert.Equal(t, int64(50), q.TotalCost)
	assert.True(t, q.CanAfford)

	_, err = f.economy.DownloadCost(ctx, uuid.New(), "modern")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestDailyLoginStreak(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.account(t, "Kim")

	res, err := f.economy.DailyLogin(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.PointsAwarded)

	f.clock.Advance(2 * time.Hour)
	_, err = f.economy.DailyLogin(ctx, id)
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)

	f.clock.Advance(24 * time.Hour)
	_, err = f.economy.DailyLogin(ctx, id)
	require.NoError(t, err)
	st, err := f.economy.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Stats.LoginStreak)

	f.clock.Advance(72 * time.Hour)
	res, err = f.economy.DailyLogin(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, res.Transaction.Description, "1 day")
}

func TestRefund(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.account(t, "Lee")
	f.fund(t, id, 300)

	deb, err := f.economy.Debit(ctx, id, domain.SpendAISuggestion, 5, nil)
	require.NoError(t, err)

	res, err := f.economy.Refund(ctx, deb.Transaction.ID, "model timeout")
	require.NoError(t, err)
	assert.Equal(t, int64(300), res.TotalPoints)
	require.NotNil(t, res.Transaction.RelatedTransactionID)
	assert.Equal(t, deb.Transaction.ID, *res.Transaction.RelatedTransactionID)

	_, err = f.economy.Refund(ctx, deb.Transaction.ID, "")
	assert.ErrorIs(t, err, domain.ErrAlreadyRefunded)

	unlock, err := f.economy.UnlockTemplate(ctx, id, "modern")
	require.NoError(t, err)
	_, err = f.economy.Refund(ctx, unlock.Transaction.ID, "")
	assert.ErrorIs(t, err, domain.ErrNotRefundable)

	_, err = f.economy.Refund(ctx, uuid.New(), "")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)

	original, err := f.store.GetTransaction(ctx, deb.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, original.Status, "original record is never edited")

	rec, err := f.economy.Reconcile(ctx, id)
	require.NoError(t, err)
	assert.True(t, rec.Balanced)
}

func TestAdjust(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.account(t, "Max")

	_, err := f.economy.Adjust(ctx, id, 0, "", false)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = f.economy.Adjust(ctx, id, -10, "", true)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = f.economy.Adjust(ctx, id, -10, "", false)
	assert.ErrorIs(t, err, domain.ErrInsufficientPoints)

	res, err := f.economy.Adjust(ctx, id, 1000, "bundle", true)
	require.NoError(t, err)
	assert.Equal(t, domain.TxPurchase, res.Transaction.Type)
	assert.Equal(t, domain.LevelDiamond, res.NewLevel)
	assert.True(t, res.LeveledUp)

	st, err := f.economy.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 100, st.Progress)
	assert.Empty(t, st.NextLevel)
}

func TestAwardBadgeAndGrantTemplate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.account(t, "Ned")

	added, err := f.economy.AwardBadge(ctx, id, "Beta Tester", "🧪")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = f.economy.AwardBadge(ctx, id, "Beta Tester", "🧪")
	require.NoError(t, err)
	assert.False(t, added)

	require.NoError(t, f.economy.GrantTemplate(ctx, id, "executive"))
	assert.ErrorIs(t, f.economy.GrantTemplate(ctx, id, "executive"), domain.ErrAlreadyUnlocked)
	assert.ErrorIs(t, f.economy.GrantTemplate(ctx, id, "classic"), domain.ErrAlreadyFree)

	q, err := f.economy.DownloadCost(ctx, id, "executive")
	require.NoError(t, err)
	assert.True(t, q.IsUnlocked)
	assert.Equal(t, q.DownloadCost, q.TotalCost)

	st, err := f.economy.Status(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, st.Balance)
}

func TestHistoryPagination(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.account(t, "Oz")

	_, err := f.economy.Credit(ctx, id, domain.EarnSignup, nil)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := f.economy.Credit(ctx, id, domain.EarnResumeCreated, nil)
		require.NoError(t, err)
	}
	// 5 credits + First Resume badge entry

	page, err := f.economy.History(ctx, id, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Activities, 2)
	assert.Equal(t, domain.ActivitySignup, page.Activities[1].Kind, "oldest entry last")
}

func TestCommittedChangesArePublished(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.account(t, "Pat")

	_, err := f.economy.Credit(ctx, id, domain.EarnSignup, nil)
	require.NoError(t, err)
	_, err = f.economy.Credit(ctx, id, domain.EarnSignup, nil)
	require.Error(t, err)

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	require.Len(t, f.notifier.events, 1, "rejected operations publish nothing")
	ev := f.notifier.events[0]
	assert.Equal(t, domain.EventBalanceChanged, ev.Type)
	assert.Equal(t, int64(25), ev.Balance)
}
