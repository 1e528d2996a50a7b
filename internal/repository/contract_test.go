package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"resume_rewards/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeContract exercises behaviour every LedgerStore must share.
func storeContract(t *testing.T, newStore func(t *testing.T) LedgerStore) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	open := func(t *testing.T, s LedgerStore, name string, balance int64) *domain.Account {
		t.Helper()
		a := domain.NewAccount(name, name+"@example.com", now)
		require.NoError(t, s.CreateAccount(ctx, a))
		if balance > 0 {
			_, err := ApplyMutation(ctx, s, a.ID, balance, domain.TxAdminAdjustment, "seed", nil, now)
			require.NoError(t, err)
		}
		return a
	}

	t.Run("unknown account", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetAccount(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
		_, err = ApplyMutation(ctx, s, uuid.New(), 10, domain.TxAdminAdjustment, "", nil, now)
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	})

	t.Run("mutation journals and derives level", func(t *testing.T) {
		s := newStore(t)
		a := open(t, s, "ann", 0)

		ch, err := ApplyMutation(ctx, s, a.ID, 150, domain.TxAdminAdjustment, "grant", map[string]any{"by": "ops"}, now)
		require.NoError(t, err)
		assert.Equal(t, int64(150), ch.Account.Balance)
		assert.Equal(t, domain.LevelSilver, ch.Account.Level)
		assert.Equal(t, int64(0), ch.Transaction.BalanceBefore)
		assert.Equal(t, int64(150), ch.Transaction.BalanceAfter)

		got, err := s.GetTransaction(ctx, ch.Transaction.ID)
		require.NoError(t, err)
		assert.Equal(t, "ops", got.Metadata["by"])

		stored, err := s.GetAccount(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(150), stored.Balance)
		assert.Equal(t, domain.LevelSilver, stored.Level)
	})

	t.Run("overdraft rejected without writes", func(t *testing.T) {
		s := newStore(t)
		a := open(t, s, "bo", 40)

		_, err := ApplyMutation(ctx, s, a.ID, -50, domain.TxSpendDownload, "download", nil, now)
		var ip *domain.InsufficientPointsError
		require.ErrorAs(t, err, &ip)
		assert.Equal(t, int64(40), ip.Balance)
		assert.Equal(t, int64(10), ip.Shortfall())

		sum, count, err := s.SumTransactions(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(40), sum)
		assert.Equal(t, 1, count)
	})

	t.Run("failed plan leaves nothing behind", func(t *testing.T) {
		s := newStore(t)
		a := open(t, s, "cy", 100)
		boom := errors.New("boom")

		_, err := s.Apply(ctx, a.ID, func(acc *domain.Account) (*domain.Change, error) {
			acc.Balance = 0
			acc.Unlocks = append(acc.Unlocks, domain.TemplateUnlock{TemplateID: "modern", Cost: 100, UnlockedAt: now})
			return nil, boom
		})
		require.ErrorIs(t, err, boom)

		stored, err := s.GetAccount(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(100), stored.Balance)
		assert.Empty(t, stored.Unlocks)
	})

	t.Run("badge append is idempotent", func(t *testing.T) {
		s := newStore(t)
		a := open(t, s, "di", 0)
		b := domain.Badge{Name: "First Resume", Icon: "📄", EarnedAt: now}

		ch, err := AppendBadge(ctx, s, a.ID, b)
		require.NoError(t, err)
		assert.Len(t, ch.NewBadges, 1)

		ch, err = AppendBadge(ctx, s, a.ID, b)
		require.NoError(t, err)
		assert.Empty(t, ch.NewBadges)

		stored, err := s.GetAccount(ctx, a.ID)
		require.NoError(t, err)
		assert.Len(t, stored.Badges, 1)
	})

	t.Run("unlock recorded once", func(t *testing.T) {
		s := newStore(t)
		a := open(t, s, "ed", 0)

		_, err := RecordUnlock(ctx, s, a.ID, "modern", 0, now)
		require.NoError(t, err)
		_, err = RecordUnlock(ctx, s, a.ID, "modern", 0, now)
		assert.ErrorIs(t, err, domain.ErrAlreadyUnlocked)
	})

	t.Run("referral code is immutable and unique", func(t *testing.T) {
		s := newStore(t)
		a := open(t, s, "fay", 0)
		b := open(t, s, "gus", 0)

		code, err := s.SetReferralCode(ctx, a.ID, "FAY-AAAA")
		require.NoError(t, err)
		assert.Equal(t, "FAY-AAAA", code)

		code, err = s.SetReferralCode(ctx, a.ID, "FAY-BBBB")
		require.NoError(t, err)
		assert.Equal(t, "FAY-AAAA", code, "existing code is kept")

		_, err = s.SetReferralCode(ctx, b.ID, "FAY-AAAA")
		assert.ErrorIs(t, err, domain.ErrReferralCodeTaken)

		found, err := s.FindByReferralCode(ctx, "FAY-AAAA")
		require.NoError(t, err)
		assert.Equal(t, a.ID, found.ID)

		_, err = s.FindByReferralCode(ctx, "NOPE")
		assert.ErrorIs(t, err, domain.ErrInvalidCode)
	})

	t.Run("referral link set once", func(t *testing.T) {
		s := newStore(t)
		referrer := open(t, s, "hal", 0)
		other := open(t, s, "ivy", 0)
		newbie := open(t, s, "jo", 0)

		link := func(from uuid.UUID) error {
			_, err := s.Apply(ctx, from, func(acc *domain.Account) (*domain.Change, error) {
				acc.Referrals = append(acc.Referrals, newbie.ID)
				return &domain.Change{Referral: &domain.ReferralLink{ReferrerID: from, ReferredID: newbie.ID, CreatedAt: now}}, nil
			})
			return err
		}
		require.NoError(t, link(referrer.ID))
		assert.ErrorIs(t, link(other.ID), domain.ErrAlreadyReferred)

		got, err := s.GetAccount(ctx, newbie.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ReferredBy)
		assert.Equal(t, referrer.ID, *got.ReferredBy)

		ref, err := s.GetAccount(ctx, referrer.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{newbie.ID}, ref.Referrals)

		// A later plan on the referred account must not wipe the link.
		_, err = ApplyMutation(ctx, s, newbie.ID, 5, domain.TxAdminAdjustment, "", nil, now)
		require.NoError(t, err)
		got, err = s.GetAccount(ctx, newbie.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ReferredBy)
	})

	t.Run("referral cycle rejected", func(t *testing.T) {
		s := newStore(t)
		ann := open(t, s, "ann", 0)
		bob := open(t, s, "bob", 0)

		link := func(from, to uuid.UUID) error {
			_, err := s.Apply(ctx, from, func(acc *domain.Account) (*domain.Change, error) {
				acc.Referrals = append(acc.Referrals, to)
				return &domain.Change{Referral: &domain.ReferralLink{ReferrerID: from, ReferredID: to, CreatedAt: now}}, nil
			})
			return err
		}
		require.NoError(t, link(ann.ID, bob.ID))
		assert.ErrorIs(t, link(bob.ID, ann.ID), domain.ErrMutualReferral)

		got, err := s.GetAccount(ctx, ann.ID)
		require.NoError(t, err)
		assert.Nil(t, got.ReferredBy)
		got, err = s.GetAccount(ctx, bob.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Referrals)
	})

	t.Run("refund recorded once", func(t *testing.T) {
		s := newStore(t)
		a := open(t, s, "kim", 100)
		spend, err := ApplyMutation(ctx, s, a.ID, -50, domain.TxSpendDownload, "", nil, now)
		require.NoError(t, err)

		refund := func() error {
			_, err := s.Apply(ctx, a.ID, func(acc *domain.Account) (*domain.Change, error) {
				tx := domain.NewTransaction(acc.ID, domain.TxRefund, 50, acc.Balance, "refund", nil, now)
				related := spend.Transaction.ID
				tx.RelatedTransactionID = &related
				acc.Balance += 50
				return &domain.Change{Transaction: tx}, nil
			})
			return err
		}
		require.NoError(t, refund())
		assert.ErrorIs(t, refund(), domain.ErrAlreadyRefunded)

		refunded, err := s.IsRefunded(ctx, spend.Transaction.ID)
		require.NoError(t, err)
		assert.True(t, refunded)
	})

	t.Run("concurrent debits never overdraw", func(t *testing.T) {
		s := newStore(t)
		a := open(t, s, "lee", 100)

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			ok, poor int
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := ApplyMutation(ctx, s, a.ID, -30, domain.TxSpendAISuggestion, "", nil, now)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case errors.Is(err, domain.ErrInsufficientPoints):
					poor++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 3, ok)
		assert.Equal(t, 7, poor)
		stored, err := s.GetAccount(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), stored.Balance)

		sum, _, err := s.SumTransactions(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, stored.Balance, sum)
	})

	t.Run("standings and rank agree", func(t *testing.T) {
		s := newStore(t)
		for i, bal := range []int64{500, 300, 300, 100} {
			open(t, s, string(rune('m'+i)), bal)
		}

		standings, err := s.Standings(ctx, nil, 10)
		require.NoError(t, err)
		ranked := domain.AssignRanks(standings)
		require.Len(t, ranked, 4)
		for i, want := range []int{1, 2, 2, 4} {
			assert.Equal(t, want, ranked[i].Rank)
			single, err := s.RankOf(ctx, ranked[i].AccountID, nil)
			require.NoError(t, err)
			assert.Equal(t, ranked[i].Rank, single.Rank)
		}

		n, err := s.CountAccounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})
}
