package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resume_rewards/internal/domain"

	"github.com/google/uuid"
)

// ErrInvariant marks a mutation plan that would break a ledger invariant.
// It indicates a programming error, never a user error.
var ErrInvariant = errors.New("ledger invariant violated")

// MutateFunc computes the new account state on a private copy and returns
// what else the atomic unit must write. Returning an error aborts the unit.
type MutateFunc func(acc *domain.Account) (*domain.Change, error)

// LedgerStore is durable storage for accounts and their transaction log.
// Apply runs fn with the account serialized against every other Apply on
// the same id; either everything in the returned Change is committed or
// nothing is.
type LedgerStore interface {
	CreateAccount(ctx context.Context, acc *domain.Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	FindByReferralCode(ctx context.Context, code string) (*domain.Account, error)
	// SetReferralCode stores code only if the account has none yet and
	// returns the code now in effect.
	SetReferralCode(ctx context.Context, id uuid.UUID, code string) (string, error)

	Apply(ctx context.Context, id uuid.UUID, fn MutateFunc) (*domain.Change, error)

	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, error)
	SumTransactions(ctx context.Context, accountID uuid.UUID) (sum int64, count int, err error)
	IsRefunded(ctx context.Context, txID uuid.UUID) (bool, error)
	ListActivities(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Activity, int, error)

	// Standings returns the top accounts by score, where score is balance
	// when since is nil and points earned since then otherwise.
	Standings(ctx context.Context, since *time.Time, limit int) ([]domain.Standing, error)
	// RankOf ranks one account as 1 + number of accounts with a strictly
	// greater score.
	RankOf(ctx context.Context, id uuid.UUID, since *time.Time) (domain.RankedStanding, error)
	CountAccounts(ctx context.Context) (int, error)
}

// Finalize validates a mutation plan against the state it started from and
// derives the level. Stores call it before writing anything.
func Finalize(before, working *domain.Account, ch *domain.Change) error {
	if ch == nil {
		return fmt.Errorf("%w: empty change", ErrInvariant)
	}
	if working.ID != before.ID {
		return fmt.Errorf("%w: account id changed", ErrInvariant)
	}
	if working.Balance < 0 {
		return &domain.InsufficientPointsError{Balance: before.Balance, Required: before.Balance - working.Balance}
	}

	if tx := ch.Transaction; tx != nil {
		switch {
		case tx.AccountID != before.ID:
			return fmt.Errorf("%w: transaction for another account", ErrInvariant)
		case tx.BalanceBefore != before.Balance || tx.BalanceAfter != working.Balance:
			return fmt.Errorf("%w: transaction %d->%d does not match balance %d->%d",
				ErrInvariant, tx.BalanceBefore, tx.BalanceAfter, before.Balance, working.Balance)
		case !tx.Balanced():
			return fmt.Errorf("%w: unbalanced transaction", ErrInvariant)
		}
	} else if working.Balance != before.Balance {
		return fmt.Errorf("%w: balance changed without a transaction", ErrInvariant)
	}

	if len(working.Badges) < len(before.Badges) || len(working.Unlocks) < len(before.Unlocks) {
		return fmt.Errorf("%w: badges and unlocks are append-only", ErrInvariant)
	}
	for p, on := range before.SocialFollows {
		if on && !working.SocialFollows[p] {
			return fmt.Errorf("%w: social follow %s reset", ErrInvariant, p)
		}
	}
	seen := make(map[string]bool, len(working.Badges))
	for _, b := range working.Badges {
		if seen[b.Name] {
			return fmt.Errorf("%w: duplicate badge %q", ErrInvariant, b.Name)
		}
		seen[b.Name] = true
	}

	working.Level = domain.LevelForBalance(working.Balance)
	return nil
}

// ApplyMutation moves the balance by delta and journals it. A debit that
// would go below zero fails with *domain.InsufficientPointsError.
func ApplyMutation(ctx context.Context, store LedgerStore, id uuid.UUID, delta int64, txType domain.TransactionType, description string, meta map[string]any, now time.Time) (*domain.Change, error) {
	return store.Apply(ctx, id, func(acc *domain.Account) (*domain.Change, error) {
		if delta < 0 && acc.Balance+delta < 0 {
			return nil, &domain.InsufficientPointsError{Balance: acc.Balance, Required: -delta}
		}
		tx := domain.NewTransaction(acc.ID, txType, delta, acc.Balance, description, meta, now)
		acc.Balance += delta
		acc.UpdatedAt = now
		return &domain.Change{Transaction: tx}, nil
	})
}

// AppendBadge adds a badge. An existing badge with the same name is a no-op.
func AppendBadge(ctx context.Context, store LedgerStore, id uuid.UUID, badge domain.Badge) (*domain.Change, error) {
	return store.Apply(ctx, id, func(acc *domain.Account) (*domain.Change, error) {
		ch := &domain.Change{}
		if acc.HasBadge(badge.Name) {
			return ch, nil
		}
		acc.Badges = append(acc.Badges, badge)
		ch.NewBadges = []domain.Badge{badge}
		ch.Activities = []domain.Activity{
			domain.NewActivity(acc.ID, domain.ActivityBadgeEarned, 0, "Earned badge: "+badge.Name, map[string]any{"badge": badge.Name}, badge.EarnedAt),
		}
		return ch, nil
	})
}

// RecordUnlock adds a template to the unlocked set without touching the
// balance. Fails with domain.ErrAlreadyUnlocked on a repeat.
func RecordUnlock(ctx context.Context, store LedgerStore, id uuid.UUID, templateID string, cost int64, now time.Time) (*domain.Change, error) {
	return store.Apply(ctx, id, func(acc *domain.Account) (*domain.Change, error) {
		if acc.IsUnlocked(templateID) {
			return nil, domain.ErrAlreadyUnlocked
		}
		u := domain.TemplateUnlock{TemplateID: templateID, Cost: cost, UnlockedAt: now}
		acc.Unlocks = append(acc.Unlocks, u)
		acc.UpdatedAt = now
		return &domain.Change{Unlock: &u}, nil
	})
}

// newBadges returns badges present in after but not in before.
func newBadges(before, after *domain.Account) []domain.Badge {
	var out []domain.Badge
	for _, b := range after.Badges {
		if !before.HasBadge(b.Name) {
			out = append(out, b)
		}
	}
	return out
}

func newUnlocks(before, after *domain.Account) []domain.TemplateUnlock {
	var out []domain.TemplateUnlock
	for _, u := range after.Unlocks {
		if !before.IsUnlocked(u.TemplateID) {
			out = append(out, u)
		}
	}
	return out
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
