package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"resume_rewards/internal/catalog"
	"resume_rewards/internal/domain"
	"resume_rewards/internal/logger"
	"resume_rewards/internal/repository"

	"github.com/google/uuid"
)

// Notifier receives committed ledger changes, e.g. to push them to
// connected clients. Publish must not block.
type Notifier interface {
	Publish(accountID uuid.UUID, ev domain.LedgerEvent)
}

// EconomyService is the only way balances change. Every operation builds a
// mutation plan over a private copy of the account and commits it through
// LedgerStore.Apply, so balance, stats, level, badges, journal and feed move
// together or not at all.
type EconomyService struct {
	store     repository.LedgerStore
	catalog   *catalog.Catalog
	notifiers []Notifier
	now       func() time.Time
	log       *slog.Logger
	aiCost    int64
}

type Option func(*EconomyService)

func WithNotifier(n Notifier) Option {
	return func(s *EconomyService) {
		if n != nil {
			s.notifiers = append(s.notifiers, n)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *EconomyService) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *EconomyService) { s.log = l }
}

// WithAISuggestionCost sets the default price of an AI suggestion.
func WithAISuggestionCost(cost int64) Option {
	return func(s *EconomyService) {
		if cost > 0 {
			s.aiCost = cost
		}
	}
}

func NewEconomyService(store repository.LedgerStore, cat *catalog.Catalog, opts ...Option) *EconomyService {
	s := &EconomyService{
		store:   store,
		catalog: cat,
		now:     time.Now,
		log:     logger.With("component", "economy"),
		aiCost:  5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *EconomyService) Catalog() *catalog.Catalog { return s.catalog }

func (s *EconomyService) clock() time.Time { return s.now().UTC() }

// CreditResult is returned by every earning operation.
type CreditResult struct {
	PointsAwarded int64               `json:"points_awarded"`
	TotalPoints   int64               `json:"total_points"`
	LeveledUp     bool                `json:"leveled_up"`
	NewLevel      domain.Level        `json:"new_level"`
	NewBadges     []domain.Badge      `json:"new_badges"`
	Transaction   *domain.Transaction `json:"transaction"`
}

// DebitResult is returned by spending operations.
type DebitResult struct {
	AmountDeducted int64               `json:"amount_deducted"`
	BalanceBefore  int64               `json:"balance_before"`
	BalanceAfter   int64               `json:"balance_after"`
	LeveledUp      bool                `json:"leveled_up"`
	NewLevel       domain.Level        `json:"new_level"`
	NewBadges      []domain.Badge      `json:"new_badges"`
	Transaction    *domain.Transaction `json:"transaction"`
}

type UnlockResult struct {
	TemplateID       string              `json:"template_id"`
	Tier             catalog.Tier        `json:"tier"`
	Cost             int64               `json:"cost"`
	RemainingBalance int64               `json:"remaining_balance"`
	LeveledUp        bool                `json:"leveled_up"`
	NewLevel         domain.Level        `json:"new_level"`
	Transaction      *domain.Transaction `json:"transaction"`
}

// earnPlan describes one credit. guard checks and sets the one-time flags
// on the working copy; describe renders the journal text after guard ran.
type earnPlan struct {
	kind     domain.EarnKind
	meta     map[string]any
	guard    func(acc *domain.Account, now time.Time) error
	describe func(acc *domain.Account) string
	referral *domain.ReferralLink
}

// Credit awards the fixed points of an earning activity.
func (s *EconomyService) Credit(ctx context.Context, accountID uuid.UUID, kind domain.EarnKind, meta map[string]any) (*CreditResult, error) {
	if !kind.Valid() {
		observe("credit", domain.ErrUnknownActivity)
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownActivity, kind)
	}

	switch kind {
	case domain.EarnSocialFollow:
		platform, _ := meta["platform"].(string)
		return s.SocialFollow(ctx, accountID, platform)
	case domain.EarnDailyLogin:
		return s.DailyLogin(ctx, accountID)
	}

	plan := earnPlan{kind: kind, meta: meta}
	switch kind {
	case domain.EarnSignup:
		plan.guard = func(acc *domain.Account, _ time.Time) error {
			if acc.Stats.SignupBonus {
				return domain.ErrAlreadyClaimed
			}
			acc.Stats.SignupBonus = true
			return nil
		}
	case domain.EarnProfileComplete:
		plan.guard = func(acc *domain.Account, _ time.Time) error {
			if acc.Stats.ProfileCompleted {
				return domain.ErrAlreadyClaimed
			}
			acc.Stats.ProfileCompleted = true
			return nil
		}
	case domain.EarnResumeCreated:
		first := metaBool(meta, "first")
		plan.guard = func(acc *domain.Account, _ time.Time) error {
			if first {
				if acc.Stats.FirstResumeBonus {
					return domain.ErrAlreadyClaimed
				}
				acc.Stats.FirstResumeBonus = true
			}
			acc.Stats.ResumesCreated++
			return nil
		}
	}

	return s.earn(ctx, accountID, plan)
}

// SocialFollow credits a platform follow once per platform.
func (s *EconomyService) SocialFollow(ctx context.Context, accountID uuid.UUID, platform string) (*CreditResult, error) {
	p, err := domain.ParseSocialPlatform(strings.ToLower(strings.TrimSpace(platform)))
	if err != nil {
		observe("credit", err)
		return nil, err
	}
	return s.earn(ctx, accountID, earnPlan{
		kind: domain.EarnSocialFollow,
		meta: map[string]any{"platform": string(p)},
		guard: func(acc *domain.Account, _ time.Time) error {
			if acc.SocialFollows[p] {
				return domain.ErrAlreadyClaimed
			}
			acc.SocialFollows[p] = true
			return nil
		},
		describe: func(*domain.Account) string { return domain.EarnSocialFollow.Describe(p) },
	})
}

// DailyLogin credits once per UTC calendar day and tracks the streak of
// consecutive days.
func (s *EconomyService) DailyLogin(ctx context.Context, accountID uuid.UUID) (*CreditResult, error) {
	return s.earn(ctx, accountID, earnPlan{
		kind: domain.EarnDailyLogin,
		guard: func(acc *domain.Account, now time.Time) error {
			today := now.Truncate(24 * time.Hour)
			if last := acc.Stats.LastLoginAt; last != nil {
				lastDay := last.UTC().Truncate(24 * time.Hour)
				switch {
				case !lastDay.Before(today):
					return domain.ErrAlreadyClaimed
				case lastDay.Equal(today.AddDate(0, 0, -1)):
					acc.Stats.LoginStreak++
				default:
					acc.Stats.LoginStreak = 1
				}
			} else {
				acc.Stats.LoginStreak = 1
			}
			at := now
			acc.Stats.LastLoginAt = &at
			return nil
		},
		describe: func(acc *domain.Account) string {
			return domain.EarnDailyLogin.Describe(acc.Stats.LoginStreak)
		},
	})
}

// CreditReferral links referred to referrer and pays the referrer, in one
// unit. A referred account can be linked once.
func (s *EconomyService) CreditReferral(ctx context.Context, referrerID, referredID uuid.UUID) (*CreditResult, error) {
	if referrerID == referredID {
		observe("credit", domain.ErrSelfReferral)
		return nil, domain.ErrSelfReferral
	}
	now := s.clock()
	return s.earn(ctx, referrerID, earnPlan{
		kind: domain.EarnReferral,
		meta: map[string]any{"referred_account_id": referredID.String()},
		guard: func(acc *domain.Account, _ time.Time) error {
			if acc.ReferredBy != nil && *acc.ReferredBy == referredID {
				return domain.ErrMutualReferral
			}
			for _, id := range acc.Referrals {
				if id == referredID {
					return domain.ErrAlreadyReferred
				}
			}
			acc.Referrals = append(acc.Referrals, referredID)
			return nil
		},
		referral: &domain.ReferralLink{ReferrerID: referrerID, ReferredID: referredID, CreatedAt: now},
	})
}

func (s *EconomyService) earn(ctx context.Context, accountID uuid.UUID, plan earnPlan) (*CreditResult, error) {
	now := s.clock()
	var levelBefore domain.Level

	ch, err := s.store.Apply(ctx, accountID, func(acc *domain.Account) (*domain.Change, error) {
		levelBefore = acc.Level
		if plan.guard != nil {
			if err := plan.guard(acc, now); err != nil {
				return nil, err
			}
		}

		desc := plan.kind.Describe(nil)
		if plan.describe != nil {
			desc = plan.describe(acc)
		}
		points := plan.kind.Points()
		tx := domain.NewTransaction(acc.ID, plan.kind.TransactionType(), points, acc.Balance, desc, plan.meta, now)
		acc.Balance += points
		acc.Stats.TotalPointsEarned += points
		acc.UpdatedAt = now

		badges := domain.EvaluateBadges(acc, now)
		activities := append(
			[]domain.Activity{domain.NewActivity(acc.ID, plan.kind.ActivityKind(), points, desc, plan.meta, now)},
			badgeActivities(acc.ID, badges, now)...,
		)
		return &domain.Change{
			Transaction: tx,
			Activities:  activities,
			NewBadges:   badges,
			Referral:    plan.referral,
		}, nil
	})
	observe("credit", err)
	if err != nil {
		s.logFailure("credit", accountID, string(plan.kind), err)
		return nil, err
	}

	leveledUp := ch.Account.Level != levelBefore
	s.committed("credit", ch, leveledUp)
	return &CreditResult{
		PointsAwarded: ch.Transaction.Amount,
		TotalPoints:   ch.Account.Balance,
		LeveledUp:     leveledUp,
		NewLevel:      ch.Account.Level,
		NewBadges:     nonNil(ch.NewBadges),
		Transaction:   ch.Transaction,
	}, nil
}

// Debit charges a spending activity. Template-unlock is delegated to
// UnlockTemplate, which prices it from the catalog. Downloads and AI
// suggestions are charged at least their catalog price.
func (s *EconomyService) Debit(ctx context.Context, accountID uuid.UUID, kind domain.SpendKind, amount int64, meta map[string]any) (*DebitResult, error) {
	if !kind.Valid() {
		observe("debit", domain.ErrUnknownActivity)
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownActivity, kind)
	}

	templateID, _ := meta["template_id"].(string)
	if kind == domain.SpendTemplateUnlock {
		res, err := s.UnlockTemplate(ctx, accountID, templateID)
		if err != nil {
			return nil, err
		}
		tx := res.Transaction
		return &DebitResult{
			AmountDeducted: res.Cost,
			BalanceBefore:  tx.BalanceBefore,
			BalanceAfter:   tx.BalanceAfter,
			LeveledUp:      res.LeveledUp,
			NewLevel:       res.NewLevel,
			NewBadges:      []domain.Badge{},
			Transaction:    tx,
		}, nil
	}

	if amount <= 0 {
		observe("debit", domain.ErrInvalidAmount)
		return nil, domain.ErrInvalidAmount
	}

	txMeta := copyMeta(meta)
	var entry catalog.Entry
	desc := kind.Describe("")
	price := s.aiCost
	if kind == domain.SpendCVDownload {
		entry = s.catalog.Resolve(templateID)
		txMeta["template_id"] = entry.ID
		txMeta["tier"] = string(entry.Tier)
		desc = kind.Describe(entry.Name)
		price = entry.DownloadCost
	}
	// the amount may exceed the price but never undercut it
	if amount < price {
		observe("debit", domain.ErrInvalidAmount)
		return nil, fmt.Errorf("%w: %d is below the price of %d", domain.ErrInvalidAmount, amount, price)
	}

	now := s.clock()
	var levelBefore domain.Level
	ch, err := s.store.Apply(ctx, accountID, func(acc *domain.Account) (*domain.Change, error) {
		levelBefore = acc.Level
		if kind == domain.SpendCVDownload && entry.NeedsUnlock() && !acc.IsUnlocked(entry.ID) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTemplateLocked, entry.ID)
		}
		if acc.Balance < amount {
			return nil, &domain.InsufficientPointsError{Balance: acc.Balance, Required: amount}
		}

		tx := domain.NewTransaction(acc.ID, kind.TransactionType(), -amount, acc.Balance, desc, txMeta, now)
		acc.Balance -= amount
		acc.Stats.TotalPointsSpent += amount
		if kind == domain.SpendCVDownload {
			acc.Stats.ResumesDownloaded++
		}
		acc.UpdatedAt = now

		badges := domain.EvaluateBadges(acc, now)
		activities := append(
			[]domain.Activity{domain.NewActivity(acc.ID, kind.ActivityKind(), -amount, desc, txMeta, now)},
			badgeActivities(acc.ID, badges, now)...,
		)
		return &domain.Change{Transaction: tx, Activities: activities, NewBadges: badges}, nil
	})
	observe("debit", err)
	if err != nil {
		s.logFailure("debit", accountID, string(kind), err)
		return nil, err
	}

	leveledUp := ch.Account.Level != levelBefore
	s.committed("debit", ch, leveledUp)
	return &DebitResult{
		AmountDeducted: amount,
		BalanceBefore:  ch.Transaction.BalanceBefore,
		BalanceAfter:   ch.Transaction.BalanceAfter,
		LeveledUp:      leveledUp,
		NewLevel:       ch.Account.Level,
		NewBadges:      nonNil(ch.NewBadges),
		Transaction:    ch.Transaction,
	}, nil
}

// UnlockTemplate buys permanent access to a PREMIUM or ELITE template. The
// charge and the unlock record are one unit.
func (s *EconomyService) UnlockTemplate(ctx context.Context, accountID uuid.UUID, templateID string) (*UnlockResult, error) {
	entry, err := s.catalog.Require(templateID)
	if err != nil {
		observe("unlock", err)
		return nil, err
	}
	if !entry.NeedsUnlock() {
		observe("unlock", domain.ErrAlreadyFree)
		return nil, domain.ErrAlreadyFree
	}

	now := s.clock()
	meta := map[string]any{"template_id": entry.ID, "tier": string(entry.Tier)}
	desc := domain.SpendTemplateUnlock.Describe(entry.Name)
	var levelBefore domain.Level

	ch, err := s.store.Apply(ctx, accountID, func(acc *domain.Account) (*domain.Change, error) {
		levelBefore = acc.Level
		if acc.IsUnlocked(entry.ID) {
			return nil, domain.ErrAlreadyUnlocked
		}
		if acc.Balance < entry.UnlockCost {
			return nil, &domain.InsufficientPointsError{Balance: acc.Balance, Required: entry.UnlockCost}
		}

		tx := domain.NewTransaction(acc.ID, domain.TxSpendTemplateUnlock, -entry.UnlockCost, acc.Balance, desc, meta, now)
		unlock := domain.TemplateUnlock{TemplateID: entry.ID, Cost: entry.UnlockCost, UnlockedAt: now}
		acc.Balance -= entry.UnlockCost
		acc.Stats.TotalPointsSpent += entry.UnlockCost
		acc.Unlocks = append(acc.Unlocks, unlock)
		acc.UpdatedAt = now

		badges := domain.EvaluateBadges(acc, now)
		activities := append(
			[]domain.Activity{domain.NewActivity(acc.ID, domain.ActivityTemplateUnlocked, -entry.UnlockCost, desc, meta, now)},
			badgeActivities(acc.ID, badges, now)...,
		)
		return &domain.Change{Transaction: tx, Activities: activities, NewBadges: badges, Unlock: &unlock}, nil
	})
	observe("unlock", err)
	if err != nil {
		s.logFailure("unlock", accountID, entry.ID, err)
		return nil, err
	}

	leveledUp := ch.Account.Level != levelBefore
	s.committed("unlock", ch, leveledUp)
	return &UnlockResult{
		TemplateID:       entry.ID,
		Tier:             entry.Tier,
		Cost:             entry.UnlockCost,
		RemainingBalance: ch.Account.Balance,
		LeveledUp:        leveledUp,
		NewLevel:         ch.Account.Level,
		Transaction:      ch.Transaction,
	}, nil
}

// AccountStatus is the balance-and-status view of an account.
type AccountStatus struct {
	AccountID         uuid.UUID                      `json:"account_id"`
	Name              string                         `json:"name"`
	Balance           int64                          `json:"balance"`
	Level             domain.Level                   `json:"level"`
	Progress          int                            `json:"progress"`
	NextLevel         domain.Level                   `json:"next_level,omitempty"`
	PointsToNext      int64                          `json:"points_to_next_level"`
	Badges            []domain.Badge                 `json:"badges"`
	UnlockedTemplates []domain.TemplateUnlock        `json:"unlocked_templates"`
	Stats             domain.Stats                   `json:"stats"`
	SocialFollows     map[domain.SocialPlatform]bool `json:"social_follows"`
	ReferralCode      string                         `json:"referral_code,omitempty"`
	ReferralCount     int                            `json:"referral_count"`
}

func (s *EconomyService) Status(ctx context.Context, accountID uuid.UUID) (*AccountStatus, error) {
	acc, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	follows := make(map[domain.SocialPlatform]bool, len(domain.SocialPlatforms))
	for _, p := range domain.SocialPlatforms {
		follows[p] = acc.SocialFollows[p]
	}

	st := &AccountStatus{
		AccountID:         acc.ID,
		Name:              acc.Name,
		Balance:           acc.Balance,
		Level:             acc.Level,
		Progress:          acc.Progress(),
		Badges:            nonNil(acc.Badges),
		UnlockedTemplates: acc.Unlocks,
		Stats:             acc.Stats,
		SocialFollows:     follows,
		ReferralCode:      acc.ReferralCode,
		ReferralCount:     len(acc.Referrals),
	}
	if st.UnlockedTemplates == nil {
		st.UnlockedTemplates = []domain.TemplateUnlock{}
	}
	if next, threshold, ok := acc.Level.Next(); ok {
		st.NextLevel = next
		st.PointsToNext = threshold - acc.Balance
	}
	return st, nil
}

// DownloadQuote prices a download for one account.
type DownloadQuote struct {
	TemplateID     string       `json:"template_id"`
	Tier           catalog.Tier `json:"tier"`
	DownloadCost   int64        `json:"download_cost"`
	UnlockCost     int64        `json:"unlock_cost"`
	RequiresUnlock bool         `json:"requires_unlock"`
	IsUnlocked     bool         `json:"is_unlocked"`
	TotalCost      int64        `json:"total_cost"`
	Balance        int64        `json:"current_balance"`
	CanAfford      bool         `json:"can_afford"`
}

// DownloadCost never fails on an unknown template: it is priced as FREE.
func (s *EconomyService) DownloadCost(ctx context.Context, accountID uuid.UUID, templateID string) (*DownloadQuote, error) {
	acc, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	entry := s.catalog.Resolve(templateID)
	q := &DownloadQuote{
		TemplateID:     entry.ID,
		Tier:           entry.Tier,
		DownloadCost:   entry.DownloadCost,
		UnlockCost:     entry.UnlockCost,
		RequiresUnlock: entry.NeedsUnlock(),
		IsUnlocked:     acc.IsUnlocked(entry.ID),
		TotalCost:      entry.DownloadCost,
		Balance:        acc.Balance,
	}
	if q.RequiresUnlock && !q.IsUnlocked {
		q.TotalCost += entry.UnlockCost
	}
	q.CanAfford = acc.Balance >= q.TotalCost
	return q, nil
}

// DefaultSpendAmount is what a spend costs when the caller sends no amount.
func (s *EconomyService) DefaultSpendAmount(kind domain.SpendKind, templateID string) int64 {
	switch kind {
	case domain.SpendCVDownload:
		return s.catalog.DownloadCost(templateID)
	case domain.SpendTemplateUnlock:
		return s.catalog.UnlockCost(templateID)
	}
	return s.aiCost
}

// History returns one page of the activity feed. page is 1-based.
func (s *EconomyService) History(ctx context.Context, accountID uuid.UUID, page, limit int) (*domain.ActivityPage, error) {
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	page, limit = normalizePage(page, limit)

	activities, total, err := s.store.ListActivities(ctx, accountID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	return &domain.ActivityPage{
		Activities: activities,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// Transactions returns the account's journal, newest first.
func (s *EconomyService) Transactions(ctx context.Context, accountID uuid.UUID, page, limit int) ([]*domain.Transaction, error) {
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	page, limit = normalizePage(page, limit)
	return s.store.ListTransactions(ctx, accountID, limit, (page-1)*limit)
}

// Refund reverses a download or AI suggestion spend with a new refund
// record. The original record is left untouched; unlocks are permanent and
// cannot be refunded.
func (s *EconomyService) Refund(ctx context.Context, txID uuid.UUID, reason string) (*CreditResult, error) {
	orig, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		observe("refund", err)
		return nil, err
	}
	if orig.Type != domain.TxSpendDownload && orig.Type != domain.TxSpendAISuggestion {
		observe("refund", domain.ErrNotRefundable)
		return nil, fmt.Errorf("%w: %s", domain.ErrNotRefundable, orig.Type)
	}
	refunded, err := s.store.IsRefunded(ctx, txID)
	if err != nil {
		return nil, err
	}
	if refunded {
		observe("refund", domain.ErrAlreadyRefunded)
		return nil, domain.ErrAlreadyRefunded
	}

	now := s.clock()
	amount := -orig.Amount
	desc := "Refund: " + orig.Description
	if reason != "" {
		desc += " (" + reason + ")"
	}
	meta := map[string]any{"refunded_transaction_id": orig.ID.String()}
	if reason != "" {
		meta["reason"] = reason
	}
	var levelBefore domain.Level

	ch, err := s.store.Apply(ctx, orig.AccountID, func(acc *domain.Account) (*domain.Change, error) {
		levelBefore = acc.Level
		tx := domain.NewTransaction(acc.ID, domain.TxRefund, amount, acc.Balance, desc, meta, now)
		related := orig.ID
		tx.RelatedTransactionID = &related

		acc.Balance += amount
		acc.Stats.TotalPointsSpent -= amount
		if acc.Stats.TotalPointsSpent < 0 {
			acc.Stats.TotalPointsSpent = 0
		}
		acc.UpdatedAt = now

		return &domain.Change{
			Transaction: tx,
			Activities:  []domain.Activity{domain.NewActivity(acc.ID, domain.ActivityPointsRefunded, amount, desc, meta, now)},
		}, nil
	})
	observe("refund", err)
	if err != nil {
		s.logFailure("refund", orig.AccountID, orig.ID.String(), err)
		return nil, err
	}

	leveledUp := ch.Account.Level != levelBefore
	s.committed("refund", ch, leveledUp)
	return &CreditResult{
		PointsAwarded: amount,
		TotalPoints:   ch.Account.Balance,
		LeveledUp:     leveledUp,
		NewLevel:      ch.Account.Level,
		NewBadges:     []domain.Badge{},
		Transaction:   ch.Transaction,
	}, nil
}

// Adjust is the operator correction path. purchase records bought points
// and must be positive.
func (s *EconomyService) Adjust(ctx context.Context, accountID uuid.UUID, delta int64, reason string, purchase bool) (*CreditResult, error) {
	if delta == 0 || (purchase && delta < 0) {
		observe("adjust", domain.ErrInvalidAmount)
		return nil, domain.ErrInvalidAmount
	}

	txType := domain.TxAdminAdjustment
	desc := "Points adjustment"
	if purchase {
		txType = domain.TxPurchase
		desc = "Purchased points"
	}
	if reason != "" {
		desc += ": " + reason
	}
	meta := map[string]any{}
	if reason != "" {
		meta["reason"] = reason
	}

	now := s.clock()
	var levelBefore domain.Level
	ch, err := s.store.Apply(ctx, accountID, func(acc *domain.Account) (*domain.Change, error) {
		levelBefore = acc.Level
		if delta < 0 && acc.Balance+delta < 0 {
			return nil, &domain.InsufficientPointsError{Balance: acc.Balance, Required: -delta}
		}
		tx := domain.NewTransaction(acc.ID, txType, delta, acc.Balance, desc, meta, now)
		acc.Balance += delta
		if delta > 0 {
			acc.Stats.TotalPointsEarned += delta
		} else {
			acc.Stats.TotalPointsSpent -= delta
		}
		acc.UpdatedAt = now
		return &domain.Change{
			Transaction: tx,
			Activities:  []domain.Activity{domain.NewActivity(acc.ID, domain.ActivityPointsAdjusted, delta, desc, meta, now)},
		}, nil
	})
	observe("adjust", err)
	if err != nil {
		s.logFailure("adjust", accountID, string(txType), err)
		return nil, err
	}

	leveledUp := ch.Account.Level != levelBefore
	s.committed("adjust", ch, leveledUp)
	return &CreditResult{
		PointsAwarded: delta,
		TotalPoints:   ch.Account.Balance,
		LeveledUp:     leveledUp,
		NewLevel:      ch.Account.Level,
		NewBadges:     []domain.Badge{},
		Transaction:   ch.Transaction,
	}, nil
}

// AwardBadge grants a badge by hand. Returns false if it was already held.
func (s *EconomyService) AwardBadge(ctx context.Context, accountID uuid.UUID, name, icon string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, fmt.Errorf("%w: badge name required", domain.ErrInvalidInput)
	}
	ch, err := repository.AppendBadge(ctx, s.store, accountID, domain.Badge{Name: name, Icon: icon, EarnedAt: s.clock()})
	observe("badge", err)
	if err != nil {
		return false, err
	}
	if len(ch.NewBadges) == 0 {
		return false, nil
	}
	s.committed("badge", ch, false)
	return true, nil
}

// GrantTemplate unlocks a template without charging for it.
func (s *EconomyService) GrantTemplate(ctx context.Context, accountID uuid.UUID, templateID string) error {
	entry, err := s.catalog.Require(templateID)
	if err != nil {
		return err
	}
	if !entry.NeedsUnlock() {
		return domain.ErrAlreadyFree
	}
	ch, err := repository.RecordUnlock(ctx, s.store, accountID, entry.ID, 0, s.clock())
	observe("grant", err)
	if err != nil {
		return err
	}
	s.committed("grant", ch, false)
	return nil
}

// Reconcile checks that the journal reconstructs the stored balance.
func (s *EconomyService) Reconcile(ctx context.Context, accountID uuid.UUID) (*domain.Reconciliation, error) {
	acc, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	sum, count, err := s.store.SumTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	r := &domain.Reconciliation{
		AccountID:        accountID,
		Balance:          acc.Balance,
		TransactionSum:   sum,
		TransactionCount: count,
		Balanced:         sum == acc.Balance,
	}
	if !r.Balanced {
		s.log.Error("ledger out of balance", "account_id", accountID, "balance", acc.Balance, "transaction_sum", sum)
	}
	return r, nil
}

// committed logs, counts and publishes a successful change.
func (s *EconomyService) committed(op string, ch *domain.Change, leveledUp bool) {
	acc := ch.Account
	attrs := []any{"op", op, "account_id", acc.ID, "balance_after", acc.Balance, "level", acc.Level}
	if tx := ch.Transaction; tx != nil {
		attrs = append(attrs, "type", tx.Type, "amount", tx.Amount, "transaction_id", tx.ID)
		countPoints(tx)
	}
	if leveledUp {
		attrs = append(attrs, "leveled_up", true)
	}
	s.log.Info("ledger change committed", attrs...)

	evType := domain.EventBalanceChanged
	switch {
	case ch.Unlock != nil:
		evType = domain.EventTemplateUnlock
	case ch.Transaction == nil && len(ch.NewBadges) > 0:
		evType = domain.EventBadgeEarned
	}
	ev := domain.LedgerEvent{
		Type:        evType,
		AccountID:   acc.ID,
		Balance:     acc.Balance,
		Level:       acc.Level,
		LeveledUp:   leveledUp,
		NewBadges:   ch.NewBadges,
		Transaction: ch.Transaction,
	}
	for _, n := range s.notifiers {
		n.Publish(acc.ID, ev)
	}
}

func (s *EconomyService) logFailure(op string, accountID uuid.UUID, subject string, err error) {
	if IsClientError(err) {
		s.log.Debug("ledger operation rejected", "op", op, "account_id", accountID, "subject", subject, "error", err)
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	s.log.Error("ledger operation failed", "op", op, "account_id", accountID, "subject", subject, "error", err)
}

func badgeActivities(accountID uuid.UUID, badges []domain.Badge, now time.Time) []domain.Activity {
	out := make([]domain.Activity, 0, len(badges))
	for _, b := range badges {
		out = append(out, domain.NewActivity(accountID, domain.ActivityBadgeEarned, 0,
			"Earned badge: "+b.Name, map[string]any{"badge": b.Name}, now))
	}
	return out
}

func metaBool(meta map[string]any, key string) bool {
	switch v := meta[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	}
	return false
}

func copyMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta)+2)
	for k, v := range meta {
		out[k] = v
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
