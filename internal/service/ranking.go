package service

import (
	"context"
	"log/slog"
	"time"

	"resume_rewards/internal/domain"
	"resume_rewards/internal/logger"
	"resume_rewards/internal/repository"

	"github.com/google/uuid"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// LeaderboardCache stores computed top lists. Implementations fail open:
// a lookup error is a miss.
type LeaderboardCache interface {
	Get(ctx context.Context, period domain.Period, limit int) ([]domain.RankedStanding, bool)
	Set(ctx context.Context, period domain.Period, limit int, entries []domain.RankedStanding)
}

// RankingService is read-only. The batch list and the single-account rank
// use the same rule, so an account's rank agrees between the two.
type RankingService struct {
	store repository.LedgerStore
	cache LeaderboardCache
	now   func() time.Time
	log   *slog.Logger
}

type RankingOption func(*RankingService)

func WithLeaderboardCache(c LeaderboardCache) RankingOption {
	return func(s *RankingService) { s.cache = c }
}

func WithRankingClock(now func() time.Time) RankingOption {
	return func(s *RankingService) { s.now = now }
}

func NewRankingService(store repository.LedgerStore, opts ...RankingOption) *RankingService {
	s := &RankingService{store: store, now: time.Now, log: logger.With("component", "ranking")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Leaderboard is a ranked top list plus the caller's own position.
type Leaderboard struct {
	Period        domain.Period           `json:"period"`
	Entries       []domain.RankedStanding `json:"leaderboard"`
	Self          *domain.RankedStanding  `json:"user_rank,omitempty"`
	TotalAccounts int                     `json:"total_users"`
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return limit
}

// Leaderboard returns the top accounts. With self set it also ranks that
// account, whether or not it made the list.
func (s *RankingService) Leaderboard(ctx context.Context, period domain.Period, limit int, self *uuid.UUID) (*Leaderboard, error) {
	if _, err := domain.ParsePeriod(string(period)); err != nil {
		return nil, err
	}
	if period == "" {
		period = domain.PeriodAll
	}
	limit = clampLimit(limit)

	entries, err := s.top(ctx, period, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountAccounts(ctx)
	if err != nil {
		return nil, err
	}

	lb := &Leaderboard{Period: period, Entries: entries, TotalAccounts: total}
	if self != nil {
		rs, err := s.Rank(ctx, *self, period)
		if err != nil {
			return nil, err
		}
		rs = rankAgainst(entries, rs)
		lb.Self = &rs
	}
	return lb, nil
}

// rankAgainst keeps the caller's rank consistent with a possibly cached list:
// a listed caller gets its listed entry, and a caller whose fresh score would
// place it inside the list is ranked by the list's scores.
func rankAgainst(entries []domain.RankedStanding, fresh domain.RankedStanding) domain.RankedStanding {
	above := 0
	for _, e := range entries {
		if e.AccountID == fresh.AccountID {
			return e
		}
		if e.Score > fresh.Score {
			above++
		}
	}
	if above < len(entries) {
		fresh.Rank = above + 1
	}
	return fresh
}

// Rank is 1 + the number of accounts with a strictly greater score.
func (s *RankingService) Rank(ctx context.Context, id uuid.UUID, period domain.Period) (domain.RankedStanding, error) {
	return s.store.RankOf(ctx, id, period.Since(s.now().UTC()))
}

func (s *RankingService) top(ctx context.Context, period domain.Period, limit int) ([]domain.RankedStanding, error) {
	if s.cache != nil {
		if entries, ok := s.cache.Get(ctx, period, limit); ok {
			LeaderboardCacheHits.WithLabelValues("hit").Inc()
			return entries, nil
		}
		LeaderboardCacheHits.WithLabelValues("miss").Inc()
	}

	standings, err := s.store.Standings(ctx, period.Since(s.now().UTC()), limit)
	if err != nil {
		return nil, err
	}
	entries := domain.AssignRanks(standings)

	if s.cache != nil {
		s.cache.Set(ctx, period, limit, entries)
	}
	return entries, nil
}

// Warm recomputes the default-size board of every period into the cache.
func (s *RankingService) Warm(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	for _, p := range []domain.Period{domain.PeriodAll, domain.PeriodWeekly, domain.PeriodMonthly} {
		standings, err := s.store.Standings(ctx, p.Since(s.now().UTC()), DefaultLeaderboardLimit)
		if err != nil {
			return err
		}
		s.cache.Set(ctx, p, DefaultLeaderboardLimit, domain.AssignRanks(standings))
	}
	s.log.Debug("leaderboard cache warmed")
	return nil
}
