package service

import (
	"context"
	"time"

	"resume_rewards/internal/logger"

	"github.com/go-co-op/gocron/v2"
)

// StartLeaderboardWarmer refreshes the leaderboard cache every interval.
// The returned scheduler must be shut down by the caller.
func (s *RankingService) StartLeaderboardWarmer(interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if err := s.Warm(ctx); err != nil {
				logger.Warn("leaderboard warm failed", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	logger.Info("leaderboard warmer started", "interval", interval)
	return sched, nil
}
