package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"resume_rewards/internal/domain"
	"resume_rewards/internal/logger"

	redis "github.com/redis/go-redis/v9"
)

const leaderboardPrefix = "leaderboard:"

// LeaderboardCache keeps computed leaderboard pages in Redis for ttl.
// key format: leaderboard:<period>:<limit>
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &LeaderboardCache{client: client, ttl: ttl}
}

func leaderboardKey(period domain.Period, limit int) string {
	return leaderboardPrefix + string(period) + ":" + strconv.Itoa(limit)
}

// Get reports a miss on any Redis or decode error.
func (c *LeaderboardCache) Get(ctx context.Context, period domain.Period, limit int) ([]domain.RankedStanding, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, leaderboardKey(period, limit)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Debug("leaderboard cache get failed", "period", period, "error", err)
		}
		return nil, false
	}
	var entries []domain.RankedStanding
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (c *LeaderboardCache) Set(ctx context.Context, period domain.Period, limit int, entries []domain.RankedStanding) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, leaderboardKey(period, limit), raw, c.ttl).Err(); err != nil {
		logger.Debug("leaderboard cache set failed", "period", period, "error", err)
	}
}

// Invalidate drops every cached page of a period.
func (c *LeaderboardCache) Invalidate(ctx context.Context, period domain.Period) error {
	if c == nil || c.client == nil {
		return nil
	}
	iter := c.client.Scan(ctx, 0, leaderboardPrefix+string(period)+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
