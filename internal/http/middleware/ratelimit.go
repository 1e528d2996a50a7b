package middleware

import (
	"net/http"
	"strconv"
	"time"

	"resume_rewards/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewLimiter builds a limiter backed by Redis when a client is given, so
// limits hold across instances, and by process memory otherwise.
func NewLimiter(client *redis.Client, prefix string, maxRequests int, window time.Duration) *limiter.Limiter {
	rate := limiter.Rate{Period: window, Limit: int64(maxRequests)}
	opts := limiter.StoreOptions{Prefix: prefix, CleanUpInterval: time.Minute}

	if client != nil {
		store, err := sredis.NewStoreWithOptions(client, opts)
		if err == nil {
			return limiter.New(store, rate)
		}
		logger.Warn("redis limiter store unavailable, using memory", "prefix", prefix, "error", err)
	}
	return limiter.New(memory.NewStoreWithOptions(opts), rate)
}

// KeyFunc picks what a limit is counted against.
type KeyFunc func(c *gin.Context) string

// ByIP counts per client address.
func ByIP(c *gin.Context) string {
	return c.ClientIP()
}

// ByAccount counts per authenticated account, falling back to the address.
func ByAccount(c *gin.Context) string {
	if id, ok := AccountID(c); ok {
		return id.String()
	}
	return c.ClientIP()
}

// RateLimit blocks a key once it exceeds the limiter's rate. Store errors
// let the request through.
func RateLimit(l *limiter.Limiter, key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		lctx, err := l.Get(c.Request.Context(), key(c))
		if err != nil {
			c.Header("X-RateLimit-Error", "store-error")
			logger.WithContext(c.Request.Context()).Warn("rate limit check failed", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
