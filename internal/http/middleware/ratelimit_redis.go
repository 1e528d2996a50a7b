package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

// SpendRateLimit limits spending calls per account (not per IP) with a
// fixed window in Redis. Requires JWT to run before it. Without Redis, or
// on a Redis error, requests pass.
// key format: spend_rl:<account_id>:<window_seconds>
func SpendRateLimit(client *redis.Client, maxSpends int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil {
			c.Next()
			return
		}

		accountID, ok := AccountID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		key := "spend_rl:" + accountID.String() + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		ctx := c.Request.Context()

		val, err := client.Incr(ctx, key).Result()
		if err != nil {
			c.Header("X-SpendRateLimit-Error", "redis-error")
			c.Next()
			return
		}
		if val == 1 {
			client.Expire(ctx, key, window)
		}

		c.Header("X-SpendRateLimit-Limit", strconv.Itoa(maxSpends))
		c.Header("X-SpendRateLimit-Remaining", strconv.FormatInt(max(0, int64(maxSpends)-val), 10))

		if val > int64(maxSpends) {
			RLBlocked.WithLabelValues("spend:" + c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "spend rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues("spend:" + c.FullPath()).Inc()
		c.Next()
	}
}
