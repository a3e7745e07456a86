// internal/mw/ratelimit.go
package mw

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"route-tracker/internal/monitoring"
)

type RateLimiter struct {
	Rdb   *redis.Client
	RPS   int
	Burst int
	Now   func() time.Time
}

func NewRateLimiter(rdb *redis.Client, rps, burst int) *RateLimiter {
	return &RateLimiter{Rdb: rdb, RPS: rps, Burst: burst, Now: time.Now}
}

// Allow counts requests per user in one-second windows (INCR + EXPIRE).
// Redis failures let the request through.
func (rl *RateLimiter) Allow(ctx context.Context, userID string) bool {
	key := "rl:" + userID + ":" + strconv.FormatInt(rl.Now().Unix(), 10)
	cnt, err := rl.Rdb.Incr(ctx, key).Result()
	if err != nil {
		monitoring.Warnf("rate limiter unavailable: %v", err)
		return true
	}
	if cnt == 1 {
		_ = rl.Rdb.Expire(ctx, key, 2*time.Second).Err()
	}
	return int(cnt) <= rl.RPS+rl.Burst
}

// Middleware must run after Auth.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(r.Context(), UserID(r.Context())) {
			http.Error(w, "rate limit", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
