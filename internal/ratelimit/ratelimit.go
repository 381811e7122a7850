package ratelimit

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// DefaultWindow is the fixed counting window.
const DefaultWindow = time.Minute

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	Reset     time.Duration
}

// Limiter is a fixed window request counter kept in Redis.
type Limiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	prefix string
}

// Connect parses a redis:// URL and checks the server answers.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// New returns a limiter allowing limit requests per window for each key.
func New(client *redis.Client, limit int, window time.Duration) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{client: client, limit: int64(limit), window: window, prefix: "rate:"}
}

// Allow counts one request against key.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	key = l.prefix + key
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return Result{Allowed: true, Limit: l.limit, Remaining: l.limit}, err
	}
	if count == 1 {
		l.client.Expire(ctx, key, l.window)
	}

	reset := l.window
	ttl, err := l.client.TTL(ctx, key).Result()
	switch {
	case err == nil && ttl > 0:
		reset = ttl
	case err == nil && ttl == -1:
		// Key lost its expiry, e.g. the first Expire failed.
		l.client.Expire(ctx, key, l.window)
	}

	return Result{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: max(l.limit-count, 0),
		Reset:     reset,
	}, nil
}

// Middleware limits requests per client IP and route. Redis failures let the
// request through.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		res, err := l.Allow(c.Request.Context(), c.ClientIP()+":"+route)
		if err != nil {
			log.Printf("Rate limiter unavailable, allowing request: %v", err)
			c.Next()
			return
		}

		resetSeconds := strconv.Itoa(int(res.Reset.Round(time.Second).Seconds()))
		c.Header("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		c.Header("X-RateLimit-Reset", resetSeconds)

		if !res.Allowed {
			c.Header("Retry-After", resetSeconds)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "RATE_LIMITED",
					"message": "Rate limit exceeded. Try again later.",
				},
			})
			return
		}
		c.Next()
	}
}
