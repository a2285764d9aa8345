package redisstore

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/combo-store/pkg/httpmiddleware"
)

const rateKeyPrefix = "store:ratelimit:"

var _ httpmiddleware.Limiter = (*RateLimiter)(nil)

// RateLimiter is a fixed-window counter shared by every API replica. Each
// window gets its own key, which expires with the window.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimiter allows limit requests per window and key.
func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

// Allow counts one request for key in the window containing now.
func (l *RateLimiter) Allow(ctx context.Context, key string, now time.Time) (httpmiddleware.Decision, error) {
	start := now.Truncate(l.window)
	redisKey := rateKeyPrefix + key + ":" + strconv.FormatInt(start.UnixMilli(), 10)

	var incr *redis.IntCmd
	if _, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, redisKey)
		p.PExpire(ctx, redisKey, l.window)
		return nil
	}); err != nil {
		return httpmiddleware.Decision{}, errors.Wrap(err, "count request")
	}

	count := int(incr.Val())
	return httpmiddleware.Decision{
		Allowed:   count <= l.limit,
		Remaining: max(l.limit-count, 0),
		ResetAt:   start.Add(l.window),
	}, nil
}
