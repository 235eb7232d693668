package ratelimit

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewLimiter returns a fixed-window limiter allowing perPeriod requests per period.
// Counters live in Redis when client is set and in process memory otherwise.
func NewLimiter(client *redis.Client, prefix string, perPeriod int64, period time.Duration) (*limiter.Limiter, error) {
	if perPeriod <= 0 || period <= 0 {
		return nil, fmt.Errorf("ratelimit: invalid rate %d per %s", perPeriod, period)
	}
	opts := limiter.StoreOptions{Prefix: prefix, CleanUpInterval: time.Minute}
	var (
		store limiter.Store
		err   error
	)
	if client != nil {
		store, err = redisstore.NewStoreWithOptions(client, opts)
		if err != nil {
			return nil, fmt.Errorf("ratelimit: redis store: %w", err)
		}
	} else {
		store = memorystore.NewStoreWithOptions(opts)
	}
	return limiter.New(store, limiter.Rate{Period: period, Limit: perPeriod}), nil
}
