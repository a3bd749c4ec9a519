package ratelimit

import (
	"context"
	"fmt"

	"parent-voice/internal/apperr"
	"parent-voice/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// windowScript increments the window counter and sets its expiry in one
// server-side step. Doing the PEXPIRE from the client after INCR leaves a
// gap in which a crash produces a counter with no TTL, locking the subject
// out until the key is deleted by hand.
var windowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count`)

// RedisLimiter enforces the fixed window with a single atomic Lua script,
// so concurrent requests from the same subject cannot overshoot the maximum
// and the window expiry is set together with the first hit.
type RedisLimiter struct {
	client  *redis.Client
	scripts redis.Scripter
	feature string
	cfg     config.RateLimitConfig
	logger  *zap.Logger
}

// NewRedisLimiter connects to Redis and verifies the connection.
func NewRedisLimiter(redisCfg config.RedisConfig, limitCfg config.RateLimitConfig, feature string, logger *zap.Logger) (*RedisLimiter, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("connected to Redis", zap.String("addr", redisCfg.Addr))

	return &RedisLimiter{
		client:  rdb,
		scripts: rdb,
		feature: feature,
		cfg:     limitCfg,
		logger:  logger,
	}, nil
}

// Allow consumes one slot from the subject's window.
func (l *RedisLimiter) Allow(ctx context.Context, subject string) error {
	key := fmt.Sprintf("ratelimit:%s:%s", l.feature, subject)

	count, err := windowScript.Run(ctx, l.scripts, []string{key}, l.cfg.Window.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("rate-limit window script failed: %w", err)
	}

	if count > int64(l.cfg.Max) {
		l.logger.Warn("rate limit exceeded",
			zap.String("subject", subject),
			zap.Int64("count", count))
		return apperr.RateLimited()
	}

	return nil
}

// Close releases the Redis connection.
func (l *RedisLimiter) Close() error {
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}
