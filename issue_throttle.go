package coupon

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	errIssueRateLimited         = errors.New("issue rate limited")
	errThrottleRedisUnavailable = errors.New("throttle redis unavailable")
)

// issueThrottle cools down request attempts per user (and optionally per IP)
// in front of the quota ledger. It bounds attempt rate only; admission is
// always decided by the counters.
type issueThrottle struct {
	redis  *redis.Client
	prefix string
	config ThrottleConfig
}

func newIssueThrottle(redisClient *redis.Client, prefix string, cfg ThrottleConfig) *issueThrottle {
	if !cfg.Enabled {
		return nil
	}
	return &issueThrottle{
		redis:  redisClient,
		prefix: prefix,
		config: cfg,
	}
}

// Enforce describes the enforce operation and its observable behavior.
//
// Enforce may return an error when input validation, dependency calls, or security checks fail.
// Enforce does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (t *issueThrottle) Enforce(ctx context.Context, userID, ip string) error {
	if t == nil {
		return nil
	}

	if err := t.enforceKey(ctx, t.prefix+":th:"+userID); err != nil {
		return err
	}

	if t.config.EnableIPThrottle && ip != "" {
		if err := t.enforceKey(ctx, t.prefix+":thip:"+ip); err != nil {
			return err
		}
	}

	return nil
}

func (t *issueThrottle) enforceKey(ctx context.Context, key string) error {
	count, err := t.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", errThrottleRedisUnavailable, err)
	}

	if count == 1 {
		if err := t.redis.Expire(ctx, key, t.config.Cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", errThrottleRedisUnavailable, err)
		}
	}

	if count > int64(t.config.MaxAttempts) {
		return errIssueRateLimited
	}

	return nil
}
