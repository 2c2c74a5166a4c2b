package coupon

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var errRedemptionRedisUnavailable = errors.New("redemption redis unavailable")

// redemptionStore records single-use state per issued token. Presence of the
// key means "already used"; absence means unused or unknown. Records are
// created lazily on first successful use and self-expire with the token.
type redemptionStore struct {
	redis  *redis.Client
	prefix string
}

func newRedemptionStore(redisClient *redis.Client, prefix string) *redemptionStore {
	return &redemptionStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *redemptionStore) key(sequence int64) string {
	return s.prefix + ":used:" + strconv.FormatInt(sequence, 10)
}

// MarkUsed atomically claims first use of the token identified by sequence.
// It is a single SET NX with TTL capped to the token's remaining validity, so
// of two racing redemptions exactly one observes usedNow == true and the
// record never outlives the token it guards.
func (s *redemptionStore) MarkUsed(ctx context.Context, sequence int64, userID string, ttl time.Duration) (usedNow bool, err error) {
	if ttl <= 0 {
		return false, fmt.Errorf("%w: non-positive redemption ttl", errRedemptionRedisUnavailable)
	}

	ok, err := s.redis.SetNX(ctx, s.key(sequence), userID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", errRedemptionRedisUnavailable, err)
	}
	return ok, nil
}

// IsUsed describes the isused operation and its observable behavior.
//
// IsUsed may return an error when input validation, dependency calls, or security checks fail.
// IsUsed does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *redemptionStore) IsUsed(ctx context.Context, sequence int64) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(sequence)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", errRedemptionRedisUnavailable, err)
	}
	return n > 0, nil
}
