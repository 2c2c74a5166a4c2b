package coupon

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

var (
	errUserQuotaExceeded      = errors.New("user quota exceeded")
	errGlobalQuotaExceeded    = errors.New("global quota exceeded")
	errLedgerRedisUnavailable = errors.New("ledger redis unavailable")
)

// guardedDecrScript decrements only while the counter is positive, so a
// compensating release can never drive a counter negative.
const guardedDecrScript = `
local count = tonumber(redis.call("GET", KEYS[1]) or "0")
if count > 0 then
  return redis.call("DECR", KEYS[1])
end
return 0
`

var guardedDecrLua = redis.NewScript(guardedDecrScript)

// reservation is the result of a granted admission: the dense global sequence
// number plus the user counter value observed by this reservation's own
// increment. Remaining budgets are derived from these without a fresh read.
type reservation struct {
	sequence   int64
	userIssued int64
}

type quotaLedger struct {
	redis      *redis.Client
	prefix     string
	maxGlobal  int64
	maxPerUser int64
}

func newQuotaLedger(redisClient *redis.Client, prefix string, quota QuotaConfig) *quotaLedger {
	return &quotaLedger{
		redis:      redisClient,
		prefix:     prefix,
		maxGlobal:  quota.MaxGlobal,
		maxPerUser: quota.MaxPerUser,
	}
}

func (l *quotaLedger) globalKey() string {
	return l.prefix + ":gc"
}

func (l *quotaLedger) userKey(userID string) string {
	return l.prefix + ":uc:" + userID
}

// Reserve atomically claims one unit of both quotas for userID.
//
// The store offers single-key atomicity only, so the protocol is
// increment-then-check-then-compensate per key, user key first: a user who is
// individually capped is rejected without ever touching the global counter.
// On global rejection both increments are unwound before returning; a partial
// reservation is never a resting state.
func (l *quotaLedger) Reserve(ctx context.Context, userID string) (reservation, error) {
	userKey := l.userKey(userID)

	u, err := l.redis.Incr(ctx, userKey).Result()
	if err != nil {
		return reservation{}, fmt.Errorf("%w: %v", errLedgerRedisUnavailable, err)
	}
	if u > l.maxPerUser {
		if err := l.decrGuarded(ctx, userKey); err != nil {
			return reservation{}, err
		}
		return reservation{}, errUserQuotaExceeded
	}

	g, err := l.redis.Incr(ctx, l.globalKey()).Result()
	if err != nil {
		// The user slot is held with no global decision; unwind it before
		// surfacing the store failure so the caller may safely retry.
		if derr := l.decrGuarded(ctx, userKey); derr != nil {
			return reservation{}, derr
		}
		return reservation{}, fmt.Errorf("%w: %v", errLedgerRedisUnavailable, err)
	}
	if g > l.maxGlobal {
		if err := l.decrGuarded(ctx, l.globalKey()); err != nil {
			return reservation{}, err
		}
		if err := l.decrGuarded(ctx, userKey); err != nil {
			return reservation{}, err
		}
		return reservation{}, errGlobalQuotaExceeded
	}

	return reservation{sequence: g, userIssued: u}, nil
}

// Release undoes one successful Reserve: both counters are decremented,
// global first. Callers invoke it at most once per reservation; the guarded
// decrement floors at zero so a stray extra release cannot corrupt the ledger.
func (l *quotaLedger) Release(ctx context.Context, userID string) error {
	if err := l.decrGuarded(ctx, l.globalKey()); err != nil {
		return err
	}
	return l.decrGuarded(ctx, l.userKey(userID))
}

func (l *quotaLedger) decrGuarded(ctx context.Context, key string) error {
	if err := guardedDecrLua.Run(ctx, l.redis, []string{key}).Err(); err != nil {
		return fmt.Errorf("%w: %v", errLedgerRedisUnavailable, err)
	}
	return nil
}

// GlobalIssued describes the globalissued operation and its observable behavior.
//
// GlobalIssued may return an error when input validation, dependency calls, or security checks fail.
// GlobalIssued does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (l *quotaLedger) GlobalIssued(ctx context.Context) (int64, error) {
	return l.readCounter(ctx, l.globalKey())
}

// UserIssued describes the userissued operation and its observable behavior.
//
// UserIssued may return an error when input validation, dependency calls, or security checks fail.
// UserIssued does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (l *quotaLedger) UserIssued(ctx context.Context, userID string) (int64, error) {
	return l.readCounter(ctx, l.userKey(userID))
}

func (l *quotaLedger) readCounter(ctx context.Context, key string) (int64, error) {
	raw, err := l.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errLedgerRedisUnavailable, err)
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: corrupt counter %q", errLedgerRedisUnavailable, key)
	}
	return n, nil
}
