package coupon

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Stats reads the global issuance counter and derives the remaining budget.
// The snapshot is best effort: concurrent reservations may land between the
// read and the caller acting on it, so Remaining is a hint, never a promise.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	if e == nil || e.ledger == nil {
		return nil, ErrEngineNotReady
	}

	issued, err := e.ledger.GlobalIssued(ctx)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	remaining := e.config.Quota.MaxGlobal - issued
	if remaining < 0 {
		remaining = 0
	}

	return &Stats{
		GlobalIssued:    issued,
		GlobalRemaining: remaining,
		MaxGlobal:       e.config.Quota.MaxGlobal,
		MaxPerUser:      e.config.Quota.MaxPerUser,
		LimitReached:    issued >= e.config.Quota.MaxGlobal,
		Timestamp:       time.Now().UTC(),
	}, nil
}

// StatsForUser reads one user's issuance counter. A user the engine has never
// seen reports zero issued with the full per-user budget remaining.
func (e *Engine) StatsForUser(ctx context.Context, userID string) (*UserStats, error) {
	if e == nil || e.ledger == nil {
		return nil, ErrEngineNotReady
	}

	userID = strings.TrimSpace(userID)
	if userID == "" || len(userID) > 256 {
		return nil, ErrInvalidUserID
	}

	issued, err := e.ledger.UserIssued(ctx, userID)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	remaining := e.config.Quota.MaxPerUser - issued
	if remaining < 0 {
		remaining = 0
	}

	return &UserStats{
		UserID:       userID,
		Issued:       issued,
		Remaining:    remaining,
		MaxPerUser:   e.config.Quota.MaxPerUser,
		LimitReached: issued >= e.config.Quota.MaxPerUser,
		Timestamp:    time.Now().UTC(),
	}, nil
}
