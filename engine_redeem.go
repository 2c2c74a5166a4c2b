package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CheckToken verifies material without consuming it. Verdicts are data, not
// errors: malformed, expired, and already-used tokens all return a
// CheckResult with a nil error. An error is returned only when the engine
// cannot decide, which means the counter store is unreachable.
//
// Expiry wins over redemption state: an expired token reports
// [VerdictExpired] even when its sequence was also redeemed.
func (e *Engine) CheckToken(ctx context.Context, material string) (*CheckResult, error) {
	if e == nil || e.signer == nil || e.redemptions == nil {
		return nil, ErrEngineNotReady
	}

	claim, err := e.verifyMaterial(material)
	switch {
	case err == nil:
	case errors.Is(err, ErrTokenExpired):
		e.metricInc(MetricCheckExpired)
		result := &CheckResult{Verdict: VerdictExpired}
		if claim != nil {
			result.Sequence = claim.Sequence
			result.UserID = claim.UserID
			result.ExpiresAt = claim.ExpiresAt
		}
		return result, nil
	default:
		e.metricInc(MetricCheckMalformed)
		return &CheckResult{Verdict: VerdictMalformed}, nil
	}

	used, err := e.redemptions.IsUsed(ctx, claim.Sequence)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	result := &CheckResult{
		Verdict:   VerdictValid,
		Sequence:  claim.Sequence,
		UserID:    claim.UserID,
		ExpiresAt: claim.ExpiresAt,
	}
	if used {
		result.Verdict = VerdictAlreadyUsed
		e.metricInc(MetricCheckAlreadyUsed)
		return result, nil
	}

	e.metricInc(MetricCheckValid)
	return result, nil
}

// RedeemToken atomically consumes material. Exactly one call per sequence
// number ever succeeds; every later attempt fails with [ErrTokenAlreadyUsed]
// regardless of which process raced first. The presence record carries the
// token's remaining validity so it outlives every live copy of the token and
// then expires on its own.
func (e *Engine) RedeemToken(ctx context.Context, material string) (*RedeemResult, error) {
	if e == nil || e.signer == nil || e.redemptions == nil {
		return nil, ErrEngineNotReady
	}

	claim, err := e.verifyMaterial(material)
	if err != nil {
		var (
			seq     int64
			userID  string
			tokenID string
		)
		if claim != nil {
			seq, userID, tokenID = claim.Sequence, claim.UserID, claim.TokenID
		}
		if errors.Is(err, ErrTokenExpired) {
			e.metricInc(MetricRedeemRejected)
			e.emitAudit(ctx, auditEventRedeemRejected, false, userID, seq, tokenID, ErrTokenExpired, nil)
			return nil, ErrTokenExpired
		}
		e.metricInc(MetricRedeemRejected)
		e.emitAudit(ctx, auditEventRedeemRejected, false, userID, seq, tokenID, ErrTokenMalformed, nil)
		return nil, ErrTokenMalformed
	}

	// The remaining validity bounds the presence record: once every copy of
	// the token has expired, the record has nothing left to guard.
	ttl := time.Until(claim.ExpiresAt)
	if ttl <= 0 {
		e.metricInc(MetricRedeemRejected)
		e.emitAudit(ctx, auditEventRedeemRejected, false, claim.UserID, claim.Sequence, claim.TokenID, ErrTokenExpired, nil)
		return nil, ErrTokenExpired
	}

	usedNow, err := e.redemptions.MarkUsed(ctx, claim.Sequence, claim.UserID, ttl)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !usedNow {
		e.metricInc(MetricRedeemReplay)
		e.emitAudit(ctx, auditEventRedeemReplay, false, claim.UserID, claim.Sequence, claim.TokenID, ErrTokenAlreadyUsed, nil)
		return nil, ErrTokenAlreadyUsed
	}

	e.metricInc(MetricRedeemSuccess)
	e.emitAudit(ctx, auditEventRedeemSuccess, true, claim.UserID, claim.Sequence, claim.TokenID, nil, nil)

	return &RedeemResult{
		Sequence: claim.Sequence,
		UserID:   claim.UserID,
		UsedAt:   time.Now().UTC(),
	}, nil
}

// verifyMaterial runs the signer and applies the engine's own clock on top of
// it, so an injected Signer without expiry handling still yields
// [ErrTokenExpired] for stale claims.
func (e *Engine) verifyMaterial(material string) (*TokenClaim, error) {
	claim, err := e.signer.Verify(material)
	if err != nil {
		return claim, err
	}
	if claim == nil || claim.Sequence <= 0 || claim.UserID == "" {
		return nil, ErrTokenMalformed
	}
	if !claim.ExpiresAt.IsZero() && time.Now().After(claim.ExpiresAt.Add(e.config.Token.Leeway)) {
		return claim, ErrTokenExpired
	}
	return claim, nil
}
