package coupon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/rolandrocking/77x/internal"
)

// issuePhase tracks how far a single RequestToken call has progressed. The
// deferred compensation keys off it: a call that reserved quota but never
// reached issued must release both counters before returning.
type issuePhase uint8

const (
	phaseRequested issuePhase = iota
	phaseReserved
	phaseMinted
	phaseIssued
)

// RequestToken admits one token for userID: it reserves a slot in both quota
// ledgers, mints a signed claim carrying the dense global sequence number,
// and returns the signed material. On any failure after the reservation the
// quota slots are released before returning, so a failed call never consumes
// capacity.
//
// Rejections map to the sentinel taxonomy: [ErrUserQuotaExceeded],
// [ErrGlobalQuotaExceeded], [ErrIssueRateLimited], [ErrSigningFailure],
// [ErrStoreUnavailable], [ErrInvalidUserID].
func (e *Engine) RequestToken(ctx context.Context, userID string) (*IssueResult, error) {
	if e == nil || e.signer == nil || e.ledger == nil {
		return nil, ErrEngineNotReady
	}

	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metricObserve(MetricIssueLatency, time.Since(start)) }()
	}

	userID = strings.TrimSpace(userID)
	if userID == "" || len(userID) > 256 {
		return nil, ErrInvalidUserID
	}

	if err := e.throttle.Enforce(ctx, userID, clientIPFromContext(ctx)); err != nil {
		switch {
		case errors.Is(err, errIssueRateLimited):
			e.metricInc(MetricIssueRateLimited)
			e.emitAudit(ctx, auditEventIssueRateLimited, false, userID, 0, "", ErrIssueRateLimited, nil)
			return nil, ErrIssueRateLimited
		default:
			e.metricInc(MetricStoreUnavailable)
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	res, err := e.ledger.Reserve(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, errUserQuotaExceeded):
			e.metricInc(MetricIssueRejectedUser)
			e.emitAudit(ctx, auditEventIssueRejectedUser, false, userID, 0, "", ErrUserQuotaExceeded, nil)
			return nil, ErrUserQuotaExceeded
		case errors.Is(err, errGlobalQuotaExceeded):
			e.metricInc(MetricIssueRejectedGlobal)
			e.emitAudit(ctx, auditEventIssueRejectedGlobal, false, userID, 0, "", ErrGlobalQuotaExceeded, nil)
			return nil, ErrGlobalQuotaExceeded
		default:
			e.metricInc(MetricStoreUnavailable)
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	phase := phaseReserved
	defer func() {
		if phase == phaseIssued {
			return
		}
		// The reservation is live but the token never reached the caller.
		// Compensation is best effort: the guarded decrement floors at zero,
		// and a release lost to a store outage leaks at most this one slot.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if rerr := e.ledger.Release(releaseCtx, userID); rerr != nil {
			log.Printf("coupon: release of sequence %d for user %q failed: %v", res.sequence, userID, rerr)
			return
		}
		e.metricInc(MetricIssueReleased)
		e.emitAudit(ctx, auditEventIssueReleased, false, userID, res.sequence, "", nil, func() map[string]string {
			return map[string]string{"phase": strconv.Itoa(int(phase))}
		})
	}()

	issuedAt, expiresAt := mintTimes(time.Now(), e.config.Token.ValidityWindow)
	claim := TokenClaim{
		Sequence:  res.sequence,
		UserID:    userID,
		TokenID:   internal.NewTokenID(),
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}

	material, err := e.signer.Sign(claim)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, userID, res.sequence, claim.TokenID, ErrSigningFailure, nil)
		return nil, fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}
	phase = phaseMinted

	// The caller abandoning the request after minting counts as a failed
	// issuance: the slot is released rather than burned on a token nobody
	// received.
	if err := ctx.Err(); err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, userID, res.sequence, claim.TokenID, err, nil)
		return nil, err
	}
	phase = phaseIssued

	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, auditEventIssueSuccess, true, userID, res.sequence, claim.TokenID, nil, nil)

	return &IssueResult{
		Claim:           claim,
		Material:        material,
		GlobalRemaining: e.config.Quota.MaxGlobal - res.sequence,
		UserRemaining:   e.config.Quota.MaxPerUser - res.userIssued,
	}, nil
}
