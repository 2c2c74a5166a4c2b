package coupon

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventIssueSuccess        = "issue_success"
	auditEventIssueRejectedUser   = "issue_rejected_user_limit"
	auditEventIssueRejectedGlobal = "issue_rejected_global_limit"
	auditEventIssueRateLimited    = "issue_rate_limited"
	auditEventIssueReleased       = "issue_released"
	auditEventIssueFailure        = "issue_failure"
	auditEventRedeemSuccess       = "redeem_success"
	auditEventRedeemReplay        = "redeem_replay"
	auditEventRedeemRejected      = "redeem_rejected"
)

// AuditErrorCode defines a public type used by coupon APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrUserLimit   AuditErrorCode = "user_limit"
	auditErrGlobalLimit AuditErrorCode = "global_limit"
	auditErrRateLimited AuditErrorCode = "rate_limited"
	auditErrSigning     AuditErrorCode = "signing_failure"
	auditErrExpired     AuditErrorCode = "token_expired"
	auditErrMalformed   AuditErrorCode = "token_malformed"
	auditErrAlreadyUsed AuditErrorCode = "already_used"
	auditErrUnavailable AuditErrorCode = "store_unavailable"
	auditErrInvalidUser AuditErrorCode = "invalid_user"
	auditErrAbandoned   AuditErrorCode = "caller_abandoned"
	auditErrInternal    AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sequence int64,
	tokenID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Sequence:  sequence,
		TokenID:   tokenID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUserQuotaExceeded):
		return auditErrUserLimit
	case errors.Is(err, ErrGlobalQuotaExceeded):
		return auditErrGlobalLimit
	case errors.Is(err, ErrIssueRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrSigningFailure):
		return auditErrSigning
	case errors.Is(err, ErrTokenExpired):
		return auditErrExpired
	case errors.Is(err, ErrTokenMalformed):
		return auditErrMalformed
	case errors.Is(err, ErrTokenAlreadyUsed):
		return auditErrAlreadyUsed
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrInvalidUserID):
		return auditErrInvalidUser
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return auditErrAbandoned
	default:
		return auditErrInternal
	}
}
