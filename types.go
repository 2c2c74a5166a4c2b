package coupon

import (
	"context"
	"time"
)

// TokenClaim is the immutable payload embedded in every signed coupon token.
// The engine retains no server-side copy beyond the quota counters; the claim
// travels with the caller and is re-verified on every check or redemption.
type TokenClaim struct {
	// Sequence is the dense admission index assigned when global capacity was
	// claimed. It is unique across all users for the lifetime of the counters.
	Sequence int64
	// UserID is the opaque identity the token was issued to.
	UserID string
	// TokenID is a mint-time uuid carried as the jti claim for audit
	// traceability. Redemption identity is Sequence, not TokenID.
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssueResult is returned by [Engine.RequestToken] on successful admission.
type IssueResult struct {
	Claim TokenClaim
	// Material is the signed wire form of Claim, opaque to callers.
	Material string
	// GlobalRemaining and UserRemaining are derived from the reservation's own
	// counter increments. They are exact at reservation time and may be stale
	// by the time the caller reads them under concurrency.
	GlobalRemaining int64
	UserRemaining   int64
}

// Verdict defines a public type used by coupon APIs.
//
// Verdict instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Verdict uint8

const (
	// VerdictValid is an exported constant or variable used by the coupon engine.
	VerdictValid Verdict = iota
	// VerdictExpired is an exported constant or variable used by the coupon engine.
	VerdictExpired
	// VerdictAlreadyUsed is an exported constant or variable used by the coupon engine.
	VerdictAlreadyUsed
	// VerdictMalformed is an exported constant or variable used by the coupon engine.
	VerdictMalformed
)

// String describes the string operation and its observable behavior.
//
// String does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (v Verdict) String() string {
	switch v {
	case VerdictValid:
		return "valid"
	case VerdictExpired:
		return "expired"
	case VerdictAlreadyUsed:
		return "already_used"
	default:
		return "malformed"
	}
}

// CheckResult is returned by [Engine.CheckToken]. Sequence, UserID, and
// ExpiresAt are populated whenever the signature verified, including for
// expired and already-used tokens.
type CheckResult struct {
	Verdict   Verdict
	Sequence  int64
	UserID    string
	ExpiresAt time.Time
}

// RedeemResult is returned by [Engine.RedeemToken] when this call was the
// first use of the token.
type RedeemResult struct {
	Sequence int64
	UserID   string
	UsedAt   time.Time
}

// Stats is a best-effort snapshot of global issuance. It is not linearizable
// with concurrent reservations.
type Stats struct {
	GlobalIssued    int64
	GlobalRemaining int64
	MaxGlobal       int64
	MaxPerUser      int64
	LimitReached    bool
	Timestamp       time.Time
}

// UserStats is a best-effort snapshot of one user's issuance.
type UserStats struct {
	UserID       string
	Issued       int64
	Remaining    int64
	MaxPerUser   int64
	LimitReached bool
	Timestamp    time.Time
}

// Signer is the opaque credential-signing capability consumed by the engine.
// Sign must embed the full claim; Verify must reject tampered material with
// [ErrTokenMalformed] and expired material with [ErrTokenExpired] (returning
// the decoded claim alongside the expiry error when it is recoverable).
//
// The jwt subpackage provides the default implementation; [Builder.Build]
// constructs it from [TokenConfig] when no Signer is injected.
type Signer interface {
	Sign(claim TokenClaim) (string, error)
	Verify(material string) (*TokenClaim, error)
}

// Authenticator is the User-Identity collaborator: it resolves a verified
// bearer credential into a stable opaque user id before any reservation is
// permitted. Registration, login, and credential persistence live behind this
// interface and are out of scope for the engine.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (userID string, err error)
}
