package coupon

import "errors"

var (
	// ErrEngineNotReady is an exported constant or variable used by the coupon engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidUserID is an exported constant or variable used by the coupon engine.
	ErrInvalidUserID = errors.New("invalid user id")
	// ErrUserQuotaExceeded is an exported constant or variable used by the coupon engine.
	ErrUserQuotaExceeded = errors.New("user token limit reached")
	// ErrGlobalQuotaExceeded is an exported constant or variable used by the coupon engine.
	ErrGlobalQuotaExceeded = errors.New("global token limit reached")
	// ErrStoreUnavailable is an exported constant or variable used by the coupon engine.
	ErrStoreUnavailable = errors.New("counter store unavailable")
	// ErrSigningFailure is an exported constant or variable used by the coupon engine.
	ErrSigningFailure = errors.New("token signing failed")
	// ErrTokenExpired is an exported constant or variable used by the coupon engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is an exported constant or variable used by the coupon engine.
	ErrTokenMalformed = errors.New("token malformed or bad signature")
	// ErrTokenAlreadyUsed is an exported constant or variable used by the coupon engine.
	ErrTokenAlreadyUsed = errors.New("token already used")
	// ErrIssueRateLimited is an exported constant or variable used by the coupon engine.
	ErrIssueRateLimited = errors.New("token issuance rate limited")
)
