package coupon

import (
	"errors"
	"time"
)

// Config defines a public type used by coupon APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Quota    QuotaConfig
	Token    TokenConfig
	Store    StoreConfig
	Throttle ThrottleConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
QUOTA CONFIG
====================================
*/

// QuotaConfig carries the two admission ceilings. Both are explicit
// construction-time configuration; the engine never reads bounds from
// ambient globals.
type QuotaConfig struct {
	// MaxGlobal caps total tokens minted across all users for the lifetime of
	// the counters. Once reached, issuance stays exhausted until the counters
	// are externally reset.
	MaxGlobal int64
	// MaxPerUser caps tokens minted per user id.
	MaxPerUser int64
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by coupon APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	// ValidityWindow is the fixed lifetime of every minted token, computed
	// from mint time.
	ValidityWindow time.Duration
	SigningMethod  string // "ed25519" (default), "hs256" optional
	PrivateKey     []byte
	PublicKey      []byte
	Issuer         string
	Audience       string
	Leeway         time.Duration
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig defines a public type used by coupon APIs.
//
// StoreConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StoreConfig struct {
	// RedisPrefix namespaces every key the engine writes: the global counter,
	// the per-user counters, and the redemption presence records.
	RedisPrefix string
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig controls the optional issuance-attempt cooldown in front of
// the quota ledger. It throttles request attempts, not admissions; the quota
// counters remain the only admission authority.
type ThrottleConfig struct {
	Enabled          bool
	EnableIPThrottle bool
	MaxAttempts      int
	Cooldown         time.Duration
}

// AuditConfig defines a public type used by coupon APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by coupon APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the engine defaults: 77 global tokens, 5 per user,
// 24 hour validity.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Quota: QuotaConfig{
			MaxGlobal:  77,
			MaxPerUser: 5,
		},
		Token: TokenConfig{
			ValidityWindow: 24 * time.Hour,
			SigningMethod:  "ed25519",
		},
		Store: StoreConfig{
			RedisPrefix: "cpn",
		},
		Throttle: ThrottleConfig{
			Enabled:          false,
			EnableIPThrottle: false,
			MaxAttempts:      10,
			Cooldown:         time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Quota
	if c.Quota.MaxGlobal <= 0 {
		return errors.New("Quota MaxGlobal must be > 0")
	}
	if c.Quota.MaxPerUser <= 0 {
		return errors.New("Quota MaxPerUser must be > 0")
	}
	if c.Quota.MaxPerUser > c.Quota.MaxGlobal {
		return errors.New("Quota MaxPerUser must not exceed MaxGlobal")
	}

	// Token
	if c.Token.ValidityWindow <= 0 {
		return errors.New("Token ValidityWindow must be > 0")
	}
	if c.Token.SigningMethod != "ed25519" && c.Token.SigningMethod != "hs256" {
		return errors.New("unsupported Token signing method")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be within [0, 2m]")
	}

	// Store
	if c.Store.RedisPrefix == "" {
		return errors.New("Store RedisPrefix must not be empty")
	}

	// Throttle
	if c.Throttle.Enabled {
		if c.Throttle.MaxAttempts <= 0 {
			return errors.New("Throttle MaxAttempts must be > 0 when enabled")
		}
		if c.Throttle.Cooldown <= 0 {
			return errors.New("Throttle Cooldown must be > 0 when enabled")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
