// Package middleware exposes HTTP middleware adapters that sit in front of
// coupon.Engine endpoints.
//
// # Guards
//
//   - [Identity] — resolves the Authorization bearer credential into a user id
//     via a coupon.Authenticator and injects it into the request context.
//   - [ClientIP] — records the caller address for per-IP throttling and audit
//     attribution.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into engine inputs. It does NOT make
// admission decisions itself — quotas, signing, and redemption all stay behind
// coupon.Engine.
//
// # What this package must NOT do
//
//   - Parse or create coupon tokens (delegates to the Engine).
//   - Access Redis (the Engine handles I/O).
//   - Decide admission beyond pass/reject from the Authenticator.
package middleware
