// Package coupon provides a strictly bounded single-use token engine: a fixed
// global budget of signed coupon tokens, a per-user budget, atomic Redis-backed
// admission accounting, and race-free single-use redemption.
//
// The package is designed for concurrent server workloads: Engine methods are safe
// to call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// coupon is the public surface. It exposes [Engine], [Builder], [Config], and value
// types (IssueResult, CheckResult, Stats, etc.). Signing is an injected [Signer]
// capability (the jwt subpackage provides the default implementation); resolving a
// bearer credential to a user id is the injected [Authenticator] collaborator and
// is never implemented here.
//
// # What this package must NOT do
//
//   - Expose Redis clients, key layouts, or counter internals in its public API.
//   - Hold any lock across Redis calls: admission correctness rests entirely on
//     single-key atomic increments plus explicit compensation, never on engine-side
//     mutual exclusion.
//   - Leave a partial reservation behind. A per-user slot held without a global
//     slot (or either slot held after a failed mint) is compensated before the
//     call returns.
//
// # Accounting contract
//
// RequestToken performs at most four counter round-trips (two increments, two
// compensating decrements in the worst case). CheckToken is read-only. RedeemToken
// is a single set-if-absent; of two concurrent redemptions of the same token
// exactly one observes first use.
package coupon
