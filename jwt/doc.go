// Package jwt implements the default coupon signing capability: compact JWS
// tokens carrying the admission sequence, user id, and mint-time jti, signed
// with ed25519 (default) or HS256.
//
// The package is self-contained so the root engine can treat signing as an
// opaque capability; it never imports the root package.
package jwt
