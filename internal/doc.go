// Package internal holds helpers shared by the coupon engine that must not
// become public API.
package internal
