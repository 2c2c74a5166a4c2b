//go:build integration
// +build integration

package test

import (
	"testing"

	coupon "github.com/rolandrocking/77x"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newIntegrationEngine(t *testing.T, maxGlobal, maxPerUser int64) (*coupon.Engine, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := coupon.DefaultConfig()
	cfg.Quota.MaxGlobal = maxGlobal
	cfg.Quota.MaxPerUser = maxPerUser
	cfg.Token.SigningMethod = "hs256"
	cfg.Token.PrivateKey = []byte("integration-secret")

	engine, err := coupon.New().
		WithConfig(cfg).
		WithRedis(rdb).
		Build()
	if err != nil {
		_ = rdb.Close()
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}
