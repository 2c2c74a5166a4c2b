package coupon

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMarkUsedFirstCallWins(t *testing.T) {
	mr, rdb := newTestRedis(t)
	t.Cleanup(mr.Close)

	store := newRedemptionStore(rdb, "cpn")
	ctx := context.Background()

	usedNow, err := store.MarkUsed(ctx, 7, "alice", time.Hour)
	if err != nil {
		t.Fatalf("MarkUsed failed: %v", err)
	}
	if !usedNow {
		t.Fatal("expected first redemption to win")
	}

	usedNow, err = store.MarkUsed(ctx, 7, "alice", time.Hour)
	if err != nil {
		t.Fatalf("MarkUsed failed: %v", err)
	}
	if usedNow {
		t.Fatal("expected replay to lose")
	}

	used, err := store.IsUsed(ctx, 7)
	if err != nil {
		t.Fatalf("IsUsed failed: %v", err)
	}
	if !used {
		t.Fatal("expected sequence 7 to be used")
	}

	used, err = store.IsUsed(ctx, 8)
	if err != nil {
		t.Fatalf("IsUsed failed: %v", err)
	}
	if used {
		t.Fatal("expected sequence 8 to be unused")
	}
}

func TestMarkUsedConcurrentSingleWinner(t *testing.T) {
	mr, rdb := newTestRedis(t)
	t.Cleanup(mr.Close)

	store := newRedemptionStore(rdb, "cpn")
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		winners atomic.Int64
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			usedNow, err := store.MarkUsed(ctx, 42, "alice", time.Hour)
			if err != nil {
				t.Errorf("MarkUsed failed: %v", err)
				return
			}
			if usedNow {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := winners.Load(); got != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", got)
	}
}

func TestMarkUsedBoundsRecordLifetime(t *testing.T) {
	mr, rdb := newTestRedis(t)
	t.Cleanup(mr.Close)

	store := newRedemptionStore(rdb, "cpn")
	ctx := context.Background()

	if _, err := store.MarkUsed(ctx, 1, "alice", 30*time.Minute); err != nil {
		t.Fatalf("MarkUsed failed: %v", err)
	}

	ttl := mr.TTL(store.key(1))
	if ttl <= 0 || ttl > 30*time.Minute {
		t.Fatalf("expected ttl within (0, 30m], got %s", ttl)
	}

	// Once the record lapses, the guard is gone together with every live
	// copy of the token.
	mr.FastForward(31 * time.Minute)

	used, err := store.IsUsed(ctx, 1)
	if err != nil {
		t.Fatalf("IsUsed failed: %v", err)
	}
	if used {
		t.Fatal("expected record to lapse with the token validity")
	}
}

func TestMarkUsedRejectsNonPositiveTTL(t *testing.T) {
	mr, rdb := newTestRedis(t)
	t.Cleanup(mr.Close)

	store := newRedemptionStore(rdb, "cpn")

	if _, err := store.MarkUsed(context.Background(), 1, "alice", 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
	if _, err := store.MarkUsed(context.Background(), 1, "alice", -time.Second); err == nil {
		t.Fatal("expected error for negative ttl")
	}
}
