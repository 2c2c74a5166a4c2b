package coupon

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
)

func newTestLedger(t *testing.T, maxGlobal, maxPerUser int64) *quotaLedger {
	t.Helper()

	mr, rdb := newTestRedis(t)
	t.Cleanup(mr.Close)

	return newQuotaLedger(rdb, "cpn", QuotaConfig{
		MaxGlobal:  maxGlobal,
		MaxPerUser: maxPerUser,
	})
}

func TestReserveAssignsDenseSequences(t *testing.T) {
	ledger := newTestLedger(t, 5, 5)
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		res, err := ledger.Reserve(ctx, fmt.Sprintf("user-%d", want))
		if err != nil {
			t.Fatalf("Reserve %d failed: %v", want, err)
		}
		if res.sequence != want {
			t.Fatalf("expected sequence %d, got %d", want, res.sequence)
		}
	}
}

func TestReserveUserRejectionLeavesGlobalUntouched(t *testing.T) {
	ledger := newTestLedger(t, 10, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := ledger.Reserve(ctx, "alice"); err != nil {
			t.Fatalf("Reserve %d failed: %v", i+1, err)
		}
	}

	if _, err := ledger.Reserve(ctx, "alice"); !errors.Is(err, errUserQuotaExceeded) {
		t.Fatalf("expected errUserQuotaExceeded, got %v", err)
	}

	global, err := ledger.GlobalIssued(ctx)
	if err != nil {
		t.Fatalf("GlobalIssued failed: %v", err)
	}
	if global != 2 {
		t.Fatalf("expected global counter 2, got %d", global)
	}

	issued, err := ledger.UserIssued(ctx, "alice")
	if err != nil {
		t.Fatalf("UserIssued failed: %v", err)
	}
	if issued != 2 {
		t.Fatalf("expected user counter rolled back to 2, got %d", issued)
	}
}

func TestReserveGlobalRejectionUnwindsBothCounters(t *testing.T) {
	ledger := newTestLedger(t, 2, 2)
	ctx := context.Background()

	if _, err := ledger.Reserve(ctx, "alice"); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if _, err := ledger.Reserve(ctx, "bob"); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	if _, err := ledger.Reserve(ctx, "carol"); !errors.Is(err, errGlobalQuotaExceeded) {
		t.Fatalf("expected errGlobalQuotaExceeded, got %v", err)
	}

	global, err := ledger.GlobalIssued(ctx)
	if err != nil {
		t.Fatalf("GlobalIssued failed: %v", err)
	}
	if global != 2 {
		t.Fatalf("expected global counter 2 after unwind, got %d", global)
	}

	issued, err := ledger.UserIssued(ctx, "carol")
	if err != nil {
		t.Fatalf("UserIssued failed: %v", err)
	}
	if issued != 0 {
		t.Fatalf("expected carol counter 0 after unwind, got %d", issued)
	}
}

func TestReleaseReopensExhaustedLedger(t *testing.T) {
	ledger := newTestLedger(t, 1, 1)
	ctx := context.Background()

	if _, err := ledger.Reserve(ctx, "alice"); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if _, err := ledger.Reserve(ctx, "bob"); !errors.Is(err, errGlobalQuotaExceeded) {
		t.Fatalf("expected errGlobalQuotaExceeded, got %v", err)
	}

	if err := ledger.Release(ctx, "alice"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	res, err := ledger.Reserve(ctx, "bob")
	if err != nil {
		t.Fatalf("Reserve after release failed: %v", err)
	}
	if res.sequence != 1 {
		t.Fatalf("expected reopened sequence 1, got %d", res.sequence)
	}
}

func TestReleaseFloorsAtZero(t *testing.T) {
	ledger := newTestLedger(t, 5, 5)
	ctx := context.Background()

	if err := ledger.Release(ctx, "ghost"); err != nil {
		t.Fatalf("Release on empty ledger failed: %v", err)
	}

	global, err := ledger.GlobalIssued(ctx)
	if err != nil {
		t.Fatalf("GlobalIssued failed: %v", err)
	}
	if global != 0 {
		t.Fatalf("expected global counter 0, got %d", global)
	}

	// A subsequent reservation still starts at sequence 1.
	res, err := ledger.Reserve(ctx, "alice")
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if res.sequence != 1 {
		t.Fatalf("expected sequence 1, got %d", res.sequence)
	}
}

func TestConcurrentReserveNeverOversellsGlobal(t *testing.T) {
	const maxGlobal = 10
	ledger := newTestLedger(t, maxGlobal, 1)
	ctx := context.Background()

	const attempts = 40
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		sequences []int64
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := ledger.Reserve(ctx, fmt.Sprintf("user-%d", i))
			if err != nil {
				if !errors.Is(err, errGlobalQuotaExceeded) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			mu.Lock()
			sequences = append(sequences, res.sequence)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if len(sequences) != maxGlobal {
		t.Fatalf("expected exactly %d winners, got %d", maxGlobal, len(sequences))
	}

	sort.Slice(sequences, func(i, j int) bool { return sequences[i] < sequences[j] })
	for i, seq := range sequences {
		if seq != int64(i+1) {
			t.Fatalf("expected dense sequences 1..%d, got %v", maxGlobal, sequences)
		}
	}

	global, err := ledger.GlobalIssued(ctx)
	if err != nil {
		t.Fatalf("GlobalIssued failed: %v", err)
	}
	if global != maxGlobal {
		t.Fatalf("expected settled global counter %d, got %d", maxGlobal, global)
	}
}
