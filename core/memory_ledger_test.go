package core_test

import (
	"context"
	"sync"
	"testing"

	"github.com/goliatone/go-onboarding/core"
)

func TestMemoryLedgerClaim(t *testing.T) {
	ledger := core.NewMemoryIdempotencyLedger()
	ctx := context.Background()

	claimed, err := ledger.Claim(ctx, "evt_1")
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if !claimed {
		t.Fatalf("expected first claim to win")
	}

	claimed, err = ledger.Claim(ctx, "evt_1")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed {
		t.Fatalf("expected duplicate claim to lose")
	}

	if _, ok := ledger.ClaimedAt("evt_1"); !ok {
		t.Fatalf("expected claim timestamp to be recorded")
	}
	if _, ok := ledger.ClaimedAt("evt_2"); ok {
		t.Fatalf("expected unclaimed id to report no timestamp")
	}
}

func TestMemoryLedgerRequiresEventID(t *testing.T) {
	ledger := core.NewMemoryIdempotencyLedger()
	if _, err := ledger.Claim(context.Background(), "  "); err == nil {
		t.Fatalf("expected blank event id to be rejected")
	}
}

func TestMemoryLedgerConcurrentClaims(t *testing.T) {
	ledger := core.NewMemoryIdempotencyLedger()
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	wins := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := ledger.Claim(ctx, "evt_race")
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			wins <- claimed
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for claimed := range wins {
		if claimed {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}
