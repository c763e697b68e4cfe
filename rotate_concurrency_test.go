package authkit

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestRotateConcurrencySingleWinner(t *testing.T) {
	engine, store, _ := newTestEngine(t, testConfig())
	ident := seedIdentity(t, store, "member-1", "ext-1001")

	pair, err := engine.Issue(context.Background(), ident)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := engine.Rotate(context.Background(), pair.Refresh)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	success := 0
	reuse := 0
	for err := range results {
		if err == nil {
			success++
			continue
		}
		if errors.Is(err, ErrRefreshReuse) {
			reuse++
			continue
		}
		t.Fatalf("unexpected rotate error: %v", err)
	}

	if success != 1 {
		t.Fatalf("expected exactly one rotate success, got %d", success)
	}
	if reuse != n-1 {
		t.Fatalf("expected %d reuse failures, got %d", n-1, reuse)
	}
}

func TestConcurrentRevokeAllAdvancesVersionExactly(t *testing.T) {
	engine, store, _ := newTestEngine(t, testConfig())
	ident := seedIdentity(t, store, "member-1", "ext-1001")

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := engine.RevokeAll(context.Background(), ident.ID); err != nil {
				t.Errorf("RevokeAll failed: %v", err)
			}
		}()
	}
	wg.Wait()

	version, err := store.CurrentVersion(context.Background(), ident.ID)
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if version != n {
		t.Fatalf("expected version %d after %d concurrent revocations, got %d", n, n, version)
	}
}
