package authkit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func metricsConfigForTest() Config {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func TestMetricsCountLifecycle(t *testing.T) {
	engine, store, _ := newTestEngine(t, metricsConfigForTest())
	ident := seedIdentity(t, store, "member-1", "ext-1001")

	pair, err := engine.Issue(context.Background(), ident)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := engine.ValidateAccess(context.Background(), pair.Access); err != nil {
		t.Fatalf("ValidateAccess failed: %v", err)
	}
	next, err := engine.Rotate(context.Background(), pair.Refresh)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if _, err := engine.Rotate(context.Background(), pair.Refresh); err == nil {
		t.Fatal("expected reuse rejection")
	}
	if err := engine.RevokeOne(context.Background(), next.Refresh); err != nil {
		t.Fatalf("RevokeOne failed: %v", err)
	}
	if _, err := engine.RevokeAll(context.Background(), ident.ID); err != nil {
		t.Fatalf("RevokeAll failed: %v", err)
	}

	snapshot := engine.MetricsSnapshot()
	expect := map[MetricID]uint64{
		MetricIssueSuccess:         1,
		MetricValidateSuccess:      1,
		MetricRotateSuccess:        1,
		MetricRotateFailure:        1,
		MetricRefreshReuseDetected: 1,
		MetricRevokeOne:            1,
		MetricRevokeAll:            1,
	}
	for id, want := range expect {
		if got := snapshot.Counters[id]; got != want {
			t.Errorf("counter %d: got %d, want %d", id, got, want)
		}
	}

	buckets := snapshot.Histograms[MetricValidateLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 latency buckets, got %d", len(buckets))
	}
	var total uint64
	for _, b := range buckets {
		total += b
	}
	if total == 0 {
		t.Fatal("expected at least one latency observation")
	}
}

func TestMetricsDisabledSnapshotsEmpty(t *testing.T) {
	engine, store, _ := newTestEngine(t, testConfig())
	ident := seedIdentity(t, store, "member-1", "ext-1001")

	if _, err := engine.Issue(context.Background(), ident); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	snapshot := engine.MetricsSnapshot()
	if len(snapshot.Counters) != 0 || len(snapshot.Histograms) != 0 {
		t.Fatalf("expected empty snapshot with metrics disabled, got %+v", snapshot)
	}
}

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricValidateSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricValidateSuccess); got != workers*perWorker {
		t.Fatalf("expected %d increments, got %d", workers*perWorker, got)
	}
}

func TestBucketIndexBounds(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{5 * time.Millisecond, 0},
		{6 * time.Millisecond, 1},
		{25 * time.Millisecond, 2},
		{100 * time.Millisecond, 4},
		{time.Second, 7},
		{time.Hour, 7},
	}
	for _, tc := range cases {
		if got := bucketIndex(tc.d); got != tc.want {
			t.Errorf("bucketIndex(%v) = %d, want %d", tc.d, got, tc.want)
		}
	}
}
