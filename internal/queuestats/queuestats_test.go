package queuestats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shaiso/dspreview/internal/domain"
	"github.com/shaiso/dspreview/internal/telemetry"
)

type fakeCounter struct {
	counts map[string]domain.StatusCounts
	err    error
	calls  int
}

func (f *fakeCounter) CountAll(context.Context) (map[string]domain.StatusCounts, error) {
	f.calls++
	return f.counts, f.err
}

// --- Snapshot Tests ---

func TestSnapshot(t *testing.T) {
	counter := &fakeCounter{counts: map[string]domain.StatusCounts{
		"/splits":     {domain.JobStatusWaiting: 2, domain.JobStatusSuccess: 1, domain.JobStatusError: 0},
		"/first-rows": {domain.JobStatusError: 1},
		"/empty":      {domain.JobStatusStarted: 0},
	}}
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	agg := New(counter, metrics)
	agg.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 45, 999, time.FixedZone("X", 3600)) }

	stats, err := agg.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if counter.calls != 1 {
		t.Errorf("expected a single aggregate query, got %d", counter.calls)
	}
	splits := stats.ForType("/splits")
	if len(splits) != 2 || splits[domain.JobStatusWaiting] != 2 || splits[domain.JobStatusSuccess] != 1 {
		t.Errorf("unexpected /splits counts: %v", splits)
	}
	if _, ok := stats.Counts["/empty"]; ok {
		t.Error("job types with only zero counts should be dropped")
	}
	if want := time.Date(2024, 3, 1, 11, 30, 45, 0, time.UTC); !stats.CreatedAt.Equal(want) || stats.CreatedAt.Location() != time.UTC {
		t.Errorf("expected %v, got %v", want, stats.CreatedAt)
	}
	if got := testutil.ToFloat64(metrics.QueueJobs.WithLabelValues("/first-rows", "error")); got != 1 {
		t.Errorf("expected gauge 1, got %v", got)
	}
}

func TestSnapshot_Error(t *testing.T) {
	agg := New(&fakeCounter{err: errors.New("db down")}, nil)

	if _, err := agg.Snapshot(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestSnapshot_EmptyQueue(t *testing.T) {
	agg := New(&fakeCounter{counts: map[string]domain.StatusCounts{}}, nil)

	stats, err := agg.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats.ForType("/splits")) != 0 {
		t.Error("expected empty counts")
	}
}
