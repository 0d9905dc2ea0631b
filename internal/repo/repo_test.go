package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/dspreview/internal/domain"
)

// Тесты против живого Postgres. Запускаются только при заданном TEST_DB_URL.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_URL")
	if dsn == "" {
		t.Skip("TEST_DB_URL not set")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn, 16)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE jobs, cache_entries`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}

// --- JobRepo Tests ---

func TestJobRepo_EnqueueIdempotent(t *testing.T) {
	jobs := NewJobRepo(testPool(t))
	ctx := context.Background()
	key := domain.JobKey{Type: "/splits", Dataset: "squad"}

	first, created, err := jobs.Enqueue(ctx, key)
	if err != nil || !created {
		t.Fatalf("enqueue: created=%v err=%v", created, err)
	}
	second, created, err := jobs.Enqueue(ctx, key)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if created || second.ID != first.ID {
		t.Errorf("duplicate enqueue created a second job")
	}
}

func TestJobRepo_ClaimExclusive(t *testing.T) {
	jobs := NewJobRepo(testPool(t))
	ctx := context.Background()

	const total = 30
	for i := 0; i < total; i++ {
		if _, _, err := jobs.Enqueue(ctx, domain.JobKey{Type: "/splits", Dataset: fmt.Sprintf("ds-%d", i)}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		claimed = map[uuid.UUID]int{}
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, err := jobs.Claim(ctx, "/splits", "w")
				if errors.Is(err, ErrEmptyQueue) {
					return
				}
				if err != nil {
					t.Errorf("claim: %v", err)
					return
				}
				mu.Lock()
				claimed[job.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(claimed) != total {
		t.Errorf("expected %d claims, got %d", total, len(claimed))
	}
	for id, n := range claimed {
		if n != 1 {
			t.Errorf("job %s claimed %d times", id, n)
		}
	}
}

func TestJobRepo_FinishTwice(t *testing.T) {
	jobs := NewJobRepo(testPool(t))
	ctx := context.Background()

	job, _, _ := jobs.Enqueue(ctx, domain.JobKey{Type: "/splits", Dataset: "squad"})
	if _, err := jobs.Claim(ctx, "/splits", "w"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := jobs.Finish(ctx, job.ID, domain.JobStatusSuccess); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := jobs.Finish(ctx, job.ID, domain.JobStatusSuccess); !errors.Is(err, ErrAlreadyFinished) {
		t.Errorf("expected ErrAlreadyFinished, got %v", err)
	}
}

func TestJobRepo_SweepStale(t *testing.T) {
	jobs := NewJobRepo(testPool(t))
	ctx := context.Background()
	key := domain.JobKey{Type: "/splits", Dataset: "squad"}

	job, _, _ := jobs.Enqueue(ctx, key)
	jobs.Claim(ctx, "/splits", "w")

	swept, err := jobs.SweepStale(ctx, time.Now().Add(time.Minute), true)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(swept) != 1 || swept[0].ID != job.ID {
		t.Fatalf("unexpected sweep result: %v", swept)
	}
	fresh, err := jobs.GetLive(ctx, key)
	if err != nil || fresh.Status != domain.JobStatusWaiting {
		t.Errorf("expected requeued waiting job, got %v, %v", fresh, err)
	}
}

// --- CacheRepo Tests ---

func TestCacheRepo_RoundTrip(t *testing.T) {
	cache := NewCacheRepo(testPool(t))
	ctx := context.Background()
	key := domain.JobKey{Type: "/splits", Dataset: "squad"}

	entry := &domain.CacheEntry{
		Key:       key,
		Version:   "2.0.0",
		Content:   json.RawMessage(`{"splits": []}`),
		CreatedAt: time.Now().UTC(),
	}
	if err := cache.Upsert(ctx, entry); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != "2.0.0" || got.IsError() {
		t.Errorf("unexpected entry: %+v", got)
	}

	var decoded map[string]any
	if err := json.Unmarshal(got.Content, &decoded); err != nil {
		t.Fatalf("content is not json: %v", err)
	}
}

// --- Encode Tests ---

func TestEncodeCacheEntry_ExactlyOne(t *testing.T) {
	both := &domain.CacheEntry{
		Content: json.RawMessage(`{}`),
		Error:   &domain.ErrorRecord{Code: "X", HTTPStatus: 500},
	}
	if _, _, err := EncodeCacheEntry(both); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for both, got %v", err)
	}
	if _, _, err := EncodeCacheEntry(&domain.CacheEntry{}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for neither, got %v", err)
	}

	content, errJSON, err := EncodeCacheEntry(&domain.CacheEntry{
		Error: &domain.ErrorRecord{Code: "EmptyDatasetError", HTTPStatus: 500, DiscloseCause: true},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if content != nil || errJSON == nil {
		t.Fatalf("expected only error column, got content=%s error=%s", content, errJSON)
	}

	var entry domain.CacheEntry
	if err := DecodeCacheEntry(&entry, content, errJSON); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry.Error == nil || entry.Error.Code != "EmptyDatasetError" || !entry.Error.DiscloseCause {
		t.Errorf("unexpected decoded error: %+v", entry.Error)
	}
}
