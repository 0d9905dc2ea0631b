// Package queuestats строит снимок состояния очереди: тип задачи →
// статус → количество.
//
// Снимок считается одним агрегирующим запросом (GROUP BY job_type,
// status) и ничего не пишет в очередь.
package queuestats

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/dspreview/internal/domain"
	"github.com/shaiso/dspreview/internal/telemetry"
)

// Counter — агрегирующий запрос к очереди.
type Counter interface {
	CountAll(ctx context.Context) (map[string]domain.StatusCounts, error)
}

// Aggregator строит снимки очереди.
type Aggregator struct {
	jobs    Counter
	metrics *telemetry.Metrics
	now     func() time.Time
}

// New создаёт Aggregator. metrics может быть nil.
func New(jobs Counter, metrics *telemetry.Metrics) *Aggregator {
	return &Aggregator{jobs: jobs, metrics: metrics, now: time.Now}
}

// Snapshot возвращает текущий снимок. CreatedAt — UTC с точностью до секунды.
func (a *Aggregator) Snapshot(ctx context.Context) (domain.QueueStats, error) {
	counts, err := a.jobs.CountAll(ctx)
	if err != nil {
		return domain.QueueStats{}, fmt.Errorf("count jobs: %w", err)
	}

	// Нулевые статусы не попадают в снимок.
	for jobType, byStatus := range counts {
		for status, n := range byStatus {
			if n == 0 {
				delete(byStatus, status)
			}
		}
		if len(byStatus) == 0 {
			delete(counts, jobType)
		}
	}

	stats := domain.QueueStats{
		Counts:    counts,
		CreatedAt: a.now().UTC().Truncate(time.Second),
	}
	a.metrics.ObserveQueue(stats)
	return stats, nil
}
