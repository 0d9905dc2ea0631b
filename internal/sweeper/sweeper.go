// Package sweeper закрывает started-задачи, чей воркер пропал.
//
// Задача считается брошенной, если started_at старше Lease. Такая
// задача переводится в error и, при Requeue, вместо неё ставится новая
// waiting-задача с тем же ключом (в одной транзакции). Тик запускается
// по cron-расписанию (robfig/cron), по умолчанию "@every 5m".
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shaiso/dspreview/internal/domain"
	"github.com/shaiso/dspreview/internal/telemetry"
)

// Значения по умолчанию.
const (
	DefaultLease    = 30 * time.Minute
	DefaultSchedule = "@every 5m"
)

// Store — операции очереди, нужные sweeper'у.
type Store interface {
	SweepStale(ctx context.Context, cutoff time.Time, requeue bool) ([]domain.Job, error)
	GetLive(ctx context.Context, key domain.JobKey) (*domain.Job, error)
}

// Notifier сообщает о новых waiting-задачах.
type Notifier interface {
	NotifyWaiting(ctx context.Context, job *domain.Job) error
}

// Sweeper — периодическая проверка lease.
type Sweeper struct {
	jobs     Store
	notifier Notifier
	lease    time.Duration
	requeue  bool
	schedule string
	metrics  *telemetry.Metrics
	logger   *slog.Logger

	cron *cron.Cron
	now  func() time.Time
}

// Config — конфигурация Sweeper.
type Config struct {
	Jobs     Store
	Notifier Notifier // опционально

	Lease    time.Duration // default: 30m
	Requeue  bool
	Schedule string // cron-выражение или дескриптор (default: "@every 5m")

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// New создаёт Sweeper.
func New(cfg Config) *Sweeper {
	lease := cfg.Lease
	if lease <= 0 {
		lease = DefaultLease
	}
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = DefaultSchedule
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Sweeper{
		jobs:     cfg.Jobs,
		notifier: cfg.Notifier,
		lease:    lease,
		requeue:  cfg.Requeue,
		schedule: schedule,
		metrics:  cfg.Metrics,
		logger:   logger.With("component", "sweeper"),
		now:      time.Now,
	}
}

// ValidateSchedule проверяет cron-выражение.
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", expr, err)
	}
	return nil
}

// Start запускает тики по расписанию. Тик не стартует, пока идёт предыдущий.
func (s *Sweeper) Start(ctx context.Context) error {
	cl := cronLogger{s.logger}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	_, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.Tick(ctx); err != nil {
			s.logger.Error("sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sweeper %q: %w", s.schedule, err)
	}

	s.logger.Info("sweeper started", "schedule", s.schedule, "lease", s.lease, "requeue", s.requeue)
	s.cron.Start()
	return nil
}

// Stop останавливает расписание и ждёт текущий тик.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("sweeper stopped")
}

// Tick выполняет одну проверку и возвращает просроченные задачи.
func (s *Sweeper) Tick(ctx context.Context) ([]domain.Job, error) {
	cutoff := s.now().Add(-s.lease)

	swept, err := s.jobs.SweepStale(ctx, cutoff, s.requeue)
	if err != nil {
		return nil, fmt.Errorf("sweep stale jobs: %w", err)
	}
	if len(swept) == 0 {
		return nil, nil
	}
	s.metrics.ObserveSweep(len(swept))

	for i := range swept {
		job := &swept[i]
		s.logger.Warn("job lease expired",
			"job_id", job.ID,
			"job_type", job.Type,
			"dataset", job.Dataset,
			"worker_id", job.WorkerID,
			"started_at", job.StartedAt,
		)
		if s.requeue {
			s.notifyRequeued(ctx, job.Key())
		}
	}
	return swept, nil
}

func (s *Sweeper) notifyRequeued(ctx context.Context, key domain.JobKey) {
	if s.notifier == nil {
		return
	}
	fresh, err := s.jobs.GetLive(ctx, key)
	if err != nil {
		s.logger.Debug("requeued job not found", "key", key.String(), "error", err)
		return
	}
	if err := s.notifier.NotifyWaiting(ctx, fresh); err != nil {
		s.logger.Warn("failed to publish job.waiting", "job_id", fresh.ID, "error", err)
	}
}

// cronLogger адаптирует slog к cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
