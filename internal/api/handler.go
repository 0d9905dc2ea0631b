package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/dspreview/internal/domain"
	"github.com/shaiso/dspreview/internal/jobs"
	"github.com/shaiso/dspreview/internal/queuestats"
	"github.com/shaiso/dspreview/internal/storage"
	"github.com/shaiso/dspreview/internal/telemetry"
)

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Notifier сообщает о новых waiting-задачах.
type Notifier interface {
	NotifyWaiting(ctx context.Context, job *domain.Job) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	store    Pinger
	jobs     storage.JobStore
	cache    storage.CacheStore
	stats    *queuestats.Aggregator
	registry *jobs.Registry
	notifier Notifier

	maxAgeShort time.Duration
	maxAgeLong  time.Duration

	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Store    Pinger
	Jobs     storage.JobStore
	Cache    storage.CacheStore
	Registry *jobs.Registry

	// Notifier — опционально (RabbitMQ).
	Notifier Notifier

	MaxAgeShort time.Duration
	MaxAgeLong  time.Duration

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:       cfg.Store,
		jobs:        cfg.Jobs,
		cache:       cfg.Cache,
		stats:       queuestats.New(cfg.Jobs, cfg.Metrics),
		registry:    cfg.Registry,
		notifier:    cfg.Notifier,
		maxAgeShort: cfg.MaxAgeShort,
		maxAgeLong:  cfg.MaxAgeLong,
		metrics:     cfg.Metrics,
		logger:      logger,
	}
}

// enqueue ставит задачу и публикует уведомление, если задача новая.
func (h *Handler) enqueue(ctx context.Context, key domain.JobKey) (*domain.Job, bool, error) {
	job, created, err := h.jobs.Enqueue(ctx, key)
	if err != nil {
		return nil, false, err
	}
	h.metrics.ObserveEnqueue(key.Type, created)

	if created && h.notifier != nil {
		if err := h.notifier.NotifyWaiting(ctx, job); err != nil {
			h.logger.Warn("failed to publish job.waiting", "job_id", job.ID, "error", err)
		}
	}
	return job, created, nil
}
