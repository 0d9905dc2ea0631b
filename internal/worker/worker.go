package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/dspreview/internal/domain"
	"github.com/shaiso/dspreview/internal/jobs"
	"github.com/shaiso/dspreview/internal/mq"
	"github.com/shaiso/dspreview/internal/storage"
	"github.com/shaiso/dspreview/internal/telemetry"
)

const (
	defaultPollInterval = 10 * time.Second

	// defaultJobTimeout ограничивает обработку одной задачи. Должен быть
	// меньше JOB_LEASE, иначе sweeper перезапустит ещё живую задачу.
	defaultJobTimeout = 10 * time.Minute
)

// Notifier сообщает о новых waiting-задачах (mq.Publisher).
type Notifier interface {
	NotifyWaiting(ctx context.Context, job *domain.Job) error
}

// Worker — generic runtime: захватывает задачи, выполняет дескриптор
// типа задачи, пишет результат в кэш и ставит downstream-задачи.
//
// Одновременно выполняется не больше одной задачи: claim и обработка
// идут под одним мьютексом, сколько бы источников сигналов ни было.
type Worker struct {
	jobs     storage.JobStore
	cache    storage.CacheStore
	registry *jobs.Registry
	jobTypes []string

	notifier Notifier
	conn     *mq.Connection

	id           string
	token        string
	pollInterval time.Duration
	jobTimeout   time.Duration

	metrics *telemetry.Metrics
	logger  *slog.Logger

	// mu сериализует claim+process.
	mu sync.Mutex

	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	Jobs     storage.JobStore
	Cache    storage.CacheStore
	Registry *jobs.Registry

	// JobTypes — какие типы обрабатывать (default: все из Registry).
	JobTypes []string

	// Notifier — опционально; уведомления о downstream-задачах.
	Notifier Notifier

	// Conn — опционально; без него воркер работает только на polling.
	Conn *mq.Connection

	// WorkerID — идентификатор экземпляра (default: случайный UUID).
	WorkerID string

	// Token — токен доступа к провайдеру.
	Token string

	PollInterval time.Duration

	// JobTimeout — предел обработки одной захваченной задачи (default: 10m).
	// Остановка воркера задачу не прерывает.
	JobTimeout time.Duration

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	jobTimeout := cfg.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = defaultJobTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	id := cfg.WorkerID
	if id == "" {
		id = uuid.NewString()
	}

	jobTypes := cfg.JobTypes
	if len(jobTypes) == 0 && cfg.Registry != nil {
		jobTypes = cfg.Registry.Names()
	}

	return &Worker{
		jobs:         cfg.Jobs,
		cache:        cfg.Cache,
		registry:     cfg.Registry,
		jobTypes:     jobTypes,
		notifier:     cfg.Notifier,
		conn:         cfg.Conn,
		id:           id,
		token:        cfg.Token,
		pollInterval: pollInterval,
		jobTimeout:   jobTimeout,
		metrics:      cfg.Metrics,
		logger:       logger.With("worker_id", id),
	}
}

// ID возвращает идентификатор воркера.
func (w *Worker) ID() string {
	return w.id
}

// Start запускает polling и, если есть соединение с RabbitMQ, consumer'ы.
func (w *Worker) Start(ctx context.Context) error {
	if len(w.jobTypes) == 0 {
		return ErrNoJobTypes
	}
	for _, jobType := range w.jobTypes {
		if _, err := w.registry.Get(jobType); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"job_types", w.jobTypes,
		"poll_interval", w.pollInterval,
		"mq", w.conn != nil,
	)

	if w.conn != nil {
		for _, jobType := range w.jobTypes {
			consumer := mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
				Queue:   mq.QueueFor(jobType),
				Handler: w.handleJobWaiting,
			})
			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					w.logger.Error("consumer error", "job_type", jobType, "error", err)
				}
			}()
		}
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pollLoop(ctx)
	}()

	return nil
}

// Stop останавливает Worker и ждёт завершения текущей задачи.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")
	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

// pollLoop — периодический обход всех типов задач.
func (w *Worker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Первый проход сразу: задачи могли накопиться, пока воркер был выключен.
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	for _, jobType := range w.jobTypes {
		n, err := w.Drain(ctx, jobType)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrWorkerStopped) {
			w.logger.Error("poll failed", "job_type", jobType, "error", err)
		}
		if n > 0 {
			w.logger.Debug("poll processed jobs", "job_type", jobType, "count", n)
		}
	}
}

// Drain обрабатывает waiting-задачи типа jobType, пока очередь не опустеет.
func (w *Worker) Drain(ctx context.Context, jobType string) (int, error) {
	processed := 0
	for {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if w.IsStopped() {
			return processed, ErrWorkerStopped
		}

		ok, err := w.ProcessNext(ctx, jobType)
		if err != nil {
			return processed, err
		}
		if !ok {
			return processed, nil
		}
		processed++
	}
}

// ProcessNext захватывает и обрабатывает одну задачу типа jobType.
// Возвращает false, если waiting-задач нет.
//
// Отмена ctx прерывает только захват: захваченная задача доводится
// до конца в пределах jobTimeout.
func (w *Worker) ProcessNext(ctx context.Context, jobType string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	job, err := w.jobs.Claim(ctx, jobType, w.id)
	if err != nil {
		if isEmptyQueue(err) {
			return false, nil
		}
		return false, fmt.Errorf("claim %s: %w", jobType, err)
	}

	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.jobTimeout)
	defer cancel()

	if _, err := w.processJob(jobCtx, job); err != nil {
		return true, err
	}
	return true, nil
}
