// dspreview Worker — вычисляет ответы кэша.
//
// Worker:
//   - Захватывает задачи из очереди (polling + уведомления RabbitMQ)
//   - Вызывает провайдер метаданных и пишет результат в кэш
//   - Ставит downstream-задачи для новых сущностей
//   - Периодически снимает зависшие задачи (sweeper)
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/dspreview/internal/config"
	"github.com/shaiso/dspreview/internal/jobs"
	"github.com/shaiso/dspreview/internal/mq"
	"github.com/shaiso/dspreview/internal/provider"
	"github.com/shaiso/dspreview/internal/queuestats"
	"github.com/shaiso/dspreview/internal/storage"
	"github.com/shaiso/dspreview/internal/sweeper"
	"github.com/shaiso/dspreview/internal/telemetry"
	"github.com/shaiso/dspreview/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		telemetry.SetupLogger("ERROR", "json").Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting dspreview-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	backend, err := storage.Open(ctx, storage.Config{
		Driver:     cfg.Store.Driver,
		DSN:        cfg.Store.DSN,
		SQLitePath: cfg.Store.SQLitePath,
		MaxConns:   5,
	})
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer backend.Close()
	logger.Info("store connected", "driver", backend.Driver)

	p := provider.NewHTTPProvider(cfg.Provider.URL, &http.Client{Timeout: 2 * time.Minute})
	registry := jobs.Builtin(p, cfg.Provider.FirstRowsMax)

	jobTypes := cfg.Worker.JobTypes
	if len(jobTypes) == 0 {
		jobTypes = registry.Names()
	}

	// RabbitMQ
	var (
		mqConn   *mq.Connection
		notifier worker.Notifier
	)
	if cfg.RabbitMQ.URL != "" {
		mqConn, err = mq.NewConnection(cfg.RabbitMQ.URL, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
			mqConn = nil
		} else {
			defer mqConn.Close()
			logger.Info("RabbitMQ connected")

			if err := mq.SetupTopology(mqConn, registry.Names()); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}
			notifier = mq.NewPublisher(mqConn, logger)
		}
	}

	// Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	w := worker.New(worker.Config{
		Jobs:         backend.Jobs,
		Cache:        backend.Cache,
		Registry:     registry,
		JobTypes:     jobTypes,
		Notifier:     notifier,
		Conn:         mqConn,
		Token:        cfg.Provider.Token,
		PollInterval: cfg.Worker.PollInterval,
		// Задача должна успеть закончиться до того, как sweeper сочтёт её зависшей.
		JobTimeout: cfg.Worker.JobLease / 2,
		Metrics:    metrics,
		Logger:     logger,
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// Sweeper зависших задач
	var sweepNotifier sweeper.Notifier
	if notifier != nil {
		sweepNotifier = notifier
	}
	sw := sweeper.New(sweeper.Config{
		Jobs:     backend.Jobs,
		Notifier: sweepNotifier,
		Lease:    cfg.Worker.JobLease,
		Requeue:  cfg.Worker.Requeue,
		Schedule: cfg.Worker.SweepSchedule,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err := sw.Start(ctx); err != nil {
		logger.Error("failed to start sweeper", "error", err)
		os.Exit(1)
	}

	// Gauge очереди обновляется вместе со sweeper'ом.
	stats := queuestats.New(backend.Jobs, metrics)

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, r *http.Request) {
		if err := backend.Ping(r.Context()); err != nil {
			http.Error(rw, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		if _, err := stats.Snapshot(r.Context()); err != nil {
			logger.Warn("queue snapshot failed", "error", err)
		}
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              ":" + cfg.Worker.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	sw.Stop()
	w.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	logger.Info("dspreview-worker stopped")
}
