// dspreview API — HTTP-слой над очередью и кэшем.
//
// API:
//   - Отдаёт закэшированные ответы (/splits, /first-rows)
//   - При промахе кэша ставит задачу и уведомляет воркеры через RabbitMQ
//   - Показывает статистику очереди (/queue)
//   - Администрирование задач (/jobs)
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

	"github.com/shaiso/dspreview/internal/api"
	"github.com/shaiso/dspreview/internal/config"
	"github.com/shaiso/dspreview/internal/jobs"
	"github.com/shaiso/dspreview/internal/mq"
	"github.com/shaiso/dspreview/internal/provider"
	"github.com/shaiso/dspreview/internal/storage"
	"github.com/shaiso/dspreview/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		telemetry.SetupLogger("ERROR", "json").Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting dspreview-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Хранилище
	backend, err := storage.Open(ctx, storage.Config{
		Driver:     cfg.Store.Driver,
		DSN:        cfg.Store.DSN,
		SQLitePath: cfg.Store.SQLitePath,
		MaxConns:   10,
	})
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer backend.Close()
	logger.Info("store connected", "driver", backend.Driver)

	// Реестр типов задач. Провайдер API не вызывает, но дескрипторы
	// нужны для маршрутов и валидации ключей.
	registry := jobs.Builtin(provider.NewHTTPProvider(cfg.Provider.URL, nil), cfg.Provider.FirstRowsMax)

	// RabbitMQ (опционально)
	var notifier api.Notifier
	if cfg.RabbitMQ.URL != "" {
		conn, err := mq.NewConnection(cfg.RabbitMQ.URL, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, workers will rely on polling", "error", err)
		} else {
			defer conn.Close()
			if err := mq.SetupTopology(conn, registry.Names()); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}
			notifier = mq.NewPublisher(conn, logger)
			logger.Info("RabbitMQ connected")
		}
	}

	// Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	handler := api.NewHandler(api.Config{
		Store:       backend,
		Jobs:        backend.Jobs,
		Cache:       backend.Cache,
		Registry:    registry,
		Notifier:    notifier,
		MaxAgeShort: cfg.API.MaxAgeShort,
		MaxAgeLong:  cfg.API.MaxAgeLong,
		Metrics:     metrics,
		Logger:      logger,
	})

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	handler.RegisterRoutes(mux)

	addr := ":" + cfg.API.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
