// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики
//
// Логгер и метрики передаются в компоненты через их Config,
// глобальные синглтоны не используются.
package telemetry
