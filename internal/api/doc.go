// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go       — Handler с DI (хранилище, реестр типов задач, logger)
//   - routes.go        — регистрация маршрутов
//   - middleware.go    — recovery, logging, metrics
//   - response.go      — JSON-ответы и ошибки
//   - dto.go           — Data Transfer Objects
//   - health_handler.go — /healthcheck
//   - queue_handler.go — /queue (статистика очереди)
//   - cache_handler.go — чтение кэша: /splits, /first-rows
//   - job_handler.go   — администрирование задач: /jobs
//
// Кэш читается только через API: промах ставит задачу в очередь
// и отвечает ResponseNotReady.
package api
