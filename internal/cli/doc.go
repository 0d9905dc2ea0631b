// Package cli реализует инструмент командной строки dspreview.
//
// # Обзор
//
// CLI — клиентская утилита для dspreview API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для API. Инкапсулирует запросы, разбор ответов
// (data/list-обёртки, тело ошибки {"error","code"}) и ошибки (*APIError).
//
//	client := cli.NewClient("http://localhost:8080")
//	stats, err := client.QueueStats(ctx)
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: dspreview queue stats --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - queue: stats
//   - job: enqueue, show, list, cancel
//   - cache: splits, first-rows
//
// Каждая группа создаётся через фабричную функцию (NewQueueCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
