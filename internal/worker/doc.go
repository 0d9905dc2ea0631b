// Package worker выполняет задачи очереди.
//
// # Обзор
//
// Worker — generic runtime, параметризованный дескрипторами типов задач
// (jobs.Type). Для одной задачи он:
//
//  1. Захватывает её (claim: waiting → started)
//  2. Вызывает Compute типа задачи с токеном провайдера
//  3. Успех: читает прошлую запись кэша, считает новые сущности
//     (identity set нового результата минус прошлого), ставит на каждую
//     задачу зависимого типа и перезаписывает запись кэша
//  4. Ошибка: пишет в кэш ErrorRecord, чтобы повторные чтения не
//     запускали пересчёт
//  5. Переводит задачу в success или error
//
// Ошибки провайдера переводятся в коды apperr внутри Compute;
// неклассифицированные ошибки и паники становятся UnexpectedError.
//
// Ошибки самого хранилища (очередь, кэш) не считаются результатом
// вычисления: обработка прерывается без finish, задача остаётся started,
// и её подберёт sweeper по истечении lease.
//
// # Источники работы
//
//   - Polling: раз в PollInterval воркер дренирует каждый свой тип задач
//   - RabbitMQ: сообщение job.waiting в очереди jobs.waiting.<тип>
//     будит воркер сразу (если задано соединение)
//
// Оба источника сходятся в ProcessNext, который держит мьютекс:
// один воркер выполняет одну задачу за раз.
//
//	w := worker.New(worker.Config{
//	    Jobs:     backend.Jobs,
//	    Cache:    backend.Cache,
//	    Registry: jobs.Builtin(provider, 100),
//	    Conn:     mqConn,
//	    Logger:   logger,
//	})
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
package worker
