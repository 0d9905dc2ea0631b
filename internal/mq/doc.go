// Package mq — уведомления о новых waiting-задачах через RabbitMQ.
//
// Сообщения — только сигнал "проснись": источник истины очередь задач
// в БД. Потерянное сообщение подхватит polling воркера, лишнее
// сообщение ничего не сломает (claim просто вернёт пустую очередь).
//
// Структура:
//   - connection.go — соединение с reconnect
//   - topology.go   — exchange dspreview.jobs и очередь на каждый тип задачи
//   - publisher.go  — публикация job.waiting
//   - consumer.go   — потребление
//
// Маршрутизация: routing key = имя типа задачи ("/splits"),
// очередь = jobs.waiting.<тип без слэшей> ("jobs.waiting.splits").
package mq
