package mq

import (
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeJobs — direct exchange для уведомлений о задачах.
const ExchangeJobs = "dspreview.jobs"

// queuePrefix — префикс очередей уведомлений.
const queuePrefix = "jobs.waiting"

// QueueFor возвращает имя очереди уведомлений для типа задачи:
// "/first-rows" → "jobs.waiting.first-rows".
func QueueFor(jobType string) string {
	parts := strings.FieldsFunc(jobType, func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return queuePrefix
	}
	return queuePrefix + "." + strings.Join(parts, ".")
}

// SetupTopology объявляет exchange и очереди для типов задач.
// Операции идемпотентны, вызывать можно из каждого процесса.
func SetupTopology(conn *Connection, jobTypes []string) error {
	return conn.WithChannel(func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			ExchangeJobs, // name
			"direct",     // type
			true,         // durable
			false,        // auto-deleted
			false,        // internal
			false,        // no-wait
			nil,          // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeJobs, err)
		}

		for _, jobType := range jobTypes {
			queue := QueueFor(jobType)
			if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare queue %s: %w", queue, err)
			}
			if err := ch.QueueBind(queue, jobType, ExchangeJobs, false, nil); err != nil {
				return fmt.Errorf("bind queue %s: %w", queue, err)
			}
		}
		return nil
	})
}

// TopologyInfo описывает топологию для логов.
func TopologyInfo(jobTypes []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (direct)\n", ExchangeJobs)
	for i, jobType := range jobTypes {
		branch := "├──"
		if i == len(jobTypes)-1 {
			branch = "└──"
		}
		fmt.Fprintf(&b, "%s %s [routing: %s]\n", branch, QueueFor(jobType), jobType)
	}
	return b.String()
}
