package domain

// JobStatus — статус задачи в очереди.
//
// Жизненный цикл:
//
//	waiting → started → success
//	                  ↘ error
//
// Автоматического retry нет: error — финальный статус, повторное вычисление
// требует нового enqueue. Отменить (удалить) можно только waiting-задачу.
type JobStatus string

const (
	// JobStatusWaiting — задача в очереди, ожидает воркера.
	JobStatusWaiting JobStatus = "waiting"

	// JobStatusStarted — задача захвачена воркером и выполняется.
	JobStatusStarted JobStatus = "started"

	// JobStatusSuccess — задача завершена, результат записан в кэш.
	JobStatusSuccess JobStatus = "success"

	// JobStatusError — задача завершена с ошибкой (ошибка записана в кэш).
	JobStatusError JobStatus = "error"
)

// AllJobStatuses перечисляет статусы в порядке жизненного цикла.
var AllJobStatuses = []JobStatus{
	JobStatusWaiting,
	JobStatusStarted,
	JobStatusSuccess,
	JobStatusError,
}

// IsTerminal возвращает true, если статус финальный.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSuccess, JobStatusError:
		return true
	default:
		return false
	}
}

// IsValid проверяет, что статус входит в известный набор.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusWaiting, JobStatusStarted, JobStatusSuccess, JobStatusError:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление JobStatus.
func (s JobStatus) String() string {
	return string(s)
}
