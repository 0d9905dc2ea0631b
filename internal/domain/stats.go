package domain

import "time"

// StatusCounts — количество задач по статусам. Нулевые статусы отсутствуют.
type StatusCounts map[JobStatus]int

// QueueStats — снимок состояния очереди: job_type → status → count.
// Вычисляется на лету, не хранится.
type QueueStats struct {
	Counts    map[string]StatusCounts
	CreatedAt time.Time
}

// ForType возвращает счётчики для типа задачи (пустые, если задач нет).
func (s QueueStats) ForType(jobType string) StatusCounts {
	if c, ok := s.Counts[jobType]; ok {
		return c
	}
	return StatusCounts{}
}
