package worker

import "errors"

// Ошибки воркера.
var (
	// ErrNoJobTypes — воркеру не назначено ни одного типа задач.
	ErrNoJobTypes = errors.New("no job types to process")

	// ErrWorkerStopped — воркер остановлен.
	ErrWorkerStopped = errors.New("worker stopped")

	// ErrLeaseLost — задача больше не принадлежит воркеру (sweeper
	// снял её по истечении lease). Результат в кэш не пишется.
	ErrLeaseLost = errors.New("job lease lost")
)
