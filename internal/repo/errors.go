package repo

import "errors"

// Общие ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState — операция невозможна в текущем состоянии.
	ErrInvalidState = errors.New("invalid state")

	// ErrAlreadyFinished — повторный finish уже завершённой задачи.
	// Это ошибка логики воркера, а не доменная ошибка.
	ErrAlreadyFinished = errors.New("job already finished")

	// ErrEmptyQueue — нет waiting-задач нужного типа.
	ErrEmptyQueue = errors.New("no waiting job")

	// ErrInvalidStatus — статус не подходит для операции.
	ErrInvalidStatus = errors.New("invalid job status")
)
