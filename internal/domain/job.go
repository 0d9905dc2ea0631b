package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobKey — identity key задачи и записи кэша.
//
// Config и Split пустые, если тип задачи работает на уровне датасета.
// В один момент времени для одного ключа существует не более одной
// незавершённой (waiting или started) задачи.
type JobKey struct {
	// Type — тип задачи, например "/splits".
	Type string `json:"job_type"`

	// Dataset — имя датасета, возможно с namespace: "user/dataset".
	Dataset string `json:"dataset"`

	// Config — имя конфигурации (опционально).
	Config string `json:"config,omitempty"`

	// Split — имя split (опционально).
	Split string `json:"split,omitempty"`
}

// String возвращает ключ в виде "type dataset[/config[/split]]" для логов.
func (k JobKey) String() string {
	s := k.Type + " " + k.Dataset
	if k.Config != "" {
		s += "/" + k.Config
	}
	if k.Split != "" {
		s += "/" + k.Split
	}
	return s
}

// Job — единица запланированной работы.
//
// Job создаётся вызовом enqueue (внешний триггер или diff-шаг воркера).
// Переходы статусов выполняются только операциями очереди.
// Завершённые задачи не удаляются: они нужны для статистики и аудита.
type Job struct {
	// ID — уникальный идентификатор задачи.
	ID uuid.UUID `json:"id"`

	JobKey

	// Status — текущий статус.
	Status JobStatus `json:"status"`

	// WorkerID — идентификатор воркера, захватившего задачу.
	WorkerID string `json:"worker_id,omitempty"`

	// CreatedAt — время постановки в очередь.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt — время захвата воркером.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewJob создаёт waiting-задачу для ключа.
func NewJob(key JobKey) *Job {
	return &Job{
		ID:        uuid.New(),
		JobKey:    key,
		Status:    JobStatusWaiting,
		CreatedAt: time.Now().UTC(),
	}
}

// Key возвращает identity key задачи.
func (j *Job) Key() JobKey {
	return j.JobKey
}

// IsFinished возвращает true, если задача завершена.
func (j *Job) IsFinished() bool {
	return j.Status.IsTerminal()
}

// Duration возвращает продолжительность выполнения.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}
