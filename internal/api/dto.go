package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/dspreview/internal/domain"
)

// queueTimeLayout — формат created_at в /queue: UTC, секунды, суффикс Z.
const queueTimeLayout = "2006-01-02T15:04:05Z"

// QueueResponse — ответ /queue.
type QueueResponse struct {
	Datasets  map[string]int `json:"datasets"`
	Splits    map[string]int `json:"splits"`
	CreatedAt string         `json:"created_at"`
}

// QueueFromDomain строит ответ /queue. Нулевые статусы не выводятся.
func QueueFromDomain(stats domain.QueueStats) QueueResponse {
	return QueueResponse{
		Datasets:  sectionCounts(stats.ForType(queueSections["datasets"])),
		Splits:    sectionCounts(stats.ForType(queueSections["splits"])),
		CreatedAt: stats.CreatedAt.UTC().Format(queueTimeLayout),
	}
}

func sectionCounts(counts domain.StatusCounts) map[string]int {
	out := make(map[string]int, len(counts))
	for status, n := range counts {
		if n > 0 {
			out[string(status)] = n
		}
	}
	return out
}

// CreateJobRequest — запрос на постановку задачи.
type CreateJobRequest struct {
	JobType string `json:"job_type"`
	Dataset string `json:"dataset"`
	Config  string `json:"config,omitempty"`
	Split   string `json:"split,omitempty"`
}

// Key возвращает ключ задачи.
func (r CreateJobRequest) Key() domain.JobKey {
	return domain.JobKey{Type: r.JobType, Dataset: r.Dataset, Config: r.Config, Split: r.Split}
}

// JobResponse — ответ с задачей.
type JobResponse struct {
	ID         uuid.UUID  `json:"id"`
	JobType    string     `json:"job_type"`
	Dataset    string     `json:"dataset"`
	Config     string     `json:"config,omitempty"`
	Split      string     `json:"split,omitempty"`
	Status     string     `json:"status"`
	WorkerID   string     `json:"worker_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// JobFromDomain конвертирует domain.Job в JobResponse.
func JobFromDomain(j domain.Job) JobResponse {
	return JobResponse{
		ID:         j.ID,
		JobType:    j.Type,
		Dataset:    j.Dataset,
		Config:     j.Config,
		Split:      j.Split,
		Status:     string(j.Status),
		WorkerID:   j.WorkerID,
		CreatedAt:  j.CreatedAt,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
	}
}
