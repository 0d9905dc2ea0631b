package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/dspreview/internal/domain"
	"github.com/shaiso/dspreview/internal/repo"
)

const jobColumns = `id, job_type, dataset, config, split, status, worker_id, created_at, started_at, finished_at`

const enqueueAttempts = 3

// JobRepo — очередь задач поверх SQLite.
type JobRepo struct {
	db *sql.DB
}

// NewJobRepo создаёт новый JobRepo.
func NewJobRepo(db *sql.DB) *JobRepo {
	return &JobRepo{db: db}
}

// rowScanner — общее у *sql.Row и *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Enqueue ставит задачу в очередь; дубликат незавершённой задачи не создаётся.
func (r *JobRepo) Enqueue(ctx context.Context, key domain.JobKey) (*domain.Job, bool, error) {
	for i := 0; i < enqueueAttempts; i++ {
		job := domain.NewJob(key)

		inserted, err := scanJob(r.db.QueryRowContext(ctx, `
			INSERT INTO jobs (id, job_type, dataset, config, split, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
			RETURNING `+jobColumns,
			job.ID.String(), key.Type, key.Dataset, key.Config, key.Split,
			string(job.Status), formatTime(job.CreatedAt),
		))
		if err == nil {
			return inserted, true, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, false, fmt.Errorf("insert job: %w", err)
		}

		existing, err := r.GetLive(ctx, key)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, false, err
		}
	}
	return nil, false, fmt.Errorf("enqueue %s: %w", key, repo.ErrInvalidState)
}

// GetLive возвращает незавершённую задачу для ключа.
func (r *JobRepo) GetLive(ctx context.Context, key domain.JobKey) (*domain.Job, error) {
	return scanJob(r.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE job_type = ? AND dataset = ? AND config = ? AND split = ?
		  AND status IN ('waiting', 'started')
	`, key.Type, key.Dataset, key.Config, key.Split))
}

// GetByID возвращает задачу по ID.
func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	return scanJob(r.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM jobs WHERE id = ?
	`, id.String()))
}

// Claim атомарно захватывает самую старую waiting-задачу типа jobType.
func (r *JobRepo) Claim(ctx context.Context, jobType, workerID string) (*domain.Job, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx, `
		UPDATE jobs
		SET status = 'started', started_at = ?, worker_id = ?
		WHERE seq = (
			SELECT seq FROM jobs
			WHERE job_type = ? AND status = 'waiting'
			ORDER BY created_at ASC, seq ASC
			LIMIT 1
		)
		RETURNING `+jobColumns,
		formatTime(time.Now()), nullString(workerID), jobType,
	))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, repo.ErrEmptyQueue
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// Finish переводит started-задачу в финальный статус.
func (r *JobRepo) Finish(ctx context.Context, id uuid.UUID, status domain.JobStatus) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: %s", repo.ErrInvalidStatus, status)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, finished_at = ?
		WHERE id = ? AND status = 'started'
	`, string(status), formatTime(time.Now()), id.String())
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 1 {
		return nil
	}

	job, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job.IsFinished() {
		return fmt.Errorf("%w: %s is %s", repo.ErrAlreadyFinished, id, job.Status)
	}
	return fmt.Errorf("%w: %s is %s", repo.ErrInvalidState, id, job.Status)
}

// Cancel удаляет waiting-задачу.
func (r *JobRepo) Cancel(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ? AND status = 'waiting'`, id.String())
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 1 {
		return nil
	}

	job, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s", repo.ErrInvalidState, id, job.Status)
}

// List возвращает задачи с фильтрацией, самые новые первыми.
func (r *JobRepo) List(ctx context.Context, filter repo.JobFilter) ([]domain.Job, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE (?1 = '' OR job_type = ?1)
		  AND (?2 = '' OR status = ?2)
		ORDER BY created_at DESC, seq DESC
		LIMIT ?3
	`, filter.Type, string(filter.Status), limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// CountByStatus возвращает количество задач типа jobType по статусам.
func (r *JobRepo) CountByStatus(ctx context.Context, jobType string) (domain.StatusCounts, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM jobs WHERE job_type = ? GROUP BY status
	`, jobType)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := domain.StatusCounts{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[domain.JobStatus(status)] = n
	}
	return counts, rows.Err()
}

// CountAll возвращает количество задач по типам и статусам.
func (r *JobRepo) CountAll(ctx context.Context) (map[string]domain.StatusCounts, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT job_type, status, COUNT(*) FROM jobs GROUP BY job_type, status
	`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := map[string]domain.StatusCounts{}
	for rows.Next() {
		var jobType, status string
		var n int
		if err := rows.Scan(&jobType, &status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		if counts[jobType] == nil {
			counts[jobType] = domain.StatusCounts{}
		}
		counts[jobType][domain.JobStatus(status)] = n
	}
	return counts, rows.Err()
}

// SweepStale завершает с ошибкой started-задачи старше cutoff и, при
// requeue, ставит вместо них новые waiting-задачи.
func (r *JobRepo) SweepStale(ctx context.Context, cutoff time.Time, requeue bool) ([]domain.Job, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		UPDATE jobs SET status = 'error', finished_at = ?
		WHERE status = 'started' AND started_at < ?
		RETURNING `+jobColumns,
		formatTime(time.Now()), formatTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("sweep stale jobs: %w", err)
	}

	var swept []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		swept = append(swept, *job)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sweep stale jobs: %w", err)
	}

	if requeue {
		for _, old := range swept {
			job := domain.NewJob(old.Key())
			_, err := tx.ExecContext(ctx, `
				INSERT INTO jobs (id, job_type, dataset, config, split, status, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT DO NOTHING
			`, job.ID.String(), job.Type, job.Dataset, job.Config, job.Split,
				string(job.Status), formatTime(job.CreatedAt))
			if err != nil {
				return nil, fmt.Errorf("requeue %s: %w", old.Key(), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return swept, nil
}

// --- Helpers ---

func scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	var id, status, createdAt string
	var workerID, startedAt, finishedAt sql.NullString

	err := row.Scan(
		&id,
		&job.Type,
		&job.Dataset,
		&job.Config,
		&job.Split,
		&status,
		&workerID,
		&createdAt,
		&startedAt,
		&finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if job.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse job id: %w", err)
	}
	job.Status = domain.JobStatus(status)
	job.WorkerID = workerID.String
	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if job.StartedAt, err = parseNullTime(startedAt); err != nil {
		return nil, err
	}
	if job.FinishedAt, err = parseNullTime(finishedAt); err != nil {
		return nil, err
	}
	return &job, nil
}
