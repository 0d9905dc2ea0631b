package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/dspreview/internal/domain"
)

const jobColumns = `id, job_type, dataset, config, split, status, worker_id, created_at, started_at, finished_at`

// enqueueAttempts — сколько раз Enqueue повторяет insert-or-select,
// если существующая задача завершилась между двумя запросами.
const enqueueAttempts = 3

// JobRepo — очередь задач поверх Postgres.
//
// Атомарность обеспечивается самой БД:
//   - Enqueue — INSERT ... ON CONFLICT по частичному уникальному индексу
//   - Claim — UPDATE по подзапросу с FOR UPDATE SKIP LOCKED
//   - Finish — условный UPDATE WHERE status = 'started'
type JobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepo создаёт новый JobRepo.
func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

// JobFilter — параметры фильтрации задач.
type JobFilter struct {
	Type   string
	Status domain.JobStatus
	Limit  int
}

// Enqueue ставит задачу в очередь.
//
// Если для ключа уже есть waiting/started задача, новая не создаётся:
// возвращается существующая и created=false.
func (r *JobRepo) Enqueue(ctx context.Context, key domain.JobKey) (*domain.Job, bool, error) {
	for i := 0; i < enqueueAttempts; i++ {
		job := domain.NewJob(key)

		inserted, err := r.scanJob(r.pool.QueryRow(ctx, `
			INSERT INTO jobs (id, job_type, dataset, config, split, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (job_type, dataset, config, split) WHERE status IN ('waiting', 'started')
			DO NOTHING
			RETURNING `+jobColumns,
			job.ID, key.Type, key.Dataset, key.Config, key.Split, job.Status, job.CreatedAt,
		))
		if err == nil {
			return inserted, true, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, false, fmt.Errorf("insert job: %w", err)
		}

		existing, err := r.GetLive(ctx, key)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, false, err
		}
		// Существующая задача завершилась между INSERT и SELECT — пробуем снова.
	}
	return nil, false, fmt.Errorf("enqueue %s: %w", key, ErrInvalidState)
}

// GetLive возвращает незавершённую задачу для ключа.
func (r *JobRepo) GetLive(ctx context.Context, key domain.JobKey) (*domain.Job, error) {
	return r.scanJob(r.pool.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE job_type = $1 AND dataset = $2 AND config = $3 AND split = $4
		  AND status IN ('waiting', 'started')
	`, key.Type, key.Dataset, key.Config, key.Split))
}

// GetByID возвращает задачу по ID.
func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	return r.scanJob(r.pool.QueryRow(ctx, `
		SELECT `+jobColumns+` FROM jobs WHERE id = $1
	`, id))
}

// Claim атомарно захватывает самую старую waiting-задачу типа jobType.
//
// Порядок — FIFO по created_at, при равенстве — по порядку вставки.
// Конкурентные вызовы никогда не возвращают одну и ту же задачу:
// SKIP LOCKED пропускает строки, уже захваченные другой транзакцией.
func (r *JobRepo) Claim(ctx context.Context, jobType, workerID string) (*domain.Job, error) {
	job, err := r.scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs
		SET status = 'started', started_at = $2, worker_id = $3
		WHERE seq = (
			SELECT seq FROM jobs
			WHERE job_type = $1 AND status = 'waiting'
			ORDER BY created_at ASC, seq ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns,
		jobType, time.Now().UTC(), nullString(workerID),
	))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrEmptyQueue
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// Finish переводит started-задачу в финальный статус.
//
// Повторный Finish возвращает ErrAlreadyFinished, Finish waiting-задачи —
// ErrInvalidState: задача не может перейти из waiting сразу в финальный статус.
func (r *JobRepo) Finish(ctx context.Context, id uuid.UUID, status domain.JobStatus) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	result, err := r.pool.Exec(ctx, `
		UPDATE jobs SET status = $2, finished_at = $3
		WHERE id = $1 AND status = 'started'
	`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	job, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job.IsFinished() {
		return fmt.Errorf("%w: %s is %s", ErrAlreadyFinished, id, job.Status)
	}
	return fmt.Errorf("%w: %s is %s", ErrInvalidState, id, job.Status)
}

// Cancel удаляет waiting-задачу. Started-задачу отменить нельзя.
func (r *JobRepo) Cancel(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1 AND status = 'waiting'`, id)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	job, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s", ErrInvalidState, id, job.Status)
}

// List возвращает задачи с фильтрацией, самые новые первыми.
func (r *JobRepo) List(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE ($1 = '' OR job_type = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, seq DESC
		LIMIT $3
	`, filter.Type, string(filter.Status), limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := r.scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// CountByStatus возвращает количество задач типа jobType по статусам.
func (r *JobRepo) CountByStatus(ctx context.Context, jobType string) (domain.StatusCounts, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM jobs WHERE job_type = $1 GROUP BY status
	`, jobType)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := domain.StatusCounts{}
	for rows.Next() {
		var status domain.JobStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CountAll возвращает количество задач по типам и статусам одной
// группирующей агрегацией.
func (r *JobRepo) CountAll(ctx context.Context) (map[string]domain.StatusCounts, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT job_type, status, COUNT(*) FROM jobs GROUP BY job_type, status
	`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := map[string]domain.StatusCounts{}
	for rows.Next() {
		var jobType string
		var status domain.JobStatus
		var n int
		if err := rows.Scan(&jobType, &status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		if counts[jobType] == nil {
			counts[jobType] = domain.StatusCounts{}
		}
		counts[jobType][status] = n
	}
	return counts, rows.Err()
}

// SweepStale завершает с ошибкой started-задачи, захваченные раньше cutoff
// (воркер, скорее всего, умер). При requeue для каждого ключа в той же
// транзакции ставится новая waiting-задача.
func (r *JobRepo) SweepStale(ctx context.Context, cutoff time.Time, requeue bool) ([]domain.Job, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		UPDATE jobs SET status = 'error', finished_at = $2
		WHERE status = 'started' AND started_at < $1
		RETURNING `+jobColumns,
		cutoff, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("sweep stale jobs: %w", err)
	}

	var swept []domain.Job
	for rows.Next() {
		job, err := r.scanJob(rows)
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
			_, err := tx.Exec(ctx, `
				INSERT INTO jobs (id, job_type, dataset, config, split, status, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (job_type, dataset, config, split) WHERE status IN ('waiting', 'started')
				DO NOTHING
			`, job.ID, job.Type, job.Dataset, job.Config, job.Split, job.Status, job.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("requeue %s: %w", old.Key(), err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return swept, nil
}

// --- Helpers ---

// scanJob сканирует одну строку в Job. pgx.Row и pgx.Rows оба подходят.
func (r *JobRepo) scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var workerID *string

	err := row.Scan(
		&job.ID,
		&job.Type,
		&job.Dataset,
		&job.Config,
		&job.Split,
		&job.Status,
		&workerID,
		&job.CreatedAt,
		&job.StartedAt,
		&job.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	if workerID != nil {
		job.WorkerID = *workerID
	}
	return &job, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
