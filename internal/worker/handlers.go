package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shaiso/dspreview/internal/apperr"
	"github.com/shaiso/dspreview/internal/domain"
	"github.com/shaiso/dspreview/internal/jobs"
	"github.com/shaiso/dspreview/internal/mq"
	"github.com/shaiso/dspreview/internal/repo"
	"github.com/shaiso/dspreview/internal/telemetry"
)

// handleJobWaiting обрабатывает уведомление job.waiting: дренирует тип задачи.
func (w *Worker) handleJobWaiting(ctx context.Context, msg *mq.Message) error {
	if msg.Type != mq.MessageTypeJobWaiting {
		w.logger.Warn("unexpected message type", "type", msg.Type)
		return nil
	}

	payload, err := mq.ParsePayload[mq.JobWaitingPayload](msg)
	if err != nil {
		return err
	}

	w.logger.Debug("received job.waiting", "job_id", payload.JobID, "job_type", payload.Key.Type)

	if _, err := w.Drain(ctx, payload.Key.Type); err != nil &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, ErrWorkerStopped) {
		// Сообщение — только сигнал; задача останется в БД для polling.
		w.logger.Error("drain after notification failed", "job_type", payload.Key.Type, "error", err)
	}
	return nil
}

// processJob доводит захваченную задачу до финального статуса.
//
//  1. compute (ошибки провайдера и паники → *apperr.Error)
//  2. успех: diff с прошлой записью, downstream-задачи, запись в кэш
//  3. ошибка: запись ErrorRecord в кэш
//  4. finish
//
// Ошибки хранилища прерывают обработку без finish: задача остаётся
// started до sweeper'а.
func (w *Worker) processJob(ctx context.Context, job *domain.Job) (domain.JobStatus, error) {
	logger := telemetry.WithJob(w.logger, job.ID.String(), job.Type, job.Dataset)
	logger.Info("job started", "config", job.Config, "split", job.Split)

	jt, err := w.registry.Get(job.Type)
	if err != nil {
		// Задача неизвестного типа не может быть вычислена этим воркером.
		return w.fail(ctx, job, jt, apperr.Unexpected(err))
	}

	content, err := compute(ctx, jt, jobs.Input{
		Dataset: job.Dataset,
		Config:  job.Config,
		Split:   job.Split,
		Token:   w.token,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("job %s interrupted: %w", job.ID, ctx.Err())
		}
		return w.fail(ctx, job, jt, apperr.From(err))
	}

	added, err := w.newEntities(ctx, jt, job.Key(), content)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return w.fail(ctx, job, jt, appErr)
		}
		return "", err
	}

	if err := w.enqueueDownstream(ctx, jt, added); err != nil {
		return "", err
	}

	if err := w.checkOwnership(ctx, job); err != nil {
		return "", err
	}

	entry := &domain.CacheEntry{
		Key:       job.Key(),
		Version:   jt.Version,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := w.cache.Upsert(ctx, entry); err != nil {
		return "", fmt.Errorf("write cache entry: %w", err)
	}
	w.metrics.ObserveCacheWrite(job.Type, false)

	if err := w.finish(ctx, job, domain.JobStatusSuccess); err != nil {
		return "", err
	}
	logger.Info("job succeeded", "new_entities", len(added))
	return domain.JobStatusSuccess, nil
}

// fail пишет ошибку в кэш и завершает задачу статусом error.
func (w *Worker) fail(ctx context.Context, job *domain.Job, jt jobs.Type, appErr *apperr.Error) (domain.JobStatus, error) {
	if err := w.checkOwnership(ctx, job); err != nil {
		return "", err
	}

	rec := appErr.Record()
	entry := &domain.CacheEntry{
		Key:       job.Key(),
		Version:   jt.Version,
		Error:     &rec,
		CreatedAt: time.Now().UTC(),
	}
	if err := w.cache.Upsert(ctx, entry); err != nil {
		return "", fmt.Errorf("write error entry: %w", err)
	}
	w.metrics.ObserveCacheWrite(job.Type, true)

	if err := w.finish(ctx, job, domain.JobStatusError); err != nil {
		return "", err
	}

	w.logger.Warn("job failed",
		"job_id", job.ID,
		"job_type", job.Type,
		"dataset", job.Dataset,
		"code", rec.Code,
		"error", appErr.Error(),
	)
	return domain.JobStatusError, nil
}

// checkOwnership проверяет перед записью в кэш, что задача всё ещё
// started и захвачена этим воркером. Между проверкой и записью остаётся
// окно; см. defaultJobTimeout.
func (w *Worker) checkOwnership(ctx context.Context, job *domain.Job) error {
	current, err := w.jobs.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("reload job %s: %w", job.ID, err)
	}
	if current.Status != domain.JobStatusStarted || current.WorkerID != w.id {
		w.logger.Warn("job lease lost, dropping result",
			"job_id", job.ID, "status", current.Status, "owner", current.WorkerID)
		return fmt.Errorf("job %s: %w", job.ID, ErrLeaseLost)
	}
	return nil
}

func (w *Worker) finish(ctx context.Context, job *domain.Job, status domain.JobStatus) error {
	if err := w.jobs.Finish(ctx, job.ID, status); err != nil {
		if errors.Is(err, repo.ErrAlreadyFinished) {
			w.logger.Error("double finish", "job_id", job.ID, "error", err)
		}
		return fmt.Errorf("finish job %s: %w", job.ID, err)
	}

	var d time.Duration
	if job.StartedAt != nil {
		d = time.Since(*job.StartedAt)
	}
	w.metrics.ObserveFinish(job.Type, status, d)
	return nil
}

// newEntities возвращает сущности нового результата, которых не было
// в прошлой записи кэша. Без прошлой записи — все сущности результата.
func (w *Worker) newEntities(ctx context.Context, jt jobs.Type, key domain.JobKey, content json.RawMessage) ([]domain.SplitFullName, error) {
	if jt.Entities == nil || jt.Downstream == "" {
		return nil, nil
	}

	current, err := jt.Entities(content)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}

	prior := domain.SplitSet{}
	entry, err := w.cache.Get(ctx, key)
	switch {
	case errors.Is(err, repo.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("read prior cache entry: %w", err)
	case !entry.IsError():
		if prior, err = jt.Entities(entry.Content); err != nil {
			w.logger.Warn("prior cache entry unreadable, treating as empty",
				"key", key.String(), "version", entry.Version, "error", err)
			prior = domain.SplitSet{}
		}
	}

	added := current.Difference(prior)
	sortSplits(added)
	return added, nil
}

// enqueueDownstream ставит задачу зависимого типа на каждую новую сущность.
func (w *Worker) enqueueDownstream(ctx context.Context, jt jobs.Type, added []domain.SplitFullName) error {
	if len(added) == 0 {
		return nil
	}
	dt, err := w.registry.Get(jt.Downstream)
	if err != nil {
		w.logger.Warn("downstream job type not registered", "job_type", jt.Downstream)
		return nil
	}

	created := 0
	for _, name := range added {
		job, isNew, err := w.jobs.Enqueue(ctx, dt.Key(name))
		if err != nil {
			return fmt.Errorf("enqueue downstream %s: %w", dt.Name, err)
		}
		w.metrics.ObserveEnqueue(dt.Name, isNew)
		if !isNew {
			continue
		}
		created++
		if w.notifier != nil {
			if err := w.notifier.NotifyWaiting(ctx, job); err != nil {
				w.logger.Warn("failed to publish job.waiting", "job_id", job.ID, "error", err)
			}
		}
	}
	w.metrics.ObserveDownstream(dt.Name, created)
	return nil
}

// compute вызывает стратегию типа задачи. Паника превращается в
// UnexpectedError.
func compute(ctx context.Context, jt jobs.Type, in jobs.Input) (content json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperr.Unexpected(fmt.Errorf("panic in %s compute: %v", jt.Name, r))
		}
	}()
	return jt.Compute(ctx, in)
}

func sortSplits(items []domain.SplitFullName) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Dataset != b.Dataset {
			return a.Dataset < b.Dataset
		}
		if a.Config != b.Config {
			return a.Config < b.Config
		}
		return a.Split < b.Split
	})
}

func isEmptyQueue(err error) bool {
	return errors.Is(err, repo.ErrEmptyQueue)
}
