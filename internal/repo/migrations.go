package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema — схема БД.
//
// Config/split хранятся как пустая строка вместо NULL: уникальный индекс считает
// NULL различными значениями, и дедупликация ключа бы не работала.
// jobs_live_key_idx гарантирует не более одной незавершённой задачи на ключ.
const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	seq         BIGSERIAL PRIMARY KEY,
	id          UUID        NOT NULL UNIQUE,
	job_type    TEXT        NOT NULL,
	dataset     TEXT        NOT NULL,
	config      TEXT        NOT NULL DEFAULT '',
	split       TEXT        NOT NULL DEFAULT '',
	status      TEXT        NOT NULL CHECK (status IN ('waiting', 'started', 'success', 'error')),
	worker_id   TEXT,
	created_at  TIMESTAMPTZ NOT NULL,
	started_at  TIMESTAMPTZ,
	finished_at TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS jobs_live_key_idx
	ON jobs (job_type, dataset, config, split)
	WHERE status IN ('waiting', 'started');

CREATE INDEX IF NOT EXISTS jobs_claim_idx
	ON jobs (job_type, status, created_at, seq);

CREATE TABLE IF NOT EXISTS cache_entries (
	job_type    TEXT        NOT NULL,
	dataset     TEXT        NOT NULL,
	config      TEXT        NOT NULL DEFAULT '',
	split       TEXT        NOT NULL DEFAULT '',
	version     TEXT        NOT NULL,
	content     JSONB,
	error       JSONB,
	http_status INTEGER     NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (job_type, dataset, config, split),
	CHECK ((content IS NULL) <> (error IS NULL))
);
`

// Migrate создаёт таблицы и индексы, если их ещё нет.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
