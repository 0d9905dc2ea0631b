package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout — фиксированная ширина, чтобы сортировка строк совпадала
// с сортировкой времени. Все времена хранятся в UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	job_type    TEXT NOT NULL,
	dataset     TEXT NOT NULL,
	config      TEXT NOT NULL DEFAULT '',
	split       TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL CHECK (status IN ('waiting', 'started', 'success', 'error')),
	worker_id   TEXT,
	created_at  TEXT NOT NULL,
	started_at  TEXT,
	finished_at TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS jobs_live_key_idx
	ON jobs (job_type, dataset, config, split)
	WHERE status IN ('waiting', 'started');

CREATE INDEX IF NOT EXISTS jobs_claim_idx
	ON jobs (job_type, status, created_at, seq);

CREATE TABLE IF NOT EXISTS cache_entries (
	job_type    TEXT NOT NULL,
	dataset     TEXT NOT NULL,
	config      TEXT NOT NULL DEFAULT '',
	split       TEXT NOT NULL DEFAULT '',
	version     TEXT NOT NULL,
	content     TEXT,
	error       TEXT,
	http_status INTEGER NOT NULL,
	created_at  TEXT NOT NULL,
	PRIMARY KEY (job_type, dataset, config, split),
	CHECK ((content IS NULL) <> (error IS NULL))
);
`

// Open открывает БД по пути или DSN и применяет схему.
//
// Для файловой БД включается WAL. Для тестов удобен DSN вида
// "file:name?mode=memory&cache=shared".
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if !strings.Contains(dsn, "mode=memory") {
		if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate создаёт таблицы и индексы, если их ещё нет.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// --- Helpers ---

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
