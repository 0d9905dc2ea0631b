package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shaiso/dspreview/internal/domain"
	"github.com/shaiso/dspreview/internal/repo"
)

// CacheRepo — кэш результатов поверх SQLite.
type CacheRepo struct {
	db *sql.DB
}

// NewCacheRepo создаёт новый CacheRepo.
func NewCacheRepo(db *sql.DB) *CacheRepo {
	return &CacheRepo{db: db}
}

// Get возвращает запись кэша для ключа или repo.ErrNotFound.
func (r *CacheRepo) Get(ctx context.Context, key domain.JobKey) (*domain.CacheEntry, error) {
	var content, errJSON sql.NullString
	var createdAt string
	entry := domain.CacheEntry{Key: key}

	err := r.db.QueryRowContext(ctx, `
		SELECT version, content, error, created_at
		FROM cache_entries
		WHERE job_type = ? AND dataset = ? AND config = ? AND split = ?
	`, key.Type, key.Dataset, key.Config, key.Split).Scan(
		&entry.Version,
		&content,
		&errJSON,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}

	if entry.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if err := repo.DecodeCacheEntry(&entry, nullBytes(content), nullBytes(errJSON)); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Upsert записывает запись, безусловно замещая предыдущую.
func (r *CacheRepo) Upsert(ctx context.Context, entry *domain.CacheEntry) error {
	content, errJSON, err := repo.EncodeCacheEntry(entry)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO cache_entries (job_type, dataset, config, split, version, content, error, http_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (job_type, dataset, config, split) DO UPDATE
		SET version = excluded.version,
		    content = excluded.content,
		    error = excluded.error,
		    http_status = excluded.http_status,
		    created_at = excluded.created_at
	`,
		entry.Key.Type,
		entry.Key.Dataset,
		entry.Key.Config,
		entry.Key.Split,
		entry.Version,
		textOrNull(content),
		textOrNull(errJSON),
		entry.HTTPStatus(),
		formatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

func textOrNull(b []byte) sql.NullString {
	return sql.NullString{String: string(b), Valid: b != nil}
}

func nullBytes(s sql.NullString) []byte {
	if !s.Valid {
		return nil
	}
	return []byte(s.String)
}
