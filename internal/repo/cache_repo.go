package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/dspreview/internal/domain"
)

// CacheRepo — кэш результатов поверх Postgres.
type CacheRepo struct {
	pool *pgxpool.Pool
}

// NewCacheRepo создаёт новый CacheRepo.
func NewCacheRepo(pool *pgxpool.Pool) *CacheRepo {
	return &CacheRepo{pool: pool}
}

// Get возвращает запись кэша для ключа или ErrNotFound.
func (r *CacheRepo) Get(ctx context.Context, key domain.JobKey) (*domain.CacheEntry, error) {
	var content, errJSON []byte
	entry := domain.CacheEntry{Key: key}

	err := r.pool.QueryRow(ctx, `
		SELECT version, content, error, created_at
		FROM cache_entries
		WHERE job_type = $1 AND dataset = $2 AND config = $3 AND split = $4
	`, key.Type, key.Dataset, key.Config, key.Split).Scan(
		&entry.Version,
		&content,
		&errJSON,
		&entry.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}

	if err := DecodeCacheEntry(&entry, content, errJSON); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Upsert записывает запись, безусловно замещая предыдущую для того же ключа.
func (r *CacheRepo) Upsert(ctx context.Context, entry *domain.CacheEntry) error {
	content, errJSON, err := EncodeCacheEntry(entry)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO cache_entries (job_type, dataset, config, split, version, content, error, http_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (job_type, dataset, config, split) DO UPDATE
		SET version = EXCLUDED.version,
		    content = EXCLUDED.content,
		    error = EXCLUDED.error,
		    http_status = EXCLUDED.http_status,
		    created_at = EXCLUDED.created_at
	`,
		entry.Key.Type,
		entry.Key.Dataset,
		entry.Key.Config,
		entry.Key.Split,
		entry.Version,
		content,
		errJSON,
		entry.HTTPStatus(),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// --- Helpers ---

// EncodeCacheEntry проверяет инвариант "ровно одно из content/error" и
// сериализует ошибку. Пустой результат возвращается как nil (NULL в БД).
func EncodeCacheEntry(entry *domain.CacheEntry) (content, errJSON []byte, err error) {
	hasContent := len(entry.Content) > 0
	if hasContent == entry.IsError() {
		return nil, nil, fmt.Errorf("%w: cache entry %s must have exactly one of content or error",
			ErrInvalidState, entry.Key)
	}
	if hasContent {
		return []byte(entry.Content), nil, nil
	}
	errJSON, err = json.Marshal(entry.Error)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal error record: %w", err)
	}
	return nil, errJSON, nil
}

// DecodeCacheEntry заполняет Content/Error из колонок БД.
func DecodeCacheEntry(entry *domain.CacheEntry, content, errJSON []byte) error {
	if content != nil {
		entry.Content = json.RawMessage(content)
	}
	if errJSON != nil {
		var rec domain.ErrorRecord
		if err := json.Unmarshal(errJSON, &rec); err != nil {
			return fmt.Errorf("unmarshal error record: %w", err)
		}
		entry.Error = &rec
	}
	return nil
}
