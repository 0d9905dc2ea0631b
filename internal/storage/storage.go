// Package storage выбирает backend очереди и кэша (Postgres или SQLite)
// и описывает интерфейсы, через которые с ними работают воркер и API.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/dspreview/internal/domain"
	"github.com/shaiso/dspreview/internal/repo"
	"github.com/shaiso/dspreview/internal/repo/sqlite"
)

// Поддерживаемые драйверы.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// JobStore — операции очереди задач.
type JobStore interface {
	Enqueue(ctx context.Context, key domain.JobKey) (*domain.Job, bool, error)
	GetLive(ctx context.Context, key domain.JobKey) (*domain.Job, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	Claim(ctx context.Context, jobType, workerID string) (*domain.Job, error)
	Finish(ctx context.Context, id uuid.UUID, status domain.JobStatus) error
	Cancel(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter repo.JobFilter) ([]domain.Job, error)
	CountByStatus(ctx context.Context, jobType string) (domain.StatusCounts, error)
	CountAll(ctx context.Context) (map[string]domain.StatusCounts, error)
	SweepStale(ctx context.Context, cutoff time.Time, requeue bool) ([]domain.Job, error)
}

// CacheStore — операции кэша результатов.
type CacheStore interface {
	Get(ctx context.Context, key domain.JobKey) (*domain.CacheEntry, error)
	Upsert(ctx context.Context, entry *domain.CacheEntry) error
}

var (
	_ JobStore   = (*repo.JobRepo)(nil)
	_ JobStore   = (*sqlite.JobRepo)(nil)
	_ CacheStore = (*repo.CacheRepo)(nil)
	_ CacheStore = (*sqlite.CacheRepo)(nil)
)

// Config — параметры подключения.
type Config struct {
	// Driver — "postgres" (по умолчанию) или "sqlite".
	Driver string

	// DSN — строка подключения к Postgres.
	DSN string

	// SQLitePath — путь к файлу или DSN SQLite.
	SQLitePath string

	// MaxConns — размер пула Postgres.
	MaxConns int32
}

// Backend — открытое хранилище.
type Backend struct {
	Driver string
	Jobs   JobStore
	Cache  CacheStore

	ping  func(ctx context.Context) error
	close func()
}

// Open подключается к хранилищу и применяет схему.
func Open(ctx context.Context, cfg Config) (*Backend, error) {
	switch cfg.Driver {
	case "", DriverPostgres:
		pool, err := repo.NewPool(ctx, cfg.DSN, cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		if err := repo.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return NewPostgres(pool), nil

	case DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return NewSQLite(db), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// NewPostgres оборачивает готовый пул.
func NewPostgres(pool *pgxpool.Pool) *Backend {
	return &Backend{
		Driver: DriverPostgres,
		Jobs:   repo.NewJobRepo(pool),
		Cache:  repo.NewCacheRepo(pool),
		ping:   pool.Ping,
		close:  pool.Close,
	}
}

// NewSQLite оборачивает открытую БД SQLite.
func NewSQLite(db *sql.DB) *Backend {
	return &Backend{
		Driver: DriverSQLite,
		Jobs:   sqlite.NewJobRepo(db),
		Cache:  sqlite.NewCacheRepo(db),
		ping:   db.PingContext,
		close:  func() { db.Close() },
	}
}

// Ping проверяет доступность хранилища.
func (b *Backend) Ping(ctx context.Context) error {
	return b.ping(ctx)
}

// Close освобождает соединения.
func (b *Backend) Close() {
	b.close()
}
