package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/shaiso/dspreview/internal/domain"
)

// Ошибки реестра.
var (
	// ErrUnknownJobType — тип задачи не зарегистрирован.
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrMissingParameter — в ключе нет обязательного для типа поля.
	ErrMissingParameter = errors.New("missing required parameter")
)

// Level — гранулярность ключа типа задачи.
type Level int

const (
	// LevelDataset — ключ (dataset).
	LevelDataset Level = iota
	// LevelConfig — ключ (dataset, config).
	LevelConfig
	// LevelSplit — ключ (dataset, config, split).
	LevelSplit
)

// Input — контекст выполнения одной задачи.
type Input struct {
	Dataset string
	Config  string
	Split   string

	// Token — токен доступа к провайдеру (опционально).
	Token string
}

// Type — дескриптор типа задачи.
type Type struct {
	// Name — имя типа, например "/splits".
	Name string

	// Version — версия алгоритма; пишется в каждую запись кэша.
	Version string

	Level Level

	// Compute вычисляет результат. Доменные ошибки — *apperr.Error.
	Compute func(ctx context.Context, in Input) (json.RawMessage, error)

	// Entities извлекает identity set из результата. nil — нет diff'а.
	Entities func(content json.RawMessage) (domain.SplitSet, error)

	// Downstream — тип задачи, которая ставится на каждую новую сущность.
	Downstream string
}

// Key строит ключ задачи этого типа для сущности, отбрасывая лишние поля.
func (t Type) Key(name domain.SplitFullName) domain.JobKey {
	key := domain.JobKey{Type: t.Name, Dataset: name.Dataset}
	if t.Level >= LevelConfig {
		key.Config = name.Config
	}
	if t.Level >= LevelSplit {
		key.Split = name.Split
	}
	return key
}

// Validate проверяет, что ключ заполнен на уровне типа.
func (t Type) Validate(key domain.JobKey) error {
	switch {
	case key.Dataset == "":
		return fmt.Errorf("%w: dataset", ErrMissingParameter)
	case t.Level >= LevelConfig && key.Config == "":
		return fmt.Errorf("%w: config", ErrMissingParameter)
	case t.Level >= LevelSplit && key.Split == "":
		return fmt.Errorf("%w: split", ErrMissingParameter)
	}
	return nil
}

// Registry — набор зарегистрированных типов задач.
type Registry struct {
	types map[string]Type
}

// NewRegistry создаёт реестр из списка типов.
func NewRegistry(types ...Type) (*Registry, error) {
	r := &Registry{types: make(map[string]Type, len(types))}
	for _, t := range types {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register добавляет тип задачи.
func (r *Registry) Register(t Type) error {
	if t.Name == "" || t.Version == "" || t.Compute == nil {
		return fmt.Errorf("register job type %q: name, version and compute are required", t.Name)
	}
	if _, ok := r.types[t.Name]; ok {
		return fmt.Errorf("register job type %s: already registered", t.Name)
	}
	r.types[t.Name] = t
	return nil
}

// Get возвращает тип задачи по имени.
func (r *Registry) Get(name string) (Type, error) {
	t, ok := r.types[name]
	if !ok {
		return Type{}, fmt.Errorf("%w: %s", ErrUnknownJobType, name)
	}
	return t, nil
}

// Names возвращает имена типов в алфавитном порядке.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
