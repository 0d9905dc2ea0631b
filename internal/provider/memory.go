package provider

import (
	"context"
	"sync"
)

// Dataset — описание датасета для Memory.
type Dataset struct {
	// Configs — config → split'ы в порядке провайдера. Порядок конфигураций
	// задаётся ConfigOrder, если он не пуст.
	Configs     map[string][]string
	ConfigOrder []string

	// Rows — "config/split" → строки.
	Rows map[string]*Rows

	// Err возвращается любым вызовом для этого датасета.
	Err error
}

// Memory — провайдер в памяти. Используется в тестах и локальных запусках.
type Memory struct {
	mu       sync.Mutex
	datasets map[string]*Dataset
	calls    int
}

// NewMemory создаёт пустой провайдер.
func NewMemory() *Memory {
	return &Memory{datasets: make(map[string]*Dataset)}
}

// Set задаёт (или заменяет) датасет.
func (m *Memory) Set(name string, ds *Dataset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets[name] = ds
}

// Calls возвращает число вызовов провайдера.
func (m *Memory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Memory) lookup(dataset string) (*Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	ds, ok := m.datasets[dataset]
	if !ok {
		return nil, &Error{StatusCode: 404, Code: "DatasetNotFound", Message: "dataset " + dataset + " not found"}
	}
	if ds.Err != nil {
		return nil, ds.Err
	}
	return ds, nil
}

// ListConfigs реализует Provider.
func (m *Memory) ListConfigs(_ context.Context, dataset, _ string) ([]string, error) {
	ds, err := m.lookup(dataset)
	if err != nil {
		return nil, err
	}
	if len(ds.Configs) == 0 {
		return nil, ErrEmptyDataset
	}

	if len(ds.ConfigOrder) > 0 {
		return append([]string(nil), ds.ConfigOrder...), nil
	}
	configs := make([]string, 0, len(ds.Configs))
	for c := range ds.Configs {
		configs = append(configs, c)
	}
	return configs, nil
}

// ListSplits реализует Provider.
func (m *Memory) ListSplits(_ context.Context, dataset, config, _ string) ([]string, error) {
	ds, err := m.lookup(dataset)
	if err != nil {
		return nil, err
	}
	splits, ok := ds.Configs[config]
	if !ok {
		return nil, &Error{StatusCode: 404, Code: "ConfigNotFound", Message: "config " + config + " not found"}
	}
	return append([]string(nil), splits...), nil
}

// FirstRows реализует Provider.
func (m *Memory) FirstRows(_ context.Context, dataset, config, split, _ string, length int) (*Rows, error) {
	ds, err := m.lookup(dataset)
	if err != nil {
		return nil, err
	}
	rows, ok := ds.Rows[config+"/"+split]
	if !ok {
		return &Rows{}, nil
	}

	out := *rows
	if length > 0 && len(out.Rows) > length {
		out.Rows = out.Rows[:length]
		out.Truncated = true
	}
	return &out, nil
}
