// Package provider — узкий интерфейс к внешнему источнику метаданных
// датасетов (список конфигураций, split'ов и первых строк).
//
// Ошибки провайдера наружу выходят только как ErrEmptyDataset или
// обёрнутые *Error; перевод в коды ошибок делают типы задач.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrEmptyDataset — в датасете нет данных.
	ErrEmptyDataset = errors.New("dataset is empty")

	// ErrResponseTooLarge — ответ провайдера больше допустимого размера.
	ErrResponseTooLarge = errors.New("provider response too large")
)

// Error — неуспешный ответ провайдера.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("provider: HTTP %d: %s", e.StatusCode, e.Message)
}

// Rows — первые строки split'а.
type Rows struct {
	Features  json.RawMessage   `json:"features"`
	Rows      []json.RawMessage `json:"rows"`
	Truncated bool              `json:"truncated"`
}

// Provider — источник метаданных. Token может быть пустым.
type Provider interface {
	ListConfigs(ctx context.Context, dataset, token string) ([]string, error)
	ListSplits(ctx context.Context, dataset, config, token string) ([]string, error)
	FirstRows(ctx context.Context, dataset, config, split, token string, length int) (*Rows, error)
}
