package domain

import (
	"encoding/json"
	"time"
)

// GenericErrorMessage — сообщение, которое отдаётся наружу вместо
// внутренних ошибок с DiscloseCause=false.
const GenericErrorMessage = "Unexpected error."

// ErrorRecord — ошибка вычисления в том виде, в котором она хранится в кэше.
type ErrorRecord struct {
	// Code — стабильный машиночитаемый код, например "EmptyDatasetError".
	Code string `json:"code"`

	// HTTPStatus — HTTP-статус, с которым ошибка отдаётся клиенту.
	HTTPStatus int `json:"http_status"`

	// Message — человекочитаемое описание.
	Message string `json:"message"`

	// Cause — текст исходной ошибки провайдера (опционально).
	Cause string `json:"cause,omitempty"`

	// DiscloseCause — можно ли показывать Message и Cause внешнему клиенту.
	DiscloseCause bool `json:"disclose_cause"`
}

// Public возвращает версию ошибки, безопасную для внешнего клиента.
func (e ErrorRecord) Public() ErrorRecord {
	if e.DiscloseCause {
		return e
	}
	return ErrorRecord{
		Code:       e.Code,
		HTTPStatus: e.HTTPStatus,
		Message:    GenericErrorMessage,
	}
}

// CacheEntry — версионированный результат (или ошибка) для одного ключа.
//
// Ровно одно из Content/Error заполнено. Запись всегда замещает
// предыдущую для того же ключа (last-writer-wins), истории нет.
type CacheEntry struct {
	Key JobKey `json:"key"`

	// Version — версия типа задачи, вычислившего запись.
	Version string `json:"version"`

	// Content — JSON-ответ, специфичный для типа задачи.
	Content json.RawMessage `json:"content,omitempty"`

	// Error — ошибка вычисления.
	Error *ErrorRecord `json:"error,omitempty"`

	// CreatedAt — время записи.
	CreatedAt time.Time `json:"created_at"`
}

// IsError возвращает true, если запись хранит ошибку.
func (e *CacheEntry) IsError() bool {
	return e.Error != nil
}

// HTTPStatus возвращает HTTP-статус, с которым запись отдаётся клиенту.
func (e *CacheEntry) HTTPStatus() int {
	if e.Error != nil {
		return e.Error.HTTPStatus
	}
	return 200
}
