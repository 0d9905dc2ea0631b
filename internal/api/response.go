package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shaiso/dspreview/internal/apperr"
	"github.com/shaiso/dspreview/internal/domain"
	"github.com/shaiso/dspreview/internal/repo"
)

// Коды ошибок API вне таксономии вычислений.
const (
	ErrCodeBadRequest    = "BadRequest"
	ErrCodeNotFound      = "NotFound"
	ErrCodeInvalidState  = "InvalidState"
	ErrCodeInternalError = "InternalError"
)

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Cause string `json:"cause,omitempty"`
}

// DataResponse — структура успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — структура ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RawJSON отправляет уже сериализованный JSON.
func RawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// Success отправляет успешный ответ с данными.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Created отправляет ответ о создании ресурса.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, DataResponse{Data: data})
}

// NoContent отправляет ответ без тела (204).
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// List отправляет ответ со списком.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("X-Error-Code", code)
	JSON(w, status, ErrorResponse{Error: message, Code: code})
}

// ErrorRecord отправляет ошибку вычисления, скрывая детали, если
// DiscloseCause=false.
func ErrorRecord(w http.ResponseWriter, rec domain.ErrorRecord) {
	pub := rec.Public()
	w.Header().Set("X-Error-Code", pub.Code)
	JSON(w, pub.HTTPStatus, ErrorResponse{Error: pub.Message, Code: pub.Code, Cause: pub.Cause})
}

// AppError отправляет *apperr.Error.
func AppError(w http.ResponseWriter, err *apperr.Error) {
	ErrorRecord(w, err.Record())
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// NotFound отправляет ошибку 404.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// InvalidState отправляет ошибку 422.
func InvalidState(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnprocessableEntity, ErrCodeInvalidState, message)
}

// MissingParameter отправляет MissingRequiredParameter (422).
func MissingParameter(w http.ResponseWriter, name string) {
	AppError(w, apperr.New(apperr.CodeMissingParameter, fmt.Sprintf("Parameter '%s' is required", name), nil))
}

// InternalError отправляет ошибку 500.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, domain.GenericErrorMessage)
}

// CacheControl выставляет max-age.
func CacheControl(w http.ResponseWriter, maxAge time.Duration) {
	w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", int(maxAge.Seconds())))
}

// HandleRepoError преобразует ошибку репозитория в HTTP ответ.
func HandleRepoError(w http.ResponseWriter, logger *slog.Logger, err error, notFoundMsg string) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, repo.ErrNotFound) {
		NotFound(w, notFoundMsg)
		return true
	}

	if errors.Is(err, repo.ErrInvalidState) || errors.Is(err, repo.ErrAlreadyFinished) {
		InvalidState(w, err.Error())
		return true
	}

	InternalError(w, logger, err)
	return true
}
