package apperr

import (
	"errors"
	"fmt"

	"github.com/shaiso/dspreview/internal/domain"
)

// Error — доменная ошибка, помеченная кодом из реестра.
type Error struct {
	Code          Code
	HTTPStatus    int
	Message       string
	Cause         error
	DiscloseCause bool
}

// New создаёт ошибку варианта code.
// Для незарегистрированного кода HTTP-статус и политика раскрытия берутся
// у UnexpectedError, а сам код сохраняется.
func New(code Code, message string, cause error) *Error {
	v, ok := Lookup(code)
	if !ok {
		v, _ = Lookup(CodeUnexpected)
	}
	return &Error{
		Code:          code,
		HTTPStatus:    v.HTTPStatus,
		Message:       message,
		Cause:         cause,
		DiscloseCause: v.DiscloseCause,
	}
}

// Unexpected оборачивает неклассифицированную ошибку в catch-all вариант.
func Unexpected(cause error) *Error {
	return New(CodeUnexpected, domain.GenericErrorMessage, cause)
}

// Error реализует интерфейс error.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap возвращает исходную ошибку.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Record конвертирует ошибку в запись для кэша.
func (e *Error) Record() domain.ErrorRecord {
	rec := domain.ErrorRecord{
		Code:          string(e.Code),
		HTTPStatus:    e.HTTPStatus,
		Message:       e.Message,
		DiscloseCause: e.DiscloseCause,
	}
	if e.Cause != nil {
		rec.Cause = e.Cause.Error()
	}
	return rec
}

// From классифицирует произвольную ошибку.
// *Error в цепочке возвращается как есть, всё остальное — UnexpectedError.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Unexpected(err)
}

// Is проверяет, что в цепочке err есть *Error с кодом code.
func Is(err error, code Code) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
