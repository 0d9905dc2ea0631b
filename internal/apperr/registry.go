package apperr

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
)

// Code — стабильный машиночитаемый код ошибки.
type Code string

// Коды ошибок.
const (
	// CodeUnexpected — catch-all для неклассифицированных ошибок.
	CodeUnexpected Code = "UnexpectedError"

	// CodeEmptyDataset — провайдер сообщил, что в датасете нет данных.
	CodeEmptyDataset Code = "EmptyDatasetError"

	// CodeSplitsNames — не удалось получить список splits.
	CodeSplitsNames Code = "SplitsNamesError"

	// CodeSplitNotFound — split отсутствует в датасете.
	CodeSplitNotFound Code = "SplitNotFoundError"

	// CodeStreamingRows — не удалось получить первые строки split.
	CodeStreamingRows Code = "StreamingRowsError"

	// CodeResponseNotReady — ответ ещё не вычислен, задача поставлена в очередь.
	CodeResponseNotReady Code = "ResponseNotReady"

	// CodeMissingParameter — в запросе нет обязательного параметра.
	CodeMissingParameter Code = "MissingRequiredParameter"
)

// Variant — описание варианта ошибки.
type Variant struct {
	Code          Code
	HTTPStatus    int
	DiscloseCause bool
}

var (
	mu       sync.RWMutex
	registry = map[Code]Variant{
		CodeUnexpected:       {CodeUnexpected, http.StatusInternalServerError, false},
		CodeEmptyDataset:     {CodeEmptyDataset, http.StatusInternalServerError, true},
		CodeSplitsNames:      {CodeSplitsNames, http.StatusInternalServerError, true},
		CodeSplitNotFound:    {CodeSplitNotFound, http.StatusNotFound, true},
		CodeStreamingRows:    {CodeStreamingRows, http.StatusInternalServerError, true},
		CodeResponseNotReady: {CodeResponseNotReady, http.StatusInternalServerError, true},
		CodeMissingParameter: {CodeMissingParameter, http.StatusUnprocessableEntity, true},
	}
)

// Register добавляет вариант в реестр.
// Повторная регистрация кода — ошибка: коды стабильны и уникальны.
func Register(v Variant) error {
	if v.Code == "" {
		return fmt.Errorf("register error variant: empty code")
	}
	if v.HTTPStatus < 400 || v.HTTPStatus > 599 {
		return fmt.Errorf("register error variant %s: invalid http status %d", v.Code, v.HTTPStatus)
	}

	mu.Lock()
	defer mu.Unlock()

	if _, ok := registry[v.Code]; ok {
		return fmt.Errorf("register error variant %s: already registered", v.Code)
	}
	registry[v.Code] = v
	return nil
}

// Lookup возвращает вариант по коду.
func Lookup(code Code) (Variant, bool) {
	mu.RLock()
	defer mu.RUnlock()
	v, ok := registry[code]
	return v, ok
}

// Codes возвращает все зарегистрированные коды в алфавитном порядке.
func Codes() []Code {
	mu.RLock()
	defer mu.RUnlock()

	codes := make([]Code, 0, len(registry))
	for c := range registry {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
