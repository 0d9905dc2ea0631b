package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseBody = 10 * 1024 * 1024 // 10 MB
)

// maxErrorBody — сколько байт тела ошибки попадает в сообщение.
const maxErrorBody = 200

// emptyDatasetCode — код, которым провайдер сообщает о пустом датасете.
const emptyDatasetCode = "EmptyDatasetError"

// HTTPProvider ходит в HTTP API провайдера:
//
//	GET {base}/configs?dataset=           → {"configs": [...]}
//	GET {base}/splits?dataset=&config=    → {"splits": [...]}
//	GET {base}/rows?dataset=&config=&split=&length= → Rows
//
// Ошибки приходят как {"error": "...", "code": "..."} с кодом >= 400.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
	maxBody int64
}

// NewHTTPProvider создаёт HTTP-провайдера. client может быть nil.
func NewHTTPProvider(baseURL string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		maxBody: maxResponseBody,
	}
}

// ListConfigs возвращает конфигурации датасета в порядке провайдера.
func (p *HTTPProvider) ListConfigs(ctx context.Context, dataset, token string) ([]string, error) {
	var resp struct {
		Configs []string `json:"configs"`
	}
	if err := p.get(ctx, "/configs", url.Values{"dataset": {dataset}}, token, &resp); err != nil {
		return nil, err
	}
	if len(resp.Configs) == 0 {
		return nil, ErrEmptyDataset
	}
	return resp.Configs, nil
}

// ListSplits возвращает split'ы конфигурации в порядке провайдера.
func (p *HTTPProvider) ListSplits(ctx context.Context, dataset, config, token string) ([]string, error) {
	var resp struct {
		Splits []string `json:"splits"`
	}
	q := url.Values{"dataset": {dataset}, "config": {config}}
	if err := p.get(ctx, "/splits", q, token, &resp); err != nil {
		return nil, err
	}
	return resp.Splits, nil
}

// FirstRows возвращает до length первых строк split'а.
func (p *HTTPProvider) FirstRows(ctx context.Context, dataset, config, split, token string, length int) (*Rows, error) {
	var rows Rows
	q := url.Values{
		"dataset": {dataset},
		"config":  {config},
		"split":   {split},
		"length":  {strconv.Itoa(length)},
	}
	if err := p.get(ctx, "/rows", q, token, &rows); err != nil {
		return nil, err
	}
	return &rows, nil
}

// get выполняет GET-запрос и декодирует JSON-ответ в out.
func (p *HTTPProvider) get(ctx context.Context, path string, q url.Values, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBody+1))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > p.maxBody {
		return fmt.Errorf("%s: %w (limit %d bytes)", path, ErrResponseTooLarge, p.maxBody)
	}

	if resp.StatusCode >= 400 {
		return parseError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parseError разбирает тело ошибки. Пустой датасет превращается в ErrEmptyDataset.
func parseError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		payload.Error = truncate(string(body), maxErrorBody)
	}

	perr := &Error{StatusCode: status, Code: payload.Code, Message: payload.Error}
	if payload.Code == emptyDatasetCode {
		return fmt.Errorf("%w: %s", ErrEmptyDataset, perr.Message)
	}
	return perr
}

// IsEmptyDataset сообщает, означает ли err пустой датасет.
func IsEmptyDataset(err error) bool {
	return errors.Is(err, ErrEmptyDataset)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
