package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// maxResponseBody — предел размера ответа кэша.
const maxResponseBody = 10 * 1024 * 1024 // 10 MB

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// JobResponse — задача из API.
type JobResponse struct {
	ID         string `json:"id"`
	JobType    string `json:"job_type"`
	Dataset    string `json:"dataset"`
	Config     string `json:"config,omitempty"`
	Split      string `json:"split,omitempty"`
	Status     string `json:"status"`
	WorkerID   string `json:"worker_id,omitempty"`
	CreatedAt  string `json:"created_at"`
	StartedAt  string `json:"started_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
}

// QueueResponse — статистика очереди из API.
type QueueResponse struct {
	Datasets  map[string]int `json:"datasets"`
	Splits    map[string]int `json:"splits"`
	CreatedAt string         `json:"created_at"`
}

// --- Request types ---

// EnqueueRequest — постановка задачи.
type EnqueueRequest struct {
	JobType string `json:"job_type"`
	Dataset string `json:"dataset"`
	Config  string `json:"config,omitempty"`
	Split   string `json:"split,omitempty"`
}

// ListJobsOpts — параметры фильтрации задач.
type ListJobsOpts struct {
	JobType string
	Status  string
	Limit   int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Cause string `json:"cause,omitempty"`
}

// APIError — ошибка, которую вернул API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Cause      string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.StatusCode)
	}
	if e.Cause != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// --- Client ---

// Client — HTTP-клиент для dspreview API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxBody    int64
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxBody: maxResponseBody,
	}
}

// --- Queue ---

// QueueStats возвращает статистику очереди.
func (c *Client) QueueStats(ctx context.Context) (*QueueResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, "/queue", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return nil, err
	}

	var stats QueueResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &stats, nil
}

// --- Jobs ---

// EnqueueJob ставит задачу. created=false, если вернулась существующая.
func (c *Client) EnqueueJob(ctx context.Context, req EnqueueRequest) (*JobResponse, bool, error) {
	resp, err := c.do(ctx, http.MethodPost, "/jobs", req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return nil, false, err
	}

	var job JobResponse
	if err := decodeData(resp.Body, &job); err != nil {
		return nil, false, err
	}
	return &job, resp.StatusCode == http.StatusCreated, nil
}

// GetJob возвращает задачу по ID.
func (c *Client) GetJob(ctx context.Context, id string) (*JobResponse, error) {
	var job JobResponse
	err := c.get(ctx, "/jobs/"+url.PathEscape(id), &job)
	return &job, err
}

// ListJobs возвращает задачи с фильтрацией.
func (c *Client) ListJobs(ctx context.Context, opts ListJobsOpts) ([]JobResponse, error) {
	params := url.Values{}
	if opts.JobType != "" {
		params.Set("job_type", opts.JobType)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var jobs []JobResponse
	err := c.list(ctx, "/jobs", params, &jobs)
	return jobs, err
}

// CancelJob отменяет waiting-задачу.
func (c *Client) CancelJob(ctx context.Context, id string) error {
	return c.delete(ctx, "/jobs/"+url.PathEscape(id))
}

// --- Cache ---

// Splits возвращает закэшированный ответ /splits.
func (c *Client) Splits(ctx context.Context, dataset string) (json.RawMessage, error) {
	return c.cached(ctx, "/splits", url.Values{"dataset": {dataset}})
}

// FirstRows возвращает закэшированный ответ /first-rows.
func (c *Client) FirstRows(ctx context.Context, dataset, config, split string) (json.RawMessage, error) {
	return c.cached(ctx, "/first-rows", url.Values{
		"dataset": {dataset},
		"config":  {config},
		"split":   {split},
	})
}

// cached читает ответ кэша: тело отдаётся без обёртки "data".
func (c *Client) cached(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	resp, err := c.do(ctx, http.MethodGet, path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", path, c.maxBody)
	}
	return body, nil
}

// --- HTTP helpers ---

func (c *Client) get(ctx context.Context, path string, result any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}
	return decodeData(resp.Body, result)
}

func (c *Client) delete(ctx context.Context, path string) error {
	resp, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(ctx context.Context, path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func decodeData(r io.Reader, result any) error {
	var dr dataResponse
	if err := json.NewDecoder(r).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return json.Unmarshal(dr.Data, result)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err == nil {
		apiErr.Code = er.Code
		apiErr.Message = er.Error
		apiErr.Cause = er.Cause
	}
	return apiErr
}
