package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

type fakeAPI struct {
	server   *httptest.Server
	lastBody map[string]string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /queue", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"datasets":{"waiting":2,"success":1},"splits":{"error":1},"created_at":"2026-10-19T12:00:00Z"}`))
	})
	mux.HandleFunc("POST /jobs", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&f.lastBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"job-1","job_type":"/splits","dataset":"squad","status":"waiting","created_at":"2026-10-19T12:00:00Z"}}`))
	})
	mux.HandleFunc("GET /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "job-1" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"job not found","code":"NotFound"}`))
			return
		}
		w.Write([]byte(`{"data":{"id":"job-1","job_type":"/splits","dataset":"squad","status":"started","worker_id":"w1"}}`))
	})
	mux.HandleFunc("GET /jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("job_type") != "/splits" {
			w.Write([]byte(`{"data":[],"total":0}`))
			return
		}
		w.Write([]byte(`{"data":[{"id":"job-1","job_type":"/splits","dataset":"squad","status":"waiting"}],"total":1}`))
	})
	mux.HandleFunc("DELETE /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /splits", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("dataset") == "pending" {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"The response is not ready yet. Please retry later.","code":"ResponseNotReady"}`))
			return
		}
		w.Write([]byte(`{"splits":[{"dataset":"squad","config":"plain_text","split":"train"}]}`))
	})
	mux.HandleFunc("GET /first-rows", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		w.Write([]byte(`{"dataset":"` + q.Get("dataset") + `","config":"` + q.Get("config") + `","split":"` + q.Get("split") + `","rows":[]}`))
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// run выполняет команду CLI и возвращает stdout и stderr.
func run(t *testing.T, apiURL string, jsonMode bool, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	clientFn := func() *Client { return NewClient(apiURL) }
	outputFn := func() *Output { return NewOutputTo(jsonMode, &stdout, &stderr) }

	root := &cobra.Command{Use: "dspreview", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(
		NewQueueCmd(clientFn, outputFn),
		NewJobCmd(clientFn, outputFn),
		NewCacheCmd(clientFn, outputFn),
	)
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// --- Client Tests ---

func TestClient_QueueStats(t *testing.T) {
	api := newFakeAPI(t)

	stats, err := NewClient(api.server.URL).QueueStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Datasets["waiting"] != 2 || stats.Splits["error"] != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestClient_APIError(t *testing.T) {
	api := newFakeAPI(t)

	_, err := NewClient(api.server.URL).GetJob(context.Background(), "missing")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Code != "NotFound" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestClient_CachedNotReady(t *testing.T) {
	api := newFakeAPI(t)

	_, err := NewClient(api.server.URL).Splits(context.Background(), "pending")

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "ResponseNotReady" {
		t.Fatalf("expected ResponseNotReady, got %v", err)
	}
}

func TestClient_CachedTooLarge(t *testing.T) {
	api := newFakeAPI(t)
	client := NewClient(api.server.URL)
	client.maxBody = 16

	if _, err := client.Splits(context.Background(), "squad"); err == nil || !strings.Contains(err.Error(), "exceeds 16 bytes") {
		t.Errorf("expected size limit error, got %v", err)
	}
}

// --- Command Tests ---

func TestQueueStatsCmd_Table(t *testing.T) {
	api := newFakeAPI(t)

	stdout, stderr, err := run(t, api.server.URL, false, "queue", "stats")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"datasets", "success", "waiting", "splits", "error"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output:\n%s", want, stdout)
		}
	}
	if strings.Index(stdout, "success") > strings.Index(stdout, "waiting") {
		t.Errorf("expected statuses sorted:\n%s", stdout)
	}
	if !strings.Contains(stderr, "2026-10-19T12:00:00Z") {
		t.Errorf("expected timestamp in stderr, got %q", stderr)
	}
}

func TestQueueStatsCmd_JSON(t *testing.T) {
	api := newFakeAPI(t)

	stdout, _, err := run(t, api.server.URL, true, "queue", "stats")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var stats QueueResponse
	if err := json.Unmarshal([]byte(stdout), &stats); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if stats.Datasets["success"] != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestJobEnqueueCmd(t *testing.T) {
	api := newFakeAPI(t)

	stdout, stderr, err := run(t, api.server.URL, false, "job", "enqueue", "/splits", "--dataset", "squad")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if api.lastBody["job_type"] != "/splits" || api.lastBody["dataset"] != "squad" {
		t.Errorf("unexpected request body: %v", api.lastBody)
	}
	if !strings.Contains(stderr, "Job enqueued: job-1") {
		t.Errorf("unexpected stderr: %q", stderr)
	}
	if !strings.Contains(stdout, "waiting") {
		t.Errorf("unexpected stdout: %q", stdout)
	}
}

func TestJobEnqueueCmd_RequiresDataset(t *testing.T) {
	api := newFakeAPI(t)

	if _, _, err := run(t, api.server.URL, false, "job", "enqueue", "/splits"); err == nil {
		t.Error("expected error without --dataset")
	}
}

func TestJobShowCmd(t *testing.T) {
	api := newFakeAPI(t)

	stdout, _, err := run(t, api.server.URL, false, "job", "show", "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "started") || !strings.Contains(stdout, "w1") {
		t.Errorf("unexpected output:\n%s", stdout)
	}

	if _, _, err := run(t, api.server.URL, false, "job", "show", "missing"); err == nil {
		t.Error("expected error for missing job")
	}
}

func TestJobListCmd(t *testing.T) {
	api := newFakeAPI(t)

	stdout, _, err := run(t, api.server.URL, true, "job", "list", "--type", "/splits")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var jobs []JobResponse
	if err := json.Unmarshal([]byte(stdout), &jobs); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "job-1" {
		t.Errorf("unexpected jobs: %+v", jobs)
	}
}

func TestJobCancelCmd(t *testing.T) {
	api := newFakeAPI(t)

	_, stderr, err := run(t, api.server.URL, false, "job", "cancel", "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stderr, "Job cancelled: job-1") {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

func TestCacheCmds(t *testing.T) {
	api := newFakeAPI(t)

	stdout, _, err := run(t, api.server.URL, false, "cache", "splits", "squad")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, `"plain_text"`) {
		t.Errorf("unexpected splits output:\n%s", stdout)
	}

	stdout, _, err = run(t, api.server.URL, false, "cache", "first-rows", "squad", "plain_text", "train")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, `"split": "train"`) {
		t.Errorf("unexpected first-rows output:\n%s", stdout)
	}
}

// --- Output Tests ---

func TestOutput_TableFillsEmptyCells(t *testing.T) {
	var stdout, stderr bytes.Buffer
	out := NewOutputTo(false, &stdout, &stderr)

	out.Print([]string{"TYPE", "CONFIG"}, [][]string{{"/splits", ""}}, nil)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", stdout.String())
	}
	if fields := strings.Fields(lines[1]); len(fields) != 2 || fields[1] != emptyCell {
		t.Errorf("expected empty cell rendered as %q, got %q", emptyCell, lines[1])
	}
}

func TestOutput_EmptyTable(t *testing.T) {
	var stdout, stderr bytes.Buffer
	out := NewOutputTo(false, &stdout, &stderr)

	out.Print([]string{"ID"}, nil, []JobResponse{})

	if stdout.Len() != 0 {
		t.Errorf("expected no table, got %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "No results.") {
		t.Errorf("expected message in stderr, got %q", stderr.String())
	}
}

func TestOutput_RawInvalidJSON(t *testing.T) {
	var stdout bytes.Buffer
	out := NewOutputTo(false, &stdout, io.Discard)

	out.Raw([]byte("plain text"))

	if stdout.String() != "plain text\n" {
		t.Errorf("expected body passed through, got %q", stdout.String())
	}
}
