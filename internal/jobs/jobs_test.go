package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/shaiso/dspreview/internal/apperr"
	"github.com/shaiso/dspreview/internal/domain"
	"github.com/shaiso/dspreview/internal/provider"
)

func squadProvider() *provider.Memory {
	p := provider.NewMemory()
	p.Set("squad", &provider.Dataset{
		ConfigOrder: []string{"zeta", "alpha"},
		Configs: map[string][]string{
			"zeta":  {"train", "test"},
			"alpha": {"validation", "train"},
		},
		Rows: map[string]*provider.Rows{
			"alpha/train": {
				Features: json.RawMessage(`[{"name":"text"}]`),
				Rows:     []json.RawMessage{json.RawMessage(`{"text":"a"}`), json.RawMessage(`{"text":"b"}`), json.RawMessage(`{"text":"c"}`)},
			},
		},
	})
	return p
}

// --- Splits Tests ---

func TestSplits_Compute_Ordering(t *testing.T) {
	jt := NewSplits(squadProvider())

	raw, err := jt.Compute(context.Background(), Input{Dataset: "squad"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var content SplitsContent
	if err := json.Unmarshal(raw, &content); err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := []domain.SplitFullName{
		{Dataset: "squad", Config: "alpha", Split: "validation"},
		{Dataset: "squad", Config: "alpha", Split: "train"},
		{Dataset: "squad", Config: "zeta", Split: "train"},
		{Dataset: "squad", Config: "zeta", Split: "test"},
	}
	if len(content.Splits) != len(want) {
		t.Fatalf("expected %d splits, got %d", len(want), len(content.Splits))
	}
	for i := range want {
		if content.Splits[i] != want[i] {
			t.Errorf("split %d: expected %+v, got %+v", i, want[i], content.Splits[i])
		}
	}
}

func TestSplits_Compute_EmptyDataset(t *testing.T) {
	p := provider.NewMemory()
	p.Set("empty", &provider.Dataset{})

	_, err := NewSplits(p).Compute(context.Background(), Input{Dataset: "empty"})

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %v", err)
	}
	if appErr.Code != apperr.CodeEmptyDataset {
		t.Errorf("expected EmptyDatasetError, got %s", appErr.Code)
	}
	if appErr.HTTPStatus != http.StatusInternalServerError || !appErr.DiscloseCause {
		t.Errorf("unexpected variant binding: %+v", appErr)
	}
}

func TestSplits_Compute_ProviderFailure(t *testing.T) {
	p := provider.NewMemory()
	p.Set("broken", &provider.Dataset{Err: &provider.Error{StatusCode: 502, Message: "boom"}})

	_, err := NewSplits(p).Compute(context.Background(), Input{Dataset: "broken"})
	if !apperr.Is(err, apperr.CodeSplitsNames) {
		t.Fatalf("expected SplitsNamesError, got %v", err)
	}
	if rec := apperr.From(err).Record(); rec.Cause == "" || !rec.DiscloseCause {
		t.Errorf("expected disclosed cause, got %+v", rec)
	}
}

func TestSplits_Entities(t *testing.T) {
	set, err := splitsEntities(json.RawMessage(`{"splits":[{"dataset":"d","config":"c","split":"a"},{"dataset":"d","config":"c","split":"b"}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set) != 2 || !set.Has(domain.SplitFullName{Dataset: "d", Config: "c", Split: "b"}) {
		t.Errorf("unexpected set: %v", set)
	}

	if _, err := splitsEntities(json.RawMessage(`[`)); err == nil {
		t.Error("expected decode error")
	}
}

// --- FirstRows Tests ---

func TestFirstRows_Compute(t *testing.T) {
	jt := NewFirstRows(squadProvider(), 2)

	raw, err := jt.Compute(context.Background(), Input{Dataset: "squad", Config: "alpha", Split: "train"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var content FirstRowsContent
	if err := json.Unmarshal(raw, &content); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(content.Rows) != 2 || !content.Truncated {
		t.Errorf("expected 2 truncated rows, got %d truncated=%v", len(content.Rows), content.Truncated)
	}
	if content.Split != "train" || content.Config != "alpha" {
		t.Errorf("unexpected identity: %+v", content)
	}
}

func TestFirstRows_SplitNotFound(t *testing.T) {
	_, err := NewFirstRows(squadProvider(), 10).Compute(context.Background(),
		Input{Dataset: "squad", Config: "alpha", Split: "nope"})

	appErr := apperr.From(err)
	if appErr.Code != apperr.CodeSplitNotFound || appErr.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected SplitNotFoundError 404, got %+v", appErr)
	}
}

func TestFirstRows_NoDownstream(t *testing.T) {
	jt := NewFirstRows(squadProvider(), 0)
	if jt.Downstream != "" || jt.Entities != nil {
		t.Error("/first-rows should not have downstream jobs")
	}
}

// --- Registry Tests ---

func TestRegistry_Builtin(t *testing.T) {
	r := Builtin(squadProvider(), 10)

	names := r.Names()
	if len(names) != 2 || names[0] != FirstRowsType || names[1] != SplitsType {
		t.Errorf("unexpected names: %v", names)
	}

	splits, err := r.Get(SplitsType)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if splits.Version != "2.0.0" || splits.Downstream != FirstRowsType {
		t.Errorf("unexpected descriptor: %s %s", splits.Version, splits.Downstream)
	}

	if _, err := r.Get("/parquet"); !errors.Is(err, ErrUnknownJobType) {
		t.Errorf("expected ErrUnknownJobType, got %v", err)
	}
}

func TestRegistry_Duplicate(t *testing.T) {
	p := squadProvider()
	if _, err := NewRegistry(NewSplits(p), NewSplits(p)); err == nil {
		t.Error("expected duplicate registration error")
	}
}

func TestType_KeyAndValidate(t *testing.T) {
	name := domain.SplitFullName{Dataset: "d", Config: "c", Split: "s"}

	if k := NewSplits(nil).Key(name); k.Config != "" || k.Split != "" || k.Dataset != "d" {
		t.Errorf("dataset-level key should drop config/split: %+v", k)
	}
	rows := NewFirstRows(nil, 1)
	if k := rows.Key(name); k.Config != "c" || k.Split != "s" || k.Type != FirstRowsType {
		t.Errorf("split-level key should keep config/split: %+v", k)
	}

	if err := rows.Validate(domain.JobKey{Dataset: "d", Config: "c"}); !errors.Is(err, ErrMissingParameter) {
		t.Errorf("expected ErrMissingParameter, got %v", err)
	}
	if err := rows.Validate(domain.JobKey{Dataset: "d", Config: "c", Split: "s"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
