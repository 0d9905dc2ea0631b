package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/shaiso/dspreview/internal/domain"
)

// --- Registry Tests ---

func TestLookup_BuiltinVariants(t *testing.T) {
	cases := []struct {
		code     Code
		status   int
		disclose bool
	}{
		{CodeEmptyDataset, http.StatusInternalServerError, true},
		{CodeSplitsNames, http.StatusInternalServerError, true},
		{CodeUnexpected, http.StatusInternalServerError, false},
		{CodeSplitNotFound, http.StatusNotFound, true},
	}

	for _, c := range cases {
		v, ok := Lookup(c.code)
		if !ok {
			t.Fatalf("%s should be registered", c.code)
		}
		if v.HTTPStatus != c.status {
			t.Errorf("%s: expected status %d, got %d", c.code, c.status, v.HTTPStatus)
		}
		if v.DiscloseCause != c.disclose {
			t.Errorf("%s: expected disclose %v, got %v", c.code, c.disclose, v.DiscloseCause)
		}
	}
}

func TestRegister_Duplicate(t *testing.T) {
	err := Register(Variant{Code: CodeEmptyDataset, HTTPStatus: 500})
	if err == nil {
		t.Error("expected error for duplicate code")
	}
}

func TestRegister_InvalidStatus(t *testing.T) {
	err := Register(Variant{Code: "TeapotError", HTTPStatus: 200})
	if err == nil {
		t.Error("expected error for non-error status")
	}
}

func TestRegister_Custom(t *testing.T) {
	v := Variant{Code: "RegisterCustomTestError", HTTPStatus: http.StatusBadGateway, DiscloseCause: true}
	if err := Register(v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e := New(v.Code, "upstream failed", nil)
	if e.HTTPStatus != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", e.HTTPStatus)
	}
	if !e.DiscloseCause {
		t.Error("custom variant should disclose cause")
	}
}

// --- Error Tests ---

func TestNew_UnknownCodeFallsBack(t *testing.T) {
	e := New("NoSuchCode", "boom", nil)
	if e.Code != "NoSuchCode" {
		t.Errorf("code should be preserved, got %s", e.Code)
	}
	if e.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", e.HTTPStatus)
	}
	if e.DiscloseCause {
		t.Error("unknown code must not disclose cause")
	}
}

func TestFrom_KeepsTaxonomyError(t *testing.T) {
	orig := New(CodeEmptyDataset, "The dataset is empty.", errors.New("no data files"))
	wrapped := fmt.Errorf("compute: %w", orig)

	got := From(wrapped)
	if got != orig {
		t.Errorf("expected original error, got %v", got)
	}
	if !Is(wrapped, CodeEmptyDataset) {
		t.Error("Is should find EmptyDatasetError in chain")
	}
}

func TestFrom_UnmappedBecomesUnexpected(t *testing.T) {
	got := From(errors.New("segfault"))
	if got.Code != CodeUnexpected {
		t.Errorf("expected UnexpectedError, got %s", got.Code)
	}
	if got.DiscloseCause {
		t.Error("UnexpectedError must not disclose cause")
	}
	if From(nil) != nil {
		t.Error("From(nil) should be nil")
	}
}

func TestRecord(t *testing.T) {
	e := New(CodeEmptyDataset, "The dataset is empty.", errors.New("no data files"))
	rec := e.Record()

	if rec.Code != "EmptyDatasetError" {
		t.Errorf("unexpected code %s", rec.Code)
	}
	if rec.HTTPStatus != 500 {
		t.Errorf("expected 500, got %d", rec.HTTPStatus)
	}
	if !rec.DiscloseCause {
		t.Error("EmptyDatasetError should disclose cause")
	}
	if rec.Cause != "no data files" {
		t.Errorf("unexpected cause %q", rec.Cause)
	}
}

func TestRecord_PublicHidesCause(t *testing.T) {
	rec := Unexpected(errors.New("db password leaked")).Record()
	pub := rec.Public()

	if pub.Message != domain.GenericErrorMessage {
		t.Errorf("expected generic message, got %q", pub.Message)
	}
	if pub.Cause != "" {
		t.Errorf("cause should be hidden, got %q", pub.Cause)
	}
}
