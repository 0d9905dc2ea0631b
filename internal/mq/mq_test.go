package mq

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/dspreview/internal/domain"
)

// --- Topology Tests ---

func TestQueueFor(t *testing.T) {
	cases := map[string]string{
		"/splits":     "jobs.waiting.splits",
		"/first-rows": "jobs.waiting.first-rows",
		"/a/b":        "jobs.waiting.a.b",
		"":            "jobs.waiting",
	}
	for in, want := range cases {
		if got := QueueFor(in); got != want {
			t.Errorf("QueueFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTopologyInfo(t *testing.T) {
	info := TopologyInfo([]string{"/splits", "/first-rows"})
	if !strings.Contains(info, "├── jobs.waiting.splits [routing: /splits]") {
		t.Errorf("missing splits queue in:\n%s", info)
	}
	if !strings.Contains(info, "└── jobs.waiting.first-rows [routing: /first-rows]") {
		t.Errorf("missing first-rows queue in:\n%s", info)
	}
}

// --- Message Tests ---

func TestMessage_JobWaiting(t *testing.T) {
	id := uuid.New()
	key := domain.JobKey{Type: "/first-rows", Dataset: "squad", Config: "plain_text", Split: "train"}

	msg, err := NewMessage(MessageTypeJobWaiting, JobWaitingPayload{JobID: id, Key: key})
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	if msg.ID == "" || msg.Timestamp.IsZero() {
		t.Error("message id and timestamp should be set")
	}

	body := []byte(`{"id":"m1","type":"job.waiting","payload":{"job_id":"` + id.String() +
		`","key":{"job_type":"/first-rows","dataset":"squad","config":"plain_text","split":"train"}}}`)

	decoded, err := DecodeMessage(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	payload, err := ParsePayload[JobWaitingPayload](decoded)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if payload.JobID != id || payload.Key != key {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestDecodeMessage_Malformed(t *testing.T) {
	if _, err := DecodeMessage([]byte(`{`)); err == nil {
		t.Error("expected error for invalid json")
	}
	if _, err := DecodeMessage([]byte(`{"id":"x"}`)); err == nil {
		t.Error("expected error for missing type")
	}
}
