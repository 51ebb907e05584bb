package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRunEventJSONShape(t *testing.T) {
	event := RunEvent{
		RunID:      "4a6c5f2e",
		Trigger:    "watch",
		Status:     "success",
		StartedAt:  time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		DurationMS: 4200,
		Changed:    2,
		Resolved:   1,
		Built:      1,
		Roots: []RootEvent{
			{Root: "thesis", Status: "success", Artifact: "drafts/thesis_20260501120000.pdf", DurationMS: 4100},
		},
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, key := range []string{"run_id", "trigger", "status", "started_at", "duration_ms", "changed", "resolved", "built", "failed", "warnings", "roots"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}

	roots, ok := decoded["roots"].([]any)
	if !ok || len(roots) != 1 {
		t.Fatalf("roots = %v", decoded["roots"])
	}
	root := roots[0].(map[string]any)
	if root["root"] != "thesis" || root["artifact"] != "drafts/thesis_20260501120000.pdf" {
		t.Errorf("root entry = %v", root)
	}
	// Empty error is omitted.
	if _, present := root["error"]; present {
		t.Error("empty error field should be omitted")
	}
}

func TestNilPublisherIsSafe(t *testing.T) {
	var p *Publisher

	if err := p.Publish(RunEvent{RunID: "x"}); err != nil {
		t.Errorf("nil publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("nil close: %v", err)
	}
}

func TestNewPublisherUnreachableServer(t *testing.T) {
	if _, err := NewPublisher("nats://127.0.0.1:1", "texbuilder.runs"); err == nil {
		t.Fatal("expected connection error")
	}
}
