package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/adascal/voicedesk/pkg/dispatch"
	"github.com/adascal/voicedesk/pkg/store"
)

func testBridge(t *testing.T) (*Bridge, *store.MemoryStore) {
	t.Helper()
	m := store.NewMemoryStore()
	engine := dispatch.NewEngine(map[string]dispatch.Routing{
		"autosport": {AllDay: []string{"Robert"}, Afternoon: []string{"Martin"}},
	}, nil)
	b := &Bridge{
		Store:  m,
		Engine: engine,
		Now:    func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) },
	}
	return b, m
}

func seedJob(t *testing.T, m *store.MemoryStore, rec store.JobRecord) {
	t.Helper()
	if err := m.Upsert(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
}

func args(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestBridgeUnknownROSpeaksNotFound(t *testing.T) {
	b, _ := testBridge(t)
	res := b.Execute(context.Background(), "get_job_summary", args(t, map[string]any{"ro": "9999"}))
	if res.OK {
		t.Fatalf("want failure: %+v", res)
	}
	if res.Say == "" {
		t.Fatalf("every failure must carry a spoken sentence")
	}
}

func TestBridgeAssignRequiresSchedule(t *testing.T) {
	b, m := testBridge(t)
	seedJob(t, m, store.JobRecord{RO: "3095", Shop: "AutoSport"})

	res := b.Execute(context.Background(), "assign_technician", args(t, map[string]any{"ro": "3095"}))
	if res.OK {
		t.Fatalf("assignment without schedule succeeded: %+v", res)
	}
	if res.Needs != "scheduled" {
		t.Fatalf("Needs = %q, want scheduled prerequisite", res.Needs)
	}
	if m.Get("3095").Technician != "" {
		t.Fatalf("technician persisted without schedule")
	}
}

func TestBridgeAssignAfterSchedule(t *testing.T) {
	b, m := testBridge(t)
	seedJob(t, m, store.JobRecord{RO: "3095", Shop: "AutoSport", Scheduled: "Monday, March 2, 2026 at 2:00 PM"})

	res := b.Execute(context.Background(), "assign_technician", args(t, map[string]any{"ro": "3095"}))
	if !res.OK {
		t.Fatalf("assignment failed: %+v", res)
	}
	if m.Get("3095").Technician == "" {
		t.Fatalf("technician not persisted")
	}
	if res.Data["window"] != "afternoon" {
		t.Fatalf("window = %v, want afternoon from job schedule", res.Data["window"])
	}
}

func TestBridgeScheduleSoftBlockerNeedsOverride(t *testing.T) {
	b, m := testBridge(t)
	seedJob(t, m, store.JobRecord{RO: "3095", Shop: "AutoSport", EstimateMismatch: true})

	res := b.Execute(context.Background(), "schedule_job", args(t, map[string]any{"ro": "3095", "when": "today at 2 pm"}))
	if res.OK || res.Needs != "override_confirmation" {
		t.Fatalf("want override prompt, got %+v", res)
	}

	res = b.Execute(context.Background(), "schedule_job", args(t, map[string]any{"ro": "3095", "when": "today at 2 pm", "override": true}))
	if !res.OK {
		t.Fatalf("override schedule failed: %+v", res)
	}
	if m.Get("3095").Scheduled != "Monday, March 2, 2026 at 2:00 PM" {
		t.Fatalf("scheduled = %q", m.Get("3095").Scheduled)
	}
}

func TestBridgeScheduleHardBlockerRefusesEvenWithOverride(t *testing.T) {
	b, m := testBridge(t)
	seedJob(t, m, store.JobRecord{RO: "3095", Shop: "AutoSport", DTCs: []string{"U0100"}})

	res := b.Execute(context.Background(), "schedule_job", args(t, map[string]any{"ro": "3095", "when": "today at 2 pm", "override": true}))
	if res.OK {
		t.Fatalf("hard blocker scheduled: %+v", res)
	}
	if m.Get("3095").Scheduled != "" {
		t.Fatalf("schedule persisted past hard blocker")
	}
}

func TestBridgeWriteFailureIsStructured(t *testing.T) {
	b, m := testBridge(t)
	seedJob(t, m, store.JobRecord{RO: "3095", Shop: "AutoSport"})
	m.FailWrites = true

	res := b.Execute(context.Background(), "schedule_job", args(t, map[string]any{"ro": "3095", "when": "today at 2 pm"}))
	if res.OK {
		t.Fatalf("failed write reported success")
	}
	if res.Say == "" || res.Error == "" {
		t.Fatalf("write failure must be structured and speakable: %+v", res)
	}
}

func TestBridgeUnknownTool(t *testing.T) {
	b, _ := testBridge(t)
	res := b.Execute(context.Background(), "launch_rocket", nil)
	if res.OK || res.Say == "" {
		t.Fatalf("unknown tool: %+v", res)
	}
}

func TestBridgeAppendNote(t *testing.T) {
	b, m := testBridge(t)
	seedJob(t, m, store.JobRecord{RO: "5510"})

	res := b.Execute(context.Background(), "append_note", args(t, map[string]any{"ro": "5510", "note": "front camera target worn"}))
	if !res.OK {
		t.Fatalf("append failed: %+v", res)
	}
	rec := m.Get("5510")
	if len(rec.FlowHistory) == 0 {
		t.Fatalf("note not in flow history")
	}
}
