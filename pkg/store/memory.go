package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryStore is the in-memory RecordStore used in tests and local runs.
type MemoryStore struct {
	mu    sync.Mutex
	jobs  map[string]*JobRecord
	slots map[string]bool // tech|date|slot

	UpsertCalls int
	FailWrites  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:  make(map[string]*JobRecord),
		slots: make(map[string]bool),
	}
}

func (m *MemoryStore) Lookup(ctx context.Context, ro string) (*JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[ro]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryStore) Upsert(ctx context.Context, rec JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls++
	if m.FailWrites {
		return fmt.Errorf("simulated write failure")
	}
	if strings.TrimSpace(rec.RO) == "" {
		return fmt.Errorf("upsert requires an RO")
	}
	rec.UpdatedAt = time.Now().UTC()
	existing, ok := m.jobs[rec.RO]
	if ok {
		rec.FlowHistory = append(existing.FlowHistory, rec.FlowHistory...)
	}
	cp := rec
	m.jobs[rec.RO] = &cp
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, ro string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return fmt.Errorf("simulated write failure")
	}
	rec, ok := m.jobs[ro]
	if !ok {
		return fmt.Errorf("update %s: job not found", ro)
	}
	for k, v := range fields {
		switch k {
		case "status":
			rec.Status, _ = v.(string)
		case "technician":
			rec.Technician, _ = v.(string)
		case "scheduled":
			rec.Scheduled, _ = v.(string)
		case "notes":
			rec.Notes, _ = v.(string)
		case "needs_attention":
			rec.NeedsAttention, _ = v.(bool)
		case "calibrations_performed":
			if list, ok := v.([]string); ok {
				rec.CalibrationsPerformed = list
			}
		case "calibrations_required":
			if list, ok := v.([]string); ok {
				rec.CalibrationsRequired = list
			}
		}
	}
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) AppendFlow(ctx context.Context, ro, entry string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[ro]
	if !ok {
		return fmt.Errorf("append flow %s: job not found", ro)
	}
	rec.FlowHistory = append(rec.FlowHistory, entry)
	return nil
}

func (m *MemoryStore) CountForTech(ctx context.Context, tech string, date time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, rec := range m.jobs {
		if strings.EqualFold(rec.Technician, tech) && strings.Contains(rec.Scheduled, dayHuman(date)) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) SlotTaken(ctx context.Context, tech string, date time.Time, slot string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[slotKey(tech, date, slot)], nil
}

// MarkSlot seeds a taken slot for tests.
func (m *MemoryStore) MarkSlot(tech string, date time.Time, slot string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slotKey(tech, date, slot)] = true
}

// Get returns the stored record without copying, for test assertions.
func (m *MemoryStore) Get(ro string) *JobRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[ro]
}

func slotKey(tech string, date time.Time, slot string) string {
	return strings.ToLower(tech) + "|" + date.Format("2006-01-02") + "|" + slot
}

func dayHuman(date time.Time) string {
	return fmt.Sprintf("%s %d, %d", date.Month(), date.Day(), date.Year())
}
