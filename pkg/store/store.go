// Package store defines the external record-store contract the call
// assistants persist to, plus the hosted HTTP implementation and an
// in-memory one for tests. The store's own format is opaque; only this
// read/write surface matters.
package store

import (
	"context"
	"time"
)

// JobRecord is one repair order's row as the assistants see it.
type JobRecord struct {
	RO                    string    `json:"ro"`
	Shop                  string    `json:"shop,omitempty"`
	Vehicle               string    `json:"vehicle,omitempty"`
	VINSuffix             string    `json:"vin_suffix,omitempty"`
	Status                string    `json:"status,omitempty"`
	Scheduled             string    `json:"scheduled,omitempty"`
	Technician            string    `json:"technician,omitempty"`
	Notes                 string    `json:"notes,omitempty"`
	CallerName            string    `json:"caller_name,omitempty"`
	DTCs                  []string  `json:"dtcs,omitempty"`
	StructuralPending     bool      `json:"structural_pending,omitempty"`
	BumperPending         bool      `json:"bumper_pending,omitempty"`
	AlignmentRequired     bool      `json:"alignment_required,omitempty"`
	AlignmentDone         bool      `json:"alignment_done,omitempty"`
	ModulesReplaced       []string  `json:"modules_replaced,omitempty"`
	EstimateMismatch      bool      `json:"estimate_mismatch,omitempty"`
	NeedsAttention        bool      `json:"needs_attention,omitempty"`
	CalibrationsRequired  []string  `json:"calibrations_required,omitempty"`
	CalibrationsPerformed []string  `json:"calibrations_performed,omitempty"`
	FlowHistory           []string  `json:"flow_history,omitempty"`
	UpdatedAt             time.Time `json:"updated_at,omitempty"`
}

// RecordStore is the read/write contract. Lookup returns (nil, nil) for
// an absent RO; Upsert is idempotent by RO; AppendFlow never rewrites
// history.
type RecordStore interface {
	Lookup(ctx context.Context, ro string) (*JobRecord, error)
	Upsert(ctx context.Context, rec JobRecord) error
	Update(ctx context.Context, ro string, fields map[string]any) error
	AppendFlow(ctx context.Context, ro, entry string) error
	CountForTech(ctx context.Context, tech string, date time.Time) (int, error)
	SlotTaken(ctx context.Context, tech string, date time.Time, slot string) (bool, error)
}
