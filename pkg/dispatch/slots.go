package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MaxJobsPerTechPerDay caps a technician's daily load.
const MaxJobsPerTechPerDay = 4

// CapacityReader is the slice of the record store the slot suggester
// needs.
type CapacityReader interface {
	CountForTech(ctx context.Context, tech string, date time.Time) (int, error)
	SlotTaken(ctx context.Context, tech string, date time.Time, slot string) (bool, error)
}

// Candidate slots in preference order: mornings first.
var slotOrder = []string{
	"9:00 AM", "10:00 AM", "11:00 AM",
	"1:00 PM", "2:00 PM", "3:00 PM", "4:00 PM",
}

// defaultSlot is proposed when every candidate reads as taken but the
// daily cap is not reached; the count is authoritative, the per-slot
// reads are best-effort.
const defaultSlot = "12:00 PM"

// SlotSuggestion is the outcome of one time-slot request.
type SlotSuggestion struct {
	Slot   string
	AtCap  bool
	Reason string
}

// SuggestSlot proposes the first free slot for a technician on a date,
// refusing at the daily cap. Technicians restricted out of mornings get
// the afternoon candidates first.
func (e *Engine) SuggestSlot(ctx context.Context, store CapacityReader, tech string, date time.Time) (SlotSuggestion, error) {
	count, err := store.CountForTech(ctx, tech, date)
	if err != nil {
		return SlotSuggestion{}, fmt.Errorf("capacity query for %s: %w", tech, err)
	}
	if count >= MaxJobsPerTechPerDay {
		return SlotSuggestion{
			AtCap:  true,
			Reason: fmt.Sprintf("%s already has %d jobs on %s", tech, count, date.Format("January 2")),
		}, nil
	}

	order := slotOrder
	if !e.Eligible(tech, WindowMorning, date.Weekday()) {
		order = afternoonFirst(slotOrder)
	}

	for _, slot := range order {
		taken, err := store.SlotTaken(ctx, tech, date, slot)
		if err != nil {
			return SlotSuggestion{}, fmt.Errorf("slot lookup for %s %s: %w", tech, slot, err)
		}
		if !taken {
			return SlotSuggestion{
				Slot:   slot,
				Reason: fmt.Sprintf("first open slot for %s (%d of %d jobs booked)", tech, count, MaxJobsPerTechPerDay),
			}, nil
		}
	}

	return SlotSuggestion{
		Slot:   defaultSlot,
		Reason: fmt.Sprintf("all listed slots read as taken but %s is under the daily cap", tech),
	}, nil
}

func afternoonFirst(slots []string) []string {
	var morning, afternoon []string
	for _, s := range slots {
		if strings.HasSuffix(s, "AM") {
			morning = append(morning, s)
		} else {
			afternoon = append(afternoon, s)
		}
	}
	return append(afternoon, morning...)
}
