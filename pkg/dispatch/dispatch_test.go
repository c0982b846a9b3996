package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"
)

func testEngine() *Engine {
	routes := map[string]Routing{
		"autosport": {
			AllDay:    []string{"Robert"},
			Afternoon: []string{"Martin"},
			Fallback:  []string{"Danny"},
		},
		"caliber collision": {
			AllDay:   []string{"Danny", "Robert"},
			Fallback: []string{"Martin"},
		},
	}
	restrictions := []Restriction{{
		Technician: "Martin",
		Window:     WindowMorning,
		ExemptDays: map[time.Weekday]bool{time.Saturday: true, time.Sunday: true},
	}}
	return NewEngine(routes, restrictions)
}

// Monday March 2, 2026.
func monday(hour int) time.Time {
	return time.Date(2026, 3, 2, hour, 0, 0, 0, time.UTC)
}

func TestWindowFor(t *testing.T) {
	if w := WindowFor(monday(8)); w != WindowMorning {
		t.Errorf("08:00 = %q", w)
	}
	if w := WindowFor(monday(12)); w != WindowAfternoon {
		t.Errorf("12:00 = %q", w)
	}
	if w := WindowFor(monday(17)); w != WindowOffHours {
		t.Errorf("17:00 = %q", w)
	}
	if w := WindowFor(monday(3)); w != WindowOffHours {
		t.Errorf("03:00 = %q", w)
	}
}

func TestAssignAfternoonOnlyTechNeverTakesMorning(t *testing.T) {
	e := testEngine()
	// Martin is listed only in AutoSport's afternoon bucket, and is
	// restricted out of weekday mornings anyway.
	for i := 0; i < 6; i++ {
		d := e.Assign("AutoSport", monday(10), monday(10))
		if d.Technician == "Martin" {
			t.Fatalf("morning assignment returned Martin: %+v", d)
		}
		if d.NoAvailable {
			t.Fatalf("expected a technician, got none: %+v", d)
		}
	}
	// A 2 PM slot the same day may return Martin.
	sawMartin := false
	for i := 0; i < 6; i++ {
		d := e.Assign("AutoSport", monday(14), monday(14))
		if d.Technician == "Martin" {
			sawMartin = true
		}
	}
	if !sawMartin {
		t.Fatalf("afternoon rotation never offered Martin")
	}
}

func TestAssignFallsBackThenReportsNone(t *testing.T) {
	e := NewEngine(map[string]Routing{
		"autosport": {Afternoon: []string{"Martin"}, Fallback: []string{"Martin"}},
	}, []Restriction{{Technician: "Martin", Window: WindowAfternoon}})

	d := e.Assign("AutoSport", monday(14), monday(14))
	if !d.NoAvailable {
		t.Fatalf("want no-technician, got %+v", d)
	}
	if d.Reasoning == "" {
		t.Fatalf("want human-readable reasoning")
	}
}

func TestAssignUnknownShop(t *testing.T) {
	e := testEngine()
	d := e.Assign("Unknown Body Shop", monday(10), monday(10))
	if !d.NoAvailable {
		t.Fatalf("want no-technician for unrouted shop, got %+v", d)
	}
}

func TestAssignUsesWallClockWhenUnscheduled(t *testing.T) {
	e := testEngine()
	d := e.Assign("AutoSport", time.Time{}, monday(14))
	if d.Window != WindowAfternoon {
		t.Fatalf("window = %q, want afternoon from wall clock", d.Window)
	}
}

func TestRestrictionExemptDay(t *testing.T) {
	e := testEngine()
	saturday := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	if !e.Eligible("Martin", WindowMorning, saturday.Weekday()) {
		t.Fatalf("Martin should be eligible Saturday mornings")
	}
	if e.Eligible("Martin", WindowMorning, time.Monday) {
		t.Fatalf("Martin must not be eligible weekday mornings")
	}
}

func TestAssignConcurrent(t *testing.T) {
	e := testEngine()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				d := e.Assign("caliber collision", time.Time{}, monday(10))
				if d.NoAvailable {
					t.Error("no technician under concurrent assignment")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestEvaluateBlockerDTCDeniesOverride(t *testing.T) {
	res := Evaluate(JobState{
		DTCs:               []string{"u0100"},
		NeedsAttentionFlag: true, // soft flag must not soften the verdict
	})
	if res.Ready || res.CanScheduleWithOverride {
		t.Fatalf("blocker DTC: %+v", res)
	}
	if res.NeedsAttention != AttentionBlockerDTC {
		t.Fatalf("NeedsAttention = %q", res.NeedsAttention)
	}
	if len(res.Reasons) == 0 {
		t.Fatalf("want reasons list")
	}
}

func TestEvaluateSoftBlockerAllowsOverride(t *testing.T) {
	res := Evaluate(JobState{EstimateMismatch: true})
	if res.Ready {
		t.Fatalf("soft blocker left job ready")
	}
	if !res.CanScheduleWithOverride {
		t.Fatalf("soft blocker must permit override scheduling")
	}
}

func TestEvaluateShopNotReadyIsHard(t *testing.T) {
	res := Evaluate(JobState{ShopReportedStatus: "not ready"})
	if res.Ready || res.CanScheduleWithOverride {
		t.Fatalf("shop not-ready must be hard: %+v", res)
	}
}

func TestEvaluateCleanJob(t *testing.T) {
	res := Evaluate(JobState{AlignmentRequired: true, AlignmentDone: true})
	if !res.Ready || !res.CanScheduleWithOverride {
		t.Fatalf("clean job not ready: %+v", res)
	}
}

func TestEvaluateZeroValueJobIsReady(t *testing.T) {
	res := Evaluate(JobState{})
	if !res.Ready || !res.CanScheduleWithOverride {
		t.Fatalf("sparse row must not be blocked by omission: %+v", res)
	}
}

func TestEvaluateBumperPendingIsHard(t *testing.T) {
	res := Evaluate(JobState{BumperPending: true})
	if res.Ready || res.CanScheduleWithOverride {
		t.Fatalf("pending bumper must be hard: %+v", res)
	}
	if res.NeedsAttention != AttentionBumper {
		t.Fatalf("NeedsAttention = %q", res.NeedsAttention)
	}
}

type fakeCapacity struct {
	count int
	taken map[string]bool
}

func (f *fakeCapacity) CountForTech(ctx context.Context, tech string, date time.Time) (int, error) {
	return f.count, nil
}

func (f *fakeCapacity) SlotTaken(ctx context.Context, tech string, date time.Time, slot string) (bool, error) {
	return f.taken[slot], nil
}

func TestSuggestSlotFirstOpen(t *testing.T) {
	e := testEngine()
	store := &fakeCapacity{count: 1, taken: map[string]bool{"9:00 AM": true}}
	s, err := e.SuggestSlot(context.Background(), store, "Robert", monday(0))
	if err != nil {
		t.Fatal(err)
	}
	if s.Slot != "10:00 AM" {
		t.Fatalf("slot = %q, want 10:00 AM", s.Slot)
	}
}

func TestSuggestSlotAtCap(t *testing.T) {
	e := testEngine()
	store := &fakeCapacity{count: MaxJobsPerTechPerDay}
	s, err := e.SuggestSlot(context.Background(), store, "Robert", monday(0))
	if err != nil {
		t.Fatal(err)
	}
	if !s.AtCap || s.Slot != "" {
		t.Fatalf("want at-cap refusal, got %+v", s)
	}
}

func TestSuggestSlotRestrictedTechGetsAfternoonFirst(t *testing.T) {
	e := testEngine()
	store := &fakeCapacity{count: 0, taken: map[string]bool{}}
	s, err := e.SuggestSlot(context.Background(), store, "Martin", monday(0))
	if err != nil {
		t.Fatal(err)
	}
	if s.Slot != "1:00 PM" {
		t.Fatalf("slot = %q, want 1:00 PM first for restricted tech", s.Slot)
	}
}

func TestSuggestSlotAllTakenUnderCap(t *testing.T) {
	e := testEngine()
	taken := map[string]bool{}
	for _, s := range slotOrder {
		taken[s] = true
	}
	store := &fakeCapacity{count: 2, taken: taken}
	s, err := e.SuggestSlot(context.Background(), store, "Robert", monday(0))
	if err != nil {
		t.Fatal(err)
	}
	if s.Slot != defaultSlot {
		t.Fatalf("slot = %q, want mid-day default", s.Slot)
	}
}
