package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/adascal/voicedesk/pkg/dispatch"
	"github.com/adascal/voicedesk/pkg/normalize"
	"github.com/adascal/voicedesk/pkg/store"
)

// Result is the structured outcome fed back to the speech engine. Every
// failure path sets Say so the assistant always has one sentence to
// speak.
type Result struct {
	OK    bool           `json:"ok"`
	Say   string         `json:"say,omitempty"`
	Needs string         `json:"needs,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
	Error string         `json:"error,omitempty"`
}

// Bridge executes tool calls against the engine and record store.
type Bridge struct {
	Store  store.RecordStore
	Engine *dispatch.Engine
	OEM    OEMLookup
	Logger *slog.Logger
	Now    func() time.Time
}

// OEMLookup answers OEM calibration-requirement queries. Optional.
type OEMLookup interface {
	Lookup(ctx context.Context, query string) (string, error)
}

func (b *Bridge) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func (b *Bridge) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// Execute runs one named tool call. Unknown tools and panics inside a
// handler come back as structured failures, never as a dropped call.
func (b *Bridge) Execute(ctx context.Context, name string, args json.RawMessage) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			b.logger().Error("tool handler panicked", "tool", name, "panic", r)
			res = failure("something went wrong handling that request")
		}
	}()

	var in struct {
		RO       string `json:"ro"`
		When     string `json:"when"`
		Note     string `json:"note"`
		Query    string `json:"query"`
		Override bool   `json:"override"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return failure("I couldn't read that request, please repeat it")
		}
	}
	in.RO = strings.TrimSpace(in.RO)

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "get_job_summary", "lookup_job":
		return b.jobSummary(ctx, in.RO)
	case "check_readiness":
		return b.checkReadiness(ctx, in.RO)
	case "assign_technician":
		return b.assignTechnician(ctx, in.RO)
	case "schedule_job":
		return b.scheduleJob(ctx, in.RO, in.When, in.Override)
	case "reschedule_job":
		return b.rescheduleJob(ctx, in.RO, in.When)
	case "cancel_job":
		return b.cancelJob(ctx, in.RO)
	case "append_note":
		return b.appendNote(ctx, in.RO, in.Note)
	case "oem_lookup":
		return b.oemLookup(ctx, in.Query)
	default:
		b.logger().Warn("unknown tool requested", "tool", name)
		return failure("that action is not available")
	}
}

func (b *Bridge) jobSummary(ctx context.Context, ro string) Result {
	rec, res, ok := b.requireJob(ctx, ro)
	if !ok {
		return res
	}
	return Result{
		OK:  true,
		Say: summarize(rec),
		Data: map[string]any{
			"ro":         rec.RO,
			"shop":       rec.Shop,
			"vehicle":    rec.Vehicle,
			"status":     rec.Status,
			"scheduled":  rec.Scheduled,
			"technician": rec.Technician,
			"notes":      rec.Notes,
		},
	}
}

func (b *Bridge) checkReadiness(ctx context.Context, ro string) Result {
	rec, res, ok := b.requireJob(ctx, ro)
	if !ok {
		return res
	}
	verdict := dispatch.Evaluate(jobState(rec))
	say := "the vehicle is ready for calibration scheduling"
	if !verdict.Ready {
		say = "the vehicle is not ready: " + strings.Join(verdict.Reasons, "; ")
		if verdict.CanScheduleWithOverride {
			say += ". It can still be scheduled if the caller confirms the override"
		}
	}
	return Result{
		OK:  true,
		Say: say,
		Data: map[string]any{
			"ready":                      verdict.Ready,
			"can_schedule_with_override": verdict.CanScheduleWithOverride,
			"needs_attention":            string(verdict.NeedsAttention),
			"reasons":                    verdict.Reasons,
		},
	}
}

func (b *Bridge) assignTechnician(ctx context.Context, ro string) Result {
	rec, res, ok := b.requireJob(ctx, ro)
	if !ok {
		return res
	}
	// A technician is never attached before the job has a schedule.
	if strings.TrimSpace(rec.Scheduled) == "" {
		return Result{
			OK:    false,
			Needs: "scheduled",
			Say:   "I need a scheduled date and time before assigning a technician",
		}
	}
	scheduled, _ := time.Parse("Monday, January 2, 2006 at 3:04 PM", rec.Scheduled)
	decision := b.Engine.Assign(rec.Shop, scheduled, b.now())
	if decision.NoAvailable {
		return Result{
			OK:   false,
			Say:  "no technician is available for that window",
			Data: map[string]any{"reasoning": decision.Reasoning},
		}
	}
	if err := b.Store.Update(ctx, rec.RO, map[string]any{"technician": decision.Technician}); err != nil {
		b.logger().Error("technician update failed", "ro", rec.RO, "err", err)
		return failure("I couldn't save the technician assignment, please try again")
	}
	_ = b.Store.AppendFlow(ctx, rec.RO, fmt.Sprintf("technician %s assigned (%s)", decision.Technician, decision.Reasoning))
	return Result{
		OK:  true,
		Say: fmt.Sprintf("%s is assigned for the %s window", decision.Technician, decision.Window),
		Data: map[string]any{
			"technician": decision.Technician,
			"window":     string(decision.Window),
			"day":        decision.Day,
			"reasoning":  decision.Reasoning,
		},
	}
}

func (b *Bridge) scheduleJob(ctx context.Context, ro, when string, override bool) Result {
	rec, res, ok := b.requireJob(ctx, ro)
	if !ok {
		return res
	}
	verdict := dispatch.Evaluate(jobState(rec))
	if !verdict.Ready {
		if !verdict.CanScheduleWithOverride {
			return Result{
				OK:   false,
				Say:  "that vehicle can't be scheduled yet: " + strings.Join(verdict.Reasons, "; "),
				Data: map[string]any{"reasons": verdict.Reasons},
			}
		}
		if !override {
			return Result{
				OK:    false,
				Needs: "override_confirmation",
				Say:   "the vehicle has open issues; ask the caller to confirm scheduling anyway",
				Data:  map[string]any{"reasons": verdict.Reasons},
			}
		}
	}
	canonical := normalize.Schedule(when, b.now(), b.Logger)
	if err := b.Store.Update(ctx, rec.RO, map[string]any{"scheduled": canonical}); err != nil {
		b.logger().Error("schedule update failed", "ro", rec.RO, "err", err)
		return failure("I couldn't save that appointment, please try again")
	}
	_ = b.Store.AppendFlow(ctx, rec.RO, "scheduled for "+canonical)
	return Result{
		OK:   true,
		Say:  "scheduled for " + canonical,
		Data: map[string]any{"scheduled": canonical},
	}
}

func (b *Bridge) rescheduleJob(ctx context.Context, ro, when string) Result {
	rec, res, ok := b.requireJob(ctx, ro)
	if !ok {
		return res
	}
	if strings.TrimSpace(rec.Scheduled) == "" {
		return Result{
			OK:    false,
			Needs: "scheduled",
			Say:   "that job has no appointment yet; schedule it first",
		}
	}
	canonical := normalize.Schedule(when, b.now(), b.Logger)
	if err := b.Store.Update(ctx, rec.RO, map[string]any{"scheduled": canonical}); err != nil {
		b.logger().Error("reschedule update failed", "ro", rec.RO, "err", err)
		return failure("I couldn't move that appointment, please try again")
	}
	_ = b.Store.AppendFlow(ctx, rec.RO, "rescheduled to "+canonical)
	return Result{
		OK:   true,
		Say:  "moved to " + canonical,
		Data: map[string]any{"scheduled": canonical},
	}
}

func (b *Bridge) cancelJob(ctx context.Context, ro string) Result {
	rec, res, ok := b.requireJob(ctx, ro)
	if !ok {
		return res
	}
	if err := b.Store.Update(ctx, rec.RO, map[string]any{"scheduled": "", "technician": "", "status": "Cancelled"}); err != nil {
		b.logger().Error("cancel update failed", "ro", rec.RO, "err", err)
		return failure("I couldn't cancel that appointment, please try again")
	}
	_ = b.Store.AppendFlow(ctx, rec.RO, "appointment cancelled")
	return Result{OK: true, Say: "the appointment is cancelled"}
}

func (b *Bridge) appendNote(ctx context.Context, ro, note string) Result {
	rec, res, ok := b.requireJob(ctx, ro)
	if !ok {
		return res
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return Result{OK: false, Needs: "note", Say: "what should the note say?"}
	}
	if err := b.Store.AppendFlow(ctx, rec.RO, "tech note: "+note); err != nil {
		b.logger().Error("note append failed", "ro", rec.RO, "err", err)
		return failure("I couldn't save that note, please try again")
	}
	return Result{OK: true, Say: "note added"}
}

func (b *Bridge) oemLookup(ctx context.Context, query string) Result {
	if b.OEM == nil {
		return failure("OEM lookup is not available right now")
	}
	answer, err := b.OEM.Lookup(ctx, query)
	if err != nil {
		b.logger().Error("oem lookup failed", "query", query, "err", err)
		return failure("I couldn't reach the OEM database, please try again")
	}
	return Result{OK: true, Say: answer}
}

// requireJob loads the record behind most tools; a missing RO or store
// error short-circuits with the Result the assistant should speak.
func (b *Bridge) requireJob(ctx context.Context, ro string) (*store.JobRecord, Result, bool) {
	if ro == "" {
		return nil, Result{OK: false, Needs: "ro", Say: "I need the RO number first"}, false
	}
	rec, err := b.Store.Lookup(ctx, ro)
	if err != nil {
		b.logger().Error("record lookup failed", "ro", ro, "err", err)
		return nil, failure("I couldn't reach the job records, please try again"), false
	}
	if rec == nil {
		return nil, Result{OK: false, Error: "not_found", Say: fmt.Sprintf("I don't see an RO %s on file", ro)}, false
	}
	return rec, Result{}, true
}

func failure(say string) Result {
	return Result{OK: false, Error: "tool_failure", Say: say}
}

func summarize(rec *store.JobRecord) string {
	parts := []string{"RO " + rec.RO}
	if rec.Vehicle != "" {
		parts = append(parts, rec.Vehicle)
	}
	if rec.Shop != "" {
		parts = append(parts, "at "+rec.Shop)
	}
	if rec.Status != "" {
		parts = append(parts, "status "+rec.Status)
	}
	if rec.Scheduled != "" {
		parts = append(parts, "scheduled "+rec.Scheduled)
	}
	if rec.Technician != "" {
		parts = append(parts, "technician "+rec.Technician)
	}
	return strings.Join(parts, ", ")
}

func jobState(rec *store.JobRecord) dispatch.JobState {
	return dispatch.JobState{
		DTCs:               rec.DTCs,
		StructuralPending:  rec.StructuralPending,
		BumperPending:      rec.BumperPending,
		AlignmentRequired:  rec.AlignmentRequired,
		AlignmentDone:      rec.AlignmentDone,
		ModulesReplaced:    rec.ModulesReplaced,
		EstimateMismatch:   rec.EstimateMismatch,
		NeedsAttentionFlag: rec.NeedsAttention,
		ShopReportedStatus: rec.Status,
	}
}
