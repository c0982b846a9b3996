package session

import (
	"encoding/json"
	"fmt"

	"github.com/adascal/voicedesk/pkg/extract"
	"github.com/adascal/voicedesk/pkg/lang"
	"github.com/adascal/voicedesk/pkg/normalize"
	"github.com/adascal/voicedesk/pkg/store"
	"github.com/adascal/voicedesk/pkg/transcript"
)

// processUserTurn runs on the serialized worker: noise filter, then
// language, then goodbye/transfer short-circuits, then the kind flow.
func (s *CallSession) processUserTurn(text string) {
	if extract.IsNoise(text) {
		return
	}

	s.mu.Lock()
	detected, switched := s.lock.Observe(text)
	closing := s.closing
	s.mu.Unlock()
	if closing {
		return
	}
	if switched {
		s.log.Info("language switched", "language", string(detected))
		if err := s.deps.Engine.UpdateSession(s.sessionConfig()); err != nil {
			s.log.Warn("language reconfigure failed", "error", err)
		}
		s.createResponse(switchLanguageFor(detected))
		return
	}

	if extract.WantsTransfer(text) {
		s.mu.Lock()
		s.transfer = true
		s.mu.Unlock()
		s.log.Info("transfer requested")
		s.createResponse(transferFor(s.currentLang()))
		return
	}
	// "nothing else" right after the notes question is the answer to
	// that question, not a goodbye.
	if extract.IsGoodbye(text) && !s.answersNotesQuestion(text) {
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()
		s.createResponse(goodbyeFor(s.currentLang()))
		return
	}

	if s.Kind == KindTech {
		s.techTurn(text)
		return
	}
	s.opsTurn(text)
}

func (s *CallSession) answersNotesQuestion(text string) bool {
	if !extract.IsNoNotes(text) {
		return false
	}
	s.mu.Lock()
	turns := s.transcript.Turns()
	s.mu.Unlock()
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == transcript.RoleAssistant {
			return extract.IsNotesQuestion(turns[i].Text)
		}
	}
	return false
}

func (s *CallSession) currentLang() lang.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock.Current()
}

func (s *CallSession) opsTurn(text string) {
	s.mu.Lock()
	override := s.ops.overridePending
	pendingRO, pendingWhen := s.ops.pendingRO, s.ops.pendingWhen
	turns := s.transcript.Turns()
	s.mu.Unlock()

	if override && extract.IsConfirmation(text) {
		s.mu.Lock()
		s.ops = opsState{}
		s.mu.Unlock()
		args, _ := json.Marshal(map[string]any{"ro": pendingRO, "when": pendingWhen, "override": true})
		res := s.deps.Bridge.Execute(s.ctx, "schedule_job", args)
		s.createResponse("Tell the caller: " + res.Say)
		return
	}

	if !extract.IsConfirmation(text) {
		return
	}
	if transcript.LastAssistantMatching(turns, extract.IsOpsSummary) == "" {
		return
	}
	s.persistOps(turns)
}

// persistOps writes exactly one record per RO per call.
func (s *CallSession) persistOps(turns []transcript.Turn) {
	s.mu.Lock()
	carried := s.carried
	s.mu.Unlock()

	rec := extract.ExtractOps(turns, carried)
	if rec.RO == "" {
		s.createResponse("Tell the caller you still need a valid RO number before logging, and ask for it.")
		return
	}
	s.mu.Lock()
	dup := s.logged[rec.RO]
	s.mu.Unlock()
	if dup {
		s.log.Info("duplicate confirmation ignored", "ro", rec.RO)
		s.createResponse(fmt.Sprintf("Tell the caller RO %s is already logged on this call, and ask whether there is another vehicle.", rec.RO))
		return
	}

	now := s.now()
	shop := normalize.Shop(rec.Shop)
	scheduled := normalize.Schedule(rec.ScheduledRaw, now, s.log)
	notes := normalize.Notes(rec.Notes, rec.CallerName)
	job := store.JobRecord{
		RO:         rec.RO,
		Shop:       shop,
		Vehicle:    rec.Vehicle,
		VINSuffix:  rec.VINSuffix,
		Status:     rec.Status,
		Scheduled:  scheduled,
		Notes:      notes,
		CallerName: rec.CallerName,
		UpdatedAt:  now,
	}
	if err := s.deps.Store.Upsert(s.ctx, job); err != nil {
		s.log.Error("record write failed", "ro", rec.RO, "error", err)
		// cancel any speech in flight before reporting the failure so
		// the assistant never claims success after a failed write
		s.mu.Lock()
		active := s.responseActive
		s.mu.Unlock()
		if active {
			_ = s.deps.Engine.CancelResponse()
		}
		s.createResponse("Tell the caller the record could not be saved, and ask them to confirm again in a moment.")
		return
	}
	_ = s.deps.Store.AppendFlow(s.ctx, rec.RO, "intake logged via ops call")

	s.mu.Lock()
	s.logged[rec.RO] = true
	s.carried = extract.Carried{Shop: shop, Scheduled: scheduled}
	s.mu.Unlock()
	s.log.Info("record logged", "ro", rec.RO, "shop", shop, "scheduled", scheduled)
	s.createResponse(fmt.Sprintf("Tell the caller RO %s is logged for %s, and ask whether there is another vehicle to register.", rec.RO, scheduled))
}

func (s *CallSession) techTurn(text string) {
	s.mu.Lock()
	turns := s.transcript.Turns()
	carried := s.tech.carried
	s.mu.Unlock()

	rec := extract.ExtractTech(turns, carried)

	s.mu.Lock()
	if rec.RO != "" {
		s.tech.carried.RO = rec.RO
	}
	if rec.TechName != "" {
		s.tech.carried.TechName = rec.TechName
	}
	s.tech.carried.Systems = rec.CalibrationsRequired
	s.tech.passed = rec.Passed
	haveRow := s.tech.row != nil
	ro := s.tech.carried.RO
	s.mu.Unlock()

	// first time the RO is known, fetch the row and read it back
	if ro != "" && !haveRow {
		row, err := s.deps.Store.Lookup(s.ctx, ro)
		if err != nil {
			s.log.Error("job lookup failed", "ro", ro, "error", err)
			s.createResponse("Tell the caller you can't reach the job records right now, and ask them to try again shortly.")
			return
		}
		if row == nil {
			s.createResponse(fmt.Sprintf("Tell the caller no job was found for RO %s, and ask them to re-check the number.", ro))
			return
		}
		s.mu.Lock()
		s.tech.row = row
		s.tech.askedForInfo = true
		s.mu.Unlock()
		s.createResponse(fmt.Sprintf(
			"Read back the job to the caller: RO %s, %s at %s, status %s, scheduled %s. Then ask what they need.",
			row.RO, orUnknown(row.Vehicle), orUnknown(row.Shop), orUnknown(row.Status), orUnknown(row.Scheduled)))
		return
	}

	if extract.IsConfirmation(text) && transcript.LastAssistantMatching(turns, extract.IsTechCloseout) != "" {
		s.persistTech(rec)
	}
}

// persistTech closes out the current job, once per RO per call.
func (s *CallSession) persistTech(rec extract.TechRecord) {
	if rec.RO == "" {
		s.createResponse("Tell the caller you need the RO number before closing anything out.")
		return
	}
	s.mu.Lock()
	dup := s.logged[rec.RO]
	s.mu.Unlock()
	if dup {
		s.log.Info("duplicate close-out ignored", "ro", rec.RO)
		s.createResponse(fmt.Sprintf("Tell the caller RO %s is already closed out on this call.", rec.RO))
		return
	}

	fields := map[string]any{
		"status":                 "Completed",
		"calibrations_performed": rec.CalibrationsPerformed,
	}
	if len(rec.CalibrationsRequired) > 0 {
		fields["calibrations_required"] = rec.CalibrationsRequired
	}
	if rec.TechName != "" {
		fields["technician"] = rec.TechName
	}
	if rec.Notes != "" {
		fields["notes"] = normalize.Notes(rec.Notes, rec.TechName)
	}
	if !rec.Passed {
		fields["needs_attention"] = true
	}
	if err := s.deps.Store.Update(s.ctx, rec.RO, fields); err != nil {
		s.log.Error("close-out write failed", "ro", rec.RO, "error", err)
		s.mu.Lock()
		active := s.responseActive
		s.mu.Unlock()
		if active {
			_ = s.deps.Engine.CancelResponse()
		}
		s.createResponse("Tell the caller the close-out could not be saved, and ask them to confirm again in a moment.")
		return
	}
	by := rec.TechName
	if by == "" {
		by = "technician"
	}
	_ = s.deps.Store.AppendFlow(s.ctx, rec.RO, "closed out by "+by)

	s.mu.Lock()
	s.logged[rec.RO] = true
	s.mu.Unlock()
	s.log.Info("job closed out", "ro", rec.RO, "technician", rec.TechName, "passed", rec.Passed)
	s.createResponse(fmt.Sprintf("Tell the caller RO %s is marked completed, and ask if there is anything else.", rec.RO))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
