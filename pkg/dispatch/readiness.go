package dispatch

import (
	"fmt"
	"strings"
)

// AttentionReason classifies why a job needs human attention.
type AttentionReason string

const (
	AttentionBlockerDTC       AttentionReason = "blocker_dtc"
	AttentionStructural       AttentionReason = "structural_repair"
	AttentionBumper           AttentionReason = "bumper_not_installed"
	AttentionAlignment        AttentionReason = "alignment_pending"
	AttentionModuleReplace    AttentionReason = "module_replacement_open"
	AttentionEstimateMismatch AttentionReason = "estimate_mismatch"
	AttentionFlagged          AttentionReason = "needs_attention"
	AttentionShopNotReady     AttentionReason = "shop_reported_not_ready"
)

// JobState is the readiness-relevant slice of a record-store row.
// Blocker fields are pending-shaped: the zero value means "no known
// blocker", so a sparsely filled row is not blocked by omission.
type JobState struct {
	DTCs               []string
	StructuralPending  bool
	BumperPending      bool
	AlignmentRequired  bool
	AlignmentDone      bool
	ModulesReplaced    []string // open module replacements
	EstimateMismatch   bool
	NeedsAttentionFlag bool
	ShopReportedStatus string // "ready" | "not ready" | ""
}

// ReadinessResult is the pure readiness verdict for a job.
type ReadinessResult struct {
	Ready                   bool
	CanScheduleWithOverride bool
	NeedsAttention          AttentionReason
	Reasons                 []string
}

// Codes whose presence blocks calibration outright until cleared.
var blockerDTCs = map[string]bool{
	"U0100": true, "U0126": true, "U0131": true, "U0235": true,
	"C1A67": true, "B1342": true, "U3000": true, "C2100": true,
}

// Evaluate applies blockers in severity order: hard blockers deny
// override; soft blockers allow scheduling behind an explicit override
// confirmation; a shop-reported "not ready" is hard.
func Evaluate(job JobState) ReadinessResult {
	res := ReadinessResult{Ready: true, CanScheduleWithOverride: true}

	hard := func(reason AttentionReason, msg string) {
		res.Ready = false
		res.CanScheduleWithOverride = false
		if res.NeedsAttention == "" {
			res.NeedsAttention = reason
		}
		res.Reasons = append(res.Reasons, msg)
	}
	soft := func(reason AttentionReason, msg string) {
		res.Ready = false
		if res.NeedsAttention == "" {
			res.NeedsAttention = reason
		}
		res.Reasons = append(res.Reasons, msg)
	}

	for _, code := range job.DTCs {
		code = strings.ToUpper(strings.TrimSpace(code))
		if blockerDTCs[code] {
			hard(AttentionBlockerDTC, fmt.Sprintf("blocker DTC %s present", code))
		}
	}
	if job.StructuralPending {
		hard(AttentionStructural, "structural repairs pending")
	}
	if job.BumperPending {
		hard(AttentionBumper, "bumper not fully installed")
	}
	if job.AlignmentRequired && !job.AlignmentDone {
		hard(AttentionAlignment, "alignment required but not done")
	}
	for _, module := range job.ModulesReplaced {
		if strings.TrimSpace(module) != "" {
			hard(AttentionModuleReplace, fmt.Sprintf("module replacement not completed: %s", module))
		}
	}
	if strings.EqualFold(strings.TrimSpace(job.ShopReportedStatus), "not ready") {
		hard(AttentionShopNotReady, "shop reports vehicle not ready")
	}

	if job.EstimateMismatch {
		soft(AttentionEstimateMismatch, "estimate does not match repair report")
	}
	if job.NeedsAttentionFlag {
		soft(AttentionFlagged, "job is flagged needs attention")
	}

	if res.Ready {
		res.Reasons = append(res.Reasons, "all readiness checks passed")
	}
	return res
}
