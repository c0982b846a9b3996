package extract

import (
	"testing"

	"github.com/adascal/voicedesk/pkg/transcript"
)

func TestExtractTechBasicCloseout(t *testing.T) {
	turns := turnsOf(
		transcript.RoleAssistant, "which technician is this?",
		transcript.RoleUser, "this is Martin",
		transcript.RoleAssistant, "what's the RO number?",
		transcript.RoleUser, "ninety one oh two",
		transcript.RoleUser, "front radar and windshield camera, did a static and dynamic, all set",
	)
	rec := ExtractTech(turns, TechCarried{})
	if rec.RO != "9102" {
		t.Errorf("RO = %q, want 9102", rec.RO)
	}
	if rec.TechName != "Martin" {
		t.Errorf("TechName = %q, want Martin", rec.TechName)
	}
	if rec.Status != "Completed" {
		t.Errorf("Status = %q, want Completed", rec.Status)
	}
	if !rec.Passed {
		t.Errorf("Passed = false, want true")
	}
	wantSystems := map[string]bool{"Front Radar": true, "Windshield Camera": true}
	for _, s := range rec.CalibrationsRequired {
		if !wantSystems[s] {
			t.Errorf("unexpected system %q", s)
		}
		delete(wantSystems, s)
	}
	if len(wantSystems) != 0 {
		t.Errorf("missing systems: %v", wantSystems)
	}
	foundStatic, foundDynamic := false, false
	for _, c := range rec.CalibrationsPerformed {
		switch c {
		case "Static Calibration":
			foundStatic = true
		case "Dynamic Calibration":
			foundDynamic = true
		}
	}
	if !foundStatic || !foundDynamic {
		t.Errorf("CalibrationsPerformed = %v, want static and dynamic", rec.CalibrationsPerformed)
	}
}

func TestExtractTechNotCompletedStaysOpen(t *testing.T) {
	turns := turnsOf(
		transcript.RoleUser, "I couldn't finish the front camera, the target kept failing",
	)
	rec := ExtractTech(turns, TechCarried{RO: "5510", TechName: "Jorge"})
	if rec.Status != "" {
		t.Errorf("Status = %q, want open", rec.Status)
	}
	if rec.Passed {
		t.Errorf("Passed = true, want false")
	}
}

func TestExtractTechCarriedFields(t *testing.T) {
	turns := turnsOf(transcript.RoleUser, "all done, it passed")
	rec := ExtractTech(turns, TechCarried{RO: "5510", TechName: "Jorge", Systems: []string{"Front Radar"}, CalType: "static"})
	if rec.RO != "5510" || rec.TechName != "Jorge" {
		t.Fatalf("carried basics lost: %+v", rec)
	}
	if len(rec.CalibrationsRequired) != 1 || rec.CalibrationsRequired[0] != "Front Radar" {
		t.Fatalf("carried systems lost: %v", rec.CalibrationsRequired)
	}
	if len(rec.CalibrationsPerformed) == 0 || rec.CalibrationsPerformed[0] != "Static Calibration" {
		t.Fatalf("carried cal type lost: %v", rec.CalibrationsPerformed)
	}
	if rec.Status != "Completed" {
		t.Fatalf("Status = %q, want Completed", rec.Status)
	}
}

func TestExtractTechAssistanceTopicAsNotes(t *testing.T) {
	turns := turnsOf(
		transcript.RoleUser, "I need help with the target placement for the rear radar",
	)
	rec := ExtractTech(turns, TechCarried{})
	if rec.Notes == "" {
		t.Fatalf("want assistance topic captured as notes")
	}
}
