package extract

import (
	"regexp"
	"strings"

	"github.com/adascal/voicedesk/pkg/transcript"
)

// TechRecord is the candidate close-out record for a technician call.
type TechRecord struct {
	RO                    string
	TechName              string
	CalibrationsRequired  []string
	CalibrationsPerformed []string
	Status                string // "Completed" | ""
	Notes                 string
	Passed                bool
}

var (
	techQuestionRe  = regexp.MustCompile(`(?i)which\s+(?:tech|technician)|(?:tech|technician)\s+(?:name|is this)|who(?:'s|\s+is)\s+(?:this|calling)`)
	techNotesRe     = regexp.MustCompile(`(?i)any\s+notes\s+(?:for|on)\s+the\s+(?:job|ro|vehicle)|notes\s+to\s+add|alguna\s+nota`)
	calibSystemRe   = regexp.MustCompile(`(?i)\b(front (?:radar|camera)|rear (?:radar|camera)|windshield camera|forward camera|blind spot(?: monitor)?|lane (?:keep|departure)|surround view|360 camera|adaptive cruise|parking sensors?|lidar)\b`)
	calibTypeRe     = regexp.MustCompile(`(?i)\b(static|dynamic)\b(?:\s+(?:and|y)\s+(static|dynamic))?`)
	completedRe     = regexp.MustCompile(`(?i)\b(?:all set|completed?|finished|done with (?:it|the job|this one)|wrapped up|passed|good to go|terminado|terminada|completado|ya termine)\b`)
	notCompletedRe  = regexp.MustCompile(`(?i)\b(?:not (?:done|complete|completed|finished)|couldn'?t (?:finish|complete)|failed|needs? (?:a\s+)?(?:re-?do|another)|still working|no (?:pude|termine))\b`)
	passFailRe      = regexp.MustCompile(`(?i)\b(?:did not pass|didn'?t pass|failed|fail(?:ing)?)\b`)
	assistanceRe    = regexp.MustCompile(`(?i)\b(?:need (?:help|assistance) with|issue with|problem with|question about|trouble with)\s+([^.?!\n]+)`)
	summaryMarkerT  = regexp.MustCompile(`(?i)\b(?:ro|job)\s*#?\s*\d{3,}.*\b(?:completed|closed out|marked)\b`)
	summaryTechRORe = regexp.MustCompile(`(?i)\b(?:ro|job)\s*#?\s*(\d{3,})`)
)

// IsTechCloseout reports whether an assistant utterance is the
// close-out summary read back before marking a job completed.
func IsTechCloseout(s string) bool { return summaryMarkerT.MatchString(s) }

// TechCarried holds fields the session already established for the
// current job before close-out.
type TechCarried struct {
	RO       string
	TechName string
	Systems  []string
	CalType  string
}

// ExtractTech builds the best-effort technician record from the full
// transcript plus the session-tracked fields.
func ExtractTech(turns []transcript.Turn, carried TechCarried) TechRecord {
	rec := TechRecord{
		RO:       carried.RO,
		TechName: carried.TechName,
	}

	userText := transcript.UserText(turns)

	// Close-out summaries follow the same priority rule as ops
	// confirmations: the assistant's echo wins.
	if summary := transcript.LastAssistantMatching(turns, summaryMarkerT.MatchString); summary != "" {
		if m := summaryTechRORe.FindStringSubmatch(summary); m != nil && IsValidRO(m[1], rec.TechName) {
			rec.RO = CleanRO(m[1])
		}
		rec.Status = "Completed"
	}

	if rec.RO == "" {
		if ans := transcript.AnswerTo(turns, roQuestionRe.MatchString); ans != "" {
			if ro := roFromText(ans, rec.TechName); ro != "" {
				rec.RO = ro
			} else if candidate := SpokenDigitsOr(StripFiller(ans)); IsValidRO(candidate, rec.TechName) {
				rec.RO = candidate
			}
		}
	}
	if rec.RO == "" {
		rec.RO = roFromText(userText, rec.TechName)
	}

	if rec.TechName == "" {
		if ans := transcript.AnswerTo(turns, techQuestionRe.MatchString); ans != "" {
			candidate := nameFromAnswer(ans)
			if ValidCallerName(candidate) && len(strings.Fields(candidate)) <= 3 {
				rec.TechName = titleCase(candidate)
			}
		}
	}

	rec.CalibrationsRequired = append(rec.CalibrationsRequired, carried.Systems...)
	for _, m := range calibSystemRe.FindAllStringSubmatch(userText, -1) {
		rec.CalibrationsRequired = appendUnique(rec.CalibrationsRequired, titleCase(m[1]))
	}

	if carried.CalType != "" {
		rec.CalibrationsPerformed = appendUnique(rec.CalibrationsPerformed, titleCase(carried.CalType)+" Calibration")
	}
	for _, m := range calibTypeRe.FindAllStringSubmatch(userText, -1) {
		rec.CalibrationsPerformed = appendUnique(rec.CalibrationsPerformed, titleCase(m[1])+" Calibration")
		if m[2] != "" {
			rec.CalibrationsPerformed = appendUnique(rec.CalibrationsPerformed, titleCase(m[2])+" Calibration")
		}
	}

	if rec.Status == "" {
		if notCompletedRe.MatchString(userText) {
			rec.Status = ""
		} else if completedRe.MatchString(foldSpanish(strings.ToLower(userText))) {
			rec.Status = "Completed"
		}
	}
	rec.Passed = rec.Status == "Completed" && !passFailRe.MatchString(userText)

	rec.Notes = techNotes(turns, userText)
	return rec
}

func techNotes(turns []transcript.Turn, userText string) string {
	if ans := notesFromAnswer(transcript.AnswerTo(turns, techNotesRe.MatchString)); ans != "" {
		return ans
	}
	if m := assistanceRe.FindStringSubmatch(userText); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func appendUnique(list []string, v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return list
	}
	for _, existing := range list {
		if strings.EqualFold(existing, v) {
			return list
		}
	}
	return append(list, v)
}
