// Package extract derives structured job records from call transcripts.
// Extraction is layered by source reliability: the assistant's own
// confirmation summary outranks a direct answer, which outranks an
// explicit correction, which outranks a whole-transcript scan.
package extract

import (
	"regexp"
	"strings"

	"github.com/adascal/voicedesk/pkg/transcript"
)

// OpsRecord is the candidate record for a shop intake/scheduling call,
// pre-normalization.
type OpsRecord struct {
	RO           string
	Shop         string
	Vehicle      string
	VINSuffix    string
	Status       string // "ready" | "not ready" | ""
	ScheduledRaw string
	Notes        string
	CallerName   string
}

// Carried holds fields that persist across multiple vehicles in one call.
type Carried struct {
	Shop      string
	Scheduled string
}

var (
	summaryMarkerRe = regexp.MustCompile(`(?i)\bro\s*#?\s*\d{3,}`)
	summaryRORe     = regexp.MustCompile(`(?i)\bro\s*#?\s*(\d{3,})`)
	summaryShopRe   = regexp.MustCompile(`(?i)\bshop\s+(?:is\s+|name\s+is\s+)?([A-Za-z0-9&' ]+?)(?:[,.]|$)`)
	summaryVINRe    = regexp.MustCompile(`(?i)\bvin\s+ending\s*(?:in|with)?\s*([0-9A-Za-z]{2,6})`)
	summarySchedRe  = regexp.MustCompile(`(?i)\bscheduled\s+(?:for\s+)?([^,.]+(?:at\s+[^,.]+)?)`)
	summaryNotesRe  = regexp.MustCompile(`(?i)\bnotes?\s*[:]?\s+([^.]+)\.?`)

	roQuestionRe    = regexp.MustCompile(`(?i)\b(?:ro|po|repair order|order)\s*(?:number|numero|#)|\bnumero de orden\b`)
	shopQuestionRe  = regexp.MustCompile(`(?i)(?:which|what)\s+(?:body\s+)?shop|shop\s+(?:name|is this|are you)|de que taller|nombre del taller`)
	nameQuestionRe  = regexp.MustCompile(`(?i)who\s+am\s+i\s+speaking|your\s+name|con quien hablo|su nombre`)
	notesQuestionRe = regexp.MustCompile(`(?i)any\s+(?:other\s+)?notes|anything\s+else\s+(?:i|we)\s+should|alguna\s+nota|algo\s+mas\s+que`)
	schedQuestionRe = regexp.MustCompile(`(?i)when\s+would|what\s+(?:day|time)|schedule\s+(?:it|this|that)\s+for|para\s+cuando|que\s+dia`)
)

// IsOpsSummary reports whether an assistant utterance is the intake
// confirmation summary read back before logging.
func IsOpsSummary(s string) bool { return summaryMarkerRe.MatchString(s) }

// IsNotesQuestion reports whether an assistant utterance asks for
// intake notes.
func IsNotesQuestion(s string) bool { return notesQuestionRe.MatchString(s) }

// ExtractOps builds the best-effort ops record from the full transcript.
func ExtractOps(turns []transcript.Turn, carried Carried) OpsRecord {
	rec := OpsRecord{Shop: carried.Shop, ScheduledRaw: carried.Scheduled}

	rec.CallerName = extractCallerName(turns)

	// Layer 1: the assistant's confirmation summary already normalizes
	// what it heard, so it wins every field it mentions.
	if summary := transcript.LastAssistantMatching(turns, func(s string) bool {
		return summaryMarkerRe.MatchString(s)
	}); summary != "" {
		applySummary(&rec, summary)
	}

	// Layer 2: direct answers to the questions that elicit each field.
	if rec.RO == "" {
		if ans := transcript.AnswerTo(turns, roQuestionRe.MatchString); ans != "" {
			if ro := roFromText(ans, rec.CallerName); ro != "" {
				rec.RO = ro
			} else if candidate := SpokenDigitsOr(StripFiller(ans)); IsValidRO(candidate, rec.CallerName) {
				// The answer to "what's the RO number" is the number itself,
				// spoken or dictated, with no label around it.
				rec.RO = candidate
			}
		}
	}
	if rec.Shop == "" {
		if ans := transcript.AnswerTo(turns, shopQuestionRe.MatchString); ans != "" {
			if shop := shopFromAnswer(ans, rec.CallerName); shop != "" {
				rec.Shop = shop
			}
		}
	}
	if rec.ScheduledRaw == "" {
		if ans := transcript.AnswerTo(turns, schedQuestionRe.MatchString); ans != "" && !IsConfirmation(ans) {
			rec.ScheduledRaw = strings.TrimSpace(StripFiller(ans))
		}
	}
	rec.Notes = notesFromAnswer(transcript.AnswerTo(turns, notesQuestionRe.MatchString))

	// Layer 3: explicit corrections anywhere in user speech.
	userText := transcript.UserText(turns)
	if m := lastMatch(roCorrectionRe, userText); m != "" {
		if candidate := CleanRO(SpokenDigitsOr(m)); IsValidRO(candidate, rec.CallerName) {
			rec.RO = candidate
		}
	}

	// Layer 4: whole-transcript scan for field-shaped patterns.
	if rec.RO == "" {
		rec.RO = roFromText(userText, rec.CallerName)
	}
	if rec.Vehicle == "" {
		rec.Vehicle = vehicleFromText(userText)
	}
	if rec.VINSuffix == "" {
		rec.VINSuffix = vinSuffixFromText(userText)
	}
	if rec.Status == "" {
		rec.Status = statusFromText(userText)
	}

	return rec
}

func applySummary(rec *OpsRecord, summary string) {
	if m := summaryRORe.FindStringSubmatch(summary); m != nil {
		if IsValidRO(m[1], rec.CallerName) {
			rec.RO = CleanRO(m[1])
		}
	}
	if m := summaryShopRe.FindStringSubmatch(summary); m != nil {
		rec.Shop = strings.TrimSpace(m[1])
	}
	if m := vehicleRe.FindStringSubmatch(summary); m != nil {
		rec.Vehicle = strings.TrimSpace(m[1] + " " + m[2] + " " + strings.TrimSpace(m[3]))
	}
	if m := summaryVINRe.FindStringSubmatch(summary); m != nil {
		rec.VINSuffix = strings.ToUpper(m[1])
	}
	if st := statusFromSummary(summary); st != "" {
		rec.Status = st
	}
	if m := summarySchedRe.FindStringSubmatch(summary); m != nil {
		rec.ScheduledRaw = strings.TrimSpace(m[1])
	}
	if m := summaryNotesRe.FindStringSubmatch(summary); m != nil {
		note := strings.TrimSpace(m[1])
		if !strings.EqualFold(note, "none") && note != "" {
			rec.Notes = note
		}
	}
}

// roFromText scans free text for a job identifier, trying the labeled
// pattern first, then spoken-digit sequences near an RO mention.
func roFromText(text, callerName string) string {
	if m := lastMatch(roDirectRe, text); m != "" {
		candidate := CleanRO(m)
		if IsValidRO(candidate, callerName) {
			return candidate
		}
	}
	// Spoken form: "the RO is twenty four five six seven".
	lower := strings.ToLower(text)
	for _, label := range []string{"ro ", "r.o. ", "po ", "repair order ", "orden "} {
		idx := strings.LastIndex(lower, label)
		if idx < 0 {
			continue
		}
		tail := text[idx+len(label):]
		if nl := strings.IndexAny(tail, "\n.?!"); nl >= 0 {
			tail = tail[:nl]
		}
		candidate := SpokenDigits(tail)
		if IsValidRO(candidate, callerName) {
			return candidate
		}
	}
	return ""
}

// SpokenDigitsOr returns the digit collapse of s, or s itself when s is
// already a digit run.
func SpokenDigitsOr(s string) string {
	if d := DigitsOnly(s); len(d) >= 3 && len(d) >= len(strings.ReplaceAll(s, " ", ""))/2 {
		return d
	}
	return SpokenDigits(s)
}

func vehicleFromText(text string) string {
	var last string
	for _, m := range vehicleRe.FindAllStringSubmatch(text, -1) {
		model := strings.TrimSpace(m[3])
		if model == "" {
			continue
		}
		last = strings.TrimSpace(m[1] + " " + m[2] + " " + model)
	}
	return last
}

func vinSuffixFromText(text string) string {
	if m := vinEndingRe.FindStringSubmatch(text); m != nil {
		raw := strings.TrimSpace(m[1])
		if d := SpokenDigits(raw); len(d) >= 2 && len(d) <= 6 {
			return d
		}
		collapsed := strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(raw))
		if len(collapsed) >= 2 && len(collapsed) <= 6 {
			return collapsed
		}
	}
	if m := vinDashedRe.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1] + m[2] + m[3] + m[4])
	}
	return ""
}

var readyPhrases = []string{
	"it's ready", "it is ready", "car is ready", "vehicle is ready",
	"they're ready", "is ready", "ready to go", "ready for calibration",
	"esta listo", "esta lista", "ya esta listo", "listo para",
}

var notReadyPhrases = []string{
	"not ready", "isn't ready", "is not ready", "not done", "not finished",
	"still working", "no esta listo", "no esta lista", "todavia no",
	"aun no", "no está listo",
}

func statusFromText(text string) string {
	lower := strings.ToLower(foldSpanish(text))
	for _, p := range notReadyPhrases {
		if strings.Contains(lower, foldSpanish(p)) {
			return "not ready"
		}
	}
	for _, p := range readyPhrases {
		if strings.Contains(lower, foldSpanish(p)) {
			return "ready"
		}
	}
	return ""
}

var summaryReadyRe = regexp.MustCompile(`(?i)\bready\b`)

func statusFromSummary(summary string) string {
	lower := strings.ToLower(summary)
	if strings.Contains(lower, "not ready") {
		return "not ready"
	}
	if summaryReadyRe.MatchString(lower) {
		return "ready"
	}
	return ""
}

func shopFromAnswer(answer, callerName string) string {
	shop := strings.TrimSpace(StripFiller(answer))
	shop = strings.Trim(shop, ".,!?")
	for _, prefix := range []string{"this is ", "it's ", "it is ", "we are ", "we're ", "calling from ", "from ", "es ", "somos "} {
		lower := strings.ToLower(shop)
		if strings.HasPrefix(lower, prefix) {
			shop = strings.TrimSpace(shop[len(prefix):])
		}
	}
	if shop == "" {
		return ""
	}
	if callerName != "" && strings.EqualFold(shop, firstWord(callerName)) {
		return ""
	}
	if looksLikeTimePhrase(shop) {
		return ""
	}
	return shop
}

var timeLeakRe = regexp.MustCompile(`(?i)^(?:today|tomorrow|monday|tuesday|wednesday|thursday|friday|saturday|sunday|manana|hoy|lunes|martes|miercoles|jueves|viernes|sabado|domingo)\b|\b(?:am|pm|a\.m\.|p\.m\.|o'?clock)\b|^at\s+\d`)

func looksLikeTimePhrase(s string) bool {
	return timeLeakRe.MatchString(foldSpanish(strings.ToLower(s)))
}

// extractCallerName applies the two accepted sources: the assistant's
// "nice to meet you, X" echo outranks the caller's own answer to the
// name question.
func extractCallerName(turns []transcript.Turn) string {
	var fromAnswer, fromEcho string
	if ans := transcript.AnswerTo(turns, nameQuestionRe.MatchString); ans != "" {
		candidate := nameFromAnswer(ans)
		if ValidCallerName(candidate) && len(strings.Fields(candidate)) <= 3 {
			fromAnswer = titleCase(candidate)
		}
	}
	for _, t := range turns {
		if t.Role != transcript.RoleAssistant {
			continue
		}
		if m := meetYouRe.FindStringSubmatch(t.Text); m != nil && ValidCallerName(m[1]) {
			fromEcho = titleCase(m[1])
		}
	}
	if fromEcho != "" {
		return fromEcho
	}
	return fromAnswer
}

// nameFromAnswer pulls the name out of an answer to the name question:
// a "my name is X" shape when present, else the answer with introduction
// prefixes stripped. Numeric remainders are kept on purpose so the
// never-an-RO check can compare against whatever the caller gave as a
// name.
func nameFromAnswer(ans string) string {
	if m := nameAnswerRe.FindStringSubmatch(ans); m != nil {
		return m[1]
	}
	s := strings.Trim(strings.TrimSpace(StripFiller(ans)), ".,!?")
	lower := strings.ToLower(s)
	for _, prefix := range []string{"my name is ", "this is ", "i am ", "i'm ", "it's ", "soy ", "me llamo ", "mi nombre es "} {
		if strings.HasPrefix(lower, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			break
		}
	}
	return s
}

func notesFromAnswer(answer string) string {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return ""
	}
	if IsNoNotes(answer) || IsConfirmation(answer) {
		return ""
	}
	if looksLikeTimePhrase(answer) {
		return ""
	}
	return answer
}

var noNotesRe = regexp.MustCompile(`(?i)^(?:no|nope|none|nothing|no notes?|no,? nothing(?: else)?|nothing else|that's? (?:it|all)|not really|no,? (?:that's|that is) (?:it|all)|nada|ninguna|no,? nada(?: mas)?|eso es todo)[.,!]?$`)

// IsNoNotes reports whether a notes answer means "no notes".
func IsNoNotes(s string) bool {
	return noNotesRe.MatchString(strings.TrimSpace(foldSpanish(strings.ToLower(s))))
}

func lastMatch(re *regexp.Regexp, text string) string {
	ms := re.FindAllStringSubmatch(text, -1)
	if len(ms) == 0 {
		return ""
	}
	return strings.TrimSpace(ms[len(ms)-1][1])
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
