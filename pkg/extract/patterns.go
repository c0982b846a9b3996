package extract

import (
	"regexp"
	"strings"
)

var (
	roDirectRe     = regexp.MustCompile(`(?i)\b(?:ro|r\.o\.|po|p\.o\.|repair order|purchase order|orden)\s*(?:number|numero|#|is|es)?\s*[:#]?\s*([0-9][0-9\- ]{1,14}[0-9]|[0-9]{3,})`)
	roCorrectionRe = regexp.MustCompile(`(?i)\bno[,.]?\s+(?:the\s+)?(?:ro|po|repair order|orden)\s+(?:number\s+)?(?:is|es)\s*[:#]?\s*([0-9 \-]{3,})`)
	yearShapeRe    = regexp.MustCompile(`^(19|20)\d{2}$`)
	vehicleRe      = regexp.MustCompile(`(?i)\b((?:19|20)\d{2})\s+([A-Za-z][A-Za-z\-]+)\s+([A-Za-z0-9][A-Za-z0-9\- ]*?)(?:[,.]|\s+(?:vin|with|and|status|scheduled|for)\b|$)`)
	vinEndingRe    = regexp.MustCompile(`(?i)\bvin(?:\s+number)?\s+(?:ending|ends)\s*(?:in|with)?\s*[:#]?\s*([0-9A-Za-z\- ]{4,25})`)
	vinDashedRe    = regexp.MustCompile(`\b([0-9A-HJ-NPR-Z])[\- ]([0-9A-HJ-NPR-Z])[\- ]([0-9A-HJ-NPR-Z])[\- ]([0-9A-HJ-NPR-Z])\b`)
	nameAnswerRe   = regexp.MustCompile(`(?i)\b(?:my name is|this is|i am|i'm|soy|me llamo|mi nombre es)\s+([A-Za-zÁÉÍÓÚÑáéíóúñ]+(?:\s+[A-Za-zÁÉÍÓÚÑáéíóúñ]+)?)`)
	meetYouRe      = regexp.MustCompile(`(?i)\b(?:nice to meet you|mucho gusto),?\s+([A-Za-zÁÉÍÓÚÑáéíóúñ]+)\b`)
)

// IsValidRO applies the rejection predicates for a candidate job
// identifier: mostly digits, at least three of them, not shaped like a
// vehicle year, not VIN-length, and never the caller's own name.
func IsValidRO(candidate, callerName string) bool {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return false
	}
	digits := DigitsOnly(candidate)
	if len(digits) < 3 {
		return false
	}
	if len(digits)*2 < len(strings.ReplaceAll(candidate, " ", "")) {
		return false
	}
	if yearShapeRe.MatchString(digits) {
		return false
	}
	// A full 17-char VIN read out loud is not an RO.
	if len(digits) >= 11 || len(strings.ReplaceAll(candidate, " ", "")) == 17 {
		return false
	}
	if callerName != "" && strings.EqualFold(candidate, callerName) {
		return false
	}
	return true
}

// CleanRO strips separators from an accepted candidate.
func CleanRO(candidate string) string {
	return DigitsOnly(candidate)
}

var fillerPrefixes = []string{
	"um", "uh", "eh", "like", "so", "well", "yeah", "okay", "ok",
	"pues", "este", "bueno", "entonces",
}

// StripFiller removes leading hesitation words.
func StripFiller(s string) string {
	words := strings.Fields(s)
	for len(words) > 0 {
		w := strings.ToLower(strings.Trim(words[0], ".,"))
		found := false
		for _, f := range fillerPrefixes {
			if w == f {
				found = true
				break
			}
		}
		if !found {
			break
		}
		words = words[1:]
	}
	return strings.Join(words, " ")
}

// IsNoise reports whether a completed utterance carries no content worth
// processing: empty, sub-3-character, or filler-only.
func IsNoise(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 3 {
		return true
	}
	return strings.TrimSpace(StripFiller(s)) == ""
}

var confirmationPhrases = []string{
	"yes", "yeah", "yep", "correct", "that's correct", "that is correct",
	"that's right", "sounds good", "perfect", "exactly", "sure",
	"si", "sí", "correcto", "exacto", "asi es", "así es", "claro", "perfecto",
}

// IsConfirmation reports whether the utterance is an affirmative answer
// with no other content.
func IsConfirmation(s string) bool {
	text := strings.ToLower(strings.TrimSpace(s))
	text = strings.Trim(text, ".,!?¡¿")
	if text == "" {
		return false
	}
	for _, p := range confirmationPhrases {
		if text == p {
			return true
		}
	}
	// "yes that's correct" style composites.
	stripped := strings.NewReplacer(",", "", ".", "", "!", "").Replace(text)
	switch stripped {
	case "yes that's correct", "yes that is correct", "yes correct",
		"yeah that's right", "yes that's right", "si correcto", "sí correcto",
		"yes it is", "yes please", "si por favor", "sí por favor":
		return true
	}
	return false
}

var goodbyePhrases = []string{
	"goodbye", "good bye", "bye bye", "hang up", "that's all", "that is all",
	"thats all", "we're done", "that'll be it", "nothing else",
	"adios", "adiós", "hasta luego", "eso es todo", "nada mas", "nada más",
}

// IsGoodbye reports whether the caller is ending the call.
func IsGoodbye(s string) bool {
	text := strings.ToLower(strings.TrimSpace(s))
	for _, p := range goodbyePhrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

var transferPhrases = []string{
	"speak to a person", "talk to a person", "real person", "a human",
	"speak to someone", "talk to someone", "transfer me", "representative",
	"hablar con una persona", "con un humano", "un representante",
}

// WantsTransfer reports whether the caller asked for a human.
func WantsTransfer(s string) bool {
	text := strings.ToLower(strings.TrimSpace(s))
	for _, p := range transferPhrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

var junkNames = []string{
	"yes", "no", "si", "hola", "hello", "hi", "okay", "ok", "um", "uh",
	"what", "que", "nobody", "none", "test", "unknown",
}

// ValidCallerName rejects one-or-two-letter fragments and known junk
// transcriptions.
func ValidCallerName(name string) bool {
	name = strings.TrimSpace(name)
	if len(name) < 3 {
		return false
	}
	lower := strings.ToLower(name)
	for _, junk := range junkNames {
		if lower == junk {
			return false
		}
	}
	return true
}
