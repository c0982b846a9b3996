package normalize

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var wrapperRe = regexp.MustCompile(`(?i)^caller:\s*(.*?)\.\s*notes:\s*(.*?)\.?\s*$`)

var junkPrefixes = []string{
	"uh", "um", "so", "well", "okay so", "yeah so", "like",
	"the notes are", "notes are", "note that", "just that",
	"pues", "este", "bueno",
}

// Spanish-to-English note phrases, matched longest-first on word
// boundaries so "para" never corrupts "paragolpes".
var spanishNotePhrases = map[string]string{
	"el parabrisas esta danado":  "the windshield is damaged",
	"falta una pieza":            "a part is missing",
	"la pieza esta en camino":    "the part is on the way",
	"necesita alineacion":        "needs an alignment",
	"el sensor esta danado":      "the sensor is damaged",
	"no enciende":                "does not start",
	"llegara tarde":              "will arrive late",
	"el cliente espera":          "the customer is waiting",
	"urgente":                    "urgent",
	"con cuidado":                "with care",
	"manana":                     "tomorrow",
	"parabrisas":                 "windshield",
	"paragolpes":                 "bumper",
	"defensa":                    "bumper",
	"sensor":                     "sensor",
	"camara":                     "camera",
	"radar":                      "radar",
	"alineacion":                 "alignment",
	"pintura":                    "paint",
	"el carro":                   "the car",
	"el vehiculo":                "the vehicle",
	"esta listo":                 "is ready",
	"no esta listo":              "is not ready",
	"por favor":                  "please",
}

var scheduleLeakRe = regexp.MustCompile(`(?i)^\s*(?:today|tomorrow|monday|tuesday|wednesday|thursday|friday|saturday|sunday)?\s*(?:,)?\s*(?:at\s+)?\d{1,2}(?::\d{2})?\s*(?:a\.?m\.?|p\.?m\.?)?\s*$|^\s*(?:today|tomorrow)\s+at\s+\d{1,2}`)

// Notes renders the fixed "Caller: X. Notes: Y." wrapper from a raw
// notes value and the caller name, translating known Spanish phrasing,
// stripping transcription junk, and refusing to nest an existing
// wrapper.
func Notes(raw, callerName string) string {
	caller := strings.TrimSpace(callerName)
	if caller == "" {
		caller = "Unknown"
	}

	text := strings.TrimSpace(raw)

	// Unwrap as many "Caller: X. Notes: Y" layers as the raw value
	// carries so the output is never nested.
	for {
		m := wrapperRe.FindStringSubmatch(text)
		if m == nil {
			break
		}
		if inner := strings.TrimSpace(m[1]); inner != "" && caller == "Unknown" {
			caller = inner
		}
		text = strings.TrimSpace(m[2])
	}

	text = stripJunkPrefixes(text)

	switch {
	case text == "", strings.EqualFold(text, "none"), strings.EqualFold(text, "no"),
		strings.EqualFold(text, "nothing"), strings.EqualFold(text, "nada"):
		text = ""
	case scheduleLeakRe.MatchString(text):
		text = ""
	case isTranscriptionNoise(text):
		text = ""
	default:
		text = translateSpanish(text)
	}

	if text == "" {
		text = "none"
	}
	text = strings.TrimRight(text, ".")
	return "Caller: " + caller + ". Notes: " + text + "."
}

func stripJunkPrefixes(text string) string {
	for {
		lower := strings.ToLower(text)
		stripped := false
		for _, p := range junkPrefixes {
			if strings.HasPrefix(lower, p+" ") || strings.HasPrefix(lower, p+", ") {
				text = strings.TrimSpace(strings.TrimPrefix(text[len(p):], ","))
				stripped = true
				break
			}
		}
		if !stripped {
			return strings.TrimSpace(text)
		}
	}
}

// isTranscriptionNoise rejects non-Latin content and strings whose
// Latin-letter ratio is too low to be speech.
func isTranscriptionNoise(text string) bool {
	var latin, letters int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if r <= 0x24F {
			latin++
		}
	}
	if letters == 0 {
		return true
	}
	return latin*2 < letters
}

var spanishPhraseKeys []string

func init() {
	spanishPhraseKeys = make([]string, 0, len(spanishNotePhrases))
	for k := range spanishNotePhrases {
		spanishPhraseKeys = append(spanishPhraseKeys, k)
	}
	sort.Slice(spanishPhraseKeys, func(i, j int) bool {
		return len(spanishPhraseKeys[i]) > len(spanishPhraseKeys[j])
	})
}

// translateSpanish swaps known Spanish phrases for English in place.
// Matching is case- and accent-insensitive, but only the matched spans
// are rewritten, so a mixed-language note keeps its original casing.
func translateSpanish(text string) string {
	folded, orig := foldForMatch(text)

	type edit struct {
		start, end  int // byte range in text
		replacement string
	}
	var edits []edit
	taken := make([]bool, len(folded))
	for _, phrase := range spanishPhraseKeys {
		for idx := 0; ; {
			i := strings.Index(folded[idx:], phrase)
			if i < 0 {
				break
			}
			i += idx
			end := i + len(phrase)
			idx = end
			if i > 0 && isLetter(folded[i-1]) {
				continue
			}
			if end < len(folded) && isLetter(folded[end]) {
				continue
			}
			overlap := false
			for j := i; j < end; j++ {
				if taken[j] {
					overlap = true
					break
				}
			}
			if overlap {
				continue
			}
			// identical word in both languages, keep the caller's casing
			if strings.EqualFold(text[orig[i]:orig[end]], spanishNotePhrases[phrase]) {
				continue
			}
			for j := i; j < end; j++ {
				taken[j] = true
			}
			edits = append(edits, edit{start: orig[i], end: orig[end], replacement: spanishNotePhrases[phrase]})
		}
	}
	if len(edits) == 0 {
		return text
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var b strings.Builder
	last := 0
	for _, e := range edits {
		b.WriteString(text[last:e.start])
		b.WriteString(e.replacement)
		last = e.end
	}
	b.WriteString(text[last:])
	return b.String()
}

// foldForMatch lowercases and accent-folds text for phrase matching and
// returns a map from each folded byte back to its source byte offset.
func foldForMatch(text string) (string, []int) {
	var b strings.Builder
	orig := make([]int, 0, len(text)+1)
	for i, r := range text {
		r = unicode.ToLower(r)
		switch r {
		case 'á':
			r = 'a'
		case 'é':
			r = 'e'
		case 'í':
			r = 'i'
		case 'ó':
			r = 'o'
		case 'ú', 'ü':
			r = 'u'
		case 'ñ':
			r = 'n'
		}
		start := b.Len()
		b.WriteRune(r)
		for j := start; j < b.Len(); j++ {
			orig = append(orig, i)
		}
	}
	orig = append(orig, len(text))
	return b.String(), orig
}
