// Package lang classifies caller utterances as English or Spanish and
// maintains the per-call language lock.
package lang

import (
	"strings"
	"unicode"
)

// Language is a detected or locked spoken language.
type Language string

const (
	English Language = "en"
	Spanish Language = "es"
)

// Transcription artifacts the speech engine emits on line noise or hold
// music. Any utterance containing one is ignored outright.
var noisePhrases = []string{
	"[inaudible]",
	"[music]",
	"[noise]",
	"transcribed by",
	"subtitles by",
	"thank you for watching",
	"www.",
}

var spanishMarkers = []string{
	"hola", "buenos dias", "buenas tardes", "buenas noches",
	"gracias", "por favor", "como esta", "muy bien",
	"que", "cual", "cuando", "donde", "cuanto", "quien",
	"listo", "lista", "terminado", "terminada", "completado",
	"necesito", "quiero", "tengo", "vehiculo", "carro", "taller",
	"manana", "hoy", "cita", "numero", "orden",
	"si senor", "si senora", "claro", "bueno", "entonces",
	"pero", "tambien", "porque", "para", "con el", "con la",
}

var englishMarkers = []string{
	"hello", "hi", "hey", "good morning", "good afternoon",
	"thanks", "thank you", "please", "yes", "yeah", "okay",
	"the", "is", "are", "have", "need", "want", "ready",
	"vehicle", "car", "shop", "appointment", "number", "order",
	"today", "tomorrow", "schedule", "calibration", "done",
	"what", "when", "where", "how", "who",
}

var spanishRequestPhrases = []string{
	"habla espanol", "hablas espanol", "hablan espanol",
	"se habla espanol", "en espanol", "do you speak spanish",
	"speak spanish",
}

// Detect classifies one utterance. The zero Language return means the
// utterance carries no usable signal and must not touch lock state.
func Detect(utterance string) Language {
	text := normalize(utterance)
	if text == "" {
		return ""
	}
	if hasNonLatinScript(text) {
		return ""
	}
	for _, phrase := range noisePhrases {
		if strings.Contains(text, phrase) {
			return ""
		}
	}

	// An explicit request for Spanish wins unconditionally.
	for _, phrase := range spanishRequestPhrases {
		if strings.Contains(text, phrase) {
			return Spanish
		}
	}

	words := strings.Fields(text)
	wordSet := make(map[string]struct{}, len(words))
	for _, w := range words {
		wordSet[w] = struct{}{}
	}

	for _, marker := range spanishMarkers {
		if containsMarker(text, wordSet, marker) {
			return Spanish
		}
	}

	// English needs two independent hits; single shared words like "no"
	// or a lone "okay" must not flip a Spanish caller to English.
	hits := 0
	for _, marker := range englishMarkers {
		if containsMarker(text, wordSet, marker) {
			hits++
			if hits >= 2 {
				return English
			}
		}
	}
	return ""
}

func containsMarker(text string, wordSet map[string]struct{}, marker string) bool {
	if strings.ContainsRune(marker, ' ') {
		return strings.Contains(text, marker)
	}
	_, ok := wordSet[marker]
	return ok
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
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
		case '¿', '¡':
			continue
		}
		if unicode.IsPunct(r) && r != '[' && r != ']' && r != '.' && r != '\'' {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func hasNonLatinScript(s string) bool {
	for _, r := range s {
		if r < 0x250 || unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsDigit(r) {
			continue
		}
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Cyrillic, unicode.Arabic, unicode.Hangul, unicode.Thai, unicode.Devanagari) {
			return true
		}
	}
	return false
}
