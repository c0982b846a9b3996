package extract

import (
	"strconv"
	"strings"
)

var unitWordsEN = map[string]int{
	"zero": 0, "oh": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
}

var teenWordsEN = map[string]int{
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18,
	"nineteen": 19,
}

var tensWordsEN = map[string]int{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

var unitWordsES = map[string]int{
	"cero": 0, "uno": 1, "una": 1, "dos": 2, "tres": 3, "cuatro": 4,
	"cinco": 5, "seis": 6, "siete": 7, "ocho": 8, "nueve": 9,
}

var teenWordsES = map[string]int{
	"diez": 10, "once": 11, "doce": 12, "trece": 13, "catorce": 14,
	"quince": 15, "dieciseis": 16, "diecisiete": 17, "dieciocho": 18,
	"diecinueve": 19,
}

var tensWordsES = map[string]int{
	"veinte": 20, "treinta": 30, "cuarenta": 40, "cincuenta": 50,
	"sesenta": 60, "setenta": 70, "ochenta": 80, "noventa": 90,
}

// Spanish fuses twenty-compounds into one word.
var veintiES = map[string]int{
	"veintiuno": 21, "veintidos": 22, "veintitres": 23, "veinticuatro": 24,
	"veinticinco": 25, "veintiseis": 26, "veintisiete": 27, "veintiocho": 28,
	"veintinueve": 29,
}

// SpokenDigits collapses a spoken number sequence into a digit string.
// "twenty four five six seven" becomes "24567": tens words merge with a
// following unit, everything else concatenates positionally, which is how
// callers read out RO numbers. Returns "" when nothing numeric is found.
func SpokenDigits(s string) string {
	words := strings.Fields(foldSpanish(strings.ToLower(s)))
	var b strings.Builder
	i := 0
	for i < len(words) {
		w := strings.Trim(words[i], ".,;:!?")
		switch {
		case isDigitRun(w):
			b.WriteString(w)
			i++
		case veintiES[w] != 0:
			b.WriteString(strconv.Itoa(veintiES[w]))
			i++
		case teenWordsEN[w] != 0:
			b.WriteString(strconv.Itoa(teenWordsEN[w]))
			i++
		case teenWordsES[w] != 0:
			b.WriteString(strconv.Itoa(teenWordsES[w]))
			i++
		case tensWordsEN[w] != 0:
			n := tensWordsEN[w]
			if i+1 < len(words) {
				next := strings.Trim(words[i+1], ".,;:!?")
				if u, ok := unitWordsEN[next]; ok && u != 0 {
					b.WriteString(strconv.Itoa(n + u))
					i += 2
					continue
				}
			}
			b.WriteString(strconv.Itoa(n))
			i++
		case tensWordsES[w] != 0:
			n := tensWordsES[w]
			// "treinta y dos" — Spanish tens join with "y".
			if i+2 < len(words) && strings.Trim(words[i+1], ".,") == "y" {
				next := strings.Trim(words[i+2], ".,;:!?")
				if u, ok := unitWordsES[next]; ok && u != 0 {
					b.WriteString(strconv.Itoa(n + u))
					i += 3
					continue
				}
			}
			b.WriteString(strconv.Itoa(n))
			i++
		default:
			if u, ok := unitWordsEN[w]; ok {
				b.WriteString(strconv.Itoa(u))
				i++
				continue
			}
			if u, ok := unitWordsES[w]; ok {
				b.WriteString(strconv.Itoa(u))
				i++
				continue
			}
			// "hundred"/"thousand" style magnitudes pad zeros only when
			// they end the sequence ("thirty five hundred" -> 3500).
			if w == "hundred" || w == "cien" || w == "ciento" {
				if b.Len() > 0 && (i+1 >= len(words) || !isNumericWord(words[i+1])) {
					b.WriteString("00")
				}
				i++
				continue
			}
			if w == "thousand" || w == "mil" {
				if b.Len() > 0 && (i+1 >= len(words) || !isNumericWord(words[i+1])) {
					b.WriteString("000")
				}
				i++
				continue
			}
			i++
		}
	}
	return b.String()
}

func isDigitRun(w string) bool {
	if w == "" {
		return false
	}
	for _, r := range w {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isNumericWord(w string) bool {
	w = strings.Trim(strings.ToLower(w), ".,;:!?")
	if isDigitRun(w) {
		return true
	}
	if _, ok := unitWordsEN[w]; ok {
		return true
	}
	if _, ok := unitWordsES[w]; ok {
		return true
	}
	if _, ok := teenWordsEN[w]; ok {
		return true
	}
	if _, ok := teenWordsES[w]; ok {
		return true
	}
	if _, ok := tensWordsEN[w]; ok {
		return true
	}
	if _, ok := tensWordsES[w]; ok {
		return true
	}
	_, ok := veintiES[w]
	return ok
}

func foldSpanish(s string) string {
	r := strings.NewReplacer(
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
	)
	return r.Replace(s)
}

// DigitsOnly strips everything but digits.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
