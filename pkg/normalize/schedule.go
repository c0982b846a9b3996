package normalize

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Defaults for a schedule phrase that is missing one half. Kept as
// variables: these are tuned policy, not invariants.
var (
	DefaultHour   = 9
	DefaultMinute = 0
)

var weekdaysEN = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

var weekdaysES = map[string]time.Weekday{
	"domingo": time.Sunday, "lunes": time.Monday, "martes": time.Tuesday,
	"miercoles": time.Wednesday, "jueves": time.Thursday,
	"viernes": time.Friday, "sabado": time.Saturday,
}

var monthsEN = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

var monthsES = map[string]time.Month{
	"enero": time.January, "febrero": time.February, "marzo": time.March,
	"abril": time.April, "mayo": time.May, "junio": time.June,
	"julio": time.July, "agosto": time.August, "septiembre": time.September,
	"octubre": time.October, "noviembre": time.November, "diciembre": time.December,
}

var spanishHours = map[string]int{
	"una": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5, "seis": 6,
	"siete": 7, "ocho": 8, "nueve": 9, "diez": 10, "once": 11, "doce": 12,
}

var (
	clockRe    = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(a\.?m\.?|p\.?m\.?)\b`)
	bareAtRe   = regexp.MustCompile(`(?i)\bat\s+(\d{1,2})(?::(\d{2}))?\b`)
	oclockRe   = regexp.MustCompile(`(?i)\b(\d{1,2})\s*o'?clock\b`)
	monthDayRe = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|octubre|noviembre|diciembre)\s+(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?\b`)
	numericRe  = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	lasHoraRe  = regexp.MustCompile(`(?i)\b(?:a\s+la|a\s+las)\s+(una|dos|tres|cuatro|cinco|seis|siete|ocho|nueve|diez|once|doce|\d{1,2})\b`)
)

// Schedule resolves a raw spoken schedule phrase to the canonical
// "Weekday, Month D, YYYY at H:MM AM/PM" string. now anchors relative
// references; a nil logger means slog.Default().
func Schedule(raw string, now time.Time, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	text := foldAccents(strings.ToLower(strings.TrimSpace(raw)))

	date, haveDate := resolveDate(text, now)
	if !haveDate {
		date = now
	}
	hour, minute, haveTime := resolveTime(text)
	if !haveTime {
		hour, minute = DefaultHour, DefaultMinute
	}

	if !haveDate || !haveTime {
		logger.Debug("schedule normalization used defaults",
			"raw", raw, "have_date", haveDate, "have_time", haveTime)
	}

	resolved := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, now.Location())
	return Canonical(resolved)
}

// Canonical renders the fixed schedule format.
func Canonical(t time.Time) string {
	hour12 := t.Hour() % 12
	if hour12 == 0 {
		hour12 = 12
	}
	meridiem := "AM"
	if t.Hour() >= 12 {
		meridiem = "PM"
	}
	return fmt.Sprintf("%s, %s %d, %d at %d:%02d %s",
		t.Weekday(), t.Month(), t.Day(), t.Year(), hour12, t.Minute(), meridiem)
}

func resolveDate(text string, now time.Time) (time.Time, bool) {
	switch {
	case strings.Contains(text, "today") || strings.Contains(text, "hoy") ||
		strings.Contains(text, "this afternoon") || strings.Contains(text, "this morning") ||
		strings.Contains(text, "esta tarde") || strings.Contains(text, "esta manana"):
		return now, true
	case strings.Contains(text, "tomorrow"),
		// "manana" alone is tomorrow; "de la manana" is a morning
		// qualifier, not a date.
		hasWord(text, "manana") && !strings.Contains(text, "de la manana"):
		return now.AddDate(0, 0, 1), true
	}

	for name, wd := range weekdaysEN {
		if hasWord(text, name) {
			return nextWeekday(now, wd), true
		}
	}
	for name, wd := range weekdaysES {
		if hasWord(text, name) {
			return nextWeekday(now, wd), true
		}
	}

	if m := monthDayRe.FindStringSubmatch(text); m != nil {
		month, ok := monthsEN[m[1]]
		if !ok {
			month = monthsES[m[1]]
		}
		day, _ := strconv.Atoi(m[2])
		if day >= 1 && day <= 31 {
			year := now.Year()
			candidate := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
			if candidate.Before(now.AddDate(0, 0, -1)) {
				candidate = candidate.AddDate(1, 0, 0)
			}
			return candidate, true
		}
	}

	if m := numericRe.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			year := now.Year()
			if m[3] != "" {
				y, _ := strconv.Atoi(m[3])
				if y < 100 {
					y += 2000
				}
				year = y
			}
			candidate := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
			if m[3] == "" && candidate.Before(now.AddDate(0, 0, -1)) {
				candidate = candidate.AddDate(1, 0, 0)
			}
			return candidate, true
		}
	}

	return now, false
}

func resolveTime(text string) (hour, minute int, ok bool) {
	if m := clockRe.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		if h >= 1 && h <= 12 {
			if m[2] != "" {
				minute, _ = strconv.Atoi(m[2])
			}
			if strings.HasPrefix(m[3], "p") && h != 12 {
				h += 12
			}
			if strings.HasPrefix(m[3], "a") && h == 12 {
				h = 0
			}
			return h, minute, true
		}
	}

	if m := oclockRe.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		return businessHour(h), 0, true
	}

	if m := lasHoraRe.FindStringSubmatch(text); m != nil {
		h, okWord := spanishHours[m[1]]
		if !okWord {
			h, _ = strconv.Atoi(m[1])
		}
		if h >= 1 && h <= 12 {
			minute = 0
			if strings.Contains(text, "y media") {
				minute = 30
			} else if strings.Contains(text, "y cuarto") {
				minute = 15
			}
			h = businessHour(h)
			if strings.Contains(text, "de la manana") || strings.Contains(text, "por la manana") {
				if h >= 13 {
					h -= 12
				}
			}
			if strings.Contains(text, "de la tarde") || strings.Contains(text, "por la tarde") {
				if h < 12 {
					h += 12
				}
			}
			return h, minute, true
		}
	}

	if m := bareAtRe.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		if h >= 0 && h <= 23 {
			if m[2] != "" {
				minute, _ = strconv.Atoi(m[2])
			}
			return businessHour(h), minute, true
		}
	}

	return 0, 0, false
}

// businessHour maps a bare 1–7 to the afternoon: shops say "at 2"
// meaning 2 PM. 8–12 stay as morning/noon hours.
func businessHour(h int) int {
	if h >= 1 && h <= 7 {
		return h + 12
	}
	return h
}

func nextWeekday(now time.Time, wd time.Weekday) time.Time {
	days := (int(wd) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return now.AddDate(0, 0, days)
}

func hasWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isLetter(text[i-1])
		afterIdx := i + len(word)
		after := afterIdx >= len(text) || !isLetter(text[afterIdx])
		if before && after {
			return true
		}
		idx = i + len(word)
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func foldAccents(s string) string {
	r := strings.NewReplacer(
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
	)
	return r.Replace(s)
}
