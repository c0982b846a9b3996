// Package normalize canonicalizes extracted fields before they are
// persisted: shop names against a whitelist, schedule phrases into a
// fixed date/time string, and free-text notes into the standard
// "Caller: X. Notes: Y." wrapper.
package normalize

import "strings"

// shopAliases maps lowercase substrings and spelling variants to the
// canonical shop name. Order matters: longer, more specific keys first.
var shopAliases = []struct {
	match     string
	canonical string
}{
	{"autosport", "AutoSport"},
	{"auto sport", "AutoSport"},
	{"caliber collision", "Caliber Collision"},
	{"caliber", "Caliber Collision"},
	{"calibre", "Caliber Collision"},
	{"crash champions", "Crash Champions"},
	{"crash champion", "Crash Champions"},
	{"classic collision", "Classic Collision"},
	{"classic", "Classic Collision"},
	{"service king", "Service King"},
	{"gerber", "Gerber Collision"},
	{"premier auto body", "Premier Auto Body"},
	{"premier", "Premier Auto Body"},
	{"elite body works", "Elite Body Works"},
	{"elite body", "Elite Body Works"},
	{"elite", "Elite Body Works"},
}

var shopFiller = []string{
	"um", "uh", "eh", "the", "it's", "its", "this is", "we are", "we're",
	"el", "la", "taller",
}

// Shop matches a raw shop utterance against the whitelist. Unmatched but
// non-trivial input passes through unchanged; nothing is fabricated.
func Shop(raw string) string {
	s := strings.TrimSpace(raw)
	for {
		lower := strings.ToLower(s)
		trimmed := false
		for _, f := range shopFiller {
			if strings.HasPrefix(lower, f+" ") {
				s = strings.TrimSpace(s[len(f):])
				trimmed = true
				break
			}
		}
		if !trimmed {
			break
		}
	}
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	for _, alias := range shopAliases {
		if strings.Contains(lower, alias.match) {
			return alias.canonical
		}
	}
	if len(s) < 3 {
		return ""
	}
	return strings.TrimSpace(s)
}
