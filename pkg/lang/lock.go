package lang

import "strings"

// SwitchThreshold is how many consecutive full-sentence utterances in the
// other language it takes to flip a locked language. Tuned empirically;
// override before any calls start, not mid-call.
var SwitchThreshold = 2

// MinSwitchWords is the minimum word count for an utterance to count
// toward a language switch.
var MinSwitchWords = 3

// Lock tracks the locked language for one call and applies switch
// hysteresis. Not safe for concurrent use; each call owns its own Lock.
type Lock struct {
	current     Language
	locked      bool
	otherStreak int
}

// NewLock starts unlocked in English.
func NewLock() *Lock {
	return &Lock{current: English}
}

// Current returns the active language.
func (l *Lock) Current() Language {
	if l == nil || l.current == "" {
		return English
	}
	return l.current
}

// Locked reports whether the language has been confirmed at least once.
func (l *Lock) Locked() bool {
	return l != nil && l.locked
}

// Observe feeds one caller utterance through detection and updates lock
// state. It returns the active language afterward and whether this
// utterance switched it.
func (l *Lock) Observe(utterance string) (Language, bool) {
	if l == nil {
		return English, false
	}
	detected := Detect(utterance)
	if detected == "" {
		return l.Current(), false
	}

	if !l.locked {
		switched := detected != l.current
		l.current = detected
		l.locked = true
		l.otherStreak = 0
		return l.current, switched
	}

	if detected == l.current {
		l.otherStreak = 0
		return l.current, false
	}

	// An explicit Spanish request bypasses hysteresis.
	if detected == Spanish && isSpanishRequest(utterance) {
		l.current = Spanish
		l.otherStreak = 0
		return l.current, true
	}

	if len(strings.Fields(utterance)) < MinSwitchWords {
		return l.current, false
	}
	l.otherStreak++
	if l.otherStreak >= SwitchThreshold {
		l.current = detected
		l.otherStreak = 0
		return l.current, true
	}
	return l.current, false
}

func isSpanishRequest(utterance string) bool {
	text := normalize(utterance)
	for _, phrase := range spanishRequestPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}
