package lang

import "testing"

func TestDetect(t *testing.T) {
	cases := []struct {
		in   string
		want Language
	}{
		{"hola buenos dias", Spanish},
		{"necesito una cita para manana", Spanish},
		{"¿Cuándo está listo el carro?", Spanish},
		{"hello, I need to schedule a calibration", English},
		{"the vehicle is ready", English},
		{"do you speak spanish", Spanish},
		{"habla español?", Spanish},
		// Single shared/ambiguous word must not classify as English.
		{"no", ""},
		{"okay", ""},
		{"hm", ""},
		{"", ""},
		{"[music]", ""},
		{"Transcribed by ESO", ""},
		{"ありがとうございました", ""},
		{"Спасибо большое", ""},
	}
	for _, tc := range cases {
		if got := Detect(tc.in); got != tc.want {
			t.Errorf("Detect(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDetectEnglishNeedsTwoMarkers(t *testing.T) {
	if got := Detect("ready"); got != "" {
		t.Fatalf("single marker classified as %q, want none", got)
	}
	if got := Detect("yes it is ready"); got != English {
		t.Fatalf("two markers classified as %q, want en", got)
	}
}

func TestLockHysteresis(t *testing.T) {
	l := NewLock()
	if lang, _ := l.Observe("hello, how are you today"); lang != English {
		t.Fatalf("initial observe = %q, want en", lang)
	}
	if !l.Locked() {
		t.Fatalf("expected lock after first classified utterance")
	}

	// One Spanish sentence must not flip the lock.
	if lang, switched := l.Observe("necesito una cita para el carro"); lang != English || switched {
		t.Fatalf("single opposite utterance flipped lock: lang=%q switched=%v", lang, switched)
	}
	// Second consecutive full sentence flips it.
	if lang, switched := l.Observe("quiero la cita para manana por favor"); lang != Spanish || !switched {
		t.Fatalf("second opposite utterance did not flip: lang=%q switched=%v", lang, switched)
	}
}

func TestLockStreakResets(t *testing.T) {
	l := NewLock()
	l.Observe("hello, how are you today")
	l.Observe("necesito una cita para el carro")
	// An English utterance in between resets the Spanish streak.
	l.Observe("sorry, yes the shop is AutoSport")
	if lang, switched := l.Observe("quiero la cita para manana por favor"); lang != English || switched {
		t.Fatalf("streak did not reset: lang=%q switched=%v", lang, switched)
	}
}

func TestLockShortUtteranceDoesNotCount(t *testing.T) {
	l := NewLock()
	l.Observe("hello, how are you today")
	l.Observe("hola gracias")
	if lang, switched := l.Observe("si claro"); lang != English || switched {
		t.Fatalf("sub-threshold utterances flipped lock: lang=%q switched=%v", lang, switched)
	}
}

func TestLockExplicitSpanishRequestBypassesHysteresis(t *testing.T) {
	l := NewLock()
	l.Observe("hello, how are you today")
	if lang, switched := l.Observe("do you speak spanish"); lang != Spanish || !switched {
		t.Fatalf("explicit request did not switch: lang=%q switched=%v", lang, switched)
	}
}
