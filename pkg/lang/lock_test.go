package lang

import "testing"

func TestLockStartsEnglishUnlocked(t *testing.T) {
	l := NewLock()
	if l.Current() != English {
		t.Fatalf("Current() = %q, want en", l.Current())
	}
	if l.Locked() {
		t.Fatal("new lock should be unlocked")
	}
}

func TestFirstSignalLocksImmediately(t *testing.T) {
	l := NewLock()
	got, switched := l.Observe("hola buenos dias")
	if got != Spanish || !switched {
		t.Fatalf("Observe = (%q, %v), want (es, true)", got, switched)
	}
	if !l.Locked() {
		t.Fatal("lock should be set after first signal")
	}
}

func TestSwitchNeedsConsecutiveFullUtterances(t *testing.T) {
	l := NewLock()
	if got, _ := l.Observe("hello i need the appointment"); got != English {
		t.Fatalf("lock = %q, want en", got)
	}

	got, switched := l.Observe("necesito una cita para manana")
	if got != English || switched {
		t.Fatalf("after one Spanish utterance: (%q, %v), want (en, false)", got, switched)
	}
	got, switched = l.Observe("quiero hablar con el taller")
	if got != Spanish || !switched {
		t.Fatalf("after two Spanish utterances: (%q, %v), want (es, true)", got, switched)
	}
}

func TestShortUtteranceNeverCountsTowardSwitch(t *testing.T) {
	l := NewLock()
	l.Observe("hello i need the appointment")
	for i := 0; i < 5; i++ {
		if got, switched := l.Observe("gracias"); got != English || switched {
			t.Fatalf("short utterance flipped lock: (%q, %v)", got, switched)
		}
	}
}

func TestSameLanguageResetsStreak(t *testing.T) {
	l := NewLock()
	l.Observe("hello i need the appointment")
	l.Observe("necesito una cita para manana")
	l.Observe("okay the shop is ready")
	got, switched := l.Observe("quiero hablar con el taller")
	if got != English || switched {
		t.Fatalf("streak survived a same-language turn: (%q, %v)", got, switched)
	}
}

func TestExplicitSpanishRequestBypassesHysteresis(t *testing.T) {
	l := NewLock()
	l.Observe("hello i need the appointment")
	got, switched := l.Observe("do you speak spanish")
	if got != Spanish || !switched {
		t.Fatalf("explicit request: (%q, %v), want (es, true)", got, switched)
	}
}

func TestNoiseDoesNotTouchLock(t *testing.T) {
	l := NewLock()
	got, switched := l.Observe("[music]")
	if got != English || switched || l.Locked() {
		t.Fatalf("noise touched lock state: (%q, %v, locked=%v)", got, switched, l.Locked())
	}
}

func TestNilLockIsSafe(t *testing.T) {
	var l *Lock
	if l.Current() != English {
		t.Fatalf("nil Current() = %q", l.Current())
	}
	if got, switched := l.Observe("hola buenos dias"); got != English || switched {
		t.Fatalf("nil Observe = (%q, %v)", got, switched)
	}
	if l.Locked() {
		t.Fatal("nil lock reports locked")
	}
}
