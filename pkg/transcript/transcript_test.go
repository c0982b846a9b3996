package transcript

import (
	"strings"
	"testing"
	"time"
)

var base = time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)

func logOf(pairs ...string) *Log {
	l := &Log{}
	for i := 0; i+1 < len(pairs); i += 2 {
		l.Append(pairs[i], pairs[i+1], base.Add(time.Duration(i)*time.Second))
	}
	return l
}

func TestTurnsReturnsCopy(t *testing.T) {
	l := logOf(RoleUser, "hi", RoleAssistant, "hello")
	turns := l.Turns()
	turns[0].Text = "mutated"
	if l.Turns()[0].Text != "hi" {
		t.Fatal("Turns exposed internal slice")
	}
}

func TestLastUser(t *testing.T) {
	l := logOf(
		RoleUser, "first",
		RoleAssistant, "question?",
		RoleUser, "second",
		RoleAssistant, "noted",
	)
	if got := l.LastUser(); got != "second" {
		t.Fatalf("LastUser = %q", got)
	}
	if got := (&Log{}).LastUser(); got != "" {
		t.Fatalf("empty LastUser = %q", got)
	}
}

func TestAnswerToPicksTurnRightAfterQuestion(t *testing.T) {
	l := logOf(
		RoleAssistant, "What is the RO number?",
		RoleUser, "three oh nine five",
		RoleAssistant, "And the shop?",
		RoleUser, "AutoSport",
	)
	asked := func(s string) bool { return strings.Contains(s, "RO number") }
	if got := AnswerTo(l.Turns(), asked); got != "three oh nine five" {
		t.Fatalf("AnswerTo = %q", got)
	}
}

func TestAnswerToStopsAtNextAssistantTurn(t *testing.T) {
	l := logOf(
		RoleAssistant, "What is the RO number?",
		RoleAssistant, "Are you still there?",
		RoleUser, "yes",
	)
	asked := func(s string) bool { return strings.Contains(s, "RO number") }
	if got := AnswerTo(l.Turns(), asked); got != "" {
		t.Fatalf("AnswerTo = %q, want empty when another question intervened", got)
	}
}

func TestLastAssistantMatching(t *testing.T) {
	l := logOf(
		RoleAssistant, "To confirm: RO 1001",
		RoleUser, "no wait",
		RoleAssistant, "To confirm: RO 1002",
	)
	match := func(s string) bool { return strings.HasPrefix(s, "To confirm") }
	if got := LastAssistantMatching(l.Turns(), match); got != "To confirm: RO 1002" {
		t.Fatalf("LastAssistantMatching = %q", got)
	}
}

func TestUserTextJoinsOldestFirst(t *testing.T) {
	l := logOf(
		RoleUser, "one",
		RoleAssistant, "ok",
		RoleUser, "two",
	)
	if got := UserText(l.Turns()); got != "one\ntwo" {
		t.Fatalf("UserText = %q", got)
	}
}

func TestNilLogAccessors(t *testing.T) {
	var l *Log
	if l.Len() != 0 || l.Turns() != nil || l.LastUser() != "" {
		t.Fatal("nil log accessors should zero out")
	}
}
