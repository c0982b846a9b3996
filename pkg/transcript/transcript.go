// Package transcript holds the role-tagged, append-only record of one
// call's conversation.
package transcript

import (
	"strings"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one completed utterance. Immutable once appended.
type Turn struct {
	Role string
	Text string
	At   time.Time
}

// Log is an ordered sequence of turns. Append-only; never reordered.
type Log struct {
	turns []Turn
}

func (l *Log) Append(role, text string, at time.Time) {
	l.turns = append(l.turns, Turn{Role: role, Text: text, At: at})
}

// Turns returns a copy of the sequence.
func (l *Log) Turns() []Turn {
	if l == nil {
		return nil
	}
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.turns)
}

// LastUser returns the most recent user turn text, or "".
func (l *Log) LastUser() string {
	if l == nil {
		return ""
	}
	for i := len(l.turns) - 1; i >= 0; i-- {
		if l.turns[i].Role == RoleUser {
			return l.turns[i].Text
		}
	}
	return ""
}

// AnswerTo finds the most recent user turn that directly follows an
// assistant turn matching the predicate. The answer to a question is the
// very next thing the caller said, nothing later.
func AnswerTo(turns []Turn, asked func(assistantText string) bool) string {
	for i := len(turns) - 2; i >= 0; i-- {
		if turns[i].Role != RoleAssistant || !asked(turns[i].Text) {
			continue
		}
		for j := i + 1; j < len(turns); j++ {
			if turns[j].Role == RoleUser {
				return turns[j].Text
			}
			if turns[j].Role == RoleAssistant {
				break
			}
		}
	}
	return ""
}

// LastAssistantMatching returns the most recent assistant turn text
// matching the predicate, or "".
func LastAssistantMatching(turns []Turn, match func(string) bool) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == RoleAssistant && match(turns[i].Text) {
			return turns[i].Text
		}
	}
	return ""
}

// UserText joins all user turns into one scan target, oldest first.
func UserText(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		if t.Role != RoleUser {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(t.Text)
	}
	return b.String()
}
