package session

import (
	"time"

	"github.com/adascal/voicedesk/pkg/tools"
)

// Debounce window for repeated identical tool calls. The engine
// re-issues a call after a cancelled response; within this window the
// cached result is replayed instead of hitting the bridge again.
var DebounceTTL = 10 * time.Second

// arenaMax bounds the dedup map over a long call; oldest entries are
// evicted first once exceeded.
const arenaMax = 32

type arenaEntry struct {
	result tools.Result
	at     time.Time
}

// toolArena is the per-call bounded dedup map for recent tool calls,
// keyed by tool name + RO.
type toolArena struct {
	entries map[string]arenaEntry
}

func newToolArena() *toolArena {
	return &toolArena{entries: make(map[string]arenaEntry)}
}

// recent returns the cached result if the same key executed within the
// TTL.
func (a *toolArena) recent(key string, now time.Time) (tools.Result, bool) {
	e, ok := a.entries[key]
	if !ok || now.Sub(e.at) > DebounceTTL {
		return tools.Result{}, false
	}
	return e.result, true
}

// remember records a completed call and prunes in the same step.
func (a *toolArena) remember(key string, res tools.Result, now time.Time) {
	a.entries[key] = arenaEntry{result: res, at: now}
	a.prune(now)
}

// prune drops expired entries, then evicts oldest-first down to the
// size bound.
func (a *toolArena) prune(now time.Time) {
	for k, e := range a.entries {
		if now.Sub(e.at) > DebounceTTL {
			delete(a.entries, k)
		}
	}
	for len(a.entries) > arenaMax {
		var oldestKey string
		var oldestAt time.Time
		for k, e := range a.entries {
			if oldestKey == "" || e.at.Before(oldestAt) {
				oldestKey, oldestAt = k, e.at
			}
		}
		delete(a.entries, oldestKey)
	}
}
