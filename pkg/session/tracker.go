package session

import (
	"context"
	"sync"
)

// Tracker registers active call sessions so the server can report load
// and drain calls on shutdown. Nil trackers are inert.
type Tracker struct {
	mu     sync.Mutex
	active map[string]*CallSession
	wg     sync.WaitGroup
}

func NewTracker() *Tracker {
	return &Tracker{active: make(map[string]*CallSession)}
}

func (t *Tracker) Add(s *CallSession) {
	if t == nil || s == nil {
		return
	}
	t.mu.Lock()
	if t.active == nil {
		t.active = make(map[string]*CallSession)
	}
	t.active[s.ID] = s
	t.wg.Add(1)
	t.mu.Unlock()
}

func (t *Tracker) Remove(id string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	if _, ok := t.active[id]; ok {
		delete(t.active, id)
		t.wg.Done()
	}
	t.mu.Unlock()
}

func (t *Tracker) Count() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// CloseAll tears down every active call.
func (t *Tracker) CloseAll() (closed int) {
	if t == nil {
		return 0
	}
	var sessions []*CallSession
	t.mu.Lock()
	for _, s := range t.active {
		sessions = append(sessions, s)
	}
	t.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		closed++
	}
	return closed
}

// Wait blocks until every tracked call has been removed or ctx ends.
func (t *Tracker) Wait(ctx context.Context) bool {
	if t == nil {
		return true
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		t.wg.Wait()
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
