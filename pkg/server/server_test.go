package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/adascal/voicedesk/pkg/calllog"
	"github.com/adascal/voicedesk/pkg/config"
	"github.com/adascal/voicedesk/pkg/realtime"
	"github.com/adascal/voicedesk/pkg/session"
	"github.com/adascal/voicedesk/pkg/store"
	"github.com/adascal/voicedesk/pkg/tools"
	"github.com/adascal/voicedesk/pkg/transcript"
)

type stubEngine struct {
	events chan realtime.Event
	done   chan struct{}
	once   sync.Once

	mu         sync.Mutex
	configured bool
}

func newStubEngine() *stubEngine {
	return &stubEngine{
		events: make(chan realtime.Event, 4),
		done:   make(chan struct{}),
	}
}

func (e *stubEngine) Events() <-chan realtime.Event { return e.events }
func (e *stubEngine) Done() <-chan struct{}         { return e.done }

func (e *stubEngine) UpdateSession(realtime.SessionConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.configured = true
	return nil
}

func (e *stubEngine) AppendAudio(string) error             { return nil }
func (e *stubEngine) CreateResponse(string) error          { return nil }
func (e *stubEngine) CancelResponse() error                { return nil }
func (e *stubEngine) SendFunctionResult(string, any) error { return nil }

func (e *stubEngine) Close() error {
	e.once.Do(func() { close(e.done) })
	return nil
}

func (e *stubEngine) wasConfigured() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.configured
}

func newTestServer(t *testing.T, engine *stubEngine) (*Server, *httptest.Server) {
	t.Helper()
	mem := store.NewMemoryStore()
	srv := New(config.Config{
		PublicHost:          "calls.example.com",
		ShutdownGracePeriod: time.Second,
	}, Dependencies{
		Store:  mem,
		Bridge: &tools.Bridge{Store: mem},
		DialEngine: func(ctx context.Context, cfg config.Config) (session.EngineLeg, error) {
			return engine, nil
		},
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, newStubEngine())
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["active_calls"] != float64(0) {
		t.Fatalf("body = %v", body)
	}
}

type stubHistory struct {
	entries []calllog.Entry
}

func (h *stubHistory) ArchiveCall(context.Context, string, string, string, time.Duration, []transcript.Turn, []string) error {
	return nil
}

func (h *stubHistory) Recent(ctx context.Context, limit int) ([]calllog.Entry, error) {
	return h.entries, nil
}

func TestRecentCallsWithoutArchive(t *testing.T) {
	_, ts := newTestServer(t, newStubEngine())
	resp, err := http.Get(ts.URL + "/calls/recent")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 without an archive", resp.StatusCode)
	}
}

func TestRecentCallsListsArchive(t *testing.T) {
	mem := store.NewMemoryStore()
	srv := New(config.Config{}, Dependencies{
		Store:   mem,
		Bridge:  &tools.Bridge{Store: mem},
		Archive: &stubHistory{entries: []calllog.Entry{{Kind: "ops", CallSID: "CA1", Language: "en", TurnCount: 6}}},
		DialEngine: func(ctx context.Context, cfg config.Config) (session.EngineLeg, error) {
			return newStubEngine(), nil
		},
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/calls/recent?limit=5")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got []calllog.Entry
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].CallSID != "CA1" || got[0].Language != "en" {
		t.Fatalf("entries = %+v", got)
	}
}

func TestVoiceWebhookReturnsStreamURL(t *testing.T) {
	_, ts := newTestServer(t, newStubEngine())
	resp, err := http.Post(ts.URL+"/voice/ops", "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/xml" {
		t.Fatalf("content type = %q", ct)
	}
	buf := make([]byte, 4096)
	n, _ := resp.Body.Read(buf)
	body := string(buf[:n])
	if !strings.Contains(body, `wss://calls.example.com/media/ops`) {
		t.Fatalf("body = %s", body)
	}
	if !strings.Contains(body, "<Connect>") {
		t.Fatalf("body = %s", body)
	}
}

func TestVoiceWebhookUnknownKind(t *testing.T) {
	_, ts := newTestServer(t, newStubEngine())
	resp, err := http.Post(ts.URL+"/voice/billing", "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestMediaRunsSession(t *testing.T) {
	engine := newStubEngine()
	_, ts := newTestServer(t, engine)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/media/tech"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	start := `{"event":"start","start":{"streamSid":"MZ9","callSid":"CA9"}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(start)); err != nil {
		t.Fatalf("start frame: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if engine.wasConfigured() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !engine.wasConfigured() {
		t.Fatal("session never configured the engine leg")
	}

	// hanging up tears down the engine leg too
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"stop"}`))
	select {
	case <-engine.done:
	case <-time.After(3 * time.Second):
		t.Fatal("engine leg never closed after stop")
	}
}
