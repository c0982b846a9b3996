// Package session owns one phone call end to end: it relays audio
// between the telephony leg and the speech-AI engine, tracks the
// response lifecycle, locks the spoken language, and drives extraction,
// normalization, and persistence off the growing transcript. One
// CallSession per call; sessions never share mutable state.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adascal/voicedesk/pkg/extract"
	"github.com/adascal/voicedesk/pkg/lang"
	"github.com/adascal/voicedesk/pkg/realtime"
	"github.com/adascal/voicedesk/pkg/store"
	"github.com/adascal/voicedesk/pkg/telephony"
	"github.com/adascal/voicedesk/pkg/tools"
	"github.com/adascal/voicedesk/pkg/transcript"
)

// PhoneLeg is the telephony side of a call.
type PhoneLeg interface {
	ReadFrame() (telephony.Frame, error)
	SendAudio(audio []byte) error
	SendMark(name string) error
	Clear() error
	SetStreamSID(sid string)
	Close()
	Done() <-chan struct{}
}

// EngineLeg is the speech-AI side of a call.
type EngineLeg interface {
	Events() <-chan realtime.Event
	Done() <-chan struct{}
	UpdateSession(cfg realtime.SessionConfig) error
	AppendAudio(audioB64 string) error
	CreateResponse(instructions string) error
	CancelResponse() error
	SendFunctionResult(callID string, output any) error
	Close() error
}

// Archiver receives a finished call's summary. Optional.
type Archiver interface {
	ArchiveCall(ctx context.Context, kind, callSID, language string, duration time.Duration, turns []transcript.Turn, loggedROs []string) error
}

// Config tunes one session. Zero values get sensible defaults.
type Config struct {
	Kind  string // KindOps | KindTech
	Voice string

	VADThreshold      float64
	PrefixPaddingMS   int
	SilenceDurationMS int

	SettleDelay time.Duration // pause between session ack and greeting
	HangupDelay time.Duration // audio drain time after a goodbye
}

func (c *Config) withDefaults() {
	if c.Kind == "" {
		c.Kind = KindOps
	}
	if c.Voice == "" {
		c.Voice = "alloy"
	}
	if c.VADThreshold == 0 {
		c.VADThreshold = 0.5
	}
	if c.PrefixPaddingMS == 0 {
		c.PrefixPaddingMS = 300
	}
	if c.SilenceDurationMS == 0 {
		c.SilenceDurationMS = 600
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = 250 * time.Millisecond
	}
	if c.HangupDelay == 0 {
		c.HangupDelay = 2 * time.Second
	}
}

// Dependencies are the collaborators a session drives. Phone, Engine,
// Bridge, and Store are required.
type Dependencies struct {
	Phone   PhoneLeg
	Engine  EngineLeg
	Bridge  *tools.Bridge
	Store   store.RecordStore
	Tracker *Tracker
	Archive Archiver
	Logger  *slog.Logger
	Now     func() time.Time
}

type opsState struct {
	overridePending bool
	pendingRO       string
	pendingWhen     string
}

type techState struct {
	carried      extract.TechCarried
	row          *store.JobRecord
	passed       bool
	askedForInfo bool
}

// CallSession is the per-call state machine. All mutable state is
// guarded by mu; audio forwarding never takes the turn-processing
// path.
type CallSession struct {
	ID   string
	Kind string

	cfg  Config
	deps Dependencies
	log  *slog.Logger
	now  func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	work   chan func()

	startedAt time.Time

	mu             sync.Mutex
	callSID        string
	streamSID      string
	transcript     transcript.Log
	lock           *lang.Lock
	responseActive bool
	lastResponseID string
	greeted        bool
	closing        bool
	transfer       bool
	carried        extract.Carried
	logged         map[string]bool
	arena          *toolArena
	ops            opsState
	tech           techState
}

// New builds a session; Run starts it.
func New(cfg Config, deps Dependencies) *CallSession {
	cfg.withDefaults()
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &CallSession{
		ID:     uuid.NewString(),
		Kind:   cfg.Kind,
		cfg:    cfg,
		deps:   deps,
		now:    deps.Now,
		work:   make(chan func(), 32),
		lock:   lang.NewLock(),
		logged: make(map[string]bool),
		arena:  newToolArena(),
	}
	s.log = deps.Logger.With("session", s.ID, "kind", s.Kind)
	return s
}

// Run drives the call until either leg closes or ctx is cancelled.
func (s *CallSession) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.ctx, s.cancel = ctx, cancel
	s.startedAt = s.now()
	defer s.Close()

	if s.deps.Tracker != nil {
		s.deps.Tracker.Add(s)
		defer s.deps.Tracker.Remove(s.ID)
	}

	go s.worker()
	go s.phoneLoop()

	if err := s.deps.Engine.UpdateSession(s.sessionConfig()); err != nil {
		s.log.Error("session config rejected", "error", err)
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.deps.Phone.Done():
			return nil
		case <-s.deps.Engine.Done():
			return nil
		case ev, ok := <-s.deps.Engine.Events():
			if !ok {
				return nil
			}
			s.handleEngineEvent(ev)
		}
	}
}

// Close tears down both legs. Either leg closing ends up here; no
// audio moves afterward.
func (s *CallSession) Close() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.deps.Phone.Close()
		_ = s.deps.Engine.Close()
		s.archive()
		s.mu.Lock()
		turns := s.transcript.Len()
		s.mu.Unlock()
		s.log.Info("call ended", "turns", turns, "logged", len(s.loggedROs()))
	})
}

func (s *CallSession) archive() {
	if s.deps.Archive == nil {
		return
	}
	s.mu.Lock()
	callSID := s.callSID
	turns := s.transcript.Turns()
	language := string(s.lock.Current())
	s.mu.Unlock()
	duration := s.now().Sub(s.startedAt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.deps.Archive.ArchiveCall(ctx, s.Kind, callSID, language, duration, turns, s.loggedROs()); err != nil {
		s.log.Warn("call archive failed", "error", err)
	}
}

func (s *CallSession) loggedROs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.logged))
	for ro := range s.logged {
		out = append(out, ro)
	}
	return out
}

// sessionConfig is rebuilt on every language switch.
func (s *CallSession) sessionConfig() realtime.SessionConfig {
	manifest := tools.OpsManifest()
	if s.Kind == KindTech {
		manifest = tools.TechManifest()
	}
	raw, _ := tools.EncodeManifest(manifest)
	s.mu.Lock()
	current := s.lock.Current()
	s.mu.Unlock()
	return realtime.SessionConfig{
		Instructions:      instructionsFor(s.Kind, current),
		Voice:             s.cfg.Voice,
		InputAudioFormat:  "g711_ulaw",
		OutputAudioFormat: "g711_ulaw",
		TurnDetection: realtime.TurnDetection{
			Type:              "server_vad",
			Threshold:         s.cfg.VADThreshold,
			PrefixPaddingMS:   s.cfg.PrefixPaddingMS,
			SilenceDurationMS: s.cfg.SilenceDurationMS,
		},
		Tools:         raw,
		Transcription: map[string]any{"model": "whisper-1"},
	}
}

// enqueue hands work to the serialized turn processor.
func (s *CallSession) enqueue(fn func()) {
	select {
	case s.work <- fn:
	case <-s.ctx.Done():
	}
}

func (s *CallSession) worker() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case fn := <-s.work:
			fn()
		}
	}
}

// createResponse triggers the next assistant response, cancelling any
// in-flight one first so only one is ever in progress.
func (s *CallSession) createResponse(instructions string) {
	s.mu.Lock()
	active := s.responseActive
	s.mu.Unlock()
	if active {
		if err := s.deps.Engine.CancelResponse(); err != nil {
			s.log.Warn("response cancel failed", "error", err)
		}
	}
	if err := s.deps.Engine.CreateResponse(instructions); err != nil {
		s.log.Warn("response create failed", "error", err)
	}
}
