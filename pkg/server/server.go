// Package server exposes the telephony-facing HTTP surface: the voice
// webhook that hands calls a media-stream URL, the media websocket that
// becomes one call session, and health reporting.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/adascal/voicedesk/pkg/calllog"
	"github.com/adascal/voicedesk/pkg/config"
	"github.com/adascal/voicedesk/pkg/realtime"
	"github.com/adascal/voicedesk/pkg/session"
	"github.com/adascal/voicedesk/pkg/store"
	"github.com/adascal/voicedesk/pkg/telephony"
	"github.com/adascal/voicedesk/pkg/tools"
)

// EngineDialer opens the speech-AI leg for a new call. Swappable for
// tests.
type EngineDialer func(ctx context.Context, cfg config.Config) (session.EngineLeg, error)

// CallHistory lists recently archived calls. The Postgres archive
// implements it alongside session.Archiver.
type CallHistory interface {
	Recent(ctx context.Context, limit int) ([]calllog.Entry, error)
}

// Dependencies are the shared collaborators behind every call.
type Dependencies struct {
	Store      store.RecordStore
	Bridge     *tools.Bridge
	Tracker    *session.Tracker
	Archive    session.Archiver
	DialEngine EngineDialer
	Logger     *slog.Logger
}

type Server struct {
	cfg    config.Config
	deps   Dependencies
	logger *slog.Logger
	router chi.Router

	upgrader websocket.Upgrader
}

func New(cfg config.Config, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Tracker == nil {
		deps.Tracker = session.NewTracker()
	}
	if deps.DialEngine == nil {
		deps.DialEngine = dialRealtime
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger,
		upgrader: websocket.Upgrader{
			// the telephony provider sends no browser origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Get("/healthz", s.handleHealth)
	r.Get("/calls/recent", s.handleRecentCalls)
	r.Post("/voice/{kind}", s.handleVoice)
	r.Get("/media/{kind}", s.handleMedia)
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Start serves until ctx is cancelled, then drains active calls within
// the shutdown grace period.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGracePeriod)
	defer cancel()
	s.deps.Tracker.CloseAll()
	s.deps.Tracker.Wait(shutdownCtx)
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"service":      "voicedesk",
		"active_calls": s.deps.Tracker.Count(),
	})
}

func (s *Server) handleRecentCalls(w http.ResponseWriter, r *http.Request) {
	history, ok := s.deps.Archive.(CallHistory)
	if !ok {
		http.Error(w, "call archive not configured", http.StatusNotFound)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("recent calls query failed", "error", err)
		http.Error(w, "archive unavailable", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []calllog.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleVoice answers the telephony webhook with the media-stream
// connect instruction for the requested assistant.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if kind != session.KindOps && kind != session.KindTech {
		http.Error(w, "unknown assistant", http.StatusNotFound)
		return
	}
	host := s.cfg.PublicHost
	if host == "" {
		host = r.Host
	}
	w.Header().Set("Content-Type", "text/xml")
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<Response>
	<Connect>
		<Stream url="wss://%s/media/%s"/>
	</Connect>
</Response>
`, host, kind)
}

// handleMedia upgrades the media-stream socket and runs one call
// session on it until either leg closes.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if kind != session.KindOps && kind != session.KindTech {
		http.Error(w, "unknown assistant", http.StatusNotFound)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("media upgrade failed", "error", err)
		return
	}

	ctx := r.Context()
	phone := telephony.NewConn(ctx, ws, s.logger, telephony.Config{
		WriteTimeout: s.cfg.WSWriteTimeout,
		PingInterval: s.cfg.WSPingInterval,
	})

	engine, err := s.deps.DialEngine(ctx, s.cfg)
	if err != nil {
		s.logger.Error("engine dial failed", "kind", kind, "error", err)
		phone.Close()
		return
	}

	sess := session.New(session.Config{
		Kind:              kind,
		Voice:             s.cfg.Voice,
		VADThreshold:      s.cfg.VADThreshold,
		PrefixPaddingMS:   s.cfg.PrefixPaddingMS,
		SilenceDurationMS: s.cfg.SilenceDurationMS,
		SettleDelay:       s.cfg.SettleDelay,
		HangupDelay:       s.cfg.HangupDelay,
	}, session.Dependencies{
		Phone:   phone,
		Engine:  engine,
		Bridge:  s.deps.Bridge,
		Store:   s.deps.Store,
		Tracker: s.deps.Tracker,
		Archive: s.deps.Archive,
		Logger:  s.logger,
	})

	start := time.Now()
	_ = sess.Run(ctx)
	s.logger.Info("media session finished", "kind", kind, "duration", time.Since(start))
}

func dialRealtime(ctx context.Context, cfg config.Config) (session.EngineLeg, error) {
	return realtime.Dial(ctx, realtime.Config{
		URL:    cfg.EngineURL,
		APIKey: cfg.EngineAPIKey,
		Model:  cfg.EngineModel,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
