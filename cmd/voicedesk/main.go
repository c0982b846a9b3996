package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/adascal/voicedesk/internal/dotenv"
	"github.com/adascal/voicedesk/pkg/calllog"
	"github.com/adascal/voicedesk/pkg/config"
	"github.com/adascal/voicedesk/pkg/dispatch"
	"github.com/adascal/voicedesk/pkg/server"
	"github.com/adascal/voicedesk/pkg/session"
	"github.com/adascal/voicedesk/pkg/store"
	"github.com/adascal/voicedesk/pkg/tools"
)

type appDeps struct {
	loadConfig  func() (config.Config, error)
	loadRouting func(path string) (map[string]dispatch.Routing, []dispatch.Restriction, error)
	newStore    func(cfg config.Config) (store.RecordStore, error)
	newArchive  func(ctx context.Context, databaseURL string, logger *slog.Logger) (archiveHandle, error)
	startServer func(ctx context.Context, srv *server.Server) error
}

// archiveHandle is the slice of calllog.Archive the entrypoint needs.
type archiveHandle interface {
	session.Archiver
	Close()
}

func defaultAppDeps() appDeps {
	return appDeps{
		loadConfig:  config.LoadFromEnv,
		loadRouting: config.LoadRouting,
		newStore: func(cfg config.Config) (store.RecordStore, error) {
			return store.NewHTTPStore(cfg.RecordStoreURL, cfg.RecordStoreAPIKey)
		},
		newArchive: func(ctx context.Context, databaseURL string, logger *slog.Logger) (archiveHandle, error) {
			return calllog.New(ctx, databaseURL, logger)
		},
		startServer: func(ctx context.Context, srv *server.Server) error {
			return srv.Start(ctx)
		},
	}
}

func run(ctx context.Context, logger *slog.Logger, deps appDeps) error {
	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	routes, restrictions, err := deps.loadRouting(cfg.RoutingFile)
	if err != nil {
		return fmt.Errorf("load routing: %w", err)
	}

	records, err := deps.newStore(cfg)
	if err != nil {
		return fmt.Errorf("connect record store: %w", err)
	}

	var archive session.Archiver
	if cfg.DatabaseURL != "" {
		a, err := deps.newArchive(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("connect call archive: %w", err)
		}
		defer a.Close()
		archive = a
	} else {
		logger.Warn("no database configured, call archiving disabled")
	}

	bridge := &tools.Bridge{
		Store:  records,
		Engine: dispatch.NewEngine(routes, restrictions),
		Logger: logger,
	}

	srv := server.New(cfg, server.Dependencies{
		Store:   records,
		Bridge:  bridge,
		Tracker: session.NewTracker(),
		Archive: archive,
		Logger:  logger,
	})

	logger.Info("starting voicedesk", "addr", cfg.Addr, "shops", len(routes))
	return deps.startServer(ctx, srv)
}

func runMain(ctx context.Context, stderr io.Writer, deps appDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := dotenv.Load(); err != nil {
		fmt.Fprintf(stderr, "voicedesk: %v\n", err)
		return 1
	}

	if err := run(ctx, logger, deps); err != nil && ctx.Err() == nil {
		fmt.Fprintf(stderr, "voicedesk: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(runMain(ctx, os.Stderr, defaultAppDeps()))
}
