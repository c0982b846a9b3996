package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/adascal/voicedesk/pkg/config"
	"github.com/adascal/voicedesk/pkg/dispatch"
	"github.com/adascal/voicedesk/pkg/server"
	"github.com/adascal/voicedesk/pkg/store"
)

func testDeps() appDeps {
	return appDeps{
		loadConfig: func() (config.Config, error) {
			return config.Config{Addr: ":0", RoutingFile: "routing.yaml"}, nil
		},
		loadRouting: func(string) (map[string]dispatch.Routing, []dispatch.Restriction, error) {
			return map[string]dispatch.Routing{}, nil, nil
		},
		newStore: func(config.Config) (store.RecordStore, error) {
			return store.NewMemoryStore(), nil
		},
		newArchive: func(context.Context, string, *slog.Logger) (archiveHandle, error) {
			return nil, errors.New("unexpected archive dial")
		},
		startServer: func(ctx context.Context, srv *server.Server) error {
			return nil
		},
	}
}

func TestRunMainReturnsNonZeroWhenConfigLoadFails(t *testing.T) {
	deps := testDeps()
	deps.loadConfig = func() (config.Config, error) {
		return config.Config{}, errors.New("boom")
	}
	deps.loadRouting = func(string) (map[string]dispatch.Routing, []dispatch.Restriction, error) {
		t.Fatal("routing should not load when config fails")
		return nil, nil, nil
	}

	var stderr bytes.Buffer
	if code := runMain(context.Background(), &stderr, deps); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if stderr.Len() == 0 {
		t.Fatal("expected stderr output for startup error")
	}
}

func TestRunMainReturnsNonZeroWhenRoutingFails(t *testing.T) {
	deps := testDeps()
	deps.loadRouting = func(string) (map[string]dispatch.Routing, []dispatch.Restriction, error) {
		return nil, nil, errors.New("no routing file")
	}

	var stderr bytes.Buffer
	if code := runMain(context.Background(), &stderr, deps); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestRunSkipsArchiveWithoutDatabaseURL(t *testing.T) {
	deps := testDeps()
	started := false
	deps.startServer = func(ctx context.Context, srv *server.Server) error {
		started = true
		return nil
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := run(context.Background(), logger, deps); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !started {
		t.Fatal("server never started")
	}
}

func TestRunConnectsArchiveWhenConfigured(t *testing.T) {
	deps := testDeps()
	deps.loadConfig = func() (config.Config, error) {
		return config.Config{Addr: ":0", RoutingFile: "routing.yaml", DatabaseURL: "postgres://x"}, nil
	}
	dialed := false
	deps.newArchive = func(context.Context, string, *slog.Logger) (archiveHandle, error) {
		dialed = true
		return nil, errors.New("refused")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := run(context.Background(), logger, deps); err == nil {
		t.Fatal("expected error when archive dial fails")
	}
	if !dialed {
		t.Fatal("archive was never dialed")
	}
}
