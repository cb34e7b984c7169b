package svc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ibsnap/internal/application/usecase/refresh"
	"ibsnap/internal/infrastructure/config"
)

func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{}
	cfg.App.TickMs = 500
	cfg.Refresh.QuotesSec = 5
	cfg.Refresh.PortfolioSec = 20
	cfg.Refresh.AccountSec = 30
	cfg.Refresh.SessionSec = 60
	cfg.Gateway.BaseURL = "https://127.0.0.1:1/v1/api"
	cfg.Gateway.WsURL = "wss://127.0.0.1:1/v1/api/ws"
	cfg.Gateway.TimeoutSec = 1
	cfg.Storage.SQLite.Enabled = true
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "cache.db")
	return cfg
}

func TestServiceContextSchedulerDeps(t *testing.T) {
	sc, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sc.Close()

	deps := sc.BuildSchedulerDeps()
	if deps.Tick != sc.Config.Tick() {
		t.Errorf("tick: got %v", deps.Tick)
	}
	if len(deps.Jobs) != 4 {
		t.Fatalf("expected 4 jobs, got %d", len(deps.Jobs))
	}
	if deps.Jobs[0].Name != refresh.JobSession || deps.Jobs[0].Interval != sc.Config.SessionInterval() {
		t.Errorf("unexpected session job %+v", deps.Jobs[0])
	}
	if deps.Jobs[1].Interval != sc.Config.QuotesInterval() {
		t.Errorf("unexpected quotes interval %v", deps.Jobs[1].Interval)
	}
	if deps.Session.IsConnected() {
		t.Errorf("session should start disconnected")
	}
}

func TestServiceContextConnectFailureIsNotFatal(t *testing.T) {
	sc, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sc.Close()

	sc.ConnectSession(context.Background())
	if sc.App().Session().IsConnected() {
		t.Fatalf("expected session to stay offline")
	}
}

func TestServiceContextStorageFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg := testConfig(t)
	cfg.Storage.SQLite.Path = filepath.Join(blocker, "cache.db")

	_, err := New(context.Background(), cfg)
	if !errors.Is(err, ErrStorageInitFailed) {
		t.Fatalf("expected ErrStorageInitFailed, got %v", err)
	}
}

func TestServiceContextCloseTwice(t *testing.T) {
	sc, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sc.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
