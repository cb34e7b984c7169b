package container

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ibsnap/internal/domain/model"
	"ibsnap/internal/infrastructure/config"
)

func TestContainerDefaultsToMemory(t *testing.T) {
	c, err := New(&config.Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if c.Store() == nil {
		t.Fatalf("expected a store")
	}
	if c.RedisRepo() != nil {
		t.Fatalf("redis should be disabled")
	}
	if len(c.mirrors) != 0 {
		t.Fatalf("expected no mirrors, got %d", len(c.mirrors))
	}
}

func TestContainerSQLiteWithMemoryMirror(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.SQLite.Enabled = true
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "cache.db")
	cfg.Storage.Memory.Enabled = true

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()
	if len(c.mirrors) != 1 {
		t.Fatalf("expected memory mirror, got %d mirrors", len(c.mirrors))
	}

	ctx := context.Background()
	entry := model.CacheEntry{Kind: model.KindQuote, SubKey: "AAPL", Payload: []byte(`{"symbol":"AAPL"}`), UpdatedAt: time.Now()}
	if err := c.Store().Write(ctx, entry); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, ok, err := c.mirrors[0].Read(ctx, model.KindQuote, "AAPL")
	if err != nil || !ok {
		t.Fatalf("mirror Read: ok=%v err=%v", ok, err)
	}
	if string(got.Payload) != `{"symbol":"AAPL"}` {
		t.Fatalf("unexpected payload %s", got.Payload)
	}
}

func TestContainerCloseTwice(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.SQLite.Enabled = true
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "cache.db")

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
