package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadRelayURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Relay.URL = "https://not-a-relay.example"
	if err := validate(cfg); err == nil {
		t.Fatal("expected validation error for relay.url")
	}
}

func TestValidateRejectsBadTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Relay.TimeoutMS = 10
	if err := validate(cfg); err == nil {
		t.Fatal("expected validation error for relay.timeout_ms")
	}
}

func TestValidateRejectsBadCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chat.MaxMessages = 0
	if err := validate(cfg); err == nil {
		t.Fatal("expected validation error for chat.max_messages")
	}
}

func TestLoadOptionalMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	cfg, err := LoadOptional(path)
	if err != nil {
		t.Fatalf("load optional error: %v", err)
	}
	if cfg.Relay.TimeoutMS != 5000 {
		t.Fatalf("unexpected default timeout: %d", cfg.Relay.TimeoutMS)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whisper.yaml")
	cfg := DefaultConfig()
	cfg.Relay.URL = "wss://relay.example.net"
	cfg.Chat.MaxMessages = 500
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if got.Relay.URL != cfg.Relay.URL || got.Chat.MaxMessages != 500 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("relay: [not a map"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}
