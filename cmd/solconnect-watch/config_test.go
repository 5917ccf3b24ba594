package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("", "")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Cluster != "solana:mainnet" {
		t.Errorf("Cluster = %q", cfg.Cluster)
	}
	if !cfg.AutoConnect {
		t.Error("AutoConnect should default on")
	}
	if cfg.Storage.Backend != "file" || cfg.Storage.Path == "" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Debug.Addr != "localhost:8899" {
		t.Errorf("Debug.Addr = %q", cfg.Debug.Addr)
	}
	if !cfg.Confirm.Enabled || cfg.Confirm.Interval != 3*time.Second {
		t.Errorf("Confirm = %+v", cfg.Confirm)
	}
}

func TestLoadConfig_FileAndOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
cluster: solana:devnet
auto_connect: false
max_transactions: 50
storage:
  backend: redis
  redis_addr: localhost:6379
  redis_prefix: "solconnect:"
wallets:
  keyrings:
    - name: Local
      paths: ["/tmp/id.json"]
  bridge:
    url: wss://bridge.example/ws
relay:
  url: nats://localhost:4222
confirm:
  enabled: false
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path, "")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Cluster != "solana:devnet" || cfg.AutoConnect || cfg.MaxTransactions != 50 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Storage.Backend != "redis" || cfg.Storage.RedisAddr != "localhost:6379" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if len(cfg.Wallets.Keyrings) != 1 || cfg.Wallets.Keyrings[0].Name != "Local" {
		t.Errorf("Keyrings = %+v", cfg.Wallets.Keyrings)
	}
	if cfg.Wallets.Bridge.URL != "wss://bridge.example/ws" {
		t.Errorf("Bridge = %+v", cfg.Wallets.Bridge)
	}
	if cfg.Relay.URL != "nats://localhost:4222" {
		t.Errorf("Relay = %+v", cfg.Relay)
	}
	if cfg.Confirm.Enabled {
		t.Error("Confirm.Enabled not overridden")
	}

	// The cluster flag wins over the file.
	cfg, err = LoadConfig(path, "solana:testnet")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Cluster != "solana:testnet" {
		t.Errorf("Cluster = %q, want flag override", cfg.Cluster)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), ""); err == nil {
		t.Error("expected error for missing config file")
	}
}
