package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the watch daemon configuration.
type Config struct {
	// Cluster is the persisted-format cluster id, e.g. "solana:devnet".
	Cluster string `yaml:"cluster"`

	// AutoConnect re-establishes the persisted wallet selection on start.
	AutoConnect bool `yaml:"auto_connect"`

	// MaxTransactions bounds the transaction tracker.
	MaxTransactions int `yaml:"max_transactions"`

	Storage StorageConfig `yaml:"storage"`
	Wallets WalletsConfig `yaml:"wallets"`
	Debug   DebugConfig   `yaml:"debug"`
	Relay   RelayConfig   `yaml:"relay"`
	Archive ArchiveConfig `yaml:"archive"`
	Confirm ConfirmConfig `yaml:"confirm"`
}

// StorageConfig selects the preference backend.
type StorageConfig struct {
	// Backend: memory, file, redis or postgres.
	Backend string `yaml:"backend"`

	// Path is the store file for the file backend.
	Path string `yaml:"path"`

	// Redis settings.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`

	// Postgres settings.
	PostgresDSN   string `yaml:"postgres_dsn"`
	PostgresTable string `yaml:"postgres_table"`
}

// WalletsConfig declares the providers registered at startup.
type WalletsConfig struct {
	// Keyrings are local keypair-file providers.
	Keyrings []KeyringConfig `yaml:"keyrings"`

	// Bridge enables the remote WebSocket provider when URL is set.
	Bridge BridgeConfig `yaml:"bridge"`
}

type KeyringConfig struct {
	Name  string   `yaml:"name"`
	Paths []string `yaml:"paths"`
}

type BridgeConfig struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// DebugConfig controls the inspector WebSocket endpoint.
type DebugConfig struct {
	// Addr is the listen address; empty disables the endpoint.
	Addr string `yaml:"addr"`
}

// RelayConfig controls the NATS event feed.
type RelayConfig struct {
	// URL enables the relay when set.
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// ArchiveConfig controls tracker snapshots to object storage.
type ArchiveConfig struct {
	// Endpoint enables archiving when set.
	Endpoint  string        `yaml:"endpoint"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
	UseSSL    bool          `yaml:"use_ssl"`
	Bucket    string        `yaml:"bucket"`
	Interval  time.Duration `yaml:"interval"`
}

// ConfirmConfig controls transaction confirmation polling.
type ConfirmConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// LoadConfig loads defaults, then the optional file, then CLI overrides.
func LoadConfig(configPath, clusterID string) (*Config, error) {
	cfg := &Config{
		Cluster:         "solana:mainnet",
		AutoConnect:     true,
		MaxTransactions: 20,
		Storage: StorageConfig{
			Backend: "file",
			Path:    defaultStorePath(),
		},
		Debug: DebugConfig{
			Addr: "localhost:8899",
		},
		Confirm: ConfirmConfig{
			Enabled:  true,
			Interval: 3 * time.Second,
		},
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if clusterID != "" {
		cfg.Cluster = clusterID
	}

	return cfg, nil
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "solconnect.json"
	}
	return home + "/.solconnect/store.json"
}
