// Command solconnect-watch runs a headless connector host: it registers the
// configured wallet providers, optionally auto-connects the persisted
// selection, polls transaction confirmations, and exposes the diagnostic
// WebSocket feed (plus optional NATS relay and object-storage archiving).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go/rpc"

	"github.com/mirador/solconnect/cluster"
	"github.com/mirador/solconnect/connector"
	"github.com/mirador/solconnect/internal/archive"
	"github.com/mirador/solconnect/internal/debugserver"
	"github.com/mirador/solconnect/internal/relay"
	"github.com/mirador/solconnect/storage"
	"github.com/mirador/solconnect/txtrack"
	"github.com/mirador/solconnect/wallet"
	"github.com/mirador/solconnect/wallet/bridge"
	"github.com/mirador/solconnect/wallet/keyring"
)

func main() {
	configPath := flag.String("config", getEnv("SOLCONNECT_CONFIG", ""), "Path to YAML config file")
	clusterID := flag.String("cluster", "", "Cluster id override, e.g. solana:devnet")
	logLevel := flag.String("log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg, err := LoadConfig(*configPath, *clusterID)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("watch daemon failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	backend, cleanup, err := buildBackend(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage backend: %w", err)
	}
	defer cleanup()

	registry := wallet.NewRegistry(logger)
	for _, d := range wallet.KnownWallets() {
		registry.RegisterKnown(d)
	}
	for _, kr := range cfg.Wallets.Keyrings {
		p, err := keyring.Load(kr.Name, kr.Paths...)
		if err != nil {
			return fmt.Errorf("keyring %s: %w", kr.Name, err)
		}
		registry.Register(p)
	}
	if cfg.Wallets.Bridge.URL != "" {
		registry.Register(bridge.New(bridge.Config{
			URL:    cfg.Wallets.Bridge.URL,
			Name:   cfg.Wallets.Bridge.Name,
			Logger: logger,
		}))
	}

	client := connector.New(connector.Config{
		Registry:        registry,
		Backend:         backend,
		MaxTransactions: cfg.MaxTransactions,
		Logger:          logger,
	})

	cl, err := cluster.ByID(cfg.Cluster)
	if err != nil {
		return fmt.Errorf("cluster: %w", err)
	}
	if err := client.SelectCluster(cl); err != nil {
		return fmt.Errorf("select cluster: %w", err)
	}

	logger.Info("starting solconnect watch",
		"cluster", cl.ID,
		"wallets", len(registry.Discover()),
		"storage", cfg.Storage.Backend,
	)

	if cfg.Confirm.Enabled && cl.Endpoint != "" {
		confirmer := txtrack.NewConfirmer(client.Tracker(), rpc.New(cl.Endpoint), txtrack.ConfirmerConfig{
			Interval: cfg.Confirm.Interval,
			Logger:   logger,
		})
		go confirmer.Run(ctx)
	}

	if cfg.Relay.URL != "" {
		relayCfg := relay.DefaultConfig()
		relayCfg.URL = cfg.Relay.URL
		if cfg.Relay.SubjectPrefix != "" {
			relayCfg.SubjectPrefix = cfg.Relay.SubjectPrefix
		}
		relayCfg.Logger = logger
		r, err := relay.Connect(relayCfg)
		if err != nil {
			return fmt.Errorf("event relay: %w", err)
		}
		defer r.Close()
		r.Attach(client)
	}

	if cfg.Archive.Endpoint != "" {
		arch, err := archive.New(ctx, archive.Config{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			UseSSL:    cfg.Archive.UseSSL,
			Bucket:    cfg.Archive.Bucket,
			Interval:  cfg.Archive.Interval,
			Logger:    logger,
		})
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		go arch.Run(ctx, client.Tracker())
	}

	if cfg.AutoConnect {
		if client.AutoConnect(ctx) {
			logger.Info("auto-connect restored session",
				"connector_id", client.Status().ConnectorID,
			)
		}
	}

	if cfg.Debug.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/debug/ws", debugserver.New(client, logger).Handler())
		srv := &http.Server{Addr: cfg.Debug.Addr, Handler: mux}

		go func() {
			<-ctx.Done()
			srv.Close()
		}()

		logger.Info("debug endpoint listening", "addr", cfg.Debug.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("debug server: %w", err)
		}
		return nil
	}

	<-ctx.Done()
	return nil
}

func buildBackend(ctx context.Context, cfg StorageConfig) (storage.Backend, func(), error) {
	noop := func() {}
	switch cfg.Backend {
	case "", "memory":
		return storage.NewMemoryBackend(), noop, nil
	case "file":
		return storage.NewFileBackend(cfg.Path), noop, nil
	case "redis":
		b, err := storage.NewRedisBackend(storage.RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return b, func() { b.Close() }, nil
	case "postgres":
		b, err := storage.NewPostgresBackend(ctx, storage.PostgresConfig{
			DSN:   cfg.PostgresDSN,
			Table: cfg.PostgresTable,
		})
		if err != nil {
			return nil, nil, err
		}
		return b, func() { b.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
