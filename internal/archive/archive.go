// Package archive uploads periodic snapshots of the transaction tracker to
// S3-compatible object storage for post-mortem inspection.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mirador/solconnect/txtrack"
)

// Config holds object storage settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// Bucket receives the snapshots. Created if missing.
	Bucket string

	// Interval between snapshots when running the loop. Defaults to 5m.
	Interval time.Duration

	Logger *slog.Logger
}

// Archiver writes tracker snapshots as JSON objects keyed by time.
type Archiver struct {
	client *minio.Client
	bucket string
	cfg    Config
	logger *slog.Logger
}

type snapshot struct {
	TakenAt      time.Time             `json:"taken_at"`
	Transactions []txtrack.Transaction `json:"transactions"`
}

// New connects to object storage and ensures the bucket exists.
func New(ctx context.Context, cfg Config) (*Archiver, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &Archiver{
		client: client,
		bucket: cfg.Bucket,
		cfg:    cfg,
		logger: logger.With("component", "tx-archive"),
	}, nil
}

// Snapshot uploads the tracker's current contents. Empty trackers are
// skipped.
func (a *Archiver) Snapshot(ctx context.Context, tracker *txtrack.Tracker) error {
	txs := tracker.Transactions()
	if len(txs) == 0 {
		return nil
	}

	data, err := json.Marshal(snapshot{TakenAt: time.Now(), Transactions: txs})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	name := fmt.Sprintf("tracker/%s/%s.json",
		time.Now().UTC().Format("2006-01-02"),
		uuid.NewString(),
	)

	_, err = a.client.PutObject(ctx, a.bucket, name,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}

	a.logger.Debug("snapshot archived", "object", name, "transactions", len(txs))
	return nil
}

// Run snapshots on an interval until ctx is cancelled.
func (a *Archiver) Run(ctx context.Context, tracker *txtrack.Tracker) {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.Snapshot(ctx, tracker); err != nil {
				if ctx.Err() != nil {
					return
				}
				a.logger.Warn("snapshot failed", "error", err)
			}
		}
	}
}
