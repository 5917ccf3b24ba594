package txtrack

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// StatusClient is the slice of the Solana RPC surface the confirmer needs.
// *rpc.Client satisfies it.
type StatusClient interface {
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// ConfirmerConfig holds polling settings.
type ConfirmerConfig struct {
	// Interval between polls. Defaults to 3s.
	Interval time.Duration

	// SearchHistory widens the RPC lookup to the full transaction
	// history, needed for signatures older than the recent-status cache.
	SearchHistory bool

	Logger *slog.Logger
}

// Confirmer polls signature statuses for the tracker's pending entries and
// drives them to confirmed or failed. It is the in-repo realization of the
// confirmation-polling collaborator; attaching one is optional.
type Confirmer struct {
	tracker *Tracker
	client  StatusClient
	cfg     ConfirmerConfig
	logger  *slog.Logger
}

// NewConfirmer creates a confirmer bound to a tracker and an RPC client.
func NewConfirmer(tracker *Tracker, client StatusClient, cfg ConfirmerConfig) *Confirmer {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Confirmer{
		tracker: tracker,
		client:  client,
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "tx-confirmer"),
	}
}

// Run polls until ctx is cancelled. RPC failures are logged and retried on
// the next tick; they never fail a tracked transaction.
func (c *Confirmer) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.poll(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Warn("status poll failed", "error", err)
			}
		}
	}
}

// poll fetches statuses for all pending signatures and applies updates.
func (c *Confirmer) poll(ctx context.Context) error {
	pending := c.tracker.Pending()
	if len(pending) == 0 {
		return nil
	}

	sigs := make([]solana.Signature, 0, len(pending))
	bySig := make([]string, 0, len(pending))
	for _, raw := range pending {
		sig, err := solana.SignatureFromBase58(raw)
		if err != nil {
			// Unparseable signatures can never confirm.
			c.tracker.UpdateStatus(raw, StatusFailed, fmt.Sprintf("malformed signature: %v", err))
			continue
		}
		sigs = append(sigs, sig)
		bySig = append(bySig, raw)
	}
	if len(sigs) == 0 {
		return nil
	}

	out, err := c.client.GetSignatureStatuses(ctx, c.cfg.SearchHistory, sigs...)
	if err != nil {
		return fmt.Errorf("get signature statuses: %w", err)
	}

	for i, st := range out.Value {
		if i >= len(bySig) {
			// A misbehaving node can return more entries than asked for.
			break
		}
		if st == nil {
			continue // not yet seen by the cluster, still pending
		}
		raw := bySig[i]
		switch {
		case st.Err != nil:
			c.tracker.UpdateStatus(raw, StatusFailed, fmt.Sprintf("%v", st.Err))
		case st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed,
			st.ConfirmationStatus == rpc.ConfirmationStatusFinalized:
			c.tracker.UpdateStatus(raw, StatusConfirmed, "")
		}
	}
	return nil
}
