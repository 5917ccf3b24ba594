// Package wallet defines the provider capability interface and the Registry
// that tracks which wallets are currently installed.
package wallet

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/mirador/solconnect/session"
)

// Feature is one wallet capability flag.
type Feature string

const (
	FeatureConnect             Feature = "connect"
	FeatureDisconnect          Feature = "disconnect"
	FeatureSignTransaction     Feature = "sign-transaction"
	FeatureSignAllTransactions Feature = "sign-all-transactions"
	FeatureSignMessage         Feature = "sign-message"
	FeatureSignAndSend         Feature = "sign-and-send"
)

// FeatureSet is the set of capabilities a wallet advertises.
type FeatureSet map[Feature]bool

// NewFeatureSet builds a set from the given features.
func NewFeatureSet(features ...Feature) FeatureSet {
	fs := make(FeatureSet, len(features))
	for _, f := range features {
		fs[f] = true
	}
	return fs
}

// Has reports whether the feature is present.
func (fs FeatureSet) Has(f Feature) bool { return fs[f] }

// List returns the features in a stable order.
func (fs FeatureSet) List() []Feature {
	order := []Feature{
		FeatureConnect, FeatureDisconnect, FeatureSignTransaction,
		FeatureSignAllTransactions, FeatureSignMessage, FeatureSignAndSend,
	}
	var out []Feature
	for _, f := range order {
		if fs[f] {
			out = append(out, f)
		}
	}
	return out
}

// Provider is a connectable wallet. Implementations are registered with a
// Registry at runtime; capability flags are declared up front rather than
// probed ad hoc.
type Provider interface {
	// Name is the unique display name, e.g. "Phantom".
	Name() string

	// Icon is an opaque icon URI, possibly empty.
	Icon() string

	// Chains lists supported chain identifiers, e.g. "solana:mainnet".
	Chains() []string

	// Features declares the supported capability set.
	Features() FeatureSet

	// Connect establishes a session and returns the exposed accounts.
	// The returned slice is non-empty on success.
	Connect(ctx context.Context) ([]session.Account, error)

	// Disconnect tears down the session.
	Disconnect(ctx context.Context) error
}

// AccountWatcher is implemented by providers that push account list
// changes (the user switching accounts inside the wallet).
type AccountWatcher interface {
	// WatchAccounts registers a callback and returns a stop function.
	WatchAccounts(fn func(accounts []session.Account)) (stop func())
}

// BatchSigner is implemented by providers supporting
// FeatureSignAllTransactions.
type BatchSigner interface {
	SignAllTransactions(ctx context.Context, txs [][]byte) ([][]byte, error)
}

// Sender is implemented by providers supporting FeatureSignAndSend.
type Sender interface {
	SignAndSendTransaction(ctx context.Context, tx []byte) (signature string, err error)
}

// Descriptor is an immutable snapshot of a discoverable wallet. The
// Installed flag distinguishes live providers from known-but-absent
// placeholders used for install prompts.
type Descriptor struct {
	Name        string              `json:"name"`
	Icon        string              `json:"icon,omitempty"`
	Chains      []string            `json:"chains,omitempty"`
	Features    []Feature           `json:"features,omitempty"`
	Installed   bool                `json:"installed"`
	ConnectorID session.ConnectorID `json:"connector_id"`
}

// ValidateAddress checks that addr is a well-formed base58 Solana public
// key.
func ValidateAddress(addr string) error {
	if _, err := solana.PublicKeyFromBase58(addr); err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	return nil
}
