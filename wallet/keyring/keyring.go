// Package keyring provides a local wallet provider backed by a Solana
// keygen file, for headless hosts that sign with their own key instead of
// delegating to an external wallet.
package keyring

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/mirador/solconnect/session"
	"github.com/mirador/solconnect/wallet"
)

// Provider is a wallet.Provider over one or more locally held keypairs.
// Connect exposes every key as an account; all signing happens in-process.
type Provider struct {
	name  string
	icon  string
	keys  []solana.PrivateKey
	label func(i int, pub solana.PublicKey) string

	mu        sync.Mutex
	connected bool
}

// Load reads keygen JSON files (the solana-keygen format) and builds a
// provider with the given display name.
func Load(name string, paths ...string) (*Provider, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("keyring %q: no key files", name)
	}

	keys := make([]solana.PrivateKey, 0, len(paths))
	for _, path := range paths {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
		if err != nil {
			return nil, fmt.Errorf("load key %s: %w", path, err)
		}
		keys = append(keys, key)
	}
	return &Provider{name: name, keys: keys}, nil
}

// NewProvider builds a provider from in-memory keys. Used by tests and
// callers that manage key material themselves.
func NewProvider(name string, keys ...solana.PrivateKey) (*Provider, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("keyring %q: no keys", name)
	}
	return &Provider{name: name, keys: keys}, nil
}

func (p *Provider) Name() string { return p.name }
func (p *Provider) Icon() string { return p.icon }

func (p *Provider) Chains() []string {
	return []string{"solana:mainnet", "solana:devnet", "solana:testnet", "solana:localnet"}
}

func (p *Provider) Features() wallet.FeatureSet {
	return wallet.NewFeatureSet(
		wallet.FeatureConnect,
		wallet.FeatureDisconnect,
		wallet.FeatureSignTransaction,
		wallet.FeatureSignAllTransactions,
		wallet.FeatureSignMessage,
	)
}

// Connect exposes each key as an account with an in-process signer.
func (p *Provider) Connect(ctx context.Context) ([]session.Account, error) {
	p.mu.Lock()
	p.connected = true
	p.mu.Unlock()

	accounts := make([]session.Account, 0, len(p.keys))
	for i, key := range p.keys {
		pub := key.PublicKey()
		label := ""
		if p.label != nil {
			label = p.label(i, pub)
		}
		accounts = append(accounts, session.Account{
			Address: pub.String(),
			Label:   label,
			Signer:  &keySigner{key: key},
		})
	}
	return accounts, nil
}

func (p *Provider) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	return nil
}

// SignAllTransactions signs each payload with the first key.
func (p *Provider) SignAllTransactions(ctx context.Context, txs [][]byte) ([][]byte, error) {
	s := &keySigner{key: p.keys[0]}
	out := make([][]byte, 0, len(txs))
	for _, tx := range txs {
		sig, err := s.SignTransaction(ctx, tx)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, nil
}

// keySigner signs payloads with a single ed25519 keypair. The payload is
// the serialized transaction message; the returned bytes are the 64-byte
// signature.
type keySigner struct {
	key solana.PrivateKey
}

func (s *keySigner) SignTransaction(ctx context.Context, tx []byte) ([]byte, error) {
	sig, err := s.key.Sign(tx)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return sig[:], nil
}

func (s *keySigner) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	sig, err := s.key.Sign(msg)
	if err != nil {
		return nil, fmt.Errorf("sign message: %w", err)
	}
	return sig[:], nil
}

var (
	_ wallet.Provider    = (*Provider)(nil)
	_ wallet.BatchSigner = (*Provider)(nil)
	_ session.Signer     = (*keySigner)(nil)
)
