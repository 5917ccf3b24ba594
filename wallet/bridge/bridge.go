// Package bridge provides a remote wallet provider that proxies connect and
// signing calls over a WebSocket bridge, the transport used by
// WalletConnect-style and mobile-wallet-adapter pairings.
package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mirador/solconnect/session"
	"github.com/mirador/solconnect/wallet"
)

// Config holds bridge connection settings.
type Config struct {
	// URL is the bridge WebSocket endpoint, e.g. "wss://bridge.example/ws".
	URL string

	// Name is the display name the provider registers under. Defaults to
	// "WalletConnect".
	Name string

	// Icon is an optional icon URI forwarded from the remote wallet.
	Icon string

	// CallTimeout bounds each request/response round trip. Defaults to
	// 60s; wallet approval prompts are slow.
	CallTimeout time.Duration

	// DialTimeout bounds the initial WebSocket dial. Defaults to 10s.
	DialTimeout time.Duration

	Logger *slog.Logger
}

// frame is the wire format in both directions. Requests carry ID, Method
// and Params; responses echo the ID with Result or Error; unsolicited
// notifications carry Method with no ID.
type frame struct {
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type accountPayload struct {
	Address string `json:"address"`
	Label   string `json:"label,omitempty"`
}

// Provider is a wallet.Provider whose wallet lives on the far side of a
// WebSocket bridge.
type Provider struct {
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	conn        *websocket.Conn
	pending     map[string]chan frame
	nextWatcher int
	watchers    map[int]func([]session.Account)
	closed      chan struct{}
}

// New creates a bridge provider. The WebSocket is dialed lazily on
// Connect.
func New(cfg Config) *Provider {
	if cfg.Name == "" {
		cfg.Name = "WalletConnect"
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Provider{
		cfg:      cfg,
		logger:   cfg.Logger.With("component", "bridge-provider", "wallet", cfg.Name),
		pending:  make(map[string]chan frame),
		watchers: make(map[int]func([]session.Account)),
	}
}

func (p *Provider) Name() string { return p.cfg.Name }
func (p *Provider) Icon() string { return p.cfg.Icon }

func (p *Provider) Chains() []string {
	return []string{"solana:mainnet", "solana:devnet"}
}

func (p *Provider) Features() wallet.FeatureSet {
	return wallet.NewFeatureSet(
		wallet.FeatureConnect,
		wallet.FeatureDisconnect,
		wallet.FeatureSignTransaction,
		wallet.FeatureSignMessage,
	)
}

// Connect dials the bridge and asks the remote wallet for its accounts.
func (p *Provider) Connect(ctx context.Context) ([]session.Account, error) {
	if err := p.dial(ctx); err != nil {
		return nil, err
	}

	res, err := p.call(ctx, "connect", nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Accounts []accountPayload `json:"accounts"`
	}
	if err := json.Unmarshal(res, &payload); err != nil {
		return nil, fmt.Errorf("decode connect result: %w", err)
	}
	if len(payload.Accounts) == 0 {
		return nil, fmt.Errorf("bridge wallet exposed no accounts")
	}

	accounts := make([]session.Account, 0, len(payload.Accounts))
	for _, a := range payload.Accounts {
		accounts = append(accounts, session.Account{
			Address: a.Address,
			Label:   a.Label,
			Signer:  &remoteSigner{provider: p, address: a.Address},
		})
	}
	return accounts, nil
}

// Disconnect notifies the remote side and closes the socket.
func (p *Provider) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return nil
	}

	// Best effort; the close below is what actually ends the session.
	_, _ = p.call(ctx, "disconnect", nil)
	p.teardown()
	return nil
}

// WatchAccounts registers for remote account-change notifications. The stop
// function is idempotent.
func (p *Provider) WatchAccounts(fn func([]session.Account)) (stop func()) {
	p.mu.Lock()
	p.nextWatcher++
	id := p.nextWatcher
	p.watchers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.watchers, id)
		p.mu.Unlock()
	}
}

// dial establishes the WebSocket if not already connected.
func (p *Provider) dial(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, p.cfg.DialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, p.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial bridge %s: %w", p.cfg.URL, err)
	}

	p.conn = conn
	p.closed = make(chan struct{})
	go p.readLoop(conn, p.closed)

	p.logger.Info("bridge connected", "url", p.cfg.URL)
	return nil
}

// call performs one request/response round trip.
func (p *Provider) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	p.mu.Lock()
	conn := p.conn
	if conn == nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("bridge not connected")
	}

	id := uuid.NewString()
	ch := make(chan frame, 1)
	p.pending[id] = ch

	req := frame{ID: id, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			delete(p.pending, id)
			p.mu.Unlock()
			return nil, fmt.Errorf("encode params: %w", err)
		}
		req.Params = raw
	}
	err := conn.WriteJSON(req)
	p.mu.Unlock()
	if err != nil {
		p.forget(id)
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	timer := time.NewTimer(p.cfg.CallTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		p.forget(id)
		return nil, ctx.Err()
	case <-timer.C:
		p.forget(id)
		return nil, fmt.Errorf("%s timed out after %s", method, p.cfg.CallTimeout)
	case res := <-ch:
		if res.Error != "" {
			return nil, fmt.Errorf("bridge %s: %s", method, res.Error)
		}
		return res.Result, nil
	}
}

func (p *Provider) forget(id string) {
	p.mu.Lock()
	delete(p.pending, id)
	p.mu.Unlock()
}

// readLoop dispatches responses to pending calls and fans notifications out
// to account watchers. It exits when the connection drops.
func (p *Provider) readLoop(conn *websocket.Conn, closed chan struct{}) {
	defer p.teardown()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			select {
			case <-closed:
			default:
				p.logger.Warn("bridge read failed", "error", err)
			}
			return
		}

		if f.ID != "" {
			p.mu.Lock()
			ch, ok := p.pending[f.ID]
			delete(p.pending, f.ID)
			p.mu.Unlock()
			if ok {
				ch <- f
			}
			continue
		}

		if f.Method == "accounts_changed" {
			p.handleAccountsChanged(f.Params)
		}
	}
}

func (p *Provider) handleAccountsChanged(params json.RawMessage) {
	var payload struct {
		Accounts []accountPayload `json:"accounts"`
	}
	if err := json.Unmarshal(params, &payload); err != nil {
		p.logger.Warn("bad accounts_changed payload", "error", err)
		return
	}

	accounts := make([]session.Account, 0, len(payload.Accounts))
	for _, a := range payload.Accounts {
		accounts = append(accounts, session.Account{
			Address: a.Address,
			Label:   a.Label,
			Signer:  &remoteSigner{provider: p, address: a.Address},
		})
	}

	p.mu.Lock()
	watchers := make([]func([]session.Account), 0, len(p.watchers))
	for _, fn := range p.watchers {
		watchers = append(watchers, fn)
	}
	p.mu.Unlock()

	for _, fn := range watchers {
		fn(accounts)
	}
}

// teardown closes the socket and fails all pending calls.
func (p *Provider) teardown() {
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	if p.closed != nil {
		select {
		case <-p.closed:
		default:
			close(p.closed)
		}
	}
	pending := p.pending
	p.pending = make(map[string]chan frame)
	p.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	for id, ch := range pending {
		ch <- frame{ID: id, Error: "bridge closed"}
	}
}

// remoteSigner forwards signing requests for one account over the bridge.
type remoteSigner struct {
	provider *Provider
	address  string
}

type signParams struct {
	Address string `json:"address"`
	Payload string `json:"payload"` // base64
}

type signResult struct {
	Signature string `json:"signature"` // base64
}

func (s *remoteSigner) sign(ctx context.Context, method string, payload []byte) ([]byte, error) {
	res, err := s.provider.call(ctx, method, signParams{
		Address: s.address,
		Payload: base64.StdEncoding.EncodeToString(payload),
	})
	if err != nil {
		return nil, err
	}

	var out signResult
	if err := json.Unmarshal(res, &out); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", method, err)
	}
	sig, err := base64.StdEncoding.DecodeString(out.Signature)
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	return sig, nil
}

func (s *remoteSigner) SignTransaction(ctx context.Context, tx []byte) ([]byte, error) {
	return s.sign(ctx, "sign_transaction", tx)
}

func (s *remoteSigner) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	return s.sign(ctx, "sign_message", msg)
}

var (
	_ wallet.Provider       = (*Provider)(nil)
	_ wallet.AccountWatcher = (*Provider)(nil)
	_ session.Signer        = (*remoteSigner)(nil)
)
