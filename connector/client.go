// Package connector implements the client-side orchestrator over one
// wallet connection: state machine, persistence of selections, transaction
// tracking and the typed event stream.
package connector

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mirador/solconnect/cluster"
	"github.com/mirador/solconnect/events"
	"github.com/mirador/solconnect/session"
	"github.com/mirador/solconnect/storage"
	"github.com/mirador/solconnect/txtrack"
	"github.com/mirador/solconnect/wallet"
)

// Persisted preference keys. Each key is validated and recovered
// independently, so corruption in one cannot block the others.
const (
	KeyWallet  = "solconnect:wallet"
	KeyAccount = "solconnect:account"
	KeyCluster = "solconnect:cluster"
)

// Config assembles a Client.
type Config struct {
	// Registry supplies discoverable wallets. Required.
	Registry *wallet.Registry

	// Backend persists preferences. Nil degrades to in-memory storage.
	Backend storage.Backend

	// Bus receives all connector events. A private bus is created when
	// nil.
	Bus *events.Bus

	// MaxTransactions bounds the transaction tracker. <= 0 selects the
	// tracker default.
	MaxTransactions int

	Logger *slog.Logger
}

// Client owns the current WalletStatus and serializes every transition
// under one mutex. Concurrent connection attempts are resolved with a
// generation counter: each attempt captures the generation at start, and a
// resolution is applied only while its generation is still current. Any
// superseding Connect or Disconnect bumps the generation, so stale
// resolutions are discarded instead of resurrecting dead state.
type Client struct {
	mu         sync.Mutex
	status     session.Status
	generation uint64
	provider   wallet.Provider // live provider while connected
	stopWatch  func()          // account-change watch teardown

	registry    *wallet.Registry
	bus         *events.Bus
	tracker     *txtrack.Tracker
	walletPref  *storage.Adapter[string]
	accountPref *storage.Adapter[string]
	clusterPref *storage.Adapter[string]
	logger      *slog.Logger
}

// New creates a Client in the disconnected state.
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "connector")

	bus := cfg.Bus
	if bus == nil {
		bus = events.NewBus(logger)
	}
	backend := cfg.Backend
	if backend == nil {
		backend = storage.NewMemoryBackend()
	}

	c := &Client{
		status:   session.Disconnected(),
		registry: cfg.Registry,
		bus:      bus,
		tracker:  txtrack.NewTracker(cfg.MaxTransactions, bus, logger),
		logger:   logger,
	}

	onStorageErr := func(err error) {
		c.bus.Emit(events.Event{Type: events.StorageError, Err: err})
	}

	c.walletPref = storage.NewAdapter(backend, KeyWallet, "", logger).
		AddValidator(func(v string) error {
			if v != "" && !session.IsConnectorID(v) {
				return newError(CodeValidationError, "malformed connector id %q", v)
			}
			return nil
		}).
		OnError(onStorageErr)

	c.accountPref = storage.NewAdapter(backend, KeyAccount, "", logger).
		AddValidator(func(v string) error {
			if v == "" {
				return nil
			}
			if err := wallet.ValidateAddress(v); err != nil {
				return wrapError(CodeValidationError, err, "malformed account address")
			}
			return nil
		}).
		OnError(onStorageErr)

	c.clusterPref = storage.NewAdapter(backend, KeyCluster, "", logger).
		AddValidator(func(v string) error {
			if v != "" && !cluster.IsClusterID(v) {
				return newError(CodeValidationError, "malformed cluster id %q", v)
			}
			return nil
		}).
		OnError(onStorageErr)

	return c
}

// Status returns a snapshot of the current wallet status.
func (c *Client) Status() session.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// On subscribes to the connector event stream and returns an unsubscribe
// function. Delivery is synchronous fan-out in subscription order.
func (c *Client) On(fn events.Listener) (unsubscribe func()) {
	return c.bus.On(fn)
}

// Connect resolves walletName in the registry, runs the provider connect
// flow and transitions to connected on success. Calling Connect while a
// previous attempt is in flight supersedes it: the earlier attempt's
// eventual result is discarded and reported as CONNECTION_CANCELLED.
// Failures transition the client to the error state and are also returned.
func (c *Client) Connect(ctx context.Context, walletName string) (session.Status, error) {
	return c.connect(ctx, walletName, false)
}

// connect is the shared connect flow. silentFailure downgrades any failure
// to a plain disconnected state without emitting an error event; it is used
// by AutoConnect.
func (c *Client) connect(ctx context.Context, walletName string, silentFailure bool) (session.Status, error) {
	id := session.NewConnectorID(walletName)

	provider, ok := c.registry.Lookup(walletName)
	if !ok {
		err := newError(CodeWalletNotFound, "wallet %q is not registered", walletName)
		return c.failConnect(id, err, true, silentFailure), err
	}
	if !provider.Features().Has(wallet.FeatureConnect) {
		// Permanent capability mismatch, retrying cannot help.
		err := newError(CodeProviderError, "wallet %q does not support connect", walletName)
		return c.failConnect(id, err, false, silentFailure), err
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	prev := c.detachLocked()
	c.status = session.Connecting(id)
	c.mu.Unlock()

	if prev != nil {
		if err := prev.Disconnect(ctx); err != nil {
			c.logger.Warn("teardown of previous session failed", "error", err)
		}
	}
	if !silentFailure {
		c.bus.Emit(events.Event{Type: events.WalletConnecting, ConnectorID: id})
	}

	accounts, err := provider.Connect(ctx)

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		// Superseded by a newer Connect or an explicit Disconnect while
		// we were waiting. The result is discarded either way; a session
		// the provider opened anyway gets closed in the background.
		if err == nil {
			go func() { _ = provider.Disconnect(context.Background()) }()
		}
		c.logger.Debug("discarding stale connect result",
			"wallet", walletName,
			"generation", gen,
		)
		return c.Status(), ErrCancelled
	}

	if err != nil {
		cerr := wrapError(CodeProviderError, err, "connect %s", walletName)
		return c.applyFailureLocked(cerr, true, silentFailure), cerr
	}
	if len(accounts) == 0 {
		cerr := newError(CodeProviderError, "wallet %q returned no accounts", walletName)
		return c.applyFailureLocked(cerr, true, silentFailure), cerr
	}

	selected := accounts[0]
	if saved := c.accountPref.Get(); saved != "" {
		for _, acct := range accounts {
			if acct.Address == saved {
				selected = acct
				break
			}
		}
	}

	sess := &session.WalletSession{
		ConnectorID: id,
		Accounts:    accounts,
		Selected:    selected,
	}
	c.provider = provider
	if w, ok := provider.(wallet.AccountWatcher); ok {
		c.stopWatch = w.WatchAccounts(func(accts []session.Account) {
			c.handleAccountsChanged(gen, accts)
		})
		sess.Subscribe = func(fn func([]session.Account)) func() {
			return w.WatchAccounts(fn)
		}
	}
	c.status = session.Connected(sess)
	st := c.status
	c.mu.Unlock()

	c.walletPref.Set(string(id))
	c.accountPref.Set(selected.Address)

	c.logger.Info("wallet connected",
		"wallet", walletName,
		"connector_id", id,
		"accounts", len(accounts),
	)
	c.bus.Emit(events.Event{Type: events.WalletConnected, ConnectorID: id, Address: selected.Address})
	c.bus.Emit(events.Event{Type: events.AccountChanged, ConnectorID: id, Address: selected.Address})
	return st, nil
}

// failConnect applies a synchronous connect failure (no attempt in flight):
// it supersedes any pending attempt and moves to the error state, or to
// disconnected when the failure is silent.
func (c *Client) failConnect(id session.ConnectorID, err *Error, recoverable, silentFailure bool) session.Status {
	c.mu.Lock()
	c.generation++
	prev := c.detachLocked()
	st := c.setFailedLocked(err, recoverable, silentFailure)
	c.mu.Unlock()

	if prev != nil {
		go func() { _ = prev.Disconnect(context.Background()) }()
	}
	c.emitFailure(id, err, silentFailure)
	return st
}

// applyFailureLocked finishes a failed in-flight attempt. The caller holds
// the mutex and has verified the generation is still current; the mutex is
// released here.
func (c *Client) applyFailureLocked(err *Error, recoverable, silentFailure bool) session.Status {
	id := c.status.ConnectorID
	st := c.setFailedLocked(err, recoverable, silentFailure)
	c.mu.Unlock()

	c.emitFailure(id, err, silentFailure)
	return st
}

func (c *Client) setFailedLocked(err *Error, recoverable, silentFailure bool) session.Status {
	if silentFailure {
		c.status = session.Disconnected()
	} else {
		c.status = session.Errored(err, recoverable)
	}
	return c.status
}

func (c *Client) emitFailure(id session.ConnectorID, err *Error, silentFailure bool) {
	if silentFailure {
		c.logger.Debug("connect failed silently", "connector_id", id, "error", err)
		return
	}
	c.logger.Warn("connect failed", "connector_id", id, "error", err)
	c.bus.Emit(events.Event{Type: events.Error, ConnectorID: id, Err: err})
}

// Disconnect tears down the current session, clears the persisted wallet
// and account selection, and moves to disconnected. It is idempotent and
// safe in every state; during a pending connect it invalidates the attempt
// so a late resolution cannot resurrect the connection.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.generation++
	prevState := c.status.State
	prevID := c.status.ConnectorID
	prev := c.detachLocked()
	c.status = session.Disconnected()
	c.mu.Unlock()

	if prevState == session.StateDisconnected {
		return nil
	}

	if prev != nil {
		if err := prev.Disconnect(ctx); err != nil {
			c.logger.Warn("provider disconnect failed", "error", err)
		}
	}

	// Disconnect also forgets the device preference, so auto-connect will
	// not re-establish the session on next start.
	c.walletPref.Clear()
	c.accountPref.Clear()

	c.logger.Info("wallet disconnected", "connector_id", prevID, "from_state", prevState)
	c.bus.Emit(events.Event{Type: events.WalletDisconnected, ConnectorID: prevID})
	return nil
}

// SelectAccount switches the selected account within the connected session.
// It fails with NOT_CONNECTED outside a session and INVALID_ACCOUNT when
// the address is not in the session's account list.
func (c *Client) SelectAccount(address string) (session.Status, error) {
	if err := wallet.ValidateAddress(address); err != nil {
		return c.Status(), wrapError(CodeValidationError, err, "select account")
	}

	c.mu.Lock()
	if !c.status.IsConnected() {
		st := c.status
		c.mu.Unlock()
		return st, newError(CodeNotConnected, "select account requires a connected wallet")
	}

	acct, ok := c.status.Session.FindAccount(address)
	if !ok {
		st := c.status
		c.mu.Unlock()
		return st, newError(CodeInvalidAccount, "account %s is not part of the session", address)
	}

	// Copy on write: earlier Status snapshots keep their session unchanged.
	sess := *c.status.Session
	sess.Selected = acct
	c.status = session.Connected(&sess)
	st := c.status
	id := sess.ConnectorID
	c.mu.Unlock()

	c.accountPref.Set(address)
	c.bus.Emit(events.Event{Type: events.AccountChanged, ConnectorID: id, Address: address})
	return st, nil
}

// SelectCluster persists the cluster preference and notifies subscribers.
func (c *Client) SelectCluster(cl cluster.Cluster) error {
	if !cluster.IsClusterID(cl.ID) {
		return newError(CodeValidationError, "malformed cluster id %q", cl.ID)
	}
	if !c.clusterPref.Set(cl.ID) {
		return newError(CodeValidationError, "cluster id %q rejected", cl.ID)
	}
	c.bus.Emit(events.Event{Type: events.ClusterChanged, Cluster: cl.ID})
	return nil
}

// Cluster returns the persisted cluster preference, defaulting to mainnet.
func (c *Client) Cluster() cluster.Cluster {
	id := c.clusterPref.Get()
	if id == "" {
		return cluster.MainnetBeta
	}
	cl, err := cluster.ByID(id)
	if err != nil {
		return cluster.MainnetBeta
	}
	return cl
}

// AutoConnect re-establishes the previously persisted wallet selection if
// its provider is currently installed. Failures never surface: the client
// simply stays disconnected. It reports whether a session was established.
func (c *Client) AutoConnect(ctx context.Context) bool {
	saved := c.walletPref.Get()
	if saved == "" || !session.IsConnectorID(saved) {
		return false
	}

	provider, ok := c.registry.LookupByConnectorID(session.ConnectorID(saved))
	if !ok {
		c.logger.Debug("auto-connect skipped, wallet not installed", "connector_id", saved)
		return false
	}

	if _, err := c.connect(ctx, provider.Name(), true); err != nil {
		c.logger.Debug("auto-connect failed", "connector_id", saved, "error", err)
		return false
	}
	return true
}

// Track records a transaction in the bounded tracker.
func (c *Client) Track(tx txtrack.Transaction) {
	c.tracker.Track(tx)
}

// UpdateTransactionStatus updates a tracked signature; unknown signatures
// are a no-op.
func (c *Client) UpdateTransactionStatus(signature string, status txtrack.Status, errMsg string) bool {
	return c.tracker.UpdateStatus(signature, status, errMsg)
}

// Transactions returns a newest-first snapshot of tracked transactions.
func (c *Client) Transactions() []txtrack.Transaction {
	return c.tracker.Transactions()
}

// Tracker exposes the underlying tracker, e.g. to attach a
// txtrack.Confirmer.
func (c *Client) Tracker() *txtrack.Tracker { return c.tracker }

// Registry returns the wallet registry the client consults.
func (c *Client) Registry() *wallet.Registry { return c.registry }

// handleAccountsChanged applies a wallet-initiated account list change.
// Stale notifications from a superseded session are dropped by the
// generation check.
func (c *Client) handleAccountsChanged(gen uint64, accounts []session.Account) {
	if len(accounts) == 0 {
		return
	}

	c.mu.Lock()
	if c.generation != gen || !c.status.IsConnected() {
		c.mu.Unlock()
		return
	}

	// Copy on write, as in SelectAccount.
	sess := *c.status.Session
	sess.Accounts = accounts
	if acct, ok := sess.FindAccount(sess.Selected.Address); ok {
		sess.Selected = acct
	} else {
		sess.Selected = accounts[0]
	}
	c.status = session.Connected(&sess)
	id := sess.ConnectorID
	addr := sess.Selected.Address
	c.mu.Unlock()

	c.accountPref.Set(addr)
	c.bus.Emit(events.Event{Type: events.AccountChanged, ConnectorID: id, Address: addr})
}

// detachLocked releases the live session's resources and returns the
// provider that owned it, nil when no session exists. Caller holds the
// mutex.
func (c *Client) detachLocked() wallet.Provider {
	if c.stopWatch != nil {
		c.stopWatch()
		c.stopWatch = nil
	}
	p := c.provider
	c.provider = nil
	return p
}
