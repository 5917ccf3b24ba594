// Package txtrack keeps a bounded, ordered record of submitted transaction
// signatures and their confirmation lifecycle.
package txtrack

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mirador/solconnect/events"
)

// DefaultMaxEntries bounds the tracker when no explicit limit is set.
const DefaultMaxEntries = 20

// Status is a transaction lifecycle status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Transaction is one tracked signature. Signature is the primary key.
type Transaction struct {
	Signature string            `json:"signature"`
	Status    Status            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Method    string            `json:"method,omitempty"` // submission method tag
	FeePayer  string            `json:"fee_payer,omitempty"`
	ErrMsg    string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Tracker is a newest-first list of transactions bounded at max entries.
// Insertion evicts from the tail (FIFO by insertion order, regardless of
// status); re-tracking an existing signature updates it in place without
// duplicating or reordering.
type Tracker struct {
	mu      sync.RWMutex
	max     int
	entries []*Transaction // entries[0] is newest
	index   map[string]*Transaction
	bus     *events.Bus
	logger  *slog.Logger
}

// NewTracker creates a tracker. max <= 0 selects DefaultMaxEntries. bus may
// be nil when no event stream is attached.
func NewTracker(max int, bus *events.Bus, logger *slog.Logger) *Tracker {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		max:    max,
		index:  make(map[string]*Transaction),
		bus:    bus,
		logger: logger.With("component", "tx-tracker"),
	}
}

// Track inserts a transaction at the front, or updates the existing entry
// in place when the signature is already tracked. Missing fields get
// defaults: Status pending, Timestamp now.
func (t *Tracker) Track(tx Transaction) {
	if tx.Signature == "" {
		return
	}
	if tx.Status == "" {
		tx.Status = StatusPending
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now()
	}

	t.mu.Lock()
	if existing, ok := t.index[tx.Signature]; ok {
		*existing = tx
		t.mu.Unlock()
		t.emit(events.Event{
			Type:      events.TransactionTracked,
			Signature: tx.Signature,
			TxStatus:  string(tx.Status),
		})
		return
	}

	entry := &tx
	t.entries = append([]*Transaction{entry}, t.entries...)
	t.index[tx.Signature] = entry

	for len(t.entries) > t.max {
		evicted := t.entries[len(t.entries)-1]
		t.entries = t.entries[:len(t.entries)-1]
		delete(t.index, evicted.Signature)
		t.logger.Debug("evicted transaction", "signature", evicted.Signature)
	}
	t.mu.Unlock()

	t.emit(events.Event{
		Type:      events.TransactionTracked,
		Signature: tx.Signature,
		TxStatus:  string(tx.Status),
	})
}

// UpdateStatus mutates the status (and optional error message) of a tracked
// signature. Unknown signatures are a silent no-op; the return value
// reports whether an entry was updated.
func (t *Tracker) UpdateStatus(signature string, status Status, errMsg string) bool {
	t.mu.Lock()
	entry, ok := t.index[signature]
	if !ok {
		t.mu.Unlock()
		return false
	}
	entry.Status = status
	entry.ErrMsg = errMsg
	t.mu.Unlock()

	t.emit(events.Event{
		Type:       events.TransactionUpdated,
		Signature:  signature,
		TxStatus:   string(status),
		ErrMessage: errMsg,
	})
	return true
}

// Get returns a copy of the tracked transaction for a signature.
func (t *Tracker) Get(signature string) (Transaction, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.index[signature]
	if !ok {
		return Transaction{}, false
	}
	return *entry, true
}

// Transactions returns a newest-first snapshot.
func (t *Tracker) Transactions() []Transaction {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Transaction, len(t.entries))
	for i, e := range t.entries {
		out[i] = *e
	}
	return out
}

// Pending returns the signatures currently in pending state, newest first.
func (t *Tracker) Pending() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for _, e := range t.entries {
		if e.Status == StatusPending {
			out = append(out, e.Signature)
		}
	}
	return out
}

// Len returns the current entry count.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *Tracker) emit(ev events.Event) {
	if t.bus != nil {
		t.bus.Emit(ev)
	}
}
