package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// probeKey is written and deleted by IsAvailable to test the backend.
const probeKey = "__solconnect_probe__"

// Validator accepts or rejects a candidate value before it is written.
type Validator[T any] func(value T) error

// ErrorHandler is notified of backend failures that were recovered locally.
type ErrorHandler func(err error)

// Adapter is a validated, versioned preference slot backed by a Backend.
// Get never fails: on any backend or decode error the last known-good
// in-memory value is returned and registered error handlers are notified.
// Values are JSON-encoded in the backend.
type Adapter[T any] struct {
	mu         sync.Mutex
	backend    Backend
	key        string
	initial    T
	value      T // last known-good, doubles as the memory fallback
	loaded     bool
	validators []Validator[T]
	handlers   []ErrorHandler
	logger     *slog.Logger
}

// NewAdapter creates an adapter for one key. initial is returned by Get
// until a stored value is read or a Set succeeds. A nil backend degrades to
// memory-only operation.
func NewAdapter[T any](backend Backend, key string, initial T, logger *slog.Logger) *Adapter[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter[T]{
		backend: backend,
		key:     key,
		initial: initial,
		value:   initial,
		logger:  logger.With("component", "storage", "key", key),
	}
}

// AddValidator registers a validator. Chainable.
func (a *Adapter[T]) AddValidator(v Validator[T]) *Adapter[T] {
	a.mu.Lock()
	a.validators = append(a.validators, v)
	a.mu.Unlock()
	return a
}

// OnError registers a handler for recovered backend failures. Chainable.
func (a *Adapter[T]) OnError(h ErrorHandler) *Adapter[T] {
	a.mu.Lock()
	a.handlers = append(a.handlers, h)
	a.mu.Unlock()
	return a
}

// Get returns the current value. It never fails: backend read or decode
// errors fall back to the in-memory value and notify error handlers.
func (a *Adapter[T]) Get() T {
	a.mu.Lock()

	if a.backend == nil {
		v := a.value
		a.mu.Unlock()
		return v
	}

	raw, ok, err := a.backend.GetItem(a.key)
	if err != nil {
		v := a.value
		a.mu.Unlock()
		a.fail(fmt.Errorf("read %s: %w", a.key, err))
		return v
	}
	if !ok {
		v := a.value
		a.mu.Unlock()
		return v
	}

	var decoded T
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		v := a.value
		a.mu.Unlock()
		a.fail(fmt.Errorf("decode %s: %w", a.key, err))
		return v
	}
	if err := a.validate(decoded); err != nil {
		v := a.value
		a.mu.Unlock()
		a.fail(fmt.Errorf("stored %s rejected: %w", a.key, err))
		return v
	}

	a.value = decoded
	a.loaded = true
	a.mu.Unlock()
	return decoded
}

// Set validates and stores a value. It returns false without writing when
// any validator rejects the value. When validators pass but the backend
// write fails, the value is retained in the memory fallback, handlers are
// notified, and Set still returns true. Set never fails hard.
func (a *Adapter[T]) Set(value T) bool {
	a.mu.Lock()

	if err := a.validate(value); err != nil {
		a.mu.Unlock()
		a.logger.Debug("value rejected by validator", "error", err)
		return false
	}

	a.value = value
	a.loaded = true

	if a.backend == nil {
		a.mu.Unlock()
		return true
	}

	raw, err := json.Marshal(value)
	if err != nil {
		a.mu.Unlock()
		a.fail(fmt.Errorf("encode %s: %w", a.key, err))
		return true
	}
	if err := a.backend.SetItem(a.key, string(raw)); err != nil {
		a.mu.Unlock()
		a.fail(fmt.Errorf("write %s: %w", a.key, err))
		return true
	}
	a.mu.Unlock()
	return true
}

// Clear removes the backend key and resets the in-memory value to the
// initial value. Backend errors are swallowed (handlers are still told).
func (a *Adapter[T]) Clear() {
	a.mu.Lock()
	a.value = a.initial
	a.loaded = false
	backend := a.backend
	a.mu.Unlock()

	if backend == nil {
		return
	}
	if err := backend.RemoveItem(a.key); err != nil {
		a.fail(fmt.Errorf("remove %s: %w", a.key, err))
	}
}

// IsAvailable probes the backend with a throwaway write+delete. It returns
// false when there is no backend or any probe step fails.
func (a *Adapter[T]) IsAvailable() bool {
	if a.backend == nil {
		return false
	}
	if err := a.backend.SetItem(probeKey, "1"); err != nil {
		return false
	}
	if err := a.backend.RemoveItem(probeKey); err != nil {
		return false
	}
	return true
}

// Key returns the backend key this adapter owns.
func (a *Adapter[T]) Key() string { return a.key }

// validate runs all validators in registration order; the first rejection
// wins. Caller holds the lock.
func (a *Adapter[T]) validate(value T) error {
	for _, v := range a.validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// fail notifies handlers of a recovered backend error. Caller must NOT
// hold the lock: handlers run synchronously and may re-enter the adapter.
func (a *Adapter[T]) fail(err error) {
	a.logger.Warn("storage backend failure", "error", err)

	a.mu.Lock()
	handlers := make([]ErrorHandler, len(a.handlers))
	copy(handlers, a.handlers)
	a.mu.Unlock()

	for _, h := range handlers {
		h(err)
	}
}

// Migrate is a one-shot key migration: it reads oldKey from the target
// adapter's backend, forwards a decodable value into into.Set, then deletes
// oldKey. It reports whether a value was migrated and never fails hard.
func Migrate[T any](oldKey string, into *Adapter[T]) bool {
	if into == nil || into.backend == nil {
		return false
	}

	raw, ok, err := into.backend.GetItem(oldKey)
	if err != nil || !ok {
		return false
	}

	var decoded T
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return false
	}
	if !into.Set(decoded) {
		return false
	}

	// Best effort: the migrated value is already persisted under the new
	// key, a failed delete just leaves the stale copy behind.
	_ = into.backend.RemoveItem(oldKey)
	return true
}
