package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// failingBackend fails every call, mimicking disabled or quota-exhausted
// storage.
type failingBackend struct{}

func (failingBackend) GetItem(key string) (string, bool, error) {
	return "", false, errors.New("backend disabled")
}
func (failingBackend) SetItem(key, value string) error { return errors.New("backend disabled") }
func (failingBackend) RemoveItem(key string) error     { return errors.New("backend disabled") }

func TestAdapter_GetNeverFails(t *testing.T) {
	var handled []error
	a := NewAdapter[string](failingBackend{}, "pref", "fallback", nil).
		OnError(func(err error) { handled = append(handled, err) })

	if got := a.Get(); got != "fallback" {
		t.Errorf("Get() = %q, want fallback", got)
	}
	if len(handled) != 1 {
		t.Errorf("expected 1 error handler call, got %d", len(handled))
	}
}

func TestAdapter_SetSurvivesBackendFailure(t *testing.T) {
	var handled int
	a := NewAdapter[string](failingBackend{}, "pref", "initial", nil).
		OnError(func(err error) { handled++ })

	// Validators pass, backend write fails: the memory fallback accepts
	// the value and Set reports success.
	if !a.Set("next") {
		t.Fatal("Set returned false, want true via memory fallback")
	}
	if handled == 0 {
		t.Error("expected error handler notification")
	}
	if got := a.Get(); got != "next" {
		t.Errorf("Get() after failed write = %q, want next", got)
	}
}

func TestAdapter_ValidatorGate(t *testing.T) {
	backend := NewMemoryBackend()
	a := NewAdapter[string](backend, "pref", "initial", nil).
		AddValidator(func(v string) error {
			if len(v) > 5 {
				return fmt.Errorf("too long")
			}
			return nil
		}).
		AddValidator(func(v string) error {
			if v == "nope" {
				return fmt.Errorf("rejected")
			}
			return nil
		})

	if a.Set("this value is too long") {
		t.Error("Set accepted a value the first validator rejects")
	}
	if a.Set("nope") {
		t.Error("Set accepted a value the second validator rejects")
	}
	if got := a.Get(); got != "initial" {
		t.Errorf("rejected writes mutated state: Get() = %q", got)
	}
	if _, ok, _ := backend.GetItem("pref"); ok {
		t.Error("rejected write reached the backend")
	}

	if !a.Set("ok") {
		t.Error("Set rejected a valid value")
	}
	if got := a.Get(); got != "ok" {
		t.Errorf("Get() = %q, want ok", got)
	}
}

func TestAdapter_PersistAndReload(t *testing.T) {
	backend := NewMemoryBackend()

	a := NewAdapter[string](backend, "pref", "", nil)
	if !a.Set("stored") {
		t.Fatal("Set failed")
	}

	// A fresh adapter over the same backend sees the persisted value.
	b := NewAdapter[string](backend, "pref", "", nil)
	if got := b.Get(); got != "stored" {
		t.Errorf("reloaded Get() = %q, want stored", got)
	}
}

func TestAdapter_RejectsCorruptStoredValue(t *testing.T) {
	backend := NewMemoryBackend()
	backend.SetItem("pref", "not-json{")

	var handled int
	a := NewAdapter[string](backend, "pref", "initial", nil).
		OnError(func(err error) { handled++ })

	if got := a.Get(); got != "initial" {
		t.Errorf("Get() with corrupt backend value = %q, want initial", got)
	}
	if handled != 1 {
		t.Errorf("expected 1 handler call, got %d", handled)
	}
}

func TestAdapter_StoredValueFailsValidator(t *testing.T) {
	backend := NewMemoryBackend()
	backend.SetItem("pref", `"garbage"`)

	a := NewAdapter[string](backend, "pref", "initial", nil).
		AddValidator(func(v string) error {
			if v == "garbage" {
				return fmt.Errorf("invalid")
			}
			return nil
		})

	if got := a.Get(); got != "initial" {
		t.Errorf("Get() = %q, want initial (stored value must be re-validated)", got)
	}
}

func TestAdapter_Clear(t *testing.T) {
	backend := NewMemoryBackend()
	a := NewAdapter[string](backend, "pref", "initial", nil)

	a.Set("something")
	a.Clear()

	if got := a.Get(); got != "initial" {
		t.Errorf("Get() after Clear = %q, want initial", got)
	}
	if _, ok, _ := backend.GetItem("pref"); ok {
		t.Error("Clear left the backend key in place")
	}
}

func TestAdapter_ClearSwallowsBackendErrors(t *testing.T) {
	a := NewAdapter[string](failingBackend{}, "pref", "initial", nil)
	a.Clear() // must not panic
	if got := a.Get(); got != "initial" {
		t.Errorf("Get() = %q, want initial", got)
	}
}

func TestAdapter_IsAvailable(t *testing.T) {
	if !NewAdapter[string](NewMemoryBackend(), "pref", "", nil).IsAvailable() {
		t.Error("memory backend should be available")
	}
	if NewAdapter[string](failingBackend{}, "pref", "", nil).IsAvailable() {
		t.Error("failing backend should be unavailable")
	}
	if NewAdapter[string](nil, "pref", "", nil).IsAvailable() {
		t.Error("nil backend should be unavailable")
	}
}

func TestAdapter_NilBackendDegradesToMemory(t *testing.T) {
	a := NewAdapter[string](nil, "pref", "initial", nil)
	if !a.Set("v") {
		t.Error("Set failed with nil backend")
	}
	if got := a.Get(); got != "v" {
		t.Errorf("Get() = %q, want v", got)
	}
}

func TestMigrate(t *testing.T) {
	backend := NewMemoryBackend()
	backend.SetItem("old-key", `"carried"`)

	a := NewAdapter[string](backend, "new-key", "", nil)

	if !Migrate("old-key", a) {
		t.Fatal("Migrate returned false, want true")
	}
	if got := a.Get(); got != "carried" {
		t.Errorf("Get() after migrate = %q, want carried", got)
	}
	if _, ok, _ := backend.GetItem("old-key"); ok {
		t.Error("old key survived migration")
	}

	// Second run finds nothing.
	if Migrate("old-key", a) {
		t.Error("repeat Migrate returned true")
	}
}

func TestMigrate_NeverFails(t *testing.T) {
	if Migrate[string]("old", nil) {
		t.Error("Migrate into nil adapter returned true")
	}

	a := NewAdapter[string](failingBackend{}, "new", "", nil)
	if Migrate("old", a) {
		t.Error("Migrate with failing backend returned true")
	}

	backend := NewMemoryBackend()
	backend.SetItem("old", "corrupt{")
	b := NewAdapter[string](backend, "new", "", nil)
	if Migrate("old", b) {
		t.Error("Migrate of corrupt value returned true")
	}
}

func TestAdapter_ErrorHandlerMayReenter(t *testing.T) {
	a := NewAdapter[string](failingBackend{}, "pref", "initial", nil)

	// A handler that calls back into the adapter, as the connector does
	// when it turns storage failures into events and a listener reacts.
	var reentered bool
	depth := 0
	a.OnError(func(err error) {
		if depth > 0 {
			return
		}
		depth++
		defer func() { depth-- }()

		if got := a.Get(); got != "next" {
			t.Errorf("re-entrant Get() = %q, want next", got)
		}
		a.Clear()
		if !a.Set("next") {
			t.Error("re-entrant Set failed")
		}
		reentered = true
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if !a.Set("next") {
			t.Error("Set returned false")
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("re-entrant error handler deadlocked the adapter")
	}
	if !reentered {
		t.Fatal("handler never ran")
	}
}

func TestAdapter_Chainable(t *testing.T) {
	a := NewAdapter[string](NewMemoryBackend(), "pref", "", nil)
	if a.AddValidator(func(string) error { return nil }).OnError(func(error) {}) != a {
		t.Error("chainable registration must return the same instance")
	}
}
