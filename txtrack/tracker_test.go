package txtrack

import (
	"testing"

	"github.com/mirador/solconnect/events"
)

func sigs(t *Tracker) []string {
	txs := t.Transactions()
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.Signature
	}
	return out
}

func TestTracker_NewestFirst(t *testing.T) {
	tr := NewTracker(10, nil, nil)

	tr.Track(Transaction{Signature: "s1"})
	tr.Track(Transaction{Signature: "s2"})
	tr.Track(Transaction{Signature: "s3"})

	got := sigs(tr)
	want := []string{"s3", "s2", "s1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestTracker_BoundedEviction(t *testing.T) {
	tr := NewTracker(3, nil, nil)

	for _, s := range []string{"s1", "s2", "s3", "s4"} {
		tr.Track(Transaction{Signature: s})
	}

	if tr.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tr.Len())
	}
	got := sigs(tr)
	want := []string{"s4", "s3", "s2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order after eviction = %v, want %v", got, want)
		}
	}
	if _, ok := tr.Get("s1"); ok {
		t.Error("evicted signature still retrievable")
	}
}

func TestTracker_EvictionIgnoresStatus(t *testing.T) {
	tr := NewTracker(2, nil, nil)

	tr.Track(Transaction{Signature: "s1", Status: StatusPending})
	tr.Track(Transaction{Signature: "s2", Status: StatusConfirmed})
	tr.Track(Transaction{Signature: "s3"})

	// s1 is oldest and goes, even though it is still pending.
	if _, ok := tr.Get("s1"); ok {
		t.Error("oldest entry kept despite capacity")
	}
	if _, ok := tr.Get("s2"); !ok {
		t.Error("s2 evicted out of order")
	}
}

func TestTracker_DuplicateUpdatesInPlace(t *testing.T) {
	tr := NewTracker(3, nil, nil)

	tr.Track(Transaction{Signature: "s1"})
	tr.Track(Transaction{Signature: "s2"})
	tr.Track(Transaction{Signature: "s1", Status: StatusConfirmed, Method: "sign-and-send"})

	if tr.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (no duplicate)", tr.Len())
	}

	got := sigs(tr)
	if got[0] != "s2" || got[1] != "s1" {
		t.Errorf("re-track reordered entries: %v", got)
	}

	tx, ok := tr.Get("s1")
	if !ok {
		t.Fatal("s1 missing")
	}
	if tx.Status != StatusConfirmed || tx.Method != "sign-and-send" {
		t.Errorf("in-place update lost fields: %+v", tx)
	}
}

func TestTracker_Defaults(t *testing.T) {
	tr := NewTracker(0, nil, nil)
	if tr.max != DefaultMaxEntries {
		t.Errorf("max = %d, want %d", tr.max, DefaultMaxEntries)
	}

	tr.Track(Transaction{Signature: "s1"})
	tx, _ := tr.Get("s1")
	if tx.Status != StatusPending {
		t.Errorf("default status = %q, want pending", tx.Status)
	}
	if tx.Timestamp.IsZero() {
		t.Error("timestamp not defaulted")
	}

	tr.Track(Transaction{}) // empty signature is ignored
	if tr.Len() != 1 {
		t.Errorf("Len() = %d after empty-signature track", tr.Len())
	}
}

func TestTracker_UpdateStatus(t *testing.T) {
	bus := events.NewBus(nil)
	var got []events.Event
	bus.On(func(ev events.Event) { got = append(got, ev) })

	tr := NewTracker(5, bus, nil)
	tr.Track(Transaction{Signature: "s1"})

	if !tr.UpdateStatus("s1", StatusFailed, "blockhash expired") {
		t.Fatal("UpdateStatus returned false for tracked signature")
	}
	tx, _ := tr.Get("s1")
	if tx.Status != StatusFailed || tx.ErrMsg != "blockhash expired" {
		t.Errorf("updated tx = %+v", tx)
	}

	// Unknown signature is a no-op.
	if tr.UpdateStatus("missing", StatusConfirmed, "") {
		t.Error("UpdateStatus returned true for unknown signature")
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 events (tracked + updated), got %d", len(got))
	}
	if got[0].Type != events.TransactionTracked {
		t.Errorf("first event = %q", got[0].Type)
	}
	if got[1].Type != events.TransactionUpdated || got[1].TxStatus != string(StatusFailed) {
		t.Errorf("second event = %+v", got[1])
	}
}

func TestTracker_Pending(t *testing.T) {
	tr := NewTracker(5, nil, nil)
	tr.Track(Transaction{Signature: "s1"})
	tr.Track(Transaction{Signature: "s2"})
	tr.UpdateStatus("s1", StatusConfirmed, "")

	pending := tr.Pending()
	if len(pending) != 1 || pending[0] != "s2" {
		t.Errorf("Pending() = %v, want [s2]", pending)
	}
}

func TestTracker_SnapshotIsCopy(t *testing.T) {
	tr := NewTracker(5, nil, nil)
	tr.Track(Transaction{Signature: "s1"})

	snap := tr.Transactions()
	snap[0].Status = StatusFailed

	tx, _ := tr.Get("s1")
	if tx.Status != StatusPending {
		t.Error("snapshot mutation leaked into tracker state")
	}
}
