package session

import "testing"

func TestNewConnectorID(t *testing.T) {
	tests := []struct {
		raw  string
		want ConnectorID
	}{
		{"Trust Wallet", "wallet-standard:trust-wallet"},
		{"Phantom", "wallet-standard:phantom"},
		{"  Solflare  ", "wallet-standard:solflare"},
		{"Coin98 Wallet!!", "wallet-standard:coin98-wallet"},
		{"My---Weird   Wallet", "wallet-standard:my-weird-wallet"},
		{"WalletConnect", "walletconnect"},
		{"wallet connect", "walletconnect"},
		{"Mobile Wallet Adapter", "mwa:mobile-wallet-adapter"},
		{"Mobile Wallet Adapter (Android)", "mwa:mobile-wallet-adapter-android"},
	}

	for _, tt := range tests {
		got := NewConnectorID(tt.raw)
		if got != tt.want {
			t.Errorf("NewConnectorID(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNewConnectorID_Idempotent(t *testing.T) {
	inputs := []string{"Trust Wallet", "WalletConnect", "Mobile Wallet Adapter", "Backpack"}

	for _, raw := range inputs {
		once := NewConnectorID(raw)
		twice := NewConnectorID(string(once))
		if once != twice {
			t.Errorf("normalization not idempotent for %q: %q != %q", raw, once, twice)
		}
	}
}

func TestIsConnectorID(t *testing.T) {
	valid := []string{
		"wallet-standard:trust-wallet",
		"wallet-standard:phantom",
		"walletconnect",
		"mwa:mobile-wallet-adapter",
	}
	for _, v := range valid {
		if !IsConnectorID(v) {
			t.Errorf("IsConnectorID(%q) = false, want true", v)
		}
	}

	invalid := []string{
		"",
		"Trust Wallet",
		"wallet-standard:",
		"wallet-standard:-trust",
		"wallet-standard:trust-",
		"unknown:phantom",
		"wallet-standard:Trust-Wallet",
	}
	for _, v := range invalid {
		if IsConnectorID(v) {
			t.Errorf("IsConnectorID(%q) = true, want false", v)
		}
	}
}

func TestConnectorID_WalletName(t *testing.T) {
	tests := []struct {
		id   ConnectorID
		want string
	}{
		{"wallet-standard:trust-wallet", "Trust Wallet"},
		{"wallet-standard:phantom", "Phantom"},
		{"walletconnect", "WalletConnect"},
		{"mwa:mobile-wallet-adapter", "Mobile Wallet Adapter"},
	}

	for _, tt := range tests {
		if got := tt.id.WalletName(); got != tt.want {
			t.Errorf("%q.WalletName() = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestConnectorID_RoundTrip(t *testing.T) {
	// Reversal is lossy on casing/punctuation, but re-normalizing the
	// reversed name must land on the same id.
	ids := []ConnectorID{
		"wallet-standard:trust-wallet",
		"wallet-standard:coin98-wallet",
		"walletconnect",
		"mwa:mobile-wallet-adapter",
	}

	for _, id := range ids {
		if got := NewConnectorID(id.WalletName()); got != id {
			t.Errorf("round trip of %q produced %q", id, got)
		}
	}
}

func TestConnectorID_SourceAndSlug(t *testing.T) {
	id := ConnectorID("wallet-standard:trust-wallet")
	if id.Source() != SourceWalletStandard {
		t.Errorf("Source() = %q", id.Source())
	}
	if id.Slug() != "trust-wallet" {
		t.Errorf("Slug() = %q", id.Slug())
	}

	wc := ConnectorID(SourceWalletConnect)
	if wc.Source() != SourceWalletConnect {
		t.Errorf("walletconnect Source() = %q", wc.Source())
	}
}
