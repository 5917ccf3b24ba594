package session

import "context"

// Signer is the capability handle carried by an account for signing
// operations. Providers hand one out per account at connect time.
type Signer interface {
	// SignTransaction signs a serialized transaction and returns the
	// signed bytes.
	SignTransaction(ctx context.Context, tx []byte) ([]byte, error)

	// SignMessage signs an arbitrary message.
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)
}

// Account is one account exposed by a connected wallet.
type Account struct {
	// Address is the base58-encoded public key.
	Address string `json:"address"`

	// Label is an optional human-readable name supplied by the wallet.
	Label string `json:"label,omitempty"`

	// Signer performs signing for this account. Nil for accounts the
	// wallet exposes read-only.
	Signer Signer `json:"-"`
}

// WalletSession is the live state of an established connection. It is
// created when a connect attempt succeeds and destroyed on disconnect or
// fatal error.
type WalletSession struct {
	ConnectorID ConnectorID

	// Accounts is non-empty for a live session.
	Accounts []Account

	// Selected is the account currently used for signing. Always one of
	// Accounts.
	Selected Account

	// Subscribe registers a callback for wallet-initiated account list
	// changes and returns an unsubscribe function. Nil when the provider
	// does not push account changes.
	Subscribe func(fn func(accounts []Account)) (unsubscribe func())
}

// FindAccount returns the account with the given address, if present.
func (s *WalletSession) FindAccount(address string) (Account, bool) {
	for _, acct := range s.Accounts {
		if acct.Address == address {
			return acct, true
		}
	}
	return Account{}, false
}
