package session

import (
	"regexp"
	"strings"
)

// ConnectorID is the normalized persistent identity of a wallet, used as
// the storage key for "last connected wallet". It combines a source tag
// with a normalized wallet name, e.g. "wallet-standard:trust-wallet".
type ConnectorID string

// Source tags for ConnectorID.
const (
	SourceWalletStandard      = "wallet-standard"
	SourceWalletConnect       = "walletconnect"
	SourceMobileWalletAdapter = "mwa"
)

var (
	nonAlnumRuns  = regexp.MustCompile(`[^a-z0-9]+`)
	connectorIDRe = regexp.MustCompile(`^(wallet-standard:[a-z0-9]+(-[a-z0-9]+)*|walletconnect|mwa:[a-z0-9]+(-[a-z0-9]+)*)$`)
)

// normalizeName lowercases, trims, collapses runs of non-alphanumeric
// characters into single hyphens and strips leading/trailing hyphens.
func normalizeName(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = nonAlnumRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NewConnectorID derives a ConnectorID from a raw wallet display name.
// Normalization is idempotent: passing an already-normalized id returns it
// unchanged. WalletConnect maps to the bare "walletconnect" id and mobile
// wallet adapter names take the "mwa:" source tag; everything else is
// tagged "wallet-standard:".
func NewConnectorID(rawName string) ConnectorID {
	if IsConnectorID(rawName) {
		return ConnectorID(rawName)
	}

	slug := normalizeName(rawName)
	switch {
	case slug == SourceWalletConnect || slug == "wallet-connect":
		return ConnectorID(SourceWalletConnect)
	case strings.HasPrefix(slug, "mobile-wallet-adapter"):
		return ConnectorID(SourceMobileWalletAdapter + ":" + slug)
	default:
		return ConnectorID(SourceWalletStandard + ":" + slug)
	}
}

// IsConnectorID reports whether value is a well-formed ConnectorID.
func IsConnectorID(value string) bool {
	return connectorIDRe.MatchString(value)
}

// Source returns the source tag of the id.
func (id ConnectorID) Source() string {
	if id == SourceWalletConnect {
		return SourceWalletConnect
	}
	if i := strings.IndexByte(string(id), ':'); i >= 0 {
		return string(id[:i])
	}
	return ""
}

// Slug returns the normalized wallet name portion of the id.
func (id ConnectorID) Slug() string {
	if i := strings.IndexByte(string(id), ':'); i >= 0 {
		return string(id[i+1:])
	}
	return string(id)
}

// WalletName reverses the normalization on a best-effort basis: hyphens
// become spaces and each word is capitalized. The original casing and
// punctuation are not recoverable; "WalletConnect" is special-cased.
func (id ConnectorID) WalletName() string {
	if id == SourceWalletConnect {
		return "WalletConnect"
	}

	words := strings.Split(id.Slug(), "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
