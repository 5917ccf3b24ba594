// Package events defines the connector event stream: a closed set of typed
// events and a Bus that fans them out synchronously to subscribers.
package events

import (
	"time"

	"github.com/mirador/solconnect/session"
)

// Type discriminates the event union. The set is closed; consumers should
// switch exhaustively on it.
type Type string

const (
	WalletConnecting   Type = "wallet:connecting"
	WalletConnected    Type = "wallet:connected"
	WalletDisconnected Type = "wallet:disconnected"
	AccountChanged     Type = "account:changed"
	ClusterChanged     Type = "cluster:changed"
	TransactionTracked Type = "transaction:tracked"
	TransactionUpdated Type = "transaction:updated"
	StorageError       Type = "storage:error"
	Error              Type = "error"
)

// Event is one entry in the connector event stream. Only the fields
// relevant to Type are populated. Events are delivered to subscribers and
// never persisted.
type Event struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// ConnectorID is set on wallet:* and account:* events.
	ConnectorID session.ConnectorID `json:"connector_id,omitempty"`

	// Address is the selected account for account:changed and
	// wallet:connected.
	Address string `json:"address,omitempty"`

	// Cluster is set on cluster:changed.
	Cluster string `json:"cluster,omitempty"`

	// Signature and TxStatus are set on transaction:* events.
	Signature string `json:"signature,omitempty"`
	TxStatus  string `json:"tx_status,omitempty"`

	// Err is set on error and storage:error events.
	Err error `json:"-"`

	// ErrMessage mirrors Err for serialized consumers.
	ErrMessage string `json:"error,omitempty"`
}
