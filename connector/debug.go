package connector

import (
	"time"

	"github.com/mirador/solconnect/session"
	"github.com/mirador/solconnect/txtrack"
	"github.com/mirador/solconnect/wallet"
)

// DebugState is a read-only diagnostic projection of the client: current
// status, tracked transactions and the discoverable wallet set. It is
// consumed by inspection tooling and is safe to serialize.
type DebugState struct {
	Timestamp time.Time `json:"timestamp"`

	State           session.State       `json:"state"`
	ConnectorID     session.ConnectorID `json:"connector_id,omitempty"`
	SelectedAccount string              `json:"selected_account,omitempty"`
	Accounts        []string            `json:"accounts,omitempty"`
	ErrMessage      string              `json:"error,omitempty"`
	Recoverable     bool                `json:"recoverable,omitempty"`
	Generation      uint64              `json:"generation"`

	Cluster      string                `json:"cluster"`
	Transactions []txtrack.Transaction `json:"transactions"`
	Wallets      []wallet.Descriptor   `json:"wallets"`
}

// DebugState captures a diagnostic snapshot.
func (c *Client) DebugState() DebugState {
	c.mu.Lock()
	ds := DebugState{
		Timestamp:   time.Now(),
		State:       c.status.State,
		ConnectorID: c.status.ConnectorID,
		Generation:  c.generation,
	}
	if c.status.IsConnected() && c.status.Session != nil {
		sess := c.status.Session
		ds.SelectedAccount = sess.Selected.Address
		for _, acct := range sess.Accounts {
			ds.Accounts = append(ds.Accounts, acct.Address)
		}
	}
	if c.status.IsError() && c.status.Err != nil {
		ds.ErrMessage = c.status.Err.Error()
		ds.Recoverable = c.status.Recoverable
	}
	c.mu.Unlock()

	ds.Cluster = c.Cluster().ID
	ds.Transactions = c.tracker.Transactions()
	ds.Wallets = c.registry.Discover()
	return ds
}
