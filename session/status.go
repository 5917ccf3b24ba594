// Package session models the wallet connection lifecycle: the Status tagged
// union, the live WalletSession, and connector identity normalization.
// Everything here is pure data plus transition helpers; no I/O.
package session

// State enumerates the four connection lifecycle states.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

// Status is a tagged union over State. Exactly one variant is meaningful at
// a time; the payload fields are only valid for the state indicated by State.
type Status struct {
	State State

	// ConnectorID is set for connecting and connected.
	ConnectorID ConnectorID

	// Session is set only for connected.
	Session *WalletSession

	// Err and Recoverable are set only for error.
	Err         error
	Recoverable bool
}

// Disconnected returns the initial (and post-disconnect) status.
func Disconnected() Status {
	return Status{State: StateDisconnected}
}

// Connecting returns a transient status for an in-flight connection attempt.
func Connecting(id ConnectorID) Status {
	return Status{State: StateConnecting, ConnectorID: id}
}

// Connected returns the status for an established session.
func Connected(sess *WalletSession) Status {
	return Status{State: StateConnected, ConnectorID: sess.ConnectorID, Session: sess}
}

// Errored returns a failed status. Recoverable indicates whether a retry
// with the same wallet can reasonably succeed.
func Errored(err error, recoverable bool) Status {
	return Status{State: StateError, Err: err, Recoverable: recoverable}
}

func (s Status) IsDisconnected() bool { return s.State == StateDisconnected }
func (s Status) IsConnecting() bool   { return s.State == StateConnecting }
func (s Status) IsConnected() bool    { return s.State == StateConnected }
func (s Status) IsError() bool        { return s.State == StateError }

// LegacyView is a flat projection of Status kept for older consumers that
// predate the tagged union. It cannot represent the error state; callers
// that need error detail must read Status directly.
type LegacyView struct {
	Connected       bool      `json:"connected"`
	Connecting      bool      `json:"connecting"`
	SelectedAccount string    `json:"selected_account,omitempty"`
	Accounts        []Account `json:"accounts"`
}

// LegacyView projects the status. Disconnected, connecting and error all
// collapse to the not-connected shape; only connected exposes live session
// values.
func (s Status) LegacyView() LegacyView {
	if s.State == StateConnected && s.Session != nil {
		return LegacyView{
			Connected:       true,
			SelectedAccount: s.Session.Selected.Address,
			Accounts:        s.Session.Accounts,
		}
	}
	return LegacyView{
		Connecting: s.State == StateConnecting,
		Accounts:   []Account{},
	}
}
