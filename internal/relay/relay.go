// Package relay forwards the connector event stream to NATS so external
// observers (dashboards, the devtools overlay backend) can consume it
// out of process.
package relay

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mirador/solconnect/connector"
	"github.com/mirador/solconnect/events"
)

// Config holds NATS connection settings.
type Config struct {
	// URL is the NATS server URL, e.g. "nats://localhost:4222".
	URL string

	// SubjectPrefix namespaces published subjects. Defaults to
	// "solconnect.events".
	SubjectPrefix string

	// Name identifies the connection on the server.
	Name string

	ReconnectWait  time.Duration
	MaxReconnects  int
	ConnectTimeout time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults for local development.
func DefaultConfig() Config {
	return Config{
		URL:            nats.DefaultURL,
		SubjectPrefix:  "solconnect.events",
		Name:           "solconnect-relay",
		ReconnectWait:  2 * time.Second,
		MaxReconnects:  -1,
		ConnectTimeout: 10 * time.Second,
	}
}

// Relay publishes connector events to NATS subjects derived from the event
// type: "wallet:connected" becomes "<prefix>.wallet.connected".
type Relay struct {
	nc          *nats.Conn
	prefix      string
	logger      *slog.Logger
	unsubscribe func()
}

// Connect establishes the NATS connection.
func Connect(cfg Config) (*Relay, error) {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "solconnect.events"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "event-relay")

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Relay{nc: nc, prefix: cfg.SubjectPrefix, logger: logger}, nil
}

// Attach subscribes the relay to a client's event stream. Publish failures
// are logged and never propagate back into the connector.
func (r *Relay) Attach(client *connector.Client) {
	r.unsubscribe = client.On(func(ev events.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		subject := r.prefix + "." + strings.ReplaceAll(string(ev.Type), ":", ".")
		if err := r.nc.Publish(subject, data); err != nil {
			r.logger.Warn("publish failed", "subject", subject, "error", err)
		}
	})
}

// Close detaches from the event stream and drains the connection.
func (r *Relay) Close() error {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
	if err := r.nc.Drain(); err != nil {
		r.nc.Close()
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}
