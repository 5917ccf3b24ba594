// Package debugserver serves the connector's diagnostic state over
// WebSocket: an initial DebugState snapshot followed by the live event
// stream. Inspection tooling attaches to it; nothing here renders UI.
package debugserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mirador/solconnect/connector"
	"github.com/mirador/solconnect/events"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	sendBufferSize = 256
)

// Frame is one message to an attached inspector.
type Frame struct {
	// Kind is "snapshot" or "event".
	Kind string `json:"kind"`

	Snapshot *connector.DebugState `json:"snapshot,omitempty"`
	Event    *events.Event         `json:"event,omitempty"`
}

// Server upgrades HTTP connections and streams diagnostic frames.
type Server struct {
	client   *connector.Client
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu    sync.Mutex
	conns map[string]chan []byte
}

// New creates a debug server over a connector client.
func New(client *connector.Client, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		client: client,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Inspectors attach from local tooling; no origin policy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.With("component", "debug-server"),
		conns:  make(map[string]chan []byte),
	}
}

// Handler returns the HTTP handler for the /debug/ws endpoint.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleWS)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	send := make(chan []byte, sendBufferSize)

	s.mu.Lock()
	s.conns[id] = send
	s.mu.Unlock()

	s.logger.Info("inspector attached", "client_id", id, "remote_addr", conn.RemoteAddr().String())

	// Snapshot first so the inspector has full state before live events.
	snap := s.client.DebugState()
	if data, err := json.Marshal(Frame{Kind: "snapshot", Snapshot: &snap}); err == nil {
		send <- data
	}

	unsubscribe := s.client.On(func(ev events.Event) {
		data, err := json.Marshal(Frame{Kind: "event", Event: &ev})
		if err != nil {
			return
		}
		select {
		case send <- data:
		default:
			// Slow inspector, drop the frame.
		}
	})

	done := make(chan struct{})
	go s.writePump(conn, send, done)
	go s.readPump(conn, func() {
		unsubscribe()
		close(done)
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
		s.logger.Info("inspector detached", "client_id", id)
	})
}

// readPump discards inbound messages and detects disconnects via the pong
// deadline.
func (s *Server) readPump(conn *websocket.Conn, onClose func()) {
	defer func() {
		conn.Close()
		onClose()
	}()

	conn.SetReadLimit(64 * 1024)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-done:
			return
		case msg := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ActiveCount returns the number of attached inspectors.
func (s *Server) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
