// Package ws broadcasts decoded powerbase events to UI clients over a
// websocket. Clients are read-mostly; anything they send besides control
// frames is ignored.
package ws

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pitlane/pkg/engine"
)

const (
	defaultSendBuf = 64
	writeWait      = 5 * time.Second
	pingInterval   = 30 * time.Second
)

// EventMessage is the JSON shape sent to clients.
type EventMessage struct {
	TS         string `json:"ts"`
	Kind       string `json:"kind"`
	Slot       int    `json:"slot,omitempty"`
	PayloadHex string `json:"payload_hex,omitempty"`
	Data       any    `json:"data,omitempty"`
}

type Server struct {
	addr    string
	hub     *engine.Hub
	sendBuf int

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

type Option func(*Server)

func WithSendBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.sendBuf = n
		}
	}
}

func NewServer(addr string, hub *engine.Hub, opts ...Option) *Server {
	s := &Server{
		addr:    addr,
		hub:     hub,
		sendBuf: defaultSendBuf,
		clients: make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleWS)

	httpServer := &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	sub := s.hub.Subscribe()
	go s.broadcastLoop(ctx, sub)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = httpServer.Shutdown(shutdownCtx)
		cancel()
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, s.sendBuf),
		done: make(chan struct{}),
	}
	s.addClient(c)

	go c.writeLoop()
	c.readLoop()

	c.close()
	s.removeClient(c)
}

func (s *Server) broadcastLoop(ctx context.Context, sub <-chan engine.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			s.broadcast(ev)
		}
	}
}

func (s *Server) broadcast(ev engine.Event) {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	payload, err := json.Marshal(EventMessage{
		TS:         ts.UTC().Format(time.RFC3339Nano),
		Kind:       ev.Kind.String(),
		Slot:       ev.Slot,
		PayloadHex: hex.EncodeToString(ev.Payload),
		Data:       ev.Data,
	})
	if err != nil {
		return
	}

	s.mu.RLock()
	for c := range s.clients {
		c.trySend(payload)
	}
	s.mu.RUnlock()
}

// ClientCount reports connected clients; used by tests and status output.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) addClient(c *client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

// trySend drops the message if the client's queue is full or the client is
// gone; a stalled UI must not hold the broadcast loop.
func (c *client) trySend(payload []byte) {
	select {
	case <-c.done:
	case c.send <- payload:
	default:
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readLoop() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
