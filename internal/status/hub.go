// Package status streams viewport status to websocket clients and accepts
// remote control commands from them.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Faultbox/modelview/internal/logger"
)

const writeTimeout = 5 * time.Second

// Hub broadcasts the latest status to every connected client.
type Hub struct {
	upgrader  websocket.Upgrader
	onCommand func(Command) error

	clientsMu sync.Mutex
	clients   map[*client]bool

	currentMu sync.RWMutex
	current   []byte

	// wake holds at most one pending broadcast; run always sends the
	// latest status, so bursts merge without losing the final one.
	wake      chan struct{}
	quit      chan struct{}
	closeOnce sync.Once
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// NewHub creates a hub. onCommand, when non-nil, receives decoded client
// commands; its error is reported back to the sender.
func NewHub(onCommand func(Command) error) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local tool, any origin
			},
		},
		onCommand: onCommand,
		clients:   make(map[*client]bool),
		wake:      make(chan struct{}, 1),
		quit:      make(chan struct{}),
	}
	go h.run()
	return h
}

// Publish records v as the current status and schedules a broadcast.
// It never blocks; when clients lag, intermediate updates merge into the
// latest one.
func (h *Hub) Publish(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Named("status").Warn("encode failed", zap.Error(err))
		return
	}

	h.currentMu.Lock()
	h.current = data
	h.currentMu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Current returns the last published status.
func (h *Hub) Current() []byte {
	h.currentMu.RLock()
	defer h.currentMu.RUnlock()
	return h.current
}

func (h *Hub) run() {
	for {
		select {
		case <-h.wake:
			h.send(h.Current())
		case <-h.quit:
			return
		}
	}
}

func (h *Hub) send(data []byte) {
	h.clientsMu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.Unlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			logger.Named("status").Debug("websocket write failed", zap.Error(err))
			h.remove(c)
		}
	}
}

func (h *Hub) remove(c *client) {
	h.clientsMu.Lock()
	delete(h.clients, c)
	h.clientsMu.Unlock()
	c.conn.Close()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and serves one client until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Named("status").Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn}
	h.clientsMu.Lock()
	h.clients[c] = true
	h.clientsMu.Unlock()
	defer h.remove(c)

	logger.Named("status").Debug("client connected", zap.String("remote", r.RemoteAddr))

	if cur := h.Current(); cur != nil {
		if err := c.write(cur); err != nil {
			return
		}
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		h.handle(c, msg)
	}
}

func (h *Hub) handle(c *client, msg []byte) {
	var cmd Command
	err := json.Unmarshal(msg, &cmd)
	if err == nil {
		if h.onCommand == nil {
			err = errors.New("commands are disabled")
		} else {
			err = h.onCommand(cmd)
		}
	}
	if err != nil {
		reply, _ := json.Marshal(map[string]string{"error": err.Error()})
		_ = c.write(reply)
	}
}

// Handler returns the HTTP routes: /ws for the socket and /status for the
// last status as JSON.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		cur := h.Current()
		if cur == nil {
			cur = []byte("{}")
		}
		_, _ = w.Write(cur)
	})
	return mux
}

// ListenAndServe serves Handler on addr until ctx is done.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: h.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Named("status").Info("listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close disconnects all clients and stops broadcasting.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.quit)
		h.clientsMu.Lock()
		for c := range h.clients {
			c.conn.Close()
			delete(h.clients, c)
		}
		h.clientsMu.Unlock()
	})
}
