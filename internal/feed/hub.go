// Package feed broadcasts a live table to websocket spectators.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/chainpoker/internal/game"
	"github.com/lox/chainpoker/internal/view"
)

// Hub tracks spectators and fans out table updates.
type Hub struct {
	upgrader    websocket.Upgrader
	logger      *log.Logger
	mu          sync.RWMutex
	connections map[string]*Connection
	latest      *Message
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			// Spectators are read-only, so any origin may watch.
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger:      logger.WithPrefix("feed"),
		connections: make(map[string]*Connection),
	}
}

// Handler returns the hub's HTTP routes.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWebSocket)
	mux.HandleFunc("/health", h.handleHealth)
	return mux
}

// Serve listens on addr until ctx is cancelled.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info("Starting spectator feed", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("feed server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Publish sends the spectator view of state to everyone connected and keeps
// it for late joiners. Spectators are anonymous, so no hole cards are sent.
func (h *Hub) Publish(state game.TableState) {
	msg, err := NewMessage(MessageTypeTable, view.Spectate(state))
	if err != nil {
		h.logger.Error("Failed to encode table", "error", err)
		return
	}

	h.mu.Lock()
	h.latest = msg
	h.mu.Unlock()

	h.broadcast(msg)
}

// PublishEvent sends a formatted event line to every spectator.
func (h *Hub) PublishEvent(ev game.Event, text string) {
	msg, err := NewMessage(MessageTypeEvent, EventData{Game: ev.Game(), Name: ev.Name(), Text: text})
	if err != nil {
		h.logger.Error("Failed to encode event", "error", err)
		return
	}
	h.broadcast(msg)
}

// Count returns the number of connected spectators.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// CloseAll disconnects every spectator.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.connections))
	for _, c := range h.connections {
		conns = append(conns, c)
	}
	h.connections = make(map[string]*Connection)
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

func (h *Hub) broadcast(msg *Message) {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.connections))
	for _, c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.enqueue(msg)
	}
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	c := newConnection(ws, h.logger)

	welcome, err := NewMessage(MessageTypeWelcome, WelcomeData{ConnectionID: c.ID()})
	if err != nil {
		_ = c.Close()
		return
	}
	c.enqueue(welcome)

	h.mu.Lock()
	h.connections[c.ID()] = c
	if h.latest != nil {
		c.enqueue(h.latest)
	}
	total := len(h.connections)
	h.mu.Unlock()

	h.logger.Info("Spectator connected", "id", c.ID(), "total", total)
	c.start()

	go func() {
		<-c.ctx.Done()
		h.mu.Lock()
		delete(h.connections, c.ID())
		total := len(h.connections)
		h.mu.Unlock()
		h.logger.Info("Spectator disconnected", "id", c.ID(), "total", total)
	}()
}

func (h *Hub) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK %d", h.Count())
}
