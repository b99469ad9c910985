package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"beadcsv/internal/infrastructure"
	"beadcsv/pkg/contracts/events"
)

// broadcastBuffer bounds the events queued between Publish and the hub loop
const broadcastBuffer = 256

// Hub maintains the set of active clients and broadcasts document events
// to them
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	logger *slog.Logger

	messagesSent int64
	dropped      int64
}

// NewHub creates a new Hub. Call Start before publishing.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Start runs the hub loop in the background
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop disconnects every client and ends the hub loop
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	close(h.quit)
	h.mu.Unlock()
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("Hub shutting down",
				slog.Int64("messages_sent", h.messagesSent),
				slog.Int64("dropped", h.dropped))
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			hello, err := json.Marshal(events.Connected{
				Type:     events.TypeConnection,
				Protocol: events.ProtocolName,
				Version:  events.ProtocolVersion,
				ClientID: client.id,
			})
			if err == nil {
				select {
				case client.send <- hello:
				default:
					h.logger.Warn("Failed to send connection message - client buffer full",
						slog.String("client_id", client.id))
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("Client unregistered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.Duration("connection_duration", time.Since(client.connectedAt)))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					h.messagesSent++
				default:
					delete(h.clients, client)
					close(client.send)
					h.logger.Warn("Client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Debug("Broadcast message to clients",
				slog.Int("client_count", count),
				slog.Int("message_size", len(message)))
		}
	}
}

// Publish queues ev for every connected client. It never blocks: events
// published while the hub is stopped or its queue is full are dropped.
func (h *Hub) Publish(ev events.DocumentEvent) {
	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if !running {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Error marshaling event",
			slog.String("error", err.Error()),
			slog.String("type", string(ev.Type)))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
		ctx := infrastructure.WithTraceID(context.Background(), ev.TraceID)
		h.logger.WarnContext(ctx, "Event dropped - broadcast queue full",
			slog.String("type", string(ev.Type)),
			slog.String("document_id", ev.DocumentID))
	}
}

// attach registers c unless the hub is stopped
func (h *Hub) attach(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

// detach unregisters c; it is a no-op once the hub is stopped
func (h *Hub) detach(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
