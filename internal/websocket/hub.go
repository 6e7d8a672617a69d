package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"kalpem/internal/infrastructure"
	"kalpem/pkg/contracts/domain"
	"kalpem/pkg/contracts/events"
)

const broadcastQueueSize = 64

var (
	// ErrHubStopped is returned when broadcasting after Stop.
	ErrHubStopped = errors.New("websocket hub stopped")

	// ErrQueueFull is returned when the broadcast queue cannot take a message.
	ErrQueueFull = errors.New("websocket broadcast queue full")
)

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	messagesDropped  atomic.Int64

	quit      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
}

// NewHub creates a hub. Call Start before registering clients.
func NewHub(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in a goroutine. Extra calls are no-ops.
func (h *Hub) Start() {
	h.startOnce.Do(func() {
		h.started.Store(true)
		go h.run()
	})
}

// Stop closes every client and waits for the hub loop to exit.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
		if h.started.Load() {
			<-h.done
		}
	})
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.totalConnections.Add(1)

			ctx := client.context()
			h.metrics.RecordWebSocketClients(ctx, 1)
			h.logger.InfoContext(ctx, "client registered",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", count),
			)

			if msg, err := newMessage(ctx, events.MessageTypeConnect, map[string]string{
				"client_id": client.id,
				"status":    "connected",
			}); err == nil {
				select {
				case client.send <- msg:
				default:
					h.logger.WarnContext(ctx, "client buffer full, connect message dropped",
						slog.String("client_id", client.id))
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			if ok {
				ctx := client.context()
				h.metrics.RecordWebSocketClients(ctx, -1)
				h.logger.InfoContext(ctx, "client unregistered",
					slog.String("client_id", client.id),
					slog.Int("total_clients", count),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
				)
			}

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) deliver(message []byte) {
	h.mu.Lock()
	delivered, dropped := 0, 0
	for client := range h.clients {
		select {
		case client.send <- message:
			delivered++
		default:
			// A client that cannot keep up is disconnected.
			close(client.send)
			delete(h.clients, client)
			dropped++
			h.logger.Warn("client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}
	h.mu.Unlock()

	h.messagesSent.Add(int64(delivered))
	h.messagesDropped.Add(int64(dropped))

	ctx := context.Background()
	h.metrics.RecordWebSocketBroadcast(ctx, delivered, dropped)
	if dropped > 0 {
		h.metrics.RecordWebSocketClients(ctx, -int64(dropped))
	}
	h.logger.Debug("broadcast delivered",
		slog.Int("delivered", delivered),
		slog.Int("dropped", dropped),
		slog.Int("payload_size", len(message)),
	)
}

// Register adds a client. It returns false when the hub is stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Broadcast queues a typed message for every connected client.
func (h *Hub) Broadcast(ctx context.Context, msgType events.MessageType, data interface{}) error {
	msg, err := newMessage(ctx, msgType, data)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal message",
			slog.String("message_type", string(msgType)),
			slog.String("error", err.Error()))
		return err
	}

	select {
	case <-h.quit:
		return ErrHubStopped
	default:
	}

	select {
	case h.broadcast <- msg:
		return nil
	case <-h.quit:
		return ErrHubStopped
	default:
		h.messagesDropped.Add(1)
		h.logger.WarnContext(ctx, "broadcast queue full, message dropped",
			slog.String("message_type", string(msgType)))
		return ErrQueueFull
	}
}

// NotifySnapshot tells clients that a new snapshot replaced the old one.
func (h *Hub) NotifySnapshot(ctx context.Context, snap *domain.Snapshot) {
	if snap == nil {
		return
	}
	err := h.Broadcast(ctx, events.MessageTypeSnapshotUpdated, events.SnapshotUpdated{
		SnapshotID: snap.ID,
		Version:    snap.Version,
		Records:    snap.Records.Len(),
		Status:     snap.Status.Label,
		Connected:  snap.Status.Connected,
		UpdatedAt:  snap.Status.UpdatedAt,
	})
	if err != nil && !errors.Is(err, ErrHubStopped) {
		h.logger.WarnContext(ctx, "snapshot notification not sent",
			slog.Uint64("version", snap.Version),
			slog.String("error", err.Error()))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns hub counters for the health endpoint.
func (h *Hub) Stats() map[string]interface{} {
	return map[string]interface{}{
		"active_clients":    h.ClientCount(),
		"total_connections": h.totalConnections.Load(),
		"messages_sent":     h.messagesSent.Load(),
		"messages_dropped":  h.messagesDropped.Load(),
	}
}

func newMessage(ctx context.Context, msgType events.MessageType, data interface{}) ([]byte, error) {
	traceID := infrastructure.TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = infrastructure.GetTraceID(ctx)
	}
	return json.Marshal(events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			ID:        uuid.NewString(),
			Type:      msgType,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		},
		Data: data,
	})
}
