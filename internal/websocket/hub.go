package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/council-rankings/internal/domain"
)

// Message types
const (
	MessageTypeRankingUpdate = "ranking_update"
	MessageTypeSubscribe     = "subscribe"
	MessageTypeUnsubscribe   = "unsubscribe"
	MessageTypePing          = "ping"
	MessageTypePong          = "pong"
	MessageTypeError         = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	Category  string      `json:"category,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// RankingUpdate contains a freshly computed board for broadcast
type RankingUpdate struct {
	Category      string                  `json:"category"`
	Layout        domain.Layout           `json:"layout"`
	Rankings      []domain.StudentRanking `json:"rankings"`
	TotalStudents int                     `json:"total_students"`
}

// Hub maintains the set of active clients and broadcasts ranking
// updates. Clients subscribe per category; the sentinel "all"
// subscribes to the global board.
type Hub struct {
	// Registered clients by category
	clients map[string]map[*Client]bool

	// All connected clients
	allClients map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	broadcast   chan *Message
	subscribe   chan *subscriptionRequest
	unsubscribe chan *subscriptionRequest

	mu sync.RWMutex

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client   *Client
	category string
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		allClients:  make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan *subscriptionRequest, 64),
		unsubscribe: make(chan *subscriptionRequest, 64),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.allClients[client]; ok {
				delete(h.allClients, client)
				// Remove from all category subscriptions
				for category, clients := range h.clients {
					if _, ok := clients[client]; ok {
						delete(clients, client)
						if len(clients) == 0 {
							delete(h.clients, category)
						}
					}
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "client_id", client.id)

		case req := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.clients[req.category]; !ok {
				h.clients[req.category] = make(map[*Client]bool)
			}
			h.clients[req.category][req.client] = true
			h.mu.Unlock()
			h.logger.Debug("client subscribed", "client_id", req.client.id, "category", req.category)

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if clients, ok := h.clients[req.category]; ok {
				delete(clients, req.client)
				if len(clients) == 0 {
					delete(h.clients, req.category)
				}
			}
			h.mu.Unlock()
			h.logger.Debug("client unsubscribed", "client_id", req.client.id, "category", req.category)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// broadcastMessage sends a message to all subscribed clients
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	// Category-scoped messages go only to that category's subscribers
	if message.Category != "" {
		if clients, ok := h.clients[message.Category]; ok {
			for client := range clients {
				select {
				case client.send <- data:
				default:
					h.logger.Warn("client buffer full, skipping", "client_id", client.id)
				}
			}
		}
	} else {
		for client := range h.allClients {
			select {
			case client.send <- data:
			default:
				h.logger.Warn("client buffer full, skipping", "client_id", client.id)
			}
		}
	}
}

// BroadcastRankingUpdate pushes a recomputed board to subscribers of
// the given category.
func (h *Hub) BroadcastRankingUpdate(category string, rankings []domain.StudentRanking) {
	message := &Message{
		Type:     MessageTypeRankingUpdate,
		Category: category,
		Data: RankingUpdate{
			Category:      category,
			Layout:        domain.LayoutFor(len(rankings)),
			Rankings:      rankings,
			TotalStudents: len(rankings),
		},
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe adds a client to a category subscription
func (h *Hub) Subscribe(client *Client, category string) {
	h.subscribe <- &subscriptionRequest{
		client:   client,
		category: category,
	}
}

// Unsubscribe removes a client from a category subscription
func (h *Hub) Unsubscribe(client *Client, category string) {
	h.unsubscribe <- &subscriptionRequest{
		client:   client,
		category: category,
	}
}

// GetSubscriberCount returns the number of subscribers for a category
func (h *Hub) GetSubscriberCount(category string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.clients[category]; ok {
		return len(clients)
	}
	return 0
}

// GetTotalConnections returns the total number of connected clients
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
