package websocket

import (
	"encoding/json"
	"sync"

	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/pkg/logger"
)

// Event types pushed to connected admin dashboards.
const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
)

// OrderEvent is the wire format for order notifications.
type OrderEvent struct {
	Type  string       `json:"type"`
	Order *model.Order `json:"order"`
}

// Hub fans order events out to connected admin clients. It implements
// the order service's event publisher.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		broadcast:  make(chan []byte, 256),
	}
}

// Run processes register, unregister and broadcast events. Call in its
// own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"user_id":       client.UserID,
				"total_clients": h.ClientCount(),
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			logger.Info("WebSocket client unregistered", map[string]interface{}{
				"user_id": client.UserID,
			})

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Slow consumer: drop the message rather than
					// block the hub.
					logger.Warn("Dropping message for slow WebSocket client", map[string]interface{}{
						"user_id": client.UserID,
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) publish(eventType string, order *model.Order) {
	payload, err := json.Marshal(OrderEvent{
		Type:  eventType,
		Order: order,
	})
	if err != nil {
		logger.Error("Failed to marshal order event", err, map[string]interface{}{
			"type":     eventType,
			"order_id": order.ID,
		})
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		logger.Warn("Order event dropped: broadcast buffer full", map[string]interface{}{
			"type": eventType,
		})
	}
}

// PublishOrderCreated notifies connected clients of a new order.
func (h *Hub) PublishOrderCreated(order *model.Order) {
	h.publish(EventOrderCreated, order)
}

// PublishOrderStatusChanged notifies connected clients of a status change.
func (h *Hub) PublishOrderStatusChanged(order *model.Order) {
	h.publish(EventOrderStatusChanged, order)
}
