package websocket

import (
	"log/slog"
	"sync"

	"github.com/pilahub/queue-backend/internal/core/domain"
	"github.com/pilahub/queue-backend/internal/core/ports"
)

// Hub maintains the set of active Clients and fans queue events out to them.
// Customers watching a queue board, ticket holders watching their own ticket
// and admin panels all subscribe through the same rooms.
type Hub struct {
	// clients holds every connected client
	clients map[*Client]bool

	// queueRooms maps queue IDs to subscribed clients
	queueRooms map[string]map[*Client]bool

	// ticketRooms maps ticket IDs to subscribed clients
	ticketRooms map[int64]map[*Client]bool

	// Broadcast channel for events
	broadcast chan domain.Event

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// mu protects the clients and room maps
	mu sync.RWMutex

	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		queueRooms:  make(map[string]map[*Client]bool),
		ticketRooms: make(map[int64]map[*Client]bool),
		broadcast:   make(chan domain.Event, 256),
		Register:    make(chan *Client),
		Unregister:  make(chan *Client),
		logger:      logger.With("component", "websocket_hub"),
	}
}

// Broadcast queues an event for fan-out. This method implements the
// ports.EventBroadcaster interface. Delivery is best-effort: a full buffer
// drops the event, and reconnecting clients re-read current state over REST.
func (h *Hub) Broadcast(event domain.Event) error {
	select {
	case h.broadcast <- event:
		return nil
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"queue_id", event.QueueID,
		)
		return nil
	}
}

// Run starts the hub's event loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	h.logger.Info("client registered",
		"client_id", client.ID,
		"total_connections", len(h.clients),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)

	for _, queueID := range client.QueueSubscriptions() {
		if room, ok := h.queueRooms[queueID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.queueRooms, queueID)
			}
		}
	}
	for _, ticketID := range client.TicketSubscriptions() {
		if room, ok := h.ticketRooms[ticketID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.ticketRooms, ticketID)
			}
		}
	}

	client.CloseSend()

	h.logger.Info("client unregistered", "client_id", client.ID)
}

// broadcastEvent sends an event to the queue room and, when the event names a
// ticket, to that ticket's room as well.
func (h *Hub) broadcastEvent(event domain.Event) {
	h.mu.RLock()
	recipients := make(map[*Client]bool)
	for client := range h.queueRooms[event.QueueID] {
		recipients[client] = true
	}
	if event.TicketID != 0 {
		for client := range h.ticketRooms[event.TicketID] {
			recipients[client] = true
		}
	}
	clients := make([]*Client, 0, len(recipients))
	for client := range recipients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"queue_id", event.QueueID,
		"ticket_id", event.TicketID,
		"client_count", len(clients),
	)

	var slow []*Client
	for _, client := range clients {
		select {
		case client.Send <- event:
			// Successfully queued
		default:
			slow = append(slow, client)
		}
	}

	// Drop slow clients inline. Sending to h.Unregister here would deadlock:
	// this method runs on the Run loop, which is that channel's only receiver.
	for _, client := range slow {
		h.logger.Warn("client send buffer full, unregistering",
			"client_id", client.ID,
		)
		h.unregisterClient(client)
	}
}

// SubscribeQueue adds a client to a queue's room.
func (h *Hub) SubscribeQueue(client *Client, queueID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.queueRooms[queueID] == nil {
		h.queueRooms[queueID] = make(map[*Client]bool)
	}
	h.queueRooms[queueID][client] = true
	client.addQueueSubscription(queueID)

	h.logger.Debug("client subscribed to queue",
		"client_id", client.ID,
		"queue_id", queueID,
	)
}

// UnsubscribeQueue removes a client from a queue's room.
func (h *Hub) UnsubscribeQueue(client *Client, queueID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.queueRooms[queueID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.queueRooms, queueID)
		}
	}
	client.removeQueueSubscription(queueID)
}

// SubscribeTicket adds a client to a ticket's room.
func (h *Hub) SubscribeTicket(client *Client, ticketID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ticketRooms[ticketID] == nil {
		h.ticketRooms[ticketID] = make(map[*Client]bool)
	}
	h.ticketRooms[ticketID][client] = true
	client.addTicketSubscription(ticketID)

	h.logger.Debug("client subscribed to ticket",
		"client_id", client.ID,
		"ticket_id", ticketID,
	)
}

// UnsubscribeTicket removes a client from a ticket's room.
func (h *Hub) UnsubscribeTicket(client *Client, ticketID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.ticketRooms[ticketID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.ticketRooms, ticketID)
		}
	}
	client.removeTicketSubscription(ticketID)
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
