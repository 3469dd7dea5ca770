package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pilahub/queue-backend/internal/core/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

// Client is a middleman between the websocket connection and the hub.
// Connections are anonymous: monitors, ticket holders and admin panels all
// look the same here and only differ in what they subscribe to.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound events.
	Send chan domain.Event

	// ID identifies the connection in logs.
	ID uuid.UUID

	// closeOnce ensures the Send channel is only closed once
	closeOnce sync.Once

	// mu protects the subscription maps
	mu sync.RWMutex

	queueSubs  map[string]bool
	ticketSubs map[int64]bool

	logger *slog.Logger
}

// NewClient creates a new WebSocket client.
func NewClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	id := uuid.New()
	return &Client{
		Hub:        hub,
		Conn:       conn,
		Send:       make(chan domain.Event, 256),
		ID:         id,
		queueSubs:  make(map[string]bool),
		ticketSubs: make(map[int64]bool),
		logger:     logger.With("client_id", id.String()),
	}
}

// CloseSend safely closes the Send channel exactly once.
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

func (c *Client) addQueueSubscription(queueID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queueSubs[queueID] = true
}

func (c *Client) removeQueueSubscription(queueID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.queueSubs, queueID)
}

func (c *Client) addTicketSubscription(ticketID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticketSubs[ticketID] = true
}

func (c *Client) removeTicketSubscription(ticketID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ticketSubs, ticketID)
}

// QueueSubscriptions returns a copy of the subscribed queue IDs.
func (c *Client) QueueSubscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	subs := make([]string, 0, len(c.queueSubs))
	for queueID := range c.queueSubs {
		subs = append(subs, queueID)
	}
	return subs
}

// TicketSubscriptions returns a copy of the subscribed ticket IDs.
func (c *Client) TicketSubscriptions() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	subs := make([]int64, 0, len(c.ticketSubs))
	for ticketID := range c.ticketSubs {
		subs = append(subs, ticketID)
	}
	return subs
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel. Send close message.
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.writeJSON(event); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

func (c *Client) writeJSON(event domain.Event) error {
	w, err := c.Conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(event); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// --- Incoming Message Handling ---

// ClientMessage is the structure for messages sent from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// QueuePayload is the payload for queue subscribe/unsubscribe messages.
type QueuePayload struct {
	QueueID string `json:"queueId"`
}

// TicketPayload is the payload for ticket subscribe/unsubscribe messages.
type TicketPayload struct {
	TicketID int64 `json:"ticketId"`
}

// handleIncomingMessage processes messages received from the client.
func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case "subscribe_queue":
		var payload QueuePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.QueueID == "" {
			c.logger.Warn("invalid subscribe_queue payload")
			return
		}
		c.Hub.SubscribeQueue(c, payload.QueueID)

	case "unsubscribe_queue":
		var payload QueuePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.QueueID == "" {
			c.logger.Warn("invalid unsubscribe_queue payload")
			return
		}
		c.Hub.UnsubscribeQueue(c, payload.QueueID)

	case "subscribe_ticket":
		var payload TicketPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.TicketID == 0 {
			c.logger.Warn("invalid subscribe_ticket payload")
			return
		}
		c.Hub.SubscribeTicket(c, payload.TicketID)

	case "unsubscribe_ticket":
		var payload TicketPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.TicketID == 0 {
			c.logger.Warn("invalid unsubscribe_ticket payload")
			return
		}
		c.Hub.UnsubscribeTicket(c, payload.TicketID)

	default:
		c.logger.Warn("unknown message type", "type", msg.Type)
	}
}
