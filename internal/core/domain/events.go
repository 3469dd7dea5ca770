package domain

// EventType defines the type of real-time event.
type EventType string

const (
	EventTicketCreated  EventType = "TICKET_CREATED"
	EventTicketStatus   EventType = "TICKET_STATUS"
	EventTicketNotified EventType = "TICKET_NOTIFIED"
	EventQueueUpdated   EventType = "QUEUE_UPDATED"
	EventQueueReset     EventType = "QUEUE_RESET"
	EventCatalogUpdated EventType = "CATALOG_UPDATED"
)

// Event is the payload fanned out over WebSocket. QueueID routes the event to
// the queue room (admin panels, monitors); TicketID, when set, additionally
// routes it to the ticket holder's room.
type Event struct {
	Type     EventType   `json:"type"`
	Payload  interface{} `json:"payload,omitempty"`
	QueueID  string      `json:"queueId"`
	TicketID int64       `json:"ticketId,omitempty"`
}
