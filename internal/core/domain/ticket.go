package domain

import (
	"math"
	"time"

	apperrors "github.com/pilahub/queue-backend/internal/core/errors"
)

// TicketStatus represents the lifecycle state of a queue ticket.
type TicketStatus string

const (
	StatusWaiting TicketStatus = "waiting"
	StatusServing TicketStatus = "serving"
	StatusDone    TicketStatus = "done"
)

// DefaultQueueID is the implicit queue used by single-location deployments.
const DefaultQueueID = "main"

// GeneralServiceName is the label applied to tickets created without a
// service type selection.
const GeneralServiceName = "General"

// Ticket is the core domain entity: a numbered claim on a position in a queue.
type Ticket struct {
	ID           int64
	QueueID      string
	TicketNumber int
	Status       TicketStatus
	// ServiceType is a snapshot of the catalog entry's name taken at creation
	// time. It deliberately survives deletion of the catalog entry. Empty
	// means "General".
	ServiceType string
	CreatedAt   time.Time
	ServedAt    *time.Time
	WaitMinutes *int
	NotifiedAt  *time.Time
}

// NewTicket creates a waiting ticket for the given queue. The ticket number
// must come from the queue's sequence; the store assigns the ID.
func NewTicket(queueID string, ticketNumber int, serviceType string) *Ticket {
	return &Ticket{
		QueueID:      queueID,
		TicketNumber: ticketNumber,
		Status:       StatusWaiting,
		ServiceType:  serviceType,
		CreatedAt:    time.Now().UTC(),
	}
}

// validTransitions defines the forward-only ticket state machine.
// No transition skips a state and none moves backward.
var validTransitions = map[TicketStatus][]TicketStatus{
	StatusWaiting: {StatusServing},
	StatusServing: {StatusDone},
	StatusDone:    {},
}

// CanTransition reports whether the ticket may move to the given status.
func (t *Ticket) CanTransition(next TicketStatus) bool {
	for _, s := range validTransitions[t.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// MarkServing promotes a waiting ticket to serving.
func (t *Ticket) MarkServing() error {
	if !t.CanTransition(StatusServing) {
		return apperrors.ErrInvalidTransition
	}
	t.Status = StatusServing
	return nil
}

// MarkDone completes a serving ticket, recording the service timestamp and
// the rounded wait duration exactly once.
func (t *Ticket) MarkDone(at time.Time) error {
	if !t.CanTransition(StatusDone) {
		return apperrors.ErrInvalidTransition
	}
	t.Status = StatusDone
	served := at.UTC()
	t.ServedAt = &served
	wait := WaitMinutes(t.CreatedAt, served)
	t.WaitMinutes = &wait
	return nil
}

// DisplayServiceType returns the service label, substituting "General" for
// tickets created without a selection.
func (t *Ticket) DisplayServiceType() string {
	if t.ServiceType == "" {
		return GeneralServiceName
	}
	return t.ServiceType
}

// WaitMinutes computes a recorded wait as whole minutes, rounded to the
// nearest minute.
func WaitMinutes(createdAt, servedAt time.Time) int {
	return int(math.Round(servedAt.Sub(createdAt).Seconds() / 60))
}
