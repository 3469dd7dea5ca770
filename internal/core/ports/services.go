package ports

import (
	"context"
	"time"

	"github.com/pilahub/queue-backend/internal/core/domain"
)

// JoinMethod describes how a customer passed the queue-join gate.
type JoinMethod string

const (
	JoinByCode JoinMethod = "code"
	JoinByQR   JoinMethod = "qr"
)

// JoinQueueParams defines the input for joining a queue.
type JoinQueueParams struct {
	QueueID       string
	ServiceTypeID *int64
	Method        JoinMethod
	// Code is the manually entered queue code (JoinByCode).
	Code string
	// QRToken is the scanned QR payload (JoinByQR); only the fixed sentinel
	// value is accepted.
	QRToken string
}

// TicketView is the ticket holder's projection of their own ticket.
type TicketView struct {
	Ticket               *domain.Ticket
	NowServingNumber     *int
	PeopleAhead          int
	EstimatedWaitMinutes int
}

// ResetRequest is the first step of the two-step destructive queue reset.
type ResetRequest struct {
	Token     string
	ExpiresAt time.Time
}

// ResetResult reports a completed (possibly partial) queue reset.
type ResetResult struct {
	Deleted int
}

// QueueService defines the ticket lifecycle operations.
type QueueService interface {
	JoinQueue(ctx context.Context, params JoinQueueParams) (*domain.Ticket, error)
	GetTicketView(ctx context.Context, queueID string, ticketID int64) (*TicketView, error)
	CallNext(ctx context.Context, queueID string) (*domain.Ticket, error)
	CompleteServing(ctx context.Context, ticketID int64) (*domain.Ticket, error)
	Notify(ctx context.Context, ticketID int64) (*domain.Ticket, error)
	RequestReset(ctx context.Context, queueID string) (*ResetRequest, error)
	ConfirmReset(ctx context.Context, queueID, token string) (*ResetResult, error)
	Shutdown()
}

// CreateServiceTypeParams defines the input for creating a catalog entry.
type CreateServiceTypeParams struct {
	Name  string
	Icon  string
	Color string
}

// UpdateServiceTypeParams defines the input for editing a catalog entry.
type UpdateServiceTypeParams struct {
	ID    int64
	Name  string
	Icon  string
	Color string
}

// CatalogService defines service catalog management.
type CatalogService interface {
	CreateServiceType(ctx context.Context, params CreateServiceTypeParams) (*domain.ServiceType, error)
	UpdateServiceType(ctx context.Context, params UpdateServiceTypeParams) (*domain.ServiceType, error)
	DeleteServiceType(ctx context.Context, id int64) error
	ListServiceTypes(ctx context.Context) ([]*domain.ServiceType, error)
}

// StatsService derives aggregate views from the current ticket set.
type StatsService interface {
	QueueStats(ctx context.Context, queueID string) (domain.QueueStats, error)
	Board(ctx context.Context, queueID string) (domain.Board, error)
}

// EventBroadcaster is the port for real-time fan-out of queue events.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}

// NotificationParams defines the input for an out-of-band holder alert.
type NotificationParams struct {
	QueueID      string
	TicketID     int64
	TicketNumber int
	Message      string
}

// Notifier is the port for best-effort out-of-band notifications. Delivery
// failures are logged, never propagated.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}
