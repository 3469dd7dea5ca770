package ports

import (
	"context"
	"time"

	"github.com/pilahub/queue-backend/internal/core/domain"
)

// TicketRepository is the port for ticket persistence. Implementations own
// the cross-ticket invariants: per-queue monotonic numbering via an atomic
// counter, and demote-then-promote executed as a single transaction.
type TicketRepository interface {
	// Create mints the next ticket number for the queue and inserts a
	// waiting ticket, both inside one transaction.
	Create(ctx context.Context, queueID, serviceType string) (*domain.Ticket, error)

	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)

	// ListByQueue returns every ticket in the queue ordered by ticket number.
	ListByQueue(ctx context.Context, queueID string) ([]*domain.Ticket, error)

	// CallNext atomically completes every serving ticket (recording served_at
	// and wait_minutes), promotes the waiting ticket with the smallest
	// number, and moves the queue's current-serving pointer. Returns
	// ErrQueueEmpty when no waiting ticket exists; completions still apply.
	CallNext(ctx context.Context, queueID string, at time.Time) (*domain.Ticket, error)

	// Finish persists a serving -> done transition prepared by the domain
	// entity, guarded against concurrent state changes.
	Finish(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)

	// MarkNotified stamps the notification signal on a ticket. Repeatable;
	// each call overwrites the previous timestamp.
	MarkNotified(ctx context.Context, id int64, at time.Time) (*domain.Ticket, error)

	// DeleteAll removes every ticket in the queue one row at a time,
	// best-effort, and resets the queue's number sequence. It reports how
	// many deletions succeeded and which ticket IDs failed.
	DeleteAll(ctx context.Context, queueID string) (deleted int, failedIDs []int64, err error)

	// EnsureQueue creates the queue row if it does not exist yet.
	EnsureQueue(ctx context.Context, queueID string) error
}

// ServiceTypeRepository is the port for service catalog persistence.
type ServiceTypeRepository interface {
	Create(ctx context.Context, st *domain.ServiceType) (*domain.ServiceType, error)
	GetByID(ctx context.Context, id int64) (*domain.ServiceType, error)
	List(ctx context.Context) ([]*domain.ServiceType, error)
	Update(ctx context.Context, st *domain.ServiceType) (*domain.ServiceType, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}
