package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pilahub/queue-backend/internal/core/domain"
	apperrors "github.com/pilahub/queue-backend/internal/core/errors"
	"github.com/pilahub/queue-backend/internal/core/ports"
)

// QRJoinSentinel is the fixed payload encoded in the printed queue QR code.
// Scanning anything else is rejected.
const QRJoinSentinel = "JOIN_QUEUE"

// resetTokenTTL bounds the window between requesting and confirming a queue
// reset.
const resetTokenTTL = 2 * time.Minute

type resetGrant struct {
	token     string
	expiresAt time.Time
}

// QueueService implements the ticket lifecycle: join, call-next, complete,
// notify and the two-step reset.
type QueueService struct {
	ticketRepo  ports.TicketRepository
	catalogRepo ports.ServiceTypeRepository
	notifier    ports.Notifier
	broadcaster ports.EventBroadcaster
	joinCode    string

	mu          sync.Mutex
	resetGrants map[string]resetGrant

	wg sync.WaitGroup
}

var _ ports.QueueService = (*QueueService)(nil)

// NewQueueService creates a new queue service. joinCode is the shared code
// customers enter manually; the QR path bypasses it via the sentinel.
func NewQueueService(
	ticketRepo ports.TicketRepository,
	catalogRepo ports.ServiceTypeRepository,
	notifier ports.Notifier,
	broadcaster ports.EventBroadcaster,
	joinCode string,
) *QueueService {
	return &QueueService{
		ticketRepo:  ticketRepo,
		catalogRepo: catalogRepo,
		notifier:    notifier,
		broadcaster: broadcaster,
		joinCode:    joinCode,
		resetGrants: make(map[string]resetGrant),
	}
}

// JoinQueue handles the use case of a customer taking a ticket.
func (s *QueueService) JoinQueue(ctx context.Context, params ports.JoinQueueParams) (*domain.Ticket, error) {
	// 1. Queue-join gate
	switch params.Method {
	case ports.JoinByQR:
		if params.QRToken != QRJoinSentinel {
			return nil, apperrors.ErrIncorrectCode
		}
	default:
		if params.Code != s.joinCode {
			return nil, apperrors.ErrIncorrectCode
		}
	}

	// 2. Resolve the service type snapshot. A selection is mandatory whenever
	// the catalog is non-empty; the catalog entry's name is denormalized onto
	// the ticket and survives later deletion of the entry.
	serviceType, err := s.resolveServiceType(ctx, params.ServiceTypeID)
	if err != nil {
		return nil, err
	}

	if err := s.ticketRepo.EnsureQueue(ctx, params.QueueID); err != nil {
		return nil, err
	}

	// 3. Mint the number and insert the ticket in one transaction.
	ticket, err := s.ticketRepo.Create(ctx, params.QueueID, serviceType)
	if err != nil {
		return nil, err
	}

	s.broadcastTicket(domain.EventTicketCreated, ticket)
	s.broadcastQueueUpdated(ticket.QueueID)

	return ticket, nil
}

func (s *QueueService) resolveServiceType(ctx context.Context, serviceTypeID *int64) (string, error) {
	count, err := s.catalogRepo.Count(ctx)
	if err != nil {
		return "", err
	}
	if count == 0 {
		// Nothing to select from; the ticket stays "General".
		return "", nil
	}
	if serviceTypeID == nil {
		return "", apperrors.ErrServiceSelectionRequired
	}
	st, err := s.catalogRepo.GetByID(ctx, *serviceTypeID)
	if err != nil {
		return "", err
	}
	return st.Name, nil
}

// GetTicketView returns the holder's projection of their ticket, including
// queue position and the fixed wait estimate.
func (s *QueueService) GetTicketView(ctx context.Context, queueID string, ticketID int64) (*ports.TicketView, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.QueueID != queueID {
		return nil, apperrors.ErrTicketNotFound
	}

	tickets, err := s.ticketRepo.ListByQueue(ctx, queueID)
	if err != nil {
		return nil, err
	}
	board := domain.BuildBoard(tickets)
	ahead := domain.PeopleAhead(ticket.TicketNumber, board.NowServingNumber)

	return &ports.TicketView{
		Ticket:               ticket,
		NowServingNumber:     board.NowServingNumber,
		PeopleAhead:          ahead,
		EstimatedWaitMinutes: domain.EstimatedWaitMinutes(ahead),
	}, nil
}

// CallNext completes whatever is being served and promotes the lowest-numbered
// waiting ticket. Both steps run as one transaction in the repository, so the
// queue can never be observed with two serving tickets.
func (s *QueueService) CallNext(ctx context.Context, queueID string) (*domain.Ticket, error) {
	ticket, err := s.ticketRepo.CallNext(ctx, queueID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, apperrors.ErrQueueEmpty) {
			// Completions of previously serving tickets still applied.
			s.broadcastQueueUpdated(queueID)
		}
		return nil, err
	}

	s.notifyHolder(ticket, fmt.Sprintf("Ticket #%d: it's your turn, please proceed to the counter.", ticket.TicketNumber))
	s.broadcastTicket(domain.EventTicketStatus, ticket)
	s.broadcastQueueUpdated(queueID)

	return ticket, nil
}

// CompleteServing finishes a single serving ticket without calling the next
// one.
func (s *QueueService) CompleteServing(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if err := ticket.MarkDone(time.Now().UTC()); err != nil {
		return nil, err
	}

	updated, err := s.ticketRepo.Finish(ctx, ticket)
	if err != nil {
		return nil, err
	}

	s.broadcastTicket(domain.EventTicketStatus, updated)
	s.broadcastQueueUpdated(updated.QueueID)

	return updated, nil
}

// Notify stamps the notification signal on a ticket. Safe to call repeatedly;
// each call overwrites the previous timestamp. Status is not a precondition.
func (s *QueueService) Notify(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.ticketRepo.MarkNotified(ctx, ticketID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.notifyHolder(ticket, fmt.Sprintf("Ticket #%d: please proceed now.", ticket.TicketNumber))
	s.broadcastTicket(domain.EventTicketNotified, ticket)

	return ticket, nil
}

// RequestReset issues a short-lived confirmation token. The reset itself only
// runs once the token comes back through ConfirmReset.
func (s *QueueService) RequestReset(ctx context.Context, queueID string) (*ports.ResetRequest, error) {
	if err := s.ticketRepo.EnsureQueue(ctx, queueID); err != nil {
		return nil, err
	}

	grant := resetGrant{
		token:     uuid.NewString(),
		expiresAt: time.Now().UTC().Add(resetTokenTTL),
	}

	s.mu.Lock()
	s.resetGrants[queueID] = grant
	s.mu.Unlock()

	return &ports.ResetRequest{Token: grant.token, ExpiresAt: grant.expiresAt}, nil
}

// ConfirmReset deletes every ticket in the queue, best-effort per ticket.
// Succeeded deletions are never rolled back; a partial failure is reported
// with the ticket IDs that survived.
func (s *QueueService) ConfirmReset(ctx context.Context, queueID, token string) (*ports.ResetResult, error) {
	s.mu.Lock()
	grant, ok := s.resetGrants[queueID]
	if ok {
		delete(s.resetGrants, queueID)
	}
	s.mu.Unlock()

	if !ok || grant.token != token || time.Now().UTC().After(grant.expiresAt) {
		return nil, apperrors.ErrResetNotRequested
	}

	deleted, failedIDs, err := s.ticketRepo.DeleteAll(ctx, queueID)
	if err != nil {
		return nil, err
	}

	s.broadcastReset(queueID)
	s.broadcastQueueUpdated(queueID)

	if len(failedIDs) > 0 {
		return &ports.ResetResult{Deleted: deleted}, &apperrors.PartialResetError{
			FailedIDs: failedIDs,
			Deleted:   deleted,
		}
	}
	return &ports.ResetResult{Deleted: deleted}, nil
}

// notifyHolder fires a best-effort out-of-band alert in the background.
func (s *QueueService) notifyHolder(ticket *domain.Ticket, message string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Background context: the HTTP request may already be done.
		s.notifier.Notify(context.Background(), ports.NotificationParams{
			QueueID:      ticket.QueueID,
			TicketID:     ticket.ID,
			TicketNumber: ticket.TicketNumber,
			Message:      message,
		})
	}()
}

func (s *QueueService) broadcastTicket(eventType domain.EventType, ticket *domain.Ticket) {
	_ = s.broadcaster.Broadcast(domain.Event{
		Type:     eventType,
		Payload:  ticket,
		QueueID:  ticket.QueueID,
		TicketID: ticket.ID,
	})
}

// broadcastQueueUpdated pushes a fresh board projection to everyone watching
// the queue. Recomputed fully from the ticket set; no incremental state.
func (s *QueueService) broadcastQueueUpdated(queueID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		tickets, err := s.ticketRepo.ListByQueue(context.Background(), queueID)
		if err != nil {
			return
		}
		_ = s.broadcaster.Broadcast(domain.Event{
			Type:    domain.EventQueueUpdated,
			Payload: domain.BuildBoard(tickets),
			QueueID: queueID,
		})
	}()
}

func (s *QueueService) broadcastReset(queueID string) {
	_ = s.broadcaster.Broadcast(domain.Event{
		Type:    domain.EventQueueReset,
		QueueID: queueID,
	})
}

// Shutdown waits for in-flight background notifications and broadcasts.
func (s *QueueService) Shutdown() {
	s.wg.Wait()
}
