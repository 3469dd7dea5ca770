package services

import (
	"context"

	"github.com/pilahub/queue-backend/internal/core/domain"
	"github.com/pilahub/queue-backend/internal/core/ports"
)

// StatsService recomputes aggregate queue views from the stored ticket set on
// every call. There is no cached or incremental state to invalidate.
type StatsService struct {
	ticketRepo ports.TicketRepository
}

var _ ports.StatsService = (*StatsService)(nil)

// NewStatsService creates a new stats service.
func NewStatsService(ticketRepo ports.TicketRepository) *StatsService {
	return &StatsService{ticketRepo: ticketRepo}
}

// QueueStats returns the full analytics projection for a queue.
func (s *StatsService) QueueStats(ctx context.Context, queueID string) (domain.QueueStats, error) {
	tickets, err := s.ticketRepo.ListByQueue(ctx, queueID)
	if err != nil {
		return domain.QueueStats{}, err
	}
	return domain.BuildQueueStats(tickets), nil
}

// Board returns the public monitor projection for a queue.
func (s *StatsService) Board(ctx context.Context, queueID string) (domain.Board, error) {
	tickets, err := s.ticketRepo.ListByQueue(ctx, queueID)
	if err != nil {
		return domain.Board{}, err
	}
	return domain.BuildBoard(tickets), nil
}
