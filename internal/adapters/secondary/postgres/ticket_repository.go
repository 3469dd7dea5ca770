package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pilahub/queue-backend/internal/core/domain"
	apperrors "github.com/pilahub/queue-backend/internal/core/errors"
	"github.com/pilahub/queue-backend/internal/core/ports"
	"github.com/pilahub/queue-backend/internal/core/utils"
)

const ticketColumns = `id, queue_id, ticket_number, status, service_type, created_at, served_at, wait_minutes, notified_at`

// TicketRepository is the secondary adapter for ticket persistence. It owns
// the invariants the store cannot express declaratively: monotonic per-queue
// numbering via the ticket_sequences counter, and demote-then-promote as a
// single transaction against the queue's current-serving pointer.
type TicketRepository struct {
	pool *pgxpool.Pool
	tm   *TransactionManager
}

// Ensure TicketRepository implements the ports.TicketRepository interface.
var _ ports.TicketRepository = (*TicketRepository)(nil)

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{
		pool: pool,
		tm:   NewTransactionManager(pool),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var (
		t           domain.Ticket
		status      string
		serviceType pgtype.Text
		servedAt    pgtype.Timestamptz
		waitMinutes pgtype.Int4
		notifiedAt  pgtype.Timestamptz
	)
	err := row.Scan(
		&t.ID, &t.QueueID, &t.TicketNumber, &status, &serviceType,
		&t.CreatedAt, &servedAt, &waitMinutes, &notifiedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = domain.TicketStatus(status)
	t.ServiceType = utils.FromText(serviceType)
	t.ServedAt = utils.FromTimestamptz(servedAt)
	t.WaitMinutes = utils.FromInt4(waitMinutes)
	t.NotifiedAt = utils.FromTimestamptz(notifiedAt)
	return &t, nil
}

// EnsureQueue creates the queue row if it does not exist yet.
func (r *TicketRepository) EnsureQueue(ctx context.Context, queueID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO queues (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`,
		queueID,
	)
	if err != nil {
		return apperrors.NewStorageError(err)
	}
	return nil
}

// Create mints the next ticket number and inserts a waiting ticket inside one
// transaction. The counter upsert is atomic, so concurrent joins can never
// observe the same number.
func (r *TicketRepository) Create(ctx context.Context, queueID, serviceType string) (*domain.Ticket, error) {
	var ticket *domain.Ticket

	err := r.tm.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var number int
		row := tx.QueryRow(ctx, `
			INSERT INTO ticket_sequences (queue_id, next_number)
			VALUES ($1, 1)
			ON CONFLICT (queue_id)
			DO UPDATE SET next_number = ticket_sequences.next_number + 1
			RETURNING next_number
		`, queueID)
		if err := row.Scan(&number); err != nil {
			return err
		}

		row = tx.QueryRow(ctx, `
			INSERT INTO tickets (queue_id, ticket_number, status, service_type)
			VALUES ($1, $2, $3, $4)
			RETURNING `+ticketColumns,
			queueID, number, string(domain.StatusWaiting), utils.ToText(serviceType),
		)
		var err error
		ticket, err = scanTicket(row)
		return err
	})
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return ticket, nil
}

// GetByID retrieves a single ticket by its ID.
func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, apperrors.NewStorageError(err)
	}
	return ticket, nil
}

// ListByQueue returns every ticket in the queue ordered by ticket number.
func (r *TicketRepository) ListByQueue(ctx context.Context, queueID string) ([]*domain.Ticket, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE queue_id = $1 ORDER BY ticket_number`, queueID)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	defer rows.Close()

	tickets := make([]*domain.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, apperrors.NewStorageError(err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return tickets, nil
}

// CallNext completes every serving ticket and promotes the lowest-numbered
// waiting one, all inside a single transaction that also moves the queue's
// current-serving pointer. A concurrent CallNext serializes on the queue row
// lock, so the queue can never hold two serving tickets.
func (r *TicketRepository) CallNext(ctx context.Context, queueID string, at time.Time) (*domain.Ticket, error) {
	var (
		promoted *domain.Ticket
		empty    bool
	)

	err := r.tm.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var id string
		row := tx.QueryRow(ctx, `SELECT id FROM queues WHERE id = $1 FOR UPDATE`, queueID)
		if err := row.Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrQueueNotFound
			}
			return err
		}

		// Demote: whatever is being served is done now.
		_, err := tx.Exec(ctx, `
			UPDATE tickets
			SET status = $1,
			    served_at = $2,
			    wait_minutes = ROUND(EXTRACT(EPOCH FROM ($2::timestamptz - created_at)) / 60.0)::int
			WHERE queue_id = $3 AND status = $4
		`, string(domain.StatusDone), at, queueID, string(domain.StatusServing))
		if err != nil {
			return err
		}

		// Promote: FIFO by ticket number, which is creation order.
		row = tx.QueryRow(ctx, `
			UPDATE tickets
			SET status = $1
			WHERE id = (
				SELECT id FROM tickets
				WHERE queue_id = $2 AND status = $3
				ORDER BY ticket_number
				LIMIT 1
				FOR UPDATE
			)
			RETURNING `+ticketColumns,
			string(domain.StatusServing), queueID, string(domain.StatusWaiting),
		)
		promoted, err = scanTicket(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Demotions still commit; only the promotion is skipped.
				empty = true
				promoted = nil
				_, err = tx.Exec(ctx,
					`UPDATE queues SET current_serving_id = NULL WHERE id = $1`, queueID)
				return err
			}
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE queues SET current_serving_id = $1 WHERE id = $2`, promoted.ID, queueID)
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrQueueNotFound) {
			return nil, err
		}
		return nil, apperrors.NewStorageError(err)
	}
	if empty {
		return nil, apperrors.ErrQueueEmpty
	}
	return promoted, nil
}

// Finish persists a serving -> done transition prepared by the domain entity.
// The status guard in the UPDATE protects against a concurrent CallNext
// having already completed the ticket.
func (r *TicketRepository) Finish(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	var updated *domain.Ticket

	err := r.tm.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE tickets
			SET status = $1, served_at = $2, wait_minutes = $3
			WHERE id = $4 AND status = $5
			RETURNING `+ticketColumns,
			string(domain.StatusDone),
			utils.ToTimestamptz(ticket.ServedAt),
			utils.ToInt4(ticket.WaitMinutes),
			ticket.ID,
			string(domain.StatusServing),
		)
		var err error
		updated, err = scanTicket(row)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE queues SET current_serving_id = NULL
			WHERE id = $1 AND current_serving_id = $2
		`, updated.QueueID, updated.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrInvalidTransition
		}
		return nil, apperrors.NewStorageError(err)
	}
	return updated, nil
}

// MarkNotified stamps the notification signal. Each call overwrites the
// previous timestamp; status is deliberately not a precondition.
func (r *TicketRepository) MarkNotified(ctx context.Context, id int64, at time.Time) (*domain.Ticket, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tickets SET notified_at = $1 WHERE id = $2
		RETURNING `+ticketColumns, at, id)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, apperrors.NewStorageError(err)
	}
	return ticket, nil
}

// DeleteAll removes every ticket in the queue one at a time, best-effort, and
// resets the number sequence when the queue came out clean. Succeeded
// deletions stay deleted even when later ones fail.
func (r *TicketRepository) DeleteAll(ctx context.Context, queueID string) (int, []int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM tickets WHERE queue_id = $1 ORDER BY id`, queueID)
	if err != nil {
		return 0, nil, apperrors.NewStorageError(err)
	}
	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, nil, apperrors.NewStorageError(err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, nil, apperrors.NewStorageError(err)
	}

	// Detach the pointer first so ticket rows are free to go.
	if _, err := r.pool.Exec(ctx,
		`UPDATE queues SET current_serving_id = NULL WHERE id = $1`, queueID); err != nil {
		return 0, nil, apperrors.NewStorageError(err)
	}

	var (
		deleted   int
		failedIDs []int64
	)
	for _, id := range ids {
		if _, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id); err != nil {
			failedIDs = append(failedIDs, id)
			continue
		}
		deleted++
	}

	// Numbering restarts at 1 only once no residual tickets remain;
	// resetting the counter with survivors present would collide with their
	// numbers.
	if len(failedIDs) == 0 {
		if _, err := r.pool.Exec(ctx,
			`DELETE FROM ticket_sequences WHERE queue_id = $1`, queueID); err != nil {
			return deleted, failedIDs, apperrors.NewStorageError(err)
		}
	}

	return deleted, failedIDs, nil
}
