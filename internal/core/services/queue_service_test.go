package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pilahub/queue-backend/internal/core/domain"
	apperrors "github.com/pilahub/queue-backend/internal/core/errors"
	"github.com/pilahub/queue-backend/internal/core/mocks"
	"github.com/pilahub/queue-backend/internal/core/ports"
	"github.com/pilahub/queue-backend/internal/core/services"
)

const testJoinCode = "12345"

type queueServiceFixture struct {
	repo        *mocks.MockTicketRepository
	catalog     *mocks.MockServiceTypeRepository
	notifier    *mocks.MockNotifier
	broadcaster *mocks.MockEventBroadcaster
	svc         *services.QueueService
}

func newQueueServiceFixture() *queueServiceFixture {
	f := &queueServiceFixture{
		repo:        mocks.NewMockTicketRepository(),
		catalog:     mocks.NewMockServiceTypeRepository(),
		notifier:    mocks.NewMockNotifier(),
		broadcaster: mocks.NewMockEventBroadcaster(),
	}
	f.svc = services.NewQueueService(f.repo, f.catalog, f.notifier, f.broadcaster, testJoinCode)

	// Broadcasts and alerts are fire-and-forget; keep those expectations
	// permissive and settle the goroutines via Shutdown.
	f.broadcaster.On("Broadcast", mock.Anything).Return(nil).Maybe()
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return().Maybe()

	return f
}

// expectBoardRefresh satisfies the background queue-updated broadcast, which
// re-reads the ticket set on its own goroutine.
func (f *queueServiceFixture) expectBoardRefresh() {
	f.repo.On("ListByQueue", mock.Anything, mock.Anything).Return([]*domain.Ticket{}, nil).Maybe()
}

func TestQueueService_JoinQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a ticket with the correct code", func(t *testing.T) {
		f := newQueueServiceFixture()

		f.expectBoardRefresh()
		f.catalog.On("Count", ctx).Return(0, nil)
		f.repo.On("EnsureQueue", ctx, "main").Return(nil)
		f.repo.On("Create", ctx, "main", "").
			Return(&domain.Ticket{ID: 1, QueueID: "main", TicketNumber: 1, Status: domain.StatusWaiting}, nil)

		ticket, err := f.svc.JoinQueue(ctx, ports.JoinQueueParams{
			QueueID: "main",
			Method:  ports.JoinByCode,
			Code:    testJoinCode,
		})
		f.svc.Shutdown()

		require.NoError(t, err)
		assert.Equal(t, 1, ticket.TicketNumber)
		f.repo.AssertExpectations(t)
	})

	t.Run("rejects a wrong code", func(t *testing.T) {
		f := newQueueServiceFixture()

		ticket, err := f.svc.JoinQueue(ctx, ports.JoinQueueParams{
			QueueID: "main",
			Method:  ports.JoinByCode,
			Code:    "00000",
		})
		f.svc.Shutdown()

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrIncorrectCode)
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("accepts the QR sentinel without a code", func(t *testing.T) {
		f := newQueueServiceFixture()

		f.expectBoardRefresh()
		f.catalog.On("Count", ctx).Return(0, nil)
		f.repo.On("EnsureQueue", ctx, "main").Return(nil)
		f.repo.On("Create", ctx, "main", "").
			Return(&domain.Ticket{ID: 2, QueueID: "main", TicketNumber: 5, Status: domain.StatusWaiting}, nil)

		ticket, err := f.svc.JoinQueue(ctx, ports.JoinQueueParams{
			QueueID: "main",
			Method:  ports.JoinByQR,
			QRToken: "JOIN_QUEUE",
		})
		f.svc.Shutdown()

		require.NoError(t, err)
		assert.Equal(t, 5, ticket.TicketNumber)
	})

	t.Run("rejects a foreign QR payload", func(t *testing.T) {
		f := newQueueServiceFixture()

		_, err := f.svc.JoinQueue(ctx, ports.JoinQueueParams{
			QueueID: "main",
			Method:  ports.JoinByQR,
			QRToken: "SOMETHING_ELSE",
		})
		f.svc.Shutdown()

		assert.ErrorIs(t, err, apperrors.ErrIncorrectCode)
	})

	t.Run("requires a selection when the catalog is non-empty", func(t *testing.T) {
		f := newQueueServiceFixture()

		f.catalog.On("Count", ctx).Return(3, nil)

		_, err := f.svc.JoinQueue(ctx, ports.JoinQueueParams{
			QueueID: "main",
			Method:  ports.JoinByCode,
			Code:    testJoinCode,
		})
		f.svc.Shutdown()

		assert.ErrorIs(t, err, apperrors.ErrServiceSelectionRequired)
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("snapshots the service name onto the ticket", func(t *testing.T) {
		f := newQueueServiceFixture()
		serviceTypeID := int64(4)

		f.expectBoardRefresh()
		f.catalog.On("Count", ctx).Return(3, nil)
		f.catalog.On("GetByID", ctx, serviceTypeID).
			Return(&domain.ServiceType{ID: serviceTypeID, Name: "Payments"}, nil)
		f.repo.On("EnsureQueue", ctx, "main").Return(nil)
		f.repo.On("Create", ctx, "main", "Payments").
			Return(&domain.Ticket{ID: 3, QueueID: "main", TicketNumber: 9, ServiceType: "Payments"}, nil)

		ticket, err := f.svc.JoinQueue(ctx, ports.JoinQueueParams{
			QueueID:       "main",
			ServiceTypeID: &serviceTypeID,
			Method:        ports.JoinByCode,
			Code:          testJoinCode,
		})
		f.svc.Shutdown()

		require.NoError(t, err)
		assert.Equal(t, "Payments", ticket.ServiceType)
		f.repo.AssertExpectations(t)
	})
}

func TestQueueService_GetTicketView(t *testing.T) {
	ctx := context.Background()

	t.Run("projects position and estimate", func(t *testing.T) {
		f := newQueueServiceFixture()

		serving := &domain.Ticket{ID: 1, QueueID: "main", TicketNumber: 3, Status: domain.StatusServing}
		mine := &domain.Ticket{ID: 2, QueueID: "main", TicketNumber: 7, Status: domain.StatusWaiting}

		f.repo.On("GetByID", ctx, int64(2)).Return(mine, nil)
		f.repo.On("ListByQueue", ctx, "main").Return([]*domain.Ticket{serving, mine}, nil)

		view, err := f.svc.GetTicketView(ctx, "main", 2)

		require.NoError(t, err)
		require.NotNil(t, view.NowServingNumber)
		assert.Equal(t, 3, *view.NowServingNumber)
		assert.Equal(t, 4, view.PeopleAhead)
		assert.Equal(t, 8, view.EstimatedWaitMinutes)
	})

	t.Run("hides tickets from other queues", func(t *testing.T) {
		f := newQueueServiceFixture()

		f.repo.On("GetByID", ctx, int64(2)).
			Return(&domain.Ticket{ID: 2, QueueID: "other", TicketNumber: 7}, nil)

		view, err := f.svc.GetTicketView(ctx, "main", 2)

		assert.Nil(t, view)
		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	})
}

func TestQueueService_CallNext(t *testing.T) {
	ctx := context.Background()

	t.Run("promotes and alerts the holder", func(t *testing.T) {
		f := newQueueServiceFixture()

		f.expectBoardRefresh()

		promoted := &domain.Ticket{ID: 5, QueueID: "main", TicketNumber: 3, Status: domain.StatusServing}
		f.repo.On("CallNext", ctx, "main", mock.AnythingOfType("time.Time")).Return(promoted, nil)

		ticket, err := f.svc.CallNext(ctx, "main")
		f.svc.Shutdown()

		require.NoError(t, err)
		assert.Equal(t, 3, ticket.TicketNumber)
		f.notifier.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(p ports.NotificationParams) bool {
			return p.TicketID == 5 && p.TicketNumber == 3
		}))
	})

	t.Run("reports an empty queue but still refreshes watchers", func(t *testing.T) {
		f := newQueueServiceFixture()

		f.expectBoardRefresh()
		f.repo.On("CallNext", ctx, "main", mock.AnythingOfType("time.Time")).
			Return(nil, apperrors.ErrQueueEmpty)

		ticket, err := f.svc.CallNext(ctx, "main")
		f.svc.Shutdown()

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrQueueEmpty)
		// The board refresh still went out: completions of the previously
		// serving ticket applied even though nothing was promoted.
		f.repo.AssertCalled(t, "ListByQueue", mock.Anything, "main")
	})
}

func TestQueueService_CompleteServing(t *testing.T) {
	ctx := context.Background()

	t.Run("completes a serving ticket", func(t *testing.T) {
		f := newQueueServiceFixture()

		f.expectBoardRefresh()

		created := time.Now().UTC().Add(-10 * time.Minute)
		serving := &domain.Ticket{ID: 5, QueueID: "main", TicketNumber: 3, Status: domain.StatusServing, CreatedAt: created}

		f.repo.On("GetByID", ctx, int64(5)).Return(serving, nil)
		f.repo.On("Finish", ctx, mock.MatchedBy(func(t *domain.Ticket) bool {
			return t.Status == domain.StatusDone && t.WaitMinutes != nil
		})).Return(serving, nil)

		_, err := f.svc.CompleteServing(ctx, 5)
		f.svc.Shutdown()

		require.NoError(t, err)
		f.repo.AssertExpectations(t)
	})

	t.Run("rejects completing a waiting ticket", func(t *testing.T) {
		f := newQueueServiceFixture()

		f.repo.On("GetByID", ctx, int64(5)).
			Return(&domain.Ticket{ID: 5, QueueID: "main", Status: domain.StatusWaiting}, nil)

		_, err := f.svc.CompleteServing(ctx, 5)
		f.svc.Shutdown()

		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
		f.repo.AssertNotCalled(t, "Finish", mock.Anything, mock.Anything)
	})
}

func TestQueueService_Notify(t *testing.T) {
	ctx := context.Background()

	f := newQueueServiceFixture()

	notified := time.Now().UTC()
	ticket := &domain.Ticket{ID: 7, QueueID: "main", TicketNumber: 4, Status: domain.StatusWaiting, NotifiedAt: &notified}
	f.repo.On("MarkNotified", ctx, int64(7), mock.AnythingOfType("time.Time")).Return(ticket, nil)

	got, err := f.svc.Notify(ctx, 7)
	f.svc.Shutdown()

	require.NoError(t, err)
	assert.NotNil(t, got.NotifiedAt)
	f.notifier.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(p ports.NotificationParams) bool {
		return p.TicketID == 7
	}))
}

func TestQueueService_Reset(t *testing.T) {
	ctx := context.Background()

	t.Run("request then confirm", func(t *testing.T) {
		f := newQueueServiceFixture()

		f.expectBoardRefresh()
		f.repo.On("EnsureQueue", ctx, "main").Return(nil)
		f.repo.On("DeleteAll", ctx, "main").Return(4, nil, nil)

		grant, err := f.svc.RequestReset(ctx, "main")
		require.NoError(t, err)
		assert.NotEmpty(t, grant.Token)
		assert.True(t, grant.ExpiresAt.After(time.Now()))

		result, err := f.svc.ConfirmReset(ctx, "main", grant.Token)
		f.svc.Shutdown()

		require.NoError(t, err)
		assert.Equal(t, 4, result.Deleted)
	})

	t.Run("confirm without a request is rejected", func(t *testing.T) {
		f := newQueueServiceFixture()

		_, err := f.svc.ConfirmReset(ctx, "main", "some-token")

		assert.ErrorIs(t, err, apperrors.ErrResetNotRequested)
		f.repo.AssertNotCalled(t, "DeleteAll", mock.Anything, mock.Anything)
	})

	t.Run("wrong token is rejected and burns the grant", func(t *testing.T) {
		f := newQueueServiceFixture()

		f.repo.On("EnsureQueue", ctx, "main").Return(nil)

		grant, err := f.svc.RequestReset(ctx, "main")
		require.NoError(t, err)

		_, err = f.svc.ConfirmReset(ctx, "main", "not-the-token")
		assert.ErrorIs(t, err, apperrors.ErrResetNotRequested)

		// The real token no longer works either; a fresh request is needed.
		_, err = f.svc.ConfirmReset(ctx, "main", grant.Token)
		assert.ErrorIs(t, err, apperrors.ErrResetNotRequested)
	})

	t.Run("partial failure reports survivors", func(t *testing.T) {
		f := newQueueServiceFixture()

		f.expectBoardRefresh()
		f.repo.On("EnsureQueue", ctx, "main").Return(nil)
		f.repo.On("DeleteAll", ctx, "main").Return(3, []int64{41, 42}, nil)

		grant, err := f.svc.RequestReset(ctx, "main")
		require.NoError(t, err)

		result, err := f.svc.ConfirmReset(ctx, "main", grant.Token)
		f.svc.Shutdown()

		require.NotNil(t, result)
		assert.Equal(t, 3, result.Deleted)

		var partial *apperrors.PartialResetError
		require.ErrorAs(t, err, &partial)
		assert.Equal(t, []int64{41, 42}, partial.FailedIDs)
		assert.Equal(t, 3, partial.Deleted)
	})
}
