package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pilahub/queue-backend/internal/core/domain"
	apperrors "github.com/pilahub/queue-backend/internal/core/errors"
	"github.com/pilahub/queue-backend/internal/core/mocks"
	"github.com/pilahub/queue-backend/internal/core/ports"
	"github.com/pilahub/queue-backend/internal/core/services"
)

func TestCatalogService_CreateServiceType(t *testing.T) {
	ctx := context.Background()

	t.Run("appends at the end of the catalog", func(t *testing.T) {
		repo := mocks.NewMockServiceTypeRepository()
		broadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewCatalogService(repo, broadcaster)

		repo.On("Count", ctx).Return(2, nil)
		repo.On("Create", ctx, mock.MatchedBy(func(st *domain.ServiceType) bool {
			return st.Name == "Payments" && st.Position == 3
		})).Return(&domain.ServiceType{ID: 9, Name: "Payments", Position: 3}, nil)
		broadcaster.On("Broadcast", mock.MatchedBy(func(e domain.Event) bool {
			return e.Type == domain.EventCatalogUpdated
		})).Return(nil)

		st, err := svc.CreateServiceType(ctx, ports.CreateServiceTypeParams{
			Name:  "Payments",
			Icon:  "cash-outline",
			Color: "#10B981",
		})

		require.NoError(t, err)
		assert.Equal(t, 3, st.Position)
		repo.AssertExpectations(t)
		broadcaster.AssertExpectations(t)
	})

	t.Run("rejects an unknown icon", func(t *testing.T) {
		repo := mocks.NewMockServiceTypeRepository()
		broadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewCatalogService(repo, broadcaster)

		repo.On("Count", ctx).Return(0, nil)

		_, err := svc.CreateServiceType(ctx, ports.CreateServiceTypeParams{
			Name:  "Payments",
			Icon:  "rocket",
			Color: "#10B981",
		})

		assert.ErrorIs(t, err, apperrors.ErrInvalidServiceIcon)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestCatalogService_UpdateServiceType(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps the position", func(t *testing.T) {
		repo := mocks.NewMockServiceTypeRepository()
		broadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewCatalogService(repo, broadcaster)

		existing := &domain.ServiceType{ID: 4, Name: "Payments", Icon: "cash-outline", Color: "#10B981", Position: 2}
		repo.On("GetByID", ctx, int64(4)).Return(existing, nil)
		repo.On("Update", ctx, mock.MatchedBy(func(st *domain.ServiceType) bool {
			return st.Name == "Billing" && st.Position == 2
		})).Return(&domain.ServiceType{ID: 4, Name: "Billing", Position: 2}, nil)
		broadcaster.On("Broadcast", mock.Anything).Return(nil)

		st, err := svc.UpdateServiceType(ctx, ports.UpdateServiceTypeParams{
			ID:    4,
			Name:  "Billing",
			Icon:  "cash-outline",
			Color: "#10B981",
		})

		require.NoError(t, err)
		assert.Equal(t, "Billing", st.Name)
		assert.Equal(t, 2, st.Position)
	})

	t.Run("unknown entry", func(t *testing.T) {
		repo := mocks.NewMockServiceTypeRepository()
		broadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewCatalogService(repo, broadcaster)

		repo.On("GetByID", ctx, int64(99)).Return(nil, apperrors.ErrServiceTypeNotFound)

		_, err := svc.UpdateServiceType(ctx, ports.UpdateServiceTypeParams{
			ID:    99,
			Name:  "Billing",
			Icon:  "cash-outline",
			Color: "#10B981",
		})

		assert.ErrorIs(t, err, apperrors.ErrServiceTypeNotFound)
	})
}

func TestCatalogService_DeleteServiceType(t *testing.T) {
	ctx := context.Background()

	repo := mocks.NewMockServiceTypeRepository()
	broadcaster := mocks.NewMockEventBroadcaster()
	svc := services.NewCatalogService(repo, broadcaster)

	repo.On("Delete", ctx, int64(4)).Return(nil)
	broadcaster.On("Broadcast", mock.Anything).Return(nil)

	require.NoError(t, svc.DeleteServiceType(ctx, 4))
	repo.AssertExpectations(t)
}
