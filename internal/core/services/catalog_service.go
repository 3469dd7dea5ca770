package services

import (
	"context"
	"strings"

	"github.com/pilahub/queue-backend/internal/core/domain"
	apperrors "github.com/pilahub/queue-backend/internal/core/errors"
	"github.com/pilahub/queue-backend/internal/core/ports"
)

// CatalogService implements administration of the service catalog.
type CatalogService struct {
	repo        ports.ServiceTypeRepository
	broadcaster ports.EventBroadcaster
}

var _ ports.CatalogService = (*CatalogService)(nil)

// NewCatalogService creates a new catalog service.
func NewCatalogService(repo ports.ServiceTypeRepository, broadcaster ports.EventBroadcaster) *CatalogService {
	return &CatalogService{repo: repo, broadcaster: broadcaster}
}

// CreateServiceType adds a catalog entry. Position is assigned as
// catalog-length+1 and is never renumbered when entries are deleted.
func (s *CatalogService) CreateServiceType(ctx context.Context, params ports.CreateServiceTypeParams) (*domain.ServiceType, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}

	st, err := domain.NewServiceType(params.Name, params.Icon, params.Color, count+1)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, st)
	if err != nil {
		return nil, err
	}

	s.broadcastCatalogUpdated()
	return created, nil
}

// UpdateServiceType edits an entry's name, icon and color. Position is kept.
func (s *CatalogService) UpdateServiceType(ctx context.Context, params ports.UpdateServiceTypeParams) (*domain.ServiceType, error) {
	st, err := s.repo.GetByID(ctx, params.ID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, apperrors.ErrServiceNameRequired
	}
	if !domain.ValidServiceIcon(params.Icon) {
		return nil, apperrors.ErrInvalidServiceIcon
	}
	if !domain.ValidServiceColor(params.Color) {
		return nil, apperrors.ErrInvalidServiceColor
	}

	st.Name = name
	st.Icon = params.Icon
	st.Color = params.Color

	updated, err := s.repo.Update(ctx, st)
	if err != nil {
		return nil, err
	}

	s.broadcastCatalogUpdated()
	return updated, nil
}

// DeleteServiceType removes an entry. Tickets already tagged with the entry's
// name keep their snapshot; nothing is rewritten.
func (s *CatalogService) DeleteServiceType(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.broadcastCatalogUpdated()
	return nil
}

// ListServiceTypes returns the catalog in display order.
func (s *CatalogService) ListServiceTypes(ctx context.Context) ([]*domain.ServiceType, error) {
	return s.repo.List(ctx)
}

func (s *CatalogService) broadcastCatalogUpdated() {
	// The catalog is deployment-global; route through the default queue room.
	_ = s.broadcaster.Broadcast(domain.Event{
		Type:    domain.EventCatalogUpdated,
		QueueID: domain.DefaultQueueID,
	})
}
