package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pilahub/queue-backend/internal/core/domain"
	apperrors "github.com/pilahub/queue-backend/internal/core/errors"
	"github.com/pilahub/queue-backend/internal/core/ports"
)

const serviceTypeColumns = `id, name, icon, color, position, created_at`

// ServiceTypeRepository is the secondary adapter for the service catalog.
type ServiceTypeRepository struct {
	pool *pgxpool.Pool
}

var _ ports.ServiceTypeRepository = (*ServiceTypeRepository)(nil)

// NewServiceTypeRepository creates a new service type repository.
func NewServiceTypeRepository(pool *pgxpool.Pool) *ServiceTypeRepository {
	return &ServiceTypeRepository{pool: pool}
}

func scanServiceType(row rowScanner) (*domain.ServiceType, error) {
	var st domain.ServiceType
	err := row.Scan(&st.ID, &st.Name, &st.Icon, &st.Color, &st.Position, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Create persists a new catalog entry.
func (r *ServiceTypeRepository) Create(ctx context.Context, st *domain.ServiceType) (*domain.ServiceType, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO service_types (name, icon, color, position)
		VALUES ($1, $2, $3, $4)
		RETURNING `+serviceTypeColumns,
		st.Name, st.Icon, st.Color, st.Position,
	)
	created, err := scanServiceType(row)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return created, nil
}

// GetByID retrieves a single catalog entry.
func (r *ServiceTypeRepository) GetByID(ctx context.Context, id int64) (*domain.ServiceType, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+serviceTypeColumns+` FROM service_types WHERE id = $1`, id)
	st, err := scanServiceType(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrServiceTypeNotFound
		}
		return nil, apperrors.NewStorageError(err)
	}
	return st, nil
}

// List returns the catalog in display order.
func (r *ServiceTypeRepository) List(ctx context.Context) ([]*domain.ServiceType, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+serviceTypeColumns+` FROM service_types ORDER BY position`)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	defer rows.Close()

	entries := make([]*domain.ServiceType, 0)
	for rows.Next() {
		st, err := scanServiceType(rows)
		if err != nil {
			return nil, apperrors.NewStorageError(err)
		}
		entries = append(entries, st)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return entries, nil
}

// Update persists changes to an existing catalog entry.
func (r *ServiceTypeRepository) Update(ctx context.Context, st *domain.ServiceType) (*domain.ServiceType, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE service_types SET name = $1, icon = $2, color = $3
		WHERE id = $4
		RETURNING `+serviceTypeColumns,
		st.Name, st.Icon, st.Color, st.ID,
	)
	updated, err := scanServiceType(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrServiceTypeNotFound
		}
		return nil, apperrors.NewStorageError(err)
	}
	return updated, nil
}

// Delete removes a catalog entry. Positions of the remaining entries are not
// renumbered.
func (r *ServiceTypeRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM service_types WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewStorageError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrServiceTypeNotFound
	}
	return nil
}

// Count returns the number of catalog entries.
func (r *ServiceTypeRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM service_types`).Scan(&count); err != nil {
		return 0, apperrors.NewStorageError(err)
	}
	return count, nil
}
