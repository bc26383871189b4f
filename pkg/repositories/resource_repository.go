package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/hww/data-terminal/pkg/apperrors"
	"github.com/hww/data-terminal/pkg/database"
	"github.com/hww/data-terminal/pkg/models"
)

// ResourceRepository defines the interface for storage resource access.
// Every method is scoped to one tenant store, addressed by its registry key.
type ResourceRepository interface {
	Create(ctx context.Context, tenantKey string, resource *models.Resource) error
	Get(ctx context.Context, tenantKey, id string) (*models.Resource, error)
	List(ctx context.Context, tenantKey string, query models.PageQuery) ([]*models.Resource, int64, error)
	Update(ctx context.Context, tenantKey string, resource *models.Resource) error
	Delete(ctx context.Context, tenantKey, id string) error
}

// resourceRepository implements ResourceRepository using PostgreSQL.
type resourceRepository struct {
	registry *database.Registry
	logger   *zap.Logger
}

// NewResourceRepository creates a new resource repository.
func NewResourceRepository(registry *database.Registry, logger *zap.Logger) ResourceRepository {
	return &resourceRepository{registry: registry, logger: logger}
}

var _ ResourceRepository = (*resourceRepository)(nil)

// Create inserts a new resource into the tenant store.
func (r *resourceRepository) Create(ctx context.Context, tenantKey string, resource *models.Resource) error {
	db, err := r.registry.Resolve(tenantKey)
	if err != nil {
		return err
	}

	now := time.Now()
	resource.CreatedAt = now
	resource.UpdatedAt = now

	query := `
		INSERT INTO df_c_resource (id, name, description, category, resource_type, config, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = db.Exec(ctx, query,
		resource.ID,
		resource.Name,
		resource.Description,
		resource.Category,
		resource.ResourceType,
		resource.Config,
		resource.Status,
		resource.CreatedAt,
		resource.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: resource %s already exists", apperrors.ErrConflict, resource.ID)
		}
		r.logger.Error("failed to create resource",
			zap.String("tenant", tenantKey), zap.String("id", resource.ID), zap.Error(err))
		return fmt.Errorf("failed to create resource: %w", apperrors.ErrStorage)
	}

	return nil
}

// Get retrieves a resource by ID.
func (r *resourceRepository) Get(ctx context.Context, tenantKey, id string) (*models.Resource, error) {
	db, err := r.registry.Resolve(tenantKey)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, description, category, resource_type, config, status, created_at, updated_at
		FROM df_c_resource
		WHERE id = $1`

	var resource models.Resource
	err = db.QueryRow(ctx, query, id).Scan(
		&resource.ID,
		&resource.Name,
		&resource.Description,
		&resource.Category,
		&resource.ResourceType,
		&resource.Config,
		&resource.Status,
		&resource.CreatedAt,
		&resource.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.Error("failed to get resource",
			zap.String("tenant", tenantKey), zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get resource: %w", apperrors.ErrStorage)
	}

	return &resource, nil
}

// List returns a page of resources plus the unpaginated total. Keyword
// filtering matches id and name, case-insensitively.
func (r *resourceRepository) List(ctx context.Context, tenantKey string, query models.PageQuery) ([]*models.Resource, int64, error) {
	db, err := r.registry.Resolve(tenantKey)
	if err != nil {
		return nil, 0, err
	}

	q := query.Normalized()
	pattern := "%" + q.Keyword + "%"

	var total int64
	countQuery := `
		SELECT COUNT(*)
		FROM df_c_resource
		WHERE ($1 = '%%' OR id ILIKE $1 OR name ILIKE $1)`
	if err := db.QueryRow(ctx, countQuery, pattern).Scan(&total); err != nil {
		r.logger.Error("failed to count resources", zap.String("tenant", tenantKey), zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count resources: %w", apperrors.ErrStorage)
	}

	listQuery := `
		SELECT id, name, description, category, resource_type, config, status, created_at, updated_at
		FROM df_c_resource
		WHERE ($1 = '%%' OR id ILIKE $1 OR name ILIKE $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := db.Query(ctx, listQuery, pattern, q.Limit(), q.Offset())
	if err != nil {
		r.logger.Error("failed to list resources", zap.String("tenant", tenantKey), zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list resources: %w", apperrors.ErrStorage)
	}
	defer rows.Close()

	var resources []*models.Resource
	for rows.Next() {
		var resource models.Resource
		if err := rows.Scan(
			&resource.ID,
			&resource.Name,
			&resource.Description,
			&resource.Category,
			&resource.ResourceType,
			&resource.Config,
			&resource.Status,
			&resource.CreatedAt,
			&resource.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan resource: %w", apperrors.ErrStorage)
		}
		resources = append(resources, &resource)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate resources: %w", apperrors.ErrStorage)
	}

	return resources, total, nil
}

// Update overwrites a resource's stored state.
func (r *resourceRepository) Update(ctx context.Context, tenantKey string, resource *models.Resource) error {
	db, err := r.registry.Resolve(tenantKey)
	if err != nil {
		return err
	}

	resource.UpdatedAt = time.Now()

	query := `
		UPDATE df_c_resource
		SET name = $2, description = $3, category = $4, resource_type = $5,
		    config = $6, status = $7, updated_at = $8
		WHERE id = $1`

	tag, err := db.Exec(ctx, query,
		resource.ID,
		resource.Name,
		resource.Description,
		resource.Category,
		resource.ResourceType,
		resource.Config,
		resource.Status,
		resource.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to update resource",
			zap.String("tenant", tenantKey), zap.String("id", resource.ID), zap.Error(err))
		return fmt.Errorf("failed to update resource: %w", apperrors.ErrStorage)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes a resource.
func (r *resourceRepository) Delete(ctx context.Context, tenantKey, id string) error {
	db, err := r.registry.Resolve(tenantKey)
	if err != nil {
		return err
	}

	tag, err := db.Exec(ctx, `DELETE FROM df_c_resource WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("failed to delete resource",
			zap.String("tenant", tenantKey), zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete resource: %w", apperrors.ErrStorage)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
