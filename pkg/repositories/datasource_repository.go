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

// DataSourceRepository defines the interface for data source access, scoped
// to one tenant store per call.
type DataSourceRepository interface {
	Create(ctx context.Context, tenantKey string, ds *models.DataSource) error
	Get(ctx context.Context, tenantKey, id string) (*models.DataSource, error)
	List(ctx context.Context, tenantKey string, query models.PageQuery) ([]*models.DataSource, int64, error)
	Update(ctx context.Context, tenantKey string, ds *models.DataSource) error
	UpdateConnectionStatus(ctx context.Context, tenantKey, id string, status models.ConnectionStatus) error
	Delete(ctx context.Context, tenantKey, id string) error
}

// dataSourceRepository implements DataSourceRepository using PostgreSQL.
type dataSourceRepository struct {
	registry *database.Registry
	logger   *zap.Logger
}

// NewDataSourceRepository creates a new data source repository.
func NewDataSourceRepository(registry *database.Registry, logger *zap.Logger) DataSourceRepository {
	return &dataSourceRepository{registry: registry, logger: logger}
}

var _ DataSourceRepository = (*dataSourceRepository)(nil)

// Create inserts a new data source into the tenant store. Connection
// details are stored as-is; they are never logged.
func (r *dataSourceRepository) Create(ctx context.Context, tenantKey string, ds *models.DataSource) error {
	db, err := r.registry.Resolve(tenantKey)
	if err != nil {
		return err
	}

	now := time.Now()
	ds.CreatedAt = now
	ds.UpdatedAt = now

	query := `
		INSERT INTO df_c_datasource (id, name, description, category, datasource_type, connection_config, connection_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = db.Exec(ctx, query,
		ds.ID,
		ds.Name,
		ds.Description,
		ds.Category,
		ds.DataSourceType,
		ds.ConnectionConfig,
		ds.ConnectionStatus,
		ds.CreatedAt,
		ds.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: datasource %s already exists", apperrors.ErrConflict, ds.ID)
		}
		r.logger.Error("failed to create datasource",
			zap.String("tenant", tenantKey), zap.String("id", ds.ID), zap.Error(err))
		return fmt.Errorf("failed to create datasource: %w", apperrors.ErrStorage)
	}

	return nil
}

// Get retrieves a data source by ID.
func (r *dataSourceRepository) Get(ctx context.Context, tenantKey, id string) (*models.DataSource, error) {
	db, err := r.registry.Resolve(tenantKey)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, description, category, datasource_type, connection_config, connection_status, created_at, updated_at
		FROM df_c_datasource
		WHERE id = $1`

	var ds models.DataSource
	err = db.QueryRow(ctx, query, id).Scan(
		&ds.ID,
		&ds.Name,
		&ds.Description,
		&ds.Category,
		&ds.DataSourceType,
		&ds.ConnectionConfig,
		&ds.ConnectionStatus,
		&ds.CreatedAt,
		&ds.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.Error("failed to get datasource",
			zap.String("tenant", tenantKey), zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get datasource: %w", apperrors.ErrStorage)
	}

	return &ds, nil
}

// List returns a page of data sources plus the unpaginated total.
func (r *dataSourceRepository) List(ctx context.Context, tenantKey string, query models.PageQuery) ([]*models.DataSource, int64, error) {
	db, err := r.registry.Resolve(tenantKey)
	if err != nil {
		return nil, 0, err
	}

	q := query.Normalized()
	pattern := "%" + q.Keyword + "%"

	var total int64
	countQuery := `
		SELECT COUNT(*)
		FROM df_c_datasource
		WHERE ($1 = '%%' OR id ILIKE $1 OR name ILIKE $1)`
	if err := db.QueryRow(ctx, countQuery, pattern).Scan(&total); err != nil {
		r.logger.Error("failed to count datasources", zap.String("tenant", tenantKey), zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count datasources: %w", apperrors.ErrStorage)
	}

	listQuery := `
		SELECT id, name, description, category, datasource_type, connection_config, connection_status, created_at, updated_at
		FROM df_c_datasource
		WHERE ($1 = '%%' OR id ILIKE $1 OR name ILIKE $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := db.Query(ctx, listQuery, pattern, q.Limit(), q.Offset())
	if err != nil {
		r.logger.Error("failed to list datasources", zap.String("tenant", tenantKey), zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list datasources: %w", apperrors.ErrStorage)
	}
	defer rows.Close()

	var sources []*models.DataSource
	for rows.Next() {
		var ds models.DataSource
		if err := rows.Scan(
			&ds.ID,
			&ds.Name,
			&ds.Description,
			&ds.Category,
			&ds.DataSourceType,
			&ds.ConnectionConfig,
			&ds.ConnectionStatus,
			&ds.CreatedAt,
			&ds.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan datasource: %w", apperrors.ErrStorage)
		}
		sources = append(sources, &ds)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate datasources: %w", apperrors.ErrStorage)
	}

	return sources, total, nil
}

// Update overwrites a data source's stored state.
func (r *dataSourceRepository) Update(ctx context.Context, tenantKey string, ds *models.DataSource) error {
	db, err := r.registry.Resolve(tenantKey)
	if err != nil {
		return err
	}

	ds.UpdatedAt = time.Now()

	query := `
		UPDATE df_c_datasource
		SET name = $2, description = $3, category = $4, datasource_type = $5,
		    connection_config = $6, connection_status = $7, updated_at = $8
		WHERE id = $1`

	tag, err := db.Exec(ctx, query,
		ds.ID,
		ds.Name,
		ds.Description,
		ds.Category,
		ds.DataSourceType,
		ds.ConnectionConfig,
		ds.ConnectionStatus,
		ds.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to update datasource",
			zap.String("tenant", tenantKey), zap.String("id", ds.ID), zap.Error(err))
		return fmt.Errorf("failed to update datasource: %w", apperrors.ErrStorage)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// UpdateConnectionStatus records the result of a connectivity probe.
func (r *dataSourceRepository) UpdateConnectionStatus(ctx context.Context, tenantKey, id string, status models.ConnectionStatus) error {
	db, err := r.registry.Resolve(tenantKey)
	if err != nil {
		return err
	}

	query := `
		UPDATE df_c_datasource
		SET connection_status = $2, updated_at = $3
		WHERE id = $1`

	tag, err := db.Exec(ctx, query, id, status, time.Now())
	if err != nil {
		r.logger.Error("failed to update datasource connection status",
			zap.String("tenant", tenantKey), zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update datasource connection status: %w", apperrors.ErrStorage)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes a data source.
func (r *dataSourceRepository) Delete(ctx context.Context, tenantKey, id string) error {
	db, err := r.registry.Resolve(tenantKey)
	if err != nil {
		return err
	}

	tag, err := db.Exec(ctx, `DELETE FROM df_c_datasource WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("failed to delete datasource",
			zap.String("tenant", tenantKey), zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete datasource: %w", apperrors.ErrStorage)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
