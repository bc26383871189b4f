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

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

// ProjectRepository defines the interface for project metadata access.
// Projects live in the shared config store, never in a tenant store.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	Get(ctx context.Context, code string) (*models.Project, error)
	List(ctx context.Context, query models.PageQuery) ([]*models.Project, int64, error)
	ListByCreateStatus(ctx context.Context, status models.CreateStatus) ([]*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	UpdateCreateStatus(ctx context.Context, code string, status models.CreateStatus, msg string) error
	Delete(ctx context.Context, code string) error
}

// projectRepository implements ProjectRepository using PostgreSQL.
type projectRepository struct {
	registry *database.Registry
	logger   *zap.Logger
}

// NewProjectRepository creates a new project repository backed by the
// registry's config store.
func NewProjectRepository(registry *database.Registry, logger *zap.Logger) ProjectRepository {
	return &projectRepository{registry: registry, logger: logger}
}

var _ ProjectRepository = (*projectRepository)(nil)

func (r *projectRepository) configStore() (*database.DB, error) {
	return r.registry.Resolve(database.ConfigKey)
}

// Create inserts a new project. A duplicate code is reported as a conflict
// so callers can distinguish it from storage failures.
func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	db, err := r.configStore()
	if err != nil {
		return err
	}

	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now

	query := `
		INSERT INTO df_c_project (code, name, description, create_status, create_msg, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = db.Exec(ctx, query,
		project.Code,
		project.Name,
		project.Description,
		project.CreateStatus,
		project.CreateMsg,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: project %s already exists", apperrors.ErrConflict, project.Code)
		}
		r.logger.Error("failed to create project", zap.String("code", project.Code), zap.Error(err))
		return fmt.Errorf("failed to create project: %w", apperrors.ErrStorage)
	}

	return nil
}

// Get retrieves a project by code.
func (r *projectRepository) Get(ctx context.Context, code string) (*models.Project, error) {
	db, err := r.configStore()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT code, name, description, create_status, create_msg, created_at, updated_at
		FROM df_c_project
		WHERE code = $1`

	var project models.Project
	err = db.QueryRow(ctx, query, code).Scan(
		&project.Code,
		&project.Name,
		&project.Description,
		&project.CreateStatus,
		&project.CreateMsg,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.Error("failed to get project", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to get project: %w", apperrors.ErrStorage)
	}

	return &project, nil
}

// List returns a page of projects plus the unpaginated total. Keyword
// filtering matches code and name, case-insensitively.
func (r *projectRepository) List(ctx context.Context, query models.PageQuery) ([]*models.Project, int64, error) {
	db, err := r.configStore()
	if err != nil {
		return nil, 0, err
	}

	q := query.Normalized()
	pattern := "%" + q.Keyword + "%"

	var total int64
	countQuery := `
		SELECT COUNT(*)
		FROM df_c_project
		WHERE ($1 = '%%' OR code ILIKE $1 OR name ILIKE $1)`
	if err := db.QueryRow(ctx, countQuery, pattern).Scan(&total); err != nil {
		r.logger.Error("failed to count projects", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count projects: %w", apperrors.ErrStorage)
	}

	listQuery := `
		SELECT code, name, description, create_status, create_msg, created_at, updated_at
		FROM df_c_project
		WHERE ($1 = '%%' OR code ILIKE $1 OR name ILIKE $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := db.Query(ctx, listQuery, pattern, q.Limit(), q.Offset())
	if err != nil {
		r.logger.Error("failed to list projects", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list projects: %w", apperrors.ErrStorage)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var project models.Project
		if err := rows.Scan(
			&project.Code,
			&project.Name,
			&project.Description,
			&project.CreateStatus,
			&project.CreateMsg,
			&project.CreatedAt,
			&project.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan project: %w", apperrors.ErrStorage)
		}
		projects = append(projects, &project)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate projects: %w", apperrors.ErrStorage)
	}

	return projects, total, nil
}

// ListByCreateStatus returns every project in the given provisioning state.
// Used at startup to re-attach tenant stores for successfully provisioned
// projects.
func (r *projectRepository) ListByCreateStatus(ctx context.Context, status models.CreateStatus) ([]*models.Project, error) {
	db, err := r.configStore()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT code, name, description, create_status, create_msg, created_at, updated_at
		FROM df_c_project
		WHERE create_status = $1
		ORDER BY created_at`

	rows, err := db.Query(ctx, query, status)
	if err != nil {
		r.logger.Error("failed to list projects by create status", zap.Error(err))
		return nil, fmt.Errorf("failed to list projects by create status: %w", apperrors.ErrStorage)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var project models.Project
		if err := rows.Scan(
			&project.Code,
			&project.Name,
			&project.Description,
			&project.CreateStatus,
			&project.CreateMsg,
			&project.CreatedAt,
			&project.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", apperrors.ErrStorage)
		}
		projects = append(projects, &project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", apperrors.ErrStorage)
	}

	return projects, nil
}

// Update modifies a project's mutable fields. The code is the identity and
// never changes.
func (r *projectRepository) Update(ctx context.Context, project *models.Project) error {
	db, err := r.configStore()
	if err != nil {
		return err
	}

	project.UpdatedAt = time.Now()

	query := `
		UPDATE df_c_project
		SET name = $2, description = $3, updated_at = $4
		WHERE code = $1`

	tag, err := db.Exec(ctx, query,
		project.Code,
		project.Name,
		project.Description,
		project.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to update project", zap.String("code", project.Code), zap.Error(err))
		return fmt.Errorf("failed to update project: %w", apperrors.ErrStorage)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// UpdateCreateStatus records the outcome of tenant store provisioning.
func (r *projectRepository) UpdateCreateStatus(ctx context.Context, code string, status models.CreateStatus, msg string) error {
	db, err := r.configStore()
	if err != nil {
		return err
	}

	query := `
		UPDATE df_c_project
		SET create_status = $2, create_msg = $3, updated_at = $4
		WHERE code = $1`

	tag, err := db.Exec(ctx, query, code, status, msg, time.Now())
	if err != nil {
		r.logger.Error("failed to update project create status",
			zap.String("code", code), zap.Error(err))
		return fmt.Errorf("failed to update project create status: %w", apperrors.ErrStorage)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes a project's metadata row. The tenant database itself is
// left in place.
func (r *projectRepository) Delete(ctx context.Context, code string) error {
	db, err := r.configStore()
	if err != nil {
		return err
	}

	tag, err := db.Exec(ctx, `DELETE FROM df_c_project WHERE code = $1`, code)
	if err != nil {
		r.logger.Error("failed to delete project", zap.String("code", code), zap.Error(err))
		return fmt.Errorf("failed to delete project: %w", apperrors.ErrStorage)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
