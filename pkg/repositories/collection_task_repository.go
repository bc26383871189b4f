package repositories

import (
	"context"
	"encoding/json"
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

// CollectTaskFilter narrows task listings. Zero values mean "no filter".
type CollectTaskFilter struct {
	models.PageQuery
	Category    models.CollectionCategory
	CollectType models.CollectType
	Stage       models.TaskStage
}

// CollectTaskRepository defines the interface for collection task access,
// scoped to one tenant store per call.
type CollectTaskRepository interface {
	Create(ctx context.Context, tenantKey string, task *models.CollectTask) error
	Get(ctx context.Context, tenantKey, id string) (*models.CollectTask, error)
	List(ctx context.Context, tenantKey string, filter CollectTaskFilter) ([]*models.CollectTask, int64, error)
	ListByStages(ctx context.Context, tenantKey string, stages []models.TaskStage) ([]*models.CollectTask, error)
	Update(ctx context.Context, tenantKey string, task *models.CollectTask) error
	Delete(ctx context.Context, tenantKey, id string) error
}

// collectTaskRepository implements CollectTaskRepository using PostgreSQL.
type collectTaskRepository struct {
	registry *database.Registry
	logger   *zap.Logger
}

// NewCollectTaskRepository creates a new collection task repository.
func NewCollectTaskRepository(registry *database.Registry, logger *zap.Logger) CollectTaskRepository {
	return &collectTaskRepository{registry: registry, logger: logger}
}

var _ CollectTaskRepository = (*collectTaskRepository)(nil)

func marshalRule(task *models.CollectTask) ([]byte, error) {
	if task.Rule.IsZero() {
		return nil, nil
	}
	return json.Marshal(&task.Rule)
}

func scanTask(row pgx.Row) (*models.CollectTask, error) {
	var task models.CollectTask
	var rule []byte
	err := row.Scan(
		&task.ID,
		&task.Code,
		&task.Name,
		&task.Description,
		&task.Category,
		&task.CollectType,
		&task.DataSourceID,
		&task.ResourceID,
		&rule,
		&task.Stage,
		&task.ExecutionID,
		&task.Message,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.AppliedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(rule) > 0 {
		if err := json.Unmarshal(rule, &task.Rule); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rule: %w", err)
		}
	}
	return &task, nil
}

const taskColumns = `id, code, name, description, category, collect_type, datasource_id, resource_id, rule, stage, execution_id, message, created_at, updated_at, applied_at`

// Create inserts a new collection task into the tenant store.
func (r *collectTaskRepository) Create(ctx context.Context, tenantKey string, task *models.CollectTask) error {
	db, err := r.registry.Resolve(tenantKey)
	if err != nil {
		return err
	}

	rule, err := marshalRule(task)
	if err != nil {
		return fmt.Errorf("failed to marshal rule: %w", err)
	}

	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	query := `
		INSERT INTO df_c_collect_task (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = db.Exec(ctx, query,
		task.ID,
		task.Code,
		task.Name,
		task.Description,
		task.Category,
		task.CollectType,
		task.DataSourceID,
		task.ResourceID,
		rule,
		task.Stage,
		task.ExecutionID,
		task.Message,
		task.CreatedAt,
		task.UpdatedAt,
		task.AppliedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: collect task %s already exists", apperrors.ErrConflict, task.ID)
		}
		r.logger.Error("failed to create collect task",
			zap.String("tenant", tenantKey), zap.String("id", task.ID), zap.Error(err))
		return fmt.Errorf("failed to create collect task: %w", apperrors.ErrStorage)
	}

	return nil
}

// Get retrieves a collection task by ID.
func (r *collectTaskRepository) Get(ctx context.Context, tenantKey, id string) (*models.CollectTask, error) {
	db, err := r.registry.Resolve(tenantKey)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + taskColumns + ` FROM df_c_collect_task WHERE id = $1`

	task, err := scanTask(db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.Error("failed to get collect task",
			zap.String("tenant", tenantKey), zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get collect task: %w", apperrors.ErrStorage)
	}

	return task, nil
}

// List returns a page of collection tasks plus the unpaginated total.
func (r *collectTaskRepository) List(ctx context.Context, tenantKey string, filter CollectTaskFilter) ([]*models.CollectTask, int64, error) {
	db, err := r.registry.Resolve(tenantKey)
	if err != nil {
		return nil, 0, err
	}

	q := filter.Normalized()
	pattern := "%" + q.Keyword + "%"

	where := `
		WHERE ($1 = '%%' OR code ILIKE $1 OR name ILIKE $1)
		  AND ($2 = '' OR category = $2)
		  AND ($3 = '' OR collect_type = $3)
		  AND ($4 = '' OR stage = $4)`

	var total int64
	countQuery := `SELECT COUNT(*) FROM df_c_collect_task` + where
	if err := db.QueryRow(ctx, countQuery, pattern, string(filter.Category), string(filter.CollectType), string(filter.Stage)).Scan(&total); err != nil {
		r.logger.Error("failed to count collect tasks", zap.String("tenant", tenantKey), zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count collect tasks: %w", apperrors.ErrStorage)
	}

	listQuery := `SELECT ` + taskColumns + ` FROM df_c_collect_task` + where + `
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6`

	rows, err := db.Query(ctx, listQuery, pattern, string(filter.Category), string(filter.CollectType), string(filter.Stage), q.Limit(), q.Offset())
	if err != nil {
		r.logger.Error("failed to list collect tasks", zap.String("tenant", tenantKey), zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list collect tasks: %w", apperrors.ErrStorage)
	}
	defer rows.Close()

	var tasks []*models.CollectTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan collect task: %w", apperrors.ErrStorage)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate collect tasks: %w", apperrors.ErrStorage)
	}

	return tasks, total, nil
}

// ListByStages returns all tasks currently in any of the given stages.
// Used to find tasks with live executions that need status reconciliation.
func (r *collectTaskRepository) ListByStages(ctx context.Context, tenantKey string, stages []models.TaskStage) ([]*models.CollectTask, error) {
	db, err := r.registry.Resolve(tenantKey)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}

	query := `SELECT ` + taskColumns + ` FROM df_c_collect_task WHERE stage = ANY($1) ORDER BY created_at DESC`

	rows, err := db.Query(ctx, query, names)
	if err != nil {
		r.logger.Error("failed to list collect tasks by stage",
			zap.String("tenant", tenantKey), zap.Error(err))
		return nil, fmt.Errorf("failed to list collect tasks by stage: %w", apperrors.ErrStorage)
	}
	defer rows.Close()

	var tasks []*models.CollectTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collect task: %w", apperrors.ErrStorage)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate collect tasks: %w", apperrors.ErrStorage)
	}

	return tasks, nil
}

// Update overwrites a collection task's stored state, including its stage
// and execution bookkeeping.
func (r *collectTaskRepository) Update(ctx context.Context, tenantKey string, task *models.CollectTask) error {
	db, err := r.registry.Resolve(tenantKey)
	if err != nil {
		return err
	}

	rule, err := marshalRule(task)
	if err != nil {
		return fmt.Errorf("failed to marshal rule: %w", err)
	}

	task.UpdatedAt = time.Now()

	query := `
		UPDATE df_c_collect_task
		SET code = $2, name = $3, description = $4, category = $5, collect_type = $6,
		    datasource_id = $7, resource_id = $8, rule = $9, stage = $10,
		    execution_id = $11, message = $12, updated_at = $13, applied_at = $14
		WHERE id = $1`

	tag, err := db.Exec(ctx, query,
		task.ID,
		task.Code,
		task.Name,
		task.Description,
		task.Category,
		task.CollectType,
		task.DataSourceID,
		task.ResourceID,
		rule,
		task.Stage,
		task.ExecutionID,
		task.Message,
		task.UpdatedAt,
		task.AppliedAt,
	)
	if err != nil {
		r.logger.Error("failed to update collect task",
			zap.String("tenant", tenantKey), zap.String("id", task.ID), zap.Error(err))
		return fmt.Errorf("failed to update collect task: %w", apperrors.ErrStorage)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes a collection task.
func (r *collectTaskRepository) Delete(ctx context.Context, tenantKey, id string) error {
	db, err := r.registry.Resolve(tenantKey)
	if err != nil {
		return err
	}

	tag, err := db.Exec(ctx, `DELETE FROM df_c_collect_task WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("failed to delete collect task",
			zap.String("tenant", tenantKey), zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete collect task: %w", apperrors.ErrStorage)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
