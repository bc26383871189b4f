package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hww/data-terminal/pkg/apperrors"
	"github.com/hww/data-terminal/pkg/audit"
	"github.com/hww/data-terminal/pkg/database"
	"github.com/hww/data-terminal/pkg/engine"
	"github.com/hww/data-terminal/pkg/models"
	"github.com/hww/data-terminal/pkg/repositories"
	sqlcheck "github.com/hww/data-terminal/pkg/sql"
)

// EngineClient is the slice of the execution engine API the collection
// service needs. *engine.Client satisfies it.
type EngineClient interface {
	Submit(ctx context.Context, req *engine.SubmitRequest) (*engine.SubmitResponse, error)
	GetStatus(ctx context.Context, executionID string) (*engine.StatusResponse, error)
	Cancel(ctx context.Context, executionID string) error
}

var _ EngineClient = (*engine.Client)(nil)

// CollectionService drives the collection task lifecycle: draft, saved,
// applied, running, then success or failed. Stage changes always go through
// the transition table; the engine is the only source of running/terminal
// stages.
type CollectionService interface {
	// Create registers a new draft task. Rule and lifecycle fields supplied
	// by the caller are ignored.
	Create(ctx context.Context, projectCode string, task *models.CollectTask) error

	// Update edits a task's descriptive fields. Only drafts can be updated.
	Update(ctx context.Context, projectCode string, task *models.CollectTask) error

	// Save attaches a validated rule to a draft, moving it to saved.
	Save(ctx context.Context, projectCode, id string, rule models.CollectionRule) (*models.CollectTask, error)

	// Apply submits a saved task to the execution engine. On success the
	// task is applied and carries the engine's execution id; on engine
	// failure the task stays saved.
	Apply(ctx context.Context, projectCode, id, submittedBy string) (*models.CollectTask, error)

	// Refresh reconciles a task with the engine's view of its execution
	// and persists any stage change before returning.
	Refresh(ctx context.Context, projectCode, id string) (*models.CollectTask, error)

	// Cancel stops a live execution and marks the task failed with the
	// given reason. An execution the engine no longer knows still cancels.
	Cancel(ctx context.Context, projectCode, id, reason string) (*models.CollectTask, error)

	// Get returns the task with its datasource and resource summaries.
	Get(ctx context.Context, projectCode, id string) (*models.CollectTaskView, error)

	// List returns a filtered page of task views and the unpaginated total.
	List(ctx context.Context, projectCode string, filter repositories.CollectTaskFilter) ([]*models.CollectTaskView, int64, error)

	// Delete removes a task. Running tasks cannot be deleted.
	Delete(ctx context.Context, projectCode, id string) error

	// GenerateTargetSchema derives a default target table layout from a
	// source table selection.
	GenerateTargetSchema(selection models.TableSelection) models.TableSchema
}

// collectionService implements CollectionService.
type collectionService struct {
	tasks       repositories.CollectTaskRepository
	datasources repositories.DataSourceRepository
	resources   repositories.ResourceRepository
	engine      EngineClient
	prefix      string
	logger      *zap.Logger
	auditor     *audit.SecurityAuditor
}

// NewCollectionService creates a new collection task service.
func NewCollectionService(
	tasks repositories.CollectTaskRepository,
	datasources repositories.DataSourceRepository,
	resources repositories.ResourceRepository,
	engineClient EngineClient,
	prefix string,
	logger *zap.Logger,
) CollectionService {
	return &collectionService{
		tasks:       tasks,
		datasources: datasources,
		resources:   resources,
		engine:      engineClient,
		prefix:      prefix,
		logger:      logger,
		auditor:     audit.NewSecurityAuditor(logger),
	}
}

var _ CollectionService = (*collectionService)(nil)

func (s *collectionService) tenantKey(projectCode string) string {
	return database.TenantKey(s.prefix, projectCode)
}

// transition moves a task to the next stage or fails with the invalid
// transition error naming both stages.
func transition(task *models.CollectTask, to models.TaskStage) error {
	if !models.CanTransition(task.Stage, to) {
		return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidStateTransition, task.Stage, to)
	}
	task.Stage = to
	return nil
}

// Create registers a new draft. The referenced datasource and resource must
// already exist in the tenant store.
func (s *collectionService) Create(ctx context.Context, projectCode string, task *models.CollectTask) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Code == "" {
		task.Code = uuid.NewString()
	}
	task.Stage = models.StageDraft
	task.Rule = models.CollectionRule{}
	task.ExecutionID = ""
	task.Message = ""
	task.AppliedAt = nil

	if err := task.Validate(); err != nil {
		return err
	}

	key := s.tenantKey(projectCode)
	if _, err := s.datasources.Get(ctx, key, task.DataSourceID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Validationf("datasource %s does not exist", task.DataSourceID)
		}
		return err
	}
	if _, err := s.resources.Get(ctx, key, task.ResourceID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Validationf("resource %s does not exist", task.ResourceID)
		}
		return err
	}

	return s.tasks.Create(ctx, key, task)
}

// Update edits descriptive fields of a draft. The stage, rule and execution
// bookkeeping never change through Update.
func (s *collectionService) Update(ctx context.Context, projectCode string, task *models.CollectTask) error {
	key := s.tenantKey(projectCode)
	existing, err := s.tasks.Get(ctx, key, task.ID)
	if err != nil {
		return err
	}

	if existing.Stage != models.StageDraft {
		return fmt.Errorf("%w: only drafts can be updated, task is %s",
			apperrors.ErrInvalidStateTransition, existing.Stage)
	}

	existing.Name = task.Name
	existing.Description = task.Description
	existing.Category = task.Category
	existing.CollectType = task.CollectType
	existing.DataSourceID = task.DataSourceID
	existing.ResourceID = task.ResourceID

	if err := existing.Validate(); err != nil {
		return err
	}
	if _, err := s.datasources.Get(ctx, key, existing.DataSourceID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Validationf("datasource %s does not exist", existing.DataSourceID)
		}
		return err
	}
	if _, err := s.resources.Get(ctx, key, existing.ResourceID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Validationf("resource %s does not exist", existing.ResourceID)
		}
		return err
	}

	if err := s.tasks.Update(ctx, key, existing); err != nil {
		return err
	}
	*task = *existing
	return nil
}

// Save validates the rule against the task's category and collect type,
// screens any transformation SQL for injection payloads, and moves the
// draft to saved.
func (s *collectionService) Save(ctx context.Context, projectCode, id string, rule models.CollectionRule) (*models.CollectTask, error) {
	key := s.tenantKey(projectCode)
	task, err := s.tasks.Get(ctx, key, id)
	if err != nil {
		return nil, err
	}

	if err := transition(task, models.StageSaved); err != nil {
		return nil, err
	}

	if err := rule.Validate(task.Category, task.CollectType); err != nil {
		s.auditor.LogRuleRejected(ctx, projectCode, id, err.Error())
		return nil, err
	}
	if statement := rule.TransformationSQL(); statement != "" {
		_, result, err := sqlcheck.Screen(statement)
		if err != nil {
			return nil, apperrors.Validationf("transformation_sql: %v", err)
		}
		if result != nil {
			s.auditor.LogInjectionAttempt(ctx, projectCode, id, result.Fingerprint)
			return nil, apperrors.Validationf("transformation_sql contains a suspected injection payload")
		}
	}

	task.Rule = rule
	if err := s.tasks.Update(ctx, key, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Apply submits the task to the execution engine. The stage only moves to
// applied after the engine accepts the submission, so an engine failure
// leaves the task saved and re-appliable.
func (s *collectionService) Apply(ctx context.Context, projectCode, id, submittedBy string) (*models.CollectTask, error) {
	key := s.tenantKey(projectCode)
	task, err := s.tasks.Get(ctx, key, id)
	if err != nil {
		return nil, err
	}

	if !models.CanTransition(task.Stage, models.StageApplied) {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidStateTransition, task.Stage, models.StageApplied)
	}

	config, err := json.Marshal(&task.Rule)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rule: %w", err)
	}

	resp, err := s.engine.Submit(ctx, &engine.SubmitRequest{
		TaskType:    string(task.Rule.Type),
		TaskName:    task.Code,
		TaskConfig:  config,
		SubmittedBy: submittedBy,
	})
	if err != nil {
		s.logger.Error("engine rejected task submission",
			zap.String("task", id), zap.Error(err))
		return nil, err
	}

	now := time.Now()
	task.Stage = models.StageApplied
	task.ExecutionID = resp.ExecutionID
	task.Message = ""
	task.AppliedAt = &now

	if err := s.tasks.Update(ctx, key, task); err != nil {
		return nil, err
	}

	s.logger.Info("collect task applied",
		zap.String("task", id), zap.String("execution", resp.ExecutionID))
	return task, nil
}

// Refresh asks the engine for the execution's status and folds it back
// into the task's stage. Terminal tasks are returned as stored without an
// engine round trip.
func (s *collectionService) Refresh(ctx context.Context, projectCode, id string) (*models.CollectTask, error) {
	key := s.tenantKey(projectCode)
	task, err := s.tasks.Get(ctx, key, id)
	if err != nil {
		return nil, err
	}

	if task.Stage.IsTerminal() {
		return task, nil
	}
	if !task.Stage.HasExecution() {
		return nil, fmt.Errorf("%w: task %s has no execution recorded",
			apperrors.ErrInvalidStateTransition, id)
	}

	status, err := s.engine.GetStatus(ctx, task.ExecutionID)
	if err != nil {
		if errors.Is(err, engine.ErrExecutionNotFound) {
			task.Stage = models.StageFailed
			task.Message = "execution no longer known to engine"
			if uerr := s.tasks.Update(ctx, key, task); uerr != nil {
				return nil, uerr
			}
			return task, nil
		}
		return nil, err
	}

	next := stageFromEngineStatus(task.Stage, status.Status)
	if next == task.Stage {
		return task, nil
	}

	task.Stage = next
	if next == models.StageFailed && status.CurrentStep != nil {
		task.Message = "failed at: " + *status.CurrentStep
	}
	if err := s.tasks.Update(ctx, key, task); err != nil {
		return nil, err
	}
	return task, nil
}

// stageFromEngineStatus maps the engine's execution status onto a task
// stage. Unknown statuses leave the stage unchanged.
func stageFromEngineStatus(current models.TaskStage, status string) models.TaskStage {
	var next models.TaskStage
	switch status {
	case "running":
		next = models.StageRunning
	case "success", "succeeded", "completed":
		next = models.StageSuccess
	case "failed":
		next = models.StageFailed
	default:
		return current
	}
	if !models.CanTransition(current, next) {
		return current
	}
	return next
}

// Cancel stops the live execution. The engine not knowing the execution is
// treated as already cancelled. The task lands in failed with the reason
// recorded.
func (s *collectionService) Cancel(ctx context.Context, projectCode, id, reason string) (*models.CollectTask, error) {
	key := s.tenantKey(projectCode)
	task, err := s.tasks.Get(ctx, key, id)
	if err != nil {
		return nil, err
	}

	if !task.Stage.HasExecution() || task.Stage.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot cancel task in stage %s",
			apperrors.ErrInvalidStateTransition, task.Stage)
	}

	if err := s.engine.Cancel(ctx, task.ExecutionID); err != nil && !errors.Is(err, engine.ErrExecutionNotFound) {
		return nil, err
	}

	task.Stage = models.StageFailed
	if reason == "" {
		reason = "cancelled by user"
	}
	task.Message = reason
	if err := s.tasks.Update(ctx, key, task); err != nil {
		return nil, err
	}

	s.logger.Info("collect task cancelled",
		zap.String("task", id), zap.String("execution", task.ExecutionID))
	return task, nil
}

// Get assembles the task view. A dangling datasource or resource reference
// degrades to an empty summary rather than failing the read.
func (s *collectionService) Get(ctx context.Context, projectCode, id string) (*models.CollectTaskView, error) {
	key := s.tenantKey(projectCode)
	task, err := s.tasks.Get(ctx, key, id)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, key, task)
}

// List assembles views for a filtered page of tasks.
func (s *collectionService) List(ctx context.Context, projectCode string, filter repositories.CollectTaskFilter) ([]*models.CollectTaskView, int64, error) {
	key := s.tenantKey(projectCode)
	tasks, total, err := s.tasks.List(ctx, key, filter)
	if err != nil {
		return nil, 0, err
	}

	views := make([]*models.CollectTaskView, 0, len(tasks))
	for _, task := range tasks {
		view, err := s.buildView(ctx, key, task)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, view)
	}
	return views, total, nil
}

func (s *collectionService) buildView(ctx context.Context, tenantKey string, task *models.CollectTask) (*models.CollectTaskView, error) {
	view := &models.CollectTaskView{
		ID:          task.ID,
		Code:        task.Code,
		Name:        task.Name,
		Description: task.Description,
		Category:    task.Category,
		CollectType: task.CollectType,
		Rule:        task.Rule,
		Stage:       task.Stage,
		ExecutionID: task.ExecutionID,
		Message:     task.Message,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		AppliedAt:   task.AppliedAt,
	}

	if ds, err := s.datasources.Get(ctx, tenantKey, task.DataSourceID); err == nil {
		view.DataSource = ds.Info()
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if res, err := s.resources.Get(ctx, tenantKey, task.ResourceID); err == nil {
		view.Resource = res.Info()
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	return view, nil
}

// Delete removes a task. A running task holds a live execution and must be
// cancelled first.
func (s *collectionService) Delete(ctx context.Context, projectCode, id string) error {
	key := s.tenantKey(projectCode)
	task, err := s.tasks.Get(ctx, key, id)
	if err != nil {
		return err
	}
	if task.Stage == models.StageRunning {
		return fmt.Errorf("%w: cancel the running execution before deleting",
			apperrors.ErrInvalidStateTransition)
	}
	return s.tasks.Delete(ctx, key, id)
}

// GenerateTargetSchema proposes a target layout mirroring a source table
// selection: one nullable VARCHAR column per selected field, or a bare
// primary key column when no fields were named.
func (s *collectionService) GenerateTargetSchema(selection models.TableSelection) models.TableSchema {
	schema := models.TableSchema{TableName: selection.TableName}
	if len(selection.SelectedFields) == 0 {
		schema.Fields = []models.FieldSchema{{
			FieldName:     "id",
			FieldType:     "BIGINT",
			Nullable:      false,
			PrimaryKey:    true,
			AutoIncrement: true,
		}}
		return schema
	}
	for _, field := range selection.SelectedFields {
		schema.Fields = append(schema.Fields, models.FieldSchema{
			FieldName: field,
			FieldType: "VARCHAR",
			Nullable:  true,
		})
	}
	return schema
}
