package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/hww/data-terminal/pkg/database"
	"github.com/hww/data-terminal/pkg/models"
	"github.com/hww/data-terminal/pkg/repositories"
)

// ProjectService defines the interface for project lifecycle operations.
type ProjectService interface {
	// Add registers a new project and provisions its tenant store.
	Add(ctx context.Context, project *models.Project) error

	// Edit updates a project's name and description. The code is immutable.
	Edit(ctx context.Context, project *models.Project) error

	// Get retrieves a project by code.
	Get(ctx context.Context, code string) (*models.Project, error)

	// List returns a page of projects and the unpaginated total.
	List(ctx context.Context, query models.PageQuery) ([]*models.Project, int64, error)

	// Delete removes a project's metadata. The tenant store is kept.
	Delete(ctx context.Context, code string) error

	// ReattachStores reconnects tenant stores for every successfully
	// provisioned project. Called once at startup.
	ReattachStores(ctx context.Context) error
}

// projectService implements ProjectService.
type projectService struct {
	repo        repositories.ProjectRepository
	provisioner database.Provisioner
	logger      *zap.Logger
}

// NewProjectService creates a new project service.
func NewProjectService(repo repositories.ProjectRepository, provisioner database.Provisioner, logger *zap.Logger) ProjectService {
	return &projectService{repo: repo, provisioner: provisioner, logger: logger}
}

var _ ProjectService = (*projectService)(nil)

// Add registers the project metadata and then provisions its tenant store.
// The create_status column tracks the provisioning lifecycle: pending when
// the row lands, running while the store is built, then success or fail.
// A failed provisioning keeps the row so the operator can see the message;
// the caller may retry by deleting and re-adding.
func (s *projectService) Add(ctx context.Context, project *models.Project) error {
	if err := project.Validate(); err != nil {
		return err
	}

	// Client-supplied lifecycle fields are ignored.
	project.CreateStatus = models.CreateStatusPending
	project.CreateMsg = ""

	if err := s.repo.Create(ctx, project); err != nil {
		return err
	}

	if err := s.repo.UpdateCreateStatus(ctx, project.Code, models.CreateStatusRunning, ""); err != nil {
		return err
	}

	dbName, err := s.provisioner.Provision(ctx, project.Code)
	if err != nil {
		s.logger.Error("tenant store provisioning failed",
			zap.String("project", project.Code), zap.Error(err))
		if uerr := s.repo.UpdateCreateStatus(ctx, project.Code, models.CreateStatusFail, err.Error()); uerr != nil {
			return uerr
		}
		project.CreateStatus = models.CreateStatusFail
		project.CreateMsg = err.Error()
		return err
	}

	s.logger.Info("tenant store provisioned",
		zap.String("project", project.Code), zap.String("database", dbName))

	if err := s.repo.UpdateCreateStatus(ctx, project.Code, models.CreateStatusSuccess, ""); err != nil {
		return err
	}
	project.CreateStatus = models.CreateStatusSuccess
	return nil
}

// Edit updates name and description. Lifecycle fields and the code are
// never touched by an edit.
func (s *projectService) Edit(ctx context.Context, project *models.Project) error {
	if err := project.Validate(); err != nil {
		return err
	}

	existing, err := s.repo.Get(ctx, project.Code)
	if err != nil {
		return err
	}

	existing.Name = project.Name
	existing.Description = project.Description
	if err := s.repo.Update(ctx, existing); err != nil {
		return err
	}
	*project = *existing
	return nil
}

func (s *projectService) Get(ctx context.Context, code string) (*models.Project, error) {
	return s.repo.Get(ctx, code)
}

func (s *projectService) List(ctx context.Context, query models.PageQuery) ([]*models.Project, int64, error) {
	return s.repo.List(ctx, query)
}

func (s *projectService) Delete(ctx context.Context, code string) error {
	return s.repo.Delete(ctx, code)
}

// ReattachStores walks successfully provisioned projects and re-registers
// their tenant stores. A store that fails to attach is logged and skipped
// so one bad tenant does not block startup; requests for it will see the
// not-provisioned error until it is fixed.
func (s *projectService) ReattachStores(ctx context.Context) error {
	projects, err := s.repo.ListByCreateStatus(ctx, models.CreateStatusSuccess)
	if err != nil {
		return err
	}

	for _, project := range projects {
		if _, err := s.provisioner.Attach(ctx, project.Code); err != nil {
			s.logger.Warn("failed to attach tenant store",
				zap.String("project", project.Code), zap.Error(err))
			continue
		}
		s.logger.Info("tenant store attached", zap.String("project", project.Code))
	}
	return nil
}
