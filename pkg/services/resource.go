package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/hww/data-terminal/pkg/database"
	"github.com/hww/data-terminal/pkg/models"
	"github.com/hww/data-terminal/pkg/repositories"
)

// ResourceService defines the interface for storage resource operations.
// All operations act on the tenant store of the given project.
type ResourceService interface {
	Add(ctx context.Context, projectCode string, resource *models.Resource) error
	Edit(ctx context.Context, projectCode string, resource *models.Resource) error
	Get(ctx context.Context, projectCode, id string) (*models.Resource, error)
	List(ctx context.Context, projectCode string, query models.PageQuery) ([]*models.Resource, int64, error)
	Delete(ctx context.Context, projectCode, id string) error
}

// resourceService implements ResourceService.
type resourceService struct {
	repo   repositories.ResourceRepository
	prefix string
	logger *zap.Logger
}

// NewResourceService creates a new resource service. The prefix is the
// tenant database name prefix from configuration.
func NewResourceService(repo repositories.ResourceRepository, prefix string, logger *zap.Logger) ResourceService {
	return &resourceService{repo: repo, prefix: prefix, logger: logger}
}

var _ ResourceService = (*resourceService)(nil)

func (s *resourceService) tenantKey(projectCode string) string {
	return database.TenantKey(s.prefix, projectCode)
}

// Add registers a new storage resource. New resources start active.
func (s *resourceService) Add(ctx context.Context, projectCode string, resource *models.Resource) error {
	if err := resource.Validate(); err != nil {
		return err
	}
	if resource.Status == "" {
		resource.Status = models.ResourceStatusActive
	}
	return s.repo.Create(ctx, s.tenantKey(projectCode), resource)
}

// Edit overlays the caller's fields on the stored resource. The lifecycle
// status and creation time survive an edit untouched.
func (s *resourceService) Edit(ctx context.Context, projectCode string, resource *models.Resource) error {
	if err := resource.Validate(); err != nil {
		return err
	}

	key := s.tenantKey(projectCode)
	existing, err := s.repo.Get(ctx, key, resource.ID)
	if err != nil {
		return err
	}

	existing.Name = resource.Name
	existing.Description = resource.Description
	existing.Category = resource.Category
	existing.ResourceType = resource.ResourceType
	existing.Config = resource.Config

	if err := s.repo.Update(ctx, key, existing); err != nil {
		return err
	}
	*resource = *existing
	return nil
}

func (s *resourceService) Get(ctx context.Context, projectCode, id string) (*models.Resource, error) {
	return s.repo.Get(ctx, s.tenantKey(projectCode), id)
}

func (s *resourceService) List(ctx context.Context, projectCode string, query models.PageQuery) ([]*models.Resource, int64, error) {
	return s.repo.List(ctx, s.tenantKey(projectCode), query)
}

func (s *resourceService) Delete(ctx context.Context, projectCode, id string) error {
	return s.repo.Delete(ctx, s.tenantKey(projectCode), id)
}
