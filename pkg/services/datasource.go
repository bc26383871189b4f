package services

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/hww/data-terminal/pkg/crypto"
	"github.com/hww/data-terminal/pkg/database"
	"github.com/hww/data-terminal/pkg/models"
	"github.com/hww/data-terminal/pkg/repositories"
)

// DataSourceService defines the interface for data source operations.
// All operations act on the tenant store of the given project.
type DataSourceService interface {
	Add(ctx context.Context, projectCode string, ds *models.DataSource) error
	Edit(ctx context.Context, projectCode string, ds *models.DataSource) error
	Get(ctx context.Context, projectCode, id string) (*models.DataSource, error)
	List(ctx context.Context, projectCode string, query models.PageQuery) ([]*models.DataSource, int64, error)
	MarkConnection(ctx context.Context, projectCode, id string, status models.ConnectionStatus) error
	Delete(ctx context.Context, projectCode, id string) error
}

// dataSourceService implements DataSourceService.
type dataSourceService struct {
	repo      repositories.DataSourceRepository
	encryptor *crypto.ConnectionEncryptor
	prefix    string
	logger    *zap.Logger
}

// NewDataSourceService creates a new data source service. A nil encryptor
// stores connection configs in plaintext.
func NewDataSourceService(repo repositories.DataSourceRepository, encryptor *crypto.ConnectionEncryptor, prefix string, logger *zap.Logger) DataSourceService {
	return &dataSourceService{repo: repo, encryptor: encryptor, prefix: prefix, logger: logger}
}

var _ DataSourceService = (*dataSourceService)(nil)

func (s *dataSourceService) tenantKey(projectCode string) string {
	return database.TenantKey(s.prefix, projectCode)
}

func (s *dataSourceService) seal(config json.RawMessage) (json.RawMessage, error) {
	if s.encryptor == nil {
		return config, nil
	}
	return s.encryptor.EncryptConfig(config)
}

func (s *dataSourceService) open(ds *models.DataSource) error {
	if s.encryptor == nil {
		return nil
	}
	config, err := s.encryptor.DecryptConfig(ds.ConnectionConfig)
	if err != nil {
		return err
	}
	ds.ConnectionConfig = config
	return nil
}

// Add registers a new data source. Until a connectivity probe runs the
// source is recorded as disconnected.
func (s *dataSourceService) Add(ctx context.Context, projectCode string, ds *models.DataSource) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	if ds.ConnectionStatus == "" {
		ds.ConnectionStatus = models.ConnectionStatusDisconnected
	}

	plaintext := ds.ConnectionConfig
	sealed, err := s.seal(ds.ConnectionConfig)
	if err != nil {
		return err
	}
	ds.ConnectionConfig = sealed
	if err := s.repo.Create(ctx, s.tenantKey(projectCode), ds); err != nil {
		return err
	}
	ds.ConnectionConfig = plaintext
	return nil
}

// Edit overlays the caller's fields on the stored data source. The
// connection status and creation time survive an edit untouched.
func (s *dataSourceService) Edit(ctx context.Context, projectCode string, ds *models.DataSource) error {
	if err := ds.Validate(); err != nil {
		return err
	}

	key := s.tenantKey(projectCode)
	existing, err := s.repo.Get(ctx, key, ds.ID)
	if err != nil {
		return err
	}

	existing.Name = ds.Name
	existing.Description = ds.Description
	existing.Category = ds.Category
	existing.DataSourceType = ds.DataSourceType

	sealed, err := s.seal(ds.ConnectionConfig)
	if err != nil {
		return err
	}
	existing.ConnectionConfig = sealed

	if err := s.repo.Update(ctx, key, existing); err != nil {
		return err
	}
	existing.ConnectionConfig = ds.ConnectionConfig
	*ds = *existing
	return nil
}

func (s *dataSourceService) Get(ctx context.Context, projectCode, id string) (*models.DataSource, error) {
	ds, err := s.repo.Get(ctx, s.tenantKey(projectCode), id)
	if err != nil {
		return nil, err
	}
	if err := s.open(ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func (s *dataSourceService) List(ctx context.Context, projectCode string, query models.PageQuery) ([]*models.DataSource, int64, error) {
	sources, total, err := s.repo.List(ctx, s.tenantKey(projectCode), query)
	if err != nil {
		return nil, 0, err
	}
	for _, ds := range sources {
		if err := s.open(ds); err != nil {
			return nil, 0, err
		}
	}
	return sources, total, nil
}

// MarkConnection records the outcome of a connectivity probe.
func (s *dataSourceService) MarkConnection(ctx context.Context, projectCode, id string, status models.ConnectionStatus) error {
	return s.repo.UpdateConnectionStatus(ctx, s.tenantKey(projectCode), id, status)
}

func (s *dataSourceService) Delete(ctx context.Context, projectCode, id string) error {
	return s.repo.Delete(ctx, s.tenantKey(projectCode), id)
}
