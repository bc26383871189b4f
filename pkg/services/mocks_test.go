package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/hww/data-terminal/pkg/apperrors"
	"github.com/hww/data-terminal/pkg/engine"
	"github.com/hww/data-terminal/pkg/models"
	"github.com/hww/data-terminal/pkg/repositories"
)

// In-memory repository fakes. They key rows by tenant so tests exercise the
// same tenant-scoping the real repositories have.

type memProjectRepo struct {
	mu       sync.Mutex
	projects map[string]*models.Project
}

func newMemProjectRepo() *memProjectRepo {
	return &memProjectRepo{projects: make(map[string]*models.Project)}
}

func (m *memProjectRepo) Create(_ context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.Code]; ok {
		return fmt.Errorf("%w: project %s already exists", apperrors.ErrConflict, p.Code)
	}
	cp := *p
	m.projects[p.Code] = &cp
	return nil
}

func (m *memProjectRepo) Get(_ context.Context, code string) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[code]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProjectRepo) List(_ context.Context, q models.PageQuery) ([]*models.Project, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Project
	for _, p := range m.projects {
		cp := *p
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (m *memProjectRepo) ListByCreateStatus(_ context.Context, status models.CreateStatus) ([]*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Project
	for _, p := range m.projects {
		if p.CreateStatus == status {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memProjectRepo) Update(_ context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.Code]; !ok {
		return apperrors.ErrNotFound
	}
	cp := *p
	m.projects[p.Code] = &cp
	return nil
}

func (m *memProjectRepo) UpdateCreateStatus(_ context.Context, code string, status models.CreateStatus, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[code]
	if !ok {
		return apperrors.ErrNotFound
	}
	p.CreateStatus = status
	p.CreateMsg = msg
	return nil
}

func (m *memProjectRepo) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[code]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.projects, code)
	return nil
}

var _ repositories.ProjectRepository = (*memProjectRepo)(nil)

type memResourceRepo struct {
	mu        sync.Mutex
	resources map[string]*models.Resource
}

func newMemResourceRepo() *memResourceRepo {
	return &memResourceRepo{resources: make(map[string]*models.Resource)}
}

func scopedKey(tenantKey, id string) string { return tenantKey + "/" + id }

func (m *memResourceRepo) Create(_ context.Context, tenantKey string, r *models.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scopedKey(tenantKey, r.ID)
	if _, ok := m.resources[k]; ok {
		return fmt.Errorf("%w: resource %s already exists", apperrors.ErrConflict, r.ID)
	}
	cp := *r
	m.resources[k] = &cp
	return nil
}

func (m *memResourceRepo) Get(_ context.Context, tenantKey, id string) (*models.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resources[scopedKey(tenantKey, id)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memResourceRepo) List(_ context.Context, tenantKey string, q models.PageQuery) ([]*models.Resource, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Resource
	for k, r := range m.resources {
		if k == scopedKey(tenantKey, r.ID) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memResourceRepo) Update(_ context.Context, tenantKey string, r *models.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scopedKey(tenantKey, r.ID)
	if _, ok := m.resources[k]; !ok {
		return apperrors.ErrNotFound
	}
	cp := *r
	m.resources[k] = &cp
	return nil
}

func (m *memResourceRepo) Delete(_ context.Context, tenantKey, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scopedKey(tenantKey, id)
	if _, ok := m.resources[k]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.resources, k)
	return nil
}

var _ repositories.ResourceRepository = (*memResourceRepo)(nil)

type memDataSourceRepo struct {
	mu      sync.Mutex
	sources map[string]*models.DataSource
}

func newMemDataSourceRepo() *memDataSourceRepo {
	return &memDataSourceRepo{sources: make(map[string]*models.DataSource)}
}

func (m *memDataSourceRepo) Create(_ context.Context, tenantKey string, ds *models.DataSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scopedKey(tenantKey, ds.ID)
	if _, ok := m.sources[k]; ok {
		return fmt.Errorf("%w: datasource %s already exists", apperrors.ErrConflict, ds.ID)
	}
	cp := *ds
	m.sources[k] = &cp
	return nil
}

func (m *memDataSourceRepo) Get(_ context.Context, tenantKey, id string) (*models.DataSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ds, ok := m.sources[scopedKey(tenantKey, id)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *ds
	return &cp, nil
}

func (m *memDataSourceRepo) List(_ context.Context, tenantKey string, q models.PageQuery) ([]*models.DataSource, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.DataSource
	for k, ds := range m.sources {
		if k == scopedKey(tenantKey, ds.ID) {
			cp := *ds
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memDataSourceRepo) Update(_ context.Context, tenantKey string, ds *models.DataSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scopedKey(tenantKey, ds.ID)
	if _, ok := m.sources[k]; !ok {
		return apperrors.ErrNotFound
	}
	cp := *ds
	m.sources[k] = &cp
	return nil
}

func (m *memDataSourceRepo) UpdateConnectionStatus(_ context.Context, tenantKey, id string, status models.ConnectionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ds, ok := m.sources[scopedKey(tenantKey, id)]
	if !ok {
		return apperrors.ErrNotFound
	}
	ds.ConnectionStatus = status
	return nil
}

func (m *memDataSourceRepo) Delete(_ context.Context, tenantKey, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scopedKey(tenantKey, id)
	if _, ok := m.sources[k]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.sources, k)
	return nil
}

var _ repositories.DataSourceRepository = (*memDataSourceRepo)(nil)

type memTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*models.CollectTask
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: make(map[string]*models.CollectTask)}
}

func (m *memTaskRepo) Create(_ context.Context, tenantKey string, t *models.CollectTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scopedKey(tenantKey, t.ID)
	if _, ok := m.tasks[k]; ok {
		return fmt.Errorf("%w: collect task %s already exists", apperrors.ErrConflict, t.ID)
	}
	cp := *t
	m.tasks[k] = &cp
	return nil
}

func (m *memTaskRepo) Get(_ context.Context, tenantKey, id string) (*models.CollectTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[scopedKey(tenantKey, id)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTaskRepo) List(_ context.Context, tenantKey string, filter repositories.CollectTaskFilter) ([]*models.CollectTask, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.CollectTask
	for k, t := range m.tasks {
		if k != scopedKey(tenantKey, t.ID) {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		if filter.CollectType != "" && t.CollectType != filter.CollectType {
			continue
		}
		if filter.Stage != "" && t.Stage != filter.Stage {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (m *memTaskRepo) ListByStages(_ context.Context, tenantKey string, stages []models.TaskStage) ([]*models.CollectTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.CollectTask
	for k, t := range m.tasks {
		if k != scopedKey(tenantKey, t.ID) {
			continue
		}
		for _, s := range stages {
			if t.Stage == s {
				cp := *t
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (m *memTaskRepo) Update(_ context.Context, tenantKey string, t *models.CollectTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scopedKey(tenantKey, t.ID)
	if _, ok := m.tasks[k]; !ok {
		return apperrors.ErrNotFound
	}
	cp := *t
	m.tasks[k] = &cp
	return nil
}

func (m *memTaskRepo) Delete(_ context.Context, tenantKey, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scopedKey(tenantKey, id)
	if _, ok := m.tasks[k]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.tasks, k)
	return nil
}

var _ repositories.CollectTaskRepository = (*memTaskRepo)(nil)

// mockProvisioner records provision calls and can be scripted to fail.
type mockProvisioner struct {
	provisionErr error
	attachErr    error
	provisioned  []string
	attached     []string
}

func (m *mockProvisioner) Provision(_ context.Context, projectCode string) (string, error) {
	if m.provisionErr != nil {
		return "", m.provisionErr
	}
	m.provisioned = append(m.provisioned, projectCode)
	return "df_" + projectCode, nil
}

func (m *mockProvisioner) Attach(_ context.Context, projectCode string) (string, error) {
	if m.attachErr != nil {
		return "", m.attachErr
	}
	m.attached = append(m.attached, projectCode)
	return "df_" + projectCode, nil
}

// mockEngine scripts engine responses per call.
type mockEngine struct {
	submitResp *engine.SubmitResponse
	submitErr  error
	statusResp *engine.StatusResponse
	statusErr  error
	cancelErr  error

	submits []engine.SubmitRequest
	cancels []string
}

func (m *mockEngine) Submit(_ context.Context, req *engine.SubmitRequest) (*engine.SubmitResponse, error) {
	m.submits = append(m.submits, *req)
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return m.submitResp, nil
}

func (m *mockEngine) GetStatus(_ context.Context, executionID string) (*engine.StatusResponse, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return m.statusResp, nil
}

func (m *mockEngine) Cancel(_ context.Context, executionID string) error {
	m.cancels = append(m.cancels, executionID)
	return m.cancelErr
}

var _ EngineClient = (*mockEngine)(nil)
