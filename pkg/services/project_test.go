package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hww/data-terminal/pkg/apperrors"
	"github.com/hww/data-terminal/pkg/models"
)

func TestProjectAddProvisionsStore(t *testing.T) {
	repo := newMemProjectRepo()
	prov := &mockProvisioner{}
	svc := NewProjectService(repo, prov, zap.NewNop())

	project := &models.Project{
		Code: "p1",
		Name: "first project",
		// A client trying to smuggle in lifecycle state is ignored.
		CreateStatus: models.CreateStatusSuccess,
		CreateMsg:    "forged",
	}
	require.NoError(t, svc.Add(context.Background(), project))

	assert.Equal(t, []string{"p1"}, prov.provisioned)
	assert.Equal(t, models.CreateStatusSuccess, project.CreateStatus)

	stored, err := repo.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, models.CreateStatusSuccess, stored.CreateStatus)
	assert.Empty(t, stored.CreateMsg)
}

func TestProjectAddDuplicateCode(t *testing.T) {
	repo := newMemProjectRepo()
	svc := NewProjectService(repo, &mockProvisioner{}, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, &models.Project{Code: "p1", Name: "a"}))
	err := svc.Add(ctx, &models.Project{Code: "p1", Name: "b"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestProjectAddValidation(t *testing.T) {
	svc := NewProjectService(newMemProjectRepo(), &mockProvisioner{}, zap.NewNop())
	ctx := context.Background()

	assert.ErrorIs(t, svc.Add(ctx, &models.Project{Name: "no code"}), apperrors.ErrValidation)
	assert.ErrorIs(t, svc.Add(ctx, &models.Project{Code: "Bad-Code", Name: "x"}), apperrors.ErrValidation)
}

func TestProjectAddProvisionFailureRecorded(t *testing.T) {
	repo := newMemProjectRepo()
	prov := &mockProvisioner{provisionErr: errors.New("create database refused")}
	svc := NewProjectService(repo, prov, zap.NewNop())
	ctx := context.Background()

	err := svc.Add(ctx, &models.Project{Code: "p1", Name: "a"})
	require.Error(t, err)

	stored, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.CreateStatusFail, stored.CreateStatus)
	assert.Contains(t, stored.CreateMsg, "create database refused")
}

func TestProjectEditKeepsLifecycle(t *testing.T) {
	repo := newMemProjectRepo()
	svc := NewProjectService(repo, &mockProvisioner{}, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, &models.Project{Code: "p1", Name: "a"}))

	edited := &models.Project{Code: "p1", Name: "renamed", Description: "d", CreateStatus: models.CreateStatusFail}
	require.NoError(t, svc.Edit(ctx, edited))

	stored, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", stored.Name)
	assert.Equal(t, models.CreateStatusSuccess, stored.CreateStatus)
}

func TestProjectEditUnknownCode(t *testing.T) {
	svc := NewProjectService(newMemProjectRepo(), &mockProvisioner{}, zap.NewNop())

	err := svc.Edit(context.Background(), &models.Project{Code: "nope", Name: "x"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReattachStores(t *testing.T) {
	repo := newMemProjectRepo()
	prov := &mockProvisioner{}
	svc := NewProjectService(repo, prov, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Project{Code: "ok", Name: "a", CreateStatus: models.CreateStatusSuccess}))
	require.NoError(t, repo.Create(ctx, &models.Project{Code: "broken", Name: "b", CreateStatus: models.CreateStatusFail}))

	require.NoError(t, svc.ReattachStores(ctx))
	assert.Equal(t, []string{"ok"}, prov.attached)
}
