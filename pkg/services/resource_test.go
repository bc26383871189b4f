package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hww/data-terminal/pkg/apperrors"
	"github.com/hww/data-terminal/pkg/crypto"
	"github.com/hww/data-terminal/pkg/models"
)

func TestResourceAddDefaultsToActive(t *testing.T) {
	repo := newMemResourceRepo()
	svc := NewResourceService(repo, "df", zap.NewNop())
	ctx := context.Background()

	resource := &models.Resource{
		ID:           "res-1",
		Name:         "warehouse",
		Category:     models.CategoryRelationalDatabase,
		ResourceType: models.ResourceTypeDoris,
		Config:       json.RawMessage(`{"fe_hosts":["doris-fe:9030"]}`),
	}
	require.NoError(t, svc.Add(ctx, "p1", resource))
	assert.Equal(t, models.ResourceStatusActive, resource.Status)

	// Stored under the project's tenant, invisible to others.
	_, err := repo.Get(ctx, "df_p1", "res-1")
	require.NoError(t, err)
	_, err = repo.Get(ctx, "df_p2", "res-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestResourceEditPreservesStatus(t *testing.T) {
	repo := newMemResourceRepo()
	svc := NewResourceService(repo, "df", zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "p1", &models.Resource{
		ID: "res-1", Name: "warehouse", Category: models.CategoryRelationalDatabase,
		ResourceType: models.ResourceTypeDoris,
	}))
	require.NoError(t, repo.Update(ctx, "df_p1", &models.Resource{
		ID: "res-1", Name: "warehouse", Category: models.CategoryRelationalDatabase,
		ResourceType: models.ResourceTypeDoris, Status: models.ResourceStatusInactive,
	}))

	edited := &models.Resource{
		ID: "res-1", Name: "renamed", Category: models.CategoryRelationalDatabase,
		ResourceType: models.ResourceTypeDoris, Status: models.ResourceStatusActive,
	}
	require.NoError(t, svc.Edit(ctx, "p1", edited))

	stored, err := repo.Get(ctx, "df_p1", "res-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", stored.Name)
	assert.Equal(t, models.ResourceStatusInactive, stored.Status)
}

func TestResourceValidation(t *testing.T) {
	svc := NewResourceService(newMemResourceRepo(), "df", zap.NewNop())
	ctx := context.Background()

	assert.ErrorIs(t, svc.Add(ctx, "p1", &models.Resource{Name: "no id"}), apperrors.ErrValidation)
	assert.ErrorIs(t, svc.Add(ctx, "p1", &models.Resource{ID: "r"}), apperrors.ErrValidation)
}

func TestDataSourceAddDefaultsDisconnected(t *testing.T) {
	repo := newMemDataSourceRepo()
	svc := NewDataSourceService(repo, nil, "df", zap.NewNop())
	ctx := context.Background()

	ds := &models.DataSource{
		ID:             "ds-1",
		Name:           "orders mysql",
		Category:       models.DataSourceCategoryDatabase,
		DataSourceType: models.DataSourceTypeMysql,
	}
	require.NoError(t, svc.Add(ctx, "p1", ds))
	assert.Equal(t, models.ConnectionStatusDisconnected, ds.ConnectionStatus)
}

func TestDataSourceEditPreservesConnectionStatus(t *testing.T) {
	repo := newMemDataSourceRepo()
	svc := NewDataSourceService(repo, nil, "df", zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "p1", &models.DataSource{
		ID: "ds-1", Name: "orders", Category: models.DataSourceCategoryDatabase,
		DataSourceType: models.DataSourceTypeMysql,
	}))
	require.NoError(t, svc.MarkConnection(ctx, "p1", "ds-1", models.ConnectionStatusConnected))

	edited := &models.DataSource{
		ID: "ds-1", Name: "renamed", Category: models.DataSourceCategoryDatabase,
		DataSourceType: models.DataSourceTypeMysql, ConnectionStatus: models.ConnectionStatusError,
	}
	require.NoError(t, svc.Edit(ctx, "p1", edited))

	stored, err := repo.Get(ctx, "df_p1", "ds-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", stored.Name)
	assert.Equal(t, models.ConnectionStatusConnected, stored.ConnectionStatus)
}

func TestDataSourceConfigEncryptedAtRest(t *testing.T) {
	repo := newMemDataSourceRepo()
	enc, err := crypto.NewConnectionEncryptor("test key")
	require.NoError(t, err)
	svc := NewDataSourceService(repo, enc, "df", zap.NewNop())
	ctx := context.Background()

	config := json.RawMessage(`{"host":"db.internal","password":"hunter2"}`)
	ds := &models.DataSource{
		ID: "ds-1", Name: "orders", Category: models.DataSourceCategoryDatabase,
		DataSourceType: models.DataSourceTypeMysql, ConnectionConfig: config,
	}
	require.NoError(t, svc.Add(ctx, "p1", ds))

	// The caller keeps the plaintext; the stored row does not.
	assert.JSONEq(t, string(config), string(ds.ConnectionConfig))
	stored, err := repo.Get(ctx, "df_p1", "ds-1")
	require.NoError(t, err)
	assert.NotContains(t, string(stored.ConnectionConfig), "hunter2")

	// Reads decrypt transparently.
	got, err := svc.Get(ctx, "p1", "ds-1")
	require.NoError(t, err)
	assert.JSONEq(t, string(config), string(got.ConnectionConfig))
}
