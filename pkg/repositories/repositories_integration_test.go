//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hww/data-terminal/pkg/apperrors"
	"github.com/hww/data-terminal/pkg/database"
	"github.com/hww/data-terminal/pkg/models"
	"github.com/hww/data-terminal/pkg/testhelpers"
)

func TestProjectRepositoryRoundTrip(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	registry := database.NewRegistry()
	testhelpers.NewConfigStore(t, tdb, registry, "cfg_project_rt")

	repo := NewProjectRepository(registry, zap.NewNop())
	ctx := context.Background()

	project := &models.Project{Code: "p1", Name: "first", Description: "d"}
	require.NoError(t, repo.Create(ctx, project))

	err := repo.Create(ctx, &models.Project{Code: "p1", Name: "dup"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name)

	require.NoError(t, repo.UpdateCreateStatus(ctx, "p1", models.CreateStatusSuccess, ""))
	succeeded, err := repo.ListByCreateStatus(ctx, models.CreateStatusSuccess)
	require.NoError(t, err)
	require.Len(t, succeeded, 1)

	projects, total, err := repo.List(ctx, models.PageQuery{Keyword: "fir"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, projects, 1)

	require.NoError(t, repo.Delete(ctx, "p1"))
	_, err = repo.Get(ctx, "p1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCollectTaskRepositoryTenantIsolation(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	registry := database.NewRegistry()
	testhelpers.NewTenantStore(t, tdb, registry, "df_iso_a")
	testhelpers.NewTenantStore(t, tdb, registry, "df_iso_b")

	repo := NewCollectTaskRepository(registry, zap.NewNop())
	ctx := context.Background()

	task := &models.CollectTask{
		ID:           "t-1",
		Code:         "c-1",
		Name:         "orders snapshot",
		Category:     models.CollectionCategoryDatabase,
		CollectType:  models.CollectTypeFull,
		DataSourceID: "ds-1",
		ResourceID:   "res-1",
		Stage:        models.StageDraft,
	}
	require.NoError(t, repo.Create(ctx, "df_iso_a", task))

	// The same id in the other tenant store is simply absent.
	_, err := repo.Get(ctx, "df_iso_b", "t-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := repo.Get(ctx, "df_iso_a", "t-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageDraft, got.Stage)
	assert.True(t, got.Rule.IsZero())

	// An unregistered tenant key is a hard error.
	_, err = repo.Get(ctx, "df_missing", "t-1")
	assert.ErrorIs(t, err, apperrors.ErrTenantNotProvisioned)
}

func TestCollectTaskRepositoryRulePersistence(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	registry := database.NewRegistry()
	testhelpers.NewTenantStore(t, tdb, registry, "df_rule_rt")

	repo := NewCollectTaskRepository(registry, zap.NewNop())
	ctx := context.Background()

	task := &models.CollectTask{
		ID:           "t-1",
		Code:         "c-1",
		Name:         "orders snapshot",
		Category:     models.CollectionCategoryDatabase,
		CollectType:  models.CollectTypeFull,
		DataSourceID: "ds-1",
		ResourceID:   "res-1",
		Stage:        models.StageDraft,
	}
	require.NoError(t, repo.Create(ctx, "df_rule_rt", task))

	task.Stage = models.StageSaved
	task.Rule = models.CollectionRule{
		Type: models.RuleFullDatabase,
		FullDatabase: &models.FullDatabaseRule{
			SelectedTables: []models.TableSelection{{TableName: "orders", SelectedFields: []string{"id"}}},
			TargetSchema:   models.TableSchema{TableName: "orders"},
		},
	}
	require.NoError(t, repo.Update(ctx, "df_rule_rt", task))

	got, err := repo.Get(ctx, "df_rule_rt", "t-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageSaved, got.Stage)
	require.NotNil(t, got.Rule.FullDatabase)
	assert.Equal(t, "orders", got.Rule.FullDatabase.SelectedTables[0].TableName)

	saved, err := repo.ListByStages(ctx, "df_rule_rt", []models.TaskStage{models.StageSaved})
	require.NoError(t, err)
	require.Len(t, saved, 1)

	tasks, total, err := repo.List(ctx, "df_rule_rt", CollectTaskFilter{Stage: models.StageSaved})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, tasks, 1)
}

func TestResourceAndDataSourceRepositories(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	registry := database.NewRegistry()
	testhelpers.NewTenantStore(t, tdb, registry, "df_res_rt")

	resources := NewResourceRepository(registry, zap.NewNop())
	sources := NewDataSourceRepository(registry, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, resources.Create(ctx, "df_res_rt", &models.Resource{
		ID: "res-1", Name: "warehouse", Category: models.CategoryRelationalDatabase,
		ResourceType: models.ResourceTypeDoris, Status: models.ResourceStatusActive,
	}))
	require.NoError(t, sources.Create(ctx, "df_res_rt", &models.DataSource{
		ID: "ds-1", Name: "orders", Category: models.DataSourceCategoryDatabase,
		DataSourceType: models.DataSourceTypeMysql, ConnectionStatus: models.ConnectionStatusDisconnected,
	}))

	require.NoError(t, sources.UpdateConnectionStatus(ctx, "df_res_rt", "ds-1", models.ConnectionStatusConnected))
	ds, err := sources.Get(ctx, "df_res_rt", "ds-1")
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusConnected, ds.ConnectionStatus)

	listed, total, err := resources.List(ctx, "df_res_rt", models.PageQuery{Keyword: "ware"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, listed, 1)
}
