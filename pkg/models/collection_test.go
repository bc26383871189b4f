package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hww/data-terminal/pkg/apperrors"
)

func fullDatabaseRule(tables ...string) CollectionRule {
	selections := make([]TableSelection, 0, len(tables))
	for _, name := range tables {
		selections = append(selections, TableSelection{TableName: name})
	}
	return CollectionRule{
		Type: RuleFullDatabase,
		FullDatabase: &FullDatabaseRule{
			SelectedTables: selections,
			TargetSchema:   TableSchema{TableName: "target_" + tables[0]},
		},
	}
}

func incrementalDatabaseRule(topic string) CollectionRule {
	return CollectionRule{
		Type: RuleIncrementalDatabase,
		IncrementalDatabase: &IncrementalDatabaseRule{
			CdcConfig:   CdcConfig{SourceTables: []string{"orders"}, SnapshotMode: SnapshotModeInitial},
			TopicConfig: TopicConfig{TopicName: topic},
		},
	}
}

func TestRuleValidateVariantMatrix(t *testing.T) {
	interval := uint32(60)
	fullAPI := CollectionRule{
		Type: RuleFullAPI,
		FullAPI: &FullAPIRule{
			Schedule: APIQuerySchedule{IntervalSeconds: &interval},
			Target:   TargetConfig{TargetType: TargetTypeTable, TableName: "t"},
		},
	}
	incAPI := CollectionRule{
		Type: RuleIncrementalAPI,
		IncrementalAPI: &IncrementalAPIRule{
			TopicConfig: TopicConfig{TopicName: "events"},
		},
	}

	tests := []struct {
		name        string
		category    CollectionCategory
		collectType CollectType
		rule        CollectionRule
		wantErr     bool
	}{
		{"full database ok", CollectionCategoryDatabase, CollectTypeFull, fullDatabaseRule("t1"), false},
		{"full api ok", CollectionCategoryAPI, CollectTypeFull, fullAPI, false},
		{"incremental database ok", CollectionCategoryDatabase, CollectTypeIncremental, incrementalDatabaseRule("cdc"), false},
		{"incremental api ok", CollectionCategoryAPI, CollectTypeIncremental, incAPI, false},
		{"full database with api rule", CollectionCategoryDatabase, CollectTypeFull, fullAPI, true},
		{"full api with database rule", CollectionCategoryAPI, CollectTypeFull, fullDatabaseRule("t1"), true},
		{"incremental database with full rule", CollectionCategoryDatabase, CollectTypeIncremental, fullDatabaseRule("t1"), true},
		{"incremental api with cdc rule", CollectionCategoryAPI, CollectTypeIncremental, incrementalDatabaseRule("cdc"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate(tt.category, tt.collectType)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRuleValidatePayloadRequirements(t *testing.T) {
	t.Run("empty rule", func(t *testing.T) {
		err := CollectionRule{}.Validate(CollectionCategoryDatabase, CollectTypeFull)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("no tables selected", func(t *testing.T) {
		rule := CollectionRule{Type: RuleFullDatabase, FullDatabase: &FullDatabaseRule{}}
		err := rule.Validate(CollectionCategoryDatabase, CollectTypeFull)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		assert.Contains(t, err.Error(), "at least one table")
	})

	t.Run("schedule missing", func(t *testing.T) {
		rule := CollectionRule{Type: RuleFullAPI, FullAPI: &FullAPIRule{}}
		err := rule.Validate(CollectionCategoryAPI, CollectTypeFull)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("missing topic", func(t *testing.T) {
		err := incrementalDatabaseRule("").Validate(CollectionCategoryDatabase, CollectTypeIncremental)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		assert.Contains(t, err.Error(), "topic")
	})

	t.Run("crawler accepts any configured rule", func(t *testing.T) {
		err := fullDatabaseRule("pages").Validate(CollectionCategoryCrawler, CollectTypeFull)
		assert.NoError(t, err)
	})
}

func TestRuleJSONTaggedUnion(t *testing.T) {
	rule := fullDatabaseRule("t1")
	sql := "SELECT id, name FROM t1"
	rule.FullDatabase.TransformationSQL = &sql

	data, err := json.Marshal(rule)
	require.NoError(t, err)

	var tag struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(data, &tag))
	assert.Equal(t, "full_database", tag.Type)

	var decoded CollectionRule
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, RuleFullDatabase, decoded.Type)
	require.NotNil(t, decoded.FullDatabase)
	assert.Equal(t, "t1", decoded.FullDatabase.SelectedTables[0].TableName)
	assert.Equal(t, sql, decoded.TransformationSQL())
	assert.Nil(t, decoded.FullAPI)
}

func TestRuleJSONUnknownType(t *testing.T) {
	var rule CollectionRule
	err := json.Unmarshal([]byte(`{"type":"streaming_magic"}`), &rule)
	assert.Error(t, err)
}

func TestCollectTaskValidate(t *testing.T) {
	task := &CollectTask{
		ID:           "task-1",
		Name:         "orders snapshot",
		DataSourceID: "ds-1",
		ResourceID:   "r-1",
	}
	assert.NoError(t, task.Validate())

	missing := *task
	missing.DataSourceID = ""
	assert.ErrorIs(t, missing.Validate(), apperrors.ErrValidation)
}
