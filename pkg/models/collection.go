package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hww/data-terminal/pkg/apperrors"
)

// CollectionCategory classifies how a collection task gathers data.
type CollectionCategory string

const (
	CollectionCategoryDatabase CollectionCategory = "database"
	CollectionCategoryAPI      CollectionCategory = "api"
	CollectionCategoryCrawler  CollectionCategory = "crawler"
)

// CollectType distinguishes one-shot full collection from continuous
// incremental collection.
type CollectType string

const (
	CollectTypeFull        CollectType = "full"
	CollectTypeIncremental CollectType = "incremental"
)

// CollectTask is the unit of data movement: a declarative description of
// moving data from a datasource into a resource, owned exclusively by its
// project.
type CollectTask struct {
	ID           string             `json:"id"`
	Code         string             `json:"code"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Category     CollectionCategory `json:"category"`
	CollectType  CollectType        `json:"collect_type"`
	DataSourceID string             `json:"datasource_id"`
	ResourceID   string             `json:"resource_id"`
	Rule         CollectionRule     `json:"rule"`
	Stage        TaskStage          `json:"stage"`
	ExecutionID  string             `json:"execution_id,omitempty"`
	Message      string             `json:"message,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	AppliedAt    *time.Time         `json:"applied_at,omitempty"`
}

// Validate checks required fields and length bounds.
func (t *CollectTask) Validate() error {
	if t.ID == "" {
		return apperrors.Validationf("id is required")
	}
	if t.Name == "" {
		return apperrors.Validationf("name is required")
	}
	if len(t.Name) > 64 {
		return apperrors.Validationf("name length must be at most 64 characters")
	}
	if len(t.Description) > 255 {
		return apperrors.Validationf("description length must be at most 255 characters")
	}
	if t.DataSourceID == "" {
		return apperrors.Validationf("datasource_id is required")
	}
	if t.ResourceID == "" {
		return apperrors.Validationf("resource_id is required")
	}
	return nil
}

// CollectTaskView is the read projection embedding datasource and resource
// summaries for the web boundary.
type CollectTaskView struct {
	ID          string             `json:"id"`
	Code        string             `json:"code"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Category    CollectionCategory `json:"category"`
	CollectType CollectType        `json:"collect_type"`
	DataSource  DataSourceInfo     `json:"datasource"`
	Resource    ResourceInfo       `json:"resource"`
	Rule        CollectionRule     `json:"rule"`
	Stage       TaskStage          `json:"stage"`
	ExecutionID string             `json:"execution_id,omitempty"`
	Message     string             `json:"message,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	AppliedAt   *time.Time         `json:"applied_at,omitempty"`
}

// RuleType tags the collection rule variant.
type RuleType string

const (
	RuleFullDatabase        RuleType = "full_database"
	RuleFullAPI             RuleType = "full_api"
	RuleIncrementalDatabase RuleType = "incremental_database"
	RuleIncrementalAPI      RuleType = "incremental_api"
)

// CollectionRule is a tagged union over the four collection modes. Exactly
// one payload matches the Type tag; the JSON form carries the tag in a
// "type" field alongside the payload fields.
type CollectionRule struct {
	Type                RuleType
	FullDatabase        *FullDatabaseRule
	FullAPI             *FullAPIRule
	IncrementalDatabase *IncrementalDatabaseRule
	IncrementalAPI      *IncrementalAPIRule
}

// IsZero reports whether no rule has been configured.
func (r CollectionRule) IsZero() bool {
	return r.Type == ""
}

// MarshalJSON flattens the active payload and adds the "type" tag.
func (r CollectionRule) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}

	var payload any
	switch r.Type {
	case RuleFullDatabase:
		payload = r.FullDatabase
	case RuleFullAPI:
		payload = r.FullAPI
	case RuleIncrementalDatabase:
		payload = r.IncrementalDatabase
	case RuleIncrementalAPI:
		payload = r.IncrementalAPI
	default:
		return nil, fmt.Errorf("unknown rule type %q", r.Type)
	}
	if payload == nil {
		return nil, fmt.Errorf("rule type %q has no payload", r.Type)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["type"], _ = json.Marshal(r.Type)

	return json.Marshal(fields)
}

// UnmarshalJSON reads the "type" tag and decodes the matching payload.
func (r *CollectionRule) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = CollectionRule{}
		return nil
	}

	var tag struct {
		Type RuleType `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}

	rule := CollectionRule{Type: tag.Type}
	var err error
	switch tag.Type {
	case RuleFullDatabase:
		rule.FullDatabase = &FullDatabaseRule{}
		err = json.Unmarshal(data, rule.FullDatabase)
	case RuleFullAPI:
		rule.FullAPI = &FullAPIRule{}
		err = json.Unmarshal(data, rule.FullAPI)
	case RuleIncrementalDatabase:
		rule.IncrementalDatabase = &IncrementalDatabaseRule{}
		err = json.Unmarshal(data, rule.IncrementalDatabase)
	case RuleIncrementalAPI:
		rule.IncrementalAPI = &IncrementalAPIRule{}
		err = json.Unmarshal(data, rule.IncrementalAPI)
	default:
		return fmt.Errorf("unknown rule type %q", tag.Type)
	}
	if err != nil {
		return err
	}

	*r = rule
	return nil
}

// Validate enforces that the rule variant matches the task's collect type and
// category, and that the variant's own required configuration is present.
// Crawler tasks have no dedicated variant; any configured rule is accepted
// for them at this layer.
func (r CollectionRule) Validate(category CollectionCategory, collectType CollectType) error {
	if r.IsZero() {
		return apperrors.Validationf("rule is required")
	}

	switch {
	case category == CollectionCategoryDatabase && collectType == CollectTypeFull:
		if r.Type != RuleFullDatabase {
			return apperrors.Validationf("full database collection requires a full_database rule")
		}
		if len(r.FullDatabase.SelectedTables) == 0 {
			return apperrors.Validationf("must select at least one table")
		}
		for _, sel := range r.FullDatabase.SelectedTables {
			if sel.TableName == "" {
				return apperrors.Validationf("selected table name is required")
			}
		}

	case category == CollectionCategoryAPI && collectType == CollectTypeFull:
		if r.Type != RuleFullAPI {
			return apperrors.Validationf("full API collection requires a full_api rule")
		}
		sched := r.FullAPI.Schedule
		if sched.IntervalSeconds == nil && sched.CronExpression == nil {
			return apperrors.Validationf("schedule requires an interval or a cron expression")
		}

	case category == CollectionCategoryDatabase && collectType == CollectTypeIncremental:
		if r.Type != RuleIncrementalDatabase {
			return apperrors.Validationf("incremental database collection requires an incremental_database rule")
		}
		if len(r.IncrementalDatabase.CdcConfig.SourceTables) == 0 {
			return apperrors.Validationf("cdc config requires at least one source table")
		}
		if r.IncrementalDatabase.TopicConfig.TopicName == "" {
			return apperrors.Validationf("topic name is required")
		}

	case category == CollectionCategoryAPI && collectType == CollectTypeIncremental:
		if r.Type != RuleIncrementalAPI {
			return apperrors.Validationf("incremental API collection requires an incremental_api rule")
		}
		if r.IncrementalAPI.TopicConfig.TopicName == "" {
			return apperrors.Validationf("topic name is required")
		}
	}

	return nil
}

// TransformationSQL returns the user-supplied transformation statement, if
// the rule variant carries one.
func (r CollectionRule) TransformationSQL() string {
	if r.Type == RuleFullDatabase && r.FullDatabase != nil && r.FullDatabase.TransformationSQL != nil {
		return *r.FullDatabase.TransformationSQL
	}
	return ""
}

// ============================================================================
// Full collection - database
// ============================================================================

// FullDatabaseRule snapshots selected tables into a target schema.
type FullDatabaseRule struct {
	SelectedTables    []TableSelection `json:"selected_tables"`
	TransformationSQL *string          `json:"transformation_sql,omitempty"`
	TargetSchema      TableSchema      `json:"target_schema"`
}

// TableSelection names a source table and the fields to collect.
// An empty field list means all fields.
type TableSelection struct {
	TableName      string   `json:"table_name"`
	SelectedFields []string `json:"selected_fields"`
}

// TableSchema describes a target table layout.
type TableSchema struct {
	TableName string        `json:"table_name"`
	Fields    []FieldSchema `json:"fields"`
}

// FieldSchema describes one target column.
type FieldSchema struct {
	FieldName     string  `json:"field_name"`
	FieldType     string  `json:"field_type"` // SQL type (INT, VARCHAR, ...)
	Nullable      bool    `json:"nullable"`
	DefaultValue  *string `json:"default_value,omitempty"`
	PrimaryKey    bool    `json:"primary_key"`
	AutoIncrement bool    `json:"auto_increment"`
}

// ============================================================================
// Full collection - API
// ============================================================================

// FullAPIRule polls an API on a schedule and lands results in a table or file.
type FullAPIRule struct {
	Schedule           APIQuerySchedule      `json:"schedule"`
	CursorStrategy     *CursorUpdateStrategy `json:"cursor_strategy,omitempty"`
	TransformationJSON *string               `json:"transformation_json,omitempty"`
	Target             TargetConfig          `json:"target"`
}

// APIQuerySchedule sets either a simple interval or a cron expression,
// optionally bounded by a start and end time.
type APIQuerySchedule struct {
	IntervalSeconds *uint32    `json:"interval_seconds,omitempty"`
	CronExpression  *string    `json:"cron_expression,omitempty"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
}

// CursorType selects how the polling cursor advances.
type CursorType string

const (
	CursorTypeOffset    CursorType = "offset"
	CursorTypeTimestamp CursorType = "timestamp"
	CursorTypeToken     CursorType = "token"
)

// CursorUpdateStrategy tells the engine where to read the next cursor from.
type CursorUpdateStrategy struct {
	StrategyType CursorType `json:"strategy_type"`
	FieldPath    string     `json:"field_path"` // JSON path, e.g. "data.next_page_token"
}

// TargetType selects where collected API data lands.
type TargetType string

const (
	TargetTypeTable TargetType = "table"
	TargetTypeFile  TargetType = "file"
)

// FileFormat is the landing file format for file targets.
type FileFormat string

const (
	FileFormatJSON    FileFormat = "json"
	FileFormatCSV     FileFormat = "csv"
	FileFormatParquet FileFormat = "parquet"
)

// TargetConfig is a tagged union: table targets carry a schema, file targets
// a path and format.
type TargetConfig struct {
	TargetType TargetType   `json:"target_type"`
	TableName  string       `json:"table_name,omitempty"`
	Schema     *TableSchema `json:"schema,omitempty"`
	FilePath   string       `json:"file_path,omitempty"`
	FileFormat FileFormat   `json:"file_format,omitempty"`
}

// ============================================================================
// Incremental collection - database (CDC)
// ============================================================================

// IncrementalDatabaseRule streams change events into a topic.
type IncrementalDatabaseRule struct {
	CdcConfig              CdcConfig             `json:"cdc_config"`
	FilterRules            []FilterRule          `json:"filter_rules"`
	MessageTransformations []FieldTransformation `json:"message_transformations"`
	TopicConfig            TopicConfig           `json:"topic_config"`
}

// CdcOperation is a change-data-capture operation kind.
type CdcOperation string

const (
	CdcOperationInsert CdcOperation = "insert"
	CdcOperationUpdate CdcOperation = "update"
	CdcOperationDelete CdcOperation = "delete"
)

// SnapshotMode controls the initial snapshot behavior of a CDC stream.
type SnapshotMode string

const (
	SnapshotModeInitial SnapshotMode = "initial"
	SnapshotModeNever   SnapshotMode = "never"
	SnapshotModeAlways  SnapshotMode = "always"
)

// CdcConfig selects the tables and operations to capture.
type CdcConfig struct {
	SourceTables []string       `json:"source_tables"`
	Operations   []CdcOperation `json:"operations"`
	SnapshotMode SnapshotMode   `json:"snapshot_mode"`
}

// TopicConfig names the landing topic and its message schema.
type TopicConfig struct {
	TopicName     string        `json:"topic_name"`
	MessageSchema MessageSchema `json:"message_schema"`
}

// MessageSchema describes the message layout on a topic.
type MessageSchema struct {
	Fields []MessageField `json:"fields"`
}

// MessageField is one field of a topic message.
type MessageField struct {
	FieldName string `json:"field_name"`
	FieldType string `json:"field_type"` // "string", "number", "boolean", "object", "array"
	Required  bool   `json:"required"`
}

// ============================================================================
// Incremental collection - API (webhook)
// ============================================================================

// IncrementalAPIRule forwards webhook payloads into a topic.
type IncrementalAPIRule struct {
	FilterRules            []FilterRule          `json:"filter_rules"`
	MessageTransformations []FieldTransformation `json:"message_transformations"`
	TopicConfig            TopicConfig           `json:"topic_config"`
}

// FilterOperator is the comparison applied by a filter rule.
type FilterOperator string

const (
	FilterOpEquals         FilterOperator = "equals"
	FilterOpNotEquals      FilterOperator = "not_equals"
	FilterOpIn             FilterOperator = "in"
	FilterOpNotIn          FilterOperator = "not_in"
	FilterOpGreaterThan    FilterOperator = "greater_than"
	FilterOpLessThan       FilterOperator = "less_than"
	FilterOpGreaterOrEqual FilterOperator = "greater_or_equal"
	FilterOpLessOrEqual    FilterOperator = "less_or_equal"
	FilterOpContains       FilterOperator = "contains"
	FilterOpStartsWith     FilterOperator = "starts_with"
	FilterOpEndsWith       FilterOperator = "ends_with"
	FilterOpIsNull         FilterOperator = "is_null"
	FilterOpIsNotNull      FilterOperator = "is_not_null"
)

// FilterRule drops messages whose field fails the comparison.
type FilterRule struct {
	Field    string          `json:"field"`
	Operator FilterOperator  `json:"operator"`
	Value    json.RawMessage `json:"value"`
}

// TransformationType tags a field transformation.
type TransformationType string

const (
	TransformationAddField      TransformationType = "add_field"
	TransformationRenameField   TransformationType = "rename_field"
	TransformationComputedField TransformationType = "computed_field"
	TransformationRemoveField   TransformationType = "remove_field"
)

// FieldTransformation rewrites message fields before landing. The Type tag
// selects which of the optional fields apply.
type FieldTransformation struct {
	Type       TransformationType `json:"type"`
	Field      string             `json:"field,omitempty"`
	Value      string             `json:"value,omitempty"`
	From       string             `json:"from,omitempty"`
	To         string             `json:"to,omitempty"`
	Expression string             `json:"expression,omitempty"`
}
