package models

import (
	"encoding/json"
	"time"

	"github.com/hww/data-terminal/pkg/apperrors"
)

// ResourceCategory classifies a registered target system. The backend
// vocabulary is authoritative; the frontend's coarser names are mapped at
// the boundary, never stored.
type ResourceCategory string

const (
	CategoryRelationalDatabase ResourceCategory = "relational_database"
	CategoryTimeSeriesDatabase ResourceCategory = "time_series_database"
	CategoryDocumentDatabase   ResourceCategory = "document_database"
	CategoryVectorDatabase     ResourceCategory = "vector_database"
	CategoryGraphDatabase      ResourceCategory = "graph_database"
	CategoryKVDatabase         ResourceCategory = "kv_database"
	CategoryFilesystem         ResourceCategory = "filesystem"
	CategoryQueue              ResourceCategory = "queue"
	CategoryBatchCompute       ResourceCategory = "batch_compute"
	CategoryStreamCompute      ResourceCategory = "stream_compute"
)

// ResourceType names the concrete system behind a resource.
type ResourceType string

const (
	ResourceTypeMysql    ResourceType = "mysql"
	ResourceTypePostgres ResourceType = "postgres"
	ResourceTypeDoris    ResourceType = "doris"
	ResourceTypeHdfs     ResourceType = "hdfs"
	ResourceTypeKafka    ResourceType = "kafka"
	ResourceTypeSpark    ResourceType = "spark"
	ResourceTypeFlink    ResourceType = "flink"
	ResourceTypeMilvus   ResourceType = "milvus"
)

// ResourceStatus is the lifecycle status of a resource.
type ResourceStatus string

const (
	ResourceStatusActive   ResourceStatus = "active"
	ResourceStatusInactive ResourceStatus = "inactive"
)

// Resource is a registered target system owned by a project. Config is an
// opaque JSON document whose valid shape depends on category and type;
// shape checking happens at the service boundary, not here.
type Resource struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Category     ResourceCategory `json:"category"`
	ResourceType ResourceType     `json:"resource_type"`
	Config       json.RawMessage  `json:"config"`
	Status       ResourceStatus   `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Validate checks required fields and length bounds.
func (r *Resource) Validate() error {
	if r.ID == "" {
		return apperrors.Validationf("id is required")
	}
	if r.Name == "" {
		return apperrors.Validationf("name is required")
	}
	if len(r.Name) > 64 {
		return apperrors.Validationf("name length must be at most 64 characters")
	}
	if len(r.Description) > 255 {
		return apperrors.Validationf("description length must be at most 255 characters")
	}
	return nil
}

// ResourceInfo is the summary embedded in collection task projections.
type ResourceInfo struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ResourceType ResourceType `json:"resource_type"`
}

// Info returns the resource's summary projection.
func (r *Resource) Info() ResourceInfo {
	return ResourceInfo{ID: r.ID, Name: r.Name, ResourceType: r.ResourceType}
}
