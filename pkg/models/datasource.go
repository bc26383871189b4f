package models

import (
	"encoding/json"
	"time"

	"github.com/hww/data-terminal/pkg/apperrors"
)

// DataSourceCategory classifies a registered source system.
type DataSourceCategory string

const (
	DataSourceCategoryDatabase DataSourceCategory = "database"
	DataSourceCategoryAPI      DataSourceCategory = "api"
)

// DataSourceType names the concrete system behind a datasource.
type DataSourceType string

const (
	DataSourceTypeMysql        DataSourceType = "mysql"
	DataSourceTypePostgres     DataSourceType = "postgres"
	DataSourceTypeQueryAPI     DataSourceType = "query_api"
	DataSourceTypeSubscribeAPI DataSourceType = "subscribe_api"
)

// ConnectionStatus is the last observed connectivity of a datasource.
type ConnectionStatus string

const (
	ConnectionStatusConnected    ConnectionStatus = "connected"
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
	ConnectionStatusError        ConnectionStatus = "error"
)

// DataSource is a registered source system, scoped to exactly one project.
// It is only ever addressed through its project's tenant store and is never
// visible across projects.
type DataSource struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Description      string             `json:"description"`
	Category         DataSourceCategory `json:"category"`
	DataSourceType   DataSourceType     `json:"datasource_type"`
	ConnectionConfig json.RawMessage    `json:"connection_config"`
	ConnectionStatus ConnectionStatus   `json:"connection_status"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Validate checks required fields and length bounds.
func (d *DataSource) Validate() error {
	if d.ID == "" {
		return apperrors.Validationf("id is required")
	}
	if d.Name == "" {
		return apperrors.Validationf("name is required")
	}
	if len(d.Name) > 64 {
		return apperrors.Validationf("name length must be at most 64 characters")
	}
	if len(d.Description) > 255 {
		return apperrors.Validationf("description length must be at most 255 characters")
	}
	return nil
}

// DataSourceInfo is the summary embedded in collection task projections.
type DataSourceInfo struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	DataSourceType DataSourceType `json:"datasource_type"`
}

// Info returns the datasource's summary projection.
func (d *DataSource) Info() DataSourceInfo {
	return DataSourceInfo{ID: d.ID, Name: d.Name, DataSourceType: d.DataSourceType}
}
