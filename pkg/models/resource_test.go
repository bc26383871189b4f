package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hww/data-terminal/pkg/apperrors"
)

func TestResourceValidate(t *testing.T) {
	valid := Resource{
		ID:           "r-1",
		Name:         "warehouse",
		Category:     CategoryRelationalDatabase,
		ResourceType: ResourceTypeDoris,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Resource)
	}{
		{"empty id", func(r *Resource) { r.ID = "" }},
		{"empty name", func(r *Resource) { r.Name = "" }},
		{"name too long", func(r *Resource) { r.Name = strings.Repeat("x", 65) }},
		{"description too long", func(r *Resource) { r.Description = strings.Repeat("x", 256) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			assert.ErrorIs(t, r.Validate(), apperrors.ErrValidation)
		})
	}
}

func TestDataSourceValidate(t *testing.T) {
	valid := DataSource{
		ID:             "ds-1",
		Name:           "orders mysql",
		Category:       DataSourceCategoryDatabase,
		DataSourceType: DataSourceTypeMysql,
	}
	assert.NoError(t, valid.Validate())

	invalid := valid
	invalid.Name = strings.Repeat("n", 65)
	assert.ErrorIs(t, invalid.Validate(), apperrors.ErrValidation)
}

func TestProjectValidate(t *testing.T) {
	valid := Project{Code: "p1", Name: "Proj One"}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		project Project
	}{
		{"empty code", Project{Name: "n"}},
		{"empty name", Project{Code: "p1"}},
		{"uppercase code", Project{Code: "P1", Name: "n"}},
		{"code with dash", Project{Code: "p-1", Name: "n"}},
		{"code too long", Project{Code: strings.Repeat("p", 33), Name: "n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.project.Validate(), apperrors.ErrValidation)
		})
	}
}

func TestPageQueryNormalized(t *testing.T) {
	q := PageQuery{}.Normalized()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 10, q.PageSize)

	q = PageQuery{Page: 3, PageSize: 25}
	assert.Equal(t, 50, q.Offset())
	assert.Equal(t, 25, q.Limit())
}
