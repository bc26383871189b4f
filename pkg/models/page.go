package models

const (
	// DefaultPage is the first page when the caller leaves the page unset.
	DefaultPage = 1
	// DefaultPageSize is the page size when the caller leaves it unset.
	DefaultPageSize = 10
)

// PageQuery carries optional keyword filtering and paging for list operations.
type PageQuery struct {
	Keyword  string `json:"keyword,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
}

// Normalized returns a copy with defaults applied to unset page fields.
func (q PageQuery) Normalized() PageQuery {
	if q.Page <= 0 {
		q.Page = DefaultPage
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	return q
}

// Offset returns the row offset of the normalized query.
func (q PageQuery) Offset() int {
	n := q.Normalized()
	return (n.Page - 1) * n.PageSize
}

// Limit returns the row limit of the normalized query.
func (q PageQuery) Limit() int {
	return q.Normalized().PageSize
}
