package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hww/data-terminal/pkg/auth"
	"github.com/hww/data-terminal/pkg/models"
	"github.com/hww/data-terminal/pkg/services"
)

// DataSourceHandler handles data source HTTP requests, scoped to the
// project named in the caller's token.
type DataSourceHandler struct {
	datasources services.DataSourceService
	logger      *zap.Logger
}

// NewDataSourceHandler creates a new data source handler.
func NewDataSourceHandler(datasources services.DataSourceService, logger *zap.Logger) *DataSourceHandler {
	return &DataSourceHandler{datasources: datasources, logger: logger}
}

// RegisterRoutes registers the data source routes on the given mux.
func (h *DataSourceHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/datasources", authMiddleware.RequireAuth(h.Add))
	mux.HandleFunc("GET /api/datasources", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/datasources/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT /api/datasources/{id}", authMiddleware.RequireAuth(h.Edit))
	mux.HandleFunc("PUT /api/datasources/{id}/connection_status", authMiddleware.RequireAuth(h.MarkConnection))
	mux.HandleFunc("DELETE /api/datasources/{id}", authMiddleware.RequireAuth(h.Delete))
}

// Add handles POST /api/datasources.
func (h *DataSourceHandler) Add(w http.ResponseWriter, r *http.Request) {
	projectCode, err := auth.RequireProjectCode(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	var ds models.DataSource
	if err := DecodeJSON(r, &ds); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	if err := h.datasources.Add(r.Context(), projectCode, &ds); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, &ds)
}

// List handles GET /api/datasources.
func (h *DataSourceHandler) List(w http.ResponseWriter, r *http.Request) {
	projectCode, err := auth.RequireProjectCode(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	query := ParsePageQuery(r)
	sources, total, err := h.datasources.List(r.Context(), projectCode, query)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, PageData{Items: sources, Total: total, Page: query.Page, PageSize: query.PageSize})
}

// Get handles GET /api/datasources/{id}.
func (h *DataSourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectCode, err := auth.RequireProjectCode(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	ds, err := h.datasources.Get(r.Context(), projectCode, r.PathValue("id"))
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, ds)
}

// Edit handles PUT /api/datasources/{id}.
func (h *DataSourceHandler) Edit(w http.ResponseWriter, r *http.Request) {
	projectCode, err := auth.RequireProjectCode(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	var ds models.DataSource
	if err := DecodeJSON(r, &ds); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	ds.ID = r.PathValue("id")

	if err := h.datasources.Edit(r.Context(), projectCode, &ds); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, &ds)
}

// MarkConnection handles PUT /api/datasources/{id}/connection_status.
func (h *DataSourceHandler) MarkConnection(w http.ResponseWriter, r *http.Request) {
	projectCode, err := auth.RequireProjectCode(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	var body struct {
		ConnectionStatus models.ConnectionStatus `json:"connection_status"`
	}
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	if err := h.datasources.MarkConnection(r.Context(), projectCode, r.PathValue("id"), body.ConnectionStatus); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, nil)
}

// Delete handles DELETE /api/datasources/{id}.
func (h *DataSourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	projectCode, err := auth.RequireProjectCode(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	if err := h.datasources.Delete(r.Context(), projectCode, r.PathValue("id")); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, nil)
}
