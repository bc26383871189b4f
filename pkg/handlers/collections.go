package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hww/data-terminal/pkg/auth"
	"github.com/hww/data-terminal/pkg/models"
	"github.com/hww/data-terminal/pkg/repositories"
	"github.com/hww/data-terminal/pkg/services"
)

// CollectionHandler handles collection task HTTP requests, scoped to the
// project named in the caller's token.
type CollectionHandler struct {
	collections services.CollectionService
	logger      *zap.Logger
}

// NewCollectionHandler creates a new collection task handler.
func NewCollectionHandler(collections services.CollectionService, logger *zap.Logger) *CollectionHandler {
	return &CollectionHandler{collections: collections, logger: logger}
}

// RegisterRoutes registers the collection task routes on the given mux.
func (h *CollectionHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/collections", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /api/collections", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/collections/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT /api/collections/{id}", authMiddleware.RequireAuth(h.Update))
	mux.HandleFunc("POST /api/collections/{id}/rule", authMiddleware.RequireAuth(h.Save))
	mux.HandleFunc("POST /api/collections/{id}/apply", authMiddleware.RequireAuth(h.Apply))
	mux.HandleFunc("GET /api/collections/{id}/status", authMiddleware.RequireAuth(h.Refresh))
	mux.HandleFunc("POST /api/collections/{id}/cancel", authMiddleware.RequireAuth(h.Cancel))
	mux.HandleFunc("DELETE /api/collections/{id}", authMiddleware.RequireAuth(h.Delete))
	mux.HandleFunc("POST /api/collections/schema", authMiddleware.RequireAuth(h.GenerateSchema))
}

// Create handles POST /api/collections. New tasks start as drafts.
func (h *CollectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	projectCode, err := auth.RequireProjectCode(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	var task models.CollectTask
	if err := DecodeJSON(r, &task); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	if err := h.collections.Create(r.Context(), projectCode, &task); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, &task)
}

// List handles GET /api/collections with optional category and stage
// filters.
func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	projectCode, err := auth.RequireProjectCode(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	filter := repositories.CollectTaskFilter{
		PageQuery:   ParsePageQuery(r),
		Category:    models.CollectionCategory(r.URL.Query().Get("category")),
		CollectType: models.CollectType(r.URL.Query().Get("collect_type")),
		Stage:       models.TaskStage(r.URL.Query().Get("stage")),
	}

	views, total, err := h.collections.List(r.Context(), projectCode, filter)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, PageData{Items: views, Total: total, Page: filter.Page, PageSize: filter.PageSize})
}

// Get handles GET /api/collections/{id}.
func (h *CollectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectCode, err := auth.RequireProjectCode(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	view, err := h.collections.Get(r.Context(), projectCode, r.PathValue("id"))
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, view)
}

// Update handles PUT /api/collections/{id}. Only drafts accept edits.
func (h *CollectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	projectCode, err := auth.RequireProjectCode(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	var task models.CollectTask
	if err := DecodeJSON(r, &task); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	task.ID = r.PathValue("id")

	if err := h.collections.Update(r.Context(), projectCode, &task); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, &task)
}

// Save handles POST /api/collections/{id}/rule, attaching the rule and
// moving the draft to saved.
func (h *CollectionHandler) Save(w http.ResponseWriter, r *http.Request) {
	projectCode, err := auth.RequireProjectCode(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	var rule models.CollectionRule
	if err := DecodeJSON(r, &rule); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	task, err := h.collections.Save(r.Context(), projectCode, r.PathValue("id"), rule)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, task)
}

// Apply handles POST /api/collections/{id}/apply, submitting the task to
// the execution engine.
func (h *CollectionHandler) Apply(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.IdentityFromContext(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	task, err := h.collections.Apply(r.Context(), identity.ProjectCode, r.PathValue("id"), identity.Subject)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, task)
}

// Refresh handles GET /api/collections/{id}/status, reconciling the task
// with the engine before answering.
func (h *CollectionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	projectCode, err := auth.RequireProjectCode(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	task, err := h.collections.Refresh(r.Context(), projectCode, r.PathValue("id"))
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, task)
}

// Cancel handles POST /api/collections/{id}/cancel.
func (h *CollectionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	projectCode, err := auth.RequireProjectCode(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength > 0 {
		if err := DecodeJSON(r, &body); err != nil {
			WriteError(w, h.logger, err)
			return
		}
	}

	task, err := h.collections.Cancel(r.Context(), projectCode, r.PathValue("id"), body.Reason)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, task)
}

// Delete handles DELETE /api/collections/{id}.
func (h *CollectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	projectCode, err := auth.RequireProjectCode(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	if err := h.collections.Delete(r.Context(), projectCode, r.PathValue("id")); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, nil)
}

// GenerateSchema handles POST /api/collections/schema, proposing target
// table layouts for a set of source table selections.
func (h *CollectionHandler) GenerateSchema(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireProjectCode(r.Context()); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	var body struct {
		SelectedTables []models.TableSelection `json:"selected_tables"`
	}
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	schemas := make([]models.TableSchema, 0, len(body.SelectedTables))
	for _, sel := range body.SelectedTables {
		schemas = append(schemas, h.collections.GenerateTargetSchema(sel))
	}
	WriteData(w, schemas)
}
