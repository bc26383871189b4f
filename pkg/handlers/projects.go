package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hww/data-terminal/pkg/auth"
	"github.com/hww/data-terminal/pkg/models"
	"github.com/hww/data-terminal/pkg/services"
)

// ProjectHandler handles project lifecycle HTTP requests.
type ProjectHandler struct {
	projects services.ProjectService
	logger   *zap.Logger
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(projects services.ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, logger: logger}
}

// RegisterRoutes registers the project routes on the given mux.
func (h *ProjectHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/projects", authMiddleware.RequireAuth(h.Add))
	mux.HandleFunc("GET /api/projects", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/projects/{code}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT /api/projects/{code}", authMiddleware.RequireAuth(h.Edit))
	mux.HandleFunc("DELETE /api/projects/{code}", authMiddleware.RequireAuth(h.Delete))
}

// Add handles POST /api/projects. Registering a project provisions its
// tenant store before the response is written.
func (h *ProjectHandler) Add(w http.ResponseWriter, r *http.Request) {
	var project models.Project
	if err := DecodeJSON(r, &project); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	if err := h.projects.Add(r.Context(), &project); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, &project)
}

// List handles GET /api/projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	query := ParsePageQuery(r)
	projects, total, err := h.projects.List(r.Context(), query)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, PageData{Items: projects, Total: total, Page: query.Page, PageSize: query.PageSize})
}

// Get handles GET /api/projects/{code}.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, err := h.projects.Get(r.Context(), r.PathValue("code"))
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, project)
}

// Edit handles PUT /api/projects/{code}. The code in the path wins over
// any code in the body.
func (h *ProjectHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var project models.Project
	if err := DecodeJSON(r, &project); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	project.Code = r.PathValue("code")

	if err := h.projects.Edit(r.Context(), &project); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, &project)
}

// Delete handles DELETE /api/projects/{code}.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.projects.Delete(r.Context(), r.PathValue("code")); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, nil)
}
