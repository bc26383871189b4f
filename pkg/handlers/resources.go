package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hww/data-terminal/pkg/auth"
	"github.com/hww/data-terminal/pkg/models"
	"github.com/hww/data-terminal/pkg/services"
)

// ResourceHandler handles storage resource HTTP requests. Every request is
// scoped to the project named in the caller's token.
type ResourceHandler struct {
	resources services.ResourceService
	logger    *zap.Logger
}

// NewResourceHandler creates a new resource handler.
func NewResourceHandler(resources services.ResourceService, logger *zap.Logger) *ResourceHandler {
	return &ResourceHandler{resources: resources, logger: logger}
}

// RegisterRoutes registers the resource routes on the given mux.
func (h *ResourceHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/resources", authMiddleware.RequireAuth(h.Add))
	mux.HandleFunc("GET /api/resources", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/resources/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT /api/resources/{id}", authMiddleware.RequireAuth(h.Edit))
	mux.HandleFunc("DELETE /api/resources/{id}", authMiddleware.RequireAuth(h.Delete))
}

// Add handles POST /api/resources.
func (h *ResourceHandler) Add(w http.ResponseWriter, r *http.Request) {
	projectCode, err := auth.RequireProjectCode(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	var resource models.Resource
	if err := DecodeJSON(r, &resource); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	if err := h.resources.Add(r.Context(), projectCode, &resource); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, &resource)
}

// List handles GET /api/resources.
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	projectCode, err := auth.RequireProjectCode(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	query := ParsePageQuery(r)
	resources, total, err := h.resources.List(r.Context(), projectCode, query)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, PageData{Items: resources, Total: total, Page: query.Page, PageSize: query.PageSize})
}

// Get handles GET /api/resources/{id}.
func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectCode, err := auth.RequireProjectCode(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	resource, err := h.resources.Get(r.Context(), projectCode, r.PathValue("id"))
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, resource)
}

// Edit handles PUT /api/resources/{id}.
func (h *ResourceHandler) Edit(w http.ResponseWriter, r *http.Request) {
	projectCode, err := auth.RequireProjectCode(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	var resource models.Resource
	if err := DecodeJSON(r, &resource); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	resource.ID = r.PathValue("id")

	if err := h.resources.Edit(r.Context(), projectCode, &resource); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, &resource)
}

// Delete handles DELETE /api/resources/{id}.
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	projectCode, err := auth.RequireProjectCode(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	if err := h.resources.Delete(r.Context(), projectCode, r.PathValue("id")); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteData(w, nil)
}
