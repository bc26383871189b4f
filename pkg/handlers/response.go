package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hww/data-terminal/pkg/apperrors"
	"github.com/hww/data-terminal/pkg/engine"
	"github.com/hww/data-terminal/pkg/models"
)

// Response is the wire envelope every endpoint answers with.
type Response struct {
	Result  bool   `json:"result"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// PageData wraps a listing with its pagination echo.
type PageData struct {
	Items    any   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// WriteData writes a success envelope.
func WriteData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(Response{Result: true, Message: "ok", Data: data})
}

// WriteError maps a domain error to its HTTP status and writes a failure
// envelope. Unrecognized errors are reported as a bare internal error so
// storage details never reach the client.
func WriteError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	switch {
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrInvalidCredential):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, engine.ErrExecutionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrInvalidStateTransition),
		errors.Is(err, apperrors.ErrTenantNotProvisioned):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrEngineRejected),
		errors.Is(err, engine.ErrNetworkFailure),
		errors.Is(err, engine.ErrMalformedResponse):
		status = http.StatusBadGateway
	default:
		logger.Error("request failed", zap.Error(err))
		message = "internal error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Result: false, Message: message, Data: nil})
}

// DecodeJSON parses the request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apperrors.Validationf("invalid request body: %v", err)
	}
	return nil
}

// ParsePageQuery reads keyword/page/page_size query parameters. Absent or
// malformed numbers fall back to the defaults.
func ParsePageQuery(r *http.Request) models.PageQuery {
	q := models.PageQuery{Keyword: r.URL.Query().Get("keyword")}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		q.Page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil {
		q.PageSize = v
	}
	return q.Normalized()
}
