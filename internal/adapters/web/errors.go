package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"bizbooks/internal/core"
)

type errorResponse struct {
	Error     string   `json:"error"`
	Code      string   `json:"code"`
	Fields    []string `json:"fields,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorFields(w, r, message, code, status, nil)
}

func writeErrorFields(w http.ResponseWriter, r *http.Request, message, code string, status int, fields []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		Fields:    fields,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Conflict responses carry the colliding field names so clients can highlight
// the offending inputs.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *core.ValidationError
	if errors.As(err, &validation) {
		writeError(w, r, validation.Error(), "VALIDATION", http.StatusBadRequest)
		return
	}
	var notFound *core.NotFoundError
	if errors.As(err, &notFound) {
		writeError(w, r, notFound.Error(), "NOT_FOUND", http.StatusNotFound)
		return
	}
	var conflict *core.ConflictError
	if errors.As(err, &conflict) {
		writeErrorFields(w, r, conflict.Error(), "CONFLICT", http.StatusConflict, conflict.Fields)
		return
	}
	var render *core.RenderError
	if errors.As(err, &render) {
		writeError(w, r, render.Error(), "RENDER_FAILED", http.StatusInternalServerError)
		return
	}
	if errors.Is(err, core.ErrForbidden) {
		writeError(w, r, "forbidden", "FORBIDDEN", http.StatusForbidden)
		return
	}
	if errors.Is(err, core.ErrIDExhausted) {
		writeError(w, r, err.Error(), "ID_EXHAUSTED", http.StatusServiceUnavailable)
		return
	}
	if errors.Is(err, core.ErrPrimaryUnavailable) {
		writeError(w, r, "primary store unavailable", "PRIMARY_UNAVAILABLE", http.StatusServiceUnavailable)
		return
	}
	writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
}
