package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/conduit-lang/fieldinfo/internal/entitytype"
	"github.com/conduit-lang/fieldinfo/internal/fieldmanager"
	"github.com/conduit-lang/fieldinfo/internal/web/middleware"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error  ErrorDetail `json:"error"`
	Status int         `json:"status"`
	Path   string      `json:"path,omitempty"`
	Method string      `json:"method,omitempty"`
}

// ErrorDetail contains detailed error information
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error codes
const (
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeEntityTypeNotFound = "ENTITY_TYPE_NOT_FOUND"
	CodeNotFieldable       = "ENTITY_TYPE_NOT_FIELDABLE"
	CodeFieldDefinition    = "FIELD_DEFINITION_ERROR"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
)

func (h *handler) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, r, http.StatusNotFound, ErrorDetail{
		Code:    CodeNotFound,
		Message: "The requested resource was not found",
	})
}

func (h *handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, r, http.StatusMethodNotAllowed, ErrorDetail{
		Code:    CodeMethodNotAllowed,
		Message: fmt.Sprintf("Method %s is not allowed for this resource", r.Method),
	})
}

// writeError maps an error returned by the field manager to a response.
// Unknown entity types are a client error; every other failure is logged.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := http.StatusInternalServerError, ErrorDetail{
		Code:    CodeInternal,
		Message: "An internal server error occurred",
	}

	var logicErr *fieldmanager.LogicError
	switch {
	case errors.Is(err, entitytype.ErrNotFound):
		status = http.StatusNotFound
		detail = ErrorDetail{Code: CodeEntityTypeNotFound, Message: err.Error()}
	case errors.Is(err, fieldmanager.ErrNotFieldable):
		status = http.StatusUnprocessableEntity
		detail = ErrorDetail{Code: CodeNotFieldable, Message: err.Error()}
	case errors.As(err, &logicErr):
		detail = ErrorDetail{
			Code:    CodeFieldDefinition,
			Message: err.Error(),
			Details: map[string]any{"entity_type": logicErr.EntityType},
		}
		if logicErr.Field != "" {
			detail.Details["field"] = logicErr.Field
		}
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		if h.showDetails && detail.Code == CodeInternal {
			detail.Details = map[string]any{"error": err.Error()}
		}
	}

	writeJSONError(w, r, status, detail)
}

func writeJSONError(w http.ResponseWriter, r *http.Request, status int, detail ErrorDetail) {
	writeJSON(w, status, ErrorResponse{
		Error:  detail,
		Status: status,
		Path:   r.URL.Path,
		Method: r.Method,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
