package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"salesdash/internal/core"
	applog "salesdash/internal/log"
)

type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.Default(applog.ComponentHTTP).Warn("Failed to encode response", applog.FieldError, err)
	}
}

// writeError maps engine errors to status codes. Invalid arguments echo their
// message; anything else is logged and reported generically.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	switch {
	case core.IsInvalidArgument(err):
		writeJSON(w, http.StatusBadRequest, errorBody{Message: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Request timed out", err, applog.ComponentHTTP, op, nil)
		writeJSON(w, http.StatusGatewayTimeout, errorBody{Message: "request timed out"})
	default:
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Query failed", err, applog.ComponentHTTP, op, nil)
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: "internal server error"})
	}
}
