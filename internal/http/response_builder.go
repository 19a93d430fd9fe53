package http

import (
	"errors"
	"net/http"

	"litepay/internal/core"
	applog "litepay/internal/log"
	"litepay/internal/services"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps a service error to a status code. Rejections are
// the caller's fault and carry their message; anything else is logged and
// hidden.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrGroupNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrRejected):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrNoLookup):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(), "Request failed", err,
			applog.ComponentHTTP, r.Method+" "+r.URL.Path, nil)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
