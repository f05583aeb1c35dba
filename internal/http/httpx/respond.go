// Package httpx holds the JSON response helpers shared by every handler, so
// the error taxonomy maps to status codes in one place.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/harborvet/vetpms/internal/apperr"
	"github.com/harborvet/vetpms/pkg/logging"
)

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// Error writes err as a structured JSON error response. Internal errors are
// logged with their cause but clients only see a generic message.
func Error(w http.ResponseWriter, logger *logging.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", "error", err)
	}
	JSON(w, status, errorBody{Error: apperr.Message(err)})
}
