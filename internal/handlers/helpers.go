// File: internal/handlers/helpers.go
package handlers

import (
	"encoding/json"
	"net/http"

	consultation "github.com/lexserve/go-lexserve/internal/services/consultation"
)

// writeJSON is a helper for sending JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError is a helper for sending JSON error responses.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Unknown errors collapse to a generic 500 with no internal detail.
func writeServiceError(w http.ResponseWriter, err error) {
	ce, ok := err.(*consultation.ConsultError)
	if !ok {
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	switch ce.Type {
	case consultation.ErrTypeValidation:
		writeError(w, ce.Message, http.StatusBadRequest)
	case consultation.ErrTypeUnauthorized:
		writeError(w, "Forbidden", http.StatusForbidden)
	case consultation.ErrTypeNotFound:
		writeError(w, ce.Message, http.StatusNotFound)
	case consultation.ErrTypeDelivery:
		writeError(w, ce.Message, http.StatusServiceUnavailable)
	default:
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}
