// Package api serves the scroll journal over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// DefaultLimit is the page size when a request does not ask for one.
const DefaultLimit = 50

// MaxLimit caps the page size a client can ask for.
const MaxLimit = 500

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// parseLimit reads the limit query parameter. Missing means DefaultLimit,
// anything above MaxLimit is clamped.
func parseLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return DefaultLimit, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return min(n, MaxLimit), true
}
