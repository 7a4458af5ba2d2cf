package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/palmscroll/internal/store"
)

// SessionHandler handles /api/sessions and /api/sessions/{id}.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

type sessionResponse struct {
	ID           string  `json:"id"`
	ModelPath    string  `json:"model_path"`
	StableFrames int     `json:"stable_frames"`
	IntervalMs   int64   `json:"interval_ms"`
	Magnitude    int     `json:"magnitude"`
	Dispatch     string  `json:"dispatch"`
	Frames       int64   `json:"frames"`
	Events       int     `json:"events"`
	StartedAt    string  `json:"started_at"`
	EndedAt      *string `json:"ended_at"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

func toSessionResponse(s *store.Session, events int) sessionResponse {
	resp := sessionResponse{
		ID:           s.ID,
		ModelPath:    s.ModelPath,
		StableFrames: s.StableFrames,
		IntervalMs:   s.Interval.Milliseconds(),
		Magnitude:    s.Magnitude,
		Dispatch:     s.Dispatch,
		Frames:       s.Frames,
		Events:       events,
		StartedAt:    s.StartedAt.Format(time.RFC3339Nano),
	}
	if s.EndedAt != nil {
		ended := s.EndedAt.Format(time.RFC3339Nano)
		resp.EndedAt = &ended
	}
	return resp
}

// ServeHTTP routes between the collection and item endpoints.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	id = strings.TrimPrefix(id, "/")

	if id == "" {
		h.list(w, r)
		return
	}
	h.get(w, id)
}

func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		n, err := h.store.Events().CountBySession(s.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to count events")
			return
		}
		response.Sessions = append(response.Sessions, toSessionResponse(s, n))
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *SessionHandler) get(w http.ResponseWriter, id string) {
	sess, err := h.store.Sessions().Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	n, err := h.store.Events().CountBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count events")
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(sess, n))
}
