package api

import (
	"net/http"
	"time"

	"github.com/ayusman/palmscroll/internal/store"
)

// EventHandler handles GET /api/events.
type EventHandler struct {
	store *store.Store
}

// NewEventHandler creates a new EventHandler with the given store.
func NewEventHandler(s *store.Store) *EventHandler {
	return &EventHandler{store: s}
}

type eventResponse struct {
	ID            int64  `json:"id"`
	SessionID     string `json:"session_id"`
	Status        string `json:"status"`
	Class         int    `json:"class"`
	Amount        int    `json:"amount"`
	RunLength     int    `json:"run_length"`
	DispatchError string `json:"dispatch_error,omitempty"`
	FiredAt       string `json:"fired_at"`
}

type listEventsResponse struct {
	Events []eventResponse `json:"events"`
}

func toEventResponse(e *store.Event) eventResponse {
	return eventResponse{
		ID:            e.ID,
		SessionID:     e.SessionID,
		Status:        e.Status,
		Class:         e.Class,
		Amount:        e.Amount,
		RunLength:     e.RunLength,
		DispatchError: e.DispatchError,
		FiredAt:       e.FiredAt.Format(time.RFC3339Nano),
	}
}

// ServeHTTP lists recent events, newest first. The session query
// parameter narrows the list to one session.
func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	events, err := h.store.Events().ListRecent(r.URL.Query().Get("session"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	response := listEventsResponse{
		Events: make([]eventResponse, 0, len(events)),
	}
	for _, e := range events {
		response.Events = append(response.Events, toEventResponse(e))
	}

	writeJSON(w, http.StatusOK, response)
}
