package store

import (
	"database/sql"
	"time"
)

// Event is one fired scroll action.
type Event struct {
	ID        int64
	SessionID string
	Status    string
	Class     int
	Amount    int
	RunLength int
	// DispatchError holds the dispatcher failure, if any. The action still
	// counted against the rate limit.
	DispatchError string
	FiredAt       time.Time
}

// EventRepository reads and writes scroll events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Record inserts e and fills in its ID.
func (r *EventRepository) Record(e *Event) error {
	if e.FiredAt.IsZero() {
		e.FiredAt = time.Now()
	}

	result, err := r.db.Exec(
		`INSERT INTO scroll_events (session_id, status, class, amount, run_length, dispatch_error, fired_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Status, e.Class, e.Amount, e.RunLength, e.DispatchError, e.FiredAt.UTC(),
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id

	return nil
}

// ListRecent returns up to limit events, newest first. An empty sessionID
// lists across all sessions.
func (r *EventRepository) ListRecent(sessionID string, limit int) ([]*Event, error) {
	query := `SELECT id, session_id, status, class, amount, run_length, dispatch_error, fired_at
		 FROM scroll_events`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY fired_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Status, &e.Class, &e.Amount, &e.RunLength,
			&e.DispatchError, &e.FiredAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// CountBySession returns how many actions fired in a session.
func (r *EventRepository) CountBySession(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM scroll_events WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
