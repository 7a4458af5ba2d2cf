package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session is one run of the frame loop.
type Session struct {
	ID           string
	ModelPath    string
	StableFrames int
	Interval     time.Duration
	Magnitude    int
	Dispatch     string
	Frames       int64
	StartedAt    time.Time
	EndedAt      *time.Time
}

// SessionRepository reads and writes sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts sess, assigning an ID and start time when they are unset.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, model_path, stable_frames, interval_ms, magnitude, dispatch, frames, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.ModelPath, sess.StableFrames, sess.Interval.Milliseconds(), sess.Magnitude,
		sess.Dispatch, sess.Frames, sess.StartedAt.UTC(),
	)
	return err
}

// End stamps the session as finished after frames processed frames.
func (r *SessionRepository) End(id string, frames int64, endedAt time.Time) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET frames = ?, ended_at = ? WHERE id = ?`,
		frames, endedAt.UTC(), id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Get retrieves a session by ID.
func (r *SessionRepository) Get(id string) (*Session, error) {
	sess := &Session{}
	var intervalMs int64
	var endedAt sql.NullTime

	err := r.db.QueryRow(
		`SELECT id, model_path, stable_frames, interval_ms, magnitude, dispatch, frames, started_at, ended_at
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(&sess.ID, &sess.ModelPath, &sess.StableFrames, &intervalMs, &sess.Magnitude,
		&sess.Dispatch, &sess.Frames, &sess.StartedAt, &endedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	sess.Interval = time.Duration(intervalMs) * time.Millisecond
	if endedAt.Valid {
		t := endedAt.Time
		sess.EndedAt = &t
	}

	return sess, nil
}

// List returns the most recent sessions first, at most limit of them.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, model_path, stable_frames, interval_ms, magnitude, dispatch, frames, started_at, ended_at
		 FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		var intervalMs int64
		var endedAt sql.NullTime

		if err := rows.Scan(&sess.ID, &sess.ModelPath, &sess.StableFrames, &intervalMs, &sess.Magnitude,
			&sess.Dispatch, &sess.Frames, &sess.StartedAt, &endedAt); err != nil {
			return nil, err
		}

		sess.Interval = time.Duration(intervalMs) * time.Millisecond
		if endedAt.Valid {
			t := endedAt.Time
			sess.EndedAt = &t
		}
		sessions = append(sessions, sess)
	}

	return sessions, rows.Err()
}
