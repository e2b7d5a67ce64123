package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session records one processing run.
type Session struct {
	ID        string
	Camera    int
	Width     int
	Height    int
	Frames    uint64
	StartedAt time.Time
	StoppedAt *time.Time
}

// SessionRepository records processing sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Start inserts a new running session.
func (r *SessionRepository) Start(sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	_, err := r.db.Exec(
		`INSERT INTO sessions (id, camera, width, height, frames, started_at)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		sess.ID, sess.Camera, sess.Width, sess.Height, sess.StartedAt,
	)
	return err
}

// Finish marks a session stopped with its final frame count and size.
func (r *SessionRepository) Finish(id string, frames uint64, width, height int) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET frames = ?, width = ?, height = ?, stopped_at = ? WHERE id = ?`,
		frames, width, height, time.Now(), id,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID returns one session.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	s := &Session{}
	var stopped sql.NullTime
	err := r.db.QueryRow(
		`SELECT id, camera, width, height, frames, started_at, stopped_at
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.Camera, &s.Width, &s.Height, &s.Frames, &s.StartedAt, &stopped)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if stopped.Valid {
		t := stopped.Time
		s.StoppedAt = &t
	}
	return s, nil
}

// Recent returns up to limit sessions, newest first.
func (r *SessionRepository) Recent(limit int) ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, camera, width, height, frames, started_at, stopped_at
		 FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s := &Session{}
		var stopped sql.NullTime
		if err := rows.Scan(&s.ID, &s.Camera, &s.Width, &s.Height, &s.Frames, &s.StartedAt, &stopped); err != nil {
			return nil, err
		}
		if stopped.Valid {
			t := stopped.Time
			s.StoppedAt = &t
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
