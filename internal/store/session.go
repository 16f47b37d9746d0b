package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mukha/internal/threshold"
)

// MaxSessions is the number of sessions kept per profile.
const MaxSessions = 50

// Session is one session's adaptation snapshot.
type Session struct {
	ID        string
	ProfileID string
	StartedAt time.Time
	UpdatedAt time.Time
	Snapshot  threshold.UsageSnapshot
}

// SessionRepository stores the adaptation history.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Save inserts or replaces a session and prunes the profile's history to
// MaxSessions.
func (r *SessionRepository) Save(sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = sess.Snapshot.UsageStats.SessionStart
	}
	sess.UpdatedAt = time.Now()

	data, err := json.Marshal(sess.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO sessions (id, profile_id, started_at, updated_at, total_actions, accidental_activations, snapshot)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			total_actions = excluded.total_actions,
			accidental_activations = excluded.accidental_activations,
			snapshot = excluded.snapshot`,
		sess.ID, sess.ProfileID, sess.StartedAt, sess.UpdatedAt,
		sess.Snapshot.UsageStats.TotalActions, sess.Snapshot.UsageStats.AccidentalActivations,
		string(data),
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		`DELETE FROM sessions WHERE profile_id = ? AND id NOT IN (
			SELECT id FROM sessions WHERE profile_id = ? ORDER BY started_at DESC, updated_at DESC LIMIT ?
		)`,
		sess.ProfileID, sess.ProfileID, MaxSessions,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess, err := scanSession(r.db.QueryRow(
		`SELECT id, profile_id, started_at, updated_at, snapshot FROM sessions WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns the profile's sessions, oldest first.
func (r *SessionRepository) List(profileID string) ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, profile_id, started_at, updated_at, snapshot FROM sessions
		 WHERE profile_id = ? ORDER BY started_at ASC, updated_at ASC`,
		profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// History returns the profile's adaptation history, oldest first.
func (r *SessionRepository) History(profileID string) ([]threshold.UsageSnapshot, error) {
	sessions, err := r.List(profileID)
	if err != nil {
		return nil, err
	}
	history := make([]threshold.UsageSnapshot, len(sessions))
	for i, s := range sessions {
		history[i] = s.Snapshot
	}
	return history, nil
}

// DeleteAll removes the profile's adaptation history.
func (r *SessionRepository) DeleteAll(profileID string) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE profile_id = ?`, profileID)
	return err
}

func scanSession(row rowScanner) (*Session, error) {
	sess := &Session{}
	var data string
	if err := row.Scan(&sess.ID, &sess.ProfileID, &sess.StartedAt, &sess.UpdatedAt, &data); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &sess.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", sess.ID, err)
	}
	return sess, nil
}
