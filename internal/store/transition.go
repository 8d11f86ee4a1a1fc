package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Transition is one committed state change recorded against a session.
type Transition struct {
	ID          int64
	SessionID   string
	Version     uint64
	Cause       string
	Gesture     string
	FromStage   string
	ToStage     string
	ColorIndex  int
	Feedback    string
	Dialogue    string
	InputLocked bool
	CreatedAt   time.Time
}

// TransitionRepository provides access to recorded transitions.
type TransitionRepository struct {
	db *sql.DB
}

// Transitions returns the transition repository for this store.
func (s *Store) Transitions() *TransitionRepository {
	return &TransitionRepository{db: s.db}
}

// Append records a transition and rolls the owning session forward to its
// target stage. completed marks the session as having reached the end.
func (r *TransitionRepository) Append(t *Transition, completed bool) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO transitions (session_id, version, cause, gesture, from_stage, to_stage,
			color_index, feedback, dialogue, input_locked, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.SessionID, int64(t.Version), t.Cause, t.Gesture, t.FromStage, t.ToStage,
		t.ColorIndex, t.Feedback, t.Dialogue, t.InputLocked, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}

	t.ID, err = result.LastInsertId()
	if err != nil {
		return err
	}

	updated, err := tx.Exec(
		`UPDATE sessions
		 SET stage = ?, completed = MAX(completed, ?), transitions = transitions + 1, updated_at = ?
		 WHERE id = ?`,
		t.ToStage, completed, t.CreatedAt, t.SessionID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	rowsAffected, err := updated.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// ListBySession returns a session's transitions in the order they happened.
func (r *TransitionRepository) ListBySession(sessionID string) ([]*Transition, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, version, cause, gesture, from_stage, to_stage,
			color_index, feedback, dialogue, input_locked, created_at
		 FROM transitions WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transitions []*Transition
	for rows.Next() {
		t := &Transition{}
		var version int64
		var locked int
		err := rows.Scan(&t.ID, &t.SessionID, &version, &t.Cause, &t.Gesture, &t.FromStage, &t.ToStage,
			&t.ColorIndex, &t.Feedback, &t.Dialogue, &locked, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		t.Version = uint64(version)
		t.InputLocked = locked != 0
		transitions = append(transitions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return transitions, nil
}
