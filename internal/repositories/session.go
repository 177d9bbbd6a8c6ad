package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// SessionRecord is one archived chat session.
type SessionRecord struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	TurnCount int       `json:"turn_count"`
	Degraded  bool      `json:"degraded"`
}

// SessionRepository persists chat session records.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session record
func (r *SessionRepository) Create(rec SessionRecord) error {
	query := `
		INSERT INTO sessions (id, started_at, turn_count, degraded)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, rec.ID, rec.StartedAt, rec.TurnCount, rec.Degraded)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// Touch increments the turn counter and updates the degraded flag for a session
func (r *SessionRepository) Touch(id string, degraded bool) error {
	query := `
		UPDATE sessions SET turn_count = turn_count + 1, degraded = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query, degraded, id)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return nil
}

// Get retrieves a session record by ID
func (r *SessionRepository) Get(id string) (*SessionRecord, error) {
	query := `
		SELECT id, started_at, turn_count, degraded
		FROM sessions
		WHERE id = ?
	`

	var rec SessionRecord
	err := r.db.QueryRow(query, id).Scan(&rec.ID, &rec.StartedAt, &rec.TurnCount, &rec.Degraded)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &rec, nil
}

// List returns sessions newest first, up to limit (0 means no limit)
func (r *SessionRepository) List(limit int) ([]SessionRecord, error) {
	query := `
		SELECT id, started_at, turn_count, degraded
		FROM sessions
		ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(&rec.ID, &rec.StartedAt, &rec.TurnCount, &rec.Degraded); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Clear deletes all sessions and their recommendations
func (r *SessionRepository) Clear() error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM recommendations"); err != nil {
		return fmt.Errorf("failed to clear recommendations: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM sessions"); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}

	return tx.Commit()
}
