package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"tracktalk/internal/models"
	"tracktalk/internal/shared"
)

// RecommendationRecord is one archived recommendation entry.
type RecommendationRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Rationale string    `json:"rationale,omitempty"`
	Utterance string    `json:"utterance"`
	CreatedAt time.Time `json:"created_at"`
}

// RecommendationRepository archives the entries surfaced in each turn.
type RecommendationRepository struct {
	db *sql.DB
}

// NewRecommendationRepository creates a new RecommendationRepository with the given database connection
func NewRecommendationRepository(db *sql.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// Archive stores every entry of a turn's result under the given session
func (r *RecommendationRepository) Archive(sessionID, utterance string, entries []models.RecommendationEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO recommendations (id, session_id, title, artist, rationale, utterance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	for _, e := range entries {
		_, err := tx.Exec(query, shared.GenerateID(), sessionID, e.Title, e.Artist, e.Rationale, utterance, now)
		if err != nil {
			return fmt.Errorf("failed to insert recommendation: %w", err)
		}
	}

	return tx.Commit()
}

// BySession returns the archived entries for one session, oldest first
func (r *RecommendationRepository) BySession(sessionID string) ([]RecommendationRecord, error) {
	query := `
		SELECT id, session_id, title, artist, rationale, utterance, created_at
		FROM recommendations
		WHERE session_id = ?
		ORDER BY created_at ASC, id ASC
	`

	return r.scanAll(r.db.Query(query, sessionID))
}

// Recent returns the newest archived entries across all sessions
func (r *RecommendationRepository) Recent(limit int) ([]RecommendationRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, session_id, title, artist, rationale, utterance, created_at
		FROM recommendations
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	return r.scanAll(r.db.Query(query, limit))
}

func (r *RecommendationRepository) scanAll(rows *sql.Rows, err error) ([]RecommendationRecord, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	var records []RecommendationRecord
	for rows.Next() {
		var rec RecommendationRecord
		var rationale sql.NullString
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Title, &rec.Artist, &rationale, &rec.Utterance, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		rec.Rationale = rationale.String
		records = append(records, rec)
	}

	return records, rows.Err()
}
