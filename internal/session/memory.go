// package session holds bounded conversation history and duplicate-suppression state for one running session.
package session

import (
	"tracktalk/internal/models"

	"github.com/google/uuid"
)

// DefaultMaxTurns bounds the conversation history before FIFO eviction.
const DefaultMaxTurns = 50

// Memory owns the ordered conversation turns and the accumulated exclusion
// set for a single session.
//
// The exclusion set only grows for the lifetime of the session; turns are
// evicted oldest first once the cap is exceeded, but evicting a turn never
// removes its tracks from the exclusion set. Memory is not safe for
// concurrent use; the orchestrator serializes all access.
type Memory struct {
	id       string
	turns    []models.ConversationTurn
	maxTurns int
	surfaced map[string]bool
}

// NewMemory creates an empty session memory with the given turn cap.
// A cap of zero or less falls back to [DefaultMaxTurns].
func NewMemory(maxTurns int) *Memory {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Memory{
		id:       uuid.New().String(),
		maxTurns: maxTurns,
		surfaced: make(map[string]bool),
	}
}

// ID returns the session identifier.
func (m *Memory) ID() string {
	return m.id
}

// RecordTurn appends a turn, evicting the oldest turns first once the cap is
// exceeded. The turn being recorded is never the one evicted.
func (m *Memory) RecordTurn(turn models.ConversationTurn) {
	m.turns = append(m.turns, turn)
	if excess := len(m.turns) - m.maxTurns; excess > 0 {
		m.turns = m.turns[excess:]
	}
}

// MarkSurfaced adds track keys to the exclusion set.
func (m *Memory) MarkSurfaced(trackIDs []string) {
	for _, id := range trackIDs {
		if id != "" {
			m.surfaced[id] = true
		}
	}
}

// ExclusionSet returns a read-only snapshot of the surfaced track keys.
func (m *Memory) ExclusionSet() map[string]bool {
	snapshot := make(map[string]bool, len(m.surfaced))
	for id := range m.surfaced {
		snapshot[id] = true
	}
	return snapshot
}

// Excluded reports whether a track key has already been surfaced.
func (m *Memory) Excluded(trackID string) bool {
	return m.surfaced[trackID]
}

// RecentContext returns the last window turns in insertion order, or fewer if
// the session is younger.
func (m *Memory) RecentContext(window int) []models.ConversationTurn {
	if window <= 0 || len(m.turns) == 0 {
		return nil
	}
	start := len(m.turns) - window
	if start < 0 {
		start = 0
	}

	out := make([]models.ConversationTurn, len(m.turns)-start)
	copy(out, m.turns[start:])
	return out
}

// Len returns the number of retained turns.
func (m *Memory) Len() int {
	return len(m.turns)
}

// SurfacedCount returns the size of the exclusion set.
func (m *Memory) SurfacedCount() int {
	return len(m.surfaced)
}
