// package models defines provider-neutral domain types shared across the recommendation pipeline.
package models

import (
	"strings"
	"time"
)

// Track represents a music track from any provider.
type Track struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Artist   string    `json:"artist"`
	Album    string    `json:"album,omitempty"`
	PlayedAt time.Time `json:"played_at,omitempty"`
}

// Key returns the normalized identity used for deduplication and exclusion.
func (t Track) Key() string {
	return TrackKey(t.Title, t.Artist)
}

// TrackKey normalizes a title/artist pair into a case-insensitive identity.
func TrackKey(title, artist string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(artist))
}

// Artist represents a ranked top artist with its genre tags.
type Artist struct {
	Name   string   `json:"name"`
	Rank   int      `json:"rank"`
	Genres []string `json:"genres,omitempty"`
}

// Playlist represents a music playlist.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
	URL         string `json:"url,omitempty"`
}

// FeatureVector holds the audio features Spotify exposes per track.
type FeatureVector struct {
	Tempo        float64 `json:"tempo"`
	Energy       float64 `json:"energy"`
	Danceability float64 `json:"danceability"`
	Valence      float64 `json:"valence"`
}

// TasteProfile is a per-session snapshot of a user's listening signals.
//
// Built once from provider data at session load and read-only afterward.
// Features maps track ID to its audio features; tracks without a vector are
// present in Recent but absent from the map.
type TasteProfile struct {
	Recent   []Track                  `json:"recent"`
	Artists  []Artist                 `json:"artists"`
	Genres   []string                 `json:"genres"`
	Features map[string]FeatureVector `json:"features,omitempty"`
}

// Empty reports whether the profile carries no usable listening signals.
func (p *TasteProfile) Empty() bool {
	return p == nil || (len(p.Recent) == 0 && len(p.Artists) == 0)
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one utterance in the session, with the track keys it surfaced.
type ConversationTurn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	TrackIDs  []string  `json:"track_ids,omitempty"`
}

// RecommendationRequest is derived from a single user utterance.
type RecommendationRequest struct {
	Utterance string          `json:"utterance"`
	Quantity  int             `json:"quantity"`
	Hints     []string        `json:"hints,omitempty"`    // mood/genre/activity keywords, passed through verbatim
	Excluded  map[string]bool `json:"excluded,omitempty"` // track keys that must not be recommended
}

// RecommendationEntry is one parsed recommendation from the model reply.
type RecommendationEntry struct {
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Rationale string `json:"rationale,omitempty"`
}

// Key returns the normalized identity used for duplicate suppression.
func (e RecommendationEntry) Key() string {
	return TrackKey(e.Title, e.Artist)
}

// RecommendationResult is the structured outcome of one recommendation turn.
//
// Partial is set when fewer entries than requested survived parsing and
// exclusion checks; Shortfall carries the missing count. A partial result is
// surfaced to the user, never silently padded.
type RecommendationResult struct {
	Entries   []RecommendationEntry `json:"entries"`
	Requested int                   `json:"requested"`
	Partial   bool                  `json:"partial"`
	Shortfall int                   `json:"shortfall,omitempty"`
	Reason    string                `json:"reason,omitempty"`
}

// TrackIDs returns the exclusion keys for all entries in the result.
func (r *RecommendationResult) TrackIDs() []string {
	ids := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		ids = append(ids, e.Key())
	}
	return ids
}
