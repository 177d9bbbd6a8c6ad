// package services defines interfaces for the external providers the assistant consumes
//
// Spotify (listening data), OpenAI (chat completions)
package services

import (
	"context"

	"tracktalk/internal/models"
)

// MusicService defines the interface for a music data provider supplying
// listening history and library signals.
//
// Implementations classify provider-specific faults into shared sentinels
// before returning; callers never see a raw transport error type.
type MusicService interface {
	// Authenticate performs OAuth or API key authentication with the service.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// GetRecentTracks retrieves the user's recently played tracks, most recent first.
	GetRecentTracks(ctx context.Context, limit int) ([]models.Track, error)

	// GetTopArtists retrieves the user's top artists in rank order.
	GetTopArtists(ctx context.Context, limit int) ([]models.Artist, error)

	// GetPlaylists retrieves all playlists for the authenticated user.
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)

	// GetAudioFeatures retrieves audio feature vectors for the given track IDs.
	// Tracks without features are absent from the returned map.
	GetAudioFeatures(ctx context.Context, trackIDs []string) (map[string]models.FeatureVector, error)

	// SearchTrack searches for a track by title and artist, returning the best match.
	SearchTrack(ctx context.Context, title, artist string) (*models.Track, error)

	// CreatePlaylist creates a playlist with the given tracks and returns it.
	CreatePlaylist(ctx context.Context, name, description string, trackIDs []string) (*models.Playlist, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// LanguageModel defines the interface for a chat completion provider.
type LanguageModel interface {
	// Complete sends a prompt and returns the model's free-text reply.
	// Rate-limit and timeout faults are reported as shared.ErrProviderTransient.
	Complete(ctx context.Context, prompt string) (string, error)

	// Ping checks that the provider is reachable with the configured credentials.
	Ping(ctx context.Context) error

	// Name returns the name of the provider (e.g., "OpenAI")
	Name() string
}
