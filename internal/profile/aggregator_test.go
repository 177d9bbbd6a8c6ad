package profile

import (
	"context"
	"errors"
	"testing"

	"tracktalk/internal/models"
	"tracktalk/internal/shared"
)

// stubMusic implements services.MusicService with canned responses.
type stubMusic struct {
	tracks      []models.Track
	artists     []models.Artist
	features    map[string]models.FeatureVector
	tracksErr   error
	artistsErr  error
	featuresErr error
}

func (s *stubMusic) Authenticate(ctx context.Context, credentials map[string]string) error {
	return nil
}

func (s *stubMusic) GetRecentTracks(ctx context.Context, limit int) ([]models.Track, error) {
	return s.tracks, s.tracksErr
}

func (s *stubMusic) GetTopArtists(ctx context.Context, limit int) ([]models.Artist, error) {
	return s.artists, s.artistsErr
}

func (s *stubMusic) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	return nil, nil
}

func (s *stubMusic) GetAudioFeatures(ctx context.Context, trackIDs []string) (map[string]models.FeatureVector, error) {
	return s.features, s.featuresErr
}

func (s *stubMusic) SearchTrack(ctx context.Context, title, artist string) (*models.Track, error) {
	return nil, shared.ErrTrackNotFound
}

func (s *stubMusic) CreatePlaylist(ctx context.Context, name, description string, trackIDs []string) (*models.Playlist, error) {
	return nil, nil
}

func (s *stubMusic) Name() string { return "stub" }

func TestAggregator(t *testing.T) {
	ctx := context.Background()

	t.Run("Load", func(t *testing.T) {
		t.Run("Builds Profile", func(t *testing.T) {
			music := &stubMusic{
				tracks: []models.Track{
					{ID: "t1", Title: "Levels", Artist: "Avicii"},
					{ID: "t1", Title: "Levels", Artist: "Avicii"},
					{ID: "t2", Title: "Strobe", Artist: "deadmau5"},
				},
				artists: []models.Artist{
					{Name: "Avicii", Rank: 1, Genres: []string{"edm", "house"}},
					{Name: "deadmau5", Rank: 2, Genres: []string{"house"}},
				},
				features: map[string]models.FeatureVector{
					"t1": {Tempo: 126, Energy: 0.9},
				},
			}

			p, err := NewAggregator(Opts{Music: music}).Load(ctx)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(p.Recent) != 2 {
				t.Errorf("expected duplicates removed, got %d tracks", len(p.Recent))
			}
			if len(p.Artists) != 2 {
				t.Errorf("expected 2 artists, got %d", len(p.Artists))
			}
			if len(p.Genres) == 0 || p.Genres[0] != "house" {
				t.Errorf("expected 'house' as top genre, got %v", p.Genres)
			}
			if _, ok := p.Features["t1"]; !ok {
				t.Error("expected features for t1")
			}
		})

		t.Run("No Music Service", func(t *testing.T) {
			_, err := NewAggregator(Opts{}).Load(ctx)
			if !errors.Is(err, shared.ErrDataUnavailable) {
				t.Errorf("expected ErrDataUnavailable, got %v", err)
			}
		})

		t.Run("Provider Fault", func(t *testing.T) {
			music := &stubMusic{tracksErr: errors.New("boom")}
			_, err := NewAggregator(Opts{Music: music}).Load(ctx)
			if !errors.Is(err, shared.ErrDataUnavailable) {
				t.Errorf("expected ErrDataUnavailable, got %v", err)
			}
		})

		t.Run("Empty History", func(t *testing.T) {
			_, err := NewAggregator(Opts{Music: &stubMusic{}}).Load(ctx)
			if !errors.Is(err, shared.ErrDataUnavailable) {
				t.Errorf("expected ErrDataUnavailable for empty history, got %v", err)
			}
		})

		t.Run("Feature Failure Is Not Fatal", func(t *testing.T) {
			music := &stubMusic{
				tracks:      []models.Track{{ID: "t1", Title: "Levels", Artist: "Avicii"}},
				artists:     []models.Artist{{Name: "Avicii", Rank: 1}},
				featuresErr: errors.New("analysis endpoint gone"),
			}

			p, err := NewAggregator(Opts{Music: music}).Load(ctx)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if p.Features != nil {
				t.Error("expected nil features after lookup failure")
			}
		})
	})

	t.Run("Dedupe", func(t *testing.T) {
		t.Run("By ID", func(t *testing.T) {
			tracks := []models.Track{
				{ID: "t1", Title: "A", Artist: "X"},
				{ID: "t1", Title: "A", Artist: "X"},
			}
			if got := len(Dedupe(tracks)); got != 1 {
				t.Errorf("expected 1 track, got %d", got)
			}
		})

		t.Run("By Normalized Key Without ID", func(t *testing.T) {
			tracks := []models.Track{
				{Title: "Levels", Artist: "Avicii"},
				{Title: "  LEVELS ", Artist: "avicii"},
			}
			if got := len(Dedupe(tracks)); got != 1 {
				t.Errorf("expected 1 track, got %d", got)
			}
		})

		t.Run("Keeps Most Recent First", func(t *testing.T) {
			tracks := []models.Track{
				{ID: "t2", Title: "B", Artist: "Y"},
				{ID: "t1", Title: "A", Artist: "X"},
				{ID: "t2", Title: "B", Artist: "Y"},
			}
			out := Dedupe(tracks)
			if len(out) != 2 || out[0].ID != "t2" || out[1].ID != "t1" {
				t.Errorf("unexpected order: %+v", out)
			}
		})
	})

	t.Run("TopGenres", func(t *testing.T) {
		artists := []models.Artist{
			{Name: "A", Genres: []string{"edm", "house"}},
			{Name: "B", Genres: []string{"house", "techno"}},
			{Name: "C", Genres: []string{"house", "edm"}},
		}

		t.Run("Frequency Order", func(t *testing.T) {
			genres := TopGenres(artists, 10)
			if len(genres) != 3 {
				t.Fatalf("expected 3 genres, got %d", len(genres))
			}
			if genres[0] != "house" || genres[1] != "edm" {
				t.Errorf("unexpected order: %v", genres)
			}
		})

		t.Run("Ties Break By First Seen", func(t *testing.T) {
			tied := []models.Artist{{Name: "A", Genres: []string{"zeta", "alpha"}}}
			genres := TopGenres(tied, 10)
			if genres[0] != "zeta" || genres[1] != "alpha" {
				t.Errorf("tie should break by first-seen order, got %v", genres)
			}
		})

		t.Run("Limit Respected", func(t *testing.T) {
			if got := len(TopGenres(artists, 2)); got != 2 {
				t.Errorf("expected 2 genres, got %d", got)
			}
		})
	})
}
