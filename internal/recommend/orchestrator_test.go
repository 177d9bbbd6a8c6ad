package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"tracktalk/internal/models"
	"tracktalk/internal/profile"
	"tracktalk/internal/prompt"
	"tracktalk/internal/session"
	"tracktalk/internal/shared"
)

// scriptedModel returns canned replies or errors in sequence, recording every
// prompt it receives.
type scriptedModel struct {
	replies []string
	errs    []error
	prompts []string
	calls   int
}

func (m *scriptedModel) Complete(ctx context.Context, promptText string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	i := m.calls
	m.calls++
	m.prompts = append(m.prompts, promptText)

	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.replies) {
		return m.replies[i], nil
	}
	return "", fmt.Errorf("script exhausted at call %d", i)
}

func (m *scriptedModel) Ping(ctx context.Context) error { return nil }
func (m *scriptedModel) Name() string                   { return "scripted" }

// stubMusic implements services.MusicService with canned listening data.
type stubMusic struct {
	tracks  []models.Track
	artists []models.Artist
	err     error
}

func (s *stubMusic) Authenticate(ctx context.Context, credentials map[string]string) error {
	return nil
}

func (s *stubMusic) GetRecentTracks(ctx context.Context, limit int) ([]models.Track, error) {
	return s.tracks, s.err
}

func (s *stubMusic) GetTopArtists(ctx context.Context, limit int) ([]models.Artist, error) {
	return s.artists, s.err
}

func (s *stubMusic) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	return nil, nil
}

func (s *stubMusic) GetAudioFeatures(ctx context.Context, trackIDs []string) (map[string]models.FeatureVector, error) {
	return nil, nil
}

func (s *stubMusic) SearchTrack(ctx context.Context, title, artist string) (*models.Track, error) {
	return nil, shared.ErrTrackNotFound
}

func (s *stubMusic) CreatePlaylist(ctx context.Context, name, description string, trackIDs []string) (*models.Playlist, error) {
	return nil, nil
}

func (s *stubMusic) Name() string { return "stub" }

func listeningHistory() *stubMusic {
	return &stubMusic{
		tracks: []models.Track{
			{ID: "t1", Title: "Levels", Artist: "Avicii"},
			{ID: "t2", Title: "Strobe", Artist: "deadmau5"},
		},
		artists: []models.Artist{
			{Name: "Avicii", Rank: 1, Genres: []string{"edm"}},
			{Name: "deadmau5", Rank: 2, Genres: []string{"progressive house"}},
		},
	}
}

func newTestOrchestrator(model *scriptedModel, music *stubMusic, retries int) *Orchestrator {
	return New(Opts{
		Model:      model,
		Aggregator: profile.NewAggregator(profile.Opts{Music: music}),
		Composer:   prompt.NewComposer(prompt.Opts{}),
		Memory:     session.NewMemory(0),
		Limiter:    rate.NewLimiter(rate.Inf, 1),
		Retries:    retries,
	})
}

func TestOrchestrator(t *testing.T) {
	ctx := context.Background()

	fiveSongs := `1. Wake Me Up — Avicii — anthemic vocal house
2. Ghosts 'n' Stuff — deadmau5 — dark electro house
3. Titanium — David Guetta — soaring vocals over a big drop
4. Clarity — Zedd — melodic festival EDM
5. Don't You Worry Child — Swedish House Mafia — euphoric closer`

	t.Run("Full Turn", func(t *testing.T) {
		model := &scriptedModel{replies: []string{fiveSongs}}
		o := newTestOrchestrator(model, listeningHistory(), 3)

		result, err := o.Respond(ctx, "recommend me 5 songs like Avicii")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if o.State() != StateDone {
			t.Errorf("expected StateDone, got %v", o.State())
		}
		if len(result.Entries) != 5 {
			t.Errorf("expected exactly 5 entries, got %d", len(result.Entries))
		}
		if result.Partial {
			t.Error("full result should not be partial")
		}

		if !strings.Contains(model.prompts[0], "Recommend exactly 5 songs.") {
			t.Error("prompt should carry the parsed quantity")
		}
		if !strings.Contains(model.prompts[0], "Top artists: Avicii, deadmau5") {
			t.Error("prompt should carry the taste summary")
		}

		if o.Memory().Len() != 2 {
			t.Errorf("expected user and assistant turns recorded, got %d", o.Memory().Len())
		}
		if o.Memory().SurfacedCount() != 5 {
			t.Errorf("expected 5 surfaced tracks, got %d", o.Memory().SurfacedCount())
		}
	})

	t.Run("Unspecified Quantity Defaults To One", func(t *testing.T) {
		model := &scriptedModel{replies: []string{"1. Wake Me Up — Avicii — fits your top artist"}}
		o := newTestOrchestrator(model, listeningHistory(), 3)

		result, err := o.Respond(ctx, "recommend me a song")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Requested != 1 || len(result.Entries) != 1 {
			t.Errorf("expected a single entry, got requested=%d entries=%d", result.Requested, len(result.Entries))
		}
		if !strings.Contains(model.prompts[0], "Recommend exactly 1 song.") {
			t.Error("prompt should pin the default quantity to 1")
		}
	})

	t.Run("Exclusions Accumulate Across Turns", func(t *testing.T) {
		model := &scriptedModel{replies: []string{
			"1. Wake Me Up — Avicii — fits",
			"1. Clarity — Zedd — fresh pick",
		}}
		o := newTestOrchestrator(model, listeningHistory(), 3)

		if _, err := o.Respond(ctx, "a song please"); err != nil {
			t.Fatalf("turn 1 failed: %v", err)
		}
		if _, err := o.Respond(ctx, "another one"); err != nil {
			t.Fatalf("turn 2 failed: %v", err)
		}

		if !strings.Contains(model.prompts[1], "wake me up by avicii") {
			t.Errorf("second prompt should exclude the first turn's pick:\n%s", model.prompts[1])
		}
		if !o.Memory().Excluded(models.TrackKey("Wake Me Up", "Avicii")) {
			t.Error("first pick should be in the exclusion set")
		}
		if !o.Memory().Excluded(models.TrackKey("Clarity", "Zedd")) {
			t.Error("second pick should be in the exclusion set")
		}
	})

	t.Run("Repeated Suggestion Dropped As Partial", func(t *testing.T) {
		model := &scriptedModel{replies: []string{
			"1. Wake Me Up — Avicii — fits",
			"1. Wake Me Up — Avicii — fits again",
		}}
		o := newTestOrchestrator(model, listeningHistory(), 3)

		if _, err := o.Respond(ctx, "a song please"); err != nil {
			t.Fatalf("turn 1 failed: %v", err)
		}

		result, err := o.Respond(ctx, "another one")
		if err != nil {
			t.Fatalf("turn 2 failed: %v", err)
		}
		if len(result.Entries) != 0 {
			t.Errorf("repeated pick should be dropped, got %d entries", len(result.Entries))
		}
		if !result.Partial || result.Shortfall != 1 {
			t.Errorf("expected partial with shortfall 1, got partial=%v shortfall=%d", result.Partial, result.Shortfall)
		}
	})

	t.Run("Transient Errors Retried", func(t *testing.T) {
		model := &scriptedModel{
			errs:    []error{shared.ErrProviderTransient, shared.ErrProviderTransient, nil},
			replies: []string{"", "", "1. Wake Me Up — Avicii — fits"},
		}
		o := newTestOrchestrator(model, listeningHistory(), 3)

		result, err := o.Respond(ctx, "one song")
		if err != nil {
			t.Fatalf("expected recovery on third attempt, got %v", err)
		}
		if model.calls != 3 {
			t.Errorf("expected 3 model calls, got %d", model.calls)
		}
		if len(result.Entries) != 1 {
			t.Errorf("expected 1 entry, got %d", len(result.Entries))
		}
	})

	t.Run("Retries Exhausted", func(t *testing.T) {
		model := &scriptedModel{
			errs: []error{shared.ErrProviderTransient, shared.ErrProviderTransient},
		}
		o := newTestOrchestrator(model, listeningHistory(), 2)

		_, err := o.Respond(ctx, "one song")
		if !errors.Is(err, shared.ErrRetriesExhausted) {
			t.Errorf("expected ErrRetriesExhausted, got %v", err)
		}
		if o.State() != StateFailed {
			t.Errorf("expected StateFailed, got %v", o.State())
		}
		if o.Memory().Len() != 0 {
			t.Error("failed turn must not touch session memory")
		}
	})

	t.Run("Non Transient Error Fails Immediately", func(t *testing.T) {
		model := &scriptedModel{errs: []error{shared.ErrAuthFailed}}
		o := newTestOrchestrator(model, listeningHistory(), 3)

		_, err := o.Respond(ctx, "one song")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if model.calls != 1 {
			t.Errorf("auth errors must not be retried, got %d calls", model.calls)
		}
	})

	t.Run("Unparseable Reply Gets One Strict Retry", func(t *testing.T) {
		model := &scriptedModel{replies: []string{
			"I'd love to help you discover new music!",
			"1. Wake Me Up — Avicii — fits",
		}}
		o := newTestOrchestrator(model, listeningHistory(), 3)

		result, err := o.Respond(ctx, "one song")
		if err != nil {
			t.Fatalf("expected strict retry to recover, got %v", err)
		}
		if model.calls != 2 {
			t.Fatalf("expected 2 model calls, got %d", model.calls)
		}
		if !strings.Contains(model.prompts[1], "could not be parsed") {
			t.Error("retry prompt should carry the strict format reminder")
		}
		if len(result.Entries) != 1 {
			t.Errorf("expected 1 entry, got %d", len(result.Entries))
		}
	})

	t.Run("Unparseable Twice Fails The Turn", func(t *testing.T) {
		model := &scriptedModel{replies: []string{"no list here", "still no list"}}
		o := newTestOrchestrator(model, listeningHistory(), 3)

		_, err := o.Respond(ctx, "one song")
		if !errors.Is(err, shared.ErrUnparseableResponse) {
			t.Errorf("expected ErrUnparseableResponse, got %v", err)
		}
		if model.calls != 2 {
			t.Errorf("expected exactly 2 model calls, got %d", model.calls)
		}
		if o.Memory().Len() != 0 {
			t.Error("failed turn must not touch session memory")
		}
	})

	t.Run("Degraded Mode Without Listening Data", func(t *testing.T) {
		model := &scriptedModel{replies: []string{"1. Wake Me Up — Avicii — popular pick"}}
		o := newTestOrchestrator(model, &stubMusic{}, 3)

		result, err := o.Respond(ctx, "one song")
		if err != nil {
			t.Fatalf("expected degraded turn to succeed, got %v", err)
		}
		if !o.Degraded() {
			t.Error("expected degraded mode")
		}
		if o.State() != StateDone {
			t.Errorf("degraded turn should still reach StateDone, got %v", o.State())
		}
		if strings.Contains(model.prompts[0], "Listener profile:") {
			t.Error("degraded prompt should not contain a taste summary")
		}
		if len(result.Entries) != 1 {
			t.Errorf("expected 1 entry, got %d", len(result.Entries))
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		model := &scriptedModel{replies: []string{fiveSongs}}
		o := newTestOrchestrator(model, listeningHistory(), 3)

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := o.Respond(cancelled, "one song")
		if err == nil {
			t.Fatal("expected an error from a cancelled context")
		}
		if o.State() != StateFailed {
			t.Errorf("expected StateFailed, got %v", o.State())
		}
		if o.Memory().Len() != 0 {
			t.Error("cancelled turn must not touch session memory")
		}
	})

	t.Run("Empty Utterance", func(t *testing.T) {
		model := &scriptedModel{}
		o := newTestOrchestrator(model, listeningHistory(), 3)

		_, err := o.Respond(ctx, "   ")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if model.calls != 0 {
			t.Error("empty utterance must not reach the model")
		}
	})

	t.Run("Repeating A Request Yields The Same Prompt Shape", func(t *testing.T) {
		model := &scriptedModel{replies: []string{
			"1. Wake Me Up — Avicii — fits",
			"1. Clarity — Zedd — fits",
		}}
		o := newTestOrchestrator(model, listeningHistory(), 3)

		if _, err := o.Respond(ctx, "recommend me 1 chill song"); err != nil {
			t.Fatalf("turn 1 failed: %v", err)
		}
		if _, err := o.Respond(ctx, "recommend me 1 chill song"); err != nil {
			t.Fatalf("turn 2 failed: %v", err)
		}

		for _, p := range model.prompts {
			if !strings.Contains(p, "Recommend exactly 1 song.") {
				t.Error("identical requests should state identical quantities")
			}
		}
	})
}
