// package profile builds a compact taste summary from raw provider payloads.
package profile

import (
	"context"
	"fmt"
	"sort"

	"tracktalk/internal/models"
	"tracktalk/internal/services"
	"tracktalk/internal/shared"

	"github.com/charmbracelet/log"
)

// Aggregator normalizes provider data into a [models.TasteProfile].
type Aggregator struct {
	music  services.MusicService
	limit  int
	genres int
	logger *log.Logger
}

// Opts contains configuration options for creating an Aggregator.
type Opts struct {
	Music     services.MusicService
	Limit     int // recent tracks / top artists fetched per load (default 50)
	TopGenres int // genres retained in the profile (default 10)
	Logger    *log.Logger
}

// NewAggregator creates a new Aggregator with the provided options.
func NewAggregator(opts Opts) *Aggregator {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.TopGenres <= 0 {
		opts.TopGenres = 10
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Aggregator{
		music:  opts.Music,
		limit:  opts.Limit,
		genres: opts.TopGenres,
		logger: opts.Logger,
	}
}

// Load fetches provider data and builds a fresh TasteProfile.
//
// Any provider fault, and an entirely empty history, both surface as
// [shared.ErrDataUnavailable]; the caller degrades to a generic prompt
// rather than aborting the session.
func (a *Aggregator) Load(ctx context.Context) (*models.TasteProfile, error) {
	if a.music == nil {
		return nil, fmt.Errorf("%w: no music service configured", shared.ErrDataUnavailable)
	}

	recent, err := a.music.GetRecentTracks(ctx, a.limit)
	if err != nil {
		return nil, fmt.Errorf("%w: recent tracks: %v", shared.ErrDataUnavailable, err)
	}

	artists, err := a.music.GetTopArtists(ctx, a.limit)
	if err != nil {
		return nil, fmt.Errorf("%w: top artists: %v", shared.ErrDataUnavailable, err)
	}

	if len(recent) == 0 && len(artists) == 0 {
		return nil, fmt.Errorf("%w: provider returned no history", shared.ErrDataUnavailable)
	}

	deduped := Dedupe(recent)

	var features map[string]models.FeatureVector
	ids := make([]string, 0, len(deduped))
	for _, t := range deduped {
		if t.ID != "" {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) > 0 {
		// Feature lookup is best effort; tracks keep a nil marker on failure.
		features, err = a.music.GetAudioFeatures(ctx, ids)
		if err != nil {
			a.logger.Warn("audio features unavailable", "error", err)
			features = nil
		}
	}

	prof := &models.TasteProfile{
		Recent:   deduped,
		Artists:  artists,
		Genres:   TopGenres(artists, a.genres),
		Features: features,
	}

	a.logger.Info("taste profile loaded",
		"tracks", len(prof.Recent), "artists", len(prof.Artists), "genres", len(prof.Genres))

	return prof, nil
}

// Dedupe removes repeated tracks by normalized identity, preserving
// most-recent-first ordering of the input.
func Dedupe(tracks []models.Track) []models.Track {
	seen := make(map[string]bool, len(tracks))
	out := make([]models.Track, 0, len(tracks))

	for _, t := range tracks {
		key := t.Key()
		if t.ID != "" {
			key = t.ID
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}

	return out
}

// TopGenres computes the most frequent genre tags across the given artists.
//
// Ties break stably by first-seen order, so identical inputs always yield an
// identical profile.
func TopGenres(artists []models.Artist, n int) []string {
	counts := make(map[string]int)
	order := make(map[string]int)
	var names []string

	for _, artist := range artists {
		for _, g := range artist.Genres {
			if g == "" {
				continue
			}
			if _, ok := counts[g]; !ok {
				order[g] = len(names)
				names = append(names, g)
			}
			counts[g]++
		}
	}

	sort.SliceStable(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return order[names[i]] < order[names[j]]
	})

	if len(names) > n {
		names = names[:n]
	}
	return names
}
