package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"tracktalk/internal/models"
	"tracktalk/internal/profile"
	"tracktalk/internal/shared"
)

// ProfileShow prints the aggregated taste profile.
func (r *Runner) ProfileShow(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	p, err := r.loadProfile(ctx)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(p, pretty)
	}

	r.writePlainHeader("Taste Profile")

	r.writePlain("\nTop artists:\n")
	for _, artist := range p.Artists {
		line := fmt.Sprintf("%2d. %s", artist.Rank, artist.Name)
		if len(artist.Genres) > 0 {
			line += fmt.Sprintf(" (%s)", strings.Join(artist.Genres, ", "))
		}
		r.writePlain("%s\n", line)
	}

	if len(p.Genres) > 0 {
		r.writePlain("\nGenres: %s\n", strings.Join(p.Genres, ", "))
	}

	r.writePlain("\nRecently played:\n")
	for i, track := range p.Recent {
		r.writePlain("%2d. %s — %s\n", i+1, track.Title, track.Artist)
	}

	if len(p.Features) > 0 {
		r.writePlain("\nAudio features for %d tracks\n", len(p.Features))
	}

	return nil
}

// ProfileExport writes the taste profile to a JSON file.
func (r *Runner) ProfileExport(ctx context.Context, cmd *cli.Command) error {
	output := cmd.String("output")

	p, err := r.loadProfile(ctx)
	if err != nil {
		return err
	}

	data, err := shared.MarshalJSON(p, true)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}

	r.writePlain("✓ Profile written to %s\n", output)
	return nil
}

func (r *Runner) loadProfile(ctx context.Context) (*models.TasteProfile, error) {
	if err := r.ensureSpotify(ctx); err != nil {
		return nil, err
	}

	aggregator := profile.NewAggregator(profile.Opts{
		Music:  r.music,
		Limit:  r.config.Recommender.ProfileLimit,
		Logger: r.logger,
	})

	return aggregator.Load(ctx)
}
