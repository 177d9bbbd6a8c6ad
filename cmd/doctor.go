package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"tracktalk/internal/services"
)

// Doctor checks configuration and connectivity to both providers.
//
// Always exits zero; each check reports pass or fail so the user can see
// every problem at once.
func (r *Runner) Doctor(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	r.writePlainHeader("tracktalk doctor")

	if _, err := os.Stat(configPath); err == nil {
		r.writePlain("✓ Config file found at %s\n", configPath)
	} else {
		r.writePlain("✗ Config file missing at %s (run: tracktalk setup)\n", configPath)
	}

	if r.model == nil {
		r.writePlain("✗ OpenAI: api_key not configured\n")
	} else if err := r.model.Ping(ctx); err != nil {
		r.writePlain("✗ OpenAI: %v\n", err)
	} else {
		r.writePlain("✓ OpenAI: reachable (%s)\n", r.config.Recommender.Model)
	}

	if r.music == nil {
		r.writePlain("✗ Spotify: client credentials not configured\n")
	} else if err := r.ensureSpotify(ctx); err != nil {
		r.writePlain("✗ Spotify: %v\n", err)
	} else if spotify, ok := r.music.(*services.SpotifyService); ok {
		if user, err := spotify.UserProfile(ctx); err != nil {
			r.writePlain("✗ Spotify: %v\n", err)
		} else {
			r.writePlain("✓ Spotify: connected as %s\n", user.DisplayName)
		}
	} else {
		r.writePlain("✓ Spotify: configured\n")
	}

	if r.db == nil {
		r.writePlain("✗ Archive: database unavailable\n")
	} else if err := r.db.PingContext(ctx); err != nil {
		r.writePlain("✗ Archive: %v\n", err)
	} else {
		r.writePlain("✓ Archive: %s\n", r.config.Database.Path)
	}

	return nil
}
