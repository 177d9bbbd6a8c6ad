package main

import (
	"bufio"
	"context"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"tracktalk/internal/models"
	"tracktalk/internal/repositories"
	"tracktalk/internal/ui"
)

var exitCommands = map[string]bool{
	"exit": true, "quit": true, "q": true, "bye": true, "goodbye": true,
}

// Chat runs the plain terminal chat loop.
//
// Each line of input is one conversational turn. Failed turns print an error
// and leave the session intact; exit words or EOF end the session. With
// --playlists, typing /save creates a Spotify playlist from the last turn's
// recommendations.
func (r *Runner) Chat(ctx context.Context, cmd *cli.Command) error {
	playlists := cmd.Bool("playlists")

	orchestrator, err := r.newOrchestrator(ctx)
	if err != nil {
		return err
	}

	sessionID := orchestrator.Memory().ID()
	if r.sessions != nil {
		if err := r.sessions.Create(repositories.SessionRecord{
			ID:        sessionID,
			StartedAt: time.Now().UTC(),
			Degraded:  orchestrator.Degraded(),
		}); err != nil {
			r.logger.Warn("failed to record session", "err", err)
		}
	}

	r.writePlainHeader("tracktalk")
	r.writePlain("Tell me what you're in the mood for. Type 'exit' to quit.\n")
	if playlists {
		r.writePlain("Type '/save' to turn the last recommendations into a playlist.\n")
	}
	if orchestrator.Degraded() {
		r.writePlain("⚠ Listening data is unavailable; suggestions will be generic.\n")
	}
	r.writePlain("\n")

	var lastResult *models.RecommendationResult
	scanner := bufio.NewScanner(os.Stdin)

	for {
		r.writePlain("you> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			break
		}
		if line == "/save" {
			r.saveLastResult(ctx, playlists, lastResult)
			continue
		}

		result, err := orchestrator.Respond(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.writePlain("✗ Sorry, that didn't work: %v\n\n", err)
			continue
		}

		lastResult = result
		r.renderResult(result)

		if r.sessions != nil && r.archive != nil {
			if err := r.archive.Archive(sessionID, line, result.Entries); err != nil {
				r.logger.Warn("failed to archive recommendations", "err", err)
			}
			if err := r.sessions.Touch(sessionID, orchestrator.Degraded()); err != nil {
				r.logger.Warn("failed to update session", "err", err)
			}
		}
	}

	r.writePlain("\nHappy listening!\n")
	return scanner.Err()
}

func (r *Runner) renderResult(result *models.RecommendationResult) {
	r.writePlain("\n")
	for i, e := range result.Entries {
		r.writePlain("%d. %s — %s\n", i+1, e.Title, e.Artist)
		if e.Rationale != "" {
			r.writePlain("   %s\n", e.Rationale)
		}
	}

	if result.Partial {
		r.writePlain("\n⚠ Only %d of %d: %s.\n", len(result.Entries), result.Requested, result.Reason)
	}
	r.writePlain("\n")
}

func (r *Runner) saveLastResult(ctx context.Context, enabled bool, result *models.RecommendationResult) {
	switch {
	case !enabled:
		r.writePlain("Playlist saving is disabled. Restart with --playlists.\n\n")
	case result == nil || len(result.Entries) == 0:
		r.writePlain("Nothing to save yet. Ask for some recommendations first.\n\n")
	case r.music == nil:
		r.writePlain("Spotify is not connected; playlists are unavailable.\n\n")
	default:
		playlist, missed, err := ui.SaveRecommendations(ctx, r.music, result.Entries)
		if err != nil {
			r.writePlain("✗ Playlist save failed: %v\n\n", err)
			return
		}
		r.writePlain("✓ Saved playlist %q (%d tracks)\n", playlist.Name, playlist.TrackCount)
		if missed > 0 {
			r.writePlain("⚠ %d suggestion(s) could not be found on Spotify\n", missed)
		}
		r.writePlain("\n")
	}
}
