package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"tracktalk/internal/shared"
)

// HistoryList shows past sessions and the newest archived recommendations.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	if r.sessions == nil || r.archive == nil {
		return fmt.Errorf("%w: recommendation archive is not available", shared.ErrServiceUnavailable)
	}

	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")

	sessions, err := r.sessions.List(int(limit))
	if err != nil {
		return err
	}
	recent, err := r.archive.Recent(int(limit))
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(map[string]any{"sessions": sessions, "recent": recent}, true)
	}

	r.writePlainHeader("Sessions")
	if len(sessions) == 0 {
		r.writePlain("No sessions recorded yet.\n")
		return nil
	}

	for _, s := range sessions {
		line := fmt.Sprintf("%s  %s  %d turn(s)", s.ID, s.StartedAt.Format("2006-01-02 15:04"), s.TurnCount)
		if s.Degraded {
			line += "  (degraded)"
		}
		r.writePlain("%s\n", line)
	}

	r.writePlain("\nLatest recommendations:\n")
	for _, rec := range recent {
		r.writePlain("• %s — %s  [%s]\n", rec.Title, rec.Artist, rec.CreatedAt.Format("2006-01-02"))
	}

	return nil
}

// HistoryShow prints every archived recommendation from one session.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	if r.archive == nil {
		return fmt.Errorf("%w: recommendation archive is not available", shared.ErrServiceUnavailable)
	}

	sessionID := cmd.StringArg("session")
	if sessionID == "" {
		return fmt.Errorf("%w: session ID", shared.ErrMissingArgument)
	}

	records, err := r.archive.BySession(sessionID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(records, true)
	}

	if len(records) == 0 {
		r.writePlain("No recommendations recorded for session %s.\n", sessionID)
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Session %s", sessionID))
	for i, rec := range records {
		r.writePlain("%d. %s — %s\n", i+1, rec.Title, rec.Artist)
		if rec.Rationale != "" {
			r.writePlain("   %s\n", rec.Rationale)
		}
		r.writePlain("   asked: %q\n", rec.Utterance)
	}

	return nil
}

// HistoryClear deletes the entire archive.
func (r *Runner) HistoryClear(ctx context.Context, cmd *cli.Command) error {
	if r.sessions == nil {
		return fmt.Errorf("%w: recommendation archive is not available", shared.ErrServiceUnavailable)
	}

	if err := r.sessions.Clear(); err != nil {
		return err
	}

	r.writePlain("✓ Archive cleared\n")
	return nil
}
