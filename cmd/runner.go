package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"tracktalk/internal/profile"
	"tracktalk/internal/prompt"
	"tracktalk/internal/recommend"
	"tracktalk/internal/repositories"
	"tracktalk/internal/services"
	"tracktalk/internal/session"
	"tracktalk/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	music      services.MusicService
	model      services.LanguageModel
	db         *sql.DB
	sessions   *repositories.SessionRepository
	archive    *repositories.RecommendationRepository
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Music      services.MusicService
	Model      services.LanguageModel
	DB         *sql.DB
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = "config.toml"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		music:      opts.Music,
		model:      opts.Model,
		db:         opts.DB,
		logger:     opts.Logger,
		output:     opts.Output,
	}

	if opts.DB != nil {
		r.sessions = repositories.NewSessionRepository(opts.DB)
		r.archive = repositories.NewRecommendationRepository(opts.DB)
	}

	return r
}

// SetLogger swaps the runner's logger, used when the TUI redirects logs to a file.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, chatCommand, tuiCommand, profileCommand, historyCommand, doctorCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// ensureSpotify applies the persisted token to the Spotify client and wires
// token refresh persistence. Returns ErrNotAuthenticated when no token has
// been saved yet.
func (r *Runner) ensureSpotify(ctx context.Context) error {
	if r.music == nil {
		return fmt.Errorf("%w: Spotify credentials not configured", shared.ErrMissingCredentials)
	}

	token := r.config.Credentials.Spotify.Token()
	if token == nil {
		return fmt.Errorf("%w: run `tracktalk auth login` first", shared.ErrNotAuthenticated)
	}

	if spotify, ok := r.music.(*services.SpotifyService); ok {
		spotify.SetTokenRefreshCallback(r.persistToken)
		return spotify.OAuthenticate(ctx, token)
	}

	return r.music.Authenticate(ctx, map[string]string{"access_token": token.AccessToken})
}

// persistToken writes refreshed tokens back to the config file so the next
// invocation does not need a new browser flow.
func (r *Runner) persistToken(token *oauth2.Token) {
	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		r.logger.Warn("failed to update token in config", "err", err)
		return
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		r.logger.Warn("failed to persist refreshed token", "err", err)
	}
}

// newOrchestrator assembles the per-session recommendation pipeline.
//
// A missing or unauthenticated Spotify connection is not fatal; the
// orchestrator runs in degraded mode with generic prompts.
func (r *Runner) newOrchestrator(ctx context.Context) (*recommend.Orchestrator, error) {
	if r.model == nil {
		return nil, fmt.Errorf("%w: OpenAI api_key not configured", shared.ErrMissingCredentials)
	}

	if err := r.ensureSpotify(ctx); err != nil {
		r.logger.Warn("continuing without Spotify", "err", err)
	}

	rec := r.config.Recommender

	aggregator := profile.NewAggregator(profile.Opts{
		Music:  r.music,
		Limit:  rec.ProfileLimit,
		Logger: r.logger,
	})
	composer := prompt.NewComposer(prompt.Opts{
		TurnWindow:     rec.TurnWindow,
		PromptMaxChars: rec.PromptMaxChars,
	})
	memory := session.NewMemory(rec.MaxTurns)

	return recommend.New(recommend.Opts{
		Model:       r.model,
		Aggregator:  aggregator,
		Composer:    composer,
		Memory:      memory,
		Limiter:     rate.NewLimiter(rate.Every(time.Second), 2),
		Retries:     rec.Retries,
		MaxQuantity: rec.MaxQuantity,
		Logger:      r.logger,
	}), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
