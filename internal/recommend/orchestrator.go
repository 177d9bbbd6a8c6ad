// package recommend drives a single conversational turn from user utterance
// to structured recommendation result.
//
// Each turn moves through a fixed sequence of states. Session memory is
// written only when a turn reaches StateDone; a failed turn leaves the
// session exactly as it found it.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"tracktalk/internal/interpret"
	"tracktalk/internal/models"
	"tracktalk/internal/profile"
	"tracktalk/internal/prompt"
	"tracktalk/internal/services"
	"tracktalk/internal/session"
	"tracktalk/internal/shared"
)

// State tracks where the current turn is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateProfileLoaded
	StatePromptBuilt
	StateAwaitingModel
	StateInterpreting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProfileLoaded:
		return "profile_loaded"
	case StatePromptBuilt:
		return "prompt_built"
	case StateAwaitingModel:
		return "awaiting_model"
	case StateInterpreting:
		return "interpreting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	// DefaultRetries bounds model call attempts per turn.
	DefaultRetries = 3
	// DefaultMaxQuantity caps recommendations requested in one turn.
	DefaultMaxQuantity = 10

	retryBaseDelay = 500 * time.Millisecond

	// strictFormatReminder is appended on the single reformat retry after an
	// unparseable reply.
	strictFormatReminder = "\n\nYour previous reply could not be parsed. " +
		"Respond with ONLY a numbered list in the exact form " +
		"\"1. Title — Artist — one-line reason\", one entry per line, " +
		"with no prose before or after the list."
)

// Orchestrator owns one chat session: a cached taste profile, the session
// memory, and the pipeline that turns an utterance into a result.
type Orchestrator struct {
	model       services.LanguageModel
	aggregator  *profile.Aggregator
	composer    *prompt.Composer
	memory      *session.Memory
	limiter     *rate.Limiter
	retries     int
	maxQuantity int
	logger      *log.Logger

	profile  *models.TasteProfile
	degraded bool
	state    State
}

// Opts configures an Orchestrator. Model, Aggregator, Composer, and Memory
// are required; zero values elsewhere fall back to defaults.
type Opts struct {
	Model       services.LanguageModel
	Aggregator  *profile.Aggregator
	Composer    *prompt.Composer
	Memory      *session.Memory
	Limiter     *rate.Limiter
	Retries     int
	MaxQuantity int
	Logger      *log.Logger
}

func New(opts Opts) *Orchestrator {
	if opts.Retries <= 0 {
		opts.Retries = DefaultRetries
	}
	if opts.MaxQuantity <= 0 {
		opts.MaxQuantity = DefaultMaxQuantity
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Every(time.Second), 1)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Orchestrator{
		model:       opts.Model,
		aggregator:  opts.Aggregator,
		composer:    opts.Composer,
		memory:      opts.Memory,
		limiter:     opts.Limiter,
		retries:     opts.Retries,
		maxQuantity: opts.MaxQuantity,
		logger:      opts.Logger,
	}
}

// State reports the lifecycle state of the most recent turn.
func (o *Orchestrator) State() State { return o.state }

// Degraded reports whether the session is running without listening data.
func (o *Orchestrator) Degraded() bool { return o.degraded }

// Memory exposes the session memory for rendering history.
func (o *Orchestrator) Memory() *session.Memory { return o.memory }

// Respond runs one full turn. On success the user utterance and the
// assistant reply are appended to session memory and every returned entry is
// marked surfaced. On any error the memory is left untouched.
func (o *Orchestrator) Respond(ctx context.Context, utterance string) (*models.RecommendationResult, error) {
	o.state = StateIdle

	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		o.state = StateFailed
		return nil, fmt.Errorf("%w: empty utterance", shared.ErrInvalidInput)
	}

	req := prompt.ParseRequest(utterance, o.maxQuantity)
	req.Excluded = o.memory.ExclusionSet()

	if prompt.HasExclusionSignal(utterance) {
		// Prior suggestions are already in the exclusion set; this also
		// covers the turn in flight when the user rejects mid-session.
		for _, key := range o.lastSuggestionKeys() {
			req.Excluded[key] = true
		}
	}

	if err := o.loadProfile(ctx); err != nil {
		o.state = StateFailed
		return nil, err
	}
	o.state = StateProfileLoaded

	turns := o.memory.RecentContext(o.composer.Window())
	promptText := o.composer.Compose(o.profile, turns, req)
	o.state = StatePromptBuilt

	o.state = StateAwaitingModel
	reply, err := o.complete(ctx, promptText)
	if err != nil {
		o.state = StateFailed
		return nil, err
	}

	o.state = StateInterpreting
	result, err := interpret.Interpret(reply, req)
	if errors.Is(err, shared.ErrUnparseableResponse) {
		o.logger.Warn("unparseable model reply, retrying with strict format", "session", o.memory.ID())

		o.state = StateAwaitingModel
		reply, err = o.complete(ctx, promptText+strictFormatReminder)
		if err != nil {
			o.state = StateFailed
			return nil, err
		}

		o.state = StateInterpreting
		result, err = interpret.Interpret(reply, req)
	}
	if err != nil {
		o.state = StateFailed
		return nil, err
	}

	now := time.Now()
	o.memory.RecordTurn(models.ConversationTurn{
		Role:      models.RoleUser,
		Content:   utterance,
		Timestamp: now,
	})
	o.memory.RecordTurn(models.ConversationTurn{
		Role:      models.RoleAssistant,
		Content:   reply,
		Timestamp: now,
		TrackIDs:  result.TrackIDs(),
	})
	o.memory.MarkSurfaced(result.TrackIDs())

	o.state = StateDone
	return result, nil
}

// loadProfile fetches the taste profile once per session. A provider with no
// usable listening data drops the session into degraded mode instead of
// failing the turn.
func (o *Orchestrator) loadProfile(ctx context.Context) error {
	if o.profile != nil {
		return nil
	}

	p, err := o.aggregator.Load(ctx)
	switch {
	case err == nil:
		o.profile = p
	case errors.Is(err, shared.ErrDataUnavailable):
		o.logger.Warn("listening data unavailable, continuing with generic prompts", "err", err)
		o.profile = &models.TasteProfile{}
		o.degraded = true
	default:
		return err
	}

	return nil
}

// complete calls the language model with a bounded retry on transient
// provider errors. Attempts are spaced by the rate limiter plus exponential
// backoff.
func (o *Orchestrator) complete(ctx context.Context, promptText string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= o.retries; attempt++ {
		if err := o.limiter.Wait(ctx); err != nil {
			return "", err
		}

		reply, err := o.model.Complete(ctx, promptText)
		if err == nil {
			return reply, nil
		}
		if !errors.Is(err, shared.ErrProviderTransient) {
			return "", err
		}

		lastErr = err
		if attempt < o.retries {
			delay := retryBaseDelay * time.Duration(1<<(attempt-1))
			o.logger.Warn("transient provider error, backing off",
				"attempt", attempt, "delay", delay, "err", err)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	return "", fmt.Errorf("%w: %d attempts: %v", shared.ErrRetriesExhausted, o.retries, lastErr)
}

// lastSuggestionKeys returns the track keys from the most recent assistant
// turn within the context window.
func (o *Orchestrator) lastSuggestionKeys() []string {
	turns := o.memory.RecentContext(o.composer.Window())
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == models.RoleAssistant {
			return turns[i].TrackIDs
		}
	}
	return nil
}
