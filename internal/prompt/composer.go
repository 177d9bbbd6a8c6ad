// package prompt turns a taste profile, session context, and user utterance into one bounded model prompt.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"tracktalk/internal/models"
)

// Composer assembles the structured prompt sent to the language model.
type Composer struct {
	window   int // conversation turns included for continuity
	maxChars int // composed prompt size cap
}

// Opts contains configuration options for creating a Composer.
type Opts struct {
	TurnWindow     int // default 6
	PromptMaxChars int // default 6000
}

// NewComposer creates a new Composer with the provided options.
func NewComposer(opts Opts) *Composer {
	if opts.TurnWindow <= 0 {
		opts.TurnWindow = 6
	}
	if opts.PromptMaxChars <= 0 {
		opts.PromptMaxChars = 6000
	}
	return &Composer{window: opts.TurnWindow, maxChars: opts.PromptMaxChars}
}

// Window returns the configured conversation window size.
func (c *Composer) Window() int {
	return c.window
}

// Compose builds the full prompt for one recommendation turn.
//
// Section order: instruction block, taste summary, do-not-recommend list,
// recent conversation, current request. The instruction block always states
// the exact quantity from the request, so an unspecified count can never
// default inside the model's own judgment. When the composed prompt exceeds
// the size cap, the taste summary and the oldest conversation turns are
// dropped first; the instruction block and current utterance never are.
func (c *Composer) Compose(profile *models.TasteProfile, turns []models.ConversationTurn, req models.RecommendationRequest) string {
	instruction := c.instructionBlock(req)
	taste := tasteSummary(profile)
	exclusions := exclusionBlock(req.Excluded)
	current := fmt.Sprintf("Current request: %s", req.Utterance)

	if len(turns) > c.window {
		turns = turns[len(turns)-c.window:]
	}

	assemble := func(taste string, turns []models.ConversationTurn) string {
		sections := []string{instruction}
		if taste != "" {
			sections = append(sections, taste)
		}
		if exclusions != "" {
			sections = append(sections, exclusions)
		}
		if block := conversationBlock(turns); block != "" {
			sections = append(sections, block)
		}
		sections = append(sections, current)
		return strings.Join(sections, "\n\n")
	}

	out := assemble(taste, turns)

	// Shed the taste summary first, then history oldest-first.
	if len(out) > c.maxChars && taste != "" {
		taste = ""
		out = assemble(taste, turns)
	}
	for len(out) > c.maxChars && len(turns) > 0 {
		turns = turns[1:]
		out = assemble(taste, turns)
	}

	return out
}

func (c *Composer) instructionBlock(req models.RecommendationRequest) string {
	var b strings.Builder

	noun := "songs"
	if req.Quantity == 1 {
		noun = "song"
	}
	fmt.Fprintf(&b, "Recommend exactly %d %s.\n", req.Quantity, noun)
	b.WriteString("Reply with a numbered list only, one entry per line, in the format:\n")
	b.WriteString("1. Title — Artist — one-line reason\n")
	b.WriteString("Do not add introductions, closing remarks, or duplicate entries.")

	if len(req.Hints) > 0 {
		fmt.Fprintf(&b, "\nThe listener is looking for something %s.", strings.Join(req.Hints, ", "))
	}

	return b.String()
}

// tasteSummary renders a compact view of the profile: top artists, derived
// genres, and a handful of representative recent tracks.
func tasteSummary(profile *models.TasteProfile) string {
	if profile.Empty() {
		return ""
	}

	var b strings.Builder
	b.WriteString("Listener profile:")

	if len(profile.Artists) > 0 {
		names := make([]string, 0, 10)
		for _, a := range profile.Artists {
			names = append(names, a.Name)
			if len(names) == 10 {
				break
			}
		}
		fmt.Fprintf(&b, "\nTop artists: %s", strings.Join(names, ", "))
	}

	if len(profile.Genres) > 0 {
		fmt.Fprintf(&b, "\nTop genres: %s", strings.Join(profile.Genres, ", "))
	}

	if len(profile.Recent) > 0 {
		samples := make([]string, 0, 8)
		for _, t := range profile.Recent {
			samples = append(samples, fmt.Sprintf("%s by %s", t.Title, t.Artist))
			if len(samples) == 8 {
				break
			}
		}
		fmt.Fprintf(&b, "\nRecently played: %s", strings.Join(samples, ", "))
	}

	return b.String()
}

func exclusionBlock(excluded map[string]bool) string {
	if len(excluded) == 0 {
		return ""
	}

	keys := make([]string, 0, len(excluded))
	for k := range excluded {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]string, 0, len(keys))
	for _, k := range keys {
		title, artist, ok := strings.Cut(k, "|")
		if ok && artist != "" {
			items = append(items, fmt.Sprintf("%s by %s", title, artist))
		} else {
			items = append(items, title)
		}
	}

	return "Do not recommend any of these, the listener already knows them:\n- " + strings.Join(items, "\n- ")
}

func conversationBlock(turns []models.ConversationTurn) string {
	if len(turns) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Previous conversation:")
	for _, turn := range turns {
		speaker := "User"
		if turn.Role == models.RoleAssistant {
			speaker = "Assistant"
		}
		content := turn.Content
		// Long assistant replies are trimmed; the structure matters, not the prose.
		if turn.Role == models.RoleAssistant && len(content) > 300 {
			content = content[:300] + "..."
		}
		fmt.Fprintf(&b, "\n%s: %s", speaker, content)
	}

	return b.String()
}
