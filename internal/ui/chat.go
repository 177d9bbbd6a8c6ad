package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"tracktalk/internal/models"
	"tracktalk/internal/recommend"
	"tracktalk/internal/services"
)

type turnCompleteMsg struct {
	result *models.RecommendationResult
	err    error
}

type playlistSavedMsg struct {
	playlist *models.Playlist
	missed   int
	err      error
}

// Model represents the chat TUI application state.
type Model struct {
	ctx          context.Context
	orchestrator *recommend.Orchestrator
	music        services.MusicService

	viewport   viewport.Model
	input      textinput.Model
	spin       spinner.Model
	help       help.Model
	keys       keyMap
	transcript []string
	lastResult *models.RecommendationResult
	waiting    bool
	saving     bool
	width      int
	height     int
	ready      bool
	err        error
}

// NewModel creates a chat model. music may be nil; playlist saving is then
// disabled.
func NewModel(ctx context.Context, orchestrator *recommend.Orchestrator, music services.MusicService) *Model {
	input := textinput.New()
	input.Placeholder = "Ask for music, e.g. \"recommend me 5 chill songs\""
	input.Focus()
	input.CharLimit = 500

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = styles.ok

	m := &Model{
		ctx:          ctx,
		orchestrator: orchestrator,
		music:        music,
		input:        input,
		spin:         spin,
		help:         help.New(),
		keys:         newKeyMap(),
	}

	greeting := "Tell me what you're in the mood for and I'll pull suggestions from your listening history."
	if orchestrator.Degraded() {
		greeting += "\n" + styles.warn.Render("Listening data is unavailable; suggestions will be generic.")
	}
	m.transcript = append(m.transcript, styles.title.Render("tracktalk"), greeting)

	return m
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := msg.Height - 5
		if vpHeight < 3 {
			vpHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.input.Width = msg.Width - 4
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m.submit()
		case "ctrl+p":
			return m.savePlaylist()
		}

	case spinner.TickMsg:
		if m.waiting || m.saving {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil

	case turnCompleteMsg:
		m.waiting = false
		if msg.err != nil {
			m.append(styles.err.Render(fmt.Sprintf("Sorry, that didn't work: %v", msg.err)))
			return m, nil
		}
		m.lastResult = msg.result
		m.append(renderResult(msg.result))
		return m, nil

	case playlistSavedMsg:
		m.saving = false
		if msg.err != nil {
			m.append(styles.err.Render(fmt.Sprintf("Playlist save failed: %v", msg.err)))
			return m, nil
		}
		line := styles.ok.Render(fmt.Sprintf("Saved playlist %q (%d tracks)", msg.playlist.Name, msg.playlist.TrackCount))
		if msg.missed > 0 {
			line += "\n" + styles.warn.Render(fmt.Sprintf("%d suggestion(s) could not be found on Spotify", msg.missed))
		}
		m.append(line)
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	status := ""
	switch {
	case m.waiting:
		status = m.spin.View() + " thinking..."
	case m.saving:
		status = m.spin.View() + " saving playlist..."
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s",
		m.viewport.View(),
		status,
		m.input.View(),
		m.help.ShortHelpView(m.keys.ShortHelp()),
	)
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	utterance := strings.TrimSpace(m.input.Value())
	if utterance == "" || m.waiting {
		return m, nil
	}

	m.input.Reset()
	m.append(styles.user.Render("you ") + utterance)
	m.waiting = true

	return m, tea.Batch(m.spin.Tick, m.respond(utterance))
}

func (m *Model) respond(utterance string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.orchestrator.Respond(m.ctx, utterance)
		return turnCompleteMsg{result: result, err: err}
	}
}

func (m *Model) savePlaylist() (tea.Model, tea.Cmd) {
	if m.lastResult == nil || len(m.lastResult.Entries) == 0 || m.saving {
		return m, nil
	}
	if m.music == nil {
		m.append(styles.warn.Render("Spotify is not connected; playlists are unavailable."))
		return m, nil
	}

	entries := m.lastResult.Entries
	m.saving = true

	return m, tea.Batch(m.spin.Tick, func() tea.Msg {
		playlist, missed, err := SaveRecommendations(m.ctx, m.music, entries)
		return playlistSavedMsg{playlist: playlist, missed: missed, err: err}
	})
}

func (m *Model) append(block string) {
	m.transcript = append(m.transcript, block)
	m.refreshTranscript()
}

func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.transcript, "\n\n"))
	m.viewport.GotoBottom()
}

// renderResult formats one turn's entries as a numbered list with rationale,
// plus a shortfall notice when the result is partial.
func renderResult(result *models.RecommendationResult) string {
	var b strings.Builder

	for i, e := range result.Entries {
		fmt.Fprintf(&b, "%d. %s %s\n",
			i+1,
			styles.track.Render(e.Title),
			styles.artist.Render("by "+e.Artist))
		if e.Rationale != "" {
			fmt.Fprintf(&b, "   %s\n", styles.reason.Render(e.Rationale))
		}
	}

	if result.Partial {
		fmt.Fprintf(&b, "\n%s", styles.warn.Render(
			fmt.Sprintf("Only %d of %d; %s.", len(result.Entries), result.Requested, result.Reason)))
	}

	return strings.TrimRight(b.String(), "\n")
}

// SaveRecommendations resolves entries to Spotify track IDs and creates a
// private dated playlist from the ones that matched. The number of entries
// with no match is returned alongside the playlist.
func SaveRecommendations(ctx context.Context, music services.MusicService, entries []models.RecommendationEntry) (*models.Playlist, int, error) {
	var trackIDs []string
	missed := 0

	for _, e := range entries {
		track, err := music.SearchTrack(ctx, e.Title, e.Artist)
		if err != nil {
			missed++
			continue
		}
		trackIDs = append(trackIDs, track.ID)
	}

	if len(trackIDs) == 0 {
		return nil, missed, fmt.Errorf("none of the recommendations could be found")
	}

	name := fmt.Sprintf("AI Recommendations - %s", time.Now().Format("2006-01-02"))
	playlist, err := music.CreatePlaylist(ctx, name, "Generated by tracktalk", trackIDs)
	if err != nil {
		return nil, missed, err
	}

	return playlist, missed, nil
}
