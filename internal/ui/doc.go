// Package ui implements an interactive chat interface using bubbletea's Elm architecture.
//
// The TUI is a single-view chat loop: a scrollable transcript rendered in a
// [viewport.Model], a [textinput.Model] prompt line, and a [spinner.Model]
// shown while a turn is in flight. The [Model] implements bubbletea's
// standard Init/Update/View pattern; turn results and playlist creation
// outcomes arrive as typed messages produced by tea.Cmd closures.
//
// Keyboard bindings: enter sends the current line, ctrl+p saves the last
// recommendations to a Spotify playlist, ctrl+c or esc quits. Contextual help
// is displayed via charmbracelet/bubbles/help.
package ui
