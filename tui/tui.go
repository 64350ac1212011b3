// Package tui provides the primary terminal user interface implementation.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/koi-cli/koi/watch"
)

// Options encapsulates the runtime configuration for the terminal user interface.
type Options struct {
	Query watch.Query
}

// Run initializes and executes the primary Bubble Tea application loop.
func Run(options *Options) error {
	bubble := newBubble(options)
	defer bubble.controller.Close()

	_, err := tea.NewProgram(bubble, tea.WithAltScreen()).Run()
	return err
}
