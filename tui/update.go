// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"strconv"

	bubblesKey "github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/koi-cli/koi/playback"
	"github.com/koi-cli/koi/watch"
)

// controllerUpdateMsg signals that the controller published a new snapshot.
type controllerUpdateMsg struct{}

// controllerDoneMsg signals that the controller reached a terminal state.
type controllerDoneMsg struct{}

// Init starts the spinner and subscribes to controller transitions.
func (b *statefulBubble) Init() tea.Cmd {
	return tea.Batch(b.spinnerC.Tick, b.waitForController())
}

// waitForController converts the controller's update and done channels into
// Bubble Tea messages. Re-issued after every received message.
func (b *statefulBubble) waitForController() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.controller.Updates():
			return controllerUpdateMsg{}
		case <-b.controller.Done():
			return controllerDoneMsg{}
		}
	}
}

func (b *statefulBubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case controllerUpdateMsg:
		snapshot := b.controller.Snapshot()
		if snapshot.Status == watch.StatusInvalid {
			b.raiseError(snapshot.Err)
			return b, nil
		}
		return b, b.waitForController()
	case controllerDoneMsg:
		snapshot := b.controller.Snapshot()
		if snapshot.Err != nil {
			b.raiseError(snapshot.Err)
		}
		return b, nil
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		b.helpC.Width = msg.Width
	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spinnerC, cmd = b.spinnerC.Update(msg)
		return b, cmd
	case tea.KeyMsg:
		switch {
		case bubblesKey.Matches(msg, b.keymap.forceQuit), bubblesKey.Matches(msg, b.keymap.quit):
			b.cancel()
			return b, tea.Quit
		case bubblesKey.Matches(msg, b.keymap.nextServer):
			b.controller.NextServer()
		case bubblesKey.Matches(msg, b.keymap.autoLevel):
			b.controller.SelectLevel(playback.LevelAuto)
		case bubblesKey.Matches(msg, b.keymap.selectLevel):
			if index, err := strconv.Atoi(msg.String()); err == nil {
				b.controller.SelectLevel(index - 1)
			}
		case bubblesKey.Matches(msg, b.keymap.cycleCaption):
			b.cycleCaption()
		case bubblesKey.Matches(msg, b.keymap.showHelp):
			b.helpC.ShowAll = !b.helpC.ShowAll
		}
	}

	return b, nil
}

// cycleCaption advances the showing caption track, wrapping around.
func (b *statefulBubble) cycleCaption() {
	session := b.controller.Session()
	if session == nil {
		return
	}

	captions := session.Captions()
	if len(captions) == 0 {
		return
	}

	next := session.ActiveCaption() + 1
	if next >= len(captions) {
		next = 0
	}
	session.SelectCaption(next)
}
