// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wrap"

	"github.com/koi-cli/koi/color"
	"github.com/koi-cli/koi/playback"
	"github.com/koi-cli/koi/style"
	"github.com/koi-cli/koi/watch"
)

var paddingStyle = lipgloss.NewStyle().Padding(1, 2)

func (b *statefulBubble) View() string {
	switch b.state {
	case watchState:
		return b.viewWatch()
	case errorState:
		return b.viewError()
	default:
		return "Unknown state"
	}
}

func (b *statefulBubble) viewWatch() string {
	snapshot := b.controller.Snapshot()

	lines := []string{
		style.Title("Now Watching"),
		"",
		style.Fg(color.Purple)(b.options.Query.String()),
		"",
	}

	if snapshot.Status == watch.StatusPlaying {
		lines = append(lines, fmt.Sprintf("%s on %s", snapshot.Status, style.Fg(color.Green)(snapshot.Server)))
	} else {
		status := snapshot.Status.String()
		if snapshot.Server != "" {
			status += " (" + snapshot.Server + ")"
		}
		lines = append(lines, b.spinnerC.View()+" "+status)
	}

	if session := b.controller.Session(); session != nil {
		lines = append(lines, b.ladderLines(session)...)
		lines = append(lines, b.captionLines(session)...)
	}

	return b.renderLines(true, lines)
}

// ladderLines renders the quality ladder with the selected level marked.
// Rows are numbered so that row N maps onto level index N-1, matching the
// digit keys.
func (b *statefulBubble) ladderLines(session *playback.Session) []string {
	ladder := session.Ladder()
	if len(ladder) == 0 {
		return nil
	}

	selected := session.SelectedLevel()

	lines := []string{"", style.Bold("Quality")}

	auto := "  auto"
	if selected == playback.LevelAuto {
		auto = style.Fg(color.Green)("> auto")
	}
	lines = append(lines, "  a "+auto)

	for _, level := range ladder {
		if level.Index == playback.LevelAuto {
			continue
		}

		label := "  " + level.Label
		if level.Index == selected {
			label = style.Fg(color.Green)("> " + level.Label)
		}
		lines = append(lines, fmt.Sprintf("  %d %s", level.Index+1, label))
	}
	return lines
}

// captionLines renders the caption tracks with the single showing track marked.
func (b *statefulBubble) captionLines(session *playback.Session) []string {
	captions := session.Captions()
	if len(captions) == 0 {
		return nil
	}

	active := session.ActiveCaption()

	lines := []string{"", style.Bold("Captions")}
	for i, caption := range captions {
		label := caption.Label
		if label == "" {
			label = caption.URL
		}
		if i == active {
			lines = append(lines, "  "+style.Fg(color.Green)("> "+label))
		} else {
			lines = append(lines, "    "+style.Faint(label))
		}
	}
	return lines
}

func (b *statefulBubble) viewError() string {
	var message string
	if b.lastError != nil {
		message = b.lastError.Error()
	}

	body := style.Fg(color.Red)(message)
	if b.width > 0 {
		body = wrap.String(body, b.width)
	}

	return b.renderLines(
		true,
		[]string{
			style.ErrorTitle("Error"),
			"",
			body,
		},
	)
}

func (b *statefulBubble) renderLines(addHelp bool, lines []string) string {
	h := len(lines)
	l := strings.Join(lines, "\n")
	if addHelp {
		if b.height > h {
			l += strings.Repeat("\n", b.height-h)
		}
		l += b.helpC.View(b.keymap)
	}

	return paddingStyle.Render(l)
}
