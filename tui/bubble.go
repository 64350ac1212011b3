// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"

	"github.com/koi-cli/koi/color"
	"github.com/koi-cli/koi/mirror"
	"github.com/koi-cli/koi/query"
	"github.com/koi-cli/koi/resolve"
	"github.com/koi-cli/koi/style"
	"github.com/koi-cli/koi/watch"
)

// statefulBubble encapsulates the interface state: the fallback controller
// driving playback plus the component models rendering it.
type statefulBubble struct {
	state state

	keymap *statefulKeymap

	// components
	spinnerC spinner.Model
	helpC    help.Model

	controller *watch.Controller
	cancel     context.CancelFunc
	lastError  error

	width, height int

	options *Options
}

// raiseError dispatches a terminal error and transitions the application to the failure view.
func (b *statefulBubble) raiseError(err error) {
	b.lastError = err
	b.setState(errorState)
}

// setState performs a synchronous transition of both the application workflow and its associated keymap.
func (b *statefulBubble) setState(s state) {
	b.state = s
	b.keymap.setState(s)
}

func newBubble(options *Options) *statefulBubble {
	keymap := newStatefulKeymap()

	spinnerC := spinner.New()
	spinnerC.Spinner = spinner.Dot
	spinnerC.Style = style.New().Foreground(color.Purple)

	client := mirror.New()
	controller := watch.New(resolve.New(client), client, client, options.Query)

	ctx, cancel := context.WithCancel(context.Background())
	controller.Start(ctx)
	_ = query.Remember(options.Query.Title, 1)

	bubble := &statefulBubble{
		keymap:     keymap,
		spinnerC:   spinnerC,
		helpC:      help.New(),
		controller: controller,
		cancel:     cancel,
		options:    options,
	}
	bubble.setState(watchState)
	return bubble
}
