// Package inline provides the application's non-interactive, programmable execution mode.
package inline

import (
	"context"
	"fmt"
	"os"

	"github.com/koi-cli/koi/mirror"
	"github.com/koi-cli/koi/query"
	"github.com/koi-cli/koi/resolve"
	"github.com/koi-cli/koi/watch"
)

// Run resolves and plays the requested episode without any interactive
// surface, emitting the outcome once the controller settles into Playing or
// a terminal state.
func Run(ctx context.Context, options *Options) error {
	if options.Out == nil {
		options.Out = os.Stdout
	}

	client := mirror.New()
	controller := watch.New(resolve.New(client), client, client, options.Query)
	controller.Start(ctx)
	defer controller.Close()

	_ = query.Remember(options.Query.Title, 1)

	snapshot := settle(ctx, controller)

	if options.Json {
		return writeJson(options.Out, options.Query, snapshot)
	}

	if snapshot.Err != nil {
		return snapshot.Err
	}

	for _, source := range snapshot.Sources {
		fmt.Fprintln(options.Out, source.URL)
	}
	for _, caption := range snapshot.Captions {
		fmt.Fprintln(options.Out, caption.URL)
	}
	return nil
}

// settle blocks until the controller is playing or has reached a terminal
// state, then returns the final snapshot.
func settle(ctx context.Context, controller *watch.Controller) watch.Snapshot {
	for {
		snapshot := controller.Snapshot()
		if snapshot.Status == watch.StatusPlaying || snapshot.Status.Terminal() {
			return snapshot
		}

		select {
		case <-ctx.Done():
			return controller.Snapshot()
		case <-controller.Updates():
		case <-controller.Done():
			return controller.Snapshot()
		}
	}
}
