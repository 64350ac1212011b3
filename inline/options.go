// Package inline provides the application's non-interactive, programmable execution mode.
package inline

import (
	"io"

	"github.com/koi-cli/koi/watch"
)

// Options configures a single inline run.
type Options struct {
	Query watch.Query

	// Json switches output from plain text to a machine-readable envelope.
	Json bool

	// Out receives the run's output; defaults to stdout.
	Out io.Writer
}
