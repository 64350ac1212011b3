// Package inline provides the application's non-interactive, programmable execution mode.
package inline

import (
	"encoding/json"
	"io"

	"github.com/koi-cli/koi/mirror"
	"github.com/koi-cli/koi/watch"
)

// Output is the machine-readable envelope of one inline run.
type Output struct {
	Title    string           `json:"title" jsonschema:"description=Requested anime title."`
	Episode  int              `json:"episode" jsonschema:"description=Requested episode number."`
	Status   string           `json:"status" jsonschema:"description=Final controller status."`
	Server   string           `json:"server,omitempty" jsonschema:"description=Delivery server the sources came from."`
	Sources  []mirror.Source  `json:"sources" jsonschema:"description=Playable variants bound to the session."`
	Captions []mirror.Caption `json:"captions,omitempty" jsonschema:"description=Caption tracks offered alongside the sources."`
	Error    string           `json:"error,omitempty" jsonschema:"description=User-visible failure message, if any."`
}

func writeJson(out io.Writer, q watch.Query, snapshot watch.Snapshot) error {
	output := Output{
		Title:    q.Title,
		Episode:  q.Episode,
		Status:   snapshot.Status.String(),
		Server:   snapshot.Server,
		Sources:  snapshot.Sources,
		Captions: snapshot.Captions,
	}
	if output.Sources == nil {
		output.Sources = []mirror.Source{}
	}
	if snapshot.Err != nil {
		output.Error = snapshot.Err.Error()
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
