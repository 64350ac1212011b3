// Package playback implements the adaptive playback engine: a single live
// session bound to one set of sources, exposing the manifest quality ladder
// and reporting stalls and fatal errors upward.
//
// The engine never retries on its own. Every failure severe enough to end
// the session is forwarded exactly once as a FatalError; recovery is the
// fallback controller's job.
package playback

// FatalError is the engine's single upward failure signal.
type FatalError struct {
	Kind string
}

func (e FatalError) Error() string {
	return "playback fatal: " + e.Kind
}

// Fatal error kinds.
const (
	KindNetwork  = "network"
	KindManifest = "manifest"
	KindStalled  = "stalled"
)

// LevelAuto is the synthetic ladder entry delegating variant selection to
// adaptive bitrate logic. It is the default for every new session.
const LevelAuto = -1

// Level is one selectable entry of the quality ladder.
type Level struct {
	Label      string
	Index      int
	Bandwidth  uint32
	Resolution string
	URI        string
}
