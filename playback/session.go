package playback

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/koi-cli/koi/key"
	"github.com/koi-cli/koi/log"
	"github.com/koi-cli/koi/mirror"
	"github.com/koi-cli/koi/network"
	"github.com/spf13/viper"
)

// Session is the live playback state bound to one set of sources. It is
// created whole and destroyed whole: a server or episode change never
// mutates a session in place, it replaces it, so stale manifest state can
// never leak into the next attempt.
type Session struct {
	mu sync.Mutex

	source   mirror.Source
	captions []mirror.Caption

	ladder        []Level
	selectedLevel int
	levelExplicit bool
	activeCaption int

	stallCount     int
	stallThreshold int
	stallFired     bool

	closed bool
	events chan FatalError
	cancel context.CancelFunc
}

// SelectSource applies the source selection policy: an adaptive manifest is
// preferred outright; otherwise the numerically highest declared quality
// wins, with the first-scanned source winning ties.
func SelectSource(sources []mirror.Source) (mirror.Source, bool) {
	if len(sources) == 0 {
		return mirror.Source{}, false
	}

	for _, s := range sources {
		if s.IsManifest || strings.HasSuffix(strings.ToLower(sourcePath(s.URL)), ".m3u8") {
			return s, true
		}
	}

	best := sources[0]
	for _, s := range sources[1:] {
		if s.Quality.Rank() > best.Quality.Rank() {
			best = s
		}
	}
	return best, true
}

func sourcePath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}

// NewSession binds the given bundle and begins exactly one session.
// Manifest-based sources are parsed asynchronously; the ladder becomes
// available once the manifest is ready. The returned session reports
// failures on Events until it is closed.
func NewSession(ctx context.Context, bundle *mirror.SourceBundle) (*Session, bool) {
	source, ok := SelectSource(bundle.Sources)
	if !ok {
		return nil, false
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		source:         source,
		captions:       bundle.Captions,
		selectedLevel:  LevelAuto,
		activeCaption:  -1,
		stallThreshold: viper.GetInt(key.PlaybackStallThreshold),
		events:         make(chan FatalError, 4),
		cancel:         cancel,
	}
	if s.stallThreshold <= 0 {
		s.stallThreshold = 3
	}
	if len(s.captions) > 0 {
		s.activeCaption = 0
	}

	if source.IsManifest || strings.HasSuffix(strings.ToLower(sourcePath(source.URL)), ".m3u8") {
		go s.loadManifest(ctx)
	}
	// Direct files get no ladder, but a dead link must still surface as a
	// stall rather than silence.
	go s.monitor(ctx)

	return s, true
}

// Source returns the bound source.
func (s *Session) Source() mirror.Source {
	return s.source
}

// Events exposes the session's fatal error signal.
func (s *Session) Events() <-chan FatalError {
	return s.events
}

// loadManifest fetches and parses the streaming manifest, then publishes
// the quality ladder. A manual level chosen before the parse completed is
// preserved: last explicit user intent wins over the Auto default.
func (s *Session) loadManifest(ctx context.Context) {
	body, err := network.Get(ctx, s.source.URL)
	if err != nil {
		if ctx.Err() != nil {
			return // Superseded, not an error.
		}
		s.fail(KindNetwork)
		return
	}

	ladder, err := parseLadder(body)
	if err != nil {
		s.fail(KindManifest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || ctx.Err() != nil {
		return
	}
	s.ladder = ladder
	if !s.levelExplicit {
		s.selectedLevel = LevelAuto
	}
}

// monitor probes the bound source periodically. A failed or overdue probe
// counts as a stall; repeated stalls escalate through recordStall.
func (s *Session) monitor(ctx context.Context) {
	probeTimeout := time.Duration(viper.GetInt(key.PlaybackProbeTimeout)) * time.Second
	if probeTimeout <= 0 {
		probeTimeout = 30 * time.Second
	}

	ticker := time.NewTicker(probeTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			err := s.probe(probeCtx)
			cancel()

			if ctx.Err() != nil {
				return
			}
			if err != nil {
				log.Warnf("playback probe failed: %v", err)
				s.RecordStall()
			}
		}
	}
}

func (s *Session) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.source.URL, nil)
	if err != nil {
		return err
	}

	resp, err := network.Client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return FatalError{Kind: KindNetwork}
	}
	return nil
}

// Ladder returns the selectable quality ladder: the synthetic Auto entry
// followed by one entry per discrete manifest level. Before the manifest is
// ready only Auto is offered.
func (s *Session) Ladder() []Level {
	s.mu.Lock()
	defer s.mu.Unlock()

	levels := make([]Level, 0, len(s.ladder)+1)
	levels = append(levels, Level{Label: "Auto", Index: LevelAuto})
	levels = append(levels, s.ladder...)
	return levels
}

// SelectedLevel returns the current ladder selection.
func (s *Session) SelectedLevel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedLevel
}

// SelectLevel applies a manual quality override, disabling automatic
// adaptation until Auto is explicitly re-selected. Re-selecting the current
// level is a no-op: no redundant manifest reparse is issued.
func (s *Session) SelectLevel(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.selectedLevel == index {
		return
	}

	if index == LevelAuto {
		s.selectedLevel = LevelAuto
		s.levelExplicit = false
		return
	}

	for _, level := range s.ladder {
		if level.Index == index {
			s.selectedLevel = index
			s.levelExplicit = true
			return
		}
	}
}

// Captions returns the caption tracks bound to this session.
func (s *Session) Captions() []mirror.Caption {
	return s.captions
}

// ActiveCaption returns the index of the single showing caption track, or
// -1 when the session carries no captions.
func (s *Session) ActiveCaption() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeCaption
}

// SelectCaption makes track index the single showing track, disabling all
// others atomically. Out-of-bounds selections are ignored.
func (s *Session) SelectCaption(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || index < 0 || index >= len(s.captions) {
		return
	}
	s.activeCaption = index
}

// RecordStall accounts one observed stall. Once the session threshold is
// reached a single FatalError(stalled) is raised; the counter does not
// re-arm for this session. A replacement session starts back at zero.
func (s *Session) RecordStall() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.stallFired {
		return
	}

	s.stallCount++
	if s.stallCount >= s.stallThreshold {
		s.stallFired = true
		s.emit(FatalError{Kind: KindStalled})
	}
}

// StallCount returns the number of stalls observed in this session.
func (s *Session) StallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stallCount
}

// fail forwards a fatal transport or manifest error upward, once.
func (s *Session) fail(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.emit(FatalError{Kind: kind})
}

// emit delivers an event without blocking. Callers hold s.mu.
func (s *Session) emit(event FatalError) {
	select {
	case s.events <- event:
	default:
		// The listener is gone or saturated; the session is already doomed.
	}
}

// Close tears the session down deterministically: the manifest transport is
// cancelled and every later callback from this session is ignored, so
// nothing from a superseded session can fire into its replacement.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
}
