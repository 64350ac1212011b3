package watch

import (
	"context"
	"strings"
	"sync"

	"github.com/koi-cli/koi/key"
	"github.com/koi-cli/koi/log"
	"github.com/koi-cli/koi/mirror"
	"github.com/koi-cli/koi/playback"
	"github.com/spf13/viper"
)

// Resolver maps a title and episode number onto a mirror episode identifier.
type Resolver interface {
	Resolve(ctx context.Context, title string, episodeNumber int) (string, error)
}

// Enumerator lists the candidate delivery servers for an episode.
type Enumerator interface {
	Servers(ctx context.Context, episodeID string) ([]mirror.Server, error)
}

// Fetcher retrieves the playable variants for an episode from one server.
type Fetcher interface {
	Sources(ctx context.Context, episodeID, serverName string) (*mirror.SourceBundle, error)
}

// action is a tagged message into the controller loop. Modeling viewer
// actions and engine signals as one message stream keeps the transition
// logic in a single place, testable without a live media engine.
type actionKind int

const (
	actionNextServer actionKind = iota + 1
	actionSuperseded
)

// Snapshot is the render-facing view of the controller.
type Snapshot struct {
	Status   Status
	Server   string
	Sources  []mirror.Source
	Captions []mirror.Caption
	Err      error
}

// Controller owns one resolution lifetime: the episode identity, the
// ordered server list, the fallback cursor, and the single live playback
// session. A new query never reuses a controller; it supersedes it.
type Controller struct {
	resolver   Resolver
	enumerator Enumerator
	fetcher    Fetcher

	query Query

	mu        sync.Mutex
	status    Status
	episodeID string
	servers   []mirror.Server
	cursor    int
	session   *playback.Session
	err       error

	actions chan actionKind
	updates chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
}

// New constructs a controller for one query. Call Start to begin.
func New(resolver Resolver, enumerator Enumerator, fetcher Fetcher, query Query) *Controller {
	return &Controller{
		resolver:   resolver,
		enumerator: enumerator,
		fetcher:    fetcher,
		query:      query,
		actions:    make(chan actionKind, 4),
		updates:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Start validates the query and launches the pipeline. A malformed query
// reaches the Invalid terminal state without issuing any network call.
func (c *Controller) Start(ctx context.Context) {
	if err := c.query.Validate(); err != nil {
		c.transition(StatusInvalid, err)
		close(c.done)
		return
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.transition(StatusResolving, nil)
	go c.run(ctx)
}

// run is the controller loop. Stages execute strictly sequentially within
// this resolution lifetime; every transition funnels through it.
func (c *Controller) run(ctx context.Context) {
	defer close(c.done)

	episodeID, err := c.resolver.Resolve(ctx, c.query.Title, c.query.Episode)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		c.transition(StatusInvalid, err)
		return
	}

	servers, err := c.enumerator.Servers(ctx, episodeID)
	if err != nil {
		log.Errorf("listing servers for %s: %v", episodeID, err)
		servers = nil
	}

	c.mu.Lock()
	c.episodeID = episodeID
	c.servers = servers
	c.cursor = preferredIndex(servers)
	c.mu.Unlock()

	for {
		c.transition(StatusFetching, nil)

		c.mu.Lock()
		cursor, servers := c.cursor, c.servers
		c.mu.Unlock()

		if cursor >= len(servers) {
			// Reached only when enumeration came back empty: the fetcher
			// is never consulted without a server to ask.
			log.Warnf("%s: %v", c.query, errServerListEmpty)
			c.transition(StatusExhausted, ErrAllServersExhausted)
			return
		}

		server := servers[cursor]

		bundle, err := c.fetcher.Sources(ctx, episodeID, server.Name)
		if ctx.Err() != nil {
			return
		}
		if err != nil || len(bundle.Sources) == 0 {
			log.Warnf("server %s: %v", server.Name, errSourceFetchFailed)
			if !c.advance() {
				return
			}
			continue
		}

		session, ok := playback.NewSession(ctx, bundle)
		if !ok {
			if !c.advance() {
				return
			}
			continue
		}

		// A NextServer queued during the fetch targets a server the viewer
		// never saw playing. Drop such signals before listening for new ones.
		if c.discardStale() {
			session.Close()
			return
		}

		c.mu.Lock()
		c.session = session
		c.mu.Unlock()
		c.transition(StatusPlaying, nil)

		// Block until this session dies or is abandoned. Only the live
		// session is listened to, so a late signal from a superseded one
		// can never be misattributed.
		abandoned := c.await(ctx, session)

		// Teardown completes before the next fetch begins.
		session.Close()
		c.mu.Lock()
		c.session = nil
		c.mu.Unlock()

		if abandoned {
			return
		}
		if !c.advance() {
			return
		}
	}
}

// await blocks on the live session's failure signal and viewer actions.
// It returns true when the controller itself is being abandoned.
func (c *Controller) await(ctx context.Context, session *playback.Session) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case fatal := <-session.Events():
			log.Warnf("playback on %s: %v", c.CurrentServer(), fatal)
			return false
		case act := <-c.actions:
			switch act {
			case actionSuperseded:
				return true
			case actionNextServer:
				return false
			}
		}
	}
}

// discardStale empties the action queue, keeping only an abandonment.
// It returns true when a superseding signal was queued.
func (c *Controller) discardStale() bool {
	for {
		select {
		case act := <-c.actions:
			if act == actionSuperseded {
				return true
			}
		default:
			return false
		}
	}
}

// advance moves the fallback cursor forward. The cursor only ever
// increments within one resolution lifetime. It returns false once the
// cursor passes the last server, after reporting exhaustion.
func (c *Controller) advance() bool {
	c.transition(StatusSwitchingServer, nil)

	c.mu.Lock()
	c.cursor++
	remaining := c.cursor < len(c.servers)
	c.mu.Unlock()

	if !remaining {
		c.transition(StatusExhausted, ErrAllServersExhausted)
		return false
	}
	return true
}

// transition records the new status and the single user-visible message.
// A successful transition clears any prior message.
func (c *Controller) transition(status Status, err error) {
	c.mu.Lock()
	c.status = status
	c.err = err
	c.mu.Unlock()

	log.Debugf("%s: %s", c.query, status)
	c.notify()
}

func (c *Controller) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// preferredIndex picks the initial fallback cursor: the first server whose
// name contains the configured preference marker, else index zero.
func preferredIndex(servers []mirror.Server) int {
	marker := strings.ToLower(viper.GetString(key.MirrorPreferredServer))
	if marker == "" {
		return 0
	}

	for i, server := range servers {
		if strings.Contains(strings.ToLower(server.Name), marker) {
			return i
		}
	}
	return 0
}

// Snapshot returns the current render-facing state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := Snapshot{Status: c.status, Err: c.err}
	if c.cursor < len(c.servers) {
		snapshot.Server = c.servers[c.cursor].Name
	}
	if c.session != nil {
		snapshot.Sources = []mirror.Source{c.session.Source()}
		snapshot.Captions = c.session.Captions()
	}
	return snapshot
}

// CurrentServer returns the name of the server under the fallback cursor.
func (c *Controller) CurrentServer() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cursor < len(c.servers) {
		return c.servers[c.cursor].Name
	}
	return ""
}

// Session exposes the live playback session, or nil outside Playing.
func (c *Controller) Session() *playback.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// NextServer abandons the current session and retries with the next
// candidate. This is the same path taken automatically on fatal errors.
func (c *Controller) NextServer() {
	select {
	case c.actions <- actionNextServer:
	default:
	}
}

// SelectLevel applies a manual quality override on the live session.
func (c *Controller) SelectLevel(index int) {
	if session := c.Session(); session != nil {
		session.SelectLevel(index)
	}
}

// SelectCaption switches the showing caption track on the live session.
func (c *Controller) SelectCaption(index int) {
	if session := c.Session(); session != nil {
		session.SelectCaption(index)
	}
}

// Updates signals after every transition; receivers coalesce.
func (c *Controller) Updates() <-chan struct{} {
	return c.updates
}

// Done closes once the controller reaches a terminal state or is closed.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Close supersedes this controller. The in-flight stage's continuation is
// discarded rather than applied; a fresh controller serves the next query.
func (c *Controller) Close() {
	select {
	case c.actions <- actionSuperseded:
	default:
	}
	if c.cancel != nil {
		c.cancel()
	}
}
