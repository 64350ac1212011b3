package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/koi-cli/koi/key"
	"github.com/koi-cli/koi/mirror"
	"github.com/koi-cli/koi/resolve"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

// stubPipeline fakes the resolver, enumerator and fetcher while recording
// every interaction, so the transition table can be exercised without any
// network or media engine.
type stubPipeline struct {
	mu sync.Mutex

	episodeID  string
	resolveErr error
	servers    []mirror.Server
	bundles    map[string]*mirror.SourceBundle

	// When set, every source fetch blocks on the gate after being recorded.
	fetchGate chan struct{}

	resolveCalls int
	serverCalls  int
	fetched      []string
}

func (s *stubPipeline) Resolve(ctx context.Context, title string, episodeNumber int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolveCalls++
	return s.episodeID, s.resolveErr
}

func (s *stubPipeline) Servers(ctx context.Context, episodeID string) ([]mirror.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serverCalls++
	return s.servers, nil
}

func (s *stubPipeline) Sources(ctx context.Context, episodeID, serverName string) (*mirror.SourceBundle, error) {
	s.mu.Lock()
	s.fetched = append(s.fetched, serverName)
	bundle, ok := s.bundles[serverName]
	gate := s.fetchGate
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if ok {
		return bundle, nil
	}
	return nil, errors.New("fetch failed")
}

func (s *stubPipeline) fetchedServers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fetched...)
}

func startController(stub *stubPipeline, query Query) *Controller {
	c := New(stub, stub, stub, query)
	c.Start(context.Background())
	return c
}

// eventually waits until the controller snapshot satisfies cond.
func eventually(c *Controller, cond func(Snapshot) bool) bool {
	deadline := time.After(3 * time.Second)
	for {
		if cond(c.Snapshot()) {
			return true
		}
		select {
		case <-c.Updates():
		case <-c.Done():
			return cond(c.Snapshot())
		case <-deadline:
			return false
		}
	}
}

func waitDone(c *Controller) {
	select {
	case <-c.Done():
	case <-time.After(3 * time.Second):
	}
}

func TestInvalidQuery(t *testing.T) {
	Convey("A malformed query reaches Invalid without any network call", t, func() {
		for _, query := range []Query{
			{Title: "", Episode: 1},
			{Title: "Frieren", Episode: 0},
			{Title: "Frieren", Episode: -3},
		} {
			stub := &stubPipeline{}
			c := startController(stub, query)
			waitDone(c)

			snapshot := c.Snapshot()
			So(snapshot.Status, ShouldEqual, StatusInvalid)
			So(errors.Is(snapshot.Err, ErrInvalidQuery), ShouldBeTrue)
			So(stub.resolveCalls, ShouldEqual, 0)
			So(stub.serverCalls, ShouldEqual, 0)
		}
	})
}

func TestResolutionNotFound(t *testing.T) {
	Convey("A failed resolution is terminal and never consults servers", t, func() {
		stub := &stubPipeline{resolveErr: resolve.ErrNotFound}
		c := startController(stub, Query{Title: "does not exist", Episode: 1})
		waitDone(c)

		snapshot := c.Snapshot()
		So(snapshot.Status, ShouldEqual, StatusInvalid)
		So(errors.Is(snapshot.Err, resolve.ErrNotFound), ShouldBeTrue)
		So(stub.serverCalls, ShouldEqual, 0)
	})
}

func TestCursorRoundTrip(t *testing.T) {
	Convey("With every fetch failing, the cursor visits each server exactly once", t, func() {
		stub := &stubPipeline{
			episodeID: "ep-1",
			servers: []mirror.Server{
				{Name: "alpha"}, {Name: "beta"}, {Name: "gamma"},
			},
		}
		c := startController(stub, Query{Title: "Show", Episode: 1})
		waitDone(c)

		So(stub.fetchedServers(), ShouldResemble, []string{"alpha", "beta", "gamma"})

		snapshot := c.Snapshot()
		So(snapshot.Status, ShouldEqual, StatusExhausted)
		So(errors.Is(snapshot.Err, ErrAllServersExhausted), ShouldBeTrue)
	})
}

func TestEmptyServerList(t *testing.T) {
	Convey("An empty server list exhausts immediately without calling the fetcher", t, func() {
		stub := &stubPipeline{episodeID: "ep-1"}
		c := startController(stub, Query{Title: "Show", Episode: 1})
		waitDone(c)

		So(c.Snapshot().Status, ShouldEqual, StatusExhausted)
		So(stub.fetchedServers(), ShouldBeEmpty)
	})
}

func TestPreferredServer(t *testing.T) {
	Convey("The preference marker picks the initial cursor", t, func() {
		viper.Set(key.MirrorPreferredServer, "vidstream")
		defer viper.Set(key.MirrorPreferredServer, "")

		stub := &stubPipeline{
			episodeID: "ep-1",
			servers: []mirror.Server{
				{Name: "alpha"}, {Name: "VidStream Cloud"}, {Name: "beta"},
			},
		}
		c := startController(stub, Query{Title: "Show", Episode: 1})
		waitDone(c)

		// The cursor starts at the preferred match and only moves forward.
		So(stub.fetchedServers(), ShouldResemble, []string{"VidStream Cloud", "beta"})
	})
}

func TestFallbackToPlayingServer(t *testing.T) {
	Convey("Given servers [A, B] where only B has sources", t, func() {
		stub := &stubPipeline{
			episodeID: "frieren-episode-1",
			servers:   []mirror.Server{{Name: "A"}, {Name: "B"}},
			bundles: map[string]*mirror.SourceBundle{
				"B": {
					Sources: []mirror.Source{
						{URL: "https://cdn/1080.mp4", Quality: "1080"},
						{URL: "https://cdn/480.mp4", Quality: "480"},
					},
				},
			},
		}
		c := startController(stub, Query{Title: "Frieren", Episode: 1})
		defer c.Close()

		Convey("The controller switches to B and plays the 1080 source", func() {
			ok := eventually(c, func(s Snapshot) bool { return s.Status == StatusPlaying })
			So(ok, ShouldBeTrue)

			So(stub.fetchedServers(), ShouldResemble, []string{"A", "B"})

			snapshot := c.Snapshot()
			So(snapshot.Server, ShouldEqual, "B")
			So(snapshot.Err, ShouldBeNil)
			So(snapshot.Sources, ShouldHaveLength, 1)
			So(snapshot.Sources[0].Quality.Rank(), ShouldEqual, 1080)

			Convey("Accumulated stalls abandon B and exhaust the list", func() {
				session := c.Session()
				So(session, ShouldNotBeNil)

				session.RecordStall()
				session.RecordStall()
				session.RecordStall()
				waitDone(c)

				So(c.Snapshot().Status, ShouldEqual, StatusExhausted)
				So(errors.Is(c.Snapshot().Err, ErrAllServersExhausted), ShouldBeTrue)
			})
		})
	})
}

func TestManualNextServer(t *testing.T) {
	Convey("A manual retry takes the same path as an automatic failure", t, func() {
		stub := &stubPipeline{
			episodeID: "ep-1",
			servers:   []mirror.Server{{Name: "A"}, {Name: "B"}},
			bundles: map[string]*mirror.SourceBundle{
				"A": {Sources: []mirror.Source{{URL: "https://cdn/a.mp4", Quality: "720"}}},
				"B": {Sources: []mirror.Source{{URL: "https://cdn/b.mp4", Quality: "720"}}},
			},
		}
		c := startController(stub, Query{Title: "Show", Episode: 1})
		defer c.Close()

		So(eventually(c, func(s Snapshot) bool {
			return s.Status == StatusPlaying && s.Server == "A"
		}), ShouldBeTrue)

		c.NextServer()

		So(eventually(c, func(s Snapshot) bool {
			return s.Status == StatusPlaying && s.Server == "B"
		}), ShouldBeTrue)
		So(stub.fetchedServers(), ShouldResemble, []string{"A", "B"})
	})
}

func TestNextServerDuringFetch(t *testing.T) {
	Convey("A retry sent before playback begins does not skip the server", t, func() {
		gate := make(chan struct{})
		stub := &stubPipeline{
			episodeID: "ep-1",
			servers:   []mirror.Server{{Name: "A"}, {Name: "B"}},
			bundles: map[string]*mirror.SourceBundle{
				"A": {Sources: []mirror.Source{{URL: "https://cdn/a.mp4", Quality: "720"}}},
				"B": {Sources: []mirror.Source{{URL: "https://cdn/b.mp4", Quality: "720"}}},
			},
			fetchGate: gate,
		}
		c := startController(stub, Query{Title: "Show", Episode: 1})
		defer c.Close()

		// Wait until the fetch for A has started and is held on the gate.
		deadline := time.Now().Add(3 * time.Second)
		for len(stub.fetchedServers()) == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		So(stub.fetchedServers(), ShouldResemble, []string{"A"})

		// The viewer mashes next-server while sources are still loading.
		c.NextServer()
		close(gate)

		Convey("A still gets its turn to play", func() {
			So(eventually(c, func(s Snapshot) bool {
				return s.Status == StatusPlaying && s.Server == "A"
			}), ShouldBeTrue)
			So(stub.fetchedServers(), ShouldResemble, []string{"A"})

			Convey("And a retry sent while playing still advances", func() {
				c.NextServer()
				So(eventually(c, func(s Snapshot) bool {
					return s.Status == StatusPlaying && s.Server == "B"
				}), ShouldBeTrue)
				So(stub.fetchedServers(), ShouldResemble, []string{"A", "B"})
			})
		})
	})
}

func TestSupersede(t *testing.T) {
	Convey("Closing a playing controller abandons it without exhausting", t, func() {
		stub := &stubPipeline{
			episodeID: "ep-1",
			servers:   []mirror.Server{{Name: "A"}},
			bundles: map[string]*mirror.SourceBundle{
				"A": {Sources: []mirror.Source{{URL: "https://cdn/a.mp4", Quality: "720"}}},
			},
		}
		c := startController(stub, Query{Title: "Show", Episode: 1})

		So(eventually(c, func(s Snapshot) bool { return s.Status == StatusPlaying }), ShouldBeTrue)

		c.Close()
		waitDone(c)

		So(c.Snapshot().Status, ShouldNotEqual, StatusExhausted)
		So(c.Session(), ShouldBeNil)
	})
}

func TestQueryValidate(t *testing.T) {
	Convey("Query validation", t, func() {
		So(Query{Title: "Frieren", Episode: 1}.Validate(), ShouldBeNil)
		So(errors.Is(Query{Episode: 1}.Validate(), ErrInvalidQuery), ShouldBeTrue)
		So(errors.Is(Query{Title: "Frieren"}.Validate(), ErrInvalidQuery), ShouldBeTrue)
	})
}
