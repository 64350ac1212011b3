package playback

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"

	"github.com/koi-cli/koi/key"
	"github.com/koi-cli/koi/mirror"
)

func TestSelectSource(t *testing.T) {
	Convey("Source selection policy", t, func() {
		Convey("An adaptive manifest is preferred outright", func() {
			sources := []mirror.Source{
				{URL: "https://cdn/1080.mp4", Quality: "1080"},
				{URL: "https://cdn/master.m3u8", IsManifest: true},
			}

			selected, ok := SelectSource(sources)
			So(ok, ShouldBeTrue)
			So(selected.IsManifest, ShouldBeTrue)
		})

		Convey("A .m3u8 URL counts as a manifest even without the flag", func() {
			sources := []mirror.Source{
				{URL: "https://cdn/1080.mp4", Quality: "1080"},
				{URL: "https://cdn/master.m3u8"},
			}

			selected, ok := SelectSource(sources)
			So(ok, ShouldBeTrue)
			So(selected.URL, ShouldEndWith, "master.m3u8")
		})

		Convey("Without a manifest the highest numeric quality wins", func() {
			sources := []mirror.Source{
				{URL: "https://cdn/480.mp4", Quality: "480"},
				{URL: "https://cdn/1080.mp4", Quality: "1080"},
			}

			selected, ok := SelectSource(sources)
			So(ok, ShouldBeTrue)
			So(selected.Quality.Rank(), ShouldEqual, 1080)
		})

		Convey("Ties break to the first-scanned source", func() {
			sources := []mirror.Source{
				{URL: "https://cdn/a.mp4", Quality: "720"},
				{URL: "https://cdn/b.mp4", Quality: "720"},
			}

			selected, _ := SelectSource(sources)
			So(selected.URL, ShouldEndWith, "a.mp4")
		})

		Convey("An empty source list selects nothing", func() {
			_, ok := SelectSource(nil)
			So(ok, ShouldBeFalse)
		})
	})
}

// plainSession builds a session over a direct-file source so no manifest
// is fetched and only the default probe cadence runs.
func plainSession(captions ...mirror.Caption) *Session {
	session, ok := NewSession(context.Background(), &mirror.SourceBundle{
		Sources:  []mirror.Source{{URL: "https://cdn/1080.mp4", Quality: "1080"}},
		Captions: captions,
	})
	So(ok, ShouldBeTrue)
	return session
}

func TestStallAccounting(t *testing.T) {
	Convey("Given a live session", t, func() {
		session := plainSession()
		defer session.Close()

		Convey("Exactly three stalls raise one fatal stalled signal", func() {
			session.RecordStall()
			session.RecordStall()
			So(len(session.Events()), ShouldEqual, 0)

			session.RecordStall()
			So(len(session.Events()), ShouldEqual, 1)
			So((<-session.Events()).Kind, ShouldEqual, KindStalled)

			Convey("A fourth stall in the same session raises nothing", func() {
				session.RecordStall()
				So(len(session.Events()), ShouldEqual, 0)
				So(session.StallCount(), ShouldEqual, 3)
			})
		})

		Convey("A replacement session starts back at zero", func() {
			session.RecordStall()
			session.Close()

			replacement := plainSession()
			defer replacement.Close()
			So(replacement.StallCount(), ShouldEqual, 0)
		})

		Convey("Stalls after teardown are ignored", func() {
			session.Close()
			session.RecordStall()
			session.RecordStall()
			session.RecordStall()
			So(len(session.Events()), ShouldEqual, 0)
		})
	})
}

func TestDeadDirectSource(t *testing.T) {
	Convey("A direct-file source that stops answering raises a stalled fatal", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		viper.Set(key.PlaybackProbeTimeout, 1)
		viper.Set(key.PlaybackStallThreshold, 1)
		defer viper.Set(key.PlaybackProbeTimeout, 0)
		defer viper.Set(key.PlaybackStallThreshold, 0)

		session, ok := NewSession(context.Background(), &mirror.SourceBundle{
			Sources: []mirror.Source{{URL: server.URL + "/episode.mp4", Quality: "1080"}},
		})
		So(ok, ShouldBeTrue)
		defer session.Close()

		var fatal FatalError
		select {
		case fatal = <-session.Events():
		case <-time.After(5 * time.Second):
		}
		So(fatal.Kind, ShouldEqual, KindStalled)
	})
}

func TestLevelSelection(t *testing.T) {
	Convey("Given a session with a parsed ladder", t, func() {
		session := plainSession()
		defer session.Close()
		session.ladder = []Level{
			{Label: "1080p", Index: 0},
			{Label: "720p", Index: 1},
		}

		Convey("Auto is the default", func() {
			So(session.SelectedLevel(), ShouldEqual, LevelAuto)
		})

		Convey("The ladder is exposed with a synthetic Auto entry first", func() {
			ladder := session.Ladder()
			So(ladder, ShouldHaveLength, 3)
			So(ladder[0].Label, ShouldEqual, "Auto")
			So(ladder[0].Index, ShouldEqual, LevelAuto)
		})

		Convey("A manual override sticks until Auto is re-selected", func() {
			session.SelectLevel(1)
			So(session.SelectedLevel(), ShouldEqual, 1)
			So(session.levelExplicit, ShouldBeTrue)

			session.SelectLevel(LevelAuto)
			So(session.SelectedLevel(), ShouldEqual, LevelAuto)
			So(session.levelExplicit, ShouldBeFalse)
		})

		Convey("Re-selecting Auto twice is idempotent", func() {
			session.SelectLevel(LevelAuto)
			session.SelectLevel(LevelAuto)
			So(session.SelectedLevel(), ShouldEqual, LevelAuto)
		})

		Convey("Unknown level indexes are ignored", func() {
			session.SelectLevel(42)
			So(session.SelectedLevel(), ShouldEqual, LevelAuto)
		})

		Convey("A manual choice made before manifest-ready survives the ladder publish", func() {
			session.SelectLevel(1)

			// Simulate the manifest-parse continuation applying its result.
			session.mu.Lock()
			if !session.levelExplicit {
				session.selectedLevel = LevelAuto
			}
			session.mu.Unlock()

			So(session.SelectedLevel(), ShouldEqual, 1)
		})
	})
}

func TestCaptionExclusivity(t *testing.T) {
	Convey("Given a session with caption tracks", t, func() {
		session := plainSession(
			mirror.Caption{URL: "https://cdn/en.vtt", Lang: "en"},
			mirror.Caption{URL: "https://cdn/es.vtt", Lang: "es"},
			mirror.Caption{URL: "https://cdn/de.vtt", Lang: "de"},
		)
		defer session.Close()

		Convey("Exactly one track shows by default", func() {
			So(session.ActiveCaption(), ShouldEqual, 0)
		})

		Convey("Selecting another track switches atomically", func() {
			for k := range session.Captions() {
				session.SelectCaption(k)
				So(session.ActiveCaption(), ShouldEqual, k)
			}
		})

		Convey("Out-of-bounds selections are ignored", func() {
			session.SelectCaption(99)
			So(session.ActiveCaption(), ShouldEqual, 0)
			session.SelectCaption(-1)
			So(session.ActiveCaption(), ShouldEqual, 0)
		})
	})

	Convey("Given a session without captions", t, func() {
		session := plainSession()
		defer session.Close()
		So(session.ActiveCaption(), ShouldEqual, -1)
	})
}
