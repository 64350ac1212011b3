package tui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/koi-cli/koi/mirror"
	"github.com/koi-cli/koi/playback"
)

const masterManifest = `#EXTM3U
#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=2800000,RESOLUTION=1920x1080
1080/index.m3u8
#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=1400000,RESOLUTION=1280x720
720/index.m3u8
`

// manifestSession binds a session to a served HLS master playlist and waits
// for the ladder to publish.
func manifestSession() (*playback.Session, func()) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(masterManifest))
	}))

	session, ok := playback.NewSession(context.Background(), &mirror.SourceBundle{
		Sources: []mirror.Source{{URL: server.URL + "/master.m3u8", IsManifest: true}},
	})
	So(ok, ShouldBeTrue)

	deadline := time.Now().Add(3 * time.Second)
	for len(session.Ladder()) < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	So(session.Ladder(), ShouldHaveLength, 3)

	return session, func() {
		session.Close()
		server.Close()
	}
}

func TestLadderLines(t *testing.T) {
	Convey("Given a session with a published ladder", t, func() {
		session, teardown := manifestSession()
		defer teardown()

		bubble := &statefulBubble{}

		Convey("Auto appears only on its own row by default", func() {
			lines := strings.Join(bubble.ladderLines(session), "\n")

			So(strings.Count(strings.ToLower(lines), "auto"), ShouldEqual, 1)
			So(lines, ShouldContainSubstring, "> auto")
			So(lines, ShouldContainSubstring, "  1 ")
			So(lines, ShouldContainSubstring, "1080p")
			So(lines, ShouldNotContainSubstring, "> 1080p")
		})

		Convey("Selecting level 0 highlights the row numbered 1", func() {
			session.SelectLevel(0)
			lines := bubble.ladderLines(session)

			var numbered []string
			for _, line := range lines {
				if strings.Contains(line, "1080p") || strings.Contains(line, "720p") {
					numbered = append(numbered, line)
				}
			}
			So(numbered, ShouldHaveLength, 2)
			So(numbered[0], ShouldContainSubstring, "  1 ")
			So(numbered[0], ShouldContainSubstring, "> 1080p")
			So(numbered[1], ShouldContainSubstring, "  2 ")
			So(numbered[1], ShouldNotContainSubstring, ">")

			Convey("And the auto row loses its marker", func() {
				So(strings.Join(lines, "\n"), ShouldNotContainSubstring, "> auto")
			})
		})
	})
}
