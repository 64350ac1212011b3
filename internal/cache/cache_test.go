package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/koi-cli/koi/where"
)

func init() {
	// Isolate the on-disk cache from the developer's real cache.
	dir, err := os.MkdirTemp("", "koi-cache-test")
	if err == nil {
		os.Setenv("XDG_CACHE_HOME", dir)
	}
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestGenerateKey(t *testing.T) {
	Convey("GenerateKey", t, func() {
		Convey("Is deterministic", func() {
			So(GenerateKey("frieren", "search"), ShouldEqual, GenerateKey("frieren", "search"))
		})

		Convey("Normalizes case and spacing", func() {
			So(GenerateKey("Frieren Beyond", "search"), ShouldEqual, GenerateKey("frierenbeyond", "search"))
		})

		Convey("Distinguishes scopes", func() {
			So(GenerateKey("frieren", "search"), ShouldNotEqual, GenerateKey("frieren", "info"))
		})
	})
}

func TestReadWrite(t *testing.T) {
	Convey("Cache round trip", t, func() {
		key := GenerateKey("frieren", "test")

		Convey("Read misses before any write", func() {
			var got payload
			So(Read(GenerateKey("never written", "test"), &got), ShouldBeFalse)
		})

		Convey("Write then Read returns the stored object", func() {
			So(Write(key, payload{Name: "frieren", Count: 28}), ShouldBeNil)

			var got payload
			So(Read(key, &got), ShouldBeTrue)
			So(got.Name, ShouldEqual, "frieren")
			So(got.Count, ShouldEqual, 28)
		})

		Convey("CollectGarbage removes expired entries but keeps fresh ones", func() {
			fresh := GenerateKey("fresh", "gc")
			stale := GenerateKey("stale", "gc")
			So(Write(fresh, payload{Name: "fresh"}), ShouldBeNil)
			So(Write(stale, payload{Name: "stale"}), ShouldBeNil)

			stalePath := filepath.Join(where.Mirror(), stale)
			old := time.Now().Add(-TTL - time.Hour)
			So(os.Chtimes(stalePath, old, old), ShouldBeNil)

			<-CollectGarbage()

			_, err := os.Stat(stalePath)
			So(os.IsNotExist(err), ShouldBeTrue)
			_, err = os.Stat(filepath.Join(where.Mirror(), fresh))
			So(err, ShouldBeNil)
		})

		Convey("Expired entries are treated as misses", func() {
			So(Write(key, payload{Name: "stale"}), ShouldBeNil)

			path := filepath.Join(where.Mirror(), key)
			old := time.Now().Add(-TTL - time.Hour)
			So(os.Chtimes(path, old, old), ShouldBeNil)

			var got payload
			So(Read(key, &got), ShouldBeFalse)
		})
	})
}
