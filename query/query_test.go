package query

import (
	"testing"

	"github.com/koi-cli/koi/filesystem"
	"github.com/koi-cli/koi/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
	viper.Set(key.SearchShowQuerySuggestions, true)
}

func TestQuery(t *testing.T) {
	Convey("Given query history", t, func() {
		Convey("When remembering queries", func() {
			So(Remember("frieren", 1), ShouldBeNil)
			So(Remember("fullmetal alchemist", 10), ShouldBeNil)

			Convey("Then suggestions are sorted by rank", func() {
				// Force a re-read from the persisted registry.
				suggestionCache = make(map[string][]*queryRecord)

				s := SuggestMany("f")
				So(len(s), ShouldBeGreaterThanOrEqualTo, 2)
				So(s[0], ShouldEqual, "fullmetal alchemist")
			})

			Convey("Then the search limit caps the suggestion list", func() {
				suggestionCache = make(map[string][]*queryRecord)

				viper.Set(key.SearchLimit, 1)
				defer viper.Set(key.SearchLimit, 0)

				s := SuggestMany("f")
				So(s, ShouldResemble, []string{"fullmetal alchemist"})
			})
		})

		Convey("It sanitizes input", func() {
			So(sanitize("  FRIEREN  "), ShouldEqual, "frieren")
		})

		Convey("When suggestions are disabled", func() {
			viper.Set(key.SearchShowQuerySuggestions, false)
			defer viper.Set(key.SearchShowQuerySuggestions, true)

			So(SuggestMany("frie"), ShouldBeEmpty)
		})
	})
}
