package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCatalogClient(t *testing.T) {
	Convey("Given a catalog API", t, func(c C) {
		mux := http.NewServeMux()
		mux.HandleFunc("/anime", func(w http.ResponseWriter, r *http.Request) {
			c.So(r.URL.Query().Get("q"), ShouldEqual, "frieren")
			_, _ = w.Write([]byte(`{"data":[{"mal_id":52991,"title":"Sousou no Frieren","score":9.3}]}`))
		})
		mux.HandleFunc("/anime/52991", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":{"mal_id":52991,"title":"Sousou no Frieren","episodes":28,"status":"Finished Airing","genres":[{"name":"Adventure"}]}}`))
		})
		mux.HandleFunc("/anime/52991/episodes", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"mal_id":1,"title":"The Journey's End"}]}`))
		})

		srv := httptest.NewServer(mux)
		defer srv.Close()

		client := NewWithBaseURL(srv.URL)
		ctx := context.Background()

		Convey("Search returns typed records", func() {
			results, err := client.Search(ctx, "frieren", 1)
			So(err, ShouldBeNil)
			So(results, ShouldHaveLength, 1)
			So(results[0].ID, ShouldEqual, 52991)
			So(results[0].Title, ShouldEqual, "Sousou no Frieren")
		})

		Convey("Details returns the extended record", func() {
			details, err := client.Details(ctx, 52991)
			So(err, ShouldBeNil)
			So(details.Episodes, ShouldEqual, 28)
			So(details.Genres, ShouldHaveLength, 1)
		})

		Convey("Episodes returns one page of records", func() {
			episodes, err := client.Episodes(ctx, 52991, 1)
			So(err, ShouldBeNil)
			So(episodes, ShouldHaveLength, 1)
			So(episodes[0].Title, ShouldEqual, "The Journey's End")
		})

		Convey("A missing entry surfaces as an error", func() {
			_, err := client.Details(ctx, 404)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestCover(t *testing.T) {
	Convey("Cover prefers the large JPG rendition", t, func() {
		a := &Anime{}
		So(a.Cover(), ShouldEqual, "")

		a.Images.WebP.ImageURL = "webp-small"
		So(a.Cover(), ShouldEqual, "webp-small")

		a.Images.JPG.LargeImageURL = "jpg-large"
		So(a.Cover(), ShouldEqual, "jpg-large")
	})
}
