// Package catalog provides a read-only client for the metadata catalog API.
package catalog

// Images groups the available artwork renditions for a catalog entry.
type Images struct {
	JPG  ImageSet `json:"jpg"`
	WebP ImageSet `json:"webp"`
}

// ImageSet holds the URL variants of a single artwork format.
type ImageSet struct {
	ImageURL      string `json:"image_url"`
	LargeImageURL string `json:"large_image_url"`
}

// Anime represents a catalog entry as returned by search and listing endpoints.
type Anime struct {
	ID       int     `json:"mal_id"`
	Title    string  `json:"title"`
	Images   Images  `json:"images"`
	Year     int     `json:"year"`
	Type     string  `json:"type"`
	Score    float64 `json:"score"`
	Synopsis string  `json:"synopsis"`
}

func (a *Anime) String() string {
	return a.Title
}

// Cover returns the best available cover image URL.
func (a *Anime) Cover() string {
	for _, url := range []string{
		a.Images.JPG.LargeImageURL,
		a.Images.JPG.ImageURL,
		a.Images.WebP.LargeImageURL,
		a.Images.WebP.ImageURL,
	} {
		if url != "" {
			return url
		}
	}
	return ""
}

// Details extends Anime with fields only present on the single-entry endpoint.
type Details struct {
	Anime
	Episodes int     `json:"episodes"`
	Status   string  `json:"status"`
	Genres   []Genre `json:"genres"`
}

// Genre is a named catalog genre tag.
type Genre struct {
	Name string `json:"name"`
}

// Episode describes one catalog episode record.
type Episode struct {
	ID    int    `json:"mal_id"`
	Title string `json:"title"`
}
