// Package mirror provides the client for the mirror catalog: the identity
// and delivery surface used to locate playable episode streams.
package mirror

import (
	"encoding/json"
	"strconv"
	"strings"
)

// SearchResult is one ranked hit from the mirror search endpoint.
// Its ID lives in the mirror namespace, unrelated to the metadata catalog.
type SearchResult struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func (r *SearchResult) String() string {
	return r.Title
}

// IndexEpisode is a single entry of a mirror episode index.
type IndexEpisode struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
}

// EpisodeIndex is the full, ordered episode listing of one mirror entry.
type EpisodeIndex struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Episodes []IndexEpisode `json:"episodes"`
}

// Server describes one candidate delivery server. The order servers are
// returned in defines fallback priority.
type Server struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s *Server) String() string {
	return s.Name
}

// Source is a single playable variant: either an adaptive manifest or a
// direct file, distinguished by the IsManifest flag rather than a type
// hierarchy since the two differ only in how playback binds them.
type Source struct {
	URL        string  `json:"url"`
	Quality    Quality `json:"quality,omitempty"`
	IsManifest bool    `json:"isM3U8"`
}

// Caption is one subtitle track offered alongside the sources.
type Caption struct {
	URL   string `json:"url"`
	Lang  string `json:"lang,omitempty"`
	Label string `json:"label,omitempty"`
}

// SourceBundle is everything needed to start one playback session.
type SourceBundle struct {
	Headers  map[string]string `json:"headers,omitempty"`
	Sources  []Source          `json:"sources"`
	Captions []Caption         `json:"subtitles"`
}

// Quality is a declared source quality. Upstream emits it either as a
// string ("1080p") or a bare number, so it unmarshals from both.
type Quality string

// UnmarshalJSON accepts both string and numeric quality declarations.
func (q *Quality) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*q = Quality(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*q = Quality(n.String())
	return nil
}

// Rank returns the numeric vertical-resolution value embedded in the
// quality declaration, or 0 when none is declared.
func (q Quality) Rank() int {
	digits := strings.TrimFunc(string(q), func(r rune) bool {
		return r < '0' || r > '9'
	})
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
