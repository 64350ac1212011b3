// Package resolve maps a human-readable title and episode number onto a
// canonical episode identifier in the mirror namespace.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/koi-cli/koi/key"
	"github.com/koi-cli/koi/log"
	"github.com/koi-cli/koi/mirror"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// ErrNotFound reports that no mirror identity exists for the requested
// title: either the search returned nothing or the episode index is empty.
// There is no alternate identity to retry with, so it is terminal.
var ErrNotFound = errors.New("episode not found on mirror")

// Catalog is the subset of the mirror surface the resolver consumes.
type Catalog interface {
	Search(ctx context.Context, query string) ([]mirror.SearchResult, error)
	Info(ctx context.Context, mirrorID string) (*mirror.EpisodeIndex, error)
}

// Resolver resolves episode identity against a mirror catalog.
type Resolver struct {
	mirror Catalog
}

// New returns a resolver backed by the given mirror catalog.
func New(m Catalog) *Resolver {
	return &Resolver{mirror: m}
}

// Resolve returns the mirror episode identifier for (title, episodeNumber).
//
// The top-ranked search hit is authoritative. The episode is matched by
// number; when upstream numbering is inconsistent the first index entry is
// used instead of failing, preferring something watchable over nothing.
// Exactly two sequential network calls; no retry at this layer.
func (r *Resolver) Resolve(ctx context.Context, title string, episodeNumber int) (string, error) {
	results, err := r.mirror.Search(ctx, title)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", title, err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("resolve %q: %w", title, ErrNotFound)
	}

	best := pickResult(title, results)
	log.Infof("resolved %q to mirror entry %s", title, best.ID)

	index, err := r.mirror.Info(ctx, best.ID)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", title, err)
	}
	if len(index.Episodes) == 0 {
		return "", fmt.Errorf("resolve %q: %w", title, ErrNotFound)
	}

	episode, found := lo.Find(index.Episodes, func(e mirror.IndexEpisode) bool {
		return e.Number == episodeNumber
	})
	if !found {
		// Upstream numbering is unreliable; fall back to the first entry.
		log.Warnf("episode %d not in index of %s, falling back to first entry", episodeNumber, best.ID)
		episode = index.Episodes[0]
	}

	return episode.ID, nil
}

// pickResult selects the search hit to trust. By default the upstream's
// top-ranked hit is authoritative; with closest-match enabled the hits are
// re-ranked by edit distance to the query.
func pickResult(title string, results []mirror.SearchResult) mirror.SearchResult {
	if !viper.GetBool(key.ResolveClosestMatch) || len(results) == 1 {
		return results[0]
	}

	normalized := strings.ToLower(strings.TrimSpace(title))
	return lo.MinBy(results, func(a, b mirror.SearchResult) bool {
		return levenshtein.Distance(normalized, strings.ToLower(a.Title)) <
			levenshtein.Distance(normalized, strings.ToLower(b.Title))
	})
}
