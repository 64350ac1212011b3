// Package mirror provides the client for the mirror catalog: the identity
// and delivery surface used to locate playable episode streams.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/koi-cli/koi/internal/cache"
	"github.com/koi-cli/koi/key"
	"github.com/koi-cli/koi/log"
	"github.com/koi-cli/koi/network"
	"github.com/koi-cli/koi/relay"
	"github.com/spf13/viper"
)

// Client queries the mirror catalog, transparently routing requests through
// the proxy relay when one is configured and falling back to a direct fetch
// when the relay itself is unreachable.
type Client struct {
	baseURL  string
	provider string
	relay    *relay.Client
	useRelay bool
}

// New returns a mirror client bound to the configured base URL and provider namespace.
func New() *Client {
	return &Client{
		baseURL:  viper.GetString(key.MirrorBaseURL),
		provider: viper.GetString(key.MirrorProvider),
		relay:    relay.New(),
		useRelay: viper.GetBool(key.RelayEnable),
	}
}

// NewWithBaseURL returns a mirror client that fetches directly from an explicit base URL.
func NewWithBaseURL(base, provider string) *Client {
	return &Client{baseURL: base, provider: provider}
}

// fetchJSON retrieves endpoint into target, preferring the relay.
// Relay unavailability is recovered here and never surfaced to callers.
func (c *Client) fetchJSON(ctx context.Context, endpoint string, target any) error {
	if c.useRelay && c.relay != nil {
		body, err := c.relay.Invoke(ctx, relay.Envelope{URL: endpoint})
		if err == nil {
			if err := json.Unmarshal(body, target); err != nil {
				return fmt.Errorf("decode relayed %s: %w", endpoint, err)
			}
			return nil
		}
		if !errors.Is(err, relay.ErrUnavailable) {
			return err
		}
		log.Warnf("relay unreachable, fetching %s directly: %v", endpoint, err)
	}

	return network.GetJSON(ctx, endpoint, target)
}

// Search returns the ranked mirror entries matching a title query.
// Results are cached on disk; the upstream ranking is preserved.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	cacheKey := cache.GenerateKey(query, c.provider+"_search")
	var cached []SearchResult
	if cache.Read(cacheKey, &cached) {
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/anime/%s/%s", c.baseURL, c.provider, url.PathEscape(query))

	var payload struct {
		Results []SearchResult `json:"results"`
	}
	if err := c.fetchJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("mirror search: %w", err)
	}

	if len(payload.Results) > 0 {
		_ = cache.Write(cacheKey, payload.Results)
	}

	return payload.Results, nil
}

// Info fetches the full episode index of one mirror entry. Indexes are
// cached on disk since they change at most once per airing day.
func (c *Client) Info(ctx context.Context, mirrorID string) (*EpisodeIndex, error) {
	cacheKey := cache.GenerateKey(mirrorID, c.provider+"_info")
	var cached *EpisodeIndex
	if cache.Read(cacheKey, &cached) && cached != nil {
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/anime/%s/info/%s", c.baseURL, c.provider, url.PathEscape(mirrorID))

	var index EpisodeIndex
	if err := c.fetchJSON(ctx, endpoint, &index); err != nil {
		return nil, fmt.Errorf("mirror info: %w", err)
	}

	if len(index.Episodes) > 0 {
		_ = cache.Write(cacheKey, &index)
	}

	return &index, nil
}

// Servers lists the candidate delivery servers for an episode, in upstream
// order. An empty list is a valid "no mirrors available" answer.
func (c *Client) Servers(ctx context.Context, episodeID string) ([]Server, error) {
	endpoint := fmt.Sprintf("%s/anime/%s/servers/%s", c.baseURL, c.provider, url.PathEscape(episodeID))

	var payload struct {
		Results []Server `json:"results"`
	}
	if err := c.fetchJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("mirror servers: %w", err)
	}

	return payload.Results, nil
}

// Sources fetches the playable variants and caption tracks for an episode,
// optionally scoped to one named server. Never cached: stream links expire.
func (c *Client) Sources(ctx context.Context, episodeID, serverName string) (*SourceBundle, error) {
	endpoint := fmt.Sprintf("%s/anime/%s/watch/%s", c.baseURL, c.provider, url.PathEscape(episodeID))
	if serverName != "" {
		endpoint += "?server=" + url.QueryEscape(serverName)
	}

	var bundle SourceBundle
	if err := c.fetchJSON(ctx, endpoint, &bundle); err != nil {
		return nil, fmt.Errorf("mirror sources: %w", err)
	}

	return &bundle, nil
}
