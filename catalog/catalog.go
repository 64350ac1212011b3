// Package catalog provides a read-only client for the metadata catalog API.
//
// The catalog is consumed purely as a black box of typed records: search by
// text, fetch details by identifier, and list episodes by identifier and
// page. Its identifier space is unrelated to the mirror namespace used for
// playback.
package catalog

import (
	"context"
	"fmt"
	"net/url"

	"github.com/koi-cli/koi/key"
	"github.com/koi-cli/koi/network"
	"github.com/spf13/viper"
)

// Client issues read-only queries against the metadata catalog.
// The zero value is not usable; construct with New.
type Client struct {
	baseURL string
}

// New returns a catalog client bound to the configured base URL.
func New() *Client {
	return &Client{baseURL: viper.GetString(key.CatalogBaseURL)}
}

// NewWithBaseURL returns a catalog client bound to an explicit base URL.
func NewWithBaseURL(base string) *Client {
	return &Client{baseURL: base}
}

// dataEnvelope mirrors the catalog's standard {"data": ...} response wrapper.
type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

// Search returns catalog entries matching a free-text query.
func (c *Client) Search(ctx context.Context, query string, page int) ([]*Anime, error) {
	endpoint := fmt.Sprintf("%s/anime?q=%s&page=%d", c.baseURL, url.QueryEscape(query), page)

	var env dataEnvelope[[]*Anime]
	if err := network.GetJSON(ctx, endpoint, &env); err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}
	return env.Data, nil
}

// Top returns the catalog's top-ranked entries for the given page.
func (c *Client) Top(ctx context.Context, page int) ([]*Anime, error) {
	endpoint := fmt.Sprintf("%s/top/anime?page=%d", c.baseURL, page)

	var env dataEnvelope[[]*Anime]
	if err := network.GetJSON(ctx, endpoint, &env); err != nil {
		return nil, fmt.Errorf("catalog top: %w", err)
	}
	return env.Data, nil
}

// SeasonNow returns entries airing in the current season.
func (c *Client) SeasonNow(ctx context.Context, page int) ([]*Anime, error) {
	endpoint := fmt.Sprintf("%s/seasons/now?page=%d", c.baseURL, page)

	var env dataEnvelope[[]*Anime]
	if err := network.GetJSON(ctx, endpoint, &env); err != nil {
		return nil, fmt.Errorf("catalog season: %w", err)
	}
	return env.Data, nil
}

// Details fetches the full record for a single catalog entry.
func (c *Client) Details(ctx context.Context, id int) (*Details, error) {
	endpoint := fmt.Sprintf("%s/anime/%d", c.baseURL, id)

	var env dataEnvelope[*Details]
	if err := network.GetJSON(ctx, endpoint, &env); err != nil {
		return nil, fmt.Errorf("catalog details: %w", err)
	}
	return env.Data, nil
}

// Episodes lists one page of episode records for a catalog entry.
func (c *Client) Episodes(ctx context.Context, id, page int) ([]*Episode, error) {
	endpoint := fmt.Sprintf("%s/anime/%d/episodes?page=%d", c.baseURL, id, page)

	var env dataEnvelope[[]*Episode]
	if err := network.GetJSON(ctx, endpoint, &env); err != nil {
		return nil, fmt.Errorf("catalog episodes: %w", err)
	}
	return env.Data, nil
}
