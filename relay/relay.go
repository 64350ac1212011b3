// Package relay implements the client side of the pass-through request relay.
//
// The relay forwards an opaque {url, init} envelope to the upstream and
// returns the response body and content type verbatim. It carries no domain
// logic; it exists solely to reach origins that refuse direct access.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/koi-cli/koi/key"
	"github.com/koi-cli/koi/network"
	"github.com/spf13/viper"
)

// ErrUnavailable reports that the relay itself could not be reached or
// refused the envelope. Callers are expected to fall back to a direct fetch.
var ErrUnavailable = errors.New("relay unavailable")

// RequestInit carries the optional upstream request parameters of an envelope.
type RequestInit struct {
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// Envelope is the opaque request description forwarded to the relay.
type Envelope struct {
	URL  string       `json:"url"`
	Init *RequestInit `json:"init,omitempty"`
}

// errorEnvelope is the relay's failure response shape.
type errorEnvelope struct {
	Error string `json:"error"`
}

// Client invokes the configured relay endpoint.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

// New returns a relay client bound to the configured endpoint.
// A client with an empty endpoint reports ErrUnavailable on every call.
func New() *Client {
	return &Client{
		endpoint: viper.GetString(key.RelayURL),
		token:    viper.GetString(key.RelayToken),
		http:     network.Client,
	}
}

// NewWithEndpoint returns a relay client bound to an explicit endpoint.
func NewWithEndpoint(endpoint string) *Client {
	return &Client{endpoint: endpoint, http: network.Client}
}

// Invoke forwards the envelope and returns the upstream body verbatim.
// Relay-level failures are reported as ErrUnavailable so callers can
// distinguish "relay broken" from "upstream said no".
func (c *Client) Invoke(ctx context.Context, envelope Envelope) ([]byte, error) {
	if c.endpoint == "" {
		return nil, ErrUnavailable
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("encode relay envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var relayErr errorEnvelope
		if json.Unmarshal(body, &relayErr) == nil && relayErr.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, relayErr.Error)
		}
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	return body, nil
}
