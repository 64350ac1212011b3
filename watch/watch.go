// Package watch implements the fallback controller: the state machine that
// turns a watch request into something playable, advancing across mirror
// servers until one works or every candidate is exhausted.
package watch

import (
	"errors"
	"fmt"
)

// User-visible terminal failures. Everything else the pipeline can go
// wrong with is recovered locally by advancing the server cursor.
var (
	// ErrInvalidQuery reports a malformed watch request. Terminal: there is
	// nothing to resolve.
	ErrInvalidQuery = errors.New("invalid watch request")

	// ErrAllServersExhausted reports that every candidate server failed.
	ErrAllServersExhausted = errors.New("no server could play this episode")
)

// Locally recovered failures, surfaced only through logs and transitions.
var (
	errServerListEmpty   = errors.New("no servers available")
	errSourceFetchFailed = errors.New("source fetch failed")
)

// Query is a single watch request. It is input, never persisted.
type Query struct {
	Title   string
	Episode int
}

// Validate reports whether the query is well-formed enough to resolve.
func (q Query) Validate() error {
	if q.Title == "" || q.Episode <= 0 {
		return ErrInvalidQuery
	}
	return nil
}

func (q Query) String() string {
	return fmt.Sprintf("%s episode %d", q.Title, q.Episode)
}

// Status is the controller's position in the state machine. Transitions
// only move forward; there is no path back to Resolving short of a brand
// new query, which replaces the controller wholesale.
type Status int

const (
	StatusResolving Status = iota + 1
	StatusFetching
	StatusPlaying
	StatusSwitchingServer
	StatusExhausted
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusResolving:
		return "resolving episode"
	case StatusFetching:
		return "fetching sources"
	case StatusPlaying:
		return "playing"
	case StatusSwitchingServer:
		return "switching server"
	case StatusExhausted:
		return "all servers exhausted"
	case StatusInvalid:
		return "invalid request"
	default:
		return "unknown"
	}
}

// Terminal reports whether the controller has reached a final state.
func (s Status) Terminal() bool {
	return s == StatusExhausted || s == StatusInvalid
}
