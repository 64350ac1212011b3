// Package tui provides the primary terminal user interface implementation.
package tui

// state represents a distinct screen within the interface.
type state int

const (
	watchState state = iota + 1
	errorState
)
