package core

import "errors"

var (
	// ErrStopped is returned when the loop is no longer running.
	ErrStopped = errors.New("event loop stopped")
	// ErrNoChannel is returned when sending without a selected channel.
	ErrNoChannel = errors.New("no channel selected")
	// ErrUnknownCommand is returned for an unsupported command kind.
	ErrUnknownCommand = errors.New("unknown command")
)
