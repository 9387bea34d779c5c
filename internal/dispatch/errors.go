package dispatch

import "errors"

var (
	// ErrNotOpen is returned when a request is attempted while the link is not open.
	// Callers that can wait should defer the request until the next open edge.
	ErrNotOpen = errors.New("connection not open")
	// ErrSessionEnded is returned for every request after the session was invalidated.
	ErrSessionEnded = errors.New("session ended")
	// ErrBadRequest is returned when a required argument is missing.
	ErrBadRequest = errors.New("bad request")
)
