// Package notify holds the user-facing sinks the sync layer calls into:
// toast-style notices and the redirect to the unauthenticated entry point.
package notify

import (
	"sync"

	"github.com/rs/zerolog"
)

// Notifier shows success, warning and error notices to the user.
type Notifier interface {
	Success(msg string)
	Warn(msg string)
	Error(msg string)
}

// Navigator leaves the authenticated part of the application.
type Navigator interface {
	RedirectToLogin()
}

// Logger renders notices as log lines.
type Logger struct {
	log *zerolog.Logger
}

// NewLogger returns a Notifier writing to logger.
func NewLogger(logger *zerolog.Logger) *Logger {
	return &Logger{log: logger}
}

func (l *Logger) Success(msg string) { l.log.Info().Str("notice", "success").Msg(msg) }
func (l *Logger) Warn(msg string)    { l.log.Warn().Str("notice", "warning").Msg(msg) }
func (l *Logger) Error(msg string)   { l.log.Error().Str("notice", "error").Msg(msg) }

// Exit is a Navigator for headless runs: redirecting ends the run.
type Exit struct {
	log    *zerolog.Logger
	cancel func()
	once   sync.Once
}

// NewExit returns a Navigator that calls cancel on the first redirect.
func NewExit(logger *zerolog.Logger, cancel func()) *Exit {
	return &Exit{log: logger, cancel: cancel}
}

// RedirectToLogin logs every redirect and stops the run once.
func (e *Exit) RedirectToLogin() {
	e.log.Warn().Msg("session unusable, redirecting to login")
	e.once.Do(e.cancel)
}
