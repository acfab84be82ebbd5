// Package audit routes operational diagnostics (which user, which limit,
// which file) to one or more log sinks. Nothing emitted here is shown to
// the end user being admitted or denied.
package audit

import "context"

// Event is one accounting or admission diagnostic.
type Event struct {
	// Op is the lifecycle phase: "check-account", "open-session" or
	// "close-session".
	Op string

	// User is the acting username, when known.
	User string

	// Outcome summarises the result: allow, deny, ignore, recorded, error.
	Outcome string

	// Limit and Remaining are formatted time spans, set when applicable.
	Limit     string
	Remaining string

	// Path is the config or state file involved, when applicable.
	Path string

	// Detail carries the error text or denial reason.
	Detail string
}

// Sink receives audit events.
type Sink interface {
	// Name returns the sink identifier for logging.
	Name() string

	// Emit records a single event.
	Emit(ctx context.Context, e Event) error

	// Close performs graceful shutdown.
	Close() error
}
