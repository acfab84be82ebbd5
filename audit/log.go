package audit

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogSink writes audit events to a zerolog logger. Denials and errors are
// logged at warn/error level so they stand out in operational logs.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink returns a sink writing to the global zerolog logger.
func NewLogSink() *LogSink {
	return NewLogSinkWith(log.Logger)
}

// NewLogSinkWith returns a sink writing to the given logger.
func NewLogSinkWith(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "timelimit").Logger()}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Emit(ctx context.Context, e Event) error {
	var ev *zerolog.Event
	switch e.Outcome {
	case "deny":
		ev = s.logger.Warn()
	case "error":
		ev = s.logger.Error()
	default:
		ev = s.logger.Info()
	}

	ev = ev.Str("op", e.Op).Str("outcome", e.Outcome)
	if e.User != "" {
		ev = ev.Str("user", e.User)
	}
	if e.Limit != "" {
		ev = ev.Str("limit", e.Limit)
	}
	if e.Remaining != "" {
		ev = ev.Str("remaining", e.Remaining)
	}
	if e.Path != "" {
		ev = ev.Str("path", e.Path)
	}
	ev.Msg(e.Detail)
	return nil
}

func (s *LogSink) Close() error { return nil }
