package audit

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSink_EmitLevels(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSinkWith(zerolog.New(&buf))

	require.NoError(t, sink.Emit(context.Background(), Event{
		Op: "check-account", User: "ted", Outcome: "allow",
		Limit: "5h", Remaining: "3h", Detail: "admitted",
	}))
	assert.Contains(t, buf.String(), `"level":"info"`)
	assert.Contains(t, buf.String(), `"user":"ted"`)
	assert.Contains(t, buf.String(), `"remaining":"3h"`)

	buf.Reset()
	require.NoError(t, sink.Emit(context.Background(), Event{
		Op: "check-account", User: "ted", Outcome: "deny", Detail: "budget exhausted",
	}))
	assert.Contains(t, buf.String(), `"level":"warn"`)

	buf.Reset()
	require.NoError(t, sink.Emit(context.Background(), Event{
		Op: "close-session", Outcome: "error", Detail: "boom",
	}))
	assert.Contains(t, buf.String(), `"level":"error"`)
}

type recordingSink struct {
	events []Event
	err    error
}

func (r *recordingSink) Name() string { return "recording" }
func (r *recordingSink) Emit(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}
func (r *recordingSink) Close() error { return nil }

func TestMultiSink_DeliversToAll(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{err: errors.New("sink b down")}
	c := &recordingSink{}
	m := NewMultiSink(a, b, c)

	err := m.Emit(context.Background(), Event{Op: "check-account", Outcome: "ignore"})
	assert.EqualError(t, err, "sink b down")

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
	assert.Len(t, c.events, 1, "later sinks still receive the event")
	require.NoError(t, m.Close())
}

func TestJournalSink_NoJournalIsNoop(t *testing.T) {
	// In most test environments there is no journal socket; Emit must be a
	// clean no-op either way.
	sink := NewJournalSink("")
	assert.Equal(t, "journal", sink.Name())
	assert.NoError(t, sink.Close())
}
