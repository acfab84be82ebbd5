package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// JournalSink writes audit events to the systemd journal, the nearest
// equivalent of the syslog channel an authentication stack traditionally
// uses. On hosts without a journal socket Emit is a no-op.
type JournalSink struct {
	ident string
}

// NewJournalSink returns a journal sink tagging entries with ident
// (SYSLOG_IDENTIFIER).
func NewJournalSink(ident string) *JournalSink {
	if ident == "" {
		ident = "session-timelimit"
	}
	return &JournalSink{ident: ident}
}

func (s *JournalSink) Name() string { return "journal" }

func (s *JournalSink) Emit(ctx context.Context, e Event) error {
	if !journal.Enabled() {
		return nil
	}

	pri := journal.PriInfo
	switch e.Outcome {
	case "deny":
		pri = journal.PriWarning
	case "error":
		pri = journal.PriErr
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "%s: %s", e.Op, e.Outcome)
	if e.User != "" {
		fmt.Fprintf(&msg, " user=%s", e.User)
	}
	if e.Detail != "" {
		fmt.Fprintf(&msg, ": %s", e.Detail)
	}

	fields := map[string]string{
		"SYSLOG_IDENTIFIER": s.ident,
		"TIMELIMIT_OP":      e.Op,
		"TIMELIMIT_OUTCOME": e.Outcome,
	}
	if e.User != "" {
		fields["TIMELIMIT_USER"] = e.User
	}
	if e.Limit != "" {
		fields["TIMELIMIT_LIMIT"] = e.Limit
	}
	if e.Remaining != "" {
		fields["TIMELIMIT_REMAINING"] = e.Remaining
	}
	if e.Path != "" {
		fields["TIMELIMIT_PATH"] = e.Path
	}

	return journal.Send(msg.String(), pri, fields)
}

func (s *JournalSink) Close() error { return nil }
