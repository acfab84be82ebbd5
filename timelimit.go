// Package timelimit enforces a per-user daily cumulative login-time budget.
// The host authentication stack calls CheckAccount before granting a
// session, OpenSession when the session starts and CloseSession at
// teardown; usage is accumulated in a host-local state file keyed by
// username and reset implicitly at each day boundary.
package timelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/developingchet/session-timelimit/audit"
	"github.com/developingchet/session-timelimit/internal/config"
	"github.com/developingchet/session-timelimit/internal/limits"
	"github.com/developingchet/session-timelimit/internal/metrics"
	"github.com/developingchet/session-timelimit/internal/statefile"
	"github.com/developingchet/session-timelimit/timespan"
)

// Lifecycle phase names, used in errors and audit events.
const (
	opCheckAccount = "check-account"
	opOpenSession  = "open-session"
	opCloseSession = "close-session"
)

// timeNow is swapped out by tests.
var timeNow = time.Now

// Module is the budget engine bound to its audit sink. The zero
// configuration (New with no options) audits through the global zerolog
// logger.
type Module struct {
	sink audit.Sink
}

// Option configures a Module.
type Option func(*Module)

// WithAuditSink routes audit events to s instead of the default log sink.
func WithAuditSink(s audit.Sink) Option {
	return func(m *Module) { m.sink = s }
}

// New creates a Module.
func New(opts ...Option) *Module {
	m := &Module{sink: audit.NewLogSink()}
	for _, o := range opts {
		o(m)
	}
	return m
}

// pathArgs are the per-invocation overrides passed by the host stack as
// key=value strings.
type pathArgs struct {
	limitsPath string
	statePath  string
}

// parseArgs resolves path arguments against the conventional defaults.
// withConfigPath is false for the close phase, which takes only statepath=.
func parseArgs(args []string, withConfigPath bool) (pathArgs, error) {
	pa := pathArgs{
		limitsPath: config.DefaultLimitsPath,
		statePath:  config.DefaultStatePath,
	}
	for _, a := range args {
		switch {
		case withConfigPath && strings.HasPrefix(a, "path="):
			pa.limitsPath = strings.TrimPrefix(a, "path=")
		case strings.HasPrefix(a, "statepath="):
			pa.statePath = strings.TrimPrefix(a, "statepath=")
		default:
			return pa, fmt.Errorf("unknown module argument: %s", a)
		}
	}
	return pa, nil
}

// CheckAccount is the admission check run before a session is granted.
// When a limit is configured for username and budget remains, the
// remaining time is published under DataRuntimeMax (formatted with
// one-second accuracy) and the decision is Allow. A user with no
// configured limit yields Ignore. Exhausted budget yields Deny with a nil
// error; configuration and system failures yield Deny with the typed error
// (fail closed).
func (m *Module) CheckAccount(ctx context.Context, host Host, username string, args []string) (Decision, error) {
	const op = opCheckAccount

	pa, err := parseArgs(args, true)
	if err != nil {
		return m.failClosed(ctx, username, configErr(op, "%v", err))
	}

	if username == "" {
		return m.failClosed(ctx, username, sessionErr(op, "no username for this session"))
	}

	table, err := limits.Load(pa.limitsPath)
	if err != nil {
		return m.failClosed(ctx, username, configErr(op, "%v", err))
	}
	if table == nil {
		return m.ignore(ctx, username, "no limits table, ignoring")
	}

	spec, ok := table.Lookup(username)
	if !ok {
		return m.ignore(ctx, username, "no limit for user, ignoring")
	}

	log.Info().Str("user", username).Str("limit", spec).Msg("limiting user login time")

	limit, err := timespan.Parse(spec, timespan.PerSec)
	if err != nil {
		return m.failClosed(ctx, username, configErr(op, "invalid time limit %q: %v", spec, err))
	}

	sf, err := statefile.Open(pa.statePath)
	if err != nil {
		metrics.StateFileErrors.Inc()
		return m.failClosed(ctx, username, systemErr(op, "%v", err))
	}
	defer sf.Close()

	used, err := sf.UsedTime(username)
	if err != nil {
		metrics.StateFileErrors.Inc()
		return m.failClosed(ctx, username, systemErr(op, "%v", err))
	}

	if limit <= used {
		d := denyDecision("daily limit exhausted")
		d.Limit, d.Used = limit, used
		metrics.AdmissionDecisions.WithLabelValues("deny").Inc()
		m.emit(ctx, audit.Event{
			Op: op, User: username, Outcome: "deny",
			Limit:  timespan.Format(limit, timespan.PerSec),
			Detail: d.Reason,
		})
		return d, nil
	}

	remaining := limit - used
	formatted := timespan.Format(remaining, timespan.PerSec)
	if err := host.SetData(DataRuntimeMax, formatted); err != nil {
		return m.failClosed(ctx, username, systemErr(op, "publish remaining time: %v", err))
	}

	metrics.AdmissionDecisions.WithLabelValues("allow").Inc()
	metrics.RemainingSeconds.Set(float64(remaining.Seconds()))
	m.emit(ctx, audit.Event{
		Op: op, User: username, Outcome: "allow",
		Limit:     timespan.Format(limit, timespan.PerSec),
		Remaining: formatted,
		Detail:    "session admitted",
	})

	return Decision{
		Outcome:   OutcomeAllow,
		Limit:     limit,
		Used:      used,
		Remaining: remaining,
	}, nil
}

// OpenSession publishes the session start timestamp under DataSessionStart
// for the close phase. Failure to publish is a system error.
func (m *Module) OpenSession(ctx context.Context, host Host, username string, args []string) error {
	start := strconv.FormatInt(timeNow().Unix(), 10)
	if err := host.SetData(DataSessionStart, start); err != nil {
		e := systemErr(opOpenSession, "publish session start: %v", err)
		m.emitError(ctx, opOpenSession, username, e)
		return e
	}
	return nil
}

// CloseSession adds the session's elapsed wall time to the user's recorded
// usage for today. When no remaining-budget value was published for this
// session (no limit is active for this login), it succeeds without
// touching the state file, so unlimited users never grow it.
func (m *Module) CloseSession(ctx context.Context, host Host, username string, args []string) error {
	const op = opCloseSession
	end := timeNow()

	if _, ok, err := host.GetData(DataRuntimeMax); err != nil {
		e := systemErr(op, "read session data: %v", err)
		m.emitError(ctx, op, username, e)
		return e
	} else if !ok {
		return nil
	}

	pa, err := parseArgs(args, false)
	if err != nil {
		e := configErr(op, "%v", err)
		m.emitError(ctx, op, username, e)
		return e
	}

	if username == "" {
		e := sessionErr(op, "no username for this session")
		m.emitError(ctx, op, username, e)
		return e
	}

	startStr, ok, err := host.GetData(DataSessionStart)
	if err != nil {
		e := systemErr(op, "read session data: %v", err)
		m.emitError(ctx, op, username, e)
		return e
	}
	if !ok {
		e := sessionErr(op, "start time missing from session")
		m.emitError(ctx, op, username, e)
		return e
	}
	startUnix, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		e := sessionErr(op, "malformed session start time %q", startStr)
		m.emitError(ctx, op, username, e)
		return e
	}
	start := time.Unix(startUnix, 0)

	// Never compute a negative elapsed time.
	if end.Before(start) {
		e := sessionErr(op, "session start time in the future")
		m.emitError(ctx, op, username, e)
		return e
	}
	elapsed := timespan.Usec(end.Sub(start) / time.Microsecond)

	sf, err := statefile.Open(pa.statePath)
	if err != nil {
		metrics.StateFileErrors.Inc()
		e := systemErr(op, "%v", err)
		m.emitError(ctx, op, username, e)
		return e
	}
	defer sf.Close()

	// UsedTime already discards previous-day usage, so the new total starts
	// from zero after a day boundary.
	used, err := sf.UsedTime(username)
	if err != nil {
		metrics.StateFileErrors.Inc()
		e := systemErr(op, "%v", err)
		m.emitError(ctx, op, username, e)
		return e
	}

	total := timespan.SaturatingAdd(used, elapsed)
	if err := sf.SetUsedTime(username, total); err != nil {
		metrics.StateFileErrors.Inc()
		e := systemErr(op, "%v", err)
		m.emitError(ctx, op, username, e)
		return e
	}

	metrics.SessionsRecorded.Inc()
	m.emit(ctx, audit.Event{
		Op: op, User: username, Outcome: "recorded",
		Path:   pa.statePath,
		Detail: "used " + timespan.Format(total, timespan.PerSec) + " today",
	})
	return nil
}

// ignore records an Ignore outcome: the module has nothing to say about
// this login and no state is touched.
func (m *Module) ignore(ctx context.Context, username, detail string) (Decision, error) {
	metrics.AdmissionDecisions.WithLabelValues("ignore").Inc()
	m.emit(ctx, audit.Event{Op: opCheckAccount, User: username, Outcome: "ignore", Detail: detail})
	return ignoreDecision(), nil
}

// failClosed converts a module error on the admission path into a denial.
// The typed error is still returned for the host's own logging.
func (m *Module) failClosed(ctx context.Context, username string, e *Error) (Decision, error) {
	metrics.AdmissionDecisions.WithLabelValues("error").Inc()
	m.emitError(ctx, opCheckAccount, username, e)
	return denyDecision(e.Err.Error()), e
}

func (m *Module) emitError(ctx context.Context, op, username string, e *Error) {
	m.emit(ctx, audit.Event{Op: op, User: username, Outcome: "error", Detail: e.Err.Error()})
}

func (m *Module) emit(ctx context.Context, e audit.Event) {
	if err := m.sink.Emit(ctx, e); err != nil {
		log.Warn().Err(err).Str("sink", m.sink.Name()).Msg("audit emit failed")
	}
}
