package timelimit

import "github.com/developingchet/session-timelimit/timespan"

// Outcome is the result class of an admission check.
type Outcome int

const (
	// OutcomeIgnore means no limit is configured for the user (or no limits
	// table exists at all); the surrounding stack proceeds as if this module
	// were not present.
	OutcomeIgnore Outcome = iota

	// OutcomeAllow admits the session with a remaining-budget ceiling.
	OutcomeAllow

	// OutcomeDeny refuses the session: budget exhausted, or a configuration
	// or system failure (fail closed).
	OutcomeDeny
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeDeny:
		return "deny"
	default:
		return "ignore"
	}
}

// Decision is the admission-check verdict.
type Decision struct {
	Outcome Outcome

	// Limit and Used are filled for allow and over-budget deny outcomes.
	Limit timespan.Usec
	Used  timespan.Usec

	// Remaining is the session ceiling, valid only for OutcomeAllow. The
	// same value, formatted with one-second accuracy, is published under
	// DataRuntimeMax for the host stack.
	Remaining timespan.Usec

	// Reason is the human-readable denial reason, for the operational log.
	Reason string
}

func ignoreDecision() Decision { return Decision{Outcome: OutcomeIgnore} }

func denyDecision(reason string) Decision {
	return Decision{Outcome: OutcomeDeny, Reason: reason}
}
