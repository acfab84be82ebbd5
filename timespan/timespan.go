// Package timespan implements microsecond-resolution time spans with the
// systemd-compatible textual syntax used by the per-user limits table
// ("30min", "1h 30min", "infinity", ...) and the saturating arithmetic the
// accounting engine relies on.
package timespan

import (
	"fmt"
	"math"
	"strings"
)

// Usec is a count of microseconds.
type Usec uint64

// Infinity is the sentinel for an unbounded span. Arithmetic saturates here
// instead of wrapping.
const Infinity Usec = math.MaxUint64

// Unit multipliers.
const (
	PerUsec   Usec = 1
	PerMsec   Usec = 1000 * PerUsec
	PerSec    Usec = 1000 * PerMsec
	PerMinute Usec = 60 * PerSec
	PerHour   Usec = 60 * PerMinute
	PerDay    Usec = 24 * PerHour
	PerWeek   Usec = 7 * PerDay
	PerMonth  Usec = 2629800 * PerSec // 30.4375 days, the systemd convention
	PerYear   Usec = 31557600 * PerSec
)

// unitTable maps suffixes to multipliers. Longer names come first so that
// e.g. "minutes" is not consumed as "min" + trailing garbage. "M" is months,
// "m" is minutes.
var unitTable = []struct {
	suffix string
	usec   Usec
}{
	{"seconds", PerSec},
	{"second", PerSec},
	{"sec", PerSec},
	{"s", PerSec},
	{"minutes", PerMinute},
	{"minute", PerMinute},
	{"min", PerMinute},
	{"months", PerMonth},
	{"month", PerMonth},
	{"M", PerMonth},
	{"msec", PerMsec},
	{"ms", PerMsec},
	{"m", PerMinute},
	{"hours", PerHour},
	{"hour", PerHour},
	{"hr", PerHour},
	{"h", PerHour},
	{"days", PerDay},
	{"day", PerDay},
	{"d", PerDay},
	{"weeks", PerWeek},
	{"week", PerWeek},
	{"w", PerWeek},
	{"years", PerYear},
	{"year", PerYear},
	{"y", PerYear},
	{"usec", PerUsec},
	{"us", PerUsec},
	{"µs", PerUsec},
}

// SaturatingAdd returns a+b, clamped at Infinity.
func SaturatingAdd(a, b Usec) Usec {
	if Infinity-a < b {
		return Infinity
	}
	return a + b
}

// Parse converts a systemd-style time span to microseconds. defaultUnit is
// applied to bare numbers. Accepted forms include "5h", "1h 30min",
// "12.5min", "300" and "infinity". Negative values and values that would
// overflow are rejected.
func Parse(s string, defaultUnit Usec) (Usec, error) {
	if defaultUnit == 0 {
		return 0, fmt.Errorf("timespan: zero default unit")
	}

	p := strings.TrimLeft(s, " \t\n\r")
	if rest, ok := cutPrefix(p, "infinity"); ok {
		if strings.TrimLeft(rest, " \t\n\r") != "" {
			return 0, fmt.Errorf("timespan: invalid span %q", s)
		}
		return Infinity, nil
	}

	var total Usec
	something := false

	for {
		p = strings.TrimLeft(p, " \t\n\r")
		if p == "" {
			if !something {
				return 0, fmt.Errorf("timespan: invalid span %q", s)
			}
			break
		}

		// Don't allow "-0".
		if p[0] == '-' {
			return 0, fmt.Errorf("timespan: negative span %q", s)
		}

		whole, nd, rest := splitDigits(p)
		var frac string
		if strings.HasPrefix(rest, ".") {
			frac, _, rest = splitDigits(rest[1:])
			// Don't allow "3.sec", "0.-0" or a bare trailing point.
			if frac == "" {
				return 0, fmt.Errorf("timespan: invalid span %q", s)
			}
		} else if nd == 0 {
			return 0, fmt.Errorf("timespan: invalid span %q", s)
		}

		multiplier := defaultUnit
		trimmed := strings.TrimLeft(rest, " \t\n\r")
		if next, unit, ok := matchUnit(trimmed); ok {
			multiplier = unit
			p = next
		} else if trimmed == rest && rest != "" {
			// Don't allow "12.34.56", but accept "12.34 .56" or "12.34s.56".
			return 0, fmt.Errorf("timespan: invalid span %q", s)
		} else {
			p = trimmed
		}

		var l uint64
		for i := 0; i < len(whole); i++ {
			d := uint64(whole[i] - '0')
			if l > (math.MaxUint64-d)/10 {
				return 0, fmt.Errorf("timespan: span %q out of range", s)
			}
			l = l*10 + d
		}

		if Usec(l) >= Infinity/multiplier {
			return 0, fmt.Errorf("timespan: span %q out of range", s)
		}
		k := Usec(l) * multiplier
		if k >= Infinity-total {
			return 0, fmt.Errorf("timespan: span %q out of range", s)
		}
		total += k

		// Fractional digits contribute multiplier/10, /100, ...
		m := multiplier / 10
		for i := 0; i < len(frac); i++ {
			k = Usec(frac[i]-'0') * m
			if k >= Infinity-total {
				return 0, fmt.Errorf("timespan: span %q out of range", s)
			}
			total += k
			m /= 10
		}

		something = true
	}

	return total, nil
}

// formatTable drives Format, largest unit first.
var formatTable = []struct {
	suffix string
	usec   Usec
}{
	{"y", PerYear},
	{"month", PerMonth},
	{"w", PerWeek},
	{"d", PerDay},
	{"h", PerHour},
	{"min", PerMinute},
	{"s", PerSec},
	{"ms", PerMsec},
	{"us", PerUsec},
}

// Format renders u as a multi-unit span ("1h 30min"). Units smaller than
// accuracy are dropped; pass PerSec for whole-second output. Infinity
// renders as "infinity" and zero as "0".
func Format(u Usec, accuracy Usec) string {
	if u == Infinity {
		return "infinity"
	}
	if accuracy == 0 {
		accuracy = 1
	}
	if u < accuracy {
		return "0"
	}

	var b strings.Builder
	for _, e := range formatTable {
		if e.usec < accuracy {
			break
		}
		n := u / e.usec
		if n == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d%s", n, e.suffix)
		u -= n * e.usec
	}
	if b.Len() == 0 {
		return "0"
	}
	return b.String()
}

// FromSeconds converts whole seconds to microseconds, saturating.
func FromSeconds(s uint64) Usec {
	if Usec(s) >= Infinity/PerSec {
		return Infinity
	}
	return Usec(s) * PerSec
}

// Seconds returns the span truncated to whole seconds.
func (u Usec) Seconds() uint64 { return uint64(u / PerSec) }

func splitDigits(s string) (digits string, n int, rest string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], i, s[i:]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func matchUnit(s string) (rest string, usec Usec, ok bool) {
	for _, e := range unitTable {
		if r, found := cutPrefix(s, e.suffix); found {
			return r, e.usec, true
		}
	}
	return s, 0, false
}

func cutPrefix(s, prefix string) (string, bool) {
	if strings.HasPrefix(s, prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
