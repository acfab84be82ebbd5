package statefile

import (
	"encoding/binary"
	"time"

	"github.com/developingchet/session-timelimit/timespan"
)

const (
	// NameField is the width of the username field: NAME_MAX+1 on Linux.
	// A name that fills the field exactly carries no NUL terminator.
	NameField = 256

	// SlotSize is the fixed on-disk size of one user record: the username
	// field, an 8-byte day timestamp and an 8-byte microsecond count. No
	// delimiters, no length prefixes.
	SlotSize = NameField + 8 + 8
)

// record is the decoded form of one slot.
type record struct {
	name [NameField]byte
	day  int64
	used timespan.Usec
}

// decodeRecord interprets a full slot buffer. The file is host-byte-order
// by design and not portable across machines of differing endianness.
func decodeRecord(buf []byte) record {
	var r record
	copy(r.name[:], buf[:NameField])
	r.day = int64(binary.NativeEndian.Uint64(buf[NameField : NameField+8]))
	r.used = timespan.Usec(binary.NativeEndian.Uint64(buf[NameField+8 : SlotSize]))
	return r
}

// encodeRecord serialises a slot: username left-justified and zero-padded
// (not NUL-terminated at exactly NameField bytes), then day, then usage.
func encodeRecord(username string, day int64, used timespan.Usec) [SlotSize]byte {
	var buf [SlotSize]byte
	copy(buf[:NameField], username)
	binary.NativeEndian.PutUint64(buf[NameField:NameField+8], uint64(day))
	binary.NativeEndian.PutUint64(buf[NameField+8:SlotSize], uint64(used))
	return buf
}

// nameMatches compares the stored username field with a live username using
// bounded-length equality: at most NameField bytes, stopping where both
// sides reach a NUL. Never assumes the stored field is terminated.
func nameMatches(field []byte, username string) bool {
	for i := 0; i < NameField; i++ {
		var b byte
		if i < len(username) {
			b = username[i]
		}
		if field[i] != b {
			return false
		}
		if field[i] == 0 {
			return true
		}
	}
	return true
}

// Today returns the start of the local calendar day as a UTC timestamp.
// The local clock picks the date, but the persisted instant is
// timezone-independent so that changing the host timezone cannot reset or
// extend a daily budget.
func Today() int64 {
	return dayOf(timeNow())
}

func dayOf(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
}

// timeNow is swapped out by tests.
var timeNow = time.Now
