// Package statefile implements the per-user time-accounting store: a single
// host-local binary file holding one fixed-size record per user who has
// logged in, guarded by a whole-file exclusive advisory lock. The layout is
// a 12-byte header followed by a flat array of SlotSize records.
package statefile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/gofrs/flock"

	"github.com/developingchet/session-timelimit/timespan"
)

const (
	headerMagic   = "Format: " // 8 bytes, trailing space included
	formatVersion = 1
	headerSize    = len(headerMagic) + 4
)

// File is an open handle to a state file. Every read or write operation
// takes the exclusive lock for its own duration, so a single handle may be
// shared freely; cross-process callers on the same path serialise the same
// way.
type File struct {
	f    *os.File
	path string
}

// Open opens the state file at path, creating and initialising it when
// absent. Creation uses mode 0600. When the process runs with an effective
// uid of 0 but a different real uid (a setuid transition such as su or
// sudo), the real uid is raised for the open so the file outside the
// caller's normal access remains reachable; the escalation is scoped to
// this call. A file whose header tag or version does not match fails
// closed.
func Open(path string) (*File, error) {
	if err := escalate(); err != nil {
		return nil, fmt.Errorf("statefile: gain privilege: %w", err)
	}

	fl, err := lockPath(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fl.Unlock() }()

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("statefile: open %s: %w", path, err)
	}

	if err := initOrCheckHeader(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("statefile: %s: %w", path, err)
	}

	return &File{f: f, path: path}, nil
}

// initOrCheckHeader writes the header into an empty file, or validates the
// one already present. Called with the lock held.
func initOrCheckHeader(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}

	if info.Size() == 0 {
		var hdr [headerSize]byte
		copy(hdr[:], headerMagic)
		binary.NativeEndian.PutUint32(hdr[len(headerMagic):], formatVersion)
		if n, err := f.WriteAt(hdr[:], 0); err != nil {
			return fmt.Errorf("initialize header: %w", err)
		} else if n != headerSize {
			return fmt.Errorf("initialize header: short write (%d bytes)", n)
		}
		return nil
	}

	var hdr [headerSize]byte
	if _, err := f.ReadAt(hdr[:], 0); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if !bytes.Equal(hdr[:len(headerMagic)], []byte(headerMagic)) ||
		binary.NativeEndian.Uint32(hdr[len(headerMagic):]) != formatVersion {
		return fmt.Errorf("unknown state file format")
	}
	return nil
}

// Close releases the handle. Any lock is already released; each operation
// unlocks before returning.
func (s *File) Close() error {
	return s.f.Close()
}

// Path returns the backing file path.
func (s *File) Path() string {
	return s.path
}

// lockPath takes the whole-file exclusive advisory lock. Each operation
// locks through its own descriptor so that concurrent callers serialise
// in-process exactly as they do cross-process. Acquisition blocks with no
// timeout; Unlock also closes the descriptor.
func lockPath(path string) (*flock.Flock, error) {
	fl := flock.New(path)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("statefile: lock %s: %w", path, err)
	}
	return fl, nil
}

// UsedTime returns the microseconds recorded for username today. A record
// written on an earlier day is stale and reads as zero. A missing record,
// or a trailing slot truncated by a crash mid-write, reads as zero. The
// whole file is locked for the duration of the scan.
func (s *File) UsedTime(username string) (timespan.Usec, error) {
	fl, err := lockPath(s.path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = fl.Unlock() }()

	rec, _, err := s.scan(username)
	if err != nil {
		return 0, err
	}
	if rec == nil || rec.day < Today() {
		return 0, nil
	}
	return rec.used, nil
}

// SetUsedTime records used microseconds for username, stamped with today's
// UTC-normalized midnight. An existing slot for the user is overwritten in
// place, regardless of its stored day; otherwise a new slot is appended.
// Staleness is the caller's concern: the value is written as given.
func (s *File) SetUsedTime(username string, used timespan.Usec) error {
	fl, err := lockPath(s.path)
	if err != nil {
		return err
	}
	defer func() { _ = fl.Unlock() }()

	rec, off, err := s.scan(username)
	if err != nil {
		return err
	}
	if rec == nil {
		// Appending: off is the end of the last complete slot. Cut off any
		// partial trailing slot left by a crash so the array stays aligned.
		if info, err := s.f.Stat(); err == nil && info.Size() > off {
			if err := s.f.Truncate(off); err != nil {
				return fmt.Errorf("statefile: truncate %s: %w", s.Path(), err)
			}
		}
	}

	buf := encodeRecord(username, Today(), used)
	n, err := s.f.WriteAt(buf[:], off)
	if err != nil {
		return fmt.Errorf("statefile: update %s: %w", s.Path(), err)
	}
	if n != SlotSize {
		return fmt.Errorf("statefile: update %s: short write (%d bytes)", s.Path(), n)
	}
	return nil
}

// Entry is one decoded slot, for inspection tooling. Name is the stored
// username with the zero padding stripped.
type Entry struct {
	Name string
	Day  int64
	Used timespan.Usec
}

// Entries returns every complete slot in file order. A partial trailing
// slot is skipped, matching the lookup path.
func (s *File) Entries() ([]Entry, error) {
	fl, err := lockPath(s.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fl.Unlock() }()

	var out []Entry
	off := int64(headerSize)
	var buf [SlotSize]byte
	for {
		n, err := s.f.ReadAt(buf[:], off)
		if n < SlotSize {
			if err == io.EOF || err == io.ErrUnexpectedEOF || err == nil {
				return out, nil
			}
			return nil, fmt.Errorf("statefile: read %s: %w", s.Path(), err)
		}
		rec := decodeRecord(buf[:])
		name := rec.name[:]
		if i := bytes.IndexByte(name, 0); i >= 0 {
			name = name[:i]
		}
		out = append(out, Entry{Name: string(name), Day: rec.day, Used: rec.used})
		off += SlotSize
	}
}

// scan walks the slot array looking for username. It returns the decoded
// record and its offset when found, or (nil, appendOffset) when not: the
// offset just past the last complete slot. A short read at end-of-file is
// not an error; it simply means no record. Called with the lock held.
func (s *File) scan(username string) (*record, int64, error) {
	off := int64(headerSize)
	var buf [SlotSize]byte

	for {
		n, err := s.f.ReadAt(buf[:], off)
		if n < SlotSize {
			if err == io.EOF || err == io.ErrUnexpectedEOF || err == nil {
				return nil, off, nil
			}
			return nil, 0, fmt.Errorf("statefile: read %s: %w", s.Path(), err)
		}
		if nameMatches(buf[:NameField], username) {
			rec := decodeRecord(buf[:])
			return &rec, off, nil
		}
		off += SlotSize
	}
}
