// Package limits parses the per-user daily limit table. The format is
// line-oriented: "<username><whitespace><limit-spec>", with "#" starting a
// comment. Entry order is significant: when a username appears on more than
// one line, the last line wins.
package limits

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxLineLen bounds a single config line, terminator included. Anything
// longer without a newline is rejected rather than silently split.
const maxLineLen = 1024

// Entry is one parsed config line.
type Entry struct {
	User  string
	Limit string
}

// Table is the ordered list of config entries.
type Table struct {
	entries []Entry
}

// Load reads the limits table at path. A missing file returns (nil, nil):
// the module has no configuration and should be ignored. A table with no
// entries also returns nil. Parse errors are returned as-is.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("limits: open %s: %w", path, err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("limits: invalid config file %s: %w", path, err)
	}
	return t, nil
}

// Parse reads the table from r. Returns nil (and no error) when the input
// contains no entries.
func Parse(r io.Reader) (*Table, error) {
	br := bufio.NewReaderSize(r, maxLineLen)
	var entries []Entry
	lineno := 0

	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		eof := err == io.EOF
		if line == "" && eof {
			break
		}
		lineno++

		// Oversized line protection.
		if len(line) > maxLineLen-1 {
			return nil, fmt.Errorf("line %d: exceeds %d bytes", lineno, maxLineLen)
		}

		user, limit, err2 := parseLine(strings.TrimSuffix(line, "\n"))
		if err2 != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err2)
		}
		if user != "" {
			entries = append(entries, Entry{User: user, Limit: limit})
		}

		if eof {
			break
		}
	}

	if len(entries) == 0 {
		return nil, nil
	}
	return &Table{entries: entries}, nil
}

// parseLine splits one line into username and limit spec. Both return
// values are empty for blank and comment-only lines.
func parseLine(line string) (user, limit string, err error) {
	// Strip comments, then trailing whitespace.
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimRight(line, " \t\r")
	if line == "" {
		return "", "", nil
	}

	// No leading whitespace allowed before the username.
	if line[0] == ' ' || line[0] == '\t' {
		return "", "", fmt.Errorf("leading whitespace before username")
	}

	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return "", "", fmt.Errorf("username %q has no limit", line)
	}

	user = line[:i]
	limit = strings.TrimLeft(line[i:], " \t")
	if limit == "" {
		return "", "", fmt.Errorf("username %q has no limit", user)
	}
	return user, limit, nil
}

// Lookup returns the limit spec for user. When the user appears on several
// lines, the last declaration is authoritative.
func (t *Table) Lookup(user string) (string, bool) {
	if t == nil {
		return "", false
	}
	found := ""
	ok := false
	for _, e := range t.entries {
		if e.User == user {
			found = e.Limit
			ok = true
		}
	}
	return found, ok
}

// Len returns the number of entries in declaration order.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns the parsed entries in declaration order.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	return t.entries
}
