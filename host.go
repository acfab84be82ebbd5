package timelimit

import "sync"

// Data keys published for the host stack. DataRuntimeMax deliberately uses
// the name a systemd-aware session manager consumes as the ceiling for the
// new session.
const (
	DataSessionStart = "timelimit.session_start"
	DataRuntimeMax   = "systemd.runtime_max_sec"
)

// Host is the per-session named-value registry supplied by the
// authentication stack. Values published during one lifecycle phase (the
// admission check, session open) are read back by a later one (session
// close).
type Host interface {
	// SetData publishes value under key for the rest of this session.
	SetData(key, value string) error

	// GetData returns the value published under key, and whether one was
	// published at all.
	GetData(key string) (string, bool, error)
}

// MemHost is an in-process Host for stacks that run all lifecycle phases in
// a single process. The zero value is ready to use.
type MemHost struct {
	mu   sync.RWMutex
	data map[string]string
}

func (h *MemHost) SetData(key, value string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.data == nil {
		h.data = make(map[string]string)
	}
	h.data[key] = value
	return nil
}

func (h *MemHost) GetData(key string) (string, bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.data[key]
	return v, ok, nil
}
