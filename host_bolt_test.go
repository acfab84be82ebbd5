package timelimit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBoltHost(t *testing.T, session string, ttl time.Duration) (*BoltHost, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.db")
	h, err := OpenBoltHost(path, session, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h, path
}

func TestBoltHost_SetGet(t *testing.T) {
	h, _ := newBoltHost(t, "s1", time.Hour)

	require.NoError(t, h.SetData(DataRuntimeMax, "3h"))

	v, ok, err := h.GetData(DataRuntimeMax)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "3h", v)

	_, ok, err = h.GetData(DataSessionStart)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBoltHost_EmptySessionIDRejected(t *testing.T) {
	_, err := OpenBoltHost(filepath.Join(t.TempDir(), "registry.db"), "", time.Hour)
	require.Error(t, err)
}

func TestBoltHost_SurvivesReopen(t *testing.T) {
	h, path := newBoltHost(t, "s1", time.Hour)
	require.NoError(t, h.SetData(DataSessionStart, "1700000000"))
	require.NoError(t, h.Close())

	// Open the registry again as the close phase would, in a new handle.
	h2, err := OpenBoltHost(path, "s1", time.Hour)
	require.NoError(t, err)
	defer h2.Close()

	v, ok, err := h2.GetData(DataSessionStart)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1700000000", v)
}

func TestBoltHost_SessionsAreIsolated(t *testing.T) {
	h1, _ := newBoltHost(t, "s1", time.Hour)
	require.NoError(t, h1.SetData(DataRuntimeMax, "3h"))

	h2 := &BoltHost{db: h1.db, session: "s2", ttl: time.Hour}
	_, ok, err := h2.GetData(DataRuntimeMax)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBoltHost_ExpiredSessionReadsEmpty(t *testing.T) {
	h, _ := newBoltHost(t, "s1", -time.Second)
	require.NoError(t, h.SetData(DataRuntimeMax, "3h"))

	_, ok, err := h.GetData(DataRuntimeMax)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBoltHost_End(t *testing.T) {
	h, _ := newBoltHost(t, "s1", time.Hour)
	require.NoError(t, h.SetData(DataRuntimeMax, "3h"))
	require.NoError(t, h.End())

	_, ok, err := h.GetData(DataRuntimeMax)
	require.NoError(t, err)
	assert.False(t, ok)

	// Ending an already-ended session is fine.
	require.NoError(t, h.End())
}

func TestBoltHost_PruneCollectsExpired(t *testing.T) {
	h, _ := newBoltHost(t, "stale", -time.Second)
	require.NoError(t, h.SetData(DataRuntimeMax, "3h"))

	live := &BoltHost{db: h.db, session: "live", ttl: time.Hour}
	require.NoError(t, live.SetData(DataRuntimeMax, "1h"))

	require.NoError(t, h.Prune())

	v, ok, err := live.GetData(DataRuntimeMax)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1h", v)
}
