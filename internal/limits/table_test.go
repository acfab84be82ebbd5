package limits

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, s string) (*Table, error) {
	t.Helper()
	return Parse(strings.NewReader(s))
}

func TestParse_SingleEntry(t *testing.T) {
	tab, err := parseString(t, "ted 5h\n")
	require.NoError(t, err)
	require.NotNil(t, tab)

	limit, ok := tab.Lookup("ted")
	assert.True(t, ok)
	assert.Equal(t, "5h", limit)
}

func TestParse_LastMatchWins(t *testing.T) {
	tab, err := parseString(t, "alice 1h\nbob 30min\nalice 2h\n")
	require.NoError(t, err)
	require.NotNil(t, tab)

	limit, ok := tab.Lookup("alice")
	assert.True(t, ok)
	assert.Equal(t, "2h", limit)

	limit, ok = tab.Lookup("bob")
	assert.True(t, ok)
	assert.Equal(t, "30min", limit)
}

func TestParse_UnknownUser(t *testing.T) {
	tab, err := parseString(t, "alice 1h\n")
	require.NoError(t, err)

	_, ok := tab.Lookup("mallory")
	assert.False(t, ok)
}

func TestParse_CommentsAndBlankLines(t *testing.T) {
	tab, err := parseString(t, "# header comment\n\nted 5h # inline comment\n   \n")
	require.NoError(t, err)
	require.NotNil(t, tab)
	assert.Equal(t, 1, tab.Len())

	limit, ok := tab.Lookup("ted")
	assert.True(t, ok)
	assert.Equal(t, "5h", limit)
}

func TestParse_OnlyCommentsMeansNoTable(t *testing.T) {
	tab, err := parseString(t, "# nothing here\n\n# still nothing\n")
	require.NoError(t, err)
	assert.Nil(t, tab)
}

func TestParse_EmptyInputMeansNoTable(t *testing.T) {
	tab, err := parseString(t, "")
	require.NoError(t, err)
	assert.Nil(t, tab)
}

func TestParse_LeadingWhitespaceIsError(t *testing.T) {
	_, err := parseString(t, "  ted 5h\n")
	assert.Error(t, err)

	_, err = parseString(t, "\tted 5h\n")
	assert.Error(t, err)
}

func TestParse_MissingLimitIsError(t *testing.T) {
	_, err := parseString(t, "ted\n")
	assert.Error(t, err)

	// Limit text that is all comment also counts as missing.
	_, err = parseString(t, "ted    # no limit\n")
	assert.Error(t, err)
}

func TestParse_OversizedLineIsError(t *testing.T) {
	line := "ted " + strings.Repeat("x", 2000) + "\n"
	_, err := parseString(t, line)
	assert.Error(t, err)
}

func TestParse_MultiWordLimit(t *testing.T) {
	tab, err := parseString(t, "ted 1h 30min\n")
	require.NoError(t, err)

	limit, ok := tab.Lookup("ted")
	assert.True(t, ok)
	assert.Equal(t, "1h 30min", limit)
}

func TestParse_FinalLineWithoutNewline(t *testing.T) {
	tab, err := parseString(t, "ted 5h")
	require.NoError(t, err)

	limit, ok := tab.Lookup("ted")
	assert.True(t, ok)
	assert.Equal(t, "5h", limit)
}

func TestLoad_MissingFileMeansNoTable(t *testing.T) {
	tab, err := Load(filepath.Join(t.TempDir(), "nope.conf"))
	require.NoError(t, err)
	assert.Nil(t, tab)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "time_limits.conf")
	require.NoError(t, os.WriteFile(path, []byte("ted 5h\nalice 1h\n"), 0o600))

	tab, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, tab)
	assert.Equal(t, 2, tab.Len())
}

func TestLookup_NilTable(t *testing.T) {
	var tab *Table
	_, ok := tab.Lookup("ted")
	assert.False(t, ok)
	assert.Equal(t, 0, tab.Len())
}
