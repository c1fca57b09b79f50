package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeLedger creates a progress file with the given content and returns a
// Ledger for it.
func writeLedger(t *testing.T, content string) *Ledger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "progress.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return New(path)
}

func TestLastWinsPerKind(t *testing.T) {
	l := writeLedger(t, `DONE: B1 - set up project
Next: A
DONE: B2 - add endpoint
Next: B
`)

	last, err := l.LastCompleted()
	require.NoError(t, err)
	assert.Equal(t, "B2", last)

	next, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, "B", next)
}

func TestEmptyAndMissing(t *testing.T) {
	l := writeLedger(t, "")

	last, err := l.LastCompleted()
	require.NoError(t, err)
	assert.Empty(t, last)

	next, err := l.Next()
	require.NoError(t, err)
	assert.Empty(t, next)

	hasErr, err := l.HasError()
	require.NoError(t, err)
	assert.False(t, hasErr)

	done, err := l.IsComplete()
	require.NoError(t, err)
	assert.False(t, done)

	// A file the agent has not yet bootstrapped reads as empty.
	missing := New(filepath.Join(t.TempDir(), "nope.txt"))
	next, err = missing.Next()
	require.NoError(t, err)
	assert.Empty(t, next)
}

func TestHasErrorAndText(t *testing.T) {
	l := writeLedger(t, `DONE: F1.1 - x
ERROR: typecheck failed in api.ts
Next: F1.2
`)

	hasErr, err := l.HasError()
	require.NoError(t, err)
	assert.True(t, hasErr)

	text, err := l.ErrorText()
	require.NoError(t, err)
	assert.Equal(t, "typecheck failed in api.ts", text)
}

func TestIsComplete(t *testing.T) {
	l := writeLedger(t, `DONE: F3 - last task
RALPH_COMPLETE
`)
	done, err := l.IsComplete()
	require.NoError(t, err)
	assert.True(t, done)
}

func TestClearErrorPreservesOtherLines(t *testing.T) {
	l := writeLedger(t, `DONE: B1 - one
ERROR: something broke
Next: B2
ERROR: it broke again
# a comment the agent left
`)

	require.NoError(t, l.ClearError())

	data, err := os.ReadFile(l.Path)
	require.NoError(t, err)
	assert.Equal(t, `DONE: B1 - one
Next: B2
# a comment the agent left
`, string(data))

	hasErr, err := l.HasError()
	require.NoError(t, err)
	assert.False(t, hasErr)
}

func TestDescriptionFirstMatchForGroup(t *testing.T) {
	l := writeLedger(t, `DONE: F1.1 - wire login form
DONE: F1.2 - add validation
DONE: F2 - start dashboard
`)

	desc, err := l.Description("F1")
	require.NoError(t, err)
	assert.Equal(t, "wire login form", desc)

	desc, err = l.Description("F2")
	require.NoError(t, err)
	assert.Equal(t, "start dashboard", desc)

	desc, err = l.Description("B9")
	require.NoError(t, err)
	assert.Empty(t, desc)
}

func TestDoneIDIsFirstToken(t *testing.T) {
	l := writeLedger(t, "DONE: B4.2 - refactor the thing - with dashes\n")

	last, err := l.LastCompleted()
	require.NoError(t, err)
	assert.Equal(t, "B4.2", last)

	desc, err := l.Description("B4")
	require.NoError(t, err)
	assert.Equal(t, "refactor the thing - with dashes", desc)
}
