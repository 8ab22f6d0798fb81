package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCursorStoreRoundTrip(t *testing.T) {
	store, err := NewFileCursorStore(t.TempDir())
	require.NoError(t, err)

	cursor, err := store.Load("INBOX")
	require.NoError(t, err)
	assert.Equal(t, "", cursor, "missing cursor reads as empty, not as an error")

	require.NoError(t, store.Save("INBOX", "12345"))
	cursor, err = store.Load("INBOX")
	require.NoError(t, err)
	assert.Equal(t, "12345", cursor)

	require.NoError(t, store.Save("INBOX", "12400"))
	cursor, err = store.Load("INBOX")
	require.NoError(t, err)
	assert.Equal(t, "12400", cursor, "save overwrites the previous cursor")
}

func TestFileCursorStoreIsPerFolder(t *testing.T) {
	store, err := NewFileCursorStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("INBOX", "a"))
	require.NoError(t, store.Save("SPAM", "b"))

	inbox, _ := store.Load("INBOX")
	spam, _ := store.Load("SPAM")
	assert.Equal(t, "a", inbox)
	assert.Equal(t, "b", spam)
}

func TestFileCursorStoreDelete(t *testing.T) {
	store, err := NewFileCursorStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("INBOX", "a"))
	require.NoError(t, store.Delete("INBOX"))

	cursor, err := store.Load("INBOX")
	require.NoError(t, err)
	assert.Equal(t, "", cursor)

	assert.NoError(t, store.Delete("INBOX"), "deleting a missing cursor is a no-op")
}

func TestFileCursorStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileCursorStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save("INBOX", "a"))

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches, "writes go through rename, never a lingering temp file")
}

func TestFileCursorStoreTrimsWhitespace(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileCursorStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "cursor_inbox.txt"), []byte("12345\n"), 0o644))
	cursor, err := store.Load("INBOX")
	require.NoError(t, err)
	assert.Equal(t, "12345", cursor)
}

func TestNewCursorStoreBackendSelection(t *testing.T) {
	store, err := NewCursorStore("file", t.TempDir(), nil)
	require.NoError(t, err)
	assert.NotNil(t, store)

	_, err = NewCursorStore("postgres", "", nil)
	require.Error(t, err, "postgres backend needs a database connection")

	_, err = NewCursorStore("bogus", "", nil)
	require.Error(t, err)
}
