package csvinput

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "projects.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRead(t *testing.T) {
	path := writeCSV(t, "name,url\n"+
		"tools,https://gitlab.example.com/platform/tools.git\n"+
		"web,https://gitlab.example.com/platform/sub/web\n")

	entries, err := Read(path, "https://gitlab.example.com")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "platform/tools", entries[0].FullPath, "the .git suffix is dropped")
	assert.False(t, entries[0].HostMismatch)
	assert.Equal(t, "platform/sub/web", entries[1].FullPath)
}

func TestReadColumnOrderIndependent(t *testing.T) {
	path := writeCSV(t, "url,owner\nhttps://gitlab.example.com/a/b.git,someone\n")

	entries, err := Read(path, "https://gitlab.example.com")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a/b", entries[0].FullPath)
}

func TestReadHostMismatch(t *testing.T) {
	path := writeCSV(t, "url\nhttps://other-git.example.org/a/b.git\n")

	entries, err := Read(path, "https://gitlab.example.com")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].HostMismatch)
}

func TestReadSkipsBlankRows(t *testing.T) {
	path := writeCSV(t, "url\n\nhttps://gitlab.example.com/a/b\n   \n")

	entries, err := Read(path, "https://gitlab.example.com")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadMissingURLColumn(t *testing.T) {
	path := writeCSV(t, "name,owner\ntools,someone\n")

	_, err := Read(path, "https://gitlab.example.com")
	assert.ErrorContains(t, err, "no url column")
}

func TestReadEmptyFile(t *testing.T) {
	path := writeCSV(t, "")

	_, err := Read(path, "https://gitlab.example.com")
	assert.Error(t, err)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.csv"), "https://gitlab.example.com")
	assert.Error(t, err)
}
