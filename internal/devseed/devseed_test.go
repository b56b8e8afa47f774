package devseed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadFileSeedJSON(t *testing.T) {
	path := writeTempFile(t, "seed.json", []byte(`[
		{"path":"/docs/a.txt","content":"hello"},
		{"path":"/img/b.bin","base64":"AAEC","raw":true,"last_modified":"2024-01-02T03:04:05Z"}
	]`))

	entries, err := LoadFileSeed(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	data, err := entries[0].Bytes()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	data, err = entries[1].Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, data)
	assert.True(t, entries[1].Raw)
	require.NotNil(t, entries[1].LastModified)
	assert.True(t, entries[1].LastModified.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestLoadFileSeedYAML(t *testing.T) {
	path := writeTempFile(t, "seed.yaml", []byte(`
- path: /notes/todo.md
  content: "# todo"
- path: /links/site.html
  url: http://example.com/index.html
`))

	entries, err := LoadFileSeed(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/notes/todo.md", entries[0].Path)
	assert.Equal(t, "http://example.com/index.html", entries[1].URL)
}

func TestLoadFileSeedErrors(t *testing.T) {
	_, err := LoadFileSeed(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadFileSeed(writeTempFile(t, "nopath.json", []byte(`[{"content":"x"}]`)))
	assert.Error(t, err)

	_, err = FileSeedEntry{Path: "/x", Content: "a", Base64: "YQ=="}.Bytes()
	assert.Error(t, err)

	_, err = FileSeedEntry{Path: "/x", Base64: "!!"}.Bytes()
	assert.Error(t, err)
}
