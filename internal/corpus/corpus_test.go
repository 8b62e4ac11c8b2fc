package corpus

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa-backend/internal/storage"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func loadFromDir(t *testing.T, dir string, limit int) *Corpus {
	t.Helper()
	store, err := storage.NewLocalObjectStore(dir)
	require.NoError(t, err)

	shared, err := Load(context.Background(), store, limit)
	require.NoError(t, err)
	return shared
}

func TestLoadLocalDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "Alpha document content.")
	writeFile(t, dir, "b.md", "# Beta\n\nBeta document content.")
	writeFile(t, dir, "c.html", "<h1>Gamma</h1><p>Gamma document content.</p>")
	writeFile(t, dir, "ignored.xyz", "should be skipped")

	shared := loadFromDir(t, dir, 8000)

	require.Equal(t, 3, shared.Len())
	assert.False(t, shared.Empty())

	names := make([]string, 0, shared.Len())
	for _, doc := range shared.Documents() {
		names = append(names, doc.Name)
	}
	assert.ElementsMatch(t, []string{"a.txt", "b.md", "c.html"}, names)
}

func TestLoadConvertsHTML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "page.html", "<html><body><h1>Title</h1><p>Hello from HTML.</p></body></html>")

	shared := loadFromDir(t, dir, 8000)

	require.Equal(t, 1, shared.Len())
	text := shared.Documents()[0].Text
	assert.Contains(t, text, "Hello from HTML.")
	assert.NotContains(t, text, "<p>")
}

func TestLoadTruncatesDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.txt", strings.Repeat("x", 10_000))

	shared := loadFromDir(t, dir, 100)

	require.Equal(t, 1, shared.Len())
	assert.Len(t, []rune(shared.Documents()[0].Text), 100)
}

func TestLoadSkipsUnreadableDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.txt", "readable")
	writeFile(t, dir, "empty.txt", "   ")
	writeFile(t, dir, "broken.pdf", "not actually a pdf")

	shared := loadFromDir(t, dir, 8000)

	require.Equal(t, 1, shared.Len())
	assert.Equal(t, "good.txt", shared.Documents()[0].Name)
}

func TestContextLabelsDocuments(t *testing.T) {
	shared := New([]Document{
		{Name: "one.txt", Text: "first"},
		{Name: "two.txt", Text: "second"},
	})

	ctx := shared.Context()
	assert.Contains(t, ctx, "### one.txt")
	assert.Contains(t, ctx, "first")
	assert.Contains(t, ctx, "### two.txt")
	assert.Contains(t, ctx, "second")
}

func TestEmptyCorpus(t *testing.T) {
	assert.True(t, New(nil).Empty())
	assert.Equal(t, 0, New(nil).Len())
	assert.Equal(t, "", New(nil).Context())

	var nilCorpus *Corpus
	assert.True(t, nilCorpus.Empty())
}
