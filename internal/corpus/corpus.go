package corpus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"docqa-backend/internal/extraction"
	"docqa-backend/internal/storage"
)

type Document struct {
	Name string
	Text string
}

// Corpus is the process-wide shared document set: loaded once at startup,
// read-only, visible to every session. It is distinct from per-session
// uploads, which live in the session store.
type Corpus struct {
	docs []Document
}

func New(docs []Document) *Corpus {
	return &Corpus{docs: docs}
}

// Load reads every supported object from the store, extracting and bounding
// each document to at most limit characters. Unsupported and unreadable
// objects are skipped with a warning; an unreadable store is an error.
func Load(ctx context.Context, store storage.ObjectStore, limit int) (*Corpus, error) {
	var docs []Document

	for obj, err := range store.IterObjects(ctx) {
		if err != nil {
			return nil, fmt.Errorf("error listing corpus documents: %w", err)
		}

		text, err := loadDocument(ctx, store, obj.Name, limit)
		if err != nil {
			slog.Warn("skipping corpus document", "object", obj.Name, "error", err)
			continue
		}
		if text == "" {
			continue
		}

		docs = append(docs, Document{Name: obj.Name, Text: text})
	}

	slog.Info("corpus loaded", "documents", len(docs))
	return &Corpus{docs: docs}, nil
}

func loadDocument(ctx context.Context, store storage.ObjectStore, name string, limit int) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))

	var mimeType string
	switch ext {
	case ".pdf":
		mimeType = "application/pdf"
	case ".txt":
		mimeType = "text/plain"
	case ".md":
		mimeType = "text/markdown"
	case ".html", ".htm":
		mimeType = "text/html"
	default:
		slog.Warn("unsupported corpus file type", "object", name)
		return "", nil
	}

	reader, err := store.GetObject(ctx, name)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	if mimeType == "text/html" {
		converter := md.NewConverter("", true, nil)
		text, err := converter.ConvertString(string(data))
		if err != nil {
			return "", fmt.Errorf("error converting html: %w", err)
		}
		return extraction.Truncate(strings.TrimSpace(text), limit), nil
	}

	res, err := extraction.Extract(data, mimeType, limit)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (c *Corpus) Empty() bool {
	return c == nil || len(c.docs) == 0
}

func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.docs)
}

func (c *Corpus) Documents() []Document {
	if c == nil {
		return nil
	}
	return c.docs
}

// Context concatenates every document into one grounding context, each
// section labelled with its document name.
func (c *Corpus) Context() string {
	if c.Empty() {
		return ""
	}

	var b strings.Builder
	for _, doc := range c.docs {
		fmt.Fprintf(&b, "### %s\n%s\n\n", doc.Name, doc.Text)
	}
	return strings.TrimSpace(b.String())
}
