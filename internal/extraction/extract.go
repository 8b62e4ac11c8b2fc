package extraction

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrEmptyDocument     = errors.New("document contains no extractable text")
	ErrExtractionFailed  = errors.New("document extraction failed")
)

type Result struct {
	Text  string
	Pages int
}

// Extract converts raw document bytes into plain UTF-8 text, truncated to at
// most limit characters. The MIME type gates which decoder runs; anything
// other than PDF or plain text is rejected before touching the bytes.
func Extract(data []byte, mimeType string, limit int) (Result, error) {
	if len(data) == 0 {
		return Result{}, fmt.Errorf("%w: empty input", ErrExtractionFailed)
	}

	switch normalizeMimeType(mimeType) {
	case "application/pdf":
		return extractPDF(data, limit)
	case "text/plain", "text/markdown":
		return extractPlaintext(data, limit)
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}
}

func extractPDF(data []byte, limit int) (res Result, err error) {
	// go-fitz calls into mupdf, which can panic on malformed input. A corrupt
	// upload must surface as an error to one client, not kill the process.
	defer func() {
		if r := recover(); r != nil {
			res, err = Result{}, fmt.Errorf("%w: %v", ErrExtractionFailed, r)
		}
	}()

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer doc.Close()

	numPages := doc.NumPage()
	var b strings.Builder

	for i := 0; i < numPages; i++ {
		text, err := doc.Text(i)
		if err != nil {
			return Result{}, fmt.Errorf("%w: page %d: %v", ErrExtractionFailed, i+1, err)
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}

	content := strings.TrimSpace(b.String())
	if content == "" {
		return Result{}, ErrEmptyDocument
	}

	return Result{Text: Truncate(content, limit), Pages: numPages}, nil
}

func extractPlaintext(data []byte, limit int) (Result, error) {
	content := strings.TrimSpace(string(data))
	if content == "" {
		return Result{}, ErrEmptyDocument
	}
	return Result{Text: Truncate(content, limit), Pages: 1}, nil
}

// Truncate bounds s to at most limit characters (runes, not bytes, so a
// multi-byte character is never split).
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func normalizeMimeType(mimeType string) string {
	mt, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
