package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	mimePDF  = "application/pdf"
	mimeText = "text/plain"
)

var (
	// ErrUnsupported is returned for payloads that are neither PDF nor text.
	ErrUnsupported = errors.New("unsupported document type")
	// ErrEmpty is returned when no text could be recovered.
	ErrEmpty = errors.New("document contains no extractable text")
)

// Result is the recovered policy text.
type Result struct {
	Text     string
	Pages    int
	MimeType string
}

// ExtractTextFromBytes extracts text from an in-memory payload.
// Libraries used: github.com/ledongthuc/pdf (PDF).
func ExtractTextFromBytes(ctx context.Context, data []byte, mimeType string, fileName string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if len(data) == 0 {
		return Result{}, ErrEmpty
	}
	normalized := normalizeMimeType(mimeType, fileName, data)
	switch normalized {
	case mimePDF:
		text, pages, err := extractPDF(ctx, data)
		if err != nil {
			return Result{}, fmt.Errorf("extract pdf: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			return Result{}, ErrEmpty
		}
		return Result{Text: text, Pages: pages, MimeType: mimePDF}, nil
	case mimeText:
		if !utf8.Valid(data) {
			return Result{}, fmt.Errorf("%w: text is not valid UTF-8", ErrUnsupported)
		}
		text := string(data)
		if strings.TrimSpace(text) == "" {
			return Result{}, ErrEmpty
		}
		return Result{Text: text, MimeType: mimeText}, nil
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupported, normalized)
	}
}

// extractPDF concatenates the plain text of every page in order.
func extractPDF(ctx context.Context, data []byte) (text string, pages int, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, err
	}
	var buf strings.Builder
	total := reader.NumPage()
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			return "", 0, fmt.Errorf("page %d: %w", i, err)
		}
		buf.WriteString(pageText)
	}
	return buf.String(), total, nil
}

func normalizeMimeType(mimeType string, fileName string, data []byte) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(mt, ";"); idx >= 0 {
		mt = strings.TrimSpace(mt[:idx])
	}
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return mimePDF
	}
	switch mt {
	case mimePDF, mimeText:
		return mt
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return mimePDF
	case ".txt", ".text":
		return mimeText
	}
	if mt == "" || mt == "application/octet-stream" {
		sniffed := http.DetectContentType(data)
		if idx := strings.Index(sniffed, ";"); idx >= 0 {
			sniffed = sniffed[:idx]
		}
		return sniffed
	}
	return mt
}
