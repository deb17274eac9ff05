// Package extract pulls plain text out of ingestion sources.
package extract

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDF extracts text from a PDF page by page. Pages with no extractable text,
// scanned images for example, are treated as legitimately empty and skipped;
// the remaining page texts are joined with a single space. Page boundaries
// are not preserved.
func PDF(r io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	return extractPages(reader), nil
}

// PDFFile extracts text from a PDF on disk.
func PDFFile(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()
	return extractPages(reader), nil
}

func extractPages(reader *pdf.Reader) string {
	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// a page that cannot be decoded yields no text, same as a
			// scanned page
			continue
		}
		pages = append(pages, text)
	}
	return JoinPages(pages)
}

// JoinPages drops empty pages and joins the rest with a single space.
func JoinPages(pages []string) string {
	kept := make([]string, 0, len(pages))
	for _, p := range pages {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, " ")
}

// TextFile reads a plain-text source from disk.
func TextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
