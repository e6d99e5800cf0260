package docpipe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extraction is the raw text pulled from one PDF.
type Extraction struct {
	Text        string
	Pages       int
	ContentHash string
}

// ExtractText pulls plain text from a PDF, page by page. Pages that fail to
// extract are skipped; the whole document fails only when no page yields
// text.
func ExtractText(path string) (*Extraction, error) {
	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		return nil, fmt.Errorf("%w: not a PDF file: %s", ErrExtraction, path)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrExtraction, path, err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	pages := make([]string, 0, totalPages)

	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Warn("page extraction failed, skipping", "path", path, "page", i, "error", err)
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, text)
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no text could be extracted from %s", ErrExtraction, path)
	}

	full := strings.Join(pages, "\n\n")
	sum := sha256.Sum256([]byte(full))

	slog.Info("extracted PDF text",
		"path", path, "pages", totalPages, "chars", len(full))

	return &Extraction{
		Text:        full,
		Pages:       totalPages,
		ContentHash: hex.EncodeToString(sum[:]),
	}, nil
}
