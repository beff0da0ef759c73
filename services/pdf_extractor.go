package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractionFailedText is the sentinel stored as a unit's source text when
// extraction fails outright. Downstream stages treat it as ordinary input.
const ExtractionFailedText = "Text extraction failed."

// TextExtractor converts an uploaded binary into a flat text stream,
// best-effort. No OCR; image-only pages contribute nothing.
type TextExtractor interface {
	Extract(data []byte) (string, error)
}

// PDFExtractor extracts plain text from PDF documents page by page.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract concatenates the recognized text of every page, separated by single
// spaces. Pages that fail to decode are skipped; an error is returned only
// when nothing at all could be read.
func (e *PDFExtractor) Extract(data []byte) (text string, err error) {
	// The pdf package panics on some malformed cross-reference tables;
	// convert that into an ordinary error at the pipeline boundary.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var builder strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}

		if builder.Len() > 0 && pageText != "" {
			builder.WriteString(" ")
		}
		builder.WriteString(pageText)
	}

	extracted := strings.TrimSpace(builder.String())
	if extracted == "" {
		return "", fmt.Errorf("no text extracted from %d pages", pages)
	}

	return extracted, nil
}
