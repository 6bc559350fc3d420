// Package extract produces per-page plain text from a PDF handbook,
// falling back to OCR for pages with no usable embedded text layer.
package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// Page holds the extracted text of a single document page.
// Number is 1-based to match how the handbook refers to its own pages.
type Page struct {
	Number int
	Text   string
}

// Extractor extracts per-page text from a PDF, using the embedded text
// layer first and an OCR engine for pages below the character threshold.
type Extractor struct {
	ocr          Engine
	minChars     int
	dpi          int
	logger       *zap.Logger
	openRenderer func(path string) (pageRenderer, error)
}

// NewExtractor creates an Extractor. A nil ocr engine disables the
// OCR fallback; pages without a text layer then come back empty.
func NewExtractor(ocr Engine, minChars, dpi int, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if minChars <= 0 {
		minChars = 100
	}
	if dpi <= 0 {
		dpi = 300
	}
	return &Extractor{
		ocr:          ocr,
		minChars:     minChars,
		dpi:          dpi,
		logger:       logger,
		openRenderer: openFitzRenderer,
	}
}

// Extract returns one Page per document page, in order. A page where both
// the text layer and OCR fail contributes an empty string; partial coverage
// is preferred over aborting the whole build.
func (e *Extractor) Extract(ctx context.Context, path string) ([]Page, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	var renderer pageRenderer
	defer func() {
		if renderer != nil {
			renderer.Close()
		}
	}()

	total := reader.NumPage()
	pages := make([]Page, 0, total)

	// Scoped to this call so a rendering failure doesn't leave the
	// Extractor permanently OCR-less.
	ocr := e.ocr

	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := Normalize(e.pageText(reader, i))

		if countLetters(text) < e.minChars && ocr != nil {
			if renderer == nil {
				renderer, err = e.openRenderer(path)
				if err != nil {
					e.logger.Warn("cannot render pages for OCR, keeping text layer output",
						zap.Error(err))
					ocr = nil // rendering is gone for the rest of this document
				}
			}
			if renderer != nil {
				if ocrText, ocrErr := e.ocrPage(ctx, renderer, i); ocrErr != nil {
					e.logger.Warn("OCR failed, keeping text layer output",
						zap.Int("page", i), zap.Error(ocrErr))
				} else if countLetters(ocrText) > countLetters(text) {
					text = ocrText
				}
			}
		}

		pages = append(pages, Page{Number: i, Text: text})
	}

	return pages, nil
}

// pageText reads the embedded text layer of a single page. Malformed pages
// yield an empty string rather than failing the extraction.
func (e *Extractor) pageText(reader *pdf.Reader, num int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("text layer extraction panicked, treating page as empty",
				zap.Int("page", num), zap.Any("cause", r))
			text = ""
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		e.logger.Warn("text layer extraction failed, treating page as empty",
			zap.Int("page", num), zap.Error(err))
		return ""
	}
	return text
}

func (e *Extractor) ocrPage(ctx context.Context, renderer pageRenderer, num int) (string, error) {
	img, err := renderer.Render(num-1, e.dpi)
	if err != nil {
		return "", fmt.Errorf("rendering page %d: %w", num, err)
	}
	text, err := e.ocr.Recognize(ctx, img)
	if err != nil {
		return "", fmt.Errorf("recognizing page %d: %w", num, err)
	}
	return Normalize(text), nil
}

// Normalize cleans extracted text: unifies line endings, strips glyphs that
// are neither word characters nor common punctuation, and collapses
// whitespace runs into single spaces.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := true
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(".,!?()[]{}:;'\"-/%$", r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
