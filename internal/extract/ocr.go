package extract

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
)

// Engine recognizes text in a rendered page image (PNG bytes).
type Engine interface {
	Recognize(ctx context.Context, img []byte) (string, error)
}

// TesseractEngine implements Engine using the Tesseract OCR library.
type TesseractEngine struct {
	language string
}

// NewTesseractEngine creates a Tesseract-backed OCR engine for the given
// language code (e.g. "eng").
func NewTesseractEngine(language string) *TesseractEngine {
	if language == "" {
		language = "eng"
	}
	return &TesseractEngine{language: language}
}

func (e *TesseractEngine) Recognize(ctx context.Context, img []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// gosseract clients are not safe for concurrent use; one per call.
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.language); err != nil {
		return "", fmt.Errorf("setting OCR language %q: %w", e.language, err)
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("loading page image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("running OCR: %w", err)
	}
	return text, nil
}

// pageRenderer renders document pages to PNG images for OCR.
type pageRenderer interface {
	Render(pageIndex, dpi int) ([]byte, error)
	Close() error
}

type fitzRenderer struct {
	doc *fitz.Document
}

func openFitzRenderer(path string) (pageRenderer, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf for rendering: %w", err)
	}
	return &fitzRenderer{doc: doc}, nil
}

func (r *fitzRenderer) Render(pageIndex, dpi int) ([]byte, error) {
	img, err := r.doc.ImageDPI(pageIndex, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("rendering page image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding page image: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *fitzRenderer) Close() error {
	return r.doc.Close()
}
