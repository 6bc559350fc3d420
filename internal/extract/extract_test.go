package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "The G1 licence.", "The G1 licence."},
		{"whitespace runs", "right  of \t way\n\nrules", "right of way rules"},
		{"crlf", "line one\r\nline two", "line one line two"},
		{"strips odd glyphs", "speed © limit • 100 km/h", "speed limit 100 km/h"},
		{"keeps punctuation", "Stop! Yield? (See page 12.)", "Stop! Yield? (See page 12.)"},
		{"leading and trailing", "  padded  ", "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCountLetters(t *testing.T) {
	if got := countLetters("G1 licence 2024!"); got != 9 {
		t.Errorf("countLetters = %d, want 9", got)
	}
	if got := countLetters("12345 ..."); got != 0 {
		t.Errorf("countLetters = %d, want 0", got)
	}
}

type fakeRenderer struct {
	img []byte
	err error
}

func (f *fakeRenderer) Render(pageIndex, dpi int) ([]byte, error) { return f.img, f.err }
func (f *fakeRenderer) Close() error                              { return nil }

type fakeEngine struct {
	text  string
	err   error
	calls int
}

func (f *fakeEngine) Recognize(ctx context.Context, img []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

// writeMinimalPDF writes a one-page PDF with no content stream, so the
// text layer yields nothing and extraction takes the OCR path.
func writeMinimalPDF(t *testing.T) string {
	t.Helper()

	objects := []string{
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n",
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n",
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>\nendobj\n",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, 0, len(objects))
	for _, obj := range objects {
		offsets = append(offsets, buf.Len())
		buf.WriteString(obj)
	}
	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefPos)

	path := filepath.Join(t.TempDir(), "page.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractRendererFailureScopedToCall(t *testing.T) {
	path := writeMinimalPDF(t)
	engine := &fakeEngine{text: "A scanned page about the G1 licence knowledge test"}
	e := NewExtractor(engine, 10, 300, zap.NewNop())

	var opens int
	e.openRenderer = func(string) (pageRenderer, error) {
		opens++
		if opens == 1 {
			return nil, errors.New("renderer unavailable")
		}
		return &fakeRenderer{img: []byte("png")}, nil
	}

	ctx := context.Background()
	pages, err := e.Extract(ctx, path)
	if err != nil {
		t.Fatalf("first Extract: %v", err)
	}
	if len(pages) != 1 || pages[0].Text != "" {
		t.Errorf("expected one empty page when rendering fails, got %+v", pages)
	}
	if engine.calls != 0 {
		t.Errorf("OCR engine called %d times without a renderer", engine.calls)
	}

	pages, err = e.Extract(ctx, path)
	if err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	if opens != 2 {
		t.Errorf("renderer not retried on a later call, opens = %d", opens)
	}
	if engine.calls != 1 {
		t.Errorf("expected 1 OCR call on the second extract, got %d", engine.calls)
	}
	if len(pages) != 1 || !strings.Contains(pages[0].Text, "G1 licence") {
		t.Errorf("OCR text missing from second extract: %+v", pages)
	}
}

func TestOCRPage(t *testing.T) {
	engine := &fakeEngine{text: "A G1  licence\nrequires a knowledge test"}
	e := NewExtractor(engine, 100, 300, zap.NewNop())

	text, err := e.ocrPage(context.Background(), &fakeRenderer{img: []byte("png")}, 3)
	if err != nil {
		t.Fatalf("ocrPage: %v", err)
	}
	want := "A G1 licence requires a knowledge test"
	if text != want {
		t.Errorf("ocrPage text = %q, want %q", text, want)
	}
	if engine.calls != 1 {
		t.Errorf("expected 1 OCR call, got %d", engine.calls)
	}
}

func TestOCRPageRenderFailure(t *testing.T) {
	engine := &fakeEngine{text: "unused"}
	e := NewExtractor(engine, 100, 300, zap.NewNop())

	_, err := e.ocrPage(context.Background(), &fakeRenderer{err: errors.New("boom")}, 1)
	if err == nil {
		t.Fatal("expected render error")
	}
	if engine.calls != 0 {
		t.Errorf("OCR engine should not be called when rendering fails, got %d calls", engine.calls)
	}
}

func TestOCRPageEngineFailure(t *testing.T) {
	engine := &fakeEngine{err: errors.New("tesseract unavailable")}
	e := NewExtractor(engine, 100, 300, zap.NewNop())

	_, err := e.ocrPage(context.Background(), &fakeRenderer{img: []byte("png")}, 1)
	if err == nil {
		t.Fatal("expected OCR error")
	}
}
