// Package chunker splits page-tagged handbook text into ordered,
// overlapping retrieval chunks.
package chunker

import (
	"fmt"
	"strings"

	"github.com/askmto/askmto/internal/extract"
)

// Chunk is a bounded span of document text, the unit of retrieval.
// Ordinals are 0-based, stable and contiguous for a given build.
type Chunk struct {
	Ordinal   int
	Text      string
	PageStart int
	PageEnd   int
	// Overlap is the number of leading characters of Text copied from the
	// previous chunk (including the joining space). Text[Overlap:] is the
	// chunk's own content.
	Overlap  int
	Keywords map[string]float64
}

// PageRef formats the chunk's page range for citations.
func (c Chunk) PageRef() string {
	if c.PageStart == c.PageEnd {
		return fmt.Sprintf("p. %d", c.PageStart)
	}
	return fmt.Sprintf("pp. %d-%d", c.PageStart, c.PageEnd)
}

// Config controls chunk packing.
type Config struct {
	MaxSize int // maximum chunk length in characters
	MinSize int // trailing content below this is merged into the previous chunk
	Overlap int // characters of cross-boundary context carried between chunks
}

type sentence struct {
	text string
	page int
}

// Split packs the pages' sentences into chunks of at most cfg.MaxSize
// characters. Sentences are never split unless a single sentence exceeds
// MaxSize, in which case it is hard-split. Empty pages are skipped. The
// result is deterministic for a fixed input and configuration.
func Split(pages []extract.Page, cfg Config) []Chunk {
	sentences := collectSentences(pages)
	if len(sentences) == 0 {
		return nil
	}

	var (
		chunks    []Chunk
		cur       []sentence
		curLen    int
		carry     string // overlap tail of the previous chunk
		carryUsed int    // prefix length recorded on the current chunk
	)

	flush := func() {
		if len(cur) == 0 {
			return
		}
		parts := make([]string, 0, len(cur)+1)
		if carryUsed > 0 {
			parts = append(parts, carry)
		}
		pageStart, pageEnd := cur[0].page, cur[0].page
		for _, s := range cur {
			parts = append(parts, s.text)
			if s.page < pageStart {
				pageStart = s.page
			}
			if s.page > pageEnd {
				pageEnd = s.page
			}
		}
		text := strings.Join(parts, " ")
		overlap := 0
		if carryUsed > 0 {
			overlap = len(carry) + 1
		}
		chunks = append(chunks, Chunk{
			Text:      text,
			PageStart: pageStart,
			PageEnd:   pageEnd,
			Overlap:   overlap,
		})
		carry = overlapTail(text, cfg.Overlap)
		carryUsed = 0
		cur = nil
		curLen = 0
	}

	add := func(s sentence) {
		if len(cur) == 0 {
			// The overlap prefix is dropped when it would not leave room
			// for the first sentence.
			if carry != "" && len(carry)+1+len(s.text) <= cfg.MaxSize {
				carryUsed = len(carry)
				curLen = len(carry) + 1
			} else {
				carryUsed = 0
				curLen = 0
			}
		}
		if len(cur) > 0 {
			curLen++ // joining space
		}
		cur = append(cur, s)
		curLen += len(s.text)
	}

	for _, s := range sentences {
		if len(s.text) > cfg.MaxSize {
			// Hard split: the sentence alone exceeds the maximum.
			for _, piece := range hardSplit(s.text, cfg.MaxSize) {
				if curLen > 0 && curLen+1+len(piece) > cfg.MaxSize {
					flush()
				}
				add(sentence{text: piece, page: s.page})
			}
			continue
		}
		if curLen > 0 && curLen+1+len(s.text) > cfg.MaxSize {
			flush()
		}
		add(s)
	}
	flush()

	chunks = mergeTrailing(chunks, cfg.MinSize)

	for i := range chunks {
		chunks[i].Ordinal = i
	}
	return chunks
}

func collectSentences(pages []extract.Page) []sentence {
	var out []sentence
	for _, p := range pages {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		for _, s := range splitSentences(text) {
			out = append(out, sentence{text: s, page: p.Number})
		}
	}
	return out
}

// splitSentences cuts text after sentence-ending punctuation followed by a
// space. The separators themselves are kept; only the space between
// sentences is consumed.
func splitSentences(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes)-1; i++ {
		if isSentenceEnd(runes[i]) && runes[i+1] == ' ' {
			out = append(out, string(runes[start:i+1]))
			start = i + 2
			i++ // skip the space
		}
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// hardSplit cuts an oversized sentence into pieces of at most max characters,
// preferring word boundaries.
func hardSplit(text string, max int) []string {
	var out []string
	for len(text) > max {
		cut := max
		if idx := strings.LastIndexByte(text[:max], ' '); idx > 0 {
			cut = idx
		}
		out = append(out, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

// overlapTail returns at most the last n characters of text, cut forward to a
// word boundary so the carried context starts at a whole word.
func overlapTail(text string, n int) string {
	if n <= 0 || text == "" {
		return ""
	}
	if len(text) <= n {
		return text
	}
	tail := text[len(text)-n:]
	if idx := strings.IndexByte(tail, ' '); idx >= 0 {
		tail = tail[idx+1:]
	}
	return tail
}

// mergeTrailing folds a final chunk whose own content is below min into the
// previous chunk, so the index never serves an undersized fragment.
func mergeTrailing(chunks []Chunk, min int) []Chunk {
	if min <= 0 || len(chunks) < 2 {
		return chunks
	}
	last := chunks[len(chunks)-1]
	if len(last.Text)-last.Overlap >= min {
		return chunks
	}
	prev := &chunks[len(chunks)-2]
	prev.Text = prev.Text + " " + last.Text[last.Overlap:]
	if last.PageEnd > prev.PageEnd {
		prev.PageEnd = last.PageEnd
	}
	return chunks[:len(chunks)-1]
}
