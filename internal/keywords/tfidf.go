// Package keywords scores domain-salient terms per chunk with TF-IDF,
// using the chunk set itself as the corpus.
package keywords

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/askmto/askmto/internal/chunker"
)

const defaultTopN = 8

// Extractor computes per-chunk keyword weights. It is a stateless batch
// computation over the fixed chunk corpus, recomputed in full on rebuild.
type Extractor struct {
	topN int
}

// NewExtractor creates an Extractor keeping the topN highest-scoring terms
// per chunk.
func NewExtractor(topN int) *Extractor {
	if topN <= 0 {
		topN = defaultTopN
	}
	return &Extractor{topN: topN}
}

// Annotate fills each chunk's Keywords map with its top TF-IDF terms
// (unigrams and bigrams).
func (e *Extractor) Annotate(chunks []chunker.Chunk) {
	n := len(chunks)
	if n == 0 {
		return
	}

	termCounts := make([]map[string]int, n)
	docFreq := make(map[string]int)

	for i, c := range chunks {
		counts := termFrequencies(c.Text)
		termCounts[i] = counts
		for term := range counts {
			docFreq[term]++
		}
	}

	for i := range chunks {
		scores := make(map[string]float64, len(termCounts[i]))
		for term, tf := range termCounts[i] {
			idf := math.Log(float64(1+n)/float64(1+docFreq[term])) + 1
			scores[term] = float64(tf) * idf
		}
		chunks[i].Keywords = topTerms(scores, e.topN)
	}
}

// termFrequencies tokenizes text and counts unigrams plus bigrams of the
// surviving tokens.
func termFrequencies(text string) map[string]int {
	tokens := tokenize(text)
	counts := make(map[string]int, len(tokens)*2)
	for i, tok := range tokens {
		counts[tok]++
		if i+1 < len(tokens) {
			counts[tok+" "+tokens[i+1]]++
		}
	}
	return counts
}

// tokenize lowercases, splits on non-alphanumeric runes, and drops
// stopwords, single characters and pure numbers.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := fields[:0]
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] || isNumber(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// topTerms keeps the n highest-scoring terms. Ties break alphabetically so
// the result is deterministic.
func topTerms(scores map[string]float64, n int) map[string]float64 {
	if len(scores) == 0 {
		return nil
	}

	terms := make([]string, 0, len(scores))
	for t := range scores {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if scores[terms[i]] != scores[terms[j]] {
			return scores[terms[i]] > scores[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if len(terms) > n {
		terms = terms[:n]
	}
	out := make(map[string]float64, len(terms))
	for _, t := range terms {
		out[t] = scores[t]
	}
	return out
}
