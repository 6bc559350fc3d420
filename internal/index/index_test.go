package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/askmto/askmto/internal/chunker"
	"github.com/askmto/askmto/internal/extract"
	"github.com/askmto/askmto/internal/keywords"
	"github.com/askmto/askmto/internal/progress"
)

// markerEmbedder maps each text to a vector counting topic marker words,
// so retrieval behaves deterministically without a real model.
type markerEmbedder struct {
	fail bool
}

var markers = []string{"licence", "yield", "speed", "parking"}

func (e *markerEmbedder) Name() string    { return "marker-test" }
func (e *markerEmbedder) Dimensions() int { return len(markers) }

func (e *markerEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.fail {
		return nil, errors.New("embedder unavailable")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(markers))
		lower := strings.ToLower(text)
		for j, m := range markers {
			vec[j] = float32(strings.Count(lower, m))
		}
		// Texts with no markers still need a nonzero vector.
		vec[0] += 0.01
		out[i] = vec
	}
	return out, nil
}

type pageSource struct {
	pages []extract.Page
	err   error
}

func (s *pageSource) Extract(ctx context.Context, path string) ([]extract.Page, error) {
	return s.pages, s.err
}

func handbookSource() *pageSource {
	return &pageSource{pages: []extract.Page{
		{Number: 1, Text: "A G1 licence is the first level of the graduated licensing system. A new driver holds the licence for at least twelve months before the road test."},
		{Number: 2, Text: "At a yield sign you must slow down and give the right-of-way to traffic already in the intersection. Yield to pedestrians crossing the road."},
		{Number: 3, Text: "The speed limit in cities is fifty kilometres per hour unless posted otherwise. Reduce speed in school zones and construction areas."},
	}}
}

func testBuilder(source PageSource, emb *markerEmbedder) *Builder {
	cfg := chunker.Config{MaxSize: 160, MinSize: 40, Overlap: 20}
	return NewBuilder(source, cfg, keywords.NewExtractor(8), emb, progress.NopReporter{}, nil)
}

func TestBuildAndLoad(t *testing.T) {
	dir := t.TempDir()
	emb := &markerEmbedder{}
	ctx := context.Background()

	m, err := testBuilder(handbookSource(), emb).Build(ctx, "handbook.pdf", dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.ChunkCount == 0 {
		t.Fatal("manifest records zero chunks")
	}
	if m.EmbeddingModel != "marker-test" || m.EmbeddingDimensions != len(markers) {
		t.Errorf("manifest embedding fields wrong: %+v", m)
	}
	for _, name := range []string{m.IndexFile, m.MetaFile, ManifestName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected artifact %s: %v", name, err)
		}
	}

	idx, err := Load(ctx, dir, emb, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer idx.Close()
	if idx.Manifest().BuildID != m.BuildID {
		t.Errorf("loaded build %s, want %s", idx.Manifest().BuildID, m.BuildID)
	}
}

func TestSearchReturnsRelevantChunks(t *testing.T) {
	dir := t.TempDir()
	emb := &markerEmbedder{}
	ctx := context.Background()

	if _, err := testBuilder(handbookSource(), emb).Build(ctx, "handbook.pdf", dir); err != nil {
		t.Fatalf("Build: %v", err)
	}
	idx, err := Load(ctx, dir, emb, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer idx.Close()

	results, err := idx.Search(ctx, "when do I yield the right-of-way?", 3, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	top := results[0]
	if !strings.Contains(strings.ToLower(top.Chunk.Text), "yield") {
		t.Errorf("top chunk not about yielding: %q", top.Chunk.Text)
	}
	if top.Chunk.PageStart != 2 {
		t.Errorf("top chunk PageStart = %d, want 2", top.Chunk.PageStart)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Similarity > results[i-1].Similarity {
			t.Error("results not ordered by descending similarity")
		}
	}
}

func TestSearchSimilarityFloor(t *testing.T) {
	dir := t.TempDir()
	emb := &markerEmbedder{}
	ctx := context.Background()

	if _, err := testBuilder(handbookSource(), emb).Build(ctx, "handbook.pdf", dir); err != nil {
		t.Fatalf("Build: %v", err)
	}
	idx, err := Load(ctx, dir, emb, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer idx.Close()

	results, err := idx.Search(ctx, "yield yield yield", 3, 0.99)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if float64(r.Similarity) < 0.99 {
			t.Errorf("result below floor: %v", r.Similarity)
		}
	}

	none, err := idx.Search(ctx, "parking parking parking", 3, 0.999)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected floor to filter everything, got %d results", len(none))
	}
}

func TestRebuildReplacesPreviousPair(t *testing.T) {
	dir := t.TempDir()
	emb := &markerEmbedder{}
	ctx := context.Background()

	first, err := testBuilder(handbookSource(), emb).Build(ctx, "handbook.pdf", dir)
	if err != nil {
		t.Fatalf("first Build: %v", err)
	}
	second, err := testBuilder(handbookSource(), emb).Build(ctx, "handbook.pdf", dir)
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if first.BuildID == second.BuildID {
		t.Fatal("expected distinct build IDs")
	}

	m, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if m.BuildID != second.BuildID {
		t.Errorf("manifest points at %s, want %s", m.BuildID, second.BuildID)
	}
	for _, name := range []string{first.IndexFile, first.MetaFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("stale artifact %s still present", name)
		}
	}
}

func TestFailedBuildLeavesPreviousIndexLive(t *testing.T) {
	dir := t.TempDir()
	emb := &markerEmbedder{}
	ctx := context.Background()

	first, err := testBuilder(handbookSource(), emb).Build(ctx, "handbook.pdf", dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	failing := &markerEmbedder{fail: true}
	if _, err := testBuilder(handbookSource(), failing).Build(ctx, "handbook.pdf", dir); err == nil {
		t.Fatal("expected build to fail")
	}

	m, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest after failed build: %v", err)
	}
	if m.BuildID != first.BuildID {
		t.Errorf("manifest changed after failed build")
	}
	if _, err := Load(ctx, dir, emb, nil); err != nil {
		t.Errorf("previous index no longer loads: %v", err)
	}
}

func TestBuildEmptyDocument(t *testing.T) {
	src := &pageSource{pages: []extract.Page{{Number: 1, Text: ""}}}
	_, err := testBuilder(src, &markerEmbedder{}).Build(context.Background(), "empty.pdf", t.TempDir())
	if err == nil {
		t.Fatal("expected error for document with no text")
	}
}

func TestBuildExtractionError(t *testing.T) {
	src := &pageSource{err: errors.New("file corrupt")}
	_, err := testBuilder(src, &markerEmbedder{}).Build(context.Background(), "bad.pdf", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "extracting pages") {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestLoadDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	if _, err := testBuilder(handbookSource(), &markerEmbedder{}).Build(ctx, "handbook.pdf", dir); err != nil {
		t.Fatalf("Build: %v", err)
	}

	m, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	m.EmbeddingDimensions = 1536
	if err := WriteManifest(dir, m); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	_, err = Load(ctx, dir, &markerEmbedder{}, nil)
	if err == nil || !strings.Contains(err.Error(), "dimensions") {
		t.Fatalf("expected dimension mismatch error, got %v", err)
	}
}

func TestLoadMissingManifest(t *testing.T) {
	_, err := Load(context.Background(), t.TempDir(), &markerEmbedder{}, nil)
	if err == nil {
		t.Fatal("expected error for empty index directory")
	}
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{
		BuildID:             "abc",
		EmbeddingModel:      "marker-test",
		EmbeddingDimensions: 4,
		ChunkCount:          7,
		IndexFile:           "index-abc.gob.gz",
		MetaFile:            "meta-abc.db",
	}
	if err := WriteManifest(dir, m); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	got, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if fmt.Sprintf("%+v", got) != fmt.Sprintf("%+v", m) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, m)
	}
}
