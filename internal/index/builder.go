package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/askmto/askmto/internal/chunker"
	"github.com/askmto/askmto/internal/db"
	"github.com/askmto/askmto/internal/embeddings"
	"github.com/askmto/askmto/internal/extract"
	"github.com/askmto/askmto/internal/keywords"
	"github.com/askmto/askmto/internal/progress"
	"github.com/askmto/askmto/internal/vectordb"
)

// embedBatchSize is how many chunk texts go to the embedder per call,
// independent of any batching the provider does internally. It keeps
// progress updates flowing on large handbooks.
const embedBatchSize = 64

// PageSource yields the text pages of a document. The PDF extractor
// implements it; tests substitute synthetic pages.
type PageSource interface {
	Extract(ctx context.Context, path string) ([]extract.Page, error)
}

// Builder runs the offline pipeline: extract pages, chunk, annotate
// keywords, embed, and commit the artifact pair under the index directory.
type Builder struct {
	source   PageSource
	chunkCfg chunker.Config
	keywords *keywords.Extractor
	embedder embeddings.Embedder
	reporter progress.Reporter
	logger   *zap.Logger
}

// NewBuilder assembles a Builder. A nil reporter disables progress output.
func NewBuilder(source PageSource, chunkCfg chunker.Config, kw *keywords.Extractor, embedder embeddings.Embedder, reporter progress.Reporter, logger *zap.Logger) *Builder {
	if reporter == nil {
		reporter = progress.NopReporter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		source:   source,
		chunkCfg: chunkCfg,
		keywords: kw,
		embedder: embedder,
		reporter: reporter,
		logger:   logger,
	}
}

// Build indexes the document at pdfPath into dir and returns the committed
// manifest. The previous artifact pair, if any, stays live until the new
// manifest lands; on success its files are removed best-effort.
func (b *Builder) Build(ctx context.Context, pdfPath, dir string) (*Manifest, error) {
	pages, err := b.source.Extract(ctx, pdfPath)
	if err != nil {
		return nil, fmt.Errorf("extracting pages: %w", err)
	}

	chunks := chunker.Split(pages, b.chunkCfg)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %s produced no indexable text", pdfPath)
	}
	b.keywords.Annotate(chunks)
	b.logger.Info("document chunked",
		zap.Int("pages", len(pages)),
		zap.Int("chunks", len(chunks)))

	return b.commit(ctx, dir, chunks)
}

// commit embeds the chunks and writes the artifact pair, making it live by
// writing the manifest last.
func (b *Builder) commit(ctx context.Context, dir string, chunks []chunker.Chunk) (*Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	prev, _ := ReadManifest(dir)

	buildID := uuid.NewString()
	indexFile := fmt.Sprintf("index-%s.gob.gz", buildID)
	metaFile := fmt.Sprintf("meta-%s.db", buildID)
	indexPath := filepath.Join(dir, indexFile)
	metaPath := filepath.Join(dir, metaFile)

	cleanup := func() {
		os.Remove(indexPath)
		os.Remove(metaPath)
	}

	store, err := vectordb.NewChromemStore(b.embedder)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	b.reporter.Start(len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vectors, err := b.embedder.Embed(ctx, texts)
		if err != nil {
			b.reporter.Finish()
			return nil, fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(batch) {
			b.reporter.Finish()
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
		}

		docs := make([]vectordb.Document, len(batch))
		for i, c := range batch {
			docs[i] = vectordb.Document{Ordinal: c.Ordinal, Content: c.Text, Embedding: vectors[i]}
		}
		if err := store.AddDocuments(ctx, docs); err != nil {
			b.reporter.Finish()
			return nil, fmt.Errorf("adding documents to vector store: %w", err)
		}
		b.reporter.Update(end, fmt.Sprintf("embedded %d/%d chunks", end, len(chunks)))
	}
	b.reporter.Finish()

	meta, err := db.Open(metaPath)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("opening metadata store: %w", err)
	}
	if err := meta.InsertChunks(ctx, chunks); err != nil {
		meta.Close()
		cleanup()
		return nil, fmt.Errorf("writing chunk metadata: %w", err)
	}

	if err := verifyConsistency(ctx, store, meta); err != nil {
		meta.Close()
		cleanup()
		return nil, err
	}
	if err := meta.Close(); err != nil {
		cleanup()
		return nil, fmt.Errorf("closing metadata store: %w", err)
	}

	if err := store.Persist(ctx, indexPath); err != nil {
		cleanup()
		return nil, fmt.Errorf("persisting vector store: %w", err)
	}

	m := &Manifest{
		BuildID:             buildID,
		CreatedAt:           time.Now().UTC(),
		EmbeddingModel:      b.embedder.Name(),
		EmbeddingDimensions: b.embedder.Dimensions(),
		ChunkCount:          len(chunks),
		IndexFile:           indexFile,
		MetaFile:            metaFile,
	}
	if err := WriteManifest(dir, m); err != nil {
		cleanup()
		return nil, err
	}
	b.logger.Info("index committed",
		zap.String("build_id", buildID),
		zap.Int("chunks", len(chunks)),
		zap.String("embedding_model", m.EmbeddingModel))

	if prev != nil && prev.BuildID != buildID {
		os.Remove(filepath.Join(dir, prev.IndexFile))
		os.Remove(filepath.Join(dir, prev.MetaFile))
	}
	return m, nil
}

// verifyConsistency checks that the vector store and the metadata store
// describe the same ordinal set before the pair is committed.
func verifyConsistency(ctx context.Context, store vectordb.VectorStore, meta *db.DB) error {
	ordinals, err := meta.Ordinals(ctx)
	if err != nil {
		return fmt.Errorf("listing metadata ordinals: %w", err)
	}
	if store.Count() != len(ordinals) {
		return fmt.Errorf("artifact pair inconsistent: vector store holds %d documents, metadata holds %d chunks", store.Count(), len(ordinals))
	}
	for _, ord := range ordinals {
		if !store.HasOrdinal(ctx, ord) {
			return fmt.Errorf("artifact pair inconsistent: ordinal %d missing from vector store", ord)
		}
	}
	return nil
}
