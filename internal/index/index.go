package index

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/askmto/askmto/internal/chunker"
	"github.com/askmto/askmto/internal/db"
	"github.com/askmto/askmto/internal/embeddings"
	"github.com/askmto/askmto/internal/vectordb"
)

// Result is a retrieved chunk with its similarity to the query.
type Result struct {
	Chunk      chunker.Chunk
	Similarity float32
}

// Index is a loaded artifact pair ready to answer retrieval queries.
type Index struct {
	manifest *Manifest
	store    vectordb.VectorStore
	meta     *db.DB
	embedder embeddings.Embedder
}

// Load opens the live artifact pair in dir, verifying that the embedder
// matches the manifest and that the pair is internally consistent.
func Load(ctx context.Context, dir string, embedder embeddings.Embedder, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	if embedder.Dimensions() != m.EmbeddingDimensions {
		return nil, fmt.Errorf("embedder %s produces %d dimensions but index was built with %d",
			embedder.Name(), embedder.Dimensions(), m.EmbeddingDimensions)
	}
	if embedder.Name() != m.EmbeddingModel {
		logger.Warn("embedding model differs from the one the index was built with",
			zap.String("index_model", m.EmbeddingModel),
			zap.String("configured_model", embedder.Name()))
	}

	store, err := vectordb.NewChromemStore(embedder)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	if err := store.Load(ctx, filepath.Join(dir, m.IndexFile)); err != nil {
		return nil, fmt.Errorf("loading vector store: %w", err)
	}

	meta, err := db.Open(filepath.Join(dir, m.MetaFile))
	if err != nil {
		return nil, fmt.Errorf("opening metadata store: %w", err)
	}
	if err := verifyConsistency(ctx, store, meta); err != nil {
		meta.Close()
		return nil, err
	}

	logger.Info("index loaded",
		zap.String("build_id", m.BuildID),
		zap.Int("chunks", m.ChunkCount),
		zap.String("embedding_model", m.EmbeddingModel))

	return &Index{manifest: m, store: store, meta: meta, embedder: embedder}, nil
}

// Manifest returns the manifest of the loaded pair.
func (idx *Index) Manifest() Manifest {
	return *idx.manifest
}

// Close releases the metadata store.
func (idx *Index) Close() error {
	return idx.meta.Close()
}

// Search embeds the question and returns up to topK chunks whose similarity
// is at least floor, ordered by descending similarity with ties broken by
// ascending ordinal.
func (idx *Index) Search(ctx context.Context, question string, topK int, floor float64) ([]Result, error) {
	vectors, err := idx.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one question", len(vectors))
	}

	hits, err := idx.store.Search(ctx, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("searching vector store: %w", err)
	}

	ordinals := make([]int, 0, len(hits))
	for _, h := range hits {
		if float64(h.Similarity) < floor {
			continue
		}
		ordinals = append(ordinals, h.Ordinal)
	}
	if len(ordinals) == 0 {
		return nil, nil
	}

	chunks, err := idx.meta.Chunks(ctx, ordinals)
	if err != nil {
		return nil, fmt.Errorf("loading chunk metadata: %w", err)
	}

	results := make([]Result, 0, len(chunks))
	i := 0
	for _, h := range hits {
		if float64(h.Similarity) < floor {
			continue
		}
		results = append(results, Result{Chunk: chunks[i], Similarity: h.Similarity})
		i++
	}
	return results, nil
}
