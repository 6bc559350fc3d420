package vectordb

import "context"

// Document is a chunk entry in the vector index: its ordinal, its text and
// its precomputed embedding vector.
type Document struct {
	Ordinal   int
	Content   string
	Embedding []float32
}

// SearchResult is a single nearest-neighbor hit.
type SearchResult struct {
	Ordinal    int
	Content    string
	Similarity float32
}

// VectorStore abstracts the vector index used for top-k retrieval.
type VectorStore interface {
	// AddDocuments inserts documents with precomputed embeddings.
	AddDocuments(ctx context.Context, docs []Document) error

	// Search returns up to limit results ordered by descending similarity;
	// equal similarities order by ascending ordinal.
	Search(ctx context.Context, queryEmbedding []float32, limit int) ([]SearchResult, error)

	// HasOrdinal reports whether a document with the given ordinal exists.
	HasOrdinal(ctx context.Context, ordinal int) bool

	// Count returns the number of stored documents.
	Count() int

	// Persist writes the index to the given file.
	Persist(ctx context.Context, path string) error

	// Load replaces the index contents from the given file.
	Load(ctx context.Context, path string) error
}
