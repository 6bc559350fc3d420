package vectordb

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/askmto/askmto/internal/embeddings"
)

const collectionName = "handbook"

// ChromemStore implements VectorStore using chromem-go.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
}

// NewChromemStore creates a new in-memory ChromemStore. The embedder is only
// consulted by chromem for documents without precomputed vectors, which this
// store never inserts; queries always carry their own embedding.
func NewChromemStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{
		db:         db,
		collection: col,
		embedFunc:  ef,
	}, nil
}

func (s *ChromemStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	chromDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromDocs[i] = chromem.Document{
			ID:        strconv.Itoa(doc.Ordinal),
			Content:   doc.Content,
			Embedding: doc.Embedding,
		}
	}

	return s.collection.AddDocuments(ctx, chromDocs, 1)
}

func (s *ChromemStore) Search(ctx context.Context, queryEmbedding []float32, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}

	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	// Query for every document, not just limit: chromem scores the whole
	// collection concurrently and truncates in completion order, so tied
	// similarities at the cutoff would make the result set vary between
	// runs. Ranking and truncating here keeps the ordering deterministic.
	results, err := s.collection.QueryEmbedding(ctx, queryEmbedding, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	searchResults := make([]SearchResult, 0, len(results))
	for _, r := range results {
		ordinal, err := strconv.Atoi(r.ID)
		if err != nil {
			return nil, fmt.Errorf("non-numeric document id %q in index", r.ID)
		}
		searchResults = append(searchResults, SearchResult{
			Ordinal:    ordinal,
			Content:    r.Content,
			Similarity: r.Similarity,
		})
	}

	// Deterministic ordering: descending similarity, ties by lower ordinal.
	sort.SliceStable(searchResults, func(i, j int) bool {
		if searchResults[i].Similarity != searchResults[j].Similarity {
			return searchResults[i].Similarity > searchResults[j].Similarity
		}
		return searchResults[i].Ordinal < searchResults[j].Ordinal
	})

	return searchResults[:limit], nil
}

func (s *ChromemStore) HasOrdinal(ctx context.Context, ordinal int) bool {
	_, err := s.collection.GetByID(ctx, strconv.Itoa(ordinal))
	return err == nil
}

func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

func (s *ChromemStore) Persist(ctx context.Context, path string) error {
	return s.db.ExportToFile(path, true, "")
}

func (s *ChromemStore) Load(ctx context.Context, path string) error {
	if err := s.db.ImportFromFile(path, ""); err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	s.collection = col
	return nil
}
