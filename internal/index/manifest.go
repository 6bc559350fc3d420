package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestName is the pointer file that marks the live artifact pair.
const ManifestName = "manifest.json"

// Manifest records the live artifact pair for an index directory. Readers
// resolve the pair through the manifest; a build becomes visible only when
// the manifest rename lands, so a crash mid-build leaves the previous pair
// untouched.
type Manifest struct {
	BuildID             string    `json:"build_id"`
	CreatedAt           time.Time `json:"created_at"`
	EmbeddingModel      string    `json:"embedding_model"`
	EmbeddingDimensions int       `json:"embedding_dimensions"`
	ChunkCount          int       `json:"chunk_count"`
	IndexFile           string    `json:"index_file"`
	MetaFile            string    `json:"meta_file"`
}

// ReadManifest loads the manifest from dir. A missing manifest returns
// os.ErrNotExist wrapped, which callers treat as "no index built yet".
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.IndexFile == "" || m.MetaFile == "" {
		return nil, fmt.Errorf("manifest in %s names no artifact pair", dir)
	}
	return &m, nil
}

// WriteManifest commits m to dir atomically: the JSON is written to a
// temporary file in the same directory and renamed over the manifest.
func WriteManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ManifestName+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating manifest temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing manifest temp file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, ManifestName)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("committing manifest: %w", err)
	}
	return nil
}
