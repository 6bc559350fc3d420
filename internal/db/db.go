// Package db persists chunk metadata in SQLite. The metadata file is one
// half of the index artifact pair; the vector index file is the other.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/askmto/askmto/internal/chunker"
)

// DB wraps a sql.DB holding the chunk metadata store.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens a metadata database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// OpenMemory creates an in-memory metadata database (useful for testing).
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
    ordinal INTEGER PRIMARY KEY,
    text TEXT NOT NULL,
    page_start INTEGER NOT NULL,
    page_end INTEGER NOT NULL,
    keywords TEXT NOT NULL DEFAULT '{}'
);
`

// InsertChunks stores the chunk set in a single transaction. Chunks are
// written once per build and never mutated afterwards.
func (d *DB) InsertChunks(ctx context.Context, chunks []chunker.Chunk) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (ordinal, text, page_start, page_end, keywords) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		keywords, err := json.Marshal(c.Keywords)
		if err != nil {
			return fmt.Errorf("marshalling keywords for chunk %d: %w", c.Ordinal, err)
		}
		if _, err := stmt.ExecContext(ctx, c.Ordinal, c.Text, c.PageStart, c.PageEnd, string(keywords)); err != nil {
			return fmt.Errorf("inserting chunk %d: %w", c.Ordinal, err)
		}
	}

	return tx.Commit()
}

// Chunk returns the chunk with the given ordinal.
func (d *DB) Chunk(ctx context.Context, ordinal int) (chunker.Chunk, error) {
	var (
		c        chunker.Chunk
		keywords string
	)
	err := d.QueryRowContext(ctx,
		`SELECT ordinal, text, page_start, page_end, keywords FROM chunks WHERE ordinal = ?`, ordinal,
	).Scan(&c.Ordinal, &c.Text, &c.PageStart, &c.PageEnd, &keywords)
	if err == sql.ErrNoRows {
		return c, fmt.Errorf("chunk %d not found", ordinal)
	}
	if err != nil {
		return c, fmt.Errorf("querying chunk %d: %w", ordinal, err)
	}
	if err := json.Unmarshal([]byte(keywords), &c.Keywords); err != nil {
		return c, fmt.Errorf("unmarshalling keywords for chunk %d: %w", ordinal, err)
	}
	return c, nil
}

// Chunks returns the chunks for the given ordinals, preserving their order.
func (d *DB) Chunks(ctx context.Context, ordinals []int) ([]chunker.Chunk, error) {
	out := make([]chunker.Chunk, 0, len(ordinals))
	for _, ord := range ordinals {
		c, err := d.Chunk(ctx, ord)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Ordinals returns every chunk ordinal in ascending order.
func (d *DB) Ordinals(ctx context.Context) ([]int, error) {
	rows, err := d.QueryContext(ctx, `SELECT ordinal FROM chunks ORDER BY ordinal`)
	if err != nil {
		return nil, fmt.Errorf("querying ordinals: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var ord int
		if err := rows.Scan(&ord); err != nil {
			return nil, fmt.Errorf("scanning ordinal: %w", err)
		}
		out = append(out, ord)
	}
	return out, rows.Err()
}

// Count returns the number of stored chunks.
func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}
