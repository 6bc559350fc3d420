package db

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/askmto/askmto/internal/chunker"
)

func sampleChunks() []chunker.Chunk {
	return []chunker.Chunk{
		{Ordinal: 0, Text: "G1 licence rules.", PageStart: 1, PageEnd: 1, Keywords: map[string]float64{"g1": 2.1, "licence": 1.4}},
		{Ordinal: 1, Text: "Right-of-way at intersections.", PageStart: 2, PageEnd: 3, Keywords: map[string]float64{"right": 1.8}},
		{Ordinal: 2, Text: "Speed limits.", PageStart: 4, PageEnd: 4},
	}
}

func TestInsertAndReadBack(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer d.Close()

	ctx := context.Background()
	if err := d.InsertChunks(ctx, sampleChunks()); err != nil {
		t.Fatalf("InsertChunks: %v", err)
	}

	got, err := d.Chunk(ctx, 1)
	if err != nil {
		t.Fatalf("Chunk(1): %v", err)
	}
	if got.Text != "Right-of-way at intersections." {
		t.Errorf("text = %q", got.Text)
	}
	if got.PageStart != 2 || got.PageEnd != 3 {
		t.Errorf("pages = %d-%d, want 2-3", got.PageStart, got.PageEnd)
	}
	if got.Keywords["right"] != 1.8 {
		t.Errorf("keywords = %v", got.Keywords)
	}
}

func TestChunksPreservesOrder(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer d.Close()

	ctx := context.Background()
	if err := d.InsertChunks(ctx, sampleChunks()); err != nil {
		t.Fatalf("InsertChunks: %v", err)
	}

	got, err := d.Chunks(ctx, []int{2, 0})
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	if len(got) != 2 || got[0].Ordinal != 2 || got[1].Ordinal != 0 {
		t.Errorf("unexpected order: %+v", got)
	}
}

func TestOrdinals(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer d.Close()

	ctx := context.Background()
	if err := d.InsertChunks(ctx, sampleChunks()); err != nil {
		t.Fatalf("InsertChunks: %v", err)
	}

	ords, err := d.Ordinals(ctx)
	if err != nil {
		t.Fatalf("Ordinals: %v", err)
	}
	if !reflect.DeepEqual(ords, []int{0, 1, 2}) {
		t.Errorf("Ordinals = %v", ords)
	}

	n, err := d.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func TestMissingChunk(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer d.Close()

	if _, err := d.Chunk(context.Background(), 99); err == nil {
		t.Fatal("expected error for missing chunk")
	}
}

func TestOpenOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.db")

	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	if err := d.InsertChunks(ctx, sampleChunks()); err != nil {
		t.Fatalf("InsertChunks: %v", err)
	}
	d.Close()

	// Reopen and verify persistence.
	d2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d2.Close()

	n, err := d2.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count after reopen = %d, want 3", n)
	}
}
