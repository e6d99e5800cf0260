//go:build cgo

package vecindex

import (
	"context"
	"math"
	"path/filepath"
	"testing"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index_scenario.db")
	ix, err := Open(path, "scenario", 4)
	if err != nil {
		t.Fatalf("opening index: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func testEntries() []Entry {
	return []Entry{
		{NodeID: "scenario_aaaa1111_000001", Content: "police arrest without warrant", Vector: []float32{1, 0, 0, 0}},
		{NodeID: "scenario_bbbb2222_000002", Content: "landlord refuses deposit return", Vector: []float32{0, 1, 0, 0}},
		{NodeID: "scenario_cccc3333_000003", Content: "employer withholds final salary", Vector: []float32{0, 0.8, 0.6, 0}},
	}
}

func TestRebuildAndSearch(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	if err := ix.Rebuild(ctx, testEntries()); err != nil {
		t.Fatalf("rebuilding: %v", err)
	}

	n, err := ix.Count(ctx)
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}

	hits, err := ix.Search(ctx, []float32{0, 1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].NodeID != "scenario_bbbb2222_000002" {
		t.Errorf("best hit = %s, want scenario_bbbb2222_000002", hits[0].NodeID)
	}
	if hits[0].Score < hits[1].Score {
		t.Errorf("hits not in descending score order: %v then %v", hits[0].Score, hits[1].Score)
	}
	if hits[0].Score < 0.99 {
		t.Errorf("exact match score = %v, want ~1.0", hits[0].Score)
	}
}

// Scores must be cosine similarity, not a euclidean-distance complement.
// Each entry is a unit vector at a known cosine angle to the unit query.
func TestSearchScoresAreCosineSimilarity(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	cos := func(c float64) []float32 {
		s := math.Sqrt(1 - c*c)
		return []float32{float32(c), float32(s), 0, 0}
	}
	entries := []Entry{
		{NodeID: "near", Content: "near duplicate", Vector: cos(0.93)},
		{NodeID: "close", Content: "merely related", Vector: cos(0.90)},
		{NodeID: "far", Content: "unrelated", Vector: cos(0.20)},
	}
	if err := ix.Rebuild(ctx, entries); err != nil {
		t.Fatalf("rebuilding: %v", err)
	}

	hits, err := ix.Search(ctx, []float32{1, 0, 0, 0}, 3)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("got %d hits, want 3", len(hits))
	}

	want := map[string]float32{"near": 0.93, "close": 0.90, "far": 0.20}
	for _, h := range hits {
		w := want[h.NodeID]
		if diff := h.Score - w; diff < -0.005 || diff > 0.005 {
			t.Errorf("%s score = %v, want %v", h.NodeID, h.Score, w)
		}
	}
	if hits[0].NodeID != "near" {
		t.Errorf("best hit = %s, want near", hits[0].NodeID)
	}
}

func TestRebuildReplacesContents(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	if err := ix.Rebuild(ctx, testEntries()); err != nil {
		t.Fatalf("first rebuild: %v", err)
	}

	replacement := []Entry{
		{NodeID: "scenario_dddd4444_000004", Content: "new scenario", Vector: []float32{0, 0, 0, 1}},
	}
	if err := ix.Rebuild(ctx, replacement); err != nil {
		t.Fatalf("second rebuild: %v", err)
	}

	n, err := ix.Count(ctx)
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if n != 1 {
		t.Fatalf("count after replace = %d, want 1", n)
	}

	hits, err := ix.Search(ctx, []float32{1, 0, 0, 0}, 5)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	for _, h := range hits {
		if h.NodeID == "scenario_aaaa1111_000001" {
			t.Fatal("old entry survived rebuild")
		}
	}
}

func TestRebuildDimensionMismatch(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	err := ix.Rebuild(ctx, []Entry{
		{NodeID: "x", Content: "x", Vector: []float32{1, 0}},
	})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}

	// Failed rebuild must leave the index empty, not partially written.
	n, err := ix.Count(ctx)
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if n != 0 {
		t.Fatalf("count = %d after failed rebuild, want 0", n)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	ix := newTestIndex(t)

	hits, err := ix.Search(context.Background(), []float32{1, 0, 0, 0}, 3)
	if err != nil {
		t.Fatalf("searching empty index: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("got %d hits from empty index", len(hits))
	}
}

func TestIndexPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index_principle.db")
	ctx := context.Background()

	ix, err := Open(path, "principle", 4)
	if err != nil {
		t.Fatalf("opening: %v", err)
	}
	if err := ix.Rebuild(ctx, testEntries()); err != nil {
		t.Fatalf("rebuilding: %v", err)
	}
	ix.Close()

	reopened, err := Open(path, "principle", 4)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer reopened.Close()

	n, err := reopened.Count(ctx)
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if n != 3 {
		t.Fatalf("count after reopen = %d, want 3", n)
	}
}

func TestOpenSet(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	set, err := OpenSet(dir, 4, []string{"scenario", "principle", "article"})
	if err != nil {
		t.Fatalf("opening set: %v", err)
	}
	defer set.Close()

	if set.Index("scenario") == nil {
		t.Fatal("missing scenario index")
	}
	if set.Index("statute") != nil {
		t.Fatal("unexpected index for unknown type")
	}

	if err := set.Rebuild(ctx, "article", testEntries()); err != nil {
		t.Fatalf("rebuilding via set: %v", err)
	}
	hits, err := set.Search(ctx, "article", []float32{1, 0, 0, 0}, 1)
	if err != nil {
		t.Fatalf("searching via set: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}

	if _, err := set.Search(ctx, "statute", []float32{1, 0, 0, 0}, 1); err == nil {
		t.Fatal("expected error for unknown type")
	}
}
