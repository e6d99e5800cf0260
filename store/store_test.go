//go:build cgo

package store

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleDoc(path string) Document {
	return Document{
		Path:        path,
		Filename:    "judgment.pdf",
		ContentHash: "abc123",
		DocType:     "judgment",
		PageCount:   12,
		Status:      "pending",
		Metadata:    `{"source":"upload"}`,
	}
}

func TestNewCreatesParentDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", "dir", "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	s.Close()
}

func TestUpsertAndGetDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertDocument(ctx, sampleDoc("/tmp/judgment.pdf"))
	if err != nil {
		t.Fatalf("upserting: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}

	got, err := s.GetDocument(ctx, id)
	if err != nil {
		t.Fatalf("getting by id: %v", err)
	}
	if got.Filename != "judgment.pdf" || got.DocType != "judgment" || got.PageCount != 12 {
		t.Errorf("document fields: %+v", got)
	}

	byPath, err := s.GetDocumentByPath(ctx, "/tmp/judgment.pdf")
	if err != nil {
		t.Fatalf("getting by path: %v", err)
	}
	if byPath.ID != id {
		t.Errorf("id by path = %d, want %d", byPath.ID, id)
	}
}

func TestUpsertDocumentUpdatesInPlace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, err := s.UpsertDocument(ctx, sampleDoc("/tmp/doc.pdf"))
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	doc := sampleDoc("/tmp/doc.pdf")
	doc.ContentHash = "def456"
	id2, err := s.UpsertDocument(ctx, doc)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if id1 != id2 {
		t.Errorf("upsert created a new row: %d vs %d", id1, id2)
	}

	got, _ := s.GetDocument(ctx, id1)
	if got.ContentHash != "def456" {
		t.Errorf("hash not updated: %s", got.ContentHash)
	}
}

// The update branch must return this row's id, not the connection's last
// inserted rowid left over from another document.
func TestUpsertDocumentReturnsOwnIDAfterInterleavedInsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	idA, err := s.UpsertDocument(ctx, sampleDoc("/tmp/a.pdf"))
	if err != nil {
		t.Fatalf("upserting a: %v", err)
	}
	idB, err := s.UpsertDocument(ctx, sampleDoc("/tmp/b.pdf"))
	if err != nil {
		t.Fatalf("upserting b: %v", err)
	}
	if idA == idB {
		t.Fatalf("distinct documents share id %d", idA)
	}

	again, err := s.UpsertDocument(ctx, sampleDoc("/tmp/a.pdf"))
	if err != nil {
		t.Fatalf("re-upserting a: %v", err)
	}
	if again != idA {
		t.Errorf("re-upsert of a returned id %d, want %d", again, idA)
	}
}

func TestSaveAnalysisRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertDocument(ctx, sampleDoc("/tmp/doc.pdf"))
	if err != nil {
		t.Fatalf("upserting: %v", err)
	}

	segments := []Segment{
		{Label: "facts", Content: "the appellant was arrested on..."},
		{Label: "arguments", Content: "counsel submitted that..."},
		{Label: "judgment", Content: "the appeal is allowed."},
	}
	citations := []Citation{
		{Category: "case_citations", Text: "AIR 1978 SC 597"},
		{Category: "statutory_references", Text: "Section 302 IPC"},
	}

	if err := s.SaveAnalysis(ctx, id, "judgment", "appeal allowed on due process grounds", segments, citations); err != nil {
		t.Fatalf("saving analysis: %v", err)
	}

	gotSegs, err := s.GetSegments(ctx, id)
	if err != nil {
		t.Fatalf("getting segments: %v", err)
	}
	if len(gotSegs) != 3 {
		t.Fatalf("got %d segments, want 3", len(gotSegs))
	}
	for i, seg := range gotSegs {
		if seg.Position != i {
			t.Errorf("segment %d position = %d", i, seg.Position)
		}
	}
	if gotSegs[0].Label != "facts" || gotSegs[2].Label != "judgment" {
		t.Errorf("segment order wrong: %v", gotSegs)
	}

	gotCits, err := s.GetCitations(ctx, id)
	if err != nil {
		t.Fatalf("getting citations: %v", err)
	}
	if len(gotCits) != 2 {
		t.Fatalf("got %d citations, want 2", len(gotCits))
	}

	doc, _ := s.GetDocument(ctx, id)
	if doc.Status != "analyzed" {
		t.Errorf("status = %s, want analyzed", doc.Status)
	}
	if doc.Summary == "" {
		t.Error("summary not saved")
	}
}

func TestSaveAnalysisReplacesPrevious(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, _ := s.UpsertDocument(ctx, sampleDoc("/tmp/doc.pdf"))

	first := []Segment{{Label: "facts", Content: "v1"}}
	if err := s.SaveAnalysis(ctx, id, "judgment", "", first, nil); err != nil {
		t.Fatalf("first analysis: %v", err)
	}
	second := []Segment{{Label: "facts", Content: "v2"}, {Label: "judgment", Content: "v2"}}
	if err := s.SaveAnalysis(ctx, id, "judgment", "", second, nil); err != nil {
		t.Fatalf("second analysis: %v", err)
	}

	segs, _ := s.GetSegments(ctx, id)
	if len(segs) != 2 || segs[0].Content != "v2" {
		t.Fatalf("old analysis survived: %v", segs)
	}
}

func TestDeleteDocumentCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, _ := s.UpsertDocument(ctx, sampleDoc("/tmp/doc.pdf"))
	s.SaveAnalysis(ctx, id, "judgment", "", []Segment{{Label: "facts", Content: "x"}},
		[]Citation{{Category: "other_references", Text: "y"}})

	if err := s.DeleteDocument(ctx, id); err != nil {
		t.Fatalf("deleting: %v", err)
	}

	segs, _ := s.GetSegments(ctx, id)
	if len(segs) != 0 {
		t.Errorf("segments not cascaded: %v", segs)
	}
	cits, _ := s.GetCitations(ctx, id)
	if len(cits) != 0 {
		t.Errorf("citations not cascaded: %v", cits)
	}
}

func TestQueryLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, rec := range []QueryRecord{
		{Query: "q1", Answer: "a1", MethodUsed: "graph_match", Success: true, MatchScore: 0.81},
		{Query: "q2", Answer: "a2", MethodUsed: "llm_generation", Success: true, NodesCreated: 4},
		{Query: "q3", MethodUsed: "llm_generation", Success: false},
	} {
		if err := s.LogQuery(ctx, rec); err != nil {
			t.Fatalf("logging query %d: %v", i, err)
		}
	}

	recent, err := s.RecentQueries(ctx, 2)
	if err != nil {
		t.Fatalf("recent queries: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d records, want 2", len(recent))
	}
	// Newest first.
	if recent[0].Query != "q3" || recent[1].Query != "q2" {
		t.Errorf("order wrong: %s, %s", recent[0].Query, recent[1].Query)
	}
	if recent[1].NodesCreated != 4 {
		t.Errorf("nodes created = %d", recent[1].NodesCreated)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, _ := s.UpsertDocument(ctx, sampleDoc("/tmp/doc.pdf"))
	s.SaveAnalysis(ctx, id, "judgment", "", []Segment{{Label: "facts", Content: "x"}},
		[]Citation{{Category: "act_names", Text: "IPC"}})
	s.LogQuery(ctx, QueryRecord{Query: "q", Success: true})

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Documents != 1 || stats.Segments != 1 || stats.Citations != 1 || stats.Queries != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
