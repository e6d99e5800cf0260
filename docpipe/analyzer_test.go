//go:build cgo

package docpipe

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/legalgraph/lawreader/store"
)

// routeChat answers classification, segmentation, citation, and summary
// prompts by sniffing for their distinguishing instructions.
func routeChat(t *testing.T) *scriptedChat {
	t.Helper()
	return &scriptedChat{respond: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Classify the following text"):
			return `{"label": "Court Judgment", "confidence": 0.93}`, nil
		case strings.Contains(prompt, "segment it into these sections"):
			return "FACTS:\nThe petitioner was arrested without a warrant.\n\nARGUMENTS:\nNot found\n\nDECISION:\nThe arrest was unlawful.\n\nORDER:\nRelease ordered.", nil
		case strings.Contains(prompt, "Extract all legal citations"):
			return "CASE CITATIONS:\n- Joginder Kumar v. State of UP (1994) 4 SCC 260\n\nSTATUTORY REFERENCES:\n- Article 22 of the Constitution\n\nLEGAL AUTHORITIES:\n- None found\n\nACT NAMES:\n- None found\n\nOTHER REFERENCES:\n- None found", nil
		case strings.Contains(prompt, "Text to summarize"):
			return "The court found the arrest improper and ordered release.", nil
		default:
			return "", errors.New("unexpected prompt: " + prompt)
		}
	}}
}

func newTestAnalyzer(t *testing.T, chat *scriptedChat) (*Analyzer, *store.Store) {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "docpipe.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	a := NewAnalyzer(chat, s)
	a.extract = func(path string) (*Extraction, error) {
		return &Extraction{
			Text:        "IN THE SUPREME COURT OF INDIA\n\nJudgment text follows.",
			Pages:       4,
			ContentHash: "deadbeef",
		}, nil
	}
	return a, s
}

func TestAnalyzeFullPipeline(t *testing.T) {
	chat := routeChat(t)
	a, s := newTestAnalyzer(t, chat)

	ctx := context.Background()
	analysis, err := a.Analyze(ctx, "/tmp/judgment.pdf")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if analysis.DocType.Label != TypeJudgment {
		t.Errorf("type = %q, want %q", analysis.DocType.Label, TypeJudgment)
	}
	if len(analysis.Segments) != 3 {
		t.Fatalf("got %d segments, want 3 (Arguments is Not found)", len(analysis.Segments))
	}
	// Two citations per segment across three segments.
	if analysis.TotalCitations != 6 {
		t.Errorf("total citations = %d, want 6", analysis.TotalCitations)
	}
	for _, seg := range analysis.Segments {
		if seg.Summary == "" || seg.Summary == failedSummary {
			t.Errorf("segment %s has no summary", seg.Label)
		}
	}

	// Persisted round trip.
	doc, err := s.GetDocument(ctx, analysis.DocumentID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.DocType != TypeJudgment || doc.Status != "analyzed" || doc.PageCount != 4 {
		t.Errorf("stored document = %+v", doc)
	}
	segments, err := s.GetSegments(ctx, analysis.DocumentID)
	if err != nil {
		t.Fatalf("GetSegments: %v", err)
	}
	if len(segments) != 3 || segments[0].Label != "Facts" {
		t.Errorf("stored segments = %+v", segments)
	}
	citations, err := s.GetCitations(ctx, analysis.DocumentID)
	if err != nil {
		t.Fatalf("GetCitations: %v", err)
	}
	if len(citations) != 6 {
		t.Errorf("stored citations = %d, want 6", len(citations))
	}
}

func TestAnalyzeDegradesPerSegment(t *testing.T) {
	chat := &scriptedChat{respond: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Classify the following text"):
			return `{"label": "Court Judgment", "confidence": 0.93}`, nil
		case strings.Contains(prompt, "segment it into these sections"):
			return "FACTS:\nThe petitioner was arrested.", nil
		default:
			// Citations and summaries both fail.
			return "", errors.New("model overloaded")
		}
	}}
	a, _ := newTestAnalyzer(t, chat)

	analysis, err := a.Analyze(context.Background(), "/tmp/judgment.pdf")
	if err != nil {
		t.Fatalf("per-segment failures must not fail the document: %v", err)
	}
	if len(analysis.Segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(analysis.Segments))
	}
	seg := analysis.Segments[0]
	if seg.Summary != failedSummary {
		t.Errorf("summary = %q, want placeholder", seg.Summary)
	}
	if seg.Citations.Total() != 0 {
		t.Errorf("citations = %d, want 0", seg.Citations.Total())
	}
}

func TestAnalyzeClassificationFailureIsFatal(t *testing.T) {
	chat := &scriptedChat{respond: func(prompt string) (string, error) {
		return "not json", nil
	}}
	a, _ := newTestAnalyzer(t, chat)

	if _, err := a.Analyze(context.Background(), "/tmp/judgment.pdf"); !errors.Is(err, ErrClassification) {
		t.Fatalf("err = %v, want ErrClassification", err)
	}
}

func TestAnalyzeExtractionFailureIsFatal(t *testing.T) {
	a, _ := newTestAnalyzer(t, routeChat(t))
	a.extract = func(path string) (*Extraction, error) {
		return nil, ErrExtraction
	}

	if _, err := a.Analyze(context.Background(), "/tmp/empty.pdf"); !errors.Is(err, ErrExtraction) {
		t.Fatalf("err = %v, want ErrExtraction", err)
	}
}
