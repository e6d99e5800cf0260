package docpipe

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/legalgraph/lawreader/llm"
	"github.com/legalgraph/lawreader/store"
)

// failedSummary is the placeholder recorded when summarization degrades.
const failedSummary = "Summary could not be generated."

// AnalyzedSegment is one segment after citation extraction and
// summarization.
type AnalyzedSegment struct {
	Segment
	Summary   string       `json:"summary"`
	Citations *CitationSet `json:"-"`
}

// Analysis is the complete result for one document.
type Analysis struct {
	Path           string            `json:"file_path"`
	DocumentID     int64             `json:"document_id,omitempty"`
	DocType        Classification    `json:"document_type"`
	Pages          int               `json:"pages"`
	TextLength     int               `json:"text_length"`
	Segments       []AnalyzedSegment `json:"segments"`
	TotalCitations int               `json:"total_citations"`
}

// Analyzer runs the full document pipeline: extract, classify, segment,
// extract citations, summarize, persist.
type Analyzer struct {
	classifier Classifier
	segmenter  *Segmenter
	citations  *CitationExtractor
	summarizer *Summarizer
	store      *store.Store

	// extract is swappable for tests that have no real PDF on hand.
	extract func(path string) (*Extraction, error)
}

// NewAnalyzer wires the pipeline onto one chat provider. The store may be
// nil, in which case analyses are not persisted.
func NewAnalyzer(chat llm.Provider, st *store.Store) *Analyzer {
	classifier := NewLLMClassifier(chat)
	return &Analyzer{
		classifier: classifier,
		segmenter:  NewSegmenter(chat, classifier),
		citations:  NewCitationExtractor(chat),
		summarizer: NewSummarizer(chat),
		store:      st,
		extract:    ExtractText,
	}
}

// Analyze runs the pipeline over one PDF. Per-segment citation and summary
// failures degrade to partial results; extraction, classification, and
// segmentation failures fail the document.
func (a *Analyzer) Analyze(ctx context.Context, path string) (*Analysis, error) {
	slog.Info("analyzing document", "path", path)

	ext, err := a.extract(path)
	if err != nil {
		return nil, err
	}

	cls, err := a.classifier.Classify(ctx, ext.Text, DocumentTypes)
	if err != nil {
		return nil, err
	}
	slog.Info("document type detected", "path", path, "type", cls.Label, "confidence", cls.Confidence)

	segments, err := a.segmenter.Segment(ctx, ext.Text, cls.Label)
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{
		Path:       path,
		DocType:    *cls,
		Pages:      ext.Pages,
		TextLength: len(ext.Text),
		Segments:   make([]AnalyzedSegment, 0, len(segments)),
	}

	for _, seg := range segments {
		cites, err := a.citations.Extract(ctx, seg.Content)
		if err != nil {
			slog.Warn("citation extraction failed", "segment", seg.Label, "error", err)
			cites = &CitationSet{}
		}

		summary, err := a.summarizer.Summarize(ctx, seg.Content,
			fmt.Sprintf("%s - %s", cls.Label, seg.Label))
		if err != nil {
			slog.Warn("summarization failed", "segment", seg.Label, "error", err)
			summary = failedSummary
		}

		analysis.Segments = append(analysis.Segments, AnalyzedSegment{
			Segment:   seg,
			Summary:   summary,
			Citations: cites,
		})
		analysis.TotalCitations += cites.Total()
	}

	if a.store != nil {
		if err := a.persist(ctx, ext, analysis); err != nil {
			return nil, fmt.Errorf("persisting analysis: %w", err)
		}
	}

	slog.Info("analysis complete",
		"path", path, "type", cls.Label,
		"segments", len(analysis.Segments), "citations", analysis.TotalCitations)

	return analysis, nil
}

// persist writes the document row and its segments and citations.
func (a *Analyzer) persist(ctx context.Context, ext *Extraction, analysis *Analysis) error {
	docID, err := a.store.UpsertDocument(ctx, store.Document{
		Path:        analysis.Path,
		Filename:    filepath.Base(analysis.Path),
		ContentHash: ext.ContentHash,
		DocType:     analysis.DocType.Label,
		PageCount:   ext.Pages,
		Status:      "processing",
	})
	if err != nil {
		return err
	}
	analysis.DocumentID = docID

	segments := make([]store.Segment, len(analysis.Segments))
	var citations []store.Citation
	var overview []string

	for i, seg := range analysis.Segments {
		segments[i] = store.Segment{
			DocumentID: docID,
			Label:      seg.Label,
			Content:    seg.Content,
			Summary:    seg.Summary,
		}
		if seg.Summary != failedSummary {
			overview = append(overview, seg.Label+": "+seg.Summary)
		}
		seg.Citations.Each(func(category, text string) {
			citations = append(citations, store.Citation{
				DocumentID: docID,
				Category:   category,
				Text:       text,
			})
		})
	}

	return a.store.SaveAnalysis(ctx, docID, analysis.DocType.Label,
		strings.Join(overview, "\n\n"), segments, citations)
}
