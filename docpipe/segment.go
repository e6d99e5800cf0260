package docpipe

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/legalgraph/lawreader/llm"
)

// chunkSize bounds per-prompt text for LLM segmentation.
const chunkSize = 2000

// minParagraphChars filters boilerplate fragments out of contract
// segmentation.
const minParagraphChars = 50

// sectionRE locates statute section starts.
var sectionRE = regexp.MustCompile(`(?i)Section\s+(\d+)`)

// Segmenter splits documents into labeled segments using a strategy chosen
// by document type.
type Segmenter struct {
	chat       llm.Provider
	classifier Classifier
}

// NewSegmenter creates a Segmenter. The classifier labels contract clauses;
// the chat provider drives judgment, notice, and petition segmentation.
func NewSegmenter(chat llm.Provider, classifier Classifier) *Segmenter {
	return &Segmenter{chat: chat, classifier: classifier}
}

// Segment splits text into labeled segments for the given document type.
func (s *Segmenter) Segment(ctx context.Context, text, docType string) ([]Segment, error) {
	switch docType {
	case TypeJudgment:
		return s.segmentLabeled(ctx, text, "court judgment", []labeledSection{
			{"Facts", "The factual background and circumstances of the case"},
			{"Arguments", "The legal arguments presented by parties"},
			{"Decision", "The court's reasoning and legal analysis"},
			{"Order", "The final order or judgment given by the court"},
		})
	case TypeNotice:
		return s.segmentLabeled(ctx, text, "legal notice", []labeledSection{
			{"Introduction", "Opening statements and context"},
			{"Claim", "The main claim or complaint being made"},
			{"Relief Sought", "What remedy or action is being demanded"},
		})
	case TypePetition:
		return s.segmentLabeled(ctx, text, "petition or writ", []labeledSection{
			{"Parties", "Information about petitioner(s) and respondent(s)"},
			{"Grounds", "The legal grounds and basis for the petition"},
			{"Prayer", "The relief or remedy sought from the court"},
			{"Affidavit", "Any sworn statements or affidavits"},
		})
	case TypeContract:
		return s.segmentContract(ctx, text)
	case TypeAct:
		return segmentAct(text), nil
	default:
		return nil, fmt.Errorf("%w: unknown document type %q", ErrSegmentation, docType)
	}
}

type labeledSection struct {
	label       string
	description string
}

// segmentLabeled asks the model to split the document into named sections
// and parses the labeled response.
func (s *Segmenter) segmentLabeled(ctx context.Context, text, kind string, sections []labeledSection) ([]Segment, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Please analyze the following %s and segment it into these sections:\n", kind)
	for i, sec := range sections {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, sec.label, sec.description)
	}
	b.WriteString("\nFor each section, provide the relevant text content. If a section is not present, write \"Not found\".\n")
	b.WriteString("\nText to analyze:\n")
	b.WriteString(truncate(text, chunkSize))
	b.WriteString("\n\nFormat your response as:\n")
	for _, sec := range sections {
		fmt.Fprintf(&b, "%s:\n[content]\n\n", strings.ToUpper(sec.label))
	}

	resp, err := s.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: "You are a legal document analyst."},
			{Role: "user", Content: b.String()},
		},
		Temperature: 0.2,
		MaxTokens:   1500,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSegmentation, err)
	}

	labels := make([]string, len(sections))
	for i, sec := range sections {
		labels[i] = sec.label
	}
	return parseLabeledSections(resp.Content, labels), nil
}

// parseLabeledSections splits a labeled LLM response into segments. Header
// matching strips spaces and underscores on both sides, so "RELIEF SOUGHT:"
// and "RELIEF_SOUGHT:" both resolve to the "Relief Sought" label. Sections
// whose content is "Not found" are dropped.
func parseLabeledSections(response string, labels []string) []Segment {
	var segments []Segment
	var current string
	var content []string

	flush := func() {
		if current == "" {
			return
		}
		text := strings.TrimSpace(strings.Join(content, "\n"))
		if text != "" && !strings.EqualFold(text, "not found") {
			segments = append(segments, Segment{Label: current, Content: text})
		}
	}

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)

		if label, rest, ok := matchSectionHeader(line, labels); ok {
			flush()
			current = label
			content = content[:0]
			if rest != "" {
				content = append(content, rest)
			}
			continue
		}
		if current != "" {
			content = append(content, line)
		}
	}
	flush()

	return segments
}

// matchSectionHeader reports whether line is a "LABEL:" header for one of
// the expected labels, returning the canonical label and any content that
// follows the colon on the same line.
func matchSectionHeader(line string, labels []string) (label, rest string, ok bool) {
	head, tail, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	norm := normalizeLabel(head)
	for _, l := range labels {
		if norm == normalizeLabel(l) {
			return l, strings.TrimSpace(tail), true
		}
	}
	return "", "", false
}

func normalizeLabel(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}

// segmentContract splits on blank lines and classifies each paragraph as a
// clause type. Classification failures degrade to Miscellaneous rather than
// failing the document.
func (s *Segmenter) segmentContract(ctx context.Context, text string) ([]Segment, error) {
	var segments []Segment

	for i, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if len(paragraph) < minParagraphChars {
			continue
		}

		label := "Miscellaneous"
		confidence := 0.0
		if s.classifier != nil {
			cls, err := s.classifier.Classify(ctx, paragraph, ContractClauses)
			if err != nil {
				slog.Warn("clause classification failed", "paragraph", i+1, "error", err)
			} else {
				label = cls.Label
				confidence = cls.Confidence
			}
		}

		segments = append(segments, Segment{
			Label:      label,
			Content:    paragraph,
			Confidence: confidence,
			Paragraph:  i + 1,
		})
	}

	return segments, nil
}

// segmentAct cuts a statute at each "Section N" heading. A document with no
// recognizable sections comes back as a single full-text segment.
func segmentAct(text string) []Segment {
	matches := sectionRE.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []Segment{{Label: "Full Text", Content: text}}
	}

	segments := make([]Segment, 0, len(matches))
	for i, m := range matches {
		start := m[0]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		num, _ := strconv.Atoi(text[m[2]:m[3]])
		segments = append(segments, Segment{
			Label:         "Section " + text[m[2]:m[3]],
			Content:       strings.TrimSpace(text[start:end]),
			SectionNumber: num,
		})
	}
	return segments
}
