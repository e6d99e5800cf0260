package docpipe

import (
	"context"
	"fmt"
	"strings"

	"github.com/legalgraph/lawreader/llm"
)

// Citation categories, as stored and reported.
const (
	CategoryCaseCitations       = "case_citations"
	CategoryStatutoryReferences = "statutory_references"
	CategoryLegalAuthorities    = "legal_authorities"
	CategoryActNames            = "act_names"
	CategoryOtherReferences     = "other_references"
)

// citationCategories maps response headers to category keys, in report order.
var citationCategories = []struct {
	header   string
	category string
}{
	{"CASE CITATIONS:", CategoryCaseCitations},
	{"STATUTORY REFERENCES:", CategoryStatutoryReferences},
	{"LEGAL AUTHORITIES:", CategoryLegalAuthorities},
	{"ACT NAMES:", CategoryActNames},
	{"OTHER REFERENCES:", CategoryOtherReferences},
}

// CitationSet holds extracted references grouped by category. The zero
// value is empty and usable.
type CitationSet struct {
	byCategory map[string][]string
}

// Add appends a citation under a category.
func (c *CitationSet) Add(category, text string) {
	if c.byCategory == nil {
		c.byCategory = make(map[string][]string)
	}
	c.byCategory[category] = append(c.byCategory[category], text)
}

// Get returns the citations in one category.
func (c *CitationSet) Get(category string) []string {
	return c.byCategory[category]
}

// Total counts citations across all categories.
func (c *CitationSet) Total() int {
	n := 0
	for _, v := range c.byCategory {
		n += len(v)
	}
	return n
}

// Each visits every citation in stable category order.
func (c *CitationSet) Each(fn func(category, text string)) {
	for _, cc := range citationCategories {
		for _, text := range c.byCategory[cc.category] {
			fn(cc.category, text)
		}
	}
}

const citationPrompt = `Extract all legal citations, case names, statutory references, and legal authorities from the following text.

Identify and list:
1. Case citations (e.g., "ABC v. XYZ (2023) 1 SCC 123")
2. Statutory references (e.g., "Section 123 of the Indian Penal Code", "Article 14 of the Constitution")
3. Legal authorities (e.g., Supreme Court, High Court names)
4. Act names (e.g., "Companies Act, 2013")
5. Any other legal references

Text to analyze:
%s

Format your response as a structured list:
CASE CITATIONS:
- [citation]

STATUTORY REFERENCES:
- [reference]

LEGAL AUTHORITIES:
- [authority]

ACT NAMES:
- [act]

OTHER REFERENCES:
- [reference]

If no citations are found in a category, write "None found".`

// CitationExtractor pulls legal references out of text with an LLM prompt.
type CitationExtractor struct {
	chat llm.Provider
}

// NewCitationExtractor returns an extractor backed by the given provider.
func NewCitationExtractor(chat llm.Provider) *CitationExtractor {
	return &CitationExtractor{chat: chat}
}

// Extract returns the categorized citations found in text.
func (e *CitationExtractor) Extract(ctx context.Context, text string) (*CitationSet, error) {
	resp, err := e.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: "You are a legal citation extractor."},
			{Role: "user", Content: fmt.Sprintf(citationPrompt, text)},
		},
		Temperature: 0.0,
		MaxTokens:   800,
	})
	if err != nil {
		return nil, fmt.Errorf("extracting citations: %w", err)
	}
	return parseCitations(resp.Content), nil
}

// parseCitations walks the labeled list response. Lines outside a known
// category, and "None found" placeholders, are ignored.
func parseCitations(response string) *CitationSet {
	set := &CitationSet{}
	current := ""

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)

		matched := false
		for _, cc := range citationCategories {
			if strings.EqualFold(line, cc.header) {
				current = cc.category
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		if current != "" && strings.HasPrefix(line, "- ") {
			item := strings.TrimSpace(line[2:])
			if item != "" && !strings.EqualFold(item, "none found") {
				set.Add(current, item)
			}
		}
	}
	return set
}
