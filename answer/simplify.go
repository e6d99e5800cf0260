// Package answer renders an expanded legal context into plain-language text.
// Template selection depends on what the traversal found: situation plus
// principles plus articles, principles only, or scenario only.
package answer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/legalgraph/lawreader/kg"
	"github.com/legalgraph/lawreader/traverse"
)

const (
	noContextAnswer = "No legal context found for your query."

	disclaimer = "This information is based on the Indian legal framework. " +
		"For specific legal advice, please consult a qualified lawyer. " +
		"Laws may vary by state and specific circumstances."
)

var whitespaceRE = regexp.MustCompile(`\s+`)

// Simplify converts the traversal context into the full guidance text.
func Simplify(ec *traverse.Context) string {
	if ec == nil || ec.Scenario == nil {
		return noContextAnswer
	}

	situation := ec.Scenario.Content()
	if situation == "" {
		situation = "No specific example available"
	}

	principles := formatPrinciples(ec.Principles)
	articles := formatArticles(ec.Articles)
	summary := summarize(ec)

	var b strings.Builder
	b.WriteString("LEGAL GUIDANCE\n\n")
	b.WriteString("Your Situation:\n")
	b.WriteString(situation)
	b.WriteString("\n")

	switch {
	case principles != "" && articles != "":
		fmt.Fprintf(&b, "\nRelevant Legal Principles:\n%s\n", principles)
		fmt.Fprintf(&b, "\nConstitutional/Legal Articles:\n%s\n", articles)
		fmt.Fprintf(&b, "\nSummary:\n%s", summary)
	case principles != "":
		fmt.Fprintf(&b, "\nRelevant Legal Principles:\n%s\n", principles)
		fmt.Fprintf(&b, "\nSummary:\n%s", summary)
	default:
		fmt.Fprintf(&b, "\nKey Information:\n%s", summary)
	}

	return b.String()
}

// ShortAnswer produces a one-line condensed version of the guidance.
func ShortAnswer(ec *traverse.Context) string {
	if ec == nil || ec.Scenario == nil {
		return "No relevant legal information found."
	}

	var parts []string

	if len(ec.Principles) > 0 {
		if text := cleanText(ec.Principles[0].Content()); text != "" {
			parts = append(parts, "Key principle: "+truncateRunes(text, 150))
		}
	}
	if len(ec.Articles) > 0 {
		if title := strings.TrimSpace(ec.Articles[0].Title); title != "" {
			parts = append(parts, "Relevant law: "+title)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "Legal context found in database.")
	}
	parts = append(parts, "Consult a lawyer for specific advice.")

	return strings.Join(parts, " | ")
}

func formatPrinciples(principles []*kg.Node) string {
	var lines []string
	for _, p := range principles {
		if text := cleanText(p.Content()); text != "" {
			lines = append(lines, "- "+text)
		}
	}
	return strings.Join(lines, "\n")
}

func formatArticles(articles []*kg.Node) string {
	var blocks []string
	for _, a := range articles {
		title := strings.TrimSpace(a.Title)
		if title == "" {
			continue
		}
		block := title
		if a.Number != "" {
			block = fmt.Sprintf("Article %s: %s", a.Number, title)
		}
		if desc := cleanText(a.Description); desc != "" {
			block += "\n   " + desc
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n")
}

func summarize(ec *traverse.Context) string {
	nPrinciples := 0
	for _, p := range ec.Principles {
		if strings.TrimSpace(p.Content()) != "" {
			nPrinciples++
		}
	}
	nArticles := 0
	for _, a := range ec.Articles {
		if strings.TrimSpace(a.Title) != "" {
			nArticles++
		}
	}

	var head string
	switch {
	case nPrinciples > 0 && nArticles > 0:
		head = fmt.Sprintf("Found %d relevant legal principle(s) and %d constitutional/legal article(s) that apply to your situation. ", nPrinciples, nArticles)
	case nPrinciples > 0:
		head = fmt.Sprintf("Found %d relevant legal principle(s) that apply to your situation. ", nPrinciples)
	case nArticles > 0:
		head = fmt.Sprintf("Found %d relevant constitutional/legal article(s) that apply to your situation. ", nArticles)
	}

	return head + disclaimer
}

// cleanText collapses runs of whitespace so graph text pasted from documents
// renders on one line.
func cleanText(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// truncateRunes cuts s to at most n runes, never mid-rune, with an ellipsis.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
