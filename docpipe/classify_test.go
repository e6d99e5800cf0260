package docpipe

import (
	"context"
	"strings"
	"testing"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "plain json",
			raw:  `{"label": "Court Judgment", "confidence": 0.94}`,
			want: TypeJudgment,
		},
		{
			name: "fenced with prose",
			raw:  "Sure, here is the classification:\n```json\n{\"label\": \"Statute/Act\", \"confidence\": 0.81}\n```",
			want: TypeAct,
		},
		{
			name: "case-insensitive label",
			raw:  `{"label": "legal notice", "confidence": 0.7}`,
			want: TypeNotice,
		},
		{
			name: "sloppy json repaired",
			raw:  `{"label": "Contract/Agreement", "confidence": 0.88,}`,
			want: TypeContract,
		},
		{
			name:    "label outside set",
			raw:     `{"label": "Grocery List", "confidence": 0.99}`,
			wantErr: true,
		},
		{
			name:    "no json at all",
			raw:     "I think this is a judgment.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls, err := parseClassification(tt.raw, DocumentTypes)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("got %+v, want error", cls)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseClassification: %v", err)
			}
			if cls.Label != tt.want {
				t.Errorf("label = %q, want %q", cls.Label, tt.want)
			}
		})
	}
}

func TestClassifyTruncatesSample(t *testing.T) {
	var sawLen int
	chat := &scriptedChat{respond: func(prompt string) (string, error) {
		start := strings.Index(prompt, "Text:\n")
		sawLen = len(prompt[start+len("Text:\n"):])
		return `{"label": "Court Judgment", "confidence": 0.9}`, nil
	}}

	c := NewLLMClassifier(chat)
	long := strings.Repeat("x", 5000)
	cls, err := c.Classify(context.Background(), long, DocumentTypes)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if cls.Label != TypeJudgment {
		t.Errorf("label = %q", cls.Label)
	}
	if sawLen > maxClassifyChars {
		t.Errorf("prompt carried %d chars of text, want at most %d", sawLen, maxClassifyChars)
	}
}

func TestClassifyEmptyText(t *testing.T) {
	c := NewLLMClassifier(&scriptedChat{respond: func(string) (string, error) {
		t.Fatal("chat should not be called for empty text")
		return "", nil
	}})
	if _, err := c.Classify(context.Background(), "   ", DocumentTypes); err == nil {
		t.Fatal("want error for empty text")
	}
}
