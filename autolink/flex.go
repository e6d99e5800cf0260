package autolink

import (
	"encoding/json"
	"strings"
)

// FlexText is a string field that tolerates the shapes LLMs actually emit:
// a plain string, an object carrying description/title/text/example, or a
// list of either, joined with spaces.
type FlexText string

func (f *FlexText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexText(s)
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil {
		for _, key := range []string{"description", "title", "text", "example"} {
			if raw, ok := obj[key]; ok {
				var inner FlexText
				if err := json.Unmarshal(raw, &inner); err == nil && inner != "" {
					*f = inner
					return nil
				}
			}
		}
		*f = FlexText(string(data))
		return nil
	}

	var list []FlexText
	if err := json.Unmarshal(data, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if item != "" {
				parts = append(parts, string(item))
			}
		}
		*f = FlexText(strings.Join(parts, " "))
		return nil
	}

	*f = FlexText(string(data))
	return nil
}

// String returns the normalized text, whitespace-trimmed.
func (f FlexText) String() string {
	return strings.TrimSpace(string(f))
}
