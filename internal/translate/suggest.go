package translate

import (
	"encoding/json"
	"fmt"
)

// MessageSuggestion is one proposed campaign message.
type MessageSuggestion struct {
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Tone      string `json:"tone"`
	ImageType string `json:"imageType,omitempty"`
}

// Suggestions is the translator output contract for message suggestions.
type Suggestions struct {
	Objective   string              `json:"objective"`
	Suggestions []MessageSuggestion `json:"suggestions"`
}

// ParseSuggestions sanitizes and decodes suggestion output. The same
// recoverable parse error applies: callers keep going and may show the raw
// text instead.
func ParseSuggestions(raw string) (*Suggestions, error) {
	cleaned, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var sg Suggestions
	if err := json.Unmarshal([]byte(cleaned), &sg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranslationParse, err)
	}
	if len(sg.Suggestions) == 0 {
		return nil, fmt.Errorf("%w: no suggestions", ErrTranslationParse)
	}
	for i, ms := range sg.Suggestions {
		if ms.Subject == "" || ms.Body == "" {
			return nil, fmt.Errorf("%w: suggestion %d misses subject or body", ErrTranslationParse, i)
		}
	}
	return &sg, nil
}
