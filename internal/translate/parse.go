package translate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"crm-segment-engine/internal/segment"
)

// ErrTranslationParse marks translator output that could not be turned into
// a valid segment. It is recoverable: callers keep the previous view and
// may show the raw text instead.
var ErrTranslationParse = errors.New("translator output is not a parseable segment")

// Segment is the expected translator output contract.
type Segment struct {
	Description string          `json:"description"`
	Rules       segment.RuleSet `json:"rules"`
}

// ExtractJSON sanitizes a raw model response: strips markdown code fences
// and, when the response is not pure JSON, slices from the first '{' to the
// last '}'.
func ExtractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if json.Valid([]byte(s)) {
		return s, nil
	}
	// prose around (or after) the object; keep first '{' through last '}'
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: no JSON object found", ErrTranslationParse)
	}
	return s[start : end+1], nil
}

// ParseSegment sanitizes and decodes translator output, then validates the
// rules against the supported field set. Invalid output never reaches the
// evaluator.
func ParseSegment(raw string) (*Segment, error) {
	cleaned, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var seg Segment
	if err := json.Unmarshal([]byte(cleaned), &seg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranslationParse, err)
	}
	if len(seg.Rules) == 0 {
		return nil, fmt.Errorf("%w: no rules", ErrTranslationParse)
	}
	if err := segment.ValidateRuleSet(seg.Rules); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranslationParse, err)
	}
	return &seg, nil
}
