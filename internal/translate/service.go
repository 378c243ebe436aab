package translate

import (
	"context"
	"errors"
)

// Service ties the translator and the rules cache together behind one call.
type Service struct {
	tr    Translator
	cache RulesCache
}

func NewService(tr Translator, cache RulesCache) *Service {
	return &Service{tr: tr, cache: cache}
}

// GenerateSegment turns a natural-language description into a validated
// segment. The raw model output is returned alongside so callers can show
// it as a fallback when parsing fails. Only parseable output is cached.
func (s *Service) GenerateSegment(ctx context.Context, description string) (*Segment, string, error) {
	if raw, ok := s.cache.Get(ctx, description); ok {
		seg, err := ParseSegment(raw)
		if err == nil {
			return seg, raw, nil
		}
		// stale or corrupted entry; fall through to the translator
	}

	raw, err := s.tr.Translate(ctx, SegmentPrompt(description))
	if err != nil {
		return nil, "", err
	}

	seg, err := ParseSegment(raw)
	if err != nil {
		return nil, raw, err
	}
	s.cache.Set(ctx, description, raw)
	return seg, raw, nil
}

// SuggestMessages turns a campaign objective into candidate messages.
// Creative output is never cached; every call gets fresh variations.
func (s *Service) SuggestMessages(ctx context.Context, objective string) (*Suggestions, string, error) {
	raw, err := s.tr.Translate(ctx, SuggestionPrompt(objective))
	if err != nil {
		return nil, "", err
	}
	sg, err := ParseSuggestions(raw)
	if err != nil {
		return nil, raw, err
	}
	return sg, raw, nil
}

// Narrative asks the translator for a performance summary. Failures are
// recoverable; callers degrade to numbers-only output.
func (s *Service) Narrative(ctx context.Context, prompt string) (string, error) {
	if s.tr == nil {
		return "", errors.New("no translator configured")
	}
	return s.tr.Translate(ctx, prompt)
}
