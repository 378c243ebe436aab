package translate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTranslator struct {
	reply string
	err   error
	calls int
}

func (s *stubTranslator) Translate(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.reply, s.err
}

func TestService_GenerateSegment_CachesParseableOutput(t *testing.T) {
	tr := &stubTranslator{reply: validSegmentJSON}
	svc := NewService(tr, NewMemoryCache(time.Minute))

	seg, _, err := svc.GenerateSegment(context.Background(), "big spenders")
	require.NoError(t, err)
	assert.Len(t, seg.Rules, 2)
	assert.Equal(t, 1, tr.calls)

	// identical prompt is served from cache
	_, _, err = svc.GenerateSegment(context.Background(), "big spenders")
	require.NoError(t, err)
	assert.Equal(t, 1, tr.calls)
}

func TestService_GenerateSegment_MalformedNotCached(t *testing.T) {
	tr := &stubTranslator{reply: "here is json: {\"desc...MALFORMED"}
	svc := NewService(tr, NewMemoryCache(time.Minute))

	_, raw, err := svc.GenerateSegment(context.Background(), "whatever")
	assert.ErrorIs(t, err, ErrTranslationParse)
	assert.Equal(t, tr.reply, raw) // raw text preserved for fallback display

	_, _, _ = svc.GenerateSegment(context.Background(), "whatever")
	assert.Equal(t, 2, tr.calls)
}

func TestService_GenerateSegment_TranslatorError(t *testing.T) {
	tr := &stubTranslator{err: errors.New("boom")}
	svc := NewService(tr, NewMemoryCache(time.Minute))

	_, _, err := svc.GenerateSegment(context.Background(), "x")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTranslationParse)
}

func TestMemoryCache_TTL(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set(context.Background(), "p", "raw")
	got, ok := c.Get(context.Background(), "p")
	assert.True(t, ok)
	assert.Equal(t, "raw", got)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(context.Background(), "p")
	assert.False(t, ok)
}
