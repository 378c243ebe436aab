package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSegmentJSON = `{
	"description": "high spenders who went quiet",
	"rules": [
		{"field": "spends", "operator": ">", "value": 5000, "humanReadable": "spent over 5,000"},
		{"field": "lastVisits", "operator": "<", "value": 1700000000000, "humanReadable": "inactive"}
	]
}`

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"pure json", `{"a":1}`, `{"a":1}`, false},
		{"json code fence", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"bare code fence", "```\n{\"a\":1}\n```", `{"a":1}`, false},
		{"leading prose", `Sure, here you go: {"a":1}`, `{"a":1}`, false},
		{"prose both sides", `here: {"a":1} hope that helps`, `{"a":1}`, false},
		{"trailing prose", "{\"a\":1}\nLet me know if you need anything else!", `{"a":1}`, false},
		{"no object at all", "I cannot help with that", "", true},
		{"truncated", "here is json: {\"desc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrTranslationParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSegment_Valid(t *testing.T) {
	seg, err := ParseSegment("```json\n" + validSegmentJSON + "\n```")
	require.NoError(t, err)
	assert.Equal(t, "high spenders who went quiet", seg.Description)
	require.Len(t, seg.Rules, 2)
	// alias is canonicalized during validation
	assert.Equal(t, "lastVisit", seg.Rules[1].Field)
}

func TestParseSegment_TrailingProse(t *testing.T) {
	raw := `{"description":"big spenders","rules":[{"field":"spends","operator":">","value":5000}]}` +
		"\nLet me know if you need anything else!"
	seg, err := ParseSegment(raw)
	require.NoError(t, err)
	require.Len(t, seg.Rules, 1)
	assert.Equal(t, "spends", seg.Rules[0].Field)
}

func TestParseSegment_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"truncated object", `here is json: {"desc...MALFORMED`},
		{"not json", "hello there"},
		{"valid json wrong shape", `{"foo": "bar"}`},
		{"empty rules", `{"description": "x", "rules": []}`},
		{"unknown field", `{"description": "x", "rules": [{"field": "shoeSize", "operator": ">", "value": 9}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSegment(tt.raw)
			assert.ErrorIs(t, err, ErrTranslationParse)
		})
	}
}
