package segment

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ruleValue is a rule's Value coerced against the target field's kind.
// When a numeric parse fails the rule degrades to string comparison for
// that rule only (kind becomes KindString, str carries the original text).
type ruleValue struct {
	kind  Kind
	num   float64
	str   string
	milli int64 // epoch millis for KindTime
}

// Date layouts accepted for time-valued rules, tried in order. The
// canonical representation is epoch milliseconds; the rest cover ISO and
// locale strings the translator has been observed to emit.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// coerceRuleValue normalizes a raw rule value for comparison against a
// field of the given kind. Pure; the only failure mode is an unparsable
// date, which the caller treats as fail-closed.
func coerceRuleValue(kind Kind, raw any) (ruleValue, error) {
	switch kind {
	case KindTime:
		ms, err := parseEpochMillis(raw)
		if err != nil {
			return ruleValue{}, err
		}
		return ruleValue{kind: KindTime, milli: ms}, nil

	case KindNumber:
		switch v := raw.(type) {
		case float64:
			return ruleValue{kind: KindNumber, num: v}, nil
		case int:
			return ruleValue{kind: KindNumber, num: float64(v)}, nil
		case int64:
			return ruleValue{kind: KindNumber, num: float64(v)}, nil
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return ruleValue{kind: KindNumber, num: f}, nil
			}
			return ruleValue{kind: KindString, str: v.String()}, nil
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return ruleValue{kind: KindNumber, num: f}, nil
			}
			// degrade to string comparison for this rule only
			return ruleValue{kind: KindString, str: v}, nil
		default:
			return ruleValue{kind: KindString, str: fmt.Sprint(raw)}, nil
		}

	default:
		return ruleValue{kind: KindString, str: stringify(raw)}, nil
	}
}

// parseEpochMillis accepts millisecond epoch numbers, numeric strings, ISO
// timestamps and a handful of locale date layouts.
func parseEpochMillis(raw any) (int64, error) {
	switch v := raw.(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return int64(f), nil
		}
		return 0, fmt.Errorf("unparsable date value %q", v.String())
	case string:
		s := strings.TrimSpace(v)
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ms, nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UnixMilli(), nil
			}
		}
		return 0, fmt.Errorf("unparsable date value %q", s)
	default:
		return 0, fmt.Errorf("unparsable date value of type %T", raw)
	}
}

func stringify(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(raw)
	}
}
