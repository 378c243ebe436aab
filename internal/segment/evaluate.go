package segment

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// Evaluate reports whether one rule matches one customer. Every failure
// mode (unknown field, missing attribute, unparsable value, unrecognized
// operator) is fail-closed: the record is excluded, never included.
func Evaluate(rule Rule, c Customer) bool {
	fv, ok := FieldOf(c, rule.Field)
	if !ok || fv.Missing {
		return false
	}

	rv, err := coerceRuleValue(fv.Kind, rule.Value)
	if err != nil {
		log.Debug().Err(err).Str("field", rule.Field).Msg("rule value coercion failed")
		return false
	}

	switch {
	case fv.Kind == KindTime && rv.kind == KindTime:
		return compareOrdered(rule.Operator, float64(fv.Time.UnixMilli()), float64(rv.milli))
	case fv.Kind == KindNumber && rv.kind == KindNumber:
		return compareOrdered(rule.Operator, fv.Num, rv.num)
	default:
		// string family: either the field is a string, or numeric coercion
		// degraded to string comparison for this rule
		return compareString(rule.Operator, stringValue(fv), rv.str)
	}
}

// MatchesAll is the conjunction of all rules over one customer.
func MatchesAll(rules RuleSet, c Customer) bool {
	for _, r := range rules {
		if !Evaluate(r, c) {
			return false
		}
	}
	return true
}

func compareOrdered(op string, a, b float64) bool {
	switch op {
	case ">":
		return a > b
	case "<":
		return a < b
	case ">=":
		return a >= b
	case "<=":
		return a <= b
	case "==", "===", "=":
		return a == b
	case "!=":
		return a != b
	default:
		log.Warn().Str("operator", op).Msg("unknown operator, excluding record")
		return false
	}
}

func compareString(op, a, b string) bool {
	switch op {
	case "==", "===", "=":
		return a == b
	case "!=":
		return a != b
	case "contains":
		return strings.Contains(a, b)
	case "startsWith":
		return strings.HasPrefix(a, b)
	case "endsWith":
		return strings.HasSuffix(a, b)
	case ">", "<", ">=", "<=":
		// reachable when a numeric rule value degraded to string comparison
		log.Warn().Str("operator", op).Msg("ordered operator not applicable after string degrade, excluding record")
		return false
	default:
		log.Warn().Str("operator", op).Msg("unknown operator, excluding record")
		return false
	}
}

func stringValue(fv FieldValue) string {
	switch fv.Kind {
	case KindNumber:
		return stringify(fv.Num)
	case KindTime:
		return fv.Time.Format("2006-01-02T15:04:05Z07:00")
	default:
		return fv.Str
	}
}
