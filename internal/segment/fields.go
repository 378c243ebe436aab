package segment

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownField rejects rules whose field is not in the supported set.
var ErrUnknownField = errors.New("unknown customer field")

// Kind classifies a customer field for coercion purposes.
type Kind int

const (
	KindNumber Kind = iota
	KindTime
	KindString
)

// FieldValue is a customer attribute lifted to a comparable typed value.
// Missing marks attributes that are absent on the record; a predicate over
// a missing attribute is always false.
type FieldValue struct {
	Kind    Kind
	Num     float64
	Str     string
	Time    time.Time
	Missing bool
}

type fieldSpec struct {
	kind   Kind
	access func(Customer) FieldValue
}

// Supported fields, keyed by canonical name. Rules may only target these;
// anything else is rejected at validation instead of being looked up by
// arbitrary string key.
var fields = map[string]fieldSpec{
	"name": {KindString, func(c Customer) FieldValue {
		return FieldValue{Kind: KindString, Str: c.Name, Missing: c.Name == ""}
	}},
	"email": {KindString, func(c Customer) FieldValue {
		return FieldValue{Kind: KindString, Str: c.Email, Missing: c.Email == ""}
	}},
	"spends": {KindNumber, func(c Customer) FieldValue {
		return FieldValue{Kind: KindNumber, Num: c.Spends}
	}},
	"visits": {KindNumber, func(c Customer) FieldValue {
		return FieldValue{Kind: KindNumber, Num: float64(c.Visits)}
	}},
	"lastVisit": {KindTime, func(c Customer) FieldValue {
		return FieldValue{Kind: KindTime, Time: c.LastVisit, Missing: c.LastVisit.IsZero()}
	}},
}

// The NL translation contract emits the plural form.
var fieldAliases = map[string]string{
	"lastVisits": "lastVisit",
	"custName":   "name",
	"custEmail":  "email",
}

// CanonicalField normalizes aliases and verifies the field is supported.
func CanonicalField(name string) (string, error) {
	if alias, ok := fieldAliases[name]; ok {
		name = alias
	}
	if _, ok := fields[name]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return name, nil
}

// FieldOf resolves a canonical field name on a customer record.
func FieldOf(c Customer, name string) (FieldValue, bool) {
	spec, ok := fields[name]
	if !ok {
		return FieldValue{}, false
	}
	return spec.access(c), true
}

// ValidateRuleSet canonicalizes rule fields in place and rejects the whole
// set on the first unsupported field.
func ValidateRuleSet(rules RuleSet) error {
	for i := range rules {
		name, err := CanonicalField(rules[i].Field)
		if err != nil {
			return err
		}
		rules[i].Field = name
	}
	return nil
}
