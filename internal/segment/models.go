package segment

import "time"

// Customer is a read-only record owned by a campaign ("shop"). The engine
// never mutates customers; it only derives filtered views over them.
type Customer struct {
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Spends        float64   `json:"spends"`
	Visits        int       `json:"visits"`
	LastVisit     time.Time `json:"lastVisit"`
	OwnerCampaign string    `json:"ownerCampaign"`
}

// Rule is one field predicate. Value is untyped at the JSON boundary (the
// NL translator emits either strings or numbers) and is coerced against the
// target field's kind before any comparison.
type Rule struct {
	Field         string `json:"field"`
	Operator      string `json:"operator"`
	Value         any    `json:"value"`
	HumanReadable string `json:"humanReadable"`
}

// RuleSet is an ordered list of rules combined by logical AND.
type RuleSet []Rule

// Toggles are the three fixed manual filters. Each carries a user-entered
// threshold and a fixed comparison direction.
type Toggles struct {
	MinSpendEnabled       bool    `json:"minSpendEnabled"`
	MinSpend              float64 `json:"minSpend"`
	MaxVisitsEnabled      bool    `json:"maxVisitsEnabled"`
	MaxVisits             int     `json:"maxVisits"`
	InactiveMonthsEnabled bool    `json:"inactiveMonthsEnabled"`
	InactiveMonths        int     `json:"inactiveMonths"`
}

// Delivery statuses for campaign log entries.
const (
	StatusSent   = "SENT"
	StatusFailed = "FAILED"
)

// MessageRecord is one append-only campaign log entry.
type MessageRecord struct {
	CustName       string `json:"custName"`
	CustEmail      string `json:"custEmail"`
	Status         string `json:"status"`
	MessageSubject string `json:"messageSubject,omitempty"`
	MessageBody    string `json:"messageBody,omitempty"`
	Timestamp      int64  `json:"timestamp"` // epoch millis
}
