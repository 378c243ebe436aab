package segment

import (
	"sync"
	"time"

	"crm-segment-engine/internal/cache"
)

// Mode identifies which filtering mechanism is live. Toggles and rule sets
// are mutually exclusive over the same base collection; activating one
// clears the other.
type Mode int

const (
	ModeNone Mode = iota
	ModeToggles
	ModeRuleSet
)

func (m Mode) String() string {
	switch m {
	case ModeToggles:
		return "toggles"
	case ModeRuleSet:
		return "ruleset"
	default:
		return "none"
	}
}

// state is one immutable engine generation: the base collection, the active
// mode with its inputs, and the materialized view. Mode switches build a
// whole new state and swap it in atomically, so readers never observe a
// half-applied filter.
type state struct {
	base    []Customer
	mode    Mode
	toggles Toggles
	rules   RuleSet
	view    []Customer
}

// Engine filters one campaign's customer collection by exactly one live
// mode at a time.
type Engine struct {
	mu   sync.Mutex // serializes writers; readers go through snap
	snap cache.Snapshot[state]
	now  func() time.Time
}

func NewEngine(base []Customer) *Engine {
	e := &Engine{now: time.Now}
	e.snap.Store(state{base: copyCustomers(base), view: copyCustomers(base)})
	return e
}

// ApplyToggles activates the manual filters, replacing any active rule set.
func (e *Engine) ApplyToggles(t Toggles) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, _ := e.snap.Load()
	next := state{base: st.base, mode: ModeToggles, toggles: t}
	next.view = filterToggles(next.base, t, e.now())
	e.snap.Store(next)
}

// ApplyRuleSet activates a rule set, replacing any active toggles. The set
// is validated against the supported field enumeration first; on error the
// engine state is left untouched.
func (e *Engine) ApplyRuleSet(rules RuleSet) error {
	if err := ValidateRuleSet(rules); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	st, _ := e.snap.Load()
	next := state{base: st.base, mode: ModeRuleSet, rules: rules}
	next.view = filterRules(next.base, rules)
	e.snap.Store(next)
	return nil
}

// Clear deactivates filtering; the view becomes the base collection.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, _ := e.snap.Load()
	e.snap.Store(state{base: st.base, view: st.base})
}

// Rebase replaces the base collection (e.g. after a data reload) and
// re-applies the current mode so the view never retains stale entries.
func (e *Engine) Rebase(customers []Customer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, _ := e.snap.Load()
	next := state{base: copyCustomers(customers), mode: st.mode, toggles: st.toggles, rules: st.rules}
	switch st.mode {
	case ModeToggles:
		next.view = filterToggles(next.base, st.toggles, e.now())
	case ModeRuleSet:
		next.view = filterRules(next.base, st.rules)
	default:
		next.view = next.base
	}
	e.snap.Store(next)
}

// View returns the current filtered view.
func (e *Engine) View() []Customer {
	st, _ := e.snap.Load()
	return copyCustomers(st.view)
}

// Base returns the unfiltered collection.
func (e *Engine) Base() []Customer {
	st, _ := e.snap.Load()
	return copyCustomers(st.base)
}

func (e *Engine) Mode() Mode {
	st, _ := e.snap.Load()
	return st.mode
}

// ActiveRules returns the live rule set, nil unless in rule-set mode.
func (e *Engine) ActiveRules() RuleSet {
	st, _ := e.snap.Load()
	if st.mode != ModeRuleSet {
		return nil
	}
	return append(RuleSet(nil), st.rules...)
}

func filterRules(base []Customer, rules RuleSet) []Customer {
	out := make([]Customer, 0, len(base))
	for _, c := range base {
		if MatchesAll(rules, c) {
			out = append(out, c)
		}
	}
	return out
}

func filterToggles(base []Customer, t Toggles, now time.Time) []Customer {
	cutoff := now.AddDate(0, -t.InactiveMonths, 0)
	out := make([]Customer, 0, len(base))
	for _, c := range base {
		if t.MinSpendEnabled && !(c.Spends > t.MinSpend) {
			continue
		}
		if t.MaxVisitsEnabled && !(c.Visits <= t.MaxVisits) {
			continue
		}
		if t.InactiveMonthsEnabled && !c.LastVisit.Before(cutoff) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func copyCustomers(cs []Customer) []Customer {
	return append([]Customer(nil), cs...)
}
