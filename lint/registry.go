// Copyright © 2024 The ELPS authors

package lint

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/luthersystems/baseline/syntax"
)

var (
	// ErrInvalidRuleID is returned when a rule ID does not match BLA####.
	ErrInvalidRuleID = errors.New("invalid rule id")

	// ErrDuplicateRuleID is returned when two rules share an ID.
	ErrDuplicateRuleID = errors.New("duplicate rule id")

	// ErrDuplicateAnalyzer is returned when two analyzers share a name.
	ErrDuplicateAnalyzer = errors.New("duplicate analyzer")

	// ErrUnknownCheck is returned by Select for names that match neither an
	// analyzer nor a rule.
	ErrUnknownCheck = errors.New("unknown check")
)

// Registry holds a validated set of analyzers and dispatches node kinds to
// them. A Registry is read-only after construction and safe for concurrent
// use.
type Registry struct {
	analyzers []*Analyzer
	rules     map[string]*Rule
	owner     map[string]*Analyzer
	enabled   map[string]bool
	dispatch  map[syntax.Kind][]*Analyzer
	document  []*Analyzer
}

// NewRegistry validates the analyzers and builds the kind dispatch table.
// Rules that are enabled by default start enabled.
func NewRegistry(analyzers ...*Analyzer) (*Registry, error) {
	r := &Registry{
		rules:    make(map[string]*Rule),
		owner:    make(map[string]*Analyzer),
		enabled:  make(map[string]bool),
		dispatch: make(map[syntax.Kind][]*Analyzer),
	}
	names := make(map[string]bool)
	for _, a := range analyzers {
		if a == nil || a.Run == nil {
			return nil, fmt.Errorf("analyzer %v has no Run function", a)
		}
		if a.Name == "" {
			return nil, errors.New("analyzer with empty name")
		}
		if names[a.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAnalyzer, a.Name)
		}
		names[a.Name] = true
		for _, rule := range a.Rules {
			if !ruleIDPattern.MatchString(rule.ID) {
				return nil, fmt.Errorf("%w: %q (analyzer %s)", ErrInvalidRuleID, rule.ID, a.Name)
			}
			if prev, ok := r.owner[rule.ID]; ok {
				return nil, fmt.Errorf("%w: %s (analyzers %s and %s)", ErrDuplicateRuleID, rule.ID, prev.Name, a.Name)
			}
			r.rules[rule.ID] = rule
			r.owner[rule.ID] = a
			r.enabled[rule.ID] = rule.EnabledByDefault
		}
		r.add(a)
	}
	return r, nil
}

func (r *Registry) add(a *Analyzer) {
	r.analyzers = append(r.analyzers, a)
	if a.Scope == ScopeDocument {
		r.document = append(r.document, a)
		return
	}
	for _, k := range a.Kinds {
		r.dispatch[k] = append(r.dispatch[k], a)
	}
}

// MustRegistry is like NewRegistry but panics on invalid analyzers. It is
// intended for the built-in analyzer set.
func MustRegistry(analyzers ...*Analyzer) *Registry {
	r, err := NewRegistry(analyzers...)
	if err != nil {
		panic(err)
	}
	return r
}

// Analyzers returns the registered analyzers in registration order.
func (r *Registry) Analyzers() []*Analyzer {
	out := make([]*Analyzer, len(r.analyzers))
	copy(out, r.analyzers)
	return out
}

// Rules returns all registered rules sorted by ID.
func (r *Registry) Rules() []*Rule {
	out := make([]*Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Rule returns the rule with the given ID, or nil.
func (r *Registry) Rule(id string) *Rule {
	return r.rules[id]
}

// AnalyzerFor returns the analyzer owning rule id, or nil.
func (r *Registry) AnalyzerFor(id string) *Analyzer {
	return r.owner[id]
}

// Enabled reports whether diagnostics with the given rule ID are emitted.
func (r *Registry) Enabled(id string) bool {
	return r.enabled[id]
}

// For returns the analyzers registered for a node kind.
func (r *Registry) For(kind syntax.Kind) []*Analyzer {
	return r.dispatch[kind]
}

// Select returns a registry restricted to the named checks. A check is an
// analyzer name (all its rules) or a rule ID (that rule only). Explicitly
// selected rules are enabled even when they are off by default.
func (r *Registry) Select(checks ...string) (*Registry, error) {
	enabled := make(map[string]bool)
	for _, check := range checks {
		check = strings.TrimSpace(check)
		if check == "" {
			continue
		}
		if rule, ok := r.rules[check]; ok {
			enabled[rule.ID] = true
			continue
		}
		a := r.analyzer(check)
		if a == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCheck, check)
		}
		for _, rule := range a.Rules {
			enabled[rule.ID] = true
		}
	}
	sel := &Registry{
		rules:    r.rules,
		owner:    r.owner,
		enabled:  enabled,
		dispatch: make(map[syntax.Kind][]*Analyzer),
	}
	for _, a := range r.analyzers {
		for _, rule := range a.Rules {
			if enabled[rule.ID] {
				sel.add(a)
				break
			}
		}
	}
	return sel, nil
}

func (r *Registry) analyzer(name string) *Analyzer {
	for _, a := range r.analyzers {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// RuleIDs returns the enabled rule IDs, sorted.
func (r *Registry) RuleIDs() []string {
	var ids []string
	for id, on := range r.enabled {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
