// Copyright © 2024 The ELPS authors

// Package lint provides the rule engine for baseline.
//
// The engine is modeled after go vet: each check is an independent Analyzer
// that declares the syntax kinds it wants to see and reports diagnostics
// through a Pass. A Registry maps node kinds to analyzers and a Linter walks
// a tree once, dispatching every matching node to its analyzers, possibly
// concurrently.
//
// Analyzers never mutate the tree and keep no state between node visits.
// Diagnostics a visit reports are buffered on its Pass and only reach the
// sink once the visit completes, so a cancelled visit reports nothing.
package lint

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/luthersystems/baseline/analysis"
	"github.com/luthersystems/baseline/syntax"
	"gopkg.in/yaml.v3"
)

// Severity indicates the severity level of a lint diagnostic.
type Severity int

const (
	severityUnset Severity = iota // unexported zero sentinel for default detection
	SeverityError
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a severity name back to a Severity.
func ParseSeverity(str string) (Severity, error) {
	switch str {
	case "error":
		return SeverityError, nil
	case "warning":
		return SeverityWarning, nil
	case "info":
		return SeverityInfo, nil
	default:
		return severityUnset, fmt.Errorf("unknown severity: %q", str)
	}
}

// MarshalJSON serializes the severity as a JSON string.
// An unset severity (zero value) is marshaled as "warning".
func (s Severity) MarshalJSON() ([]byte, error) {
	if s == severityUnset {
		return json.Marshal("warning")
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON deserializes a severity from a JSON string.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	v, err := ParseSeverity(str)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalYAML serializes the severity as a YAML string.
func (s Severity) MarshalYAML() (interface{}, error) {
	if s == severityUnset {
		return "warning", nil
	}
	return s.String(), nil
}

// UnmarshalYAML deserializes a severity from a YAML string.
func (s *Severity) UnmarshalYAML(value *yaml.Node) error {
	v, err := ParseSeverity(value.Value)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ruleIDPattern is the stable diagnostic ID format.
var ruleIDPattern = regexp.MustCompile(`^BLA[0-9]{4}$`)

// Rule describes one diagnostic an analyzer can emit. Rules are built once
// when their analyzer is constructed and never modified afterwards.
type Rule struct {
	// ID is the stable identifier consumers key on (e.g. "BLA0001").
	ID string

	// Title is a one-line summary.
	Title string

	// Format is the message template; it is expanded with fmt.Sprintf.
	Format string

	// Category groups related rules ("Usage", "Naming").
	Category string

	// Severity is the default severity of the rule's diagnostics.
	Severity Severity

	// EnabledByDefault rules run unless deselected.
	EnabledByDefault bool

	// Description is the long-form explanation.
	Description string
}

// Message formats the rule's message with args.
func (r *Rule) Message(args ...interface{}) string {
	if len(args) == 0 {
		return r.Format
	}
	return fmt.Sprintf(r.Format, args...)
}

// Scope tells the driver how an analyzer wants to be invoked.
type Scope int

const (
	// ScopeNode analyzers run once per node whose kind they registered.
	ScopeNode Scope = iota
	// ScopeDocument analyzers run once per tree with the root as node.
	ScopeDocument
)

// Analyzer defines a single lint check.
type Analyzer struct {
	// Name is a short identifier for this check (e.g. "catch-rethrow").
	Name string

	// Doc is a human-readable description. The first line is a short summary.
	Doc string

	// Rules are the diagnostics this analyzer can report.
	Rules []*Rule

	// Kinds are the node kinds the analyzer is invoked for. Ignored for
	// ScopeDocument analyzers.
	Kinds []syntax.Kind

	// Scope selects per-node or per-document invocation.
	Scope Scope

	// Run executes the check for pass.Node. It should call pass.Report()
	// for each finding. It returns an error only when the visit could not
	// complete (typically cancellation); reported diagnostics are then
	// discarded.
	Run func(pass *Pass) error
}

// Pass is the context of a single analyzer visit.
type Pass struct {
	// Analyzer is the currently running check.
	Analyzer *Analyzer

	// Filename is the source file being analyzed.
	Filename string

	// Tree is the tree being analyzed.
	Tree *syntax.Tree

	// Node is the node being visited.
	Node *syntax.Node

	// Resolver answers symbol queries. It is never nil; it returns nil for
	// anything it cannot resolve.
	Resolver analysis.Resolver

	ctx         context.Context
	diagnostics []Diagnostic
}

// Context returns the cancellation context of the visit.
func (p *Pass) Context() context.Context {
	if p.ctx == nil {
		return context.Background()
	}
	return p.ctx
}

// Report records a diagnostic for rule at node, formatting the rule message
// with args. A nil node, or one outside the visited node, reports at the
// visited node.
func (p *Pass) Report(rule *Rule, node *syntax.Node, args ...interface{}) {
	if node == nil || (p.Node != nil && !p.Node.Span.Contains(node.Span)) {
		node = p.Node
	}
	d := Diagnostic{
		ID:       rule.ID,
		Message:  rule.Message(args...),
		Analyzer: p.Analyzer.Name,
		Severity: rule.Severity,
	}
	if d.Severity == severityUnset {
		d.Severity = SeverityWarning
	}
	if node != nil {
		d.Pos = Position{File: p.Filename, Line: node.Span.Start.Line, Col: node.Span.Start.Col, Offset: node.Span.Start.Offset}
		d.End = Position{Line: node.Span.End.Line, Col: node.Span.End.Col, Offset: node.Span.End.Offset}
	}
	p.diagnostics = append(p.diagnostics, d)
}

// ReportWithNotes records a diagnostic with additional hint text.
func (p *Pass) ReportWithNotes(rule *Rule, node *syntax.Node, notes []string, args ...interface{}) {
	p.Report(rule, node, args...)
	last := &p.diagnostics[len(p.diagnostics)-1]
	last.Notes = append(last.Notes, notes...)
}

// Diagnostic is a single reported problem.
type Diagnostic struct {
	// ID is the stable rule identifier.
	ID string `json:"id" yaml:"id" msgpack:"id"`

	// Pos is the start of the problem.
	Pos Position `json:"pos" yaml:"pos" msgpack:"pos"`

	// End is the end of the problem (exclusive). File is left empty.
	End Position `json:"end" yaml:"end" msgpack:"end"`

	// Message is a human-readable description of the problem.
	Message string `json:"message" yaml:"message" msgpack:"message"`

	// Analyzer is the name of the check that found this problem.
	Analyzer string `json:"analyzer" yaml:"analyzer" msgpack:"analyzer"`

	// Severity is the severity level of the diagnostic.
	Severity Severity `json:"severity" yaml:"severity" msgpack:"severity"`

	// Notes are optional hint text lines for the user.
	Notes []string `json:"notes,omitempty" yaml:"notes,omitempty" msgpack:"notes,omitempty"`
}

// Position identifies a location in source code.
type Position struct {
	File   string `json:"file,omitempty" yaml:"file,omitempty" msgpack:"file,omitempty"`
	Line   int    `json:"line" yaml:"line" msgpack:"line"`
	Col    int    `json:"col,omitempty" yaml:"col,omitempty" msgpack:"col,omitempty"`
	Offset int    `json:"offset" yaml:"offset" msgpack:"offset"`
}

// String returns the position in file:line:col format.
func (p Position) String() string {
	if p.Line == 0 {
		return p.File
	}
	if p.Col > 0 {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// String returns the diagnostic in go vet style: file:line:col: ID: message
// (analyzer) with optional note lines appended.
func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s: %s: %s (%s)", d.Pos, d.ID, d.Message, d.Analyzer)
	for _, n := range d.Notes {
		s += "\n  = note: " + n
	}
	return s
}
