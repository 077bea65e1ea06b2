// Copyright © 2024 The ELPS authors

package lint

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"gopkg.in/yaml.v3"
)

// FormatText writes diagnostics in go vet text format.
func FormatText(w io.Writer, diags []Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(w, d.String()) //nolint:errcheck // best-effort output to writer
	}
}

// FormatJSON writes diagnostics as JSON.
func FormatJSON(w io.Writer, diags []Diagnostic) error {
	if diags == nil {
		diags = []Diagnostic{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(diags)
}

// FormatYAML writes diagnostics as a YAML sequence.
func FormatYAML(w io.Writer, diags []Diagnostic) error {
	if diags == nil {
		diags = []Diagnostic{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(diags); err != nil {
		return err
	}
	return enc.Close()
}

// wrap word-wraps s at spaces only. Identifiers such as analyzer names
// contain hyphens and must not be split.
func wrap(s string, limit int) string {
	w := wordwrap.NewWriter(limit)
	w.Breakpoints = nil
	_, _ = w.Write([]byte(s))
	_ = w.Close()
	return w.String()
}

// RuleDoc renders the long-form documentation of every rule in reg,
// wrapped to width columns.
func RuleDoc(reg *Registry, width int) string {
	if width <= 0 {
		width = 80
	}
	var b strings.Builder
	for i, r := range reg.Rules() {
		if i > 0 {
			b.WriteString("\n")
		}
		owner := ""
		if a := reg.AnalyzerFor(r.ID); a != nil {
			owner = a.Name
		}
		state := "enabled"
		if !reg.Enabled(r.ID) {
			state = "disabled"
		}
		fmt.Fprintf(&b, "%s  %s\n", r.ID, r.Title)
		// The metadata line is kept whole so names stay greppable.
		meta := fmt.Sprintf("category: %s, severity: %s, analyzer: %s, %s\n\n",
			r.Category, r.Severity, owner, state)
		body := fmt.Sprintf("%s\n\nmessage: %s", r.Description, r.Format)
		b.WriteString(indent.String(meta+wrap(body, width-4), 4))
		b.WriteString("\n")
	}
	return b.String()
}
