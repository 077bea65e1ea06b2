// Copyright © 2024 The ELPS authors

// Package diagnostic renders lint findings for a terminal: a header naming
// the severity and rule, the location, the offending source lines with the
// finding underlined, and trailing notes.
//
//	warning[BLA0011]: Asynchronous method 'FetchData' must include the 'Async' suffix
//	 --> Service.cs:8:17
//	  |
//	8 |     public Task FetchData() { return Task.CompletedTask; }
//	  |                 ^^^^^^^^^
//	  = help: asynchronous method names must include the 'Async' suffix (async-naming)
package diagnostic

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/luthersystems/baseline/lint"
)

// maxSnippetLines bounds the source lines shown for one finding. Longer
// spans show their first lines and their last line.
const maxSnippetLines = 5

// Renderer writes lint diagnostics as annotated source snippets.
type Renderer struct {
	// Color controls ANSI color output. Default is ColorAuto.
	Color ColorMode

	// Sources holds the content of linted files by the name diagnostics
	// carry. Diagnostics for other files are shown without a snippet.
	Sources map[string][]byte

	// Rules, when set, supplies the rule title and analyzer for a help
	// line under each diagnostic.
	Rules *lint.Registry

	mu      sync.Mutex
	indexed map[string]*source
}

func (r *Renderer) source(file string) *source {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.indexed[file]; ok {
		return s
	}
	text, ok := r.Sources[file]
	if !ok {
		return nil
	}
	if r.indexed == nil {
		r.indexed = make(map[string]*source)
	}
	s := newSource(text)
	r.indexed[file] = s
	return s
}

// Render writes a single diagnostic to w.
func (r *Renderer) Render(w io.Writer, d lint.Diagnostic) error {
	bw := bufio.NewWriter(w)
	r.render(bw, newStyles(r.Color, w), d)
	return bw.Flush()
}

// RenderAll writes diags to w separated by blank lines, followed by a
// summary line counting them over files.
func (r *Renderer) RenderAll(w io.Writer, diags []lint.Diagnostic, files int) error {
	if len(diags) == 0 {
		return nil
	}
	st := newStyles(r.Color, w)
	bw := bufio.NewWriter(w)
	for _, d := range diags {
		r.render(bw, st, d)
		bw.WriteString("\n") //nolint:errcheck // reported by Flush
	}
	bw.WriteString(st.message.Render(Summary(diags, files)) + "\n") //nolint:errcheck // reported by Flush
	return bw.Flush()
}

func (r *Renderer) render(w *bufio.Writer, st styles, d lint.Diagnostic) {
	sev := d.Severity.String()
	if d.Severity != lint.SeverityError && d.Severity != lint.SeverityInfo {
		sev = lint.SeverityWarning.String()
	}
	if d.ID != "" {
		sev += "[" + d.ID + "]"
	}
	fmt.Fprintf(w, "%s: %s\n", st.forSeverity(d.Severity).Render(sev), st.message.Render(d.Message))

	lines := r.snippet(d)
	gutter := 1
	if len(lines) > 0 {
		gutter = len(strconv.Itoa(lines[len(lines)-1].num))
	}
	pad := strings.Repeat(" ", gutter)
	bar := st.gutter.Render(pad + " |")

	fmt.Fprintf(w, "%s %s\n", st.gutter.Render(pad+"-->"), location(d.Pos))
	if len(lines) > 0 {
		fmt.Fprintln(w, bar)
		prev := 0
		for _, l := range lines {
			if prev != 0 && l.num != prev+1 {
				fmt.Fprintln(w, st.gutter.Render("..."))
			}
			prev = l.num
			num := st.gutter.Render(fmt.Sprintf("%*d |", gutter, l.num))
			fmt.Fprintf(w, "%s %s\n", num, expandTabs(l.text))
			indent := strings.Repeat(" ", width(l.text[:l.from]))
			carets := width(l.text[:l.to]) - width(l.text[:l.from])
			if carets < 1 {
				carets = 1
			}
			fmt.Fprintf(w, "%s %s%s\n", bar, indent, st.marker.Render(strings.Repeat("^", carets)))
		}
	}
	for _, note := range d.Notes {
		fmt.Fprintf(w, "%s %s\n", st.note.Render(pad+" = note:"), note)
	}
	if help := r.help(d); help != "" {
		fmt.Fprintf(w, "%s %s\n", st.note.Render(pad+" = help:"), help)
	}
}

func (r *Renderer) help(d lint.Diagnostic) string {
	if r.Rules == nil {
		return ""
	}
	rule := r.Rules.Rule(d.ID)
	if rule == nil {
		return ""
	}
	if d.Analyzer == "" {
		return rule.Title
	}
	return fmt.Sprintf("%s (%s)", rule.Title, d.Analyzer)
}

func location(p lint.Position) string {
	switch {
	case p.Line <= 0:
		return p.File
	case p.Col <= 0:
		return fmt.Sprintf("%s:%d", p.File, p.Line)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// snippetLine is a source line with the byte range [from, to) to underline.
type snippetLine struct {
	num      int
	text     string
	from, to int
}

// snippet returns the source lines d covers. The end position is
// exclusive, so a span ending at the start of a line does not include it.
func (r *Renderer) snippet(d lint.Diagnostic) []snippetLine {
	src := r.source(d.Pos.File)
	if src == nil || d.Pos.Line < 1 || d.Pos.Line > src.lines() {
		return nil
	}
	first, last := d.Pos.Line, d.End.Line
	if last < first || last > src.lines() {
		last = first
	}
	endCol := d.End.Col
	if last > first && endCol <= 1 {
		last--
		endCol = 0
	}
	if last == first && d.End.Line != first {
		endCol = 0
	}

	nums := make([]int, 0, maxSnippetLines)
	for n := first; n <= last; n++ {
		if n-first == maxSnippetLines-1 && n != last {
			nums = append(nums, last)
			break
		}
		nums = append(nums, n)
	}

	out := make([]snippetLine, 0, len(nums))
	for _, n := range nums {
		text, _ := src.line(n)
		from, to := indentation(text), len(text)
		if n == first {
			from = clamp(d.Pos.Col-1, 0, len(text))
		}
		if n == last && endCol > 0 {
			to = clamp(endCol-1, from, len(text))
		}
		out = append(out, snippetLine{num: n, text: text, from: from, to: to})
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Summary counts diags by severity: "1 error, 2 warnings in 1 file".
func Summary(diags []lint.Diagnostic, files int) string {
	counts := make(map[lint.Severity]int)
	for _, d := range diags {
		sev := d.Severity
		if sev != lint.SeverityError && sev != lint.SeverityInfo {
			sev = lint.SeverityWarning
		}
		counts[sev]++
	}
	var parts []string
	for _, sev := range []lint.Severity{lint.SeverityError, lint.SeverityWarning, lint.SeverityInfo} {
		if n := counts[sev]; n > 0 {
			parts = append(parts, plural(n, sev.String()))
		}
	}
	return strings.Join(parts, ", ") + " in " + plural(files, "file")
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
