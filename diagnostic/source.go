// Copyright © 2024 The ELPS authors

package diagnostic

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const tabWidth = 4

// source is a file's content indexed by line.
type source struct {
	text   []byte
	starts []int // byte offset of each line
}

func newSource(text []byte) *source {
	s := &source{text: text, starts: []int{0}}
	for i, b := range text {
		if b == '\n' {
			s.starts = append(s.starts, i+1)
		}
	}
	return s
}

// lines returns the number of lines.
func (s *source) lines() int {
	return len(s.starts)
}

// line returns 1-based line n without its terminator.
func (s *source) line(n int) (string, bool) {
	if n < 1 || n > len(s.starts) {
		return "", false
	}
	end := len(s.text)
	if n < len(s.starts) {
		end = s.starts[n] - 1
	}
	return strings.TrimSuffix(string(s.text[s.starts[n-1]:end]), "\r"), true
}

// expandTabs replaces tabs with spaces up to the next tab stop.
func expandTabs(s string) string {
	if !strings.ContainsRune(s, '\t') {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := tabWidth - col%tabWidth
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col += runewidth.RuneWidth(r)
	}
	return b.String()
}

// width returns the display width of s, the part of a line before some
// column, once tabs are expanded.
func width(s string) int {
	return runewidth.StringWidth(expandTabs(s))
}

// indentation returns the byte length of the leading whitespace of s.
func indentation(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t"))
}
