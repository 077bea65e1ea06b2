// Copyright © 2024 The ELPS authors

package diagnostic

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/luthersystems/baseline/lint"
)

// ColorMode controls when ANSI color codes are used.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // color on a terminal unless NO_COLOR is set
	ColorAlways                  // always use colors
	ColorNever                   // never use colors
)

// ParseColorMode converts "auto", "always" or "never" to a ColorMode.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("invalid color mode %q (want auto, always or never)", s)
	}
}

func (m ColorMode) String() string {
	switch m {
	case ColorAlways:
		return "always"
	case ColorNever:
		return "never"
	default:
		return "auto"
	}
}

// profile picks the color profile for output to w.
func (m ColorMode) profile(w io.Writer) termenv.Profile {
	switch m {
	case ColorAlways:
		return termenv.ANSI
	case ColorNever:
		return termenv.Ascii
	}
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	f, ok := w.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return termenv.Ascii
	}
	return termenv.ANSI
}

// styles are the text styles of one rendering, bound to its output.
type styles struct {
	severity map[lint.Severity]lipgloss.Style
	gutter   lipgloss.Style
	marker   lipgloss.Style
	note     lipgloss.Style
	message  lipgloss.Style
}

func newStyles(mode ColorMode, w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(mode.profile(w))
	bold := r.NewStyle().Bold(true)
	return styles{
		severity: map[lint.Severity]lipgloss.Style{
			lint.SeverityError:   bold.Foreground(lipgloss.Color("1")),
			lint.SeverityWarning: bold.Foreground(lipgloss.Color("3")),
			lint.SeverityInfo:    bold.Foreground(lipgloss.Color("6")),
		},
		gutter:  bold.Foreground(lipgloss.Color("4")),
		marker:  bold.Foreground(lipgloss.Color("1")),
		note:    bold.Foreground(lipgloss.Color("6")),
		message: bold,
	}
}

func (s styles) forSeverity(sev lint.Severity) lipgloss.Style {
	if st, ok := s.severity[sev]; ok {
		return st
	}
	return s.severity[lint.SeverityWarning]
}
