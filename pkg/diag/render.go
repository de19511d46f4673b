package diag

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/praetorian-inc/locus/pkg/types"
	"golang.org/x/term"
)

// Source is the text a diagnostic span points into.
type Source struct {
	Name string // e.g., "--range", "stdin", a file path
	Text []byte
}

// styles holds color formatters for diagnostics.
type styles struct {
	title  *color.Color
	label  *color.Color
	gutter *color.Color
	caret  *color.Color
}

func newStyles(enabled bool) *styles {
	s := &styles{
		title:  color.New(color.Bold, color.FgHiRed),
		label:  color.New(color.FgHiRed),
		gutter: color.New(color.FgHiBlue),
		caret:  color.New(color.Bold, color.FgHiRed),
	}

	if !enabled {
		s.title.DisableColor()
		s.label.DisableColor()
		s.gutter.DisableColor()
		s.caret.DisableColor()
	}

	return s
}

// ColorEnabled resolves a --color mode ("auto", "always", "never") against f.
// Auto mode honours NO_COLOR and only colors terminals.
func ColorEnabled(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		if os.Getenv("NO_COLOR") != "" || f == nil {
			return false
		}
		return term.IsTerminal(int(f.Fd()))
	}
}

// Render writes err to w. Diagnostics with a known span are printed with the
// offending source line and a caret underline; other errors print as one line.
func Render(w io.Writer, err error, src Source, useColor bool) {
	s := newStyles(useColor)

	var de *Error
	if !errors.As(err, &de) {
		fmt.Fprintf(w, "%s %v\n", s.title.Sprint("Error:"), err)
		return
	}

	fmt.Fprintf(w, "%s %s\n", s.title.Sprint("Error:"), de.Title)
	if outer := err.Error(); outer != de.Error() {
		fmt.Fprintf(w, "  %s\n", strings.TrimSuffix(outer, ": "+de.Error()))
	}

	if de.Span.IsUnknown() || de.Span.Start > len(src.Text) || len(src.Text) == 0 {
		if de.Label != "" {
			fmt.Fprintf(w, "  %s\n", s.label.Sprint(de.Label))
		}
		return
	}

	line, col := types.ComputeLineColumn(src.Text, de.Span.Start)
	lineStart, lineEnd := types.LineBounds(src.Text, de.Span.Start)

	gutterWidth := len(strconv.Itoa(line))
	pad := strings.Repeat(" ", gutterWidth)

	width := de.Span.Len()
	if maxWidth := lineEnd - de.Span.Start; width > maxWidth {
		width = maxWidth
	}
	if width < 1 {
		width = 1
	}

	fmt.Fprintf(w, "%s %s %s:%d:%d\n", pad, s.gutter.Sprint("-->"), src.Name, line, col)
	fmt.Fprintf(w, " %s %s\n", pad, s.gutter.Sprint("|"))
	fmt.Fprintf(w, " %s %s %s\n", s.gutter.Sprint(line), s.gutter.Sprint("|"), src.Text[lineStart:lineEnd])
	fmt.Fprintf(w, " %s %s %s%s %s\n",
		pad,
		s.gutter.Sprint("|"),
		strings.Repeat(" ", de.Span.Start-lineStart),
		s.caret.Sprint(strings.Repeat("^", width)),
		s.label.Sprint(de.Label),
	)
}
