// Package reporter renders compiled-away errors for a human reading a
// terminal: file:line:col, an error-kind prefix, the offending source
// line, and a caret underline.
package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/arolang/aro/internal/aroerr"
)

// SourceLookup returns the lines of the named file, used to render the
// caret-underlined context line for an error's span. A reporter that
// never has source text available (stdin-only input) can pass a
// lookup that always returns nil — errors then render without context.
type SourceLookup func(file string) []string

// Reporter prints aroerr.Error values to an io.Writer, colorizing kind
// prefixes and carets when writing to a real terminal.
type Reporter struct {
	out    io.Writer
	lookup SourceLookup
	color  bool
	styles styles
}

type styles struct {
	kind   lipgloss.Style
	caret  lipgloss.Style
	dim    lipgloss.Style
	bold   lipgloss.Style
}

// New builds a Reporter writing to out, auto-detecting color support by
// checking whether out is a real terminal (via go-isatty) when out is
// an *os.File; any other writer defaults to plain output.
func New(out io.Writer, lookup SourceLookup) *Reporter {
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return NewWithColor(out, lookup, color)
}

// NewWithColor builds a Reporter with an explicit color setting,
// bypassing terminal detection — used by --no-color and tests.
func NewWithColor(out io.Writer, lookup SourceLookup, color bool) *Reporter {
	r := &Reporter{out: out, lookup: lookup, color: color}
	if color {
		r.styles = styles{
			kind:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
			caret: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
			dim:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
			bold:  lipgloss.NewStyle().Bold(true),
		}
	} else {
		r.styles = styles{kind: lipgloss.NewStyle(), caret: lipgloss.NewStyle(), dim: lipgloss.NewStyle(), bold: lipgloss.NewStyle()}
	}
	return r
}

// Report renders every error in errs in order, followed by a
// "N errors generated." trailer when more than one is present.
func (r *Reporter) Report(errs []*aroerr.Error) {
	for _, e := range errs {
		r.reportOne(e)
	}
	if len(errs) > 1 {
		fmt.Fprintf(r.out, "%d errors generated.\n", len(errs))
	}
}

func (r *Reporter) reportOne(e *aroerr.Error) {
	if e.HasSpan {
		fmt.Fprintf(r.out, "%s:%d:%d: %s: %s\n",
			e.Span.File, e.Span.Start.Line, e.Span.Start.Col,
			r.styles.kind.Render(string(e.Kind)), e.Message)
	} else {
		fmt.Fprintf(r.out, "%s: %s\n", r.styles.kind.Render(string(e.Kind)), e.Message)
	}

	if e.HasSpan {
		r.renderContext(e)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(r.out, "  %s %s\n", r.styles.dim.Render("help:"), e.Suggestion)
	}
}

func (r *Reporter) renderContext(e *aroerr.Error) {
	if r.lookup == nil {
		return
	}
	lines := r.lookup(e.Span.File)
	lineNo := e.Span.Start.Line
	if lineNo < 1 || lineNo > len(lines) {
		return
	}
	source := lines[lineNo-1]
	fmt.Fprintf(r.out, "  %s\n", source)

	caretLen := e.Span.End.Col - e.Span.Start.Col
	if caretLen < 1 {
		caretLen = 1
	}
	pad := e.Span.Start.Col - 1
	if pad < 0 {
		pad = 0
	}
	caretLine := strings.Repeat(" ", pad) + strings.Repeat("^", caretLen)
	fmt.Fprintf(r.out, "  %s\n", r.styles.caret.Render(caretLine))
}
