package reporter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arolang/aro/internal/aroerr"
	"github.com/arolang/aro/internal/ast"
)

func span(file string, line, startCol, endCol int) ast.Span {
	return ast.Span{
		File:  file,
		Start: ast.Position{Line: line, Col: startCol},
		End:   ast.Position{Line: line, Col: endCol},
	}
}

func TestReport_SingleErrorNoTrailer(t *testing.T) {
	var buf bytes.Buffer
	r := NewWithColor(&buf, nil, false)
	err := aroerr.Compilation(aroerr.KindUnknownVerb, span("greet.aro", 3, 5, 9), "unknown verb \"frob\"")
	r.Report([]*aroerr.Error{err})

	out := buf.String()
	assert.Contains(t, out, "greet.aro:3:5: unknown-verb: unknown verb \"frob\"")
	assert.NotContains(t, out, "errors generated")
}

func TestReport_MultipleErrorsAppendsTrailer(t *testing.T) {
	var buf bytes.Buffer
	r := NewWithColor(&buf, nil, false)
	errs := []*aroerr.Error{
		aroerr.Compilation(aroerr.KindUnknownVerb, span("a.aro", 1, 1, 2), "first"),
		aroerr.Compilation(aroerr.KindUnknownVerb, span("a.aro", 2, 1, 2), "second"),
	}
	r.Report(errs)

	assert.True(t, strings.HasSuffix(buf.String(), "2 errors generated.\n"))
}

func TestReport_RendersSourceLineAndCaretUnderline(t *testing.T) {
	var buf bytes.Buffer
	lookup := func(file string) []string {
		return []string{"start greeting from user: name", "compute total with items"}
	}
	r := NewWithColor(&buf, lookup, false)
	err := aroerr.Compilation(aroerr.KindUnknownVerb, span("greet.aro", 1, 7, 15), "unknown verb")
	r.Report([]*aroerr.Error{err})

	lines := strings.Split(buf.String(), "\n")
	assert.Contains(t, lines[1], "start greeting from user: name")
	assert.Equal(t, "  "+strings.Repeat(" ", 6)+strings.Repeat("^", 8), lines[2])
}

func TestReport_CaretLengthIsAtLeastOne(t *testing.T) {
	var buf bytes.Buffer
	lookup := func(file string) []string { return []string{"x"} }
	r := NewWithColor(&buf, lookup, false)
	err := aroerr.Compilation(aroerr.KindUnknownVerb, span("f.aro", 1, 1, 1), "msg")
	r.Report([]*aroerr.Error{err})

	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, "  ^", lines[2])
}

func TestReport_NoSpanSkipsContextLine(t *testing.T) {
	var buf bytes.Buffer
	r := NewWithColor(&buf, nil, false)
	err := aroerr.New(aroerr.KindRuntimeError, "boom", nil)
	r.Report([]*aroerr.Error{err})

	assert.Equal(t, "runtime-error: boom\n", buf.String())
}

func TestReport_SuggestionRendersAsHelpLine(t *testing.T) {
	var buf bytes.Buffer
	r := NewWithColor(&buf, nil, false)
	err := aroerr.New(aroerr.KindUnknownVerb, "unknown verb", nil).WithSuggestion("did you mean \"compute\"?")
	r.Report([]*aroerr.Error{err})

	assert.Contains(t, buf.String(), "help: did you mean \"compute\"?")
}
