package output

import (
	"fmt"
	"io"
	"strings"
)

// Field is one labeled line of a text report.
type Field struct {
	Label string
	Value string
}

// Report is a titled list of fields for terminal output.
type Report struct {
	Title  string
	Fields []Field
}

// TextWriter outputs a Report as aligned "label: value" lines. Any other
// value is printed with %v.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, v any) error {
	ew := &errWriter{w: w}
	r, ok := v.(Report)
	if !ok {
		if p, isPtr := v.(*Report); isPtr && p != nil {
			r, ok = *p, true
		}
	}
	if !ok {
		ew.printf("%v\n", v)
		return ew.err
	}

	if r.Title != "" {
		ew.println(r.Title)
		ew.println(strings.Repeat("─", 40))
	}
	width := 0
	for _, f := range r.Fields {
		if len(f.Label) > width {
			width = len(f.Label)
		}
	}
	for _, f := range r.Fields {
		ew.printf("%-*s  %s\n", width+1, f.Label+":", f.Value)
	}
	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
