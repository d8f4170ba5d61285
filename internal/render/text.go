package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/doipscope/internal/doip"
)

// TextSink renders an indented field tree. The first write error is kept
// and reported by Err.
type TextSink struct {
	w      io.Writer
	indent string
	err    error
}

func NewTextSink(w io.Writer, depth int) *TextSink {
	return &TextSink{w: w, indent: strings.Repeat("    ", depth)}
}

func (s *TextSink) AddField(v FieldView) {
	s.printf("%s%s: %s [%d:%d]\n", s.indent, v.Name, v.Value, v.Start, v.End)
}

func (s *TextSink) SetSummary(summary string) {
	s.printf("%s%s\n", s.indent, summary)
}

func (s *TextSink) Err() error {
	return s.err
}

func (s *TextSink) printf(format string, args ...any) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintf(s.w, format, args...)
}

// WriteText renders header fields and the payload tree of one message. Byte
// ranges count from the first header byte.
func WriteText(w io.Writer, index int, h doip.Header, res doip.Result) error {
	if _, err := fmt.Fprintf(w, "#%d %s (%s)\n", index, res.PayloadType, nameOr(res)); err != nil {
		return err
	}
	sink := NewTextSink(w, 1)
	EmitMessage(h, res, sink)
	return sink.Err()
}

func nameOr(res doip.Result) string {
	if res.Name != "" {
		return res.Name
	}
	return "unassigned"
}
