// Package render turns decode results into host-facing output: a field tree
// and a one-line summary.
package render

import (
	"github.com/danmuck/doipscope/internal/doip"
)

// FieldView is what a tree sink receives for one decoded field.
type FieldView struct {
	Name    string `json:"name" yaml:"name"`
	Abbrev  string `json:"abbrev,omitempty" yaml:"abbrev,omitempty"`
	Start   int    `json:"start" yaml:"start"`
	End     int    `json:"end" yaml:"end"`
	Type    string `json:"type" yaml:"type"`
	Present bool   `json:"present" yaml:"present"`
	Raw     string `json:"raw" yaml:"raw"`
	Label   string `json:"label,omitempty" yaml:"label,omitempty"`
	Value   string `json:"value" yaml:"value"`
}

// Sink consumes the fields and summary of one message.
type Sink interface {
	AddField(FieldView)
	SetSummary(string)
}

// View projects f with its byte range shifted by base.
func View(f doip.DecodedField, base int) FieldView {
	start, end := f.Range()
	v := FieldView{
		Name:    f.Descriptor.Name,
		Abbrev:  f.Descriptor.Abbrev,
		Start:   base + start,
		End:     base + end,
		Type:    f.Descriptor.Kind.String(),
		Present: f.Present,
		Raw:     f.Raw(),
		Value:   f.Display(),
	}
	if f.Resolved {
		v.Label = f.Label
	}
	return v
}

// Emit feeds res to sink in registry order, summary last. Byte ranges are
// relative to the payload.
func Emit(res doip.Result, sink Sink) {
	emitAt(res, sink, 0)
}

// EmitMessage feeds the generic header fields and then res to sink. Every
// byte range is relative to the start of the message.
func EmitMessage(h doip.Header, res doip.Result, sink Sink) {
	for _, f := range doip.HeaderFields(h) {
		sink.AddField(View(f, 0))
	}
	emitAt(res, sink, doip.HeaderLength)
}

func emitAt(res doip.Result, sink Sink, base int) {
	for _, f := range res.Fields {
		sink.AddField(View(f, base))
	}
	sink.SetSummary(res.Summary)
}
