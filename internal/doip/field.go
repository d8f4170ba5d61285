package doip

import (
	"encoding/hex"
	"fmt"
)

// DecodedField is one descriptor resolved against a payload.
type DecodedField struct {
	Descriptor Descriptor
	// Present is false for a required field the declared length cannot hold.
	Present bool
	Offset  int
	Length  int
	Value   uint64
	Bytes   []byte
	Label   string
	// Resolved reports that Label came from the descriptor's value table.
	Resolved bool
}

// Range returns the field's byte range within the payload.
func (f DecodedField) Range() (start, end int) {
	return f.Offset, f.Offset + f.Length
}

// Raw renders the raw value without its label.
func (f DecodedField) Raw() string {
	if !f.Present {
		return "<missing>"
	}
	if f.Descriptor.Kind == KindBytes {
		return hex.EncodeToString(f.Bytes)
	}
	if f.Descriptor.Base == BaseHex {
		return fmt.Sprintf("0x%0*x", f.Descriptor.Kind.Width()*2, f.Value)
	}
	return fmt.Sprintf("%d", f.Value)
}

// Display renders the label with the raw value, or the raw value alone
// when the value is unresolved.
func (f DecodedField) Display() string {
	if f.Present && f.Resolved {
		return fmt.Sprintf("%s (%s)", f.Label, f.Raw())
	}
	return f.Raw()
}

// Result is the outcome of decoding one payload.
type Result struct {
	PayloadType PayloadType
	Name        string
	// Known is false when no decoder is registered for PayloadType.
	Known   bool
	Fields  []DecodedField
	Summary string
	// Partial is set when a required field did not fit the declared length.
	Partial bool
}

// Field returns the decoded field named name.
func (r Result) Field(name string) (DecodedField, bool) {
	for _, f := range r.Fields {
		if f.Descriptor.Name == name {
			return f, true
		}
	}
	return DecodedField{}, false
}

// Uint returns the raw integer of a present field.
func (r Result) Uint(name string) (uint64, bool) {
	f, ok := r.Field(name)
	if !ok || !f.Present || f.Descriptor.Kind == KindBytes {
		return 0, false
	}
	return f.Value, true
}

// BytesOf returns the raw bytes of a present bytes field.
func (r Result) BytesOf(name string) ([]byte, bool) {
	f, ok := r.Field(name)
	if !ok || !f.Present || f.Descriptor.Kind != KindBytes {
		return nil, false
	}
	return f.Bytes, true
}
