package doip

import (
	"fmt"
	"slices"
)

// PayloadType identifies a payload layout.
type PayloadType uint16

func (t PayloadType) String() string {
	return fmt.Sprintf("0x%04x", uint16(t))
}

// Name returns the ISO 13400-2 name of t, or "" for an unassigned code.
func (t PayloadType) Name() string {
	name, _ := PayloadTypeNames.Lookup(uint64(t))
	return name
}

// FieldKind is the semantic type of a payload field.
type FieldKind uint8

const (
	KindUint8 FieldKind = iota + 1
	KindUint16
	KindUint32
	KindBytes
)

func (k FieldKind) String() string {
	switch k {
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindBytes:
		return "bytes"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Width is the fixed byte width of integer kinds, 0 for bytes.
func (k FieldKind) Width() int {
	switch k {
	case KindUint8:
		return 1
	case KindUint16:
		return 2
	case KindUint32:
		return 4
	default:
		return 0
	}
}

// Encoding names the byte order a host applies when rendering the field.
func (k FieldKind) Encoding() string {
	if k == KindBytes {
		return "none"
	}
	return "big-endian"
}

// Base selects how a raw integer is rendered.
type Base uint8

const (
	BaseNone Base = iota
	BaseDec
	BaseHex
)

func (b Base) String() string {
	switch b {
	case BaseDec:
		return "dec"
	case BaseHex:
		return "hex"
	default:
		return "none"
	}
}

// Descriptor is the static description of one payload field.
type Descriptor struct {
	Name        string
	Abbrev      string
	Description string
	Offset      int
	// Length is the fixed width in bytes; ignored for trailing fields.
	Length   int
	Kind     FieldKind
	Base     Base
	Table    *RangeTable
	Required bool
	// Trailing fields span every declared byte from Offset onward.
	Trailing bool
}

// Summarizer builds a one-line description from a complete decode. It
// returns false when the fields needed by its template are missing.
type Summarizer func(Result) (string, bool)

// Layout is the ordered field set of one payload type.
type Layout struct {
	Type    PayloadType
	Name    string
	Fields  []Descriptor
	Summary Summarizer
}

// MinLength is the smallest legal payload length: the end of the last
// required field.
func (l Layout) MinLength() int {
	n := 0
	for _, d := range l.Fields {
		if d.Required && d.Offset+d.Length > n {
			n = d.Offset + d.Length
		}
	}
	return n
}

func (l Layout) validate() error {
	if l.Name == "" {
		return LayoutError{Type: l.Type, Reason: "empty name"}
	}
	minLen := l.MinLength()
	end := 0
	for i, d := range l.Fields {
		if d.Name == "" {
			return LayoutError{Type: l.Type, Reason: fmt.Sprintf("field %d has no name", i)}
		}
		if d.Offset < end {
			return LayoutError{Type: l.Type, Field: d.Name, Reason: "offset overlaps previous field"}
		}
		switch {
		case d.Trailing:
			if d.Kind != KindBytes {
				return LayoutError{Type: l.Type, Field: d.Name, Reason: "trailing field must be bytes"}
			}
			if d.Required {
				return LayoutError{Type: l.Type, Field: d.Name, Reason: "trailing field cannot be required"}
			}
			if i != len(l.Fields)-1 {
				return LayoutError{Type: l.Type, Field: d.Name, Reason: "trailing field must be last"}
			}
		case d.Kind == KindBytes:
			if d.Length <= 0 {
				return LayoutError{Type: l.Type, Field: d.Name, Reason: "fixed bytes field needs a length"}
			}
		case d.Kind.Width() == 0:
			return LayoutError{Type: l.Type, Field: d.Name, Reason: "unknown kind " + d.Kind.String()}
		case d.Length != d.Kind.Width():
			return LayoutError{Type: l.Type, Field: d.Name, Reason: fmt.Sprintf("length %d does not match %s", d.Length, d.Kind)}
		}
		if d.Table != nil && d.Kind == KindBytes {
			return LayoutError{Type: l.Type, Field: d.Name, Reason: "value table on bytes field"}
		}
		if !d.Required && d.Offset < minLen {
			return LayoutError{Type: l.Type, Field: d.Name, Reason: "optional field inside minimum length"}
		}
		end = d.Offset + d.Length
	}
	return nil
}

// FieldInfo is the registration view of one descriptor, used by hosts to
// prime display metadata.
type FieldInfo struct {
	PayloadType PayloadType
	Layout      string
	Name        string
	Abbrev      string
	Kind        FieldKind
	Base        Base
	Encoding    string
	Table       string
	Description string
}

// Registry indexes layouts by payload type. It is read-only once built.
type Registry struct {
	layouts map[PayloadType]Layout
	order   []PayloadType
}

func NewRegistry(layouts ...Layout) (*Registry, error) {
	r := &Registry{layouts: make(map[PayloadType]Layout, len(layouts))}
	for _, l := range layouts {
		if _, dup := r.layouts[l.Type]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLayout, l.Type)
		}
		if err := l.validate(); err != nil {
			return nil, err
		}
		l.Fields = slices.Clone(l.Fields)
		r.layouts[l.Type] = l
		r.order = append(r.order, l.Type)
	}
	slices.Sort(r.order)
	return r, nil
}

func (r *Registry) Layout(t PayloadType) (Layout, bool) {
	l, ok := r.layouts[t]
	if ok {
		l.Fields = slices.Clone(l.Fields)
	}
	return l, ok
}

// Descriptors returns the ordered descriptors of t.
func (r *Registry) Descriptors(t PayloadType) ([]Descriptor, bool) {
	l, ok := r.layouts[t]
	if !ok {
		return nil, false
	}
	return slices.Clone(l.Fields), true
}

// Types lists registered payload types in ascending order.
func (r *Registry) Types() []PayloadType {
	return slices.Clone(r.order)
}

// FieldInfos projects every descriptor in registry order.
func (r *Registry) FieldInfos() []FieldInfo {
	var out []FieldInfo
	for _, t := range r.order {
		l := r.layouts[t]
		for _, d := range l.Fields {
			out = append(out, FieldInfo{
				PayloadType: t,
				Layout:      l.Name,
				Name:        d.Name,
				Abbrev:      d.Abbrev,
				Kind:        d.Kind,
				Base:        d.Base,
				Encoding:    d.Kind.Encoding(),
				Table:       d.Table.Name(),
				Description: d.Description,
			})
		}
	}
	return out
}
