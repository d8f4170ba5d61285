package doip

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Decoder decodes the payload of one payload type.
type Decoder interface {
	PayloadType() PayloadType
	Decode(payload []byte, declared uint32) (Result, error)
}

// LayoutDecoder decodes a payload by walking the descriptors of a Layout.
type LayoutDecoder struct {
	layout Layout
}

func NewLayoutDecoder(l Layout) *LayoutDecoder {
	return &LayoutDecoder{layout: l}
}

func (d *LayoutDecoder) PayloadType() PayloadType {
	return d.layout.Type
}

// Decode reads at most declared bytes of payload. A payload shorter than
// declared is rejected with ErrMalformedInput; every other shortfall is
// reported through the result.
func (d *LayoutDecoder) Decode(payload []byte, declared uint32) (Result, error) {
	if uint64(len(payload)) < uint64(declared) {
		return Result{}, fmt.Errorf("%w: payload type %s declares %d bytes, buffer holds %d",
			ErrMalformedInput, d.layout.Type, declared, len(payload))
	}
	fields, partial := extractFields(payload[:declared], d.layout.Fields)
	res := Result{
		PayloadType: d.layout.Type,
		Name:        d.layout.Name,
		Known:       true,
		Fields:      fields,
		Partial:     partial,
		Summary:     d.layout.Name,
	}
	if !partial && d.layout.Summary != nil {
		if s, ok := d.layout.Summary(res); ok {
			res.Summary = s
		}
	}
	return res, nil
}

// extractFields decodes descriptors against view. Missing required fields
// are emitted absent and flag the result partial; missing optional fields
// are skipped.
func extractFields(view []byte, descs []Descriptor) ([]DecodedField, bool) {
	out := make([]DecodedField, 0, len(descs))
	partial := false
	for _, d := range descs {
		f, ok := extract(view, d)
		if !ok {
			if d.Required {
				partial = true
				out = append(out, DecodedField{Descriptor: d, Offset: d.Offset})
			}
			continue
		}
		out = append(out, f)
	}
	return out, partial
}

func extract(view []byte, d Descriptor) (DecodedField, bool) {
	start, end := d.Offset, d.Offset+d.Length
	if d.Trailing {
		if len(view) <= start {
			return DecodedField{}, false
		}
		end = len(view)
	} else if start < 0 || end > len(view) {
		return DecodedField{}, false
	}
	span := view[start:end]
	f := DecodedField{Descriptor: d, Present: true, Offset: start, Length: end - start}
	switch d.Kind {
	case KindUint8:
		f.Value = uint64(span[0])
	case KindUint16:
		f.Value = uint64(binary.BigEndian.Uint16(span))
	case KindUint32:
		f.Value = uint64(binary.BigEndian.Uint32(span))
	default:
		f.Bytes = bytes.Clone(span)
		return f, true
	}
	if label, ok := d.Table.Lookup(f.Value); ok {
		f.Label = label
		f.Resolved = true
	}
	return f, true
}
