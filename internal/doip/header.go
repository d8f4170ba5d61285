package doip

import (
	"encoding/binary"
	"fmt"
)

// HeaderLength is the size of the generic DoIP header.
const HeaderLength = 8

// Header is the generic DoIP header preceding every payload.
type Header struct {
	ProtocolVersion uint8
	InverseVersion  uint8
	PayloadType     PayloadType
	PayloadLength   uint32
}

// NewHeader builds a header with a consistent inverse version.
func NewHeader(version uint8, t PayloadType, length uint32) Header {
	return Header{
		ProtocolVersion: version,
		InverseVersion:  ^version,
		PayloadType:     t,
		PayloadLength:   length,
	}
}

// Validate checks the inverse version pattern.
func (h Header) Validate() error {
	if h.InverseVersion != ^h.ProtocolVersion {
		return fmt.Errorf("%w: version %#02x inverse %#02x", ErrVersionMismatch, h.ProtocolVersion, h.InverseVersion)
	}
	return nil
}

// ParseHeader reads the generic header without validating it.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderLength {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrShortHeader, len(b))
	}
	return Header{
		ProtocolVersion: b[0],
		InverseVersion:  b[1],
		PayloadType:     PayloadType(binary.BigEndian.Uint16(b[2:4])),
		PayloadLength:   binary.BigEndian.Uint32(b[4:8]),
	}, nil
}

// DecodeHeader reads and validates the generic header.
func DecodeHeader(b []byte) (Header, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return Header{}, err
	}
	if err := h.Validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLength)
	buf[0] = h.ProtocolVersion
	buf[1] = h.InverseVersion
	binary.BigEndian.PutUint16(buf[2:4], uint16(h.PayloadType))
	binary.BigEndian.PutUint32(buf[4:8], h.PayloadLength)
	return buf
}

// SplitMessage decodes the header of msg and returns a view of exactly
// PayloadLength payload bytes.
func SplitMessage(msg []byte) (Header, []byte, error) {
	h, err := DecodeHeader(msg)
	if err != nil {
		return Header{}, nil, err
	}
	rest := msg[HeaderLength:]
	if uint64(len(rest)) < uint64(h.PayloadLength) {
		return h, nil, fmt.Errorf("%w: declared %d bytes, have %d", ErrTruncated, h.PayloadLength, len(rest))
	}
	return h, rest[:h.PayloadLength], nil
}

var headerFields = []Descriptor{
	{
		Name:     "Protocol version",
		Abbrev:   "doip.version",
		Offset:   0,
		Length:   1,
		Kind:     KindUint8,
		Base:     BaseHex,
		Table:    ProtocolVersions,
		Required: true,
	},
	{
		Name:     "Inverse protocol version",
		Abbrev:   "doip.inverse",
		Offset:   1,
		Length:   1,
		Kind:     KindUint8,
		Base:     BaseHex,
		Required: true,
	},
	{
		Name:     "Payload type",
		Abbrev:   "doip.type",
		Offset:   2,
		Length:   2,
		Kind:     KindUint16,
		Base:     BaseHex,
		Table:    PayloadTypeNames,
		Required: true,
	},
	{
		Name:     "Payload length",
		Abbrev:   "doip.length",
		Offset:   4,
		Length:   4,
		Kind:     KindUint32,
		Base:     BaseDec,
		Required: true,
	},
}

// HeaderFields decodes the generic header of h as labeled fields.
func HeaderFields(h Header) []DecodedField {
	fields, _ := extractFields(EncodeHeader(h), headerFields)
	return fields
}
