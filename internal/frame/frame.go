// Package frame reads and writes whole DoIP messages (generic header plus
// payload) from byte streams.
package frame

import (
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/doipscope/internal/doip"
)

var (
	ErrShortHeader     = errors.New("frame: short header")
	ErrShortPayload    = errors.New("frame: short payload")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
)

// Frame is one complete DoIP message.
type Frame struct {
	Header  doip.Header
	Payload []byte
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint32
	// StrictHeader rejects headers whose inverse version does not match.
	StrictHeader bool
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 8 * 1024 * 1024,
		StrictHeader:    true,
	}
}

// ReadFrame reads one message from r. It returns io.EOF when r is exhausted
// before the first header byte.
//
// A header rejected by limits still carries a usable length, so its payload
// is skipped and the error returned with the header: r stays positioned at
// the next message. ErrShortHeader and ErrShortPayload mean r is exhausted.
func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [doip.HeaderLength]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	h, err := doip.ParseHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	var reject error
	if limits.StrictHeader {
		reject = h.Validate()
	}
	if reject == nil && h.PayloadLength > limits.MaxPayloadBytes {
		reject = fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, h.PayloadLength, limits.MaxPayloadBytes)
	}
	if reject != nil {
		if _, err := io.CopyN(io.Discard, r, int64(h.PayloadLength)); err != nil && !errors.Is(err, io.EOF) {
			return Frame{Header: h}, err
		}
		return Frame{Header: h}, reject
	}

	payload := make([]byte, h.PayloadLength)
	if h.PayloadLength > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Frame{Header: h}, ErrShortPayload
			}
			return Frame{}, err
		}
	}
	return Frame{Header: h, Payload: payload}, nil
}

// Recoverable reports whether reading can go on after ReadFrame returned
// err: the reader is either at a message boundary or exhausted.
func Recoverable(err error) bool {
	return errors.Is(err, doip.ErrVersionMismatch) ||
		errors.Is(err, ErrPayloadTooLarge) ||
		errors.Is(err, ErrShortHeader) ||
		errors.Is(err, ErrShortPayload)
}

// WriteFrame writes f, deriving the inverse version and payload length from
// the protocol version and payload.
func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	if uint64(len(f.Payload)) > uint64(limits.MaxPayloadBytes) {
		return ErrPayloadTooLarge
	}
	h := doip.NewHeader(f.Header.ProtocolVersion, f.Header.PayloadType, uint32(len(f.Payload)))
	if _, err := w.Write(doip.EncodeHeader(h)); err != nil {
		return err
	}
	if len(f.Payload) == 0 {
		return nil
	}
	_, err := w.Write(f.Payload)
	return err
}
