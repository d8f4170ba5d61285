package doip

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger routes dispatch diagnostics to l.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.log = l
	}
}

// WithDecoder replaces or adds the decoder for dec.PayloadType().
func WithDecoder(dec Decoder) Option {
	return func(d *Dispatcher) {
		d.decoders[dec.PayloadType()] = dec
	}
}

// Dispatcher routes payloads to decoders by payload type. It is immutable
// after construction and safe for concurrent use.
type Dispatcher struct {
	registry *Registry
	decoders map[PayloadType]Decoder
	log      zerolog.Logger
}

// NewDispatcher creates a LayoutDecoder for every layout in reg, then applies
// opts.
func NewDispatcher(reg *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: reg,
		decoders: make(map[PayloadType]Decoder, len(reg.order)),
		log:      zerolog.Nop(),
	}
	for _, t := range reg.order {
		d.decoders[t] = NewLayoutDecoder(reg.layouts[t])
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewDefaultDispatcher dispatches over NewDefaultRegistry.
func NewDefaultDispatcher(opts ...Option) (*Dispatcher, error) {
	reg, err := NewDefaultRegistry()
	if err != nil {
		return nil, err
	}
	return NewDispatcher(reg, opts...), nil
}

func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Decode decodes payload as payload type t. Unknown types produce a result
// with no fields and never touch payload.
func (d *Dispatcher) Decode(t PayloadType, payload []byte, declared uint32) (Result, error) {
	dec, ok := d.decoders[t]
	if !ok {
		d.log.Debug().Stringer("payload_type", t).Msg("doip.Decode unknown payload type")
		return UnknownResult(t), nil
	}
	res, err := dec.Decode(payload, declared)
	if err != nil {
		d.log.Warn().Err(err).Stringer("payload_type", t).Uint32("declared", declared).Int("buffer", len(payload)).Msg("doip.Decode rejected")
		return Result{}, err
	}
	if res.Partial {
		d.log.Warn().Stringer("payload_type", t).Uint32("declared", declared).Msg("doip.Decode partial payload")
	} else {
		d.log.Debug().Stringer("payload_type", t).Int("fields", len(res.Fields)).Msg("doip.Decode ok")
	}
	return res, nil
}

// DecodeMessage splits msg into header and payload and decodes the payload.
func (d *Dispatcher) DecodeMessage(msg []byte) (Header, Result, error) {
	h, payload, err := SplitMessage(msg)
	if err != nil {
		if errors.Is(err, ErrTruncated) {
			return h, Result{}, fmt.Errorf("%w: %w", ErrMalformedInput, err)
		}
		return h, Result{}, err
	}
	res, err := d.Decode(h.PayloadType, payload, h.PayloadLength)
	return h, res, err
}

// UnknownResult is the result for a payload type without a decoder.
func UnknownResult(t PayloadType) Result {
	return Result{
		PayloadType: t,
		Name:        t.Name(),
		Summary:     fmt.Sprintf("Unknown payload type %s", t),
	}
}
