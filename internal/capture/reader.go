package capture

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/doipscope/internal/doip"
	"github.com/danmuck/doipscope/internal/frame"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/rs/zerolog"
)

// ErrStreamGap reports missing TCP bytes. Buffered data for the flow is
// dropped since the next message boundary is unknown.
var ErrStreamGap = errors.New("capture: tcp stream gap")

var pcapngMagic = []byte{0x0A, 0x0D, 0x0D, 0x0A}

// Message is one DoIP message, or one failure, recovered from a capture.
type Message struct {
	Timestamp time.Time
	// Flow names the endpoints, as in "10.0.0.1:50000->10.0.0.2:13400".
	Flow string
	// HasHeader is false for failures raised before a header was parsed.
	HasHeader bool
	Header    doip.Header
	Result    doip.Result
	Err       error
}

// Options configure a Reader. Zero Limits mean frame.DefaultLimits.
type Options struct {
	Dispatcher *doip.Dispatcher
	Limits     frame.Limits
	Logger     zerolog.Logger
}

type stream struct {
	flow    string
	started bool
	next    uint32
	buf     []byte
	// skip counts bytes of a rejected oversized message still to discard.
	skip uint64
}

// Reader yields DoIP messages from a pcap or pcapng capture. TCP segments
// on port 13400 are reassembled per direction in sequence order; UDP
// datagrams are decoded on their own.
type Reader struct {
	src     *gopacket.PacketSource
	opts    Options
	log     zerolog.Logger
	streams map[string]*stream
	order   []*stream
	pending []Message
	done    bool
}

// NewReader detects the capture format from its magic number.
func NewReader(r io.Reader, opts Options) (*Reader, error) {
	RegisterPorts()
	if opts.Limits == (frame.Limits{}) {
		opts.Limits = frame.DefaultLimits()
	}
	if opts.Dispatcher == nil {
		d, err := defaultDispatcher()
		if err != nil {
			return nil, err
		}
		opts.Dispatcher = d
	}

	br := bufio.NewReader(r)
	magic, err := br.Peek(len(pcapngMagic))
	if err != nil {
		return nil, fmt.Errorf("capture: read magic: %w", err)
	}
	var (
		data gopacket.PacketDataSource
		link layers.LinkType
	)
	if bytes.Equal(magic, pcapngMagic) {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("capture: open pcapng: %w", err)
		}
		data, link = ng, ng.LinkType()
	} else {
		pr, err := pcapgo.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("capture: open pcap: %w", err)
		}
		data, link = pr, pr.LinkType()
	}

	src := gopacket.NewPacketSource(data, link)
	src.Lazy = true
	src.NoCopy = true
	opts.Logger.Debug().Str("link_type", link.String()).Msg("capture opened")
	return &Reader{
		src:     src,
		opts:    opts,
		log:     opts.Logger,
		streams: make(map[string]*stream),
	}, nil
}

// Next returns the next message in capture order, and io.EOF once the
// capture and all buffered stream data are exhausted. A read error ends the
// capture and is returned as a failed Message.
func (r *Reader) Next() (Message, error) {
	for len(r.pending) == 0 {
		if r.done {
			return Message{}, io.EOF
		}
		packet, err := r.src.NextPacket()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.push(Message{Err: fmt.Errorf("capture: read packet: %w", err)})
			}
			r.flush()
			r.done = true
			continue
		}
		r.handle(packet)
	}
	m := r.pending[0]
	r.pending = r.pending[1:]
	return m, nil
}

func (r *Reader) handle(packet gopacket.Packet) {
	ts := packet.Metadata().Timestamp
	switch t := packet.TransportLayer().(type) {
	case *layers.TCP:
		if len(t.Payload) == 0 || t.NextLayerType() != LayerTypeDoIP {
			return
		}
		flow := flowName(packet.NetworkLayer(), uint16(t.SrcPort), uint16(t.DstPort))
		r.handleTCP(r.stream(flow), ts, t)
	case *layers.UDP:
		if len(t.Payload) == 0 || t.NextLayerType() != LayerTypeDoIP {
			return
		}
		flow := flowName(packet.NetworkLayer(), uint16(t.SrcPort), uint16(t.DstPort))
		st := &stream{flow: flow, buf: t.Payload}
		r.drain(st, ts)
		if len(st.buf) > 0 {
			r.pushIncomplete(st, ts, "datagram")
		}
	}
}

func (r *Reader) handleTCP(st *stream, ts time.Time, tcp *layers.TCP) {
	payload := tcp.Payload
	seq := tcp.Seq
	if st.started {
		switch diff := int32(seq - st.next); {
		case diff < 0:
			overlap := uint64(-int64(diff))
			if overlap >= uint64(len(payload)) {
				r.log.Trace().Str("flow", st.flow).Uint32("seq", seq).Msg("retransmitted segment skipped")
				return
			}
			payload = payload[overlap:]
			seq = st.next
		case diff > 0:
			r.push(Message{
				Timestamp: ts,
				Flow:      st.flow,
				Err:       fmt.Errorf("%s: %w: %d bytes missing, %d buffered bytes dropped", st.flow, ErrStreamGap, diff, len(st.buf)),
			})
			st.buf = nil
			st.skip = 0
		}
	}
	st.started = true
	st.next = seq + uint32(len(payload))
	st.buf = append(st.buf, payload...)
	r.drain(st, ts)
}

// drain emits every complete message at the front of st.buf and leaves a
// trailing partial message buffered.
func (r *Reader) drain(st *stream, ts time.Time) {
	for {
		if st.skip > 0 {
			n := min(st.skip, uint64(len(st.buf)))
			st.buf = st.buf[n:]
			st.skip -= n
			if st.skip > 0 {
				return
			}
		}
		if len(st.buf) < doip.HeaderLength {
			return
		}
		h, err := doip.ParseHeader(st.buf)
		if err != nil {
			return
		}
		if h.PayloadLength > r.opts.Limits.MaxPayloadBytes {
			r.push(Message{
				Timestamp: ts,
				Flow:      st.flow,
				HasHeader: true,
				Header:    h,
				Err:       fmt.Errorf("%s: %w: %d > %d", st.flow, frame.ErrPayloadTooLarge, h.PayloadLength, r.opts.Limits.MaxPayloadBytes),
			})
			st.buf = st.buf[doip.HeaderLength:]
			st.skip = uint64(h.PayloadLength)
			continue
		}

		d := &DoIP{Dispatcher: r.opts.Dispatcher, Strict: r.opts.Limits.StrictHeader}
		if err := d.DecodeFromBytes(st.buf, gopacket.NilDecodeFeedback); err != nil {
			if errors.Is(err, ErrIncomplete) {
				return
			}
			r.push(Message{Timestamp: ts, Flow: st.flow, Err: fmt.Errorf("%s: %w", st.flow, err)})
			st.buf = nil
			return
		}
		m := Message{
			Timestamp: ts,
			Flow:      st.flow,
			HasHeader: true,
			Header:    d.Header,
			Result:    d.Result,
			Err:       d.Err,
		}
		if m.Err != nil {
			m.Err = fmt.Errorf("%s: %w", st.flow, m.Err)
		}
		r.push(m)
		st.buf = st.buf[len(d.Contents):]
	}
}

// flush reports data still buffered when the capture ends, in the order
// flows first appeared.
func (r *Reader) flush() {
	for _, st := range r.order {
		if len(st.buf) > 0 {
			r.pushIncomplete(st, time.Time{}, "end of capture")
		}
		st.buf = nil
	}
}

func (r *Reader) pushIncomplete(st *stream, ts time.Time, where string) {
	m := Message{
		Timestamp: ts,
		Flow:      st.flow,
		Err:       fmt.Errorf("%s: %w: %d bytes left at %s", st.flow, ErrIncomplete, len(st.buf), where),
	}
	if h, err := doip.ParseHeader(st.buf); err == nil {
		m.HasHeader = true
		m.Header = h
	}
	r.push(m)
}

func (r *Reader) push(m Message) {
	r.pending = append(r.pending, m)
}

func (r *Reader) stream(flow string) *stream {
	st, ok := r.streams[flow]
	if !ok {
		st = &stream{flow: flow}
		r.streams[flow] = st
		r.order = append(r.order, st)
	}
	return st
}

func flowName(net gopacket.NetworkLayer, src, dst uint16) string {
	if net == nil {
		return fmt.Sprintf("?:%d->?:%d", src, dst)
	}
	f := net.NetworkFlow()
	return fmt.Sprintf("%s:%d->%s:%d", f.Src(), src, f.Dst(), dst)
}
