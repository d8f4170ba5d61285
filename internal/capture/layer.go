// Package capture recovers DoIP messages from packet captures. DoIP is
// registered with gopacket on its IANA port, and pcap or pcapng files are
// read offline with TCP payloads reassembled per flow.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/danmuck/doipscope/internal/doip"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Port is the IANA port of DoIP on both TCP and UDP.
const Port = 13400

// ErrIncomplete reports data ending before the message its header declares.
var ErrIncomplete = errors.New("capture: incomplete DoIP message")

// LayerTypeDoIP is the gopacket layer type of one DoIP message. It is
// assigned in init since its decoder refers back to it.
var LayerTypeDoIP gopacket.LayerType

func init() {
	LayerTypeDoIP = gopacket.RegisterLayerType(
		Port,
		gopacket.LayerTypeMetadata{
			Name:    "DoIP",
			Decoder: gopacket.DecodeFunc(decodeDoIP),
		},
	)
}

var registerOnce sync.Once

// RegisterPorts maps TCP and UDP port 13400 to LayerTypeDoIP.
func RegisterPorts() {
	registerOnce.Do(func() {
		layers.RegisterTCPPortLayerType(layers.TCPPort(Port), LayerTypeDoIP)
		layers.RegisterUDPPortLayerType(layers.UDPPort(Port), LayerTypeDoIP)
	})
}

var defaultDispatcher = sync.OnceValues(func() (*doip.Dispatcher, error) {
	return doip.NewDefaultDispatcher()
})

// DoIP is one message decoded as a gopacket layer. Contents holds the whole
// message and LayerPayload the bytes that follow it in the same segment or
// datagram, so several messages in one packet decode as a chain of layers.
type DoIP struct {
	layers.BaseLayer

	Header doip.Header
	// Body is the DoIP payload. It aliases Contents.
	Body   []byte
	Result doip.Result
	// Err is the header validation or payload decode error. The message
	// boundary is still known when Err is set.
	Err error

	// Dispatcher decodes Body. The default registry is used when nil.
	Dispatcher *doip.Dispatcher
	// Strict rejects headers whose inverse version does not match.
	Strict bool
}

func (d *DoIP) LayerType() gopacket.LayerType {
	return LayerTypeDoIP
}

func (d *DoIP) CanDecode() gopacket.LayerClass {
	return LayerTypeDoIP
}

func (d *DoIP) NextLayerType() gopacket.LayerType {
	switch {
	case len(d.Payload) >= doip.HeaderLength:
		return LayerTypeDoIP
	case len(d.Payload) > 0:
		return gopacket.LayerTypePayload
	default:
		return gopacket.LayerTypeZero
	}
}

// DecodeFromBytes decodes the message at the start of data. It returns
// ErrIncomplete, and marks df truncated, when data ends before the declared
// payload does.
func (d *DoIP) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < doip.HeaderLength {
		df.SetTruncated()
		return fmt.Errorf("%w: %d of %d header bytes", ErrIncomplete, len(data), doip.HeaderLength)
	}
	h, err := doip.ParseHeader(data)
	if err != nil {
		return err
	}
	need := uint64(doip.HeaderLength) + uint64(h.PayloadLength)
	if uint64(len(data)) < need {
		df.SetTruncated()
		return fmt.Errorf("%w: %d of %d bytes", ErrIncomplete, len(data), need)
	}

	end := int(need)
	d.BaseLayer = layers.BaseLayer{Contents: data[:end], Payload: data[end:]}
	d.Header = h
	d.Body = data[doip.HeaderLength:end]
	d.Result = doip.Result{}
	d.Err = nil

	if d.Strict {
		if err := h.Validate(); err != nil {
			d.Err = err
			return nil
		}
	}
	disp := d.Dispatcher
	if disp == nil {
		if disp, err = defaultDispatcher(); err != nil {
			return err
		}
	}
	d.Result, d.Err = disp.Decode(h.PayloadType, d.Body, h.PayloadLength)
	return nil
}

func decodeDoIP(data []byte, p gopacket.PacketBuilder) error {
	d := &DoIP{}
	if err := d.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(d)
	if len(d.Payload) == 0 {
		return nil
	}
	return p.NextDecoder(d.NextLayerType())
}
