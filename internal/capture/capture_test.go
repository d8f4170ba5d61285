package capture

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/danmuck/doipscope/internal/doip"
	"github.com/danmuck/doipscope/internal/frame"
	"github.com/danmuck/doipscope/internal/testutil/testlog"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/require"
)

const (
	statusSummary = "DoIP status response [Node type: 0, open TCP sockets: 0x2, max. data size: 0x10]"
	nackSummary   = "Diagnostic message negative acknowledge [Source addr: 0xe00, Dest addr: 0x1, Nack: 0x2]"
)

func message(t doip.PayloadType, payload []byte) []byte {
	return append(doip.EncodeHeader(doip.NewHeader(0x02, t, uint32(len(payload)))), payload...)
}

func statusMessage() []byte {
	return message(doip.PayloadStatusResponse, []byte{0x00, 0x05, 0x02, 0x00, 0x00, 0x00, 0x10})
}

func nackMessage() []byte {
	return message(doip.PayloadDiagnosticNACK, []byte{0x0E, 0x00, 0x00, 0x01, 0x02})
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func ipv4(proto layers.IPProtocol) (*layers.Ethernet, *layers.IPv4) {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: proto,
		SrcIP:    net.IP{10, 0, 0, 1},
		DstIP:    net.IP{10, 0, 0, 2},
	}
	return eth, ip
}

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return buf.Bytes()
}

func tcpPacket(t *testing.T, seq uint32, payload []byte) []byte {
	t.Helper()
	eth, ip := ipv4(layers.IPProtocolTCP)
	tcp := &layers.TCP{SrcPort: 50000, DstPort: Port, Seq: seq, ACK: true, PSH: true, Window: 4096}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))
	return serialize(t, eth, ip, tcp, gopacket.Payload(payload))
}

func udpPacket(t *testing.T, payload []byte) []byte {
	t.Helper()
	eth, ip := ipv4(layers.IPProtocolUDP)
	udp := &layers.UDP{SrcPort: 50001, DstPort: Port}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	return serialize(t, eth, ip, udp, gopacket.Payload(payload))
}

func capturePackets(t *testing.T, packets ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	ts := time.Unix(1700000000, 0)
	for i, p := range packets {
		ci := gopacket.CaptureInfo{
			Timestamp:     ts.Add(time.Duration(i) * time.Millisecond),
			CaptureLength: len(p),
			Length:        len(p),
		}
		require.NoError(t, w.WritePacket(ci, p))
	}
	return buf.Bytes()
}

func readAll(t *testing.T, data []byte, opts Options) []Message {
	t.Helper()
	opts.Logger = testlog.Logger(t)
	r, err := NewReader(bytes.NewReader(data), opts)
	require.NoError(t, err)
	var out []Message
	for {
		m, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, m)
	}
}

func TestReaderReassemblesTCP(t *testing.T) {
	testlog.Start(t)
	stream := concat(statusMessage(), nackMessage())
	const isn = 1000
	seg1, seg2, seg3 := stream[:5], stream[5:17], stream[17:]
	data := capturePackets(t,
		tcpPacket(t, isn, seg1),
		tcpPacket(t, isn+5, seg2),
		tcpPacket(t, isn+5, seg2),
		tcpPacket(t, isn+17, seg3),
	)

	msgs := readAll(t, data, Options{})
	require.Len(t, msgs, 2)
	require.NoError(t, msgs[0].Err)
	require.Equal(t, statusSummary, msgs[0].Result.Summary)
	require.Equal(t, "10.0.0.1:50000->10.0.0.2:13400", msgs[0].Flow)
	require.NoError(t, msgs[1].Err)
	require.Equal(t, nackSummary, msgs[1].Result.Summary)
	require.True(t, msgs[1].Timestamp.Equal(time.Unix(1700000000, 0).Add(3*time.Millisecond)), "timestamp %v", msgs[1].Timestamp)
}

func TestReaderOverlappingSegment(t *testing.T) {
	testlog.Start(t)
	stream := concat(statusMessage(), nackMessage())
	data := capturePackets(t,
		tcpPacket(t, 1, stream[:10]),
		tcpPacket(t, 6, stream[5:]),
	)
	msgs := readAll(t, data, Options{})
	require.Len(t, msgs, 2)
	require.Equal(t, statusSummary, msgs[0].Result.Summary)
	require.Equal(t, nackSummary, msgs[1].Result.Summary)
}

func TestReaderReportsTCPGap(t *testing.T) {
	testlog.Start(t)
	status := statusMessage()
	data := capturePackets(t,
		tcpPacket(t, 1, status[:6]),
		tcpPacket(t, 100, nackMessage()),
	)
	msgs := readAll(t, data, Options{})
	require.Len(t, msgs, 2)
	require.ErrorIs(t, msgs[0].Err, ErrStreamGap)
	require.False(t, msgs[0].HasHeader)
	require.NoError(t, msgs[1].Err)
	require.Equal(t, nackSummary, msgs[1].Result.Summary)
}

func TestReaderReportsTruncatedStreamAtEnd(t *testing.T) {
	testlog.Start(t)
	status := statusMessage()
	data := capturePackets(t, tcpPacket(t, 1, status[:len(status)-2]))
	msgs := readAll(t, data, Options{})
	require.Len(t, msgs, 1)
	require.ErrorIs(t, msgs[0].Err, ErrIncomplete)
	require.True(t, msgs[0].HasHeader)
	require.Equal(t, doip.PayloadStatusResponse, msgs[0].Header.PayloadType)
}

func TestReaderStrictHeaderKeepsBoundary(t *testing.T) {
	testlog.Start(t)
	bad := nackMessage()
	bad[1] = 0x00
	data := capturePackets(t, tcpPacket(t, 1, concat(bad, statusMessage())))

	msgs := readAll(t, data, Options{Limits: frame.DefaultLimits()})
	require.Len(t, msgs, 2)
	require.ErrorIs(t, msgs[0].Err, doip.ErrVersionMismatch)
	require.True(t, msgs[0].HasHeader)
	require.Equal(t, statusSummary, msgs[1].Result.Summary)

	lenient := frame.DefaultLimits()
	lenient.StrictHeader = false
	msgs = readAll(t, data, Options{Limits: lenient})
	require.Len(t, msgs, 2)
	require.NoError(t, msgs[0].Err)
	require.Equal(t, nackSummary, msgs[0].Result.Summary)
}

func TestReaderSkipsOversizedMessage(t *testing.T) {
	testlog.Start(t)
	big := message(doip.PayloadDiagnosticMessage, make([]byte, 64))
	stream := concat(big, nackMessage())
	data := capturePackets(t,
		tcpPacket(t, 1, stream[:20]),
		tcpPacket(t, 21, stream[20:]),
	)
	msgs := readAll(t, data, Options{Limits: frame.Limits{MaxPayloadBytes: 16, StrictHeader: true}})
	require.Len(t, msgs, 2)
	require.ErrorIs(t, msgs[0].Err, frame.ErrPayloadTooLarge)
	require.Equal(t, nackSummary, msgs[1].Result.Summary)
}

func TestReaderUDPDatagrams(t *testing.T) {
	testlog.Start(t)
	data := capturePackets(t,
		udpPacket(t, concat(statusMessage(), nackMessage())),
		udpPacket(t, concat(nackMessage(), []byte{0x02, 0xFD, 0x40})),
	)
	msgs := readAll(t, data, Options{})
	require.Len(t, msgs, 4)
	require.Equal(t, statusSummary, msgs[0].Result.Summary)
	require.Equal(t, nackSummary, msgs[1].Result.Summary)
	require.Equal(t, nackSummary, msgs[2].Result.Summary)
	require.ErrorIs(t, msgs[3].Err, ErrIncomplete)
	require.False(t, msgs[3].HasHeader)
	require.Equal(t, "10.0.0.1:50001->10.0.0.2:13400", msgs[3].Flow)
}

func TestReaderIgnoresOtherPorts(t *testing.T) {
	testlog.Start(t)
	eth, ip := ipv4(layers.IPProtocolUDP)
	udp := &layers.UDP{SrcPort: 5353, DstPort: 5353}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	other := serialize(t, eth, ip, udp, gopacket.Payload(statusMessage()))

	msgs := readAll(t, capturePackets(t, other), Options{})
	require.Empty(t, msgs)
}

func TestReaderPcapNG(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	w, err := pcapgo.NewNgWriter(&buf, layers.LinkTypeEthernet)
	require.NoError(t, err)
	p := udpPacket(t, nackMessage())
	require.NoError(t, w.WritePacket(gopacket.CaptureInfo{
		Timestamp:     time.Unix(1700000000, 0),
		CaptureLength: len(p),
		Length:        len(p),
	}, p))
	require.NoError(t, w.Flush())

	msgs := readAll(t, buf.Bytes(), Options{})
	require.Len(t, msgs, 1)
	require.Equal(t, nackSummary, msgs[0].Result.Summary)
}

func TestNewReaderRejectsGarbage(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("not a capture file")), Options{})
	require.Error(t, err)

	_, err = NewReader(bytes.NewReader(nil), Options{})
	require.Error(t, err)
}

func TestLayerDecodesRegisteredPort(t *testing.T) {
	RegisterPorts()
	p := udpPacket(t, concat(statusMessage(), nackMessage()))
	packet := gopacket.NewPacket(p, layers.LayerTypeEthernet, gopacket.Default)
	require.Nil(t, packet.ErrorLayer())

	var got []*DoIP
	for _, l := range packet.Layers() {
		if d, ok := l.(*DoIP); ok {
			got = append(got, d)
		}
	}
	require.Len(t, got, 2)
	require.Equal(t, statusSummary, got[0].Result.Summary)
	require.Equal(t, nackSummary, got[1].Result.Summary)
	require.Equal(t, doip.HeaderLength+7, len(got[0].LayerContents()))
	require.Len(t, got[1].LayerPayload(), 0)
	require.Equal(t, LayerTypeDoIP, got[0].LayerType())
}

func TestLayerDecodeFromBytes(t *testing.T) {
	var d DoIP
	err := d.DecodeFromBytes(statusMessage()[:10], gopacket.NilDecodeFeedback)
	require.ErrorIs(t, err, ErrIncomplete)

	err = d.DecodeFromBytes([]byte{0x02, 0xFD}, gopacket.NilDecodeFeedback)
	require.ErrorIs(t, err, ErrIncomplete)

	in := concat(nackMessage(), []byte{0x01, 0x02})
	require.NoError(t, d.DecodeFromBytes(in, gopacket.NilDecodeFeedback))
	require.Equal(t, doip.PayloadDiagnosticNACK, d.Header.PayloadType)
	require.Equal(t, []byte{0x0E, 0x00, 0x00, 0x01, 0x02}, d.Body)
	require.Equal(t, gopacket.LayerTypePayload, d.NextLayerType())
	require.True(t, d.Result.Known)
}
