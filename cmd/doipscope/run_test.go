package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/doipscope/internal/config"
	"github.com/danmuck/doipscope/internal/doip"
	"github.com/danmuck/doipscope/internal/frame"
	"github.com/danmuck/doipscope/internal/render"
	"github.com/danmuck/doipscope/internal/testutil/testlog"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

func captureBytes(t *testing.T, frames ...frame.Frame) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, f := range frames {
		if err := frame.WriteFrame(&buf, f, frame.DefaultLimits()); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}
	return buf.Bytes()
}

func sampleFrames() []frame.Frame {
	return []frame.Frame{
		{Header: doip.Header{ProtocolVersion: 0x02, PayloadType: doip.PayloadStatusResponse}, Payload: []byte{0x00, 0x05, 0x02, 0x00, 0x00, 0x00, 0x10}},
		{Header: doip.Header{ProtocolVersion: 0x02, PayloadType: doip.PayloadDiagnosticNACK}, Payload: []byte{0x0E, 0x00, 0x00, 0x01, 0x02}},
		{Header: doip.Header{ProtocolVersion: 0x02, PayloadType: 0x9999}, Payload: []byte{0x01}},
	}
}

func TestRunBinaryText(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "capture.bin")
	if err := os.WriteFile(path, captureBytes(t, sampleFrames()...), 0o644); err != nil {
		t.Fatalf("write capture: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Output.Metrics = true
	var out bytes.Buffer
	if err := run(cfg, testlog.Logger(t), []string{path}, nil, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	for _, want := range []string{
		"#1 0x4002 (DoIP status response)",
		"DoIP status response [Node type: 0, open TCP sockets: 0x2, max. data size: 0x10]",
		"#2 0x8003 (Diagnostic message negative acknowledge)",
		"Diagnostic message negative acknowledge [Source addr: 0xe00, Dest addr: 0x1, Nack: 0x2]",
		"#3 0x9999",
		"Unknown payload type 0x9999",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in output:\n%s", want, text)
		}
	}
}

func TestRunBinaryTruncatedTail(t *testing.T) {
	testlog.Start(t)
	data := captureBytes(t, sampleFrames()[:2]...)
	data = data[:len(data)-2]

	cfg := config.DefaultConfig()
	var out bytes.Buffer
	if err := run(cfg, testlog.Logger(t), []string{"-"}, bytes.NewReader(data), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "#2 error: frame: short payload") {
		t.Fatalf("expected short payload error, got:\n%s", out.String())
	}
}

func TestRunHexJSON(t *testing.T) {
	testlog.Start(t)
	input := strings.Join([]string{
		"# status response",
		"02 fd 40 02 00 00 00 04 00 05 02 00",
		"",
		"02fd800300000007 0e00 0001 02 aabb",
		"zz",
	}, "\n")

	cfg := config.DefaultConfig()
	cfg.Input.Format = config.InputHex
	cfg.Output.Format = render.FormatJSON
	var out bytes.Buffer
	if err := run(cfg, testlog.Logger(t), nil, strings.NewReader(input), &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	var docs []render.Document
	if err := json.Unmarshal(out.Bytes(), &docs); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}
	if docs[0].Summary != "DoIP status response [Node type: 0, open TCP sockets: 0x2]" {
		t.Fatalf("unexpected summary: %q", docs[0].Summary)
	}
	if len(docs[1].Fields) != 4 || docs[1].Fields[3].Raw != "aabb" {
		t.Fatalf("unexpected nack fields: %+v", docs[1].Fields)
	}
	if docs[2].Error == "" {
		t.Fatalf("expected hex error document")
	}
	if docs[2].PayloadType != "" {
		t.Fatalf("hex error has no header, got payload type %q", docs[2].PayloadType)
	}
	if docs[1].Fields[0].Start != doip.HeaderLength {
		t.Fatalf("payload ranges should count from the header, got %+v", docs[1].Fields[0])
	}
}

func TestRunHexLineWithSeveralMessages(t *testing.T) {
	testlog.Start(t)
	frames := sampleFrames()
	input := hex.EncodeToString(captureBytes(t, frames[0], frames[1])) + "\n" +
		hex.EncodeToString(append(captureBytes(t, frames[1]), 0x02, 0xFD, 0x40)) + "\n"

	cfg := config.DefaultConfig()
	cfg.Input.Format = config.InputHex
	var out bytes.Buffer
	if err := run(cfg, testlog.Logger(t), nil, strings.NewReader(input), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	for _, want := range []string{
		"#1 0x4002 (DoIP status response)",
		"#2 0x8003 (Diagnostic message negative acknowledge)",
		"#3 0x8003 (Diagnostic message negative acknowledge)",
		"#4 error: line 2: frame: short header",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in output:\n%s", want, text)
		}
	}
}

func TestRunBinaryResumesAfterBadHeader(t *testing.T) {
	testlog.Start(t)
	data := captureBytes(t, sampleFrames()...)
	data[1] = 0x00

	cfg := config.DefaultConfig()
	var out bytes.Buffer
	if err := run(cfg, testlog.Logger(t), []string{"-"}, bytes.NewReader(data), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	for _, want := range []string{
		"#1 error: doip: inverse protocol version mismatch",
		"#2 0x8003 (Diagnostic message negative acknowledge)",
		"#3 0x9999",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in output:\n%s", want, text)
		}
	}
}

func TestRunPcapJSON(t *testing.T) {
	testlog.Start(t)
	frames := sampleFrames()
	path := filepath.Join(t.TempDir(), "capture.pcap")
	if err := os.WriteFile(path, pcapBytes(t, captureBytes(t, frames[0], frames[1])), 0o644); err != nil {
		t.Fatalf("write capture: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Input.Format = config.InputPcap
	cfg.Output.Format = render.FormatJSON
	var out bytes.Buffer
	if err := run(cfg, testlog.Logger(t), []string{path}, nil, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	var docs []render.Document
	if err := json.Unmarshal(out.Bytes(), &docs); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d:\n%s", len(docs), out.String())
	}
	if docs[0].PayloadType != "0x4002" || docs[1].PayloadType != "0x8003" {
		t.Fatalf("unexpected payload types: %s %s", docs[0].PayloadType, docs[1].PayloadType)
	}
}

// pcapBytes wraps payload in one UDP datagram to port 13400.
func pcapBytes(t *testing.T, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolUDP, SrcIP: net.IP{192, 168, 0, 10}, DstIP: net.IP{192, 168, 0, 20}}
	udp := &layers.UDP{SrcPort: 13400, DstPort: 13400}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("checksum layer: %v", err)
	}
	pkt := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(pkt, gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		t.Fatalf("serialize: %v", err)
	}

	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		t.Fatalf("pcap header: %v", err)
	}
	data := pkt.Bytes()
	ci := gopacket.CaptureInfo{Timestamp: time.Unix(1700000000, 0), CaptureLength: len(data), Length: len(data)}
	if err := w.WritePacket(ci, data); err != nil {
		t.Fatalf("pcap packet: %v", err)
	}
	return buf.Bytes()
}

func TestRunRegistryYAML(t *testing.T) {
	testlog.Start(t)
	cfg := config.DefaultConfig()
	cfg.Output.Format = render.FormatYAML
	cfg.Output.ShowRegistry = true

	var out bytes.Buffer
	if err := run(cfg, testlog.Logger(t), nil, bytes.NewReader(nil), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(out.String(), "TYPE") {
		t.Fatalf("expected registry table first:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "[]") {
		t.Fatalf("expected empty yaml sequence:\n%s", out.String())
	}
}

func TestRunMissingFile(t *testing.T) {
	testlog.Start(t)
	err := run(config.DefaultConfig(), testlog.Logger(t), []string{filepath.Join(t.TempDir(), "nope.bin")}, nil, &bytes.Buffer{})
	if err == nil {
		t.Fatalf("expected error")
	}
}
