package doip

import "fmt"

// Payload types with a registered layout.
const (
	PayloadGenericNACK              PayloadType = 0x0000
	PayloadRoutingActivationRequest PayloadType = 0x0005
	PayloadRoutingActivationResp    PayloadType = 0x0006
	PayloadAliveCheckRequest        PayloadType = 0x0007
	PayloadAliveCheckResponse       PayloadType = 0x0008
	PayloadStatusRequest            PayloadType = 0x4001
	PayloadStatusResponse           PayloadType = 0x4002
	PayloadPowerModeRequest         PayloadType = 0x4003
	PayloadPowerModeResponse        PayloadType = 0x4004
	PayloadDiagnosticMessage        PayloadType = 0x8001
	PayloadDiagnosticACK            PayloadType = 0x8002
	PayloadDiagnosticNACK           PayloadType = 0x8003
)

// Field names shared by layouts and summaries.
const (
	FieldNodeType        = "Node type"
	FieldMaxSockets      = "Max. concurrent TCP_DATA sockets"
	FieldOpenSockets     = "Currently open TCP_DATA sockets"
	FieldMaxDataSize     = "Max. data size"
	FieldSourceAddress   = "Source address"
	FieldTargetAddress   = "Target address"
	FieldNACKCode        = "NACK code"
	FieldACKCode         = "ACK code"
	FieldPreviousData    = "Previous diagnostic message data"
	FieldUserData        = "User data"
	FieldGenericNACKCode = "Generic header NACK code"
	FieldActivationType  = "Activation type"
	FieldReservedISO     = "Reserved by ISO 13400"
	FieldReservedOEM     = "Reserved for OEM-specific use"
	FieldTesterAddress   = "Logical address of external test equipment"
	FieldEntityAddress   = "Logical address of DoIP entity"
	FieldRoutingResponse = "Routing activation response code"
	FieldPowerMode       = "Diagnostic power mode"
)

func sourceAddress(offset int) Descriptor {
	return Descriptor{
		Name:        FieldSourceAddress,
		Abbrev:      "doip.sa",
		Description: "Logical address of the sender of the message.",
		Offset:      offset,
		Length:      2,
		Kind:        KindUint16,
		Base:        BaseHex,
		Table:       LogicalAddresses,
		Required:    true,
	}
}

func targetAddress(offset int) Descriptor {
	return Descriptor{
		Name:        FieldTargetAddress,
		Abbrev:      "doip.ta",
		Description: "Logical address of the receiver of the message.",
		Offset:      offset,
		Length:      2,
		Kind:        KindUint16,
		Base:        BaseHex,
		Table:       LogicalAddresses,
		Required:    true,
	}
}

func previousData(offset int) Descriptor {
	return Descriptor{
		Name:        FieldPreviousData,
		Abbrev:      "doip.pdmd",
		Description: "Currently acknowledged diagnostic message.",
		Offset:      offset,
		Kind:        KindBytes,
		Trailing:    true,
	}
}

func reservedISOField(offset int) Descriptor {
	return Descriptor{
		Name:     FieldReservedISO,
		Abbrev:   "doip.res_iso",
		Offset:   offset,
		Length:   4,
		Kind:     KindUint32,
		Base:     BaseHex,
		Required: true,
	}
}

func reservedOEMField(offset int) Descriptor {
	return Descriptor{
		Name:   FieldReservedOEM,
		Abbrev: "doip.res_oem",
		Offset: offset,
		Length: 4,
		Kind:   KindUint32,
		Base:   BaseHex,
	}
}

// DefaultLayouts returns the ISO 13400-2:2012 payload layouts.
func DefaultLayouts() []Layout {
	return []Layout{
		{
			Type: PayloadGenericNACK,
			Name: "Generic header negative acknowledge",
			Fields: []Descriptor{{
				Name:     FieldGenericNACKCode,
				Abbrev:   "doip.hdr_nack",
				Offset:   0,
				Length:   1,
				Kind:     KindUint8,
				Base:     BaseHex,
				Table:    GenericNACKCodes,
				Required: true,
			}},
			Summary: summarizeGenericNACK,
		},
		{
			Type: PayloadRoutingActivationRequest,
			Name: "Routing activation request",
			Fields: []Descriptor{
				sourceAddress(0),
				{
					Name:     FieldActivationType,
					Abbrev:   "doip.act_type",
					Offset:   2,
					Length:   1,
					Kind:     KindUint8,
					Base:     BaseHex,
					Table:    ActivationTypes,
					Required: true,
				},
				reservedISOField(3),
				reservedOEMField(7),
			},
			Summary: summarizeRoutingRequest,
		},
		{
			Type: PayloadRoutingActivationResp,
			Name: "Routing activation response",
			Fields: []Descriptor{
				{
					Name:     FieldTesterAddress,
					Abbrev:   "doip.tester_la",
					Offset:   0,
					Length:   2,
					Kind:     KindUint16,
					Base:     BaseHex,
					Table:    LogicalAddresses,
					Required: true,
				},
				{
					Name:     FieldEntityAddress,
					Abbrev:   "doip.entity_la",
					Offset:   2,
					Length:   2,
					Kind:     KindUint16,
					Base:     BaseHex,
					Table:    LogicalAddresses,
					Required: true,
				},
				{
					Name:     FieldRoutingResponse,
					Abbrev:   "doip.ra_code",
					Offset:   4,
					Length:   1,
					Kind:     KindUint8,
					Base:     BaseHex,
					Table:    RoutingResponseCodes,
					Required: true,
				},
				reservedISOField(5),
				reservedOEMField(9),
			},
			Summary: summarizeRoutingResponse,
		},
		{Type: PayloadAliveCheckRequest, Name: "Alive check request"},
		{
			Type:    PayloadAliveCheckResponse,
			Name:    "Alive check response",
			Fields:  []Descriptor{sourceAddress(0)},
			Summary: summarizeAliveCheckResponse,
		},
		{Type: PayloadStatusRequest, Name: "DoIP status request"},
		{
			Type: PayloadStatusResponse,
			Name: "DoIP status response",
			Fields: []Descriptor{
				{
					Name:        FieldNodeType,
					Abbrev:      "doip.nd",
					Description: "Identifies whether the contacted DoIP instance is either a DoIP node or a DoIP gateway.",
					Offset:      0,
					Length:      1,
					Kind:        KindUint8,
					Base:        BaseHex,
					Table:       NodeTypes,
					Required:    true,
				},
				{
					Name:        FieldMaxSockets,
					Abbrev:      "doip.mcts",
					Description: "Maximum number of concurrent TCP_DATA sockets allowed with this DoIP entity, excluding the reserve socket.",
					Offset:      1,
					Length:      1,
					Kind:        KindUint8,
					Base:        BaseDec,
					Required:    true,
				},
				{
					Name:        FieldOpenSockets,
					Abbrev:      "doip.ncts",
					Description: "Number of currently established sockets.",
					Offset:      2,
					Length:      1,
					Kind:        KindUint8,
					Base:        BaseDec,
					Required:    true,
				},
				{
					Name:        FieldMaxDataSize,
					Abbrev:      "doip.mds",
					Description: "Maximum size of one logical request that this DoIP entity can process.",
					Offset:      3,
					Length:      4,
					Kind:        KindUint32,
					Base:        BaseDec,
				},
			},
			Summary: summarizeStatusResponse,
		},
		{Type: PayloadPowerModeRequest, Name: "Diagnostic power mode information request"},
		{
			Type: PayloadPowerModeResponse,
			Name: "Diagnostic power mode information response",
			Fields: []Descriptor{{
				Name:     FieldPowerMode,
				Abbrev:   "doip.power_mode",
				Offset:   0,
				Length:   1,
				Kind:     KindUint8,
				Base:     BaseHex,
				Table:    PowerModes,
				Required: true,
			}},
			Summary: summarizePowerMode,
		},
		{
			Type: PayloadDiagnosticMessage,
			Name: "Diagnostic message",
			Fields: []Descriptor{
				sourceAddress(0),
				targetAddress(2),
				{
					Name:        FieldUserData,
					Abbrev:      "doip.ud",
					Description: "Diagnostic request or response data.",
					Offset:      4,
					Kind:        KindBytes,
					Trailing:    true,
				},
			},
			Summary: summarizeDiagnosticMessage,
		},
		{
			Type: PayloadDiagnosticACK,
			Name: "Diagnostic message positive acknowledge",
			Fields: []Descriptor{
				sourceAddress(0),
				targetAddress(2),
				{
					Name:        FieldACKCode,
					Abbrev:      "doip.ack",
					Description: "Contains the diagnostic message positive acknowledge code.",
					Offset:      4,
					Length:      1,
					Kind:        KindUint8,
					Base:        BaseHex,
					Table:       DiagnosticACKCodes,
					Required:    true,
				},
				previousData(5),
			},
			Summary: summarizeDiagnosticACK,
		},
		{
			Type: PayloadDiagnosticNACK,
			Name: "Diagnostic message negative acknowledge",
			Fields: []Descriptor{
				sourceAddress(0),
				targetAddress(2),
				{
					Name:        FieldNACKCode,
					Abbrev:      "doip.nack",
					Description: "Contains the diagnostic message negative acknowledge code.",
					Offset:      4,
					Length:      1,
					Kind:        KindUint8,
					Base:        BaseHex,
					Table:       DiagnosticNACKCodes,
					Required:    true,
				},
				previousData(5),
			},
			Summary: summarizeDiagnosticNACK,
		},
	}
}

// NewDefaultRegistry builds a registry over DefaultLayouts.
func NewDefaultRegistry() (*Registry, error) {
	return NewRegistry(DefaultLayouts()...)
}

// cHex prints like C's %#x, where zero has no 0x prefix.
type cHex uint64

func (v cHex) Format(f fmt.State, verb rune) {
	if v == 0 {
		fmt.Fprint(f, "0")
		return
	}
	fmt.Fprintf(f, "%#x", uint64(v))
}

func summarizeGenericNACK(r Result) (string, bool) {
	code, ok := r.Uint(FieldGenericNACKCode)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("Generic header negative acknowledge [Nack: %#x]", cHex(code)), true
}

func summarizeRoutingRequest(r Result) (string, bool) {
	sa, ok1 := r.Uint(FieldSourceAddress)
	at, ok2 := r.Uint(FieldActivationType)
	if !ok1 || !ok2 {
		return "", false
	}
	return fmt.Sprintf("Routing activation request [Source addr: %#x, Activation type: %#x]", cHex(sa), cHex(at)), true
}

func summarizeRoutingResponse(r Result) (string, bool) {
	tester, ok1 := r.Uint(FieldTesterAddress)
	entity, ok2 := r.Uint(FieldEntityAddress)
	code, ok3 := r.Uint(FieldRoutingResponse)
	if !ok1 || !ok2 || !ok3 {
		return "", false
	}
	return fmt.Sprintf("Routing activation response [Tester addr: %#x, Entity addr: %#x, Code: %#x]", cHex(tester), cHex(entity), cHex(code)), true
}

func summarizeAliveCheckResponse(r Result) (string, bool) {
	sa, ok := r.Uint(FieldSourceAddress)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("Alive check response [Source addr: %#x]", cHex(sa)), true
}

// The max. data size is optional and only appended when present.
func summarizeStatusResponse(r Result) (string, bool) {
	node, ok1 := r.Uint(FieldNodeType)
	open, ok2 := r.Uint(FieldOpenSockets)
	if !ok1 || !ok2 {
		return "", false
	}
	s := fmt.Sprintf("DoIP status response [Node type: %#x, open TCP sockets: %#x", cHex(node), cHex(open))
	if mds, ok := r.Uint(FieldMaxDataSize); ok {
		s += fmt.Sprintf(", max. data size: %#x", cHex(mds))
	}
	return s + "]", true
}

func summarizePowerMode(r Result) (string, bool) {
	mode, ok := r.Uint(FieldPowerMode)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("Diagnostic power mode information response [Power mode: %#x]", cHex(mode)), true
}

func summarizeDiagnosticMessage(r Result) (string, bool) {
	sa, ok1 := r.Uint(FieldSourceAddress)
	ta, ok2 := r.Uint(FieldTargetAddress)
	if !ok1 || !ok2 {
		return "", false
	}
	data, _ := r.BytesOf(FieldUserData)
	return fmt.Sprintf("Diagnostic message [Source addr: %#x, Dest addr: %#x, User data: %d bytes]", cHex(sa), cHex(ta), len(data)), true
}

func summarizeDiagnosticACK(r Result) (string, bool) {
	sa, ok1 := r.Uint(FieldSourceAddress)
	ta, ok2 := r.Uint(FieldTargetAddress)
	ack, ok3 := r.Uint(FieldACKCode)
	if !ok1 || !ok2 || !ok3 {
		return "", false
	}
	return fmt.Sprintf("Diagnostic message positive acknowledge [Source addr: %#x, Dest addr: %#x, Ack: %#x]", cHex(sa), cHex(ta), cHex(ack)), true
}

func summarizeDiagnosticNACK(r Result) (string, bool) {
	sa, ok1 := r.Uint(FieldSourceAddress)
	ta, ok2 := r.Uint(FieldTargetAddress)
	nack, ok3 := r.Uint(FieldNACKCode)
	if !ok1 || !ok2 || !ok3 {
		return "", false
	}
	return fmt.Sprintf("Diagnostic message negative acknowledge [Source addr: %#x, Dest addr: %#x, Nack: %#x]", cHex(sa), cHex(ta), cHex(nack)), true
}
