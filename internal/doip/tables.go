package doip

const reservedISO = "Reserved by this part of ISO 13400"

// NodeTypes resolves the entity status node type (ISO 13400-2:2012 table 37).
var NodeTypes = MustRangeTable("node_types",
	Range{0x00, 0x00, "DoIP gateway"},
	Range{0x01, 0x01, "DoIP node"},
	Range{0x02, 0xFF, "reserved by this part of ISO 13400"},
)

// DiagnosticNACKCodes resolves diagnostic message negative acknowledge codes
// (table 31).
var DiagnosticNACKCodes = MustRangeTable("diagnostic_nack_codes",
	Range{0x00, 0x01, reservedISO},
	Range{0x02, 0x02, "Invalid source address"},
	Range{0x03, 0x03, "Unknown target address"},
	Range{0x04, 0x04, "Diagnostic message too large"},
	Range{0x05, 0x05, "Out of memory"},
	Range{0x06, 0x06, "Target unreachable"},
	Range{0x07, 0x07, "Unknown network"},
	Range{0x08, 0x08, "Transport protocol error"},
	Range{0x09, 0xFF, reservedISO},
)

// DiagnosticACKCodes resolves diagnostic message positive acknowledge codes
// (table 28).
var DiagnosticACKCodes = MustRangeTable("diagnostic_ack_codes",
	Range{0x00, 0x00, "Routing confirmation acknowledge"},
	Range{0x01, 0xFF, reservedISO},
)

// GenericNACKCodes resolves generic header negative acknowledge codes
// (table 14).
var GenericNACKCodes = MustRangeTable("generic_nack_codes",
	Range{0x00, 0x00, "Incorrect pattern format"},
	Range{0x01, 0x01, "Unknown payload type"},
	Range{0x02, 0x02, "Message too large"},
	Range{0x03, 0x03, "Out of memory"},
	Range{0x04, 0x04, "Invalid payload length"},
	Range{0x05, 0xFF, reservedISO},
)

// LogicalAddresses resolves 16-bit logical addresses (table 39). Only the
// top-level classes are listed; finer sub-classes of the external test
// equipment and functional group ranges are not distinguished.
var LogicalAddresses = MustRangeTable("logical_addresses",
	Range{0x0000, 0x0000, "ISO/SAE reserved"},
	Range{0x0001, 0x0DFF, "Vehicle manufacturer specific"},
	Range{0x0E00, 0x0FFF, "Reserved for addresses of external test equipment"},
	Range{0x1000, 0x7FFF, "Vehicle manufacturer specific"},
	Range{0x8000, 0xCFFF, "ISO/SAE reserved"},
	Range{0xD000, 0xDFFF, "Reserved for SAE Truck & Bus Control and Communication Committee"},
	Range{0xE000, 0xE3FF, "ISO/SAE-reserved functional group addresses"},
	Range{0xE400, 0xEFFF, "Vehicle-manufacturer-defined functional group logical addresses"},
	Range{0xF000, 0xFFFF, "ISO/SAE reserved"},
)

// ActivationTypes resolves routing activation types (table 24).
var ActivationTypes = MustRangeTable("activation_types",
	Range{0x00, 0x00, "Default"},
	Range{0x01, 0x01, "WWH-OBD"},
	Range{0x02, 0xDF, reservedISO},
	Range{0xE0, 0xE0, "Central security"},
	Range{0xE1, 0xFF, "Available for additional OEM-specific use"},
)

// RoutingResponseCodes resolves routing activation response codes (table 25).
var RoutingResponseCodes = MustRangeTable("routing_response_codes",
	Range{0x00, 0x00, "Routing activation denied due to unknown source address"},
	Range{0x01, 0x01, "Routing activation denied because all concurrently supported TCP_DATA sockets are registered and active"},
	Range{0x02, 0x02, "Routing activation denied because an SA different from the table connection entry was received on the already activated TCP_DATA socket"},
	Range{0x03, 0x03, "Routing activation denied because the SA is already registered and active on a different TCP_DATA socket"},
	Range{0x04, 0x04, "Routing activation denied due to missing authentication"},
	Range{0x05, 0x05, "Routing activation denied due to rejected confirmation"},
	Range{0x06, 0x06, "Routing activation denied due to unsupported routing activation type"},
	Range{0x07, 0x0F, reservedISO},
	Range{0x10, 0x10, "Routing successfully activated"},
	Range{0x11, 0x11, "Routing will be activated; confirmation required"},
	Range{0x12, 0xDF, reservedISO},
	Range{0xE0, 0xFE, "Vehicle-manufacturer specific"},
	Range{0xFF, 0xFF, reservedISO},
)

// PowerModes resolves the diagnostic power mode (table 40).
var PowerModes = MustRangeTable("power_modes",
	Range{0x00, 0x00, "not ready"},
	Range{0x01, 0x01, "ready"},
	Range{0x02, 0x02, "not supported"},
	Range{0x03, 0xFF, reservedISO},
)

// ProtocolVersions resolves the generic header protocol version (table 11).
var ProtocolVersions = MustRangeTable("protocol_versions",
	Range{0x00, 0x00, "Reserved"},
	Range{0x01, 0x01, "DoIP ISO/DIS 13400-2:2010"},
	Range{0x02, 0x02, "DoIP ISO 13400-2:2012"},
	Range{0x03, 0x03, "DoIP ISO 13400-2:2019"},
	Range{0x04, 0xFE, "Reserved"},
	Range{0xFF, 0xFF, "Default value for vehicle identification request messages"},
)

// PayloadTypeNames resolves payload type codes (table 17).
var PayloadTypeNames = MustRangeTable("payload_types",
	Range{0x0000, 0x0000, "Generic DoIP header negative acknowledge"},
	Range{0x0001, 0x0001, "Vehicle identification request message"},
	Range{0x0002, 0x0002, "Vehicle identification request message with EID"},
	Range{0x0003, 0x0003, "Vehicle identification request message with VIN"},
	Range{0x0004, 0x0004, "Vehicle announcement message/vehicle identification response message"},
	Range{0x0005, 0x0005, "Routing activation request"},
	Range{0x0006, 0x0006, "Routing activation response"},
	Range{0x0007, 0x0007, "Alive check request"},
	Range{0x0008, 0x0008, "Alive check response"},
	Range{0x0009, 0x4000, reservedISO},
	Range{0x4001, 0x4001, "DoIP entity status request"},
	Range{0x4002, 0x4002, "DoIP entity status response"},
	Range{0x4003, 0x4003, "Diagnostic power mode information request"},
	Range{0x4004, 0x4004, "Diagnostic power mode information response"},
	Range{0x4005, 0x8000, reservedISO},
	Range{0x8001, 0x8001, "Diagnostic message"},
	Range{0x8002, 0x8002, "Diagnostic message positive acknowledgement"},
	Range{0x8003, 0x8003, "Diagnostic message negative acknowledgement"},
	Range{0x8004, 0xEFFF, reservedISO},
	Range{0xF000, 0xFFFF, "Reserved for manufacturer-specific use"},
)
