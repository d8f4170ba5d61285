// Package doip decodes ISO 13400-2 (Diagnostics over IP) payloads into
// labeled fields.
//
// Ownership boundary:
// - value-range tables and the field descriptor registry (static, read-only)
// - generic layout decoding bounded by the declared payload length
// - payload-type dispatch and summary generation
// - generic header parsing
//
// Rendering, transport and capture belong to callers.
package doip
