// Package wire implements a schema-free protobuf field decoder and a small
// field encoder.
//
// The backend speaks an undocumented protobuf dialect for which no .proto
// files exist, so this package does not use code generation. Instead it
// exposes the raw field structure of a message: a sequence of
// (field number, wire type, value) triples in wire order. Interpreting a
// length-delimited value as a string, a nested message, or an opaque blob is
// deliberately left to the caller; the wire format does not self-describe,
// and any classification is a heuristic that belongs at a higher layer.
//
// Decoding is defensive. A truncated buffer, an over-long varint, or an
// unknown wire type produces a *MalformedError rather than a panic, and
// fields decoded before the failure remain valid.
package wire
