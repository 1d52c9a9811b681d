// Package agent defines the structured message model for the backend's
// bidirectional agent protocol, reverse-engineered from captured traffic.
//
// The protocol exchanges two root message types over enveloped protobuf
// frames: ClientMessage (appends from this side) and ServerMessage
// (interaction updates, tool-call asks, and bookkeeping from the backend).
// Both are tagged unions keyed by protobuf field number. Because no schema
// exists, parsing is built on the schema-free decoder in pkg/wire and is
// deliberately tolerant: an unrecognized field number is preserved as opaque
// raw fields rather than rejected, so the gateway survives backend
// additions.
//
// Field-number assignments in this package are observations, not contract.
// The ones confirmed by traffic capture are the ServerMessage interaction
// update (field 1) and its text/thinking/token deltas (fields 1, 4, 8);
// the rest were mapped by correlating frames against visible behavior.
package agent
