// Package envelope implements the 5-byte streaming frame header that wraps
// every protobuf payload exchanged with the backend: one flag byte followed
// by a 4-byte big-endian unsigned payload length.
//
// The same framing is used for unary request bodies and for the decoded
// bytes of each SSE data line: every "data: <base64>" line carries exactly
// one enveloped frame, and "[DONE]" terminates the stream with no envelope.
package envelope

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed envelope header length.
const HeaderSize = 5

// FlagTrailer marks a trailer frame carrying stream metadata rather than a
// protobuf payload. Observed on stream termination.
const FlagTrailer = 0x80

// Wrap prefixes payload with the envelope header.
func Wrap(payload []byte, flags byte) []byte {
	frame := make([]byte, HeaderSize+len(payload))
	frame[0] = flags
	binary.BigEndian.PutUint32(frame[1:HeaderSize], uint32(len(payload)))
	copy(frame[HeaderSize:], payload)
	return frame
}

// Strip removes the envelope header and returns the flag byte and payload.
//
// Input shorter than the header is returned unchanged with zero flags: the
// caller may be feeding a partial read or an already-stripped payload, and
// treating that as an error would force every call site to special-case it.
// A frame whose declared length exceeds the available bytes is truncated to
// what is present.
func Strip(frame []byte) (flags byte, payload []byte) {
	if len(frame) < HeaderSize {
		return 0, frame
	}

	flags = frame[0]
	declared := binary.BigEndian.Uint32(frame[1:HeaderSize])
	payload = frame[HeaderSize:]
	if uint64(declared) < uint64(len(payload)) {
		payload = payload[:declared]
	}
	return flags, payload
}

// SplitFrames splits a buffer holding zero or more back-to-back enveloped
// frames, as produced by a chunked streaming body. A trailing partial frame
// is returned as rest for the caller to prepend to the next read.
func SplitFrames(buf []byte) (frames []Frame, rest []byte) {
	for len(buf) >= HeaderSize {
		length := binary.BigEndian.Uint32(buf[1:HeaderSize])
		if uint64(len(buf)) < uint64(HeaderSize)+uint64(length) {
			break
		}
		frames = append(frames, Frame{
			Flags:   buf[0],
			Payload: buf[HeaderSize : HeaderSize+length],
		})
		buf = buf[HeaderSize+length:]
	}
	return frames, buf
}

// Frame is one enveloped unit as it appears on the stream.
type Frame struct {
	// Flags is the envelope flag byte. FlagTrailer marks a trailer frame.
	Flags byte

	// Payload is the protobuf message bytes (or trailer text).
	Payload []byte
}

// DecodeSSEData decodes the value of one SSE data line: base64 of a single
// enveloped frame. The caller has already stripped the "data: " prefix and
// checked for the "[DONE]" sentinel.
func DecodeSSEData(data string) (Frame, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return Frame{}, fmt.Errorf("sse data line is not valid base64: %w", err)
	}
	flags, payload := Strip(raw)
	return Frame{Flags: flags, Payload: payload}, nil
}

// EncodeSSEData produces the value of one SSE data line for payload.
func EncodeSSEData(payload []byte, flags byte) string {
	return base64.StdEncoding.EncodeToString(Wrap(payload, flags))
}
