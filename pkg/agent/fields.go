package agent

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"ganymede-hq/ganymede/pkg/wire"
)

// The wire format does not distinguish strings from nested messages from
// raw blobs; everything length-delimited looks the same. The helpers here
// make a best-effort classification for debug formatting only. A
// misclassification affects how a field is printed, never how the protocol
// behaves; sequence numbering and session state must not depend on them.

// maxPlausibleFieldNumber bounds the field numbers we expect to see in a
// nested backend message. Real messages use small numbers; a blob that
// happens to decode to field 3000 is almost certainly not a message.
const maxPlausibleFieldNumber = 99

// LooksLikeText reports whether b is plausible printable UTF-8 text.
func LooksLikeText(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if r == '\n' || r == '\r' || r == '\t' {
			continue
		}
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// LooksLikeMessage reports whether b plausibly decodes as a nested protobuf
// message: it must decode cleanly and every field number must fall in
// 1..maxPlausibleFieldNumber.
func LooksLikeMessage(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	fields, err := wire.DecodeFields(b)
	if err != nil || len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if f.Number > maxPlausibleFieldNumber {
			return false
		}
	}
	return true
}

// Preview returns s truncated to at most max runes for log output, with an
// ellipsis when truncated. The underlying value is never modified; callers
// making protocol decisions must use the full string.
func Preview(s string, max int) string {
	if max <= 0 {
		max = 120
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

// DescribeField renders one raw field for debug output, applying the
// text/message/blob heuristics.
func DescribeField(f wire.RawField) string {
	switch f.Type {
	case wire.TypeVarint:
		return fmt.Sprintf("field %d: varint %d", f.Number, f.Varint)
	case wire.TypeBytes:
		switch {
		case LooksLikeText(f.Bytes):
			return fmt.Sprintf("field %d: text %q", f.Number, Preview(string(f.Bytes), 120))
		case LooksLikeMessage(f.Bytes):
			return fmt.Sprintf("field %d: message (%d bytes)", f.Number, len(f.Bytes))
		default:
			return fmt.Sprintf("field %d: blob (%d bytes)", f.Number, len(f.Bytes))
		}
	default:
		return fmt.Sprintf("field %d: %s (%d bytes)", f.Number, f.Type, len(f.Bytes))
	}
}
