package wire

import "fmt"

// WireType identifies the encoding of a single protobuf field.
type WireType uint8

const (
	// TypeVarint is wire type 0: a LEB128-encoded unsigned integer.
	TypeVarint WireType = 0

	// TypeFixed64 is wire type 1: an 8-byte little-endian value.
	TypeFixed64 WireType = 1

	// TypeBytes is wire type 2: a varint length followed by that many bytes.
	// Strings, nested messages, and packed fields all use this encoding.
	TypeBytes WireType = 2

	// TypeFixed32 is wire type 5: a 4-byte little-endian value.
	TypeFixed32 WireType = 5
)

// String returns a human-readable name for the wire type.
func (t WireType) String() string {
	switch t {
	case TypeVarint:
		return "varint"
	case TypeFixed64:
		return "fixed64"
	case TypeBytes:
		return "bytes"
	case TypeFixed32:
		return "fixed32"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// RawField is one decoded protobuf field. For TypeVarint the value is in
// Varint; for the other wire types the literal byte span is in Bytes
// (Fixed64/Fixed32 spans are kept as bytes so the caller decides signedness
// and floating-point interpretation). Bytes aliases the input buffer and is
// only valid as long as the buffer is.
type RawField struct {
	// Number is the protobuf field number (tag >> 3).
	Number uint32

	// Type is the wire type (tag & 0x7).
	Type WireType

	// Varint holds the value for TypeVarint fields.
	Varint uint64

	// Bytes holds the payload for TypeBytes, TypeFixed64 and TypeFixed32 fields.
	Bytes []byte
}

// maxVarintBytes bounds a single varint to 10 bytes (64 bits, 7 per byte).
const maxVarintBytes = 10

// Decoder iterates over the fields of one protobuf message buffer. It is
// stateless across messages: create a new Decoder per buffer. A Decoder is
// not safe for concurrent use.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder returns a Decoder positioned at the start of buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Next decodes the next field in wire order. It returns (field, true, nil)
// on success, (zero, false, nil) at the clean end of the buffer, and
// (zero, false, *MalformedError) when the buffer is truncated mid-field or
// uses an unsupported wire type.
func (d *Decoder) Next() (RawField, bool, error) {
	if d.pos >= len(d.buf) {
		return RawField{}, false, nil
	}

	tagOffset := d.pos
	tag, err := d.readVarint()
	if err != nil {
		return RawField{}, false, err
	}

	f := RawField{
		Number: uint32(tag >> 3),
		Type:   WireType(tag & 0x7),
	}
	if f.Number == 0 {
		return RawField{}, false, &MalformedError{
			Offset: tagOffset,
			Reason: "field number 0 is reserved",
		}
	}

	switch f.Type {
	case TypeVarint:
		f.Varint, err = d.readVarint()
		if err != nil {
			return RawField{}, false, err
		}

	case TypeFixed64:
		f.Bytes, err = d.readBytes(8)
		if err != nil {
			return RawField{}, false, err
		}

	case TypeFixed32:
		f.Bytes, err = d.readBytes(4)
		if err != nil {
			return RawField{}, false, err
		}

	case TypeBytes:
		length, err := d.readVarint()
		if err != nil {
			return RawField{}, false, err
		}
		if length > uint64(len(d.buf)-d.pos) {
			return RawField{}, false, &MalformedError{
				Offset: tagOffset,
				Field:  f.Number,
				Reason: fmt.Sprintf("length-delimited field declares %d bytes but only %d remain", length, len(d.buf)-d.pos),
			}
		}
		f.Bytes, err = d.readBytes(int(length))
		if err != nil {
			return RawField{}, false, err
		}

	default:
		// Wire types 3/4 (group start/end) are obsolete and never produced
		// by the backend; anything else means we are decoding garbage.
		return RawField{}, false, &MalformedError{
			Offset: tagOffset,
			Field:  f.Number,
			Reason: fmt.Sprintf("unsupported wire type %d", uint8(f.Type)),
		}
	}

	return f, true, nil
}

// DecodeFields decodes every field in buf. On a malformed buffer it returns
// the fields decoded so far together with the error, so callers can keep
// siblings that were read before the corruption.
func DecodeFields(buf []byte) ([]RawField, error) {
	d := NewDecoder(buf)
	var fields []RawField
	for {
		f, ok, err := d.Next()
		if err != nil {
			return fields, err
		}
		if !ok {
			return fields, nil
		}
		fields = append(fields, f)
	}
}

// readVarint reads one LEB128 unsigned integer at the current position.
func (d *Decoder) readVarint() (uint64, error) {
	var value uint64
	var shift uint
	start := d.pos

	for i := 0; i < maxVarintBytes; i++ {
		if d.pos >= len(d.buf) {
			return 0, &MalformedError{
				Offset: start,
				Reason: "buffer ends mid-varint",
			}
		}
		b := d.buf[d.pos]
		d.pos++
		value |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return value, nil
		}
		shift += 7
	}

	return 0, &MalformedError{
		Offset: start,
		Reason: "varint exceeds 10 bytes",
	}
}

// readBytes consumes exactly n bytes at the current position.
func (d *Decoder) readBytes(n int) ([]byte, error) {
	if n > len(d.buf)-d.pos {
		return nil, &MalformedError{
			Offset: d.pos,
			Reason: fmt.Sprintf("buffer ends mid-field: need %d bytes, have %d", n, len(d.buf)-d.pos),
		}
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}
