package wire

// Encoding helpers for building outbound frames without generated code.
// They append to the caller's buffer in the usual append style.

// AppendVarint appends v as a LEB128 unsigned integer.
func AppendVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// AppendTag appends the tag for the given field number and wire type.
func AppendTag(buf []byte, number uint32, t WireType) []byte {
	return AppendVarint(buf, uint64(number)<<3|uint64(t))
}

// AppendVarintField appends a complete varint field.
func AppendVarintField(buf []byte, number uint32, v uint64) []byte {
	buf = AppendTag(buf, number, TypeVarint)
	return AppendVarint(buf, v)
}

// AppendBytesField appends a complete length-delimited field.
func AppendBytesField(buf []byte, number uint32, b []byte) []byte {
	buf = AppendTag(buf, number, TypeBytes)
	buf = AppendVarint(buf, uint64(len(b)))
	return append(buf, b...)
}

// AppendStringField appends a complete length-delimited field holding s.
func AppendStringField(buf []byte, number uint32, s string) []byte {
	buf = AppendTag(buf, number, TypeBytes)
	buf = AppendVarint(buf, uint64(len(s)))
	return append(buf, s...)
}
