package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecodeFields(t *testing.T) {
	t.Run("varint field", func(t *testing.T) {
		// field 1, varint 150
		buf := []byte{0x08, 0x96, 0x01}
		fields, err := DecodeFields(buf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fields) != 1 {
			t.Fatalf("expected 1 field, got %d", len(fields))
		}
		if fields[0].Number != 1 || fields[0].Type != TypeVarint || fields[0].Varint != 150 {
			t.Errorf("unexpected field: %+v", fields[0])
		}
	})

	t.Run("length-delimited field", func(t *testing.T) {
		// field 2, bytes "hi"
		buf := []byte{0x12, 0x02, 'h', 'i'}
		fields, err := DecodeFields(buf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fields) != 1 {
			t.Fatalf("expected 1 field, got %d", len(fields))
		}
		if fields[0].Number != 2 || fields[0].Type != TypeBytes || string(fields[0].Bytes) != "hi" {
			t.Errorf("unexpected field: %+v", fields[0])
		}
	})

	t.Run("fixed width fields", func(t *testing.T) {
		var buf []byte
		buf = AppendTag(buf, 3, TypeFixed64)
		buf = append(buf, 1, 2, 3, 4, 5, 6, 7, 8)
		buf = AppendTag(buf, 4, TypeFixed32)
		buf = append(buf, 9, 10, 11, 12)

		fields, err := DecodeFields(buf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fields) != 2 {
			t.Fatalf("expected 2 fields, got %d", len(fields))
		}
		if len(fields[0].Bytes) != 8 || len(fields[1].Bytes) != 4 {
			t.Errorf("unexpected byte spans: %d, %d", len(fields[0].Bytes), len(fields[1].Bytes))
		}
	})

	t.Run("multiple sibling fields in order", func(t *testing.T) {
		var buf []byte
		buf = AppendVarintField(buf, 7, 42)
		buf = AppendStringField(buf, 1, "alpha")
		buf = AppendStringField(buf, 1, "beta")

		fields, err := DecodeFields(buf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fields) != 3 {
			t.Fatalf("expected 3 fields, got %d", len(fields))
		}
		if fields[0].Number != 7 || string(fields[1].Bytes) != "alpha" || string(fields[2].Bytes) != "beta" {
			t.Errorf("fields out of order: %+v", fields)
		}
	})

	t.Run("empty buffer", func(t *testing.T) {
		fields, err := DecodeFields(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fields) != 0 {
			t.Errorf("expected no fields, got %d", len(fields))
		}
	})
}

func TestDecodeFieldsMalformed(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"truncated varint", []byte{0x08, 0x96}},
		{"truncated length-delimited", []byte{0x12, 0x05, 'h', 'i'}},
		{"truncated fixed64", []byte{0x19, 1, 2, 3}},
		{"unknown wire type", []byte{0x0B}}, // field 1, wire type 3 (group start)
		{"field number zero", []byte{0x00}},
		{"oversized varint", bytes.Repeat([]byte{0xFF}, 12)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFields(tt.buf)
			var malformed *MalformedError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected *MalformedError, got %v", err)
			}
		})
	}
}

func TestDecodeFieldsKeepsSiblingsOnFailure(t *testing.T) {
	// One good field followed by a truncated one.
	var buf []byte
	buf = AppendStringField(buf, 1, "intact")
	buf = append(buf, 0x12, 0x20) // field 2 claims 32 bytes, none follow

	fields, err := DecodeFields(buf)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if len(fields) != 1 || string(fields[0].Bytes) != "intact" {
		t.Errorf("expected the intact sibling to survive, got %+v", fields)
	}
}

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 21, 1<<63 - 1, ^uint64(0)}

	for _, v := range values {
		buf := AppendVarintField(nil, 9, v)
		fields, err := DecodeFields(buf)
		if err != nil {
			t.Fatalf("value %d: unexpected error: %v", v, err)
		}
		if len(fields) != 1 || fields[0].Varint != v {
			t.Errorf("value %d: round-trip mismatch: %+v", v, fields)
		}
	}
}

func TestDecoderRestartable(t *testing.T) {
	buf := AppendStringField(nil, 1, "x")

	// Two decoders over the same buffer are independent.
	d1 := NewDecoder(buf)
	d2 := NewDecoder(buf)

	f1, ok, err := d1.Next()
	if err != nil || !ok {
		t.Fatalf("d1.Next: ok=%v err=%v", ok, err)
	}
	f2, ok, err := d2.Next()
	if err != nil || !ok {
		t.Fatalf("d2.Next: ok=%v err=%v", ok, err)
	}
	if f1.Number != f2.Number || string(f1.Bytes) != string(f2.Bytes) {
		t.Errorf("decoders disagree: %+v vs %+v", f1, f2)
	}
}
