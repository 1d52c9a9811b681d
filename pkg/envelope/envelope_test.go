package envelope

import (
	"bytes"
	"testing"
)

func TestWrapStrip(t *testing.T) {
	payload := []byte("protobuf bytes here")

	frame := Wrap(payload, 0)
	if len(frame) != HeaderSize+len(payload) {
		t.Fatalf("expected frame length %d, got %d", HeaderSize+len(payload), len(frame))
	}

	flags, stripped := Strip(frame)
	if flags != 0 {
		t.Errorf("expected zero flags, got %#x", flags)
	}
	if !bytes.Equal(stripped, payload) {
		t.Errorf("payload mismatch: got %q", stripped)
	}
}

func TestWrapTrailerFlag(t *testing.T) {
	frame := Wrap([]byte("grpc-status: 0"), FlagTrailer)
	flags, _ := Strip(frame)
	if flags != FlagTrailer {
		t.Errorf("expected trailer flag, got %#x", flags)
	}
}

func TestStripShortInputIsNoOp(t *testing.T) {
	// Inputs shorter than the header pass through unchanged, so stripping an
	// already-stripped short payload is idempotent.
	inputs := [][]byte{nil, {}, {0x01}, []byte("hiya")}

	for _, in := range inputs {
		flags, out := Strip(in)
		if flags != 0 {
			t.Errorf("short input %q: expected zero flags, got %#x", in, flags)
		}
		if !bytes.Equal(out, in) {
			t.Errorf("short input %q: expected unchanged output, got %q", in, out)
		}

		// Strip(Strip(x)) == Strip(x) for short x.
		_, again := Strip(out)
		if !bytes.Equal(again, out) {
			t.Errorf("short input %q: second strip changed payload to %q", in, again)
		}
	}
}

func TestStripTruncatesToDeclaredLength(t *testing.T) {
	frame := Wrap([]byte("abc"), 0)
	frame = append(frame, []byte("junk after frame")...)

	_, payload := Strip(frame)
	if string(payload) != "abc" {
		t.Errorf("expected declared payload only, got %q", payload)
	}
}

func TestSplitFrames(t *testing.T) {
	t.Run("multiple complete frames", func(t *testing.T) {
		buf := append(Wrap([]byte("one"), 0), Wrap([]byte("two"), FlagTrailer)...)

		frames, rest := SplitFrames(buf)
		if len(frames) != 2 {
			t.Fatalf("expected 2 frames, got %d", len(frames))
		}
		if string(frames[0].Payload) != "one" || string(frames[1].Payload) != "two" {
			t.Errorf("unexpected payloads: %q, %q", frames[0].Payload, frames[1].Payload)
		}
		if frames[1].Flags != FlagTrailer {
			t.Errorf("expected trailer flag on second frame")
		}
		if len(rest) != 0 {
			t.Errorf("expected no rest, got %d bytes", len(rest))
		}
	})

	t.Run("partial frame is returned as rest", func(t *testing.T) {
		full := Wrap([]byte("complete"), 0)
		partial := Wrap([]byte("incomplete"), 0)[:7]
		buf := append(append([]byte{}, full...), partial...)

		frames, rest := SplitFrames(buf)
		if len(frames) != 1 || string(frames[0].Payload) != "complete" {
			t.Fatalf("expected the complete frame only, got %d frames", len(frames))
		}
		if !bytes.Equal(rest, partial) {
			t.Errorf("expected partial frame as rest, got %q", rest)
		}
	})
}

func TestSSEDataRoundTrip(t *testing.T) {
	payload := []byte{0x0A, 0x02, 'h', 'i'}

	line := EncodeSSEData(payload, 0)
	frame, err := DecodeSSEData(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Errorf("payload mismatch: got %v", frame.Payload)
	}
}

func TestDecodeSSEDataRejectsBadBase64(t *testing.T) {
	if _, err := DecodeSSEData("not base64!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}
