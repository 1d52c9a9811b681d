package agent

import (
	"strings"
	"testing"

	"ganymede-hq/ganymede/pkg/wire"
)

func TestLooksLikeText(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want bool
	}{
		{"plain ascii", []byte("hello world"), true},
		{"utf8 with accents", []byte("héllo"), true},
		{"with newlines and tabs", []byte("a\n\tb"), true},
		{"empty", nil, false},
		{"invalid utf8", []byte{0xFF, 0xFE}, false},
		{"control bytes", []byte{'a', 0x00, 'b'}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooksLikeText(tt.in); got != tt.want {
				t.Errorf("LooksLikeText(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLooksLikeMessage(t *testing.T) {
	nested := wire.AppendStringField(nil, 1, "inner")

	if !LooksLikeMessage(nested) {
		t.Error("expected a clean nested message to classify as message")
	}
	if LooksLikeMessage(nil) {
		t.Error("expected empty buffer to classify as non-message")
	}
	if LooksLikeMessage([]byte{0xFF, 0xFF, 0xFF}) {
		t.Error("expected garbage to classify as non-message")
	}

	// Decodes cleanly but with an implausible field number.
	implausible := wire.AppendVarintField(nil, 3000, 1)
	if LooksLikeMessage(implausible) {
		t.Error("expected implausible field number to classify as non-message")
	}
}

func TestPreviewDoesNotCorruptValue(t *testing.T) {
	full := strings.Repeat("x", 500)

	p := Preview(full, 100)
	if len([]rune(p)) != 101 { // 100 runes + ellipsis
		t.Errorf("unexpected preview length %d", len([]rune(p)))
	}

	// The original value is untouched; only the rendering is shortened.
	if len(full) != 500 {
		t.Error("preview must not mutate the input")
	}

	if Preview("short", 100) != "short" {
		t.Error("short strings pass through unchanged")
	}
}

func TestPreviewRuneSafe(t *testing.T) {
	s := strings.Repeat("⌘", 10)
	p := Preview(s, 5)
	if !strings.HasPrefix(p, "⌘⌘⌘⌘⌘") || strings.Contains(p, "�") {
		t.Errorf("preview split a rune: %q", p)
	}
}
